package docstore

import (
	"fmt"

	"github.com/hupe1980/vtable/codec"
)

// Index declares a secondary index of a collection.
//
// Key returns the key components of a document, compared component-wise.
// Supported component kinds are strings, integers, floats, bools and nil,
// including named types of those kinds. A nil result leaves the document out
// of the index.
type Index[T any] struct {
	Name string
	Key  func(T) []any
}

// Definition is a collection schema that can be registered with Open.
type Definition interface {
	definition() *collectionDef
}

// collectionDef is the type-erased schema of a collection.
type collectionDef struct {
	name    string
	indexes []string
	// keys decodes a document and returns its encoded key per index; ok is
	// false where the document is not indexed.
	keys func(c codec.Codec, data []byte) ([]indexKey, error)
}

type indexKey struct {
	key string
	ok  bool
}

// Collection is a typed handle for a collection of documents of type T.
// Handles carry only the schema; they are used with any Store the
// collection was registered with.
type Collection[T any] struct {
	def     *collectionDef
	indexes []Index[T]
	pos     map[string]int
}

// NewCollection declares a collection. Index names must be unique.
func NewCollection[T any](name string, indexes ...Index[T]) *Collection[T] {
	c := &Collection[T]{
		indexes: indexes,
		pos:     make(map[string]int, len(indexes)),
	}
	names := make([]string, len(indexes))
	for i, ix := range indexes {
		if _, dup := c.pos[ix.Name]; dup {
			panic(fmt.Sprintf("docstore: duplicate index %q on collection %q", ix.Name, name))
		}
		c.pos[ix.Name] = i
		names[i] = ix.Name
	}
	c.def = &collectionDef{
		name:    name,
		indexes: names,
		keys: func(cd codec.Codec, data []byte) ([]indexKey, error) {
			var doc T
			if err := cd.Unmarshal(data, &doc); err != nil {
				return nil, fmt.Errorf("decode %s document: %w", name, err)
			}
			return c.indexKeys(doc)
		},
	}
	return c
}

// Name returns the collection name.
func (c *Collection[T]) Name() string { return c.def.name }

func (c *Collection[T]) definition() *collectionDef { return c.def }

func (c *Collection[T]) indexKeys(doc T) ([]indexKey, error) {
	keys := make([]indexKey, len(c.indexes))
	for i, ix := range c.indexes {
		parts := ix.Key(doc)
		if parts == nil {
			continue
		}
		k, err := encodeTuple(parts)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", c.def.name, ix.Name, err)
		}
		keys[i] = indexKey{key: k, ok: true}
	}
	return keys, nil
}

func (c *Collection[T]) decode(tx *Tx, data []byte) (T, error) {
	var doc T
	if err := tx.s.opts.codec.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("decode %s document: %w", c.def.name, err)
	}
	return doc, nil
}

// Get returns the document with the given id, or ErrNotFound.
func (c *Collection[T]) Get(tx *Tx, id string) (T, error) {
	var zero T
	data, ok, err := tx.get(c.def.name, id)
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, fmt.Errorf("%s/%s: %w", c.def.name, id, ErrNotFound)
	}
	return c.decode(tx, data)
}

// Has reports whether a document with the given id exists.
func (c *Collection[T]) Has(tx *Tx, id string) (bool, error) {
	_, ok, err := tx.get(c.def.name, id)
	return ok, err
}

// Insert adds a new document. It fails with ErrDuplicateID if id exists.
func (c *Collection[T]) Insert(tx *Tx, id string, doc T) error {
	_, ok, err := tx.get(c.def.name, id)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%s/%s: %w", c.def.name, id, ErrDuplicateID)
	}
	return c.put(tx, id, doc)
}

// Replace overwrites an existing document. It fails with ErrNotFound if id
// does not exist.
func (c *Collection[T]) Replace(tx *Tx, id string, doc T) error {
	_, ok, err := tx.get(c.def.name, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s/%s: %w", c.def.name, id, ErrNotFound)
	}
	return c.put(tx, id, doc)
}

// Patch loads a document, applies fn and writes the result back.
func (c *Collection[T]) Patch(tx *Tx, id string, fn func(*T)) error {
	doc, err := c.Get(tx, id)
	if err != nil {
		return err
	}
	fn(&doc)
	return c.put(tx, id, doc)
}

// Delete removes a document. It fails with ErrNotFound if id does not exist.
func (c *Collection[T]) Delete(tx *Tx, id string) error {
	_, ok, err := tx.get(c.def.name, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s/%s: %w", c.def.name, id, ErrNotFound)
	}
	return tx.delete(c.def.name, id)
}

func (c *Collection[T]) put(tx *Tx, id string, doc T) error {
	if err := tx.writableErr(); err != nil {
		return err
	}
	keys, err := c.indexKeys(doc)
	if err != nil {
		return err
	}
	data, err := tx.s.opts.codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s document: %w", c.def.name, err)
	}
	return tx.put(c.def.name, id, data, keys)
}

// Query starts an index scan over documents whose key begins with prefix.
// An empty prefix scans the whole index.
func (c *Collection[T]) Query(tx *Tx, index string, prefix ...any) *Query[T] {
	q := &Query[T]{c: c, tx: tx, index: index}
	pos, ok := c.pos[index]
	if !ok {
		q.err = fmt.Errorf("%s.%s: %w", c.def.name, index, ErrUnknownIndex)
		return q
	}
	q.pos = pos
	p, err := encodeTuple(prefix)
	if err != nil {
		q.err = fmt.Errorf("%s.%s: %w", c.def.name, index, err)
		return q
	}
	q.prefix = p
	return q
}
