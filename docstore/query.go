package docstore

import "fmt"

// Query is an index scan built by Collection.Query.
type Query[T any] struct {
	c      *Collection[T]
	tx     *Tx
	index  string
	pos    int
	prefix string
	desc   bool
	limit  int
	err    error
}

// Desc reverses the scan order.
func (q *Query[T]) Desc() *Query[T] {
	q.desc = true
	return q
}

// Limit caps the number of returned documents. Zero means no limit.
func (q *Query[T]) Limit(n int) *Query[T] {
	q.limit = n
	return q
}

func (q *Query[T]) entries() ([]scanEntry, error) {
	if q.err != nil {
		return nil, q.err
	}
	entries, err := q.tx.scan(q.c.def.name, q.pos, q.prefix)
	if err != nil {
		return nil, err
	}
	if q.desc {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	if q.limit > 0 && len(entries) > q.limit {
		entries = entries[:q.limit]
	}
	return entries, nil
}

// Collect returns every matching document.
func (q *Query[T]) Collect() ([]T, error) {
	entries, err := q.entries()
	if err != nil {
		return nil, err
	}
	docs := make([]T, 0, len(entries))
	for _, e := range entries {
		doc, err := q.c.decode(q.tx, e.data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// IDs returns the ids of every matching document.
func (q *Query[T]) IDs() ([]string, error) {
	entries, err := q.entries()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids, nil
}

// First returns the first matching document.
func (q *Query[T]) First() (T, bool, error) {
	var zero T
	entries, err := q.Limit(1).entries()
	if err != nil || len(entries) == 0 {
		return zero, false, err
	}
	doc, err := q.c.decode(q.tx, entries[0].data)
	return doc, err == nil, err
}

// Unique returns the only matching document. It fails with ErrNotUnique
// when more than one document matches.
func (q *Query[T]) Unique() (T, bool, error) {
	var zero T
	entries, err := q.Limit(2).entries()
	if err != nil || len(entries) == 0 {
		return zero, false, err
	}
	if len(entries) > 1 {
		return zero, false, fmt.Errorf("%s.%s: %w", q.c.def.name, q.index, ErrNotUnique)
	}
	doc, err := q.c.decode(q.tx, entries[0].data)
	return doc, err == nil, err
}
