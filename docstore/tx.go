package docstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type docKey struct {
	coll string
	id   string
}

type scanKey struct {
	coll string
	pos  int
	// partition is the encoded first key component, or "" for the whole index.
	partition string
}

type pendingWrite struct {
	op   Op
	data []byte
	keys []indexKey
	seq  uint32
}

// Tx is a transaction. It buffers writes and records the version of every
// document and index partition it reads; Commit fails with ErrConflict if
// any of them changed in the meantime.
//
// Reads of one Tx may run concurrently; the Tx must not be used after the
// function passed to Update or View returns.
type Tx struct {
	s        *Store
	writable bool
	done     bool

	mu sync.Mutex

	writes map[docKey]*pendingWrite
	order  []docKey
	seq    uint32

	reads map[docKey]uint64
	scans map[scanKey]uint64
}

func newTx(s *Store, writable bool) *Tx {
	return &Tx{
		s:        s,
		writable: writable,
		writes:   make(map[docKey]*pendingWrite),
		reads:    make(map[docKey]uint64),
		scans:    make(map[scanKey]uint64),
	}
}

// Writable reports whether the transaction may write.
func (tx *Tx) Writable() bool { return tx.writable }

// Len returns the number of buffered writes.
func (tx *Tx) Len() int { return len(tx.order) }

func (tx *Tx) writableErr() error {
	if tx.done {
		return ErrTxDone
	}
	if !tx.writable {
		return ErrReadOnly
	}
	return nil
}

func (tx *Tx) get(coll, id string) ([]byte, bool, error) {
	if tx.done {
		return nil, false, ErrTxDone
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()

	k := docKey{coll, id}
	if w, ok := tx.writes[k]; ok {
		return w.data, w.op == OpPut, nil
	}

	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()

	cs, ok := tx.s.colls[coll]
	if !ok {
		return nil, false, fmt.Errorf("%s: %w", coll, ErrUnknownCollection)
	}
	rec, exists := cs.docs[id]
	var version uint64
	if exists {
		version = rec.version
	}
	if _, seen := tx.reads[k]; !seen {
		tx.reads[k] = version
	}
	if !exists {
		return nil, false, nil
	}
	return rec.data, true, nil
}

func (tx *Tx) put(coll, id string, data []byte, keys []indexKey) error {
	return tx.buffer(coll, id, &pendingWrite{op: OpPut, data: data, keys: keys})
}

func (tx *Tx) delete(coll, id string) error {
	if err := tx.writableErr(); err != nil {
		return err
	}
	return tx.buffer(coll, id, &pendingWrite{op: OpDelete})
}

func (tx *Tx) buffer(coll, id string, w *pendingWrite) error {
	if _, ok := tx.s.colls[coll]; !ok {
		return fmt.Errorf("%s: %w", coll, ErrUnknownCollection)
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()

	k := docKey{coll, id}
	if prev, ok := tx.writes[k]; ok {
		w.seq = prev.seq
		tx.writes[k] = w
		return nil
	}
	tx.seq++
	w.seq = tx.seq
	tx.writes[k] = w
	tx.order = append(tx.order, k)
	return nil
}

type scanEntry struct {
	key  string
	rank uint64
	id   string
	data []byte
}

// scan returns the documents of index pos whose key starts with prefix,
// merging buffered writes over committed state. Entries are ordered by key,
// then committed documents in insertion order, then buffered inserts.
func (tx *Tx) scan(coll string, pos int, prefix string) ([]scanEntry, error) {
	if tx.done {
		return nil, ErrTxDone
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()

	tx.s.mu.RLock()
	cs, ok := tx.s.colls[coll]
	if !ok {
		tx.s.mu.RUnlock()
		return nil, fmt.Errorf("%s: %w", coll, ErrUnknownCollection)
	}
	ix := cs.indexes[pos]

	sk := scanKey{coll: coll, pos: pos}
	if prefix != "" {
		sk.partition = firstComponent(prefix)
	}
	if _, seen := tx.scans[sk]; !seen {
		tx.scans[sk] = ix.observed(prefix)
	}

	var out []scanEntry
	ix.scan(prefix, func(key string, num uint32) {
		id := cs.byNum[num]
		if _, pending := tx.writes[docKey{coll, id}]; pending {
			return
		}
		out = append(out, scanEntry{key: key, rank: uint64(num), id: id, data: cs.docs[id].data})
	})

	for _, k := range tx.order {
		if k.coll != coll {
			continue
		}
		w := tx.writes[k]
		if w.op != OpPut || !w.keys[pos].ok || !strings.HasPrefix(w.keys[pos].key, prefix) {
			continue
		}
		rank := uint64(1)<<32 + uint64(w.seq)
		if rec, ok := cs.docs[k.id]; ok {
			rank = uint64(rec.num)
		}
		out = append(out, scanEntry{key: w.keys[pos].key, rank: rank, id: k.id, data: w.data})
	}
	tx.s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].key != out[j].key {
			return out[i].key < out[j].key
		}
		return out[i].rank < out[j].rank
	})
	return out, nil
}

// validLocked reports whether every observation is still current. The
// caller holds s.mu.
func (tx *Tx) validLocked() bool {
	for k, version := range tx.reads {
		var current uint64
		if rec, ok := tx.s.colls[k.coll].docs[k.id]; ok {
			current = rec.version
		}
		if current != version {
			return false
		}
	}
	for k, version := range tx.scans {
		ix := tx.s.colls[k.coll].indexes[k.pos]
		current := ix.version
		if k.partition != "" {
			current = ix.partitions[k.partition]
		}
		if current != version {
			return false
		}
	}
	return true
}

func (tx *Tx) valid() bool {
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	return tx.validLocked()
}

func (tx *Tx) mutations() []Mutation {
	muts := make([]Mutation, len(tx.order))
	for i, k := range tx.order {
		w := tx.writes[k]
		muts[i] = Mutation{Op: w.op, Collection: k.coll, ID: k.id, Data: w.data}
	}
	return muts
}
