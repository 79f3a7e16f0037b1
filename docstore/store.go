package docstore

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

type record struct {
	num     uint32
	data    []byte
	version uint64
	keys    []indexKey
}

type collState struct {
	def     *collectionDef
	docs    map[string]*record
	byNum   map[uint32]string
	nextNum uint32
	indexes []*indexState
}

// Store is an in-memory document store with secondary indexes and
// serializable transactions.
//
// Transactions are optimistic: they read committed state, buffer their writes
// and validate their reads at commit under a single commit lock. Every commit
// that writes is handed to the Journal before it becomes visible.
type Store struct {
	opts options

	mu      sync.RWMutex
	colls   map[string]*collState
	version uint64
	closed  bool

	cpMu            sync.Mutex
	cpRunning       atomic.Bool
	sinceCheckpoint atomic.Uint64
	wg              sync.WaitGroup

	stats storeStats
}

type storeStats struct {
	commits     atomic.Uint64
	conflicts   atomic.Uint64
	retries     atomic.Uint64
	aborted     atomic.Uint64
	checkpoints atomic.Uint64
}

// Stats is a point-in-time view of store counters.
type Stats struct {
	Version     uint64
	Documents   map[string]int
	Commits     uint64
	Conflicts   uint64
	Retries     uint64
	Aborted     uint64
	Checkpoints uint64
}

// Open registers the collections, replays the journal and returns the store.
func Open(ctx context.Context, collections []Definition, optFns ...Option) (*Store, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Store{
		opts:  opts,
		colls: make(map[string]*collState, len(collections)),
	}
	for _, d := range collections {
		def := d.definition()
		if _, dup := s.colls[def.name]; dup {
			return nil, fmt.Errorf("docstore: duplicate collection %q", def.name)
		}
		cs := &collState{
			def:     def,
			docs:    make(map[string]*record),
			byNum:   make(map[uint32]string),
			indexes: make([]*indexState, len(def.indexes)),
		}
		for i, name := range def.indexes {
			cs.indexes[i] = newIndexState(name)
		}
		s.colls[def.name] = cs
	}

	start := time.Now()
	var replayed int
	err := opts.journal.Recover(ctx, func(c *Commit) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		replayed++
		return s.replayLocked(c)
	})
	if err != nil {
		return nil, fmt.Errorf("docstore: recover: %w", err)
	}
	if replayed > 0 {
		opts.logger.Info("docstore recovered",
			"commits", replayed,
			"version", s.version,
			"duration", time.Since(start))
	}
	return s, nil
}

func (s *Store) replayLocked(c *Commit) error {
	for _, m := range c.Mutations {
		cs, ok := s.colls[m.Collection]
		if !ok {
			return fmt.Errorf("version %d: %s: %w", c.Version, m.Collection, ErrUnknownCollection)
		}
		var keys []indexKey
		if m.Op == OpPut {
			var err error
			keys, err = cs.def.keys(s.opts.codec, m.Data)
			if err != nil {
				return fmt.Errorf("version %d: %w", c.Version, err)
			}
		}
		s.applyLocked(cs, m.Op, m.ID, m.Data, keys, c.Version)
	}
	if c.Version > s.version {
		s.version = c.Version
	}
	return nil
}

func (s *Store) applyLocked(cs *collState, op Op, id string, data []byte, keys []indexKey, version uint64) {
	rec, exists := cs.docs[id]
	if exists {
		for i, k := range rec.keys {
			if k.ok {
				cs.indexes[i].touch(k.key, version)
				cs.indexes[i].remove(k.key, rec.num)
			}
		}
	}

	switch op {
	case OpDelete:
		if !exists {
			return
		}
		delete(cs.docs, id)
		delete(cs.byNum, rec.num)
	case OpPut:
		if !exists {
			rec = &record{num: cs.nextNum}
			cs.nextNum++
			cs.docs[id] = rec
			cs.byNum[rec.num] = id
		}
		rec.data = data
		rec.version = version
		rec.keys = keys
		for i, k := range keys {
			if k.ok {
				cs.indexes[i].add(k.key, rec.num)
				cs.indexes[i].touch(k.key, version)
			}
		}
	}
}

// Update runs fn in a read-write transaction and commits it. When the commit
// conflicts fn is run again, up to the configured number of retries. An
// error returned by fn aborts the transaction with nothing written.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	return s.run(ctx, true, fn)
}

// View runs fn in a read-only transaction. Its reads are validated like a
// commit, so fn observes a single consistent state.
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error) error {
	return s.run(ctx, false, fn)
}

func (s *Store) run(ctx context.Context, writable bool, fn func(tx *Tx) error) error {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.isClosed() {
			return ErrClosed
		}

		tx := newTx(s, writable)
		err := fn(tx)
		switch {
		case err != nil:
			// A failure computed from stale reads is retried.
			if !tx.valid() {
				err = ErrConflict
			}
		case writable:
			err = s.commit(ctx, tx)
		case !tx.valid():
			err = ErrConflict
		}
		tx.done = true

		if !errors.Is(err, ErrConflict) {
			if err != nil && writable {
				s.stats.aborted.Add(1)
			}
			return err
		}

		s.stats.conflicts.Add(1)
		if attempt >= s.opts.maxRetries {
			if writable {
				s.stats.aborted.Add(1)
			}
			return fmt.Errorf("%w: gave up after %d attempts", ErrConflict, attempt+1)
		}
		s.stats.retries.Add(1)
		s.opts.logger.Debug("docstore retrying transaction", "attempt", attempt+1, "writable", writable)

		if err := s.backoff(ctx, attempt); err != nil {
			return err
		}
	}
}

func (s *Store) backoff(ctx context.Context, attempt int) error {
	d := s.opts.backoffBase << min(attempt, 16)
	if d > s.opts.backoffMax || d <= 0 {
		d = s.opts.backoffMax
	}
	d = d/2 + rand.N(d/2+1)

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Store) commit(ctx context.Context, tx *Tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if !tx.validLocked() {
		return ErrConflict
	}
	if len(tx.order) == 0 {
		return nil
	}

	c := &Commit{Version: s.version + 1, Mutations: tx.mutations()}
	if err := s.opts.journal.Append(ctx, c); err != nil {
		return fmt.Errorf("docstore: journal append: %w", err)
	}
	for _, k := range tx.order {
		w := tx.writes[k]
		s.applyLocked(s.colls[k.coll], w.op, k.id, w.data, w.keys, c.Version)
	}
	s.version = c.Version
	s.stats.commits.Add(1)
	s.maybeCheckpointLocked()
	return nil
}

func (s *Store) maybeCheckpointLocked() {
	every := s.opts.checkpointEvery
	if every == 0 {
		return
	}
	if _, ok := s.opts.journal.(Checkpointer); !ok {
		return
	}
	if s.sinceCheckpoint.Add(1) < every || !s.cpRunning.CompareAndSwap(false, true) {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.cpRunning.Store(false)
		if err := s.Checkpoint(context.Background()); err != nil && !errors.Is(err, ErrClosed) {
			s.opts.logger.Error("docstore background checkpoint failed", "error", err)
		}
	}()
}

// Checkpoint writes the full state to the journal when it is a
// Checkpointer. It is a no-op otherwise.
func (s *Store) Checkpoint(ctx context.Context) error {
	cp, ok := s.opts.journal.(Checkpointer)
	if !ok {
		return nil
	}

	s.cpMu.Lock()
	defer s.cpMu.Unlock()

	start := time.Now()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	base := s.snapshotLocked()
	if err := cp.BeginCheckpoint(base.Version); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("docstore: begin checkpoint: %w", err)
	}
	s.sinceCheckpoint.Store(0)
	s.mu.Unlock()

	if err := cp.Checkpoint(ctx, base); err != nil {
		return fmt.Errorf("docstore: checkpoint: %w", err)
	}
	s.stats.checkpoints.Add(1)
	s.opts.logger.Info("docstore checkpoint written",
		"version", base.Version,
		"documents", len(base.Mutations),
		"duration", time.Since(start))
	return nil
}

// snapshotLocked returns the live documents as one commit. Collections are
// ordered by name and documents by insertion, so replaying the snapshot
// reproduces scan order.
func (s *Store) snapshotLocked() *Commit {
	names := make([]string, 0, len(s.colls))
	for name := range s.colls {
		names = append(names, name)
	}
	slices.Sort(names)

	base := &Commit{Version: s.version}
	for _, name := range names {
		cs := s.colls[name]
		nums := make([]uint32, 0, len(cs.byNum))
		for n := range cs.byNum {
			nums = append(nums, n)
		}
		slices.Sort(nums)
		for _, n := range nums {
			id := cs.byNum[n]
			base.Mutations = append(base.Mutations, Mutation{
				Op:         OpPut,
				Collection: name,
				ID:         id,
				Data:       cs.docs[id].data,
			})
		}
	}
	return base
}

func (s *Store) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Version returns the version of the latest commit.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Stats returns the current counters.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	docs := make(map[string]int, len(s.colls))
	for name, cs := range s.colls {
		docs[name] = len(cs.docs)
	}
	version := s.version
	s.mu.RUnlock()

	return Stats{
		Version:     version,
		Documents:   docs,
		Commits:     s.stats.commits.Load(),
		Conflicts:   s.stats.conflicts.Load(),
		Retries:     s.stats.retries.Load(),
		Aborted:     s.stats.aborted.Load(),
		Checkpoints: s.stats.checkpoints.Load(),
	}
}

// Close waits for background checkpoints and closes the journal.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
	return s.opts.journal.Close()
}
