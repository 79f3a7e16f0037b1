package docstore

import (
	"context"
	"sync"
)

// Op is the kind of a Mutation.
type Op uint8

const (
	OpPut    Op = 1
	OpDelete Op = 2
)

func (o Op) String() string {
	switch o {
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Mutation is one document write of a commit.
type Mutation struct {
	Op         Op
	Collection string
	ID         string
	// Data is the encoded document. Nil for deletes.
	Data []byte
}

// Commit is the write set of one committed transaction. Version increases by
// one with every commit that writes.
//
// A snapshot is represented as a Commit holding one OpPut per live document.
type Commit struct {
	Version   uint64
	Mutations []Mutation
}

// Journal makes commits durable.
//
// Append is called with the commit lock held, so calls never overlap and
// versions arrive in increasing order. A failed Append aborts the commit.
type Journal interface {
	// Recover replays the durable state in order: at most one snapshot
	// commit first, then every later commit.
	Recover(ctx context.Context, fn func(*Commit) error) error
	Append(ctx context.Context, c *Commit) error
	Close() error
}

// Checkpointer is implemented by journals that can replace their history
// with a snapshot.
type Checkpointer interface {
	// BeginCheckpoint is called with the commit lock held. Commits appended
	// afterwards have versions greater than version.
	BeginCheckpoint(version uint64) error
	// Checkpoint persists base, the full state at its version, and may
	// discard history covered by it.
	Checkpoint(ctx context.Context, base *Commit) error
}

// NopJournal discards every commit.
type NopJournal struct{}

func (NopJournal) Recover(context.Context, func(*Commit) error) error { return nil }
func (NopJournal) Append(context.Context, *Commit) error              { return nil }
func (NopJournal) Close() error                                       { return nil }

// MemoryJournal keeps commits in memory. A Store reopened on the same
// MemoryJournal recovers the previous state. Mostly useful for tests.
type MemoryJournal struct {
	mu       sync.Mutex
	snapshot *Commit
	commits  []*Commit

	// FailAppend, when set, is returned by Append.
	FailAppend error
}

// NewMemoryJournal returns an empty MemoryJournal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

func (j *MemoryJournal) Recover(ctx context.Context, fn func(*Commit) error) error {
	j.mu.Lock()
	snap := j.snapshot
	commits := append([]*Commit(nil), j.commits...)
	j.mu.Unlock()

	if snap != nil {
		if err := fn(snap); err != nil {
			return err
		}
	}
	for _, c := range commits {
		if err := ctx.Err(); err != nil {
			return err
		}
		if snap != nil && c.Version <= snap.Version {
			continue
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return nil
}

func (j *MemoryJournal) Append(_ context.Context, c *Commit) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.FailAppend != nil {
		return j.FailAppend
	}
	j.commits = append(j.commits, c)
	return nil
}

func (j *MemoryJournal) BeginCheckpoint(uint64) error { return nil }

func (j *MemoryJournal) Checkpoint(_ context.Context, base *Commit) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.snapshot = base
	kept := j.commits[:0]
	for _, c := range j.commits {
		if c.Version > base.Version {
			kept = append(kept, c)
		}
	}
	j.commits = kept
	return nil
}

// Len returns the number of commits not yet covered by a snapshot.
func (j *MemoryJournal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.commits)
}

// Close is a no-op; the journal stays usable for reopening.
func (j *MemoryJournal) Close() error { return nil }
