package vtable

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/vtable/docstore"
)

// DB is a VTable database. It is safe for concurrent use.
//
// Every operation runs as one serializable transaction: it either commits
// all of its writes or none of them.
type DB struct {
	store   *docstore.Store
	logger  *Logger
	metrics MetricsCollector
	now     func() time.Time
	fanout  int
}

// Open opens a database and recovers its state from the journal.
func Open(ctx context.Context, optFns ...Option) (*DB, error) {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	store, err := docstore.Open(ctx, collections(),
		docstore.WithJournal(opts.journal),
		docstore.WithCodec(opts.codec),
		docstore.WithMaxRetries(opts.maxRetries),
		docstore.WithCheckpointEvery(opts.checkpointEvery),
		docstore.WithLogger(opts.logger.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("vtable: open: %w", translateError(err))
	}

	return &DB{
		store:   store,
		logger:  opts.logger,
		metrics: opts.metricsCollector,
		now:     opts.clock,
		fanout:  opts.assembleConcurrency,
	}, nil
}

// Close waits for background work and closes the journal.
func (db *DB) Close() error {
	return translateError(db.store.Close())
}

// Checkpoint writes a full snapshot when the journal supports it, letting
// the journal drop the history it covers.
func (db *DB) Checkpoint(ctx context.Context) error {
	err := translateError(db.store.Checkpoint(ctx))
	if err != nil {
		db.logger.ErrorContext(ctx, "checkpoint failed", "error", err)
	}
	return err
}

// Stats returns document store counters.
func (db *DB) Stats() docstore.Stats {
	return db.store.Stats()
}

func (db *DB) millis() int64 {
	return db.now().UnixMilli()
}

// update runs fn as a mutation named op. attrs are logged with the outcome.
func (db *DB) update(ctx context.Context, op string, fn func(tx *docstore.Tx) error, attrs ...any) error {
	start := time.Now()
	err := translateError(db.store.Update(ctx, fn))
	db.metrics.RecordMutation(op, time.Since(start), err)
	db.logger.LogMutation(ctx, op, err, attrs...)
	return err
}

// view runs fn as a read named op.
func (db *DB) view(ctx context.Context, op string, fn func(tx *docstore.Tx) error, attrs ...any) error {
	start := time.Now()
	err := translateError(db.store.View(ctx, fn))
	db.metrics.RecordQuery(op, time.Since(start), err)
	db.logger.LogQuery(ctx, op, err, attrs...)
	return err
}

// reject records an operation that failed validation before any
// transaction started.
func (db *DB) reject(ctx context.Context, op string, err error, attrs ...any) error {
	db.metrics.RecordMutation(op, 0, err)
	db.logger.LogMutation(ctx, op, err, attrs...)
	return err
}
