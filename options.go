package vtable

import (
	"time"

	"github.com/hupe1980/vtable/codec"
	"github.com/hupe1980/vtable/docstore"
)

// DefaultAssembleConcurrency bounds the per-row cell fetches of
// AssembleTable.
const DefaultAssembleConcurrency = 8

type options struct {
	journal             docstore.Journal
	codec               codec.Codec
	logger              *Logger
	metricsCollector    MetricsCollector
	maxRetries          int
	checkpointEvery     uint64
	clock               func() time.Time
	assembleConcurrency int
}

func defaultOptions() options {
	return options{
		journal:             docstore.NopJournal{},
		codec:               codec.Default,
		logger:              NoopLogger(),
		metricsCollector:    NoopMetricsCollector{},
		maxRetries:          docstore.DefaultMaxRetries,
		clock:               time.Now,
		assembleConcurrency: DefaultAssembleConcurrency,
	}
}

// Option configures Open.
type Option func(*options)

// WithJournal selects the durability backend. The default keeps everything
// in memory.
//
// Example:
//
//	j, _ := filejournal.Open("./data/wal")
//	db, _ := vtable.Open(ctx, vtable.WithJournal(j))
//
// The DB owns the journal and closes it on Close.
func WithJournal(j docstore.Journal) Option {
	return func(o *options) {
		if j != nil {
			o.journal = j
		}
	}
}

// WithCodec configures the document codec.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		o.codec = codec.OrDefault(c)
	}
}

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics collector.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithMaxRetries sets how often a conflicting operation is rerun before it
// fails with ErrConflict. Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithCheckpointEvery writes a background checkpoint after every n commits
// when the journal supports it. Zero disables automatic checkpoints.
func WithCheckpointEvery(n uint64) Option {
	return func(o *options) {
		o.checkpointEvery = n
	}
}

// WithClock sets the time source for createdAt timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithAssembleConcurrency bounds the concurrent per-row cell fetches of
// AssembleTable. Values below one fall back to one.
func WithAssembleConcurrency(n int) Option {
	return func(o *options) {
		o.assembleConcurrency = max(n, 1)
	}
}
