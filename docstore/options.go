package docstore

import (
	"log/slog"
	"time"

	"github.com/hupe1980/vtable/codec"
)

const (
	// DefaultMaxRetries is how often Update and View rerun a conflicting
	// transaction before giving up.
	DefaultMaxRetries = 8

	defaultBackoffBase = time.Millisecond
	defaultBackoffMax  = 50 * time.Millisecond
)

type options struct {
	journal         Journal
	codec           codec.Codec
	maxRetries      int
	logger          *slog.Logger
	checkpointEvery uint64
	backoffBase     time.Duration
	backoffMax      time.Duration
}

func defaultOptions() options {
	return options{
		journal:     NopJournal{},
		codec:       codec.Default,
		maxRetries:  DefaultMaxRetries,
		logger:      slog.New(slog.DiscardHandler),
		backoffBase: defaultBackoffBase,
		backoffMax:  defaultBackoffMax,
	}
}

// Option configures a Store.
type Option func(*options)

// WithJournal sets the durability journal. The default discards commits.
func WithJournal(j Journal) Option {
	return func(o *options) {
		if j != nil {
			o.journal = j
		}
	}
}

// WithCodec sets the document codec.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithMaxRetries sets how many times a conflicting transaction is retried.
// Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCheckpointEvery starts a background checkpoint after every n commits
// when the journal is a Checkpointer. Zero disables automatic checkpoints.
func WithCheckpointEvery(n uint64) Option {
	return func(o *options) {
		o.checkpointEvery = n
	}
}

// WithBackoff sets the retry backoff bounds.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(o *options) {
		if base > 0 {
			o.backoffBase = base
		}
		if maxDelay >= base {
			o.backoffMax = maxDelay
		}
	}
}
