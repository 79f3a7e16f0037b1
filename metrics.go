package vtable

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// op is the operation name, e.g. "createColumn" or "assembleTable".
type MetricsCollector interface {
	// RecordMutation is called after each mutating operation.
	// duration is the total time taken including retries, err is nil if
	// successful.
	RecordMutation(op string, duration time.Duration, err error)

	// RecordQuery is called after each read operation.
	RecordQuery(op string, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordMutation(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordQuery(string, time.Duration, error)    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	MutationCount      atomic.Int64
	MutationErrors     atomic.Int64
	MutationTotalNanos atomic.Int64
	QueryCount         atomic.Int64
	QueryErrors        atomic.Int64
	QueryTotalNanos    atomic.Int64

	mu   sync.Mutex
	byOp map[string]int64
}

// RecordMutation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMutation(op string, duration time.Duration, err error) {
	b.MutationCount.Add(1)
	b.MutationTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MutationErrors.Add(1)
	}
	b.count(op)
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(op string, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
	b.count(op)
}

func (b *BasicMetricsCollector) count(op string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.byOp == nil {
		b.byOp = make(map[string]int64)
	}
	b.byOp[op]++
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	b.mu.Lock()
	byOp := make(map[string]int64, len(b.byOp))
	for k, v := range b.byOp {
		byOp[k] = v
	}
	b.mu.Unlock()

	return BasicMetricsStats{
		MutationCount:    b.MutationCount.Load(),
		MutationErrors:   b.MutationErrors.Load(),
		MutationAvgNanos: avg(b.MutationTotalNanos.Load(), b.MutationCount.Load()),
		QueryCount:       b.QueryCount.Load(),
		QueryErrors:      b.QueryErrors.Load(),
		QueryAvgNanos:    avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		Operations:       byOp,
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	MutationCount    int64
	MutationErrors   int64
	MutationAvgNanos int64
	QueryCount       int64
	QueryErrors      int64
	QueryAvgNanos    int64
	// Operations counts calls per operation name.
	Operations map[string]int64
}
