package matcha

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    upsertCounter   prometheus.Counter
//	    searchHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordUpsert(count, failed int, duration time.Duration) {
//	    p.upsertCounter.Add(float64(count))
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordUpsert is called after each upsert batch.
	// count is the number of items attempted, failed the number rejected,
	// duration the total time taken.
	RecordUpsert(count, failed int, duration time.Duration)

	// RecordSearch is called after each search operation.
	// topK is the number of neighbors requested, duration the time taken,
	// err is nil if successful.
	RecordSearch(topK int, duration time.Duration, err error)

	// RecordDelete is called after each delete operation or batch.
	// count is the number of IDs attempted, failed the number that were
	// not present, duration the total time taken.
	RecordDelete(count, failed int, duration time.Duration)

	// RecordSnapshotSave is called after each snapshot write.
	RecordSnapshotSave(duration time.Duration, err error)

	// RecordSnapshotLoad is called after each snapshot read.
	RecordSnapshotLoad(duration time.Duration, err error)

	// RecordMatch is called after each catalog-joined match request.
	// matched is the number of hits that resolved to products.
	RecordMatch(matched int, duration time.Duration, err error)

	// RecordResolutionMiss is called for each search hit dropped during
	// matching because it had no join key or no catalog entry.
	RecordResolutionMiss()
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordUpsert(int, int, time.Duration)    {}
func (NoopMetricsCollector) RecordSearch(int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordDelete(int, int, time.Duration)    {}
func (NoopMetricsCollector) RecordSnapshotSave(time.Duration, error) {}
func (NoopMetricsCollector) RecordSnapshotLoad(time.Duration, error) {}
func (NoopMetricsCollector) RecordMatch(int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordResolutionMiss()                   {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	UpsertBatches    atomic.Int64
	UpsertItems      atomic.Int64
	UpsertFailed     atomic.Int64
	UpsertTotalNanos atomic.Int64
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	DeleteCount      atomic.Int64
	DeleteErrors     atomic.Int64
	SnapshotSaves    atomic.Int64
	SnapshotSaveErrs atomic.Int64
	SnapshotLoads    atomic.Int64
	SnapshotLoadErrs atomic.Int64
	MatchCount       atomic.Int64
	MatchErrors      atomic.Int64
	MatchTotalNanos  atomic.Int64
	ResolutionMisses atomic.Int64
}

// RecordUpsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpsert(count, failed int, duration time.Duration) {
	b.UpsertBatches.Add(1)
	b.UpsertItems.Add(int64(count))
	b.UpsertFailed.Add(int64(failed))
	b.UpsertTotalNanos.Add(duration.Nanoseconds())
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(topK int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(count, failed int, duration time.Duration) {
	b.DeleteCount.Add(int64(count))
	b.DeleteErrors.Add(int64(failed))
}

// RecordSnapshotSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotSave(duration time.Duration, err error) {
	b.SnapshotSaves.Add(1)
	if err != nil {
		b.SnapshotSaveErrs.Add(1)
	}
}

// RecordSnapshotLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotLoad(duration time.Duration, err error) {
	b.SnapshotLoads.Add(1)
	if err != nil {
		b.SnapshotLoadErrs.Add(1)
	}
}

// RecordMatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMatch(matched int, duration time.Duration, err error) {
	b.MatchCount.Add(1)
	b.MatchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.MatchErrors.Add(1)
	}
}

// RecordResolutionMiss implements MetricsCollector.
func (b *BasicMetricsCollector) RecordResolutionMiss() {
	b.ResolutionMisses.Add(1)
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		UpsertBatches:  b.UpsertBatches.Load(),
		UpsertItems:    b.UpsertItems.Load(),
		UpsertFailed:   b.UpsertFailed.Load(),
		UpsertAvgNanos: b.avgUpsertNanos(),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchAvgNanos: b.avgSearchNanos(),
		DeleteCount:    b.DeleteCount.Load(),
		DeleteErrors:   b.DeleteErrors.Load(),
		SnapshotSaves:  b.SnapshotSaves.Load(),
		SnapshotLoads:  b.SnapshotLoads.Load(),
		SnapshotFailed: b.SnapshotSaveErrs.Load() + b.SnapshotLoadErrs.Load(),

		MatchCount:       b.MatchCount.Load(),
		MatchErrors:      b.MatchErrors.Load(),
		ResolutionMisses: b.ResolutionMisses.Load(),
	}
}

func (b *BasicMetricsCollector) avgUpsertNanos() int64 {
	count := b.UpsertBatches.Load()
	if count == 0 {
		return 0
	}
	return b.UpsertTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) avgSearchNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	UpsertBatches  int64
	UpsertItems    int64
	UpsertFailed   int64
	UpsertAvgNanos int64
	SearchCount    int64
	SearchErrors   int64
	SearchAvgNanos int64
	DeleteCount    int64
	DeleteErrors   int64
	SnapshotSaves  int64
	SnapshotLoads  int64
	SnapshotFailed int64

	MatchCount       int64
	MatchErrors      int64
	ResolutionMisses int64
}
