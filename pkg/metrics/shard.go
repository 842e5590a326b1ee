package metrics

import "time"

// ShardMetrics is the observability surface for one shard's engine:
// apply latency by log-entry kind and the shard's replicated position.
// Optional — pass a no-op value when metrics are disabled, the same
// way NewNoopShardMetrics does.
type ShardMetrics interface {
	// RecordApply records one apply-path call for the named log-entry
	// kind; the duration covers the mutation transaction only, not the
	// AdvanceLogIndex transaction before it.
	RecordApply(kind string, duration time.Duration, err error)

	// SetLastAppliedLogIndex publishes the shard's current replicated
	// position, so staleness can be derived externally against the
	// log's own head.
	SetLastAppliedLogIndex(index uint64)
}

// NewNoopShardMetrics returns a ShardMetrics with zero overhead.
func NewNoopShardMetrics() ShardMetrics { return noopShardMetrics{} }

type noopShardMetrics struct{}

func (noopShardMetrics) RecordApply(string, time.Duration, error) {}
func (noopShardMetrics) SetLastAppliedLogIndex(uint64)             {}
