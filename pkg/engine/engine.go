// Package engine implements the shard's read, prepare, and apply
// paths (spec §4.3–§4.6) on top of pkg/store. It is the only package
// that understands the request/response/log-entry shapes of pkg/wire
// together with the column-family layout of pkg/store; everything
// above it (cmd/shardd) just feeds it requests and replicated log
// entries.
package engine

import (
	"time"

	"github.com/ternfs/shard/pkg/blockservices"
	"github.com/ternfs/shard/pkg/metrics"
	"github.com/ternfs/shard/pkg/shardtypes"
	"github.com/ternfs/shard/pkg/store"
)

// Config is the narrow slice of the daemon's configuration the engine
// itself needs, independent of how it got loaded (pkg/config) or
// stored on disk (store.Config).
type Config struct {
	MaxUDPMTU          uint32
	TransientDeadline  time.Duration
	// LocationFailover maps a requested LocationId/StorageClass pair
	// that currently has fewer block-service candidates than the span
	// needs to a fallback pair to try instead (not consulted when the
	// request pins its location), the configurable replacement for the hard-coded
	// "location 1 HDD -> FLASH" hack spec §9 flags (see DESIGN.md).
	LocationFailover map[FailoverKey]FailoverKey
}

// FailoverKey identifies a (location, storage class) pair for the
// LocationFailover table.
type FailoverKey struct {
	Location     shardtypes.LocationId
	StorageClass shardtypes.StorageClass
}

// Engine wires together the store, the block-services cache, and
// configuration into the object that serves read/prepare/apply calls
// for one shard.
type Engine struct {
	store   *store.Store
	bscache blockservices.Cache
	cfg     Config
	metrics metrics.ShardMetrics
}

// New builds an Engine over an already-open store. metrics may be nil,
// in which case Apply and the prepare/read paths record nothing.
func New(st *store.Store, bscache blockservices.Cache, cfg Config, m metrics.ShardMetrics) *Engine {
	if m == nil {
		m = metrics.NewNoopShardMetrics()
	}
	return &Engine{store: st, bscache: bscache, cfg: cfg, metrics: m}
}

// Metrics returns the engine's metrics sink. Apply is its only caller
// internally (it is the one choke point every log entry passes
// through); PrepareXxx/Xxx have no equivalent internal dispatcher
// (each is a separate public method named after its request kind), and
// networking/request dispatch are explicitly out of this repo's scope
// (spec §1), so there is no RPC layer here to instrument them from.
func (e *Engine) Metrics() metrics.ShardMetrics { return e.metrics }

// ShardID returns the shard id this engine serves.
func (e *Engine) ShardID() shardtypes.ShardId { return e.store.ShardID() }

// LastAppliedLogIndex returns the index of the most recently applied
// log entry visible in the current snapshot. It exists for admin
// tooling (cmd/shardctl's info command); nothing in the read/prepare
// paths needs it outside the per-response staleness field each of
// them already attaches.
func (e *Engine) LastAppliedLogIndex() uint64 {
	snap := e.store.CurrentSnapshot()
	defer snap.Release()
	return snap.LastAppliedLogIndex()
}

func (e *Engine) mtu(requested uint32) uint32 {
	if requested == 0 || requested > e.cfg.MaxUDPMTU {
		return e.cfg.MaxUDPMTU
	}
	return requested
}
