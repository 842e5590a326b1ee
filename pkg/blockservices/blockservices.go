// Package blockservices defines the shard engine's view of the
// block-service cache: the external, read-only registry of
// block-service daemons (address, flags, failure domain, and per-service
// secret key) that spec §1 lists as a collaborator outside this
// engine's scope. The engine only ever reads through the Cache
// interface; populating it (from the CDC, a gossip feed, whatever the
// real cluster uses) is the daemon's job, not the engine's.
package blockservices

import (
	"github.com/ternfs/shard/pkg/shardcrypto"
	"github.com/ternfs/shard/pkg/shardtypes"
)

// FailureDomain is the opaque tag spec §3's glossary describes: two
// blocks of the same span must never share one.
type FailureDomain [16]byte

// Info is one block service's entry in the cache.
type Info struct {
	ID            shardtypes.BlockServiceId
	FailureDomain FailureDomain
	Location      shardtypes.LocationId
	StorageClass  shardtypes.StorageClass
	Flags         uint32
	Key           shardcrypto.ExpandedKey
}

// CanWrite reports whether this service currently accepts new block
// writes (spec §3: DontWrite mask).
func (i Info) CanWrite() bool { return i.Flags&shardtypes.DontWrite == 0 }

// CanRead reports whether this service currently serves reads (spec
// §3: DontRead mask).
func (i Info) CanRead() bool { return i.Flags&shardtypes.DontRead == 0 }

// Cache is the read-only view the engine's prepare path consults when
// picking block services for a new span, and the apply/read paths
// consult to resolve a block service id to its secret key for
// certificate and proof verification.
type Cache interface {
	// Candidates returns the current block services for the given
	// location and storage class, in no particular order.
	Candidates(location shardtypes.LocationId, sc shardtypes.StorageClass) []Info
	// Lookup returns the Info for a single block service id.
	Lookup(id shardtypes.BlockServiceId) (Info, bool)
}

// StaticCache is a fixed, in-memory Cache, the shape a test harness or
// a daemon that polls the registry on an interval and swaps in a fresh
// snapshot would use (spec §5: "its snapshotted map is consumed inside
// a single apply" — a single immutable map per generation fits that
// exactly).
type StaticCache struct {
	byID        map[shardtypes.BlockServiceId]Info
	byLocClass  map[locClassKey][]Info
}

type locClassKey struct {
	loc shardtypes.LocationId
	sc  shardtypes.StorageClass
}

// NewStaticCache builds a StaticCache from a flat list of entries.
func NewStaticCache(entries []Info) *StaticCache {
	c := &StaticCache{
		byID:       make(map[shardtypes.BlockServiceId]Info, len(entries)),
		byLocClass: make(map[locClassKey][]Info),
	}
	for _, e := range entries {
		c.byID[e.ID] = e
		k := locClassKey{e.Location, e.StorageClass}
		c.byLocClass[k] = append(c.byLocClass[k], e)
	}
	return c
}

func (c *StaticCache) Candidates(location shardtypes.LocationId, sc shardtypes.StorageClass) []Info {
	return c.byLocClass[locClassKey{location, sc}]
}

func (c *StaticCache) Lookup(id shardtypes.BlockServiceId) (Info, bool) {
	i, ok := c.byID[id]
	return i, ok
}
