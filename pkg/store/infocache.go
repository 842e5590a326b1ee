package store

import "github.com/ternfs/shard/pkg/shardtypes"

// directoryInfoCost is charged per cached DirectoryInfo; ristretto's
// MaxCost is a byte budget, and info blobs are small and short-lived
// enough that a flat per-entry cost is simpler than walking the
// segment list to size it exactly.
const directoryInfoCost = 256

// CachedDirectoryInfo returns the unpacked DirectoryInfo for dir, from
// the cache if present, decoding and populating the cache otherwise.
// Unpacking the tagged-segment blob on every GetDirectoryInfo-ish
// lookup is the one part of the read path spec §4.6 flags as worth
// caching, since the same handful of directories (close to the
// filesystem root) get looked up on nearly every path resolution.
func (s *Store) CachedDirectoryInfo(dir shardtypes.InodeId, raw []byte) (DirectoryInfo, error) {
	if info, ok := s.infoCache.Get(uint64(dir)); ok {
		return info, nil
	}
	info, err := UnpackDirectoryInfo(raw)
	if err != nil {
		return DirectoryInfo{}, err
	}
	s.infoCache.Set(uint64(dir), info, directoryInfoCost)
	return info, nil
}

// InvalidateDirectoryInfo drops dir's cached DirectoryInfo. No code in
// this repository calls it or CachedDirectoryInfo: the engine's apply
// handlers read and write DirectoryBody.Info directly.
func (s *Store) InvalidateDirectoryInfo(dir shardtypes.InodeId) {
	s.infoCache.Del(uint64(dir))
}
