// Package store is the embedded key-value engine backing one shard:
// the seven column families of spec §3, their key/value codecs, id
// allocation, and the badger-backed transactional plumbing that the
// apply and read paths sit on top of.
//
// BadgerDB has a single flat keyspace, so column families are
// simulated with a one-byte prefix per family, the same technique the
// teacher's pkg/metadata/badger/keys.go uses with string prefixes
// ("f:", "p:", "c:", ...) — here the prefixes are a single byte and
// the key bodies are the packed binary layouts spec §3 specifies,
// rather than UUID strings, since shard keys must sort the way the
// spec's column families describe (e.g. spans by (file_id,
// byte_offset), edges by (dir, current, hash, name)).
package store

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/ternfs/shard/pkg/shardtypes"
)

// Column family prefixes. A single byte keeps every key family
// disjoint and lets iterators seek by prefix cheaply.
const (
	cfDefault              byte = 0
	cfDirectories          byte = 1
	cfFiles                byte = 2
	cfTransient            byte = 3
	cfSpans                byte = 4
	cfEdges                byte = 5
	cfBlockServicesToFiles byte = 6
)

// CfDirectories, CfFiles, CfTransient are exported so pkg/engine's
// Visit* read handlers can pick the right column family to scan
// without the store package exposing a whole iterator-by-kind API for
// what is, underneath, the same IterateInodes walk three times over.
const (
	CfDirectories = cfDirectories
	CfFiles       = cfFiles
	CfTransient   = cfTransient
)

// Default CF metadata keys (single-byte sub-key within cfDefault).
const (
	defaultKeyShardInfo           byte = 0
	defaultKeyNextFileID          byte = 1
	defaultKeyNextSymlinkID       byte = 2
	defaultKeyNextBlockID         byte = 3
	defaultKeyLastAppliedLogIndex byte = 4
)

func defaultKey(sub byte) []byte { return []byte{cfDefault, sub} }

// KeyShardInfo, KeyNextFileID, etc. are exported for tests that want
// to assert on raw key bytes without reaching into package internals.
func KeyShardInfo() []byte           { return defaultKey(defaultKeyShardInfo) }
func KeyNextFileID() []byte          { return defaultKey(defaultKeyNextFileID) }
func KeyNextSymlinkID() []byte       { return defaultKey(defaultKeyNextSymlinkID) }
func KeyNextBlockID() []byte         { return defaultKey(defaultKeyNextBlockID) }
func KeyLastAppliedLogIndex() []byte { return defaultKey(defaultKeyLastAppliedLogIndex) }

// KeyDirectory returns the directories CF key for id.
func KeyDirectory(id shardtypes.InodeId) []byte {
	return appendInodeKey(cfDirectories, id)
}

// KeyFile returns the files CF key for id.
func KeyFile(id shardtypes.InodeId) []byte {
	return appendInodeKey(cfFiles, id)
}

// KeyTransient returns the transient CF key for id.
func KeyTransient(id shardtypes.InodeId) []byte {
	return appendInodeKey(cfTransient, id)
}

func appendInodeKey(cf byte, id shardtypes.InodeId) []byte {
	k := make([]byte, 9)
	k[0] = cf
	binary.BigEndian.PutUint64(k[1:], uint64(id))
	return k
}

// KeySpan returns the spans CF key for (fileID, byteOffset). Keys
// sort by (file_id, byte_offset) because both fields are encoded
// big-endian, which is what makes lexicographic byte comparison
// (badger's native order) agree with numeric order.
func KeySpan(fileID shardtypes.InodeId, byteOffset uint64) []byte {
	k := make([]byte, 17)
	k[0] = cfSpans
	binary.BigEndian.PutUint64(k[1:9], uint64(fileID))
	binary.BigEndian.PutUint64(k[9:17], byteOffset)
	return k
}

// SpanPrefix returns the prefix common to every span key of fileID,
// used to range-scan a file's spans from a starting offset.
func SpanPrefix(fileID shardtypes.InodeId) []byte {
	k := make([]byte, 9)
	k[0] = cfSpans
	binary.BigEndian.PutUint64(k[1:9], uint64(fileID))
	return k
}

// NameHash computes the directory name hash used to order edges.
// HashMode XXH3_63 is specified as a 63-bit truncation of XXH3; the
// pack carries no XXH3 implementation (only XXH64, via
// github.com/cespare/xxhash/v2, pulled in transitively by badger), so
// XXH64 truncated to 63 bits is used as the concrete algorithm body —
// see DESIGN.md.
func NameHash(mode shardtypes.HashMode, name []byte) uint64 {
	switch mode {
	case shardtypes.HashModeXXH3_63:
		return xxhash.Sum64(name) &^ (1 << 63)
	default:
		return xxhash.Sum64(name) &^ (1 << 63)
	}
}

// KeyCurrentEdge returns the edges CF key for a current edge
// (dir, true, hash(name), name).
func KeyCurrentEdge(dir shardtypes.InodeId, nameHash uint64, name []byte) []byte {
	return edgeKey(dir, true, nameHash, name, 0)
}

// KeySnapshotEdge returns the edges CF key for a snapshot edge
// (dir, false, hash(name), name, creationTime).
func KeySnapshotEdge(dir shardtypes.InodeId, nameHash uint64, name []byte, creationTime shardtypes.TernTime) []byte {
	return edgeKey(dir, false, nameHash, name, creationTime)
}

// EdgePrefix returns the prefix shared by every edge (current and
// snapshot) of dir, for full-directory scans.
func EdgePrefix(dir shardtypes.InodeId) []byte {
	k := make([]byte, 9)
	k[0] = cfEdges
	binary.BigEndian.PutUint64(k[1:9], uint64(dir))
	return k
}

// EdgeCurrentPrefix returns the prefix shared by every current edge
// of dir, used by ReadDir.
func EdgeCurrentPrefix(dir shardtypes.InodeId) []byte {
	k := make([]byte, 10)
	k[0] = cfEdges
	binary.BigEndian.PutUint64(k[1:9], uint64(dir))
	k[9] = boolByteDesc(true)
	return k
}

// EdgeSnapshotPrefix returns the prefix shared by every snapshot edge
// of dir.
func EdgeSnapshotPrefix(dir shardtypes.InodeId) []byte {
	k := make([]byte, 10)
	k[0] = cfEdges
	binary.BigEndian.PutUint64(k[1:9], uint64(dir))
	k[9] = boolByteDesc(false)
	return k
}

// boolByteDesc encodes the `current` flag so that true sorts before
// false, matching spec §3's key-ordering rule ("current flag (true <
// false)"): true maps to 0, false maps to 1.
func boolByteDesc(current bool) byte {
	if current {
		return 0
	}
	return 1
}

func edgeKey(dir shardtypes.InodeId, current bool, nameHash uint64, name []byte, creationTime shardtypes.TernTime) []byte {
	// layout: cf(1) dir(8) current(1) hash(8) namelen(1) name(n) [creationTime(8) if !current]
	extra := 0
	if !current {
		extra = 8
	}
	k := make([]byte, 0, 1+8+1+8+1+len(name)+extra)
	k = append(k, cfEdges)
	var dirB [8]byte
	binary.BigEndian.PutUint64(dirB[:], uint64(dir))
	k = append(k, dirB[:]...)
	k = append(k, boolByteDesc(current))
	var hashB [8]byte
	binary.BigEndian.PutUint64(hashB[:], nameHash)
	k = append(k, hashB[:]...)
	k = append(k, byte(len(name)))
	k = append(k, name...)
	if !current {
		var ctB [8]byte
		// Stored ascending; callers that want the most recent
		// snapshot edge first iterate in reverse, which badger
		// supports natively via IteratorOptions.Reverse.
		binary.BigEndian.PutUint64(ctB[:], uint64(creationTime))
		k = append(k, ctB[:]...)
	}
	return k
}

// KeyBlockServiceToFile returns the block_services_to_files CF key
// for (blockServiceID, fileID), sorting by (block_service_id,
// file_id).
func KeyBlockServiceToFile(bs shardtypes.BlockServiceId, fileID shardtypes.InodeId) []byte {
	k := make([]byte, 17)
	k[0] = cfBlockServicesToFiles
	binary.BigEndian.PutUint64(k[1:9], uint64(bs))
	binary.BigEndian.PutUint64(k[9:17], uint64(fileID))
	return k
}

// BlockServicePrefix returns the prefix shared by every
// block_services_to_files entry of bs, for BlockServiceFiles scans.
func BlockServicePrefix(bs shardtypes.BlockServiceId) []byte {
	k := make([]byte, 9)
	k[0] = cfBlockServicesToFiles
	binary.BigEndian.PutUint64(k[1:9], uint64(bs))
	return k
}

// DecodeEdgeKey parses an edge key back into its components. Used by
// scans that need the dir/current/hash/name/creationTime rather than
// just the raw bytes.
func DecodeEdgeKey(k []byte) (dir shardtypes.InodeId, current bool, nameHash uint64, name []byte, creationTime shardtypes.TernTime, ok bool) {
	if len(k) < 19 || k[0] != cfEdges {
		return 0, false, 0, nil, 0, false
	}
	dir = shardtypes.InodeId(binary.BigEndian.Uint64(k[1:9]))
	current = k[9] == 0
	nameHash = binary.BigEndian.Uint64(k[10:18])
	nameLen := int(k[18])
	if len(k) < 19+nameLen {
		return 0, false, 0, nil, 0, false
	}
	name = k[19 : 19+nameLen]
	rest := k[19+nameLen:]
	if !current {
		if len(rest) < 8 {
			return 0, false, 0, nil, 0, false
		}
		creationTime = shardtypes.TernTime(binary.BigEndian.Uint64(rest[:8]))
	}
	return dir, current, nameHash, name, creationTime, true
}

// DecodeInodeKey extracts the InodeId from a directories/files/transient key.
func DecodeInodeKey(k []byte) (shardtypes.InodeId, bool) {
	if len(k) != 9 {
		return 0, false
	}
	return shardtypes.InodeId(binary.BigEndian.Uint64(k[1:9])), true
}

// DecodeSpanKey extracts (fileID, byteOffset) from a spans key.
func DecodeSpanKey(k []byte) (shardtypes.InodeId, uint64, bool) {
	if len(k) != 17 {
		return 0, 0, false
	}
	return shardtypes.InodeId(binary.BigEndian.Uint64(k[1:9])), binary.BigEndian.Uint64(k[9:17]), true
}

// DecodeBlockServiceToFileKey extracts (blockServiceID, fileID) from a key.
func DecodeBlockServiceToFileKey(k []byte) (shardtypes.BlockServiceId, shardtypes.InodeId, bool) {
	if len(k) != 17 {
		return 0, 0, false
	}
	return shardtypes.BlockServiceId(binary.BigEndian.Uint64(k[1:9])), shardtypes.InodeId(binary.BigEndian.Uint64(k[9:17])), true
}
