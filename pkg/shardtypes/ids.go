// Package shardtypes holds the identifiers, enums, and error taxonomy
// shared by every layer of the shard engine: pkg/store, pkg/wire, and
// pkg/engine. Keeping them in a leaf package (no dependency on badger,
// binpack, or the engine) lets every other package import them
// without pulling in storage or codec machinery.
package shardtypes

// ShardId identifies one of the up to 256 shards in a cluster.
type ShardId uint8

// InodeType is encoded in the top two bits of an InodeId.
type InodeType uint8

const (
	InodeTypeFile InodeType = iota
	InodeTypeDirectory
	InodeTypeSymlink
)

// InodeId is a 64-bit inode identifier. The low byte encodes the
// owning shard; the top two bits encode the InodeType.
type InodeId uint64

const inodeTypeShift = 62

// NullInodeId marks the absence of a target, used by deletion
// snapshot edges.
const NullInodeId InodeId = 0

// RootDirInodeId is the well-known id of the root directory. It lives
// on exactly one shard (shard 0 by convention).
const RootDirInodeId InodeId = InodeId(InodeTypeDirectory)<<inodeTypeShift | 0

// NewInodeId builds an InodeId from a type, a monotonically
// increasing counter value, and the owning shard. The counter's low
// byte is overwritten by shard, matching the id-allocation rule in
// spec §4.5.9: ids advance by 256 so the shard byte never changes
// after construction.
func NewInodeId(t InodeType, counter uint64, shard ShardId) InodeId {
	return InodeId(t)<<inodeTypeShift | InodeId(counter&^0xFF) | InodeId(shard)
}

// Shard returns the shard id encoded in the inode id's low byte.
func (id InodeId) Shard() ShardId { return ShardId(id & 0xFF) }

// Type returns the inode type encoded in the top two bits.
func (id InodeId) Type() InodeType { return InodeType(id >> inodeTypeShift) }

// IsNull reports whether id is the null/absent inode id.
func (id InodeId) IsNull() bool { return id == NullInodeId }

// Bytes returns the 8-byte little-endian encoding of id, the input to
// Cookie and to any MAC keyed on an inode id.
func (id InodeId) Bytes() [8]byte {
	var b [8]byte
	v := uint64(id)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

// TernTime is nanoseconds since the Unix epoch. Zero is the
// distinguished "null time" value.
type TernTime uint64

// NullTernTime is the sentinel "no time recorded" value.
const NullTernTime TernTime = 0

// ternTimePresentBit is the high bit SetTime requests overload to
// mean "this field should be updated"; the remaining 63 bits are the
// new time value.
const ternTimePresentBit uint64 = 1 << 63

// SetTimeField decodes a SetTime request field: present reports
// whether the high bit was set (the caller wants to update this
// field), and value is the remaining 63 bits interpreted as a time.
func SetTimeField(raw uint64) (present bool, value TernTime) {
	return raw&ternTimePresentBit != 0, TernTime(raw &^ ternTimePresentBit)
}

// BlockServiceId identifies a block-service daemon.
type BlockServiceId uint64

// BlockId identifies one block held by a block service.
type BlockId uint64

// LocationId identifies one of a span's replicated locations.
type LocationId uint8

// StorageClass distinguishes how a span's bytes are stored.
type StorageClass uint8

const (
	StorageClassEmpty StorageClass = iota
	StorageClassInline
	StorageClassFlash
	StorageClassHDD
)

// IsBlocked reports whether storage class sc stores its bytes as
// block placements rather than inline in the span body.
func (sc StorageClass) IsBlocked() bool {
	return sc == StorageClassFlash || sc == StorageClassHDD
}

// Parity describes a span's data/parity block split. D=1 means
// mirroring; D>1 means Reed-Solomon with parity block 0 equal to the
// XOR of the data blocks.
type Parity struct {
	D uint8
	P uint8
}

// Blocks returns the total number of blocks, data plus parity.
func (p Parity) Blocks() int { return int(p.D) + int(p.P) }

// IsMirrored reports whether this parity scheme mirrors rather than
// erasure-codes.
func (p Parity) IsMirrored() bool { return p.D == 1 }

// HashMode selects the name-hashing algorithm used for directory
// edges. Only one variant exists today.
type HashMode uint8

const (
	HashModeXXH3_63 HashMode = iota
)

// LastSpanState is the state of the mutable tail span of a transient
// file.
type LastSpanState uint8

const (
	LastSpanClean LastSpanState = iota
	LastSpanDirty
	LastSpanCondemned
)

// Block-service flag bits (spec §6.5).
const (
	BlockServiceStale          uint32 = 1
	BlockServiceNoRead         uint32 = 2
	BlockServiceNoWrite        uint32 = 4
	BlockServiceDecommissioned uint32 = 8
)

// DontRead/DontWrite are the combined masks a block-service picker
// checks before considering a candidate for reads or writes.
const (
	DontRead  = BlockServiceStale | BlockServiceNoRead | BlockServiceDecommissioned
	DontWrite = BlockServiceStale | BlockServiceNoWrite | BlockServiceDecommissioned
)

// Protocol constants (spec §6.5).
const (
	DefaultUDPMTU    = 1472
	MaxUDPMTU        = 8972
	TernFSPageSize   = 4096
	MaximumSpanSize  = 1 << 24 // 16MiB; implementation-defined upper bound, propagated verbatim.
	ShardLogProtocolVersion = 1
	ShardReqProtocolVersion = 1
)
