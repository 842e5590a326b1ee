package store

import (
	"github.com/ternfs/shard/pkg/binpack"
	"github.com/ternfs/shard/pkg/shardtypes"
)

// DirectoryInfo is the decoded form of a DirectoryBody.Info blob: a
// tagged sequence of policy segments (spec §4.6). The engine only
// packs and unpacks these segments and inherits them by copying the
// parent's blob verbatim on CreateDirectoryInode when the request
// does not supply one of its own; the segments' meaning (how a
// snapshot or block-placement policy is actually applied) is entirely
// up to the external coordinator, so the engine never interprets
// them beyond round-tripping.
type DirectoryInfo struct {
	Segments []InfoSegment
}

// InfoSegment is one tagged entry of a DirectoryInfo blob.
type InfoSegment struct {
	Tag  SegmentTag
	Body []byte // opaque payload for tags the engine doesn't special-case
}

type SegmentTag uint8

const (
	SegmentSnapshotPolicy SegmentTag = iota
	SegmentBlockPolicy
	SegmentSpanPolicy
	SegmentStripePolicy
)

// SnapshotPolicyBody is the decoded payload of a SegmentSnapshotPolicy.
type SnapshotPolicyBody struct {
	DeleteAfterTime     shardtypes.TernTime
	DeleteAfterVersions  uint32
}

func (b SnapshotPolicyBody) Pack() []byte {
	w := binpack.NewWriter(12)
	w.PackU64(uint64(b.DeleteAfterTime))
	w.PackU32(b.DeleteAfterVersions)
	return w.Bytes()
}

func UnpackSnapshotPolicyBody(b []byte) (SnapshotPolicyBody, error) {
	r := binpack.NewReader(b)
	t, err := r.UnpackU64()
	if err != nil {
		return SnapshotPolicyBody{}, err
	}
	v, err := r.UnpackU32()
	if err != nil {
		return SnapshotPolicyBody{}, err
	}
	return SnapshotPolicyBody{DeleteAfterTime: shardtypes.TernTime(t), DeleteAfterVersions: v}, nil
}

// BlockPolicyEntry maps a size threshold to the storage class files
// above that size should use.
type BlockPolicyEntry struct {
	MinSize      uint64
	StorageClass shardtypes.StorageClass
}

// BlockPolicyBody is the decoded payload of a SegmentBlockPolicy.
type BlockPolicyBody struct {
	Entries []BlockPolicyEntry
}

func (b BlockPolicyBody) Pack() []byte {
	w := binpack.NewWriter(4 + 9*len(b.Entries))
	w.PackU16(uint16(len(b.Entries)))
	for _, e := range b.Entries {
		w.PackU64(e.MinSize)
		w.PackU8(uint8(e.StorageClass))
	}
	return w.Bytes()
}

func UnpackBlockPolicyBody(b []byte) (BlockPolicyBody, error) {
	r := binpack.NewReader(b)
	n, err := r.UnpackU16()
	if err != nil {
		return BlockPolicyBody{}, err
	}
	entries := make([]BlockPolicyEntry, n)
	for i := range entries {
		size, err := r.UnpackU64()
		if err != nil {
			return BlockPolicyBody{}, err
		}
		sc, err := r.UnpackU8()
		if err != nil {
			return BlockPolicyBody{}, err
		}
		entries[i] = BlockPolicyEntry{MinSize: size, StorageClass: shardtypes.StorageClass(sc)}
	}
	return BlockPolicyBody{Entries: entries}, nil
}

// SpanPolicyEntry maps a size threshold to the parity scheme files
// above that size should use.
type SpanPolicyEntry struct {
	MinSize uint64
	Parity  shardtypes.Parity
}

// SpanPolicyBody is the decoded payload of a SegmentSpanPolicy.
type SpanPolicyBody struct {
	Entries []SpanPolicyEntry
}

func (b SpanPolicyBody) Pack() []byte {
	w := binpack.NewWriter(4 + 10*len(b.Entries))
	w.PackU16(uint16(len(b.Entries)))
	for _, e := range b.Entries {
		w.PackU64(e.MinSize)
		w.PackU8(e.Parity.D)
		w.PackU8(e.Parity.P)
	}
	return w.Bytes()
}

func UnpackSpanPolicyBody(b []byte) (SpanPolicyBody, error) {
	r := binpack.NewReader(b)
	n, err := r.UnpackU16()
	if err != nil {
		return SpanPolicyBody{}, err
	}
	entries := make([]SpanPolicyEntry, n)
	for i := range entries {
		size, err := r.UnpackU64()
		if err != nil {
			return SpanPolicyBody{}, err
		}
		d, err := r.UnpackU8()
		if err != nil {
			return SpanPolicyBody{}, err
		}
		p, err := r.UnpackU8()
		if err != nil {
			return SpanPolicyBody{}, err
		}
		entries[i] = SpanPolicyEntry{MinSize: size, Parity: shardtypes.Parity{D: d, P: p}}
	}
	return SpanPolicyBody{Entries: entries}, nil
}

// StripePolicyBody is the decoded payload of a SegmentStripePolicy.
type StripePolicyBody struct {
	TargetStripeSize uint32
}

func (b StripePolicyBody) Pack() []byte {
	w := binpack.NewWriter(4)
	w.PackU32(b.TargetStripeSize)
	return w.Bytes()
}

func UnpackStripePolicyBody(b []byte) (StripePolicyBody, error) {
	r := binpack.NewReader(b)
	v, err := r.UnpackU32()
	if err != nil {
		return StripePolicyBody{}, err
	}
	return StripePolicyBody{TargetStripeSize: v}, nil
}

// PackDirectoryInfo packs the tagged segment sequence into the opaque
// blob stored in DirectoryBody.Info.
func PackDirectoryInfo(info DirectoryInfo) []byte {
	w := binpack.NewWriter(16)
	w.PackU16(uint16(len(info.Segments)))
	for _, s := range info.Segments {
		w.PackU8(uint8(s.Tag))
		w.PackBytes(s.Body)
	}
	return w.Bytes()
}

// UnpackDirectoryInfo unpacks a DirectoryBody.Info blob.
func UnpackDirectoryInfo(b []byte) (DirectoryInfo, error) {
	if len(b) == 0 {
		return DirectoryInfo{}, nil
	}
	r := binpack.NewReader(b)
	n, err := r.UnpackU16()
	if err != nil {
		return DirectoryInfo{}, err
	}
	segs := make([]InfoSegment, n)
	for i := range segs {
		tag, err := r.UnpackU8()
		if err != nil {
			return DirectoryInfo{}, err
		}
		body, err := r.UnpackBytes()
		if err != nil {
			return DirectoryInfo{}, err
		}
		segs[i] = InfoSegment{Tag: SegmentTag(tag), Body: body}
	}
	return DirectoryInfo{Segments: segs}, nil
}

// DefaultRootDirectoryInfo returns the default info blob the root
// directory gets on first start-up (spec §4.6): a permissive
// snapshot policy (never delete), an empty block/span policy (let the
// coordinator decide), and a 4MiB target stripe size matching
// TernFSPageSize * 1024.
func DefaultRootDirectoryInfo() []byte {
	return PackDirectoryInfo(DirectoryInfo{
		Segments: []InfoSegment{
			{Tag: SegmentSnapshotPolicy, Body: SnapshotPolicyBody{DeleteAfterTime: 0, DeleteAfterVersions: 0}.Pack()},
			{Tag: SegmentStripePolicy, Body: StripePolicyBody{TargetStripeSize: shardtypes.TernFSPageSize * 1024}.Pack()},
		},
	})
}
