package store

import (
	"github.com/ternfs/shard/pkg/binpack"
	"github.com/ternfs/shard/pkg/shardtypes"
)

// ShardInfo is the default-CF singleton recorded at shard start-up:
// the shard's own id and its 128-bit secret.
type ShardInfo struct {
	ShardID shardtypes.ShardId
	Secret  [16]byte
}

func (v ShardInfo) Pack() []byte {
	w := binpack.NewWriter(17)
	w.PackU8(uint8(v.ShardID))
	w.PackFixedBytes(v.Secret[:])
	return w.Bytes()
}

func UnpackShardInfo(b []byte) (ShardInfo, error) {
	r := binpack.NewReader(b)
	shardID, err := r.UnpackU8()
	if err != nil {
		return ShardInfo{}, err
	}
	secret, err := r.UnpackFixedBytes(16)
	if err != nil {
		return ShardInfo{}, err
	}
	var v ShardInfo
	v.ShardID = shardtypes.ShardId(shardID)
	copy(v.Secret[:], secret)
	return v, nil
}

// DirectoryBody is the directories-CF value: a directory
// inode's version, owner, mtime, hash mode, and opaque info blob
// (spec §4.6).
type DirectoryBody struct {
	Version  uint64
	OwnerID  shardtypes.InodeId // NullInodeId means "no owner" (a snapshot directory)
	Mtime    shardtypes.TernTime
	HashMode shardtypes.HashMode
	Info     []byte // opaque, packed DirectoryInfo segments; see directoryinfo.go
}

func (v DirectoryBody) Pack() []byte {
	w := binpack.NewWriter(32 + len(v.Info))
	w.PackU64(v.Version)
	w.PackU64(uint64(v.OwnerID))
	w.PackU64(uint64(v.Mtime))
	w.PackU8(uint8(v.HashMode))
	w.PackBytes(v.Info)
	return w.Bytes()
}

func UnpackDirectoryBody(b []byte) (DirectoryBody, error) {
	r := binpack.NewReader(b)
	var v DirectoryBody
	ver, err := r.UnpackU64()
	if err != nil {
		return v, err
	}
	owner, err := r.UnpackU64()
	if err != nil {
		return v, err
	}
	mtime, err := r.UnpackU64()
	if err != nil {
		return v, err
	}
	hm, err := r.UnpackU8()
	if err != nil {
		return v, err
	}
	info, err := r.UnpackBytes()
	if err != nil {
		return v, err
	}
	v.Version = ver
	v.OwnerID = shardtypes.InodeId(owner)
	v.Mtime = shardtypes.TernTime(mtime)
	v.HashMode = shardtypes.HashMode(hm)
	v.Info = info
	return v, nil
}

// HasOwner reports whether this directory currently has an owner
// (i.e. it is not a snapshot directory).
func (v DirectoryBody) HasOwner() bool { return v.OwnerID != shardtypes.NullInodeId }

// FileBody is the files-CF value for committed files and symlinks.
type FileBody struct {
	Version  uint64
	Mtime    shardtypes.TernTime
	Atime    shardtypes.TernTime
	FileSize uint64
}

func (v FileBody) Pack() []byte {
	w := binpack.NewWriter(32)
	w.PackU64(v.Version)
	w.PackU64(uint64(v.Mtime))
	w.PackU64(uint64(v.Atime))
	w.PackU64(v.FileSize)
	return w.Bytes()
}

func UnpackFileBody(b []byte) (FileBody, error) {
	r := binpack.NewReader(b)
	var v FileBody
	ver, err := r.UnpackU64()
	if err != nil {
		return v, err
	}
	mtime, err := r.UnpackU64()
	if err != nil {
		return v, err
	}
	atime, err := r.UnpackU64()
	if err != nil {
		return v, err
	}
	size, err := r.UnpackU64()
	if err != nil {
		return v, err
	}
	v.Version = ver
	v.Mtime = shardtypes.TernTime(mtime)
	v.Atime = shardtypes.TernTime(atime)
	v.FileSize = size
	return v, nil
}

// TransientFileBody is the transient-CF value: a file in
// construction, condemned, or awaiting GC.
type TransientFileBody struct {
	Version       uint64
	FileSize      uint64
	Mtime         shardtypes.TernTime
	Deadline      shardtypes.TernTime
	LastSpanState shardtypes.LastSpanState
	Note          []byte // short note, <=255 bytes
}

func (v TransientFileBody) Pack() []byte {
	w := binpack.NewWriter(40 + len(v.Note))
	w.PackU64(v.Version)
	w.PackU64(v.FileSize)
	w.PackU64(uint64(v.Mtime))
	w.PackU64(uint64(v.Deadline))
	w.PackU8(uint8(v.LastSpanState))
	w.PackShortBytes(v.Note)
	return w.Bytes()
}

func UnpackTransientFileBody(b []byte) (TransientFileBody, error) {
	r := binpack.NewReader(b)
	var v TransientFileBody
	ver, err := r.UnpackU64()
	if err != nil {
		return v, err
	}
	size, err := r.UnpackU64()
	if err != nil {
		return v, err
	}
	mtime, err := r.UnpackU64()
	if err != nil {
		return v, err
	}
	deadline, err := r.UnpackU64()
	if err != nil {
		return v, err
	}
	state, err := r.UnpackU8()
	if err != nil {
		return v, err
	}
	note, err := r.UnpackShortBytes()
	if err != nil {
		return v, err
	}
	v.Version = ver
	v.FileSize = size
	v.Mtime = shardtypes.TernTime(mtime)
	v.Deadline = shardtypes.TernTime(deadline)
	v.LastSpanState = shardtypes.LastSpanState(state)
	v.Note = note
	return v, nil
}

// CurrentEdgeBody is the edges-CF value for a current (live) edge.
type CurrentEdgeBody struct {
	TargetID     shardtypes.InodeId
	Locked       bool
	CreationTime shardtypes.TernTime
}

func (v CurrentEdgeBody) Pack() []byte {
	w := binpack.NewWriter(17)
	w.PackU64(uint64(v.TargetID))
	w.PackBool(v.Locked)
	w.PackU64(uint64(v.CreationTime))
	return w.Bytes()
}

func UnpackCurrentEdgeBody(b []byte) (CurrentEdgeBody, error) {
	r := binpack.NewReader(b)
	var v CurrentEdgeBody
	target, err := r.UnpackU64()
	if err != nil {
		return v, err
	}
	locked, err := r.UnpackBool()
	if err != nil {
		return v, err
	}
	ct, err := r.UnpackU64()
	if err != nil {
		return v, err
	}
	v.TargetID = shardtypes.InodeId(target)
	v.Locked = locked
	v.CreationTime = shardtypes.TernTime(ct)
	return v, nil
}

// SnapshotEdgeBody is the edges-CF value for a snapshot (historical)
// edge; the creation time itself lives in the key, not the value.
type SnapshotEdgeBody struct {
	TargetID shardtypes.InodeId // NullInodeId marks a deletion marker
	Owned    bool
}

func (v SnapshotEdgeBody) Pack() []byte {
	w := binpack.NewWriter(9)
	w.PackU64(uint64(v.TargetID))
	w.PackBool(v.Owned)
	return w.Bytes()
}

func UnpackSnapshotEdgeBody(b []byte) (SnapshotEdgeBody, error) {
	r := binpack.NewReader(b)
	var v SnapshotEdgeBody
	target, err := r.UnpackU64()
	if err != nil {
		return v, err
	}
	owned, err := r.UnpackBool()
	if err != nil {
		return v, err
	}
	v.TargetID = shardtypes.InodeId(target)
	v.Owned = owned
	return v, nil
}

// IsDeletionMarker reports whether this snapshot edge records a
// deletion (target cleared, unowned).
func (v SnapshotEdgeBody) IsDeletionMarker() bool {
	return v.TargetID == shardtypes.NullInodeId && !v.Owned
}

// BlockLocation describes one block placement within a
// LocationBlocksBody.
type BlockLocation struct {
	BlockServiceID shardtypes.BlockServiceId
	BlockID        shardtypes.BlockId
	Crc            uint32
}

// LocationBlocksBody describes one of a span's (possibly several)
// replicated locations.
type LocationBlocksBody struct {
	LocationID   shardtypes.LocationId
	StorageClass shardtypes.StorageClass
	Parity       shardtypes.Parity
	Stripes      uint8
	CellSize     uint32
	Blocks       []BlockLocation // len == Parity.Blocks(); block i holds cell i of every stripe
	StripeCrcs   []uint32        // len == Stripes
}

func (v LocationBlocksBody) pack(w *binpack.Writer) {
	w.PackU8(uint8(v.LocationID))
	w.PackU8(uint8(v.StorageClass))
	w.PackU8(v.Parity.D)
	w.PackU8(v.Parity.P)
	w.PackU8(v.Stripes)
	w.PackU32(v.CellSize)
	w.PackU16(uint16(len(v.Blocks)))
	for _, b := range v.Blocks {
		w.PackU64(uint64(b.BlockServiceID))
		w.PackU64(uint64(b.BlockID))
		w.PackU32(b.Crc)
	}
	w.PackU32List(v.StripeCrcs)
}

func unpackLocationBlocksBody(r *binpack.Reader) (LocationBlocksBody, error) {
	var v LocationBlocksBody
	loc, err := r.UnpackU8()
	if err != nil {
		return v, err
	}
	sc, err := r.UnpackU8()
	if err != nil {
		return v, err
	}
	d, err := r.UnpackU8()
	if err != nil {
		return v, err
	}
	p, err := r.UnpackU8()
	if err != nil {
		return v, err
	}
	stripes, err := r.UnpackU8()
	if err != nil {
		return v, err
	}
	cellSize, err := r.UnpackU32()
	if err != nil {
		return v, err
	}
	n, err := r.UnpackU16()
	if err != nil {
		return v, err
	}
	blocks := make([]BlockLocation, n)
	for i := range blocks {
		bs, err := r.UnpackU64()
		if err != nil {
			return v, err
		}
		bid, err := r.UnpackU64()
		if err != nil {
			return v, err
		}
		crc, err := r.UnpackU32()
		if err != nil {
			return v, err
		}
		blocks[i] = BlockLocation{BlockServiceID: shardtypes.BlockServiceId(bs), BlockID: shardtypes.BlockId(bid), Crc: crc}
	}
	crcs, err := r.UnpackU32List()
	if err != nil {
		return v, err
	}
	v.LocationID = shardtypes.LocationId(loc)
	v.StorageClass = shardtypes.StorageClass(sc)
	v.Parity = shardtypes.Parity{D: d, P: p}
	v.Stripes = stripes
	v.CellSize = cellSize
	v.Blocks = blocks
	v.StripeCrcs = crcs
	return v, nil
}

// SpanBody describes one [byte_offset, byte_offset+span_size) range
// of a file's content (spec §3 SpanBody).
type SpanBody struct {
	SpanSize uint32
	Crc      uint32

	// Inline spans carry their content directly; blocked spans
	// carry one or more replicated Locations. Exactly one of
	// InlineBody/Locations is meaningful, selected by
	// StorageClass.IsBlocked() — mirrors the "discriminant" union
	// spec §3 describes as a sum type, expressed here as a Go
	// struct with a storage-class tag rather than an interface,
	// since both shapes round-trip through the same fixed value
	// slot in the spans CF and an interface would force a type
	// switch on every unpack for no benefit.
	StorageClass shardtypes.StorageClass
	InlineBody   []byte
	Locations    []LocationBlocksBody
}

func (v SpanBody) Pack() []byte {
	w := binpack.NewWriter(64 + len(v.InlineBody))
	w.PackU32(v.SpanSize)
	w.PackU32(v.Crc)
	w.PackU8(uint8(v.StorageClass))
	if v.StorageClass.IsBlocked() {
		w.PackU16(uint16(len(v.Locations)))
		for _, l := range v.Locations {
			l.pack(w)
		}
	} else {
		w.PackBytes(v.InlineBody)
	}
	return w.Bytes()
}

func UnpackSpanBody(b []byte) (SpanBody, error) {
	r := binpack.NewReader(b)
	var v SpanBody
	size, err := r.UnpackU32()
	if err != nil {
		return v, err
	}
	crc, err := r.UnpackU32()
	if err != nil {
		return v, err
	}
	sc, err := r.UnpackU8()
	if err != nil {
		return v, err
	}
	v.SpanSize = size
	v.Crc = crc
	v.StorageClass = shardtypes.StorageClass(sc)
	if v.StorageClass.IsBlocked() {
		n, err := r.UnpackU16()
		if err != nil {
			return v, err
		}
		locs := make([]LocationBlocksBody, n)
		for i := range locs {
			locs[i], err = unpackLocationBlocksBody(r)
			if err != nil {
				return v, err
			}
		}
		v.Locations = locs
	} else {
		inline, err := r.UnpackBytes()
		if err != nil {
			return v, err
		}
		v.InlineBody = inline
	}
	return v, nil
}

// PrimaryLocation returns the span's first (lowest LocationID)
// location, or false if the span has no blocked locations (inline, or
// malformed).
func (v SpanBody) PrimaryLocation() (LocationBlocksBody, bool) {
	if len(v.Locations) == 0 {
		return LocationBlocksBody{}, false
	}
	best := v.Locations[0]
	for _, l := range v.Locations[1:] {
		if l.LocationID < best.LocationID {
			best = l
		}
	}
	return best, true
}

// LocationByID returns the location with the given id, if present.
func (v SpanBody) LocationByID(id shardtypes.LocationId) (LocationBlocksBody, bool) {
	for _, l := range v.Locations {
		if l.LocationID == id {
			return l, true
		}
	}
	return LocationBlocksBody{}, false
}
