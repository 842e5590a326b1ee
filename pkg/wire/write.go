package wire

import (
	"github.com/ternfs/shard/pkg/binpack"
	"github.com/ternfs/shard/pkg/shardtypes"
)

// ConstructFileReq asks for a new transient file/symlink id.
type ConstructFileReq struct {
	Type shardtypes.InodeType
	Note []byte
}

func (ConstructFileReq) Kind() MessageKind { return KindConstructFile }
func (m ConstructFileReq) Pack(w *binpack.Writer) {
	w.PackU8(uint8(m.Type))
	w.PackShortBytes(m.Note)
}
func UnpackConstructFileReq(r *binpack.Reader) (ConstructFileReq, error) {
	var m ConstructFileReq
	t, err := r.UnpackU8()
	if err != nil {
		return m, err
	}
	m.Type = shardtypes.InodeType(t)
	m.Note, err = r.UnpackShortBytes()
	return m, err
}

// ConstructFileResp carries the allocated id back to the caller; it's
// the one field AddSpanInitiate/AddInlineSpan/LinkFile all need next
// and there is no other way for the client to learn it.
type ConstructFileResp struct {
	ID shardtypes.InodeId
}

func (ConstructFileResp) Kind() MessageKind        { return KindConstructFile }
func (m ConstructFileResp) Pack(w *binpack.Writer) { w.PackU64(uint64(m.ID)) }
func UnpackConstructFileResp(r *binpack.Reader) (ConstructFileResp, error) {
	id, err := r.UnpackU64()
	return ConstructFileResp{ID: shardtypes.InodeId(id)}, err
}

// LinkFileReq commits a CLEAN transient file under (dir, name).
type LinkFileReq struct {
	FileID shardtypes.InodeId
	Dir    shardtypes.InodeId
	Name   []byte
}

func (LinkFileReq) Kind() MessageKind { return KindLinkFile }
func (m LinkFileReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.FileID))
	w.PackU64(uint64(m.Dir))
	packName(w, m.Name)
}
func UnpackLinkFileReq(r *binpack.Reader) (LinkFileReq, error) {
	var m LinkFileReq
	f, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID = shardtypes.InodeId(f)
	d, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(d)
	m.Name, err = unpackName(r)
	return m, err
}

// LinkFileResp carries the edge's creation_time, needed verbatim on
// idempotent replay (spec §4.5.4: "return success with the existing
// creation_time").
type LinkFileResp struct {
	CreationTime shardtypes.TernTime
}

func (LinkFileResp) Kind() MessageKind { return KindLinkFile }
func (m LinkFileResp) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.CreationTime))
}
func UnpackLinkFileResp(r *binpack.Reader) (LinkFileResp, error) {
	t, err := r.UnpackU64()
	return LinkFileResp{CreationTime: shardtypes.TernTime(t)}, err
}

// SameDirectoryRenameReq moves a current edge to a new name within
// the same directory; the new edge's creation time is the rename's own
// log entry time.
type SameDirectoryRenameReq struct {
	Dir             shardtypes.InodeId
	OldName         []byte
	NewName         []byte
	OldCreationTime shardtypes.TernTime
}

func (SameDirectoryRenameReq) Kind() MessageKind { return KindSameDirectoryRename }
func (m SameDirectoryRenameReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Dir))
	packName(w, m.OldName)
	packName(w, m.NewName)
	w.PackU64(uint64(m.OldCreationTime))
}
func UnpackSameDirectoryRenameReq(r *binpack.Reader) (SameDirectoryRenameReq, error) {
	var m SameDirectoryRenameReq
	d, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(d)
	if m.OldName, err = unpackName(r); err != nil {
		return m, err
	}
	if m.NewName, err = unpackName(r); err != nil {
		return m, err
	}
	t, err := r.UnpackU64()
	m.OldCreationTime = shardtypes.TernTime(t)
	return m, err
}

// SameDirectoryRenameSnapshotReq is the snapshot-edge counterpart of
// SameDirectoryRenameReq, renaming a specific historical edge.
type SameDirectoryRenameSnapshotReq struct {
	Dir             shardtypes.InodeId
	OldName         []byte
	NewName         []byte
	OldCreationTime shardtypes.TernTime
	NewCreationTime shardtypes.TernTime
}

func (SameDirectoryRenameSnapshotReq) Kind() MessageKind { return KindSameDirectoryRenameSnapshot }
func (m SameDirectoryRenameSnapshotReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Dir))
	packName(w, m.OldName)
	packName(w, m.NewName)
	w.PackU64(uint64(m.OldCreationTime))
	w.PackU64(uint64(m.NewCreationTime))
}
func UnpackSameDirectoryRenameSnapshotReq(r *binpack.Reader) (SameDirectoryRenameSnapshotReq, error) {
	var m SameDirectoryRenameSnapshotReq
	d, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(d)
	if m.OldName, err = unpackName(r); err != nil {
		return m, err
	}
	if m.NewName, err = unpackName(r); err != nil {
		return m, err
	}
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.OldCreationTime = shardtypes.TernTime(t)
	t, err = r.UnpackU64()
	m.NewCreationTime = shardtypes.TernTime(t)
	return m, err
}

// SoftUnlinkFileReq removes a current edge, leaving snapshot edges
// behind (spec §4.5.3).
type SoftUnlinkFileReq struct {
	Dir          shardtypes.InodeId
	Name         []byte
	TargetID     shardtypes.InodeId
	CreationTime shardtypes.TernTime
	Owned        bool
}

func (SoftUnlinkFileReq) Kind() MessageKind { return KindSoftUnlinkFile }
func (m SoftUnlinkFileReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Dir))
	packName(w, m.Name)
	w.PackU64(uint64(m.TargetID))
	w.PackU64(uint64(m.CreationTime))
	w.PackBool(m.Owned)
}
func UnpackSoftUnlinkFileReq(r *binpack.Reader) (SoftUnlinkFileReq, error) {
	var m SoftUnlinkFileReq
	d, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(d)
	if m.Name, err = unpackName(r); err != nil {
		return m, err
	}
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.TargetID = shardtypes.InodeId(t)
	ct, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.CreationTime = shardtypes.TernTime(ct)
	m.Owned, err = r.UnpackBool()
	return m, err
}

// SameShardHardFileUnlinkReq makes a committed file transient again
// after its last owned edge was removed.
type SameShardHardFileUnlinkReq struct {
	FileID shardtypes.InodeId
}

func (SameShardHardFileUnlinkReq) Kind() MessageKind { return KindSameShardHardFileUnlink }
func (m SameShardHardFileUnlinkReq) Pack(w *binpack.Writer) { w.PackU64(uint64(m.FileID)) }
func UnpackSameShardHardFileUnlinkReq(r *binpack.Reader) (SameShardHardFileUnlinkReq, error) {
	id, err := r.UnpackU64()
	return SameShardHardFileUnlinkReq{FileID: shardtypes.InodeId(id)}, err
}

// CreateDirectoryInodeReq creates a directory inode, optionally under
// an existing id for idempotent replay.
type CreateDirectoryInodeReq struct {
	ID      shardtypes.InodeId // NullInodeId means "allocate a new id"
	OwnerID shardtypes.InodeId
	Info    []byte // empty means "inherit from owner"
}

func (CreateDirectoryInodeReq) Kind() MessageKind { return KindCreateDirectoryInode }
func (m CreateDirectoryInodeReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.ID))
	w.PackU64(uint64(m.OwnerID))
	w.PackBytes(m.Info)
}
func UnpackCreateDirectoryInodeReq(r *binpack.Reader) (CreateDirectoryInodeReq, error) {
	var m CreateDirectoryInodeReq
	id, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.ID = shardtypes.InodeId(id)
	o, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.OwnerID = shardtypes.InodeId(o)
	m.Info, err = r.UnpackBytes()
	return m, err
}

// CreateDirectoryInodeResp carries the id: the request's own ID field
// is NullInodeId whenever the caller wants the shard to allocate one.
type CreateDirectoryInodeResp struct {
	ID shardtypes.InodeId
}

func (CreateDirectoryInodeResp) Kind() MessageKind        { return KindCreateDirectoryInode }
func (m CreateDirectoryInodeResp) Pack(w *binpack.Writer) { w.PackU64(uint64(m.ID)) }
func UnpackCreateDirectoryInodeResp(r *binpack.Reader) (CreateDirectoryInodeResp, error) {
	id, err := r.UnpackU64()
	return CreateDirectoryInodeResp{ID: shardtypes.InodeId(id)}, err
}

// SetDirectoryOwnerReq/RemoveDirectoryOwnerReq mutate a directory's
// owner field; removing the owner is only valid when the directory
// has no current edges (spec invariant 4).
type SetDirectoryOwnerReq struct {
	Dir     shardtypes.InodeId
	OwnerID shardtypes.InodeId
}

func (SetDirectoryOwnerReq) Kind() MessageKind { return KindSetDirectoryOwner }
func (m SetDirectoryOwnerReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Dir))
	w.PackU64(uint64(m.OwnerID))
}
func UnpackSetDirectoryOwnerReq(r *binpack.Reader) (SetDirectoryOwnerReq, error) {
	var m SetDirectoryOwnerReq
	d, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(d)
	o, err := r.UnpackU64()
	m.OwnerID = shardtypes.InodeId(o)
	return m, err
}

type RemoveDirectoryOwnerReq struct {
	Dir shardtypes.InodeId
}

func (RemoveDirectoryOwnerReq) Kind() MessageKind { return KindRemoveDirectoryOwner }
func (m RemoveDirectoryOwnerReq) Pack(w *binpack.Writer) { w.PackU64(uint64(m.Dir)) }
func UnpackRemoveDirectoryOwnerReq(r *binpack.Reader) (RemoveDirectoryOwnerReq, error) {
	d, err := r.UnpackU64()
	return RemoveDirectoryOwnerReq{Dir: shardtypes.InodeId(d)}, err
}

// SetDirectoryInfoReq replaces a directory's policy blob.
type SetDirectoryInfoReq struct {
	Dir  shardtypes.InodeId
	Info []byte
}

func (SetDirectoryInfoReq) Kind() MessageKind { return KindSetDirectoryInfo }
func (m SetDirectoryInfoReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Dir))
	w.PackBytes(m.Info)
}
func UnpackSetDirectoryInfoReq(r *binpack.Reader) (SetDirectoryInfoReq, error) {
	var m SetDirectoryInfoReq
	d, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(d)
	m.Info, err = r.UnpackBytes()
	return m, err
}

// CreateLockedCurrentEdgeReq/LockCurrentEdgeReq/UnlockCurrentEdgeReq
// drive the locked-edge protocol the CDC uses for cross-directory
// renames (spec §3 edge model).
type CreateLockedCurrentEdgeReq struct {
	Dir             shardtypes.InodeId
	Name            []byte
	TargetID        shardtypes.InodeId
	OldCreationTime shardtypes.TernTime
}

func (CreateLockedCurrentEdgeReq) Kind() MessageKind { return KindCreateLockedCurrentEdge }
func (m CreateLockedCurrentEdgeReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Dir))
	packName(w, m.Name)
	w.PackU64(uint64(m.TargetID))
	w.PackU64(uint64(m.OldCreationTime))
}
func UnpackCreateLockedCurrentEdgeReq(r *binpack.Reader) (CreateLockedCurrentEdgeReq, error) {
	var m CreateLockedCurrentEdgeReq
	d, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(d)
	if m.Name, err = unpackName(r); err != nil {
		return m, err
	}
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.TargetID = shardtypes.InodeId(t)
	ct, err := r.UnpackU64()
	m.OldCreationTime = shardtypes.TernTime(ct)
	return m, err
}

type LockCurrentEdgeReq struct {
	Dir          shardtypes.InodeId
	Name         []byte
	TargetID     shardtypes.InodeId
	CreationTime shardtypes.TernTime
}

func (LockCurrentEdgeReq) Kind() MessageKind { return KindLockCurrentEdge }
func (m LockCurrentEdgeReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Dir))
	packName(w, m.Name)
	w.PackU64(uint64(m.TargetID))
	w.PackU64(uint64(m.CreationTime))
}
func UnpackLockCurrentEdgeReq(r *binpack.Reader) (LockCurrentEdgeReq, error) {
	var m LockCurrentEdgeReq
	d, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(d)
	if m.Name, err = unpackName(r); err != nil {
		return m, err
	}
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.TargetID = shardtypes.InodeId(t)
	ct, err := r.UnpackU64()
	m.CreationTime = shardtypes.TernTime(ct)
	return m, err
}

type UnlockCurrentEdgeReq struct {
	Dir          shardtypes.InodeId
	Name         []byte
	TargetID     shardtypes.InodeId
	CreationTime shardtypes.TernTime
	WasMoved     bool
}

func (UnlockCurrentEdgeReq) Kind() MessageKind { return KindUnlockCurrentEdge }
func (m UnlockCurrentEdgeReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Dir))
	packName(w, m.Name)
	w.PackU64(uint64(m.TargetID))
	w.PackU64(uint64(m.CreationTime))
	w.PackBool(m.WasMoved)
}
func UnpackUnlockCurrentEdgeReq(r *binpack.Reader) (UnlockCurrentEdgeReq, error) {
	var m UnlockCurrentEdgeReq
	d, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(d)
	if m.Name, err = unpackName(r); err != nil {
		return m, err
	}
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.TargetID = shardtypes.InodeId(t)
	ct, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.CreationTime = shardtypes.TernTime(ct)
	m.WasMoved, err = r.UnpackBool()
	return m, err
}

// RemoveInodeReq deletes an edgeless directory or a deadline-passed,
// spanless transient file.
type RemoveInodeReq struct{ ID shardtypes.InodeId }

func (RemoveInodeReq) Kind() MessageKind        { return KindRemoveInode }
func (m RemoveInodeReq) Pack(w *binpack.Writer) { w.PackU64(uint64(m.ID)) }
func UnpackRemoveInodeReq(r *binpack.Reader) (RemoveInodeReq, error) {
	id, err := r.UnpackU64()
	return RemoveInodeReq{ID: shardtypes.InodeId(id)}, err
}

// RemoveNonOwnedEdgeReq/RemoveOwnedSnapshotFileEdgeReq are the GC
// primitives that delete snapshot edges (spec §4.5.7).
type RemoveSnapshotEdgeReq struct {
	Dir          shardtypes.InodeId
	Name         []byte
	CreationTime shardtypes.TernTime
	TargetID     shardtypes.InodeId
}

func packRemoveSnapshotEdgeReq(w *binpack.Writer, m RemoveSnapshotEdgeReq) {
	w.PackU64(uint64(m.Dir))
	packName(w, m.Name)
	w.PackU64(uint64(m.CreationTime))
	w.PackU64(uint64(m.TargetID))
}
func unpackRemoveSnapshotEdgeReq(r *binpack.Reader) (RemoveSnapshotEdgeReq, error) {
	var m RemoveSnapshotEdgeReq
	d, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(d)
	if m.Name, err = unpackName(r); err != nil {
		return m, err
	}
	ct, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.CreationTime = shardtypes.TernTime(ct)
	t, err := r.UnpackU64()
	m.TargetID = shardtypes.InodeId(t)
	return m, err
}

type RemoveNonOwnedEdgeReq struct{ RemoveSnapshotEdgeReq }

func (RemoveNonOwnedEdgeReq) Kind() MessageKind { return KindRemoveNonOwnedEdge }
func (m RemoveNonOwnedEdgeReq) Pack(w *binpack.Writer) {
	packRemoveSnapshotEdgeReq(w, m.RemoveSnapshotEdgeReq)
}
func UnpackRemoveNonOwnedEdgeReq(r *binpack.Reader) (RemoveNonOwnedEdgeReq, error) {
	v, err := unpackRemoveSnapshotEdgeReq(r)
	return RemoveNonOwnedEdgeReq{v}, err
}

type RemoveOwnedSnapshotFileEdgeReq struct{ RemoveSnapshotEdgeReq }

func (RemoveOwnedSnapshotFileEdgeReq) Kind() MessageKind { return KindRemoveOwnedSnapshotFileEdge }
func (m RemoveOwnedSnapshotFileEdgeReq) Pack(w *binpack.Writer) {
	packRemoveSnapshotEdgeReq(w, m.RemoveSnapshotEdgeReq)
}
func UnpackRemoveOwnedSnapshotFileEdgeReq(r *binpack.Reader) (RemoveOwnedSnapshotFileEdgeReq, error) {
	v, err := unpackRemoveSnapshotEdgeReq(r)
	return RemoveOwnedSnapshotFileEdgeReq{v}, err
}

// SpanLocation mirrors store.LocationBlocksBody on the wire, used by
// the span-mutation write kinds below.
type SpanLocation struct {
	LocationID   shardtypes.LocationId
	StorageClass shardtypes.StorageClass
	Parity       shardtypes.Parity
	Stripes      uint8
	CellSize     uint32
	Blocks       []BlockEntry
	StripeCrcs   []uint32
}

func packSpanLocation(w *binpack.Writer, l SpanLocation) {
	w.PackU8(uint8(l.LocationID))
	w.PackU8(uint8(l.StorageClass))
	w.PackU8(l.Parity.D)
	w.PackU8(l.Parity.P)
	w.PackU8(l.Stripes)
	w.PackU32(l.CellSize)
	w.PackU16(uint16(len(l.Blocks)))
	for _, b := range l.Blocks {
		w.PackU64(uint64(b.BlockServiceID))
		w.PackU64(uint64(b.BlockID))
		w.PackU32(b.Crc)
	}
	w.PackU32List(l.StripeCrcs)
}

func unpackSpanLocation(r *binpack.Reader) (SpanLocation, error) {
	var l SpanLocation
	loc, err := r.UnpackU8()
	if err != nil {
		return l, err
	}
	l.LocationID = shardtypes.LocationId(loc)
	sc, err := r.UnpackU8()
	if err != nil {
		return l, err
	}
	l.StorageClass = shardtypes.StorageClass(sc)
	if l.Parity.D, err = r.UnpackU8(); err != nil {
		return l, err
	}
	if l.Parity.P, err = r.UnpackU8(); err != nil {
		return l, err
	}
	if l.Stripes, err = r.UnpackU8(); err != nil {
		return l, err
	}
	if l.CellSize, err = r.UnpackU32(); err != nil {
		return l, err
	}
	n, err := r.UnpackU16()
	if err != nil {
		return l, err
	}
	l.Blocks = make([]BlockEntry, n)
	for i := range l.Blocks {
		bs, err := r.UnpackU64()
		if err != nil {
			return l, err
		}
		bid, err := r.UnpackU64()
		if err != nil {
			return l, err
		}
		crc, err := r.UnpackU32()
		if err != nil {
			return l, err
		}
		l.Blocks[i] = BlockEntry{BlockServiceID: shardtypes.BlockServiceId(bs), BlockID: shardtypes.BlockId(bid), Crc: crc}
	}
	l.StripeCrcs, err = r.UnpackU32List()
	return l, err
}

// AddInlineSpanReq appends an inline (EMPTY/INLINE storage class)
// span to a transient file's CLEAN tail, atomically (spec §4.5.5).
type AddInlineSpanReq struct {
	FileID       shardtypes.InodeId
	ByteOffset   uint64
	Crc          uint32
	StorageClass shardtypes.StorageClass
	Body         []byte
}

func (AddInlineSpanReq) Kind() MessageKind { return KindAddInlineSpan }
func (m AddInlineSpanReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.FileID))
	w.PackU64(m.ByteOffset)
	w.PackU32(m.Crc)
	w.PackU8(uint8(m.StorageClass))
	w.PackBytes(m.Body)
}
func UnpackAddInlineSpanReq(r *binpack.Reader) (AddInlineSpanReq, error) {
	var m AddInlineSpanReq
	id, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID = shardtypes.InodeId(id)
	if m.ByteOffset, err = r.UnpackU64(); err != nil {
		return m, err
	}
	if m.Crc, err = r.UnpackU32(); err != nil {
		return m, err
	}
	sc, err := r.UnpackU8()
	if err != nil {
		return m, err
	}
	m.StorageClass = shardtypes.StorageClass(sc)
	m.Body, err = r.UnpackBytes()
	return m, err
}

// AddSpanInitiateReq begins a blocked span write: the tail goes
// CLEAN->DIRTY and the shard picks block services (preferring the
// reference file's failure domains for the _WithReference variant, and
// at the requested location for the _AtLocation variant).
type AddSpanInitiateReq struct {
	FileID       shardtypes.InodeId
	ByteOffset   uint64
	SpanSize     uint32
	Crc          uint32
	StorageClass shardtypes.StorageClass
	Parity       shardtypes.Parity
	Stripes      uint8
	CellSize     uint32
	StripeCrcs   []uint32
	Blacklist    []shardtypes.BlockServiceId
}

func (AddSpanInitiateReq) Kind() MessageKind { return KindAddSpanInitiate }
func (m AddSpanInitiateReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.FileID))
	w.PackU64(m.ByteOffset)
	w.PackU32(m.SpanSize)
	w.PackU32(m.Crc)
	w.PackU8(uint8(m.StorageClass))
	w.PackU8(m.Parity.D)
	w.PackU8(m.Parity.P)
	w.PackU8(m.Stripes)
	w.PackU32(m.CellSize)
	w.PackU32List(m.StripeCrcs)
	ids := make([]uint64, len(m.Blacklist))
	for i, id := range m.Blacklist {
		ids[i] = uint64(id)
	}
	w.PackU64List(ids)
}
func UnpackAddSpanInitiateReq(r *binpack.Reader) (AddSpanInitiateReq, error) {
	var m AddSpanInitiateReq
	id, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID = shardtypes.InodeId(id)
	if m.ByteOffset, err = r.UnpackU64(); err != nil {
		return m, err
	}
	if m.SpanSize, err = r.UnpackU32(); err != nil {
		return m, err
	}
	if m.Crc, err = r.UnpackU32(); err != nil {
		return m, err
	}
	sc, err := r.UnpackU8()
	if err != nil {
		return m, err
	}
	m.StorageClass = shardtypes.StorageClass(sc)
	if m.Parity.D, err = r.UnpackU8(); err != nil {
		return m, err
	}
	if m.Parity.P, err = r.UnpackU8(); err != nil {
		return m, err
	}
	if m.Stripes, err = r.UnpackU8(); err != nil {
		return m, err
	}
	if m.CellSize, err = r.UnpackU32(); err != nil {
		return m, err
	}
	if m.StripeCrcs, err = r.UnpackU32List(); err != nil {
		return m, err
	}
	ids, err := r.UnpackU64List()
	if err != nil {
		return m, err
	}
	m.Blacklist = make([]shardtypes.BlockServiceId, len(ids))
	for i, v := range ids {
		m.Blacklist[i] = shardtypes.BlockServiceId(v)
	}
	return m, nil
}

// AddSpanInitiateWithReferenceReq is AddSpanInitiateReq plus a
// reference file whose existing placements bias the picker (spec
// §4.4's "prefer block services already used by the first/last span
// of a reference file").
type AddSpanInitiateWithReferenceReq struct {
	AddSpanInitiateReq
	ReferenceFileID shardtypes.InodeId
}

func (AddSpanInitiateWithReferenceReq) Kind() MessageKind { return KindAddSpanInitiateWithReference }
func (m AddSpanInitiateWithReferenceReq) Pack(w *binpack.Writer) {
	m.AddSpanInitiateReq.Pack(w)
	w.PackU64(uint64(m.ReferenceFileID))
}
func UnpackAddSpanInitiateWithReferenceReq(r *binpack.Reader) (AddSpanInitiateWithReferenceReq, error) {
	base, err := UnpackAddSpanInitiateReq(r)
	if err != nil {
		return AddSpanInitiateWithReferenceReq{}, err
	}
	ref, err := r.UnpackU64()
	return AddSpanInitiateWithReferenceReq{AddSpanInitiateReq: base, ReferenceFileID: shardtypes.InodeId(ref)}, err
}

// AddSpanAtLocationInitiateReq requests a span write at one specific
// location id, used when a client already knows which location it
// wants filled (e.g. AddSpanLocation's donor span).
type AddSpanAtLocationInitiateReq struct {
	AddSpanInitiateReq
	LocationID shardtypes.LocationId
}

func (AddSpanAtLocationInitiateReq) Kind() MessageKind { return KindAddSpanAtLocationInitiate }
func (m AddSpanAtLocationInitiateReq) Pack(w *binpack.Writer) {
	m.AddSpanInitiateReq.Pack(w)
	w.PackU8(uint8(m.LocationID))
}
func UnpackAddSpanAtLocationInitiateReq(r *binpack.Reader) (AddSpanAtLocationInitiateReq, error) {
	base, err := UnpackAddSpanInitiateReq(r)
	if err != nil {
		return AddSpanAtLocationInitiateReq{}, err
	}
	loc, err := r.UnpackU8()
	return AddSpanAtLocationInitiateReq{AddSpanInitiateReq: base, LocationID: shardtypes.LocationId(loc)}, err
}

// AddSpanInitiateResp returns the block services picked for the
// caller to write to.
type AddSpanInitiateResp struct {
	Locations []SpanLocation
}

func (AddSpanInitiateResp) Kind() MessageKind { return KindAddSpanInitiate }
func (m AddSpanInitiateResp) Pack(w *binpack.Writer) {
	w.PackU16(uint16(len(m.Locations)))
	for _, l := range m.Locations {
		packSpanLocation(w, l)
	}
}
func UnpackAddSpanInitiateResp(r *binpack.Reader) (AddSpanInitiateResp, error) {
	n, err := r.UnpackU16()
	if err != nil {
		return AddSpanInitiateResp{}, err
	}
	locs := make([]SpanLocation, n)
	for i := range locs {
		if locs[i], err = unpackSpanLocation(r); err != nil {
			return AddSpanInitiateResp{}, err
		}
	}
	return AddSpanInitiateResp{Locations: locs}, nil
}

// AddSpanCertifyReq presents add proofs for every block of the tail
// span, transitioning it DIRTY->CLEAN (spec §4.2, §4.5.5).
type AddSpanCertifyReq struct {
	FileID     shardtypes.InodeId
	ByteOffset uint64
	Proofs     [][8]byte
}

func (AddSpanCertifyReq) Kind() MessageKind { return KindAddSpanCertify }
func (m AddSpanCertifyReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.FileID))
	w.PackU64(m.ByteOffset)
	w.PackU16(uint16(len(m.Proofs)))
	for _, p := range m.Proofs {
		w.PackFixedBytes(p[:])
	}
}
func UnpackAddSpanCertifyReq(r *binpack.Reader) (AddSpanCertifyReq, error) {
	var m AddSpanCertifyReq
	id, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID = shardtypes.InodeId(id)
	if m.ByteOffset, err = r.UnpackU64(); err != nil {
		return m, err
	}
	n, err := r.UnpackU16()
	if err != nil {
		return m, err
	}
	m.Proofs = make([][8]byte, n)
	for i := range m.Proofs {
		b, err := r.UnpackFixedBytes(8)
		if err != nil {
			return m, err
		}
		copy(m.Proofs[i][:], b)
	}
	return m, nil
}

// AddSpanLocationReq adds a second location to a committed file's
// span, sourcing blocks from a transient file's CLEAN tail (spec
// §4.5.6).
type AddSpanLocationReq struct {
	FileID          shardtypes.InodeId
	ByteOffset      uint64
	TransientFileID shardtypes.InodeId
}

func (AddSpanLocationReq) Kind() MessageKind { return KindAddSpanLocation }
func (m AddSpanLocationReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.FileID))
	w.PackU64(m.ByteOffset)
	w.PackU64(uint64(m.TransientFileID))
}
func UnpackAddSpanLocationReq(r *binpack.Reader) (AddSpanLocationReq, error) {
	var m AddSpanLocationReq
	id, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID = shardtypes.InodeId(id)
	if m.ByteOffset, err = r.UnpackU64(); err != nil {
		return m, err
	}
	t, err := r.UnpackU64()
	m.TransientFileID = shardtypes.InodeId(t)
	return m, err
}

// RemoveSpanInitiateReq condemns a non-inline tail span (CLEAN ->
// CONDEMNED), the precursor to deleting its blocks.
type RemoveSpanInitiateReq struct {
	FileID     shardtypes.InodeId
	ByteOffset uint64
}

func (RemoveSpanInitiateReq) Kind() MessageKind { return KindRemoveSpanInitiate }
func (m RemoveSpanInitiateReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.FileID))
	w.PackU64(m.ByteOffset)
}
func UnpackRemoveSpanInitiateReq(r *binpack.Reader) (RemoveSpanInitiateReq, error) {
	var m RemoveSpanInitiateReq
	id, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID = shardtypes.InodeId(id)
	m.ByteOffset, err = r.UnpackU64()
	return m, err
}

// RemoveSpanCertifyReq presents erase/delete proofs for a CONDEMNED
// span's blocks, shrinking the file and returning the tail to CLEAN.
type RemoveSpanCertifyReq struct {
	FileID     shardtypes.InodeId
	ByteOffset uint64
	Proofs     [][8]byte
}

func (RemoveSpanCertifyReq) Kind() MessageKind { return KindRemoveSpanCertify }
func (m RemoveSpanCertifyReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.FileID))
	w.PackU64(m.ByteOffset)
	w.PackU16(uint16(len(m.Proofs)))
	for _, p := range m.Proofs {
		w.PackFixedBytes(p[:])
	}
}
func UnpackRemoveSpanCertifyReq(r *binpack.Reader) (RemoveSpanCertifyReq, error) {
	var m RemoveSpanCertifyReq
	id, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID = shardtypes.InodeId(id)
	if m.ByteOffset, err = r.UnpackU64(); err != nil {
		return m, err
	}
	n, err := r.UnpackU16()
	if err != nil {
		return m, err
	}
	m.Proofs = make([][8]byte, n)
	for i := range m.Proofs {
		b, err := r.UnpackFixedBytes(8)
		if err != nil {
			return m, err
		}
		copy(m.Proofs[i][:], b)
	}
	return m, nil
}

// MakeFileTransientReq converts a committed, edgeless file back to
// transient so its spans can be reclaimed.
type MakeFileTransientReq struct {
	FileID shardtypes.InodeId
	Note   []byte
}

func (MakeFileTransientReq) Kind() MessageKind { return KindMakeFileTransient }
func (m MakeFileTransientReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.FileID))
	w.PackShortBytes(m.Note)
}
func UnpackMakeFileTransientReq(r *binpack.Reader) (MakeFileTransientReq, error) {
	var m MakeFileTransientReq
	id, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID = shardtypes.InodeId(id)
	m.Note, err = r.UnpackShortBytes()
	return m, err
}

// ScrapTransientFileReq brings a transient file's deadline forward so
// GC can reclaim it sooner.
type ScrapTransientFileReq struct {
	FileID shardtypes.InodeId
}

func (ScrapTransientFileReq) Kind() MessageKind        { return KindScrapTransientFile }
func (m ScrapTransientFileReq) Pack(w *binpack.Writer) { w.PackU64(uint64(m.FileID)) }
func UnpackScrapTransientFileReq(r *binpack.Reader) (ScrapTransientFileReq, error) {
	id, err := r.UnpackU64()
	return ScrapTransientFileReq{FileID: shardtypes.InodeId(id)}, err
}

// SwapBlocksReq exchanges a single block between two blocked spans
// (spec §4.5.6).
type SwapBlocksReq struct {
	FileID1  shardtypes.InodeId
	Offset1  uint64
	BlockID1 shardtypes.BlockId
	FileID2  shardtypes.InodeId
	Offset2  uint64
	BlockID2 shardtypes.BlockId
}

func (SwapBlocksReq) Kind() MessageKind { return KindSwapBlocks }
func (m SwapBlocksReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.FileID1))
	w.PackU64(m.Offset1)
	w.PackU64(uint64(m.BlockID1))
	w.PackU64(uint64(m.FileID2))
	w.PackU64(m.Offset2)
	w.PackU64(uint64(m.BlockID2))
}
func UnpackSwapBlocksReq(r *binpack.Reader) (SwapBlocksReq, error) {
	var m SwapBlocksReq
	f1, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID1 = shardtypes.InodeId(f1)
	if m.Offset1, err = r.UnpackU64(); err != nil {
		return m, err
	}
	b1, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.BlockID1 = shardtypes.BlockId(b1)
	f2, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID2 = shardtypes.InodeId(f2)
	if m.Offset2, err = r.UnpackU64(); err != nil {
		return m, err
	}
	b2, err := r.UnpackU64()
	m.BlockID2 = shardtypes.BlockId(b2)
	return m, err
}

// SwapSpansReq exchanges two whole CLEAN spans of matching shape
// between two files.
type SwapSpansReq struct {
	FileID1 shardtypes.InodeId
	Offset1 uint64
	FileID2 shardtypes.InodeId
	Offset2 uint64
}

func (SwapSpansReq) Kind() MessageKind { return KindSwapSpans }
func (m SwapSpansReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.FileID1))
	w.PackU64(m.Offset1)
	w.PackU64(uint64(m.FileID2))
	w.PackU64(m.Offset2)
}
func UnpackSwapSpansReq(r *binpack.Reader) (SwapSpansReq, error) {
	var m SwapSpansReq
	f1, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID1 = shardtypes.InodeId(f1)
	if m.Offset1, err = r.UnpackU64(); err != nil {
		return m, err
	}
	f2, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID2 = shardtypes.InodeId(f2)
	m.Offset2, err = r.UnpackU64()
	return m, err
}

// MoveSpanReq moves file1's DIRTY tail span onto file2's CLEAN tail
// (spec §4.5.6).
type MoveSpanReq struct {
	FileID1 shardtypes.InodeId
	Offset1 uint64
	FileID2 shardtypes.InodeId
	Offset2 uint64
	SpanSize uint32
}

func (MoveSpanReq) Kind() MessageKind { return KindMoveSpan }
func (m MoveSpanReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.FileID1))
	w.PackU64(m.Offset1)
	w.PackU64(uint64(m.FileID2))
	w.PackU64(m.Offset2)
	w.PackU32(m.SpanSize)
}
func UnpackMoveSpanReq(r *binpack.Reader) (MoveSpanReq, error) {
	var m MoveSpanReq
	f1, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID1 = shardtypes.InodeId(f1)
	if m.Offset1, err = r.UnpackU64(); err != nil {
		return m, err
	}
	f2, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID2 = shardtypes.InodeId(f2)
	if m.Offset2, err = r.UnpackU64(); err != nil {
		return m, err
	}
	m.SpanSize, err = r.UnpackU32()
	return m, err
}

// SetTimeReq sets atime and/or mtime on a file/symlink, each field
// only updated when its high "present" bit is set (spec §4.5.8).
type SetTimeReq struct {
	FileID   shardtypes.InodeId
	RawAtime uint64
	RawMtime uint64
}

func (SetTimeReq) Kind() MessageKind { return KindSetTime }
func (m SetTimeReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.FileID))
	w.PackU64(m.RawAtime)
	w.PackU64(m.RawMtime)
}
func UnpackSetTimeReq(r *binpack.Reader) (SetTimeReq, error) {
	var m SetTimeReq
	id, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID = shardtypes.InodeId(id)
	if m.RawAtime, err = r.UnpackU64(); err != nil {
		return m, err
	}
	m.RawMtime, err = r.UnpackU64()
	return m, err
}

// RemoveZeroBlockServiceFilesReq sweeps up to a fixed batch of
// zero-count block_services_to_files entries (spec §4.5.7).
type RemoveZeroBlockServiceFilesReq struct {
	Cursor []byte
}

func (RemoveZeroBlockServiceFilesReq) Kind() MessageKind { return KindRemoveZeroBlockServiceFiles }
func (m RemoveZeroBlockServiceFilesReq) Pack(w *binpack.Writer) { w.PackBytes(m.Cursor) }
func UnpackRemoveZeroBlockServiceFilesReq(r *binpack.Reader) (RemoveZeroBlockServiceFilesReq, error) {
	c, err := r.UnpackBytes()
	return RemoveZeroBlockServiceFilesReq{Cursor: c}, err
}

type RemoveZeroBlockServiceFilesResp struct {
	Swept  uint32
	Cursor []byte // empty means the sweep reached the end of the CF
}

func (RemoveZeroBlockServiceFilesResp) Kind() MessageKind { return KindRemoveZeroBlockServiceFiles }
func (m RemoveZeroBlockServiceFilesResp) Pack(w *binpack.Writer) {
	w.PackU32(m.Swept)
	w.PackBytes(m.Cursor)
}
func UnpackRemoveZeroBlockServiceFilesResp(r *binpack.Reader) (RemoveZeroBlockServiceFilesResp, error) {
	var m RemoveZeroBlockServiceFilesResp
	var err error
	if m.Swept, err = r.UnpackU32(); err != nil {
		return m, err
	}
	m.Cursor, err = r.UnpackBytes()
	return m, err
}
