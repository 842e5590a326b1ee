package wire

import (
	"github.com/ternfs/shard/pkg/binpack"
	"github.com/ternfs/shard/pkg/shardtypes"
)

// Every LogEntry carries the log entry's own resolved wall-clock time
// (spec §4.4: "the current wall-clock time t" is fixed at prepare
// time, not re-read at apply time, so apply stays deterministic).
// Per-kind entries embed Time directly rather than through a shared
// header type, since the apply dispatcher only ever sees one concrete
// entry type per log-entry kind and a shared embedded struct would
// just add an extra field access with no behavioral benefit.

type ConstructFileLogEntry struct {
	Time   shardtypes.TernTime
	ID     shardtypes.InodeId // pre-allocated at prepare time
	Note   []byte
	Deadline shardtypes.TernTime
}

func (ConstructFileLogEntry) Kind() MessageKind { return KindConstructFile }
func (m ConstructFileLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	w.PackU64(uint64(m.ID))
	w.PackShortBytes(m.Note)
	w.PackU64(uint64(m.Deadline))
}
func UnpackConstructFileLogEntry(r *binpack.Reader) (ConstructFileLogEntry, error) {
	var m ConstructFileLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	id, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.ID = shardtypes.InodeId(id)
	if m.Note, err = r.UnpackShortBytes(); err != nil {
		return m, err
	}
	d, err := r.UnpackU64()
	m.Deadline = shardtypes.TernTime(d)
	return m, err
}

type LinkFileLogEntry struct {
	Time   shardtypes.TernTime
	FileID shardtypes.InodeId
	Dir    shardtypes.InodeId
	Name   []byte
}

func (LinkFileLogEntry) Kind() MessageKind { return KindLinkFile }
func (m LinkFileLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	w.PackU64(uint64(m.FileID))
	w.PackU64(uint64(m.Dir))
	packName(w, m.Name)
}
func UnpackLinkFileLogEntry(r *binpack.Reader) (LinkFileLogEntry, error) {
	var m LinkFileLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
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

// SameDirectoryRenameLogEntry moves a current edge to a new name
// within the same directory in one apply: the old name's edge is
// soft-unlinked (becoming a deletion snapshot) and the new name's
// edge is created or overridden, both timestamped at Time.
type SameDirectoryRenameLogEntry struct {
	Time            shardtypes.TernTime
	Dir             shardtypes.InodeId
	OldName         []byte
	NewName         []byte
	TargetID        shardtypes.InodeId
	OldCreationTime shardtypes.TernTime
}

func (SameDirectoryRenameLogEntry) Kind() MessageKind { return KindSameDirectoryRename }
func (m SameDirectoryRenameLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	w.PackU64(uint64(m.Dir))
	packName(w, m.OldName)
	packName(w, m.NewName)
	w.PackU64(uint64(m.TargetID))
	w.PackU64(uint64(m.OldCreationTime))
}
func UnpackSameDirectoryRenameLogEntry(r *binpack.Reader) (SameDirectoryRenameLogEntry, error) {
	var m SameDirectoryRenameLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
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
	tg, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.TargetID = shardtypes.InodeId(tg)
	oct, err := r.UnpackU64()
	m.OldCreationTime = shardtypes.TernTime(oct)
	return m, err
}

func NewSameDirectoryRenameLogEntry(time shardtypes.TernTime, dir shardtypes.InodeId, oldName, newName []byte, target shardtypes.InodeId, oldCreationTime shardtypes.TernTime) SameDirectoryRenameLogEntry {
	return SameDirectoryRenameLogEntry{Time: time, Dir: dir, OldName: oldName, NewName: newName, TargetID: target, OldCreationTime: oldCreationTime}
}

// CreateCurrentEdgeLogEntry is produced by every kind that ultimately
// calls the create_current_edge primitive of spec §4.5.2 directly:
// LinkFile shares the shape informally via its own type above;
// CreateLockedCurrentEdge and LockCurrentEdge share this one since
// both lock an edge in place as part of the cross-directory rename
// protocol. Each still tags its own Kind() so apply dispatches
// correctly and the log stays self-describing.
type CreateCurrentEdgeLogEntry struct {
	Time            shardtypes.TernTime
	Dir             shardtypes.InodeId
	Name            []byte
	TargetID        shardtypes.InodeId
	Locked          bool
	OldCreationTime shardtypes.TernTime
	kind            MessageKind
}

func (m CreateCurrentEdgeLogEntry) Kind() MessageKind { return m.kind }
func (m CreateCurrentEdgeLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	w.PackU64(uint64(m.Dir))
	packName(w, m.Name)
	w.PackU64(uint64(m.TargetID))
	w.PackBool(m.Locked)
	w.PackU64(uint64(m.OldCreationTime))
}
func unpackCreateCurrentEdgeLogEntry(r *binpack.Reader, kind MessageKind) (CreateCurrentEdgeLogEntry, error) {
	var m CreateCurrentEdgeLogEntry
	m.kind = kind
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	d, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(d)
	if m.Name, err = unpackName(r); err != nil {
		return m, err
	}
	tg, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.TargetID = shardtypes.InodeId(tg)
	if m.Locked, err = r.UnpackBool(); err != nil {
		return m, err
	}
	oct, err := r.UnpackU64()
	m.OldCreationTime = shardtypes.TernTime(oct)
	return m, err
}

func NewCreateCurrentEdgeLogEntry(kind MessageKind, time shardtypes.TernTime, dir shardtypes.InodeId, name []byte, target shardtypes.InodeId, locked bool, oldCreationTime shardtypes.TernTime) CreateCurrentEdgeLogEntry {
	return CreateCurrentEdgeLogEntry{Time: time, Dir: dir, Name: name, TargetID: target, Locked: locked, OldCreationTime: oldCreationTime, kind: kind}
}

func UnpackCreateLockedCurrentEdgeLogEntry(r *binpack.Reader) (CreateCurrentEdgeLogEntry, error) {
	return unpackCreateCurrentEdgeLogEntry(r, KindCreateLockedCurrentEdge)
}
func UnpackLockCurrentEdgeLogEntry(r *binpack.Reader) (CreateCurrentEdgeLogEntry, error) {
	return unpackCreateCurrentEdgeLogEntry(r, KindLockCurrentEdge)
}

func NewCreateLockedCurrentEdgeLogEntry(time shardtypes.TernTime, dir shardtypes.InodeId, name []byte, target shardtypes.InodeId, oldCreationTime shardtypes.TernTime) CreateCurrentEdgeLogEntry {
	return NewCreateCurrentEdgeLogEntry(KindCreateLockedCurrentEdge, time, dir, name, target, true, oldCreationTime)
}

func NewLockCurrentEdgeLogEntry(time shardtypes.TernTime, dir shardtypes.InodeId, name []byte, target shardtypes.InodeId, creationTime shardtypes.TernTime) CreateCurrentEdgeLogEntry {
	return NewCreateCurrentEdgeLogEntry(KindLockCurrentEdge, time, dir, name, target, true, creationTime)
}

type SameDirectoryRenameSnapshotLogEntry struct {
	Time            shardtypes.TernTime
	Dir             shardtypes.InodeId
	OldName         []byte
	NewName         []byte
	OldCreationTime shardtypes.TernTime
	NewCreationTime shardtypes.TernTime
}

func (SameDirectoryRenameSnapshotLogEntry) Kind() MessageKind { return KindSameDirectoryRenameSnapshot }
func (m SameDirectoryRenameSnapshotLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	w.PackU64(uint64(m.Dir))
	packName(w, m.OldName)
	packName(w, m.NewName)
	w.PackU64(uint64(m.OldCreationTime))
	w.PackU64(uint64(m.NewCreationTime))
}
func UnpackSameDirectoryRenameSnapshotLogEntry(r *binpack.Reader) (SameDirectoryRenameSnapshotLogEntry, error) {
	var m SameDirectoryRenameSnapshotLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
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
	oct, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.OldCreationTime = shardtypes.TernTime(oct)
	nct, err := r.UnpackU64()
	m.NewCreationTime = shardtypes.TernTime(nct)
	return m, err
}

type SoftUnlinkFileLogEntry struct {
	Time         shardtypes.TernTime
	Dir          shardtypes.InodeId
	Name         []byte
	TargetID     shardtypes.InodeId
	CreationTime shardtypes.TernTime
	Owned        bool
}

func (SoftUnlinkFileLogEntry) Kind() MessageKind { return KindSoftUnlinkFile }
func (m SoftUnlinkFileLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	w.PackU64(uint64(m.Dir))
	packName(w, m.Name)
	w.PackU64(uint64(m.TargetID))
	w.PackU64(uint64(m.CreationTime))
	w.PackBool(m.Owned)
}
func UnpackSoftUnlinkFileLogEntry(r *binpack.Reader) (SoftUnlinkFileLogEntry, error) {
	var m SoftUnlinkFileLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	d, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(d)
	if m.Name, err = unpackName(r); err != nil {
		return m, err
	}
	tg, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.TargetID = shardtypes.InodeId(tg)
	ct, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.CreationTime = shardtypes.TernTime(ct)
	m.Owned, err = r.UnpackBool()
	return m, err
}

// Simple 1:1 log entries: the request carries no non-determinism, so
// the log entry is the request plus the resolved log-entry time.

type timedInodeLogEntry struct {
	Time shardtypes.TernTime
	ID   shardtypes.InodeId
	kind MessageKind
}

func (m timedInodeLogEntry) Kind() MessageKind { return m.kind }
func (m timedInodeLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	w.PackU64(uint64(m.ID))
}
func unpackTimedInodeLogEntry(r *binpack.Reader, kind MessageKind) (timedInodeLogEntry, error) {
	var m timedInodeLogEntry
	m.kind = kind
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	id, err := r.UnpackU64()
	m.ID = shardtypes.InodeId(id)
	return m, err
}

type SameShardHardFileUnlinkLogEntry struct{ timedInodeLogEntry }
type RemoveInodeLogEntry struct{ timedInodeLogEntry }
type ScrapTransientFileLogEntry struct{ timedInodeLogEntry }

func NewSameShardHardFileUnlinkLogEntry(time shardtypes.TernTime, id shardtypes.InodeId) SameShardHardFileUnlinkLogEntry {
	return SameShardHardFileUnlinkLogEntry{timedInodeLogEntry{Time: time, ID: id, kind: KindSameShardHardFileUnlink}}
}
func UnpackSameShardHardFileUnlinkLogEntry(r *binpack.Reader) (SameShardHardFileUnlinkLogEntry, error) {
	v, err := unpackTimedInodeLogEntry(r, KindSameShardHardFileUnlink)
	return SameShardHardFileUnlinkLogEntry{v}, err
}

func NewRemoveInodeLogEntry(time shardtypes.TernTime, id shardtypes.InodeId) RemoveInodeLogEntry {
	return RemoveInodeLogEntry{timedInodeLogEntry{Time: time, ID: id, kind: KindRemoveInode}}
}
func UnpackRemoveInodeLogEntry(r *binpack.Reader) (RemoveInodeLogEntry, error) {
	v, err := unpackTimedInodeLogEntry(r, KindRemoveInode)
	return RemoveInodeLogEntry{v}, err
}

func NewScrapTransientFileLogEntry(time shardtypes.TernTime, id shardtypes.InodeId) ScrapTransientFileLogEntry {
	return ScrapTransientFileLogEntry{timedInodeLogEntry{Time: time, ID: id, kind: KindScrapTransientFile}}
}
func UnpackScrapTransientFileLogEntry(r *binpack.Reader) (ScrapTransientFileLogEntry, error) {
	v, err := unpackTimedInodeLogEntry(r, KindScrapTransientFile)
	return ScrapTransientFileLogEntry{v}, err
}

type CreateDirectoryInodeLogEntry struct {
	Time    shardtypes.TernTime
	ID      shardtypes.InodeId // always pre-allocated by prepare
	OwnerID shardtypes.InodeId
	Info    []byte
}

func (CreateDirectoryInodeLogEntry) Kind() MessageKind { return KindCreateDirectoryInode }
func (m CreateDirectoryInodeLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	w.PackU64(uint64(m.ID))
	w.PackU64(uint64(m.OwnerID))
	w.PackBytes(m.Info)
}
func UnpackCreateDirectoryInodeLogEntry(r *binpack.Reader) (CreateDirectoryInodeLogEntry, error) {
	var m CreateDirectoryInodeLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
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

type SetDirectoryOwnerLogEntry struct {
	Time    shardtypes.TernTime
	Dir     shardtypes.InodeId
	OwnerID shardtypes.InodeId
}

func (SetDirectoryOwnerLogEntry) Kind() MessageKind { return KindSetDirectoryOwner }
func (m SetDirectoryOwnerLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	w.PackU64(uint64(m.Dir))
	w.PackU64(uint64(m.OwnerID))
}
func UnpackSetDirectoryOwnerLogEntry(r *binpack.Reader) (SetDirectoryOwnerLogEntry, error) {
	var m SetDirectoryOwnerLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	d, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(d)
	o, err := r.UnpackU64()
	m.OwnerID = shardtypes.InodeId(o)
	return m, err
}

type RemoveDirectoryOwnerLogEntry struct{ timedInodeLogEntry }

func NewRemoveDirectoryOwnerLogEntry(time shardtypes.TernTime, dir shardtypes.InodeId) RemoveDirectoryOwnerLogEntry {
	return RemoveDirectoryOwnerLogEntry{timedInodeLogEntry{Time: time, ID: dir, kind: KindRemoveDirectoryOwner}}
}
func UnpackRemoveDirectoryOwnerLogEntry(r *binpack.Reader) (RemoveDirectoryOwnerLogEntry, error) {
	v, err := unpackTimedInodeLogEntry(r, KindRemoveDirectoryOwner)
	return RemoveDirectoryOwnerLogEntry{v}, err
}

type SetDirectoryInfoLogEntry struct {
	Time shardtypes.TernTime
	Dir  shardtypes.InodeId
	Info []byte
}

func (SetDirectoryInfoLogEntry) Kind() MessageKind { return KindSetDirectoryInfo }
func (m SetDirectoryInfoLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	w.PackU64(uint64(m.Dir))
	w.PackBytes(m.Info)
}
func UnpackSetDirectoryInfoLogEntry(r *binpack.Reader) (SetDirectoryInfoLogEntry, error) {
	var m SetDirectoryInfoLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	d, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(d)
	m.Info, err = r.UnpackBytes()
	return m, err
}

type UnlockCurrentEdgeLogEntry struct {
	Time         shardtypes.TernTime
	Dir          shardtypes.InodeId
	Name         []byte
	TargetID     shardtypes.InodeId
	CreationTime shardtypes.TernTime
	WasMoved     bool
}

func (UnlockCurrentEdgeLogEntry) Kind() MessageKind { return KindUnlockCurrentEdge }
func (m UnlockCurrentEdgeLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	w.PackU64(uint64(m.Dir))
	packName(w, m.Name)
	w.PackU64(uint64(m.TargetID))
	w.PackU64(uint64(m.CreationTime))
	w.PackBool(m.WasMoved)
}
func UnpackUnlockCurrentEdgeLogEntry(r *binpack.Reader) (UnlockCurrentEdgeLogEntry, error) {
	var m UnlockCurrentEdgeLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	d, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(d)
	if m.Name, err = unpackName(r); err != nil {
		return m, err
	}
	tg, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.TargetID = shardtypes.InodeId(tg)
	ct, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.CreationTime = shardtypes.TernTime(ct)
	m.WasMoved, err = r.UnpackBool()
	return m, err
}

type RemoveSnapshotEdgeLogEntry struct {
	Time shardtypes.TernTime
	RemoveSnapshotEdgeReq
	kind MessageKind
}

func (m RemoveSnapshotEdgeLogEntry) Kind() MessageKind { return m.kind }
func (m RemoveSnapshotEdgeLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	packRemoveSnapshotEdgeReq(w, m.RemoveSnapshotEdgeReq)
}
func unpackRemoveSnapshotEdgeLogEntry(r *binpack.Reader, kind MessageKind) (RemoveSnapshotEdgeLogEntry, error) {
	var m RemoveSnapshotEdgeLogEntry
	m.kind = kind
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	m.RemoveSnapshotEdgeReq, err = unpackRemoveSnapshotEdgeReq(r)
	return m, err
}

func NewRemoveNonOwnedEdgeLogEntry(time shardtypes.TernTime, req RemoveSnapshotEdgeReq) RemoveSnapshotEdgeLogEntry {
	return RemoveSnapshotEdgeLogEntry{Time: time, RemoveSnapshotEdgeReq: req, kind: KindRemoveNonOwnedEdge}
}
func UnpackRemoveNonOwnedEdgeLogEntry(r *binpack.Reader) (RemoveSnapshotEdgeLogEntry, error) {
	return unpackRemoveSnapshotEdgeLogEntry(r, KindRemoveNonOwnedEdge)
}

func NewRemoveOwnedSnapshotFileEdgeLogEntry(time shardtypes.TernTime, req RemoveSnapshotEdgeReq) RemoveSnapshotEdgeLogEntry {
	return RemoveSnapshotEdgeLogEntry{Time: time, RemoveSnapshotEdgeReq: req, kind: KindRemoveOwnedSnapshotFileEdge}
}
func UnpackRemoveOwnedSnapshotFileEdgeLogEntry(r *binpack.Reader) (RemoveSnapshotEdgeLogEntry, error) {
	return unpackRemoveSnapshotEdgeLogEntry(r, KindRemoveOwnedSnapshotFileEdge)
}

type AddInlineSpanLogEntry struct {
	Time shardtypes.TernTime
	AddInlineSpanReq
}

func (AddInlineSpanLogEntry) Kind() MessageKind { return KindAddInlineSpan }
func (m AddInlineSpanLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	m.AddInlineSpanReq.Pack(w)
}
func UnpackAddInlineSpanLogEntry(r *binpack.Reader) (AddInlineSpanLogEntry, error) {
	var m AddInlineSpanLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	m.AddInlineSpanReq, err = UnpackAddInlineSpanReq(r)
	return m, err
}

// AddSpanInitiateLogEntry carries the fully-resolved set of locations
// the prepare path picked (spec §4.4): unlike the request, which may
// ask the shard to choose, the log entry always has concrete
// placements so apply is deterministic.
type AddSpanInitiateLogEntry struct {
	Time         shardtypes.TernTime
	FileID       shardtypes.InodeId
	ByteOffset   uint64
	SpanSize     uint32
	Crc          uint32
	StorageClass shardtypes.StorageClass
	Locations    []SpanLocation
	kind         MessageKind
}

func (m AddSpanInitiateLogEntry) Kind() MessageKind { return m.kind }
func (m AddSpanInitiateLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	w.PackU64(uint64(m.FileID))
	w.PackU64(m.ByteOffset)
	w.PackU32(m.SpanSize)
	w.PackU32(m.Crc)
	w.PackU8(uint8(m.StorageClass))
	w.PackU16(uint16(len(m.Locations)))
	for _, l := range m.Locations {
		packSpanLocation(w, l)
	}
}
func unpackAddSpanInitiateLogEntry(r *binpack.Reader, kind MessageKind) (AddSpanInitiateLogEntry, error) {
	var m AddSpanInitiateLogEntry
	m.kind = kind
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
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
	n, err := r.UnpackU16()
	if err != nil {
		return m, err
	}
	m.Locations = make([]SpanLocation, n)
	for i := range m.Locations {
		if m.Locations[i], err = unpackSpanLocation(r); err != nil {
			return m, err
		}
	}
	return m, nil
}

func NewAddSpanInitiateLogEntry(kind MessageKind, time shardtypes.TernTime, fileID shardtypes.InodeId, byteOffset uint64, spanSize, crc uint32, sc shardtypes.StorageClass, locs []SpanLocation) AddSpanInitiateLogEntry {
	return AddSpanInitiateLogEntry{Time: time, FileID: fileID, ByteOffset: byteOffset, SpanSize: spanSize, Crc: crc, StorageClass: sc, Locations: locs, kind: kind}
}

func UnpackAddSpanInitiateLogEntry(r *binpack.Reader) (AddSpanInitiateLogEntry, error) {
	return unpackAddSpanInitiateLogEntry(r, KindAddSpanInitiate)
}
func UnpackAddSpanInitiateWithReferenceLogEntry(r *binpack.Reader) (AddSpanInitiateLogEntry, error) {
	return unpackAddSpanInitiateLogEntry(r, KindAddSpanInitiateWithReference)
}
func UnpackAddSpanAtLocationInitiateLogEntry(r *binpack.Reader) (AddSpanInitiateLogEntry, error) {
	return unpackAddSpanInitiateLogEntry(r, KindAddSpanAtLocationInitiate)
}

type AddSpanCertifyLogEntry struct {
	Time shardtypes.TernTime
	AddSpanCertifyReq
}

func (AddSpanCertifyLogEntry) Kind() MessageKind { return KindAddSpanCertify }
func (m AddSpanCertifyLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	m.AddSpanCertifyReq.Pack(w)
}
func UnpackAddSpanCertifyLogEntry(r *binpack.Reader) (AddSpanCertifyLogEntry, error) {
	var m AddSpanCertifyLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	m.AddSpanCertifyReq, err = UnpackAddSpanCertifyReq(r)
	return m, err
}

type AddSpanLocationLogEntry struct {
	Time shardtypes.TernTime
	AddSpanLocationReq
}

func (AddSpanLocationLogEntry) Kind() MessageKind { return KindAddSpanLocation }
func (m AddSpanLocationLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	m.AddSpanLocationReq.Pack(w)
}
func UnpackAddSpanLocationLogEntry(r *binpack.Reader) (AddSpanLocationLogEntry, error) {
	var m AddSpanLocationLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	m.AddSpanLocationReq, err = UnpackAddSpanLocationReq(r)
	return m, err
}

type RemoveSpanInitiateLogEntry struct {
	Time shardtypes.TernTime
	RemoveSpanInitiateReq
}

func (RemoveSpanInitiateLogEntry) Kind() MessageKind { return KindRemoveSpanInitiate }
func (m RemoveSpanInitiateLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	m.RemoveSpanInitiateReq.Pack(w)
}
func UnpackRemoveSpanInitiateLogEntry(r *binpack.Reader) (RemoveSpanInitiateLogEntry, error) {
	var m RemoveSpanInitiateLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	m.RemoveSpanInitiateReq, err = UnpackRemoveSpanInitiateReq(r)
	return m, err
}

type RemoveSpanCertifyLogEntry struct {
	Time shardtypes.TernTime
	RemoveSpanCertifyReq
}

func (RemoveSpanCertifyLogEntry) Kind() MessageKind { return KindRemoveSpanCertify }
func (m RemoveSpanCertifyLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	m.RemoveSpanCertifyReq.Pack(w)
}
func UnpackRemoveSpanCertifyLogEntry(r *binpack.Reader) (RemoveSpanCertifyLogEntry, error) {
	var m RemoveSpanCertifyLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	m.RemoveSpanCertifyReq, err = UnpackRemoveSpanCertifyReq(r)
	return m, err
}

type MakeFileTransientLogEntry struct {
	Time     shardtypes.TernTime
	FileID   shardtypes.InodeId
	Note     []byte
	Deadline shardtypes.TernTime
}

func (MakeFileTransientLogEntry) Kind() MessageKind { return KindMakeFileTransient }
func (m MakeFileTransientLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	w.PackU64(uint64(m.FileID))
	w.PackShortBytes(m.Note)
	w.PackU64(uint64(m.Deadline))
}
func UnpackMakeFileTransientLogEntry(r *binpack.Reader) (MakeFileTransientLogEntry, error) {
	var m MakeFileTransientLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	id, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID = shardtypes.InodeId(id)
	if m.Note, err = r.UnpackShortBytes(); err != nil {
		return m, err
	}
	d, err := r.UnpackU64()
	m.Deadline = shardtypes.TernTime(d)
	return m, err
}

type SwapBlocksLogEntry struct {
	Time shardtypes.TernTime
	SwapBlocksReq
}

func (SwapBlocksLogEntry) Kind() MessageKind { return KindSwapBlocks }
func (m SwapBlocksLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	m.SwapBlocksReq.Pack(w)
}
func UnpackSwapBlocksLogEntry(r *binpack.Reader) (SwapBlocksLogEntry, error) {
	var m SwapBlocksLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	m.SwapBlocksReq, err = UnpackSwapBlocksReq(r)
	return m, err
}

// SwapSpansLogEntry carries, beyond the request, the block ids each
// span held at prepare time (spec §4.5.6): apply re-reads the spans
// fresh and compares against these snapshots to tell a first
// application (blocks still match Blocks1/Blocks2) from a replay
// against already-swapped state (blocks now match Blocks2/Blocks1)
// from a genuine conflict (neither matches, since some other apply
// changed the spans in between).
type SwapSpansLogEntry struct {
	Time shardtypes.TernTime
	SwapSpansReq
	Blocks1 []shardtypes.BlockId
	Blocks2 []shardtypes.BlockId
}

func (SwapSpansLogEntry) Kind() MessageKind { return KindSwapSpans }
func (m SwapSpansLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	m.SwapSpansReq.Pack(w)
	w.PackU64List(blockIDsToU64(m.Blocks1))
	w.PackU64List(blockIDsToU64(m.Blocks2))
}
func UnpackSwapSpansLogEntry(r *binpack.Reader) (SwapSpansLogEntry, error) {
	var m SwapSpansLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	if m.SwapSpansReq, err = UnpackSwapSpansReq(r); err != nil {
		return m, err
	}
	ids1, err := r.UnpackU64List()
	if err != nil {
		return m, err
	}
	m.Blocks1 = u64ToBlockIDs(ids1)
	ids2, err := r.UnpackU64List()
	if err != nil {
		return m, err
	}
	m.Blocks2 = u64ToBlockIDs(ids2)
	return m, nil
}

func blockIDsToU64(ids []shardtypes.BlockId) []uint64 {
	out := make([]uint64, len(ids))
	for i, id := range ids {
		out[i] = uint64(id)
	}
	return out
}

func u64ToBlockIDs(vs []uint64) []shardtypes.BlockId {
	out := make([]shardtypes.BlockId, len(vs))
	for i, v := range vs {
		out[i] = shardtypes.BlockId(v)
	}
	return out
}

type MoveSpanLogEntry struct {
	Time shardtypes.TernTime
	MoveSpanReq
}

func (MoveSpanLogEntry) Kind() MessageKind { return KindMoveSpan }
func (m MoveSpanLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	m.MoveSpanReq.Pack(w)
}
func UnpackMoveSpanLogEntry(r *binpack.Reader) (MoveSpanLogEntry, error) {
	var m MoveSpanLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	m.MoveSpanReq, err = UnpackMoveSpanReq(r)
	return m, err
}

type SetTimeLogEntry struct {
	Time shardtypes.TernTime
	SetTimeReq
}

func (SetTimeLogEntry) Kind() MessageKind { return KindSetTime }
func (m SetTimeLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	m.SetTimeReq.Pack(w)
}
func UnpackSetTimeLogEntry(r *binpack.Reader) (SetTimeLogEntry, error) {
	var m SetTimeLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	m.SetTimeReq, err = UnpackSetTimeReq(r)
	return m, err
}

type RemoveZeroBlockServiceFilesLogEntry struct {
	Time   shardtypes.TernTime
	Cursor []byte
}

func (RemoveZeroBlockServiceFilesLogEntry) Kind() MessageKind { return KindRemoveZeroBlockServiceFiles }
func (m RemoveZeroBlockServiceFilesLogEntry) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Time))
	w.PackBytes(m.Cursor)
}
func UnpackRemoveZeroBlockServiceFilesLogEntry(r *binpack.Reader) (RemoveZeroBlockServiceFilesLogEntry, error) {
	var m RemoveZeroBlockServiceFilesLogEntry
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Time = shardtypes.TernTime(t)
	m.Cursor, err = r.UnpackBytes()
	return m, err
}
