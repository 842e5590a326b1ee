package wire

import (
	"github.com/ternfs/shard/pkg/binpack"
	"github.com/ternfs/shard/pkg/shardtypes"
)

func packName(w *binpack.Writer, name []byte) { w.PackShortBytes(name) }
func unpackName(r *binpack.Reader) ([]byte, error) { return r.UnpackShortBytes() }

// LookupReq resolves a single current edge by (dir, name).
type LookupReq struct {
	Dir  shardtypes.InodeId
	Name []byte
}

func (LookupReq) Kind() MessageKind { return KindLookup }

func (m LookupReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Dir))
	packName(w, m.Name)
}

func UnpackLookupReq(r *binpack.Reader) (LookupReq, error) {
	dir, err := r.UnpackU64()
	if err != nil {
		return LookupReq{}, err
	}
	name, err := unpackName(r)
	if err != nil {
		return LookupReq{}, err
	}
	return LookupReq{Dir: shardtypes.InodeId(dir), Name: name}, nil
}

// LookupResp reports the current edge's target and creation time.
type LookupResp struct {
	TargetID     shardtypes.InodeId
	CreationTime shardtypes.TernTime
}

func (LookupResp) Kind() MessageKind { return KindLookup }

func (m LookupResp) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.TargetID))
	w.PackU64(uint64(m.CreationTime))
}

func UnpackLookupResp(r *binpack.Reader) (LookupResp, error) {
	t, err := r.UnpackU64()
	if err != nil {
		return LookupResp{}, err
	}
	ct, err := r.UnpackU64()
	if err != nil {
		return LookupResp{}, err
	}
	return LookupResp{TargetID: shardtypes.InodeId(t), CreationTime: shardtypes.TernTime(ct)}, nil
}

// StatFileReq/StatTransientFileReq/StatDirectoryReq each stat a
// single inode of the matching kind.
type StatFileReq struct{ ID shardtypes.InodeId }

func (StatFileReq) Kind() MessageKind             { return KindStatFile }
func (m StatFileReq) Pack(w *binpack.Writer)      { w.PackU64(uint64(m.ID)) }
func UnpackStatFileReq(r *binpack.Reader) (StatFileReq, error) {
	id, err := r.UnpackU64()
	return StatFileReq{ID: shardtypes.InodeId(id)}, err
}

type StatFileResp struct {
	Version  uint64
	Mtime    shardtypes.TernTime
	Atime    shardtypes.TernTime
	FileSize uint64
}

func (StatFileResp) Kind() MessageKind { return KindStatFile }
func (m StatFileResp) Pack(w *binpack.Writer) {
	w.PackU64(m.Version)
	w.PackU64(uint64(m.Mtime))
	w.PackU64(uint64(m.Atime))
	w.PackU64(m.FileSize)
}
func UnpackStatFileResp(r *binpack.Reader) (StatFileResp, error) {
	var m StatFileResp
	var err error
	if m.Version, err = r.UnpackU64(); err != nil {
		return m, err
	}
	var t uint64
	if t, err = r.UnpackU64(); err != nil {
		return m, err
	}
	m.Mtime = shardtypes.TernTime(t)
	if t, err = r.UnpackU64(); err != nil {
		return m, err
	}
	m.Atime = shardtypes.TernTime(t)
	m.FileSize, err = r.UnpackU64()
	return m, err
}

type StatTransientFileReq struct{ ID shardtypes.InodeId }

func (StatTransientFileReq) Kind() MessageKind { return KindStatTransientFile }
func (m StatTransientFileReq) Pack(w *binpack.Writer) { w.PackU64(uint64(m.ID)) }
func UnpackStatTransientFileReq(r *binpack.Reader) (StatTransientFileReq, error) {
	id, err := r.UnpackU64()
	return StatTransientFileReq{ID: shardtypes.InodeId(id)}, err
}

type StatTransientFileResp struct {
	Version       uint64
	FileSize      uint64
	Mtime         shardtypes.TernTime
	Deadline      shardtypes.TernTime
	LastSpanState shardtypes.LastSpanState
	Note          []byte
	Cookie        [8]byte
}

func (StatTransientFileResp) Kind() MessageKind { return KindStatTransientFile }
func (m StatTransientFileResp) Pack(w *binpack.Writer) {
	w.PackU64(m.Version)
	w.PackU64(m.FileSize)
	w.PackU64(uint64(m.Mtime))
	w.PackU64(uint64(m.Deadline))
	w.PackU8(uint8(m.LastSpanState))
	w.PackShortBytes(m.Note)
	w.PackFixedBytes(m.Cookie[:])
}
func UnpackStatTransientFileResp(r *binpack.Reader) (StatTransientFileResp, error) {
	var m StatTransientFileResp
	var err error
	if m.Version, err = r.UnpackU64(); err != nil {
		return m, err
	}
	if m.FileSize, err = r.UnpackU64(); err != nil {
		return m, err
	}
	var t uint64
	if t, err = r.UnpackU64(); err != nil {
		return m, err
	}
	m.Mtime = shardtypes.TernTime(t)
	if t, err = r.UnpackU64(); err != nil {
		return m, err
	}
	m.Deadline = shardtypes.TernTime(t)
	var state uint8
	if state, err = r.UnpackU8(); err != nil {
		return m, err
	}
	m.LastSpanState = shardtypes.LastSpanState(state)
	if m.Note, err = r.UnpackShortBytes(); err != nil {
		return m, err
	}
	cookie, err := r.UnpackFixedBytes(8)
	if err != nil {
		return m, err
	}
	copy(m.Cookie[:], cookie)
	return m, nil
}

type StatDirectoryReq struct{ ID shardtypes.InodeId }

func (StatDirectoryReq) Kind() MessageKind { return KindStatDirectory }
func (m StatDirectoryReq) Pack(w *binpack.Writer) { w.PackU64(uint64(m.ID)) }
func UnpackStatDirectoryReq(r *binpack.Reader) (StatDirectoryReq, error) {
	id, err := r.UnpackU64()
	return StatDirectoryReq{ID: shardtypes.InodeId(id)}, err
}

type StatDirectoryResp struct {
	Version  uint64
	OwnerID  shardtypes.InodeId
	Mtime    shardtypes.TernTime
	HashMode shardtypes.HashMode
	Info     []byte
}

func (StatDirectoryResp) Kind() MessageKind { return KindStatDirectory }
func (m StatDirectoryResp) Pack(w *binpack.Writer) {
	w.PackU64(m.Version)
	w.PackU64(uint64(m.OwnerID))
	w.PackU64(uint64(m.Mtime))
	w.PackU8(uint8(m.HashMode))
	w.PackBytes(m.Info)
}
func UnpackStatDirectoryResp(r *binpack.Reader) (StatDirectoryResp, error) {
	var m StatDirectoryResp
	var err error
	if m.Version, err = r.UnpackU64(); err != nil {
		return m, err
	}
	var id uint64
	if id, err = r.UnpackU64(); err != nil {
		return m, err
	}
	m.OwnerID = shardtypes.InodeId(id)
	var t uint64
	if t, err = r.UnpackU64(); err != nil {
		return m, err
	}
	m.Mtime = shardtypes.TernTime(t)
	var hm uint8
	if hm, err = r.UnpackU8(); err != nil {
		return m, err
	}
	m.HashMode = shardtypes.HashMode(hm)
	m.Info, err = r.UnpackBytes()
	return m, err
}

// ReadDirReq pages current edges only, by stable name-hash.
type ReadDirReq struct {
	Dir       shardtypes.InodeId
	StartHash uint64
	MTU       uint32
}

func (ReadDirReq) Kind() MessageKind { return KindReadDir }
func (m ReadDirReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Dir))
	w.PackU64(m.StartHash)
	w.PackU32(m.MTU)
}
func UnpackReadDirReq(r *binpack.Reader) (ReadDirReq, error) {
	var m ReadDirReq
	dir, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	hash, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	mtu, err := r.UnpackU32()
	if err != nil {
		return m, err
	}
	return ReadDirReq{Dir: shardtypes.InodeId(dir), StartHash: hash, MTU: mtu}, nil
}

// DirEntry is one edge returned by ReadDir/FullReadDir.
type DirEntry struct {
	NameHash     uint64
	Name         []byte
	TargetID     shardtypes.InodeId
	CreationTime shardtypes.TernTime
	Current      bool
	Locked       bool
	Owned        bool
}

func packDirEntry(w *binpack.Writer, e DirEntry) {
	w.PackU64(e.NameHash)
	packName(w, e.Name)
	w.PackU64(uint64(e.TargetID))
	w.PackU64(uint64(e.CreationTime))
	w.PackBool(e.Current)
	w.PackBool(e.Locked)
	w.PackBool(e.Owned)
}

func unpackDirEntry(r *binpack.Reader) (DirEntry, error) {
	var e DirEntry
	var err error
	if e.NameHash, err = r.UnpackU64(); err != nil {
		return e, err
	}
	if e.Name, err = unpackName(r); err != nil {
		return e, err
	}
	var id, ct uint64
	if id, err = r.UnpackU64(); err != nil {
		return e, err
	}
	e.TargetID = shardtypes.InodeId(id)
	if ct, err = r.UnpackU64(); err != nil {
		return e, err
	}
	e.CreationTime = shardtypes.TernTime(ct)
	if e.Current, err = r.UnpackBool(); err != nil {
		return e, err
	}
	if e.Locked, err = r.UnpackBool(); err != nil {
		return e, err
	}
	e.Owned, err = r.UnpackBool()
	return e, err
}

// ReadDirResp carries one page of current edges plus a continuation
// cursor (next_hash == 0 with len(Entries)==0 meaning exhausted, by
// convention of the caller checking against the edge that produced
// it — the engine itself never emits a sentinel distinct from 0).
type ReadDirResp struct {
	Entries             []DirEntry
	NextHash            uint64
	LastAppliedLogIndex uint64
}

func (ReadDirResp) Kind() MessageKind { return KindReadDir }
func (m ReadDirResp) Pack(w *binpack.Writer) {
	w.PackU16(uint16(len(m.Entries)))
	for _, e := range m.Entries {
		packDirEntry(w, e)
	}
	w.PackU64(m.NextHash)
	w.PackU64(m.LastAppliedLogIndex)
}
func UnpackReadDirResp(r *binpack.Reader) (ReadDirResp, error) {
	var m ReadDirResp
	n, err := r.UnpackU16()
	if err != nil {
		return m, err
	}
	m.Entries = make([]DirEntry, n)
	for i := range m.Entries {
		if m.Entries[i], err = unpackDirEntry(r); err != nil {
			return m, err
		}
	}
	if m.NextHash, err = r.UnpackU64(); err != nil {
		return m, err
	}
	m.LastAppliedLogIndex, err = r.UnpackU64()
	return m, err
}

// FullReadDir flag bits (spec §6.2).
const (
	FullReadDirCurrent   uint8 = 1
	FullReadDirBackwards uint8 = 2
	FullReadDirSameName  uint8 = 4
)

// FullReadDirReq pages current and/or snapshot edges, forward or
// backward, optionally restricted to one name.
type FullReadDirReq struct {
	Dir       shardtypes.InodeId
	Flags     uint8
	StartName []byte
	StartTime shardtypes.TernTime
	Limit     uint16
	MTU       uint32
}

func (FullReadDirReq) Kind() MessageKind { return KindFullReadDir }
func (m FullReadDirReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.Dir))
	w.PackU8(m.Flags)
	packName(w, m.StartName)
	w.PackU64(uint64(m.StartTime))
	w.PackU16(m.Limit)
	w.PackU32(m.MTU)
}
func UnpackFullReadDirReq(r *binpack.Reader) (FullReadDirReq, error) {
	var m FullReadDirReq
	dir, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.Dir = shardtypes.InodeId(dir)
	if m.Flags, err = r.UnpackU8(); err != nil {
		return m, err
	}
	if m.StartName, err = unpackName(r); err != nil {
		return m, err
	}
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.StartTime = shardtypes.TernTime(t)
	if m.Limit, err = r.UnpackU16(); err != nil {
		return m, err
	}
	m.MTU, err = r.UnpackU32()
	return m, err
}

type FullReadDirResp struct {
	Entries             []DirEntry
	NextName            []byte
	NextTime            shardtypes.TernTime
	LastAppliedLogIndex uint64
}

func (FullReadDirResp) Kind() MessageKind { return KindFullReadDir }
func (m FullReadDirResp) Pack(w *binpack.Writer) {
	w.PackU16(uint16(len(m.Entries)))
	for _, e := range m.Entries {
		packDirEntry(w, e)
	}
	packName(w, m.NextName)
	w.PackU64(uint64(m.NextTime))
	w.PackU64(m.LastAppliedLogIndex)
}
func UnpackFullReadDirResp(r *binpack.Reader) (FullReadDirResp, error) {
	var m FullReadDirResp
	n, err := r.UnpackU16()
	if err != nil {
		return m, err
	}
	m.Entries = make([]DirEntry, n)
	for i := range m.Entries {
		if m.Entries[i], err = unpackDirEntry(r); err != nil {
			return m, err
		}
	}
	if m.NextName, err = unpackName(r); err != nil {
		return m, err
	}
	t, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.NextTime = shardtypes.TernTime(t)
	m.LastAppliedLogIndex, err = r.UnpackU64()
	return m, err
}

// BlockEntry is one block placement returned by LocalFileSpans/FileSpans.
type BlockEntry struct {
	BlockServiceID shardtypes.BlockServiceId
	BlockID        shardtypes.BlockId
	Crc            uint32
}

// SpanEntry is one span returned by LocalFileSpans/FileSpans, with
// enough of the location shape to let a client fetch bytes.
type SpanEntry struct {
	ByteOffset   uint64
	SpanSize     uint32
	Crc          uint32
	StorageClass shardtypes.StorageClass
	InlineBody   []byte
	LocationID   shardtypes.LocationId
	Parity       shardtypes.Parity
	Stripes      uint8
	CellSize     uint32
	Blocks       []BlockEntry
	StripeCrcs   []uint32
}

func packSpanEntry(w *binpack.Writer, s SpanEntry) {
	w.PackU64(s.ByteOffset)
	w.PackU32(s.SpanSize)
	w.PackU32(s.Crc)
	w.PackU8(uint8(s.StorageClass))
	if s.StorageClass.IsBlocked() {
		w.PackU8(uint8(s.LocationID))
		w.PackU8(s.Parity.D)
		w.PackU8(s.Parity.P)
		w.PackU8(s.Stripes)
		w.PackU32(s.CellSize)
		w.PackU16(uint16(len(s.Blocks)))
		for _, b := range s.Blocks {
			w.PackU64(uint64(b.BlockServiceID))
			w.PackU64(uint64(b.BlockID))
			w.PackU32(b.Crc)
		}
		w.PackU32List(s.StripeCrcs)
	} else {
		w.PackBytes(s.InlineBody)
	}
}

func unpackSpanEntry(r *binpack.Reader) (SpanEntry, error) {
	var s SpanEntry
	var err error
	if s.ByteOffset, err = r.UnpackU64(); err != nil {
		return s, err
	}
	if s.SpanSize, err = r.UnpackU32(); err != nil {
		return s, err
	}
	if s.Crc, err = r.UnpackU32(); err != nil {
		return s, err
	}
	sc, err := r.UnpackU8()
	if err != nil {
		return s, err
	}
	s.StorageClass = shardtypes.StorageClass(sc)
	if s.StorageClass.IsBlocked() {
		loc, err := r.UnpackU8()
		if err != nil {
			return s, err
		}
		s.LocationID = shardtypes.LocationId(loc)
		if s.Parity.D, err = r.UnpackU8(); err != nil {
			return s, err
		}
		if s.Parity.P, err = r.UnpackU8(); err != nil {
			return s, err
		}
		if s.Stripes, err = r.UnpackU8(); err != nil {
			return s, err
		}
		if s.CellSize, err = r.UnpackU32(); err != nil {
			return s, err
		}
		n, err := r.UnpackU16()
		if err != nil {
			return s, err
		}
		s.Blocks = make([]BlockEntry, n)
		for i := range s.Blocks {
			bs, err := r.UnpackU64()
			if err != nil {
				return s, err
			}
			bid, err := r.UnpackU64()
			if err != nil {
				return s, err
			}
			crc, err := r.UnpackU32()
			if err != nil {
				return s, err
			}
			s.Blocks[i] = BlockEntry{BlockServiceID: shardtypes.BlockServiceId(bs), BlockID: shardtypes.BlockId(bid), Crc: crc}
		}
		s.StripeCrcs, err = r.UnpackU32List()
		if err != nil {
			return s, err
		}
	} else {
		s.InlineBody, err = r.UnpackBytes()
		if err != nil {
			return s, err
		}
	}
	return s, nil
}

// LocalFileSpansReq/FileSpansReq share the same shape: spans
// intersecting [ByteOffset, inf) subject to Limit and MTU.
// LocalFileSpansReq additionally restricts to one location.
type LocalFileSpansReq struct {
	FileID     shardtypes.InodeId
	ByteOffset uint64
	LocationID shardtypes.LocationId
	Limit      uint16
	MTU        uint32
}

func (LocalFileSpansReq) Kind() MessageKind { return KindLocalFileSpans }
func (m LocalFileSpansReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.FileID))
	w.PackU64(m.ByteOffset)
	w.PackU8(uint8(m.LocationID))
	w.PackU16(m.Limit)
	w.PackU32(m.MTU)
}
func UnpackLocalFileSpansReq(r *binpack.Reader) (LocalFileSpansReq, error) {
	var m LocalFileSpansReq
	id, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID = shardtypes.InodeId(id)
	if m.ByteOffset, err = r.UnpackU64(); err != nil {
		return m, err
	}
	loc, err := r.UnpackU8()
	if err != nil {
		return m, err
	}
	m.LocationID = shardtypes.LocationId(loc)
	if m.Limit, err = r.UnpackU16(); err != nil {
		return m, err
	}
	m.MTU, err = r.UnpackU32()
	return m, err
}

type FileSpansReq struct {
	FileID     shardtypes.InodeId
	ByteOffset uint64
	Limit      uint16
	MTU        uint32
}

func (FileSpansReq) Kind() MessageKind { return KindFileSpans }
func (m FileSpansReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.FileID))
	w.PackU64(m.ByteOffset)
	w.PackU16(m.Limit)
	w.PackU32(m.MTU)
}
func UnpackFileSpansReq(r *binpack.Reader) (FileSpansReq, error) {
	var m FileSpansReq
	id, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID = shardtypes.InodeId(id)
	if m.ByteOffset, err = r.UnpackU64(); err != nil {
		return m, err
	}
	if m.Limit, err = r.UnpackU16(); err != nil {
		return m, err
	}
	m.MTU, err = r.UnpackU32()
	return m, err
}

// SpansResp is shared by LocalFileSpans and FileSpans responses.
type SpansResp struct {
	Spans               []SpanEntry
	NextOffset          uint64
	LastAppliedLogIndex uint64
}

func packSpansResp(w *binpack.Writer, m SpansResp) {
	w.PackU16(uint16(len(m.Spans)))
	for _, s := range m.Spans {
		packSpanEntry(w, s)
	}
	w.PackU64(m.NextOffset)
	w.PackU64(m.LastAppliedLogIndex)
}

func unpackSpansResp(r *binpack.Reader) (SpansResp, error) {
	var m SpansResp
	n, err := r.UnpackU16()
	if err != nil {
		return m, err
	}
	m.Spans = make([]SpanEntry, n)
	for i := range m.Spans {
		if m.Spans[i], err = unpackSpanEntry(r); err != nil {
			return m, err
		}
	}
	if m.NextOffset, err = r.UnpackU64(); err != nil {
		return m, err
	}
	m.LastAppliedLogIndex, err = r.UnpackU64()
	return m, err
}

type LocalFileSpansResp struct{ SpansResp }

func (LocalFileSpansResp) Kind() MessageKind       { return KindLocalFileSpans }
func (m LocalFileSpansResp) Pack(w *binpack.Writer) { packSpansResp(w, m.SpansResp) }
func UnpackLocalFileSpansResp(r *binpack.Reader) (LocalFileSpansResp, error) {
	s, err := unpackSpansResp(r)
	return LocalFileSpansResp{s}, err
}

type FileSpansResp struct{ SpansResp }

func (FileSpansResp) Kind() MessageKind       { return KindFileSpans }
func (m FileSpansResp) Pack(w *binpack.Writer) { packSpansResp(w, m.SpansResp) }
func UnpackFileSpansResp(r *binpack.Reader) (FileSpansResp, error) {
	s, err := unpackSpansResp(r)
	return FileSpansResp{s}, err
}

// VisitDirectoriesReq/VisitFilesReq/VisitTransientFilesReq page raw
// inode ids for GC workers.
type VisitReq struct {
	StartID shardtypes.InodeId
	Limit   uint16
}

func packVisitReq(w *binpack.Writer, m VisitReq) {
	w.PackU64(uint64(m.StartID))
	w.PackU16(m.Limit)
}
func unpackVisitReq(r *binpack.Reader) (VisitReq, error) {
	var m VisitReq
	id, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.StartID = shardtypes.InodeId(id)
	m.Limit, err = r.UnpackU16()
	return m, err
}

type VisitDirectoriesReq struct{ VisitReq }

func (VisitDirectoriesReq) Kind() MessageKind       { return KindVisitDirectories }
func (m VisitDirectoriesReq) Pack(w *binpack.Writer) { packVisitReq(w, m.VisitReq) }
func UnpackVisitDirectoriesReq(r *binpack.Reader) (VisitDirectoriesReq, error) {
	v, err := unpackVisitReq(r)
	return VisitDirectoriesReq{v}, err
}

type VisitFilesReq struct{ VisitReq }

func (VisitFilesReq) Kind() MessageKind       { return KindVisitFiles }
func (m VisitFilesReq) Pack(w *binpack.Writer) { packVisitReq(w, m.VisitReq) }
func UnpackVisitFilesReq(r *binpack.Reader) (VisitFilesReq, error) {
	v, err := unpackVisitReq(r)
	return VisitFilesReq{v}, err
}

type VisitTransientFilesReq struct{ VisitReq }

func (VisitTransientFilesReq) Kind() MessageKind       { return KindVisitTransientFiles }
func (m VisitTransientFilesReq) Pack(w *binpack.Writer) { packVisitReq(w, m.VisitReq) }
func UnpackVisitTransientFilesReq(r *binpack.Reader) (VisitTransientFilesReq, error) {
	v, err := unpackVisitReq(r)
	return VisitTransientFilesReq{v}, err
}

// VisitResp is shared by all three Visit* responses: a page of raw
// inode ids plus a continuation cursor (NextID == 0 means exhausted).
type VisitResp struct {
	IDs    []shardtypes.InodeId
	NextID shardtypes.InodeId
}

func packVisitResp(w *binpack.Writer, m VisitResp) {
	w.PackU16(uint16(len(m.IDs)))
	for _, id := range m.IDs {
		w.PackU64(uint64(id))
	}
	w.PackU64(uint64(m.NextID))
}
func unpackVisitResp(r *binpack.Reader) (VisitResp, error) {
	var m VisitResp
	n, err := r.UnpackU16()
	if err != nil {
		return m, err
	}
	m.IDs = make([]shardtypes.InodeId, n)
	for i := range m.IDs {
		v, err := r.UnpackU64()
		if err != nil {
			return m, err
		}
		m.IDs[i] = shardtypes.InodeId(v)
	}
	id, err := r.UnpackU64()
	m.NextID = shardtypes.InodeId(id)
	return m, err
}

type VisitDirectoriesResp struct{ VisitResp }

func (VisitDirectoriesResp) Kind() MessageKind       { return KindVisitDirectories }
func (m VisitDirectoriesResp) Pack(w *binpack.Writer) { packVisitResp(w, m.VisitResp) }
func UnpackVisitDirectoriesResp(r *binpack.Reader) (VisitDirectoriesResp, error) {
	v, err := unpackVisitResp(r)
	return VisitDirectoriesResp{v}, err
}

type VisitFilesResp struct{ VisitResp }

func (VisitFilesResp) Kind() MessageKind       { return KindVisitFiles }
func (m VisitFilesResp) Pack(w *binpack.Writer) { packVisitResp(w, m.VisitResp) }
func UnpackVisitFilesResp(r *binpack.Reader) (VisitFilesResp, error) {
	v, err := unpackVisitResp(r)
	return VisitFilesResp{v}, err
}

type VisitTransientFilesResp struct{ VisitResp }

func (VisitTransientFilesResp) Kind() MessageKind       { return KindVisitTransientFiles }
func (m VisitTransientFilesResp) Pack(w *binpack.Writer) { packVisitResp(w, m.VisitResp) }
func UnpackVisitTransientFilesResp(r *binpack.Reader) (VisitTransientFilesResp, error) {
	v, err := unpackVisitResp(r)
	return VisitTransientFilesResp{v}, err
}

// BlockServiceFilesReq returns the first file id with a positive
// block count at or after StartFile for block service BS.
type BlockServiceFilesReq struct {
	BS        shardtypes.BlockServiceId
	StartFile shardtypes.InodeId
}

func (BlockServiceFilesReq) Kind() MessageKind { return KindBlockServiceFiles }
func (m BlockServiceFilesReq) Pack(w *binpack.Writer) {
	w.PackU64(uint64(m.BS))
	w.PackU64(uint64(m.StartFile))
}
func UnpackBlockServiceFilesReq(r *binpack.Reader) (BlockServiceFilesReq, error) {
	var m BlockServiceFilesReq
	bs, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.BS = shardtypes.BlockServiceId(bs)
	f, err := r.UnpackU64()
	m.StartFile = shardtypes.InodeId(f)
	return m, err
}

type BlockServiceFilesResp struct {
	FileID shardtypes.InodeId
	Count  int64
	Found  bool
}

func (BlockServiceFilesResp) Kind() MessageKind { return KindBlockServiceFiles }
func (m BlockServiceFilesResp) Pack(w *binpack.Writer) {
	w.PackBool(m.Found)
	w.PackU64(uint64(m.FileID))
	w.PackI64(m.Count)
}
func UnpackBlockServiceFilesResp(r *binpack.Reader) (BlockServiceFilesResp, error) {
	var m BlockServiceFilesResp
	var err error
	if m.Found, err = r.UnpackBool(); err != nil {
		return m, err
	}
	id, err := r.UnpackU64()
	if err != nil {
		return m, err
	}
	m.FileID = shardtypes.InodeId(id)
	m.Count, err = r.UnpackI64()
	return m, err
}
