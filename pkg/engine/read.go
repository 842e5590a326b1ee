package engine

import (
	"github.com/ternfs/shard/pkg/binpack"
	"github.com/ternfs/shard/pkg/shardcrypto"
	"github.com/ternfs/shard/pkg/shardtypes"
	"github.com/ternfs/shard/pkg/store"
	"github.com/ternfs/shard/pkg/wire"
)

// respHeaderBudget is the packed size of the fields every paginated
// read response carries besides its entry list (count + trailing
// cursor/index fields); entries stop being added once the running
// total would exceed mtu - respHeaderBudget, matching the teacher's
// "reserve room for the envelope" approach to UDP MTU budgeting.
const respHeaderBudget = 32

// Lookup resolves a current edge by (dir, name) (spec §4.3).
func (e *Engine) Lookup(req wire.LookupReq) (wire.LookupResp, error) {
	snap := e.store.CurrentSnapshot()
	defer snap.Release()
	r := snap.ReadTxn()

	dirInfo, ok, err := r.GetDirectory(req.Dir)
	if err != nil {
		return wire.LookupResp{}, err
	}
	if !ok {
		return wire.LookupResp{}, shardtypes.Err(shardtypes.DirectoryNotFound)
	}
	hash := store.NameHash(dirInfo.HashMode, req.Name)
	edge, ok, err := r.GetCurrentEdge(req.Dir, hash, req.Name)
	if err != nil {
		return wire.LookupResp{}, err
	}
	if !ok {
		return wire.LookupResp{}, shardtypes.Err(shardtypes.NameNotFound)
	}
	return wire.LookupResp{TargetID: edge.TargetID, CreationTime: edge.CreationTime}, nil
}

// StatFile stats a committed file or symlink inode (spec §4.3).
func (e *Engine) StatFile(req wire.StatFileReq) (wire.StatFileResp, error) {
	snap := e.store.CurrentSnapshot()
	defer snap.Release()
	f, ok, err := snap.ReadTxn().GetFile(req.ID)
	if err != nil {
		return wire.StatFileResp{}, err
	}
	if !ok {
		return wire.StatFileResp{}, shardtypes.Err(shardtypes.FileNotFound)
	}
	return wire.StatFileResp{Version: f.Version, Mtime: f.Mtime, Atime: f.Atime, FileSize: f.FileSize}, nil
}

// StatTransientFile stats a file still under construction, including
// its cookie (spec §4.3, §4.2).
func (e *Engine) StatTransientFile(req wire.StatTransientFileReq) (wire.StatTransientFileResp, error) {
	snap := e.store.CurrentSnapshot()
	defer snap.Release()
	f, ok, err := snap.ReadTxn().GetTransient(req.ID)
	if err != nil {
		return wire.StatTransientFileResp{}, err
	}
	if !ok {
		return wire.StatTransientFileResp{}, shardtypes.Err(shardtypes.FileNotFound)
	}
	cookie := shardcrypto.Cookie(e.store.Key(), uint64(req.ID))
	return wire.StatTransientFileResp{
		Version:       f.Version,
		FileSize:      f.FileSize,
		Mtime:         f.Mtime,
		Deadline:      f.Deadline,
		LastSpanState: f.LastSpanState,
		Note:          f.Note,
		Cookie:        cookie,
	}, nil
}

// StatDirectory stats a directory inode (spec §4.3).
func (e *Engine) StatDirectory(req wire.StatDirectoryReq) (wire.StatDirectoryResp, error) {
	snap := e.store.CurrentSnapshot()
	defer snap.Release()
	d, ok, err := snap.ReadTxn().GetDirectory(req.ID)
	if err != nil {
		return wire.StatDirectoryResp{}, err
	}
	if !ok {
		return wire.StatDirectoryResp{}, shardtypes.Err(shardtypes.DirectoryNotFound)
	}
	return wire.StatDirectoryResp{Version: d.Version, OwnerID: d.OwnerID, Mtime: d.Mtime, HashMode: d.HashMode, Info: d.Info}, nil
}

// ReadDir pages current edges of a directory in name-hash order (spec
// §4.3, §6.2).
func (e *Engine) ReadDir(req wire.ReadDirReq) (wire.ReadDirResp, error) {
	snap := e.store.CurrentSnapshot()
	defer snap.Release()
	r := snap.ReadTxn()

	if _, ok, err := r.GetDirectory(req.Dir); err != nil {
		return wire.ReadDirResp{}, err
	} else if !ok {
		return wire.ReadDirResp{}, shardtypes.Err(shardtypes.DirectoryNotFound)
	}

	mtu := e.mtu(req.MTU)
	w := binpack.NewWriter(int(mtu))
	var entries []wire.DirEntry
	var nextHash uint64
	budget := int(mtu) - respHeaderBudget

	err := r.IterateCurrentEdges(req.Dir, req.StartHash, func(ee store.EdgeEntry) bool {
		body, uerr := store.UnpackCurrentEdgeBody(ee.Value)
		if uerr != nil {
			return false
		}
		entry := wire.DirEntry{
			NameHash:     ee.NameHash,
			Name:         ee.Name,
			TargetID:     body.TargetID,
			CreationTime: body.CreationTime,
			Current:      true,
			Locked:       body.Locked,
			Owned:        true,
		}
		before := w.Len()
		packDirEntryProbe(w, entry)
		if w.Len() > budget {
			w.Truncate(before)
			nextHash = ee.NameHash
			return false
		}
		entries = append(entries, entry)
		return true
	})
	if err != nil {
		return wire.ReadDirResp{}, err
	}

	return wire.ReadDirResp{Entries: entries, NextHash: nextHash, LastAppliedLogIndex: snap.LastAppliedLogIndex()}, nil
}

// FullReadDir pages current and/or snapshot edges, forward or
// backward, optionally restricted to one name (spec §4.3, §6.2).
func (e *Engine) FullReadDir(req wire.FullReadDirReq) (wire.FullReadDirResp, error) {
	snap := e.store.CurrentSnapshot()
	defer snap.Release()
	r := snap.ReadTxn()

	if _, ok, err := r.GetDirectory(req.Dir); err != nil {
		return wire.FullReadDirResp{}, err
	} else if !ok {
		return wire.FullReadDirResp{}, shardtypes.Err(shardtypes.DirectoryNotFound)
	}

	backwards := req.Flags&wire.FullReadDirBackwards != 0
	onlyCurrent := req.Flags&wire.FullReadDirCurrent != 0
	sameName := req.Flags&wire.FullReadDirSameName != 0
	if sameName && len(req.StartName) == 0 {
		return wire.FullReadDirResp{}, shardtypes.Err(shardtypes.BadName)
	}

	var lower, upper []byte
	switch {
	case sameName:
		dirInfo, _, err := r.GetDirectory(req.Dir)
		if err != nil {
			return wire.FullReadDirResp{}, err
		}
		hash := store.NameHash(dirInfo.HashMode, req.StartName)
		lower = store.KeySnapshotEdge(req.Dir, hash, req.StartName, 0)
		upper = store.KeySnapshotEdge(req.Dir, hash, req.StartName, ^shardtypes.TernTime(0))
	case onlyCurrent:
		lower = store.EdgeCurrentPrefix(req.Dir)
		upper = nextPrefix(lower)
	default:
		lower = store.EdgePrefix(req.Dir)
		upper = nextPrefix(lower)
	}

	mtu := e.mtu(req.MTU)
	w := binpack.NewWriter(int(mtu))
	budget := int(mtu) - respHeaderBudget
	var entries []wire.DirEntry
	var nextName []byte
	var nextTime shardtypes.TernTime
	limit := int(req.Limit)
	if limit <= 0 {
		limit = 1 << 16
	}

	err := r.IterateEdgesRange(lower, upper, backwards, func(ee store.EdgeEntry) bool {
		if len(entries) >= limit {
			nextName = ee.Name
			nextTime = ee.CreationTime
			return false
		}
		var target shardtypes.InodeId
		var locked, owned bool
		var creationTime shardtypes.TernTime
		if ee.Current {
			body, uerr := store.UnpackCurrentEdgeBody(ee.Value)
			if uerr != nil {
				return false
			}
			target, locked, creationTime, owned = body.TargetID, body.Locked, body.CreationTime, true
		} else {
			body, uerr := store.UnpackSnapshotEdgeBody(ee.Value)
			if uerr != nil {
				return false
			}
			target, creationTime, owned = body.TargetID, ee.CreationTime, body.Owned
		}
		entry := wire.DirEntry{
			NameHash:     ee.NameHash,
			Name:         ee.Name,
			TargetID:     target,
			CreationTime: creationTime,
			Current:      ee.Current,
			Locked:       locked,
			Owned:        owned,
		}
		before := w.Len()
		packDirEntryProbe(w, entry)
		if w.Len() > budget {
			w.Truncate(before)
			nextName = ee.Name
			nextTime = ee.CreationTime
			return false
		}
		entries = append(entries, entry)
		return true
	})
	if err != nil {
		return wire.FullReadDirResp{}, err
	}

	return wire.FullReadDirResp{
		Entries:             entries,
		NextName:            nextName,
		NextTime:            nextTime,
		LastAppliedLogIndex: snap.LastAppliedLogIndex(),
	}, nil
}

// LocalFileSpans pages a file's spans restricted to one location
// (spec §4.3).
func (e *Engine) LocalFileSpans(req wire.LocalFileSpansReq) (wire.LocalFileSpansResp, error) {
	spans, next, idx, err := e.fileSpans(req.FileID, req.ByteOffset, req.Limit, e.mtu(req.MTU), &req.LocationID)
	if err != nil {
		return wire.LocalFileSpansResp{}, err
	}
	return wire.LocalFileSpansResp{SpansResp: wire.SpansResp{Spans: spans, NextOffset: next, LastAppliedLogIndex: idx}}, nil
}

// FileSpans pages all of a file's spans (spec §4.3). Each blocked span
// is reported at its primary (first) location only; its other
// locations are not included.
func (e *Engine) FileSpans(req wire.FileSpansReq) (wire.FileSpansResp, error) {
	spans, next, idx, err := e.fileSpans(req.FileID, req.ByteOffset, req.Limit, e.mtu(req.MTU), nil)
	if err != nil {
		return wire.FileSpansResp{}, err
	}
	return wire.FileSpansResp{SpansResp: wire.SpansResp{Spans: spans, NextOffset: next, LastAppliedLogIndex: idx}}, nil
}

func (e *Engine) fileSpans(fileID shardtypes.InodeId, startOffset uint64, limit uint16, mtu uint32, onlyLocation *shardtypes.LocationId) ([]wire.SpanEntry, uint64, uint64, error) {
	snap := e.store.CurrentSnapshot()
	defer snap.Release()
	r := snap.ReadTxn()

	w := binpack.NewWriter(int(mtu))
	budget := int(mtu) - respHeaderBudget
	var out []wire.SpanEntry
	var nextOffset uint64
	lim := int(limit)
	if lim <= 0 {
		lim = 1 << 16
	}

	err := r.IterateSpans(fileID, startOffset, func(offset uint64, body store.SpanBody) bool {
		if len(out) >= lim {
			nextOffset = offset
			return false
		}
		entry, ok := spanEntryFromBody(offset, body, onlyLocation)
		if !ok {
			return true
		}
		before := w.Len()
		packSpanEntryProbe(w, entry)
		if w.Len() > budget {
			w.Truncate(before)
			nextOffset = offset
			return false
		}
		out = append(out, entry)
		return true
	})
	if err != nil {
		return nil, 0, 0, err
	}
	return out, nextOffset, snap.LastAppliedLogIndex(), nil
}

func spanEntryFromBody(offset uint64, body store.SpanBody, onlyLocation *shardtypes.LocationId) (wire.SpanEntry, bool) {
	entry := wire.SpanEntry{ByteOffset: offset, SpanSize: body.SpanSize, Crc: body.Crc, StorageClass: body.StorageClass}
	if !body.StorageClass.IsBlocked() {
		entry.InlineBody = body.InlineBody
		return entry, true
	}
	var loc store.LocationBlocksBody
	var ok bool
	if onlyLocation != nil {
		loc, ok = body.LocationByID(*onlyLocation)
	} else {
		loc, ok = body.PrimaryLocation()
	}
	if !ok {
		return entry, false
	}
	entry.LocationID = loc.LocationID
	entry.Parity = loc.Parity
	entry.Stripes = loc.Stripes
	entry.CellSize = loc.CellSize
	entry.StripeCrcs = loc.StripeCrcs
	entry.Blocks = make([]wire.BlockEntry, len(loc.Blocks))
	for i, b := range loc.Blocks {
		entry.Blocks[i] = wire.BlockEntry{BlockServiceID: b.BlockServiceID, BlockID: b.BlockID, Crc: b.Crc}
	}
	return entry, true
}

// VisitDirectories pages raw directory inode ids for GC/scrub workers
// (spec §4.3).
func (e *Engine) VisitDirectories(req wire.VisitDirectoriesReq) (wire.VisitDirectoriesResp, error) {
	ids, next, err := e.visitInodes(store.CfDirectories, req.StartID, req.Limit)
	if err != nil {
		return wire.VisitDirectoriesResp{}, err
	}
	return wire.VisitDirectoriesResp{VisitResp: wire.VisitResp{IDs: ids, NextID: next}}, nil
}

// VisitFiles pages raw committed-file inode ids (spec §4.3).
func (e *Engine) VisitFiles(req wire.VisitFilesReq) (wire.VisitFilesResp, error) {
	ids, next, err := e.visitInodes(store.CfFiles, req.StartID, req.Limit)
	if err != nil {
		return wire.VisitFilesResp{}, err
	}
	return wire.VisitFilesResp{VisitResp: wire.VisitResp{IDs: ids, NextID: next}}, nil
}

// VisitTransientFiles pages raw transient-file inode ids, the set GC
// sweeps for expired deadlines (spec §4.3).
func (e *Engine) VisitTransientFiles(req wire.VisitTransientFilesReq) (wire.VisitTransientFilesResp, error) {
	ids, next, err := e.visitInodes(store.CfTransient, req.StartID, req.Limit)
	if err != nil {
		return wire.VisitTransientFilesResp{}, err
	}
	return wire.VisitTransientFilesResp{VisitResp: wire.VisitResp{IDs: ids, NextID: next}}, nil
}

func (e *Engine) visitInodes(cf byte, startID shardtypes.InodeId, limit uint16) ([]shardtypes.InodeId, shardtypes.InodeId, error) {
	snap := e.store.CurrentSnapshot()
	defer snap.Release()

	lim := int(limit)
	if lim <= 0 {
		lim = 1 << 16
	}
	var ids []shardtypes.InodeId
	var next shardtypes.InodeId
	err := snap.ReadTxn().IterateInodes(cf, startID, func(id shardtypes.InodeId, _ []byte) bool {
		if len(ids) >= lim {
			next = id
			return false
		}
		ids = append(ids, id)
		return true
	})
	if err != nil {
		return nil, 0, err
	}
	return ids, next, nil
}

// BlockServiceFiles returns the first file id at or after StartFile
// with a positive block count on BS, the primitive the block-service
// reverse-index GC sweep pages through (spec §4.3, §3).
func (e *Engine) BlockServiceFiles(req wire.BlockServiceFilesReq) (wire.BlockServiceFilesResp, error) {
	snap := e.store.CurrentSnapshot()
	defer snap.Release()

	var resp wire.BlockServiceFilesResp
	err := snap.ReadTxn().IterateBlockServiceFiles(req.BS, req.StartFile, func(fileID shardtypes.InodeId, count int64) bool {
		resp = wire.BlockServiceFilesResp{FileID: fileID, Count: count, Found: true}
		return false
	})
	if err != nil {
		return wire.BlockServiceFilesResp{}, err
	}
	return resp, nil
}

// nextPrefix returns the smallest byte string greater than every
// string with prefix p, used to turn a prefix into an exclusive upper
// bound for IterateEdgesRange.
func nextPrefix(p []byte) []byte {
	up := make([]byte, len(p))
	copy(up, p)
	for i := len(up) - 1; i >= 0; i-- {
		if up[i] < 0xFF {
			up[i]++
			return up[:i+1]
		}
	}
	return nil // all-0xFF prefix, no finite upper bound needed in practice
}

func packDirEntryProbe(w *binpack.Writer, e wire.DirEntry) {
	w.PackU64(e.NameHash)
	w.PackShortBytes(e.Name)
	w.PackU64(uint64(e.TargetID))
	w.PackU64(uint64(e.CreationTime))
	w.PackBool(e.Current)
	w.PackBool(e.Locked)
	w.PackBool(e.Owned)
}

func packSpanEntryProbe(w *binpack.Writer, s wire.SpanEntry) {
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
