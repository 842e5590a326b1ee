package engine

import (
	"github.com/ternfs/shard/pkg/shardtypes"
	"github.com/ternfs/shard/pkg/store"
	"github.com/ternfs/shard/pkg/wire"
)

// applyCreateCurrentEdgeEntry handles the log-entry kinds that share
// CreateCurrentEdgeLogEntry's payload shape: CreateLockedCurrentEdge
// (insert a locked edge, used by the cross-directory rename protocol)
// and LockCurrentEdge (lock an existing edge in place).
func (e *Engine) applyCreateCurrentEdgeEntry(w *store.WriteTxn, m wire.CreateCurrentEdgeLogEntry) (wire.Response, error) {
	ct, err := createCurrentEdge(w, m.Dir, m.Name, m.TargetID, m.Locked, m.OldCreationTime, m.Time)
	if err != nil {
		return nil, err
	}
	return wire.LinkFileResp{CreationTime: ct}, nil
}

// applySameDirectoryRename implements the single-shard move of spec
// §4.5.2/§4.5.3 combined: the old name's edge is soft-unlinked (not
// owned, since the target file survives under the new name) and the
// new name's edge is created or overridden, both within the same
// directory touch.
func (e *Engine) applySameDirectoryRename(w *store.WriteTxn, m wire.SameDirectoryRenameLogEntry) (wire.Response, error) {
	if _, err := sameDirectoryRename(w, m.Dir, m.OldName, m.NewName, m.TargetID, m.OldCreationTime, m.Time); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

func (e *Engine) applySameDirectoryRenameSnapshot(w *store.WriteTxn, m wire.SameDirectoryRenameSnapshotLogEntry) (wire.Response, error) {
	d, err := touchDirectory(w, m.Dir, m.Time, false)
	if err != nil {
		return nil, err
	}
	oldHash := store.NameHash(d.HashMode, m.OldName)
	se, ok, err := w.GetSnapshotEdge(m.Dir, oldHash, m.OldName, m.OldCreationTime)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Idempotent replay: maybe already renamed.
		newHash := store.NameHash(d.HashMode, m.NewName)
		if _, ok, err := w.GetSnapshotEdge(m.Dir, newHash, m.NewName, m.NewCreationTime); err != nil {
			return nil, err
		} else if ok {
			return wire.NewAckResp(m.Kind()), nil
		}
		return nil, shardtypes.Err(shardtypes.EdgeNotFound)
	}
	if err := w.DeleteSnapshotEdge(m.Dir, oldHash, m.OldName, m.OldCreationTime); err != nil {
		return nil, err
	}
	newHash := store.NameHash(d.HashMode, m.NewName)
	if err := w.PutSnapshotEdge(m.Dir, newHash, m.NewName, m.NewCreationTime, se); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

func (e *Engine) applySoftUnlinkFile(w *store.WriteTxn, m wire.SoftUnlinkFileLogEntry) (wire.Response, error) {
	if err := softUnlinkCurrentEdge(w, m.Dir, m.Name, m.TargetID, m.CreationTime, m.Owned, m.Time); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

func (e *Engine) applyUnlockCurrentEdge(w *store.WriteTxn, m wire.UnlockCurrentEdgeLogEntry) (wire.Response, error) {
	d, err := touchDirectory(w, m.Dir, m.Time, true)
	if err != nil {
		return nil, err
	}
	hash := store.NameHash(d.HashMode, m.Name)
	ce, ok, err := w.GetCurrentEdge(m.Dir, hash, m.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		if m.WasMoved {
			// The move already completed and unlocked the edge
			// under its new name; nothing to do here.
			return wire.NewAckResp(m.Kind()), nil
		}
		return nil, shardtypes.Err(shardtypes.EdgeNotFound)
	}
	if !ce.Locked {
		// Idempotent replay.
		return wire.NewAckResp(m.Kind()), nil
	}
	if ce.TargetID != m.TargetID || ce.CreationTime != m.CreationTime {
		return nil, shardtypes.Err(shardtypes.MismatchingTarget)
	}
	if m.WasMoved {
		if err := w.DeleteCurrentEdge(m.Dir, hash, m.Name); err != nil {
			return nil, err
		}
		if err := w.PutSnapshotEdge(m.Dir, hash, m.Name, ce.CreationTime, store.SnapshotEdgeBody{
			TargetID: ce.TargetID,
			Owned:    true,
		}); err != nil {
			return nil, err
		}
		return wire.NewAckResp(m.Kind()), nil
	}
	ce.Locked = false
	if err := w.PutCurrentEdge(m.Dir, hash, m.Name, ce); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

func (e *Engine) applyCreateDirectoryInode(w *store.WriteTxn, m wire.CreateDirectoryInodeLogEntry) (wire.Response, error) {
	if _, ok, err := w.GetDirectory(m.ID); err != nil {
		return nil, err
	} else if ok {
		// Idempotent replay of an id prepare already allocated.
		return wire.CreateDirectoryInodeResp{ID: m.ID}, nil
	}
	info := m.Info
	if len(info) == 0 {
		owner, ok, err := w.GetDirectory(m.OwnerID)
		if err != nil {
			return nil, err
		}
		if ok {
			info = owner.Info
		}
	}
	if err := w.PutDirectory(m.ID, store.DirectoryBody{
		Version:  1,
		OwnerID:  m.OwnerID,
		Mtime:    m.Time,
		HashMode: shardtypes.HashModeXXH3_63,
		Info:     info,
	}); err != nil {
		return nil, err
	}
	return wire.CreateDirectoryInodeResp{ID: m.ID}, nil
}

func (e *Engine) applySetDirectoryOwner(w *store.WriteTxn, m wire.SetDirectoryOwnerLogEntry) (wire.Response, error) {
	d, ok, err := w.GetDirectory(m.Dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.DirectoryNotFound)
	}
	if d.Mtime >= m.Time {
		return nil, shardtypes.Err(shardtypes.MtimeIsTooRecent)
	}
	d.OwnerID = m.OwnerID
	d.Mtime = m.Time
	if err := w.PutDirectory(m.Dir, d); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

func (e *Engine) applyRemoveDirectoryOwner(w *store.WriteTxn, m wire.RemoveDirectoryOwnerLogEntry) (wire.Response, error) {
	d, err := touchDirectory(w, m.ID, m.Time, false)
	if err != nil {
		return nil, err
	}
	hasEdge := false
	if err := w.IterateCurrentEdges(m.ID, 0, func(store.EdgeEntry) bool {
		hasEdge = true
		return false
	}); err != nil {
		return nil, err
	}
	if hasEdge {
		return nil, shardtypes.Err(shardtypes.DirectoryNotEmpty)
	}
	d.OwnerID = shardtypes.NullInodeId
	d.Mtime = m.Time
	if err := w.PutDirectory(m.ID, d); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

func (e *Engine) applySetDirectoryInfo(w *store.WriteTxn, m wire.SetDirectoryInfoLogEntry) (wire.Response, error) {
	d, err := touchDirectory(w, m.Dir, m.Time, false)
	if err != nil {
		return nil, err
	}
	d.Info = m.Info
	if err := w.PutDirectory(m.Dir, d); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

func (e *Engine) applyRemoveInode(w *store.WriteTxn, m wire.RemoveInodeLogEntry) (wire.Response, error) {
	if d, ok, err := w.GetDirectory(m.ID); err != nil {
		return nil, err
	} else if ok {
		if m.ID == shardtypes.RootDirInodeId {
			return nil, shardtypes.Err(shardtypes.CannotRemoveRootDirectory)
		}
		if d.HasOwner() {
			return nil, shardtypes.Err(shardtypes.DirectoryHasOwner)
		}
		hasEdge := false
		if err := w.IterateCurrentEdges(m.ID, 0, func(store.EdgeEntry) bool { hasEdge = true; return false }); err != nil {
			return nil, err
		}
		if !hasEdge {
			if err := w.IterateSnapshotEdges(m.ID, 0, func(store.EdgeEntry) bool { hasEdge = true; return false }); err != nil {
				return nil, err
			}
		}
		if hasEdge {
			return nil, shardtypes.Err(shardtypes.DirectoryNotEmpty)
		}
		if err := w.DeleteDirectory(m.ID); err != nil {
			return nil, err
		}
		return wire.NewAckResp(m.Kind()), nil
	}

	t, ok, err := w.GetTransient(m.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Already removed: idempotent.
		return wire.NewAckResp(m.Kind()), nil
	}
	if t.Deadline > m.Time {
		return nil, shardtypes.Err(shardtypes.DeadlineNotPassed)
	}
	hasSpan := false
	if err := w.IterateSpans(m.ID, 0, func(uint64, store.SpanBody) bool { hasSpan = true; return false }); err != nil {
		return nil, err
	}
	if hasSpan {
		return nil, shardtypes.Err(shardtypes.FileNotEmpty)
	}
	if err := w.DeleteTransient(m.ID); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

func (e *Engine) applyRemoveSnapshotEdge(w *store.WriteTxn, m wire.RemoveSnapshotEdgeLogEntry) (wire.Response, error) {
	d, err := touchDirectory(w, m.Dir, m.Time, false)
	if err != nil {
		return nil, err
	}
	hash := store.NameHash(d.HashMode, m.Name)
	se, ok, err := w.GetSnapshotEdge(m.Dir, hash, m.Name, m.CreationTime)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Already gone: idempotent.
		return wire.NewAckResp(m.Kind()), nil
	}
	if !se.Owned {
		if err := w.DeleteSnapshotEdge(m.Dir, hash, m.Name, m.CreationTime); err != nil {
			return nil, err
		}
		return wire.NewAckResp(m.Kind()), nil
	}
	// Owned edge: only RemoveOwnedSnapshotFileEdge may delete it
	// unconditionally; RemoveNonOwnedEdge must leave it alone.
	if m.Kind() != wire.KindRemoveOwnedSnapshotFileEdge {
		return nil, shardtypes.Err(shardtypes.EdgeNotOwned)
	}
	if err := w.DeleteSnapshotEdge(m.Dir, hash, m.Name, m.CreationTime); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}
