package engine

import (
	"github.com/ternfs/shard/pkg/shardtypes"
	"github.com/ternfs/shard/pkg/store"
	"github.com/ternfs/shard/pkg/wire"
)

// applyConstructFile creates the transient record for an id prepare
// already allocated (spec §4.5.4).
func (e *Engine) applyConstructFile(w *store.WriteTxn, m wire.ConstructFileLogEntry) (wire.Response, error) {
	if err := w.PutTransient(m.ID, store.TransientFileBody{
		Version:       1,
		FileSize:      0,
		Mtime:         m.Time,
		Deadline:      m.Deadline,
		LastSpanState: shardtypes.LastSpanClean,
		Note:          m.Note,
	}); err != nil {
		return nil, err
	}
	return wire.ConstructFileResp{ID: m.ID}, nil
}

// applyLinkFile implements spec §4.5.4: commit a CLEAN transient file
// under (dir, name), or, if the transient is already gone, treat a
// pre-existing matching current edge as a replayed success.
func (e *Engine) applyLinkFile(w *store.WriteTxn, m wire.LinkFileLogEntry) (wire.Response, error) {
	t, ok, err := w.GetTransient(m.FileID)
	if err != nil {
		return nil, err
	}
	if !ok {
		d, ok, err := w.GetDirectory(m.Dir)
		if err != nil {
			return nil, err
		}
		if ok {
			hash := store.NameHash(d.HashMode, m.Name)
			ce, ok, err := w.GetCurrentEdge(m.Dir, hash, m.Name)
			if err != nil {
				return nil, err
			}
			if ok && !ce.Locked && ce.TargetID == m.FileID {
				return wire.LinkFileResp{CreationTime: ce.CreationTime}, nil
			}
		}
		return nil, shardtypes.Err(shardtypes.FileNotFound)
	}
	if t.LastSpanState != shardtypes.LastSpanClean {
		return nil, shardtypes.Err(shardtypes.LastSpanStateNotClean)
	}
	if err := w.DeleteTransient(m.FileID); err != nil {
		return nil, err
	}
	if err := w.PutFile(m.FileID, store.FileBody{
		Version:  1,
		Mtime:    m.Time,
		Atime:    m.Time,
		FileSize: t.FileSize,
	}); err != nil {
		return nil, err
	}
	ct, err := createCurrentEdge(w, m.Dir, m.Name, m.FileID, false, 0, m.Time)
	if err != nil {
		return nil, err
	}
	return wire.LinkFileResp{CreationTime: ct}, nil
}

// applySameShardHardFileUnlink makes a committed, edgeless file
// transient again, its last span CLEAN, awaiting span reclamation.
func (e *Engine) applySameShardHardFileUnlink(w *store.WriteTxn, m wire.SameShardHardFileUnlinkLogEntry) (wire.Response, error) {
	f, ok, err := w.GetFile(m.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Already transient or gone: idempotent no-op.
		return wire.NewAckResp(m.Kind()), nil
	}
	if err := w.DeleteFile(m.ID); err != nil {
		return nil, err
	}
	if err := w.PutTransient(m.ID, store.TransientFileBody{
		Version:       f.Version,
		FileSize:      f.FileSize,
		Mtime:         m.Time,
		Deadline:      m.Time,
		LastSpanState: shardtypes.LastSpanClean,
	}); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

// applyMakeFileTransient is the cross-shard counterpart of
// SameShardHardFileUnlink: the caller already established the file is
// edgeless; this just flips it back to transient with a fresh
// deadline.
func (e *Engine) applyMakeFileTransient(w *store.WriteTxn, m wire.MakeFileTransientLogEntry) (wire.Response, error) {
	f, ok, err := w.GetFile(m.FileID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.FileNotFound)
	}
	if err := w.DeleteFile(m.FileID); err != nil {
		return nil, err
	}
	if err := w.PutTransient(m.FileID, store.TransientFileBody{
		Version:       f.Version,
		FileSize:      f.FileSize,
		Mtime:         m.Time,
		Deadline:      m.Deadline,
		LastSpanState: shardtypes.LastSpanClean,
		Note:          m.Note,
	}); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

// applyScrapTransientFile brings a transient file's deadline forward
// to now so GC reclaims it on its next sweep.
func (e *Engine) applyScrapTransientFile(w *store.WriteTxn, m wire.ScrapTransientFileLogEntry) (wire.Response, error) {
	t, ok, err := w.GetTransient(m.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.FileNotFound)
	}
	if t.Deadline > m.Time {
		t.Deadline = m.Time
		if err := w.PutTransient(m.ID, t); err != nil {
			return nil, err
		}
	}
	return wire.NewAckResp(m.Kind()), nil
}

// applySetTime implements spec §4.5.8: each field is only touched
// when the high "present" bit of the corresponding raw value is set.
func (e *Engine) applySetTime(w *store.WriteTxn, m wire.SetTimeLogEntry) (wire.Response, error) {
	f, ok, err := w.GetFile(m.FileID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.FileNotFound)
	}
	if present, v := shardtypes.SetTimeField(m.RawAtime); present {
		f.Atime = v
	}
	if present, v := shardtypes.SetTimeField(m.RawMtime); present {
		f.Mtime = v
	}
	if err := w.PutFile(m.FileID, f); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}
