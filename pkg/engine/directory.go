package engine

import (
	"github.com/ternfs/shard/pkg/shardtypes"
	"github.com/ternfs/shard/pkg/store"
)

// touchDirectory fetches dir, bumps its mtime to logEntryTime (which
// must be strictly greater than the current one), and writes it back.
// Every directory-affecting apply handler starts here (spec §4.5.1).
func touchDirectory(w *store.WriteTxn, dir shardtypes.InodeId, logEntryTime shardtypes.TernTime, requireOwned bool) (store.DirectoryBody, error) {
	d, ok, err := w.GetDirectory(dir)
	if err != nil {
		return store.DirectoryBody{}, err
	}
	if !ok {
		return store.DirectoryBody{}, shardtypes.Err(shardtypes.DirectoryNotFound)
	}
	if requireOwned && !d.HasOwner() && dir != shardtypes.RootDirInodeId {
		return store.DirectoryBody{}, shardtypes.Err(shardtypes.DirectoryNotFound)
	}
	if d.Mtime >= logEntryTime {
		return store.DirectoryBody{}, shardtypes.Errf(shardtypes.MtimeIsTooRecent, "directory %d mtime %d >= log entry time %d", dir, d.Mtime, logEntryTime)
	}
	d.Mtime = logEntryTime
	if err := w.PutDirectory(dir, d); err != nil {
		return store.DirectoryBody{}, err
	}
	return d, nil
}

// createCurrentEdge implements spec §4.5.2. It returns the edge's
// resulting creation_time (either logEntryTime, or the pre-existing
// one on an idempotent locked replay).
func createCurrentEdge(w *store.WriteTxn, dir shardtypes.InodeId, name []byte, target shardtypes.InodeId, locked bool, oldCreationTime, logEntryTime shardtypes.TernTime) (shardtypes.TernTime, error) {
	d, err := touchDirectory(w, dir, logEntryTime, true)
	if err != nil {
		return 0, err
	}
	return createCurrentEdgeAt(w, d, dir, name, target, locked, oldCreationTime, logEntryTime)
}

// createCurrentEdgeAt is createCurrentEdge without its own directory
// touch, for callers (sameDirectoryRename) that already hold the
// post-touch directory body and must not bump its mtime twice.
func createCurrentEdgeAt(w *store.WriteTxn, d store.DirectoryBody, dir shardtypes.InodeId, name []byte, target shardtypes.InodeId, locked bool, oldCreationTime, logEntryTime shardtypes.TernTime) (shardtypes.TernTime, error) {
	hash := store.NameHash(d.HashMode, name)

	existing, ok, err := w.GetCurrentEdge(dir, hash, name)
	if err != nil {
		return 0, err
	}

	if !ok {
		// No current edge: reject if a snapshot edge with the same
		// name is already more recent than this entry.
		mostRecent, found, err := mostRecentSnapshotEdge(w, dir, hash, name)
		if err != nil {
			return 0, err
		}
		if found && mostRecent >= logEntryTime {
			return 0, shardtypes.Err(shardtypes.MoreRecentSnapshotEdge)
		}
		if err := w.PutCurrentEdge(dir, hash, name, store.CurrentEdgeBody{
			TargetID:     target,
			Locked:       locked,
			CreationTime: logEntryTime,
		}); err != nil {
			return 0, err
		}
		return logEntryTime, nil
	}

	if existing.Locked {
		if !locked || existing.TargetID != target {
			if !locked {
				return 0, shardtypes.Err(shardtypes.NameIsLocked)
			}
			return 0, shardtypes.Err(shardtypes.MismatchingTarget)
		}
		if existing.CreationTime != oldCreationTime {
			return 0, shardtypes.Err(shardtypes.MismatchingCreationTime)
		}
		// Idempotent replay of the same lock: nothing to write.
		return existing.CreationTime, nil
	}

	// Present, unlocked: override.
	if target.Type() == shardtypes.InodeTypeDirectory || existing.TargetID.Type() == shardtypes.InodeTypeDirectory {
		return 0, shardtypes.Err(shardtypes.CannotOverrideName)
	}
	if existing.CreationTime >= logEntryTime {
		return 0, shardtypes.Err(shardtypes.MoreRecentCurrentEdge)
	}
	if err := w.PutSnapshotEdge(dir, hash, name, existing.CreationTime, store.SnapshotEdgeBody{
		TargetID: existing.TargetID,
		Owned:    true,
	}); err != nil {
		return 0, err
	}
	if err := w.PutCurrentEdge(dir, hash, name, store.CurrentEdgeBody{
		TargetID:     target,
		Locked:       locked,
		CreationTime: logEntryTime,
	}); err != nil {
		return 0, err
	}
	return logEntryTime, nil
}

// softUnlinkCurrentEdge implements spec §4.5.3.
func softUnlinkCurrentEdge(w *store.WriteTxn, dir shardtypes.InodeId, name []byte, target shardtypes.InodeId, creationTime shardtypes.TernTime, owned bool, logEntryTime shardtypes.TernTime) error {
	d, err := touchDirectory(w, dir, logEntryTime, true)
	if err != nil {
		return err
	}
	return softUnlinkCurrentEdgeAt(w, d, dir, name, target, creationTime, owned, logEntryTime)
}

// softUnlinkCurrentEdgeAt is softUnlinkCurrentEdge without its own
// directory touch; see createCurrentEdgeAt.
func softUnlinkCurrentEdgeAt(w *store.WriteTxn, d store.DirectoryBody, dir shardtypes.InodeId, name []byte, target shardtypes.InodeId, creationTime shardtypes.TernTime, owned bool, logEntryTime shardtypes.TernTime) error {
	hash := store.NameHash(d.HashMode, name)

	existing, ok, err := w.GetCurrentEdge(dir, hash, name)
	if err != nil {
		return err
	}
	if !ok {
		return shardtypes.Err(shardtypes.EdgeNotFound)
	}
	if existing.Locked {
		return shardtypes.Err(shardtypes.NameIsLocked)
	}
	if existing.TargetID != target {
		return shardtypes.Err(shardtypes.MismatchingTarget)
	}
	if existing.CreationTime != creationTime {
		return shardtypes.Err(shardtypes.MismatchingCreationTime)
	}

	if err := w.DeleteCurrentEdge(dir, hash, name); err != nil {
		return err
	}
	if err := w.PutSnapshotEdge(dir, hash, name, existing.CreationTime, store.SnapshotEdgeBody{
		TargetID: target,
		Owned:    owned,
	}); err != nil {
		return err
	}
	return w.PutSnapshotEdge(dir, hash, name, logEntryTime, store.SnapshotEdgeBody{
		TargetID: shardtypes.NullInodeId,
		Owned:    false,
	})
}

// sameDirectoryRename implements SameDirectoryRename (spec example:
// renaming "b" onto "a" soft-unlinks the old "b" edge, not owned since
// the file survives under its new name, and creates/overrides the "a"
// edge at the same log entry time). Both edge writes share a single
// directory touch.
func sameDirectoryRename(w *store.WriteTxn, dir shardtypes.InodeId, oldName, newName []byte, target shardtypes.InodeId, oldCreationTime, logEntryTime shardtypes.TernTime) (shardtypes.TernTime, error) {
	d, err := touchDirectory(w, dir, logEntryTime, true)
	if err != nil {
		// Idempotent replay: this entry already set mtime to
		// logEntryTime and created the new edge at that time.
		if code, ok := shardtypes.CodeOf(err); ok && code == shardtypes.MtimeIsTooRecent {
			if cur, found, err2 := w.GetDirectory(dir); err2 == nil && found {
				ce, ok, err2 := w.GetCurrentEdge(dir, store.NameHash(cur.HashMode, newName), newName)
				if err2 == nil && ok && ce.TargetID == target && ce.CreationTime == logEntryTime {
					return ce.CreationTime, nil
				}
			}
		}
		return 0, err
	}
	if err := softUnlinkCurrentEdgeAt(w, d, dir, oldName, target, oldCreationTime, false, logEntryTime); err != nil {
		if code, ok := shardtypes.CodeOf(err); ok && code == shardtypes.EdgeNotFound {
			// Idempotent replay: the rename may have already gone
			// through, leaving the new edge in place.
			newHash := store.NameHash(d.HashMode, newName)
			if ce, ok, err2 := w.GetCurrentEdge(dir, newHash, newName); err2 != nil {
				return 0, err2
			} else if ok && ce.TargetID == target {
				return ce.CreationTime, nil
			}
		}
		return 0, err
	}
	return createCurrentEdgeAt(w, d, dir, newName, target, false, 0, logEntryTime)
}

// mostRecentSnapshotEdge returns the largest creation_time among
// snapshot edges of (dir, name), scanning in reverse since keys sort
// by ascending creation_time.
func mostRecentSnapshotEdge(w *store.WriteTxn, dir shardtypes.InodeId, hash uint64, name []byte) (shardtypes.TernTime, bool, error) {
	lower := store.KeySnapshotEdge(dir, hash, name, 0)
	upper := nextPrefix(lower[:len(lower)-8])
	var found bool
	var latest shardtypes.TernTime
	err := w.IterateEdgesRange(lower[:len(lower)-8], upper, true, func(e store.EdgeEntry) bool {
		if e.Current || e.NameHash != hash || string(e.Name) != string(name) {
			return true
		}
		found = true
		latest = e.CreationTime
		return false
	})
	return latest, found, err
}
