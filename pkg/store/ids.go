package store

import "github.com/ternfs/shard/pkg/shardtypes"

// AllocateFileID advances next_file_id by 256, keeping the shard byte
// stable, and returns the new value as the allocated id (spec
// §4.5.9). Must be called on a WriteTxn that is part of the current
// apply's mutation, so the allocation and the rest of the mutation
// commit or roll back together.
func (w *WriteTxn) AllocateFileID(shard shardtypes.ShardId, t shardtypes.InodeType) (shardtypes.InodeId, error) {
	prev, err := w.GetNextFileID()
	if err != nil {
		return 0, err
	}
	next := prev + 256
	if err := w.PutNextFileID(next); err != nil {
		return 0, err
	}
	return shardtypes.NewInodeId(t, next, shard), nil
}

// AllocateSymlinkID advances next_symlink_id by 256, the symlink
// analog of AllocateFileID (symlinks and files share the inode-id
// space but not the counter, per spec §3's default-CF key list).
func (w *WriteTxn) AllocateSymlinkID(shard shardtypes.ShardId) (shardtypes.InodeId, error) {
	prev, err := w.GetNextSymlinkID()
	if err != nil {
		return 0, err
	}
	next := prev + 256
	if err := w.PutNextSymlinkID(next); err != nil {
		return 0, err
	}
	return shardtypes.NewInodeId(shardtypes.InodeTypeSymlink, next, shard), nil
}

// AllocateBlockID advances next_block_id per spec §4.5.9: the new
// value is the larger of (prev + 256) and (the log entry's time with
// its low byte replaced by the shard byte), so block ids stay roughly
// time-ordered across restarts without ever going backwards or
// colliding with the previous high-water mark. logEntryTimeNs is the
// applying log entry's timestamp, not wall-clock time, to keep apply
// deterministic.
func (w *WriteTxn) AllocateBlockID(shard shardtypes.ShardId, logEntryTimeNs uint64) (shardtypes.BlockId, error) {
	prev, err := w.GetNextBlockID()
	if err != nil {
		return 0, err
	}
	fromTime := uint64(shard) | (logEntryTimeNs &^ 0xFF)
	next := prev + 256
	if fromTime > next {
		next = fromTime
	}
	if err := w.PutNextBlockID(next); err != nil {
		return 0, err
	}
	return shardtypes.BlockId(next), nil
}
