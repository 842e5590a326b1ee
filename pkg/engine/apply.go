package engine

import (
	"fmt"
	"time"

	"github.com/ternfs/shard/internal/logger"
	"github.com/ternfs/shard/pkg/shardtypes"
	"github.com/ternfs/shard/pkg/store"
	"github.com/ternfs/shard/pkg/wire"
)

// Apply drives one replicated log entry through the state machine
// (spec §4.5): acquire the apply lock, advance last_applied_log_index
// in its own transaction, then run the entry's mutation in a second
// transaction. A typed *shardtypes.ShardError rolls the mutation back
// while keeping the index advance — the caller still gets a response,
// it's just an error one. Any other error means the log and the store
// have diverged, which is unrecoverable.
func (e *Engine) Apply(index uint64, entry wire.LogEntry) (wire.Response, error) {
	e.store.Lock()
	defer e.store.Unlock()

	if err := e.store.AdvanceLogIndex(index); err != nil {
		logger.Fatal("non-contiguous log index", "index", index, "err", err)
	}
	e.metrics.SetLastAppliedLogIndex(index)

	start := time.Now()
	var resp wire.Response
	err := e.store.Mutate(func(w *store.WriteTxn) error {
		r, err := e.applyEntry(w, entry)
		resp = r
		return err
	})
	e.metrics.RecordApply(entry.Kind().String(), time.Since(start), err)
	if err == nil {
		return resp, nil
	}
	if _, ok := shardtypes.CodeOf(err); ok {
		return wire.ErrorResp{Code: codeOf(err)}, nil
	}
	logger.Fatal("apply failed with unrecoverable error", "index", index, "kind", entry.Kind(), "err", err)
	panic("unreachable")
}

func codeOf(err error) shardtypes.Code {
	c, _ := shardtypes.CodeOf(err)
	return c
}

// applyEntry dispatches by concrete log-entry type, rather than by
// Kind() alone, since CreateLockedCurrentEdge and LockCurrentEdge
// share the CreateCurrentEdgeLogEntry payload shape but apply
// differently depending on Kind().
func (e *Engine) applyEntry(w *store.WriteTxn, entry wire.LogEntry) (wire.Response, error) {
	switch m := entry.(type) {
	case wire.ConstructFileLogEntry:
		return e.applyConstructFile(w, m)
	case wire.LinkFileLogEntry:
		return e.applyLinkFile(w, m)
	case wire.SameDirectoryRenameLogEntry:
		return e.applySameDirectoryRename(w, m)
	case wire.CreateCurrentEdgeLogEntry:
		return e.applyCreateCurrentEdgeEntry(w, m)
	case wire.SameDirectoryRenameSnapshotLogEntry:
		return e.applySameDirectoryRenameSnapshot(w, m)
	case wire.SoftUnlinkFileLogEntry:
		return e.applySoftUnlinkFile(w, m)
	case wire.SameShardHardFileUnlinkLogEntry:
		return e.applySameShardHardFileUnlink(w, m)
	case wire.CreateDirectoryInodeLogEntry:
		return e.applyCreateDirectoryInode(w, m)
	case wire.SetDirectoryOwnerLogEntry:
		return e.applySetDirectoryOwner(w, m)
	case wire.RemoveDirectoryOwnerLogEntry:
		return e.applyRemoveDirectoryOwner(w, m)
	case wire.SetDirectoryInfoLogEntry:
		return e.applySetDirectoryInfo(w, m)
	case wire.UnlockCurrentEdgeLogEntry:
		return e.applyUnlockCurrentEdge(w, m)
	case wire.RemoveInodeLogEntry:
		return e.applyRemoveInode(w, m)
	case wire.RemoveSnapshotEdgeLogEntry:
		return e.applyRemoveSnapshotEdge(w, m)
	case wire.AddInlineSpanLogEntry:
		return e.applyAddInlineSpan(w, m)
	case wire.AddSpanInitiateLogEntry:
		return e.applyAddSpanInitiate(w, m)
	case wire.AddSpanCertifyLogEntry:
		return e.applyAddSpanCertify(w, m)
	case wire.AddSpanLocationLogEntry:
		return e.applyAddSpanLocation(w, m)
	case wire.RemoveSpanInitiateLogEntry:
		return e.applyRemoveSpanInitiate(w, m)
	case wire.RemoveSpanCertifyLogEntry:
		return e.applyRemoveSpanCertify(w, m)
	case wire.MakeFileTransientLogEntry:
		return e.applyMakeFileTransient(w, m)
	case wire.ScrapTransientFileLogEntry:
		return e.applyScrapTransientFile(w, m)
	case wire.SwapBlocksLogEntry:
		return e.applySwapBlocks(w, m)
	case wire.SwapSpansLogEntry:
		return e.applySwapSpans(w, m)
	case wire.MoveSpanLogEntry:
		return e.applyMoveSpan(w, m)
	case wire.SetTimeLogEntry:
		return e.applySetTime(w, m)
	case wire.RemoveZeroBlockServiceFilesLogEntry:
		return e.applyRemoveZeroBlockServiceFiles(w, m)
	default:
		return nil, fmt.Errorf("engine: unhandled log entry type %T", entry)
	}
}
