package wire

import (
	"fmt"

	"github.com/ternfs/shard/pkg/binpack"
	"github.com/ternfs/shard/pkg/shardtypes"
)

// ErrorResp is the universal response body for any request kind that
// failed: the client always checks the leading MessageKind byte and,
// on KindError, decodes one of these instead of the kind-specific
// response (spec §6.1).
type ErrorResp struct {
	Code shardtypes.Code
}

func (ErrorResp) Kind() MessageKind { return KindError }
func (m ErrorResp) Pack(w *binpack.Writer) { w.PackU16(uint16(m.Code)) }
func UnpackErrorResp(r *binpack.Reader) (ErrorResp, error) {
	c, err := r.UnpackU16()
	return ErrorResp{Code: shardtypes.Code(c)}, err
}

// PackRequest writes kind's byte followed by req's packed body.
func PackRequest(w *binpack.Writer, req Request) {
	w.PackU8(uint8(req.Kind()))
	req.Pack(w)
}

// PackResponse writes kind's byte followed by resp's packed body.
// Callers packing a failure use ErrorResp instead of the kind-specific
// response type; the kind byte packed is always KindError in that
// case, never the request's original kind, so clients can dispatch on
// the byte alone before knowing anything about the request that
// produced it.
func PackResponse(w *binpack.Writer, resp Response) {
	w.PackU8(uint8(resp.Kind()))
	resp.Pack(w)
}

// PackLogEntry writes kind's byte followed by entry's packed body.
func PackLogEntry(w *binpack.Writer, entry LogEntry) {
	w.PackU8(uint8(entry.Kind()))
	entry.Pack(w)
}

// UnpackRequest reads the kind byte and dispatches to the matching
// UnpackXxxReq function, returning the result as a Request.
func UnpackRequest(r *binpack.Reader) (Request, error) {
	kb, err := r.UnpackU8()
	if err != nil {
		return nil, err
	}
	switch MessageKind(kb) {
	case KindLookup:
		return UnpackLookupReq(r)
	case KindStatFile:
		return UnpackStatFileReq(r)
	case KindStatTransientFile:
		return UnpackStatTransientFileReq(r)
	case KindStatDirectory:
		return UnpackStatDirectoryReq(r)
	case KindReadDir:
		return UnpackReadDirReq(r)
	case KindFullReadDir:
		return UnpackFullReadDirReq(r)
	case KindLocalFileSpans:
		return UnpackLocalFileSpansReq(r)
	case KindFileSpans:
		return UnpackFileSpansReq(r)
	case KindVisitDirectories:
		return UnpackVisitDirectoriesReq(r)
	case KindVisitFiles:
		return UnpackVisitFilesReq(r)
	case KindVisitTransientFiles:
		return UnpackVisitTransientFilesReq(r)
	case KindBlockServiceFiles:
		return UnpackBlockServiceFilesReq(r)
	case KindConstructFile:
		return UnpackConstructFileReq(r)
	case KindLinkFile:
		return UnpackLinkFileReq(r)
	case KindSameDirectoryRename:
		return UnpackSameDirectoryRenameReq(r)
	case KindSameDirectoryRenameSnapshot:
		return UnpackSameDirectoryRenameSnapshotReq(r)
	case KindSoftUnlinkFile:
		return UnpackSoftUnlinkFileReq(r)
	case KindSameShardHardFileUnlink:
		return UnpackSameShardHardFileUnlinkReq(r)
	case KindCreateDirectoryInode:
		return UnpackCreateDirectoryInodeReq(r)
	case KindSetDirectoryOwner:
		return UnpackSetDirectoryOwnerReq(r)
	case KindRemoveDirectoryOwner:
		return UnpackRemoveDirectoryOwnerReq(r)
	case KindSetDirectoryInfo:
		return UnpackSetDirectoryInfoReq(r)
	case KindCreateLockedCurrentEdge:
		return UnpackCreateLockedCurrentEdgeReq(r)
	case KindLockCurrentEdge:
		return UnpackLockCurrentEdgeReq(r)
	case KindUnlockCurrentEdge:
		return UnpackUnlockCurrentEdgeReq(r)
	case KindRemoveInode:
		return UnpackRemoveInodeReq(r)
	case KindRemoveNonOwnedEdge:
		return UnpackRemoveNonOwnedEdgeReq(r)
	case KindRemoveOwnedSnapshotFileEdge:
		return UnpackRemoveOwnedSnapshotFileEdgeReq(r)
	case KindAddInlineSpan:
		return UnpackAddInlineSpanReq(r)
	case KindAddSpanInitiate:
		return UnpackAddSpanInitiateReq(r)
	case KindAddSpanInitiateWithReference:
		return UnpackAddSpanInitiateWithReferenceReq(r)
	case KindAddSpanAtLocationInitiate:
		return UnpackAddSpanAtLocationInitiateReq(r)
	case KindAddSpanCertify:
		return UnpackAddSpanCertifyReq(r)
	case KindAddSpanLocation:
		return UnpackAddSpanLocationReq(r)
	case KindRemoveSpanInitiate:
		return UnpackRemoveSpanInitiateReq(r)
	case KindRemoveSpanCertify:
		return UnpackRemoveSpanCertifyReq(r)
	case KindMakeFileTransient:
		return UnpackMakeFileTransientReq(r)
	case KindScrapTransientFile:
		return UnpackScrapTransientFileReq(r)
	case KindSwapBlocks:
		return UnpackSwapBlocksReq(r)
	case KindSwapSpans:
		return UnpackSwapSpansReq(r)
	case KindMoveSpan:
		return UnpackMoveSpanReq(r)
	case KindSetTime:
		return UnpackSetTimeReq(r)
	case KindRemoveZeroBlockServiceFiles:
		return UnpackRemoveZeroBlockServiceFilesReq(r)
	default:
		return nil, fmt.Errorf("wire: unknown request kind %d", kb)
	}
}

// UnpackResponse reads the kind byte and dispatches to the matching
// UnpackXxxResp function, or decodes an ErrorResp on KindError.
func UnpackResponse(r *binpack.Reader) (Response, error) {
	kb, err := r.UnpackU8()
	if err != nil {
		return nil, err
	}
	switch MessageKind(kb) {
	case KindError:
		return UnpackErrorResp(r)
	case KindLookup:
		return UnpackLookupResp(r)
	case KindStatFile:
		return UnpackStatFileResp(r)
	case KindStatTransientFile:
		return UnpackStatTransientFileResp(r)
	case KindStatDirectory:
		return UnpackStatDirectoryResp(r)
	case KindReadDir:
		return UnpackReadDirResp(r)
	case KindFullReadDir:
		return UnpackFullReadDirResp(r)
	case KindLocalFileSpans:
		return UnpackLocalFileSpansResp(r)
	case KindFileSpans:
		return UnpackFileSpansResp(r)
	case KindVisitDirectories:
		return UnpackVisitDirectoriesResp(r)
	case KindVisitFiles:
		return UnpackVisitFilesResp(r)
	case KindVisitTransientFiles:
		return UnpackVisitTransientFilesResp(r)
	case KindBlockServiceFiles:
		return UnpackBlockServiceFilesResp(r)
	case KindAddSpanInitiate, KindAddSpanInitiateWithReference, KindAddSpanAtLocationInitiate:
		return UnpackAddSpanInitiateResp(r)
	case KindRemoveZeroBlockServiceFiles:
		return UnpackRemoveZeroBlockServiceFilesResp(r)
	case KindConstructFile:
		return UnpackConstructFileResp(r)
	case KindLinkFile:
		return UnpackLinkFileResp(r)
	case KindCreateDirectoryInode:
		return UnpackCreateDirectoryInodeResp(r)
	default:
		// Every other write kind's successful response carries only
		// the fields already implied by the request (new file/dir id
		// aside, surfaced through the log entry, not a response body),
		// so it packs as an empty ack of its own kind.
		return ackResp{kind: MessageKind(kb)}, nil
	}
}

// ackResp is the empty success response shared by write kinds that
// have nothing to report beyond "this committed" (e.g. SetDirectoryInfo,
// SwapBlocks, ScrapTransientFile).
type ackResp struct{ kind MessageKind }

func (a ackResp) Kind() MessageKind      { return a.kind }
func (a ackResp) Pack(w *binpack.Writer) {}

// NewAckResp returns the empty success response for kind.
func NewAckResp(kind MessageKind) Response { return ackResp{kind: kind} }

// UnpackLogEntry reads the kind byte and dispatches to the matching
// UnpackXxxLogEntry function. Log entries are never exchanged over
// the client-facing request/response wire; this is used by the
// replicated log reader/writer.
func UnpackLogEntry(r *binpack.Reader) (LogEntry, error) {
	kb, err := r.UnpackU8()
	if err != nil {
		return nil, err
	}
	switch MessageKind(kb) {
	case KindConstructFile:
		return UnpackConstructFileLogEntry(r)
	case KindLinkFile:
		return UnpackLinkFileLogEntry(r)
	case KindSameDirectoryRename:
		return UnpackSameDirectoryRenameLogEntry(r)
	case KindSameDirectoryRenameSnapshot:
		return UnpackSameDirectoryRenameSnapshotLogEntry(r)
	case KindSoftUnlinkFile:
		return UnpackSoftUnlinkFileLogEntry(r)
	case KindSameShardHardFileUnlink:
		return UnpackSameShardHardFileUnlinkLogEntry(r)
	case KindCreateDirectoryInode:
		return UnpackCreateDirectoryInodeLogEntry(r)
	case KindSetDirectoryOwner:
		return UnpackSetDirectoryOwnerLogEntry(r)
	case KindRemoveDirectoryOwner:
		return UnpackRemoveDirectoryOwnerLogEntry(r)
	case KindSetDirectoryInfo:
		return UnpackSetDirectoryInfoLogEntry(r)
	case KindCreateLockedCurrentEdge:
		return UnpackCreateLockedCurrentEdgeLogEntry(r)
	case KindLockCurrentEdge:
		return UnpackLockCurrentEdgeLogEntry(r)
	case KindUnlockCurrentEdge:
		return UnpackUnlockCurrentEdgeLogEntry(r)
	case KindRemoveInode:
		return UnpackRemoveInodeLogEntry(r)
	case KindRemoveNonOwnedEdge:
		return UnpackRemoveNonOwnedEdgeLogEntry(r)
	case KindRemoveOwnedSnapshotFileEdge:
		return UnpackRemoveOwnedSnapshotFileEdgeLogEntry(r)
	case KindAddInlineSpan:
		return UnpackAddInlineSpanLogEntry(r)
	case KindAddSpanInitiate:
		return UnpackAddSpanInitiateLogEntry(r)
	case KindAddSpanInitiateWithReference:
		return UnpackAddSpanInitiateWithReferenceLogEntry(r)
	case KindAddSpanAtLocationInitiate:
		return UnpackAddSpanAtLocationInitiateLogEntry(r)
	case KindAddSpanCertify:
		return UnpackAddSpanCertifyLogEntry(r)
	case KindAddSpanLocation:
		return UnpackAddSpanLocationLogEntry(r)
	case KindRemoveSpanInitiate:
		return UnpackRemoveSpanInitiateLogEntry(r)
	case KindRemoveSpanCertify:
		return UnpackRemoveSpanCertifyLogEntry(r)
	case KindMakeFileTransient:
		return UnpackMakeFileTransientLogEntry(r)
	case KindScrapTransientFile:
		return UnpackScrapTransientFileLogEntry(r)
	case KindSwapBlocks:
		return UnpackSwapBlocksLogEntry(r)
	case KindSwapSpans:
		return UnpackSwapSpansLogEntry(r)
	case KindMoveSpan:
		return UnpackMoveSpanLogEntry(r)
	case KindSetTime:
		return UnpackSetTimeLogEntry(r)
	case KindRemoveZeroBlockServiceFiles:
		return UnpackRemoveZeroBlockServiceFilesLogEntry(r)
	default:
		return nil, fmt.Errorf("wire: unknown log entry kind %d", kb)
	}
}
