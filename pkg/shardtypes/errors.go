package shardtypes

import "fmt"

// Code is the shard engine's error taxonomy, transported on the wire
// as a u16 (spec §7). Grouped by category exactly as spec.md groups
// them, following the teacher's RepositoryError/ErrorCode split in
// pkg/metadata/errors.go: a small numeric Code plus a ShardError
// wrapper carrying human-readable context.
type Code uint16

const (
	NoError Code = iota

	// Structural
	BadShard
	TypeIsDirectory
	TypeIsNotDirectory
	BadName
	BadEncoding
	BadCookie
	CannotRemoveRootDirectory

	// Not-found
	FileNotFound
	DirectoryNotFound
	NameNotFound
	EdgeNotFound
	SpanNotFound
	BlockNotFound

	// Conflict / ordering
	MismatchingTarget
	MismatchingOwner
	MismatchingCreationTime
	MoreRecentCurrentEdge
	MoreRecentSnapshotEdge
	MtimeIsTooRecent
	SameSourceAndDestination
	NameIsLocked
	EdgeIsLocked
	EdgeNotOwned
	DirectoryNotEmpty
	DirectoryHasOwner
	CannotOverrideName
	FileIsNotTransient
	FileNotEmpty
	FileEmpty
	DeadlineNotPassed
	LastSpanStateNotClean

	// Integrity
	BadSpanBody
	BadBlockProof
	BadNumberOfBlocksProofs
	CannotCertifyBlocklessSpan

	// Resource
	CouldNotPickBlockServices

	// Location / multi-location
	AddSpanLocationExists
	AddSpanLocationMismatchingSize
	AddSpanLocationMismatchingCrc
	AddSpanLocationNotClean
	AddSpanLocationInlineStorage
	TransientLocationCount
	SwapBlocksMismatchingSize
	SwapBlocksMismatchingCrc
	SwapBlocksMismatchingLocation
	SwapBlocksMismatchingState
	SwapBlocksDuplicateBlockService
	SwapBlocksDuplicateFailureDomain
	SwapBlocksInlineStorage
	SwapSpansMismatchingSize
	SwapSpansMismatchingCrc
	SwapSpansMismatchingBlocks
	SwapSpansNotClean
	SwapSpansInlineStorage

	// IO
	BlockIoErrorFile
)

var codeNames = map[Code]string{
	NoError:                          "NoError",
	BadShard:                         "BadShard",
	TypeIsDirectory:                  "TypeIsDirectory",
	TypeIsNotDirectory:               "TypeIsNotDirectory",
	BadName:                          "BadName",
	BadEncoding:                      "BadEncoding",
	BadCookie:                        "BadCookie",
	CannotRemoveRootDirectory:        "CannotRemoveRootDirectory",
	FileNotFound:                     "FileNotFound",
	DirectoryNotFound:                "DirectoryNotFound",
	NameNotFound:                     "NameNotFound",
	EdgeNotFound:                     "EdgeNotFound",
	SpanNotFound:                     "SpanNotFound",
	BlockNotFound:                    "BlockNotFound",
	MismatchingTarget:                "MismatchingTarget",
	MismatchingOwner:                 "MismatchingOwner",
	MismatchingCreationTime:          "MismatchingCreationTime",
	MoreRecentCurrentEdge:            "MoreRecentCurrentEdge",
	MoreRecentSnapshotEdge:           "MoreRecentSnapshotEdge",
	MtimeIsTooRecent:                 "MtimeIsTooRecent",
	SameSourceAndDestination:         "SameSourceAndDestination",
	NameIsLocked:                     "NameIsLocked",
	EdgeIsLocked:                     "EdgeIsLocked",
	EdgeNotOwned:                     "EdgeNotOwned",
	DirectoryNotEmpty:                "DirectoryNotEmpty",
	DirectoryHasOwner:                "DirectoryHasOwner",
	CannotOverrideName:               "CannotOverrideName",
	FileIsNotTransient:               "FileIsNotTransient",
	FileNotEmpty:                     "FileNotEmpty",
	FileEmpty:                        "FileEmpty",
	DeadlineNotPassed:                "DeadlineNotPassed",
	LastSpanStateNotClean:            "LastSpanStateNotClean",
	BadSpanBody:                      "BadSpanBody",
	BadBlockProof:                    "BadBlockProof",
	BadNumberOfBlocksProofs:          "BadNumberOfBlocksProofs",
	CannotCertifyBlocklessSpan:       "CannotCertifyBlocklessSpan",
	CouldNotPickBlockServices:        "CouldNotPickBlockServices",
	AddSpanLocationExists:            "AddSpanLocationExists",
	AddSpanLocationMismatchingSize:   "AddSpanLocationMismatchingSize",
	AddSpanLocationMismatchingCrc:    "AddSpanLocationMismatchingCrc",
	AddSpanLocationNotClean:          "AddSpanLocationNotClean",
	AddSpanLocationInlineStorage:     "AddSpanLocationInlineStorage",
	TransientLocationCount:           "TransientLocationCount",
	SwapBlocksMismatchingSize:        "SwapBlocksMismatchingSize",
	SwapBlocksMismatchingCrc:         "SwapBlocksMismatchingCrc",
	SwapBlocksMismatchingLocation:    "SwapBlocksMismatchingLocation",
	SwapBlocksMismatchingState:       "SwapBlocksMismatchingState",
	SwapBlocksDuplicateBlockService:  "SwapBlocksDuplicateBlockService",
	SwapBlocksDuplicateFailureDomain: "SwapBlocksDuplicateFailureDomain",
	SwapBlocksInlineStorage:          "SwapBlocksInlineStorage",
	SwapSpansMismatchingSize:         "SwapSpansMismatchingSize",
	SwapSpansMismatchingCrc:          "SwapSpansMismatchingCrc",
	SwapSpansMismatchingBlocks:       "SwapSpansMismatchingBlocks",
	SwapSpansNotClean:                "SwapSpansNotClean",
	SwapSpansInlineStorage:           "SwapSpansInlineStorage",
	BlockIoErrorFile:                 "BlockIoErrorFile",
}

func (c Code) String() string {
	if n, ok := codeNames[c]; ok {
		return n
	}
	return "UnknownErrorCode"
}

// ShardError is the error type every prepare and apply handler
// returns for a business-logic failure. It is never used for
// unrecoverable corruption — those call logger.Fatal and terminate
// the process instead (spec §7).
type ShardError struct {
	Code    Code
	Message string
}

func (e *ShardError) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Message
}

// Err builds a ShardError from a code with no extra context.
func Err(code Code) *ShardError { return &ShardError{Code: code} }

// Errf builds a ShardError from a code with a formatted message.
func Errf(code Code, format string, args ...any) *ShardError {
	return &ShardError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the Code from err if it is a *ShardError, or
// NoError if err is nil, or an unrecognized sentinel otherwise (which
// callers should treat as an internal/fatal condition, not a typed
// business error).
func CodeOf(err error) (Code, bool) {
	if err == nil {
		return NoError, true
	}
	se, ok := err.(*ShardError)
	if !ok {
		return 0, false
	}
	return se.Code, true
}
