// Package wire defines the request, response, and log-entry message
// types exchanged across the shard engine's external interface (spec
// §6): one Go type per message kind, each packed and unpacked through
// pkg/binpack, tagged with a MessageKind so a dispatcher can switch on
// the kind byte read off the wire without a type assertion per case.
package wire

import (
	"fmt"

	"github.com/ternfs/shard/pkg/binpack"
)

// MessageKind is the u8 discriminant carried right after the
// ProtocolMessage envelope (spec §6.1).
type MessageKind uint8

const (
	KindError MessageKind = iota

	// Read-only kinds (spec §6.2).
	KindLookup
	KindStatFile
	KindStatTransientFile
	KindStatDirectory
	KindReadDir
	KindFullReadDir
	KindLocalFileSpans
	KindFileSpans
	KindVisitDirectories
	KindVisitFiles
	KindVisitTransientFiles
	KindBlockServiceFiles

	// Write kinds (spec §6.3), each of which produces a deterministic
	// LogEntry of the same name.
	KindConstructFile
	KindLinkFile
	KindSameDirectoryRename
	KindSameDirectoryRenameSnapshot
	KindSoftUnlinkFile
	KindSameShardHardFileUnlink
	KindCreateDirectoryInode
	KindSetDirectoryOwner
	KindRemoveDirectoryOwner
	KindSetDirectoryInfo
	KindCreateLockedCurrentEdge
	KindLockCurrentEdge
	KindUnlockCurrentEdge
	KindRemoveInode
	KindRemoveNonOwnedEdge
	KindRemoveOwnedSnapshotFileEdge
	KindAddInlineSpan
	KindAddSpanInitiate
	KindAddSpanInitiateWithReference
	KindAddSpanAtLocationInitiate
	KindAddSpanCertify
	KindAddSpanLocation
	KindRemoveSpanInitiate
	KindRemoveSpanCertify
	KindMakeFileTransient
	KindScrapTransientFile
	KindSwapBlocks
	KindSwapSpans
	KindMoveSpan
	KindSetTime
	KindRemoveZeroBlockServiceFiles
)

var kindNames = map[MessageKind]string{
	KindError:                        "Error",
	KindLookup:                       "Lookup",
	KindStatFile:                     "StatFile",
	KindStatTransientFile:            "StatTransientFile",
	KindStatDirectory:                "StatDirectory",
	KindReadDir:                      "ReadDir",
	KindFullReadDir:                  "FullReadDir",
	KindLocalFileSpans:               "LocalFileSpans",
	KindFileSpans:                    "FileSpans",
	KindVisitDirectories:             "VisitDirectories",
	KindVisitFiles:                   "VisitFiles",
	KindVisitTransientFiles:          "VisitTransientFiles",
	KindBlockServiceFiles:            "BlockServiceFiles",
	KindConstructFile:                "ConstructFile",
	KindLinkFile:                     "LinkFile",
	KindSameDirectoryRename:          "SameDirectoryRename",
	KindSameDirectoryRenameSnapshot:  "SameDirectoryRenameSnapshot",
	KindSoftUnlinkFile:               "SoftUnlinkFile",
	KindSameShardHardFileUnlink:      "SameShardHardFileUnlink",
	KindCreateDirectoryInode:         "CreateDirectoryInode",
	KindSetDirectoryOwner:            "SetDirectoryOwner",
	KindRemoveDirectoryOwner:         "RemoveDirectoryOwner",
	KindSetDirectoryInfo:             "SetDirectoryInfo",
	KindCreateLockedCurrentEdge:      "CreateLockedCurrentEdge",
	KindLockCurrentEdge:              "LockCurrentEdge",
	KindUnlockCurrentEdge:            "UnlockCurrentEdge",
	KindRemoveInode:                  "RemoveInode",
	KindRemoveNonOwnedEdge:           "RemoveNonOwnedEdge",
	KindRemoveOwnedSnapshotFileEdge:  "RemoveOwnedSnapshotFileEdge",
	KindAddInlineSpan:                "AddInlineSpan",
	KindAddSpanInitiate:              "AddSpanInitiate",
	KindAddSpanInitiateWithReference: "AddSpanInitiateWithReference",
	KindAddSpanAtLocationInitiate:    "AddSpanAtLocationInitiate",
	KindAddSpanCertify:               "AddSpanCertify",
	KindAddSpanLocation:              "AddSpanLocation",
	KindRemoveSpanInitiate:           "RemoveSpanInitiate",
	KindRemoveSpanCertify:            "RemoveSpanCertify",
	KindMakeFileTransient:            "MakeFileTransient",
	KindScrapTransientFile:           "ScrapTransientFile",
	KindSwapBlocks:                   "SwapBlocks",
	KindSwapSpans:                    "SwapSpans",
	KindMoveSpan:                     "MoveSpan",
	KindSetTime:                      "SetTime",
	KindRemoveZeroBlockServiceFiles:  "RemoveZeroBlockServiceFiles",
}

func (k MessageKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("MessageKind(%d)", uint8(k))
}

// IsWrite reports whether kind is one of the write kinds that
// produces a LogEntry (spec §6.3), as opposed to a read-only kind.
func (k MessageKind) IsWrite() bool {
	return k >= KindConstructFile && k <= KindRemoveZeroBlockServiceFiles
}

// Request is implemented by every request body type.
type Request interface {
	Kind() MessageKind
	Pack(w *binpack.Writer)
}

// Response is implemented by every response body type.
type Response interface {
	Kind() MessageKind
	Pack(w *binpack.Writer)
}

// LogEntry is implemented by every log-entry body type: the
// apply-time-agnostic, fully-resolved record a prepare handler
// produces for a write kind (spec §4.4).
type LogEntry interface {
	Kind() MessageKind
	Pack(w *binpack.Writer)
}
