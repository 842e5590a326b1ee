package engine

import (
	"time"

	"github.com/ternfs/shard/pkg/blockservices"
	"github.com/ternfs/shard/pkg/shardtypes"
	"github.com/ternfs/shard/pkg/store"
	"github.com/ternfs/shard/pkg/wire"
)

// ternPageSize is spec §4.4's TERNFS_PAGE_SIZE: every span's
// byte_offset must land on a page boundary, and a blocked span's
// cell_size must too.
const ternPageSize = 4096

// now returns the current wall-clock time as a TernTime. Every
// prepare handler calls this exactly once and threads the same value
// through validation and the LogEntry it builds, so a single request
// never straddles two different notions of "now" (spec §4.4, §9's
// non-determinism containment).
func now() shardtypes.TernTime {
	return shardtypes.TernTime(time.Now().UnixNano())
}

// allocFileID allocates a file or symlink id, committing the counter
// bump in its own transaction ahead of the request's eventual apply
// (spec §4.5.9, DESIGN.md "Id allocation at prepare time").
func (e *Engine) allocFileID(t shardtypes.InodeType) (shardtypes.InodeId, error) {
	e.store.Lock()
	defer e.store.Unlock()
	var id shardtypes.InodeId
	err := e.store.Mutate(func(w *store.WriteTxn) error {
		var err error
		if t == shardtypes.InodeTypeSymlink {
			id, err = w.AllocateSymlinkID(e.ShardID())
		} else {
			id, err = w.AllocateFileID(e.ShardID(), t)
		}
		return err
	})
	return id, err
}

func (e *Engine) allocDirectoryID() (shardtypes.InodeId, error) {
	e.store.Lock()
	defer e.store.Unlock()
	var id shardtypes.InodeId
	err := e.store.Mutate(func(w *store.WriteTxn) error {
		var err error
		id, err = w.AllocateFileID(e.ShardID(), shardtypes.InodeTypeDirectory)
		return err
	})
	return id, err
}

func (e *Engine) allocBlockID(logEntryTime shardtypes.TernTime) (shardtypes.BlockId, error) {
	e.store.Lock()
	defer e.store.Unlock()
	var id shardtypes.BlockId
	err := e.store.Mutate(func(w *store.WriteTxn) error {
		var err error
		id, err = w.AllocateBlockID(e.ShardID(), uint64(logEntryTime))
		return err
	})
	return id, err
}

// PrepareConstructFile allocates a new transient file/symlink id and
// builds the log entry that will commit its CLEAN transient record.
func (e *Engine) PrepareConstructFile(req wire.ConstructFileReq) (wire.LogEntry, error) {
	id, err := e.allocFileID(req.Type)
	if err != nil {
		return nil, err
	}
	t := now()
	return wire.ConstructFileLogEntry{
		Time:     t,
		ID:       id,
		Note:     req.Note,
		Deadline: store.TransientDeadline(t, e.cfg.TransientDeadline),
	}, nil
}

// PrepareLinkFile validates nothing beyond name well-formedness —
// everything else (transient CLEAN, edge conflicts) is checked at
// apply, against the authoritative post-lock state.
func (e *Engine) PrepareLinkFile(req wire.LinkFileReq) (wire.LogEntry, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	return wire.LinkFileLogEntry{Time: now(), FileID: req.FileID, Dir: req.Dir, Name: req.Name}, nil
}

func validateName(name []byte) error {
	if len(name) == 0 || len(name) > 255 {
		return shardtypes.Err(shardtypes.BadName)
	}
	for _, b := range name {
		if b == 0 || b == '/' {
			return shardtypes.Err(shardtypes.BadName)
		}
	}
	return nil
}

func (e *Engine) PrepareSameDirectoryRename(req wire.SameDirectoryRenameReq) (wire.LogEntry, error) {
	if err := validateName(req.OldName); err != nil {
		return nil, err
	}
	if err := validateName(req.NewName); err != nil {
		return nil, err
	}
	if string(req.OldName) == string(req.NewName) {
		return nil, shardtypes.Err(shardtypes.SameSourceAndDestination)
	}
	snap := e.store.CurrentSnapshot()
	defer snap.Release()
	r := snap.ReadTxn()
	d, ok, err := r.GetDirectory(req.Dir)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.DirectoryNotFound)
	}
	hash := store.NameHash(d.HashMode, req.OldName)
	ce, ok, err := r.GetCurrentEdge(req.Dir, hash, req.OldName)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.EdgeNotFound)
	}
	if ce.CreationTime != req.OldCreationTime {
		return nil, shardtypes.Err(shardtypes.MismatchingCreationTime)
	}
	return wire.NewSameDirectoryRenameLogEntry(now(), req.Dir, req.OldName, req.NewName, ce.TargetID, ce.CreationTime), nil
}

func (e *Engine) PrepareSameDirectoryRenameSnapshot(req wire.SameDirectoryRenameSnapshotReq) (wire.LogEntry, error) {
	if err := validateName(req.OldName); err != nil {
		return nil, err
	}
	if err := validateName(req.NewName); err != nil {
		return nil, err
	}
	return wire.SameDirectoryRenameSnapshotLogEntry{
		Time:            now(),
		Dir:             req.Dir,
		OldName:         req.OldName,
		NewName:         req.NewName,
		OldCreationTime: req.OldCreationTime,
		NewCreationTime: req.NewCreationTime,
	}, nil
}

func (e *Engine) PrepareSoftUnlinkFile(req wire.SoftUnlinkFileReq) (wire.LogEntry, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	return wire.SoftUnlinkFileLogEntry{
		Time:         now(),
		Dir:          req.Dir,
		Name:         req.Name,
		TargetID:     req.TargetID,
		CreationTime: req.CreationTime,
		Owned:        req.Owned,
	}, nil
}

func (e *Engine) PrepareSameShardHardFileUnlink(req wire.SameShardHardFileUnlinkReq) (wire.LogEntry, error) {
	return wire.NewSameShardHardFileUnlinkLogEntry(now(), req.FileID), nil
}

// PrepareCreateDirectoryInode allocates a directory id unless the
// caller supplied one already (idempotent replay of a prior prepare
// whose response was lost).
func (e *Engine) PrepareCreateDirectoryInode(req wire.CreateDirectoryInodeReq) (wire.LogEntry, error) {
	id := req.ID
	if id == shardtypes.NullInodeId {
		var err error
		id, err = e.allocDirectoryID()
		if err != nil {
			return nil, err
		}
	}
	return wire.CreateDirectoryInodeLogEntry{
		Time:    now(),
		ID:      id,
		OwnerID: req.OwnerID,
		Info:    req.Info,
	}, nil
}

func (e *Engine) PrepareSetDirectoryOwner(req wire.SetDirectoryOwnerReq) (wire.LogEntry, error) {
	return wire.SetDirectoryOwnerLogEntry{Time: now(), Dir: req.Dir, OwnerID: req.OwnerID}, nil
}

func (e *Engine) PrepareRemoveDirectoryOwner(req wire.RemoveDirectoryOwnerReq) (wire.LogEntry, error) {
	return wire.NewRemoveDirectoryOwnerLogEntry(now(), req.Dir), nil
}

func (e *Engine) PrepareSetDirectoryInfo(req wire.SetDirectoryInfoReq) (wire.LogEntry, error) {
	return wire.SetDirectoryInfoLogEntry{Time: now(), Dir: req.Dir, Info: req.Info}, nil
}

func (e *Engine) PrepareCreateLockedCurrentEdge(req wire.CreateLockedCurrentEdgeReq) (wire.LogEntry, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	return wire.NewCreateLockedCurrentEdgeLogEntry(now(), req.Dir, req.Name, req.TargetID, req.OldCreationTime), nil
}

func (e *Engine) PrepareLockCurrentEdge(req wire.LockCurrentEdgeReq) (wire.LogEntry, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	return wire.NewLockCurrentEdgeLogEntry(now(), req.Dir, req.Name, req.TargetID, req.CreationTime), nil
}

func (e *Engine) PrepareUnlockCurrentEdge(req wire.UnlockCurrentEdgeReq) (wire.LogEntry, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	return wire.UnlockCurrentEdgeLogEntry{
		Time:         now(),
		Dir:          req.Dir,
		Name:         req.Name,
		TargetID:     req.TargetID,
		CreationTime: req.CreationTime,
		WasMoved:     req.WasMoved,
	}, nil
}

func (e *Engine) PrepareRemoveInode(req wire.RemoveInodeReq) (wire.LogEntry, error) {
	return wire.NewRemoveInodeLogEntry(now(), req.ID), nil
}

func (e *Engine) PrepareRemoveNonOwnedEdge(req wire.RemoveNonOwnedEdgeReq) (wire.LogEntry, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	return wire.NewRemoveNonOwnedEdgeLogEntry(now(), req.RemoveSnapshotEdgeReq), nil
}

func (e *Engine) PrepareRemoveOwnedSnapshotFileEdge(req wire.RemoveOwnedSnapshotFileEdgeReq) (wire.LogEntry, error) {
	if err := validateName(req.Name); err != nil {
		return nil, err
	}
	return wire.NewRemoveOwnedSnapshotFileEdgeLogEntry(now(), req.RemoveSnapshotEdgeReq), nil
}

// PrepareAddInlineSpan checks that the storage class is an inline one,
// that the offset lands on a page boundary, and that the body matches
// its claimed crc32c before committing to
// a log entry (spec §4.4's deterministic CRC checks apply at prepare,
// not apply, since the body is already in hand here).
func (e *Engine) PrepareAddInlineSpan(req wire.AddInlineSpanReq) (wire.LogEntry, error) {
	if req.StorageClass.IsBlocked() {
		return nil, shardtypes.Err(shardtypes.BadSpanBody)
	}
	if req.ByteOffset%ternPageSize != 0 {
		return nil, shardtypes.Err(shardtypes.BadSpanBody)
	}
	if crc32Checksum(req.Body) != req.Crc {
		return nil, shardtypes.Err(shardtypes.BadSpanBody)
	}
	return wire.AddInlineSpanLogEntry{Time: now(), AddInlineSpanReq: req}, nil
}

func (e *Engine) PrepareAddSpanInitiate(req wire.AddSpanInitiateReq) (wire.LogEntry, error) {
	return e.prepareAddSpanInitiate(wire.KindAddSpanInitiate, req, shardtypes.NullInodeId, 0, false)
}

func (e *Engine) PrepareAddSpanInitiateWithReference(req wire.AddSpanInitiateWithReferenceReq) (wire.LogEntry, error) {
	return e.prepareAddSpanInitiate(wire.KindAddSpanInitiateWithReference, req.AddSpanInitiateReq, req.ReferenceFileID, 0, false)
}

func (e *Engine) PrepareAddSpanAtLocationInitiate(req wire.AddSpanAtLocationInitiateReq) (wire.LogEntry, error) {
	return e.prepareAddSpanInitiate(wire.KindAddSpanAtLocationInitiate, req.AddSpanInitiateReq, shardtypes.NullInodeId, req.LocationID, true)
}

// prepareAddSpanInitiate implements the block-picking half of spec
// §4.4: pick Parity.Blocks() block services for the span's one
// replicated location, honoring the blacklist and preferring
// candidates in the failure domains already backing referenceFileID's
// spans when one is given, then allocates a block id per block.
func (e *Engine) prepareAddSpanInitiate(kind wire.MessageKind, req wire.AddSpanInitiateReq, referenceFileID shardtypes.InodeId, pinnedLocation shardtypes.LocationId, pinLocation bool) (wire.LogEntry, error) {
	if !req.StorageClass.IsBlocked() {
		return nil, shardtypes.Err(shardtypes.BadSpanBody)
	}
	if req.ByteOffset%ternPageSize != 0 {
		return nil, shardtypes.Err(shardtypes.BadSpanBody)
	}
	stripeDataCrcs, blockCrcs, err := validateBlockedSpanCRCs(req)
	if err != nil {
		return nil, err
	}
	t := now()
	loc, err := e.pickBlockServices(req, stripeDataCrcs, blockCrcs, referenceFileID, pinnedLocation, pinLocation, t)
	if err != nil {
		return nil, err
	}
	return wire.NewAddSpanInitiateLogEntry(kind, t, req.FileID, req.ByteOffset, req.SpanSize, req.Crc, req.StorageClass, []wire.SpanLocation{loc}), nil
}

// validateBlockedSpanCRCs implements spec §4.4's deterministic
// CRC-structure check for a blocked span: cell_size page alignment,
// every stripe's per-cell crcs matching the parity scheme they claim
// (mirrored cells all equal the data cell, RS parity-0 equal to the
// XOR of the data cells), and the declared span crc matching the
// crc32c-concatenation of the stripes' data crcs, zero-extended out
// to span_size. It also derives what actually gets persisted: one
// crc32c per stripe (store.LocationBlocksBody.StripeCrcs — a
// different, shorter array than the wire request's flat per-cell
// one) and one aggregate crc32c per block, concatenating that block's
// cell across every stripe (wire.BlockEntry.Crc).
func validateBlockedSpanCRCs(req wire.AddSpanInitiateReq) (stripeDataCrcs []uint32, blockCrcs []uint32, err error) {
	if req.CellSize%ternPageSize != 0 {
		return nil, nil, shardtypes.Err(shardtypes.BadSpanBody)
	}
	blocks := req.Parity.Blocks()
	if blocks <= 0 || len(req.StripeCrcs) != int(req.Stripes)*blocks {
		return nil, nil, shardtypes.Err(shardtypes.BadSpanBody)
	}

	stripeDataCrcs = make([]uint32, req.Stripes)
	blockCrcs = make([]uint32, blocks)
	for s := 0; s < int(req.Stripes); s++ {
		cells := req.StripeCrcs[s*blocks : (s+1)*blocks]
		data := cells[:req.Parity.D]
		if req.Parity.IsMirrored() {
			for _, parity := range cells[1:] {
				if parity != data[0] {
					return nil, nil, shardtypes.Err(shardtypes.BadSpanBody)
				}
			}
		} else if crc32cXorReduce(data, int(req.CellSize)) != cells[req.Parity.D] {
			return nil, nil, shardtypes.Err(shardtypes.BadSpanBody)
		}
		stripeDataCrcs[s] = crc32cAppendAll(data, int(req.CellSize))
		for i, c := range cells {
			blockCrcs[i] = crc32cAppend(blockCrcs[i], c, int(req.CellSize))
		}
	}

	spanCrc := crc32cAppendAll(stripeDataCrcs, int(req.CellSize))
	dataSize := int64(req.CellSize) * int64(req.Stripes) * int64(req.Parity.D)
	pad := int64(req.SpanSize) - dataSize
	if pad < 0 {
		return nil, nil, shardtypes.Err(shardtypes.BadSpanBody)
	}
	if crc32cZeroExtend(spanCrc, pad) != req.Crc {
		return nil, nil, shardtypes.Err(shardtypes.BadSpanBody)
	}
	return stripeDataCrcs, blockCrcs, nil
}

func (e *Engine) pickBlockServices(req wire.AddSpanInitiateReq, stripeDataCrcs []uint32, blockCrcs []uint32, referenceFileID shardtypes.InodeId, pinnedLocation shardtypes.LocationId, pinLocation bool, t shardtypes.TernTime) (wire.SpanLocation, error) {
	need := req.Parity.Blocks()
	blacklist := make(map[shardtypes.BlockServiceId]bool, len(req.Blacklist))
	for _, id := range req.Blacklist {
		blacklist[id] = true
	}

	preferred := e.referenceFailureDomains(referenceFileID)

	locationID := pinnedLocation
	candidates := e.bscache.Candidates(locationID, req.StorageClass)
	if len(candidates) < need && !pinLocation {
		if alt, ok := e.cfg.LocationFailover[FailoverKey{Location: locationID, StorageClass: req.StorageClass}]; ok {
			locationID = alt.Location
			candidates = e.bscache.Candidates(alt.Location, alt.StorageClass)
		}
	}

	picked := make([]blockservices.Info, 0, need)
	usedDomains := make(map[blockservices.FailureDomain]bool, need)
	// First pass: candidates sharing a failure domain with the
	// reference file's existing blocks, preferred but not required.
	for _, c := range candidates {
		if len(picked) >= need {
			break
		}
		if blacklist[c.ID] || !c.CanWrite() || usedDomains[c.FailureDomain] {
			continue
		}
		if preferred[c.FailureDomain] {
			picked = append(picked, c)
			usedDomains[c.FailureDomain] = true
		}
	}
	for _, c := range candidates {
		if len(picked) >= need {
			break
		}
		if blacklist[c.ID] || !c.CanWrite() || usedDomains[c.FailureDomain] {
			continue
		}
		picked = append(picked, c)
		usedDomains[c.FailureDomain] = true
	}
	if len(picked) < need {
		return wire.SpanLocation{}, shardtypes.Err(shardtypes.CouldNotPickBlockServices)
	}

	// Per-block write certificates (shardcrypto.WriteCertificate) are
	// computed by the block-service RPC path when the client actually
	// writes each block, not here: wire.BlockEntry carries only the
	// placement (block service, block id), matching what
	// LocalFileSpans/FileSpans already return for committed spans.
	blocks := make([]wire.BlockEntry, need)
	for i, bs := range picked {
		blockID, err := e.allocBlockID(t)
		if err != nil {
			return wire.SpanLocation{}, err
		}
		blocks[i] = wire.BlockEntry{
			BlockServiceID: bs.ID,
			BlockID:        blockID,
			Crc:            blockCrcs[i],
		}
	}
	return wire.SpanLocation{
		LocationID:   locationID,
		StorageClass: req.StorageClass,
		Parity:       req.Parity,
		Stripes:      req.Stripes,
		CellSize:     req.CellSize,
		Blocks:       blocks,
		StripeCrcs:   stripeDataCrcs,
	}, nil
}

// referenceFailureDomains reads the failure domains already backing
// referenceFileID's spans, so a new span for a related file (e.g. a
// reflink sibling) tends to land in the same failure domains rather
// than scattering writes.
func (e *Engine) referenceFailureDomains(referenceFileID shardtypes.InodeId) map[blockservices.FailureDomain]bool {
	out := map[blockservices.FailureDomain]bool{}
	if referenceFileID == shardtypes.NullInodeId {
		return out
	}
	snap := e.store.CurrentSnapshot()
	defer snap.Release()
	r := snap.ReadTxn()
	_ = r.IterateSpans(referenceFileID, 0, func(offset uint64, body store.SpanBody) bool {
		loc, ok := body.PrimaryLocation()
		if !ok {
			return true
		}
		for _, b := range loc.Blocks {
			if info, ok := e.bscache.Lookup(b.BlockServiceID); ok {
				out[info.FailureDomain] = true
			}
		}
		return true
	})
	return out
}

func (e *Engine) PrepareAddSpanCertify(req wire.AddSpanCertifyReq) (wire.LogEntry, error) {
	return wire.AddSpanCertifyLogEntry{Time: now(), AddSpanCertifyReq: req}, nil
}

func (e *Engine) PrepareAddSpanLocation(req wire.AddSpanLocationReq) (wire.LogEntry, error) {
	return wire.AddSpanLocationLogEntry{Time: now(), AddSpanLocationReq: req}, nil
}

func (e *Engine) PrepareRemoveSpanInitiate(req wire.RemoveSpanInitiateReq) (wire.LogEntry, error) {
	return wire.RemoveSpanInitiateLogEntry{Time: now(), RemoveSpanInitiateReq: req}, nil
}

func (e *Engine) PrepareRemoveSpanCertify(req wire.RemoveSpanCertifyReq) (wire.LogEntry, error) {
	return wire.RemoveSpanCertifyLogEntry{Time: now(), RemoveSpanCertifyReq: req}, nil
}

func (e *Engine) PrepareMakeFileTransient(req wire.MakeFileTransientReq) (wire.LogEntry, error) {
	t := now()
	return wire.MakeFileTransientLogEntry{
		Time:     t,
		FileID:   req.FileID,
		Note:     req.Note,
		Deadline: store.TransientDeadline(t, e.cfg.TransientDeadline),
	}, nil
}

func (e *Engine) PrepareScrapTransientFile(req wire.ScrapTransientFileReq) (wire.LogEntry, error) {
	return wire.NewScrapTransientFileLogEntry(now(), req.FileID), nil
}

func (e *Engine) PrepareSwapBlocks(req wire.SwapBlocksReq) (wire.LogEntry, error) {
	return wire.SwapBlocksLogEntry{Time: now(), SwapBlocksReq: req}, nil
}

// PrepareSwapSpans snapshots the block ids each span currently holds,
// so a later apply (possibly replayed) can tell a first application
// from a retry against already-swapped state without having to infer
// it from the request alone (spec §4.5.6).
func (e *Engine) PrepareSwapSpans(req wire.SwapSpansReq) (wire.LogEntry, error) {
	snap := e.store.CurrentSnapshot()
	defer snap.Release()
	r := snap.ReadTxn()
	span1, ok, err := r.GetSpan(req.FileID1, req.Offset1)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.SpanNotFound)
	}
	span2, ok, err := r.GetSpan(req.FileID2, req.Offset2)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.SpanNotFound)
	}
	return wire.SwapSpansLogEntry{
		Time:         now(),
		SwapSpansReq: req,
		Blocks1:      spanBlockIDs(span1),
		Blocks2:      spanBlockIDs(span2),
	}, nil
}

func spanBlockIDs(span store.SpanBody) []shardtypes.BlockId {
	var ids []shardtypes.BlockId
	for _, l := range span.Locations {
		for _, b := range l.Blocks {
			ids = append(ids, b.BlockID)
		}
	}
	return ids
}

func (e *Engine) PrepareMoveSpan(req wire.MoveSpanReq) (wire.LogEntry, error) {
	return wire.MoveSpanLogEntry{Time: now(), MoveSpanReq: req}, nil
}

func (e *Engine) PrepareSetTime(req wire.SetTimeReq) (wire.LogEntry, error) {
	return wire.SetTimeLogEntry{Time: now(), SetTimeReq: req}, nil
}

func (e *Engine) PrepareRemoveZeroBlockServiceFiles(req wire.RemoveZeroBlockServiceFilesReq) (wire.LogEntry, error) {
	return wire.RemoveZeroBlockServiceFilesLogEntry{Time: now(), Cursor: req.Cursor}, nil
}
