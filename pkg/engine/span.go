package engine

import (
	"github.com/ternfs/shard/pkg/shardcrypto"
	"github.com/ternfs/shard/pkg/shardtypes"
	"github.com/ternfs/shard/pkg/store"
	"github.com/ternfs/shard/pkg/wire"
)

// fetchSpanState reports whether the span ending at spanEnd in fileID
// is CLEAN or, if it's the mutable tail of a still-transient file, the
// tail's own state (spec §4.5.6, ShardDB.cpp's _fetchSpanState): a
// normal file's spans are always CLEAN, and so is any span of a
// transient file that isn't currently its last one.
func (e *Engine) fetchSpanState(w *store.WriteTxn, fileID shardtypes.InodeId, spanEnd uint64) (shardtypes.LastSpanState, error) {
	if _, ok, err := w.GetFile(fileID); err != nil {
		return 0, err
	} else if ok {
		return shardtypes.LastSpanClean, nil
	}
	t, ok, err := w.GetTransient(fileID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, shardtypes.Err(shardtypes.FileNotFound)
	}
	if spanEnd == t.FileSize {
		return t.LastSpanState, nil
	}
	return shardtypes.LastSpanClean, nil
}

// applyAddInlineSpan implements the inline half of spec §4.5.5: small
// spans carry their body directly in the spans CF and never go
// through the DIRTY/CONDEMNED states, since there are no blocks to
// certify.
func (e *Engine) applyAddInlineSpan(w *store.WriteTxn, m wire.AddInlineSpanLogEntry) (wire.Response, error) {
	t, ok, err := w.GetTransient(m.FileID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.FileNotFound)
	}
	if t.LastSpanState != shardtypes.LastSpanClean {
		return nil, shardtypes.Err(shardtypes.LastSpanStateNotClean)
	}
	if err := w.PutSpan(m.FileID, m.ByteOffset, store.SpanBody{
		SpanSize:     uint32(len(m.Body)),
		Crc:          m.Crc,
		StorageClass: m.StorageClass,
		InlineBody:   m.Body,
	}); err != nil {
		return nil, err
	}
	if end := m.ByteOffset + uint64(len(m.Body)); end > t.FileSize {
		t.FileSize = end
	}
	t.Mtime = m.Time
	if err := w.PutTransient(m.FileID, t); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

// applyAddSpanInitiate moves a transient file's last span CLEAN ->
// DIRTY and records the locations chosen at prepare time, ahead of
// the client actually writing and certifying the blocks.
func (e *Engine) applyAddSpanInitiate(w *store.WriteTxn, m wire.AddSpanInitiateLogEntry) (wire.Response, error) {
	t, ok, err := w.GetTransient(m.FileID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.FileNotFound)
	}
	if t.LastSpanState != shardtypes.LastSpanClean {
		return nil, shardtypes.Err(shardtypes.LastSpanStateNotClean)
	}
	locations := make([]store.LocationBlocksBody, 0, len(m.Locations))
	for _, l := range m.Locations {
		blocks := make([]store.BlockLocation, 0, len(l.Blocks))
		for _, b := range l.Blocks {
			blocks = append(blocks, store.BlockLocation{
				BlockServiceID: b.BlockServiceID,
				BlockID:        b.BlockID,
				Crc:            b.Crc,
			})
			if err := w.AddBlockServiceCount(b.BlockServiceID, m.FileID, 1); err != nil {
				return nil, err
			}
		}
		locations = append(locations, store.LocationBlocksBody{
			LocationID:   l.LocationID,
			StorageClass: l.StorageClass,
			Parity:       l.Parity,
			Stripes:      l.Stripes,
			CellSize:     l.CellSize,
			Blocks:       blocks,
			StripeCrcs:   l.StripeCrcs,
		})
	}
	if err := w.PutSpan(m.FileID, m.ByteOffset, store.SpanBody{
		SpanSize:     m.SpanSize,
		Crc:          m.Crc,
		StorageClass: m.StorageClass,
		Locations:    locations,
	}); err != nil {
		return nil, err
	}
	if end := m.ByteOffset + uint64(m.SpanSize); end > t.FileSize {
		t.FileSize = end
	}
	t.LastSpanState = shardtypes.LastSpanDirty
	t.Mtime = m.Time
	if err := w.PutTransient(m.FileID, t); err != nil {
		return nil, err
	}
	return wire.AddSpanInitiateResp{Locations: m.Locations}, nil
}

// applyAddSpanCertify verifies the add proof of every block in the
// span's primary location, then moves DIRTY -> CLEAN
// (spec §4.5.5). A mismatched or missing proof count leaves the span
// dirty for the client to retry or for GC to eventually condemn.
func (e *Engine) applyAddSpanCertify(w *store.WriteTxn, m wire.AddSpanCertifyLogEntry) (wire.Response, error) {
	t, ok, err := w.GetTransient(m.FileID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.FileNotFound)
	}
	if t.LastSpanState != shardtypes.LastSpanDirty {
		return nil, shardtypes.Err(shardtypes.LastSpanStateNotClean)
	}
	span, ok, err := w.GetSpan(m.FileID, m.ByteOffset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.SpanNotFound)
	}
	loc, ok := span.PrimaryLocation()
	if !ok {
		return nil, shardtypes.Err(shardtypes.CannotCertifyBlocklessSpan)
	}
	if len(m.Proofs) != len(loc.Blocks) {
		return nil, shardtypes.Err(shardtypes.BadNumberOfBlocksProofs)
	}
	for i, b := range loc.Blocks {
		bsInfo, ok := e.bscache.Lookup(b.BlockServiceID)
		if !ok {
			return nil, shardtypes.Err(shardtypes.BlockNotFound)
		}
		if !shardcrypto.VerifyAddProof(bsInfo.Key, uint64(b.BlockServiceID), uint64(b.BlockID), m.Proofs[i]) {
			return nil, shardtypes.Err(shardtypes.BadBlockProof)
		}
	}
	t.LastSpanState = shardtypes.LastSpanClean
	t.Mtime = m.Time
	if err := w.PutTransient(m.FileID, t); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

// applyAddSpanLocation attaches an additional replicated location to
// a span already CLEAN in another location, used to add cross-region
// mirrors after the fact (spec §4.5.6).
func (e *Engine) applyAddSpanLocation(w *store.WriteTxn, m wire.AddSpanLocationLogEntry) (wire.Response, error) {
	span, ok, err := w.GetSpan(m.FileID, m.ByteOffset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.SpanNotFound)
	}
	if !span.StorageClass.IsBlocked() {
		return nil, shardtypes.Err(shardtypes.AddSpanLocationInlineStorage)
	}
	t, ok, err := w.GetTransient(m.TransientFileID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.FileNotFound)
	}
	if t.LastSpanState != shardtypes.LastSpanClean {
		return nil, shardtypes.Err(shardtypes.AddSpanLocationNotClean)
	}
	extra, ok, err := w.GetSpan(m.TransientFileID, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.SpanNotFound)
	}
	newLoc, ok := extra.PrimaryLocation()
	if !ok {
		return nil, shardtypes.Err(shardtypes.CannotCertifyBlocklessSpan)
	}
	if extra.SpanSize != span.SpanSize {
		return nil, shardtypes.Err(shardtypes.AddSpanLocationMismatchingSize)
	}
	if extra.Crc != span.Crc {
		return nil, shardtypes.Err(shardtypes.AddSpanLocationMismatchingCrc)
	}
	if _, exists := span.LocationByID(newLoc.LocationID); exists {
		return nil, shardtypes.Err(shardtypes.AddSpanLocationExists)
	}
	for _, b := range newLoc.Blocks {
		if err := w.AddBlockServiceCount(b.BlockServiceID, m.FileID, 1); err != nil {
			return nil, err
		}
		if err := w.AddBlockServiceCount(b.BlockServiceID, m.TransientFileID, -1); err != nil {
			return nil, err
		}
	}
	span.Locations = append(span.Locations, newLoc)
	if err := w.PutSpan(m.FileID, m.ByteOffset, span); err != nil {
		return nil, err
	}
	if err := w.DeleteSpan(m.TransientFileID, 0); err != nil {
		return nil, err
	}
	if err := w.DeleteTransient(m.TransientFileID); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

// applyRemoveSpanInitiate moves a CLEAN span CONDEMNED, marking it
// for block erasure ahead of RemoveSpanCertify.
func (e *Engine) applyRemoveSpanInitiate(w *store.WriteTxn, m wire.RemoveSpanInitiateLogEntry) (wire.Response, error) {
	t, ok, err := w.GetTransient(m.FileID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.FileNotFound)
	}
	if t.LastSpanState != shardtypes.LastSpanClean {
		return nil, shardtypes.Err(shardtypes.LastSpanStateNotClean)
	}
	t.LastSpanState = shardtypes.LastSpanCondemned
	t.Mtime = m.Time
	if err := w.PutTransient(m.FileID, t); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

// applyRemoveSpanCertify verifies each block's erase proof, deletes
// the span and its block-service reference counts, shrinks the file
// back to the span's offset, and returns the transient file's last
// span to CLEAN.
func (e *Engine) applyRemoveSpanCertify(w *store.WriteTxn, m wire.RemoveSpanCertifyLogEntry) (wire.Response, error) {
	t, ok, err := w.GetTransient(m.FileID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.FileNotFound)
	}
	if t.LastSpanState != shardtypes.LastSpanCondemned {
		return nil, shardtypes.Err(shardtypes.LastSpanStateNotClean)
	}
	span, ok, err := w.GetSpan(m.FileID, m.ByteOffset)
	if err != nil {
		return nil, err
	}
	if ok {
		loc, hasLoc := span.PrimaryLocation()
		if hasLoc {
			if len(m.Proofs) != len(loc.Blocks) {
				return nil, shardtypes.Err(shardtypes.BadNumberOfBlocksProofs)
			}
			for i, b := range loc.Blocks {
				bsInfo, ok := e.bscache.Lookup(b.BlockServiceID)
				if !ok {
					return nil, shardtypes.Err(shardtypes.BlockNotFound)
				}
				if !shardcrypto.VerifyDeleteProof(bsInfo.Key, uint64(b.BlockServiceID), uint64(b.BlockID), m.Proofs[i]) {
					return nil, shardtypes.Err(shardtypes.BadBlockProof)
				}
			}
		}
		for _, l := range span.Locations {
			for _, b := range l.Blocks {
				if err := w.AddBlockServiceCount(b.BlockServiceID, m.FileID, -1); err != nil {
					return nil, err
				}
			}
		}
		if err := w.DeleteSpan(m.FileID, m.ByteOffset); err != nil {
			return nil, err
		}
		if m.ByteOffset < t.FileSize {
			t.FileSize = m.ByteOffset
		}
	}
	t.LastSpanState = shardtypes.LastSpanClean
	t.Mtime = m.Time
	if err := w.PutTransient(m.FileID, t); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

// applySwapBlocks exchanges the identity of two blocks between two
// spans' locations, used by block-service rebalancing (spec §4.5.6).
// Grounded on ShardDB.cpp's _applySwapBlocks: both spans must agree
// on span state (neither can be the dirty tail while the other is
// clean), the two blocks must match in size/crc/location, and the
// post-swap arrangement must not duplicate a block service or failure
// domain within either span. A replay that finds neither block where
// the request says, but each already sitting in the other span, is
// treated as already applied.
func (e *Engine) applySwapBlocks(w *store.WriteTxn, m wire.SwapBlocksLogEntry) (wire.Response, error) {
	span1, ok, err := w.GetSpan(m.FileID1, m.Offset1)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.SpanNotFound)
	}
	span2, ok, err := w.GetSpan(m.FileID2, m.Offset2)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.SpanNotFound)
	}
	if !span1.StorageClass.IsBlocked() || !span2.StorageClass.IsBlocked() {
		return nil, shardtypes.Err(shardtypes.SwapBlocksInlineStorage)
	}

	state1, err := e.fetchSpanState(w, m.FileID1, m.Offset1+uint64(span1.SpanSize))
	if err != nil {
		return nil, err
	}
	state2, err := e.fetchSpanState(w, m.FileID2, m.Offset2+uint64(span2.SpanSize))
	if err != nil {
		return nil, err
	}
	if state1 != state2 {
		return nil, shardtypes.Err(shardtypes.SwapBlocksMismatchingState)
	}

	locIdx1, blockIdx1, block1, found1 := findSpanBlock(span1, m.BlockID1)
	locIdx2, blockIdx2, block2, found2 := findSpanBlock(span2, m.BlockID2)
	if !found1 || !found2 {
		if !found1 && !found2 {
			if _, _, _, ok1 := findSpanBlock(span2, m.BlockID1); ok1 {
				if _, _, _, ok2 := findSpanBlock(span1, m.BlockID2); ok2 {
					return wire.NewAckResp(m.Kind()), nil
				}
			}
		}
		return nil, shardtypes.Err(shardtypes.BlockNotFound)
	}
	loc1 := span1.Locations[locIdx1]
	loc2 := span2.Locations[locIdx2]

	if uint32(loc1.Stripes)*loc1.CellSize != uint32(loc2.Stripes)*loc2.CellSize {
		return nil, shardtypes.Err(shardtypes.SwapBlocksMismatchingSize)
	}
	if block1.Crc != block2.Crc {
		return nil, shardtypes.Err(shardtypes.SwapBlocksMismatchingCrc)
	}
	if loc1.LocationID != loc2.LocationID {
		return nil, shardtypes.Err(shardtypes.SwapBlocksMismatchingLocation)
	}
	if err := e.checkNoDuplicatePlacement(loc1.Blocks, blockIdx1, block2); err != nil {
		return nil, err
	}
	if err := e.checkNoDuplicatePlacement(loc2.Blocks, blockIdx2, block1); err != nil {
		return nil, err
	}

	if err := w.AddBlockServiceCount(block1.BlockServiceID, m.FileID1, -1); err != nil {
		return nil, err
	}
	if err := w.AddBlockServiceCount(block2.BlockServiceID, m.FileID1, 1); err != nil {
		return nil, err
	}
	if err := w.AddBlockServiceCount(block1.BlockServiceID, m.FileID2, 1); err != nil {
		return nil, err
	}
	if err := w.AddBlockServiceCount(block2.BlockServiceID, m.FileID2, -1); err != nil {
		return nil, err
	}

	span1.Locations[locIdx1].Blocks[blockIdx1] = block2
	span2.Locations[locIdx2].Blocks[blockIdx2] = block1
	if err := w.PutSpan(m.FileID1, m.Offset1, span1); err != nil {
		return nil, err
	}
	if err := w.PutSpan(m.FileID2, m.Offset2, span2); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

// checkNoDuplicatePlacement rejects a swap that would leave two blocks
// of the same location on the same block service, or on block
// services in the same failure domain, other than the slot being
// replaced.
func (e *Engine) checkNoDuplicatePlacement(blocks []store.BlockLocation, replacingIdx int, newBlock store.BlockLocation) error {
	newInfo, ok := e.bscache.Lookup(newBlock.BlockServiceID)
	if !ok {
		return shardtypes.Err(shardtypes.BlockNotFound)
	}
	for i, b := range blocks {
		if i == replacingIdx {
			continue
		}
		if b.BlockServiceID == newBlock.BlockServiceID {
			return shardtypes.Err(shardtypes.SwapBlocksDuplicateBlockService)
		}
		info, ok := e.bscache.Lookup(b.BlockServiceID)
		if !ok {
			return shardtypes.Err(shardtypes.BlockNotFound)
		}
		if info.FailureDomain == newInfo.FailureDomain {
			return shardtypes.Err(shardtypes.SwapBlocksDuplicateFailureDomain)
		}
	}
	return nil
}

// findSpanBlock searches every location of span for a block with the
// given id, since a block can be swapped into any of a span's
// replicated locations, not just the primary one.
func findSpanBlock(span store.SpanBody, id shardtypes.BlockId) (locIdx, blockIdx int, block store.BlockLocation, found bool) {
	for li, l := range span.Locations {
		for bi, b := range l.Blocks {
			if b.BlockID == id {
				return li, bi, b, true
			}
		}
	}
	return 0, 0, store.BlockLocation{}, false
}

// applySwapSpans exchanges two whole spans between two files at given
// offsets wholesale, used when re-chunking a file's span layout.
// Grounded on ShardDB.cpp's _applySwapSpans: both spans must be
// blocked, matching size/crc, and CLEAN; the log entry's Blocks1/
// Blocks2 snapshot the block ids each span held when the swap was
// prepared, so apply can tell a fresh application (current blocks
// still match the snapshot) from a replay against already-swapped
// state (current blocks match the other span's snapshot) from a
// genuine conflict (neither).
func (e *Engine) applySwapSpans(w *store.WriteTxn, m wire.SwapSpansLogEntry) (wire.Response, error) {
	span1, ok, err := w.GetSpan(m.FileID1, m.Offset1)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.SpanNotFound)
	}
	span2, ok, err := w.GetSpan(m.FileID2, m.Offset2)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.SpanNotFound)
	}
	if !span1.StorageClass.IsBlocked() || !span2.StorageClass.IsBlocked() {
		return nil, shardtypes.Err(shardtypes.SwapSpansInlineStorage)
	}
	if span1.SpanSize != span2.SpanSize {
		return nil, shardtypes.Err(shardtypes.SwapSpansMismatchingSize)
	}
	if span1.Crc != span2.Crc {
		return nil, shardtypes.Err(shardtypes.SwapSpansMismatchingCrc)
	}

	state1, err := e.fetchSpanState(w, m.FileID1, m.Offset1+uint64(span1.SpanSize))
	if err != nil {
		return nil, err
	}
	state2, err := e.fetchSpanState(w, m.FileID2, m.Offset2+uint64(span2.SpanSize))
	if err != nil {
		return nil, err
	}
	if state1 != shardtypes.LastSpanClean || state2 != shardtypes.LastSpanClean {
		return nil, shardtypes.Err(shardtypes.SwapSpansNotClean)
	}

	if spanBlocksMatch(span1, m.Blocks2) && spanBlocksMatch(span2, m.Blocks1) {
		return wire.NewAckResp(m.Kind()), nil
	}
	if !(spanBlocksMatch(span1, m.Blocks1) && spanBlocksMatch(span2, m.Blocks2)) {
		return nil, shardtypes.Err(shardtypes.SwapSpansMismatchingBlocks)
	}

	if err := adjustSpanBlockServiceCounts(w, span1, m.FileID2, m.FileID1); err != nil {
		return nil, err
	}
	if err := adjustSpanBlockServiceCounts(w, span2, m.FileID1, m.FileID2); err != nil {
		return nil, err
	}

	if err := w.PutSpan(m.FileID1, m.Offset1, span2); err != nil {
		return nil, err
	}
	if err := w.PutSpan(m.FileID2, m.Offset2, span1); err != nil {
		return nil, err
	}
	return wire.NewAckResp(m.Kind()), nil
}

// spanBlocksMatch reports whether span's locations, read off in
// order, produce exactly the given flat block id sequence.
func spanBlocksMatch(span store.SpanBody, ids []shardtypes.BlockId) bool {
	idx := 0
	for _, l := range span.Locations {
		if idx+len(l.Blocks) > len(ids) {
			return false
		}
		for _, b := range l.Blocks {
			if b.BlockID != ids[idx] {
				return false
			}
			idx++
		}
	}
	return idx == len(ids)
}

// adjustSpanBlockServiceCounts moves every block of span's locations
// from subtractFrom's block_services_to_files count to addTo's.
func adjustSpanBlockServiceCounts(w *store.WriteTxn, span store.SpanBody, addTo, subtractFrom shardtypes.InodeId) error {
	for _, l := range span.Locations {
		for _, b := range l.Blocks {
			if err := w.AddBlockServiceCount(b.BlockServiceID, addTo, 1); err != nil {
				return err
			}
			if err := w.AddBlockServiceCount(b.BlockServiceID, subtractFrom, -1); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyMoveSpan relocates a span from the dirty tail of one transient
// file onto the clean tail of another, e.g. consolidating a transient
// scratch file's span onto its final destination file. Grounded on
// ShardDB.cpp's _applyMoveSpan: file1 must be DIRTY with the span as
// its exact tail and file2 CLEAN with the destination offset as its
// exact tail, unless the move already happened (file1 shrunk back to
// CLEAN at offset1, file2 already grown to DIRTY at offset2+spanSize),
// in which case apply is a no-op.
func (e *Engine) applyMoveSpan(w *store.WriteTxn, m wire.MoveSpanLogEntry) (wire.Response, error) {
	t1, ok, err := w.GetTransient(m.FileID1)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.FileNotFound)
	}
	t2, ok, err := w.GetTransient(m.FileID2)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.FileNotFound)
	}

	if t1.FileSize == m.Offset1 && t1.LastSpanState == shardtypes.LastSpanClean &&
		t2.FileSize == m.Offset2+uint64(m.SpanSize) && t2.LastSpanState == shardtypes.LastSpanDirty {
		return wire.NewAckResp(m.Kind()), nil
	}
	if t1.LastSpanState != shardtypes.LastSpanDirty || t1.FileSize != m.Offset1+uint64(m.SpanSize) ||
		t2.LastSpanState != shardtypes.LastSpanClean || t2.FileSize != m.Offset2 {
		return nil, shardtypes.Err(shardtypes.SpanNotFound)
	}

	span, ok, err := w.GetSpan(m.FileID1, m.Offset1)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shardtypes.Err(shardtypes.SpanNotFound)
	}
	if span.SpanSize != m.SpanSize {
		return nil, shardtypes.Err(shardtypes.SpanNotFound)
	}

	if err := w.PutSpan(m.FileID2, m.Offset2, span); err != nil {
		return nil, err
	}
	if err := w.DeleteSpan(m.FileID1, m.Offset1); err != nil {
		return nil, err
	}

	t1.FileSize -= uint64(span.SpanSize)
	t1.LastSpanState = shardtypes.LastSpanClean
	t1.Mtime = m.Time
	if err := w.PutTransient(m.FileID1, t1); err != nil {
		return nil, err
	}
	t2.FileSize += uint64(span.SpanSize)
	t2.LastSpanState = shardtypes.LastSpanDirty
	t2.Mtime = m.Time
	if err := w.PutTransient(m.FileID2, t2); err != nil {
		return nil, err
	}

	for _, l := range span.Locations {
		for _, b := range l.Blocks {
			if err := w.AddBlockServiceCount(b.BlockServiceID, m.FileID1, -1); err != nil {
				return nil, err
			}
			if err := w.AddBlockServiceCount(b.BlockServiceID, m.FileID2, 1); err != nil {
				return nil, err
			}
		}
	}
	return wire.NewAckResp(m.Kind()), nil
}

// applyRemoveZeroBlockServiceFiles sweeps a bounded batch of
// block_services_to_files entries whose reference count has settled
// at zero, deleting the bookkeeping rows GC left behind (spec §4.5.7).
func (e *Engine) applyRemoveZeroBlockServiceFiles(w *store.WriteTxn, m wire.RemoveZeroBlockServiceFilesLogEntry) (wire.Response, error) {
	const batch = 1000
	type pair struct {
		bs     shardtypes.BlockServiceId
		fileID shardtypes.InodeId
	}
	var swept []pair
	cursor, err := w.IterateZeroBlockServiceFiles(m.Cursor, batch, func(bs shardtypes.BlockServiceId, fileID shardtypes.InodeId) {
		swept = append(swept, pair{bs, fileID})
	})
	if err != nil {
		return nil, err
	}
	for _, p := range swept {
		if err := w.DeleteBlockServiceCount(p.bs, p.fileID); err != nil {
			return nil, err
		}
	}
	return wire.RemoveZeroBlockServiceFilesResp{Swept: uint32(len(swept)), Cursor: cursor}, nil
}
