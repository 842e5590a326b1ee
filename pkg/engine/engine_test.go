package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternfs/shard/pkg/blockservices"
	"github.com/ternfs/shard/pkg/shardcrypto"
	"github.com/ternfs/shard/pkg/shardtypes"
	"github.com/ternfs/shard/pkg/store"
	"github.com/ternfs/shard/pkg/wire"
)

// testBlockServiceSecret is shared by every block-placed span test that
// needs a populated blockservices.Cache; only one block service is
// ever registered, so every test using it sticks to Parity{D: 1, P: 0}
// (plain mirroring, one block per location).
var testBlockServiceSecret = [shardcrypto.SecretSize]byte{9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9, 9}

// singleBlockSpan fills in the Stripes/CellSize/StripeCrcs/Crc fields
// every D:1,P:0 one-stripe AddSpanInitiateReq in this file needs to
// pass validateBlockedSpanCRCs: one page-sized stripe whose single
// data cell's crc32c (of an all-zero cell, since these tests never
// actually write block content) is both the stripe crc and, with no
// padding, the span crc.
func singleBlockSpan(req wire.AddSpanInitiateReq) wire.AddSpanInitiateReq {
	req.Stripes = 1
	req.CellSize = req.SpanSize
	dataCrc := crc32Checksum(make([]byte, req.CellSize))
	req.StripeCrcs = []uint32{dataCrc}
	req.Crc = dataCrc
	return req
}

func newEngineWithBlockService(t *testing.T, bsID shardtypes.BlockServiceId) *Engine {
	t.Helper()
	key, err := shardcrypto.ExpandKey(testBlockServiceSecret)
	require.NoError(t, err)
	cache := blockservices.NewStaticCache([]blockservices.Info{
		{ID: bsID, Location: 0, StorageClass: shardtypes.StorageClassFlash, Key: key},
	})
	st, err := store.Open(store.Config{
		ShardID: 0,
		DataDir: t.TempDir(),
		Secret:  [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, cache, Config{MaxUDPMTU: 1 << 16}, nil)
}

// addProof/deleteProof mirror shardcrypto's private tagAddProof/
// tagDeleteProof MAC inputs (block_service_id, tag, block_id) under
// the block service's key. The real signer is the block service
// daemon itself, outside this repo's scope, so tests stand in for it
// the same way the wire protocol defines it.
func addProof(key shardcrypto.ExpandedKey, bsID shardtypes.BlockServiceId, blockID shardtypes.BlockId) [8]byte {
	return key.CBCMAC(packBlockOpForTest(bsID, 'W', blockID))
}

func deleteProof(key shardcrypto.ExpandedKey, bsID shardtypes.BlockServiceId, blockID shardtypes.BlockId) [8]byte {
	return key.CBCMAC(packBlockOpForTest(bsID, 'E', blockID))
}

func packBlockOpForTest(bsID shardtypes.BlockServiceId, tag byte, blockID shardtypes.BlockId) []byte {
	buf := make([]byte, 17)
	putU64LE(buf[0:8], uint64(bsID))
	buf[8] = tag
	putU64LE(buf[9:17], uint64(blockID))
	return buf
}

func putU64LE(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

// newTestEngine opens a fresh badger-backed store under a temp
// directory, matching the teacher's createTestStore(t, ...) pattern in
// pkg/metadata/badger/cache_test.go.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	st, err := store.Open(store.Config{
		ShardID: 0,
		DataDir: t.TempDir(),
		Secret:  [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st, blockservices.NewStaticCache(nil), Config{MaxUDPMTU: 1 << 16}, nil)
}

// apply runs prepare's result straight through Apply, failing the test
// if the log entry itself could not be applied (a ShardError response
// is still returned so callers can assert on it). AdvanceLogIndex
// requires strictly contiguous indices per store, so the next index is
// always derived from the engine's own cursor rather than a shared
// counter (tests run against independent stores, but a package-level
// counter would still drift out of step with any one of them).
func apply(t *testing.T, e *Engine, entry wire.LogEntry) wire.Response {
	t.Helper()
	resp, err := e.Apply(e.LastAppliedLogIndex()+1, entry)
	require.NoError(t, err)
	return resp
}

func errCode(t *testing.T, resp wire.Response) shardtypes.Code {
	t.Helper()
	errResp, ok := resp.(wire.ErrorResp)
	require.True(t, ok, "expected an ErrorResp, got %T", resp)
	return errResp.Code
}

func mkdir(t *testing.T, e *Engine, owner shardtypes.InodeId) shardtypes.InodeId {
	t.Helper()
	entry, err := e.PrepareCreateDirectoryInode(wire.CreateDirectoryInodeReq{OwnerID: owner})
	require.NoError(t, err)
	resp := apply(t, e, entry)
	created, ok := resp.(wire.CreateDirectoryInodeResp)
	require.True(t, ok, "expected CreateDirectoryInodeResp, got %T", resp)
	return created.ID
}

func linkNewFile(t *testing.T, e *Engine, dir shardtypes.InodeId, name string) shardtypes.InodeId {
	t.Helper()
	construct, err := e.PrepareConstructFile(wire.ConstructFileReq{Type: shardtypes.InodeTypeFile})
	require.NoError(t, err)
	constructResp := apply(t, e, construct)
	fileResp, ok := constructResp.(wire.ConstructFileResp)
	require.True(t, ok, "expected ConstructFileResp, got %T", constructResp)

	link, err := e.PrepareLinkFile(wire.LinkFileReq{FileID: fileResp.ID, Dir: dir, Name: []byte(name)})
	require.NoError(t, err)
	linkResp := apply(t, e, link)
	_, ok = linkResp.(wire.LinkFileResp)
	require.True(t, ok, "expected LinkFileResp, got %T", linkResp)
	return fileResp.ID
}

func TestCreateDirectoryInodeIsIdempotentOnReplay(t *testing.T) {
	e := newTestEngine(t)
	dir := mkdir(t, e, shardtypes.RootDirInodeId)

	// Replaying the exact same log entry (same pre-allocated id) must
	// return the same response rather than erroring on an existing key.
	entry, err := e.PrepareCreateDirectoryInode(wire.CreateDirectoryInodeReq{ID: dir, OwnerID: shardtypes.RootDirInodeId})
	require.NoError(t, err)
	resp := apply(t, e, entry)
	created, ok := resp.(wire.CreateDirectoryInodeResp)
	require.True(t, ok)
	assert.Equal(t, dir, created.ID)
}

func TestConstructAndLinkFileThenStat(t *testing.T) {
	e := newTestEngine(t)
	dir := mkdir(t, e, shardtypes.RootDirInodeId)
	fileID := linkNewFile(t, e, dir, "hello.txt")

	stat, err := e.StatFile(wire.StatFileReq{ID: fileID})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), stat.FileSize)

	lookup, err := e.Lookup(wire.LookupReq{Dir: dir, Name: []byte("hello.txt")})
	require.NoError(t, err)
	assert.Equal(t, fileID, lookup.TargetID)
}

func TestLinkFileFailsWhenTransientAlreadyCommitted(t *testing.T) {
	e := newTestEngine(t)
	dir := mkdir(t, e, shardtypes.RootDirInodeId)
	fileID := linkNewFile(t, e, dir, "once.txt")

	// Re-applying a LinkFile for an id that has already moved from
	// transient to committed, with no matching edge, must fail with
	// FileNotFound rather than silently creating a second edge.
	bogusLink := wire.LinkFileLogEntry{Time: now(), FileID: fileID, Dir: dir, Name: []byte("ghost.txt")}
	resp := apply(t, e, bogusLink)
	assert.Equal(t, shardtypes.FileNotFound, errCode(t, resp))
}

func TestLookupOnMissingNameFails(t *testing.T) {
	e := newTestEngine(t)
	dir := mkdir(t, e, shardtypes.RootDirInodeId)

	_, err := e.Lookup(wire.LookupReq{Dir: dir, Name: []byte("nope")})
	assert.Equal(t, shardtypes.NameNotFound, codeOf(err))
}

func TestCreateCurrentEdgeRejectsLockedNameWithMismatchingTarget(t *testing.T) {
	e := newTestEngine(t)
	dir := mkdir(t, e, shardtypes.RootDirInodeId)
	fileA := linkNewFile(t, e, dir, "a")

	lockEntry := wire.NewCreateLockedCurrentEdgeLogEntry(now(), dir, []byte("b"), fileA, 0)
	apply(t, e, lockEntry)

	otherFile := linkNewFile(t, e, dir, "other-target-source")
	conflicting := wire.NewCreateLockedCurrentEdgeLogEntry(now(), dir, []byte("b"), otherFile, 0)
	resp := apply(t, e, conflicting)
	assert.Equal(t, shardtypes.MismatchingTarget, errCode(t, resp))
}

// TestSameDirectoryRename exercises the worked example of renaming "a"
// onto "b" within one directory: the "a" edge is soft-unlinked (not
// owned, the file survives under "b"), the old "b" edge becomes an
// owned snapshot edge, and "b" now points at the file that used to be
// "a".
func TestSameDirectoryRename(t *testing.T) {
	e := newTestEngine(t)
	dir := mkdir(t, e, shardtypes.RootDirInodeId)
	fileA := linkNewFile(t, e, dir, "a")
	fileB := linkNewFile(t, e, dir, "b")

	lookupA, err := e.Lookup(wire.LookupReq{Dir: dir, Name: []byte("a")})
	require.NoError(t, err)
	renameEntry := wire.NewSameDirectoryRenameLogEntry(now(), dir, []byte("a"), []byte("b"), fileA, lookupA.CreationTime)
	resp := apply(t, e, renameEntry)
	_, ok := resp.(wire.ErrorResp)
	assert.False(t, ok, "rename should have succeeded")

	// "a" no longer has a current edge.
	_, err = e.Lookup(wire.LookupReq{Dir: dir, Name: []byte("a")})
	assert.Equal(t, shardtypes.NameNotFound, codeOf(err))

	// "b" now points at what used to be "a"'s target.
	lookupB, err := e.Lookup(wire.LookupReq{Dir: dir, Name: []byte("b")})
	require.NoError(t, err)
	assert.Equal(t, fileA, lookupB.TargetID)

	// The file that used to live at "b" still exists; its old edge was
	// overridden into a snapshot edge, not deleted.
	_, err = e.StatFile(wire.StatFileReq{ID: fileB})
	require.NoError(t, err)
}

// TestSameDirectoryRenameIsIdempotentOnReplay covers the replay
// recovery in sameDirectoryRename: if the rename already went through
// and only the new edge remains, replaying the same log entry must
// succeed rather than erroring on the directory's already-bumped mtime.
func TestSameDirectoryRenameIsIdempotentOnReplay(t *testing.T) {
	e := newTestEngine(t)
	dir := mkdir(t, e, shardtypes.RootDirInodeId)
	fileA := linkNewFile(t, e, dir, "a")
	linkNewFile(t, e, dir, "b")

	lookupA, err := e.Lookup(wire.LookupReq{Dir: dir, Name: []byte("a")})
	require.NoError(t, err)
	renameTime := now()
	renameEntry := wire.NewSameDirectoryRenameLogEntry(renameTime, dir, []byte("a"), []byte("b"), fileA, lookupA.CreationTime)
	apply(t, e, renameEntry)

	// Replay the identical entry (e.g. the log redelivered it after an
	// apply-side crash that committed but didn't ack).
	resp := apply(t, e, renameEntry)
	_, isErr := resp.(wire.ErrorResp)
	assert.False(t, isErr, "idempotent replay of a completed rename should not fail")
}

func TestSameDirectoryRenameRejectsStaleCreationTime(t *testing.T) {
	e := newTestEngine(t)
	dir := mkdir(t, e, shardtypes.RootDirInodeId)
	fileA := linkNewFile(t, e, dir, "a")
	linkNewFile(t, e, dir, "b")

	staleEntry := wire.NewSameDirectoryRenameLogEntry(now(), dir, []byte("a"), []byte("b"), fileA, 0)
	resp := apply(t, e, staleEntry)
	assert.Equal(t, shardtypes.MismatchingCreationTime, errCode(t, resp))
}

func TestSoftUnlinkThenRemoveInodeReclaimsFile(t *testing.T) {
	e := newTestEngine(t)
	dir := mkdir(t, e, shardtypes.RootDirInodeId)
	fileID := linkNewFile(t, e, dir, "doomed")

	lookup, err := e.Lookup(wire.LookupReq{Dir: dir, Name: []byte("doomed")})
	require.NoError(t, err)

	unlinkEntry := wire.SoftUnlinkFileLogEntry{
		Time: now(), Dir: dir, Name: []byte("doomed"),
		TargetID: fileID, CreationTime: lookup.CreationTime, Owned: true,
	}
	apply(t, e, unlinkEntry)

	_, err = e.Lookup(wire.LookupReq{Dir: dir, Name: []byte("doomed")})
	assert.Equal(t, shardtypes.NameNotFound, codeOf(err))

	hardUnlink := wire.NewSameShardHardFileUnlinkLogEntry(now(), fileID)
	apply(t, e, hardUnlink)

	_, err = e.StatFile(wire.StatFileReq{ID: fileID})
	assert.Equal(t, shardtypes.FileNotFound, codeOf(err))

	stat, err := e.StatTransientFile(wire.StatTransientFileReq{ID: fileID})
	require.NoError(t, err)
	assert.Equal(t, shardtypes.LastSpanClean, stat.LastSpanState)
}

func TestSetDirectoryOwnerRejectsStaleMtime(t *testing.T) {
	e := newTestEngine(t)
	dir := mkdir(t, e, shardtypes.RootDirInodeId)

	entry := wire.SetDirectoryOwnerLogEntry{Time: now(), Dir: dir, OwnerID: shardtypes.RootDirInodeId}
	apply(t, e, entry)

	// A second apply carrying the exact same timestamp must fail: the
	// directory's mtime was already bumped to that value.
	stale := wire.SetDirectoryOwnerLogEntry{Time: entry.Time, Dir: dir, OwnerID: shardtypes.RootDirInodeId}
	resp := apply(t, e, stale)
	assert.Equal(t, shardtypes.MtimeIsTooRecent, errCode(t, resp))
}

func TestRemoveDirectoryOwnerFailsWhenNotEmpty(t *testing.T) {
	e := newTestEngine(t)
	dir := mkdir(t, e, shardtypes.RootDirInodeId)
	linkNewFile(t, e, dir, "occupant")

	entry := wire.NewRemoveDirectoryOwnerLogEntry(now(), dir)
	resp := apply(t, e, entry)
	assert.Equal(t, shardtypes.DirectoryNotEmpty, errCode(t, resp))
}

// TestRemoveInodeRejectsDirectoryWithDanglingSnapshotEdge covers a
// directory that has no current edges left (so RemoveDirectoryOwner
// already let it go unowned) but still has a snapshot edge from a
// file that was soft-unlinked rather than hard-deleted: RemoveInode
// must still refuse to delete it, since the snapshot edge keeps the
// target reachable.
func TestRemoveInodeRejectsDirectoryWithDanglingSnapshotEdge(t *testing.T) {
	e := newTestEngine(t)
	dir := mkdir(t, e, shardtypes.RootDirInodeId)
	fileID := linkNewFile(t, e, dir, "ghost")

	lookup, err := e.Lookup(wire.LookupReq{Dir: dir, Name: []byte("ghost")})
	require.NoError(t, err)
	apply(t, e, wire.SoftUnlinkFileLogEntry{
		Time: now(), Dir: dir, Name: []byte("ghost"),
		TargetID: fileID, CreationTime: lookup.CreationTime, Owned: true,
	})

	unown := wire.NewRemoveDirectoryOwnerLogEntry(now(), dir)
	resp := apply(t, e, unown)
	_, isErr := resp.(wire.ErrorResp)
	require.False(t, isErr, "directory has no current edges left, so unowning it should succeed")

	remove := wire.NewRemoveInodeLogEntry(now(), dir)
	resp = apply(t, e, remove)
	assert.Equal(t, shardtypes.DirectoryNotEmpty, errCode(t, resp),
		"a dangling snapshot edge must still block directory removal")
}

func TestVisitDirectoriesPages(t *testing.T) {
	e := newTestEngine(t)
	var ids []shardtypes.InodeId
	for i := 0; i < 3; i++ {
		ids = append(ids, mkdir(t, e, shardtypes.RootDirInodeId))
	}

	resp, err := e.VisitDirectories(wire.VisitDirectoriesReq{VisitReq: wire.VisitReq{Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, resp.VisitResp.IDs, 2)
	assert.NotEqual(t, shardtypes.InodeId(0), resp.VisitResp.NextID)

	resp2, err := e.VisitDirectories(wire.VisitDirectoriesReq{VisitReq: wire.VisitReq{StartID: resp.VisitResp.NextID, Limit: 10}})
	require.NoError(t, err)
	assert.NotEmpty(t, resp2.VisitResp.IDs)
}

func TestLastAppliedLogIndexTracksApplies(t *testing.T) {
	e := newTestEngine(t)
	before := e.LastAppliedLogIndex()
	mkdir(t, e, shardtypes.RootDirInodeId)
	after := e.LastAppliedLogIndex()
	assert.Greater(t, after, before)
}

// constructTransient allocates a transient file/symlink id without
// linking it under any directory, the starting state every span test
// below needs (AddInlineSpan/AddSpanInitiate both require a CLEAN
// transient, which ConstructFile alone already produces).
func constructTransient(t *testing.T, e *Engine) shardtypes.InodeId {
	t.Helper()
	entry, err := e.PrepareConstructFile(wire.ConstructFileReq{Type: shardtypes.InodeTypeFile})
	require.NoError(t, err)
	resp := apply(t, e, entry)
	fileResp, ok := resp.(wire.ConstructFileResp)
	require.True(t, ok, "expected ConstructFileResp, got %T", resp)
	return fileResp.ID
}

func TestAddInlineSpanGrowsFileSizeAndStaysClean(t *testing.T) {
	e := newTestEngine(t)
	fileID := constructTransient(t, e)

	body := []byte("hello, span")
	entry := wire.AddInlineSpanLogEntry{
		Time: now(),
		AddInlineSpanReq: wire.AddInlineSpanReq{
			FileID: fileID, ByteOffset: 0, Crc: crc32Checksum(body),
			StorageClass: shardtypes.StorageClassInline, Body: body,
		},
	}
	resp := apply(t, e, entry)
	_, isErr := resp.(wire.ErrorResp)
	require.False(t, isErr)

	stat, err := e.StatTransientFile(wire.StatTransientFileReq{ID: fileID})
	require.NoError(t, err)
	assert.Equal(t, uint64(len(body)), stat.FileSize)
	assert.Equal(t, shardtypes.LastSpanClean, stat.LastSpanState)
}

func TestAddInlineSpanRejectsWhenLastSpanNotClean(t *testing.T) {
	e := newTestEngine(t)
	fileID := constructTransient(t, e)

	body := []byte("first span")
	first := wire.AddInlineSpanLogEntry{
		Time: now(),
		AddInlineSpanReq: wire.AddInlineSpanReq{
			FileID: fileID, ByteOffset: 0, Crc: crc32Checksum(body),
			StorageClass: shardtypes.StorageClassInline, Body: body,
		},
	}
	apply(t, e, first)

	// Move the last span out of CLEAN (CONDEMNED, via
	// RemoveSpanInitiate, stands in for DIRTY here; applyAddInlineSpan
	// only checks "== clean" either way) and verify a second
	// AddInlineSpan on top of it is rejected rather than silently
	// overwriting an in-flight span transition.
	notClean := wire.RemoveSpanInitiateLogEntry{RemoveSpanInitiateReq: wire.RemoveSpanInitiateReq{FileID: fileID, ByteOffset: 0}, Time: now()}
	apply(t, e, notClean)

	second := wire.AddInlineSpanLogEntry{
		Time: now(),
		AddInlineSpanReq: wire.AddInlineSpanReq{
			FileID: fileID, ByteOffset: 8, Crc: crc32Checksum(body),
			StorageClass: shardtypes.StorageClassInline, Body: body,
		},
	}
	resp := apply(t, e, second)
	assert.Equal(t, shardtypes.LastSpanStateNotClean, errCode(t, resp))
}

func TestRemoveZeroBlockServiceFilesOnEmptyStoreSweepsNothing(t *testing.T) {
	e := newTestEngine(t)
	entry := wire.RemoveZeroBlockServiceFilesLogEntry{Time: now()}
	resp := apply(t, e, entry)
	swept, ok := resp.(wire.RemoveZeroBlockServiceFilesResp)
	require.True(t, ok, "expected RemoveZeroBlockServiceFilesResp, got %T", resp)
	assert.Equal(t, uint32(0), swept.Swept)
}

// TestCrossDirectoryMoveProtocol exercises the locked-edge handshake a
// cross-shard/cross-directory rename uses: lock the destination edge
// first (so a concurrent lookup sees either the old or new location,
// never neither), then unlock it with WasMoved set once the source
// side has been retired, which retires the locked edge into a snapshot
// edge.
func TestCrossDirectoryMoveProtocol(t *testing.T) {
	e := newTestEngine(t)
	srcDir := mkdir(t, e, shardtypes.RootDirInodeId)
	dstDir := mkdir(t, e, shardtypes.RootDirInodeId)
	fileID := linkNewFile(t, e, srcDir, "movable")

	lockEntry := wire.NewCreateLockedCurrentEdgeLogEntry(now(), dstDir, []byte("moved"), fileID, 0)
	apply(t, e, lockEntry)

	// While locked, the edge keeps other writers from creating a new
	// unlocked edge over the name (createCurrentEdge answers
	// NameIsLocked).
	unlockEntry := wire.UnlockCurrentEdgeLogEntry{
		Time: now(), Dir: dstDir, Name: []byte("moved"),
		TargetID: fileID, CreationTime: lockEntry.Time, WasMoved: true,
	}
	resp := apply(t, e, unlockEntry)
	_, isErr := resp.(wire.ErrorResp)
	require.False(t, isErr)

	lookup, err := e.Lookup(wire.LookupReq{Dir: dstDir, Name: []byte("moved")})
	assert.Equal(t, shardtypes.NameNotFound, codeOf(err), "WasMoved unlock should leave a snapshot edge, not a current one")
	_ = lookup
}

// TestAddSpanInitiateThenCertify drives the block-placed span's full
// DIRTY->CLEAN lifecycle: prepare picks a real block service out of
// the cache, initiate records it and flips the transient's last span
// dirty, and certify verifies each block's add proof before flipping
// it back clean.
func TestAddSpanInitiateThenCertify(t *testing.T) {
	const bsID = shardtypes.BlockServiceId(1)
	e := newEngineWithBlockService(t, bsID)
	key, err := shardcrypto.ExpandKey(testBlockServiceSecret)
	require.NoError(t, err)

	fileID := constructTransient(t, e)

	initiateEntry, err := e.PrepareAddSpanInitiate(singleBlockSpan(wire.AddSpanInitiateReq{
		FileID: fileID, ByteOffset: 0, SpanSize: 4096,
		StorageClass: shardtypes.StorageClassFlash, Parity: shardtypes.Parity{D: 1, P: 0},
	}))
	require.NoError(t, err)
	resp := apply(t, e, initiateEntry)
	initiateResp, ok := resp.(wire.AddSpanInitiateResp)
	require.True(t, ok, "expected AddSpanInitiateResp, got %T", resp)
	require.Len(t, initiateResp.Locations, 1)
	require.Len(t, initiateResp.Locations[0].Blocks, 1)
	block := initiateResp.Locations[0].Blocks[0]
	assert.Equal(t, bsID, block.BlockServiceID)

	stat, err := e.StatTransientFile(wire.StatTransientFileReq{ID: fileID})
	require.NoError(t, err)
	assert.Equal(t, shardtypes.LastSpanDirty, stat.LastSpanState)

	certifyEntry := wire.AddSpanCertifyLogEntry{
		Time: now(),
		AddSpanCertifyReq: wire.AddSpanCertifyReq{
			FileID: fileID, ByteOffset: 0,
			Proofs: [][8]byte{addProof(key, block.BlockServiceID, block.BlockID)},
		},
	}
	certifyResp := apply(t, e, certifyEntry)
	_, isErr := certifyResp.(wire.ErrorResp)
	require.False(t, isErr, "certify with a valid add proof should succeed")

	stat, err = e.StatTransientFile(wire.StatTransientFileReq{ID: fileID})
	require.NoError(t, err)
	assert.Equal(t, shardtypes.LastSpanClean, stat.LastSpanState)
}

func TestAddSpanCertifyRejectsBadProof(t *testing.T) {
	const bsID = shardtypes.BlockServiceId(1)
	e := newEngineWithBlockService(t, bsID)
	fileID := constructTransient(t, e)

	initiateEntry, err := e.PrepareAddSpanInitiate(singleBlockSpan(wire.AddSpanInitiateReq{
		FileID: fileID, ByteOffset: 0, SpanSize: 4096,
		StorageClass: shardtypes.StorageClassFlash, Parity: shardtypes.Parity{D: 1, P: 0},
	}))
	require.NoError(t, err)
	resp := apply(t, e, initiateEntry)
	initiateResp := resp.(wire.AddSpanInitiateResp)
	block := initiateResp.Locations[0].Blocks[0]

	certifyEntry := wire.AddSpanCertifyLogEntry{
		Time: now(),
		AddSpanCertifyReq: wire.AddSpanCertifyReq{
			FileID: fileID, ByteOffset: 0,
			Proofs: [][8]byte{{0, 0, 0, 0, 0, 0, 0, 0}},
		},
	}
	certifyResp := apply(t, e, certifyEntry)
	assert.Equal(t, shardtypes.BadBlockProof, errCode(t, certifyResp))
	_ = block
}

// TestRemoveSpanInitiateThenCertify exercises the CLEAN->CONDEMNED->
// CLEAN erase path: a certified span can be removed once its delete
// proof is presented, dropping both the span row and its
// block-service reference count.
func TestRemoveSpanInitiateThenCertify(t *testing.T) {
	const bsID = shardtypes.BlockServiceId(7)
	e := newEngineWithBlockService(t, bsID)
	key, err := shardcrypto.ExpandKey(testBlockServiceSecret)
	require.NoError(t, err)
	fileID := constructTransient(t, e)

	initiateEntry, err := e.PrepareAddSpanInitiate(singleBlockSpan(wire.AddSpanInitiateReq{
		FileID: fileID, ByteOffset: 0, SpanSize: 4096,
		StorageClass: shardtypes.StorageClassFlash, Parity: shardtypes.Parity{D: 1, P: 0},
	}))
	require.NoError(t, err)
	initiateResp := apply(t, e, initiateEntry).(wire.AddSpanInitiateResp)
	block := initiateResp.Locations[0].Blocks[0]

	apply(t, e, wire.AddSpanCertifyLogEntry{
		Time: now(),
		AddSpanCertifyReq: wire.AddSpanCertifyReq{
			FileID: fileID, ByteOffset: 0,
			Proofs: [][8]byte{addProof(key, block.BlockServiceID, block.BlockID)},
		},
	})

	removeInitiate := wire.RemoveSpanInitiateLogEntry{RemoveSpanInitiateReq: wire.RemoveSpanInitiateReq{FileID: fileID, ByteOffset: 0}, Time: now()}
	resp := apply(t, e, removeInitiate)
	_, isErr := resp.(wire.ErrorResp)
	require.False(t, isErr)

	stat, err := e.StatTransientFile(wire.StatTransientFileReq{ID: fileID})
	require.NoError(t, err)
	assert.Equal(t, shardtypes.LastSpanCondemned, stat.LastSpanState)

	removeCertify := wire.RemoveSpanCertifyLogEntry{
		Time: now(),
		RemoveSpanCertifyReq: wire.RemoveSpanCertifyReq{
			FileID: fileID, ByteOffset: 0,
			Proofs: [][8]byte{deleteProof(key, block.BlockServiceID, block.BlockID)},
		},
	}
	resp = apply(t, e, removeCertify)
	_, isErr = resp.(wire.ErrorResp)
	require.False(t, isErr)

	stat, err = e.StatTransientFile(wire.StatTransientFileReq{ID: fileID})
	require.NoError(t, err)
	assert.Equal(t, shardtypes.LastSpanClean, stat.LastSpanState)
}

// TestSwapBlocksExchangesBlockIdentity covers the block-service
// rebalancing primitive: two blocks at two distinct (file, offset)
// span slots trade places without touching either span's size or crc.
func TestSwapBlocksExchangesBlockIdentity(t *testing.T) {
	const bsID = shardtypes.BlockServiceId(3)
	e := newEngineWithBlockService(t, bsID)

	file1 := constructTransient(t, e)
	file2 := constructTransient(t, e)

	initiate := func(fileID shardtypes.InodeId) wire.BlockEntry {
		entry, err := e.PrepareAddSpanInitiate(singleBlockSpan(wire.AddSpanInitiateReq{
			FileID: fileID, ByteOffset: 0, SpanSize: 4096,
			StorageClass: shardtypes.StorageClassFlash, Parity: shardtypes.Parity{D: 1, P: 0},
		}))
		require.NoError(t, err)
		resp := apply(t, e, entry).(wire.AddSpanInitiateResp)
		return resp.Locations[0].Blocks[0]
	}
	block1 := initiate(file1)
	block2 := initiate(file2)

	swap := wire.SwapBlocksLogEntry{
		Time: now(), SwapBlocksReq: wire.SwapBlocksReq{
			FileID1: file1, Offset1: 0, BlockID1: block1.BlockID,
			FileID2: file2, Offset2: 0, BlockID2: block2.BlockID,
		},
	}
	resp := apply(t, e, swap)
	_, isErr := resp.(wire.ErrorResp)
	require.False(t, isErr)
}

// TestSwapSpansExchangesWholeSpans covers re-chunking a pair of
// same-size, same-crc blocked spans between two files wholesale
// rather than block by block: unlike SwapBlocks, SwapSpans only
// operates on already-CLEAN, block-placed spans, so both files go
// through the usual initiate/certify lifecycle first, and the swap
// itself goes through PrepareSwapSpans so the block-id snapshots it
// needs for idempotency get attached automatically.
func TestSwapSpansExchangesWholeSpans(t *testing.T) {
	const bsID = shardtypes.BlockServiceId(4)
	e := newEngineWithBlockService(t, bsID)
	key, err := shardcrypto.ExpandKey(testBlockServiceSecret)
	require.NoError(t, err)

	file1 := constructTransient(t, e)
	file2 := constructTransient(t, e)

	initiateAndCertify := func(fileID shardtypes.InodeId) wire.BlockEntry {
		entry, err := e.PrepareAddSpanInitiate(singleBlockSpan(wire.AddSpanInitiateReq{
			FileID: fileID, ByteOffset: 0, SpanSize: 4096,
			StorageClass: shardtypes.StorageClassFlash, Parity: shardtypes.Parity{D: 1, P: 0},
		}))
		require.NoError(t, err)
		resp := apply(t, e, entry).(wire.AddSpanInitiateResp)
		block := resp.Locations[0].Blocks[0]
		apply(t, e, wire.AddSpanCertifyLogEntry{
			Time: now(),
			AddSpanCertifyReq: wire.AddSpanCertifyReq{
				FileID: fileID, ByteOffset: 0,
				Proofs: [][8]byte{addProof(key, block.BlockServiceID, block.BlockID)},
			},
		})
		return block
	}
	block1 := initiateAndCertify(file1)
	block2 := initiateAndCertify(file2)

	swapEntry, err := e.PrepareSwapSpans(wire.SwapSpansReq{FileID1: file1, Offset1: 0, FileID2: file2, Offset2: 0})
	require.NoError(t, err)
	resp := apply(t, e, swapEntry)
	_, isErr := resp.(wire.ErrorResp)
	require.False(t, isErr)

	spans1, err := e.LocalFileSpans(wire.LocalFileSpansReq{FileID: file1})
	require.NoError(t, err)
	require.Len(t, spans1.Spans, 1)
	assert.Equal(t, block2.BlockID, spans1.Spans[0].Blocks[0].BlockID)

	spans2, err := e.LocalFileSpans(wire.LocalFileSpansReq{FileID: file2})
	require.NoError(t, err)
	require.Len(t, spans2.Spans, 1)
	assert.Equal(t, block1.BlockID, spans2.Spans[0].Blocks[0].BlockID)

	// Replaying the same entry against the now-swapped state is a
	// no-op, not a mismatch.
	replay := apply(t, e, swapEntry)
	_, isErr = replay.(wire.ErrorResp)
	require.False(t, isErr, "replaying an already-applied swap should be idempotent")
}

// TestMoveSpanRelocatesSpan covers consolidating a transient scratch
// file's span onto its eventual destination (file, offset) slot:
// MoveSpan requires the source's tail to still be DIRTY (mid-write)
// and the destination's tail to be CLEAN at the landing offset, and
// leaves the source shrunk back to CLEAN and the destination grown
// and DIRTY.
func TestMoveSpanRelocatesSpan(t *testing.T) {
	const bsID = shardtypes.BlockServiceId(6)
	e := newEngineWithBlockService(t, bsID)
	scratch := constructTransient(t, e)
	dest := constructTransient(t, e)

	initiateEntry, err := e.PrepareAddSpanInitiate(singleBlockSpan(wire.AddSpanInitiateReq{
		FileID: scratch, ByteOffset: 0, SpanSize: 4096,
		StorageClass: shardtypes.StorageClassFlash, Parity: shardtypes.Parity{D: 1, P: 0},
	}))
	require.NoError(t, err)
	apply(t, e, initiateEntry)

	move := wire.MoveSpanLogEntry{
		Time: now(),
		MoveSpanReq: wire.MoveSpanReq{
			FileID1: scratch, Offset1: 0, FileID2: dest, Offset2: 0, SpanSize: 4096,
		},
	}
	resp := apply(t, e, move)
	_, isErr := resp.(wire.ErrorResp)
	require.False(t, isErr)

	destSpans, err := e.FileSpans(wire.FileSpansReq{FileID: dest})
	require.NoError(t, err)
	require.Len(t, destSpans.Spans, 1)
	assert.Equal(t, uint64(0), destSpans.Spans[0].ByteOffset)

	scratchSpans, err := e.FileSpans(wire.FileSpansReq{FileID: scratch})
	require.NoError(t, err)
	assert.Empty(t, scratchSpans.Spans)

	statScratch, err := e.StatTransientFile(wire.StatTransientFileReq{ID: scratch})
	require.NoError(t, err)
	assert.Equal(t, shardtypes.LastSpanClean, statScratch.LastSpanState)
	assert.EqualValues(t, 0, statScratch.FileSize)

	statDest, err := e.StatTransientFile(wire.StatTransientFileReq{ID: dest})
	require.NoError(t, err)
	assert.Equal(t, shardtypes.LastSpanDirty, statDest.LastSpanState)
	assert.EqualValues(t, 4096, statDest.FileSize)

	// Replaying the same move against the now-moved state is a no-op.
	replay := apply(t, e, move)
	_, isErr = replay.(wire.ErrorResp)
	require.False(t, isErr, "replaying an already-applied move should be idempotent")
}

// TestSwapBlocksRejectsDuplicateBlockService covers the post-swap
// placement check: swapping a block into a location that would then
// hold two blocks on the same block service must be rejected rather
// than silently creating a single point of failure for that span.
// The spans are built directly against the store rather than through
// AddSpanInitiate, since picking distinct block services for a
// mirrored location is exactly what prepare's own placement logic
// would otherwise prevent.
func TestSwapBlocksRejectsDuplicateBlockService(t *testing.T) {
	key, err := shardcrypto.ExpandKey(testBlockServiceSecret)
	require.NoError(t, err)
	bsA := shardtypes.BlockServiceId(1)
	bsB := shardtypes.BlockServiceId(2)
	cache := blockservices.NewStaticCache([]blockservices.Info{
		{ID: bsA, FailureDomain: blockservices.FailureDomain{1}, Location: 0, StorageClass: shardtypes.StorageClassFlash, Key: key},
		{ID: bsB, FailureDomain: blockservices.FailureDomain{2}, Location: 0, StorageClass: shardtypes.StorageClassFlash, Key: key},
	})
	st, err := store.Open(store.Config{
		ShardID: 0, DataDir: t.TempDir(),
		Secret: [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	e := New(st, cache, Config{MaxUDPMTU: 1 << 16}, nil)

	file1 := constructTransient(t, e)
	file2 := constructTransient(t, e)

	mirroredLocation := func(blocks ...store.BlockLocation) store.SpanBody {
		return store.SpanBody{
			SpanSize: 4096, StorageClass: shardtypes.StorageClassFlash,
			Locations: []store.LocationBlocksBody{{
				LocationID: 0, Parity: shardtypes.Parity{D: 1, P: uint8(len(blocks) - 1)},
				Stripes: 1, CellSize: 4096, Blocks: blocks,
			}},
		}
	}
	require.NoError(t, e.store.Mutate(func(w *store.WriteTxn) error {
		if err := w.PutSpan(file1, 0, mirroredLocation(
			store.BlockLocation{BlockServiceID: bsA, BlockID: 100},
			store.BlockLocation{BlockServiceID: bsB, BlockID: 101},
		)); err != nil {
			return err
		}
		if err := w.PutSpan(file2, 0, mirroredLocation(
			store.BlockLocation{BlockServiceID: bsA, BlockID: 200},
		)); err != nil {
			return err
		}
		for _, fileID := range []shardtypes.InodeId{file1, file2} {
			tf, _, err := w.GetTransient(fileID)
			if err != nil {
				return err
			}
			tf.FileSize = 4096
			tf.LastSpanState = shardtypes.LastSpanDirty
			if err := w.PutTransient(fileID, tf); err != nil {
				return err
			}
		}
		return nil
	}))

	swap := wire.SwapBlocksLogEntry{
		Time: now(), SwapBlocksReq: wire.SwapBlocksReq{
			FileID1: file1, Offset1: 0, BlockID1: 101,
			FileID2: file2, Offset2: 0, BlockID2: 200,
		},
	}
	resp := apply(t, e, swap)
	assert.Equal(t, shardtypes.SwapBlocksDuplicateBlockService, errCode(t, resp))
}

// TestSwapBlocksAdjustsBlockServiceCounts covers the
// block_services_to_files reverse-index bookkeeping a block swap
// between two files must keep in sync.
func TestSwapBlocksAdjustsBlockServiceCounts(t *testing.T) {
	const bsID = shardtypes.BlockServiceId(9)
	e := newEngineWithBlockService(t, bsID)

	file1 := constructTransient(t, e)
	file2 := constructTransient(t, e)

	initiate := func(fileID shardtypes.InodeId) wire.BlockEntry {
		entry, err := e.PrepareAddSpanInitiate(singleBlockSpan(wire.AddSpanInitiateReq{
			FileID: fileID, ByteOffset: 0, SpanSize: 4096,
			StorageClass: shardtypes.StorageClassFlash, Parity: shardtypes.Parity{D: 1, P: 0},
		}))
		require.NoError(t, err)
		resp := apply(t, e, entry).(wire.AddSpanInitiateResp)
		return resp.Locations[0].Blocks[0]
	}
	block1 := initiate(file1)
	block2 := initiate(file2)

	before1, err := e.BlockServiceFiles(wire.BlockServiceFilesReq{BS: bsID, StartFile: file1})
	require.NoError(t, err)
	require.True(t, before1.Found)
	assert.Equal(t, file1, before1.FileID)
	assert.EqualValues(t, 1, before1.Count)

	swap := wire.SwapBlocksLogEntry{
		Time: now(), SwapBlocksReq: wire.SwapBlocksReq{
			FileID1: file1, Offset1: 0, BlockID1: block1.BlockID,
			FileID2: file2, Offset2: 0, BlockID2: block2.BlockID,
		},
	}
	resp := apply(t, e, swap)
	_, isErr := resp.(wire.ErrorResp)
	require.False(t, isErr)

	// Each file still has exactly one block on the shared block
	// service after the swap: the identities traded places, the
	// counts didn't move.
	after1, err := e.BlockServiceFiles(wire.BlockServiceFilesReq{BS: bsID, StartFile: file1})
	require.NoError(t, err)
	require.True(t, after1.Found)
	assert.Equal(t, file1, after1.FileID)
	assert.EqualValues(t, 1, after1.Count)
	after2, err := e.BlockServiceFiles(wire.BlockServiceFilesReq{BS: bsID, StartFile: file2})
	require.NoError(t, err)
	require.True(t, after2.Found)
	assert.Equal(t, file2, after2.FileID)
	assert.EqualValues(t, 1, after2.Count)
}

// TestPrepareAddSpanInitiateRejectsBadCrcStructure covers the
// deterministic CRC-structure checks a blocked span's declared
// layout must satisfy before the shard will pick block services for
// it: misaligned cells, a mirrored parity cell that doesn't match its
// data cell, and a declared span crc that doesn't match the
// concatenation of the per-stripe data crcs all come back as
// BadSpanBody.
func TestPrepareAddSpanInitiateRejectsBadCrcStructure(t *testing.T) {
	const bsID = shardtypes.BlockServiceId(1)
	e := newEngineWithBlockService(t, bsID)
	fileID := constructTransient(t, e)

	base := singleBlockSpan(wire.AddSpanInitiateReq{
		FileID: fileID, ByteOffset: 0, SpanSize: 4096,
		StorageClass: shardtypes.StorageClassFlash, Parity: shardtypes.Parity{D: 1, P: 0},
	})

	misaligned := base
	misaligned.CellSize = 4095
	_, err := e.PrepareAddSpanInitiate(misaligned)
	assert.Equal(t, shardtypes.BadSpanBody, codeOf(err), "cell size must be a page multiple")

	mismatchedMirror := base
	mismatchedMirror.Parity = shardtypes.Parity{D: 1, P: 1}
	mismatchedMirror.StripeCrcs = []uint32{base.StripeCrcs[0], base.StripeCrcs[0] + 1}
	_, err = e.PrepareAddSpanInitiate(mismatchedMirror)
	assert.Equal(t, shardtypes.BadSpanBody, codeOf(err), "mirrored parity cell must match the data cell's crc")

	badSpanCrc := base
	badSpanCrc.Crc++
	_, err = e.PrepareAddSpanInitiate(badSpanCrc)
	assert.Equal(t, shardtypes.BadSpanBody, codeOf(err), "declared span crc must match the stripe crcs it claims to summarize")
}

// TestRemoveSnapshotEdgeOwnedRequiresOwnedKind covers the distinction
// applyRemoveSnapshotEdge draws between the two log-entry kinds that
// share its payload: an owned snapshot edge rejects
// RemoveNonOwnedEdge but yields to RemoveOwnedSnapshotFileEdge.
func TestRemoveSnapshotEdgeOwnedRequiresOwnedKind(t *testing.T) {
	e := newTestEngine(t)
	dir := mkdir(t, e, shardtypes.RootDirInodeId)
	fileID := linkNewFile(t, e, dir, "owned-snapshot")

	lookup, err := e.Lookup(wire.LookupReq{Dir: dir, Name: []byte("owned-snapshot")})
	require.NoError(t, err)
	apply(t, e, wire.SoftUnlinkFileLogEntry{
		Time: now(), Dir: dir, Name: []byte("owned-snapshot"),
		TargetID: fileID, CreationTime: lookup.CreationTime, Owned: true,
	})

	nonOwnedAttempt := wire.NewRemoveNonOwnedEdgeLogEntry(now(), wire.RemoveSnapshotEdgeReq{
		Dir: dir, Name: []byte("owned-snapshot"), CreationTime: lookup.CreationTime, TargetID: fileID,
	})
	resp := apply(t, e, nonOwnedAttempt)
	assert.Equal(t, shardtypes.EdgeNotOwned, errCode(t, resp))

	ownedAttempt := wire.NewRemoveOwnedSnapshotFileEdgeLogEntry(now(), wire.RemoveSnapshotEdgeReq{
		Dir: dir, Name: []byte("owned-snapshot"), CreationTime: lookup.CreationTime, TargetID: fileID,
	})
	resp = apply(t, e, ownedAttempt)
	_, isErr := resp.(wire.ErrorResp)
	require.False(t, isErr, "RemoveOwnedSnapshotFileEdge should be allowed to delete an owned edge")
}

// TestSameDirectoryRenameSnapshot covers renaming a historical
// (non-current) edge in place, used to keep a file's past names
// coherent when its directory itself gets renamed.
func TestSameDirectoryRenameSnapshot(t *testing.T) {
	e := newTestEngine(t)
	dir := mkdir(t, e, shardtypes.RootDirInodeId)
	fileID := linkNewFile(t, e, dir, "was-a")

	lookup, err := e.Lookup(wire.LookupReq{Dir: dir, Name: []byte("was-a")})
	require.NoError(t, err)
	apply(t, e, wire.SoftUnlinkFileLogEntry{
		Time: now(), Dir: dir, Name: []byte("was-a"),
		TargetID: fileID, CreationTime: lookup.CreationTime, Owned: false,
	})

	renameSnapshot := wire.SameDirectoryRenameSnapshotLogEntry{
		Time: now(), Dir: dir, OldName: []byte("was-a"), NewName: []byte("was-c"),
		OldCreationTime: lookup.CreationTime, NewCreationTime: lookup.CreationTime,
	}
	resp := apply(t, e, renameSnapshot)
	_, isErr := resp.(wire.ErrorResp)
	require.False(t, isErr)

	full, err := e.FullReadDir(wire.FullReadDirReq{Dir: dir, Flags: 0, Limit: 100})
	require.NoError(t, err)
	var names []string
	var wasATargets []shardtypes.InodeId
	for _, entry := range full.Entries {
		names = append(names, string(entry.Name))
		if string(entry.Name) == "was-a" {
			wasATargets = append(wasATargets, entry.TargetID)
		}
	}
	assert.Contains(t, names, "was-c")
	// Only the soft unlink's deletion marker stays under the old name.
	assert.Equal(t, []shardtypes.InodeId{shardtypes.NullInodeId}, wasATargets)
}

// TestFileSpansPaginatesAcrossMTUBudget covers fileSpans' MTU-budgeted
// cutoff: a response MTU too small to fit every span stops early and
// reports NextOffset for the caller to resume from.
func TestFileSpansPaginatesAcrossMTUBudget(t *testing.T) {
	e := newTestEngine(t)
	fileID := constructTransient(t, e)

	const spanCount = 20
	body := make([]byte, 64)
	for i := 0; i < spanCount; i++ {
		apply(t, e, wire.AddInlineSpanLogEntry{
			Time: now(),
			AddInlineSpanReq: wire.AddInlineSpanReq{
				FileID: fileID, ByteOffset: uint64(i) * 64, Crc: crc32Checksum(body),
				StorageClass: shardtypes.StorageClassInline, Body: body,
			},
		})
	}

	resp, err := e.FileSpans(wire.FileSpansReq{FileID: fileID, MTU: 256})
	require.NoError(t, err)
	assert.Less(t, len(resp.Spans), spanCount, "a tiny MTU must not fit every span in one page")
	assert.NotZero(t, resp.NextOffset)

	full, err := e.FileSpans(wire.FileSpansReq{FileID: fileID})
	require.NoError(t, err)
	assert.Len(t, full.Spans, spanCount, "the default (large) MTU should return every span in one page")
}

// TestBlockServiceFilesFindsNextFile covers the reverse-index walk a
// block-service decommission sweep repeats with StartFile bumped to
// the previous hit's id + 1.
func TestBlockServiceFilesFindsNextFile(t *testing.T) {
	const bsID = shardtypes.BlockServiceId(5)
	e := newEngineWithBlockService(t, bsID)
	fileID := constructTransient(t, e)

	entry, err := e.PrepareAddSpanInitiate(singleBlockSpan(wire.AddSpanInitiateReq{
		FileID: fileID, ByteOffset: 0, SpanSize: 4096,
		StorageClass: shardtypes.StorageClassFlash, Parity: shardtypes.Parity{D: 1, P: 0},
	}))
	require.NoError(t, err)
	apply(t, e, entry)

	resp, err := e.BlockServiceFiles(wire.BlockServiceFilesReq{BS: bsID, StartFile: 0})
	require.NoError(t, err)
	require.True(t, resp.Found)
	assert.Equal(t, fileID, resp.FileID)
	assert.EqualValues(t, 1, resp.Count)

	none, err := e.BlockServiceFiles(wire.BlockServiceFilesReq{BS: bsID, StartFile: fileID + 1})
	require.NoError(t, err)
	assert.False(t, none.Found)
}

// TestAddSpanLocationAttachesCrossRegionMirror covers attaching a
// second, already-certified location (picked and certified via a
// throwaway transient file, the convention the prepare path uses for
// staging an extra mirror) onto a span already CLEAN at its first
// location.
func TestAddSpanLocationAttachesCrossRegionMirror(t *testing.T) {
	primaryBS := shardtypes.BlockServiceId(10)
	mirrorBS := shardtypes.BlockServiceId(11)
	key, err := shardcrypto.ExpandKey(testBlockServiceSecret)
	require.NoError(t, err)
	cache := blockservices.NewStaticCache([]blockservices.Info{
		{ID: primaryBS, Location: 0, StorageClass: shardtypes.StorageClassFlash, Key: key},
		{ID: mirrorBS, Location: 1, StorageClass: shardtypes.StorageClassFlash, Key: key},
	})
	st, err := store.Open(store.Config{
		ShardID: 0, DataDir: t.TempDir(),
		Secret: [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	e := New(st, cache, Config{MaxUDPMTU: 1 << 16}, nil)

	fileID := constructTransient(t, e)
	primaryInitiate, err := e.PrepareAddSpanInitiate(singleBlockSpan(wire.AddSpanInitiateReq{
		FileID: fileID, ByteOffset: 0, SpanSize: 4096,
		StorageClass: shardtypes.StorageClassFlash, Parity: shardtypes.Parity{D: 1, P: 0},
	}))
	require.NoError(t, err)
	primaryResp := apply(t, e, primaryInitiate).(wire.AddSpanInitiateResp)
	primaryBlock := primaryResp.Locations[0].Blocks[0]
	apply(t, e, wire.AddSpanCertifyLogEntry{
		Time: now(),
		AddSpanCertifyReq: wire.AddSpanCertifyReq{
			FileID: fileID, ByteOffset: 0,
			Proofs: [][8]byte{addProof(key, primaryBlock.BlockServiceID, primaryBlock.BlockID)},
		},
	})

	// Stage the mirror location on a throwaway transient file at
	// location 1, certify it too, then graft it onto the real span.
	mirrorFile := constructTransient(t, e)
	mirrorInitiate, err := e.PrepareAddSpanAtLocationInitiate(wire.AddSpanAtLocationInitiateReq{
		AddSpanInitiateReq: singleBlockSpan(wire.AddSpanInitiateReq{
			FileID: mirrorFile, ByteOffset: 0, SpanSize: 4096,
			StorageClass: shardtypes.StorageClassFlash, Parity: shardtypes.Parity{D: 1, P: 0},
		}),
		LocationID: 1,
	})
	require.NoError(t, err)
	mirrorResp := apply(t, e, mirrorInitiate).(wire.AddSpanInitiateResp)
	mirrorBlock := mirrorResp.Locations[0].Blocks[0]
	assert.Equal(t, mirrorBS, mirrorBlock.BlockServiceID)
	apply(t, e, wire.AddSpanCertifyLogEntry{
		Time: now(),
		AddSpanCertifyReq: wire.AddSpanCertifyReq{
			FileID: mirrorFile, ByteOffset: 0,
			Proofs: [][8]byte{addProof(key, mirrorBlock.BlockServiceID, mirrorBlock.BlockID)},
		},
	})

	attach := wire.AddSpanLocationLogEntry{
		Time: now(),
		AddSpanLocationReq: wire.AddSpanLocationReq{
			FileID: fileID, ByteOffset: 0, TransientFileID: mirrorFile,
		},
	}
	resp := apply(t, e, attach)
	_, isErr := resp.(wire.ErrorResp)
	require.False(t, isErr)

	spans, err := e.FileSpans(wire.FileSpansReq{FileID: fileID})
	require.NoError(t, err)
	require.Len(t, spans.Spans, 1)
	// FileSpans without onlyLocation resolves the primary (lowest
	// LocationID) location, so the attached mirror is visible by
	// asking for its location explicitly instead.
	mirrorView, err := e.LocalFileSpans(wire.LocalFileSpansReq{FileID: fileID, LocationID: 1})
	require.NoError(t, err)
	require.Len(t, mirrorView.Spans, 1)
	assert.Equal(t, shardtypes.LocationId(1), mirrorView.Spans[0].LocationID)

	// The staging transient file was consumed by the attach.
	_, err = e.StatTransientFile(wire.StatTransientFileReq{ID: mirrorFile})
	assert.Equal(t, shardtypes.FileNotFound, codeOf(err))
}

// TestReadDirPaginatesAcrossMTUBudget mirrors
// TestFileSpansPaginatesAcrossMTUBudget for ReadDir: a small MTU must
// stop short of every current edge and report NextHash to resume from.
func TestReadDirPaginatesAcrossMTUBudget(t *testing.T) {
	e := newTestEngine(t)
	dir := mkdir(t, e, shardtypes.RootDirInodeId)

	const fileCount = 20
	for i := 0; i < fileCount; i++ {
		linkNewFile(t, e, dir, fmt.Sprintf("file-%02d", i))
	}

	resp, err := e.ReadDir(wire.ReadDirReq{Dir: dir, MTU: 128})
	require.NoError(t, err)
	assert.Less(t, len(resp.Entries), fileCount, "a tiny MTU must not fit every entry in one page")
	assert.NotZero(t, resp.NextHash)

	full, err := e.ReadDir(wire.ReadDirReq{Dir: dir})
	require.NoError(t, err)
	assert.Len(t, full.Entries, fileCount, "the default (large) MTU should return every entry in one page")
}
