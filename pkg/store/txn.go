package store

import (
	badger "github.com/dgraph-io/badger/v4"

	"github.com/ternfs/shard/pkg/shardtypes"
)

// ReadTxn is a read-only view over the store's column families,
// backed either by a held Snapshot (for the read path) or by the
// mutation transaction itself (for the apply path, which reads
// committed state before writing — WriteTxn embeds ReadTxn for
// exactly this reason).
type ReadTxn struct {
	txn *badger.Txn
}

func newReadTxn(txn *badger.Txn) *ReadTxn { return &ReadTxn{txn: txn} }

func (r *ReadTxn) get(key []byte) ([]byte, bool, error) {
	item, err := r.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// GetShardInfo reads the shard's own identity record.
func (r *ReadTxn) GetShardInfo() (ShardInfo, bool, error) {
	b, ok, err := r.get(KeyShardInfo())
	if !ok || err != nil {
		return ShardInfo{}, ok, err
	}
	v, err := UnpackShardInfo(b)
	return v, true, err
}

// GetLastAppliedLogIndex reads the applied-cursor.
func (r *ReadTxn) GetLastAppliedLogIndex() (uint64, error) {
	b, ok, err := r.get(KeyLastAppliedLogIndex())
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return decodeU64(b), nil
}

// GetNextFileID reads the next_file_id counter; zero means unset.
func (r *ReadTxn) GetNextFileID() (uint64, error) {
	b, ok, err := r.get(KeyNextFileID())
	if err != nil || !ok {
		return 0, err
	}
	return decodeU64(b), nil
}

// GetNextSymlinkID reads the next_symlink_id counter; zero means unset.
func (r *ReadTxn) GetNextSymlinkID() (uint64, error) {
	b, ok, err := r.get(KeyNextSymlinkID())
	if err != nil || !ok {
		return 0, err
	}
	return decodeU64(b), nil
}

// GetNextBlockID reads the next_block_id counter; zero means unset.
func (r *ReadTxn) GetNextBlockID() (uint64, error) {
	b, ok, err := r.get(KeyNextBlockID())
	if err != nil || !ok {
		return 0, err
	}
	return decodeU64(b), nil
}

// GetDirectory reads a directory inode.
func (r *ReadTxn) GetDirectory(id shardtypes.InodeId) (DirectoryBody, bool, error) {
	b, ok, err := r.get(KeyDirectory(id))
	if !ok || err != nil {
		return DirectoryBody{}, ok, err
	}
	v, err := UnpackDirectoryBody(b)
	return v, true, err
}

// GetFile reads a committed file/symlink inode.
func (r *ReadTxn) GetFile(id shardtypes.InodeId) (FileBody, bool, error) {
	b, ok, err := r.get(KeyFile(id))
	if !ok || err != nil {
		return FileBody{}, ok, err
	}
	v, err := UnpackFileBody(b)
	return v, true, err
}

// GetTransient reads a transient file record.
func (r *ReadTxn) GetTransient(id shardtypes.InodeId) (TransientFileBody, bool, error) {
	b, ok, err := r.get(KeyTransient(id))
	if !ok || err != nil {
		return TransientFileBody{}, ok, err
	}
	v, err := UnpackTransientFileBody(b)
	return v, true, err
}

// GetSpan reads the span starting at byteOffset in fileID.
func (r *ReadTxn) GetSpan(fileID shardtypes.InodeId, byteOffset uint64) (SpanBody, bool, error) {
	b, ok, err := r.get(KeySpan(fileID, byteOffset))
	if !ok || err != nil {
		return SpanBody{}, ok, err
	}
	v, err := UnpackSpanBody(b)
	return v, true, err
}

// GetCurrentEdge reads the current edge (dir, name).
func (r *ReadTxn) GetCurrentEdge(dir shardtypes.InodeId, nameHash uint64, name []byte) (CurrentEdgeBody, bool, error) {
	b, ok, err := r.get(KeyCurrentEdge(dir, nameHash, name))
	if !ok || err != nil {
		return CurrentEdgeBody{}, ok, err
	}
	v, err := UnpackCurrentEdgeBody(b)
	return v, true, err
}

// GetSnapshotEdge reads a specific snapshot edge.
func (r *ReadTxn) GetSnapshotEdge(dir shardtypes.InodeId, nameHash uint64, name []byte, creationTime shardtypes.TernTime) (SnapshotEdgeBody, bool, error) {
	b, ok, err := r.get(KeySnapshotEdge(dir, nameHash, name, creationTime))
	if !ok || err != nil {
		return SnapshotEdgeBody{}, ok, err
	}
	v, err := UnpackSnapshotEdgeBody(b)
	return v, true, err
}

// GetBlockServiceCount reads the block_services_to_files count for
// (bs, fileID); missing means 0.
func (r *ReadTxn) GetBlockServiceCount(bs shardtypes.BlockServiceId, fileID shardtypes.InodeId) (int64, error) {
	b, ok, err := r.get(KeyBlockServiceToFile(bs, fileID))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return decodeI64(b), nil
}

// EdgeEntry is one row yielded by an edge scan.
type EdgeEntry struct {
	Dir          shardtypes.InodeId
	Current      bool
	NameHash     uint64
	Name         []byte
	CreationTime shardtypes.TernTime // only meaningful for snapshot edges
	Value        []byte
}

// IterateCurrentEdges scans current edges of dir in name-hash order,
// starting at startHash, calling fn for each until it returns false
// or the prefix is exhausted.
func (r *ReadTxn) IterateCurrentEdges(dir shardtypes.InodeId, startHash uint64, fn func(EdgeEntry) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = EdgeCurrentPrefix(dir)
	it := r.txn.NewIterator(opts)
	defer it.Close()
	start := KeyCurrentEdge(dir, startHash, nil)
	for it.Seek(start); it.ValidForPrefix(opts.Prefix); it.Next() {
		item := it.Item()
		k := item.KeyCopy(nil)
		d, cur, hash, name, ct, ok := DecodeEdgeKey(k)
		if !ok {
			continue
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if !fn(EdgeEntry{Dir: d, Current: cur, NameHash: hash, Name: name, CreationTime: ct, Value: v}) {
			return nil
		}
	}
	return nil
}

// IterateSnapshotEdges scans snapshot edges of dir in name-hash order,
// starting at startHash, calling fn for each until it returns false or
// the prefix is exhausted. Used to check whether a directory still has
// any snapshot edges before it's removed (spec's "no outgoing edges of
// either kind" invariant).
func (r *ReadTxn) IterateSnapshotEdges(dir shardtypes.InodeId, startHash uint64, fn func(EdgeEntry) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = EdgeSnapshotPrefix(dir)
	it := r.txn.NewIterator(opts)
	defer it.Close()
	start := KeySnapshotEdge(dir, startHash, nil, 0)
	for it.Seek(start); it.ValidForPrefix(opts.Prefix); it.Next() {
		item := it.Item()
		k := item.KeyCopy(nil)
		d, cur, hash, name, ct, ok := DecodeEdgeKey(k)
		if !ok {
			continue
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if !fn(EdgeEntry{Dir: d, Current: cur, NameHash: hash, Name: name, CreationTime: ct, Value: v}) {
			return nil
		}
	}
	return nil
}

// IterateEdgesRange scans all edges (current and/or snapshot) of dir
// between two raw key bounds, in the given direction, calling fn for
// each until it returns false. Used by FullReadDir, which needs both
// edge kinds, arbitrary direction, and name/time-bounded ranges.
func (r *ReadTxn) IterateEdgesRange(lower, upper []byte, backwards bool, fn func(EdgeEntry) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = backwards
	it := r.txn.NewIterator(opts)
	defer it.Close()

	inRange := func(k []byte) bool {
		if lower != nil && bytesLess(k, lower) {
			return false
		}
		if upper != nil && bytesLess(upper, k) {
			return false
		}
		return true
	}

	seek := lower
	if backwards {
		seek = upper
	}
	for it.Seek(seek); it.ValidForPrefix([]byte{cfEdges}); it.Next() {
		item := it.Item()
		k := item.KeyCopy(nil)
		if !inRange(k) {
			if backwards {
				continue
			}
			break
		}
		d, cur, hash, name, ct, ok := DecodeEdgeKey(k)
		if !ok {
			continue
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if !fn(EdgeEntry{Dir: d, Current: cur, NameHash: hash, Name: name, CreationTime: ct, Value: v}) {
			return nil
		}
	}
	return nil
}

// IterateSpans scans spans of fileID from startOffset onward, calling
// fn for each until it returns false.
func (r *ReadTxn) IterateSpans(fileID shardtypes.InodeId, startOffset uint64, fn func(offset uint64, body SpanBody) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = SpanPrefix(fileID)
	it := r.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(KeySpan(fileID, startOffset)); it.ValidForPrefix(opts.Prefix); it.Next() {
		item := it.Item()
		_, off, ok := DecodeSpanKey(item.KeyCopy(nil))
		if !ok {
			continue
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		body, err := UnpackSpanBody(v)
		if err != nil {
			return err
		}
		if !fn(off, body) {
			return nil
		}
	}
	return nil
}

// IterateInodes scans a directories/files/transient CF from startID
// onward, calling fn for each until it returns false. Used by the
// Visit* read handlers.
func (r *ReadTxn) IterateInodes(cf byte, startID shardtypes.InodeId, fn func(id shardtypes.InodeId, value []byte) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte{cf}
	it := r.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(appendInodeKey(cf, startID)); it.ValidForPrefix(opts.Prefix); it.Next() {
		item := it.Item()
		id, ok := DecodeInodeKey(item.KeyCopy(nil))
		if !ok {
			continue
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if !fn(id, v) {
			return nil
		}
	}
	return nil
}

// IterateBlockServiceFiles scans block_services_to_files entries of
// bs from startFile onward, skipping zero-count entries, calling fn
// for each positive entry until it returns false.
func (r *ReadTxn) IterateBlockServiceFiles(bs shardtypes.BlockServiceId, startFile shardtypes.InodeId, fn func(fileID shardtypes.InodeId, count int64) bool) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = BlockServicePrefix(bs)
	it := r.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(KeyBlockServiceToFile(bs, startFile)); it.ValidForPrefix(opts.Prefix); it.Next() {
		item := it.Item()
		_, fileID, ok := DecodeBlockServiceToFileKey(item.KeyCopy(nil))
		if !ok {
			continue
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		count := decodeI64(v)
		if count <= 0 {
			continue
		}
		if !fn(fileID, count) {
			return nil
		}
	}
	return nil
}

// IterateZeroBlockServiceFiles scans up to limit block_services_to_files
// entries with count == 0, starting at the raw key cursor (nil means
// start from the beginning), calling fn for each. Returns the raw key
// to resume from, or nil if the scan reached the end of the CF.
func (r *ReadTxn) IterateZeroBlockServiceFiles(cursor []byte, limit int, fn func(bs shardtypes.BlockServiceId, fileID shardtypes.InodeId)) ([]byte, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte{cfBlockServicesToFiles}
	it := r.txn.NewIterator(opts)
	defer it.Close()
	seek := cursor
	if seek == nil {
		seek = []byte{cfBlockServicesToFiles}
	}
	n := 0
	for it.Seek(seek); it.ValidForPrefix(opts.Prefix); it.Next() {
		if n >= limit {
			return it.Item().KeyCopy(nil), nil
		}
		item := it.Item()
		bs, fileID, ok := DecodeBlockServiceToFileKey(item.KeyCopy(nil))
		if !ok {
			continue
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return nil, err
		}
		if decodeI64(v) == 0 {
			fn(bs, fileID)
			n++
		}
	}
	return nil, nil
}

func bytesLess(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// WriteTxn is a read-write transaction used exclusively by the apply
// path, always under the store's single apply lock (spec §5). It
// embeds ReadTxn so apply handlers read committed state and stage
// mutations through the same object.
type WriteTxn struct {
	ReadTxn
	txn *badger.Txn
}

func newWriteTxn(txn *badger.Txn) *WriteTxn {
	return &WriteTxn{ReadTxn: ReadTxn{txn: txn}, txn: txn}
}

func (w *WriteTxn) put(key, value []byte) error { return w.txn.Set(key, value) }
func (w *WriteTxn) del(key []byte) error        { return w.txn.Delete(key) }

func (w *WriteTxn) PutShardInfo(v ShardInfo) error { return w.put(KeyShardInfo(), v.Pack()) }

func (w *WriteTxn) PutLastAppliedLogIndex(v uint64) error {
	return w.put(KeyLastAppliedLogIndex(), encodeU64(v))
}

func (w *WriteTxn) PutNextFileID(v uint64) error    { return w.put(KeyNextFileID(), encodeU64(v)) }
func (w *WriteTxn) PutNextSymlinkID(v uint64) error { return w.put(KeyNextSymlinkID(), encodeU64(v)) }
func (w *WriteTxn) PutNextBlockID(v uint64) error   { return w.put(KeyNextBlockID(), encodeU64(v)) }

func (w *WriteTxn) PutDirectory(id shardtypes.InodeId, v DirectoryBody) error {
	return w.put(KeyDirectory(id), v.Pack())
}

func (w *WriteTxn) DeleteDirectory(id shardtypes.InodeId) error { return w.del(KeyDirectory(id)) }

func (w *WriteTxn) PutFile(id shardtypes.InodeId, v FileBody) error {
	return w.put(KeyFile(id), v.Pack())
}

func (w *WriteTxn) DeleteFile(id shardtypes.InodeId) error { return w.del(KeyFile(id)) }

func (w *WriteTxn) PutTransient(id shardtypes.InodeId, v TransientFileBody) error {
	return w.put(KeyTransient(id), v.Pack())
}

func (w *WriteTxn) DeleteTransient(id shardtypes.InodeId) error { return w.del(KeyTransient(id)) }

func (w *WriteTxn) PutSpan(fileID shardtypes.InodeId, offset uint64, v SpanBody) error {
	return w.put(KeySpan(fileID, offset), v.Pack())
}

func (w *WriteTxn) DeleteSpan(fileID shardtypes.InodeId, offset uint64) error {
	return w.del(KeySpan(fileID, offset))
}

func (w *WriteTxn) PutCurrentEdge(dir shardtypes.InodeId, nameHash uint64, name []byte, v CurrentEdgeBody) error {
	return w.put(KeyCurrentEdge(dir, nameHash, name), v.Pack())
}

func (w *WriteTxn) DeleteCurrentEdge(dir shardtypes.InodeId, nameHash uint64, name []byte) error {
	return w.del(KeyCurrentEdge(dir, nameHash, name))
}

func (w *WriteTxn) PutSnapshotEdge(dir shardtypes.InodeId, nameHash uint64, name []byte, creationTime shardtypes.TernTime, v SnapshotEdgeBody) error {
	return w.put(KeySnapshotEdge(dir, nameHash, name, creationTime), v.Pack())
}

func (w *WriteTxn) DeleteSnapshotEdge(dir shardtypes.InodeId, nameHash uint64, name []byte, creationTime shardtypes.TernTime) error {
	return w.del(KeySnapshotEdge(dir, nameHash, name, creationTime))
}

// AddBlockServiceCount applies delta to the (bs, fileID) count,
// implementing spec §3's "merge-add operator" manually rather than
// through badger's MergeOperator feature: badger's merge operator
// binds a background goroutine to one fixed key for concurrent
// hot-key increments made outside a shared transaction, which doesn't
// fit here — every block_services_to_files mutation already happens
// inside the single apply transaction, serialized behind the apply
// lock, so a plain read-modify-write is simpler and just as correct.
// The result never goes negative (spec invariant 5); a caller passing
// a delta that would make it negative is a programming error, not a
// typed ShardError, since the apply handlers above this layer compute
// deltas from state they just validated.
func (w *WriteTxn) AddBlockServiceCount(bs shardtypes.BlockServiceId, fileID shardtypes.InodeId, delta int64) error {
	cur, err := w.GetBlockServiceCount(bs, fileID)
	if err != nil {
		return err
	}
	next := cur + delta
	if next < 0 {
		panic("store: block service count would go negative")
	}
	if next == 0 {
		return w.del(KeyBlockServiceToFile(bs, fileID))
	}
	return w.put(KeyBlockServiceToFile(bs, fileID), encodeI64(next))
}

func (w *WriteTxn) DeleteBlockServiceCount(bs shardtypes.BlockServiceId, fileID shardtypes.InodeId) error {
	return w.del(KeyBlockServiceToFile(bs, fileID))
}

func encodeU64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func decodeU64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8 && i < len(b); i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func encodeI64(v int64) []byte { return encodeU64(uint64(v)) }
func decodeI64(b []byte) int64 { return int64(decodeU64(b)) }
