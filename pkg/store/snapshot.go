package store

import (
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
)

// Snapshot is a point-in-time view of the store, backed by a held
// badger read-only transaction (badger's own MVCC already gives a
// held transaction a consistent point-in-time read set, so no extra
// copy-on-write bookkeeping is needed on top).
//
// Read handlers acquire the store's current Snapshot once per
// request and release it when done; a refcount tracks outstanding
// holders so that a long-running paginated read (ReadDir, FileSpans,
// ...) doesn't have its view pulled out from under it by a concurrent
// flush, while still letting flush discard superseded snapshots
// promptly once the last holder releases.
type Snapshot struct {
	txn        *badger.Txn
	lastIndex  uint64
	refs       atomic.Int32
	discardedOnce atomic.Bool
}

func newSnapshot(txn *badger.Txn, lastIndex uint64) *Snapshot {
	s := &Snapshot{txn: txn, lastIndex: lastIndex}
	s.refs.Store(1) // the store's own reference, released on supersession
	return s
}

// LastAppliedLogIndex reports the last_applied_log_index visible in
// this snapshot, returned to clients alongside every read response so
// they can detect staleness (spec §2).
func (s *Snapshot) LastAppliedLogIndex() uint64 { return s.lastIndex }

// acquire adds a reader reference. Call Release when done.
func (s *Snapshot) acquire() *Snapshot {
	s.refs.Add(1)
	return s
}

// Release drops a reader reference, discarding the underlying badger
// transaction once the last reference goes away.
func (s *Snapshot) Release() {
	if s.refs.Add(-1) == 0 {
		if s.discardedOnce.CompareAndSwap(false, true) {
			s.txn.Discard()
		}
	}
}

// txnHandle exposes the underlying badger transaction to the rest of
// the store package (keys.go/values.go callers), never to pkg/engine
// directly — engine code goes through the Store/Snapshot accessor
// methods below so the key encoding stays an internal detail.
func (s *Snapshot) txnHandle() *badger.Txn { return s.txn }

// ReadTxn returns a ReadTxn bound to this snapshot's held badger
// transaction, the entry point pkg/engine's read handlers use to walk
// the keyspace without ever seeing a raw badger.Txn.
func (s *Snapshot) ReadTxn() *ReadTxn { return newReadTxn(s.txn) }
