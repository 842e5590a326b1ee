package store

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/ristretto/v2"

	"github.com/ternfs/shard/pkg/shardcrypto"
	"github.com/ternfs/shard/pkg/shardtypes"
)

// Config configures one shard's embedded store. It is the narrow
// subset of pkg/config's top-level Config that the store itself
// needs; the rest (network, logging) stays above this package.
type Config struct {
	ShardID     shardtypes.ShardId
	DataDir     string
	Secret      [shardcrypto.SecretSize]byte
	InfoCacheMB int64
}

// Store is the embedded key-value engine for one shard: a badger
// database plus the apply lock and snapshot machinery spec §5
// describes. Mirrors the shape of the teacher's
// pkg/metadata/badger.Store (one *badger.DB, one mutation mutex, one
// cache), generalized from NFS attribute/handle storage to the seven
// column families of spec §3.
type Store struct {
	db       *badger.DB
	shardID  shardtypes.ShardId
	key      shardcrypto.ExpandedKey
	// infoCache is keyed by the raw uint64 form of an InodeId: ristretto's
	// Key constraint is satisfied by uint64 itself, not by defined types
	// with a uint64 underlying type, so the InodeId<->uint64 conversion
	// happens at the infocache.go boundary.
	infoCache *ristretto.Cache[uint64, DirectoryInfo]

	// applyMu serializes every apply; spec §5 calls this out
	// explicitly as the single-writer discipline the whole state
	// machine leans on to avoid any other locking inside the apply
	// handlers themselves.
	applyMu sync.Mutex

	// snapshot is swapped atomically after every committed
	// transaction (AdvanceLogIndex commits and refreshes it for every
	// applied entry, even when the Mutate that follows is aborted) so
	// read handlers never block behind applyMu.
	snapshot atomic.Pointer[Snapshot]
}

// Open opens (creating if absent) the badger database at cfg.DataDir,
// seeds the default-CF singletons on first start-up, and takes the
// store's first snapshot.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.DataDir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger: %w", err)
	}

	key, err := shardcrypto.ExpandKey(cfg.Secret)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: expand key: %w", err)
	}

	cacheMB := cfg.InfoCacheMB
	if cacheMB <= 0 {
		cacheMB = 64
	}
	infoCache, err := ristretto.NewCache(&ristretto.Config[uint64, DirectoryInfo]{
		NumCounters: cacheMB * 1000,
		MaxCost:     cacheMB * 1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: new info cache: %w", err)
	}

	s := &Store{db: db, shardID: cfg.ShardID, key: key, infoCache: infoCache}

	if err := s.bootstrap(cfg); err != nil {
		db.Close()
		return nil, err
	}

	if err := s.refreshSnapshot(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// bootstrap writes the default-CF singletons and the root directory
// if this is a brand-new database (spec §3's "directories start with
// an empty info blob except root, which gets a permissive default").
func (s *Store) bootstrap(cfg Config) error {
	return s.db.Update(func(txn *badger.Txn) error {
		w := newWriteTxn(txn)
		if _, ok, err := w.GetShardInfo(); err != nil {
			return err
		} else if ok {
			return nil // already bootstrapped
		}

		if err := w.PutShardInfo(ShardInfo{ShardID: cfg.ShardID, Secret: cfg.Secret}); err != nil {
			return err
		}
		if err := w.PutLastAppliedLogIndex(0); err != nil {
			return err
		}

		if cfg.ShardID == 0 {
			root := DirectoryBody{
				Version:  1,
				OwnerID:  shardtypes.RootDirInodeId,
				Mtime:    shardtypes.NullTernTime,
				HashMode: shardtypes.HashModeXXH3_63,
				Info:     DefaultRootDirectoryInfo(),
			}
			if err := w.PutDirectory(shardtypes.RootDirInodeId, root); err != nil {
				return err
			}
		}
		return nil
	})
}

// ShardID returns this store's shard id.
func (s *Store) ShardID() shardtypes.ShardId { return s.shardID }

// Key returns the shard's expanded secret, used by the engine to
// compute and verify cookies and block certificates.
func (s *Store) Key() shardcrypto.ExpandedKey { return s.key }

// InfoCache exposes the ristretto-backed DirectoryInfo cache to the
// engine's read and apply handlers (see infocache.go).
func (s *Store) InfoCache() *ristretto.Cache[uint64, DirectoryInfo] { return s.infoCache }

// Close discards the current snapshot and closes the database.
func (s *Store) Close() error {
	if snap := s.snapshot.Load(); snap != nil {
		snap.Release()
	}
	return s.db.Close()
}

// CurrentSnapshot returns the store's current Snapshot, acquired for
// the caller. The caller must call Release when done.
func (s *Store) CurrentSnapshot() *Snapshot {
	return s.snapshot.Load().acquire()
}

// refreshSnapshot opens a fresh badger read transaction, reads the
// currently committed last_applied_log_index, and swaps it in as the
// store's current snapshot, releasing the previous one.
func (s *Store) refreshSnapshot() error {
	txn := s.db.NewTransaction(false)
	idx, err := newReadTxn(txn).GetLastAppliedLogIndex()
	if err != nil {
		txn.Discard()
		return err
	}
	next := newSnapshot(txn, idx)
	prev := s.snapshot.Swap(next)
	if prev != nil {
		prev.Release()
	}
	return nil
}

// AdvanceLogIndex commits newIndex as the store's last_applied_log_index
// in its own transaction, separate from the mutation that follows it
// in apply.go. Badger has no RocksDB-style savepoint/rollback-to-point
// within a single transaction, which is what spec §4.5's "persist the
// index advance even when the per-request mutation rolls back" calls
// for; splitting the advance into its own committed transaction gets
// the same externally observable effect — the cursor moves exactly
// once per log entry regardless of whether the entry's own mutation
// is later discarded — without needing that primitive. Must be called
// with applyMu held.
func (s *Store) AdvanceLogIndex(newIndex uint64) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		w := newWriteTxn(txn)
		cur, err := w.GetLastAppliedLogIndex()
		if err != nil {
			return err
		}
		if newIndex != cur+1 {
			return fmt.Errorf("store: non-contiguous log index: have %d, got %d", cur, newIndex)
		}
		return w.PutLastAppliedLogIndex(newIndex)
	})
	if err != nil {
		return err
	}
	return s.refreshSnapshot()
}

// Mutate runs fn inside a single committed badger transaction and
// refreshes the store's snapshot only if fn returns nil. A non-nil
// *shardtypes.ShardError from fn aborts the transaction (nothing it
// staged is written) without touching the snapshot that
// AdvanceLogIndex already published — the net effect matches spec
// §4.5's "per-request mutation rolled back, index advance kept". Must
// be called with applyMu held, after AdvanceLogIndex.
func (s *Store) Mutate(fn func(w *WriteTxn) error) error {
	txn := s.db.NewTransaction(true)
	defer txn.Discard()

	w := newWriteTxn(txn)
	if err := fn(w); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}
	return s.refreshSnapshot()
}

// Lock acquires the apply lock. Callers must Unlock when done; the
// lock spans both AdvanceLogIndex and Mutate for one log entry so no
// other apply can interleave (spec §5).
func (s *Store) Lock()   { s.applyMu.Lock() }
func (s *Store) Unlock() { s.applyMu.Unlock() }

// TransientDeadline returns the TernTime a transient file created now
// should be scrapped by, given the configured deadline interval.
func TransientDeadline(now shardtypes.TernTime, interval time.Duration) shardtypes.TernTime {
	return now + shardtypes.TernTime(interval.Nanoseconds())
}
