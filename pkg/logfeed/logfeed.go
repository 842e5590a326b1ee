// Package logfeed is the boundary between this shard's engine and the
// external log/consensus layer (spec §1: "Log replication/consensus is
// an external collaborator; this specification covers only the state
// machine and the storage layout driving it"). The engine does not
// know how entries got agreed on, only that they arrive in log-index
// order as raw bytes; LogSource is the interface that hides the
// replication protocol from cmd/shardd's apply loop, and Run decodes
// and applies what it hands back.
package logfeed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ternfs/shard/pkg/binpack"
	"github.com/ternfs/shard/pkg/wire"
)

// ErrClosed is returned by Next once the feed has been closed and its
// buffer drained.
var ErrClosed = errors.New("logfeed: closed")

// Entry is one committed log entry together with the index the
// consensus layer assigned it. Payload is the same bytes PackLogEntry
// produces: a kind byte followed by the entry's packed body.
type Entry struct {
	Index   uint64
	Payload []byte
}

// Encode packs a wire.LogEntry into an Entry ready to hand to a
// LogSource's producer side (MemorySource.Push, or a real consensus
// client's write path).
func Encode(index uint64, entry wire.LogEntry) Entry {
	w := binpack.NewWriter(0)
	wire.PackLogEntry(w, entry)
	return Entry{Index: index, Payload: w.Bytes()}
}

// Decode unpacks Payload back into a wire.LogEntry.
func (e Entry) Decode() (wire.LogEntry, error) {
	return wire.UnpackLogEntry(binpack.NewReader(e.Payload))
}

// LogSource hands the apply loop one committed entry at a time, in
// increasing, contiguous index order. A real implementation sits on
// top of whatever replication protocol the cluster runs; it is
// responsible for durability and ordering before an entry is ever
// returned from Next.
//
// Next blocks until an entry is available, ctx is done, or the source
// is closed. Implementations must be safe for concurrent use by one
// caller at a time; LogSource does not need to support concurrent
// callers of Next.
type LogSource interface {
	// Next returns the next committed entry, or an error if ctx is
	// done or the source has been closed.
	Next(ctx context.Context) (Entry, error)

	// Close releases resources held by the source. A LogSource that
	// wraps a network connection or file handle closes it here;
	// pending and future Next calls return ErrClosed.
	Close() error
}

// MemorySource is an in-memory LogSource, fed by Push. It stands in
// for a real consensus client in tests and in single-node
// experimentation: cmd/shardd can drive the engine directly from a
// sequence of entries constructed in-process, with no network or
// disk-backed log underneath.
type MemorySource struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Entry
	closed bool
}

// NewMemorySource returns an empty MemorySource ready for Push/Next.
func NewMemorySource() *MemorySource {
	s := &MemorySource{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Push appends an entry to the feed, in the order the caller wants it
// applied. Push does not itself check that index is contiguous with
// the previous push; that is the engine's job at apply time (store's
// AdvanceLogIndex), the same as it would be for a real log source.
func (s *MemorySource) Push(entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.queue = append(s.queue, entry)
	s.cond.Signal()
}

// PushEntry is a convenience wrapper around Push that packs a
// wire.LogEntry for the caller.
func (s *MemorySource) PushEntry(index uint64, entry wire.LogEntry) {
	s.Push(Encode(index, entry))
}

// Next implements LogSource.
func (s *MemorySource) Next(ctx context.Context) (Entry, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			s.cond.Broadcast()
			s.mu.Unlock()
		case <-done:
		}
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) == 0 && !s.closed {
		if err := ctx.Err(); err != nil {
			return Entry{}, err
		}
		s.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	if len(s.queue) == 0 {
		return Entry{}, ErrClosed
	}
	e := s.queue[0]
	s.queue = s.queue[1:]
	return e, nil
}

// Close implements LogSource. Blocked and future Next calls return
// ErrClosed once the queue drains.
func (s *MemorySource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.cond.Broadcast()
	return nil
}

// Len reports how many entries are currently buffered, for tests that
// want to assert on backlog size.
func (s *MemorySource) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Applier is the subset of *engine.Engine that Run needs.
type Applier interface {
	Apply(index uint64, entry wire.LogEntry) (wire.Response, error)
}

// Run pulls entries from src, decodes them, and applies them to dst in
// order until ctx is done or src is exhausted (Next returns
// ErrClosed). It is the glue cmd/shardd's main loop runs in its own
// goroutine; apply-time errors that reach here are already-classified
// request errors (engine.Apply never returns them as Go errors, only
// as wire.ErrorResp) or unrecoverable storage failures, so any
// non-nil, non-context, non-ErrClosed error from Apply is fatal to the
// loop.
func Run(ctx context.Context, src LogSource, dst Applier) error {
	for {
		raw, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("logfeed: reading next entry: %w", err)
		}
		entry, err := raw.Decode()
		if err != nil {
			return fmt.Errorf("logfeed: decoding entry at index %d: %w", raw.Index, err)
		}
		if _, err := dst.Apply(raw.Index, entry); err != nil {
			return fmt.Errorf("logfeed: applying index %d: %w", raw.Index, err)
		}
	}
}
