package logfeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternfs/shard/pkg/shardtypes"
	"github.com/ternfs/shard/pkg/wire"
)

func sampleEntry(id uint64) wire.ConstructFileLogEntry {
	return wire.ConstructFileLogEntry{
		Time:     shardtypes.TernTime(1),
		ID:       shardtypes.InodeId(id),
		Note:     []byte("note"),
		Deadline: shardtypes.TernTime(2),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	want := sampleEntry(42)
	entry := Encode(7, want)
	assert.Equal(t, uint64(7), entry.Index)

	got, err := entry.Decode()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMemorySourceOrdersInPushOrder(t *testing.T) {
	src := NewMemorySource()
	src.PushEntry(1, sampleEntry(1))
	src.PushEntry(2, sampleEntry(2))
	src.PushEntry(3, sampleEntry(3))

	ctx := context.Background()
	for i := uint64(1); i <= 3; i++ {
		e, err := src.Next(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, e.Index)
	}
}

func TestMemorySourceNextBlocksUntilPush(t *testing.T) {
	src := NewMemorySource()
	ctx := context.Background()

	result := make(chan Entry, 1)
	go func() {
		e, err := src.Next(ctx)
		require.NoError(t, err)
		result <- e
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-result:
		t.Fatal("Next returned before any entry was pushed")
	default:
	}

	src.PushEntry(9, sampleEntry(9))
	select {
	case e := <-result:
		assert.Equal(t, uint64(9), e.Index)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after Push")
	}
}

func TestMemorySourceNextRespectsContextCancellation(t *testing.T) {
	src := NewMemorySource()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := src.Next(ctx)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Next did not return after context cancellation")
	}
}

func TestMemorySourceCloseDrainsThenReturnsErrClosed(t *testing.T) {
	src := NewMemorySource()
	src.PushEntry(1, sampleEntry(1))
	require.NoError(t, src.Close())

	ctx := context.Background()
	e, err := src.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e.Index)

	_, err = src.Next(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

type fakeApplier struct {
	applied []uint64
}

func (f *fakeApplier) Apply(index uint64, entry wire.LogEntry) (wire.Response, error) {
	f.applied = append(f.applied, index)
	return nil, nil
}

func TestRunAppliesEntriesInOrderUntilClosed(t *testing.T) {
	src := NewMemorySource()
	src.PushEntry(1, sampleEntry(1))
	src.PushEntry(2, sampleEntry(2))
	require.NoError(t, src.Close())

	app := &fakeApplier{}
	err := Run(context.Background(), src, app)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, app.applied)
}

func TestRunStopsOnContextCancellation(t *testing.T) {
	src := NewMemorySource()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- Run(ctx, src, &fakeApplier{}) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
