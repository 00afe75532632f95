package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/holdfast/internal/block"
)

func TestSweepSkipsWhenUnderCacheSize(t *testing.T) {
	e, err := Open(NewMemory(), block.DefaultRegistry(), Config{
		SweepInterval: time.Hour,
		CacheSize:     10,
	})
	require.NoError(t, err)
	ctx := context.Background()

	leaf := mustLeaf(t, "well under budget")
	require.NoError(t, e.Insert(ctx, leaf))

	require.NoError(t, e.sweepOnce(ctx))

	_, ok, err := e.Get(ctx, leaf.Cid)
	require.NoError(t, err)
	assert.True(t, ok, "sweepOnce deleted a block while under CacheSize headroom")
}

func TestSweepReclaimsUnpinnedBlocksOverBudget(t *testing.T) {
	e, err := Open(NewMemory(), block.DefaultRegistry(), Config{
		SweepInterval: time.Hour,
		CacheSize:     1,
	})
	require.NoError(t, err)
	ctx := context.Background()

	pinned := mustLeaf(t, "pinned")
	unpinned := mustLeaf(t, "garbage")

	for _, b := range []block.Block{pinned, unpinned} {
		require.NoError(t, e.Insert(ctx, b))
	}
	require.NoError(t, e.Alias(ctx, []byte("root"), &pinned.Cid))

	require.NoError(t, e.sweepOnce(ctx))

	_, ok, _ := e.Get(ctx, pinned.Cid)
	assert.True(t, ok, "sweepOnce deleted a pinned block")

	_, ok, _ = e.Get(ctx, unpinned.Cid)
	assert.False(t, ok, "sweepOnce left an unpinned block over budget in place")
}

func TestSweepPublishesRemoveEvent(t *testing.T) {
	e, err := Open(NewMemory(), block.DefaultRegistry(), Config{
		SweepInterval: time.Hour,
		CacheSize:     0,
	})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := e.Subscribe(ctx)

	leaf := mustLeaf(t, "soon to be swept")
	require.NoError(t, e.Insert(ctx, leaf))

	// Drain the insert event before triggering the sweep.
	<-events

	require.NoError(t, e.sweepOnce(ctx))

	select {
	case ev := <-events:
		assert.Equal(t, BlockRemoved, ev.Kind)
		assert.True(t, ev.Cid.Equals(leaf.Cid))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for remove event")
	}
}
