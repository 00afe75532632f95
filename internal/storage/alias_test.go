package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/holdfast/internal/block"
)

func TestAliasToUnstoredCidFails(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	leaf := mustLeaf(t, "not inserted")
	err := e.Alias(ctx, []byte("root"), &leaf.Cid)
	require.True(t, errors.Is(err, ErrBlockNotFound))

	_, ok, _ := e.Resolve(ctx, []byte("root"))
	assert.False(t, ok)
}

func TestAliasPinsTransitiveChildren(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	child := mustLeaf(t, "child")
	parent := mustParent(t, child.Cid)

	require.NoError(t, e.Insert(ctx, child))
	require.NoError(t, e.Insert(ctx, parent))

	require.NoError(t, e.Alias(ctx, []byte("root"), &parent.Cid))

	for _, c := range []cid.Cid{child.Cid, parent.Cid} {
		pinned, known, err := e.Pinned(ctx, c)
		require.NoError(t, err)
		assert.Truef(t, known, "Pinned(%v) known", c)
		assert.Truef(t, pinned, "Pinned(%v) pinned", c)
	}
}

func TestRewritingAliasUnpinsDroppedChildren(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	oldChild := mustLeaf(t, "old child")
	newChild := mustLeaf(t, "new child")
	oldParent := mustParent(t, oldChild.Cid)
	newParent := mustParent(t, newChild.Cid)

	for _, b := range []block.Block{oldChild, newChild, oldParent, newParent} {
		require.NoError(t, e.Insert(ctx, b))
	}

	require.NoError(t, e.Alias(ctx, []byte("root"), &oldParent.Cid))
	require.NoError(t, e.Alias(ctx, []byte("root"), &newParent.Cid))

	pinned, _, err := e.Pinned(ctx, oldChild.Cid)
	require.NoError(t, err)
	assert.False(t, pinned)

	pinned, _, err = e.Pinned(ctx, newChild.Cid)
	require.NoError(t, err)
	assert.True(t, pinned)
}

func TestAliasSharedChildStaysPinnedAcrossTwoRoots(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	shared := mustLeaf(t, "shared")
	parentA := mustParent(t, shared.Cid)

	for _, b := range []block.Block{shared, parentA} {
		require.NoError(t, e.Insert(ctx, b))
	}

	require.NoError(t, e.Alias(ctx, []byte("a"), &parentA.Cid))
	require.NoError(t, e.Alias(ctx, []byte("b"), &parentA.Cid))

	// Clearing one alias must not unpin the block the other still reaches.
	require.NoError(t, e.Alias(ctx, []byte("a"), nil))

	pinned, _, err := e.Pinned(ctx, shared.Cid)
	require.NoError(t, err)
	assert.True(t, pinned, `Pinned(shared) while alias "b" still reaches it`)
}

func TestClearingLastAliasUnpins(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	leaf := mustLeaf(t, "solo")
	require.NoError(t, e.Insert(ctx, leaf))
	require.NoError(t, e.Alias(ctx, []byte("root"), &leaf.Cid))
	require.NoError(t, e.Alias(ctx, []byte("root"), nil))

	pinned, _, err := e.Pinned(ctx, leaf.Cid)
	require.NoError(t, err)
	assert.False(t, pinned)

	_, ok, _ := e.Resolve(ctx, []byte("root"))
	assert.False(t, ok)
}
