package liveness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/holdfast/internal/id"
)

func TestAddAndContains(t *testing.T) {
	s := New()
	a := id.New(1)

	require.False(t, s.Contains(a))
	require.NoError(t, s.Add(a))
	assert.True(t, s.Contains(a))
	assert.Equal(t, 1, s.Len())
}

func TestAddIsIdempotentForCount(t *testing.T) {
	s := New()
	a := id.New(1)

	for i := 0; i < 3; i++ {
		require.NoErrorf(t, s.Add(a), "Add #%d", i)
	}
	assert.Equal(t, 1, s.Len())
}

func TestDeleteRemovesMembership(t *testing.T) {
	s := New()
	a := id.New(1)
	require.NoError(t, s.Add(a))

	s.Delete(a)
	assert.False(t, s.Contains(a))
	assert.Equal(t, 0, s.Len())
}

func TestDeleteOfAbsentIdIsNoop(t *testing.T) {
	s := New()
	s.Delete(id.New(42))
	assert.Equal(t, 0, s.Len())
}

func TestDeleteTwiceIsIdempotent(t *testing.T) {
	s := New()
	a := id.New(7)
	require.NoError(t, s.Add(a))

	s.Delete(a)
	s.Delete(a)
	assert.Equal(t, 0, s.Len())
}

func TestDistinctIdsCountIndependently(t *testing.T) {
	s := New()
	ids := []id.Id{id.New(1), id.New(2), id.New(3)}
	for _, i := range ids {
		require.NoErrorf(t, s.Add(i), "Add(%v)", i)
	}
	require.Equal(t, len(ids), s.Len())

	s.Delete(ids[1])
	assert.Equal(t, len(ids)-1, s.Len())
	assert.True(t, s.Contains(ids[0]))
	assert.True(t, s.Contains(ids[2]))
}

func TestResetClearsSet(t *testing.T) {
	s := New()
	a := id.New(1)
	require.NoError(t, s.Add(a))

	s.Reset(defaultCapacity)
	assert.False(t, s.Contains(a))
	assert.Equal(t, 0, s.Len())
}
