package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndUint64(t *testing.T) {
	cases := []uint64{0, 1, 255, 256, 1 << 40, ^uint64(0)}
	for _, n := range cases {
		assert.Equal(t, n, New(n).Uint64())
	}
}

func TestFromBytesRoundTrip(t *testing.T) {
	want := New(0xdeadbeef)
	got, err := FromBytes(want.Bytes())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFromBytesInvalidLength(t *testing.T) {
	for _, n := range []int{0, 1, 7, 9, 16} {
		if n == Size {
			continue
		}
		_, err := FromBytes(make([]byte, n))
		assert.Errorf(t, err, "FromBytes(%d bytes)", n)
	}
}

func TestIdOrderingMatchesByteOrdering(t *testing.T) {
	a, b := New(1), New(2)
	assert.Less(t, a.Bytes()[len(a.Bytes())-1], b.Bytes()[len(b.Bytes())-1])
}

func TestIsZero(t *testing.T) {
	assert.True(t, Zero.IsZero())
	assert.False(t, New(1).IsZero())
}

func TestIdAsMapKey(t *testing.T) {
	m := map[Id]string{New(1): "a", New(2): "b"}
	assert.Equal(t, "a", m[New(1)])
	assert.Equal(t, "b", m[New(2)])
}
