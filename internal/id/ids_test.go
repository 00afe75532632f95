package id

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdsLenAndAt(t *testing.T) {
	want := []Id{New(1), New(2), New(3)}
	seq := FromSlice(want)

	require.Equal(t, len(want), seq.Len())
	for i, w := range want {
		assert.Equal(t, w, seq.At(i))
	}
}

func TestNewIdsRejectsUnalignedLength(t *testing.T) {
	_, err := NewIds(make([]byte, Size+1))
	assert.Error(t, err)

	_, err = NewIds(make([]byte, Size*3))
	assert.NoError(t, err)
}

func TestConcat(t *testing.T) {
	a := FromSlice([]Id{New(1), New(2)})
	b := FromSlice([]Id{New(3)})
	got := Concat(a, b)

	want := FromSlice([]Id{New(1), New(2), New(3)})
	assert.Equal(t, want, got)
}

func TestConcatIsAssociative(t *testing.T) {
	a := FromSlice([]Id{New(1)})
	b := FromSlice([]Id{New(2)})
	c := FromSlice([]Id{New(3)})

	left := Concat(Concat(a, b), c)
	right := Concat(a, Concat(b, c))
	assert.Equal(t, left, right)
}

func TestContains(t *testing.T) {
	seq := FromSlice([]Id{New(1), New(2), New(3)})
	assert.True(t, seq.Contains(New(2)))
	assert.False(t, seq.Contains(New(99)))
}

func TestAppendAndRemove(t *testing.T) {
	seq := FromSlice([]Id{New(1)})
	seq = seq.Append(New(2)).Append(New(3))
	require.Equal(t, 3, seq.Len())

	seq = seq.Remove(New(2))
	assert.Equal(t, 2, seq.Len())
	assert.False(t, seq.Contains(New(2)))
}

func TestSetDeduplicates(t *testing.T) {
	seq := FromSlice([]Id{New(1), New(1), New(2)})
	set := seq.Set()
	assert.Len(t, set, 2)
}

func TestFromSetRoundTripsThroughSlice(t *testing.T) {
	orig := map[Id]struct{}{New(1): {}, New(2): {}, New(3): {}}
	seq := FromSet(orig)
	require.Equal(t, len(orig), seq.Len())
	for id := range seq.Set() {
		assert.Contains(t, orig, id)
	}
}
