package id

// Ids is a concatenation of 8-byte Ids, stored and persisted as a single
// packed byte slice. It is the on-disk representation of "children of X"
// and "referrers of X" sets (internal/storage/tables.go), chosen because it
// needs no framing or delimiters: length is always a multiple of Size.
type Ids []byte

// NewIds validates that b's length is a multiple of Size and wraps it.
func NewIds(b []byte) (Ids, error) {
	if len(b)%Size != 0 {
		return nil, ErrInvalidLength
	}
	return Ids(b), nil
}

// FromSlice packs a slice of Ids into an Ids sequence, in the given order.
func FromSlice(ids []Id) Ids {
	out := make(Ids, 0, len(ids)*Size)
	for _, i := range ids {
		out = append(out, i[:]...)
	}
	return out
}

// FromSet packs the keys of a set (represented as map[Id]struct{}) into an
// Ids sequence. Map iteration order is randomized by the Go runtime, so the
// resulting order is arbitrary; callers must not depend on it.
func FromSet(set map[Id]struct{}) Ids {
	out := make(Ids, 0, len(set)*Size)
	for i := range set {
		out = append(out, i[:]...)
	}
	return out
}

// Len returns the number of packed Ids, in O(1).
func (s Ids) Len() int {
	return len(s) / Size
}

// At returns the i'th packed Id. It panics if i is out of range, mirroring
// slice indexing semantics.
func (s Ids) At(i int) Id {
	var out Id
	copy(out[:], s[i*Size:(i+1)*Size])
	return out
}

// Slice unpacks the sequence into a []Id, in on-disk order.
func (s Ids) Slice() []Id {
	out := make([]Id, s.Len())
	for i := range out {
		out[i] = s.At(i)
	}
	return out
}

// Set unpacks the sequence into a set, deduplicating any repeated ids.
func (s Ids) Set() map[Id]struct{} {
	out := make(map[Id]struct{}, s.Len())
	for i := 0; i < s.Len(); i++ {
		out[s.At(i)] = struct{}{}
	}
	return out
}

// Concat appends one or more Ids sequences together. The result shares no
// backing array with any input.
func Concat(seqs ...Ids) Ids {
	n := 0
	for _, s := range seqs {
		n += len(s)
	}
	out := make(Ids, 0, n)
	for _, s := range seqs {
		out = append(out, s...)
	}
	return out
}

// Contains reports whether id appears anywhere in the sequence. It is O(n)
// and intended for small sets (a single block's children/referrers); the
// approximate, O(1) membership oracle for the whole live set lives in
// internal/liveness.
func (s Ids) Contains(target Id) bool {
	for i := 0; i < s.Len(); i++ {
		if s.At(i) == target {
			return true
		}
	}
	return false
}

// Append returns a new Ids sequence with target appended, without
// deduplication. Callers that need set semantics should go through Set/
// FromSet.
func (s Ids) Append(target Id) Ids {
	out := make(Ids, len(s), len(s)+Size)
	copy(out, s)
	return append(out, target[:]...)
}

// Remove returns a new Ids sequence with every occurrence of target removed.
func (s Ids) Remove(target Id) Ids {
	out := make(Ids, 0, len(s))
	for i := 0; i < s.Len(); i++ {
		if cur := s.At(i); cur != target {
			out = append(out, cur[:]...)
		}
	}
	return out
}
