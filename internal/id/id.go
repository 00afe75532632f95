package id

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Size is the fixed byte width of an Id.
const Size = 8

// ErrInvalidLength is returned when a byte slice handed to FromBytes isn't
// exactly Size bytes, or a byte slice handed to NewIds isn't a multiple of
// Size.
var ErrInvalidLength = errors.New("id: invalid byte length")

// Id is a fixed 8-byte big-endian internal identifier assigned on first
// sight of a CID. Big-endian encoding keeps ascending numeric order aligned
// with ascending byte order, which the storage engine relies on to walk
// blocks "by InternalId ascending" via a plain keyspace scan.
//
// Id is a value type: comparable with ==, safe to use as a map key, safe to
// copy.
type Id [Size]byte

// Zero is the identifier value never assigned to a real block; it is used
// as a sentinel "no id" return value.
var Zero Id

// New constructs an Id from a uint64, the form InternalIds are generated in
// (a monotonic counter maintained by the storage engine).
func New(n uint64) Id {
	var out Id
	binary.BigEndian.PutUint64(out[:], n)
	return out
}

// FromBytes parses an Id out of an 8-byte slice, as stored in a datastore
// key or value.
func FromBytes(b []byte) (Id, error) {
	var out Id
	if len(b) != Size {
		return out, fmt.Errorf("%w: got %d bytes", ErrInvalidLength, len(b))
	}
	copy(out[:], b)
	return out, nil
}

// Bytes returns the identifier's big-endian byte representation. The
// returned slice aliases the Id's backing array; callers must not retain it
// past the Id's lifetime without copying.
func (i Id) Bytes() []byte {
	return i[:]
}

// Uint64 returns the identifier as a u64, for display and for the storage
// engine's next-id counter comparisons.
func (i Id) Uint64() uint64 {
	return binary.BigEndian.Uint64(i[:])
}

// String renders the identifier as a hex string, for logging.
func (i Id) String() string {
	return fmt.Sprintf("%016x", i.Uint64())
}

// IsZero reports whether this is the sentinel Zero value.
func (i Id) IsZero() bool {
	return i == Zero
}
