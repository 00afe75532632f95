package block

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// ErrHashMismatch is returned by Verify when a block's bytes do not hash to
// its claimed CID. A storage engine receiving a block from the network must
// verify it before Insert; a block built locally via New is verified by
// construction and never needs the check.
var ErrHashMismatch = errors.New("block: data does not hash to claimed cid")

// Block is Holdfast's unit of storage: an immutable byte slice addressed by
// the CID of its own contents.
type Block struct {
	Cid  cid.Cid
	Data []byte
}

// New hashes data under the given multihash function and codec and returns
// the resulting Block. mhType is one of the github.com/multiformats/go-multihash
// code constants (mh.SHA2_256, mh.BLAKE2B_MIN+31, ...); codecType is one of
// the github.com/ipfs/go-cid / multicodec table codes (cid.Raw, cid.DagCBOR,
// ...).
func New(data []byte, mhType uint64, codecType uint64) (Block, error) {
	hash, err := mh.Sum(data, mhType, -1)
	if err != nil {
		return Block{}, fmt.Errorf("block: hash data: %w", err)
	}
	return Block{Cid: cid.NewCidV1(codecType, hash), Data: data}, nil
}

// Verify recomputes the block's hash from its data and reports whether it
// matches the claimed CID, returning ErrHashMismatch if not. Blocks arriving
// from the network must pass Verify before being handed to the storage
// engine's Insert.
func (b Block) Verify() error {
	want, err := mh.Sum(b.Data, b.Cid.Prefix().MhType, b.Cid.Prefix().MhLength)
	if err != nil {
		return fmt.Errorf("block: recompute hash: %w", err)
	}
	got, err := mh.Cast(b.Cid.Hash())
	if err != nil {
		return fmt.Errorf("block: cast claimed hash: %w", err)
	}
	if !bytesEqual(want, got) {
		return ErrHashMismatch
	}
	return nil
}

func bytesEqual(a, b mh.Multihash) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
