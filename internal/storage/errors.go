package storage

import (
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
)

// ErrStorageFailure wraps an underlying Datastore I/O error. The engine
// never retries silently; a caller sees the original error via errors.Is/As.
var ErrStorageFailure = errors.New("storage: datastore failure")

// ErrCodecFailure means a block's bytes could not be decoded to extract its
// child links. Insert fails entirely rather than persisting partial state.
var ErrCodecFailure = errors.New("storage: codec failure")

// ErrBlockNotFoundErr is a concrete error carrying the CID that is missing
// locally. Alias returns this for the first unresolved descendant it finds.
// A Get whose network fetch times out returns the bare ErrBlockNotFound
// sentinel instead, which does not name the missing CID.
type ErrBlockNotFoundErr struct {
	Cid cid.Cid
}

func (e *ErrBlockNotFoundErr) Error() string {
	return fmt.Sprintf("storage: block not found: %s", e.Cid)
}

// ErrBlockNotFound is the sentinel errors.Is target for ErrBlockNotFoundErr;
// every instance wraps it so callers can test with errors.Is(err,
// ErrBlockNotFound) without caring about the specific missing CID.
var ErrBlockNotFound = errors.New("storage: block not found")

func (e *ErrBlockNotFoundErr) Unwrap() error { return ErrBlockNotFound }

func notFound(c cid.Cid) error { return &ErrBlockNotFoundErr{Cid: c} }

func storageFailure(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}
