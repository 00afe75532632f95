// Package holdfast is an embeddable content-addressed block store with
// peer-to-peer exchange: CID-keyed blocks, alias-rooted transitive pinning,
// and cuckoo-filter-accelerated garbage collection, backed by a pluggable
// Datastore and a pluggable Network.
package holdfast

import (
	"context"
	"errors"

	"github.com/ipfs/go-cid"

	"github.com/dreamware/holdfast/internal/block"
	"github.com/dreamware/holdfast/internal/coordinator"
	"github.com/dreamware/holdfast/internal/network"
	"github.com/dreamware/holdfast/internal/storage"
)

// Re-exported so callers never need to import internal/storage directly.
var (
	ErrBlockNotFound  = storage.ErrBlockNotFound
	ErrStorageFailure = storage.ErrStorageFailure
	ErrCodecFailure   = storage.ErrCodecFailure
)

// Block is the unit of storage: a CID paired with its bytes.
type Block = block.Block

// Cid is Holdfast's content identifier, an alias of go-cid's type so
// callers never need to import it separately.
type Cid = cid.Cid

// Config configures a Store's storage engine and exchange coordinator.
type Config struct {
	Storage     storage.Config
	Coordinator coordinator.Config
}

// DefaultConfig returns the storage and coordinator defaults.
func DefaultConfig() Config {
	return Config{
		Storage:     storage.DefaultConfig(),
		Coordinator: coordinator.DefaultConfig(),
	}
}

// Store is the user-facing façade wiring the storage engine to the
// exchange coordinator: Get and Alias transparently fault in missing
// blocks over the network, so a caller never has to drive the coordinator
// or its event loop directly.
type Store struct {
	engine *storage.Engine
	coord  *coordinator.Coordinator
}

// Open constructs a Store over ds and net, and starts its background GC
// sweep and exchange coordinator goroutines. Call Close to stop them.
func Open(ctx context.Context, ds storage.Datastore, net network.Network, cfg Config) (*Store, error) {
	engine, err := storage.Open(ds, block.DefaultRegistry(), cfg.Storage)
	if err != nil {
		return nil, err
	}
	engine.Start(ctx)

	coord := coordinator.New(engine, net, cfg.Coordinator)
	go coord.Run(ctx)

	return &Store{engine: engine, coord: coord}, nil
}

// Close stops the coordinator and storage engine.
func (s *Store) Close() error {
	s.coord.Close()
	return s.engine.Close()
}

// Get returns a block's bytes, fetching it over the network if it isn't
// stored locally. A network fetch is checked with Block.Verify and persisted
// before Get returns, so a subsequent Get for the same CID is served locally
// unless a GC sweep has since evicted the (unpinned) block.
func (s *Store) Get(ctx context.Context, c Cid) ([]byte, error) {
	if data, ok, err := s.engine.Get(ctx, c); err != nil {
		return nil, err
	} else if ok {
		return data, nil
	}

	data, err := s.coord.Get(ctx, c)
	if err != nil {
		return nil, err
	}

	blk := Block{Cid: c, Data: data}
	if err := blk.Verify(); err != nil {
		return nil, err
	}
	if err := s.engine.Insert(ctx, blk); err != nil {
		return nil, err
	}
	return data, nil
}

// Insert idempotently stores blk.
func (s *Store) Insert(ctx context.Context, blk Block) error {
	return s.engine.Insert(ctx, blk)
}

// Alias repoints name at newCid, fetching any missing descendant blocks
// over the network and retrying until the full DAG resolves locally or an
// unrelated error occurs. This performs the DAG walk implicitly, by
// chaining fetches off of ErrBlockNotFound's missing-CID payload.
func (s *Store) Alias(ctx context.Context, name []byte, newCid *Cid) error {
	for {
		err := s.engine.Alias(ctx, name, newCid)
		if err == nil {
			return nil
		}

		var notFound *storage.ErrBlockNotFoundErr
		if !errors.As(err, &notFound) {
			return err
		}

		if _, fetchErr := s.Get(ctx, notFound.Cid); fetchErr != nil {
			return fetchErr
		}
	}
}

// Resolve returns the CID an alias currently points to.
func (s *Store) Resolve(ctx context.Context, name []byte) (Cid, bool, error) {
	return s.engine.Resolve(ctx, name)
}

// Pinned reports whether c is reachable from some alias's current root.
func (s *Store) Pinned(ctx context.Context, c Cid) (bool, bool, error) {
	return s.engine.Pinned(ctx, c)
}

// Subscribe returns a channel of storage events (inserts and removals).
func (s *Store) Subscribe(ctx context.Context) <-chan storage.StorageEvent {
	return s.engine.Subscribe(ctx)
}
