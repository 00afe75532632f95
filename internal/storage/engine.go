package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dreamware/holdfast/internal/block"
	"github.com/dreamware/holdfast/internal/id"
	"github.com/dreamware/holdfast/internal/liveness"
)

// Config tunes the engine's garbage collector.
type Config struct {
	// SweepInterval is how often the GC ticker fires.
	SweepInterval time.Duration
	// CacheSize is the block count above which a sweep will actually
	// delete unpinned blocks; below it, sweeps are no-ops.
	CacheSize int
	// Logger overrides the package-level zerolog logger, mainly for
	// tests that want to capture or silence engine output.
	Logger zerolog.Logger
}

// DefaultConfig returns sane defaults: a five minute sweep period and an
// 100k block cache headroom.
func DefaultConfig() Config {
	return Config{
		SweepInterval: 5 * time.Minute,
		CacheSize:     100_000,
		Logger:        log.Logger,
	}
}

// Engine is Holdfast's storage engine: CID<->Id mapping, block persistence,
// alias-rooted transitive pinning, and capacity-bounded GC, all built on a
// pluggable Datastore.
type Engine struct {
	ds     Datastore
	codecs block.Registry
	live   *liveness.LiveSet
	bus    *eventBus
	cfg    Config
	log    zerolog.Logger

	// pinMu protects pinCount and nextID, the engine's only in-memory
	// authoritative state; everything else is read straight through to
	// the Datastore. pinCount mirrors the union of every alias's
	// persisted reachable set and is rebuilt from it at Open.
	pinMu    sync.Mutex
	pinCount map[id.Id]int
	nextID   uint64

	blockCount atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Open constructs an Engine over ds, rebuilding its in-memory pin-count and
// next-id state from whatever the datastore already holds.
func Open(ds Datastore, codecs block.Registry, cfg Config) (*Engine, error) {
	e := &Engine{
		ds:       ds,
		codecs:   codecs,
		live:     liveness.New(),
		bus:      newEventBus(),
		cfg:      cfg,
		log:      cfg.Logger,
		pinCount: make(map[id.Id]int),
	}

	if err := e.loadNextID(); err != nil {
		return nil, err
	}
	if err := e.loadPinCounts(); err != nil {
		return nil, err
	}
	if err := e.loadBlockCount(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) loadNextID() error {
	v, err := e.ds.Get(nextIDCounterKey)
	if err == ErrKeyNotFound {
		// Minting starts at 1 so that id.Zero is never assigned.
		e.nextID = 1
		return nil
	}
	if err != nil {
		return storageFailure(err)
	}
	parsed, err := id.FromBytes(v)
	if err != nil {
		return storageFailure(err)
	}
	e.nextID = parsed.Uint64()
	return nil
}

func (e *Engine) loadPinCounts() error {
	return e.ds.Scan([]byte{tableAliasReach}, func(_, value []byte) bool {
		seq, err := id.NewIds(value)
		if err != nil {
			return true
		}
		for _, i := range seq.Slice() {
			e.pinCount[i]++
			_ = e.live.Add(i)
		}
		return true
	})
}

func (e *Engine) loadBlockCount() error {
	var n int64
	err := e.ds.Scan([]byte{tableBlockData}, func(_, _ []byte) bool {
		n++
		return true
	})
	e.blockCount.Store(n)
	return err
}

// idFor returns the Id for c, minting and persisting a fresh one (and its
// inverse mapping) if c has never been seen before.
func (e *Engine) idFor(c cid.Cid) (id.Id, error) {
	key := cidToIDKey(c.Bytes())
	v, err := e.ds.Get(key)
	if err == nil {
		return id.FromBytes(v)
	}
	if err != ErrKeyNotFound {
		return id.Zero, storageFailure(err)
	}

	e.pinMu.Lock()
	defer e.pinMu.Unlock()

	// Re-check under lock: another goroutine may have minted it first.
	if v, err := e.ds.Get(key); err == nil {
		return id.FromBytes(v)
	}

	newID := id.New(e.nextID)
	e.nextID++

	if err := e.ds.Put(nextIDCounterKey, id.New(e.nextID).Bytes()); err != nil {
		return id.Zero, storageFailure(err)
	}
	if err := e.ds.Put(key, newID.Bytes()); err != nil {
		return id.Zero, storageFailure(err)
	}
	if err := e.ds.Put(idToCidKey(newID), c.Bytes()); err != nil {
		return id.Zero, storageFailure(err)
	}
	return newID, nil
}

func (e *Engine) cidFor(i id.Id) (cid.Cid, bool, error) {
	v, err := e.ds.Get(idToCidKey(i))
	if err == ErrKeyNotFound {
		return cid.Undef, false, nil
	}
	if err != nil {
		return cid.Undef, false, storageFailure(err)
	}
	c, err := cid.Cast(v)
	if err != nil {
		return cid.Undef, false, storageFailure(err)
	}
	return c, true, nil
}

// Get looks up a block's bytes by CID. The second return value is false if
// the block is not stored locally; this is not an error.
func (e *Engine) Get(ctx context.Context, c cid.Cid) ([]byte, bool, error) {
	v, err := e.ds.Get(cidToIDKey(c.Bytes()))
	if err == ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageFailure(err)
	}
	i, err := id.FromBytes(v)
	if err != nil {
		return nil, false, storageFailure(err)
	}

	data, err := e.ds.Get(blockDataKey(i))
	if err == ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storageFailure(err)
	}
	return data, true, nil
}

// Insert idempotently stores blk, extracting and persisting its child links
// and the inverse referrer edges, then publishes a BlockInserted event.
// Re-inserting an already-stored block is a no-op beyond overwriting its
// bytes (which are content-addressed, so this is never observable).
func (e *Engine) Insert(ctx context.Context, blk block.Block) error {
	links, err := e.codecs.Links(blk.Cid, blk.Data)
	if err != nil {
		return ErrCodecFailure
	}

	i, err := e.idFor(blk.Cid)
	if err != nil {
		return err
	}

	alreadyStored := false
	if _, err := e.ds.Get(blockDataKey(i)); err == nil {
		alreadyStored = true
	} else if err != ErrKeyNotFound {
		return storageFailure(err)
	}

	childIDs := make([]id.Id, 0, len(links))
	for _, child := range links {
		childID, err := e.idFor(child)
		if err != nil {
			return err
		}
		childIDs = append(childIDs, childID)
	}

	if err := e.ds.Put(blockDataKey(i), blk.Data); err != nil {
		return storageFailure(err)
	}
	if err := e.ds.Put(childrenKey(i), id.FromSlice(childIDs)); err != nil {
		return storageFailure(err)
	}
	for _, childID := range childIDs {
		if err := e.addReferrer(childID, i); err != nil {
			return err
		}
	}

	if !alreadyStored {
		e.blockCount.Add(1)
	}

	e.bus.publish(StorageEvent{Kind: BlockInserted, Cid: blk.Cid})
	e.log.Debug().Stringer("cid", blk.Cid).Int("links", len(links)).Msg("block inserted")
	return nil
}

func (e *Engine) addReferrer(child, parent id.Id) error {
	key := referrersKey(child)
	existing, err := e.ds.Get(key)
	if err != nil && err != ErrKeyNotFound {
		return storageFailure(err)
	}
	seq, _ := id.NewIds(existing)
	if seq.Contains(parent) {
		return nil
	}
	if err := e.ds.Put(key, seq.Append(parent)); err != nil {
		return storageFailure(err)
	}
	return nil
}

func (e *Engine) removeReferrer(child, parent id.Id) error {
	key := referrersKey(child)
	existing, err := e.ds.Get(key)
	if err == ErrKeyNotFound {
		return nil
	}
	if err != nil {
		return storageFailure(err)
	}
	seq, _ := id.NewIds(existing)
	if err := e.ds.Put(key, seq.Remove(parent)); err != nil {
		return storageFailure(err)
	}
	return nil
}

// Resolve returns the CID an alias currently points to, and false if the
// alias has never been set.
func (e *Engine) Resolve(ctx context.Context, name []byte) (cid.Cid, bool, error) {
	v, err := e.ds.Get(aliasRootKey(name))
	if err == ErrKeyNotFound {
		return cid.Undef, false, nil
	}
	if err != nil {
		return cid.Undef, false, storageFailure(err)
	}
	rootID, err := id.FromBytes(v)
	if err != nil {
		return cid.Undef, false, storageFailure(err)
	}
	c, ok, err := e.cidFor(rootID)
	if err != nil || !ok {
		return cid.Undef, false, err
	}
	return c, true, nil
}

// Pinned reports whether c is reachable from some alias's current root. The
// second return value is false if c has never been seen by this engine.
func (e *Engine) Pinned(ctx context.Context, c cid.Cid) (bool, bool, error) {
	v, err := e.ds.Get(cidToIDKey(c.Bytes()))
	if err == ErrKeyNotFound {
		return false, false, nil
	}
	if err != nil {
		return false, false, storageFailure(err)
	}
	i, err := id.FromBytes(v)
	if err != nil {
		return false, false, storageFailure(err)
	}

	e.pinMu.Lock()
	defer e.pinMu.Unlock()
	return e.pinCount[i] > 0, true, nil
}

// Subscribe returns a channel of future block insert/remove events. The
// channel is closed when ctx is done.
func (e *Engine) Subscribe(ctx context.Context) <-chan StorageEvent {
	ch, unsubscribe := e.bus.subscribe(64)
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return ch
}

// Start launches the periodic GC sweep goroutine. Call Close to stop it.
func (e *Engine) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go e.sweepLoop(ctx)
}

// Close stops the sweep loop and the datastore, waiting for the sweep
// goroutine to exit.
func (e *Engine) Close() error {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.bus.closeAll()
	return e.ds.Close()
}
