package storage

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/holdfast/internal/id"
)

// sweepConcurrency bounds how many blocks a single sweep deletes in
// parallel, since each deletion is an independent Datastore write.
const sweepConcurrency = 8

func (e *Engine) sweepLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.cfg.SweepInterval)
	defer ticker.Stop()

	e.log.Info().Dur("interval", e.cfg.SweepInterval).Msg("gc sweep loop started")
	for {
		select {
		case <-ticker.C:
			if err := e.sweepOnce(ctx); err != nil {
				e.log.Error().Err(err).Msg("gc sweep failed")
			}
		case <-ctx.Done():
			e.log.Info().Msg("gc sweep loop stopping")
			return
		}
	}
}

// sweepOnce walks stored blocks in ascending Id order and deletes unpinned
// ones until the store is back under its CacheSize headroom, or there are
// no more unpinned candidates to delete. The LiveSet is consulted first, as
// a fast "maybe pinned, keep it" skip (a filter false positive only spares an
// unpinned block); pinCount is the authoritative check for anything the
// filter reports absent.
func (e *Engine) sweepOnce(ctx context.Context) error {
	if int(e.blockCount.Load()) <= e.cfg.CacheSize {
		return nil
	}

	var candidates []id.Id
	over := int(e.blockCount.Load()) - e.cfg.CacheSize

	err := e.ds.Scan([]byte{tableBlockData}, func(key, _ []byte) bool {
		i, err := id.FromBytes(key[1:])
		if err != nil {
			return true
		}
		if e.live.Contains(i) {
			return true
		}

		e.pinMu.Lock()
		pinned := e.pinCount[i] > 0
		e.pinMu.Unlock()
		if pinned {
			return true
		}

		candidates = append(candidates, i)
		return len(candidates) < over
	})
	if err != nil {
		return storageFailure(err)
	}
	if len(candidates) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)
	for _, i := range candidates {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			return e.deleteBlock(i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	e.log.Info().Int("deleted", len(candidates)).Msg("gc sweep reclaimed blocks")
	return nil
}

// deleteBlock removes a block's data and children record, detaches it from
// its children's referrer sets, and publishes a BlockRemoved event.
func (e *Engine) deleteBlock(i id.Id) error {
	c, ok, err := e.cidFor(i)
	if err != nil {
		return err
	}

	childBytes, err := e.ds.Get(childrenKey(i))
	if err != nil && err != ErrKeyNotFound {
		return storageFailure(err)
	}
	seq, _ := id.NewIds(childBytes)
	for _, child := range seq.Slice() {
		if err := e.removeReferrer(child, i); err != nil {
			return err
		}
	}

	if err := e.ds.Delete(blockDataKey(i)); err != nil {
		return storageFailure(err)
	}
	if err := e.ds.Delete(childrenKey(i)); err != nil {
		return storageFailure(err)
	}
	e.blockCount.Add(-1)

	if ok {
		e.bus.publish(StorageEvent{Kind: BlockRemoved, Cid: c})
	}
	return nil
}
