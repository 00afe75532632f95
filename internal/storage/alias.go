package storage

import (
	"context"

	"github.com/ipfs/go-cid"

	"github.com/dreamware/holdfast/internal/id"
)

// reach computes the set of Ids reachable from root by BFS over the
// persisted children table, root included. A nil root reaches nothing. When
// requireExists is set (used for the alias's new target), the walk aborts
// with ErrBlockNotFound on the first id whose block bytes are absent,
// matching Alias's "fail on first missing descendant" contract; the old
// target's reach is trusted without re-verifying storage, since it was
// already verified when it became the alias's root.
func (e *Engine) reach(root *id.Id, requireExists bool) (map[id.Id]struct{}, error) {
	result := make(map[id.Id]struct{})
	if root == nil {
		return result, nil
	}

	queue := []id.Id{*root}
	result[*root] = struct{}{}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if requireExists {
			if _, err := e.ds.Get(blockDataKey(cur)); err == ErrKeyNotFound {
				c, _, cerr := e.cidFor(cur)
				if cerr != nil {
					return nil, cerr
				}
				return nil, notFound(c)
			} else if err != nil {
				return nil, storageFailure(err)
			}
		}

		childBytes, err := e.ds.Get(childrenKey(cur))
		if err == ErrKeyNotFound {
			continue
		}
		if err != nil {
			return nil, storageFailure(err)
		}

		seq, err := id.NewIds(childBytes)
		if err != nil {
			return nil, storageFailure(err)
		}
		for _, child := range seq.Slice() {
			if _, seen := result[child]; seen {
				continue
			}
			result[child] = struct{}{}
			queue = append(queue, child)
		}
	}
	return result, nil
}

// setDiff returns the elements of a not present in b.
func setDiff(a, b map[id.Id]struct{}) map[id.Id]struct{} {
	out := make(map[id.Id]struct{})
	for i := range a {
		if _, ok := b[i]; !ok {
			out[i] = struct{}{}
		}
	}
	return out
}

// Alias atomically repoints name at newCid (or clears it, if newCid is
// nil). It fails with ErrBlockNotFound if newCid, or any block it
// transitively links to, is not stored locally — the alias is left
// unchanged in that case. On success the alias's full reachable set is
// persisted and the in-memory pin-count/LiveSet accelerator is updated by
// the delta against the previous root.
func (e *Engine) Alias(ctx context.Context, name []byte, newCid *cid.Cid) error {
	var newRoot *id.Id
	if newCid != nil {
		i, err := e.idFor(*newCid)
		if err != nil {
			return err
		}
		newRoot = &i
	}

	var oldRoot *id.Id
	if v, err := e.ds.Get(aliasRootKey(name)); err == nil {
		i, err := id.FromBytes(v)
		if err != nil {
			return storageFailure(err)
		}
		oldRoot = &i
	} else if err != ErrKeyNotFound {
		return storageFailure(err)
	}

	oldReach, err := e.reach(oldRoot, false)
	if err != nil {
		return err
	}
	newReach, err := e.reach(newRoot, true)
	if err != nil {
		return err
	}

	added := setDiff(newReach, oldReach)
	removed := setDiff(oldReach, newReach)

	if newRoot != nil {
		if err := e.ds.Put(aliasRootKey(name), newRoot.Bytes()); err != nil {
			return storageFailure(err)
		}
	} else if err := e.ds.Delete(aliasRootKey(name)); err != nil {
		return storageFailure(err)
	}

	if len(newReach) == 0 {
		if err := e.ds.Delete(aliasReachKey(name)); err != nil {
			return storageFailure(err)
		}
	} else if err := e.ds.Put(aliasReachKey(name), id.FromSet(newReach)); err != nil {
		return storageFailure(err)
	}

	e.pinMu.Lock()
	defer e.pinMu.Unlock()
	for i := range added {
		e.pinCount[i]++
		if e.pinCount[i] == 1 {
			if err := e.live.Add(i); err != nil {
				e.log.Warn().Err(err).Str("id", i.String()).Msg("live set rejected insert")
			}
		}
	}
	for i := range removed {
		e.pinCount[i]--
		if e.pinCount[i] <= 0 {
			delete(e.pinCount, i)
			e.live.Delete(i)
		}
	}

	e.log.Debug().Str("alias", string(name)).Int("added", len(added)).Int("removed", len(removed)).Msg("alias reconciled")
	return nil
}
