package liveness

import (
	"errors"
	"sync"

	cuckoo "github.com/seiflotfy/cuckoofilter"

	"github.com/dreamware/holdfast/internal/id"
)

// ErrFilterSaturated is returned by Add when the underlying cuckoo filter
// has failed to place a fingerprint after exhausting its relocation budget.
// The caller is expected to react by growing the set (NewWithCapacity with a
// larger capacity) and re-inserting, as recommended by the filter's own
// documentation; LiveSet does not grow itself automatically because growth
// requires a full re-insert of every live Id, which only the storage engine
// can enumerate.
var ErrFilterSaturated = errors.New("liveness: filter saturated, insert rejected")

// defaultCapacity is the element capacity used when the caller doesn't size
// the set up front. It is deliberately small; real deployments should size a
// LiveSet from an estimate of the working set and pass it to
// NewWithCapacity.
const defaultCapacity = 1 << 16

// LiveSet is an approximate, concurrency-safe membership oracle over
// internal Ids, backed by a cuckoo filter. Contains may return a false
// positive; it never returns a false negative for an Id that is still
// inserted.
type LiveSet struct {
	mu     sync.RWMutex
	filter *cuckoo.Filter
	count  int
}

// New constructs a LiveSet sized for a default working-set estimate.
func New() *LiveSet {
	return NewWithCapacity(defaultCapacity)
}

// NewWithCapacity constructs a LiveSet whose underlying filter is sized for
// approximately capacity distinct elements before saturation becomes likely.
func NewWithCapacity(capacity uint) *LiveSet {
	return &LiveSet{filter: cuckoo.NewFilter(capacity)}
}

// Add inserts id into the set. Adding an Id already present is a harmless
// no-op that does not double count. Returns ErrFilterSaturated if the filter
// rejected the insert.
func (s *LiveSet) Add(i id.Id) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filter.Lookup(i.Bytes()) {
		return nil
	}
	if !s.filter.Insert(i.Bytes()) {
		return ErrFilterSaturated
	}
	s.count++
	return nil
}

// Delete removes one occurrence of id from the set. It is idempotent:
// deleting an Id that isn't present, or deleting it a second time, succeeds
// silently. The distinct counter is decremented only when the delete
// actually transitions Contains from true to false — matching the filter's
// own "last occurrence removed" semantics rather than assuming every Delete
// call corresponds to a real member going away.
func (s *LiveSet) Delete(i id.Id) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.filter.Lookup(i.Bytes()) {
		return
	}
	s.filter.Delete(i.Bytes())
	if !s.filter.Lookup(i.Bytes()) {
		s.count--
	}
}

// Contains reports approximate membership: never a false negative, rarely a
// false positive.
func (s *LiveSet) Contains(i id.Id) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter.Lookup(i.Bytes())
}

// Len returns the exact number of distinct Ids currently tracked as added
// and not yet fully deleted.
func (s *LiveSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Reset discards all tracked Ids and reinitializes the underlying filter at
// the given capacity; the caller re-adds any Ids it still wants tracked. The
// storage engine does not call Reset: when Add reports ErrFilterSaturated it
// logs the rejection and keeps relying on its authoritative pin counts.
func (s *LiveSet) Reset(capacity uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filter = cuckoo.NewFilter(capacity)
	s.count = 0
}
