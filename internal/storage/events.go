package storage

import (
	"sync"

	"github.com/ipfs/go-cid"
)

// StorageEventKind identifies what happened to a block.
type StorageEventKind int

const (
	// BlockInserted fires after every successful Insert, including a
	// re-insert of a block that was already stored.
	BlockInserted StorageEventKind = iota
	// BlockRemoved fires after a GC sweep deletes a block.
	BlockRemoved
)

// StorageEvent describes a single change to the block set, consumed by the
// Exchange Coordinator to decide whether a locally-arrived block answers an
// outstanding want.
type StorageEvent struct {
	Kind StorageEventKind
	Cid  cid.Cid
}

// eventBus is a minimal fan-out publisher: each Subscribe call gets its own
// buffered channel, and a slow or absent subscriber never blocks Insert or a
// GC sweep — a full channel just drops the event for that one subscriber.
type eventBus struct {
	mu   sync.Mutex
	subs map[int]chan StorageEvent
	next int
}

func newEventBus() *eventBus {
	return &eventBus{subs: make(map[int]chan StorageEvent)}
}

// subscribe returns a channel of future events and an unsubscribe func.
func (b *eventBus) subscribe(buffer int) (<-chan StorageEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan StorageEvent, buffer)
	id := b.next
	b.next++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
}

func (b *eventBus) publish(ev StorageEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *eventBus) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
