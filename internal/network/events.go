package network

import (
	"fmt"
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"
)

// bus is a minimal per-peer fan-out publisher, the same non-blocking
// drop-if-full shape as internal/storage's eventBus: a slow subscriber never
// blocks the network adapter's own goroutines.
type bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

func newBus() *bus {
	return &bus{subs: make(map[int]chan Event)}
}

func (b *bus) subscribe(buffer int) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, buffer)
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

func (b *bus) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

type peerUnknownError struct {
	peer peer.ID
}

func (e *peerUnknownError) Error() string {
	return fmt.Sprintf("network: peer %s not known to this hub", e.peer)
}

func errPeerUnknown(p peer.ID) error { return &peerUnknownError{peer: p} }
