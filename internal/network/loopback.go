package network

import (
	"context"
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// Hub is a shared in-process rendezvous point for Loopback peers: it plays
// the role a DHT and a connection manager would play in a real deployment,
// entirely in memory. Tests wire multiple Loopback instances to one Hub to
// exercise the Exchange Coordinator's provider-discovery and want/send
// paths without a real transport.
type Hub struct {
	mu        sync.Mutex
	peers     map[peer.ID]*Loopback
	providers map[string]map[peer.ID]struct{} // cid string -> providing peers
	wanters   map[string]map[peer.ID]struct{} // cid string -> peers who Want it
}

// NewHub returns an empty Hub.
func NewHub() *Hub {
	return &Hub{
		peers:     make(map[peer.ID]*Loopback),
		providers: make(map[string]map[peer.ID]struct{}),
		wanters:   make(map[string]map[peer.ID]struct{}),
	}
}

func (h *Hub) register(l *Loopback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[l.id] = l
}

func (h *Hub) providersOf(c cid.Cid) []peer.ID {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.providers[c.String()]
	out := make([]peer.ID, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

func (h *Hub) addProvider(c cid.Cid, p peer.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.providers[c.String()]
	if !ok {
		set = make(map[peer.ID]struct{})
		h.providers[c.String()] = set
	}
	set[p] = struct{}{}
}

func (h *Hub) removeProvider(c cid.Cid, p peer.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.providers[c.String()], p)
}

func (h *Hub) peerByID(p peer.ID) (*Loopback, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.peers[p]
	return l, ok
}

// addWanter records that p wants c, independent of whether any peer is
// currently a known provider. This is what lets a want issued before the
// block exists anywhere converge once some peer later inserts and sends it
// — the Bitswap "broadcast want, deliver on arrival" model, matching
// scenario 3 (want-before-insert) and the coordinator's cancellation
// contract, which expects a want to stay live until NetworkTimeout or an
// explicit Cancel, not just until a provider happens to be known.
func (h *Hub) addWanter(c cid.Cid, p peer.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.wanters[c.String()]
	if !ok {
		set = make(map[peer.ID]struct{})
		h.wanters[c.String()] = set
	}
	set[p] = struct{}{}
}

func (h *Hub) removeWanter(c cid.Cid, p peer.ID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.wanters[c.String()], p)
}

func (h *Hub) wantersOf(c cid.Cid) []peer.ID {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.wanters[c.String()]
	out := make([]peer.ID, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	return out
}

// Loopback is a Network implementation that routes every operation through
// a shared Hub instead of a wire protocol, so a single test process can
// stand up several logically distinct peers.
type Loopback struct {
	hub  *Hub
	id   peer.ID
	addr multiaddr.Multiaddr

	bus *bus
}

// NewLoopback creates a Loopback peer identified by id and registers it
// with hub so other Loopback peers on the same hub can discover it.
func NewLoopback(hub *Hub, id peer.ID) *Loopback {
	addr, _ := multiaddr.NewMultiaddr("/memory/" + id.String())
	l := &Loopback{
		hub:  hub,
		id:   id,
		addr: addr,
		bus:  newBus(),
	}
	hub.register(l)
	return l
}

func (l *Loopback) LocalPeerID() peer.ID { return l.id }

func (l *Loopback) ExternalAddresses() []multiaddr.Multiaddr {
	return []multiaddr.Multiaddr{l.addr}
}

func (l *Loopback) Providers(ctx context.Context, c cid.Cid) {
	peers := l.hub.providersOf(c)
	if len(peers) == 0 {
		l.bus.publish(Event{Kind: GetProvidersFailed, Cid: c})
		return
	}
	l.bus.publish(Event{Kind: Providers, Cid: c, Peers: peers})
}

// Want broadcasts a want for c: it is recorded hub-wide so any peer that
// later inserts and sends c will deliver to l, even if no one currently
// provides c. Known current providers are additionally notified right away
// with a ReceivedWant event, so a provider that already holds the block can
// respond immediately instead of waiting on its own insert/advertise path.
func (l *Loopback) Want(c cid.Cid, priority uint32) {
	l.hub.addWanter(c, l.id)
	for _, provider := range l.hub.providersOf(c) {
		if peer, ok := l.hub.peerByID(provider); ok {
			peer.bus.publish(Event{Kind: ReceivedWant, Peer: l.id, Cid: c, Priority: priority})
		}
	}
}

func (l *Loopback) Cancel(c cid.Cid) {
	l.hub.removeWanter(c, l.id)
}

func (l *Loopback) Connect(ctx context.Context, p peer.ID) error {
	if _, ok := l.hub.peerByID(p); !ok {
		return errPeerUnknown(p)
	}
	return nil
}

func (l *Loopback) Provide(c cid.Cid) {
	l.hub.addProvider(c, l.id)
	l.bus.publish(Event{Kind: Providing, Cid: c})
}

func (l *Loopback) Unprovide(c cid.Cid) {
	l.hub.removeProvider(c, l.id)
}

// Send delivers c to every peer that has an outstanding hub-wide want for
// it, regardless of when that want was issued relative to l gaining the
// block.
func (l *Loopback) Send(c cid.Cid, data []byte) {
	for _, p := range l.hub.wantersOf(c) {
		l.SendTo(p, c, data)
	}
}

func (l *Loopback) SendTo(p peer.ID, c cid.Cid, data []byte) {
	if peer, ok := l.hub.peerByID(p); ok {
		cp := append([]byte(nil), data...)
		peer.bus.publish(Event{Kind: ReceivedBlock, Peer: l.id, Cid: c, Bytes: cp})
	}
}

func (l *Loopback) Subscribe(ctx context.Context) <-chan Event {
	ch, unsubscribe := l.bus.subscribe(64)
	go func() {
		<-ctx.Done()
		unsubscribe()
	}()
	return ch
}
