package network

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/multiformats/go-multiaddr"
)

// EventKind identifies a NetworkEvent variant, matching the wantlist/
// discovery signals the Exchange Coordinator's event loop reacts to.
type EventKind int

const (
	Providers EventKind = iota
	GetProvidersFailed
	Providing
	StartProvidingFailed
	ReceivedBlock
	ReceivedWant
	BootstrapComplete
)

// Event is a single occurrence from the network, delivered over the
// channel returned by Network.Subscribe. Which fields are populated depends
// on Kind: Cid is set for every kind except BootstrapComplete, Peers for
// Providers, Peer and Bytes for ReceivedBlock, and Peer and Priority for
// ReceivedWant.
type Event struct {
	Kind     EventKind
	Cid      cid.Cid
	Peers    []peer.ID
	Peer     peer.ID
	Bytes    []byte
	Priority uint32
}

// Network is the external collaborator the Exchange Coordinator drives. It
// has no notion of storage or pinning; it moves bytes and discovery signals
// between peers for CIDs the coordinator names.
type Network interface {
	// LocalPeerID returns this node's own peer identity.
	LocalPeerID() peer.ID
	// ExternalAddresses returns the multiaddrs this node is reachable on.
	ExternalAddresses() []multiaddr.Multiaddr

	// Providers asks the network to discover peers that have c. Results
	// and failures surface asynchronously as Providers/GetProvidersFailed
	// events.
	Providers(ctx context.Context, c cid.Cid)
	// Want broadcasts interest in c at the given priority.
	Want(c cid.Cid, priority uint32)
	// Cancel retracts a previously broadcast want.
	Cancel(c cid.Cid)
	// Connect establishes a connection to p.
	Connect(ctx context.Context, p peer.ID) error

	// Provide announces that this node has c available.
	Provide(c cid.Cid)
	// Unprovide withdraws a previous Provide announcement.
	Unprovide(c cid.Cid)
	// Send broadcasts c's bytes to any peer known to want it.
	Send(c cid.Cid, data []byte)
	// SendTo sends c's bytes directly to a single peer.
	SendTo(p peer.ID, c cid.Cid, data []byte)

	// Subscribe returns a channel of future network events, closed when
	// ctx is done.
	Subscribe(ctx context.Context) <-chan Event
}
