// Package network defines the external network contract the Exchange
// Coordinator drives, plus two concrete implementations: a loopback
// transport for tests and single-process demos, and an HTTP-based
// reference transport for small multi-process deployments.
//
// # Overview
//
// Holdfast's coordinator (internal/coordinator) never talks to a wire
// protocol directly. It drives the Network interface: ask for providers,
// announce a want, connect to a peer, send or receive block bytes. Real
// peer discovery (mDNS, a Kademlia DHT, bitswap-grade wantlists) is
// explicitly out of scope for the core — an embedder wires in whatever
// transport fits their deployment by implementing this interface.
//
// httpnet, the reference transport here, does plain HTTP POSTs between
// known peer addresses: good enough to drive the end-to-end scenarios and
// small trusted deployments, not a production discovery stack.
package network
