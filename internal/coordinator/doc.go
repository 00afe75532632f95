// Package coordinator implements Holdfast's Exchange Coordinator: a single
// long-lived goroutine that bridges local storage events to the network,
// and network events back to local callers waiting on a block.
//
// # Overview
//
// The Coordinator owns one cooperative event loop driving four input
// sources with a single select: a request channel of local gets, the
// storage engine's event stream, the network's event stream, and its own
// sweep ticker. Everything the loop touches — the per-CID wanted map,
// the bootstrap-gate flag — is owned exclusively by the loop goroutine, so
// none of it needs its own lock; the only cross-goroutine surface is the
// channels themselves.
//
// # Wanted map
//
// A get for a block not found locally registers a waiter in a map keyed by
// CID. Joining a second caller for the same CID appends to the existing
// waiter list rather than issuing a second network want — exactly one want
// per CID is ever outstanding, the same accounting a bitswap session keeps.
// A CID's entry is removed the moment a block arrives, or when the sweep
// ticker decides the want has run past NetworkTimeout, in which case every
// waiter's reply channel is closed unsatisfied and Store.Get surfaces
// ErrBlockNotFound.
package coordinator
