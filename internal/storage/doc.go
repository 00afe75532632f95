// Package storage implements Holdfast's storage engine: content-addressed
// block storage, alias-rooted transitive pinning, and cuckoo-filter-backed
// approximate garbage collection, built on top of a pluggable Datastore.
//
// # Overview
//
// The Engine is the only thing in this package that understands Holdfast's
// domain semantics. Everything below it — Datastore — is a plain key/value
// contract with two concrete implementations: an in-memory map (memds.go)
// for tests and ephemeral nodes, and a badger-backed implementation
// (badgerds.go) for anything that needs to survive a restart.
//
// # Keyspace
//
// The engine multiplexes several logical tables onto one flat Datastore
// keyspace using short prefixes (see tables.go): CID -> Id, Id -> CID, Id ->
// block bytes, Id -> packed children Ids, Id -> packed referrer Ids, and
// alias name -> (root Id, packed reachable-set Ids). Ids are the fixed
// 8-byte identifiers from internal/id, minted once per CID and reused on
// every other table so hot-path keys stay small and lexically ordered.
//
// # Pinning
//
// A block is pinned if it is reachable, by child links, from some alias's
// current root. Engine.Alias (alias.go) walks the old and new roots'
// reachable sets with a BFS over the children table and persists the new
// set in full; the in-memory pin counts and live set are then updated only
// for the blocks that actually entered or left the reachable set.
//
// # Garbage collection
//
// The live set (internal/liveness) is consulted, not trusted, during a
// sweep: Engine treats "maybe live" as "keep", and only deletes a block the
// filter confidently reports as absent from every alias's reachable set.
// Sweeps run on a ticker and are also bounded by a cache size target, so a
// store under light load reclaims promptly and one under heavy churn still
// makes bounded progress per tick rather than blocking other operations.
package storage
