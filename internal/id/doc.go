// Package id implements the fixed-width internal identifiers Holdfast uses
// in place of raw CIDs on every hot path, plus the packed sequence type used
// to persist "children of X" and "referrers of X" sets compactly.
//
// # Overview
//
// A CID is variable-length and expensive to hash and compare repeatedly. On
// first sight of a CID the storage engine mints a fixed 8-byte Id and uses
// that everywhere internally — as a datastore key component, as a map key,
// and as an element of the packed Ids sequences that back children and
// referrer lists. The CID <-> Id mapping is a bijection for the lifetime of
// the store (see internal/storage).
//
// # Layout
//
// Id is 8 bytes, big-endian, so that ascending numeric order matches
// ascending byte order — this lets the storage engine walk stored blocks "by
// InternalId ascending" using a plain byte-ordered datastore scan during GC
// sweeps, with no separate index.
//
// Ids is any length-multiple-of-8 byte slice, iterated 8 bytes at a time.
// Concat is just append; building an Ids from an unordered set (e.g. a Go
// map) yields an arbitrary but deterministic-per-call ordering, and callers
// must not rely on it.
package id
