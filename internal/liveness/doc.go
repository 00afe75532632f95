// Package liveness implements the approximate liveness oracle the storage
// engine consults during mark-and-sweep GC sweeps: LiveSet.
//
// # Overview
//
// A full exact reachability set for every alias root would cost one map
// entry per live block, held in memory for the life of the process. Holdfast
// instead keeps a cuckoo filter: a few bits per element, false positives
// possible, false negatives never. GC treats "maybe live" as "live" and only
// ever sweeps a block the filter confidently reports absent, so the filter's
// false-positive rate controls how aggressively garbage is reclaimed, not
// correctness — a false positive just means a dead block survives one more
// sweep.
//
// # Distinct count
//
// The filter itself tracks occupied buckets, not distinct logical keys
// (cuckoofilter permits duplicate inserts of the same fingerprint). LiveSet
// layers an exact counter on top so that Len reports the number of distinct
// Ids added, not the filter's internal slot count.
//
// # Delete semantics
//
// cuckoofilter.Delete removes a single matching fingerprint slot; deleting an
// id that was never inserted, or over-deleting past the true insert count,
// is a no-op. LiveSet's Delete decrements the distinct counter only on the
// insert-to-zero transition it can observe directly (Contains flips from true
// to false), rather than on every call — see LiveSet.Delete for the exact
// rule this resolves.
package liveness
