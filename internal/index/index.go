// Package index is the claim ledger guarding the processing pipeline: each
// distinct (id, hash) is admitted at most once, across the poll loop, the
// secondary-source merge, and restarts.
package index

import "context"

// Key identifies one ever-claimed ref. Hash comparison is exact-match; the
// hash is an opaque capability, not a checksum.
type Key struct {
	ID   int64
	Hash string
}

// Index is the claim backend. The file ledger is the default; a Redis
// backend exists for deployments that want the ledger off the local disk.
// Implementations must make Claim and Reconcile serialize against each
// other: a claim that returns true has already been made durable.
type Index interface {
	// Claim atomically checks membership and inserts when absent. True means
	// the caller owns this ref and must proceed to process it; false with a
	// nil error means someone else already did. A storage failure returns
	// false and the error — the claim is not durable and the caller must not
	// process, or a crash-restart could deliver twice.
	Claim(ctx context.Context, id int64, hash string) (bool, error)

	// Reconcile rewrites the ledger to the intersection of what is claimed
	// and what is still visible upstream, bounding growth and pruning refs
	// that permanently failed their detail fetch.
	Reconcile(ctx context.Context, current map[Key]struct{}) error

	// Snapshot returns a read-only copy of the claimed set.
	Snapshot(ctx context.Context) (map[Key]struct{}, error)
}
