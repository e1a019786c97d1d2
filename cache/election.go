package cache

import (
	"context"
	"fmt"
	"time"
)

// ElectionGate is the distributed mutual-exclusion primitive deciding which
// replica reloads a domain from the authoritative store after an
// invalidation. It is built strictly on the shared store's atomic
// set-if-absent-with-expiry operation: the first replica to race wins, the
// lock evaporates after its TTL, and a crashed leader therefore never
// wedges the protocol.
type ElectionGate struct {
	store     Store
	replicaID string
}

// NewElectionGate creates a gate backed by the given shared store.
func NewElectionGate(store Store, replicaID string) *ElectionGate {
	return &ElectionGate{store: store, replicaID: replicaID}
}

// HolderID builds a lock holder identity encoding the replica and the
// acquisition time. Diagnostics only.
func (g *ElectionGate) HolderID() string {
	return fmt.Sprintf("%s@%d", g.replicaID, time.Now().UnixNano())
}

// TryAcquire attempts to take the leader lock for one warm-up round.
// Returning (false, nil) means another replica already leads the round;
// that is a routine outcome, not an error.
func (g *ElectionGate) TryAcquire(ctx context.Context, key, holderID string, ttl time.Duration) (bool, error) {
	return g.store.SetNX(ctx, key, []byte(holderID), ttl)
}

// Release drops the lock early if this holder still owns it. An optional
// fast path shortening the window before the next round can elect; TTL
// expiry remains the correctness backstop, so failures are ignored.
func (g *ElectionGate) Release(ctx context.Context, key, holderID string) {
	_ = g.store.CompareAndDelete(ctx, key, []byte(holderID))
}
