package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/recordhub/coherentcache/types"
)

// The invalidation coordinator. Every replica runs one: it receives
// broadcast events, unconditionally clears the local tier for the affected
// domains, then races for leadership of the warm-up round. The winner
// reloads from the authoritative store; the rest wait a grace period and
// hydrate from the shared store.
//
// Each event is an independent, idempotent round. A second event for a
// domain that is still warming simply starts a fresh round; re-clearing an
// empty domain and re-loading a warm one are harmless no-ops.

// handleEvent runs on the synchronizer's delivery goroutine and must not
// block, so the round itself runs on its own goroutine.
func (cc *CoherentCache) handleEvent(event types.Event) {
	if atomic.LoadInt32(&cc.closed) != 0 {
		return
	}
	cc.stats.add(&cc.stats.eventsReceived)

	var affected []string
	if event.Domain == types.AllDomains {
		affected = make([]string, 0, len(cc.domains))
		for name := range cc.domains {
			affected = append(affected, name)
		}
	} else {
		if _, ok := cc.domains[event.Domain]; !ok {
			cc.logger.Warn("invalidation event for unknown domain",
				"domain", event.Domain, "token", event.Token, "sender", event.Sender)
			return
		}
		affected = []string{event.Domain}
	}

	cc.rounds.Add(1)
	go cc.runRound(affected, event)
}

// runRound drives one invalidation round: clear, elect, warm.
func (cc *CoherentCache) runRound(domains []string, event types.Event) {
	defer cc.rounds.Done()

	// Stale entries must be gone before any election outcome is known:
	// from here on this replica serves nothing, or fresh data.
	for _, domain := range domains {
		cc.clearLocalDomain(domain)
	}

	ctx := context.Background()
	for _, domain := range domains {
		if err := cc.warmDomain(ctx, domain, event); err != nil {
			cc.logger.Error("warm-up failed, leaving domain to lazy reload",
				"domain", domain, "token", event.Token, "error", err)
			if cc.options.OnError != nil {
				cc.options.OnError(err)
			}
		}
	}
}

// warmDomain elects a leader for one domain's warm-up and runs the
// appropriate pipeline path.
func (cc *CoherentCache) warmDomain(ctx context.Context, domain string, event types.Event) error {
	lock := lockKey(cc.options.Namespace, domain)
	holder := cc.gate.HolderID()

	leader, err := cc.gate.TryAcquire(ctx, lock, holder, cc.options.LockTTL)
	if err != nil {
		// Cannot reach the store to elect; behave as a follower and let
		// the lazy read path converge this replica.
		cc.logger.Warn("leader election unavailable", "domain", domain, "error", err)
		leader = false
	}

	if leader {
		cc.stats.add(&cc.stats.roundsLed)
		cc.logger.Info("won warm-up election",
			"domain", domain, "token", event.Token, "holder", holder)
		rerr := cc.warmer.ReloadFromSource(ctx, domain)
		cc.gate.Release(ctx, lock, holder)
		return rerr
	}

	cc.stats.add(&cc.stats.roundsFollowed)
	if cc.options.DebugMode {
		cc.logger.Debug("lost warm-up election, following",
			"domain", domain, "token", event.Token)
	}

	if cc.options.FollowerGracePeriod > 0 {
		select {
		case <-cc.done:
			return nil
		case <-time.After(cc.options.FollowerGracePeriod):
		}
	}
	return cc.warmer.ReloadFromSharedCache(ctx, domain)
}
