package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/recordhub/coherentcache/types"
)

// Invalidate broadcasts that a domain's cached data is stale. domain is a
// registered domain name or "all". Delivery is fire-and-forget: the call
// returns once the shared store accepted the publish, without waiting for
// any replica to act. The publishing replica receives its own event and
// participates in the round like every other subscriber.
//
// If the publish fails, this replica's local tier is still cleared for the
// affected domains before the error is returned, so the initiating replica
// is consistent even when the broadcast never reached its peers.
func (cc *CoherentCache) Invalidate(ctx context.Context, domain string) error {
	if atomic.LoadInt32(&cc.closed) != 0 {
		return ErrCacheClosed
	}
	if domain != types.AllDomains {
		if _, ok := cc.domains[domain]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
		}
	}

	event := types.Event{
		Domain:    domain,
		Token:     uuid.NewString(),
		Sender:    cc.options.ReplicaID,
		Timestamp: time.Now().UnixMilli(),
	}

	if err := cc.bus.Publish(ctx, channelFor(cc.options.ChannelPrefix, domain), event); err != nil {
		cc.clearAffected(domain)
		cc.logger.Error("invalidation broadcast failed, cleared local tier only",
			"domain", domain, "token", event.Token, "error", err)
		return fmt.Errorf("%w: publish invalidation: %v", ErrStoreUnreachable, err)
	}

	cc.stats.add(&cc.stats.eventsPublished)
	cc.logger.Info("published invalidation",
		"domain", domain, "token", event.Token)
	return nil
}

func (cc *CoherentCache) clearAffected(domain string) {
	if domain == types.AllDomains {
		for name := range cc.domains {
			cc.clearLocalDomain(name)
		}
		return
	}
	cc.clearLocalDomain(domain)
}
