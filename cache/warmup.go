package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/recordhub/coherentcache/storage"
)

// tierWarmer is the default Warmer. The leader path rebuilds a domain from
// its loader and pushes it into the shared store and this replica's local
// tier; the follower path copies whatever the leader wrote out of the
// shared store.
type tierWarmer struct {
	cc *CoherentCache
}

// ReloadFromSource runs the leader path for one domain.
func (w *tierWarmer) ReloadFromSource(ctx context.Context, domain string) error {
	cc := w.cc
	d, ok := cc.domains[domain]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}

	payloads, err := d.Loader.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: reload %s: %v", ErrSourceUnavailable, domain, err)
	}

	prefix := domainPrefix(cc.options.Namespace, domain)
	if err := cc.store.DeleteByPrefix(ctx, prefix); err != nil {
		// Entries deleted from the source would otherwise linger; with
		// the purge failed they still expire via the domain TTL.
		cc.logger.Warn("failed to purge shared store before reload", "domain", domain, "error", err)
	}

	var firstErr error
	for key, payload := range payloads {
		skey := entryKey(cc.options.Namespace, domain, key)
		if serr := cc.store.Set(ctx, skey, payload, d.TTL); serr != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: write %s: %v", ErrStoreUnreachable, skey, serr)
			}
			continue
		}
		cc.setLocal(domain, skey, payload)
	}

	cc.logger.Info("reloaded domain from authoritative store",
		"domain", domain, "entries", len(payloads))
	return firstErr
}

// ReloadFromSharedCache runs the follower path for one domain. Keys the
// leader has not written yet are left absent locally; the facade's lazy
// read path converges them later.
func (w *tierWarmer) ReloadFromSharedCache(ctx context.Context, domain string) error {
	cc := w.cc
	if _, ok := cc.domains[domain]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}

	prefix := domainPrefix(cc.options.Namespace, domain)
	keys, err := cc.store.Keys(ctx, prefix)
	if err != nil {
		return fmt.Errorf("%w: enumerate %s: %v", ErrStoreUnreachable, domain, err)
	}

	hydrated := 0
	for _, skey := range keys {
		if !strings.HasPrefix(skey, prefix) {
			continue
		}
		payload, gerr := cc.store.Get(ctx, skey)
		if gerr != nil {
			if errors.Is(gerr, storage.ErrNotFound) {
				continue
			}
			return fmt.Errorf("%w: read %s: %v", ErrStoreUnreachable, skey, gerr)
		}
		cc.setLocal(domain, skey, payload)
		hydrated++
	}

	if cc.options.DebugMode {
		cc.logger.Debug("hydrated domain from shared store", "domain", domain, "entries", hydrated)
	}
	return nil
}
