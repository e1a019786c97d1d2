package cache

import (
	"context"
	"errors"
	"testing"
)

func TestReloadFromSourceReplacesDomain(t *testing.T) {
	store := newFakeStore()
	hub := newBusHub()
	loader := newMapLoader(map[string]string{"root": "v2", "footer": "f1"})
	cc := newTestReplica(t, "r1", store, hub, Domain{Name: "menu", Loader: loader})

	ctx := context.Background()
	ns := cc.options.Namespace

	// A key that no longer exists in the source must not survive the
	// reload.
	stale := entryKey(ns, "menu", "removed")
	if err := store.Set(ctx, stale, []byte("old"), 0); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	if err := cc.warmer.ReloadFromSource(ctx, "menu"); err != nil {
		t.Fatalf("ReloadFromSource failed: %v", err)
	}

	if store.has(stale) {
		t.Fatal("Stale entry should be purged by the reload")
	}
	for _, key := range []string{"root", "footer"} {
		if !store.has(entryKey(ns, "menu", key)) {
			t.Fatalf("Shared store missing %q after reload", key)
		}
		if _, found := cc.local.Get(entryKey(ns, "menu", key)); !found {
			t.Fatalf("Local tier missing %q after reload", key)
		}
	}
}

func TestReloadFromSourceSourceDown(t *testing.T) {
	store := newFakeStore()
	hub := newBusHub()
	loader := newMapLoader(map[string]string{"root": "v1"})
	cc := newTestReplica(t, "r1", store, hub, Domain{Name: "menu", Loader: loader})

	loader.setFailing(true)

	err := cc.warmer.ReloadFromSource(context.Background(), "menu")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("Expected ErrSourceUnavailable, got %v", err)
	}
}

func TestReloadFromSharedCacheHydratesPresentKeys(t *testing.T) {
	store := newFakeStore()
	hub := newBusHub()
	loader := newMapLoader(map[string]string{"root": "v2", "footer": "f1"})
	cc := newTestReplica(t, "r1", store, hub, Domain{Name: "menu", Loader: loader})

	ctx := context.Background()
	ns := cc.options.Namespace

	// The leader has written root but not footer yet.
	if err := store.Set(ctx, entryKey(ns, "menu", "root"), []byte("v2"), 0); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	if err := cc.warmer.ReloadFromSharedCache(ctx, "menu"); err != nil {
		t.Fatalf("ReloadFromSharedCache failed: %v", err)
	}

	if value, found := cc.local.Get(entryKey(ns, "menu", "root")); !found || string(value) != "v2" {
		t.Fatalf("Expected local root=v2, found=%v value=%s", found, value)
	}
	// The absent key stays absent locally; the read path reloads it
	// lazily later.
	if _, found := cc.local.Get(entryKey(ns, "menu", "footer")); found {
		t.Fatal("Follower must not invent entries the leader has not written")
	}

	if _, loadAlls := loader.counts(); loadAlls != 0 {
		t.Fatal("Follower path must not touch the authoritative store")
	}
}

func TestReloadFromSharedCacheStoreDown(t *testing.T) {
	store := newFakeStore()
	hub := newBusHub()
	cc := newTestReplica(t, "r1", store, hub,
		Domain{Name: "menu", Loader: newMapLoader(nil)})

	store.setFailing(true)

	err := cc.warmer.ReloadFromSharedCache(context.Background(), "menu")
	if !errors.Is(err, ErrStoreUnreachable) {
		t.Fatalf("Expected ErrStoreUnreachable, got %v", err)
	}
}

func TestWarmerRejectsUnknownDomain(t *testing.T) {
	store := newFakeStore()
	hub := newBusHub()
	cc := newTestReplica(t, "r1", store, hub,
		Domain{Name: "menu", Loader: newMapLoader(nil)})

	if err := cc.warmer.ReloadFromSource(context.Background(), "nope"); !errors.Is(err, ErrUnknownDomain) {
		t.Fatalf("Expected ErrUnknownDomain, got %v", err)
	}
	if err := cc.warmer.ReloadFromSharedCache(context.Background(), "nope"); !errors.Is(err, ErrUnknownDomain) {
		t.Fatalf("Expected ErrUnknownDomain, got %v", err)
	}
}
