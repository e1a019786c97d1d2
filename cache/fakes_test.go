package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/recordhub/coherentcache/storage"
	"github.com/recordhub/coherentcache/types"
)

var errUnreachable = errors.New("connection refused")

// fakeStore is an in-memory shared store. One instance is shared by every
// simulated replica in a test, mirroring the single Redis deployment.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string]fakeEntry
	failing bool
}

type fakeEntry struct {
	value    []byte
	expireAt time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]fakeEntry)}
}

func (fs *fakeStore) setFailing(failing bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.failing = failing
}

func (fs *fakeStore) pruneLocked(now time.Time) {
	for k, e := range fs.entries {
		if !e.expireAt.IsZero() && now.After(e.expireAt) {
			delete(fs.entries, k)
		}
	}
}

func (fs *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.failing {
		return nil, errUnreachable
	}
	fs.pruneLocked(time.Now())
	e, ok := fs.entries[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return e.value, nil
}

func (fs *fakeStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.failing {
		return errUnreachable
	}
	var expireAt time.Time
	if ttl > 0 {
		expireAt = time.Now().Add(ttl)
	}
	fs.entries[key] = fakeEntry{value: value, expireAt: expireAt}
	return nil
}

func (fs *fakeStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.failing {
		return false, errUnreachable
	}
	fs.pruneLocked(time.Now())
	if _, exists := fs.entries[key]; exists {
		return false, nil
	}
	var expireAt time.Time
	if ttl > 0 {
		expireAt = time.Now().Add(ttl)
	}
	fs.entries[key] = fakeEntry{value: value, expireAt: expireAt}
	return true, nil
}

func (fs *fakeStore) CompareAndDelete(ctx context.Context, key string, value []byte) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.failing {
		return errUnreachable
	}
	fs.pruneLocked(time.Now())
	if e, ok := fs.entries[key]; ok && string(e.value) == string(value) {
		delete(fs.entries, key)
	}
	return nil
}

func (fs *fakeStore) Delete(ctx context.Context, key string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.failing {
		return errUnreachable
	}
	delete(fs.entries, key)
	return nil
}

func (fs *fakeStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.failing {
		return nil, errUnreachable
	}
	fs.pruneLocked(time.Now())
	var keys []string
	for k := range fs.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (fs *fakeStore) DeleteByPrefix(ctx context.Context, prefix string) error {
	keys, err := fs.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for _, k := range keys {
		delete(fs.entries, k)
	}
	return nil
}

// Close is a no-op: the store outlives the replicas sharing it.
func (fs *fakeStore) Close() error { return nil }

func (fs *fakeStore) has(key string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.pruneLocked(time.Now())
	_, ok := fs.entries[key]
	return ok
}

// busHub is an in-memory stand-in for Redis pub/sub, broadcasting every
// published event to all joined members, the publisher included.
type busHub struct {
	mu      sync.Mutex
	failing bool
	members []*busMember
}

func newBusHub() *busHub {
	return &busHub{}
}

func (h *busHub) setFailing(failing bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failing = failing
}

func (h *busHub) join() *busMember {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := &busMember{hub: h}
	h.members = append(h.members, m)
	return m
}

func (h *busHub) broadcast(event types.Event) error {
	h.mu.Lock()
	if h.failing {
		h.mu.Unlock()
		return errUnreachable
	}
	members := make([]*busMember, len(h.members))
	copy(members, h.members)
	h.mu.Unlock()

	for _, m := range members {
		m.deliver(event)
	}
	return nil
}

type busMember struct {
	hub       *busHub
	mu        sync.Mutex
	closed    bool
	callbacks []func(event types.Event)
}

func (m *busMember) Subscribe(ctx context.Context) error { return nil }

func (m *busMember) Publish(ctx context.Context, channel string, event types.Event) error {
	return m.hub.broadcast(event)
}

func (m *busMember) OnEvent(callback func(event types.Event)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

func (m *busMember) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *busMember) deliver(event types.Event) {
	m.mu.Lock()
	closed := m.closed
	callbacks := m.callbacks
	m.mu.Unlock()
	if closed {
		return
	}
	for _, callback := range callbacks {
		callback(event)
	}
}

// mapLoader simulates a domain's authoritative store table.
type mapLoader struct {
	mu       sync.Mutex
	rows     map[string][]byte
	failing  bool
	loads    int
	loadAlls int
}

func newMapLoader(rows map[string]string) *mapLoader {
	ml := &mapLoader{rows: make(map[string][]byte, len(rows))}
	for k, v := range rows {
		ml.rows[k] = []byte(v)
	}
	return ml
}

func (ml *mapLoader) Load(ctx context.Context, key string) ([]byte, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.loads++
	if ml.failing {
		return nil, errors.New("database down")
	}
	row, ok := ml.rows[key]
	if !ok {
		return nil, ErrNotFound
	}
	return row, nil
}

func (ml *mapLoader) LoadAll(ctx context.Context) (map[string][]byte, error) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.loadAlls++
	if ml.failing {
		return nil, errors.New("database down")
	}
	out := make(map[string][]byte, len(ml.rows))
	for k, v := range ml.rows {
		out[k] = v
	}
	return out, nil
}

func (ml *mapLoader) set(key, value string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.rows[key] = []byte(value)
}

func (ml *mapLoader) setFailing(failing bool) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.failing = failing
}

func (ml *mapLoader) counts() (loads, loadAlls int) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	return ml.loads, ml.loadAlls
}

func (ml *mapLoader) resetCounts() {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.loads, ml.loadAlls = 0, 0
}

// newTestOptions wires a replica onto the shared fake store and bus hub.
// The LRU local tier keeps reads synchronous and deterministic.
func newTestOptions(replicaID string, store Store, hub *busHub, domains ...Domain) Options {
	opts := DefaultOptions()
	opts.ReplicaID = replicaID
	opts.Store = store
	opts.Bus = hub.join()
	opts.Domains = domains
	opts.LocalCacheFactory = NewLRUCacheFactory(256)
	opts.LockTTL = 250 * time.Millisecond
	opts.FollowerGracePeriod = 20 * time.Millisecond
	return opts
}

func newTestReplica(t *testing.T, replicaID string, store Store, hub *busHub, domains ...Domain) *CoherentCache {
	t.Helper()
	cc, err := New(newTestOptions(replicaID, store, hub, domains...))
	if err != nil {
		t.Fatalf("Failed to create replica %s: %v", replicaID, err)
	}
	t.Cleanup(func() { cc.Close() })
	return cc
}

// waitUntil polls cond until it holds or the timeout expires.
func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not reached within %v: %s", timeout, msg)
}
