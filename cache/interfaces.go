package cache

import (
	"context"
	"time"

	"github.com/recordhub/coherentcache/types"
)

// Logger defines the interface for logging in the coherent cache.
type Logger interface {
	// Debug logs a debug message.
	Debug(msg string, args ...any)

	// Info logs an info message.
	Info(msg string, args ...any)

	// Warn logs a warning message.
	Warn(msg string, args ...any)

	// Error logs an error message.
	Error(msg string, args ...any)
}

// Marshaller defines the interface for encoding invalidation events on the
// wire.
type Marshaller interface {
	// Marshal serializes a value to bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes a value from bytes.
	Unmarshal(data []byte, v any) error
}

// LocalCache defines the interface for the per-replica in-process cache
// tier. Values are opaque serialized payloads.
type LocalCache interface {
	// Get retrieves a payload from the local cache.
	Get(key string) ([]byte, bool)

	// Set stores a payload in the local cache.
	Set(key string, value []byte, cost int64) bool

	// Delete removes a payload from the local cache.
	Delete(key string)

	// Clear removes all payloads from the local cache.
	Clear()

	// Close closes the local cache.
	Close()

	// Metrics returns cache metrics.
	Metrics() LocalCacheMetrics
}

// LocalCacheMetrics represents local cache metrics.
type LocalCacheMetrics struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int64
}

// LocalCacheFactory defines the interface for creating local cache
// implementations.
type LocalCacheFactory interface {
	// Create creates a new local cache instance.
	Create() (LocalCache, error)
}

// Loader rebuilds a domain's content from the authoritative store. It is
// the only path by which this subsystem reaches the system of record.
type Loader interface {
	// Load fetches the payload for a single key. It returns ErrNotFound
	// when the key does not exist in the authoritative store.
	Load(ctx context.Context, key string) ([]byte, error)

	// LoadAll fetches every payload belonging to the domain, keyed by
	// entry key.
	LoadAll(ctx context.Context) (map[string][]byte, error)
}

// Store defines the interface for the shared cross-replica cache tier.
// SetNX is the atomic set-if-absent-with-expiry primitive the leader
// election gate depends on; the store adds no other coordination.
type Store interface {
	// Get retrieves a payload from the store.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a payload with an optional expiry (ttl <= 0: no expiry).
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX atomically stores a value only if key is absent. The value
	// expires after ttl even if never deleted.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// CompareAndDelete deletes key only while it still holds value.
	CompareAndDelete(ctx context.Context, key string, value []byte) error

	// Delete removes a payload from the store.
	Delete(ctx context.Context, key string) error

	// Keys enumerates the keys currently stored under prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// DeleteByPrefix removes every key under prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error

	// Close closes the store connection.
	Close() error
}

// Synchronizer defines the interface for broadcasting invalidation events
// across replicas.
type Synchronizer interface {
	// Subscribe starts listening for invalidation events.
	Subscribe(ctx context.Context) error

	// Publish broadcasts an event on the given channel, fire-and-forget.
	Publish(ctx context.Context, channel string, event types.Event) error

	// OnEvent registers a callback for delivered events.
	OnEvent(callback func(event types.Event))

	// Close closes the synchronizer.
	Close() error
}

// Warmer repopulates cache tiers after an invalidation. The leader of a
// round reloads from the authoritative store; followers copy what the
// leader wrote into the shared store.
type Warmer interface {
	// ReloadFromSource rebuilds the domain from the authoritative store
	// and writes it into the shared store and this replica's local cache.
	ReloadFromSource(ctx context.Context, domain string) error

	// ReloadFromSharedCache copies the domain's current shared store
	// entries into this replica's local cache. Keys absent from the
	// shared store are left absent locally.
	ReloadFromSharedCache(ctx context.Context, domain string) error
}

// Cache is the read-through facade the rest of the system consumes cached
// data through. Callers never learn which tier served a given read.
type Cache interface {
	// Get resolves local cache, then shared store, then the domain's
	// loader, populating faster tiers on the way back.
	Get(ctx context.Context, domain, key string) ([]byte, error)

	// Invalidate broadcasts that a domain (or "all") is stale.
	Invalidate(ctx context.Context, domain string) error

	// Stats returns a snapshot of protocol counters.
	Stats() Stats

	// LocalMetrics returns the local cache tier's metrics.
	LocalMetrics() LocalCacheMetrics

	// Close closes the cache and releases all resources.
	Close() error
}

// Event is an alias for types.Event.
type Event = types.Event

// Stats represents cache and protocol statistics. Telemetry only; nothing
// in the coherence protocol reads these counters.
type Stats struct {
	LocalHits       int64
	LocalMisses     int64
	RemoteHits      int64
	RemoteMisses    int64
	SourceLoads     int64
	DegradedReads   int64
	EventsPublished int64
	EventsReceived  int64
	RoundsLed       int64
	RoundsFollowed  int64
}
