// Package coherentcache keeps a per-process local cache and a shared Redis
// cache coherent across any number of stateless service replicas.
//
// Writes to the system of record trigger an invalidation broadcast; every
// replica clears its local tier, exactly one replica wins a leader election
// built on Redis SET NX and pays the cost of reloading from the
// authoritative store, and the rest hydrate cheaply from the shared tier.
// Reads go through a read-through facade that resolves local cache, shared
// cache, then the domain's loader, so a lost broadcast or a crashed leader
// always converges through the lazy reload path.
package coherentcache

import (
	"time"

	"github.com/recordhub/coherentcache/cache"
)

// Config configures a coherent cache instance.
type Config struct {
	// ReplicaID uniquely identifies this replica in events and leader
	// lock holder IDs.
	ReplicaID string

	// Namespace prefixes every shared store key.
	Namespace string

	// ChannelPrefix prefixes every invalidation channel.
	ChannelPrefix string

	// Domains registers the cache domains and their loaders.
	Domains []Domain

	// LocalCacheConfig configures the local cache tier.
	LocalCacheConfig LocalCacheConfig

	// LocalCacheFactory is the factory for creating local cache instances.
	// If nil, defaults to the Ristretto factory.
	LocalCacheFactory LocalCacheFactory

	// RedisAddr is the Redis server address (e.g., "localhost:6379").
	RedisAddr string

	// RedisPassword is the optional Redis password.
	RedisPassword string

	// RedisDB is the Redis database number.
	RedisDB int

	// SerializationFormat specifies how events are serialized
	// ("json", "msgpack" or "cbor").
	SerializationFormat string

	// Marshaller overrides the event wire codec.
	Marshaller Marshaller

	// Logger is the logger for the cache. If nil, defaults to no-op.
	Logger Logger

	// DebugMode enables verbose per-read logging.
	DebugMode bool

	// ContextTimeout is the default timeout for setup operations.
	ContextTimeout time.Duration

	// LockTTL bounds how long a crashed leader can hold the warm-up lock.
	LockTTL time.Duration

	// FollowerGracePeriod is how long followers wait before hydrating
	// from the shared store.
	FollowerGracePeriod time.Duration

	// OnError is called when an error occurs in background warm-up work.
	OnError func(error)

	// Store overrides the shared store (tests, alternative backends).
	Store Store

	// Bus overrides the invalidation broadcast transport.
	Bus Synchronizer
}

// New creates a new coherent cache instance.
// This is the root-level initialization function that allows users to
// import from the root package.
func New(cfg Config) (Cache, error) {
	opts := cache.Options{
		ReplicaID:           cfg.ReplicaID,
		Namespace:           cfg.Namespace,
		ChannelPrefix:       cfg.ChannelPrefix,
		Domains:             cfg.Domains,
		LocalCacheConfig:    cfg.LocalCacheConfig,
		LocalCacheFactory:   cfg.LocalCacheFactory,
		RedisAddr:           cfg.RedisAddr,
		RedisPassword:       cfg.RedisPassword,
		RedisDB:             cfg.RedisDB,
		SerializationFormat: cfg.SerializationFormat,
		Marshaller:          cfg.Marshaller,
		Logger:              cfg.Logger,
		DebugMode:           cfg.DebugMode,
		ContextTimeout:      cfg.ContextTimeout,
		LockTTL:             cfg.LockTTL,
		FollowerGracePeriod: cfg.FollowerGracePeriod,
		OnError:             cfg.OnError,
		Store:               cfg.Store,
		Bus:                 cfg.Bus,
	}

	return cache.New(opts)
}

// DefaultConfig returns default cache configuration. Domains must still be
// registered by the caller.
func DefaultConfig() Config {
	return Config{
		ReplicaID:           "default-replica",
		Namespace:           "coherent",
		ChannelPrefix:       "cache-invalidate",
		RedisAddr:           "localhost:6379",
		RedisDB:             0,
		SerializationFormat: "json",
		ContextTimeout:      5 * time.Second,
		LockTTL:             30 * time.Second,
		FollowerGracePeriod: 500 * time.Millisecond,
		LocalCacheConfig:    DefaultLocalCacheConfig(),
	}
}

// Cache is an alias for cache.Cache.
type Cache = cache.Cache

// Stats is an alias for cache.Stats.
type Stats = cache.Stats
