package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/recordhub/coherentcache/types"
)

// Domain declares one independently invalidated grouping of cache entries.
// All entries of a domain share a single invalidation lifecycle: they are
// cleared and reloaded together.
type Domain struct {
	// Name identifies the domain. It must not contain ':', '.' or '*',
	// and must not collide with the reserved identifiers "all" and
	// "warmup-lock".
	Name string

	// Loader rebuilds the domain from the authoritative store.
	Loader Loader

	// TTL bounds how long entries live in the shared store without a
	// reload. Zero means no expiry.
	TTL time.Duration
}

// LocalCacheConfig configures the local cache tier.
type LocalCacheConfig struct {
	// NumCounters is the number of counters for the cache (Ristretto only).
	// Recommended: 10 * MaxItems
	NumCounters int64

	// MaxCost is the maximum total payload cost in the cache (Ristretto only).
	MaxCost int64

	// BufferItems is the number of items to buffer before eviction (Ristretto only).
	// Recommended: 64
	BufferItems int64

	// IgnoreInternalCost ignores the internal cost of items (Ristretto only).
	IgnoreInternalCost bool

	// MaxSize is the maximum number of items in the cache (LRU only).
	MaxSize int

	// LifeWindow is how long entries live before expiry (BigCache only).
	LifeWindow time.Duration
}

// Options configures a CoherentCache instance.
type Options struct {
	// ReplicaID uniquely identifies this replica. It is embedded in
	// event sender fields and leader lock holder IDs for diagnostics.
	ReplicaID string

	// Namespace prefixes every shared store key to avoid collisions with
	// other users of the store.
	Namespace string

	// ChannelPrefix prefixes every invalidation channel. The coordinator
	// subscribes to "<ChannelPrefix>.*".
	ChannelPrefix string

	// Domains registers the cache domains and their loaders. At least
	// one domain is required.
	Domains []Domain

	// LocalCacheConfig configures the local cache tier.
	LocalCacheConfig LocalCacheConfig

	// LocalCacheFactory is the factory for creating local cache instances.
	// If nil, defaults to the Ristretto factory.
	LocalCacheFactory LocalCacheFactory

	// RedisAddr is the Redis server address (e.g., "localhost:6379").
	// Required unless Store and Bus are injected.
	RedisAddr string

	// RedisPassword is the optional Redis password.
	RedisPassword string

	// RedisDB is the Redis database number.
	RedisDB int

	// SerializationFormat specifies how events are serialized on the wire
	// ("json", "msgpack" or "cbor").
	SerializationFormat string

	// Marshaller overrides the event wire codec. If nil, it is derived
	// from SerializationFormat.
	Marshaller Marshaller

	// Logger is the logger for the cache. If nil, defaults to no-op.
	Logger Logger

	// DebugMode enables verbose per-read logging.
	DebugMode bool

	// ContextTimeout is the default timeout for setup operations.
	ContextTimeout time.Duration

	// LockTTL bounds how long a crashed leader can hold the warm-up lock.
	// It must exceed the expected worst-case reload duration.
	LockTTL time.Duration

	// FollowerGracePeriod is how long a follower waits for the leader to
	// populate the shared store before hydrating from it. A latency
	// tunable, not a correctness requirement: the lazy read path covers
	// a wait that was too short.
	FollowerGracePeriod time.Duration

	// OnError is called when an error occurs in background warm-up work.
	OnError func(error)

	// Store overrides the shared store. If nil, a Redis store is built
	// from the Redis options. When Store is injected, Bus must be too.
	Store Store

	// Bus overrides the invalidation broadcast transport. If nil, a Redis
	// pub/sub synchronizer sharing the store's connection is built.
	Bus Synchronizer
}

// DefaultOptions returns default cache options. Domains must still be
// registered by the caller.
func DefaultOptions() Options {
	return Options{
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

// DefaultLocalCacheConfig returns default local cache configuration.
func DefaultLocalCacheConfig() LocalCacheConfig {
	return LocalCacheConfig{
		NumCounters:        1e7,
		MaxCost:            1 << 30, // 1GB
		BufferItems:        64,
		IgnoreInternalCost: false,
		MaxSize:            10000,
		LifeWindow:         10 * time.Minute,
	}
}

// Validate validates the options.
func (o *Options) Validate() error {
	if o.ReplicaID == "" {
		return fmt.Errorf("%w: ReplicaID is required", ErrInvalidConfig)
	}
	if o.Namespace == "" {
		return fmt.Errorf("%w: Namespace is required", ErrInvalidConfig)
	}
	if o.ChannelPrefix == "" {
		return fmt.Errorf("%w: ChannelPrefix is required", ErrInvalidConfig)
	}
	if len(o.Domains) == 0 {
		return fmt.Errorf("%w: at least one domain is required", ErrInvalidConfig)
	}
	seen := make(map[string]struct{}, len(o.Domains))
	for _, d := range o.Domains {
		if err := validateDomainName(d.Name); err != nil {
			return err
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("%w: duplicate domain %q", ErrInvalidConfig, d.Name)
		}
		seen[d.Name] = struct{}{}
		if d.Loader == nil {
			return fmt.Errorf("%w: domain %q has no loader", ErrInvalidConfig, d.Name)
		}
		if d.TTL < 0 {
			return fmt.Errorf("%w: domain %q has negative TTL", ErrInvalidConfig, d.Name)
		}
	}
	if o.SerializationFormat != "json" && o.SerializationFormat != "msgpack" && o.SerializationFormat != "cbor" {
		return fmt.Errorf("%w: unsupported serialization format %q", ErrInvalidConfig, o.SerializationFormat)
	}
	if o.LockTTL <= 0 {
		return fmt.Errorf("%w: LockTTL must be positive", ErrInvalidConfig)
	}
	if o.FollowerGracePeriod < 0 {
		return fmt.Errorf("%w: FollowerGracePeriod must not be negative", ErrInvalidConfig)
	}
	if o.Store == nil && o.RedisAddr == "" {
		return fmt.Errorf("%w: RedisAddr is required without an injected Store", ErrInvalidConfig)
	}
	if (o.Store == nil) != (o.Bus == nil) {
		return fmt.Errorf("%w: Store and Bus must be injected together", ErrInvalidConfig)
	}
	if o.LocalCacheFactory == nil {
		if o.LocalCacheConfig.NumCounters <= 0 {
			return fmt.Errorf("%w: NumCounters must be positive", ErrInvalidConfig)
		}
		if o.LocalCacheConfig.MaxCost <= 0 {
			return fmt.Errorf("%w: MaxCost must be positive", ErrInvalidConfig)
		}
	}
	return nil
}

func validateDomainName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty domain name", ErrInvalidConfig)
	}
	if name == types.AllDomains || name == lockDomain {
		return fmt.Errorf("%w: domain name %q is reserved", ErrInvalidConfig, name)
	}
	if strings.ContainsAny(name, ":.*") {
		return fmt.Errorf("%w: domain name %q contains reserved characters", ErrInvalidConfig, name)
	}
	return nil
}
