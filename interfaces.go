package coherentcache

import "github.com/recordhub/coherentcache/cache"

// Logger is an alias for cache.Logger.
type Logger = cache.Logger

// Marshaller is an alias for cache.Marshaller.
type Marshaller = cache.Marshaller

// LocalCache is an alias for cache.LocalCache.
type LocalCache = cache.LocalCache

// LocalCacheMetrics is an alias for cache.LocalCacheMetrics.
type LocalCacheMetrics = cache.LocalCacheMetrics

// LocalCacheFactory is an alias for cache.LocalCacheFactory.
type LocalCacheFactory = cache.LocalCacheFactory

// LocalCacheConfig is an alias for cache.LocalCacheConfig.
type LocalCacheConfig = cache.LocalCacheConfig

// Domain is an alias for cache.Domain.
type Domain = cache.Domain

// Loader is an alias for cache.Loader.
type Loader = cache.Loader

// Store is an alias for cache.Store.
type Store = cache.Store

// Synchronizer is an alias for cache.Synchronizer.
type Synchronizer = cache.Synchronizer

// Warmer is an alias for cache.Warmer.
type Warmer = cache.Warmer

// Event is an alias for cache.Event.
type Event = cache.Event

// DefaultLocalCacheConfig returns default local cache configuration for
// Ristretto.
func DefaultLocalCacheConfig() LocalCacheConfig {
	return cache.DefaultLocalCacheConfig()
}
