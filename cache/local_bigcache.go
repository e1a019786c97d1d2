package cache

import (
	"context"
	"sync/atomic"

	bc "github.com/allegro/bigcache/v3"
)

// BigCacheFactory creates BigCache instances. BigCache keeps payloads in
// large preallocated byte segments, which suits domains with many sizable
// serialized blobs.
type BigCacheFactory struct {
	config LocalCacheConfig
}

// NewBigCacheFactory creates a new BigCache factory.
func NewBigCacheFactory(config LocalCacheConfig) LocalCacheFactory {
	return &BigCacheFactory{config: config}
}

// Create creates a new BigCache instance.
func (bcf *BigCacheFactory) Create() (LocalCache, error) {
	return NewByteCache(bcf.config)
}

// ByteCache is a local cache implementation backed by BigCache.
type ByteCache struct {
	cache     *bc.BigCache
	hits      int64
	misses    int64
	evictions int64
}

// NewByteCache creates a new BigCache-based local cache.
func NewByteCache(config LocalCacheConfig) (*ByteCache, error) {
	cc := &ByteCache{}
	conf := bc.DefaultConfig(config.LifeWindow)
	if config.MaxCost > 0 {
		conf.HardMaxCacheSize = int(config.MaxCost >> 20) // bytes -> MB
	}
	// Deletes are not evictions; count only expiry and space pressure.
	conf.OnRemoveWithReason = func(key string, entry []byte, reason bc.RemoveReason) {
		if reason == bc.Expired || reason == bc.NoSpace {
			atomic.AddInt64(&cc.evictions, 1)
		}
	}
	cache, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	cc.cache = cache
	return cc, nil
}

// Get retrieves a payload from the local cache.
func (cc *ByteCache) Get(key string) ([]byte, bool) {
	value, err := cc.cache.Get(key)
	if err != nil {
		atomic.AddInt64(&cc.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&cc.hits, 1)
	return value, true
}

// Set stores a payload in the local cache.
func (cc *ByteCache) Set(key string, value []byte, cost int64) bool {
	return cc.cache.Set(key, value) == nil
}

// Delete removes a payload from the local cache.
func (cc *ByteCache) Delete(key string) {
	_ = cc.cache.Delete(key)
}

// Clear removes all payloads from the local cache.
func (cc *ByteCache) Clear() {
	_ = cc.cache.Reset()
}

// Close closes the local cache.
func (cc *ByteCache) Close() {
	_ = cc.cache.Close()
}

// Metrics returns cache metrics.
func (cc *ByteCache) Metrics() LocalCacheMetrics {
	return LocalCacheMetrics{
		Hits:      atomic.LoadInt64(&cc.hits),
		Misses:    atomic.LoadInt64(&cc.misses),
		Evictions: atomic.LoadInt64(&cc.evictions),
		Size:      int64(cc.cache.Len()),
	}
}
