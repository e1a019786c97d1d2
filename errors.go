package coherentcache

import "github.com/recordhub/coherentcache/cache"

// ErrNotFound is returned when a key exists in no cache tier and not in
// the authoritative store.
var ErrNotFound = cache.ErrNotFound

// ErrUnknownDomain is returned for a domain name that was never registered.
var ErrUnknownDomain = cache.ErrUnknownDomain

// ErrEmptyKey is returned when Get is called with an empty key.
var ErrEmptyKey = cache.ErrEmptyKey

// ErrCacheClosed is returned when operations are performed on a closed cache.
var ErrCacheClosed = cache.ErrCacheClosed

// ErrInvalidConfig is returned when the cache configuration is invalid.
var ErrInvalidConfig = cache.ErrInvalidConfig

// ErrStoreUnreachable wraps failures to reach the shared cache store.
var ErrStoreUnreachable = cache.ErrStoreUnreachable

// ErrSourceUnavailable wraps failures to reach the authoritative store.
var ErrSourceUnavailable = cache.ErrSourceUnavailable
