package cache

import "errors"

// ErrNotFound is returned when a key exists in no tier, including the
// authoritative store. Loaders return it to signal an absent record.
var ErrNotFound = errors.New("cache entry not found")

// ErrUnknownDomain is returned for a domain name that was never registered.
// This is a caller error, detected before any network call.
var ErrUnknownDomain = errors.New("unknown cache domain")

// ErrEmptyKey is returned when Get is called with an empty key.
var ErrEmptyKey = errors.New("cache key must not be empty")

// ErrCacheClosed is returned when operations are performed on a closed cache.
var ErrCacheClosed = errors.New("cache is closed")

// ErrInvalidConfig is returned when the cache configuration is invalid.
var ErrInvalidConfig = errors.New("invalid cache configuration")

// ErrStoreUnreachable wraps failures to reach the shared cache store. Reads
// recover by degrading to the authoritative store; publishes recover by
// clearing the local tier only.
var ErrStoreUnreachable = errors.New("shared cache store unreachable")

// ErrSourceUnavailable wraps failures to reach the authoritative store when
// a reload was required. There is no further fallback.
var ErrSourceUnavailable = errors.New("authoritative store unavailable")
