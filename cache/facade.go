package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/recordhub/coherentcache/storage"
	cachesync "github.com/recordhub/coherentcache/sync"
)

// CoherentCache is the read-through facade over the local tier, the shared
// store and the per-domain loaders, plus the per-replica invalidation
// coordinator that keeps the tiers coherent across replicas.
type CoherentCache struct {
	local   LocalCache
	store   Store
	bus     Synchronizer
	codec   Marshaller
	logger  Logger
	options Options
	domains map[string]Domain
	gate    *ElectionGate
	warmer  Warmer
	group   singleflight.Group
	index   keyIndex
	closed  int32
	done    chan struct{}
	rounds  sync.WaitGroup
	stats   statCounters
}

// New creates a new CoherentCache instance, connects it to the shared
// store and starts the invalidation subscription.
func New(opts Options) (*CoherentCache, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	// Set defaults for optional fields
	if opts.LocalCacheFactory == nil {
		opts.LocalCacheFactory = NewLFUCacheFactory(opts.LocalCacheConfig)
	}
	if opts.Marshaller == nil {
		codec, err := storage.GetSerializer(opts.SerializationFormat)
		if err != nil {
			return nil, err
		}
		opts.Marshaller = codec
	}
	if opts.Logger == nil {
		opts.Logger = NewNoOpLogger()
	}

	local, err := opts.LocalCacheFactory.Create()
	if err != nil {
		return nil, err
	}

	store := opts.Store
	bus := opts.Bus
	if store == nil {
		rs, err := storage.NewRedisStore(opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
		if err != nil {
			local.Close()
			return nil, err
		}
		store = rs
		bus = cachesync.NewPubSubSynchronizer(rs.GetClient(), subscribePattern(opts.ChannelPrefix), opts.Marshaller)
	}

	domains := make(map[string]Domain, len(opts.Domains))
	for _, d := range opts.Domains {
		domains[d.Name] = d
	}

	cc := &CoherentCache{
		local:   local,
		store:   store,
		bus:     bus,
		codec:   opts.Marshaller,
		logger:  opts.Logger,
		options: opts,
		domains: domains,
		done:    make(chan struct{}),
	}
	cc.gate = NewElectionGate(store, opts.ReplicaID)
	cc.warmer = &tierWarmer{cc: cc}
	cc.index.byDomain = make(map[string]map[string]struct{}, len(domains))

	ctx, cancel := context.WithTimeout(context.Background(), opts.ContextTimeout)
	defer cancel()

	if err := bus.Subscribe(ctx); err != nil {
		cc.Close()
		return nil, err
	}
	bus.OnEvent(cc.handleEvent)

	return cc, nil
}

// Get resolves a cache entry: local tier first, then the shared store,
// then the domain's loader against the authoritative store. Faster tiers
// are populated on the way back, so within one replica a successful Get
// immediately serves from the local tier.
func (cc *CoherentCache) Get(ctx context.Context, domain, key string) ([]byte, error) {
	if atomic.LoadInt32(&cc.closed) != 0 {
		return nil, ErrCacheClosed
	}
	if key == "" {
		return nil, ErrEmptyKey
	}
	d, ok := cc.domains[domain]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDomain, domain)
	}

	skey := entryKey(cc.options.Namespace, domain, key)

	if value, found := cc.local.Get(skey); found {
		cc.stats.add(&cc.stats.localHits)
		return value, nil
	}
	cc.stats.add(&cc.stats.localMisses)

	value, err := cc.store.Get(ctx, skey)
	switch {
	case err == nil:
		cc.stats.add(&cc.stats.remoteHits)
		cc.setLocal(domain, skey, value)
		return value, nil
	case errors.Is(err, storage.ErrNotFound):
		cc.stats.add(&cc.stats.remoteMisses)
	default:
		return cc.getDegraded(ctx, d, domain, key, err)
	}

	// Miss in both tiers: lazily reload from the authoritative store.
	// Concurrent misses for the same entry collapse into one load.
	loaded, err, _ := cc.group.Do(skey, func() (any, error) {
		payload, lerr := d.Loader.Load(ctx, key)
		if lerr != nil {
			if errors.Is(lerr, ErrNotFound) {
				return nil, lerr
			}
			return nil, fmt.Errorf("%w: load %s/%s: %v", ErrSourceUnavailable, domain, key, lerr)
		}
		cc.stats.add(&cc.stats.sourceLoads)

		if serr := cc.store.Set(ctx, skey, payload, d.TTL); serr != nil {
			// The local tier must never run ahead of the shared one,
			// so serve this read uncached.
			cc.logger.Warn("failed to populate shared store on miss",
				"domain", domain, "key", key, "error", serr)
			return payload, nil
		}
		cc.setLocal(domain, skey, payload)
		return payload, nil
	})
	if err != nil {
		return nil, err
	}
	if cc.options.DebugMode {
		cc.logger.Debug("miss served from authoritative store", "domain", domain, "key", key)
	}
	return loaded.([]byte), nil
}

// getDegraded serves a read with the shared store unreachable: straight
// from the authoritative store, without caching. Logged, never fatal to
// the calling request unless the source is down too.
func (cc *CoherentCache) getDegraded(ctx context.Context, d Domain, domain, key string, cause error) ([]byte, error) {
	cc.stats.add(&cc.stats.degradedReads)
	cc.logger.Warn("shared store unreachable, reading authoritative store directly",
		"domain", domain, "key", key, "error", cause)

	payload, err := d.Loader.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: load %s/%s: %v", ErrSourceUnavailable, domain, key, err)
	}
	return payload, nil
}

// setLocal writes an entry into the local tier and records it in the
// per-domain index so invalidation can clear the domain later.
func (cc *CoherentCache) setLocal(domain, storeKey string, payload []byte) {
	if cc.local.Set(storeKey, payload, int64(len(payload))) {
		cc.index.add(domain, storeKey)
	}
}

// clearLocalDomain removes every locally cached entry of a domain.
func (cc *CoherentCache) clearLocalDomain(domain string) {
	for _, key := range cc.index.drop(domain) {
		cc.local.Delete(key)
	}
}

// Stats returns a snapshot of cache and protocol counters.
func (cc *CoherentCache) Stats() Stats {
	return cc.stats.snapshot()
}

// LocalMetrics returns the local cache tier's metrics.
func (cc *CoherentCache) LocalMetrics() LocalCacheMetrics {
	return cc.local.Metrics()
}

// Close stops the subscription, waits for in-flight warm-up rounds and
// releases all resources.
func (cc *CoherentCache) Close() error {
	if !atomic.CompareAndSwapInt32(&cc.closed, 0, 1) {
		return nil
	}

	close(cc.done)

	var errs []error
	if err := cc.bus.Close(); err != nil {
		errs = append(errs, err)
	}

	cc.rounds.Wait()

	if err := cc.store.Close(); err != nil {
		errs = append(errs, err)
	}
	cc.local.Close()

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// keyIndex tracks which local tier keys belong to which domain, because
// the local cache implementations cannot enumerate by prefix. An entry
// evicted by the local cache leaves a harmless stale index record; the
// later Delete is a no-op.
type keyIndex struct {
	mu       sync.Mutex
	byDomain map[string]map[string]struct{}
}

func (ki *keyIndex) add(domain, key string) {
	ki.mu.Lock()
	defer ki.mu.Unlock()
	keys := ki.byDomain[domain]
	if keys == nil {
		keys = make(map[string]struct{})
		ki.byDomain[domain] = keys
	}
	keys[key] = struct{}{}
}

func (ki *keyIndex) drop(domain string) []string {
	ki.mu.Lock()
	defer ki.mu.Unlock()
	keys := ki.byDomain[domain]
	if len(keys) == 0 {
		return nil
	}
	delete(ki.byDomain, domain)
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	return out
}

// statCounters are the internal atomic counters behind Stats.
type statCounters struct {
	localHits       int64
	localMisses     int64
	remoteHits      int64
	remoteMisses    int64
	sourceLoads     int64
	degradedReads   int64
	eventsPublished int64
	eventsReceived  int64
	roundsLed       int64
	roundsFollowed  int64
}

func (s *statCounters) add(counter *int64) {
	atomic.AddInt64(counter, 1)
}

func (s *statCounters) snapshot() Stats {
	return Stats{
		LocalHits:       atomic.LoadInt64(&s.localHits),
		LocalMisses:     atomic.LoadInt64(&s.localMisses),
		RemoteHits:      atomic.LoadInt64(&s.remoteHits),
		RemoteMisses:    atomic.LoadInt64(&s.remoteMisses),
		SourceLoads:     atomic.LoadInt64(&s.sourceLoads),
		DegradedReads:   atomic.LoadInt64(&s.degradedReads),
		EventsPublished: atomic.LoadInt64(&s.eventsPublished),
		EventsReceived:  atomic.LoadInt64(&s.eventsReceived),
		RoundsLed:       atomic.LoadInt64(&s.roundsLed),
		RoundsFollowed:  atomic.LoadInt64(&s.roundsFollowed),
	}
}
