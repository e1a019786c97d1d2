package sync

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/recordhub/coherentcache/types"
)

// Event is an alias for types.Event.
type Event = types.Event

// Marshaller encodes and decodes events on the wire. The cache package's
// Marshaller satisfies it.
type Marshaller interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// PubSubSynchronizer broadcasts invalidation events over Redis Pub/Sub.
// Publishing targets one channel per domain; subscription uses a single
// pattern subscription covering every domain channel, so replicas need no
// per-domain subscription management.
type PubSubSynchronizer struct {
	client         *redis.Client
	pattern        string
	codec          Marshaller
	pubsub         *redis.PubSub
	callbacks      []func(event Event)
	callbacksMutex sync.RWMutex
	done           chan struct{}
	wg             sync.WaitGroup
}

// NewPubSubSynchronizer creates a synchronizer that subscribes to pattern
// (e.g. "cache-invalidate.*") and encodes events with codec.
func NewPubSubSynchronizer(client *redis.Client, pattern string, codec Marshaller) *PubSubSynchronizer {
	return &PubSubSynchronizer{
		client:    client,
		pattern:   pattern,
		codec:     codec,
		callbacks: make([]func(event Event), 0),
		done:      make(chan struct{}),
	}
}

// Subscribe starts the pattern subscription and the delivery loop.
func (ps *PubSubSynchronizer) Subscribe(ctx context.Context) error {
	ps.pubsub = ps.client.PSubscribe(ctx, ps.pattern)

	// Force the subscription onto the wire before returning, so events
	// published right after Subscribe are not lost.
	if _, err := ps.pubsub.Receive(ctx); err != nil {
		return err
	}

	ps.wg.Add(1)
	go ps.listenForEvents()

	return nil
}

// Publish broadcasts an event on the given channel. Delivery is
// fire-and-forget; Publish returns once Redis accepted the message.
func (ps *PubSubSynchronizer) Publish(ctx context.Context, channel string, event Event) error {
	data, err := ps.codec.Marshal(event)
	if err != nil {
		return err
	}

	return ps.client.Publish(ctx, channel, data).Err()
}

// OnEvent registers a callback invoked for every delivered event.
// Callbacks run on the delivery goroutine and must not block.
func (ps *PubSubSynchronizer) OnEvent(callback func(event Event)) {
	ps.callbacksMutex.Lock()
	defer ps.callbacksMutex.Unlock()
	ps.callbacks = append(ps.callbacks, callback)
}

// Close stops the delivery loop and tears down the subscription.
func (ps *PubSubSynchronizer) Close() error {
	close(ps.done)

	var err error
	if ps.pubsub != nil {
		err = ps.pubsub.Close()
	}
	ps.wg.Wait()
	return err
}

// listenForEvents decodes messages from the pattern subscription and fans
// them out to registered callbacks. Events from this replica itself are
// delivered too: the publishing replica participates in the round like any
// other subscriber.
func (ps *PubSubSynchronizer) listenForEvents() {
	defer ps.wg.Done()

	ch := ps.pubsub.Channel()

	for {
		select {
		case <-ps.done:
			return
		case msg, ok := <-ch:
			if !ok || msg == nil {
				return
			}

			var event Event
			if err := ps.codec.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}

			ps.callbacksMutex.RLock()
			callbacks := ps.callbacks
			ps.callbacksMutex.RUnlock()

			for _, callback := range callbacks {
				callback(event)
			}
		}
	}
}
