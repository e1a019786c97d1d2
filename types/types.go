package types

// Event announces that a cache domain's data is stale and must be reloaded.
// It is broadcast over the shared store's pub/sub channels and consumed
// at-least-once by every subscribed replica, including the sender.
type Event struct {
	// Domain is the affected cache domain, or "all" for every domain.
	Domain string `json:"domain" msgpack:"domain"`

	// Token is a diagnostic nonce correlating log lines across replicas.
	// It has no effect on protocol correctness.
	Token string `json:"token" msgpack:"token"`

	// Sender identifies the replica that published the event.
	Sender string `json:"sender" msgpack:"sender"`

	// Timestamp is the publish time in unix milliseconds.
	Timestamp int64 `json:"timestamp" msgpack:"timestamp"`
}

// AllDomains is the reserved domain identifier addressing every registered
// domain at once.
const AllDomains = "all"
