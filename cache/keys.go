package cache

// lockDomain is the pseudo-domain segment under which warm-up leader locks
// live. Reserved so a registered domain can never collide with lock keys.
const lockDomain = "warmup-lock"

// entryKey builds the shared store key for one cache entry.
func entryKey(namespace, domain, key string) string {
	return namespace + ":" + domain + ":" + key
}

// domainPrefix is the shared store key prefix covering every entry of a
// domain.
func domainPrefix(namespace, domain string) string {
	return namespace + ":" + domain + ":"
}

// lockKey is the leader election lock key for one domain's warm-up round.
func lockKey(namespace, domain string) string {
	return namespace + ":" + lockDomain + ":" + domain
}

// channelFor is the pub/sub channel carrying invalidation events for a
// domain (or for "all").
func channelFor(prefix, domain string) string {
	return prefix + "." + domain
}

// subscribePattern matches every invalidation channel under prefix.
func subscribePattern(prefix string) string {
	return prefix + ".*"
}
