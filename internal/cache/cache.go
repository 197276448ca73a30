// Package cache holds small in-process caches used to avoid repeated store
// lookups within a single instance. Entries are never shared across instances.
package cache

import "time"

// Cache is a key-value store with per-entry TTL.
type Cache[K comparable, V any] interface {
	// Get returns the value and whether it was present and not expired.
	Get(key K) (V, bool)

	// Set stores the value. A ttl <= 0 never expires.
	Set(key K, value V, ttl time.Duration)

	Delete(key K)

	// Len counts live entries.
	Len() int

	// PurgeExpired removes expired entries.
	PurgeExpired()
}
