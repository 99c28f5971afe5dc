package kv

import "context"

// Key prefixes partition the record space. One record per key: devices,
// orders and subscriptions are never rewritten as a single collection blob.
const (
	PrefixDevice       = "device:"
	PrefixOrder        = "order:"
	PrefixSubscription = "sub:"
	PrefixTrendSnap    = "trendsnap:"
)

// Store is the keyed record space all domain state persists into.
// Values are opaque serialized records; callers own the encoding.
type Store interface {
	// Get returns the value for key, with found=false for a missing key.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set writes or replaces the value for key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// List returns all records whose key starts with prefix.
	List(ctx context.Context, prefix string) (map[string][]byte, error)
}

// DeviceKey returns the storage key for a device record.
func DeviceKey(id string) string { return PrefixDevice + id }

// OrderKey returns the storage key for a lease order record.
func OrderKey(id string) string { return PrefixOrder + id }

// SubscriptionKey returns the storage key for a push subscription record.
func SubscriptionKey(endpoint string) string { return PrefixSubscription + endpoint }
