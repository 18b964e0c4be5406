// Package cache provides the key/value backing store contract used by the
// breadcrumb ancestor cache.
//
// It defines the Cache interface with an in-memory implementation, a Keyer
// that derives namespaced page keys (by canonical title or by stable page
// identity), and a TTL Policy. Persistent implementations live in the
// badgerstore and sqlitestore subpackages.
package cache
