// Package cache implements an expiring key-value cache over a
// [storage.Storage] medium.
//
// Every entry is stored under a namespaced key (prefix + logical key) as a
// JSON record holding the value and an absolute expiry in epoch
// milliseconds:
//
//	{"value": <payload>, "expiry": 1718000000000}
//
// Expiry is checked lazily on [Cache.Get] and [Cache.Prune]; there is no
// background timer. Inject a [Clock] to make expiry deterministic:
//
//	c := cache.New(memory.New(0), cache.WithClock(fake))
//	c.Set("users:all", users, cache.TTLShort)
//	raw := c.Get("users:all")
//
// The cache never returns errors. Storage faults are logged and reported as
// false or as a [Fault] result from [Cache.Lookup], so a failing cache
// degrades to a miss.
package cache
