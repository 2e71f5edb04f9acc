package cache

import "time"

const (
	CacheVersion = "v1"

	cacheNamesSuffix   = ":caches"
	cacheEntriesSuffix = ":cache:"

	ActivationLockExpiry = 2 * time.Minute
)

func cacheNamesKey(prefix string) string {
	return prefix + ":" + CacheVersion + cacheNamesSuffix
}

func cacheSequenceKey(prefix string) string {
	return cacheNamesKey(prefix) + ":seq"
}

func cacheEntriesKey(prefix, name string) string {
	return prefix + ":" + CacheVersion + cacheEntriesSuffix + name
}
