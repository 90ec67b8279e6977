// Copyright 2025 The QLever Authors.
package cache

import (
	"sync"

	"github.com/ad-freiburg/qlever-sub013/internal/config"
	"github.com/ad-freiburg/qlever-sub013/internal/memsize"
	"github.com/ad-freiburg/qlever-sub013/internal/qlog"
	"github.com/elastic/go-freelru"
	"github.com/spaolacci/murmur3"
)

var log = qlog.New("cache")

func hashKey(key string) uint32 {
	return murmur3.Sum32([]byte(key))
}

// QueryResultCache is the LRU keyed by a sub-tree's CacheKey fingerprint
// (spec.md section 4.4), size-bounded by both entry count
// (cache-max-num-entries) and byte size (cache-max-size-gb); an
// individual entry larger than cache-max-size-gb-single-entry is never
// cached at all. Entry-count eviction is handled by the underlying LRU;
// byte-size pressure is relieved wholesale via ClearOnAllocation, matching
// spec.md section 7's "the allocator's clear-on-allocation hook calls the
// result-cache's global eviction once before re-throwing".
type QueryResultCache struct {
	mu                  sync.Mutex
	lru                 *freelru.SyncedLRU[string, *Entry]
	maxBytes            memsize.Size
	maxSingleEntryBytes memsize.Size
	totalBytes          memsize.Size
}

// New builds a QueryResultCache sized from the registry's
// cache-max-num-entries/cache-max-size-gb/cache-max-size-gb-single-entry
// parameters.
func New(reg *config.Registry) (*QueryResultCache, error) {
	maxEntries := reg.Int("cache-max-num-entries")
	lru, err := freelru.NewSynced[string, *Entry](uint32(maxEntries), hashKey)
	if err != nil {
		return nil, err
	}
	lru.SetOnEvict(func(key string, e *Entry) { e.Release() })
	return &QueryResultCache{
		lru:                 lru,
		maxBytes:            reg.CacheMaxSize(),
		maxSingleEntryBytes: reg.CacheMaxSingleEntrySize(),
	}, nil
}

// Get looks up key and, on a hit, adds a reference to the returned Entry
// on the caller's behalf; the caller must Release it when done.
func (c *QueryResultCache) Get(key string) (*Entry, bool) {
	e, ok := c.lru.Get(key)
	if ok {
		e.AddRef()
	}
	return e, ok
}

// Put inserts entry under key, unless it alone exceeds
// cache-max-size-gb-single-entry (in which case caching is silently
// skipped — it is an optimization, not a correctness requirement) or
// would push the cache's total tracked size over cache-max-size-gb.
func (c *QueryResultCache) Put(key string, e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.maxSingleEntryBytes.Less(e.SizeBytes) {
		log.Debug("entry too large to cache", "key", key, "size", e.SizeBytes.String())
		return
	}
	if c.maxBytes.Less(c.totalBytes.Add(e.SizeBytes)) {
		log.Debug("cache at byte capacity, skipping insert", "key", key)
		return
	}
	e.AddRef()
	c.lru.Add(key, e)
	c.totalBytes = c.totalBytes.Add(e.SizeBytes)
}

// ClearOnAllocation is the hook wired into the query allocator
// (internal/alloc.NewWithHook): it purges the entire cache once, giving
// the failing allocation one chance to succeed afterward.
func (c *QueryResultCache) ClearOnAllocation(requested memsize.Size) {
	c.mu.Lock()
	defer c.mu.Unlock()
	log.Warn("clearing result cache to satisfy allocation", "requested", requested.String())
	c.lru.Purge()
	c.totalBytes = memsize.Bytes(0)
}

// Len reports the number of cached entries.
func (c *QueryResultCache) Len() int { return c.lru.Len() }
