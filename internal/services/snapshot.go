package services

import (
	"context"
	"strings"
	"time"

	"financemei/internal/cache"
	"financemei/internal/core"
	"financemei/internal/ledger"
)

// SnapshotCache keeps recent entry fetches so one dashboard render does not
// hit the store once per derived figure. It holds raw store rows only; every
// summary is recomputed from them. A nil cache is valid and caches nothing.
type SnapshotCache struct {
	entries *cache.LRUCache[[]core.LedgerEntry]
}

// NewSnapshotCache returns nil when ttl is not positive.
func NewSnapshotCache(size int, ttl time.Duration) *SnapshotCache {
	if ttl <= 0 {
		return nil
	}
	return &SnapshotCache{entries: cache.NewLRUCache[[]core.LedgerEntry](size, ttl)}
}

func snapshotKey(owner string, kind core.Kind, w core.Window) string {
	return strings.Join([]string{owner, string(kind), w.Start.String(), w.End.String()}, "|")
}

func (c *SnapshotCache) get(owner string, kind core.Kind, w core.Window) ([]core.LedgerEntry, bool) {
	if c == nil {
		return nil, false
	}
	return c.entries.Get(snapshotKey(owner, kind, w))
}

func (c *SnapshotCache) set(owner string, kind core.Kind, w core.Window, entries []core.LedgerEntry) {
	if c == nil {
		return
	}
	c.entries.Set(snapshotKey(owner, kind, w), entries)
}

// Invalidate drops every snapshot of the owner.
func (c *SnapshotCache) Invalidate(owner string) int {
	if c == nil {
		return 0
	}
	return c.entries.DeletePrefix(owner + "|")
}

// Cleaner exposes the underlying cache for periodic expiry sweeps.
func (c *SnapshotCache) Cleaner() cache.Cleaner {
	if c == nil {
		return nil
	}
	return c.entries
}

func (c *SnapshotCache) Stats() cache.Stats {
	if c == nil {
		return cache.Stats{}
	}
	return c.entries.Stats()
}

// cachedEntries is an EntryReader that consults the snapshot cache first.
type cachedEntries struct {
	inner ledger.EntryReader
	cache *SnapshotCache
}

func (r cachedEntries) FetchEntries(ctx context.Context, owner string, kind core.Kind, window core.Window) ([]core.LedgerEntry, error) {
	if entries, ok := r.cache.get(owner, kind, window); ok {
		return entries, nil
	}
	entries, err := r.inner.FetchEntries(ctx, owner, kind, window)
	if err != nil {
		return nil, err
	}
	r.cache.set(owner, kind, window, entries)
	return entries, nil
}
