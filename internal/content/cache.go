package content

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Reality2byte/nanoc/internal/site"
)

// DefaultMemoryEntries bounds the decoded entries kept in memory.
const DefaultMemoryEntries = 1024

// Loader fetches persisted cache data.
type Loader interface {
	// LoadCacheEntry returns the snapshots stored for rep.
	LoadCacheEntry(ctx context.Context, rep site.Ref) (map[string][]byte, error)
}

// KeyFunc computes the current cache key of a rep from the checksums of
// the rep, its item and the objects the item depends on.
type KeyFunc func(rep site.Ref) (string, error)

// Entry is a cache entry ready to persist.
type Entry struct {
	Rep       site.Ref
	Key       string
	Snapshots map[string][]byte
}

// Changes are the cache writes of one run.
type Changes struct {
	Put    []Entry
	Delete []site.Ref
}

// Cache is the compiled-content cache.
//
// The index of keys is loaded up front. Snapshot bytes are fetched on
// demand and kept in an LRU. Writes stay pending until Changes is called at
// the end of the run.
type Cache struct {
	loader  Loader
	keyFor  KeyFunc
	logger  *slog.Logger
	index   map[site.Ref]string
	mem     *lru.Cache[site.Ref, map[string][]byte]
	pending map[site.Ref]map[string][]byte
	deleted map[site.Ref]bool
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithLogger sets the logger used for cache diagnostics.
func WithLogger(l *slog.Logger) CacheOption {
	return func(c *Cache) { c.logger = l }
}

// WithMemoryEntries sets the LRU size.
func WithMemoryEntries(n int) CacheOption {
	return func(c *Cache) {
		if n > 0 {
			c.mem, _ = lru.New[site.Ref, map[string][]byte](n)
		}
	}
}

// NewCache creates a cache over a persisted index.
func NewCache(index map[site.Ref]string, loader Loader, keyFor KeyFunc, opts ...CacheOption) *Cache {
	mem, _ := lru.New[site.Ref, map[string][]byte](DefaultMemoryEntries)
	c := &Cache{
		loader:  loader,
		keyFor:  keyFor,
		logger:  slog.Default(),
		index:   maps.Clone(index),
		mem:     mem,
		pending: map[site.Ref]map[string][]byte{},
		deleted: map[site.Ref]bool{},
	}
	if c.index == nil {
		c.index = map[site.Ref]string{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FullCacheAvailable reports whether every snapshot of rep can be restored
// from the cache. Callers must also check that rep is not outdated.
func (c *Cache) FullCacheAvailable(rep site.Ref) (bool, error) {
	if _, ok := c.pending[rep]; ok {
		return true, nil
	}
	stored, ok := c.index[rep]
	if !ok {
		return false, nil
	}
	key, err := c.keyFor(rep)
	if err != nil {
		return false, fmt.Errorf("cache key for %s: %w", rep, err)
	}
	if key != stored {
		c.logger.Debug("cache key mismatch", "rep", rep)
		return false, nil
	}
	return true, nil
}

// Get returns the cached snapshots of rep.
func (c *Cache) Get(ctx context.Context, rep site.Ref) (map[string][]byte, error) {
	if snaps, ok := c.pending[rep]; ok {
		return maps.Clone(snaps), nil
	}
	if snaps, ok := c.mem.Get(rep); ok {
		return maps.Clone(snaps), nil
	}
	if _, ok := c.index[rep]; !ok {
		return nil, fmt.Errorf("no cache entry for %s", rep)
	}
	snaps, err := c.loader.LoadCacheEntry(ctx, rep)
	if err != nil {
		return nil, fmt.Errorf("load cache entry for %s: %w", rep, err)
	}
	c.mem.Add(rep, snaps)
	return maps.Clone(snaps), nil
}

// Set stores the snapshots of a freshly compiled rep.
func (c *Cache) Set(rep site.Ref, snapshots map[string][]byte) {
	c.pending[rep] = maps.Clone(snapshots)
	c.mem.Remove(rep)
	delete(c.deleted, rep)
}

// Has reports whether rep has an entry, whatever its key.
func (c *Cache) Has(rep site.Ref) bool {
	if _, ok := c.pending[rep]; ok {
		return true
	}
	_, ok := c.index[rep]
	return ok
}

// Prune discards entries whose item is not among items.
func (c *Cache) Prune(items []string) {
	live := make(map[string]bool, len(items))
	for _, id := range items {
		live[id] = true
	}
	for _, rep := range c.Reps() {
		if live[rep.Identifier] {
			continue
		}
		delete(c.index, rep)
		delete(c.pending, rep)
		c.mem.Remove(rep)
		c.deleted[rep] = true
	}
}

// Reps returns every rep with an entry, sorted.
func (c *Cache) Reps() []site.Ref {
	seen := map[site.Ref]bool{}
	for rep := range c.index {
		seen[rep] = true
	}
	for rep := range c.pending {
		seen[rep] = true
	}
	out := slices.Collect(maps.Keys(seen))
	slices.SortFunc(out, func(a, b site.Ref) int {
		return strings.Compare(a.String(), b.String())
	})
	return out
}

// Changes computes keys for the entries written this run and returns them
// with the pruned reps. Keys are computed here, once every dependency of
// the run has been recorded.
func (c *Cache) Changes() (Changes, error) {
	var ch Changes
	for _, rep := range c.Reps() {
		snaps, ok := c.pending[rep]
		if !ok {
			continue
		}
		key, err := c.keyFor(rep)
		if err != nil {
			return Changes{}, fmt.Errorf("cache key for %s: %w", rep, err)
		}
		ch.Put = append(ch.Put, Entry{Rep: rep, Key: key, Snapshots: snaps})
	}
	for rep := range c.deleted {
		ch.Delete = append(ch.Delete, rep)
	}
	slices.SortFunc(ch.Delete, func(a, b site.Ref) int {
		return strings.Compare(a.String(), b.String())
	})
	return ch, nil
}
