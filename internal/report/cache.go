package report

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/eqviz/internal/core"
	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
)

// CachedRenderer fronts a Renderer with a size-bounded cache keyed by dataset
// id. Records never change after creation, so entries only need removing
// when the dataset itself is evicted.
type CachedRenderer struct {
	next  Renderer
	cache *ristretto.Cache
	group singleflight.Group
}

// NewCachedRenderer caches up to maxBytes of rendered reports.
func NewCachedRenderer(next Renderer, maxBytes int64) (*CachedRenderer, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create report cache: %w", err)
	}
	return &CachedRenderer{next: next, cache: cache}, nil
}

// Render returns the cached report or renders it once, however many callers
// ask for the same dataset at the same time.
func (c *CachedRenderer) Render(ctx context.Context, rec core.DatasetRecord, username string) ([]byte, error) {
	if v, ok := c.cache.Get(rec.ID); ok {
		return v.([]byte), nil
	}

	v, err, _ := c.group.Do(rec.ID, func() (any, error) {
		data, err := c.next.Render(ctx, rec, username)
		if err != nil {
			return nil, err
		}
		c.cache.Set(rec.ID, data, int64(len(data)))
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate drops the cached report for a dataset.
func (c *CachedRenderer) Invalidate(id string) {
	c.group.Forget(id)
	c.cache.Del(id)
}

// OnEvict adapts Invalidate to the history store's eviction hook.
func (c *CachedRenderer) OnEvict(rec core.DatasetRecord) {
	c.Invalidate(rec.ID)
}

// Close stops the cache's background goroutines.
func (c *CachedRenderer) Close() {
	c.cache.Close()
}
