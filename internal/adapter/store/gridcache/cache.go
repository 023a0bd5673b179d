// Package gridcache memoizes daily grid fetches for the lifetime of the
// process.
package gridcache

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"go.ngs.io/sst-api/internal/adapter/store"
	"go.ngs.io/sst-api/internal/domain"
	"go.ngs.io/sst-api/internal/observability"
)

// CachedSource wraps a GridSource with an in-memory memoization cache
// keyed on the exact date. Retention is unbounded for the session: the
// key space is one entry per calendar day ever requested, which stays
// small for this service.
//
// Concurrent requests for the same date are collapsed into a single
// upstream fetch via singleflight.
type CachedSource struct {
	inner   store.GridSource
	metrics *observability.Metrics

	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	grid   *domain.Grid
	noData bool
}

// New creates a cache decorator around a grid source. metrics may be nil.
func New(inner store.GridSource, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		metrics: metrics,
		entries: make(map[string]cacheEntry),
	}
}

// FetchDaily implements store.GridSource. Successful grids and definitive
// no-data outcomes are cached; transport failures are not, so a later
// request can retry them.
func (c *CachedSource) FetchDaily(ctx context.Context, date time.Time) (*domain.Grid, error) {
	key := date.UTC().Format("2006-01-02")

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.lookup("hit")
		if e.noData {
			return nil, domain.ErrNoData
		}
		return e.grid, nil
	}
	c.lookup("miss")

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		grid, err := c.inner.FetchDaily(ctx, date)
		if err != nil {
			if errors.Is(err, domain.ErrNoData) {
				c.put(key, cacheEntry{noData: true})
			}
			return nil, err
		}
		c.put(key, cacheEntry{grid: grid})
		return grid, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Grid), nil
}

func (c *CachedSource) put(key string, e cacheEntry) {
	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
}

func (c *CachedSource) lookup(result string) {
	if c.metrics != nil {
		c.metrics.CacheLookups.WithLabelValues(result).Inc()
	}
}

// Len returns the number of memoized dates.
func (c *CachedSource) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
