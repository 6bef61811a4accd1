// Package catalog implements the product catalog cache and pagination control.
package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/medfield/order-catalog/internal/errx"
	"github.com/medfield/order-catalog/internal/model"
	"github.com/medfield/order-catalog/internal/obs"
	"github.com/medfield/order-catalog/internal/service"
)

// DefaultTTL is how long a cached page stays valid without a refetch.
const DefaultTTL = time.Hour

// Stats counts cache outcomes for the metrics endpoint.
type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Refreshes uint64 `json:"refreshes"`
	Errors    uint64 `json:"errors"`
}

// Cache holds the last-fetched catalog page plus its metadata and decides
// whether a fresh fetch is required. Identical concurrent fetches are
// collapsed into one backend call.
type Cache struct {
	svc     service.ProductQueryService
	ttl     time.Duration
	perPage int
	now     func() time.Time

	mu     sync.Mutex
	page   model.ProductPage
	meta   model.CacheMetadata
	loaded bool

	sf singleflight.Group

	hits      atomic.Uint64
	misses    atomic.Uint64
	refreshes atomic.Uint64
	errs      atomic.Uint64
}

// NewCache constructs a Cache over the given backend. ttl <= 0 selects
// DefaultTTL, perPage <= 0 selects 20.
func NewCache(svc service.ProductQueryService, ttl time.Duration, perPage int) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if perPage <= 0 {
		perPage = 20
	}
	return &Cache{svc: svc, ttl: ttl, perPage: perPage, now: time.Now}
}

// Fetch returns the catalog page for the given filters. A valid cached
// page (TTL not expired, filters and page identical, non-empty) is
// returned without a backend call unless force is set. On backend
// failure the cache is left untouched.
func (c *Cache) Fetch(ctx context.Context, f model.Filters, force bool) (model.ProductPage, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if !force {
		if pg, ok := c.cached(f); ok {
			c.hits.Add(1)
			return pg, nil
		}
		c.misses.Add(1)
	} else {
		c.refreshes.Add(1)
	}

	v, err, shared := c.sf.Do(f.Key(), func() (any, error) {
		pg, err := c.svc.Search(ctx, f.Search, f.Category, f.Page, c.perPage)
		if err != nil {
			c.errs.Add(1)
			obs.Logger.Error().Err(err).Str("filters", f.Key()).Msg("catalog_fetch_failed")
			return nil, errx.WrapCatalog(err)
		}
		c.commit(f, pg)
		return pg, nil
	})
	if err != nil {
		return model.ProductPage{}, err
	}
	if shared {
		obs.Logger.Debug().Str("filters", f.Key()).Msg("catalog_fetch_deduplicated")
	}
	return v.(model.ProductPage), nil
}

func (c *Cache) cached(f model.Filters) (model.ProductPage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded || c.meta.Active != f || len(c.page.Products) == 0 {
		return model.ProductPage{}, false
	}
	if c.now().Sub(c.meta.LastLoad) >= c.ttl {
		return model.ProductPage{}, false
	}
	return c.snapshotLocked(), true
}

func (c *Cache) commit(f model.Filters, pg model.ProductPage) {
	c.mu.Lock()
	c.page = pg
	c.meta = model.CacheMetadata{LastLoad: c.now(), Active: f}
	c.loaded = true
	c.mu.Unlock()
	obs.Logger.Info().
		Str("filters", f.Key()).
		Int("products", len(pg.Products)).
		Int("total_items", pg.Pagination.TotalItems).
		Msg("catalog_cached")
}

// Snapshot returns a copy of the cached page, its metadata, and whether
// anything has been loaded.
func (c *Cache) Snapshot() (model.ProductPage, model.CacheMetadata, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(), c.meta, c.loaded
}

func (c *Cache) snapshotLocked() model.ProductPage {
	out := model.ProductPage{Pagination: c.page.Pagination}
	out.Products = append(out.Products, c.page.Products...)
	return out
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Refreshes: c.refreshes.Load(),
		Errors:    c.errs.Load(),
	}
}
