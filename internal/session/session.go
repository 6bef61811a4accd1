// Package session wires the catalog cache, pagination controller, stock
// reconciler, and cart into the surface an ordering client consumes:
// intent functions in, immutable snapshots out, with a listener list
// for change notification.
package session

import (
	"context"
	"sync"

	"github.com/medfield/order-catalog/internal/cart"
	"github.com/medfield/order-catalog/internal/catalog"
	"github.com/medfield/order-catalog/internal/model"
	"github.com/medfield/order-catalog/internal/obs"
	"github.com/medfield/order-catalog/internal/stock"
)

// CatalogSnapshot is the read-only catalog view.
type CatalogSnapshot struct {
	Products   []model.Product
	Pagination model.Pagination
	IsLoading  bool
	Err        error
}

// Session owns one ordering workflow. Catalog fetches run as cancellable
// background tasks; a newer intent supersedes an older fetch's result
// via a generation counter. A completed catalog fetch always triggers a
// stock refresh for the new SKU set, and every committed stock fetch
// pushes fresh ceilings into the cart.
type Session struct {
	ctx   context.Context
	cache *catalog.Cache
	ctrl  *catalog.Controller
	stock *stock.Reconciler
	cart  *cart.Store

	mu         sync.Mutex
	products   []model.Product
	pagination model.Pagination
	loading    bool
	catalogErr error
	gen        uint64

	lmu       sync.Mutex
	listeners map[int]func()
	nextID    int
}

// New wires a session. ctx bounds all background fetches; cancelling it
// stops the session's asynchronous work.
func New(ctx context.Context, cache *catalog.Cache, ctrl *catalog.Controller, rec *stock.Reconciler, store *cart.Store) *Session {
	s := &Session{
		ctx:       ctx,
		cache:     cache,
		ctrl:      ctrl,
		stock:     rec,
		cart:      store,
		listeners: make(map[int]func()),
	}
	rec.OnChange(s.onStockChange)
	return s
}

// Subscribe registers a listener called after every state change. The
// returned function unsubscribes it.
func (s *Session) Subscribe(fn func()) (unsubscribe func()) {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()
	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Session) notify() {
	s.lmu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *Session) onStockChange() {
	snap := s.stock.Snapshot()
	if snap.Phase == stock.PhaseSuccess {
		s.cart.ApplyCeilings(snap.Levels)
	}
	s.notify()
}

// Catalog intents.

// Search replaces the search text and refreshes from page 1.
func (s *Session) Search(text string) { s.dispatch(s.ctrl.SetSearch(text)) }

// FilterByCategory replaces the category filter and refreshes from page 1.
func (s *Session) FilterByCategory(category string) { s.dispatch(s.ctrl.SetCategory(category)) }

// ClearFilters drops all filters and refreshes from page 1.
func (s *Session) ClearFilters() { s.dispatch(s.ctrl.ClearFilters()) }

// NextPage requests the next page; a no-op on the last page.
func (s *Session) NextPage() {
	if req, ok := s.ctrl.NextPage(); ok {
		s.dispatch(req)
	}
}

// PreviousPage requests the previous page; a no-op on page 1.
func (s *Session) PreviousPage() {
	if req, ok := s.ctrl.PreviousPage(); ok {
		s.dispatch(req)
	}
}

// Load fetches the current filters, honoring the cache: a still-valid
// page is served without a network call, though stock is refreshed
// regardless.
func (s *Session) Load() { s.dispatch(s.ctrl.Load()) }

// Refresh refetches the current filters bypassing the TTL.
func (s *Session) Refresh() { s.dispatch(s.ctrl.Refresh()) }

// RetryStock re-issues the stock fetch for the tracked SKU set.
func (s *Session) RetryStock() { s.stock.Retry(s.ctx) }

func (s *Session) dispatch(req catalog.FetchRequest) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.loading = true
	s.catalogErr = nil
	s.mu.Unlock()
	s.notify()
	go s.fetch(gen, req)
}

func (s *Session) fetch(gen uint64, req catalog.FetchRequest) {
	pg, err := s.cache.Fetch(s.ctx, req.Filters, req.Force)

	s.mu.Lock()
	if gen != s.gen {
		// a newer intent superseded this fetch
		s.mu.Unlock()
		return
	}
	s.loading = false
	if err != nil {
		s.catalogErr = err
		s.mu.Unlock()
		s.notify()
		return
	}
	s.products = pg.Products
	s.pagination = pg.Pagination
	s.mu.Unlock()

	s.ctrl.Observe(pg.Pagination)
	// stock is never cached beyond a screen lifetime: refresh it even
	// when the catalog page came out of the cache
	s.stock.LoadStock(s.ctx, skusOf(pg.Products))
	s.notify()
	obs.Logger.Debug().
		Str("filters", req.Filters.Key()).
		Int("products", len(pg.Products)).
		Msg("catalog_snapshot_updated")
}

// Cart intents.

// AddToCart adds one unit of the product, bounded by its known ceiling.
func (s *Session) AddToCart(p model.Product) {
	if s.cart.Add(p) {
		s.notify()
	}
}

// RemoveFromCart removes one unit of the SKU.
func (s *Session) RemoveFromCart(sku string) {
	s.cart.Remove(sku)
	s.notify()
}

// SetQuantity sets the cart quantity for the SKU directly.
func (s *Session) SetQuantity(sku string, qty int64) {
	s.cart.SetQuantity(sku, qty)
	s.notify()
}

// ClearCart empties the cart.
func (s *Session) ClearCart() {
	s.cart.Clear()
	s.notify()
}

// Snapshots.

// Catalog returns the current catalog view.
func (s *Session) Catalog() CatalogSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := CatalogSnapshot{
		Pagination: s.pagination,
		IsLoading:  s.loading,
		Err:        s.catalogErr,
	}
	out.Products = append(out.Products, s.products...)
	return out
}

// Stock returns the current stock view.
func (s *Session) Stock() stock.Snapshot { return s.stock.Snapshot() }

// Cart returns the current cart view.
func (s *Session) Cart() cart.Snapshot { return s.cart.Snapshot() }

// CacheStats exposes catalog cache counters for the metrics endpoint.
func (s *Session) CacheStats() catalog.Stats { return s.cache.Stats() }

// ProductBySKU finds a product in the currently visible page.
func (s *Session) ProductBySKU(sku string) (model.Product, bool) {
	key := model.NormalizeSKU(sku)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if model.NormalizeSKU(p.SKU) == key {
			return p, true
		}
	}
	return model.Product{}, false
}

func skusOf(products []model.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.SKU)
	}
	return out
}
