// Package integration exercises the fully wired core against the
// simulated backends, covering the end-to-end ordering scenarios.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/medfield/order-catalog/internal/cart"
	"github.com/medfield/order-catalog/internal/catalog"
	"github.com/medfield/order-catalog/internal/model"
	"github.com/medfield/order-catalog/internal/session"
	"github.com/medfield/order-catalog/internal/sim"
	"github.com/medfield/order-catalog/internal/stock"
)

type rig struct {
	s        *session.Session
	products *sim.ProductService
	stocks   *sim.StockService
}

func newRig(t *testing.T, seed []model.Product, levels []model.StockLevel) *rig {
	t.Helper()
	products := sim.NewProductService(seed)
	stocks := sim.NewStockService(levels)
	cache := catalog.NewCache(products, time.Hour, 20)
	ctrl := catalog.NewController()
	rec := stock.NewReconciler(stocks, stock.Options{MaxRetries: 2, RetryBase: 2 * time.Millisecond, IncludeReserved: true, IncludeInTransit: true})
	store := cart.NewStore(rec)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return &rig{s: session.New(ctx, cache, ctrl, rec, store), products: products, stocks: stocks}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached within deadline")
}

func (r *rig) settle(t *testing.T) {
	t.Helper()
	waitFor(t, func() bool { return !r.s.Catalog().IsLoading && !r.s.Stock().IsLoading })
}

// Adding past the live stock ceiling clamps at the ceiling.
func TestAddClampedByLiveStock(t *testing.T) {
	r := newRig(t,
		[]model.Product{{SKU: "MED-1", Name: "Aspirin", UnitPrice: 100}},
		[]model.StockLevel{{ProductSKU: "MED-1", TotalAvailable: 2}},
	)
	r.s.Load()
	r.settle(t)

	p, ok := r.s.ProductBySKU("MED-1")
	if !ok {
		t.Fatalf("product not visible")
	}
	for i := 0; i < 3; i++ {
		r.s.AddToCart(p)
	}
	snap := r.s.Cart()
	if len(snap.Items) != 1 || snap.Items[0].Quantity != 2 {
		t.Fatalf("expected quantity clamped to 2, got %+v", snap.Items)
	}
	if snap.Total != 200 {
		t.Fatalf("expected total 200, got %v", snap.Total)
	}
}

// Two identical searches in quick succession hit the backend once.
func TestConcurrentIdenticalSearchesSingleCall(t *testing.T) {
	r := newRig(t, sim.DefaultCatalog(), sim.DefaultStock())
	release := r.products.Gate()
	r.s.Search("asp")
	r.s.Search("asp")
	// both fetches reach the cache while the backend is still held
	time.Sleep(20 * time.Millisecond)
	release()
	r.settle(t)
	waitFor(t, func() bool { return len(r.s.Catalog().Products) == 1 })
	if n := r.products.Calls(); n != 1 {
		t.Fatalf("identical concurrent searches must collapse, got %d calls", n)
	}
}

// With a retry budget of 2, a backend that fails twice is never given a
// third chance.
func TestRetryCeilingIsExact(t *testing.T) {
	r := newRig(t, sim.DefaultCatalog(), sim.DefaultStock())
	r.stocks.FailNext(2)
	r.s.Load()
	waitFor(t, func() bool { return r.s.Stock().Phase == stock.PhaseFailed })
	time.Sleep(20 * time.Millisecond)
	if n := r.stocks.Calls(); n != 2 {
		t.Fatalf("expected exactly 2 stock attempts, got %d", n)
	}
	// the catalog stays usable despite the stock failure
	if len(r.s.Catalog().Products) == 0 || r.s.Catalog().Err != nil {
		t.Fatalf("stock failure must not block the catalog")
	}
}

// A lowercase SKU removes the line added with the uppercase SKU.
func TestCaseInsensitiveRemoval(t *testing.T) {
	r := newRig(t,
		[]model.Product{{SKU: "MED-1", Name: "Aspirin", UnitPrice: 100}},
		[]model.StockLevel{{ProductSKU: "MED-1", TotalAvailable: 10}},
	)
	r.s.Load()
	r.settle(t)
	p, _ := r.s.ProductBySKU("MED-1")
	r.s.AddToCart(p)
	r.s.RemoveFromCart("med-1")
	if n := r.s.Cart().ItemCount; n != 0 {
		t.Fatalf("expected empty cart after lowercase removal, got %d", n)
	}
}

// A negative quantity leaves the prior quantity untouched.
func TestNegativeQuantityIgnored(t *testing.T) {
	r := newRig(t,
		[]model.Product{{SKU: "MED-1", Name: "Aspirin", UnitPrice: 100}},
		[]model.StockLevel{{ProductSKU: "MED-1", TotalAvailable: 10}},
	)
	r.s.Load()
	r.settle(t)
	p, _ := r.s.ProductBySKU("MED-1")
	r.s.AddToCart(p)
	r.s.AddToCart(p)
	r.s.SetQuantity("MED-1", -5)
	if got := r.s.Cart().Items[0].Quantity; got != 2 {
		t.Fatalf("expected quantity 2 after negative set, got %d", got)
	}
}

// Paging walks the whole catalog and stops cleanly at both ends.
func TestPagingAcrossFullCatalog(t *testing.T) {
	products := sim.NewProductService(sim.DefaultCatalog())
	stocks := sim.NewStockService(sim.DefaultStock())
	cache := catalog.NewCache(products, time.Hour, 5)
	ctrl := catalog.NewController()
	rec := stock.NewReconciler(stocks, stock.Options{MaxRetries: 2, RetryBase: 2 * time.Millisecond})
	store := cart.NewStore(rec)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := session.New(ctx, cache, ctrl, rec, store)

	settle := func() {
		waitFor(t, func() bool { return !s.Catalog().IsLoading && !s.Stock().IsLoading })
	}
	s.Load()
	settle()
	if pg := s.Catalog().Pagination; pg.TotalPages != 3 || !pg.HasNext {
		t.Fatalf("unexpected pagination %+v", pg)
	}
	s.NextPage()
	settle()
	s.NextPage()
	settle()
	pg := s.Catalog().Pagination
	if pg.Page != 3 || pg.HasNext {
		t.Fatalf("expected last page, got %+v", pg)
	}
	// one more NextPage is a no-op
	calls := products.Calls()
	s.NextPage()
	time.Sleep(10 * time.Millisecond)
	if products.Calls() != calls {
		t.Fatalf("nextPage at the last page must not fetch")
	}
}

// Stock ceilings arriving after the cart was filled clamp it down.
func TestLateStockCommitReconcilesCart(t *testing.T) {
	r := newRig(t,
		[]model.Product{{SKU: "MED-1", Name: "Aspirin", UnitPrice: 4}},
		nil, // stock unknown at first: adds are unbounded
	)
	r.s.Load()
	r.settle(t)
	p, _ := r.s.ProductBySKU("MED-1")
	for i := 0; i < 10; i++ {
		r.s.AddToCart(p)
	}
	if r.s.Cart().ItemCount != 10 {
		t.Fatalf("unknown ceiling must not bound adds")
	}

	r.stocks.SetLevel(model.StockLevel{ProductSKU: "MED-1", TotalAvailable: 4})
	r.s.RetryStock()
	waitFor(t, func() bool { return r.s.Cart().ItemCount == 4 })
}
