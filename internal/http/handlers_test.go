package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medfield/order-catalog/internal/cart"
	"github.com/medfield/order-catalog/internal/catalog"
	"github.com/medfield/order-catalog/internal/config"
	"github.com/medfield/order-catalog/internal/model"
	"github.com/medfield/order-catalog/internal/session"
	"github.com/medfield/order-catalog/internal/sim"
	"github.com/medfield/order-catalog/internal/stock"
)

func setupApp(t *testing.T) (*sim.ProductService, *sim.StockService, *session.Session, http.Handler) {
	t.Helper()
	products := sim.NewProductService(sim.DefaultCatalog())
	stocks := sim.NewStockService(sim.DefaultStock())
	cache := catalog.NewCache(products, time.Hour, 5)
	ctrl := catalog.NewController()
	rec := stock.NewReconciler(stocks, stock.Options{MaxRetries: 2, RetryBase: 2 * time.Millisecond})
	store := cart.NewStore(rec)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := session.New(ctx, cache, ctrl, rec, store)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	app := NewApp(cfg, s)
	return products, stocks, s, NewRouter(app)
}

func settle(t *testing.T, s *session.Session) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c := s.Catalog(); !c.IsLoading && !s.Stock().IsLoading {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("session did not settle")
}

func postJSON(mux http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestHealthzOK(t *testing.T) {
	_, _, _, mux := setupApp(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRefreshIntentPopulatesCatalog(t *testing.T) {
	_, _, s, mux := setupApp(t)
	if rr := postJSON(mux, "/intents/refresh", ""); rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	settle(t, s)

	req := httptest.NewRequest(http.MethodGet, "/catalog", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var view catalogView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(view.Products) != 5 || view.Error != "" {
		t.Fatalf("unexpected catalog view %+v", view)
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatalf("request id header missing")
	}
}

func TestSearchIntentBody(t *testing.T) {
	_, _, s, mux := setupApp(t)
	if rr := postJSON(mux, "/intents/search", `{"text":"asp"}`); rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	settle(t, s)
	if got := len(s.Catalog().Products); got != 1 {
		t.Fatalf("expected 1 product for asp, got %d", got)
	}
}

func TestUnknownIntentRejected(t *testing.T) {
	_, _, _, mux := setupApp(t)
	if rr := postJSON(mux, "/intents/bogus", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestIntentMethodNotAllowed(t *testing.T) {
	_, _, _, mux := setupApp(t)
	req := httptest.NewRequest(http.MethodGet, "/intents/refresh", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestCartFlow(t *testing.T) {
	_, stocks, s, mux := setupApp(t)
	stocks.SetLevel(model.StockLevel{ProductSKU: "MED-1001", TotalAvailable: 2})
	postJSON(mux, "/intents/refresh", "")
	settle(t, s)

	for i := 0; i < 3; i++ {
		if rr := postJSON(mux, "/cart/items", `{"sku":"med-1001"}`); rr.Code != http.StatusOK {
			t.Fatalf("add: expected 200, got %d", rr.Code)
		}
	}
	var snap cart.Snapshot
	rr := postJSON(mux, "/cart/items", `{"sku":"MED-1001"}`)
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// clamped at the ceiling of 2, extra adds are silent no-ops
	if snap.ItemCount != 2 {
		t.Fatalf("expected item count 2, got %d", snap.ItemCount)
	}

	req := httptest.NewRequest(http.MethodPut, "/cart/items/MED-1001", bytes.NewBufferString(`{"quantity":1}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("put: expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodDelete, "/cart/items/med-1001", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.ItemCount != 0 {
		t.Fatalf("expected empty cart, got %d", snap.ItemCount)
	}
}

func TestAddUnknownSKURejected(t *testing.T) {
	_, _, s, mux := setupApp(t)
	postJSON(mux, "/intents/refresh", "")
	settle(t, s)
	if rr := postJSON(mux, "/cart/items", `{"sku":"NOPE-1"}`); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestCartAddRequiresJSON(t *testing.T) {
	_, _, _, mux := setupApp(t)
	req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewBufferString("sku=MED-1001"))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", rr.Code)
	}
}

func TestClearCart(t *testing.T) {
	_, _, s, mux := setupApp(t)
	postJSON(mux, "/intents/refresh", "")
	settle(t, s)
	postJSON(mux, "/cart/items", `{"sku":"MED-1001"}`)

	req := httptest.NewRequest(http.MethodDelete, "/cart", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	var snap cart.Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Items) != 0 {
		t.Fatalf("expected cleared cart, got %+v", snap.Items)
	}
}

func TestStockViewAndMetrics(t *testing.T) {
	_, _, s, mux := setupApp(t)
	postJSON(mux, "/intents/refresh", "")
	settle(t, s)

	req := httptest.NewRequest(http.MethodGet, "/stock", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	var view stockView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Phase != "success" || len(view.StockBySKU) == 0 {
		t.Fatalf("unexpected stock view %+v", view)
	}

	req = httptest.NewRequest(http.MethodGet, "/debug/metrics", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := m["catalog_cache_hits"]; !ok {
		t.Fatalf("metrics missing cache counters: %v", m)
	}
}
