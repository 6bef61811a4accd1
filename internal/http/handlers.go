package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/medfield/order-catalog/internal/config"
	"github.com/medfield/order-catalog/internal/errx"
	"github.com/medfield/order-catalog/internal/model"
	"github.com/medfield/order-catalog/internal/obs"
	"github.com/medfield/order-catalog/internal/session"
)

// App exposes one ordering session over JSON.
type App struct {
	Cfg     config.Config
	Session *session.Session
	started time.Time
}

func NewApp(cfg config.Config, s *session.Session) *App {
	return &App{Cfg: cfg, Session: s, started: time.Now()}
}

type catalogView struct {
	Products   []model.Product  `json:"products"`
	Pagination model.Pagination `json:"pagination"`
	IsLoading  bool             `json:"is_loading"`
	Error      string           `json:"error,omitempty"`
}

type stockView struct {
	StockBySKU   map[string]model.StockLevel `json:"stock_by_sku"`
	Phase        string                      `json:"phase"`
	IsLoading    bool                        `json:"is_loading"`
	RetryAttempt int                         `json:"retry_attempt"`
	Error        string                      `json:"error,omitempty"`
}

func (a *App) getCatalogHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	snap := a.Session.Catalog()
	view := catalogView{
		Products:   snap.Products,
		Pagination: snap.Pagination,
		IsLoading:  snap.IsLoading,
	}
	if view.Products == nil {
		view.Products = []model.Product{}
	}
	if snap.Err != nil {
		view.Error = errx.Message(snap.Err)
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *App) getStockHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	snap := a.Session.Stock()
	view := stockView{
		StockBySKU:   snap.Levels,
		Phase:        snap.Phase.String(),
		IsLoading:    snap.IsLoading,
		RetryAttempt: snap.RetryAttempt,
	}
	if snap.Err != nil {
		view.Error = errx.Message(snap.Err)
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *App) getCartHandler(w http.ResponseWriter, r *http.Request) {
	snap := a.Session.Cart()
	writeJSON(w, http.StatusOK, snap)
}

// intentHandler maps POST /intents/{name} to a session intent.
func (a *App) intentHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/intents/")
	switch name {
	case "load":
		a.Session.Load()
	case "search":
		var body struct {
			Text string `json:"text"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		a.Session.Search(body.Text)
	case "category":
		var body struct {
			Category string `json:"category"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		a.Session.FilterByCategory(body.Category)
	case "clear-filters":
		a.Session.ClearFilters()
	case "next-page":
		a.Session.NextPage()
	case "previous-page":
		a.Session.PreviousPage()
	case "refresh":
		a.Session.Refresh()
	case "retry-stock":
		a.Session.RetryStock()
	default:
		WriteJSONError(w, http.StatusNotFound, "unknown_intent", name)
		return
	}
	obs.Logger.Info().Str("intent", name).Str("request_id", RequestIDFromContext(r.Context())).Msg("intent_accepted")
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "intent": name})
}

// cartHandler covers POST /cart/items, DELETE /cart, and the
// /cart/items/{sku} item routes.
func (a *App) cartHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/cart" || path == "/cart/":
		switch r.Method {
		case http.MethodGet:
			a.getCartHandler(w, r)
		case http.MethodDelete:
			a.Session.ClearCart()
			writeJSON(w, http.StatusOK, a.Session.Cart())
		default:
			WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		}
	case path == "/cart/items":
		a.postCartItemHandler(w, r)
	case strings.HasPrefix(path, "/cart/items/"):
		a.cartItemHandler(w, r)
	default:
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
	}
}

func (a *App) postCartItemHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	var body struct {
		SKU string `json:"sku"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.SKU) == "" {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "sku is required")
		return
	}
	p, ok := a.Session.ProductBySKU(body.SKU)
	if !ok {
		WriteJSONError(w, http.StatusNotFound, "not_found", "sku not in the visible catalog page")
		return
	}
	// a refused add is not an error: the ceiling clamp is silent and the
	// response simply shows the unchanged cart
	a.Session.AddToCart(p)
	writeJSON(w, http.StatusOK, a.Session.Cart())
}

func (a *App) cartItemHandler(w http.ResponseWriter, r *http.Request) {
	sku := strings.TrimPrefix(r.URL.Path, "/cart/items/")
	if sku == "" {
		WriteJSONError(w, http.StatusNotFound, "not_found", "")
		return
	}
	switch r.Method {
	case http.MethodDelete:
		a.Session.RemoveFromCart(sku)
	case http.MethodPut:
		var body struct {
			Quantity int64 `json:"quantity"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		a.Session.SetQuantity(sku, body.Quantity)
	default:
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	writeJSON(w, http.StatusOK, a.Session.Cart())
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	stats := a.Session.CacheStats()
	snap := a.Session.Stock()
	m := map[string]any{
		"catalog_cache_hits":      stats.Hits,
		"catalog_cache_misses":    stats.Misses,
		"catalog_cache_refreshes": stats.Refreshes,
		"catalog_fetch_errors":    stats.Errors,
		"stock_phase":             snap.Phase.String(),
		"stock_retry_attempt":     snap.RetryAttempt,
		"stock_levels_tracked":    len(snap.Levels),
		"cart_item_count":         a.Session.Cart().ItemCount,
		"uptime_sec":              time.Since(a.started).Seconds(),
	}
	writeJSON(w, http.StatusOK, m)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
