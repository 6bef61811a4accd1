package httpapi

import (
	"expvar"
	"net/http"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/catalog", app.getCatalogHandler)
	mux.HandleFunc("/stock", app.getStockHandler)
	mux.HandleFunc("/cart", app.cartHandler)
	mux.HandleFunc("/cart/", app.cartHandler)
	mux.HandleFunc("/intents/", app.intentHandler)
	mux.HandleFunc("/healthz", app.healthHandler)
	mux.HandleFunc("/debug/metrics", app.metricsHandler)
	mux.Handle("/debug/vars", expvar.Handler())
	return WithRequestID(WithLogging(mux))
}
