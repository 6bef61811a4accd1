// Package main boots the order-catalog demo server: the ordering core
// wired to simulated backends and exposed over HTTP.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/medfield/order-catalog/internal/cart"
	"github.com/medfield/order-catalog/internal/catalog"
	"github.com/medfield/order-catalog/internal/config"
	httpapi "github.com/medfield/order-catalog/internal/http"
	"github.com/medfield/order-catalog/internal/obs"
	"github.com/medfield/order-catalog/internal/session"
	"github.com/medfield/order-catalog/internal/sim"
	"github.com/medfield/order-catalog/internal/stock"
)

func main() {
	obs.InitLogger()
	if err := godotenv.Load(".env"); err != nil {
		obs.Logger.Debug().Err(err).Msg("no .env file loaded")
	}
	cfg, err := config.Load()
	if err != nil {
		obs.Logger.Error().Err(err).Msg("config_error")
		os.Exit(1)
	}
	obs.Logger.Info().Msg("service_starting")

	products := sim.NewProductService(sim.DefaultCatalog())
	stocks := sim.NewStockService(sim.DefaultStock())

	cache := catalog.NewCache(products, cfg.CatalogTTL(), cfg.CatalogPerPage)
	ctrl := catalog.NewController()
	rec := stock.NewReconciler(stocks, stock.Options{
		MaxRetries:       cfg.StockMaxRetries,
		RetryBase:        cfg.StockRetryBase(),
		IncludeReserved:  cfg.StockReserved,
		IncludeInTransit: cfg.StockInTransit,
	})
	store := cart.NewStore(rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sess := session.New(ctx, cache, ctrl, rec, store)
	sess.Load()

	app := httpapi.NewApp(cfg, sess)
	mux := httpapi.NewRouter(app)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Logger.Info().Str("addr", cfg.HTTPAddr).Msg("http_listen")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error().Err(err).Msg("http_server_error")
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info().Str("signal", s.String()).Msg("shutdown_signal")

	// stop background fetches before draining the HTTP server
	cancel()

	ctxSrv, cancelSrv := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancelSrv()
	if err := srv.Shutdown(ctxSrv); err != nil {
		obs.Logger.Error().Err(err).Msg("http_shutdown_error")
	}
	obs.Logger.Info().Msg("service_stopped")
}
