// Package config provides runtime configuration values for the service.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds configuration knobs for the HTTP facade, the catalog
// cache, and the stock reconciler. Values come from the environment;
// durations are expressed in the unit named by the variable.
type Config struct {
	HTTPAddr         string `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownTimeoutS int    `envconfig:"SHUTDOWN_TIMEOUT" default:"15"`
	CatalogTTLMs     int    `envconfig:"CATALOG_TTL_MS" default:"3600000"`
	CatalogPerPage   int    `envconfig:"CATALOG_PER_PAGE" default:"20"`
	StockMaxRetries  int    `envconfig:"STOCK_MAX_RETRIES" default:"2"`
	StockRetryBaseMs int    `envconfig:"STOCK_RETRY_BASE_MS" default:"500"`
	StockReserved    bool   `envconfig:"STOCK_INCLUDE_RESERVED" default:"true"`
	StockInTransit   bool   `envconfig:"STOCK_INCLUDE_IN_TRANSIT" default:"true"`
}

// Load collects configuration from environment with defaults.
func Load() (Config, error) {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutS) * time.Second
}

// CatalogTTL returns how long a cached catalog page stays valid.
func (c Config) CatalogTTL() time.Duration {
	return time.Duration(c.CatalogTTLMs) * time.Millisecond
}

// StockRetryBase returns the base delay of the stock retry backoff.
func (c Config) StockRetryBase() time.Duration {
	return time.Duration(c.StockRetryBaseMs) * time.Millisecond
}
