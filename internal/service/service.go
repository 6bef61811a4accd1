// Package service declares the backend boundaries the core consumes.
// Implementations (HTTP clients, simulators) live elsewhere.
package service

import (
	"context"

	"github.com/medfield/order-catalog/internal/model"
)

// ProductQueryService is the catalog search boundary. Search must be
// idempotent for identical parameters.
type ProductQueryService interface {
	Search(ctx context.Context, search, category string, page, perPage int) (model.ProductPage, error)
}

// StockQueryService is the stock lookup boundary. BatchLookup tolerates
// repeated calls with the same SKU list (retries) and may return a
// subset of the requested SKUs.
type StockQueryService interface {
	BatchLookup(ctx context.Context, skus []string, includeReserved, includeInTransit bool) ([]model.StockLevel, error)
}
