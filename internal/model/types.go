// Package model defines domain types shared by the catalog, stock, and cart components.
package model

import (
	"fmt"
	"strings"
	"time"
)

// NormalizeSKU canonicalizes a SKU for map lookups: trimmed and uppercased.
// SKUs are case-insensitive identifiers; every map keyed by SKU uses this form.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// Product is a catalog entry. Immutable once fetched.
type Product struct {
	SKU               string  `json:"sku"`
	Name              string  `json:"name"`
	Category          string  `json:"category"`
	UnitPrice         float64 `json:"unit_price"`
	RequiresColdChain bool    `json:"requires_cold_chain"`
	SupplierName      string  `json:"supplier_name"`
}

// Pagination describes the page a product set belongs to.
type Pagination struct {
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	TotalItems int  `json:"total_items"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// ProductPage couples a fetched product set with its pagination.
type ProductPage struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// CenterStock is the stock breakdown at one distribution center.
type CenterStock struct {
	DistributionCenter string `json:"distribution_center"`
	Available          int64  `json:"available"`
	Reserved           int64  `json:"reserved"`
	InTransit          int64  `json:"in_transit"`
}

// StockLevel is the live stock position for one SKU. It has an
// independent lifecycle from Product and is never cached beyond the
// currently visible SKU set.
type StockLevel struct {
	ProductSKU     string        `json:"product_sku"`
	TotalAvailable int64         `json:"total_available"`
	TotalReserved  int64         `json:"total_reserved"`
	TotalInTransit int64         `json:"total_in_transit"`
	Centers        []CenterStock `json:"centers,omitempty"`
}

// CartItem is one cart line. ProductSKU is stored normalized.
// StockCeiling is nil when no stock fetch has covered this SKU yet.
type CartItem struct {
	ProductSKU   string  `json:"product_sku"`
	ProductName  string  `json:"product_name"`
	Quantity     int64   `json:"quantity"`
	UnitPrice    float64 `json:"unit_price"`
	StockCeiling *int64  `json:"stock_ceiling,omitempty"`
}

// Filters identifies one catalog query. Two Filters values are the same
// query iff they compare equal.
type Filters struct {
	Search   string `json:"search,omitempty"`
	Category string `json:"category,omitempty"`
	Page     int    `json:"page"`
}

// Key returns a stable identity string for dedup and logging.
func (f Filters) Key() string {
	return fmt.Sprintf("s=%s|c=%s|p=%d", f.Search, f.Category, f.Page)
}

// CacheMetadata records when and for which query the catalog cache was
// last populated.
type CacheMetadata struct {
	LastLoad time.Time `json:"last_load"`
	Active   Filters   `json:"active_filters"`
}
