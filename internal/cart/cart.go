// Package cart implements the stock-bounded shopping cart.
//
// Quantities never exceed the most recently known stock ceiling for a
// SKU; attempts to do so are silent no-ops, not errors, because the
// clamp is a defensive backstop behind the UI's disabled controls. A
// nil ceiling means the last stock fetch did not cover the SKU, which
// the cart treats as "unknown, not provably zero": additions proceed
// unbounded until a ceiling becomes known.
package cart

import (
	"sync"

	"github.com/medfield/order-catalog/internal/model"
)

// CeilingSource supplies the most recently known stock ceiling for a
// SKU. Reads are snapshot reads; the cart never holds the source's lock.
type CeilingSource interface {
	Ceiling(sku string) (int64, bool)
}

// Snapshot is an immutable view of the cart.
type Snapshot struct {
	Items     []model.CartItem `json:"items"`
	Total     float64          `json:"total"`
	ItemCount int64            `json:"item_count"`
}

// Store holds cart lines keyed by normalized SKU. All mutation is
// single-writer under the store lock; no zero-quantity line persists.
type Store struct {
	src CeilingSource

	mu    sync.Mutex
	items map[string]model.CartItem
	order []string
}

// NewStore builds an empty cart. src may be nil, in which case every
// ceiling starts unknown until ApplyCeilings runs.
func NewStore(src CeilingSource) *Store {
	return &Store{src: src, items: make(map[string]model.CartItem)}
}

// Add inserts the product with quantity 1 or increments an existing
// line by 1. It reports false when a known ceiling blocked the change.
func (s *Store) Add(p model.Product) bool {
	sku := model.NormalizeSKU(p.SKU)
	if sku == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ceiling, known := s.lookupCeiling(sku)
	it, exists := s.items[sku]
	if !exists {
		if known && ceiling < 1 {
			return false
		}
		it = model.CartItem{ProductSKU: sku, ProductName: p.Name, Quantity: 1, UnitPrice: p.UnitPrice}
		if known {
			it.StockCeiling = ptr(ceiling)
		}
		s.items[sku] = it
		s.order = append(s.order, sku)
		return true
	}
	if known {
		it.StockCeiling = ptr(ceiling)
		if it.Quantity+1 > ceiling {
			// refresh the recorded ceiling even though the add is refused
			s.items[sku] = it
			return false
		}
	}
	it.Quantity++
	s.items[sku] = it
	return true
}

// Remove decrements the line by 1, deleting it at zero. Unknown SKUs
// are no-ops.
func (s *Store) Remove(sku string) {
	key := model.NormalizeSKU(sku)
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	if !ok {
		return
	}
	it.Quantity--
	if it.Quantity <= 0 {
		s.deleteLocked(key)
		return
	}
	s.items[key] = it
}

// SetQuantity sets the line quantity directly. Negative values are
// no-ops, a known ceiling clamps the value, and zero deletes the line.
func (s *Store) SetQuantity(sku string, qty int64) {
	if qty < 0 {
		return
	}
	key := model.NormalizeSKU(sku)
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[key]
	if !ok {
		return
	}
	if ceiling, known := s.lookupCeiling(key); known {
		it.StockCeiling = ptr(ceiling)
		if qty > ceiling {
			qty = ceiling
		}
	}
	if qty == 0 {
		s.deleteLocked(key)
		return
	}
	it.Quantity = qty
	s.items[key] = it
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = make(map[string]model.CartItem)
	s.order = nil
	s.mu.Unlock()
}

// ApplyCeilings pushes freshly committed stock levels into existing
// lines, clamping quantities that now exceed their ceiling. Lines whose
// SKU is absent from levels keep their previous ceiling. A ceiling of
// zero removes the line, since zero-quantity entries never persist.
func (s *Store) ApplyCeilings(levels map[string]model.StockLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range append([]string(nil), s.order...) {
		lv, ok := levels[key]
		if !ok {
			continue
		}
		it := s.items[key]
		it.StockCeiling = ptr(lv.TotalAvailable)
		if it.Quantity > lv.TotalAvailable {
			it.Quantity = lv.TotalAvailable
		}
		if it.Quantity <= 0 {
			s.deleteLocked(key)
			continue
		}
		s.items[key] = it
	}
}

// Total returns the sum of quantity times unit price over all lines.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total float64
	for _, it := range s.items {
		total += float64(it.Quantity) * it.UnitPrice
	}
	return total
}

// ItemCount returns the sum of quantities over all lines.
func (s *Store) ItemCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// Items returns the cart lines in insertion order.
func (s *Store) Items() []model.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.CartItem, 0, len(s.order))
	for _, key := range s.order {
		it := s.items[key]
		if it.StockCeiling != nil {
			it.StockCeiling = ptr(*it.StockCeiling)
		}
		out = append(out, it)
	}
	return out
}

// Snapshot returns lines, total, and item count in one consistent view.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{Items: make([]model.CartItem, 0, len(s.order))}
	for _, key := range s.order {
		it := s.items[key]
		if it.StockCeiling != nil {
			it.StockCeiling = ptr(*it.StockCeiling)
		}
		snap.Items = append(snap.Items, it)
		snap.Total += float64(it.Quantity) * it.UnitPrice
		snap.ItemCount += it.Quantity
	}
	return snap
}

func (s *Store) lookupCeiling(key string) (int64, bool) {
	if s.src == nil {
		return 0, false
	}
	return s.src.Ceiling(key)
}

func (s *Store) deleteLocked(key string) {
	delete(s.items, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func ptr(v int64) *int64 { return &v }
