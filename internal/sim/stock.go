package sim

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/medfield/order-catalog/internal/model"
)

// StockService serves live stock levels keyed by normalized SKU.
// Lookups may cover only a subset of the requested SKUs.
type StockService struct {
	mu     sync.RWMutex
	levels map[string]model.StockLevel

	calls    atomic.Uint64
	failNext atomic.Int64

	// gate, when set, blocks BatchLookup until released. Used by tests
	// to hold a fetch in flight while a newer one supersedes it.
	gate chan struct{}
}

// NewStockService seeds the service with the given levels.
func NewStockService(seed []model.StockLevel) *StockService {
	s := &StockService{levels: make(map[string]model.StockLevel, len(seed))}
	for _, lv := range seed {
		s.levels[model.NormalizeSKU(lv.ProductSKU)] = lv
	}
	return s
}

// SetLevel replaces the level for one SKU.
func (s *StockService) SetLevel(lv model.StockLevel) {
	s.mu.Lock()
	s.levels[model.NormalizeSKU(lv.ProductSKU)] = lv
	s.mu.Unlock()
}

// Remove drops a SKU so lookups return a partial response.
func (s *StockService) Remove(sku string) {
	s.mu.Lock()
	delete(s.levels, model.NormalizeSKU(sku))
	s.mu.Unlock()
}

// FailNext makes the next n BatchLookup calls fail.
func (s *StockService) FailNext(n int) { s.failNext.Store(int64(n)) }

// Calls returns the number of BatchLookup invocations so far.
func (s *StockService) Calls() uint64 { return s.calls.Load() }

// Gate installs a barrier: subsequent lookups block until the returned
// release function is called or their context ends.
func (s *StockService) Gate() (release func()) {
	g := make(chan struct{})
	s.mu.Lock()
	s.gate = g
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gate == g {
				s.gate = nil
			}
			s.mu.Unlock()
			close(g)
		})
	}
}

// BatchLookup implements service.StockQueryService.
func (s *StockService) BatchLookup(ctx context.Context, skus []string, includeReserved, includeInTransit bool) ([]model.StockLevel, error) {
	s.calls.Add(1)
	s.mu.RLock()
	gate := s.gate
	s.mu.RUnlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.failNext.Add(-1) >= 0 {
		return nil, ErrInjected
	}
	s.failNext.Store(0)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.StockLevel, 0, len(skus))
	for _, sku := range skus {
		lv, ok := s.levels[model.NormalizeSKU(sku)]
		if !ok {
			continue
		}
		if !includeReserved {
			lv.TotalReserved = 0
		}
		if !includeInTransit {
			lv.TotalInTransit = 0
		}
		out = append(out, lv)
	}
	return out, nil
}
