// Package sim provides in-memory backend implementations used by the
// demo binary and the test suites. Both services support failure
// injection and count their invocations.
package sim

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/medfield/order-catalog/internal/model"
)

// ErrInjected is returned by a service whose next calls were failed on purpose.
var ErrInjected = errors.New("injected backend failure")

// ProductService serves a seeded catalog with search, category filter,
// and paging semantics.
type ProductService struct {
	mu       sync.RWMutex
	products []model.Product

	calls    atomic.Uint64
	failNext atomic.Int64

	// gate, when set, blocks Search until released. Used by tests to
	// overlap requests deterministically.
	gate chan struct{}
}

// NewProductService seeds the service with the given catalog.
func NewProductService(seed []model.Product) *ProductService {
	s := &ProductService{}
	s.products = append(s.products, seed...)
	return s
}

// Gate installs a barrier: subsequent searches block until the returned
// release function is called or their context ends.
func (s *ProductService) Gate() (release func()) {
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

// FailNext makes the next n Search calls fail.
func (s *ProductService) FailNext(n int) { s.failNext.Store(int64(n)) }

// Calls returns the number of Search invocations so far.
func (s *ProductService) Calls() uint64 { return s.calls.Load() }

// Search implements service.ProductQueryService.
func (s *ProductService) Search(ctx context.Context, search, category string, page, perPage int) (model.ProductPage, error) {
	s.calls.Add(1)
	s.mu.RLock()
	gate := s.gate
	s.mu.RUnlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return model.ProductPage{}, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return model.ProductPage{}, err
	}
	if s.failNext.Add(-1) >= 0 {
		return model.ProductPage{}, ErrInjected
	}
	s.failNext.Store(0)
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	s.mu.RLock()
	var matched []model.Product
	for _, p := range s.products {
		if !matches(p, search, category) {
			continue
		}
		matched = append(matched, p)
	}
	s.mu.RUnlock()

	total := len(matched)
	totalPages := (total + perPage - 1) / perPage
	start := (page - 1) * perPage
	end := start + perPage
	var items []model.Product
	if start < total {
		if end > total {
			end = total
		}
		items = append(items, matched[start:end]...)
	}
	return model.ProductPage{
		Products: items,
		Pagination: model.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: total,
			HasNext:    page < totalPages,
			HasPrev:    page > 1 && total > 0,
		},
	}, nil
}

func matches(p model.Product, search, category string) bool {
	if category != "" && !strings.EqualFold(p.Category, category) {
		return false
	}
	if search == "" {
		return true
	}
	q := strings.ToLower(search)
	return strings.Contains(strings.ToLower(p.Name), q) ||
		strings.Contains(strings.ToLower(p.SKU), q) ||
		strings.Contains(strings.ToLower(p.SupplierName), q)
}
