package catalog

import (
	"strings"
	"sync"

	"github.com/medfield/order-catalog/internal/model"
)

// FetchRequest is the catalog fetch a navigation intent resolved to.
// Force bypasses cache validity because the filter identity changed.
type FetchRequest struct {
	Filters model.Filters
	Force   bool
}

// Controller tracks the active filters and page and turns navigation
// intents into fetch requests. Transitions are synchronous; the page
// number never leaves [1, TotalPages].
type Controller struct {
	mu         sync.Mutex
	filters    model.Filters
	pagination model.Pagination
}

// NewController starts at page 1 with no filters.
func NewController() *Controller {
	return &Controller{filters: model.Filters{Page: 1}}
}

// SetSearch replaces the search text, resets to page 1, and forces a refresh.
func (c *Controller) SetSearch(text string) FetchRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters.Search = strings.TrimSpace(text)
	c.filters.Page = 1
	return FetchRequest{Filters: c.filters, Force: true}
}

// SetCategory replaces the category filter, resets to page 1, and forces a refresh.
func (c *Controller) SetCategory(category string) FetchRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters.Category = strings.TrimSpace(category)
	c.filters.Page = 1
	return FetchRequest{Filters: c.filters, Force: true}
}

// ClearFilters drops all filters, resets to page 1, and forces a refresh.
func (c *Controller) ClearFilters() FetchRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = model.Filters{Page: 1}
	return FetchRequest{Filters: c.filters, Force: true}
}

// NextPage advances one page. It is a no-op when the last observed
// pagination has no next page.
func (c *Controller) NextPage() (FetchRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pagination.HasNext {
		return FetchRequest{}, false
	}
	c.filters.Page++
	if tp := c.pagination.TotalPages; tp > 0 && c.filters.Page > tp {
		c.filters.Page = tp
	}
	return FetchRequest{Filters: c.filters}, true
}

// PreviousPage mirrors NextPage using HasPrev.
func (c *Controller) PreviousPage() (FetchRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pagination.HasPrev {
		return FetchRequest{}, false
	}
	c.filters.Page--
	if c.filters.Page < 1 {
		c.filters.Page = 1
	}
	return FetchRequest{Filters: c.filters}, true
}

// Load requests the current filters without bypassing the cache. Used
// on screen entry, where a still-valid page should not hit the network.
func (c *Controller) Load() FetchRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FetchRequest{Filters: c.filters}
}

// Refresh re-requests the current filters bypassing the TTL.
func (c *Controller) Refresh() FetchRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FetchRequest{Filters: c.filters, Force: true}
}

// Observe records the pagination of a completed fetch and aligns the
// tracked page with what the backend reported.
func (c *Controller) Observe(p model.Pagination) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pagination = p
	if p.Page >= 1 {
		c.filters.Page = p.Page
	}
}

// Filters returns the currently active filters.
func (c *Controller) Filters() model.Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}
