// Package stock reconciles live stock levels for the visible SKU set.
//
// A reconciler owns one logical fetch at a time. Every LoadStock call
// supersedes the previous one: its context is cancelled (aborting a
// pending retry sleep as well as the network call) and its results are
// dropped if they arrive late, guarded by a per-request token compared
// before every state commit. Failures keep previously known levels in
// place so the cart has a stale-but-present ceiling to fall back on.
package stock

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medfield/order-catalog/internal/errx"
	"github.com/medfield/order-catalog/internal/model"
	"github.com/medfield/order-catalog/internal/obs"
	"github.com/medfield/order-catalog/internal/service"
)

// Defaults for Options zero values.
const (
	DefaultMaxRetries = 2
	DefaultRetryBase  = 500 * time.Millisecond
)

// Phase is the public fetch state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSuccess
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseSuccess:
		return "success"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options configures retry behavior.
type Options struct {
	// MaxRetries is the total attempt budget, not the number of
	// re-attempts: 2 means at most two calls to the backend.
	MaxRetries int
	// RetryBase scales the linear backoff: attempt n sleeps n*RetryBase
	// before attempt n+1.
	RetryBase        time.Duration
	IncludeReserved  bool
	IncludeInTransit bool
}

// Snapshot is a read-only view of the reconciler state. Levels is a
// fresh map keyed by normalized SKU.
type Snapshot struct {
	Levels       map[string]model.StockLevel
	Phase        Phase
	IsLoading    bool
	RetryAttempt int
	Err          error
}

// Reconciler asynchronously fetches stock for a tracked SKU set with
// bounded linear backoff.
type Reconciler struct {
	svc service.StockQueryService
	opt Options

	mu       sync.Mutex
	levels   map[string]model.StockLevel
	tracked  []string
	token    uuid.UUID
	cancel   context.CancelFunc
	phase    Phase
	attempt  int // 1-based attempt currently running, 0 when idle
	err      error
	onChange func()
}

// NewReconciler applies defaults for zero option values.
func NewReconciler(svc service.StockQueryService, opt Options) *Reconciler {
	if opt.MaxRetries <= 0 {
		opt.MaxRetries = DefaultMaxRetries
	}
	if opt.RetryBase <= 0 {
		opt.RetryBase = DefaultRetryBase
	}
	return &Reconciler{svc: svc, opt: opt, levels: make(map[string]model.StockLevel), phase: PhaseIdle}
}

// OnChange registers a callback invoked after every state transition.
// It is called without the reconciler lock held.
func (r *Reconciler) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// LoadStock starts a fetch for the given SKU set, superseding any fetch
// still in flight. An empty set cancels the current fetch and returns
// to idle. Previously known levels survive until a success commits.
func (r *Reconciler) LoadStock(ctx context.Context, skus []string) {
	norm := normalizeSet(skus)

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.tracked = norm
	tok := uuid.New()
	r.token = tok
	r.err = nil
	if len(norm) == 0 {
		r.phase = PhaseIdle
		r.attempt = 0
		r.mu.Unlock()
		r.notify()
		return
	}
	fctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.phase = PhaseLoading
	r.attempt = 1
	r.mu.Unlock()
	r.notify()

	obs.Logger.Debug().Int("skus", len(norm)).Str("token", tok.String()).Msg("stock_fetch_start")
	go r.run(fctx, tok, norm)
}

// Retry re-issues the fetch for the currently tracked SKU set with a
// fresh retry budget.
func (r *Reconciler) Retry(ctx context.Context) {
	r.mu.Lock()
	skus := slices.Clone(r.tracked)
	r.mu.Unlock()
	r.LoadStock(ctx, skus)
}

func (r *Reconciler) run(ctx context.Context, tok uuid.UUID, skus []string) {
	for attempt := 1; ; attempt++ {
		levels, err := r.svc.BatchLookup(ctx, skus, r.opt.IncludeReserved, r.opt.IncludeInTransit)
		if ctx.Err() != nil {
			// superseded mid-call; whatever came back is void
			return
		}
		if err == nil {
			r.commitSuccess(tok, levels)
			return
		}
		if attempt >= r.opt.MaxRetries {
			r.commitFailure(tok, err, attempt)
			return
		}
		if !r.markRetrying(tok, attempt, err) {
			return
		}
		delay := time.Duration(attempt) * r.opt.RetryBase
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			// a newer request aborted the scheduled retry
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// commitSuccess replaces the level table with the response, keyed by
// normalized SKU. SKUs the backend omitted simply have no entry, so
// their ceiling stays unknown.
func (r *Reconciler) commitSuccess(tok uuid.UUID, levels []model.StockLevel) {
	r.mu.Lock()
	if tok != r.token {
		r.mu.Unlock()
		return
	}
	m := make(map[string]model.StockLevel, len(levels))
	for _, lv := range levels {
		key := model.NormalizeSKU(lv.ProductSKU)
		if key == "" {
			continue
		}
		lv.ProductSKU = key
		m[key] = lv
	}
	r.levels = m
	r.phase = PhaseSuccess
	r.attempt = 0
	r.err = nil
	r.cancel = nil
	tracked := len(r.tracked)
	r.mu.Unlock()
	r.notify()
	obs.Logger.Info().Int("levels", len(m)).Int("tracked", tracked).Msg("stock_fetch_ok")
}

func (r *Reconciler) commitFailure(tok uuid.UUID, err error, attempts int) {
	wrapped := errx.WrapStock(err, attempts)
	r.mu.Lock()
	if tok != r.token {
		r.mu.Unlock()
		return
	}
	r.phase = PhaseFailed
	r.attempt = 0
	r.err = wrapped
	r.cancel = nil
	r.mu.Unlock()
	r.notify()
	obs.Logger.Error().Err(err).Int("attempts", attempts).Msg("stock_fetch_failed")
}

// markRetrying bumps the attempt counter for the upcoming retry. It
// reports false when the request was superseded.
func (r *Reconciler) markRetrying(tok uuid.UUID, failed int, err error) bool {
	r.mu.Lock()
	if tok != r.token {
		r.mu.Unlock()
		return false
	}
	r.attempt = failed + 1
	r.mu.Unlock()
	r.notify()
	obs.Logger.Warn().Err(err).Int("attempt", failed).Msg("stock_retry_scheduled")
	return true
}

// Ceiling returns the most recently committed available total for a
// SKU. The second result is false when the SKU has no known level.
func (r *Reconciler) Ceiling(sku string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lv, ok := r.levels[model.NormalizeSKU(sku)]
	if !ok {
		return 0, false
	}
	return lv.TotalAvailable, true
}

// Snapshot returns a copy of the observable state.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := make(map[string]model.StockLevel, len(r.levels))
	for k, v := range r.levels {
		m[k] = v
	}
	retries := 0
	if r.attempt > 1 {
		retries = r.attempt - 1
	}
	return Snapshot{
		Levels:       m,
		Phase:        r.phase,
		IsLoading:    r.phase == PhaseLoading,
		RetryAttempt: retries,
		Err:          r.err,
	}
}

func (r *Reconciler) notify() {
	r.mu.Lock()
	fn := r.onChange
	r.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// normalizeSet uppercases, trims, de-duplicates, and drops empty SKUs,
// preserving first-seen order.
func normalizeSet(skus []string) []string {
	seen := make(map[string]struct{}, len(skus))
	out := make([]string, 0, len(skus))
	for _, sku := range skus {
		n := model.NormalizeSKU(sku)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
