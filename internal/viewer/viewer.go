// Package viewer holds the session state of an interactive connection
// search view and runs its search cycles.
//
// Setters mutate the selection and request a debounced search. Each cycle
// composes its query from a snapshot of the selection taken when the cycle
// starts; only the most recently issued cycle may publish its result.
package viewer

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/usestring/netquery-mcp/internal/aggregate"
	"github.com/usestring/netquery-mcp/internal/cache"
	"github.com/usestring/netquery-mcp/internal/composer"
	"github.com/usestring/netquery-mcp/internal/metrics"
	"github.com/usestring/netquery-mcp/internal/notify"
	"github.com/usestring/netquery-mcp/internal/scheduler"
	"github.com/usestring/netquery-mcp/internal/suggest"
	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// DefaultDebounce is the quiet period before a requested search runs.
const DefaultDebounce = time.Second

// Config configures a Viewer.
type Config struct {
	Debounce          time.Duration     // default DefaultDebounce
	RequestTimeout    time.Duration     // per search cycle, 0 means none
	ChartCache        *cache.ChartCache // optional, shared by group charts
	GroupChartWorkers int
	// OnUpdate is called with every published snapshot. It must not call
	// Close.
	OnUpdate func(Snapshot)
}

// Snapshot is the published state of the view.
type Snapshot struct {
	Seq        uint64                 `json:"seq"`
	Status     aggregate.Status       `json:"status"`
	Rows       []aggregate.Row        `json:"rows"`
	Chart      []netquery.ChartResult `json:"chart"`
	TotalCount int                    `json:"total_count"`
	Query      *netquery.Query        `json:"query,omitempty"`
	Selection  composer.Selection     `json:"selection"`
	Failures   []aggregate.Failure    `json:"failures,omitempty"`
	UpdatedAt  time.Time              `json:"updated_at,omitzero"`
}

// Viewer is one search view session.
type Viewer struct {
	aggregator *aggregate.Aggregator
	ranker     *suggest.Ranker
	charts     *aggregate.GroupCharts
	notifier   notify.Notifier
	sched      *scheduler.Scheduler
	onUpdate   func(Snapshot)

	mu   sync.Mutex
	sel  composer.Selection
	last Snapshot

	// pubMu orders OnUpdate delivery against Close.
	pubMu  sync.Mutex
	closed bool
}

// New creates a Viewer searching store. Failures are reported to
// notifier, which may be nil.
func New(store netquery.Store, notifier notify.Notifier, cfg Config) *Viewer {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	v := &Viewer{
		aggregator: aggregate.New(store, aggregate.WithRequestTimeout(cfg.RequestTimeout)),
		ranker:     suggest.New(store),
		charts: aggregate.NewGroupCharts(store, aggregate.GroupChartsConfig{
			Cache:          cfg.ChartCache,
			Notifier:       notifier,
			Workers:        cfg.GroupChartWorkers,
			RequestTimeout: cfg.RequestTimeout,
		}),
		notifier: notifier,
		onUpdate: cfg.OnUpdate,
		sel:      composer.Selection{Values: map[string][]any{}},
		last:     Snapshot{Status: aggregate.StatusIdle},
	}
	v.sched = scheduler.New(cfg.Debounce, v.run)
	return v
}

// SetValues replaces the selected values of field and requests a search.
// An empty values list clears the field.
func (v *Viewer) SetValues(field string, values []any) error {
	if !composer.IsConnectionField(field) {
		return &composer.FieldError{Role: "filter", Field: field}
	}
	v.update(func(sel *composer.Selection) {
		if len(values) == 0 {
			delete(sel.Values, field)
			return
		}
		sel.Values[field] = slices.Clone(values)
	})
	return nil
}

// ClearValues drops the selected values of the given fields, or of every
// field when none is given, and requests a search.
func (v *Viewer) ClearValues(fields ...string) {
	v.update(func(sel *composer.Selection) {
		if len(fields) == 0 {
			clear(sel.Values)
			return
		}
		for _, field := range fields {
			delete(sel.Values, field)
		}
	})
}

// SetTextSearch sets the free-text term and requests a search.
func (v *Viewer) SetTextSearch(term string) {
	v.update(func(sel *composer.Selection) {
		sel.TextSearch = term
	})
}

// SetGroupBy replaces the group-by fields and requests a search.
func (v *Viewer) SetGroupBy(fields ...string) error {
	return v.validated(func(sel *composer.Selection) {
		sel.GroupBy = slices.Clone(fields)
	})
}

// SetOrderBy replaces the result ordering and requests a search.
func (v *Viewer) SetOrderBy(order ...netquery.OrderBy) error {
	return v.validated(func(sel *composer.Selection) {
		sel.OrderBy = slices.Clone(order)
	})
}

// SetSelection replaces the whole selection and requests a search.
func (v *Viewer) SetSelection(sel composer.Selection) error {
	if err := composer.Validate(sel); err != nil {
		return err
	}
	next := sel.Clone()
	if next.Values == nil {
		next.Values = map[string][]any{}
	}
	v.update(func(cur *composer.Selection) {
		*cur = next
	})
	return nil
}

// validated applies fn to a copy of the selection and keeps the result
// only if it still validates.
func (v *Viewer) validated(fn func(*composer.Selection)) error {
	v.mu.Lock()
	next := v.sel.Clone()
	fn(&next)
	if err := composer.Validate(next); err != nil {
		v.mu.Unlock()
		return err
	}
	v.sel = next
	v.mu.Unlock()

	v.PerformSearch()
	return nil
}

func (v *Viewer) update(fn func(*composer.Selection)) {
	v.mu.Lock()
	fn(&v.sel)
	v.mu.Unlock()

	v.PerformSearch()
}

// PerformSearch requests a debounced search cycle.
func (v *Viewer) PerformSearch() {
	v.sched.Request()
}

// SearchNow issues a search cycle immediately.
func (v *Viewer) SearchNow() {
	v.sched.Trigger()
}

// Selection returns a copy of the current selection.
func (v *Viewer) Selection() composer.Selection {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sel.Clone()
}

// Query returns the query the current selection composes to. It may differ
// from the query of the last published snapshot while a search is pending.
func (v *Viewer) Query() netquery.Query {
	return composer.Compose(v.Selection())
}

// Snapshot returns the last published state. The status reports loading
// while a search is pending or running.
func (v *Viewer) Snapshot() Snapshot {
	busy := v.sched.Busy()

	v.mu.Lock()
	snap := v.last
	v.mu.Unlock()

	if busy {
		snap.Status = aggregate.StatusLoading
	}
	return snap
}

// Wait blocks until no search is pending or running.
func (v *Viewer) Wait(ctx context.Context) error {
	return v.sched.Wait(ctx)
}

// Suggest returns ranked candidate values for field under the current
// selection.
func (v *Viewer) Suggest(ctx context.Context, field string) ([]suggest.Suggestion, error) {
	if !composer.IsConnectionField(field) {
		return nil, &composer.FieldError{Role: "filter", Field: field}
	}
	return v.ranker.Rank(ctx, v.Selection(), field)
}

// GroupChart returns the chart of the group identified by key in the last
// published result, fetching it on first use.
func (v *Viewer) GroupChart(ctx context.Context, key string) (aggregate.GroupChart, error) {
	return v.charts.Resolve(ctx, key)
}

// PrefetchGroupCharts resolves the charts of several groups with bounded
// concurrency.
func (v *Viewer) PrefetchGroupCharts(ctx context.Context, keys []string) []aggregate.GroupChart {
	return v.charts.Prefetch(ctx, keys)
}

// GroupCharts returns the chart state of every group of the last published
// result, without fetching.
func (v *Viewer) GroupCharts() []aggregate.GroupChart {
	return v.charts.States()
}

// Close abandons pending and running searches. Nothing is published after
// Close returns; a notification already being delivered may still finish.
func (v *Viewer) Close() {
	v.sched.Close()

	v.pubMu.Lock()
	v.closed = true
	v.pubMu.Unlock()
}

func (v *Viewer) isClosed() bool {
	v.pubMu.Lock()
	defer v.pubMu.Unlock()
	return v.closed
}

func (v *Viewer) publish(snap Snapshot) {
	v.pubMu.Lock()
	defer v.pubMu.Unlock()
	if v.closed || v.onUpdate == nil {
		return
	}
	v.onUpdate(snap)
}

func (v *Viewer) run(ctx context.Context, seq uint64) {
	sel := v.Selection()

	res, err := v.aggregator.Search(ctx, sel)
	if err != nil {
		metrics.StaleDiscards.WithLabelValues("search").Inc()
		slog.Debug("search cycle abandoned",
			slog.Uint64("seq", seq),
			slog.String("error", err.Error()),
		)
		return
	}

	var snap Snapshot
	committed := v.sched.Commit(seq, func() {
		snap = Snapshot{
			Seq:        seq,
			Status:     res.Status,
			Rows:       res.Rows,
			Chart:      res.Chart,
			TotalCount: res.TotalCount,
			Query:      &res.Query,
			Selection:  sel,
			Failures:   res.Failures,
			UpdatedAt:  time.Now(),
		}
		v.mu.Lock()
		v.last = snap
		v.mu.Unlock()
		v.charts.Reset(seq, res.Rows)
	})
	if !committed {
		metrics.StaleDiscards.WithLabelValues("search").Inc()
		metrics.SearchCycles.WithLabelValues("stale").Inc()
		slog.Debug("stale search result discarded", slog.Uint64("seq", seq))
		return
	}

	metrics.SearchCycles.WithLabelValues(string(res.Status)).Inc()
	if v.isClosed() {
		return
	}
	res.Notify(v.notifier)
	v.publish(snap)
}

