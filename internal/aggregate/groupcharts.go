package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/usestring/netquery-mcp/internal/cache"
	"github.com/usestring/netquery-mcp/internal/metrics"
	"github.com/usestring/netquery-mcp/internal/notify"
	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// ChartState is the lifecycle state of a group chart.
type ChartState string

const (
	ChartNotRequested ChartState = "not_requested"
	ChartPending      ChartState = "pending"
	ChartResolved     ChartState = "resolved"
	ChartFailed       ChartState = "failed"
)

var (
	// ErrUnknownGroup is returned for a key that is not part of the current result.
	ErrUnknownGroup = errors.New("unknown group")
	// ErrStaleGroup is returned when the result a chart was requested for
	// was replaced before the chart arrived.
	ErrStaleGroup = errors.New("group belongs to a superseded result")
)

// GroupChart is a snapshot of one group's chart state.
type GroupChart struct {
	Key        string                 `json:"key"`
	Generation uint64                 `json:"generation"`
	State      ChartState             `json:"state"`
	Chart      []netquery.ChartResult `json:"chart,omitempty"`
	Error      string                 `json:"error,omitempty"`
}

type groupEntry struct {
	cond  netquery.Condition
	state ChartState
	chart []netquery.ChartResult
	err   string
}

// GroupCharts tracks the lazily fetched charts of the grouped rows of the
// current result. Each committed result starts a new generation; charts
// arriving for an older generation are dropped.
type GroupCharts struct {
	store    netquery.Store
	cache    *cache.ChartCache
	notifier notify.Notifier
	workers  int
	timeout  time.Duration

	flight singleflight.Group

	mu         sync.Mutex
	generation uint64
	entries    map[string]*groupEntry
	order      []string
}

// GroupChartsConfig configures a GroupCharts registry.
type GroupChartsConfig struct {
	Cache          *cache.ChartCache // optional
	Notifier       notify.Notifier   // optional
	Workers        int               // concurrent fetches in Prefetch, default 4
	RequestTimeout time.Duration     // per fetch, 0 means none
}

// NewGroupCharts creates an empty registry reading charts from store.
func NewGroupCharts(store netquery.Store, cfg GroupChartsConfig) *GroupCharts {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &GroupCharts{
		store:    store,
		cache:    cfg.Cache,
		notifier: cfg.Notifier,
		workers:  cfg.Workers,
		timeout:  cfg.RequestTimeout,
		entries:  make(map[string]*groupEntry),
	}
}

// Reset starts generation with the grouped rows of a new result. Every
// group starts out not requested; ungrouped rows are ignored.
func (g *GroupCharts) Reset(generation uint64, rows []Row) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.generation = generation
	g.entries = make(map[string]*groupEntry, len(rows))
	g.order = g.order[:0]
	for _, row := range rows {
		if row.GroupKey == "" {
			continue
		}
		if _, dup := g.entries[row.GroupKey]; dup {
			continue
		}
		g.entries[row.GroupKey] = &groupEntry{cond: row.GroupCondition, state: ChartNotRequested}
		g.order = append(g.order, row.GroupKey)
	}
}

// Generation returns the current generation.
func (g *GroupCharts) Generation() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.generation
}

// State returns the chart state of key without requesting it.
func (g *GroupCharts) State(key string) (GroupChart, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[key]
	if !ok {
		return GroupChart{}, fmt.Errorf("%w: %s", ErrUnknownGroup, key)
	}
	return g.snapshotLocked(key, e), nil
}

// States returns the chart state of every group, in row order.
func (g *GroupCharts) States() []GroupChart {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]GroupChart, 0, len(g.order))
	for _, key := range g.order {
		out = append(out, g.snapshotLocked(key, g.entries[key]))
	}
	return out
}

// Resolve returns the chart of key, fetching it if it is not resolved yet.
// Concurrent requests for the same group condition share one fetch, which
// is not canceled when one of them gives up. A store failure is reported
// through the returned state, not as an error.
func (g *GroupCharts) Resolve(ctx context.Context, key string) (GroupChart, error) {
	g.mu.Lock()
	e, ok := g.entries[key]
	if !ok {
		g.mu.Unlock()
		return GroupChart{}, fmt.Errorf("%w: %s", ErrUnknownGroup, key)
	}
	if e.state == ChartResolved {
		snap := g.snapshotLocked(key, e)
		g.mu.Unlock()
		return snap, nil
	}
	if g.cache != nil {
		if chart, hit := g.cache.Get(e.cond); hit {
			e.state = ChartResolved
			e.chart = chart
			e.err = ""
			snap := g.snapshotLocked(key, e)
			g.mu.Unlock()
			metrics.GroupChartLookups.WithLabelValues("cache").Inc()
			return snap, nil
		}
	}
	generation := g.generation
	cond := e.cond
	e.state = ChartPending
	g.mu.Unlock()

	// The shared fetch outlives any single caller; each caller stops
	// waiting when its own context ends.
	ch := g.flight.DoChan(cond.Key(), func() (any, error) {
		return g.fetch(context.WithoutCancel(ctx), cond)
	})

	var (
		v         any
		err       error
		abandoned bool
	)
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		err = ctx.Err()
		abandoned = true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.generation != generation || g.entries[key] != e {
		metrics.StaleDiscards.WithLabelValues("group_chart").Inc()
		return GroupChart{Key: key, Generation: generation}, ErrStaleGroup
	}

	if err != nil {
		if abandoned || errors.Is(err, context.Canceled) {
			if e.state == ChartPending {
				e.state = ChartNotRequested
			}
			return g.snapshotLocked(key, e), err
		}
		e.state = ChartFailed
		e.err = notify.ErrorMessage(err)
		metrics.GroupChartLookups.WithLabelValues("failed").Inc()
		if g.notifier != nil {
			g.notifier.Error(NoticeTitle, Failure{Title: TitleChartFailed, Message: e.err}.Notice())
		}
		return g.snapshotLocked(key, e), nil
	}

	e.state = ChartResolved
	e.chart = v.([]netquery.ChartResult)
	e.err = ""
	metrics.GroupChartLookups.WithLabelValues("fetch").Inc()
	return g.snapshotLocked(key, e), nil
}

// Prefetch resolves the given groups with a bounded number of concurrent
// fetches. Groups of a superseded generation are skipped.
func (g *GroupCharts) Prefetch(ctx context.Context, keys []string) []GroupChart {
	out := make([]GroupChart, len(keys))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)

	for i, key := range keys {
		eg.Go(func() error {
			chart, err := g.Resolve(ctx, key)
			if err != nil {
				slog.Debug("group chart prefetch skipped",
					slog.String("group", key),
					slog.String("error", err.Error()),
				)
			}
			out[i] = chart
			return nil
		})
	}
	_ = eg.Wait()

	return out
}

func (g *GroupCharts) fetch(ctx context.Context, cond netquery.Condition) ([]netquery.ChartResult, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	chart, err := g.store.ActiveConnectionChart(ctx, cond)
	metrics.ObserveStore(metrics.OpGroupChart, start, err)
	if err != nil {
		return nil, err
	}
	if chart == nil {
		chart = []netquery.ChartResult{}
	}
	if g.cache != nil {
		g.cache.Put(cond, chart)
	}
	return chart, nil
}

func (g *GroupCharts) snapshotLocked(key string, e *groupEntry) GroupChart {
	return GroupChart{
		Key:        key,
		Generation: g.generation,
		State:      e.state,
		Chart:      e.chart,
		Error:      e.err,
	}
}
