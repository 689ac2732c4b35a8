// Package aggregate runs one search cycle against the record store: the row
// query, the chart query, and (when ungrouped) the count query, joined into
// a single renderable result.
package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/usestring/netquery-mcp/internal/composer"
	"github.com/usestring/netquery-mcp/internal/metrics"
	"github.com/usestring/netquery-mcp/internal/notify"
	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// Status is the state of a search view.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusLoading        Status = "loading"
	StatusSuccess        Status = "success"
	StatusPartialFailure Status = "partial_failure"
)

// NoticeTitle is the title of every failure notice.
const NoticeTitle = "Internal Error"

// Summaries of failed slices.
const (
	TitleSearchFailed = "Failed to perform search"
	TitleChartFailed  = "Failed to load chart"
	TitleCountFailed  = "Failed to count connections"
)

// Row is a result row. Grouped rows carry the identity of their group: the
// condition that reproduces exactly the group's members, and a short key
// used to request the group's chart.
type Row struct {
	Values         netquery.Row       `json:"values"`
	GroupKey       string             `json:"group_key,omitempty"`
	GroupCondition netquery.Condition `json:"group_condition,omitempty"`
}

// Failure describes a slice of a search cycle that fell back to its empty
// value.
type Failure struct {
	Op      string `json:"op"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Result is the joined outcome of one search cycle.
type Result struct {
	Query      netquery.Query         `json:"query"`
	Rows       []Row                  `json:"rows"`
	Chart      []netquery.ChartResult `json:"chart"`
	TotalCount int                    `json:"total_count"`
	Status     Status                 `json:"status"`
	Failures   []Failure              `json:"failures,omitempty"`
	Duration   time.Duration          `json:"-"`
}

// Notice returns the notification message for f.
func (f Failure) Notice() string {
	return f.Title + ": " + f.Message
}

// Notify forwards every failure of r to n.
func (r *Result) Notify(n notify.Notifier) {
	if n == nil {
		return
	}
	for _, f := range r.Failures {
		n.Error(NoticeTitle, f.Notice())
	}
}

// Aggregator executes search cycles.
type Aggregator struct {
	store   netquery.Store
	timeout time.Duration
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithRequestTimeout bounds the store round trips of a single cycle.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		a.timeout = d
	}
}

// New creates an Aggregator reading from store.
func New(store netquery.Store, opts ...Option) *Aggregator {
	a := &Aggregator{store: store}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Search runs one cycle for sel. Store failures never fail the cycle: the
// failed slice degrades to its empty value and is reported in
// Result.Failures. The only error returned is ctx's, when the cycle was
// abandoned before it completed.
func (a *Aggregator) Search(ctx context.Context, sel composer.Selection) (*Result, error) {
	start := time.Now()
	q := composer.Compose(sel)
	grouped := sel.Grouped()

	reqCtx := ctx
	if a.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var (
		rows     []netquery.Row
		chart    []netquery.ChartResult
		count    int
		counted  bool
		rowsErr  error
		chartErr error
		countErr error
	)

	// Slices fail independently, so no goroutine reports an error to the group.
	var g errgroup.Group
	g.Go(func() error {
		t := time.Now()
		rows, rowsErr = a.store.Query(reqCtx, &q)
		metrics.ObserveStore(metrics.OpRows, t, rowsErr)
		return nil
	})
	g.Go(func() error {
		t := time.Now()
		chart, chartErr = a.store.ActiveConnectionChart(reqCtx, q.Query)
		metrics.ObserveStore(metrics.OpChart, t, chartErr)
		return nil
	})
	if !grouped {
		g.Go(func() error {
			t := time.Now()
			cq := composer.CountQuery(q.Query)
			res, err := a.store.Query(reqCtx, &cq)
			metrics.ObserveStore(metrics.OpCount, t, err)
			if err != nil {
				countErr = err
				return nil
			}
			if len(res) > 0 {
				count, counted = res[0].Int(composer.TotalCountAlias)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Query: q}

	if rowsErr != nil {
		res.fail(metrics.OpRows, TitleSearchFailed, rowsErr)
		rows = nil
	}
	if chartErr != nil {
		res.fail(metrics.OpChart, TitleChartFailed, chartErr)
		chart = nil
	}
	if countErr != nil {
		res.fail(metrics.OpCount, TitleCountFailed, countErr)
	}

	res.Rows = make([]Row, len(rows))
	for i, row := range rows {
		res.Rows[i] = Row{Values: row}
		if grouped {
			res.Rows[i].GroupCondition = composer.GroupCondition(q.Query, sel.GroupBy, row)
			res.Rows[i].GroupKey = GroupKey(sel.GroupBy, row)
		}
	}

	if chart == nil {
		chart = []netquery.ChartResult{}
	}
	res.Chart = chart

	// Grouped rows are one per group, so their number is the total. A
	// missing or zero count falls back to the number of rows too.
	if grouped || !counted || count == 0 {
		res.TotalCount = len(rows)
	} else {
		res.TotalCount = count
	}

	res.Status = StatusSuccess
	if len(res.Failures) > 0 {
		res.Status = StatusPartialFailure
	}
	res.Duration = time.Since(start)

	slog.Debug("search cycle completed",
		slog.Int("rows", len(res.Rows)),
		slog.Int("total_count", res.TotalCount),
		slog.String("status", string(res.Status)),
		slog.Int64("duration_ms", res.Duration.Milliseconds()),
	)
	return res, nil
}

func (r *Result) fail(op, title string, err error) {
	r.Failures = append(r.Failures, Failure{
		Op:      op,
		Title:   title,
		Message: notify.ErrorMessage(err),
	})
}

// GroupKey returns a short stable identifier of the group row belongs to,
// built from its group-by values.
func GroupKey(groupBy []string, row netquery.Row) string {
	identity := make(map[string]any, len(groupBy))
	for _, field := range groupBy {
		identity[field] = row[field]
	}
	b, err := json.Marshal(identity)
	if err != nil {
		return fmt.Sprint(identity)
	}
	return string(b)
}
