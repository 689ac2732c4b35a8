package viewer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/netquery-mcp/internal/aggregate"
	"github.com/usestring/netquery-mcp/internal/composer"
	"github.com/usestring/netquery-mcp/internal/memstore"
	"github.com/usestring/netquery-mcp/internal/notify"
	"github.com/usestring/netquery-mcp/pkg/netquery"
)

var testNow = time.Unix(1_700_000_000, 0)

func sampleStore() *memstore.Store {
	s := memstore.New(memstore.WithClock(func() time.Time { return testNow }))
	s.Add(memstore.SampleConnections(testNow)...)
	return s
}

func newViewer(t *testing.T, store netquery.Store, n notify.Notifier, cfg Config) *Viewer {
	t.Helper()
	if cfg.Debounce == 0 {
		cfg.Debounce = 20 * time.Millisecond
	}
	v := New(store, n, cfg)
	t.Cleanup(v.Close)
	return v
}

func waitIdle(t *testing.T, v *Viewer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, v.Wait(ctx))
}

func rowIDs(rows []aggregate.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Values.String("id")
	}
	return out
}

func TestViewer_InitialSnapshot(t *testing.T) {
	v := newViewer(t, sampleStore(), nil, Config{})

	snap := v.Snapshot()
	assert.Equal(t, aggregate.StatusIdle, snap.Status)
	assert.Zero(t, snap.Seq)
	assert.Empty(t, snap.Rows)
}

func TestViewer_SearchPublishesResult(t *testing.T) {
	var updates []Snapshot
	var mu sync.Mutex
	v := newViewer(t, sampleStore(), nil, Config{OnUpdate: func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		updates = append(updates, s)
	}})

	require.NoError(t, v.SetValues("country", []any{"AT"}))
	assert.Equal(t, aggregate.StatusLoading, v.Snapshot().Status)
	waitIdle(t, v)

	snap := v.Snapshot()
	assert.Equal(t, uint64(1), snap.Seq)
	assert.Equal(t, aggregate.StatusSuccess, snap.Status)
	assert.Equal(t, []string{"c6", "c7"}, rowIDs(snap.Rows))
	assert.Equal(t, 2, snap.TotalCount)
	assert.NotEmpty(t, snap.Chart)
	require.NotNil(t, snap.Query)
	assert.Equal(t, netquery.Condition{"country": netquery.In{"AT"}}, snap.Query.Query)
	assert.Equal(t, []any{"AT"}, snap.Selection.Values["country"])
	assert.False(t, snap.UpdatedAt.IsZero())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updates, 1)
	assert.Equal(t, snap.Seq, updates[0].Seq)
}

func TestViewer_DebounceCoalescesEdits(t *testing.T) {
	v := newViewer(t, sampleStore(), nil, Config{Debounce: 40 * time.Millisecond})

	v.SetTextSearch("e")
	v.SetTextSearch("ex")
	v.SetTextSearch("exa")
	waitIdle(t, v)

	snap := v.Snapshot()
	assert.Equal(t, uint64(1), snap.Seq)
	assert.Equal(t, "exa", snap.Selection.TextSearch)
}

// gatedStore holds every request whose condition selects country gated
// until release is closed, ignoring cancellation like a slow backend.
type gatedStore struct {
	netquery.Store
	gated   string
	started chan struct{}
	release chan struct{}
}

func (s *gatedStore) hold(cond netquery.Condition) {
	for _, p := range cond.Predicates("country") {
		if in, ok := p.(netquery.In); ok && len(in) == 1 && in[0] == s.gated {
			s.started <- struct{}{}
			<-s.release
			return
		}
	}
}

func (s *gatedStore) Query(ctx context.Context, q *netquery.Query) ([]netquery.Row, error) {
	s.hold(q.Query)
	return s.Store.Query(context.WithoutCancel(ctx), q)
}

func (s *gatedStore) ActiveConnectionChart(ctx context.Context, cond netquery.Condition) ([]netquery.ChartResult, error) {
	s.hold(cond)
	return s.Store.ActiveConnectionChart(context.WithoutCancel(ctx), cond)
}

func TestViewer_LastRequestWins(t *testing.T) {
	store := &gatedStore{
		Store:   sampleStore(),
		gated:   "DE",
		started: make(chan struct{}, 3),
		release: make(chan struct{}),
	}
	n := notify.NewRecorder(10, nil)
	v := newViewer(t, store, n, Config{Debounce: time.Hour})

	require.NoError(t, v.SetValues("country", []any{"DE"}))
	v.SearchNow()
	<-store.started

	require.NoError(t, v.SetValues("country", []any{"AT"}))
	v.SearchNow()

	assert.Eventually(t, func() bool {
		return v.Snapshot().Seq == 2
	}, time.Second, 5*time.Millisecond)

	// The first cycle's responses arrive after the second was published.
	close(store.release)
	waitIdle(t, v)

	snap := v.Snapshot()
	assert.Equal(t, uint64(2), snap.Seq)
	assert.Equal(t, []string{"c6", "c7"}, rowIDs(snap.Rows))
	assert.Equal(t, aggregate.StatusSuccess, snap.Status)
	assert.Empty(t, n.Recent())
}

type failingChartStore struct {
	netquery.Store
}

func (failingChartStore) ActiveConnectionChart(context.Context, netquery.Condition) ([]netquery.ChartResult, error) {
	return nil, errors.New("chart backend down")
}

func TestViewer_PartialFailureNotifies(t *testing.T) {
	n := notify.NewRecorder(10, nil)
	v := newViewer(t, failingChartStore{sampleStore()}, n, Config{})

	v.SearchNow()
	waitIdle(t, v)

	snap := v.Snapshot()
	assert.Equal(t, aggregate.StatusPartialFailure, snap.Status)
	assert.Len(t, snap.Rows, 7)
	assert.Empty(t, snap.Chart)

	recent := n.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, "Internal Error", recent[0].Title)
	assert.Equal(t, "Failed to load chart: chart backend down", recent[0].Message)
}

func TestViewer_RejectsUnknownFields(t *testing.T) {
	v := newViewer(t, sampleStore(), nil, Config{})

	var fieldErr *composer.FieldError

	err := v.SetValues("bogus", []any{"x"})
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "filter", fieldErr.Role)

	err = v.SetGroupBy("remote_port")
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "group_by", fieldErr.Role)

	err = v.SetOrderBy(netquery.OrderBy{Field: composer.TotalCountAlias, Desc: true})
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "order_by", fieldErr.Role)

	assert.Empty(t, v.Selection().GroupBy)
	assert.Empty(t, v.Selection().OrderBy)
	assert.False(t, v.sched.Busy())

	require.NoError(t, v.SetGroupBy("country"))
	require.NoError(t, v.SetOrderBy(netquery.OrderBy{Field: composer.TotalCountAlias, Desc: true}))
}

func TestViewer_ClearValues(t *testing.T) {
	v := newViewer(t, sampleStore(), nil, Config{})

	require.NoError(t, v.SetValues("country", []any{"AT"}))
	require.NoError(t, v.SetValues("domain", []any{"example.org."}))
	v.ClearValues("country")
	assert.Equal(t, map[string][]any{"domain": {"example.org."}}, v.Selection().Values)

	v.ClearValues()
	assert.Empty(t, v.Selection().Values)

	require.NoError(t, v.SetValues("country", []any{"AT"}))
	require.NoError(t, v.SetValues("country", nil))
	assert.Empty(t, v.Selection().Values)
}

func TestViewer_QueryReflectsSelection(t *testing.T) {
	v := newViewer(t, sampleStore(), nil, Config{})

	require.NoError(t, v.SetSelection(composer.Selection{
		Values:  map[string][]any{"country": {"AT"}},
		GroupBy: []string{"direction"},
	}))

	q := v.Query()
	assert.Equal(t, []string{"direction"}, q.GroupBy)
	require.Len(t, q.Select, 3)
	assert.Equal(t, composer.TotalCountAlias, q.Select[0].Name())
	assert.Equal(t, composer.AllowedCountAlias, q.Select[1].Name())
	assert.Equal(t, "direction", q.Select[2].Name())
}

func TestViewer_SuggestPinsSelected(t *testing.T) {
	v := newViewer(t, sampleStore(), nil, Config{})
	require.NoError(t, v.SetValues("country", []any{"DE"}))

	suggestions, err := v.Suggest(context.Background(), "country")
	require.NoError(t, err)

	require.Len(t, suggestions, 3)
	assert.Equal(t, "DE", suggestions[0].Value)
	assert.True(t, suggestions[0].Selected)
	assert.Equal(t, "US", suggestions[1].Value)
	assert.Equal(t, 4, suggestions[1].Count)
	assert.Equal(t, "AT", suggestions[2].Value)

	_, err = v.Suggest(context.Background(), "bogus")
	assert.Error(t, err)
}

func TestViewer_GroupChartsAreLazy(t *testing.T) {
	v := newViewer(t, sampleStore(), nil, Config{})
	require.NoError(t, v.SetGroupBy("country"))
	v.SearchNow()
	waitIdle(t, v)

	snap := v.Snapshot()
	require.Len(t, snap.Rows, 3)
	assert.Equal(t, 3, snap.TotalCount)

	states := v.GroupCharts()
	require.Len(t, states, 3)
	for _, s := range states {
		assert.Equal(t, aggregate.ChartNotRequested, s.State)
		assert.Equal(t, snap.Seq, s.Generation)
	}

	chart, err := v.GroupChart(context.Background(), snap.Rows[0].GroupKey)
	require.NoError(t, err)
	assert.Equal(t, aggregate.ChartResolved, chart.State)
	assert.NotEmpty(t, chart.Chart)

	_, err = v.GroupChart(context.Background(), "missing")
	assert.ErrorIs(t, err, aggregate.ErrUnknownGroup)
}

func TestViewer_CloseStopsPublishing(t *testing.T) {
	updated := false
	v := New(sampleStore(), nil, Config{
		Debounce: 10 * time.Millisecond,
		OnUpdate: func(Snapshot) { updated = true },
	})

	require.NoError(t, v.SetValues("country", []any{"AT"}))
	v.Close()
	time.Sleep(30 * time.Millisecond)
	waitIdle(t, v)

	assert.False(t, updated)
	assert.Zero(t, v.Snapshot().Seq)
}

// gateNotifier blocks inside Error until released.
type gateNotifier struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gateNotifier) Error(string, string) {
	g.once.Do(func() { close(g.entered) })
	<-g.release
}

func TestViewer_CloseDuringNotifyDropsUpdate(t *testing.T) {
	gate := &gateNotifier{entered: make(chan struct{}), release: make(chan struct{})}
	var updated atomic.Bool
	v := New(failingChartStore{sampleStore()}, gate, Config{
		Debounce: 10 * time.Millisecond,
		OnUpdate: func(Snapshot) { updated.Store(true) },
	})

	v.SearchNow()
	select {
	case <-gate.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("notifier was not called")
	}

	v.Close()
	close(gate.release)

	assert.Never(t, updated.Load, 100*time.Millisecond, 5*time.Millisecond)
}
