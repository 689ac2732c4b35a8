// Package memstore is an in-memory connection record store that executes
// netquery queries. It backs fixture mode and tests.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/usestring/netquery-mcp/pkg/netquery"
)

// Default chart layout: 60 buckets of 10 seconds.
const (
	DefaultChartWindow = 10 * time.Minute
	DefaultChartBucket = 10 * time.Second
)

// Store keeps connections in memory with Roaring bitmap indexes per
// column value.
type Store struct {
	mu sync.RWMutex

	rows  []netquery.Row
	conns []Connection
	all   *roaring.Bitmap

	// column -> value key -> doc IDs
	index map[string]map[string]*roaring.Bitmap

	now    func() time.Time
	window time.Duration
	bucket time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used to place chart buckets.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithChartLayout sets the chart window and bucket width.
func WithChartLayout(window, bucket time.Duration) Option {
	return func(s *Store) {
		if window > 0 {
			s.window = window
		}
		if bucket > 0 {
			s.bucket = bucket
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		all:    roaring.New(),
		index:  make(map[string]map[string]*roaring.Bitmap),
		now:    time.Now,
		window: DefaultChartWindow,
		bucket: DefaultChartBucket,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add indexes conns.
func (s *Store) Add(conns ...Connection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range conns {
		docID := uint32(len(s.rows))
		row := conns[i].row()
		s.rows = append(s.rows, row)
		s.conns = append(s.conns, conns[i])
		s.all.Add(docID)

		for field, v := range row {
			byValue, ok := s.index[field]
			if !ok {
				byValue = make(map[string]*roaring.Bitmap)
				s.index[field] = byValue
			}
			key := valueKey(v)
			bm, ok := byValue[key]
			if !ok {
				bm = roaring.New()
				byValue[key] = bm
			}
			bm.Add(docID)
		}
	}
}

// Len returns the number of stored connections.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Query executes q.
func (s *Store) Query(ctx context.Context, q *netquery.Query) ([]netquery.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates, err := s.filter(q.Query)
	if err != nil {
		return nil, err
	}

	var rows []netquery.Row
	switch {
	case len(q.GroupBy) > 0:
		rows, err = s.groupRows(candidates, q)
	case aggregatesOnly(q.Select):
		var row netquery.Row
		row, err = s.aggregate(candidates, nil, q.Select)
		rows = []netquery.Row{row}
	default:
		rows, err = s.projectRows(candidates, q.Select)
	}
	if err != nil {
		return nil, err
	}

	if err := sortRows(rows, q.OrderBy); err != nil {
		return nil, err
	}

	slog.Debug("memstore query executed",
		slog.Int("candidates", int(candidates.GetCardinality())),
		slog.Int("rows", len(rows)),
	)
	return rows, nil
}

// ActiveConnectionChart counts connections matching cond that were active
// in each bucket of the chart window ending now.
func (s *Store) ActiveConnectionChart(ctx context.Context, cond netquery.Condition) ([]netquery.ChartResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates, err := s.filter(cond)
	if err != nil {
		return nil, err
	}

	bucket := int64(s.bucket / time.Second)
	if bucket <= 0 {
		bucket = 1
	}
	end := (s.now().Unix() / bucket) * bucket
	start := end - int64(s.window/time.Second) + bucket

	docIDs := candidates.ToArray()
	chart := make([]netquery.ChartResult, 0, (end-start)/bucket+1)
	for ts := start; ts <= end; ts += bucket {
		bucketEnd := ts + bucket - 1
		count := 0
		for _, docID := range docIDs {
			c := &s.conns[docID]
			if c.Started > bucketEnd {
				continue
			}
			if c.Ended != 0 && c.Ended < ts {
				continue
			}
			count++
		}
		chart = append(chart, netquery.ChartResult{Timestamp: ts, Count: count})
	}
	return chart, nil
}

// filter returns the docs matching every field predicate of cond.
func (s *Store) filter(cond netquery.Condition) (*roaring.Bitmap, error) {
	result := s.all.Clone()
	for field, p := range cond {
		bm, err := s.match(field, p)
		if err != nil {
			return nil, err
		}
		result.And(bm)
		if result.IsEmpty() {
			break
		}
	}
	return result, nil
}

// match evaluates one predicate. Within a sequence, $like entries are
// alternatives and all other entries must hold.
func (s *Store) match(field string, p any) (*roaring.Bitmap, error) {
	if !columns[field] {
		return nil, fmt.Errorf("unknown column %q", field)
	}

	switch v := p.(type) {
	case []any:
		result := s.all.Clone()
		likes := roaring.New()
		hasLike := false
		for _, item := range v {
			bm, err := s.match(field, item)
			if err != nil {
				return nil, err
			}
			if _, isLike := item.(netquery.Like); isLike {
				likes.Or(bm)
				hasLike = true
				continue
			}
			result.And(bm)
		}
		if hasLike {
			result.And(likes)
		}
		return result, nil

	case netquery.In:
		result := roaring.New()
		for _, value := range v {
			if bm := s.lookup(field, value); bm != nil {
				result.Or(bm)
			}
		}
		return result, nil

	case netquery.Like:
		return s.scanLike(field, string(v))

	case netquery.Condition, map[string]any:
		return nil, fmt.Errorf("unsupported predicate on column %q", field)

	default:
		if bm := s.lookup(field, v); bm != nil {
			return bm.Clone(), nil
		}
		return roaring.New(), nil
	}
}

func (s *Store) lookup(field string, value any) *roaring.Bitmap {
	return s.index[field][valueKey(value)]
}

// scanLike matches column values against a SQL LIKE pattern. The value
// index is scanned rather than the rows.
func (s *Store) scanLike(field, pattern string) (*roaring.Bitmap, error) {
	re, err := likeRegexp(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid like pattern %q: %w", pattern, err)
	}

	result := roaring.New()
	for key, bm := range s.index[field] {
		if key == "null" {
			continue
		}
		value, ok := strings.CutPrefix(key, "s:")
		if !ok {
			// LIKE compares the textual form of non-string values.
			value = key
		}
		if re.MatchString(value) {
			result.Or(bm)
		}
	}
	return result, nil
}

// likeRegexp translates a LIKE pattern (% and _ wildcards, case-insensitive)
// into an anchored regular expression.
func likeRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?is)^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

func aggregatesOnly(sel []netquery.Select) bool {
	if len(sel) == 0 {
		return false
	}
	for _, s := range sel {
		if s.Count == nil && s.Sum == nil {
			return false
		}
	}
	return true
}

type group struct {
	sample  netquery.Row
	members *roaring.Bitmap
}

// groupRows returns one row per distinct combination of group-by values,
// in order of first appearance.
func (s *Store) groupRows(candidates *roaring.Bitmap, q *netquery.Query) ([]netquery.Row, error) {
	for _, field := range q.GroupBy {
		if !columns[field] {
			return nil, fmt.Errorf("unknown column %q", field)
		}
	}

	var order []string
	groups := make(map[string]*group)

	it := candidates.Iterator()
	for it.HasNext() {
		docID := it.Next()
		row := s.rows[docID]

		parts := make([]string, len(q.GroupBy))
		for i, field := range q.GroupBy {
			parts[i] = valueKey(row[field])
		}
		key := strings.Join(parts, "\x00")

		g, ok := groups[key]
		if !ok {
			g = &group{sample: row, members: roaring.New()}
			groups[key] = g
			order = append(order, key)
		}
		g.members.Add(docID)
	}

	sel := q.Select
	if len(sel) == 0 {
		for _, field := range q.GroupBy {
			sel = append(sel, netquery.Field(field))
		}
	}

	rows := make([]netquery.Row, 0, len(order))
	for _, key := range order {
		g := groups[key]
		row, err := s.aggregate(g.members, g.sample, sel)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// aggregate computes one output row over members. Plain field selects are
// taken from sample.
func (s *Store) aggregate(members *roaring.Bitmap, sample netquery.Row, sel []netquery.Select) (netquery.Row, error) {
	row := make(netquery.Row, len(sel))
	for _, item := range sel {
		switch {
		case item.Count != nil:
			n, err := s.count(members, item.Count)
			if err != nil {
				return nil, err
			}
			row[item.Count.As] = n

		case item.Sum != nil:
			matching, err := s.filter(item.Sum.Condition)
			if err != nil {
				return nil, err
			}
			row[item.Sum.As] = int(roaring.And(members, matching).GetCardinality())

		default:
			if !columns[item.Field] {
				return nil, fmt.Errorf("unknown column %q", item.Field)
			}
			if sample != nil {
				row[item.Field] = sample[item.Field]
			} else {
				row[item.Field] = nil
			}
		}
	}
	return row, nil
}

func (s *Store) count(members *roaring.Bitmap, c *netquery.Count) (int, error) {
	if c.Field == "*" {
		return int(members.GetCardinality()), nil
	}
	if !columns[c.Field] {
		return 0, fmt.Errorf("unknown column %q", c.Field)
	}

	seen := make(map[string]bool)
	n := 0
	it := members.Iterator()
	for it.HasNext() {
		v := s.rows[it.Next()][c.Field]
		if v == nil {
			continue
		}
		if c.Distinct {
			key := valueKey(v)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		n++
	}
	return n, nil
}

func (s *Store) projectRows(candidates *roaring.Bitmap, sel []netquery.Select) ([]netquery.Row, error) {
	for _, item := range sel {
		if !columns[item.Field] {
			return nil, fmt.Errorf("unknown column %q", item.Name())
		}
	}

	rows := make([]netquery.Row, 0, candidates.GetCardinality())
	it := candidates.Iterator()
	for it.HasNext() {
		src := s.rows[it.Next()]
		row := make(netquery.Row, len(src))
		if len(sel) == 0 {
			for k, v := range src {
				row[k] = v
			}
		} else {
			for _, item := range sel {
				row[item.Field] = src[item.Field]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func sortRows(rows []netquery.Row, orderBy []netquery.OrderBy) error {
	if len(orderBy) == 0 || len(rows) == 0 {
		return nil
	}
	for _, o := range orderBy {
		if _, ok := rows[0][o.Field]; !ok {
			return fmt.Errorf("cannot order by %q: not part of the result", o.Field)
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range orderBy {
			c := compareValues(rows[i][o.Field], rows[j][o.Field])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	return nil
}

// compareValues orders nil first, then numbers, then strings.
func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	switch {
	case aNum && bNum:
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case aNum:
		return -1
	case bNum:
		return 1
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case netquery.Verdict:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// valueKey returns an index key under which equal values collide
// regardless of their Go numeric type.
func valueKey(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return "s:" + val
	case bool:
		return strconv.FormatBool(val)
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
