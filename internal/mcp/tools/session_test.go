package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/usestring/netquery-mcp/internal/aggregate"
)

// SearchSessionTestSuite drives the tools through multi-step sessions on
// one search view.
type SearchSessionTestSuite struct {
	suite.Suite
	d   *Deps
	ctx context.Context
}

func (s *SearchSessionTestSuite) SetupTest() {
	s.d = newDeps(s.T())
	s.ctx = testCtx(s.T())
}

func (s *SearchSessionTestSuite) filter(input FilterInput) FilterOutput {
	_, out, err := ToolFilter(s.d)(s.ctx, nil, input)
	s.Require().NoError(err)
	return out
}

func (s *SearchSessionTestSuite) results(input ResultsInput) ResultsOutput {
	_, out, err := ToolResults(s.d)(s.ctx, nil, input)
	s.Require().NoError(err)
	return out
}

func (s *SearchSessionTestSuite) TestWidenSelectionFromSuggestions() {
	s.filter(FilterInput{Values: map[string][]any{"country": {"AT"}}})
	s.Equal(2, s.results(ResultsInput{}).TotalCount)

	_, sugg, err := ToolSuggest(s.d)(s.ctx, nil, SuggestInput{Field: "country"})
	s.Require().NoError(err)
	s.Require().NotEmpty(sugg.Suggestions)
	s.Equal("AT", sugg.Suggestions[0].Value)

	var values []any
	for _, sg := range sugg.Suggestions {
		values = append(values, sg.Value)
	}
	out := s.filter(FilterInput{Values: map[string][]any{"country": values}})
	s.Equal(7, out.TotalCount)
}

func (s *SearchSessionTestSuite) TestGroupDrillDown() {
	s.filter(FilterInput{GroupBy: []string{"country"}})
	res := s.results(ResultsInput{JQ: `select(.country == "US") | .totalCount`})
	s.Equal([]any{4}, res.Projection.Values)

	s.filter(FilterInput{
		Values:  map[string][]any{"country": {"US"}},
		GroupBy: []string{"as_owner"},
	})
	res = s.results(ResultsInput{JQ: ".as_owner", Deduplicate: true})
	s.ElementsMatch([]any{"EXAMPLE-NET", "GITHUB"}, res.Projection.Values)
}

func (s *SearchSessionTestSuite) TestChartsResetOnNewResult() {
	s.filter(FilterInput{GroupBy: []string{"country"}})
	key := `{"country":"DE"}`

	_, charts, err := ToolGroupChart(s.d)(s.ctx, nil, GroupChartInput{Keys: []string{key}})
	s.Require().NoError(err)
	s.Equal(aggregate.ChartResolved, charts.Charts[0].State)

	s.filter(FilterInput{GroupBy: []string{"direction"}})

	_, _, err = ToolGroupChart(s.d)(s.ctx, nil, GroupChartInput{Keys: []string{key}})
	requireCode(s.T(), err, ErrCodeNotFound)
}

func (s *SearchSessionTestSuite) TestFreeTextAcrossFields() {
	out := s.filter(FilterInput{TextSearch: strPtr("curl")})
	s.Zero(out.TotalCount)

	out = s.filter(FilterInput{TextSearch: strPtr("")})
	s.Equal(7, out.TotalCount)
}

func TestSearchSessionTestSuite(t *testing.T) {
	suite.Run(t, new(SearchSessionTestSuite))
}
