package matcher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/query"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/errors"
)

// fakeGateway answers term queries from byGTIN and every other query with text.
type fakeGateway struct {
	mu      sync.Mutex
	byGTIN  map[string]*Hit
	text    *Hit
	err     error
	queries []query.Query
}

func (g *fakeGateway) Search(_ context.Context, q query.Query) (*Hit, error) {
	g.mu.Lock()
	g.queries = append(g.queries, q)
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	if term, ok := q.(query.Term); ok {
		return g.byGTIN[term.Value], nil
	}
	return g.text, nil
}

type recordedStat struct {
	status  product.MatchStatus
	segment string
}

type fakeStats struct {
	mu      sync.Mutex
	records []recordedStat
}

func (s *fakeStats) Record(status product.MatchStatus, segment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, recordedStat{status, segment})
}

type fakeSink struct{ events []Event }

func (s *fakeSink) Track(ev Event) { s.events = append(s.events, ev) }

func newTransformer(t *testing.T, mapping []product.InputField, gw SearchGateway, opts ...Option) *Transformer {
	t.Helper()
	tr, err := New(mapping, gw, opts...)
	require.NoError(t, err)
	return tr
}

func TestNewRejectsBadMapping(t *testing.T) {
	_, err := New(nil, &fakeGateway{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = New([]product.InputField{product.InputField(99)}, &fakeGateway{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = New([]product.InputField{product.InputGTIN}, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestOutputColumns(t *testing.T) {
	cols := OutputColumns()
	require.Len(t, cols, int(product.NumOutputFields))
	assert.Equal(t, OutputColumn{Name: "Match status", Type: product.TypeString}, cols[0])
	assert.Equal(t, OutputColumn{Name: "Match score", Type: product.TypeNumber}, cols[1])
}

func TestTransformBlankRowIsSkipped(t *testing.T) {
	gw := &fakeGateway{}
	stats := &fakeStats{}
	tr := newTransformer(t, []product.InputField{product.InputDescription, product.InputGTIN}, gw, WithStats(stats))

	row, err := tr.Transform(context.Background(), []any{"  ", nil})
	require.NoError(t, err)

	assert.Equal(t, product.StatusSkipped, row.Status())
	for _, f := range product.OutputFields()[1:] {
		assert.Nil(t, row.Get(f))
	}
	assert.Empty(t, gw.queries)
	assert.Equal(t, []recordedStat{{product.StatusSkipped, ""}}, stats.records)
}

func TestTransformRejectsWrongWidth(t *testing.T) {
	tr := newTransformer(t, []product.InputField{product.InputGTIN}, &fakeGateway{})
	_, err := tr.Transform(context.Background(), []any{"1", "2"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestTransformGTINOnlyLookupIsGood(t *testing.T) {
	hit := &Hit{Score: 0.1, Fields: map[product.SearchField]string{
		product.FieldGTIN:       "0300743288131",
		product.FieldGPCSegment: "Beverages",
	}}
	gw := &fakeGateway{byGTIN: map[string]*Hit{"0300743288131": hit}}
	stats := &fakeStats{}
	tr := newTransformer(t, []product.InputField{product.InputGTIN}, gw, WithStats(stats))

	res, err := tr.Match(context.Background(), []any{"300743288131"})
	require.NoError(t, err)

	assert.Equal(t, product.StatusGood, res.Status)
	assert.Equal(t, query.StrategyExactLookup, res.Strategy)
	assert.Equal(t, 0.1, res.Row.Get(product.OutputMatchScore))
	require.Len(t, gw.queries, 1)
	assert.Equal(t, query.Term{Field: product.FieldGTIN, Value: "0300743288131"}, gw.queries[0])
	assert.Equal(t, []recordedStat{{product.StatusGood, "Beverages"}}, stats.records)
}

func TestTransformGTINOnlyWithoutHit(t *testing.T) {
	gw := &fakeGateway{}
	tr := newTransformer(t, []product.InputField{product.InputGTIN}, gw)

	row, err := tr.Transform(context.Background(), []any{"300743288131"})
	require.NoError(t, err)
	assert.Equal(t, product.StatusNoMatch, row.Status())
	assert.Equal(t, "300743288131", row.Get(product.OutputGTINCode))
	assert.Len(t, gw.queries, 1)
}

func TestTransformCorroboratedLookup(t *testing.T) {
	hit := &Hit{Score: 8, Fields: map[product.SearchField]string{product.FieldProductName: "Coca-Cola"}}
	gw := &fakeGateway{byGTIN: map[string]*Hit{"0000000000002": hit}}
	tr := newTransformer(t, []product.InputField{product.InputGTIN, product.InputProductName}, gw)

	res, err := tr.Match(context.Background(), []any{"2", "Coca-Cola"})
	require.NoError(t, err)
	assert.Equal(t, product.StatusGood, res.Status)
	assert.Equal(t, query.StrategyExactLookup, res.Strategy)
	assert.Len(t, gw.queries, 1)
}

func TestTransformUncorroboratedLookupFallsBack(t *testing.T) {
	lookup := &Hit{Score: 1, Fields: map[product.SearchField]string{product.FieldProductName: "Wrong"}}
	text := &Hit{Score: 4, Fields: map[product.SearchField]string{product.FieldProductName: "Right"}}
	gw := &fakeGateway{byGTIN: map[string]*Hit{"0000000000002": lookup}, text: text}
	tr := newTransformer(t, []product.InputField{product.InputGTIN, product.InputProductName}, gw)

	res, err := tr.Match(context.Background(), []any{"2", "Cola"})
	require.NoError(t, err)
	assert.Equal(t, product.StatusPotential, res.Status)
	assert.Equal(t, query.StrategyTextSearch, res.Strategy)
	assert.Equal(t, "Right", res.Row.Get(product.OutputProductName))
	require.Len(t, gw.queries, 2)
	assert.Equal(t, query.Match{Field: product.FieldProductName, Text: "Cola", Boost: 1}, gw.queries[1])
}

func TestTransformRejectedLookupWithoutTextIsNoMatch(t *testing.T) {
	weak := &Hit{Score: 1, Fields: map[product.SearchField]string{product.FieldBSIN: "B2"}}
	gw := &fakeGateway{byGTIN: map[string]*Hit{"0000000000005": weak}}
	tr := newTransformer(t, []product.InputField{product.InputGTIN, product.InputBSIN}, gw)

	res, err := tr.Match(context.Background(), []any{"5", "B1"})
	require.NoError(t, err)
	assert.Equal(t, product.StatusNoMatch, res.Status)
	assert.Equal(t, query.StrategyExactLookup, res.Strategy)
	assert.Nil(t, res.Hit)
	assert.Equal(t, "B1", res.Row.Get(product.OutputBSINCode))
	assert.Len(t, gw.queries, 1)
}

func TestTransformRejectedHitKeepsInput(t *testing.T) {
	gw := &fakeGateway{text: &Hit{Score: 2.9, Fields: map[product.SearchField]string{product.FieldBrandName: "Pepsi"}}}
	tr := newTransformer(t, []product.InputField{product.InputBrandName}, gw)

	row, err := tr.Transform(context.Background(), []any{"Coke"})
	require.NoError(t, err)
	assert.Equal(t, product.StatusNoMatch, row.Status())
	assert.Equal(t, "Coke", row.Get(product.OutputBrandName))
	assert.Nil(t, row.Get(product.OutputMatchScore))
}

func TestTransformWithoutTextClausesIsSkipped(t *testing.T) {
	gw := &fakeGateway{}
	tr := newTransformer(t, []product.InputField{product.InputBSIN, product.InputGTIN}, gw)

	row, err := tr.Transform(context.Background(), []any{"BSIN1", "not a number"})
	require.NoError(t, err)
	assert.Equal(t, product.StatusSkipped, row.Status())
	assert.Equal(t, "BSIN1", row.Get(product.OutputBSINCode))
	assert.Empty(t, gw.queries)
}

func TestTransformDescriptionColumnsAreJoined(t *testing.T) {
	gw := &fakeGateway{}
	tr := newTransformer(t, []product.InputField{product.InputDescription, product.InputDescription}, gw)

	res, err := tr.Match(context.Background(), []any{"Coca-cola", "2"})
	require.NoError(t, err)
	assert.Equal(t, "Coca-cola 2", res.Attributes[product.FieldAll])
	require.Len(t, gw.queries, 1)
	assert.Equal(t, query.Match{Field: product.FieldAll, Text: "Coca-cola 2", Boost: 1}, gw.queries[0])
}

func TestTransformGatewayErrorAbortsRow(t *testing.T) {
	gw := &fakeGateway{err: errors.New("connection refused")}
	stats := &fakeStats{}
	sink := &fakeSink{}
	tr := newTransformer(t, []product.InputField{product.InputProductName}, gw, WithStats(stats), WithEvents(sink))

	row, err := tr.Transform(context.Background(), []any{"Cola"})
	require.Error(t, err)
	assert.Nil(t, row)
	assert.Empty(t, stats.records)
	assert.Empty(t, sink.events)
}

func TestTransformEmitsEvent(t *testing.T) {
	gw := &fakeGateway{text: &Hit{Score: 7.5, Fields: map[product.SearchField]string{product.FieldGPCSegment: "Beverages"}}}
	sink := &fakeSink{}
	tr := newTransformer(t, []product.InputField{product.InputProductName}, gw, WithEvents(sink))

	_, err := tr.Transform(context.Background(), []any{"Cola"})
	require.NoError(t, err)
	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	assert.Equal(t, product.StatusGood, ev.Status)
	assert.Equal(t, query.StrategyTextSearch, ev.Strategy)
	assert.Equal(t, 7.5, ev.Score)
	assert.Equal(t, "Beverages", ev.Segment)
}

func TestEventSinksFanOut(t *testing.T) {
	a, b := &fakeSink{}, &fakeSink{}
	gw := &fakeGateway{text: &Hit{Score: 1}}
	tr := newTransformer(t, []product.InputField{product.InputBrandName}, gw, WithEvents(EventSinks{a, nil, b}))

	_, err := tr.Transform(context.Background(), []any{"Coke"})
	require.NoError(t, err)
	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
	assert.Equal(t, product.StatusNoMatch, b.events[0].Status)
}
