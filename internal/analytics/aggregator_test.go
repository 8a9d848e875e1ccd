package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/query"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

func TestRecordAndSummarize(t *testing.T) {
	agg := NewAggregator()
	agg.Record(product.StatusGood, "Beverages")
	agg.Record(product.StatusGood, "Beverages")
	agg.Record(product.StatusPotential, "Food")
	agg.Record(product.StatusSkipped, "")

	s := agg.Summarize()
	assert.Equal(t, map[string]int64{
		"GOOD_MATCH":      2,
		"POTENTIAL_MATCH": 1,
		"SKIPPED":         1,
	}, s.MatchStatuses)
	assert.Equal(t, map[string]int64{"Beverages": 2, "Food": 1}, s.Segments)
	assert.EqualValues(t, 4, s.Total())
}

func TestRecordConcurrent(t *testing.T) {
	const (
		goroutines = 16
		perWorker  = 500
	)
	agg := NewAggregator()
	statuses := product.MatchStatuses()

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				status := statuses[(g+i)%len(statuses)]
				segment := ""
				if status.Usable() {
					segment = "Beverages"
				}
				agg.Record(status, segment)
				if i%50 == 0 {
					agg.Summarize()
				}
			}
		}(g)
	}
	wg.Wait()

	s := agg.Summarize()
	assert.EqualValues(t, goroutines*perWorker, s.Total())
	for _, st := range statuses {
		assert.EqualValues(t, goroutines*perWorker/len(statuses), s.MatchStatuses[string(st)], st)
	}
	assert.EqualValues(t, goroutines*perWorker/2, s.Segments["Beverages"])
}

func TestReset(t *testing.T) {
	agg := NewAggregator()
	agg.Record(product.StatusNoMatch, "")
	agg.RecordEvent(matcher.Event{Status: product.StatusGood, Segment: "Food", Strategy: query.StrategyTextSearch, LatencyMs: 3})
	agg.Reset()

	s := agg.Summarize()
	assert.Empty(t, s.MatchStatuses)
	assert.Empty(t, s.Segments)
	stats := agg.Stats()
	assert.Zero(t, stats.TotalRows)
	assert.Empty(t, stats.Strategies)
	assert.Zero(t, stats.AvgLatencyMs)
}

func TestStatsFromEvents(t *testing.T) {
	agg := NewAggregator()
	for i := 1; i <= 10; i++ {
		agg.RecordEvent(matcher.Event{
			Status:    product.StatusGood,
			Strategy:  query.StrategyExactLookup,
			Segment:   "Beverages",
			LatencyMs: int64(i),
		})
	}
	agg.RecordEvent(matcher.Event{Status: product.StatusNoMatch, Strategy: query.StrategyTextSearch, LatencyMs: 100})

	stats := agg.Stats()
	assert.EqualValues(t, 11, stats.TotalRows)
	assert.Equal(t, map[string]int64{"exact_lookup": 10, "text_search": 1}, stats.Strategies)
	assert.EqualValues(t, 100, stats.P99LatencyMs)
	assert.InDelta(t, 155.0/11.0, stats.AvgLatencyMs, 1e-9)
	require.Len(t, stats.TopSegments, 1)
	assert.Equal(t, SegmentCount{Segment: "Beverages", Count: 10}, stats.TopSegments[0])
}

func TestHandleEvent(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)

	value, err := json.Marshal(matcher.Event{Status: product.StatusPotential, Segment: "Food"})
	require.NoError(t, err)
	require.NoError(t, handle(context.Background(), nil, value))
	require.NoError(t, handle(context.Background(), nil, []byte("{not json")))
	require.NoError(t, handle(context.Background(), nil, []byte(`{"status":"MAYBE"}`)))

	s := agg.Summarize()
	assert.Equal(t, map[string]int64{"POTENTIAL_MATCH": 1, "MAYBE": 1}, s.MatchStatuses)
	assert.Equal(t, map[string]int64{"Food": 1}, s.Segments)
}

func TestHandlerStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(product.StatusGood, "Beverages")
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		MatchStatuses map[string]int64 `json:"match_statuses"`
		Segments      map[string]int64 `json:"segments"`
		TotalRows     int64            `json:"total_rows"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, map[string]int64{"GOOD_MATCH": 1}, body.MatchStatuses)
	assert.Equal(t, map[string]int64{"Beverages": 1}, body.Segments)
	assert.EqualValues(t, 1, body.TotalRows)

	rec = httptest.NewRecorder()
	h.Reset(rec, httptest.NewRequest(http.MethodPost, "/api/v1/stats/reset", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, agg.Summarize().MatchStatuses)
}

func TestHandlerSummaryView(t *testing.T) {
	agg := NewAggregator()
	agg.Record(product.StatusNoMatch, "")
	mux := http.NewServeMux()
	NewHandler(agg).Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats?view=summary", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body, "match_statuses")
	assert.NotContains(t, body, "total_rows")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats?view=chart", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
