// Package analytics aggregates match statistics: per-status and per-segment
// row counts for a run, plus strategy and latency figures when fed with match
// events.
package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/kafka"
)

const maxLatencySamples = 10000

// Summary is the reporting view of a run: row counts keyed by match status
// and by the GPC segment of the matched product.
type Summary struct {
	MatchStatuses map[string]int64 `json:"match_statuses"`
	Segments      map[string]int64 `json:"segments"`
}

// Total returns the number of rows counted in the summary.
func (s Summary) Total() int64 {
	var n int64
	for _, c := range s.MatchStatuses {
		n += c
	}
	return n
}

type AggregatedStats struct {
	Summary
	TotalRows     int64            `json:"total_rows"`
	Strategies    map[string]int64 `json:"strategies"`
	AvgLatencyMs  float64          `json:"avg_latency_ms"`
	P50LatencyMs  int64            `json:"p50_latency_ms"`
	P95LatencyMs  int64            `json:"p95_latency_ms"`
	P99LatencyMs  int64            `json:"p99_latency_ms"`
	TopSegments   []SegmentCount   `json:"top_segments"`
	RowsPerMinute float64          `json:"rows_per_minute"`
	Since         time.Time        `json:"since"`
}

type SegmentCount struct {
	Segment string `json:"segment"`
	Count   int64  `json:"count"`
}

// Aggregator is the statistics state shared by every row of a run. Status
// counters are atomic; segment, strategy and latency tables are guarded by a
// mutex. Summaries taken while rows are still being recorded are best effort.
type Aggregator struct {
	statuses  [4]atomic.Int64
	totalRows atomic.Int64

	mu         sync.RWMutex
	other      map[product.MatchStatus]int64
	segments   map[string]int64
	strategies map[string]int64
	latencies  []int64
	nextSample int
	startTime  time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	a := &Aggregator{logger: slog.Default().With("component", "match-statistics")}
	a.Reset()
	return a
}

func statusSlot(s product.MatchStatus) (int, bool) {
	switch s {
	case product.StatusGood:
		return 0, true
	case product.StatusPotential:
		return 1, true
	case product.StatusNoMatch:
		return 2, true
	case product.StatusSkipped:
		return 3, true
	}
	return 0, false
}

// Reset clears every counter. Runs call it before their first row.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := range a.statuses {
		a.statuses[i].Store(0)
	}
	a.totalRows.Store(0)
	a.other = make(map[product.MatchStatus]int64)
	a.segments = make(map[string]int64)
	a.strategies = make(map[string]int64)
	a.latencies = make([]int64, 0, 1024)
	a.nextSample = 0
	a.startTime = time.Now()
}

// Record counts one row. An empty segment is not counted.
func (a *Aggregator) Record(status product.MatchStatus, segment string) {
	a.totalRows.Add(1)
	slot, known := statusSlot(status)
	if known {
		a.statuses[slot].Add(1)
		if segment == "" {
			return
		}
	}
	a.mu.Lock()
	if !known {
		a.other[status]++
	}
	if segment != "" {
		a.segments[segment]++
	}
	a.mu.Unlock()
}

// RecordEvent counts a row reported through a match event.
func (a *Aggregator) RecordEvent(ev matcher.Event) {
	a.Record(ev.Status, ev.Segment)
	a.mu.Lock()
	if ev.Strategy != "" {
		a.strategies[string(ev.Strategy)]++
	}
	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, ev.LatencyMs)
	} else {
		a.latencies[a.nextSample] = ev.LatencyMs
		a.nextSample = (a.nextSample + 1) % maxLatencySamples
	}
	a.mu.Unlock()
}

// Track makes the aggregator usable as a matcher.EventSink.
func (a *Aggregator) Track(ev matcher.Event) {
	a.RecordEvent(ev)
}

// Summarize returns a snapshot of the status and segment counts. Statuses no
// row has reached yet are absent.
func (a *Aggregator) Summarize() Summary {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.summaryLocked()
}

func (a *Aggregator) summaryLocked() Summary {
	s := Summary{
		MatchStatuses: make(map[string]int64, len(a.statuses)+len(a.other)),
		Segments:      make(map[string]int64, len(a.segments)),
	}
	for _, st := range product.MatchStatuses() {
		slot, _ := statusSlot(st)
		if n := a.statuses[slot].Load(); n > 0 {
			s.MatchStatuses[string(st)] = n
		}
	}
	for st, n := range a.other {
		s.MatchStatuses[string(st)] = n
	}
	for seg, n := range a.segments {
		s.Segments[seg] = n
	}
	return s
}

// Stats returns the summary together with strategy and latency figures.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		Summary:    a.summaryLocked(),
		TotalRows:  a.totalRows.Load(),
		Strategies: make(map[string]int64, len(a.strategies)),
		Since:      a.startTime.UTC(),
	}
	for k, v := range a.strategies {
		stats.Strategies[k] = v
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopSegments = topN(a.segments, 10)
	elapsed := time.Since(a.startTime).Minutes()
	if elapsed > 0 {
		stats.RowsPerMinute = float64(stats.TotalRows) / elapsed
	}
	return stats
}

// HandleEvent returns a Kafka handler feeding match events into agg.
// Undecodable messages are logged and acknowledged.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[matcher.Event](value)
		if err != nil {
			agg.logger.Error("failed to decode match event", "error", err)
			return nil
		}
		if _, err := product.ParseMatchStatus(string(event.Status)); err != nil {
			agg.logger.Warn("match event with unknown status", "error", err)
		}
		agg.RecordEvent(event)
		return nil
	}
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []SegmentCount {
	result := make([]SegmentCount, 0, len(counts))
	for segment, count := range counts {
		result = append(result, SegmentCount{Segment: segment, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Segment < result[j].Segment
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
