// Package matcher decides, row by row, which catalog product an input row
// refers to. A row's inputs are mapped onto catalog attributes, turned into an
// exact GTIN lookup and a weighted text search, classified by relevance and
// projected into the fixed output layout.
package matcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/query"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/tracing"
)

// OutputColumn describes one column of the output layout.
type OutputColumn struct {
	Name string             `json:"name"`
	Type product.ColumnType `json:"type"`
}

// OutputColumns returns the output layout in column order.
func OutputColumns() []OutputColumn {
	fields := product.OutputFields()
	cols := make([]OutputColumn, len(fields))
	for i, f := range fields {
		cols[i] = OutputColumn{Name: f.Name(), Type: f.DataType()}
	}
	return cols
}

// Event summarizes the decision taken for one row.
type Event struct {
	RequestID string              `json:"request_id,omitempty"`
	Status    product.MatchStatus `json:"status"`
	Strategy  query.Strategy      `json:"strategy,omitempty"`
	Score     float64             `json:"score,omitempty"`
	Segment   string              `json:"segment,omitempty"`
	LatencyMs int64               `json:"latency_ms"`
	Timestamp time.Time           `json:"timestamp"`
}

// Result is the detailed outcome of matching one row.
type Result struct {
	Row        Row                 `json:"row"`
	Status     product.MatchStatus `json:"status"`
	Strategy   query.Strategy      `json:"strategy,omitempty"`
	Hit        *Hit                `json:"hit,omitempty"`
	Attributes product.Attributes  `json:"attributes"`
	Latency    time.Duration       `json:"-"`
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithStats records every row's status and segment into s.
func WithStats(s StatsRecorder) Option {
	return func(t *Transformer) { t.stats = s }
}

// WithEvents emits an Event per row into sink.
func WithEvents(sink EventSink) Option {
	return func(t *Transformer) { t.events = sink }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Transformer) { t.metrics = m }
}

func WithQueryConfig(cfg query.Config) Option {
	return func(t *Transformer) { t.builder = query.NewBuilder(cfg) }
}

func WithThresholds(th Thresholds) Option {
	return func(t *Transformer) { t.classifier = NewClassifier(th) }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Transformer) { t.logger = l }
}

// Transformer matches rows laid out per a fixed column mapping. It holds no
// per-row state and is safe for concurrent use.
type Transformer struct {
	mapping    []product.InputField
	gateway    SearchGateway
	builder    *query.Builder
	classifier *Classifier
	stats      StatsRecorder
	events     EventSink
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// New creates a Transformer for rows whose i-th value plays role mapping[i].
func New(mapping []product.InputField, gateway SearchGateway, opts ...Option) (*Transformer, error) {
	if len(mapping) == 0 {
		return nil, apperrors.Invalid("column mapping is empty")
	}
	for i, f := range mapping {
		if !f.Valid() {
			return nil, apperrors.Invalid("column %d: unknown input field %d", i, int(f))
		}
	}
	if gateway == nil {
		return nil, apperrors.Invalid("search gateway is required")
	}
	t := &Transformer{
		mapping:    append([]product.InputField(nil), mapping...),
		gateway:    gateway,
		builder:    query.NewBuilder(query.DefaultConfig()),
		classifier: NewClassifier(DefaultThresholds()),
		logger:     logger.WithComponent("product-matcher"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// OutputColumns returns the output layout.
func (t *Transformer) OutputColumns() []OutputColumn {
	return OutputColumns()
}

// Transform matches one row and returns its output row.
func (t *Transformer) Transform(ctx context.Context, values []any) (Row, error) {
	res, err := t.Match(ctx, values)
	if err != nil {
		return nil, err
	}
	return res.Row, nil
}

// Match matches one row and reports how the decision was reached. A search
// failure aborts the row; it is returned without touching statistics.
func (t *Transformer) Match(ctx context.Context, values []any) (*Result, error) {
	if len(values) != len(t.mapping) {
		return nil, apperrors.Invalid("row has %d values, mapping has %d columns", len(values), len(t.mapping))
	}
	inputs := make([]Input, len(values))
	for i, v := range values {
		inputs[i] = Input{Value: v, Field: t.mapping[i]}
	}
	return t.MatchAttributes(ctx, MapInputs(inputs))
}

// MatchAttributes matches an already mapped attribute map.
func (t *Transformer) MatchAttributes(ctx context.Context, attrs product.Attributes) (*Result, error) {
	start := time.Now()
	root := tracing.SpanFromContext(ctx) == nil
	ctx, span := tracing.StartSpan(ctx, "match_row")
	defer func() {
		span.End()
		if root {
			span.Log(t.logger)
		}
	}()

	res, err := t.decide(ctx, attrs)
	if err != nil {
		span.SetAttr("error", err.Error())
		logger.FromContext(ctx).Warn("row aborted", "component", "product-matcher", "error", err)
		return nil, err
	}
	span.SetAttr("status", string(res.Status))
	res.Row = Assemble(attrs, res.Hit, res.Status)
	res.Latency = time.Since(start)
	t.record(ctx, res)
	return res, nil
}

func (t *Transformer) decide(ctx context.Context, attrs product.Attributes) (*Result, error) {
	res := &Result{Attributes: attrs, Status: product.StatusSkipped}
	if len(attrs) == 0 {
		return res, nil
	}
	plan := t.builder.Build(attrs)
	if plan.Empty() {
		return res, nil
	}

	if plan.Lookup != nil {
		res.Strategy = query.StrategyExactLookup
		hit, err := t.search(ctx, query.StrategyExactLookup, *plan.Lookup)
		if err != nil {
			return nil, err
		}
		status := t.classifier.Classify(Outcome{
			Formed:   true,
			Strategy: query.StrategyExactLookup,
			Hit:      hit,
		}, attrs.Only(product.FieldGTIN))
		if status.Usable() {
			res.Status, res.Hit = status, hit
			return res, nil
		}
		res.Status = product.StatusNoMatch
		if plan.Text == nil {
			return res, nil
		}
		t.logger.Debug("lookup not corroborated, falling back to text search", "gtin", plan.Lookup.Value)
	}

	res.Strategy = query.StrategyTextSearch
	hit, err := t.search(ctx, query.StrategyTextSearch, plan.Text)
	if err != nil {
		return nil, err
	}
	res.Status = t.classifier.Classify(Outcome{
		Formed:   true,
		Strategy: query.StrategyTextSearch,
		Hit:      hit,
	}, false)
	if res.Status.Usable() {
		res.Hit = hit
	}
	return res, nil
}

func (t *Transformer) search(ctx context.Context, strategy query.Strategy, q query.Query) (*Hit, error) {
	ctx, span := tracing.StartSpan(ctx, string(strategy))
	defer span.End()
	start := time.Now()
	hit, err := t.gateway.Search(ctx, q)
	if hit != nil {
		span.SetAttr("score", hit.Score)
	}
	if t.metrics != nil {
		t.metrics.SearchDuration.WithLabelValues(string(strategy)).Observe(time.Since(start).Seconds())
	}
	return hit, err
}

func (t *Transformer) record(ctx context.Context, res *Result) {
	segment, _ := res.Row.Segment()
	if t.stats != nil {
		t.stats.Record(res.Status, segment)
	}
	if t.metrics != nil {
		t.metrics.RowsTotal.WithLabelValues(string(res.Status)).Inc()
	}
	if t.events != nil {
		ev := Event{
			Status:    res.Status,
			Strategy:  res.Strategy,
			Segment:   segment,
			LatencyMs: res.Latency.Milliseconds(),
			Timestamp: time.Now().UTC(),
		}
		if res.Hit != nil {
			ev.Score = res.Hit.Score
		}
		ev.RequestID, _ = logger.RequestID(ctx)
		t.events.Track(ev)
	}
}
