package matcher

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/query"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

// SearchGateway executes a query against the product index and returns the
// single highest-scoring hit, or nil when nothing matched. Transport failures
// are returned as errors and abort the row.
type SearchGateway interface {
	Search(ctx context.Context, q query.Query) (*Hit, error)
}

// SearchFunc adapts a function to SearchGateway.
type SearchFunc func(ctx context.Context, q query.Query) (*Hit, error)

func (f SearchFunc) Search(ctx context.Context, q query.Query) (*Hit, error) {
	return f(ctx, q)
}

// StatsRecorder receives one call per matched row. Implementations must be
// safe for concurrent use.
type StatsRecorder interface {
	Record(status product.MatchStatus, segment string)
}

// EventSink receives a match event per row, for downstream analytics.
type EventSink interface {
	Track(ev Event)
}

// EventSinks fans an event out to every sink in order.
type EventSinks []EventSink

func (s EventSinks) Track(ev Event) {
	for _, sink := range s {
		if sink != nil {
			sink.Track(ev)
		}
	}
}
