// Package worker answers match requests arriving on a Kafka topic. Each
// request carries its own column mapping and one row; the answer is
// published to the results topic keyed by request ID.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/logger"
)

type MatchRequest struct {
	RequestID string               `json:"request_id"`
	Mapping   []product.InputField `json:"mapping"`
	Values    []any                `json:"values"`
}

// MatchResponse is published for every decodable request. Error is set
// instead of Row when the row could not be matched.
type MatchResponse struct {
	RequestID string              `json:"request_id"`
	Status    product.MatchStatus `json:"status,omitempty"`
	Row       matcher.Row         `json:"row,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// ResultSink buffers responses for publishing. *kafka.Batcher satisfies it.
type ResultSink interface {
	Add(key string, value any)
}

// TransformerFactory builds a Transformer for a column mapping.
type TransformerFactory func(mapping []product.InputField) (*matcher.Transformer, error)

type Worker struct {
	newTransformer TransformerFactory
	sink           ResultSink
	transformers   sync.Map
	logger         *slog.Logger
}

func New(factory TransformerFactory, sink ResultSink) *Worker {
	return &Worker{
		newTransformer: factory,
		sink:           sink,
		logger:         slog.Default().With("component", "match-worker"),
	}
}

// Handler returns the Kafka message handler. Undecodable messages are
// logged and acknowledged; they have no request ID to answer to.
func (w *Worker) Handler() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		req, err := decodeRequest(value)
		if err != nil {
			w.logger.Error("dropping undecodable match request", "key", string(key), "error", err)
			return nil
		}
		if req.RequestID == "" {
			req.RequestID = string(key)
		}
		resp := w.Process(ctx, req)
		w.sink.Add(resp.RequestID, resp)
		return nil
	}
}

// Process matches one request.
func (w *Worker) Process(ctx context.Context, req MatchRequest) MatchResponse {
	resp := MatchResponse{RequestID: req.RequestID}
	if req.RequestID != "" {
		ctx = logger.WithRequestID(ctx, req.RequestID)
	}
	t, err := w.transformer(req.Mapping)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	res, err := t.Match(ctx, req.Values)
	if err != nil {
		logger.FromContext(ctx).Warn("match request failed", "component", "match-worker", "error", err)
		resp.Error = err.Error()
		return resp
	}
	resp.Status = res.Status
	resp.Row = res.Row
	return resp
}

// transformer returns the Transformer for mapping, building it on first use.
func (w *Worker) transformer(mapping []product.InputField) (*matcher.Transformer, error) {
	key := mappingKey(mapping)
	if t, ok := w.transformers.Load(key); ok {
		return t.(*matcher.Transformer), nil
	}
	t, err := w.newTransformer(mapping)
	if err != nil {
		return nil, err
	}
	actual, _ := w.transformers.LoadOrStore(key, t)
	return actual.(*matcher.Transformer), nil
}

func mappingKey(mapping []product.InputField) string {
	parts := make([]string, len(mapping))
	for i, f := range mapping {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

// decodeRequest keeps numbers as json.Number so numeric codes are not
// rounded through float64.
func decodeRequest(value []byte) (MatchRequest, error) {
	var req MatchRequest
	dec := json.NewDecoder(bytes.NewReader(value))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return req, fmt.Errorf("decoding match request: %w", err)
	}
	return req, nil
}
