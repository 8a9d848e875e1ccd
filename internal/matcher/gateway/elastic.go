// Package gateway executes match queries against the Elasticsearch product
// index and guards the calls with a rate limiter, timeouts, retries and a
// circuit breaker.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/query"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/errors"
)

// Elastic is a matcher.SearchGateway over one Elasticsearch index.
type Elastic struct {
	client *elasticsearch.Client
	index  string
	logger *slog.Logger
}

// NewElastic creates a client for cfg. Transport-level retries are disabled;
// Resilient owns the retry policy.
func NewElastic(cfg config.ElasticsearchConfig) (*Elastic, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    cfg.Addresses,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}
	return &Elastic{
		client: client,
		index:  cfg.Index,
		logger: slog.Default().With("component", "elastic-gateway", "index", cfg.Index),
	}, nil
}

type searchRequest struct {
	Query map[string]any `json:"query"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score  *float64                   `json:"_score"`
			Source map[string]json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// Search returns the top hit for q, or nil when nothing matched.
func (e *Elastic) Search(ctx context.Context, q query.Query) (*matcher.Hit, error) {
	body, err := json.Marshal(searchRequest{Query: query.Source(q)})
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}
	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(body)),
		e.client.Search.WithSize(1),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", apperrors.ErrSearchUnavailable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, responseError(res.StatusCode, res.Body)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: decoding search response: %w", apperrors.ErrSearchUnavailable, err)
	}
	if len(sr.Hits.Hits) == 0 {
		return nil, nil
	}
	top := sr.Hits.Hits[0]
	hit := &matcher.Hit{Fields: make(map[product.SearchField]string, len(top.Source))}
	if top.Score != nil {
		hit.Score = *top.Score
	}
	for _, f := range product.SearchFields() {
		if f.IsPseudo() {
			continue
		}
		raw, ok := top.Source[f.FieldName()]
		if !ok {
			continue
		}
		if v, ok := sourceValue(raw); ok {
			hit.Fields[f] = v
		}
	}
	e.logger.Debug("search hit", "score", hit.Score)
	return hit, nil
}

// Ping checks that the cluster answers.
func (e *Elastic) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrSearchUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: ping returned %s", apperrors.ErrSearchUnavailable, res.Status())
	}
	return nil
}

// sourceValue renders a _source value as text. Null is absent.
func sourceValue(raw json.RawMessage) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || v == nil {
		return "", false
	}
	switch v := v.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return fmt.Sprint(v), true
	}
}

func responseError(status int, body io.Reader) error {
	var er errorResponse
	reason := http.StatusText(status)
	if err := json.NewDecoder(body).Decode(&er); err == nil && er.Error.Reason != "" {
		reason = er.Error.Type + ": " + er.Error.Reason
	}
	sentinel := apperrors.ErrInternal
	switch {
	case status == http.StatusTooManyRequests:
		sentinel = apperrors.ErrRateLimited
	case status == http.StatusNotFound, status >= 500:
		sentinel = apperrors.ErrSearchUnavailable
	}
	return fmt.Errorf("%w: elasticsearch returned %d: %s", sentinel, status, reason)
}
