// Package handler exposes the match engine over HTTP.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/analytics/store"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/runner"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
	apperrors "github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/logger"
)

const maxBodyBytes = 32 << 20

// TransformerFactory builds a Transformer for a column mapping.
type TransformerFactory func(mapping []product.InputField) (*matcher.Transformer, error)

// Cache is the administrative surface of the outcome cache.
type Cache interface {
	Stats() (hits, misses int64)
	Invalidate(ctx context.Context) (int64, error)
}

// RunReader reads persisted runs.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*store.Run, error)
	ListRuns(ctx context.Context, limit int) ([]store.Run, error)
}

type Handler struct {
	newTransformer TransformerFactory
	runner         *runner.Runner
	cache          Cache
	runs           RunReader
	logger         *slog.Logger
}

// New creates a Handler. cache and runs may be nil when those features are
// disabled.
func New(factory TransformerFactory, r *runner.Runner, cache Cache, runs RunReader) *Handler {
	return &Handler{
		newTransformer: factory,
		runner:         r,
		cache:          cache,
		runs:           runs,
		logger:         slog.Default().With("component", "match-handler"),
	}
}

// Register mounts the handler's routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/columns", h.Columns)
	mux.HandleFunc("GET /api/v1/input-fields", h.InputFields)
	mux.HandleFunc("POST /api/v1/transform", h.Transform)
	mux.HandleFunc("POST /api/v1/runs", h.CreateRun)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type TransformRequest struct {
	Mapping []product.InputField `json:"mapping"`
	Values  []any                `json:"values"`
}

type TransformResponse struct {
	Status   product.MatchStatus `json:"status"`
	Strategy string              `json:"strategy,omitempty"`
	Columns  map[string]any      `json:"columns"`
	Row      matcher.Row         `json:"row"`
}

type RunRequest struct {
	Mapping []product.InputField `json:"mapping"`
	Rows    [][]any              `json:"rows"`
}

type inputFieldInfo struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	SearchField string `json:"search_field"`
}

func (h *Handler) Columns(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, matcher.OutputColumns())
}

func (h *Handler) InputFields(w http.ResponseWriter, r *http.Request) {
	fields := product.InputFields()
	out := make([]inputFieldInfo, len(fields))
	for i, f := range fields {
		out[i] = inputFieldInfo{ID: f.String(), Label: f.Label(), SearchField: f.SearchField().String()}
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) Transform(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req TransformRequest
	if err := decode(w, r, &req); err != nil {
		h.writeErr(ctx, w, err)
		return
	}
	t, err := h.newTransformer(req.Mapping)
	if err != nil {
		h.writeErr(ctx, w, err)
		return
	}
	res, err := t.Match(ctx, req.Values)
	if err != nil {
		h.writeErr(ctx, w, err)
		return
	}
	logger.FromContext(ctx).Debug("row matched",
		"status", res.Status,
		"strategy", res.Strategy,
		"latency", res.Latency,
	)

	columns := make(map[string]any, len(res.Row))
	for _, f := range product.OutputFields() {
		columns[f.Name()] = res.Row.Get(f)
	}
	h.writeJSON(w, http.StatusOK, TransformResponse{
		Status:   res.Status,
		Strategy: string(res.Strategy),
		Columns:  columns,
		Row:      res.Row,
	})
}

func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req RunRequest
	if err := decode(w, r, &req); err != nil {
		h.writeErr(ctx, w, err)
		return
	}
	t, err := h.newTransformer(req.Mapping)
	if err != nil {
		h.writeErr(ctx, w, err)
		return
	}
	res, err := h.runner.Run(ctx, t, req.Rows)
	if err != nil {
		logger.FromContext(ctx).Error("run failed", "error", err)
		status := apperrors.HTTPStatusCode(err)
		if res == nil {
			h.writeErr(ctx, w, err)
			return
		}
		h.writeJSON(w, status, map[string]any{"error": err.Error(), "result": res})
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, 100)
	}
	runs, err := h.runs.ListRuns(r.Context(), limit)
	if err != nil {
		h.writeErr(r.Context(), w, err)
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	h.writeJSON(w, http.StatusOK, runs)
}

func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		h.writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}
	run, err := h.runs.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeErr(r.Context(), w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, run)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// decode reads a JSON body. Numbers are kept as json.Number so that long
// codes survive without float rounding.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperrors.Newf(apperrors.ErrInvalidInput, http.StatusRequestEntityTooLarge, "body exceeds %d bytes", maxErr.Limit)
		}
		return apperrors.Invalid("decoding request body: %v", err)
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
		status = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"error":"encoding response"}` + "\n")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

func (h *Handler) writeErr(ctx context.Context, w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(ctx).Error("request failed", "component", "match-handler", "error", err)
	}
	h.writeError(w, status, err.Error())
}
