package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Handler serves the aggregator over HTTP.
type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "stats-handler"),
	}
}

// Register mounts the statistics routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("POST /api/v1/stats/reset", h.Reset)
}

// Stats serves the aggregated statistics. With ?view=summary only the two
// count mappings are returned.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	var body any
	switch view := r.URL.Query().Get("view"); view {
	case "", "full":
		body = h.aggregator.Stats()
	case "summary":
		body = h.aggregator.Summarize()
	default:
		http.Error(w, "view must be summary or full", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to write stats response", "error", err)
	}
}

// Reset clears the statistics.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	h.aggregator.Reset()
	h.logger.Info("statistics reset")
	w.WriteHeader(http.StatusNoContent)
}
