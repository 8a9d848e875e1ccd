package matcher

import (
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

// Hit is the top-scoring catalog record returned for a query.
type Hit struct {
	Score  float64                        `json:"score"`
	Fields map[product.SearchField]string `json:"fields"`
}

// Value returns the record's value for f. SCORE is never stored in Fields.
func (h *Hit) Value(f product.SearchField) (any, bool) {
	if f == product.FieldScore {
		return h.Score, true
	}
	v, ok := h.Fields[f]
	return v, ok
}
