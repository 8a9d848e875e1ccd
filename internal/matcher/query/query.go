// Package query models the searches issued against the product index and
// decides, per row, which of them to issue: an exact GTIN lookup, a weighted
// OR-combination of text matches, or both in that order.
package query

import (
	"encoding/json"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

// Query is one of Term, Match or Bool.
type Query interface {
	isQuery()
}

// Term matches documents whose field holds exactly Value.
type Term struct {
	Field product.SearchField
	Value string
}

// Match is a full-text match of Text against Field, weighted by Boost.
type Match struct {
	Field product.SearchField
	Text  string
	Boost float64
}

// Bool matches documents that match any of its Should clauses.
type Bool struct {
	Should []Query
}

func (Term) isQuery()  {}
func (Match) isQuery() {}
func (Bool) isQuery()  {}

// Source renders q as an Elasticsearch query DSL object.
func Source(q Query) map[string]any {
	switch q := q.(type) {
	case Term:
		return map[string]any{
			"term": map[string]any{q.Field.FieldName(): q.Value},
		}
	case *Term:
		return Source(*q)
	case Match:
		body := map[string]any{"query": q.Text}
		if q.Boost != 0 && q.Boost != 1 {
			body["boost"] = q.Boost
		}
		return map[string]any{
			"match": map[string]any{q.Field.FieldName(): body},
		}
	case Bool:
		should := make([]map[string]any, 0, len(q.Should))
		for _, c := range q.Should {
			should = append(should, Source(c))
		}
		return map[string]any{
			"bool": map[string]any{"should": should},
		}
	}
	return map[string]any{"match_none": map[string]any{}}
}

// Canonical returns the deterministic JSON encoding of q's DSL. Map keys are
// sorted by encoding/json, so equal queries encode to equal bytes.
func Canonical(q Query) ([]byte, error) {
	return json.Marshal(Source(q))
}
