package matcher

import (
	"fmt"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

// Row is one output row laid out per product.OutputFields. Absent values are
// nil; the score is a float64 and every other column is a string.
type Row []any

func newRow() Row {
	return make(Row, product.NumOutputFields)
}

// Status returns the row's match status.
func (r Row) Status() product.MatchStatus {
	if len(r) == 0 {
		return ""
	}
	switch s := r[product.OutputMatchStatus].(type) {
	case product.MatchStatus:
		return s
	case string:
		return product.MatchStatus(s)
	}
	return ""
}

// Get returns the value of column f.
func (r Row) Get(f product.OutputField) any {
	if !f.Valid() || int(f) >= len(r) {
		return nil
	}
	return r[f]
}

// Segment returns the GPC segment column, if populated.
func (r Row) Segment() (string, bool) {
	s, ok := r.Get(product.OutputGPCSegment).(string)
	return s, ok && s != ""
}

// Strings renders the row for text sinks such as CSV. Absent values become
// empty strings.
func (r Row) Strings() []string {
	out := make([]string, len(r))
	for i, v := range r {
		out[i] = formatValue(v)
	}
	return out
}

// Assemble projects a row. The input attributes are echoed first so that a
// row without a usable match still carries its input; a hit with a usable
// status then overwrites every projected column. The status is written last.
func Assemble(attrs product.Attributes, hit *Hit, status product.MatchStatus) Row {
	row := newRow()
	echo(row, attrs)
	if hit != nil && status.Usable() {
		project(row, hit)
	}
	row[product.OutputMatchStatus] = status
	return row
}

func echo(row Row, attrs product.Attributes) {
	for _, f := range product.OutputFields() {
		src, ok := f.SearchField()
		if !ok {
			continue
		}
		if v, ok := attrs[src]; ok {
			row[f] = v
		}
	}
}

func project(row Row, hit *Hit) {
	for _, f := range product.OutputFields() {
		src, ok := f.SearchField()
		if !ok {
			continue
		}
		if v, ok := hit.Value(src); ok {
			row[f] = v
		} else {
			row[f] = nil
		}
	}
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case product.MatchStatus:
		return string(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
