package matcher

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

// Input is one positional input value together with the role its column is
// assigned to.
type Input struct {
	Value any
	Field product.InputField
}

// MapInputs folds a row's inputs into its canonical attribute map. Absent and
// blank values are skipped; several inputs feeding the same attribute are
// joined with a single space in input order.
func MapInputs(inputs []Input) product.Attributes {
	attrs := make(product.Attributes, len(inputs))
	for _, in := range inputs {
		value, ok := inputString(in.Value)
		if !ok {
			continue
		}
		field := in.Field.SearchField()
		if existing, ok := attrs[field]; ok {
			attrs[field] = existing + " " + value
			continue
		}
		attrs[field] = value
	}
	return attrs
}

func inputString(v any) (string, bool) {
	switch v := v.(type) {
	case nil:
		return "", false
	case string:
		if strings.TrimSpace(v) == "" {
			return "", false
		}
		return v, true
	case *string:
		if v == nil {
			return "", false
		}
		return inputString(*v)
	case fmt.Stringer:
		return inputString(v.String())
	default:
		return fmt.Sprint(v), true
	}
}
