package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

func TestMapInputsJoinsSameRole(t *testing.T) {
	attrs := MapInputs([]Input{
		{Value: "Coca-cola", Field: product.InputDescription},
		{Value: "2", Field: product.InputDescription},
	})
	assert.Equal(t, product.Attributes{product.FieldAll: "Coca-cola 2"}, attrs)
}

func TestMapInputsSkipsBlankValues(t *testing.T) {
	attrs := MapInputs([]Input{
		{Value: nil, Field: product.InputProductName},
		{Value: "   ", Field: product.InputBrandName},
		{Value: "", Field: product.InputDescription},
		{Value: "Fanta", Field: product.InputDescription},
		{Value: " \t", Field: product.InputDescription},
	})
	assert.Equal(t, product.Attributes{product.FieldAll: "Fanta"}, attrs)
}

func TestMapInputsEmptyRow(t *testing.T) {
	attrs := MapInputs([]Input{
		{Value: nil, Field: product.InputGTIN},
		{Value: " ", Field: product.InputDescription},
	})
	assert.Empty(t, attrs)
	assert.Empty(t, MapInputs(nil))
}

func TestMapInputsRendersNonStrings(t *testing.T) {
	attrs := MapInputs([]Input{
		{Value: int64(5449000000996), Field: product.InputGTIN},
		{Value: "Coke", Field: product.InputBrandName},
	})
	assert.Equal(t, "5449000000996", attrs[product.FieldGTIN])
	assert.Equal(t, "Coke", attrs[product.FieldBrandName])
}
