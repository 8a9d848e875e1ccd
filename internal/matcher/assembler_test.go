package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

func cocaCola() *Hit {
	return &Hit{
		Score: 9.5,
		Fields: map[product.SearchField]string{
			product.FieldGTIN:        "5449000000996",
			product.FieldProductName: "Coca-Cola 33cl",
			product.FieldBrandName:   "Coca-Cola",
			product.FieldGPCSegment:  "Food/Beverage/Tobacco",
		},
	}
}

func TestAssembleEchoesInputWithoutMatch(t *testing.T) {
	attrs := product.Attributes{
		product.FieldProductName: "Cola",
		product.FieldGTIN:        "123",
		product.FieldAll:         "free text",
	}
	row := Assemble(attrs, cocaCola(), product.StatusNoMatch)

	require.Len(t, row, int(product.NumOutputFields))
	assert.Equal(t, product.StatusNoMatch, row.Status())
	assert.Equal(t, "Cola", row.Get(product.OutputProductName))
	assert.Equal(t, "123", row.Get(product.OutputGTINCode))
	assert.Nil(t, row.Get(product.OutputMatchScore))
	assert.Nil(t, row.Get(product.OutputBrandName))
	_, ok := row.Segment()
	assert.False(t, ok)
}

func TestAssembleProjectsUsableHit(t *testing.T) {
	attrs := product.Attributes{
		product.FieldProductName: "Cola",
		product.FieldBSIN:        "INPUT-BSIN",
	}
	row := Assemble(attrs, cocaCola(), product.StatusPotential)

	assert.Equal(t, product.StatusPotential, row.Status())
	assert.Equal(t, 9.5, row.Get(product.OutputMatchScore))
	assert.Equal(t, "Coca-Cola 33cl", row.Get(product.OutputProductName))
	assert.Equal(t, "5449000000996", row.Get(product.OutputGTINCode))
	assert.Nil(t, row.Get(product.OutputBSINCode), "hit overwrites every projected column")
	segment, ok := row.Segment()
	assert.True(t, ok)
	assert.Equal(t, "Food/Beverage/Tobacco", segment)
}

func TestAssembleEmptyRow(t *testing.T) {
	row := Assemble(product.Attributes{}, nil, product.StatusSkipped)
	assert.Equal(t, product.StatusSkipped, row.Get(product.OutputMatchStatus))
	for _, f := range product.OutputFields()[1:] {
		assert.Nil(t, row.Get(f), "column %s", f)
	}
}

func TestRowStrings(t *testing.T) {
	row := Assemble(product.Attributes{}, cocaCola(), product.StatusGood)
	s := row.Strings()
	assert.Equal(t, "GOOD_MATCH", s[product.OutputMatchStatus])
	assert.Equal(t, "9.5", s[product.OutputMatchScore])
	assert.Equal(t, "", s[product.OutputGPCBrick])
}
