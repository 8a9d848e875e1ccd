package product

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchFieldNames(t *testing.T) {
	assert.Equal(t, "_all", FieldAll.FieldName())
	assert.Equal(t, "GTIN_NM", FieldProductName.FieldName())
	assert.Equal(t, "GTIN_CD", FieldGTIN.FieldName())
	assert.Equal(t, "GLN_COUNTRY_ISO_CD", FieldGLNCountry.FieldName())
	assert.True(t, FieldScore.IsPseudo())
	assert.True(t, FieldAll.IsPseudo())
	assert.False(t, FieldBrandName.IsPseudo())

	for _, f := range SearchFields() {
		if f.IsPseudo() {
			continue
		}
		assert.Equal(t, f.String(), f.FieldName())
		parsed, ok := ParseSearchField(f.String())
		require.True(t, ok)
		assert.Equal(t, f, parsed)
	}
}

func TestInputFieldTargets(t *testing.T) {
	assert.Equal(t, FieldAll, InputDescription.SearchField())
	assert.Equal(t, FieldProductName, InputProductName.SearchField())
	assert.Equal(t, FieldBrandName, InputBrandName.SearchField())
	assert.Equal(t, FieldGTIN, InputGTIN.SearchField())
	assert.Equal(t, FieldBSIN, InputBSIN.SearchField())
	assert.Equal(t, "Product description", InputDescription.Label())
}

func TestParseInputField(t *testing.T) {
	for _, in := range []string{"GTIN_CODE", "gtin code", " GTIN code "} {
		f, err := ParseInputField(in)
		require.NoError(t, err, in)
		assert.Equal(t, InputGTIN, f)
	}

	_, err := ParseInputField("colour")
	assert.Error(t, err)
}

func TestInputFieldJSON(t *testing.T) {
	var mapping []InputField
	require.NoError(t, json.Unmarshal([]byte(`["PRODUCT_NAME","Brand name"]`), &mapping))
	assert.Equal(t, []InputField{InputProductName, InputBrandName}, mapping)

	data, err := json.Marshal(mapping)
	require.NoError(t, err)
	assert.JSONEq(t, `["PRODUCT_NAME","BRAND_NAME"]`, string(data))
}

func TestOutputLayout(t *testing.T) {
	fields := OutputFields()
	require.Len(t, fields, int(NumOutputFields))

	// positions are part of the row contract
	assert.Equal(t, 0, int(OutputMatchStatus))
	assert.Equal(t, 1, int(OutputMatchScore))
	assert.Equal(t, 6, int(OutputGPCSegment))

	_, ok := OutputMatchStatus.SearchField()
	assert.False(t, ok)

	src, ok := OutputMatchScore.SearchField()
	assert.True(t, ok)
	assert.Equal(t, FieldScore, src)
	assert.Equal(t, TypeNumber, OutputMatchScore.DataType())

	for _, f := range fields[2:] {
		assert.Equal(t, TypeString, f.DataType(), f.Name())
	}
}

func TestMatchStatus(t *testing.T) {
	assert.True(t, StatusGood.Usable())
	assert.True(t, StatusPotential.Usable())
	assert.False(t, StatusNoMatch.Usable())
	assert.False(t, StatusSkipped.Usable())

	st, err := ParseMatchStatus("NO_MATCH")
	require.NoError(t, err)
	assert.Equal(t, StatusNoMatch, st)

	_, err = ParseMatchStatus("MAYBE")
	assert.Error(t, err)
}
