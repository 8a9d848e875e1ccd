// Package product defines the field taxonomy of the reference product catalog:
// the attributes held by the search index, the roles an input column can be
// assigned to, the fixed output column layout and the match statuses.
package product

import (
	"fmt"
	"strings"
)

// SearchField is an attribute of the product search index.
type SearchField int

const (
	// pseudo-fields
	FieldScore SearchField = iota
	FieldAll

	// product related
	FieldProductName
	FieldGTIN

	// measures
	FieldPackageUnit
	FieldMassGrams
	FieldMassOunces
	FieldVolumeMillilitres
	FieldVolumeFluidOunces

	// brand related
	FieldBrandName
	FieldBrandLink
	FieldBSIN

	// category related
	FieldGPCSegment
	FieldGPCFamily
	FieldGPCClass
	FieldGPCBrick

	// contact related
	FieldGLNName
	FieldGLNAddress2
	FieldGLNAddress3
	FieldGLNAddress4
	FieldGLNPostalCode
	FieldGLNCity
	FieldGLNCountry

	numSearchFields
)

// AllFieldName is the index's catch-all text field.
const AllFieldName = "_all"

// ScoreFieldName is the read-only relevance attribute of a hit.
const ScoreFieldName = "_score"

var searchFieldNames = [numSearchFields]string{
	FieldScore:             "SCORE",
	FieldAll:               "ALL",
	FieldProductName:       "GTIN_NM",
	FieldGTIN:              "GTIN_CD",
	FieldPackageUnit:       "PKG_UNIT",
	FieldMassGrams:         "M_G",
	FieldMassOunces:        "M_OZ",
	FieldVolumeMillilitres: "M_ML",
	FieldVolumeFluidOunces: "M_FLOZ",
	FieldBrandName:         "BRAND_NM",
	FieldBrandLink:         "BRAND_LINK",
	FieldBSIN:              "BSIN",
	FieldGPCSegment:        "GPC_SEGMENT",
	FieldGPCFamily:         "GPC_FAMILY",
	FieldGPCClass:          "GPC_CLASS",
	FieldGPCBrick:          "GPC_BRICK",
	FieldGLNName:           "GLN_NM",
	FieldGLNAddress2:       "GLN_ADDR_02",
	FieldGLNAddress3:       "GLN_ADDR_03",
	FieldGLNAddress4:       "GLN_ADDR_04",
	FieldGLNPostalCode:     "GLN_ADDR_POSTALCODE",
	FieldGLNCity:           "GLN_ADDR_CITY",
	FieldGLNCountry:        "GLN_COUNTRY_ISO_CD",
}

// SearchFields returns every search field in declaration order.
func SearchFields() []SearchField {
	fields := make([]SearchField, numSearchFields)
	for i := range fields {
		fields[i] = SearchField(i)
	}
	return fields
}

// String returns the field identifier.
func (f SearchField) String() string {
	if !f.Valid() {
		return fmt.Sprintf("SearchField(%d)", int(f))
	}
	return searchFieldNames[f]
}

// Valid reports whether f is a declared search field.
func (f SearchField) Valid() bool {
	return f >= 0 && f < numSearchFields
}

// IsPseudo reports whether f has no stored attribute behind it.
func (f SearchField) IsPseudo() bool {
	return f == FieldScore || f == FieldAll
}

// FieldName returns the name of the field in the index. Real attributes are
// stored under their identifier; ALL maps to the catch-all field and SCORE to
// the hit's relevance.
func (f SearchField) FieldName() string {
	switch f {
	case FieldAll:
		return AllFieldName
	case FieldScore:
		return ScoreFieldName
	}
	return f.String()
}

func (f SearchField) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid search field %d", int(f))
	}
	return []byte(f.String()), nil
}

func (f *SearchField) UnmarshalText(text []byte) error {
	parsed, ok := ParseSearchField(string(text))
	if !ok {
		return fmt.Errorf("unknown search field %q", string(text))
	}
	*f = parsed
	return nil
}

// ParseSearchField resolves an identifier such as "BRAND_NM".
func ParseSearchField(name string) (SearchField, bool) {
	for i, n := range searchFieldNames {
		if strings.EqualFold(n, name) {
			return SearchField(i), true
		}
	}
	return 0, false
}

// InputField is a role a caller may assign to an input column.
type InputField int

const (
	InputDescription InputField = iota
	InputProductName
	InputBrandName
	InputGTIN
	InputBSIN

	numInputFields
)

var inputFields = [numInputFields]struct {
	id     string
	label  string
	target SearchField
}{
	InputDescription: {"PRODUCT_DESCRIPTION_TEXT", "Product description", FieldAll},
	InputProductName: {"PRODUCT_NAME", "Product name", FieldProductName},
	InputBrandName:   {"BRAND_NAME", "Brand name", FieldBrandName},
	InputGTIN:        {"GTIN_CODE", "GTIN code", FieldGTIN},
	InputBSIN:        {"BSIN_CODE", "BSIN code", FieldBSIN},
}

// InputFields returns every input role in declaration order.
func InputFields() []InputField {
	fields := make([]InputField, numInputFields)
	for i := range fields {
		fields[i] = InputField(i)
	}
	return fields
}

func (f InputField) Valid() bool {
	return f >= 0 && f < numInputFields
}

// String returns the role identifier, e.g. "PRODUCT_DESCRIPTION_TEXT".
func (f InputField) String() string {
	if !f.Valid() {
		return fmt.Sprintf("InputField(%d)", int(f))
	}
	return inputFields[f].id
}

// Label returns the human-readable name of the role.
func (f InputField) Label() string {
	if !f.Valid() {
		return f.String()
	}
	return inputFields[f].label
}

// SearchField returns the index attribute the role feeds.
func (f InputField) SearchField() SearchField {
	if !f.Valid() {
		return FieldAll
	}
	return inputFields[f].target
}

// ParseInputField accepts either the identifier or the label of a role,
// case-insensitively.
func ParseInputField(s string) (InputField, error) {
	s = strings.TrimSpace(s)
	for i, f := range inputFields {
		if strings.EqualFold(f.id, s) || strings.EqualFold(f.label, s) {
			return InputField(i), nil
		}
	}
	return 0, fmt.Errorf("unknown input field %q", s)
}

func (f InputField) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("invalid input field %d", int(f))
	}
	return []byte(f.String()), nil
}

func (f *InputField) UnmarshalText(text []byte) error {
	parsed, err := ParseInputField(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ColumnType is the data type of an output column.
type ColumnType string

const (
	TypeString ColumnType = "string"
	TypeNumber ColumnType = "number"
)

// OutputField is an output column. The declaration order is the column order
// of every output row and must not change: consumers index rows by position.
type OutputField int

const (
	OutputMatchStatus OutputField = iota
	OutputMatchScore
	OutputGTINCode
	OutputProductName
	OutputBrandName
	OutputBSINCode
	OutputGPCSegment
	OutputGPCFamily
	OutputGPCClass
	OutputGPCBrick

	NumOutputFields
)

var outputFields = [NumOutputFields]struct {
	name     string
	source   SearchField
	hasField bool
	dataType ColumnType
}{
	OutputMatchStatus: {"Match status", 0, false, TypeString},
	OutputMatchScore:  {"Match score", FieldScore, true, TypeNumber},
	OutputGTINCode:    {"GTIN code", FieldGTIN, true, TypeString},
	OutputProductName: {"Product name", FieldProductName, true, TypeString},
	OutputBrandName:   {"Brand name", FieldBrandName, true, TypeString},
	OutputBSINCode:    {"BSIN code", FieldBSIN, true, TypeString},
	OutputGPCSegment:  {"GPC segment", FieldGPCSegment, true, TypeString},
	OutputGPCFamily:   {"GPC family", FieldGPCFamily, true, TypeString},
	OutputGPCClass:    {"GPC class", FieldGPCClass, true, TypeString},
	OutputGPCBrick:    {"GPC brick", FieldGPCBrick, true, TypeString},
}

// OutputFields returns the output columns in layout order.
func OutputFields() []OutputField {
	fields := make([]OutputField, NumOutputFields)
	for i := range fields {
		fields[i] = OutputField(i)
	}
	return fields
}

func (f OutputField) Valid() bool {
	return f >= 0 && f < NumOutputFields
}

// Name returns the column name.
func (f OutputField) Name() string {
	if !f.Valid() {
		return fmt.Sprintf("OutputField(%d)", int(f))
	}
	return outputFields[f].name
}

func (f OutputField) String() string { return f.Name() }

// SearchField returns the index attribute projected into this column. The
// status column has none.
func (f OutputField) SearchField() (SearchField, bool) {
	if !f.Valid() {
		return 0, false
	}
	o := outputFields[f]
	return o.source, o.hasField
}

// DataType returns the column's value type.
func (f OutputField) DataType() ColumnType {
	if !f.Valid() {
		return TypeString
	}
	return outputFields[f].dataType
}
