package query

import (
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

// Strategy names the kind of search a query performs.
type Strategy string

const (
	StrategyExactLookup Strategy = "exact_lookup"
	StrategyTextSearch  Strategy = "text_search"
)

// Config weights the text-search clauses.
type Config struct {
	// ProductNameBoost and BrandNameBoost apply to the structured clauses
	// when a free-text description is also present.
	ProductNameBoost float64 `yaml:"productNameBoost"`
	BrandNameBoost   float64 `yaml:"brandNameBoost"`
	// FoldFreeText matches the description against the product-name and
	// brand-name fields the row left empty.
	FoldFreeText bool `yaml:"foldFreeText"`
}

func DefaultConfig() Config {
	return Config{
		ProductNameBoost: 2.5,
		BrandNameBoost:   2.0,
	}
}

// Plan holds the candidate queries for one row. Lookup is tried first; Text
// is the fallback, or the only query when the row has no usable GTIN.
type Plan struct {
	Lookup *Term
	Text   Query
}

// Empty reports whether no query could be formed.
func (p Plan) Empty() bool {
	return p.Lookup == nil && p.Text == nil
}

// Builder turns attribute maps into query plans. It is safe for concurrent use.
type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	defaults := DefaultConfig()
	if cfg.ProductNameBoost <= 0 {
		cfg.ProductNameBoost = defaults.ProductNameBoost
	}
	if cfg.BrandNameBoost <= 0 {
		cfg.BrandNameBoost = defaults.BrandNameBoost
	}
	return &Builder{cfg: cfg}
}

// Build returns both candidate queries for attrs.
func (b *Builder) Build(attrs product.Attributes) Plan {
	var plan Plan
	if lookup, ok := b.ExactLookup(attrs); ok {
		plan.Lookup = &lookup
	}
	if text, ok := b.TextSearch(attrs); ok {
		plan.Text = text
	}
	return plan
}

// ExactLookup builds a term query on the normalized GTIN, if attrs carries
// one that normalizes.
func (b *Builder) ExactLookup(attrs product.Attributes) (Term, bool) {
	raw, ok := attrs.Get(product.FieldGTIN)
	if !ok {
		return Term{}, false
	}
	gtin, ok := product.NormalizeGTIN(raw)
	if !ok {
		return Term{}, false
	}
	return Term{Field: product.FieldGTIN, Value: gtin}, true
}

// TextSearch builds one match clause per populated text attribute and ORs
// them together. It reports false when attrs has no text attribute.
func (b *Builder) TextSearch(attrs product.Attributes) (Query, bool) {
	name, hasName := attrs.Get(product.FieldProductName)
	brand, hasBrand := attrs.Get(product.FieldBrandName)
	desc, hasDesc := attrs.Get(product.FieldAll)

	var clauses []Query
	switch {
	case hasName:
		boost := 1.0
		if hasDesc {
			boost = b.cfg.ProductNameBoost
		}
		clauses = append(clauses, Match{Field: product.FieldProductName, Text: name, Boost: boost})
	case hasDesc && b.cfg.FoldFreeText:
		clauses = append(clauses, Match{Field: product.FieldProductName, Text: desc, Boost: 1})
	}
	switch {
	case hasBrand:
		boost := 1.0
		if hasDesc {
			boost = b.cfg.BrandNameBoost
		}
		clauses = append(clauses, Match{Field: product.FieldBrandName, Text: brand, Boost: boost})
	case hasDesc && b.cfg.FoldFreeText:
		clauses = append(clauses, Match{Field: product.FieldBrandName, Text: desc, Boost: 1})
	}
	if hasDesc {
		clauses = append(clauses, Match{Field: product.FieldAll, Text: desc, Boost: 1})
	}

	switch len(clauses) {
	case 0:
		return nil, false
	case 1:
		return clauses[0], true
	}
	return Bool{Should: clauses}, true
}
