package matcher

import (
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/query"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

// Thresholds are the relevance scores at which a hit becomes a potential and
// a good match. They are tuned against the product catalog.
type Thresholds struct {
	Potential float64 `yaml:"potential"`
	Good      float64 `yaml:"good"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		Potential: 3.0,
		Good:      7.0,
	}
}

// Outcome is the result of executing one candidate query.
type Outcome struct {
	// Formed is false when the row could not be turned into a query.
	Formed   bool
	Strategy query.Strategy
	Hit      *Hit
}

// Classifier turns search outcomes into match statuses.
type Classifier struct {
	thresholds Thresholds
}

func NewClassifier(t Thresholds) *Classifier {
	defaults := DefaultThresholds()
	if t.Potential <= 0 {
		t.Potential = defaults.Potential
	}
	if t.Good <= 0 {
		t.Good = defaults.Good
	}
	return &Classifier{thresholds: t}
}

// Classify assigns a status to o. A lookup hit for a row that carried nothing
// but the GTIN is authoritative; every other hit is judged on its score.
func (c *Classifier) Classify(o Outcome, lookupOnly bool) product.MatchStatus {
	switch {
	case !o.Formed:
		return product.StatusSkipped
	case o.Hit == nil:
		return product.StatusNoMatch
	case o.Strategy == query.StrategyExactLookup && lookupOnly:
		return product.StatusGood
	}
	return c.Score(o.Hit.Score)
}

// Score maps a relevance score onto a status.
func (c *Classifier) Score(s float64) product.MatchStatus {
	switch {
	case s >= c.thresholds.Good:
		return product.StatusGood
	case s >= c.thresholds.Potential:
		return product.StatusPotential
	default:
		return product.StatusNoMatch
	}
}
