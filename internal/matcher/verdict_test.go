package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher/query"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

func TestScoreThresholds(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	tests := []struct {
		score float64
		want  product.MatchStatus
	}{
		{0, product.StatusNoMatch},
		{2.9, product.StatusNoMatch},
		{3.0, product.StatusPotential},
		{6.99, product.StatusPotential},
		{7.0, product.StatusGood},
		{42, product.StatusGood},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, c.Score(tt.score), "score %v", tt.score)
	}
}

func TestClassify(t *testing.T) {
	c := NewClassifier(DefaultThresholds())
	weak := &Hit{Score: 0.4}

	assert.Equal(t, product.StatusSkipped, c.Classify(Outcome{}, false))
	assert.Equal(t, product.StatusNoMatch, c.Classify(Outcome{Formed: true, Strategy: query.StrategyTextSearch}, false))
	assert.Equal(t, product.StatusGood,
		c.Classify(Outcome{Formed: true, Strategy: query.StrategyExactLookup, Hit: weak}, true))
	assert.Equal(t, product.StatusNoMatch,
		c.Classify(Outcome{Formed: true, Strategy: query.StrategyExactLookup, Hit: weak}, false))
	assert.Equal(t, product.StatusNoMatch,
		c.Classify(Outcome{Formed: true, Strategy: query.StrategyTextSearch, Hit: weak}, true))
}

func TestClassifierCustomThresholds(t *testing.T) {
	c := NewClassifier(Thresholds{Potential: 1, Good: 2})
	assert.Equal(t, product.StatusPotential, c.Score(1.5))
	assert.Equal(t, product.StatusGood, c.Score(2))

	defaults := NewClassifier(Thresholds{})
	assert.Equal(t, product.StatusPotential, defaults.Score(3))
}
