package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPremiumScoreMonotonic(t *testing.T) {
	base := candidate(1, "Base", PositionMID, 1, 80, 5.0, 20.0, 120)
	scorer := NewPremiumScorer(DefaultPremiumWeights())

	raised := []struct {
		name   string
		mutate func(*PlayerCandidate)
	}{
		{"price", func(c *PlayerCandidate) { c.Price += 10 }},
		{"ownership", func(c *PlayerCandidate) { c.OwnershipPercent += 5 }},
		{"season points", func(c *PlayerCandidate) { c.SeasonPoints += 20 }},
		{"predicted points", func(c *PlayerCandidate) { c.PredictedPoints += 1 }},
	}

	for _, tc := range raised {
		t.Run(tc.name, func(t *testing.T) {
			bumped := base
			tc.mutate(&bumped)
			assert.Greater(t, scorer.Score(bumped), scorer.Score(base),
				"raising %s must raise the premium score", tc.name)
		})
	}
}

func TestPremiumScoreWeights(t *testing.T) {
	scorer := NewPremiumScorer(PremiumWeights{Predicted: 1, Price: 1, Ownership: 1, SeasonPoints: 1})
	c := candidate(1, "Player", PositionFWD, 1, 100, 6.0, 30.0, 150)

	// 6.0 + 10.0 (price in millions) + 30.0 + 150.0
	assert.InDelta(t, 196.0, scorer.Score(c), 1e-9)
}

func TestValueScoreFavoursPointsPerPrice(t *testing.T) {
	scorer := NewValueScorer(DefaultValueWeights())

	// Same prediction, but the cheaper player returns more per million.
	bargain := candidate(1, "Bargain", PositionMID, 1, 50, 5.0, 10.0, 120)
	expensive := candidate(2, "Expensive", PositionMID, 2, 100, 5.0, 10.0, 120)

	assert.Greater(t, scorer.Score(bargain), scorer.Score(expensive))
}

func TestValueScoreBlend(t *testing.T) {
	scorer := NewValueScorer(ValueWeights{Predicted: 0.7, Value: 0.3})
	c := candidate(1, "Player", PositionMID, 1, 60, 6.0, 10.0, 120)

	// 0.7*6.0 + 0.3*(120/6.0)
	assert.InDelta(t, 10.2, scorer.Score(c), 1e-9)
}

func TestPointsPerMillionZeroPrice(t *testing.T) {
	c := candidate(1, "Free", PositionMID, 1, 0, 5.0, 10.0, 100)
	assert.Zero(t, c.PointsPerMillion())
}
