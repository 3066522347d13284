package predictor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicPredict(t *testing.T) {
	model := NewHeuristicModel()

	f := Features{
		ElementType:         elementMidfielder,
		Form:                8.0,
		FixtureFavorability: 8.0,
		TeamStrength:        6.0,
		MinutesLikelihood:   1.0,
		Available:           true,
	}

	// blended = 8*0.4 + 8*0.3 + 6*0.3 = 7.4
	// points  = (7.4*0.8 + 3.0) * 1.1 = 9.812
	got := model.Predict(f)
	assert.InDelta(t, 9.812, got.Points, 1e-9)
	assert.InDelta(t, 10.0, got.Confidence, 1e-9)
}

func TestHeuristicUnavailablePenalty(t *testing.T) {
	model := NewHeuristicModel()

	fit := Features{ElementType: elementForward, Form: 6, FixtureFavorability: 6, TeamStrength: 6, MinutesLikelihood: 1, Available: true}
	injured := fit
	injured.Available = false

	healthy := model.Predict(fit)
	flagged := model.Predict(injured)
	assert.InDelta(t, healthy.Points*0.3, flagged.Points, 1e-9)
}

func TestHeuristicBenchWarmerFloor(t *testing.T) {
	// Zero features: the baseline survives, halved by the minutes floor.
	model := NewHeuristicModel()
	got := model.Predict(Features{ElementType: elementGoalkeeper, Available: true})
	assert.InDelta(t, 0.8, got.Points, 1e-9) // 2.0 * 0.8 * 0.5
	assert.Zero(t, got.Confidence)
}

func TestHeuristicPositionOrdering(t *testing.T) {
	// Identical features must rank FWD > MID > DEF > GK through the
	// position multipliers and baselines.
	model := NewHeuristicModel()
	base := Features{Form: 6, FixtureFavorability: 6, TeamStrength: 6, MinutesLikelihood: 1, Available: true}

	var last float64
	for _, et := range []int{elementGoalkeeper, elementDefender, elementMidfielder, elementForward} {
		f := base
		f.ElementType = et
		points := model.Predict(f).Points
		assert.Greater(t, points, last, "element type %d", et)
		last = points
	}
}
