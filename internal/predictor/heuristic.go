package predictor

import "math"

// Per-position baseline points a fit starter returns in a blank week.
var positionBaselines = map[int]float64{
	elementGoalkeeper: 2.0,
	elementDefender:   2.5,
	elementMidfielder: 3.0,
	elementForward:    3.5,
}

// Per-position scaling of the blended score: attacking returns swing more
// than goalkeeping ones.
var positionMultipliers = map[int]float64{
	elementGoalkeeper: 0.8,
	elementDefender:   0.9,
	elementMidfielder: 1.1,
	elementForward:    1.2,
}

// Blend weights for the heuristic score.
const (
	formWeight     = 0.4
	fixtureWeight  = 0.3
	strengthWeight = 0.3
)

// unavailablePenalty scales predictions for players flagged injured,
// suspended or otherwise not fully available.
const unavailablePenalty = 0.3

// HeuristicModel is the hand-tuned fallback model. It needs no training
// data and behaves sensibly from gameweek one.
type HeuristicModel struct{}

func NewHeuristicModel() *HeuristicModel {
	return &HeuristicModel{}
}

func (m *HeuristicModel) Name() string {
	return "heuristic"
}

// Predict blends form, fixtures and team strength, anchors the result to
// the position baseline, then scales by how likely the player is to play.
func (m *HeuristicModel) Predict(f Features) Prediction {
	baseline, ok := positionBaselines[f.ElementType]
	if !ok {
		baseline = positionBaselines[elementMidfielder]
	}
	multiplier, ok := positionMultipliers[f.ElementType]
	if !ok {
		multiplier = 1.0
	}

	blended := f.Form*formWeight + f.FixtureFavorability*fixtureWeight + f.TeamStrength*strengthWeight
	points := (blended*0.8 + baseline) * multiplier

	points *= math.Max(0.5, f.MinutesLikelihood)
	if !f.Available {
		points *= unavailablePenalty
	}

	return Prediction{
		Points:     points,
		Confidence: math.Min(10.0, f.Form+f.MinutesLikelihood*5.0),
	}
}
