package optimizer

// PhaseScorer ranks candidates inside a selection phase. Scorers are pure
// and swappable: phase control flow never depends on the blend used.
type PhaseScorer interface {
	Score(c PlayerCandidate) float64
}

// PremiumWeights blend price, ownership, season output and prediction into
// the premium-phase score. All weights are non-negative so the blend stays
// monotonic: more expensive, more owned, higher scoring players rank higher.
type PremiumWeights struct {
	Predicted    float64 `json:"predicted"`
	Price        float64 `json:"price"`
	Ownership    float64 `json:"ownership"`
	SeasonPoints float64 `json:"season_points"`
}

// DefaultPremiumWeights balance the four signals near the same magnitude
// for typical FPL ranges (predictions 2-10, prices £4-15m, ownership
// 0-60%, season totals 0-250).
func DefaultPremiumWeights() PremiumWeights {
	return PremiumWeights{
		Predicted:    1.0,
		Price:        0.3,
		Ownership:    0.1,
		SeasonPoints: 0.02,
	}
}

// PremiumScorer biases the first picks toward proven, popular, expensive
// assets, which plain value-per-cost ordering tends to skip.
type PremiumScorer struct {
	Weights PremiumWeights
}

func NewPremiumScorer(weights PremiumWeights) *PremiumScorer {
	return &PremiumScorer{Weights: weights}
}

func (s *PremiumScorer) Score(c PlayerCandidate) float64 {
	w := s.Weights
	return c.PredictedPoints*w.Predicted +
		c.PriceMillions()*w.Price +
		c.OwnershipPercent*w.Ownership +
		float64(c.SeasonPoints)*w.SeasonPoints
}

// ValueWeights blend raw prediction with points-per-price for the quality
// phase.
type ValueWeights struct {
	Predicted float64 `json:"predicted"`
	Value     float64 `json:"value"`
}

func DefaultValueWeights() ValueWeights {
	return ValueWeights{Predicted: 0.7, Value: 0.3}
}

// ValueScorer favors high predictions while still rewarding cheap points.
type ValueScorer struct {
	Weights ValueWeights
}

func NewValueScorer(weights ValueWeights) *ValueScorer {
	return &ValueScorer{Weights: weights}
}

func (s *ValueScorer) Score(c PlayerCandidate) float64 {
	return c.PredictedPoints*s.Weights.Predicted + c.PointsPerMillion()*s.Weights.Value
}
