// Package predictor turns raw player and team data into expected FPL
// points. A fast heuristic model is always available; a regression model
// can be trained on finished gameweeks and takes over when it fits well.
package predictor

// Features are the per-player inputs every model scores from. All feature
// values live on a 0-10 scale except MinutesLikelihood (0-1) and the
// availability flag.
type Features struct {
	ElementType         int     `json:"element_type"`
	Form                float64 `json:"form"`
	FixtureFavorability float64 `json:"fixture_favorability"`
	TeamStrength        float64 `json:"team_strength"`
	MinutesLikelihood   float64 `json:"minutes_likelihood"`
	Available           bool    `json:"available"`
}

// Prediction is a model's output for one player.
type Prediction struct {
	Points     float64 `json:"points"`
	Confidence float64 `json:"confidence"`
}

// Model scores a player's next-gameweek outlook from its features.
type Model interface {
	Name() string
	Predict(f Features) Prediction
}
