package predictor

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TrainingSample pairs a player's features going into a gameweek with the
// points actually scored in it.
type TrainingSample struct {
	Features Features `json:"features"`
	Points   float64  `json:"points"`
}

// MinTrainingSamples is the smallest history worth fitting on.
const MinTrainingSamples = 50

// MinRSquared is the in-sample fit floor below which the regression is
// considered no better than the hand-tuned heuristic.
const MinRSquared = 0.15

// Model terms: form, fixture favorability, team strength, minutes
// likelihood, intercept.
const regressionTerms = 5

// RegressionModel fits next-gameweek points as a linear function of the
// features by least squares over finished gameweeks.
type RegressionModel struct {
	coeffs  []float64
	r2      float64
	samples int
}

func NewRegressionModel() *RegressionModel {
	return &RegressionModel{}
}

func (m *RegressionModel) Name() string {
	return "regression"
}

// Trained reports whether Train has succeeded.
func (m *RegressionModel) Trained() bool {
	return len(m.coeffs) == regressionTerms
}

// RSquared is the in-sample fit quality of the last Train call.
func (m *RegressionModel) RSquared() float64 {
	return m.r2
}

// Samples is the training set size of the last Train call.
func (m *RegressionModel) Samples() int {
	return m.samples
}

// Train solves the least-squares fit over the samples via QR
// factorization.
func (m *RegressionModel) Train(samples []TrainingSample) error {
	if len(samples) < MinTrainingSamples {
		return fmt.Errorf("need at least %d training samples, got %d", MinTrainingSamples, len(samples))
	}

	rows := len(samples)
	a := mat.NewDense(rows, regressionTerms, nil)
	b := mat.NewVecDense(rows, nil)
	for i, s := range samples {
		a.SetRow(i, featureVector(s.Features))
		b.SetVec(i, s.Points)
	}

	var qr mat.QR
	qr.Factorize(a)

	var solution mat.VecDense
	if err := qr.SolveVecTo(&solution, false, b); err != nil {
		return fmt.Errorf("solving least squares: %w", err)
	}

	coeffs := make([]float64, regressionTerms)
	for i := range coeffs {
		coeffs[i] = solution.AtVec(i)
	}

	estimates := make([]float64, rows)
	values := make([]float64, rows)
	for i, s := range samples {
		estimates[i] = dot(coeffs, featureVector(s.Features))
		values[i] = s.Points
	}

	m.coeffs = coeffs
	m.samples = rows
	m.r2 = stat.RSquaredFrom(estimates, values, nil)
	return nil
}

// Predict applies the fitted coefficients. The availability penalty stays
// multiplicative: training data only contains players who were fit.
func (m *RegressionModel) Predict(f Features) Prediction {
	if !m.Trained() {
		return NewHeuristicModel().Predict(f)
	}

	points := math.Max(0.0, dot(m.coeffs, featureVector(f)))
	if !f.Available {
		points *= unavailablePenalty
	}

	return Prediction{
		Points:     points,
		Confidence: math.Min(10.0, f.Form+f.MinutesLikelihood*5.0),
	}
}

// Choose trains a regression over the history and returns it when it fits
// well enough, the heuristic otherwise.
func Choose(samples []TrainingSample, logger *logrus.Logger) Model {
	regression := NewRegressionModel()
	if err := regression.Train(samples); err != nil {
		logger.WithError(err).Debug("Falling back to heuristic model")
		return NewHeuristicModel()
	}
	if regression.RSquared() < MinRSquared {
		logger.WithField("r2", regression.RSquared()).Info("Regression fit too weak, using heuristic model")
		return NewHeuristicModel()
	}

	logger.WithFields(logrus.Fields{
		"r2":      regression.RSquared(),
		"samples": regression.Samples(),
	}).Info("Using regression model")
	return regression
}

func featureVector(f Features) []float64 {
	return []float64{f.Form, f.FixtureFavorability, f.TeamStrength, f.MinutesLikelihood, 1.0}
}

func dot(coeffs, vector []float64) float64 {
	total := 0.0
	for i, c := range coeffs {
		total += c * vector[i]
	}
	return total
}
