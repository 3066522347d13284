package predictor

import "math"

// Element types as the FPL API numbers them.
const (
	elementGoalkeeper = 1
	elementDefender   = 2
	elementMidfielder = 3
	elementForward    = 4
)

// Per-position points-per-game benchmarks: the PPG a top performer in the
// position sustains. Form is measured against these.
var formBenchmarks = map[int]float64{
	elementGoalkeeper: 2.5,
	elementDefender:   3.0,
	elementMidfielder: 3.5,
	elementForward:    4.0,
}

// seasonMinutes is a full 38-gameweek season.
const seasonMinutes = 38.0 * 90.0

// Form scores recent output on a 0-10 scale: points per 90 relative to the
// position benchmark, where the benchmark maps to 8.
func Form(totalPoints, minutes, elementType int) float64 {
	benchmark, ok := formBenchmarks[elementType]
	if !ok {
		benchmark = formBenchmarks[elementMidfielder]
	}

	games := math.Max(float64(minutes)/90.0, 1.0)
	perGame := float64(totalPoints) / games
	return math.Min(10.0, perGame/benchmark*8.0)
}

// FixtureFavorability converts the difficulty ratings of the upcoming
// fixtures (at most the next five) into a 1-10 score, 10 being the easiest
// run. No known fixtures scores a neutral 5.
func FixtureFavorability(difficulties []int) float64 {
	if len(difficulties) == 0 {
		return 5.0
	}
	if len(difficulties) > 5 {
		difficulties = difficulties[:5]
	}

	sum := 0.0
	for _, d := range difficulties {
		sum += float64(d)
	}
	avg := sum / float64(len(difficulties))

	// FPL difficulty runs 2 (easiest) to 5 (hardest).
	return math.Max(1.0, math.Min(10.0, (6.0-avg)*2.0))
}

// TeamStrength scores a club 0-10 from its season record: scoring rate and
// clean sheets push it up, conceding drags it down.
func TeamStrength(played, won, goalsFor, goalsAgainst, cleanSheets int) float64 {
	if played == 0 {
		return 5.0
	}

	games := float64(played)
	goalsPerGame := float64(goalsFor) / games
	againstPerGame := float64(goalsAgainst) / games
	cleanSheetRate := float64(cleanSheets) / games
	winRate := float64(won) / games

	strength := (math.Min(10.0, goalsPerGame*2.5) +
		math.Min(10.0, cleanSheetRate*10.0) +
		winRate*10.0 -
		math.Min(5.0, againstPerGame*2.0)) / 3.0

	return math.Max(0.0, math.Min(10.0, strength))
}

// MinutesLikelihood estimates how nailed-on a player is from season
// minutes: playing 70% of every game maps to 1.0.
func MinutesLikelihood(minutes int) float64 {
	return math.Min(1.0, float64(minutes)/(seasonMinutes*0.7))
}
