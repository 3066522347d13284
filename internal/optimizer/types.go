package optimizer

import "fmt"

// Position is one of the four FPL squad positions.
type Position string

const (
	PositionGK  Position = "GK"
	PositionDEF Position = "DEF"
	PositionMID Position = "MID"
	PositionFWD Position = "FWD"
)

// PositionOrder lists positions in display/lineup order.
var PositionOrder = []Position{PositionGK, PositionDEF, PositionMID, PositionFWD}

// ParsePosition converts a position string to a Position.
func ParsePosition(s string) (Position, error) {
	switch Position(s) {
	case PositionGK, PositionDEF, PositionMID, PositionFWD:
		return Position(s), nil
	}
	return "", fmt.Errorf("unknown position: %q", s)
}

// PlayerCandidate is a single selectable player. Prices are in tenths of
// £1m (FPL now_cost convention: 45 means £4.5m). Candidates are immutable
// inputs; the selector never modifies them.
type PlayerCandidate struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	Position         Position `json:"position"`
	TeamID           int      `json:"team_id"`
	Price            int      `json:"price"`
	PredictedPoints  float64  `json:"predicted_points"`
	OwnershipPercent float64  `json:"ownership_percent"`
	SeasonPoints     int      `json:"season_points"`
}

// PriceMillions returns the price in £m.
func (c PlayerCandidate) PriceMillions() float64 {
	return float64(c.Price) / 10.0
}

// PointsPerMillion is season points returned per £1m of price, the usual
// FPL value stat.
func (c PlayerCandidate) PointsPerMillion() float64 {
	if c.Price <= 0 {
		return 0
	}
	return float64(c.SeasonPoints) / c.PriceMillions()
}

// Squad is the selected roster. Players are kept in admission order so that
// identical inputs reproduce identical output ordering.
type Squad struct {
	Players       []PlayerCandidate `json:"players"`
	TotalCost     int               `json:"total_cost"`
	ForceFillUsed bool              `json:"force_fill_used"`
}

// Size returns the number of selected players.
func (s *Squad) Size() int {
	return len(s.Players)
}

// CountByPosition returns the per-position member counts.
func (s *Squad) CountByPosition() map[Position]int {
	counts := make(map[Position]int, len(PositionOrder))
	for _, p := range s.Players {
		counts[p.Position]++
	}
	return counts
}

// ByPosition returns the members of one position in admission order.
func (s *Squad) ByPosition(pos Position) []PlayerCandidate {
	var players []PlayerCandidate
	for _, p := range s.Players {
		if p.Position == pos {
			players = append(players, p)
		}
	}
	return players
}

// TeamCounts returns how many squad members each team supplies.
func (s *Squad) TeamCounts() map[int]int {
	counts := make(map[int]int)
	for _, p := range s.Players {
		counts[p.TeamID]++
	}
	return counts
}

// FormationTemplate is a valid starting-lineup shape. The keeper slot is
// implicit: 1 + DEF + MID + FWD == 11.
type FormationTemplate struct {
	Name string `json:"name"`
	DEF  int    `json:"def"`
	MID  int    `json:"mid"`
	FWD  int    `json:"fwd"`
}

// Formations is the fixed formation catalogue. Order matters: the optimizer
// scans templates in this order and keeps the first one on a points tie, so
// the catalogue order is part of the selection contract.
var Formations = []FormationTemplate{
	{Name: "3-4-3", DEF: 3, MID: 4, FWD: 3},
	{Name: "3-5-2", DEF: 3, MID: 5, FWD: 2},
	{Name: "4-3-3", DEF: 4, MID: 3, FWD: 3},
	{Name: "4-4-2", DEF: 4, MID: 4, FWD: 2},
	{Name: "4-5-1", DEF: 4, MID: 5, FWD: 1},
	{Name: "5-3-2", DEF: 5, MID: 3, FWD: 2},
	{Name: "5-4-1", DEF: 5, MID: 4, FWD: 1},
}

// LineupResult is the best starting XI / bench split found for a squad.
// StartingEleven is ordered keeper first, then defenders, midfielders and
// forwards, each block by descending predicted points.
type LineupResult struct {
	Formation      FormationTemplate `json:"formation"`
	StartingEleven []PlayerCandidate `json:"starting_eleven"`
	Bench          []PlayerCandidate `json:"bench"`
	PredictedTotal float64           `json:"predicted_total"`
}
