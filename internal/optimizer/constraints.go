package optimizer

import "fmt"

// Constraints are the hard limits a selection run must satisfy. Budget is
// in tenths of £1m, matching PlayerCandidate.Price.
type Constraints struct {
	Budget  int              `json:"budget"`
	Quota   map[Position]int `json:"quota"`
	TeamCap int              `json:"team_cap"`
}

// DefaultConstraints returns the standard FPL ruleset: £100m budget,
// 2 GK / 5 DEF / 5 MID / 3 FWD, at most 3 players per club.
func DefaultConstraints() Constraints {
	return Constraints{
		Budget: 1000,
		Quota: map[Position]int{
			PositionGK:  2,
			PositionDEF: 5,
			PositionMID: 5,
			PositionFWD: 3,
		},
		TeamCap: 3,
	}
}

// SquadSize is the total number of players the quota requires.
func (c Constraints) SquadSize() int {
	total := 0
	for _, n := range c.Quota {
		total += n
	}
	return total
}

// Validate rejects constraint sets the selector cannot work with. A zero
// budget is allowed: the strict phases admit nothing and force-fill still
// completes the squad.
func (c Constraints) Validate() error {
	if c.Budget < 0 {
		return fmt.Errorf("budget must not be negative, got %d", c.Budget)
	}
	if c.TeamCap <= 0 {
		return fmt.Errorf("team cap must be positive, got %d", c.TeamCap)
	}
	if len(c.Quota) == 0 {
		return fmt.Errorf("position quota is empty")
	}
	for pos, n := range c.Quota {
		if _, err := ParsePosition(string(pos)); err != nil {
			return err
		}
		if n <= 0 {
			return fmt.Errorf("quota for %s must be positive, got %d", pos, n)
		}
	}
	return nil
}
