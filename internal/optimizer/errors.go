package optimizer

import "fmt"

// InsufficientCandidatesError means the pool cannot supply the quota for a
// position even with every constraint relaxed. No phase can recover from
// this; the caller needs more data upstream.
type InsufficientCandidatesError struct {
	Position Position
	Have     int
	Need     int
}

func (e *InsufficientCandidatesError) Error() string {
	return fmt.Sprintf("not enough %s candidates: have %d, need %d", e.Position, e.Have, e.Need)
}

// DegenerateSquadError means the squad handed to the formation optimizer
// has no goalkeeper, so no lineup can be formed.
type DegenerateSquadError struct{}

func (e *DegenerateSquadError) Error() string {
	return "squad has no goalkeeper"
}

// NoFeasibleFormationError means the squad's outfield distribution matches
// none of the catalogue templates.
type NoFeasibleFormationError struct {
	Defenders   int
	Midfielders int
	Forwards    int
}

func (e *NoFeasibleFormationError) Error() string {
	return fmt.Sprintf("no formation fits squad with %d DEF / %d MID / %d FWD",
		e.Defenders, e.Midfielders, e.Forwards)
}
