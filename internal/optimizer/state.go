package optimizer

// SelectionState tracks the mutable bookkeeping of one selection run:
// which ids are taken, how many players each team and position supply, and
// the running cost. Each Select call creates its own state, so concurrent
// runs never share anything.
type SelectionState struct {
	selected   map[int]bool
	teamCounts map[int]int
	positions  map[Position]int
	totalCost  int
}

func NewSelectionState() *SelectionState {
	return &SelectionState{
		selected:   make(map[int]bool),
		teamCounts: make(map[int]int),
		positions:  make(map[Position]int),
	}
}

// Selected reports whether a candidate id has already been admitted.
func (s *SelectionState) Selected(id int) bool {
	return s.selected[id]
}

// TotalCost is the summed price of all admitted candidates.
func (s *SelectionState) TotalCost() int {
	return s.totalCost
}

// Count returns the number of admitted candidates.
func (s *SelectionState) Count() int {
	return len(s.selected)
}

// PositionCount returns how many admitted candidates play the position.
func (s *SelectionState) PositionCount(pos Position) int {
	return s.positions[pos]
}

// CanAdmit checks the strict-phase gates: the candidate is unselected, its
// position quota has room, it fits the remaining budget, and its team is
// under the cap.
func (s *SelectionState) CanAdmit(c PlayerCandidate, constraints Constraints) bool {
	if s.selected[c.ID] {
		return false
	}
	if s.positions[c.Position] >= constraints.Quota[c.Position] {
		return false
	}
	if s.totalCost+c.Price > constraints.Budget {
		return false
	}
	if s.teamCounts[c.TeamID] >= constraints.TeamCap {
		return false
	}
	return true
}

// Admit records a candidate unconditionally. Callers gate on CanAdmit in the
// strict phases; force-fill calls Admit directly, relaxing budget and team
// cap but never the position quota.
func (s *SelectionState) Admit(c PlayerCandidate) {
	s.selected[c.ID] = true
	s.teamCounts[c.TeamID]++
	s.positions[c.Position]++
	s.totalCost += c.Price
}

// ShortPositions lists positions still under quota, in PositionOrder.
func (s *SelectionState) ShortPositions(quota map[Position]int) []Position {
	var short []Position
	for _, pos := range PositionOrder {
		if s.positions[pos] < quota[pos] {
			short = append(short, pos)
		}
	}
	return short
}
