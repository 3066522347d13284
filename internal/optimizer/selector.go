package optimizer

import "sort"

// SelectorConfig tunes the selection phases. Zero values fall back to the
// defaults, mirroring the standard FPL setup.
type SelectorConfig struct {
	// PremiumPicks caps how many candidates the premium phase may admit
	// across all positions.
	PremiumPicks int `json:"premium_picks"`
	// MinPrice and MinOwnership are the quality-phase viability floors.
	// Candidates below either floor are left to the fallback phase.
	MinPrice     int     `json:"min_price"`
	MinOwnership float64 `json:"min_ownership"`

	// Premium and Quality override the phase scorers.
	Premium PhaseScorer `json:"-"`
	Quality PhaseScorer `json:"-"`
}

// DefaultSelectorConfig returns the standard tuning: three premium slots
// and a £4.5m / 1% ownership viability floor.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		PremiumPicks: 3,
		MinPrice:     45,
		MinOwnership: 1.0,
		Premium:      NewPremiumScorer(DefaultPremiumWeights()),
		Quality:      NewValueScorer(DefaultValueWeights()),
	}
}

// SquadSelector assembles a full squad from a candidate pool under budget,
// quota and team-cap constraints. Selection runs four ordered phases:
// premium picks, quality picks, a cheapest-first fallback, and a force-fill
// that guarantees completeness by relaxing budget and team cap.
type SquadSelector struct {
	cfg SelectorConfig
}

func NewSquadSelector(cfg SelectorConfig) *SquadSelector {
	defaults := DefaultSelectorConfig()
	if cfg.PremiumPicks == 0 {
		cfg.PremiumPicks = defaults.PremiumPicks
	}
	if cfg.MinPrice == 0 {
		cfg.MinPrice = defaults.MinPrice
	}
	if cfg.MinOwnership == 0 {
		cfg.MinOwnership = defaults.MinOwnership
	}
	if cfg.Premium == nil {
		cfg.Premium = defaults.Premium
	}
	if cfg.Quality == nil {
		cfg.Quality = defaults.Quality
	}
	return &SquadSelector{cfg: cfg}
}

// Select builds a squad of exactly constraints.SquadSize() players. It
// fails only when the pool cannot supply a position's quota at all; every
// other shortfall is recovered by the later phases. The returned squad
// reports ForceFillUsed when the final phase had to ignore budget or team
// cap to complete it.
func (s *SquadSelector) Select(candidates []PlayerCandidate, constraints Constraints) (*Squad, error) {
	if err := constraints.Validate(); err != nil {
		return nil, err
	}

	poolCounts := make(map[Position]int)
	for _, c := range candidates {
		poolCounts[c.Position]++
	}
	for _, pos := range PositionOrder {
		need := constraints.Quota[pos]
		if need > 0 && poolCounts[pos] < need {
			return nil, &InsufficientCandidatesError{Position: pos, Have: poolCounts[pos], Need: need}
		}
	}

	state := NewSelectionState()
	squad := &Squad{Players: make([]PlayerCandidate, 0, constraints.SquadSize())}

	s.premiumPhase(candidates, constraints, state, squad)
	s.qualityPhase(candidates, constraints, state, squad)

	if squad.Size() < constraints.SquadSize() {
		s.fallbackPhase(candidates, constraints, state, squad)
	}
	if squad.Size() < constraints.SquadSize() {
		s.forceFillPhase(candidates, constraints, state, squad)
	}

	squad.TotalCost = state.TotalCost()
	return squad, nil
}

// premiumPhase seeds the squad with up to cfg.PremiumPicks proven assets,
// in descending premium-score order, under the full constraint set.
func (s *SquadSelector) premiumPhase(candidates []PlayerCandidate, constraints Constraints, state *SelectionState, squad *Squad) {
	ranked := sortedByScore(candidates, s.cfg.Premium)

	admitted := 0
	for _, c := range ranked {
		if admitted >= s.cfg.PremiumPicks || squad.Size() >= constraints.SquadSize() {
			break
		}
		if !state.CanAdmit(c, constraints) {
			continue
		}
		admit(c, state, squad)
		admitted++
	}
}

// qualityPhase fills the bulk of the squad from candidates above the
// viability floors, ranked by the blended quality score.
func (s *SquadSelector) qualityPhase(candidates []PlayerCandidate, constraints Constraints, state *SelectionState, squad *Squad) {
	viable := make([]PlayerCandidate, 0, len(candidates))
	for _, c := range candidates {
		if state.Selected(c.ID) {
			continue
		}
		if c.Price < s.cfg.MinPrice || c.OwnershipPercent < s.cfg.MinOwnership {
			continue
		}
		viable = append(viable, c)
	}

	for _, c := range sortedByScore(viable, s.cfg.Quality) {
		if squad.Size() >= constraints.SquadSize() {
			return
		}
		if !state.CanAdmit(c, constraints) {
			continue
		}
		admit(c, state, squad)
	}
}

// fallbackPhase drops the viability filter and walks the remaining pool
// cheapest first, still honoring budget, quota and team cap.
func (s *SquadSelector) fallbackPhase(candidates []PlayerCandidate, constraints Constraints, state *SelectionState, squad *Squad) {
	remaining := make([]PlayerCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !state.Selected(c.ID) {
			remaining = append(remaining, c)
		}
	}
	sortByPrice(remaining)

	for _, c := range remaining {
		if squad.Size() >= constraints.SquadSize() {
			return
		}
		if !state.CanAdmit(c, constraints) {
			continue
		}
		admit(c, state, squad)
	}
}

// forceFillPhase completes each short position with its cheapest unselected
// candidates, ignoring budget and team cap. Position quota is never
// relaxed. The pre-flight pool check guarantees this phase always reaches a
// full squad.
func (s *SquadSelector) forceFillPhase(candidates []PlayerCandidate, constraints Constraints, state *SelectionState, squad *Squad) {
	for _, pos := range state.ShortPositions(constraints.Quota) {
		pool := make([]PlayerCandidate, 0)
		for _, c := range candidates {
			if c.Position == pos && !state.Selected(c.ID) {
				pool = append(pool, c)
			}
		}
		sortByPrice(pool)

		for _, c := range pool {
			if state.PositionCount(pos) >= constraints.Quota[pos] {
				break
			}
			admit(c, state, squad)
			squad.ForceFillUsed = true
		}
	}
}

func admit(c PlayerCandidate, state *SelectionState, squad *Squad) {
	state.Admit(c)
	squad.Players = append(squad.Players, c)
}

// sortedByScore returns a copy ordered by score descending, candidate id
// ascending on ties. Every phase ordering resolves ties by id so identical
// inputs always select identically.
func sortedByScore(candidates []PlayerCandidate, scorer PhaseScorer) []PlayerCandidate {
	ranked := make([]PlayerCandidate, len(candidates))
	copy(ranked, candidates)
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := scorer.Score(ranked[i]), scorer.Score(ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

func sortByPrice(candidates []PlayerCandidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Price != candidates[j].Price {
			return candidates[i].Price < candidates[j].Price
		}
		return candidates[i].ID < candidates[j].ID
	})
}
