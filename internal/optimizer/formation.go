package optimizer

import "sort"

// FormationOptimizer finds the starting XI / bench split maximizing
// predicted points over a fixed formation catalogue.
type FormationOptimizer struct {
	templates []FormationTemplate
}

// NewFormationOptimizer uses the supplied templates, or the standard
// catalogue when none are given. Template order decides ties: the first
// template reaching the best total wins.
func NewFormationOptimizer(templates ...FormationTemplate) *FormationOptimizer {
	if len(templates) == 0 {
		templates = Formations
	}
	return &FormationOptimizer{templates: templates}
}

// Optimize picks the best goalkeeper, then scans the catalogue in order,
// building each feasible template's XI from the top predicted players per
// outfield position. The template with the strictly highest total wins;
// earlier templates keep ties.
func (o *FormationOptimizer) Optimize(squad *Squad) (*LineupResult, error) {
	keepers := rankByPredicted(squad.ByPosition(PositionGK))
	if len(keepers) == 0 {
		return nil, &DegenerateSquadError{}
	}
	keeper := keepers[0]

	defenders := rankByPredicted(squad.ByPosition(PositionDEF))
	midfielders := rankByPredicted(squad.ByPosition(PositionMID))
	forwards := rankByPredicted(squad.ByPosition(PositionFWD))

	var best *LineupResult
	for _, tmpl := range o.templates {
		if len(defenders) < tmpl.DEF || len(midfielders) < tmpl.MID || len(forwards) < tmpl.FWD {
			continue
		}

		starters := make([]PlayerCandidate, 0, 11)
		starters = append(starters, keeper)
		starters = append(starters, defenders[:tmpl.DEF]...)
		starters = append(starters, midfielders[:tmpl.MID]...)
		starters = append(starters, forwards[:tmpl.FWD]...)

		total := 0.0
		for _, p := range starters {
			total += p.PredictedPoints
		}

		if best == nil || total > best.PredictedTotal {
			best = &LineupResult{
				Formation:      tmpl,
				StartingEleven: starters,
				PredictedTotal: total,
			}
		}
	}

	if best == nil {
		return nil, &NoFeasibleFormationError{
			Defenders:   len(defenders),
			Midfielders: len(midfielders),
			Forwards:    len(forwards),
		}
	}

	best.Bench = benchFor(squad, best.StartingEleven)
	return best, nil
}

// benchFor returns the squad members left out of the XI, keeper first,
// then outfielders by descending predicted points.
func benchFor(squad *Squad, starters []PlayerCandidate) []PlayerCandidate {
	starting := make(map[int]bool, len(starters))
	for _, p := range starters {
		starting[p.ID] = true
	}

	bench := make([]PlayerCandidate, 0, squad.Size()-len(starters))
	for _, pos := range PositionOrder {
		bench = append(bench, rankByPredicted(filterOut(squad.ByPosition(pos), starting))...)
	}
	return bench
}

func filterOut(players []PlayerCandidate, exclude map[int]bool) []PlayerCandidate {
	kept := make([]PlayerCandidate, 0, len(players))
	for _, p := range players {
		if !exclude[p.ID] {
			kept = append(kept, p)
		}
	}
	return kept
}

// rankByPredicted returns a copy ordered by predicted points descending,
// id ascending on ties.
func rankByPredicted(players []PlayerCandidate) []PlayerCandidate {
	ranked := make([]PlayerCandidate, len(players))
	copy(ranked, players)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].PredictedPoints != ranked[j].PredictedPoints {
			return ranked[i].PredictedPoints > ranked[j].PredictedPoints
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}
