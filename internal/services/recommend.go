package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jstittsworth/fpl-optimizer/internal/models"
	"github.com/jstittsworth/fpl-optimizer/internal/optimizer"
	"github.com/jstittsworth/fpl-optimizer/internal/predictor"
	"github.com/jstittsworth/fpl-optimizer/pkg/database"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// ErrNoPlayerData means the players table is empty, usually because no
// refresh has run yet.
var ErrNoPlayerData = errors.New("no player data available")

// ErrInvalidRequest wraps constraint overrides that fail validation, so
// the API can answer 400 instead of 500.
var ErrInvalidRequest = errors.New("invalid suggestion parameters")

const (
	// Only this many upcoming fixtures feed fixture favorability.
	upcomingFixtureHorizon = 5

	// Transfer shortlists ignore predictions at or below this.
	transferPointsFloor = 3.0

	// Ownership below this marks a differential pick.
	differentialOwnership = 5.0

	defaultTransferTop   = 3
	defaultSuggestionTTL = 15 * time.Minute
)

// RecommendationService turns stored player data into point predictions,
// squad suggestions and transfer shortlists.
type RecommendationService struct {
	db       *database.DB
	cache    *CacheService
	logger   *logrus.Logger
	base     optimizer.SelectorConfig
	defaults optimizer.Constraints
	cacheTTL time.Duration
}

func NewRecommendationService(
	db *database.DB,
	cache *CacheService,
	logger *logrus.Logger,
	base optimizer.SelectorConfig,
	defaults optimizer.Constraints,
	cacheTTL time.Duration,
) *RecommendationService {
	if defaults.Quota == nil {
		defaults = optimizer.DefaultConstraints()
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultSuggestionTTL
	}
	return &RecommendationService{
		db:       db,
		cache:    cache,
		logger:   logger,
		base:     base,
		defaults: defaults,
		cacheTTL: cacheTTL,
	}
}

// SuggestionRequest carries the squad build parameters. Nil/zero fields
// fall back to the configured defaults.
type SuggestionRequest struct {
	GameweekID   *uint          `json:"gameweek,omitempty"`
	Budget       *int           `json:"budget,omitempty"`
	TeamCap      *int           `json:"team_cap,omitempty"`
	PremiumPicks int            `json:"premium_picks,omitempty"`
	Quota        map[string]int `json:"quota,omitempty"`
}

// SuggestionResult is the API-facing squad build: the full fifteen plus the
// best starting split, traceable via the persisted suggestion id.
type SuggestionResult struct {
	ID             uuid.UUID                   `json:"id"`
	GameweekID     *uint                       `json:"gameweek_id,omitempty"`
	Formation      string                      `json:"formation"`
	StartingEleven []optimizer.PlayerCandidate `json:"starting_eleven"`
	Bench          []optimizer.PlayerCandidate `json:"bench"`
	Squad          []optimizer.PlayerCandidate `json:"squad"`
	TotalCost      int                         `json:"total_cost"`
	PredictedTotal float64                     `json:"predicted_total"`
	ForceFillUsed  bool                        `json:"force_fill_used"`
	CreatedAt      time.Time                   `json:"created_at"`
}

// TransferTarget is one shortlist entry. Price is in £m for display, and
// ValueRating is predicted points per £1m.
type TransferTarget struct {
	PlayerID        uint     `json:"player_id"`
	Name            string   `json:"name"`
	Position        string   `json:"position"`
	TeamID          uint     `json:"team_id"`
	Price           float64  `json:"price"`
	PredictedPoints float64  `json:"predicted_points"`
	Confidence      float64  `json:"confidence"`
	Ownership       float64  `json:"ownership"`
	ValueRating     float64  `json:"value_rating"`
	RiskFactors     []string `json:"risk_factors,omitempty"`
}

// TransferTargets groups the three shortlists the planner shows.
type TransferTargets struct {
	BestValue        []TransferTarget `json:"best_value"`
	HighestPredicted []TransferTarget `json:"highest_predicted"`
	Differentials    []TransferTarget `json:"differential_picks"`
}

// RefreshPredictions recomputes predicted points for every player. The
// model is retrained from stored gameweek history on each pass and falls
// back to the heuristic when history is too thin to trust.
func (s *RecommendationService) RefreshPredictions(ctx context.Context) (int, error) {
	features, players, err := s.featureInputs(ctx)
	if err != nil {
		return 0, err
	}
	if len(players) == 0 {
		return 0, ErrNoPlayerData
	}

	samples, err := s.trainingSamples(features)
	if err != nil {
		return 0, err
	}
	model := predictor.Choose(samples, s.logger)

	now := time.Now().UTC()
	updated := 0
	for _, player := range players {
		if err := ctx.Err(); err != nil {
			return updated, err
		}

		pred := model.Predict(features[player.ID])
		err := s.db.DB.Model(&models.Player{}).Where("id = ?", player.ID).Updates(map[string]interface{}{
			"predicted_points":      pred.Points,
			"prediction_confidence": pred.Confidence,
			"predicted_at":          now,
		}).Error
		if err != nil {
			return updated, fmt.Errorf("failed to store prediction for player %d: %w", player.ID, err)
		}
		updated++
	}

	s.logger.WithFields(logrus.Fields{
		"model":   model.Name(),
		"players": updated,
		"samples": len(samples),
	}).Info("Refreshed player predictions")
	return updated, nil
}

// featureInputs assembles the per-player feature vectors from the stored
// players, team records and upcoming fixtures.
func (s *RecommendationService) featureInputs(ctx context.Context) (map[uint]predictor.Features, []models.Player, error) {
	var players []models.Player
	if err := s.db.DB.WithContext(ctx).Find(&players).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load players: %w", err)
	}

	var teams []models.Team
	if err := s.db.DB.WithContext(ctx).Find(&teams).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load teams: %w", err)
	}

	var fixtures []models.Fixture
	err := s.db.DB.WithContext(ctx).
		Where("finished = ?", false).
		Order("kickoff_time ASC").
		Find(&fixtures).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load fixtures: %w", err)
	}

	difficulties := make(map[uint][]int)
	for _, f := range fixtures {
		for _, teamID := range []uint{f.HomeTeamID, f.AwayTeamID} {
			if len(difficulties[teamID]) < upcomingFixtureHorizon {
				difficulties[teamID] = append(difficulties[teamID], f.DifficultyFor(teamID))
			}
		}
	}

	strength := make(map[uint]float64, len(teams))
	for _, t := range teams {
		strength[t.ID] = predictor.TeamStrength(t.Played, t.Won, t.GoalsFor, t.GoalsAgainst, t.CleanSheets)
	}

	features := make(map[uint]predictor.Features, len(players))
	for _, p := range players {
		teamStrength, ok := strength[p.TeamID]
		if !ok {
			teamStrength = predictor.TeamStrength(0, 0, 0, 0, 0)
		}
		features[p.ID] = predictor.Features{
			ElementType:         p.ElementType,
			Form:                predictor.Form(p.TotalPoints, p.Minutes, p.ElementType),
			FixtureFavorability: predictor.FixtureFavorability(difficulties[p.TeamID]),
			TeamStrength:        teamStrength,
			MinutesLikelihood:   predictor.MinutesLikelihood(p.Minutes),
			Available:           p.Available(),
		}
	}
	return features, players, nil
}

// trainingSamples pairs each played gameweek row with the player's current
// feature vector. Benched weeks are left out so the model learns scoring
// rates, not rotation.
func (s *RecommendationService) trainingSamples(features map[uint]predictor.Features) ([]predictor.TrainingSample, error) {
	var stats []models.PlayerGameweekStat
	if err := s.db.DB.Where("minutes > 0").Find(&stats).Error; err != nil {
		return nil, fmt.Errorf("failed to load gameweek stats: %w", err)
	}

	samples := make([]predictor.TrainingSample, 0, len(stats))
	for _, st := range stats {
		f, ok := features[st.PlayerID]
		if !ok {
			continue
		}
		samples = append(samples, predictor.TrainingSample{
			Features: f,
			Points:   float64(st.TotalPoints),
		})
	}
	return samples, nil
}

// BuildCandidates maps the stored player pool into selector inputs using
// the predictions written by the last RefreshPredictions pass.
func (s *RecommendationService) BuildCandidates(ctx context.Context) ([]optimizer.PlayerCandidate, error) {
	var players []models.Player
	if err := s.db.DB.WithContext(ctx).Order("id ASC").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("failed to load players: %w", err)
	}
	if len(players) == 0 {
		return nil, ErrNoPlayerData
	}

	candidates := make([]optimizer.PlayerCandidate, 0, len(players))
	for _, p := range players {
		pos, ok := positionFor(p.ElementType)
		if !ok {
			s.logger.Warnf("Skipping player %d with unknown element type %d", p.ID, p.ElementType)
			continue
		}
		candidates = append(candidates, optimizer.PlayerCandidate{
			ID:               int(p.ID),
			Name:             p.DisplayName(),
			Position:         pos,
			TeamID:           int(p.TeamID),
			Price:            p.NowCost,
			PredictedPoints:  p.PredictedPoints,
			OwnershipPercent: p.SelectedByPercent,
			SeasonPoints:     p.TotalPoints,
		})
	}
	return candidates, nil
}

// SuggestSquad runs the full pipeline: candidates, squad selection,
// formation split, then an audit row and a short-lived cache entry so
// identical requests are served without re-solving.
func (s *RecommendationService) SuggestSquad(ctx context.Context, req SuggestionRequest) (*SuggestionResult, error) {
	constraints, err := s.resolveConstraints(req)
	if err != nil {
		return nil, err
	}

	paramsHash := s.hashParams(req, constraints)
	cacheKey := SuggestionCacheKey(paramsHash)

	var cached SuggestionResult
	if err := s.cache.GetSimple(cacheKey, &cached); err == nil && cached.ID != uuid.Nil {
		s.logger.WithField("suggestion_id", cached.ID).Debug("Returning cached squad suggestion")
		return &cached, nil
	}

	candidates, err := s.BuildCandidates(ctx)
	if err != nil {
		return nil, err
	}

	selector := optimizer.NewSquadSelector(s.selectorConfig(req))
	squad, err := selector.Select(candidates, constraints)
	if err != nil {
		return nil, err
	}

	lineup, err := optimizer.NewFormationOptimizer().Optimize(squad)
	if err != nil {
		return nil, err
	}

	suggestion, err := s.persistSuggestion(req, constraints, paramsHash, squad, lineup)
	if err != nil {
		return nil, err
	}

	result := &SuggestionResult{
		ID:             suggestion.ID,
		GameweekID:     req.GameweekID,
		Formation:      lineup.Formation.Name,
		StartingEleven: lineup.StartingEleven,
		Bench:          lineup.Bench,
		Squad:          squad.Players,
		TotalCost:      squad.TotalCost,
		PredictedTotal: lineup.PredictedTotal,
		ForceFillUsed:  squad.ForceFillUsed,
		CreatedAt:      suggestion.CreatedAt,
	}

	if err := s.cache.SetSimple(cacheKey, result, s.cacheTTL); err != nil {
		s.logger.Warnf("Failed to cache squad suggestion: %v", err)
	}

	s.logger.WithFields(logrus.Fields{
		"suggestion_id":   result.ID,
		"formation":       result.Formation,
		"total_cost":      result.TotalCost,
		"predicted_total": result.PredictedTotal,
		"force_fill":      result.ForceFillUsed,
	}).Info("Built squad suggestion")
	return result, nil
}

// GetSuggestion loads a persisted suggestion by id.
func (s *RecommendationService) GetSuggestion(ctx context.Context, id uuid.UUID) (*models.SquadSuggestion, error) {
	var suggestion models.SquadSuggestion
	if err := s.db.DB.WithContext(ctx).First(&suggestion, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &suggestion, nil
}

// TransferTargets builds the three shortlists over players predicted above
// the floor and affordable within budget (tenths of £1m).
func (s *RecommendationService) TransferTargets(ctx context.Context, budget, topN int) (*TransferTargets, error) {
	if budget <= 0 {
		budget = s.defaults.Budget
	}
	if topN <= 0 {
		topN = defaultTransferTop
	}

	cacheKey := TransferTargetsCacheKey(budget, topN)
	var cached TransferTargets
	if err := s.cache.GetSimple(cacheKey, &cached); err == nil && len(cached.BestValue)+len(cached.HighestPredicted)+len(cached.Differentials) > 0 {
		return &cached, nil
	}

	var players []models.Player
	err := s.db.DB.WithContext(ctx).
		Where("predicted_points > ? AND now_cost <= ?", transferPointsFloor, budget).
		Order("id ASC").
		Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load transfer candidates: %w", err)
	}

	entries := make([]TransferTarget, 0, len(players))
	for _, p := range players {
		pos, ok := positionFor(p.ElementType)
		if !ok {
			continue
		}
		entries = append(entries, TransferTarget{
			PlayerID:        p.ID,
			Name:            p.DisplayName(),
			Position:        string(pos),
			TeamID:          p.TeamID,
			Price:           p.PriceMillions(),
			PredictedPoints: p.PredictedPoints,
			Confidence:      p.PredictionConfidence,
			Ownership:       p.SelectedByPercent,
			ValueRating:     valueRating(p),
			RiskFactors:     riskFactors(p),
		})
	}

	targets := &TransferTargets{
		BestValue:        topBy(entries, topN, func(a, b TransferTarget) bool { return a.ValueRating > b.ValueRating }),
		HighestPredicted: topBy(entries, topN, func(a, b TransferTarget) bool { return a.PredictedPoints > b.PredictedPoints }),
		Differentials: topBy(filterTargets(entries, func(t TransferTarget) bool {
			return t.Ownership < differentialOwnership
		}), topN, func(a, b TransferTarget) bool { return a.ValueRating > b.ValueRating }),
	}

	if err := s.cache.SetSimple(cacheKey, targets, s.cacheTTL); err != nil {
		s.logger.Warnf("Failed to cache transfer targets: %v", err)
	}
	return targets, nil
}

func (s *RecommendationService) resolveConstraints(req SuggestionRequest) (optimizer.Constraints, error) {
	constraints := optimizer.Constraints{
		Budget:  s.defaults.Budget,
		TeamCap: s.defaults.TeamCap,
		Quota:   make(map[optimizer.Position]int, len(s.defaults.Quota)),
	}
	for pos, n := range s.defaults.Quota {
		constraints.Quota[pos] = n
	}

	if req.Budget != nil {
		constraints.Budget = *req.Budget
	}
	if req.TeamCap != nil {
		constraints.TeamCap = *req.TeamCap
	}
	for posName, n := range req.Quota {
		pos, err := optimizer.ParsePosition(posName)
		if err != nil {
			return optimizer.Constraints{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		constraints.Quota[pos] = n
	}

	if err := constraints.Validate(); err != nil {
		return optimizer.Constraints{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return constraints, nil
}

func (s *RecommendationService) selectorConfig(req SuggestionRequest) optimizer.SelectorConfig {
	cfg := s.base
	if req.PremiumPicks > 0 {
		cfg.PremiumPicks = req.PremiumPicks
	}
	return cfg
}

func (s *RecommendationService) hashParams(req SuggestionRequest, constraints optimizer.Constraints) string {
	payload := struct {
		Gameweek     *uint                 `json:"gameweek"`
		Constraints  optimizer.Constraints `json:"constraints"`
		PremiumPicks int                   `json:"premium_picks"`
	}{
		Gameweek:     req.GameweekID,
		Constraints:  constraints,
		PremiumPicks: s.selectorConfig(req).PremiumPicks,
	}
	data, _ := json.Marshal(payload)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:16])
}

func (s *RecommendationService) persistSuggestion(
	req SuggestionRequest,
	constraints optimizer.Constraints,
	paramsHash string,
	squad *optimizer.Squad,
	lineup *optimizer.LineupResult,
) (*models.SquadSuggestion, error) {
	playerIDs := make(pq.Int64Array, 0, len(squad.Players))
	for _, p := range squad.Players {
		playerIDs = append(playerIDs, int64(p.ID))
	}

	paramsJSON, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal suggestion params: %w", err)
	}
	lineupJSON, err := json.Marshal(lineup)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lineup: %w", err)
	}

	suggestion := &models.SquadSuggestion{
		GameweekID:     req.GameweekID,
		Budget:         constraints.Budget,
		TeamCap:        constraints.TeamCap,
		Formation:      lineup.Formation.Name,
		PlayerIDs:      playerIDs,
		Lineup:         datatypes.JSON(lineupJSON),
		Params:         datatypes.JSON(paramsJSON),
		ParamsHash:     paramsHash,
		TotalCost:      squad.TotalCost,
		PredictedTotal: lineup.PredictedTotal,
		ForceFillUsed:  squad.ForceFillUsed,
	}
	if err := s.db.DB.Create(suggestion).Error; err != nil {
		return nil, fmt.Errorf("failed to persist squad suggestion: %w", err)
	}
	return suggestion, nil
}

func positionFor(elementType int) (optimizer.Position, bool) {
	switch elementType {
	case models.ElementTypeGoalkeeper:
		return optimizer.PositionGK, true
	case models.ElementTypeDefender:
		return optimizer.PositionDEF, true
	case models.ElementTypeMidfielder:
		return optimizer.PositionMID, true
	case models.ElementTypeForward:
		return optimizer.PositionFWD, true
	}
	return "", false
}

func valueRating(p models.Player) float64 {
	price := p.PriceMillions()
	if price <= 0 {
		return 0
	}
	return p.PredictedPoints / price
}

func riskFactors(p models.Player) []string {
	var risks []string
	if predictor.MinutesLikelihood(p.Minutes) < 0.7 {
		risks = append(risks, "Rotation risk")
	}
	if p.SelectedByPercent > 25 {
		risks = append(risks, "High ownership")
	}
	if !p.Available() {
		risks = append(risks, "Injury/suspension concern")
	}
	return risks
}

func filterTargets(entries []TransferTarget, keep func(TransferTarget) bool) []TransferTarget {
	out := make([]TransferTarget, 0, len(entries))
	for _, e := range entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// topBy returns the first n entries under the given order without mutating
// the input. Ties keep ascending player id so output is reproducible.
func topBy(entries []TransferTarget, n int, less func(a, b TransferTarget) bool) []TransferTarget {
	sorted := make([]TransferTarget, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if less(sorted[i], sorted[j]) {
			return true
		}
		if less(sorted[j], sorted[i]) {
			return false
		}
		return sorted[i].PlayerID < sorted[j].PlayerID
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
