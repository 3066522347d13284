package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jstittsworth/fpl-optimizer/internal/models"
	"github.com/jstittsworth/fpl-optimizer/internal/optimizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func newRecommendationService(t *testing.T) *RecommendationService {
	t.Helper()
	return NewRecommendationService(
		newTestDB(t),
		nil,
		newTestLogger(),
		optimizer.DefaultSelectorConfig(),
		optimizer.DefaultConstraints(),
		0,
	)
}

// fifteenPlayerPool seeds a pool that exactly covers the default quota
// across five clubs, three players each.
func fifteenPlayerPool(t *testing.T, svc *RecommendationService) {
	t.Helper()
	pool := []models.Player{
		{ID: 1, Code: 1, TeamID: 1, WebName: "Kepa", ElementType: 1, NowCost: 45, TotalPoints: 60, SelectedByPercent: 10, PredictedPoints: 3.0},
		{ID: 2, Code: 2, TeamID: 2, WebName: "Raya", ElementType: 1, NowCost: 50, TotalPoints: 70, SelectedByPercent: 12, PredictedPoints: 3.5},

		{ID: 11, Code: 11, TeamID: 1, WebName: "Burn", ElementType: 2, NowCost: 40, TotalPoints: 40, SelectedByPercent: 3, PredictedPoints: 3.2},
		{ID: 12, Code: 12, TeamID: 2, WebName: "Colwill", ElementType: 2, NowCost: 42, TotalPoints: 44, SelectedByPercent: 4, PredictedPoints: 3.4},
		{ID: 13, Code: 13, TeamID: 3, WebName: "Gvardiol", ElementType: 2, NowCost: 44, TotalPoints: 48, SelectedByPercent: 8, PredictedPoints: 3.6},
		{ID: 14, Code: 14, TeamID: 4, WebName: "Gabriel", ElementType: 2, NowCost: 46, TotalPoints: 52, SelectedByPercent: 15, PredictedPoints: 3.8},
		{ID: 15, Code: 15, TeamID: 5, WebName: "Trent", ElementType: 2, NowCost: 48, TotalPoints: 56, SelectedByPercent: 20, PredictedPoints: 4.0},

		{ID: 21, Code: 21, TeamID: 1, WebName: "Gordon", ElementType: 3, NowCost: 60, TotalPoints: 70, SelectedByPercent: 9, PredictedPoints: 5.5},
		{ID: 22, Code: 22, TeamID: 2, WebName: "Palmer", ElementType: 3, NowCost: 75, TotalPoints: 90, SelectedByPercent: 25, PredictedPoints: 6.5},
		{ID: 23, Code: 23, TeamID: 3, WebName: "Foden", ElementType: 3, NowCost: 80, TotalPoints: 95, SelectedByPercent: 28, PredictedPoints: 7.0},
		{ID: 24, Code: 24, TeamID: 4, WebName: "Rice", ElementType: 3, NowCost: 55, TotalPoints: 55, SelectedByPercent: 6, PredictedPoints: 4.5},
		{ID: 25, Code: 25, TeamID: 5, WebName: "Salah", ElementType: 3, NowCost: 100, TotalPoints: 140, SelectedByPercent: 50, PredictedPoints: 8.5},

		{ID: 31, Code: 31, TeamID: 3, WebName: "Cunha", ElementType: 4, NowCost: 60, TotalPoints: 65, SelectedByPercent: 7, PredictedPoints: 5.0},
		{ID: 32, Code: 32, TeamID: 4, WebName: "Isak", ElementType: 4, NowCost: 75, TotalPoints: 85, SelectedByPercent: 22, PredictedPoints: 6.0},
		{ID: 33, Code: 33, TeamID: 5, WebName: "Haaland", ElementType: 4, NowCost: 80, TotalPoints: 110, SelectedByPercent: 55, PredictedPoints: 7.5},
	}
	require.NoError(t, svc.db.DB.Create(&pool).Error)
}

func squadIDs(players []optimizer.PlayerCandidate) []int {
	ids := make([]int, 0, len(players))
	for _, p := range players {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestRefreshPredictionsStoresModelOutput(t *testing.T) {
	svc := newRecommendationService(t)

	require.NoError(t, svc.db.DB.Create(&models.Team{
		ID: 1, Code: 3, Name: "Arsenal", ShortName: "ARS",
		Played: 5, Won: 4, GoalsFor: 12, GoalsAgainst: 3, CleanSheets: 3,
	}).Error)
	require.NoError(t, svc.db.DB.Create(&[]models.Player{
		{ID: 1, Code: 1, TeamID: 1, WebName: "Saka", ElementType: 3, NowCost: 100, TotalPoints: 120, Minutes: 2500, Status: models.StatusAvailable},
		{ID: 2, Code: 2, TeamID: 1, WebName: "Havertz", ElementType: 3, NowCost: 80, TotalPoints: 120, Minutes: 2500, Status: models.StatusInjured},
		{ID: 3, Code: 3, TeamID: 1, WebName: "Nwaneri", ElementType: 3, NowCost: 45, TotalPoints: 0, Minutes: 0, Status: models.StatusAvailable},
	}).Error)

	updated, err := svc.RefreshPredictions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	var saka, havertz, nwaneri models.Player
	require.NoError(t, svc.db.DB.First(&saka, 1).Error)
	require.NoError(t, svc.db.DB.First(&havertz, 2).Error)
	require.NoError(t, svc.db.DB.First(&nwaneri, 3).Error)

	for _, p := range []models.Player{saka, havertz, nwaneri} {
		assert.Greater(t, p.PredictedPoints, 0.0, "player %d", p.ID)
		require.NotNil(t, p.PredictedAt, "player %d", p.ID)
	}
	assert.Greater(t, saka.PredictionConfidence, 0.0)

	// Identical numbers, but one of them is injured.
	assert.Greater(t, saka.PredictedPoints, havertz.PredictedPoints)
}

func TestRefreshPredictionsWithoutPlayers(t *testing.T) {
	svc := newRecommendationService(t)

	_, err := svc.RefreshPredictions(context.Background())
	assert.ErrorIs(t, err, ErrNoPlayerData)
}

func TestBuildCandidatesMapsPlayers(t *testing.T) {
	svc := newRecommendationService(t)

	_, err := svc.BuildCandidates(context.Background())
	assert.ErrorIs(t, err, ErrNoPlayerData)

	require.NoError(t, svc.db.DB.Create(&[]models.Player{
		{ID: 2, Code: 2, TeamID: 1, WebName: "Raya", ElementType: 1, NowCost: 55, TotalPoints: 70, SelectedByPercent: 20.5, PredictedPoints: 3.5},
		{ID: 9, Code: 9, TeamID: 2, WebName: "Unknown", ElementType: 7, NowCost: 50},
		{ID: 10, Code: 10, TeamID: 2, WebName: "Watkins", ElementType: 4, NowCost: 90, TotalPoints: 88, SelectedByPercent: 18.7, PredictedPoints: 5.8},
	}).Error)

	candidates, err := svc.BuildCandidates(context.Background())
	require.NoError(t, err)
	require.Len(t, candidates, 2, "unknown element types are skipped")

	raya := candidates[0]
	assert.Equal(t, 2, raya.ID)
	assert.Equal(t, "Raya", raya.Name)
	assert.Equal(t, optimizer.PositionGK, raya.Position)
	assert.Equal(t, 1, raya.TeamID)
	assert.Equal(t, 55, raya.Price)
	assert.InDelta(t, 3.5, raya.PredictedPoints, 1e-9)
	assert.InDelta(t, 20.5, raya.OwnershipPercent, 1e-9)
	assert.Equal(t, 70, raya.SeasonPoints)

	assert.Equal(t, optimizer.PositionFWD, candidates[1].Position)
}

func TestSuggestSquadBuildsAndPersists(t *testing.T) {
	svc := newRecommendationService(t)
	fifteenPlayerPool(t, svc)

	result, err := svc.SuggestSquad(context.Background(), SuggestionRequest{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEqual(t, uuid.Nil, result.ID)
	assert.Len(t, result.Squad, 15)
	assert.Len(t, result.StartingEleven, 11)
	assert.Len(t, result.Bench, 4)
	assert.Equal(t, 900, result.TotalCost)
	assert.False(t, result.ForceFillUsed)

	// Best keeper plus the strongest 3-4-3 front ten.
	assert.Equal(t, "3-4-3", result.Formation)
	assert.InDelta(t, 60.9, result.PredictedTotal, 1e-9)
	assert.Equal(t, 2, result.StartingEleven[0].ID, "keeper slot goes to the higher-predicted goalkeeper")
	assert.ElementsMatch(t, []int{1, 11, 12, 24}, squadIDs(result.Bench))

	stored, err := svc.GetSuggestion(context.Background(), result.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000, stored.Budget)
	assert.Equal(t, 3, stored.TeamCap)
	assert.Equal(t, "3-4-3", stored.Formation)
	assert.Len(t, stored.PlayerIDs, 15)
	assert.Len(t, stored.ParamsHash, 32)
	assert.InDelta(t, 60.9, stored.PredictedTotal, 1e-9)
	assert.False(t, stored.ForceFillUsed)

	// The pipeline is deterministic: a second run picks the same squad.
	again, err := svc.SuggestSquad(context.Background(), SuggestionRequest{})
	require.NoError(t, err)
	assert.ElementsMatch(t, squadIDs(result.Squad), squadIDs(again.Squad))
	assert.Equal(t, result.Formation, again.Formation)

	var count int64
	require.NoError(t, svc.db.DB.Model(&models.SquadSuggestion{}).Count(&count).Error)
	assert.EqualValues(t, 2, count, "without a cache each run persists its own row")
}

func TestSuggestSquadZeroBudgetForceFills(t *testing.T) {
	svc := newRecommendationService(t)
	fifteenPlayerPool(t, svc)

	result, err := svc.SuggestSquad(context.Background(), SuggestionRequest{Budget: intPtr(0)})
	require.NoError(t, err, "a zero budget is not an error, it just forces the fill phase")
	assert.True(t, result.ForceFillUsed)
	assert.Len(t, result.Squad, 15)
}

func TestSuggestSquadInsufficientPool(t *testing.T) {
	svc := newRecommendationService(t)

	// No forwards at all: the selector must refuse before picking anyone.
	require.NoError(t, svc.db.DB.Create(&[]models.Player{
		{ID: 1, Code: 1, TeamID: 1, WebName: "GK1", ElementType: 1, NowCost: 45},
		{ID: 2, Code: 2, TeamID: 2, WebName: "GK2", ElementType: 1, NowCost: 45},
		{ID: 11, Code: 11, TeamID: 1, WebName: "D1", ElementType: 2, NowCost: 40},
		{ID: 12, Code: 12, TeamID: 2, WebName: "D2", ElementType: 2, NowCost: 40},
		{ID: 13, Code: 13, TeamID: 3, WebName: "D3", ElementType: 2, NowCost: 40},
		{ID: 14, Code: 14, TeamID: 4, WebName: "D4", ElementType: 2, NowCost: 40},
		{ID: 15, Code: 15, TeamID: 5, WebName: "D5", ElementType: 2, NowCost: 40},
		{ID: 21, Code: 21, TeamID: 1, WebName: "M1", ElementType: 3, NowCost: 45},
		{ID: 22, Code: 22, TeamID: 2, WebName: "M2", ElementType: 3, NowCost: 45},
		{ID: 23, Code: 23, TeamID: 3, WebName: "M3", ElementType: 3, NowCost: 45},
		{ID: 24, Code: 24, TeamID: 4, WebName: "M4", ElementType: 3, NowCost: 45},
		{ID: 25, Code: 25, TeamID: 5, WebName: "M5", ElementType: 3, NowCost: 45},
	}).Error)

	_, err := svc.SuggestSquad(context.Background(), SuggestionRequest{})
	require.Error(t, err)

	var icErr *optimizer.InsufficientCandidatesError
	require.ErrorAs(t, err, &icErr)
	assert.Equal(t, optimizer.PositionFWD, icErr.Position)
	assert.Equal(t, 0, icErr.Have)
	assert.Equal(t, 3, icErr.Need)
}

func TestSuggestSquadRejectsBadOverrides(t *testing.T) {
	svc := newRecommendationService(t)
	fifteenPlayerPool(t, svc)

	_, err := svc.SuggestSquad(context.Background(), SuggestionRequest{
		Quota: map[string]int{"STRIKER": 1},
	})
	assert.Error(t, err)

	_, err = svc.SuggestSquad(context.Background(), SuggestionRequest{TeamCap: intPtr(0)})
	assert.Error(t, err)
}

func TestTransferTargetsShortlists(t *testing.T) {
	svc := newRecommendationService(t)

	require.NoError(t, svc.db.DB.Create(&[]models.Player{
		{ID: 1, Code: 1, TeamID: 1, WebName: "Salah", ElementType: 3, NowCost: 100, Minutes: 3000, SelectedByPercent: 45, PredictedPoints: 8.0, PredictionConfidence: 7.0},
		{ID: 2, Code: 2, TeamID: 1, WebName: "Anderson", ElementType: 3, NowCost: 50, Minutes: 0, SelectedByPercent: 4.0, PredictedPoints: 6.0},
		{ID: 3, Code: 3, TeamID: 2, WebName: "Lewis", ElementType: 2, NowCost: 50, Minutes: 500, SelectedByPercent: 30, PredictedPoints: 5.5},
		{ID: 4, Code: 4, TeamID: 2, WebName: "Archer", ElementType: 4, NowCost: 40, Minutes: 400, SelectedByPercent: 2.0, PredictedPoints: 2.0},
		{ID: 5, Code: 5, TeamID: 3, WebName: "Wood", ElementType: 4, NowCost: 70, Minutes: 2800, SelectedByPercent: 4.9, PredictedPoints: 7.0},
		{ID: 6, Code: 6, TeamID: 3, WebName: "Maddison", ElementType: 3, NowCost: 120, Minutes: 0, SelectedByPercent: 10, PredictedPoints: 6.0, Status: models.StatusInjured},
	}).Error)

	targets, err := svc.TransferTargets(context.Background(), 0, 0)
	require.NoError(t, err)

	// Predicted points per £1m: Anderson 1.2, Lewis 1.1, Wood 1.0.
	require.Len(t, targets.BestValue, 3)
	assert.Equal(t, uint(2), targets.BestValue[0].PlayerID)
	assert.Equal(t, uint(3), targets.BestValue[1].PlayerID)
	assert.Equal(t, uint(5), targets.BestValue[2].PlayerID)
	assert.InDelta(t, 1.2, targets.BestValue[0].ValueRating, 1e-9)

	// Raw predicted points, id ascending on the 6.0 tie.
	require.Len(t, targets.HighestPredicted, 3)
	assert.Equal(t, uint(1), targets.HighestPredicted[0].PlayerID)
	assert.Equal(t, uint(5), targets.HighestPredicted[1].PlayerID)
	assert.Equal(t, uint(2), targets.HighestPredicted[2].PlayerID)
	assert.InDelta(t, 10.0, targets.HighestPredicted[0].Price, 1e-9)

	// Ownership under 5%, ranked by value.
	require.Len(t, targets.Differentials, 2)
	assert.Equal(t, uint(2), targets.Differentials[0].PlayerID)
	assert.Equal(t, uint(5), targets.Differentials[1].PlayerID)

	// Archer sits below the prediction floor and must not appear anywhere.
	for _, list := range [][]TransferTarget{targets.BestValue, targets.HighestPredicted, targets.Differentials} {
		for _, entry := range list {
			assert.NotEqual(t, uint(4), entry.PlayerID)
		}
	}

	assert.Equal(t, []string{"High ownership"}, targets.HighestPredicted[0].RiskFactors, "a nailed-on starter only carries the ownership flag")
	assert.Equal(t, []string{"Rotation risk"}, targets.BestValue[0].RiskFactors)
	assert.ElementsMatch(t, []string{"Rotation risk", "High ownership"}, targets.BestValue[1].RiskFactors)

	// A tight budget drops the expensive names from every list.
	tight, err := svc.TransferTargets(context.Background(), 100, 10)
	require.NoError(t, err)
	require.Len(t, tight.HighestPredicted, 4)
	for _, entry := range tight.HighestPredicted {
		assert.NotEqual(t, uint(6), entry.PlayerID, "Maddison costs more than the budget")
	}

	// With room for everyone the injured pick surfaces with its risk flag.
	wide, err := svc.TransferTargets(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, wide.HighestPredicted, 5)
	var maddison *TransferTarget
	for i := range wide.HighestPredicted {
		if wide.HighestPredicted[i].PlayerID == 6 {
			maddison = &wide.HighestPredicted[i]
		}
	}
	require.NotNil(t, maddison)
	assert.Contains(t, maddison.RiskFactors, "Injury/suspension concern")
	assert.Contains(t, maddison.RiskFactors, "Rotation risk")
}
