package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/jstittsworth/fpl-optimizer/internal/models"
	"github.com/jstittsworth/fpl-optimizer/internal/predictor"
	"github.com/jstittsworth/fpl-optimizer/internal/providers"
	"github.com/jstittsworth/fpl-optimizer/pkg/database"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

const (
	upsertBatchSize = 100

	// The strength rating looks at recent results only, not the whole season.
	recentFixtureWindow = 50
)

// footballDataAliases maps football-data.org club names to the names the FPL
// API uses, for the clubs where the two disagree. Unlisted names must match
// exactly or the row is skipped.
var footballDataAliases = map[string]string{
	"Brighton & Hove Albion FC":  "Brighton",
	"Newcastle United FC":        "Newcastle",
	"Manchester United FC":       "Man Utd",
	"Manchester City FC":         "Man City",
	"Tottenham Hotspur FC":       "Spurs",
	"Nottingham Forest FC":       "Nott'm Forest",
	"Sunderland AFC":             "Sunderland",
	"West Ham United FC":         "West Ham",
	"Wolverhampton Wanderers FC": "Wolves",
	"Arsenal FC":                 "Arsenal",
	"Aston Villa FC":             "Aston Villa",
	"Chelsea FC":                 "Chelsea",
	"Everton FC":                 "Everton",
	"Fulham FC":                  "Fulham",
	"Liverpool FC":               "Liverpool",
	"Crystal Palace FC":          "Crystal Palace",
	"Brentford FC":               "Brentford",
	"AFC Bournemouth":            "Bournemouth",
	"Burnley FC":                 "Burnley",
	"Leeds United FC":            "Leeds",
}

// SyncService pulls provider data into the database. Every run is recorded
// as a RefreshRun row so the admin API can report status and history.
type SyncService struct {
	db       *database.DB
	fpl      *providers.FPLClient
	football *providers.FootballDataClient
	logger   *logrus.Logger
}

func NewSyncService(
	db *database.DB,
	fpl *providers.FPLClient,
	football *providers.FootballDataClient,
	logger *logrus.Logger,
) *SyncService {
	return &SyncService{
		db:       db,
		fpl:      fpl,
		football: football,
		logger:   logger,
	}
}

// SyncAll refreshes teams, gameweeks, players and fixtures from the FPL API,
// recomputes team strength from recent results, and enriches the table with
// football-data.org standings when an API key is configured.
func (s *SyncService) SyncAll(ctx context.Context, trigger string) (*models.RefreshRun, error) {
	run := &models.RefreshRun{
		TriggeredBy: trigger,
		Status:      models.RefreshRunning,
		Providers:   pq.StringArray{"fpl"},
		StartedAt:   time.Now().UTC(),
	}
	if s.football.Enabled() {
		run.Providers = append(run.Providers, "football-data")
	}
	if err := s.db.DB.Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to record refresh run: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"trigger": trigger,
	}).Info("Starting data refresh")

	counts, err := s.refresh(ctx)
	if err != nil {
		s.finishRun(run, models.RefreshFailed, counts, err)
		return run, err
	}

	s.finishRun(run, models.RefreshCompleted, counts, nil)
	return run, nil
}

func (s *SyncService) refresh(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)

	bootstrap, err := s.fpl.GetBootstrap(ctx)
	if err != nil {
		return counts, fmt.Errorf("bootstrap fetch failed: %w", err)
	}

	n, err := s.upsertTeams(bootstrap.Teams)
	if err != nil {
		return counts, err
	}
	counts["teams"] = n

	n, err = s.upsertGameweeks(bootstrap.Events)
	if err != nil {
		return counts, err
	}
	counts["gameweeks"] = n

	n, err = s.upsertPlayers(bootstrap.Elements)
	if err != nil {
		return counts, err
	}
	counts["players"] = n

	fixtures, err := s.fpl.GetFixtures(ctx)
	if err != nil {
		return counts, fmt.Errorf("fixtures fetch failed: %w", err)
	}

	n, err = s.upsertFixtures(fixtures)
	if err != nil {
		return counts, err
	}
	counts["fixtures"] = n

	if err := s.updateTeamForm(fixtures); err != nil {
		return counts, err
	}

	// Standings are an enrichment, not a dependency: a missing key or a
	// football-data outage must never fail the FPL refresh.
	if s.football.Enabled() {
		n, err := s.enrichFromStandings(ctx)
		if err != nil {
			s.logger.Warnf("Standings enrichment failed: %v", err)
		} else {
			counts["standings"] = n
		}
	}

	return counts, nil
}

func (s *SyncService) finishRun(run *models.RefreshRun, status models.RefreshStatus, counts map[string]int, cause error) {
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      status,
		"finished_at": now,
	}
	if data, err := json.Marshal(counts); err == nil {
		updates["counts"] = datatypes.JSON(data)
	}
	if cause != nil {
		updates["error"] = cause.Error()
	}
	if err := s.db.DB.Model(run).Updates(updates).Error; err != nil {
		s.logger.Errorf("Failed to finalize refresh run %s: %v", run.ID, err)
		return
	}

	run.Status = status
	run.FinishedAt = &now

	s.logger.WithFields(logrus.Fields{
		"run_id":   run.ID,
		"status":   status,
		"counts":   counts,
		"duration": now.Sub(run.StartedAt).Round(time.Millisecond).String(),
	}).Info("Data refresh finished")
}

func (s *SyncService) upsertTeams(teams []providers.Team) (int, error) {
	if len(teams) == 0 {
		return 0, nil
	}

	rows := make([]models.Team, 0, len(teams))
	for _, t := range teams {
		rows = append(rows, models.Team{
			ID:           t.ID,
			Code:         t.Code,
			Name:         t.Name,
			ShortName:    t.ShortName,
			StrengthHome: t.StrengthOverallHome,
			StrengthAway: t.StrengthOverallAway,
		})
	}

	// Form and standings columns are computed by later stages, so the
	// bootstrap upsert must leave them alone.
	err := s.db.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"code", "name", "short_name", "strength_home", "strength_away", "updated_at",
		}),
	}).CreateInBatches(&rows, upsertBatchSize).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert teams: %w", err)
	}
	return len(rows), nil
}

func (s *SyncService) upsertGameweeks(events []providers.Event) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	rows := make([]models.Gameweek, 0, len(events))
	for _, e := range events {
		rows = append(rows, models.Gameweek{
			ID:              e.ID,
			Name:            e.Name,
			DeadlineTime:    e.DeadlineTime,
			Finished:        e.Finished,
			DataChecked:     e.DataChecked,
			IsPrevious:      e.IsPrevious,
			IsCurrent:       e.IsCurrent,
			IsNext:          e.IsNext,
			AverageScore:    e.AverageEntryScore,
			HighestScore:    e.HighestScore,
			MostCaptainedID: e.MostCaptained,
			MostSelectedID:  e.MostSelected,
			TransfersMade:   e.TransfersMade,
		})
	}

	// deadline_notified is owned by the notifier; clobbering it would
	// re-send reminders on every refresh.
	err := s.db.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "deadline_time", "finished", "data_checked",
			"is_previous", "is_current", "is_next",
			"average_score", "highest_score",
			"most_captained_id", "most_selected_id", "transfers_made",
			"updated_at",
		}),
	}).CreateInBatches(&rows, upsertBatchSize).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert gameweeks: %w", err)
	}
	return len(rows), nil
}

func (s *SyncService) upsertPlayers(elements []providers.Element) (int, error) {
	if len(elements) == 0 {
		return 0, nil
	}

	rows := make([]models.Player, 0, len(elements))
	for _, e := range elements {
		rows = append(rows, models.Player{
			ID:                 e.ID,
			Code:               e.Code,
			TeamID:             e.TeamID,
			FirstName:          e.FirstName,
			SecondName:         e.SecondName,
			WebName:            e.WebName,
			ElementType:        e.ElementType,
			NowCost:            e.NowCost,
			TotalPoints:        e.TotalPoints,
			EventPoints:        e.EventPoints,
			Minutes:            e.Minutes,
			GoalsScored:        e.GoalsScored,
			Assists:            e.Assists,
			CleanSheets:        e.CleanSheets,
			GoalsConceded:      e.GoalsConceded,
			Saves:              e.Saves,
			Bonus:              e.Bonus,
			BPS:                e.BPS,
			Form:               e.Form,
			PointsPerGame:      e.PointsPerGame,
			SelectedByPercent:  e.SelectedByPercent,
			TransfersInEvent:   e.TransfersInEvent,
			TransfersOutEvent:  e.TransfersOutEvent,
			Influence:          e.Influence,
			Creativity:         e.Creativity,
			Threat:             e.Threat,
			ICTIndex:           e.ICTIndex,
			Status:             models.PlayerStatus(e.Status),
			News:               e.News,
			ChanceOfPlaying:    e.ChanceOfPlaying,
		})
	}

	// predicted_* columns are written by the prediction pass, never by
	// the provider upsert.
	err := s.db.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"code", "team_id", "first_name", "second_name", "web_name",
			"element_type", "now_cost", "total_points", "event_points",
			"minutes", "goals_scored", "assists", "clean_sheets",
			"goals_conceded", "saves", "bonus", "bps",
			"form", "points_per_game", "selected_by_percent",
			"transfers_in_event", "transfers_out_event",
			"influence", "creativity", "threat", "ict_index",
			"status", "news", "chance_of_playing",
			"updated_at",
		}),
	}).CreateInBatches(&rows, upsertBatchSize).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert players: %w", err)
	}
	return len(rows), nil
}

func (s *SyncService) upsertFixtures(fixtures []providers.Fixture) (int, error) {
	if len(fixtures) == 0 {
		return 0, nil
	}

	rows := make([]models.Fixture, 0, len(fixtures))
	for _, f := range fixtures {
		rows = append(rows, models.Fixture{
			ID:             f.ID,
			Code:           f.Code,
			GameweekID:     f.Event,
			KickoffTime:    f.KickoffTime,
			HomeTeamID:     f.HomeTeamID,
			AwayTeamID:     f.AwayTeamID,
			HomeDifficulty: f.HomeDifficulty,
			AwayDifficulty: f.AwayDifficulty,
			HomeScore:      f.HomeScore,
			AwayScore:      f.AwayScore,
			Started:        f.Started,
			Finished:       f.Finished,
		})
	}

	err := s.db.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"code", "gameweek_id", "kickoff_time",
			"home_team_id", "away_team_id",
			"home_difficulty", "away_difficulty",
			"home_score", "away_score",
			"started", "finished",
			"updated_at",
		}),
	}).CreateInBatches(&rows, upsertBatchSize).Error
	if err != nil {
		return 0, fmt.Errorf("failed to upsert fixtures: %w", err)
	}
	return len(rows), nil
}

type teamFormStats struct {
	Played       int
	Won          int
	Drawn        int
	Lost         int
	GoalsFor     int
	GoalsAgainst int
	CleanSheets  int
}

// updateTeamForm recomputes per-team results and the 0-10 strength rating
// from the most recent completed fixtures.
func (s *SyncService) updateTeamForm(fixtures []providers.Fixture) error {
	recent := recentCompletedFixtures(fixtures, recentFixtureWindow)
	if len(recent) == 0 {
		return nil
	}

	form := make(map[uint]*teamFormStats)
	stats := func(teamID uint) *teamFormStats {
		if _, ok := form[teamID]; !ok {
			form[teamID] = &teamFormStats{}
		}
		return form[teamID]
	}

	for _, f := range recent {
		home, away := stats(f.HomeTeamID), stats(f.AwayTeamID)
		homeScore, awayScore := *f.HomeScore, *f.AwayScore

		home.Played++
		away.Played++
		home.GoalsFor += homeScore
		home.GoalsAgainst += awayScore
		away.GoalsFor += awayScore
		away.GoalsAgainst += homeScore

		switch {
		case homeScore > awayScore:
			home.Won++
			away.Lost++
		case awayScore > homeScore:
			away.Won++
			home.Lost++
		default:
			home.Drawn++
			away.Drawn++
		}

		if homeScore == 0 {
			away.CleanSheets++
		}
		if awayScore == 0 {
			home.CleanSheets++
		}
	}

	for teamID, f := range form {
		rating := predictor.TeamStrength(f.Played, f.Won, f.GoalsFor, f.GoalsAgainst, f.CleanSheets)
		err := s.db.DB.Model(&models.Team{}).Where("id = ?", teamID).Updates(map[string]interface{}{
			"played":          f.Played,
			"won":             f.Won,
			"drawn":           f.Drawn,
			"lost":            f.Lost,
			"goals_for":       f.GoalsFor,
			"goals_against":   f.GoalsAgainst,
			"clean_sheets":    f.CleanSheets,
			"strength_rating": rating,
		}).Error
		if err != nil {
			return fmt.Errorf("failed to update form for team %d: %w", teamID, err)
		}
	}

	return nil
}

func recentCompletedFixtures(fixtures []providers.Fixture, window int) []providers.Fixture {
	completed := make([]providers.Fixture, 0, len(fixtures))
	for _, f := range fixtures {
		if f.Finished && f.HomeScore != nil && f.AwayScore != nil {
			completed = append(completed, f)
		}
	}

	sort.SliceStable(completed, func(i, j int) bool {
		ti, tj := completed[i].KickoffTime, completed[j].KickoffTime
		if ti == nil || tj == nil {
			return tj != nil
		}
		return ti.Before(*tj)
	})

	if len(completed) > window {
		completed = completed[len(completed)-window:]
	}
	return completed
}

// enrichFromStandings matches football-data.org standings rows to FPL teams
// by name and stores league position and points alongside the provider id.
func (s *SyncService) enrichFromStandings(ctx context.Context) (int, error) {
	standings, err := s.football.GetStandings(ctx)
	if err != nil {
		return 0, err
	}

	var table []providers.StandingRow
	for _, group := range standings.Standings {
		if group.Type == "TOTAL" {
			table = group.Table
			break
		}
	}
	if len(table) == 0 {
		return 0, fmt.Errorf("standings response had no TOTAL table")
	}

	var teams []models.Team
	if err := s.db.DB.Find(&teams).Error; err != nil {
		return 0, fmt.Errorf("failed to load teams: %w", err)
	}
	byName := make(map[string]*models.Team, len(teams))
	for i := range teams {
		byName[teams[i].Name] = &teams[i]
	}

	resolved := 0
	for _, row := range table {
		team := resolveStandingsTeam(row.Team.Name, byName)
		if team == nil {
			s.logger.Warnf("Could not map standings team %q to an FPL team", row.Team.Name)
			continue
		}

		err := s.db.DB.Model(&models.Team{}).Where("id = ?", team.ID).Updates(map[string]interface{}{
			"football_data_id": row.Team.ID,
			"position":         row.Position,
			"points":           row.Points,
		}).Error
		if err != nil {
			return resolved, fmt.Errorf("failed to enrich team %d: %w", team.ID, err)
		}
		resolved++
	}

	return resolved, nil
}

func resolveStandingsTeam(name string, byName map[string]*models.Team) *models.Team {
	if team, ok := byName[name]; ok {
		return team
	}
	if alias, ok := footballDataAliases[name]; ok {
		if team, ok := byName[alias]; ok {
			return team
		}
	}
	return nil
}

// SyncPlayerHistories pulls per-gameweek rows for the top scorers. Each
// player costs one rate-limited API call, so the caller bounds how many.
func (s *SyncService) SyncPlayerHistories(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}

	var players []models.Player
	err := s.db.DB.Order("total_points DESC, id ASC").Limit(limit).Find(&players).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load players: %w", err)
	}

	synced := 0
	for _, player := range players {
		if err := ctx.Err(); err != nil {
			return synced, err
		}

		summary, err := s.fpl.GetElementSummary(ctx, player.ID)
		if err != nil {
			if providers.IsBreakerOpen(err) {
				return synced, fmt.Errorf("history sync aborted: %w", err)
			}
			s.logger.Warnf("Failed to fetch history for player %d: %v", player.ID, err)
			continue
		}

		if err := s.upsertPlayerHistory(player.ID, summary.History); err != nil {
			return synced, err
		}
		synced++
	}

	s.logger.Infof("Synced gameweek history for %d players", synced)
	return synced, nil
}

func (s *SyncService) upsertPlayerHistory(playerID uint, history []providers.ElementHistory) error {
	if len(history) == 0 {
		return nil
	}

	rows := make([]models.PlayerGameweekStat, 0, len(history))
	for _, h := range history {
		rows = append(rows, models.PlayerGameweekStat{
			PlayerID:       playerID,
			GameweekID:     h.Round,
			OpponentTeamID: h.OpponentTeam,
			WasHome:        h.WasHome,
			Minutes:        h.Minutes,
			TotalPoints:    h.TotalPoints,
			GoalsScored:    h.GoalsScored,
			Assists:        h.Assists,
			CleanSheets:    h.CleanSheets,
			GoalsConceded:  h.GoalsConceded,
			Saves:          h.Saves,
			Bonus:          h.Bonus,
			BPS:            h.BPS,
			Value:          h.Value,
			Selected:       h.Selected,
		})
	}

	err := s.db.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "player_id"}, {Name: "gameweek_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"opponent_team_id", "was_home", "minutes", "total_points",
			"goals_scored", "assists", "clean_sheets", "goals_conceded",
			"saves", "bonus", "bps", "value", "selected",
		}),
	}).CreateInBatches(&rows, upsertBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to upsert history for player %d: %w", playerID, err)
	}
	return nil
}
