package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jstittsworth/fpl-optimizer/internal/models"
	"github.com/jstittsworth/fpl-optimizer/internal/providers"
	"github.com/jstittsworth/fpl-optimizer/pkg/database"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// The uuid-keyed tables declare postgres column defaults that sqlite cannot
// parse, so the test schema creates them by hand.
const (
	refreshRunsDDL = `CREATE TABLE refresh_runs (
		id TEXT PRIMARY KEY,
		triggered_by TEXT NOT NULL,
		status TEXT DEFAULT 'running',
		providers TEXT,
		counts TEXT,
		error TEXT,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME
	)`

	squadSuggestionsDDL = `CREATE TABLE squad_suggestions (
		id TEXT PRIMARY KEY,
		gameweek_id INTEGER,
		budget INTEGER NOT NULL,
		team_cap INTEGER NOT NULL,
		formation TEXT,
		player_ids TEXT,
		lineup TEXT,
		params TEXT,
		params_hash TEXT,
		total_cost INTEGER,
		predicted_total REAL,
		force_fill_used BOOLEAN DEFAULT false,
		created_at DATETIME,
		updated_at DATETIME
	)`
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, gormDB.AutoMigrate(
		&models.Team{},
		&models.Player{},
		&models.Gameweek{},
		&models.Fixture{},
		&models.PlayerGameweekStat{},
	))
	require.NoError(t, gormDB.Exec(refreshRunsDDL).Error)
	require.NoError(t, gormDB.Exec(squadSuggestionsDDL).Error)

	return &database.DB{DB: gormDB}
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func uintPtr(v uint) *uint { return &v }

func finishedFixture(id uint, kickoff time.Time, homeID, awayID uint, homeScore, awayScore int) providers.Fixture {
	return providers.Fixture{
		ID:          id,
		Code:        int(id),
		Event:       uintPtr(1),
		KickoffTime: &kickoff,
		HomeTeamID:  homeID,
		AwayTeamID:  awayID,
		HomeScore:   &homeScore,
		AwayScore:   &awayScore,
		Started:     true,
		Finished:    true,
	}
}

func TestUpsertTeamsCreatesAndUpdates(t *testing.T) {
	db := newTestDB(t)
	svc := &SyncService{db: db, logger: newTestLogger()}

	created, err := svc.upsertTeams([]providers.Team{
		{ID: 1, Code: 3, Name: "Arsenal", ShortName: "ARS", StrengthOverallHome: 1350, StrengthOverallAway: 1380},
		{ID: 2, Code: 7, Name: "Aston Villa", ShortName: "AVL", StrengthOverallHome: 1150, StrengthOverallAway: 1120},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	// Simulate the form pass having filled in the computed columns.
	require.NoError(t, db.DB.Model(&models.Team{}).Where("id = ?", 1).Updates(map[string]interface{}{
		"played":          5,
		"won":             4,
		"strength_rating": 7.5,
	}).Error)

	updated, err := svc.upsertTeams([]providers.Team{
		{ID: 1, Code: 3, Name: "Arsenal", ShortName: "ARS", StrengthOverallHome: 1360, StrengthOverallAway: 1380},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	var team models.Team
	require.NoError(t, db.DB.First(&team, 1).Error)
	assert.Equal(t, 1360, team.StrengthHome)
	assert.Equal(t, 5, team.Played, "bootstrap upsert must not touch form columns")
	assert.Equal(t, 4, team.Won)
	assert.InDelta(t, 7.5, team.StrengthRating, 1e-9)

	var count int64
	require.NoError(t, db.DB.Model(&models.Team{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestUpdateTeamFormAggregatesRecentResults(t *testing.T) {
	db := newTestDB(t)
	svc := &SyncService{db: db, logger: newTestLogger()}

	require.NoError(t, db.DB.Create(&[]models.Team{
		{ID: 1, Code: 3, Name: "Arsenal", ShortName: "ARS"},
		{ID: 2, Code: 7, Name: "Aston Villa", ShortName: "AVL"},
	}).Error)

	base := time.Date(2025, 8, 16, 15, 0, 0, 0, time.UTC)
	fixtures := []providers.Fixture{
		// Arsenal win 2-0 at home, then draw 1-1 away.
		finishedFixture(1, base, 1, 2, 2, 0),
		finishedFixture(2, base.AddDate(0, 0, 7), 2, 1, 1, 1),
		// Unfinished fixtures must not count.
		{ID: 3, Code: 3, HomeTeamID: 1, AwayTeamID: 2, Started: true},
	}

	require.NoError(t, svc.updateTeamForm(fixtures))

	var arsenal, villa models.Team
	require.NoError(t, db.DB.First(&arsenal, 1).Error)
	require.NoError(t, db.DB.First(&villa, 2).Error)

	assert.Equal(t, 2, arsenal.Played)
	assert.Equal(t, 1, arsenal.Won)
	assert.Equal(t, 1, arsenal.Drawn)
	assert.Equal(t, 0, arsenal.Lost)
	assert.Equal(t, 3, arsenal.GoalsFor)
	assert.Equal(t, 1, arsenal.GoalsAgainst)
	assert.Equal(t, 1, arsenal.CleanSheets)
	// (min(10, 1.5*2.5) + min(10, 0.5*10) + 0.5*10 - min(5, 0.5*2)) / 3
	assert.InDelta(t, 4.25, arsenal.StrengthRating, 1e-9)

	assert.Equal(t, 2, villa.Played)
	assert.Equal(t, 0, villa.Won)
	assert.Equal(t, 1, villa.Lost)
	assert.Equal(t, 0, villa.CleanSheets)
	assert.InDelta(t, 0.0, villa.StrengthRating, 1e-9, "negative raw strength clamps to zero")
}

func TestUpdateTeamFormKeepsOnlyRecentWindow(t *testing.T) {
	db := newTestDB(t)
	svc := &SyncService{db: db, logger: newTestLogger()}

	require.NoError(t, db.DB.Create(&[]models.Team{
		{ID: 1, Code: 3, Name: "Arsenal", ShortName: "ARS"},
		{ID: 2, Code: 7, Name: "Aston Villa", ShortName: "AVL"},
	}).Error)

	// Two big early wins followed by fifty draws: only the draws fit the
	// window, so the wins must not show up in the aggregates.
	base := time.Date(2025, 1, 1, 15, 0, 0, 0, time.UTC)
	var fixtures []providers.Fixture
	for i := 0; i < 2; i++ {
		fixtures = append(fixtures, finishedFixture(uint(i+1), base.AddDate(0, 0, i), 1, 2, 5, 0))
	}
	for i := 0; i < 50; i++ {
		fixtures = append(fixtures, finishedFixture(uint(i+3), base.AddDate(0, 0, 10+i), 1, 2, 1, 1))
	}

	require.NoError(t, svc.updateTeamForm(fixtures))

	var arsenal models.Team
	require.NoError(t, db.DB.First(&arsenal, 1).Error)
	assert.Equal(t, 50, arsenal.Played)
	assert.Equal(t, 0, arsenal.Won)
	assert.Equal(t, 50, arsenal.Drawn)
	assert.Equal(t, 50, arsenal.GoalsFor)
	assert.Equal(t, 50, arsenal.GoalsAgainst)
}

func TestEnrichFromStandingsResolvesAliases(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.DB.Create(&[]models.Team{
		{ID: 1, Code: 3, Name: "Arsenal", ShortName: "ARS"},
		{ID: 2, Code: 39, Name: "Wolves", ShortName: "WOL"},
	}).Error)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/competitions/PL/standings", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Auth-Token"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"standings": [
				{"type": "HOME", "table": []},
				{"type": "TOTAL", "table": [
					{"position": 1, "team": {"id": 57, "name": "Arsenal FC"}, "playedGames": 10, "won": 8, "draw": 1, "lost": 1, "points": 25, "goalsFor": 22, "goalsAgainst": 8},
					{"position": 12, "team": {"id": 76, "name": "Wolverhampton Wanderers FC"}, "playedGames": 10, "won": 3, "draw": 3, "lost": 4, "points": 12, "goalsFor": 11, "goalsAgainst": 15},
					{"position": 20, "team": {"id": 999, "name": "Unknown Town FC"}, "playedGames": 10, "points": 2}
				]}
			]
		}`))
	}))
	defer server.Close()

	football := providers.NewFootballDataClient(server.URL, "test-key", 5*time.Second, 0, nil, newTestLogger())
	svc := &SyncService{db: db, football: football, logger: newTestLogger()}

	resolved, err := svc.enrichFromStandings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resolved, "unmapped names are skipped, not fatal")

	var arsenal, wolves models.Team
	require.NoError(t, db.DB.First(&arsenal, 1).Error)
	require.NoError(t, db.DB.First(&wolves, 2).Error)

	assert.Equal(t, 57, arsenal.FootballDataID)
	assert.Equal(t, 1, arsenal.Position)
	assert.Equal(t, 25, arsenal.Points)

	assert.Equal(t, 76, wolves.FootballDataID)
	assert.Equal(t, 12, wolves.Position)
	assert.Equal(t, 12, wolves.Points)
}

func TestSyncAllRecordsCompletedRun(t *testing.T) {
	db := newTestDB(t)

	bootstrap := providers.Bootstrap{
		Events: []providers.Event{
			{ID: 1, Name: "Gameweek 1", DeadlineTime: time.Date(2025, 8, 15, 17, 30, 0, 0, time.UTC), Finished: true, DataChecked: true, IsPrevious: true},
			{ID: 2, Name: "Gameweek 2", DeadlineTime: time.Date(2025, 8, 22, 17, 30, 0, 0, time.UTC), IsCurrent: true},
		},
		Teams: []providers.Team{
			{ID: 1, Code: 3, Name: "Arsenal", ShortName: "ARS", StrengthOverallHome: 1350, StrengthOverallAway: 1380},
			{ID: 2, Code: 7, Name: "Aston Villa", ShortName: "AVL", StrengthOverallHome: 1150, StrengthOverallAway: 1120},
		},
		Elements: []providers.Element{
			{ID: 10, Code: 100, WebName: "Saka", TeamID: 1, ElementType: 3, NowCost: 100, TotalPoints: 25, Form: 6.5, SelectedByPercent: 45.2, Status: "a"},
			{ID: 11, Code: 101, WebName: "Raya", TeamID: 1, ElementType: 1, NowCost: 55, TotalPoints: 12, Form: 4.0, SelectedByPercent: 20.1, Status: "a"},
			{ID: 12, Code: 102, WebName: "Watkins", TeamID: 2, ElementType: 4, NowCost: 90, TotalPoints: 14, Form: 5.0, SelectedByPercent: 18.7, Status: "d"},
		},
	}
	fixtures := []providers.Fixture{
		finishedFixture(1, time.Date(2025, 8, 16, 15, 0, 0, 0, time.UTC), 1, 2, 2, 0),
		{ID: 2, Code: 2, Event: uintPtr(2), HomeTeamID: 2, AwayTeamID: 1, HomeDifficulty: 4, AwayDifficulty: 3},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/bootstrap-static/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(bootstrap)
	})
	mux.HandleFunc("/fixtures/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(fixtures)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	logger := newTestLogger()
	fpl := providers.NewFPLClient(server.URL, time.Millisecond, 5*time.Second, 0, nil, logger)
	football := providers.NewFootballDataClient("http://unused.invalid", "", 5*time.Second, 0, nil, logger)
	svc := NewSyncService(db, fpl, football, logger)

	run, err := svc.SyncAll(context.Background(), models.RefreshTriggerManual)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, models.RefreshCompleted, run.Status)
	require.NotNil(t, run.FinishedAt)

	var stored models.RefreshRun
	require.NoError(t, db.DB.First(&stored, "id = ?", run.ID).Error)
	assert.Equal(t, models.RefreshTriggerManual, stored.TriggeredBy)
	assert.Equal(t, models.RefreshCompleted, stored.Status)
	assert.Equal(t, pq.StringArray{"fpl"}, stored.Providers, "football-data is not listed without an API key")

	var counts map[string]int
	require.NoError(t, json.Unmarshal(stored.Counts, &counts))
	assert.Equal(t, 2, counts["teams"])
	assert.Equal(t, 2, counts["gameweeks"])
	assert.Equal(t, 3, counts["players"])
	assert.Equal(t, 2, counts["fixtures"])

	var saka models.Player
	require.NoError(t, db.DB.First(&saka, 10).Error)
	assert.Equal(t, "Saka", saka.WebName)
	assert.Equal(t, models.StatusAvailable, saka.Status)
	assert.InDelta(t, 6.5, saka.Form, 1e-9)

	// The form pass runs inside the same sync.
	var arsenal models.Team
	require.NoError(t, db.DB.First(&arsenal, 1).Error)
	assert.Equal(t, 1, arsenal.Played)
	assert.InDelta(t, 25.0/3.0, arsenal.StrengthRating, 1e-9)

	var fixtureCount int64
	require.NoError(t, db.DB.Model(&models.Fixture{}).Count(&fixtureCount).Error)
	assert.EqualValues(t, 2, fixtureCount)
}

func TestSyncAllRecordsFailedRun(t *testing.T) {
	db := newTestDB(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer server.Close()

	logger := newTestLogger()
	fpl := providers.NewFPLClient(server.URL, time.Millisecond, 5*time.Second, 0, nil, logger)
	football := providers.NewFootballDataClient("http://unused.invalid", "", 5*time.Second, 0, nil, logger)
	svc := NewSyncService(db, fpl, football, logger)

	run, err := svc.SyncAll(context.Background(), models.RefreshTriggerSchedule)
	require.Error(t, err)
	require.NotNil(t, run, "the run row exists even when the refresh fails")
	assert.Equal(t, models.RefreshFailed, run.Status)

	var stored models.RefreshRun
	require.NoError(t, db.DB.First(&stored, "id = ?", run.ID).Error)
	assert.Equal(t, models.RefreshFailed, stored.Status)
	assert.Contains(t, stored.Error, "bootstrap fetch failed")
	require.NotNil(t, stored.FinishedAt)
}

func TestSyncPlayerHistories(t *testing.T) {
	db := newTestDB(t)
	logger := newTestLogger()

	require.NoError(t, db.DB.Create(&[]models.Team{
		{ID: 1, Code: 3, Name: "Arsenal", ShortName: "ARS"},
	}).Error)
	require.NoError(t, db.DB.Create(&[]models.Player{
		{ID: 1, Code: 100, TeamID: 1, WebName: "Saka", ElementType: 3, NowCost: 100, TotalPoints: 100},
		{ID: 2, Code: 101, TeamID: 1, WebName: "Rice", ElementType: 3, NowCost: 65, TotalPoints: 80},
		{ID: 3, Code: 102, TeamID: 1, WebName: "Raya", ElementType: 1, NowCost: 55, TotalPoints: 60},
	}).Error)

	historyServer := func(roundTwoPoints int) *httptest.Server {
		mux := http.NewServeMux()
		mux.HandleFunc("/element-summary/", func(w http.ResponseWriter, r *http.Request) {
			parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
			id, err := strconv.Atoi(parts[len(parts)-1])
			require.NoError(t, err)
			_ = json.NewEncoder(w).Encode(providers.ElementSummary{
				History: []providers.ElementHistory{
					{ElementID: uint(id), Round: 1, OpponentTeam: 2, WasHome: true, Minutes: 90, TotalPoints: 6, Value: 100},
					{ElementID: uint(id), Round: 2, OpponentTeam: 3, WasHome: false, Minutes: 85, TotalPoints: roundTwoPoints, Value: 101},
				},
			})
		})
		return httptest.NewServer(mux)
	}

	server := historyServer(9)
	fpl := providers.NewFPLClient(server.URL, time.Millisecond, 5*time.Second, 0, nil, logger)
	svc := &SyncService{db: db, fpl: fpl, logger: logger}

	synced, err := svc.SyncPlayerHistories(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 0, synced)

	synced, err = svc.SyncPlayerHistories(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, synced, "only the top scorers within the limit are fetched")
	server.Close()

	var count int64
	require.NoError(t, db.DB.Model(&models.PlayerGameweekStat{}).Count(&count).Error)
	assert.EqualValues(t, 4, count)

	var skipped int64
	require.NoError(t, db.DB.Model(&models.PlayerGameweekStat{}).Where("player_id = ?", 3).Count(&skipped).Error)
	assert.EqualValues(t, 0, skipped)

	// A second pass with fresher numbers updates rows in place.
	server = historyServer(12)
	defer server.Close()
	svc.fpl = providers.NewFPLClient(server.URL, time.Millisecond, 5*time.Second, 0, nil, logger)

	synced, err = svc.SyncPlayerHistories(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, synced)

	require.NoError(t, db.DB.Model(&models.PlayerGameweekStat{}).Count(&count).Error)
	assert.EqualValues(t, 4, count, "re-syncing must not duplicate rows")

	var row models.PlayerGameweekStat
	require.NoError(t, db.DB.Where("player_id = ? AND gameweek_id = ?", 1, 2).First(&row).Error)
	assert.Equal(t, 12, row.TotalPoints)
	assert.Equal(t, 85, row.Minutes)
	assert.False(t, row.WasHome)
}
