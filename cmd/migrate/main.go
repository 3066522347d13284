package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jstittsworth/fpl-optimizer/internal/models"
	"github.com/jstittsworth/fpl-optimizer/pkg/config"
	"github.com/jstittsworth/fpl-optimizer/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(db); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	// gen_random_uuid for the uuid-keyed tables
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS \"pgcrypto\"").Error; err != nil {
		return fmt.Errorf("failed to create pgcrypto extension: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Team{},
		&models.Gameweek{},
		&models.Player{},
		&models.Fixture{},
		&models.PlayerGameweekStat{},
		&models.RefreshRun{},
		&models.SquadSuggestion{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	// Create indexes
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_players_type_cost ON players(element_type, now_cost)",
		"CREATE INDEX IF NOT EXISTS idx_players_predicted ON players(predicted_points DESC)",
		"CREATE INDEX IF NOT EXISTS idx_players_ownership ON players(selected_by_percent)",
		"CREATE INDEX IF NOT EXISTS idx_fixtures_kickoff ON fixtures(kickoff_time)",
		"CREATE INDEX IF NOT EXISTS idx_refresh_runs_started ON refresh_runs(started_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_suggestions_hash ON squad_suggestions(params_hash)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	// Children first, so foreign keys don't block the drops.
	tables := []string{
		"squad_suggestions",
		"refresh_runs",
		"player_gameweek_stats",
		"fixtures",
		"players",
		"gameweeks",
		"teams",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

func seedData(db *database.DB) error {
	teams := []models.Team{
		{ID: 1, Code: 3, Name: "Arsenal", ShortName: "ARS", StrengthHome: 1350, StrengthAway: 1330},
		{ID: 2, Code: 7, Name: "Aston Villa", ShortName: "AVL", StrengthHome: 1190, StrengthAway: 1150},
		{ID: 3, Code: 91, Name: "Bournemouth", ShortName: "BOU", StrengthHome: 1120, StrengthAway: 1100},
		{ID: 4, Code: 94, Name: "Brentford", ShortName: "BRE", StrengthHome: 1130, StrengthAway: 1110},
		{ID: 5, Code: 36, Name: "Brighton", ShortName: "BHA", StrengthHome: 1180, StrengthAway: 1160},
		{ID: 6, Code: 8, Name: "Chelsea", ShortName: "CHE", StrengthHome: 1250, StrengthAway: 1220},
		{ID: 7, Code: 31, Name: "Crystal Palace", ShortName: "CRY", StrengthHome: 1150, StrengthAway: 1120},
		{ID: 8, Code: 11, Name: "Everton", ShortName: "EVE", StrengthHome: 1110, StrengthAway: 1090},
		{ID: 9, Code: 54, Name: "Fulham", ShortName: "FUL", StrengthHome: 1140, StrengthAway: 1110},
		{ID: 10, Code: 40, Name: "Ipswich", ShortName: "IPS", StrengthHome: 1050, StrengthAway: 1030},
		{ID: 11, Code: 13, Name: "Leicester", ShortName: "LEI", StrengthHome: 1080, StrengthAway: 1060},
		{ID: 12, Code: 14, Name: "Liverpool", ShortName: "LIV", StrengthHome: 1360, StrengthAway: 1340},
		{ID: 13, Code: 43, Name: "Man City", ShortName: "MCI", StrengthHome: 1370, StrengthAway: 1350},
		{ID: 14, Code: 1, Name: "Man Utd", ShortName: "MUN", StrengthHome: 1220, StrengthAway: 1190},
		{ID: 15, Code: 4, Name: "Newcastle", ShortName: "NEW", StrengthHome: 1240, StrengthAway: 1210},
		{ID: 16, Code: 17, Name: "Nott'm Forest", ShortName: "NFO", StrengthHome: 1160, StrengthAway: 1130},
		{ID: 17, Code: 20, Name: "Southampton", ShortName: "SOU", StrengthHome: 1040, StrengthAway: 1020},
		{ID: 18, Code: 6, Name: "Spurs", ShortName: "TOT", StrengthHome: 1230, StrengthAway: 1200},
		{ID: 19, Code: 21, Name: "West Ham", ShortName: "WHU", StrengthHome: 1170, StrengthAway: 1140},
		{ID: 20, Code: 39, Name: "Wolves", ShortName: "WOL", StrengthHome: 1100, StrengthAway: 1080},
	}
	if err := db.Create(&teams).Error; err != nil {
		return fmt.Errorf("failed to seed teams: %w", err)
	}

	now := time.Now()
	gameweeks := []models.Gameweek{
		{ID: 1, Name: "Gameweek 1", DeadlineTime: now.Add(-7 * 24 * time.Hour), Finished: true, DataChecked: true, IsPrevious: true},
		{ID: 2, Name: "Gameweek 2", DeadlineTime: now.Add(3 * 24 * time.Hour), IsCurrent: true},
		{ID: 3, Name: "Gameweek 3", DeadlineTime: now.Add(10 * 24 * time.Hour), IsNext: true},
	}
	if err := db.Create(&gameweeks).Error; err != nil {
		return fmt.Errorf("failed to seed gameweeks: %w", err)
	}

	// A pool wide enough to fill every quota slot with the club cap in
	// play. Costs are tenths of £1m, straight off the FPL price list.
	players := []models.Player{
		// Goalkeepers
		{ID: 1, Code: 101, TeamID: 1, FirstName: "David", SecondName: "Raya", WebName: "Raya", ElementType: 1, NowCost: 55, TotalPoints: 12, Minutes: 180, Form: 6.0, PointsPerGame: 6.0, SelectedByPercent: 28.4},
		{ID: 2, Code: 102, TeamID: 12, FirstName: "Alisson", SecondName: "Becker", WebName: "Alisson", ElementType: 1, NowCost: 55, TotalPoints: 10, Minutes: 180, Form: 5.0, PointsPerGame: 5.0, SelectedByPercent: 17.2},
		{ID: 3, Code: 103, TeamID: 8, FirstName: "Jordan", SecondName: "Pickford", WebName: "Pickford", ElementType: 1, NowCost: 50, TotalPoints: 8, Minutes: 180, Form: 4.0, PointsPerGame: 4.0, SelectedByPercent: 9.8},
		// Defenders
		{ID: 11, Code: 111, TeamID: 1, FirstName: "William", SecondName: "Saliba", WebName: "Saliba", ElementType: 2, NowCost: 62, TotalPoints: 13, Minutes: 180, Form: 6.5, PointsPerGame: 6.5, SelectedByPercent: 35.1, CleanSheets: 2},
		{ID: 12, Code: 112, TeamID: 13, FirstName: "Josko", SecondName: "Gvardiol", WebName: "Gvardiol", ElementType: 2, NowCost: 60, TotalPoints: 11, Minutes: 180, Form: 5.5, PointsPerGame: 5.5, SelectedByPercent: 22.7, CleanSheets: 1},
		{ID: 13, Code: 113, TeamID: 12, FirstName: "Virgil", SecondName: "van Dijk", WebName: "Van Dijk", ElementType: 2, NowCost: 63, TotalPoints: 12, Minutes: 180, Form: 6.0, PointsPerGame: 6.0, SelectedByPercent: 19.3, CleanSheets: 2},
		{ID: 14, Code: 114, TeamID: 15, FirstName: "Dan", SecondName: "Burn", WebName: "Burn", ElementType: 2, NowCost: 45, TotalPoints: 7, Minutes: 180, Form: 3.5, PointsPerGame: 3.5, SelectedByPercent: 6.2, CleanSheets: 1},
		{ID: 15, Code: 115, TeamID: 9, FirstName: "Antonee", SecondName: "Robinson", WebName: "Robinson", ElementType: 2, NowCost: 47, TotalPoints: 9, Minutes: 180, Form: 4.5, PointsPerGame: 4.5, SelectedByPercent: 12.5, CleanSheets: 1},
		{ID: 16, Code: 116, TeamID: 7, FirstName: "Marc", SecondName: "Guehi", WebName: "Guehi", ElementType: 2, NowCost: 46, TotalPoints: 6, Minutes: 180, Form: 3.0, PointsPerGame: 3.0, SelectedByPercent: 5.4, CleanSheets: 1},
		// Midfielders
		{ID: 21, Code: 121, TeamID: 12, FirstName: "Mohamed", SecondName: "Salah", WebName: "M.Salah", ElementType: 3, NowCost: 128, TotalPoints: 24, Minutes: 180, Form: 12.0, PointsPerGame: 12.0, SelectedByPercent: 55.3, GoalsScored: 2, Assists: 2},
		{ID: 22, Code: 122, TeamID: 6, FirstName: "Cole", SecondName: "Palmer", WebName: "Palmer", ElementType: 3, NowCost: 105, TotalPoints: 18, Minutes: 180, Form: 9.0, PointsPerGame: 9.0, SelectedByPercent: 43.8, GoalsScored: 2, Assists: 1},
		{ID: 23, Code: 123, TeamID: 1, FirstName: "Bukayo", SecondName: "Saka", WebName: "Saka", ElementType: 3, NowCost: 100, TotalPoints: 15, Minutes: 170, Form: 7.5, PointsPerGame: 7.5, SelectedByPercent: 38.9, GoalsScored: 1, Assists: 2},
		{ID: 24, Code: 124, TeamID: 13, FirstName: "Phil", SecondName: "Foden", WebName: "Foden", ElementType: 3, NowCost: 92, TotalPoints: 10, Minutes: 140, Form: 5.0, PointsPerGame: 5.0, SelectedByPercent: 15.6, GoalsScored: 1},
		{ID: 25, Code: 125, TeamID: 5, FirstName: "Kaoru", SecondName: "Mitoma", WebName: "Mitoma", ElementType: 3, NowCost: 65, TotalPoints: 11, Minutes: 175, Form: 5.5, PointsPerGame: 5.5, SelectedByPercent: 14.1, GoalsScored: 1, Assists: 1},
		{ID: 26, Code: 126, TeamID: 4, FirstName: "Bryan", SecondName: "Mbeumo", WebName: "Mbeumo", ElementType: 3, NowCost: 71, TotalPoints: 13, Minutes: 180, Form: 6.5, PointsPerGame: 6.5, SelectedByPercent: 20.2, GoalsScored: 2},
		// Forwards
		{ID: 31, Code: 131, TeamID: 13, FirstName: "Erling", SecondName: "Haaland", WebName: "Haaland", ElementType: 4, NowCost: 151, TotalPoints: 26, Minutes: 180, Form: 13.0, PointsPerGame: 13.0, SelectedByPercent: 68.7, GoalsScored: 4},
		{ID: 32, Code: 132, TeamID: 15, FirstName: "Alexander", SecondName: "Isak", WebName: "Isak", ElementType: 4, NowCost: 94, TotalPoints: 14, Minutes: 165, Form: 7.0, PointsPerGame: 7.0, SelectedByPercent: 31.5, GoalsScored: 2},
		{ID: 33, Code: 133, TeamID: 16, FirstName: "Chris", SecondName: "Wood", WebName: "Wood", ElementType: 4, NowCost: 62, TotalPoints: 12, Minutes: 160, Form: 6.0, PointsPerGame: 6.0, SelectedByPercent: 11.9, GoalsScored: 2},
		{ID: 34, Code: 134, TeamID: 3, FirstName: "Evanilson", SecondName: "de Lima", WebName: "Evanilson", ElementType: 4, NowCost: 58, TotalPoints: 8, Minutes: 150, Form: 4.0, PointsPerGame: 4.0, SelectedByPercent: 7.3, GoalsScored: 1},
	}
	for i := range players {
		players[i].Status = models.StatusAvailable
	}
	if err := db.Create(&players).Error; err != nil {
		return fmt.Errorf("failed to create players: %w", err)
	}

	logrus.Infof("Seeded %d players across %d teams", len(players), len(teams))

	gw2 := uint(2)
	gw3 := uint(3)
	kickoff2 := now.Add(3*24*time.Hour + 26*time.Hour)
	kickoff3 := now.Add(10*24*time.Hour + 26*time.Hour)
	fixtures := []models.Fixture{
		{ID: 11, Code: 9011, GameweekID: &gw2, KickoffTime: &kickoff2, HomeTeamID: 1, AwayTeamID: 6, HomeDifficulty: 3, AwayDifficulty: 4},
		{ID: 12, Code: 9012, GameweekID: &gw2, KickoffTime: &kickoff2, HomeTeamID: 13, AwayTeamID: 8, HomeDifficulty: 2, AwayDifficulty: 5},
		{ID: 13, Code: 9013, GameweekID: &gw2, KickoffTime: &kickoff2, HomeTeamID: 15, AwayTeamID: 12, HomeDifficulty: 4, AwayDifficulty: 3},
		{ID: 21, Code: 9021, GameweekID: &gw3, KickoffTime: &kickoff3, HomeTeamID: 12, AwayTeamID: 1, HomeDifficulty: 4, AwayDifficulty: 4},
		{ID: 22, Code: 9022, GameweekID: &gw3, KickoffTime: &kickoff3, HomeTeamID: 6, AwayTeamID: 13, HomeDifficulty: 5, AwayDifficulty: 3},
	}
	if err := db.Create(&fixtures).Error; err != nil {
		logrus.Warnf("Failed to seed fixtures (may already exist): %v", err)
	}

	logrus.Info("Seeded gameweeks and fixtures")

	return nil
}
