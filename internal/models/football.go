package models

import (
	"fmt"
	"time"
)

// PlayerStatus mirrors the FPL availability flags.
type PlayerStatus string

const (
	StatusAvailable   PlayerStatus = "a"
	StatusDoubtful    PlayerStatus = "d"
	StatusInjured     PlayerStatus = "i"
	StatusSuspended   PlayerStatus = "s"
	StatusUnavailable PlayerStatus = "u"
)

// Element types as the FPL API numbers them.
const (
	ElementTypeGoalkeeper = 1
	ElementTypeDefender   = 2
	ElementTypeMidfielder = 3
	ElementTypeForward    = 4
)

// Team is a Premier League club. The primary key is the FPL team id for
// the season, so upserts from bootstrap data are plain conflict-updates.
type Team struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Code           int       `gorm:"uniqueIndex" json:"code"`
	Name           string    `gorm:"not null" json:"name"`
	ShortName      string    `gorm:"type:varchar(10);not null" json:"short_name"`
	StrengthHome   int       `json:"strength_home"`
	StrengthAway   int       `json:"strength_away"`
	FootballDataID int       `gorm:"index" json:"football_data_id"`
	Position       int       `json:"position"`
	Played         int       `json:"played"`
	Won            int       `json:"won"`
	Drawn          int       `json:"drawn"`
	Lost           int       `json:"lost"`
	GoalsFor       int       `json:"goals_for"`
	GoalsAgainst   int       `json:"goals_against"`
	CleanSheets    int       `json:"clean_sheets"`
	Points         int       `json:"points"`
	StrengthRating float64   `json:"strength_rating"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Associations
	Players []Player `gorm:"foreignKey:TeamID" json:"players,omitempty"`
}

// TableName specifies the table name for GORM
func (Team) TableName() string {
	return "teams"
}

// Player is an FPL element. Prices are in tenths of £1m as the API sends
// them (now_cost 45 means £4.5m).
type Player struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	Code              int          `gorm:"uniqueIndex" json:"code"`
	TeamID            uint         `gorm:"not null;index" json:"team_id"`
	Team              *Team        `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	FirstName         string       `json:"first_name"`
	SecondName        string       `json:"second_name"`
	WebName           string       `gorm:"not null;index" json:"web_name"`
	ElementType       int          `gorm:"not null;index" json:"element_type"`
	NowCost           int          `gorm:"not null" json:"now_cost"`
	TotalPoints       int          `gorm:"index" json:"total_points"`
	EventPoints       int          `json:"event_points"`
	Minutes           int          `json:"minutes"`
	GoalsScored       int          `json:"goals_scored"`
	Assists           int          `json:"assists"`
	CleanSheets       int          `json:"clean_sheets"`
	GoalsConceded     int          `json:"goals_conceded"`
	Saves             int          `json:"saves"`
	Bonus             int          `json:"bonus"`
	BPS               int          `json:"bps"`
	Form              float64      `json:"form"`
	PointsPerGame     float64      `json:"points_per_game"`
	SelectedByPercent float64      `json:"selected_by_percent"`
	TransfersInEvent  int          `json:"transfers_in_event"`
	TransfersOutEvent int          `json:"transfers_out_event"`
	Influence         float64      `json:"influence"`
	Creativity        float64      `json:"creativity"`
	Threat            float64      `json:"threat"`
	ICTIndex          float64      `json:"ict_index"`
	Status            PlayerStatus `gorm:"type:varchar(1);default:'a';index" json:"status"`
	News              string       `json:"news"`
	ChanceOfPlaying   *int         `json:"chance_of_playing_next_round"`

	// Latest model output, refreshed with the data pipeline.
	PredictedPoints      float64    `gorm:"index" json:"predicted_points"`
	PredictionConfidence float64    `json:"prediction_confidence"`
	PredictedAt          *time.Time `json:"predicted_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Associations
	GameweekStats []PlayerGameweekStat `gorm:"foreignKey:PlayerID" json:"gameweek_stats,omitempty"`
}

// TableName specifies the table name for GORM
func (Player) TableName() string {
	return "players"
}

// DisplayName prefers the shirt name the FPL site shows.
func (p *Player) DisplayName() string {
	if p.WebName != "" {
		return p.WebName
	}
	return fmt.Sprintf("%s %s", p.FirstName, p.SecondName)
}

// PositionName maps the element type to the short position label.
func (p *Player) PositionName() string {
	switch p.ElementType {
	case ElementTypeGoalkeeper:
		return "GK"
	case ElementTypeDefender:
		return "DEF"
	case ElementTypeMidfielder:
		return "MID"
	case ElementTypeForward:
		return "FWD"
	}
	return "UNK"
}

// PriceMillions returns the current price in £m.
func (p *Player) PriceMillions() float64 {
	return float64(p.NowCost) / 10.0
}

// Available reports whether the player is flagged fully fit.
func (p *Player) Available() bool {
	return p.Status == StatusAvailable || p.Status == ""
}

// Gameweek is an FPL event. The primary key is the event id (1-38).
type Gameweek struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Name             string    `gorm:"not null" json:"name"`
	DeadlineTime     time.Time `gorm:"not null;index" json:"deadline_time"`
	Finished         bool      `gorm:"default:false" json:"finished"`
	DataChecked      bool      `gorm:"default:false" json:"data_checked"`
	IsPrevious       bool      `gorm:"default:false" json:"is_previous"`
	IsCurrent        bool      `gorm:"default:false;index" json:"is_current"`
	IsNext           bool      `gorm:"default:false;index" json:"is_next"`
	AverageScore     int       `json:"average_entry_score"`
	HighestScore     *int      `json:"highest_score"`
	MostCaptainedID  *uint     `json:"most_captained"`
	MostSelectedID   *uint     `json:"most_selected"`
	TransfersMade    int       `json:"transfers_made"`
	DeadlineNotified bool      `gorm:"default:false" json:"deadline_notified"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Gameweek) TableName() string {
	return "gameweeks"
}

// DeadlinePassed reports whether the selection deadline is behind now.
func (g *Gameweek) DeadlinePassed(now time.Time) bool {
	return now.After(g.DeadlineTime)
}

// Fixture is a single scheduled match. GameweekID is nullable because the
// FPL API leaves postponed fixtures unscheduled.
type Fixture struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Code           int        `gorm:"uniqueIndex" json:"code"`
	GameweekID     *uint      `gorm:"index" json:"gameweek_id"`
	Gameweek       *Gameweek  `gorm:"foreignKey:GameweekID" json:"gameweek,omitempty"`
	KickoffTime    *time.Time `gorm:"index" json:"kickoff_time"`
	HomeTeamID     uint       `gorm:"not null;index" json:"home_team_id"`
	HomeTeam       *Team      `gorm:"foreignKey:HomeTeamID" json:"home_team,omitempty"`
	AwayTeamID     uint       `gorm:"not null;index" json:"away_team_id"`
	AwayTeam       *Team      `gorm:"foreignKey:AwayTeamID" json:"away_team,omitempty"`
	HomeDifficulty int        `json:"home_difficulty"`
	AwayDifficulty int        `json:"away_difficulty"`
	HomeScore      *int       `json:"home_score"`
	AwayScore      *int       `json:"away_score"`
	Started        bool       `gorm:"default:false" json:"started"`
	Finished       bool       `gorm:"default:false;index" json:"finished"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Fixture) TableName() string {
	return "fixtures"
}

// DifficultyFor returns the FPL difficulty rating the fixture carries for
// one of its two teams, zero for anyone else.
func (f *Fixture) DifficultyFor(teamID uint) int {
	switch teamID {
	case f.HomeTeamID:
		return f.HomeDifficulty
	case f.AwayTeamID:
		return f.AwayDifficulty
	}
	return 0
}

// Involves reports whether the team plays in this fixture.
func (f *Fixture) Involves(teamID uint) bool {
	return teamID == f.HomeTeamID || teamID == f.AwayTeamID
}

// PlayerGameweekStat is one player's line for one finished gameweek,
// kept for form and regression features.
type PlayerGameweekStat struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	PlayerID       uint      `gorm:"not null;uniqueIndex:idx_player_gameweek,priority:1" json:"player_id"`
	Player         *Player   `gorm:"foreignKey:PlayerID" json:"player,omitempty"`
	GameweekID     uint      `gorm:"not null;uniqueIndex:idx_player_gameweek,priority:2;index" json:"gameweek_id"`
	OpponentTeamID uint      `json:"opponent_team_id"`
	WasHome        bool      `json:"was_home"`
	Minutes        int       `json:"minutes"`
	TotalPoints    int       `json:"total_points"`
	GoalsScored    int       `json:"goals_scored"`
	Assists        int       `json:"assists"`
	CleanSheets    int       `json:"clean_sheets"`
	GoalsConceded  int       `json:"goals_conceded"`
	Saves          int       `json:"saves"`
	Bonus          int       `json:"bonus"`
	BPS            int       `json:"bps"`
	Value          int       `json:"value"`
	Selected       int       `json:"selected"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PlayerGameweekStat) TableName() string {
	return "player_gameweek_stats"
}
