package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RefreshStatus tracks the lifecycle of a data refresh run.
type RefreshStatus string

const (
	RefreshRunning   RefreshStatus = "running"
	RefreshCompleted RefreshStatus = "completed"
	RefreshFailed    RefreshStatus = "failed"
)

// Refresh triggers.
const (
	RefreshTriggerStartup  = "startup"
	RefreshTriggerSchedule = "schedule"
	RefreshTriggerManual   = "manual"
)

// RefreshRun is the audit row for one pass of the data pipeline: which
// providers were pulled, how many rows each entity upserted, and how it
// ended.
type RefreshRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	TriggeredBy string         `gorm:"type:varchar(20);not null" json:"triggered_by"`
	Status      RefreshStatus  `gorm:"type:varchar(20);default:'running';index" json:"status"`
	Providers   pq.StringArray `gorm:"type:text[]" json:"providers"`
	Counts      datatypes.JSON `json:"counts"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `gorm:"not null;index" json:"started_at"`
	FinishedAt  *time.Time     `json:"finished_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (RefreshRun) TableName() string {
	return "refresh_runs"
}

// BeforeCreate assigns the id client-side so databases without
// gen_random_uuid still get one.
func (r *RefreshRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Duration returns how long the run took, zero while still running.
func (r *RefreshRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// SquadSuggestion is a persisted squad build: the inputs that produced it,
// the fifteen picks, and the lineup split. Kept so a suggestion URL stays
// stable after player data moves on.
type SquadSuggestion struct {
	ID             uuid.UUID      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	GameweekID     *uint          `gorm:"index" json:"gameweek_id"`
	Budget         int            `gorm:"not null" json:"budget"`
	TeamCap        int            `gorm:"not null" json:"team_cap"`
	Formation      string         `gorm:"type:varchar(10)" json:"formation"`
	PlayerIDs      pq.Int64Array  `gorm:"type:bigint[]" json:"player_ids"`
	Lineup         datatypes.JSON `json:"lineup"`
	Params         datatypes.JSON `json:"params"`
	ParamsHash     string         `gorm:"index" json:"params_hash"`
	TotalCost      int            `json:"total_cost"`
	PredictedTotal float64        `json:"predicted_total"`
	ForceFillUsed  bool           `gorm:"default:false" json:"force_fill_used"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SquadSuggestion) TableName() string {
	return "squad_suggestions"
}

func (s *SquadSuggestion) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
