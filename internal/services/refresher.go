package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jstittsworth/fpl-optimizer/internal/models"
	"github.com/jstittsworth/fpl-optimizer/pkg/database"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ErrRefreshInProgress is returned when a refresh is requested while one is
// still running.
var ErrRefreshInProgress = errors.New("a refresh is already in progress")

// How many players get per-gameweek history in a deep refresh. Each player
// costs one rate-limited API call.
const defaultHistoryLimit = 150

// RefresherService owns the scheduled pipeline: the periodic provider sync,
// the daily deep sync with player histories, and the hourly deadline check.
type RefresherService struct {
	db          *database.DB
	syncer      *SyncService
	recommender *RecommendationService
	notifier    *DeadlineNotifier
	hub         *WebSocketHub
	logger      *logrus.Logger
	cron        *cron.Cron

	refreshInterval time.Duration
	historyLimit    int
	initialSync     bool

	mu        sync.Mutex
	isRunning bool
	inFlight  bool
}

// NewRefresherService creates a new refresher service
func NewRefresherService(
	db *database.DB,
	syncer *SyncService,
	recommender *RecommendationService,
	notifier *DeadlineNotifier,
	hub *WebSocketHub,
	logger *logrus.Logger,
	refreshInterval time.Duration,
	initialSync bool,
) *RefresherService {
	if refreshInterval <= 0 {
		refreshInterval = 6 * time.Hour
	}
	return &RefresherService{
		db:              db,
		syncer:          syncer,
		recommender:     recommender,
		notifier:        notifier,
		hub:             hub,
		logger:          logger,
		cron:            cron.New(),
		refreshInterval: refreshInterval,
		historyLimit:    defaultHistoryLimit,
		initialSync:     initialSync,
	}
}

// Start begins the scheduled refreshes
func (s *RefresherService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("refresher is already running")
	}

	schedule := fmt.Sprintf("@every %s", s.refreshInterval.String())
	if _, err := s.cron.AddFunc(schedule, s.scheduledRefresh); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	// Histories are one API call per player, so the deep sync runs once a
	// day, early morning, clear of any deadline traffic.
	if _, err := s.cron.AddFunc("0 6 * * *", s.scheduledDeepRefresh); err != nil {
		return fmt.Errorf("failed to schedule deep refresh: %w", err)
	}

	if _, err := s.cron.AddFunc("0 * * * *", s.deadlineCheck); err != nil {
		return fmt.Errorf("failed to schedule deadline check: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	if s.initialSync {
		go s.startupRefresh()
	}

	s.logger.Info("Refresher service started")
	return nil
}

// Stop halts the scheduled refreshes, waiting for a running job to finish
func (s *RefresherService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.logger.Info("Refresher service stopped")
}

// RefreshNow runs the pipeline immediately: sync, optional player
// histories, then a prediction pass. Only one refresh runs at a time.
func (s *RefresherService) RefreshNow(ctx context.Context, trigger string, includeHistories bool) (*models.RefreshRun, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return nil, ErrRefreshInProgress
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	run, err := s.syncer.SyncAll(ctx, trigger)
	if err != nil {
		s.hub.BroadcastToTopic(TopicRefresh, "refresh_failed", run)
		return run, err
	}

	if includeHistories {
		if _, err := s.syncer.SyncPlayerHistories(ctx, s.historyLimit); err != nil {
			s.logger.Errorf("Player history sync failed: %v", err)
		}
	}

	// Predictions run off whatever data landed; a failed pass leaves the
	// previous predictions standing rather than failing the refresh.
	if _, err := s.recommender.RefreshPredictions(ctx); err != nil {
		s.logger.Errorf("Prediction refresh failed: %v", err)
	}

	s.hub.BroadcastToTopic(TopicRefresh, "refresh_completed", run)
	return run, nil
}

// RefresherStatus is the admin-facing view of the scheduler.
type RefresherStatus struct {
	Scheduled bool                `json:"scheduled"`
	InFlight  bool                `json:"in_flight"`
	Interval  string              `json:"interval"`
	LastRun   *models.RefreshRun  `json:"last_run,omitempty"`
	Recent    []models.RefreshRun `json:"recent_runs,omitempty"`
}

// Status reports scheduler flags plus the most recent runs.
func (s *RefresherService) Status() (*RefresherStatus, error) {
	s.mu.Lock()
	status := &RefresherStatus{
		Scheduled: s.isRunning,
		InFlight:  s.inFlight,
		Interval:  s.refreshInterval.String(),
	}
	s.mu.Unlock()

	var runs []models.RefreshRun
	if err := s.db.DB.Order("started_at DESC").Limit(10).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to load refresh runs: %w", err)
	}
	if len(runs) > 0 {
		status.LastRun = &runs[0]
		status.Recent = runs
	}
	return status, nil
}

func (s *RefresherService) scheduledRefresh() {
	if _, err := s.RefreshNow(context.Background(), models.RefreshTriggerSchedule, false); err != nil && !errors.Is(err, ErrRefreshInProgress) {
		s.logger.Errorf("Scheduled refresh failed: %v", err)
	}
}

func (s *RefresherService) scheduledDeepRefresh() {
	if _, err := s.RefreshNow(context.Background(), models.RefreshTriggerSchedule, true); err != nil && !errors.Is(err, ErrRefreshInProgress) {
		s.logger.Errorf("Scheduled deep refresh failed: %v", err)
	}
}

func (s *RefresherService) startupRefresh() {
	if _, err := s.RefreshNow(context.Background(), models.RefreshTriggerStartup, false); err != nil && !errors.Is(err, ErrRefreshInProgress) {
		s.logger.Errorf("Startup refresh failed: %v", err)
	}
}

func (s *RefresherService) deadlineCheck() {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.CheckAndNotify(context.Background()); err != nil {
		s.logger.Errorf("Deadline check failed: %v", err)
	}
}
