package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// CacheProvider is the cache surface the API clients need. Implemented by
// services.CacheService; nil disables caching.
type CacheProvider interface {
	SetSimple(key string, value interface{}, expiration time.Duration) error
	GetSimple(key string, dest interface{}) error
}

// FPLClient pulls the official Fantasy Premier League endpoints. The API is
// unauthenticated but unforgiving, so every call goes through a rate
// limiter and a circuit breaker, and bootstrap payloads are cached.
type FPLClient struct {
	httpClient *http.Client
	baseURL    string
	cache      CacheProvider
	cacheTTL   time.Duration
	logger     *logrus.Logger
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// NewFPLClient creates a new FPL API client. rateGap is the minimum
// spacing between upstream calls.
func NewFPLClient(baseURL string, rateGap, timeout, cacheTTL time.Duration, cache CacheProvider, logger *logrus.Logger) *FPLClient {
	if rateGap <= 0 {
		rateGap = 2 * time.Second
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FPLClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:  baseURL,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Every(rateGap), 1),
		breaker:  NewBreaker("fpl", 60*time.Second, logger),
	}
}

// FPL API response structures. The API sends several numeric fields as
// quoted strings ("4.5"), hence the ,string tags.

type Bootstrap struct {
	Events   []Event   `json:"events"`
	Teams    []Team    `json:"teams"`
	Elements []Element `json:"elements"`
}

type Event struct {
	ID                uint      `json:"id"`
	Name              string    `json:"name"`
	DeadlineTime      time.Time `json:"deadline_time"`
	Finished          bool      `json:"finished"`
	DataChecked       bool      `json:"data_checked"`
	IsPrevious        bool      `json:"is_previous"`
	IsCurrent         bool      `json:"is_current"`
	IsNext            bool      `json:"is_next"`
	AverageEntryScore int       `json:"average_entry_score"`
	HighestScore      *int      `json:"highest_score"`
	MostCaptained     *uint     `json:"most_captained"`
	MostSelected      *uint     `json:"most_selected"`
	TransfersMade     int       `json:"transfers_made"`
}

type Team struct {
	ID                  uint   `json:"id"`
	Code                int    `json:"code"`
	Name                string `json:"name"`
	ShortName           string `json:"short_name"`
	StrengthOverallHome int    `json:"strength_overall_home"`
	StrengthOverallAway int    `json:"strength_overall_away"`
}

type Element struct {
	ID                uint    `json:"id"`
	Code              int     `json:"code"`
	FirstName         string  `json:"first_name"`
	SecondName        string  `json:"second_name"`
	WebName           string  `json:"web_name"`
	TeamID            uint    `json:"team"`
	ElementType       int     `json:"element_type"`
	NowCost           int     `json:"now_cost"`
	TotalPoints       int     `json:"total_points"`
	EventPoints       int     `json:"event_points"`
	Minutes           int     `json:"minutes"`
	GoalsScored       int     `json:"goals_scored"`
	Assists           int     `json:"assists"`
	CleanSheets       int     `json:"clean_sheets"`
	GoalsConceded     int     `json:"goals_conceded"`
	Saves             int     `json:"saves"`
	Bonus             int     `json:"bonus"`
	BPS               int     `json:"bps"`
	Form              float64 `json:"form,string"`
	PointsPerGame     float64 `json:"points_per_game,string"`
	SelectedByPercent float64 `json:"selected_by_percent,string"`
	TransfersInEvent  int     `json:"transfers_in_event"`
	TransfersOutEvent int     `json:"transfers_out_event"`
	Influence         float64 `json:"influence,string"`
	Creativity        float64 `json:"creativity,string"`
	Threat            float64 `json:"threat,string"`
	ICTIndex          float64 `json:"ict_index,string"`
	Status            string  `json:"status"`
	News              string  `json:"news"`
	ChanceOfPlaying   *int    `json:"chance_of_playing_next_round"`
}

type Fixture struct {
	ID             uint       `json:"id"`
	Code           int        `json:"code"`
	Event          *uint      `json:"event"`
	KickoffTime    *time.Time `json:"kickoff_time"`
	HomeTeamID     uint       `json:"team_h"`
	AwayTeamID     uint       `json:"team_a"`
	HomeDifficulty int        `json:"team_h_difficulty"`
	AwayDifficulty int        `json:"team_a_difficulty"`
	HomeScore      *int       `json:"team_h_score"`
	AwayScore      *int       `json:"team_a_score"`
	Started        bool       `json:"started"`
	Finished       bool       `json:"finished"`
}

type ElementSummary struct {
	History []ElementHistory `json:"history"`
}

type ElementHistory struct {
	ElementID     uint `json:"element"`
	Round         uint `json:"round"`
	OpponentTeam  uint `json:"opponent_team"`
	WasHome       bool `json:"was_home"`
	Minutes       int  `json:"minutes"`
	TotalPoints   int  `json:"total_points"`
	GoalsScored   int  `json:"goals_scored"`
	Assists       int  `json:"assists"`
	CleanSheets   int  `json:"clean_sheets"`
	GoalsConceded int  `json:"goals_conceded"`
	Saves         int  `json:"saves"`
	Bonus         int  `json:"bonus"`
	BPS           int  `json:"bps"`
	Value         int  `json:"value"`
	Selected      int  `json:"selected"`
}

// GetBootstrap fetches the bootstrap-static payload: events, teams and the
// full element list.
func (c *FPLClient) GetBootstrap(ctx context.Context) (*Bootstrap, error) {
	cacheKey := "fpl:bootstrap"

	// Check cache first
	var cached Bootstrap
	if c.cache != nil {
		if err := c.cache.GetSimple(cacheKey, &cached); err == nil && len(cached.Elements) > 0 {
			c.logger.Debug("Returning cached FPL bootstrap")
			return &cached, nil
		}
	}

	var bootstrap Bootstrap
	url := fmt.Sprintf("%s/bootstrap-static/", c.baseURL)
	if err := c.makeRequest(ctx, url, &bootstrap); err != nil {
		return nil, fmt.Errorf("fetching bootstrap: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"events":   len(bootstrap.Events),
		"teams":    len(bootstrap.Teams),
		"elements": len(bootstrap.Elements),
	}).Info("Fetched FPL bootstrap")

	if c.cache != nil {
		if err := c.cache.SetSimple(cacheKey, &bootstrap, c.cacheTTL); err != nil {
			c.logger.Warnf("Failed to cache bootstrap: %v", err)
		}
	}
	return &bootstrap, nil
}

// GetFixtures fetches the full season fixture list.
func (c *FPLClient) GetFixtures(ctx context.Context) ([]Fixture, error) {
	cacheKey := "fpl:fixtures"

	var cached []Fixture
	if c.cache != nil {
		if err := c.cache.GetSimple(cacheKey, &cached); err == nil && len(cached) > 0 {
			c.logger.Debug("Returning cached FPL fixtures")
			return cached, nil
		}
	}

	var fixtures []Fixture
	url := fmt.Sprintf("%s/fixtures/", c.baseURL)
	if err := c.makeRequest(ctx, url, &fixtures); err != nil {
		return nil, fmt.Errorf("fetching fixtures: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.SetSimple(cacheKey, fixtures, c.cacheTTL); err != nil {
			c.logger.Warnf("Failed to cache fixtures: %v", err)
		}
	}
	return fixtures, nil
}

// GetElementSummary fetches one player's per-gameweek history. Not cached:
// it is only pulled during refresh runs.
func (c *FPLClient) GetElementSummary(ctx context.Context, elementID uint) (*ElementSummary, error) {
	var summary ElementSummary
	url := fmt.Sprintf("%s/element-summary/%d/", c.baseURL, elementID)
	if err := c.makeRequest(ctx, url, &summary); err != nil {
		return nil, fmt.Errorf("fetching element summary %d: %w", elementID, err)
	}
	return &summary, nil
}

// makeRequest performs a rate-limited, breaker-guarded HTTP request with
// exponential backoff.
func (c *FPLClient) makeRequest(ctx context.Context, url string, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		var lastErr error
		for attempt := 0; attempt < 3; attempt++ {
			if attempt > 0 {
				waitTime := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
				c.logger.Warnf("FPL request failed (attempt %d), waiting %v: %v", attempt, waitTime, lastErr)
				select {
				case <-time.After(waitTime):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("User-Agent", "fpl-optimizer/1.0")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				lastErr = err
				continue
			}

			if resp.StatusCode != http.StatusOK {
				resp.Body.Close()
				lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
				continue
			}

			err = json.NewDecoder(resp.Body).Decode(target)
			resp.Body.Close()
			if err != nil {
				return nil, fmt.Errorf("decoding response: %w", err)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("request failed after retries: %w", lastErr)
	})
	return err
}
