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

// FootballDataClient pulls league standings and results from
// football-data.org, used to enrich FPL teams with real form data.
type FootballDataClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cache      CacheProvider
	cacheTTL   time.Duration
	logger     *logrus.Logger
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// NewFootballDataClient creates a new football-data.org API client.
func NewFootballDataClient(baseURL, apiKey string, timeout, cacheTTL time.Duration, cache CacheProvider, logger *logrus.Logger) *FootballDataClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &FootballDataClient{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:  baseURL,
		apiKey:   apiKey,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Every(6*time.Second), 1), // 10 requests per minute on the free tier
		breaker:  NewBreaker("football-data", 60*time.Second, logger),
	}
}

// Enabled reports whether an API key was configured. Without one the
// pipeline simply skips the standings enrichment.
func (c *FootballDataClient) Enabled() bool {
	return c.apiKey != ""
}

// football-data.org v4 response structures

type StandingsResponse struct {
	Standings []StandingGroup `json:"standings"`
}

type StandingGroup struct {
	Type  string        `json:"type"`
	Table []StandingRow `json:"table"`
}

type StandingRow struct {
	Position     int       `json:"position"`
	Team         MatchTeam `json:"team"`
	PlayedGames  int       `json:"playedGames"`
	Won          int       `json:"won"`
	Draw         int       `json:"draw"`
	Lost         int       `json:"lost"`
	Points       int       `json:"points"`
	GoalsFor     int       `json:"goalsFor"`
	GoalsAgainst int       `json:"goalsAgainst"`
}

type MatchTeam struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
	TLA       string `json:"tla"`
}

type MatchesResponse struct {
	Matches []Match `json:"matches"`
}

type Match struct {
	ID       int       `json:"id"`
	UTCDate  time.Time `json:"utcDate"`
	Status   string    `json:"status"`
	Matchday int       `json:"matchday"`
	HomeTeam MatchTeam `json:"homeTeam"`
	AwayTeam MatchTeam `json:"awayTeam"`
	Score    Score     `json:"score"`
}

type Score struct {
	Winner   string    `json:"winner"`
	FullTime ScorePair `json:"fullTime"`
}

type ScorePair struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// GetStandings fetches the current Premier League table.
func (c *FootballDataClient) GetStandings(ctx context.Context) (*StandingsResponse, error) {
	cacheKey := "footballdata:standings"

	var cached StandingsResponse
	if c.cache != nil {
		if err := c.cache.GetSimple(cacheKey, &cached); err == nil && len(cached.Standings) > 0 {
			c.logger.Debug("Returning cached standings")
			return &cached, nil
		}
	}

	var standings StandingsResponse
	url := fmt.Sprintf("%s/competitions/PL/standings", c.baseURL)
	if err := c.makeRequest(ctx, url, &standings); err != nil {
		return nil, fmt.Errorf("fetching standings: %w", err)
	}

	if c.cache != nil {
		if err := c.cache.SetSimple(cacheKey, &standings, c.cacheTTL); err != nil {
			c.logger.Warnf("Failed to cache standings: %v", err)
		}
	}
	return &standings, nil
}

// GetFinishedMatches fetches completed Premier League matches for the
// running season, oldest first.
func (c *FootballDataClient) GetFinishedMatches(ctx context.Context) ([]Match, error) {
	var matches MatchesResponse
	url := fmt.Sprintf("%s/competitions/PL/matches?status=FINISHED", c.baseURL)
	if err := c.makeRequest(ctx, url, &matches); err != nil {
		return nil, fmt.Errorf("fetching matches: %w", err)
	}
	return matches.Matches, nil
}

// makeRequest performs a rate-limited, breaker-guarded HTTP request with
// exponential backoff. The API key rides the X-Auth-Token header.
func (c *FootballDataClient) makeRequest(ctx context.Context, url string, target interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		var lastErr error
		for attempt := 0; attempt < 3; attempt++ {
			if attempt > 0 {
				waitTime := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
				c.logger.Warnf("football-data request failed (attempt %d), waiting %v: %v", attempt, waitTime, lastErr)
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
			req.Header.Set("X-Auth-Token", c.apiKey)

			resp, err := c.httpClient.Do(req)
			if err != nil {
				lastErr = err
				continue
			}

			if resp.StatusCode == http.StatusTooManyRequests {
				resp.Body.Close()
				lastErr = fmt.Errorf("rate limited by upstream")
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
