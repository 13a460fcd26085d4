package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"faceit-relay/internal/config"
	"faceit-relay/internal/domain"

	"github.com/valyala/fasthttp"
)

const defaultBaseURL = "https://open.faceit.com/data/v4"

type FaceitClient struct {
	apiKey      string
	baseURL     string
	client      *fasthttp.Client
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`

	// seconds until reset
	Reset int `json:"reset"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewFaceitClient(cfg *config.Config) *FaceitClient {
	return &FaceitClient{
		apiKey:  cfg.FaceitAPIKey,
		baseURL: defaultBaseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         10 * time.Second,
			WriteTimeout:        10 * time.Second,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		rateLimit: RateLimitInfo{
			Limit:     500,
			Remaining: 500,
			Reset:     3600,
			UpdatedAt: time.Now(),
		},
	}
}

// SetBaseURL points the client at an alternate API host. Used by tests.
func (c *FaceitClient) SetBaseURL(base string) {
	c.baseURL = base
}

func (c *FaceitClient) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *FaceitClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if limit := string(resp.Header.Peek("X-Ratelimit-Limit")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Ratelimit-Remaining")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	if reset := string(resp.Header.Peek("X-Ratelimit-Reset")); reset != "" {
		if val, err := strconv.Atoi(reset); err == nil {
			c.rateLimit.Reset = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

func (c *FaceitClient) GetPlayerByNickname(ctx context.Context, nickname string) (*PlayerResponse, error) {
	u := fmt.Sprintf("%s/players?nickname=%s", c.baseURL, url.QueryEscape(nickname))
	return doRequest[PlayerResponse](ctx, c, u)
}

func (c *FaceitClient) GetMatchHistory(ctx context.Context, playerID string, limit int) (*HistoryResponse, error) {
	u := fmt.Sprintf("%s/players/%s/history?game=cs2&offset=0&limit=%d", c.baseURL, playerID, limit)
	return doRequest[HistoryResponse](ctx, c, u)
}

func (c *FaceitClient) GetLifetimeStats(ctx context.Context, playerID string) (*LifetimeStatsResponse, error) {
	u := fmt.Sprintf("%s/players/%s/stats/cs2", c.baseURL, playerID)
	return doRequest[LifetimeStatsResponse](ctx, c, u)
}

func (c *FaceitClient) GetMatchStats(ctx context.Context, matchID string) (*MatchStatsResponse, error) {
	u := fmt.Sprintf("%s/matches/%s/stats", c.baseURL, matchID)
	return doRequest[MatchStatsResponse](ctx, c, u)
}

func doRequest[T any](ctx context.Context, client *FaceitClient, url string) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Authorization", "Bearer "+client.apiKey)

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
		}
	}

	client.updateRateLimit(resp)

	switch {
	case resp.StatusCode() == fasthttp.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode() != fasthttp.StatusOK:
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstream, resp.StatusCode())
	}

	var result T
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	return &result, nil
}

type PlayerResponse struct {
	PlayerID string              `json:"player_id"`
	Nickname string              `json:"nickname"`
	Games    map[string]GameInfo `json:"games"`
}

type GameInfo struct {
	FaceitElo  int `json:"faceit_elo"`
	SkillLevel int `json:"skill_level"`
}

type HistoryResponse struct {
	Items []HistoryItem `json:"items"`
	Start int           `json:"start"`
	End   int           `json:"end"`
}

type HistoryItem struct {
	MatchID    string                 `json:"match_id"`
	StartedAt  int64                  `json:"started_at"`
	FinishedAt int64                  `json:"finished_at"`
	Teams      map[string]HistoryTeam `json:"teams"`
	Results    HistoryResults         `json:"results"`

	// present only on payloads that track per-match elo
	EloBefore int `json:"elo_before,omitempty"`
	EloAfter  int `json:"elo_after,omitempty"`
}

type HistoryTeam struct {
	TeamID  string          `json:"team_id"`
	Players []HistoryPlayer `json:"players"`
}

type HistoryPlayer struct {
	PlayerID string `json:"player_id"`
	Nickname string `json:"nickname"`
}

type HistoryResults struct {
	Winner string         `json:"winner"`
	Score  map[string]int `json:"score"`
}

type LifetimeStatsResponse struct {
	PlayerID string        `json:"player_id"`
	GameID   string        `json:"game_id"`
	Lifetime LifetimeStats `json:"lifetime"`
}

// FACEIT serves lifetime counters as strings.
type LifetimeStats struct {
	Matches           string   `json:"Matches"`
	Wins              string   `json:"Wins"`
	WinRate           string   `json:"Win Rate %"`
	AverageKDRatio    string   `json:"Average K/D Ratio"`
	AverageHeadshots  string   `json:"Average Headshots %"`
	LongestWinStreak  string   `json:"Longest Win Streak"`
	CurrentWinStreak  string   `json:"Current Win Streak"`
	RecentResultsList []string `json:"Recent Results"`
}

type MatchStatsResponse struct {
	Rounds []MatchStatsRound `json:"rounds"`
}

type MatchStatsRound struct {
	MatchID string           `json:"match_id"`
	Teams   []MatchStatsTeam `json:"teams"`
}

type MatchStatsTeam struct {
	TeamID  string             `json:"team_id"`
	Players []MatchStatsPlayer `json:"players"`
}

type MatchStatsPlayer struct {
	PlayerID    string      `json:"player_id"`
	Nickname    string      `json:"nickname"`
	PlayerStats PlayerStats `json:"player_stats"`
}

// per-round counters, also strings on the wire
type PlayerStats struct {
	Kills     string `json:"Kills"`
	Deaths    string `json:"Deaths"`
	Headshots string `json:"Headshots"`
	KDRatio   string `json:"K/D Ratio"`
}
