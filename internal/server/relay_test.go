package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"faceit-relay/internal/api"
	"faceit-relay/internal/cache"
	"faceit-relay/internal/config"
	"faceit-relay/internal/domain"
	"faceit-relay/internal/format"
	"faceit-relay/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

type mockAPI struct {
	mu           sync.Mutex
	players      map[string]*api.PlayerResponse
	history      *api.HistoryResponse
	historyCalls int
}

func (m *mockAPI) GetPlayerByNickname(ctx context.Context, nickname string) (*api.PlayerResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.players[nickname]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockAPI) GetMatchHistory(ctx context.Context, playerID string, limit int) (*api.HistoryResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historyCalls++
	if m.history == nil {
		return &api.HistoryResponse{}, nil
	}
	return m.history, nil
}

func (m *mockAPI) GetLifetimeStats(ctx context.Context, playerID string) (*api.LifetimeStatsResponse, error) {
	return nil, domain.ErrNotFound
}

func (m *mockAPI) GetMatchStats(ctx context.Context, matchID string) (*api.MatchStatsResponse, error) {
	return nil, domain.ErrNotFound
}

func newTestRouter(m *mockAPI, ttl time.Duration) *mux.Router {
	cfg := &config.Config{DefaultNickname: "owner", CacheTTL: ttl}
	resolver := service.NewResolver(m, cfg, zerolog.Nop())
	stats := service.NewStatsService(m, zerolog.Nop())
	responseCache := cache.NewTTLCache[string](ttl, 16)

	relay := NewRelayServer(resolver, stats, responseCache, zerolog.Nop())
	router := mux.NewRouter()
	relay.Routes(router)
	return router
}

func get(t *testing.T, router *mux.Router, target string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec.Code, rec.Body.String()
}

func ownerPlayer() *api.PlayerResponse {
	return &api.PlayerResponse{
		PlayerID: "id-owner",
		Nickname: "owner",
		Games:    map[string]api.GameInfo{"cs2": {FaceitElo: 2150, SkillLevel: 10}},
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&mockAPI{}, 30*time.Second)

	code, body := get(t, router, "/health")
	if code != http.StatusOK || body != "OK" {
		t.Fatalf("got %d %q", code, body)
	}
}

func TestEloUnknownNickname(t *testing.T) {
	router := newTestRouter(&mockAPI{players: map[string]*api.PlayerResponse{}}, 30*time.Second)

	code, body := get(t, router, "/elo?nick=ghost")
	if code != http.StatusOK {
		t.Fatalf("logical failures must still be 200, got %d", code)
	}
	if body != format.NotFoundMessage {
		t.Fatalf("got %q, want the NotFound sentence", body)
	}
}

func TestEloDefaultIdentityZeroMatches(t *testing.T) {
	m := &mockAPI{players: map[string]*api.PlayerResponse{"owner": ownerPlayer()}}
	router := newTestRouter(m, 30*time.Second)

	code, body := get(t, router, "/elo")
	if code != http.StatusOK {
		t.Fatalf("got %d", code)
	}
	if body != "Elo: 2150. Today -> Win: 0 Lose: 0" {
		t.Fatalf("got %q", body)
	}
}

func TestEloSessionWindowLabel(t *testing.T) {
	m := &mockAPI{players: map[string]*api.PlayerResponse{"owner": ownerPlayer()}}
	router := newTestRouter(m, 30*time.Second)

	code, body := get(t, router, "/elo?nick=owner&window=session")
	if code != http.StatusOK {
		t.Fatalf("got %d", code)
	}
	if body != "Elo: 2150. Session -> Win: 0 Lose: 0" {
		t.Fatalf("got %q, want the session label, not Today", body)
	}
}

func TestStreakEndpoint(t *testing.T) {
	now := time.Now()
	var items []api.HistoryItem
	for i := 0; i < 10; i++ {
		winner := "faction2"
		if i%2 == 0 {
			winner = "faction1"
		}
		items = append(items, api.HistoryItem{
			MatchID:    "m",
			StartedAt:  now.Add(-time.Duration(i+1) * time.Hour).Unix(),
			FinishedAt: now.Add(-time.Duration(i) * time.Hour).Unix(),
			Teams: map[string]api.HistoryTeam{
				"faction1": {Players: []api.HistoryPlayer{{PlayerID: "id-owner"}}},
				"faction2": {Players: []api.HistoryPlayer{{PlayerID: "id-enemy"}}},
			},
			Results: api.HistoryResults{Winner: winner},
		})
	}
	m := &mockAPI{
		players: map[string]*api.PlayerResponse{"owner": ownerPlayer()},
		history: &api.HistoryResponse{Items: items},
	}
	router := newTestRouter(m, 30*time.Second)

	code, body := get(t, router, "/streak?nick=owner")
	if code != http.StatusOK {
		t.Fatalf("got %d", code)
	}
	if body != "Last 10 -> W L W L W L W L W L" {
		t.Fatalf("got %q", body)
	}
}

func TestStatsEndpointNoGameData(t *testing.T) {
	m := &mockAPI{players: map[string]*api.PlayerResponse{
		"owner": {PlayerID: "id-owner", Nickname: "owner", Games: map[string]api.GameInfo{}},
	}}
	router := newTestRouter(m, 30*time.Second)

	code, body := get(t, router, "/stats?player=owner")
	if code != http.StatusOK {
		t.Fatalf("got %d", code)
	}
	if body != format.NoGameDataMessage {
		t.Fatalf("got %q, want the NoGameData sentence distinct from NotFound", body)
	}
}

func TestCacheDeduplicatesUpstreamCalls(t *testing.T) {
	m := &mockAPI{players: map[string]*api.PlayerResponse{"owner": ownerPlayer()}}
	router := newTestRouter(m, time.Hour)

	_, first := get(t, router, "/elo?nick=owner")
	_, second := get(t, router, "/elo?nick=owner")

	if first != second {
		t.Fatalf("cached response differs: %q vs %q", first, second)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.historyCalls != 1 {
		t.Fatalf("history fetched %d times within TTL, want 1", m.historyCalls)
	}
}

func TestCacheExpiryTriggersFreshFetch(t *testing.T) {
	m := &mockAPI{players: map[string]*api.PlayerResponse{"owner": ownerPlayer()}}
	router := newTestRouter(m, 20*time.Millisecond)

	get(t, router, "/elo?nick=owner")
	time.Sleep(30 * time.Millisecond)
	get(t, router, "/elo?nick=owner")

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.historyCalls != 2 {
		t.Fatalf("history fetched %d times across TTL expiry, want 2", m.historyCalls)
	}
}

func TestCancelledRequestDoesNotPoisonCache(t *testing.T) {
	m := &mockAPI{players: map[string]*api.PlayerResponse{"owner": ownerPlayer()}}
	router := newTestRouter(m, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/elo?nick=owner", nil).WithContext(ctx))

	// whatever the aborted request produced, the next caller must get a
	// freshly computed answer, not a cached failure sentence
	code, body := get(t, router, "/elo?nick=owner")
	if code != http.StatusOK {
		t.Fatalf("got %d", code)
	}
	if body != "Elo: 2150. Today -> Win: 0 Lose: 0" {
		t.Fatalf("got %q, want a fresh response after the aborted request", body)
	}
}

func TestCacheKeyIsCaseInsensitive(t *testing.T) {
	m := &mockAPI{players: map[string]*api.PlayerResponse{"owner": ownerPlayer()}}
	router := newTestRouter(m, time.Hour)

	get(t, router, "/elo?nick=owner")
	get(t, router, "/elo?nick=OWNER")

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.historyCalls != 1 {
		t.Fatalf("differently cased nicknames should share a cache entry, got %d fetches", m.historyCalls)
	}
}
