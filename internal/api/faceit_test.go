package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"faceit-relay/internal/config"
	"faceit-relay/internal/domain"
)

func newTestClient(handler http.Handler) (*FaceitClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewFaceitClient(&config.Config{FaceitAPIKey: "test-key"})
	client.SetBaseURL(srv.URL)
	return client, srv
}

func TestGetPlayerByNickname(t *testing.T) {
	var gotAuth, gotPath, gotQuery string
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("nickname")
		w.Header().Set("X-Ratelimit-Limit", "500")
		w.Header().Set("X-Ratelimit-Remaining", "499")
		_, _ = w.Write([]byte(`{"player_id":"abc","nickname":"owner","games":{"cs2":{"faceit_elo":2150,"skill_level":10}}}`))
	}))
	defer srv.Close()

	resp, err := client.GetPlayerByNickname(context.Background(), "owner")
	if err != nil {
		t.Fatalf("GetPlayerByNickname: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Fatalf("authorization header = %q", gotAuth)
	}
	if gotPath != "/players" || gotQuery != "owner" {
		t.Fatalf("request hit %s?nickname=%s", gotPath, gotQuery)
	}
	if resp.PlayerID != "abc" || resp.Games["cs2"].FaceitElo != 2150 {
		t.Fatalf("decoded %+v", resp)
	}

	info := client.GetRateLimitInfo()
	if info.Limit != 500 || info.Remaining != 499 {
		t.Fatalf("rate limit not tracked: %+v", info)
	}
}

func TestNotFoundMapsToSentinel(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"not found"}]}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := client.GetPlayerByNickname(context.Background(), "ghost")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServerErrorMapsToUpstream(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := client.GetLifetimeStats(context.Background(), "abc")
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
}

func TestMalformedBodyMapsToSentinel(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	_, err := client.GetMatchHistory(context.Background(), "abc", 10)
	if !errors.Is(err, domain.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDeadlineRespected(t *testing.T) {
	client, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetMatchStats(ctx, "m1")
	if !errors.Is(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream on timeout, got %v", err)
	}
}
