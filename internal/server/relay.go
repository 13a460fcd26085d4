package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"faceit-relay/internal/cache"
	"faceit-relay/internal/domain"
	"faceit-relay/internal/format"
	"faceit-relay/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// RelayServer maps urlfetch-style GET routes onto the resolver and
// aggregator. Every response is 200 text/plain: relay bots do not surface
// non-200 bodies to viewers, so failures are rendered as sentences.
type RelayServer struct {
	resolver *service.Resolver
	stats    *service.StatsService
	cache    *cache.TTLCache[string]
	logger   zerolog.Logger
}

func NewRelayServer(resolver *service.Resolver, stats *service.StatsService, responseCache *cache.TTLCache[string], logger zerolog.Logger) *RelayServer {
	return &RelayServer{resolver: resolver, stats: stats, cache: responseCache, logger: logger}
}

func (s *RelayServer) Routes(router *mux.Router) {
	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/elo", s.handleElo).Methods(http.MethodGet)
	router.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	router.HandleFunc("/streak", s.handleStreak).Methods(http.MethodGet)
}

func (s *RelayServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeText(w, "OK")
}

func (s *RelayServer) handleElo(w http.ResponseWriter, r *http.Request) {
	nick := r.URL.Query().Get("nick")
	window := service.WindowToday
	label := "Today"
	if r.URL.Query().Get("window") == "session" {
		window = service.WindowSession
		label = "Session"
	}

	key := cacheKey("elo", nick, strings.ToLower(label))
	s.respond(r.Context(), w, key, func(ctx context.Context) (string, error) {
		player, err := s.resolver.Resolve(ctx, nick)
		if err != nil {
			return "", err
		}
		summary, err := s.stats.TodaySummary(ctx, player, window)
		if err != nil {
			return "", err
		}
		return format.EloLine(player, summary, label), nil
	})
}

func (s *RelayServer) handleStats(w http.ResponseWriter, r *http.Request) {
	player := r.URL.Query().Get("player")

	key := cacheKey("stats", player, "")
	s.respond(r.Context(), w, key, func(ctx context.Context) (string, error) {
		record, err := s.resolver.Resolve(ctx, player)
		if err != nil {
			return "", err
		}
		stats, err := s.stats.Aggregate(ctx, record)
		if err != nil {
			return "", err
		}
		return format.StatsLine(record, stats), nil
	})
}

func (s *RelayServer) handleStreak(w http.ResponseWriter, r *http.Request) {
	nick := r.URL.Query().Get("nick")

	key := cacheKey("streak", nick, "")
	s.respond(r.Context(), w, key, func(ctx context.Context) (string, error) {
		player, err := s.resolver.Resolve(ctx, nick)
		if err != nil {
			return "", err
		}
		streak, err := s.stats.Streak(ctx, player)
		if err != nil {
			return "", err
		}
		return format.StreakLine(streak), nil
	})
}

// respond answers from the cache when possible, otherwise produces a fresh
// line and stores it. Failure sentences are cached like any other response
// to shield the upstream from retry bursts.
func (s *RelayServer) respond(ctx context.Context, w http.ResponseWriter, key string, produce func(context.Context) (string, error)) {
	if body, ok := s.cache.Get(key); ok {
		s.logger.Debug().Str("key", key).Msg("cache hit")
		writeText(w, body)
		return
	}

	body, err := produce(ctx)
	if err != nil {
		body = s.renderError(ctx, err)
	}

	// an aborted request produces a sentence shaped by the cancellation,
	// not by the player; caching it would poison the key for the TTL
	if ctx.Err() == nil {
		s.cache.Set(key, body)
	}
	writeText(w, body)
}

func (s *RelayServer) renderError(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return format.NotFoundMessage
	case errors.Is(err, domain.ErrNoGameData):
		return format.NoGameDataMessage
	default:
		zerolog.Ctx(ctx).Error().Err(err).Msg("request failed")
		return format.UnavailableMessage
	}
}

func cacheKey(command, nick, window string) string {
	key := command + ":" + strings.ToLower(strings.TrimSpace(nick))
	if window != "" {
		key += ":" + window
	}
	return key
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
