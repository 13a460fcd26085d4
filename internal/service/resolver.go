package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"faceit-relay/internal/api"
	"faceit-relay/internal/config"
	"faceit-relay/internal/constants"
	"faceit-relay/internal/domain"

	"github.com/rs/zerolog"
)

// StatsAPI is the slice of the FACEIT data API the services consume.
type StatsAPI interface {
	GetPlayerByNickname(ctx context.Context, nickname string) (*api.PlayerResponse, error)
	GetMatchHistory(ctx context.Context, playerID string, limit int) (*api.HistoryResponse, error)
	GetLifetimeStats(ctx context.Context, playerID string) (*api.LifetimeStatsResponse, error)
	GetMatchStats(ctx context.Context, matchID string) (*api.MatchStatsResponse, error)
}

type Resolver struct {
	client          StatsAPI
	defaultNickname string
	logger          zerolog.Logger
}

func NewResolver(client StatsAPI, cfg *config.Config, logger zerolog.Logger) *Resolver {
	return &Resolver{client: client, defaultNickname: cfg.DefaultNickname, logger: logger}
}

// Resolve maps a possibly miscased nickname to a canonical player record.
// Case variations are looked up concurrently and the first success wins; the
// winner is not necessarily the original casing.
func (r *Resolver) Resolve(ctx context.Context, nickname string) (*domain.Player, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = r.defaultNickname
	}
	if nickname == "" {
		return nil, domain.ErrNotFound
	}

	candidates := caseVariations(nickname)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan *api.PlayerResponse, len(candidates))
	failures := make(chan error, len(candidates))

	for _, candidate := range candidates {
		candidate := candidate
		go func() {
			lookupCtx, lookupCancel := context.WithTimeout(ctx, constants.LookupTimeout)
			defer lookupCancel()

			resp, err := r.client.GetPlayerByNickname(lookupCtx, candidate)
			if err != nil {
				failures <- err
				return
			}
			results <- resp
		}()
	}

	var failed int
	for failed < len(candidates) {
		select {
		case resp := <-results:
			return r.toPlayer(resp)
		case err := <-failures:
			failed++
			if !errors.Is(err, domain.ErrNotFound) {
				r.logger.Warn().Err(err).Str("nickname", nickname).Msg("nickname lookup failed")
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, ctx.Err())
		}
	}

	// an aborted request must not masquerade as a missing player
	if ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, ctx.Err())
	}

	r.logger.Info().Str("nickname", nickname).Int("candidates", len(candidates)).Msg("no nickname variation resolved")
	return nil, domain.ErrNotFound
}

func (r *Resolver) toPlayer(resp *api.PlayerResponse) (*domain.Player, error) {
	player := &domain.Player{
		PlayerID: resp.PlayerID,
		Nickname: resp.Nickname,
	}

	game, ok := resp.Games["cs2"]
	if !ok {
		game, ok = resp.Games["csgo"]
	}
	if !ok {
		return nil, domain.ErrNoGameData
	}

	player.Elo = game.FaceitElo
	player.SkillLevel = game.SkillLevel
	return player, nil
}

func caseVariations(nickname string) []string {
	variants := []string{
		nickname,
		strings.ToLower(nickname),
		strings.ToUpper(nickname),
		capitalize(nickname),
	}

	seen := make(map[string]struct{}, len(variants))
	var out []string
	for _, v := range variants {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
