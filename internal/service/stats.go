package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"faceit-relay/internal/api"
	"faceit-relay/internal/constants"
	"faceit-relay/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Window selects how "today" is bounded for the session summary.
type Window int

const (
	// WindowToday covers everything since the last 07:00 local time.
	WindowToday Window = iota

	// WindowSession covers the chain of matches with no gap above 8h.
	WindowSession
)

type StatsService struct {
	client StatsAPI
	logger zerolog.Logger

	// overridable for tests
	now func() time.Time
}

func NewStatsService(client StatsAPI, logger zerolog.Logger) *StatsService {
	return &StatsService{client: client, logger: logger, now: time.Now}
}

// Streak reduces the last matches to win/loss flags, newest first. A player
// with no match history gets an empty streak, not an error.
func (s *StatsService) Streak(ctx context.Context, player *domain.Player) (domain.Streak, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	matches, err := s.fetchHistory(ctx, player.PlayerID, constants.StreakLength)
	if err != nil {
		return nil, err
	}

	streak := make(domain.Streak, 0, len(matches))
	for _, m := range matches {
		won, present := m.WonBy(player.PlayerID)
		if !present {
			continue
		}
		streak = append(streak, won)
	}

	s.logger.Debug().Str("player_id", player.PlayerID).Int("matches", len(streak)).Msg("streak computed")
	return streak, nil
}

// Aggregate produces lifetime statistics, preferring the upstream lifetime
// summary and recomputing from per-match details when that summary cannot be
// fetched.
func (s *StatsService) Aggregate(ctx context.Context, player *domain.Player) (*domain.AggregatedStats, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	lifetime, err := s.client.GetLifetimeStats(ctx, player.PlayerID)
	if err == nil {
		return lifetimeToStats(lifetime), nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoGameData
	}

	s.logger.Warn().Err(err).Str("player_id", player.PlayerID).Msg("lifetime stats unavailable, recomputing from match details")
	return s.recompute(ctx, player)
}

// TodaySummary filters recent matches to the requested window and sums
// wins, losses and the elo delta.
func (s *StatsService) TodaySummary(ctx context.Context, player *domain.Player, window Window) (*domain.AggregatedStats, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer cancel()

	matches, err := s.fetchHistory(ctx, player.PlayerID, constants.StatsMatchLimit)
	if err != nil {
		return nil, err
	}

	var included []domain.Match
	switch window {
	case WindowSession:
		included = sessionMatches(matches, constants.SessionMaxGap)
	default:
		included = sinceDayStart(matches, dayStart(s.now(), constants.DayStartHour))
	}

	stats := &domain.AggregatedStats{Matches: len(included)}
	for _, m := range included {
		won, present := m.WonBy(player.PlayerID)
		if !present {
			stats.Matches--
			continue
		}

		if won {
			stats.Wins++
		} else {
			stats.Losses++
		}

		if m.EloBefore > 0 && m.EloAfter > 0 {
			stats.EloDelta += m.EloAfter - m.EloBefore
		} else if won {
			stats.EloDelta += constants.EloPerMatchEstimate
		} else {
			stats.EloDelta -= constants.EloPerMatchEstimate
		}
	}

	s.logger.Debug().
		Str("player_id", player.PlayerID).
		Int("wins", stats.Wins).
		Int("losses", stats.Losses).
		Int("elo_delta", stats.EloDelta).
		Msg("window summary computed")
	return stats, nil
}

// recompute fans out per-match detail fetches and reduces the counters.
// Matches whose detail cannot be fetched are skipped, never fatal.
func (s *StatsService) recompute(ctx context.Context, player *domain.Player) (*domain.AggregatedStats, error) {
	matches, err := s.fetchHistory(ctx, player.PlayerID, constants.StatsMatchLimit)
	if err != nil {
		return nil, err
	}

	stats := &domain.AggregatedStats{}
	if len(matches) == 0 {
		return stats, nil
	}

	details := make([]*domain.MatchDetail, len(matches))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(constants.DetailFetchLimit)

	for i, m := range matches {
		i, m := i, m
		g.Go(func() error {
			detail, err := s.fetchDetail(gCtx, m.MatchID, player.PlayerID)
			if err != nil {
				s.logger.Debug().Err(err).Str("match_id", m.MatchID).Msg("skipping match detail")
				return nil
			}
			details[i] = detail
			return nil
		})
	}
	// workers never return errors, Wait is just the join point
	_ = g.Wait()

	var kills, deaths, headshots int
	for i, m := range matches {
		if won, present := m.WonBy(player.PlayerID); present {
			if won {
				stats.Wins++
			} else {
				stats.Losses++
			}
		}

		if details[i] == nil {
			stats.Skipped++
			continue
		}
		kills += details[i].Kills
		deaths += details[i].Deaths
		headshots += details[i].Headshots
	}

	counted := len(matches) - stats.Skipped
	stats.Matches = len(matches)
	if counted > 0 {
		stats.AvgKills = float64(kills) / float64(counted)
	}
	if deaths > 0 {
		stats.KDRatio = float64(kills) / float64(deaths)
	} else {
		stats.KDRatio = float64(kills)
	}
	if kills > 0 {
		stats.HeadshotPct = float64(headshots) / float64(kills) * 100
	}
	if played := stats.Wins + stats.Losses; played > 0 {
		stats.WinRate = float64(stats.Wins) / float64(played) * 100
	}

	s.logger.Info().
		Str("player_id", player.PlayerID).
		Int("matches", stats.Matches).
		Int("skipped", stats.Skipped).
		Msg("stats recomputed from match details")
	return stats, nil
}

func (s *StatsService) fetchHistory(ctx context.Context, playerID string, limit int) ([]domain.Match, error) {
	resp, err := s.client.GetMatchHistory(ctx, playerID, limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoGameData
		}
		return nil, err
	}

	matches := make([]domain.Match, 0, len(resp.Items))
	for _, item := range resp.Items {
		factions := make(map[string][]string, len(item.Teams))
		for faction, team := range item.Teams {
			ids := make([]string, 0, len(team.Players))
			for _, p := range team.Players {
				ids = append(ids, p.PlayerID)
			}
			factions[faction] = ids
		}

		matches = append(matches, domain.Match{
			MatchID:    item.MatchID,
			StartedAt:  time.Unix(item.StartedAt, 0),
			FinishedAt: time.Unix(item.FinishedAt, 0),
			Factions:   factions,
			Winner:     item.Results.Winner,
			EloBefore:  item.EloBefore,
			EloAfter:   item.EloAfter,
		})
	}
	return matches, nil
}

func (s *StatsService) fetchDetail(ctx context.Context, matchID, playerID string) (*domain.MatchDetail, error) {
	resp, err := s.client.GetMatchStats(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if len(resp.Rounds) == 0 {
		return nil, domain.ErrMalformed
	}

	for _, team := range resp.Rounds[0].Teams {
		for _, p := range team.Players {
			if p.PlayerID != playerID {
				continue
			}
			return &domain.MatchDetail{
				MatchID:   matchID,
				Kills:     atoi(p.PlayerStats.Kills),
				Deaths:    atoi(p.PlayerStats.Deaths),
				Headshots: atoi(p.PlayerStats.Headshots),
			}, nil
		}
	}
	return nil, domain.ErrMalformed
}

// dayStart returns the most recent boundary at startHour local time. Before
// the boundary hour, the window opened yesterday.
func dayStart(now time.Time, startHour int) time.Time {
	boundary := time.Date(now.Year(), now.Month(), now.Day(), startHour, 0, 0, 0, now.Location())
	if now.Before(boundary) {
		boundary = boundary.AddDate(0, 0, -1)
	}
	return boundary
}

// sinceDayStart keeps matches finished at or after the boundary; a match
// exactly on the boundary belongs to the new day.
func sinceDayStart(matches []domain.Match, boundary time.Time) []domain.Match {
	var out []domain.Match
	for _, m := range matches {
		if !m.FinishedAt.Before(boundary) {
			out = append(out, m)
		}
	}
	return out
}

// sessionMatches walks the newest-first history and keeps the chain of
// matches whose inter-match gap does not exceed maxGap. A gap of exactly
// maxGap stays inside the session.
func sessionMatches(matches []domain.Match, maxGap time.Duration) []domain.Match {
	if len(matches) == 0 {
		return nil
	}

	out := []domain.Match{matches[0]}
	for i := 1; i < len(matches); i++ {
		gap := matches[i-1].StartedAt.Sub(matches[i].FinishedAt)
		if gap > maxGap {
			break
		}
		out = append(out, matches[i])
	}
	return out
}

func lifetimeToStats(resp *api.LifetimeStatsResponse) *domain.AggregatedStats {
	stats := &domain.AggregatedStats{
		Matches:     atoi(resp.Lifetime.Matches),
		Wins:        atoi(resp.Lifetime.Wins),
		WinRate:     atof(resp.Lifetime.WinRate),
		KDRatio:     atof(resp.Lifetime.AverageKDRatio),
		HeadshotPct: atof(resp.Lifetime.AverageHeadshots),
	}
	if stats.Matches >= stats.Wins {
		stats.Losses = stats.Matches - stats.Wins
	}
	return stats
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func atof(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
