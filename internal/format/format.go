// Package format renders aggregated data as the single-line plain-text
// strings chat-bot urlfetch relays display verbatim.
package format

import (
	"fmt"
	"strings"

	"faceit-relay/internal/domain"
)

const (
	NotFoundMessage    = "Player not found."
	NoGameDataMessage  = "No game data for this player."
	UnavailableMessage = "Stats are unavailable right now, try again later."

	StreakPrefix    = "Last %d -> "
	NoMatchesStreak = "No recent matches."
)

// EloLine renders the current rating with a window summary under the given
// label ("Today" or "Session"). The delta is shown only when the window
// contains matches.
func EloLine(player *domain.Player, summary *domain.AggregatedStats, label string) string {
	line := fmt.Sprintf("Elo: %d. %s -> Win: %d Lose: %d", player.Elo, label, summary.Wins, summary.Losses)
	if summary.Wins+summary.Losses > 0 {
		line += fmt.Sprintf(" (%+d)", summary.EloDelta)
	}
	return line
}

// StatsLine renders the pipe-delimited aggregate line.
func StatsLine(player *domain.Player, stats *domain.AggregatedStats) string {
	return fmt.Sprintf(
		"%s | Elo: %d | Level: %d | Matches: %d | Wins: %d | Win rate: %.1f%% | K/D: %.2f | HS: %.1f%% | Avg kills: %.1f",
		player.Nickname,
		player.Elo,
		player.SkillLevel,
		stats.Matches,
		stats.Wins,
		stats.WinRate,
		stats.KDRatio,
		stats.HeadshotPct,
		stats.AvgKills,
	)
}

// StreakLine renders win/loss tokens newest first.
func StreakLine(streak domain.Streak) string {
	if len(streak) == 0 {
		return NoMatchesStreak
	}

	tokens := make([]string, len(streak))
	for i, won := range streak {
		if won {
			tokens[i] = "W"
		} else {
			tokens[i] = "L"
		}
	}
	return fmt.Sprintf(StreakPrefix, len(streak)) + strings.Join(tokens, " ")
}
