package domain

import (
	"time"
)

type Player struct {
	PlayerID   string
	Nickname   string
	Elo        int
	SkillLevel int
}

// Match is one entry from the player's match history. Factions maps a
// faction name ("faction1"/"faction2") to the player ids on that side.
type Match struct {
	MatchID    string
	StartedAt  time.Time
	FinishedAt time.Time
	Factions   map[string][]string
	Winner     string

	// elo before/after the match when the upstream payload carries it, 0 otherwise
	EloBefore int
	EloAfter  int
}

// WonBy reports whether playerID was on the winning faction, and whether the
// player appears in the match at all.
func (m *Match) WonBy(playerID string) (won, present bool) {
	for faction, players := range m.Factions {
		for _, id := range players {
			if id == playerID {
				return faction == m.Winner, true
			}
		}
	}
	return false, false
}

// MatchDetail holds one player's round stats from a single match.
type MatchDetail struct {
	MatchID   string
	Kills     int
	Deaths    int
	Headshots int
}

type AggregatedStats struct {
	Matches     int
	Wins        int
	Losses      int
	WinRate     float64
	AvgKills    float64
	KDRatio     float64
	HeadshotPct float64
	EloDelta    int

	// matches whose detail fetch failed and were excluded from the averages
	Skipped int
}

// Streak holds win/loss flags of the most recent matches, newest first.
type Streak []bool
