package constants

import "time"

const (
	DefaultCacheTTL = 30 * time.Second
	CacheMaxEntries = 1024
)

const (
	// chat relays abort around 5s, keep individual lookups under that
	LookupTimeout      = 4 * time.Second
	ExternalAPITimeout = 10 * time.Second
	RequestTimeout     = 30 * time.Second
)

const (
	StreakLength     = 10
	StatsMatchLimit  = 30
	DetailFetchLimit = 8
)

const (
	// a "day" of play starts at 07:00 local time
	DayStartHour = 7

	// matches closer together than this belong to the same session
	SessionMaxGap = 8 * time.Hour

	// per-match elo estimate used when the history payload has no elo fields
	EloPerMatchEstimate = 25
)

const (
	ShutdownTimeout = 5 * time.Second
)
