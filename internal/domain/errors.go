package domain

import "errors"

var (
	// ErrNotFound means no nickname variation resolved to a player.
	ErrNotFound = errors.New("player not found")

	// ErrNoGameData means the player exists but has no record for the game.
	ErrNoGameData = errors.New("no game data for player")

	// ErrUpstream covers non-success statuses and timeouts from the data API.
	ErrUpstream = errors.New("upstream unavailable")

	// ErrMalformed covers responses that do not match the expected shape.
	ErrMalformed = errors.New("malformed upstream response")
)
