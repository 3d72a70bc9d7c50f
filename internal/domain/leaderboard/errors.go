package leaderboard

import "errors"

// Sentinel kinds for leaderboard errors.
var (
	ErrInvalidPage  = errors.New("invalid page")
	ErrInvalidLimit = errors.New("invalid limit")
	ErrNotFound     = errors.New("player has no ranking in season")
)
