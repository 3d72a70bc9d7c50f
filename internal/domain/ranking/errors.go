package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidBonus   = errors.New("invalid bonus points")
	ErrInvalidInput   = errors.New("invalid ranking input")
)
