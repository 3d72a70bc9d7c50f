package repository

import "errors"

// Sentinel kinds for ranking store errors.
var (
	ErrNotFound       = errors.New("ranking record not found")
	ErrRecordConflict = errors.New("ranking record already exists")
	ErrInvalidLimit   = errors.New("invalid page limit")
)
