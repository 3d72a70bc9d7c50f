package matchresult

import "errors"

// Sentinel kinds for match result processing.
var (
	ErrNotFinalized   = errors.New("match is not finalized")
	ErrAlreadyApplied = errors.New("match result already applied")
)
