package agingstore

import "errors"

var (
	// ErrInvalidTTL is returned by New when the TTL is missing or not positive.
	ErrInvalidTTL = errors.New("ttl must be a positive duration")

	// ErrInvalidSweepInterval is returned by New when the sweep interval is not positive.
	ErrInvalidSweepInterval = errors.New("sweep interval must be a positive duration")

	// ErrInvalidSweepOpThreshold is returned by New when the sweep operation threshold is negative.
	ErrInvalidSweepOpThreshold = errors.New("sweep operation threshold must not be negative")
)
