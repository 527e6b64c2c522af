package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these standard errors.
var (
	// General errors
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrInvalidResponse    = errors.New("unusable response payload")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Leaderboard API errors
	ErrRateLimited = errors.New("API rate limit exceeded")
	ErrUnavailable = errors.New("upstream service unavailable")

	// Database errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
)
