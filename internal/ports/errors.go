package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these sentinels so
// callers can branch with errors.Is without importing adapter packages.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Trade validation errors; returned synchronously to the caller so a
	// rejection always carries the specific reason.
	ErrInvalidTrade         = errors.New("invalid trade request")
	ErrUserNotFound         = errors.New("user not found")
	ErrPlayerNotFound       = errors.New("player not found")
	ErrInsufficientFunds    = errors.New("insufficient funds for trade")
	ErrInsufficientHoldings = errors.New("insufficient holdings for sale")

	// Stats Feed Errors
	// Both are soft: a pricing cycle logs them, leaves that player's
	// price unchanged and continues with the rest of the roster.
	// ErrStatsUnavailable covers missing or malformed data for one
	// player; ErrFeedUnavailable means the feed itself is unreachable
	// (retry budget exhausted).
	ErrStatsUnavailable = errors.New("player statistics unavailable")
	ErrFeedUnavailable  = errors.New("stats feed API is unavailable")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
)
