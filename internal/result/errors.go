package result

import "errors"

// Sentinel errors for the query core. Callers classify failures with
// errors.Is; the wrapped message carries the human-readable detail.
var (
	// ErrConfigInvalid means a required connection field is missing.
	// It is surfaced immediately and never retried.
	ErrConfigInvalid = errors.New("invalid connection config")

	// ErrConnectionExhausted means the reconnection budget was spent.
	ErrConnectionExhausted = errors.New("connection attempts exhausted")

	// ErrNotConnected means an operation needed a live handle and
	// lazy-connect also failed.
	ErrNotConnected = errors.New("not connected to database")

	// ErrExecutionFailed wraps a driver-level statement failure.
	// Re-running identical bad SQL fails identically, so it is never retried.
	ErrExecutionFailed = errors.New("query execution failed")

	// ErrResultNotFound means a staged identifier is unknown or expired.
	ErrResultNotFound = errors.New("staged result not found")

	// ErrInvalidPageIndex means the pagination input was malformed.
	ErrInvalidPageIndex = errors.New("invalid page index")
)
