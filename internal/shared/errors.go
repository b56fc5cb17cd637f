package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Store errors
	ErrNotFound          = fmt.Errorf("not found")
	ErrUserNotFound      = fmt.Errorf("user not found")
	ErrDuplicateUsername = fmt.Errorf("username already taken")

	// Sync pipeline errors
	ErrNoSourceURL  = fmt.Errorf("source URL not set")
	ErrFetchTimeout = fmt.Errorf("fetch timed out")
	ErrFetchFailed  = fmt.Errorf("fetch failed")
	ErrScanFailed   = fmt.Errorf("scan failed")
	ErrQueueClosed  = fmt.Errorf("sync queue closed")
	ErrQueueFull    = fmt.Errorf("sync queue full")
	ErrJobInFlight  = fmt.Errorf("sync already queued or running for user")
	ErrTimeout      = fmt.Errorf("operation timed out")

	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
