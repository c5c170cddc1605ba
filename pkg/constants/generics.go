package constants

import "time"

// Global rate limit applied to every route without its own limiter.
const (
	DefaultRateLimitRequests = 100
	DefaultRateLimitWindow   = time.Minute

	// SubmitRequestsPerMinute caps form submissions per client.
	SubmitRequestsPerMinute = 30
)

// Submission processing
const (
	// HistoryLimit is the number of entries returned by the history view.
	HistoryLimit = 10
	// MinEchoItems and MaxEchoItems bound the size of a successful submit response, inclusive.
	MinEchoItems = 2
	MaxEchoItems = 5
	// DefaultSubmitMaxDelay is the upper bound of the simulated processing latency.
	DefaultSubmitMaxDelay = 3 * time.Second
)

const DefaultRequestTimeout = 30 * time.Second

// Storage
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	DefaultSQLitePath = "submissions.db"
)
