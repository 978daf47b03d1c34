package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than creating
// new error instances in Validate(). This allows callers to use errors.Is()
// for programmatic error handling while still providing human-readable
// messages.
var (
	// ErrInvalidConcurrency is returned when a concurrency cap is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: global and per-scanner caps must be positive")

	// ErrInvalidTimeout is returned when a timeout or deadline is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: task timeout and query deadline must be positive")

	// ErrInvalidAttempts is returned when the attempt budget is not positive.
	ErrInvalidAttempts = errors.New("invalid max attempts: must be positive")

	// ErrInvalidMergeThreshold is returned when the merge threshold is outside (0,1].
	ErrInvalidMergeThreshold = errors.New("invalid merge threshold: must be in (0,1]")

	// ErrInvalidBreaker is returned when a breaker constant is not positive.
	ErrInvalidBreaker = errors.New("invalid breaker settings: threshold, window, and cooldown must be positive")

	// ErrInvalidPenalty is returned when the consistency penalty is outside (0,1].
	ErrInvalidPenalty = errors.New("invalid consistency penalty: must be in (0,1]")

	// ErrInvalidStaleness is returned when the staleness window is not positive.
	ErrInvalidStaleness = errors.New("invalid staleness window: must be positive")

	// ErrInvalidEventBuffer is returned when the event buffer size is not positive.
	ErrInvalidEventBuffer = errors.New("invalid event buffer: must be positive")
)
