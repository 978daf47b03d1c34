package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are starting points tuned for typical free-tier OSINT data
// sources; operators adjust them per deployment via the config file or flags.
const (
	// DefaultGlobalConcurrency caps concurrently running scanner tasks
	// across one query. Most queries resolve 5-15 candidate scanners, so
	// 8 keeps the fan-out wide without saturating the local network path.
	DefaultGlobalConcurrency = 8

	// DefaultScannerConcurrency caps in-flight tasks per scanner across
	// all queries. Scanners map 1:1 to external services, and most public
	// sources throttle aggressively beyond two parallel requests.
	DefaultScannerConcurrency = 2

	// DefaultTaskTimeout bounds one adapter attempt. Individual sources
	// that exceed this are marked Timeout and retried within the attempt
	// budget; the overall query deadline is independent of this value.
	DefaultTaskTimeout = 20 * time.Second

	// DefaultQueryDeadline bounds the whole query. When it elapses,
	// outstanding tasks are abandoned and a partial result is produced.
	DefaultQueryDeadline = 2 * time.Minute

	// DefaultMaxAttempts is the attempt budget per task (first try plus
	// retries) for timeout/transient failures.
	DefaultMaxAttempts = 3

	// DefaultBackoffBase is the first retry delay; subsequent retries
	// double it, with jitter added to avoid thundering herds.
	DefaultBackoffBase = 500 * time.Millisecond

	// DefaultRateLimitCooldown is the wait before the single retry of a
	// rate-limited task when the provider did not indicate its own.
	DefaultRateLimitCooldown = 30 * time.Second

	// DefaultBreakerThreshold is the consecutive-failure count that opens
	// a scanner's circuit breaker.
	DefaultBreakerThreshold = 5

	// DefaultBreakerWindow is the sliding window within which consecutive
	// failures must occur to open the breaker.
	DefaultBreakerWindow = 60 * time.Second

	// DefaultBreakerCooldown is how long an open breaker rejects tasks
	// before allowing a single half-open probe.
	DefaultBreakerCooldown = 30 * time.Second

	// DefaultMergeThreshold is the minimum aggregate similarity for a
	// record to join an existing entity instead of founding a new one.
	DefaultMergeThreshold = 0.82

	// DefaultStalenessWindow is the age at which a record's freshness
	// multiplier decays to the floor.
	DefaultStalenessWindow = 30 * 24 * time.Hour

	// DefaultConsistencyPenalty multiplies the confidence score of
	// entities carrying unresolved conflicting core fields.
	DefaultConsistencyPenalty = 0.7

	// DefaultEventBuffer is the capacity of the progress event sink
	// buffer. On overflow the oldest event is dropped; the engine never
	// blocks on a slow sink.
	DefaultEventBuffer = 256

	// DefaultListenAddr is the HTTP API listen address for serve mode.
	DefaultListenAddr = "127.0.0.1:8137"

	// DefaultCountryPrefix is prepended to national-format phone numbers
	// during E.164 normalization when no country code is present.
	DefaultCountryPrefix = "+1"

	// AppName is the application name used for XDG directory paths.
	AppName = "idrecon"
)

// Config holds all configuration options for idrecon.
// This struct is populated from defaults, the config file, and CLI flags,
// and passed through the application via dependency injection rather than
// global state.
type Config struct {
	// GlobalConcurrency caps concurrently running tasks per query.
	GlobalConcurrency int `yaml:"global_concurrency"`

	// ScannerConcurrency caps in-flight tasks per scanner across queries.
	ScannerConcurrency int `yaml:"scanner_concurrency"`

	// TaskTimeout bounds a single adapter attempt.
	TaskTimeout time.Duration `yaml:"task_timeout"`

	// QueryDeadline is the default overall budget for a query. Callers
	// can shorten or extend it per query via submission options.
	QueryDeadline time.Duration `yaml:"query_deadline"`

	// MaxAttempts is the per-task attempt budget for retryable failures.
	MaxAttempts int `yaml:"max_attempts"`

	// BackoffBase is the initial retry backoff (doubled per attempt,
	// jittered).
	BackoffBase time.Duration `yaml:"backoff_base"`

	// RateLimitCooldown is the default wait before retrying a
	// rate-limited task once.
	RateLimitCooldown time.Duration `yaml:"rate_limit_cooldown"`

	// BreakerThreshold is the consecutive-failure count that opens a
	// scanner's breaker.
	BreakerThreshold int `yaml:"breaker_threshold"`

	// BreakerWindow is the window within which the consecutive failures
	// must fall.
	BreakerWindow time.Duration `yaml:"breaker_window"`

	// BreakerCooldown is the open-state duration before one half-open
	// probe is allowed.
	BreakerCooldown time.Duration `yaml:"breaker_cooldown"`

	// MergeThreshold is the minimum aggregate similarity for clustering.
	MergeThreshold float64 `yaml:"merge_threshold"`

	// StalenessWindow controls the linear freshness decay in scoring.
	StalenessWindow time.Duration `yaml:"staleness_window"`

	// ConsistencyPenalty multiplies scores of conflicted entities.
	ConsistencyPenalty float64 `yaml:"consistency_penalty"`

	// EventBuffer is the progress sink capacity (drop-oldest on overflow).
	EventBuffer int `yaml:"event_buffer"`

	// CountryPrefix is the default E.164 country code for national-format
	// phone numbers.
	CountryPrefix string `yaml:"country_prefix"`

	// ListenAddr is the HTTP API address for serve mode.
	ListenAddr string `yaml:"listen_addr"`

	// DBDir is the directory for the SQLite result store. Empty disables
	// persistence (results are held in memory only).
	DBDir string `yaml:"db_dir"`

	// Verbose enables slog.LevelDebug output.
	Verbose bool `yaml:"-"`

	// Scanners holds per-scanner catalog overrides loaded from the config
	// file: enabled flags, reliability weights, rate limits.
	Scanners map[string]ScannerOverride `yaml:"scanners"`
}

// ScannerOverride adjusts one scanner's catalog entry from the config file.
// Zero values mean "keep the registered default".
type ScannerOverride struct {
	// Enabled gates the scanner. Pointer so the file can disable a scanner
	// explicitly (false) without the zero value meaning disabled.
	Enabled *bool `yaml:"enabled,omitempty"`

	// Reliability replaces the scanner's reliability weight when > 0.
	Reliability float64 `yaml:"reliability,omitempty"`

	// RequestsPerSecond replaces the scanner's rate limit when > 0.
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`

	// Burst replaces the scanner's burst size when > 0.
	Burst int `yaml:"burst,omitempty"`
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use
// cases; users override specific values after creation.
//
// Design decision: We use a constructor instead of relying on zero values
// because almost every default is non-zero. It also documents the defaults
// in one place.
func NewConfig() *Config {
	return &Config{
		GlobalConcurrency:  DefaultGlobalConcurrency,
		ScannerConcurrency: DefaultScannerConcurrency,
		TaskTimeout:        DefaultTaskTimeout,
		QueryDeadline:      DefaultQueryDeadline,
		MaxAttempts:        DefaultMaxAttempts,
		BackoffBase:        DefaultBackoffBase,
		RateLimitCooldown:  DefaultRateLimitCooldown,
		BreakerThreshold:   DefaultBreakerThreshold,
		BreakerWindow:      DefaultBreakerWindow,
		BreakerCooldown:    DefaultBreakerCooldown,
		MergeThreshold:     DefaultMergeThreshold,
		StalenessWindow:    DefaultStalenessWindow,
		ConsistencyPenalty: DefaultConsistencyPenalty,
		EventBuffer:        DefaultEventBuffer,
		CountryPrefix:      DefaultCountryPrefix,
		ListenAddr:         DefaultListenAddr,
		Scanners:           make(map[string]ScannerOverride),
	}
}

// XDGDataDir returns the XDG data directory for idrecon.
// On Linux: ~/.local/share/idrecon.
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for idrecon.
// On Linux: ~/.config/idrecon.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific sentinel error describing what is invalid.
//
// Design decision: We validate once after flag/file merging rather than at
// each point of use, to fail fast with a clear message. The first error
// found is returned because fixing one often makes others irrelevant.
func (c *Config) Validate() error {
	if c.GlobalConcurrency <= 0 || c.ScannerConcurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.TaskTimeout <= 0 || c.QueryDeadline <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxAttempts <= 0 {
		return ErrInvalidAttempts
	}
	if c.MergeThreshold <= 0 || c.MergeThreshold > 1 {
		return ErrInvalidMergeThreshold
	}
	if c.BreakerThreshold <= 0 || c.BreakerWindow <= 0 || c.BreakerCooldown <= 0 {
		return ErrInvalidBreaker
	}
	if c.ConsistencyPenalty <= 0 || c.ConsistencyPenalty > 1 {
		return ErrInvalidPenalty
	}
	if c.StalenessWindow <= 0 {
		return ErrInvalidStaleness
	}
	if c.EventBuffer <= 0 {
		return ErrInvalidEventBuffer
	}
	return nil
}
