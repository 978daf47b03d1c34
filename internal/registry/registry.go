package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/idrecon/idrecon/internal/config"
	"github.com/idrecon/idrecon/internal/model"
)

// Registry errors.
var (
	// ErrDuplicateScanner is returned when a scanner name is registered twice.
	ErrDuplicateScanner = errors.New("scanner already registered")
	// ErrUnknownScanner is returned when an outcome is reported for an
	// unregistered scanner.
	ErrUnknownScanner = errors.New("scanner not registered")
)

// entry pairs a static descriptor with its shared runtime breaker.
type entry struct {
	desc    model.ScannerDescriptor
	breaker *Breaker
}

// Registry is the shared scanner catalog plus per-scanner breaker state.
// One Registry serves all concurrent queries in the process.
type Registry struct {
	mu       sync.RWMutex
	scanners map[string]*entry
	logger   *slog.Logger

	// Breaker constants applied to every scanner registered here.
	breakerThreshold int
	breakerWindow    time.Duration
	breakerCooldown  time.Duration
}

// New creates a Registry using the breaker constants from cfg.
func New(cfg *config.Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		scanners:         make(map[string]*entry),
		logger:           logger.With("component", "registry"),
		breakerThreshold: cfg.BreakerThreshold,
		breakerWindow:    cfg.BreakerWindow,
		breakerCooldown:  cfg.BreakerCooldown,
	}
}

// Register adds a scanner descriptor with a fresh closed breaker.
func (r *Registry) Register(desc model.ScannerDescriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.scanners[desc.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateScanner, desc.Name)
	}

	r.scanners[desc.Name] = &entry{
		desc:    desc,
		breaker: NewBreaker(r.breakerThreshold, r.breakerWindow, r.breakerCooldown),
	}
	r.logger.Debug("scanner registered",
		"scanner", desc.Name,
		"reliability", desc.Reliability,
		"capabilities", len(desc.Capabilities),
	)
	return nil
}

// CandidatesFor resolves the scanners applicable to one query, ordered by
// reliability descending, then average latency ascending, then name for
// determinism. Disabled scanners, scanners outside the allowlist, and
// scanners whose breaker is Open (and still cooling down) are excluded;
// a breaker in its half-open window keeps its scanner listed so the probe
// can run.
func (r *Registry) CandidatesFor(qt model.QueryType, opts model.Options) []model.ScannerDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := make([]model.ScannerDescriptor, 0, len(r.scanners))
	for _, e := range r.scanners {
		if !e.desc.Enabled || !e.desc.Serves(qt) {
			continue
		}
		if len(opts.Allowlist) > 0 && !slices.Contains(opts.Allowlist, e.desc.Name) {
			continue
		}
		if e.breaker.State() == model.BreakerOpen {
			continue
		}
		candidates = append(candidates, e.desc)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Reliability != candidates[j].Reliability {
			return candidates[i].Reliability > candidates[j].Reliability
		}
		if candidates[i].AvgLatency != candidates[j].AvgLatency {
			return candidates[i].AvgLatency < candidates[j].AvgLatency
		}
		return candidates[i].Name < candidates[j].Name
	})

	return candidates
}

// Allow is the consuming admission check for one task dispatch. It returns
// false when the scanner's breaker rejects the task (the engine marks such
// tasks Skipped without issuing a network call).
func (r *Registry) Allow(name string) bool {
	r.mu.RLock()
	e, ok := r.scanners[name]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return e.breaker.Allow()
}

// ReleaseProbe returns the scanner's half-open probe slot without feeding
// an outcome into the breaker. The engine calls it for tasks that won
// admission but were abandoned before settling.
func (r *Registry) ReleaseProbe(name string) {
	r.mu.RLock()
	e, ok := r.scanners[name]
	r.mu.RUnlock()
	if !ok {
		return
	}
	e.breaker.ReleaseProbe()
}

// ReportOutcome updates the scanner's shared breaker counters.
// Unknown scanners are logged and ignored: a late outcome for a
// deregistered scanner must not crash the engine.
func (r *Registry) ReportOutcome(name string, success bool) {
	r.mu.RLock()
	e, ok := r.scanners[name]
	r.mu.RUnlock()
	if !ok {
		r.logger.Warn("outcome for unknown scanner", "scanner", name)
		return
	}

	if success {
		e.breaker.RecordSuccess()
		return
	}
	e.breaker.RecordFailure()
	if e.breaker.State() == model.BreakerOpen {
		r.logger.Warn("circuit breaker opened", "scanner", name)
	}
}

// BreakerState returns the time-aware breaker state for one scanner.
func (r *Registry) BreakerState(name string) model.BreakerState {
	r.mu.RLock()
	e, ok := r.scanners[name]
	r.mu.RUnlock()
	if !ok {
		return model.BreakerClosed
	}
	return e.breaker.State()
}

// Descriptor returns the registered descriptor for one scanner.
func (r *Registry) Descriptor(name string) (model.ScannerDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.scanners[name]
	if !ok {
		return model.ScannerDescriptor{}, false
	}
	return e.desc, true
}

// Reliabilities returns the reliability weight of every registered scanner,
// keyed by name. The scoring layer consumes this map.
func (r *Registry) Reliabilities() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]float64, len(r.scanners))
	for name, e := range r.scanners {
		out[name] = e.desc.Reliability
	}
	return out
}
