package scanner

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/idrecon/idrecon/internal/config"
	"github.com/idrecon/idrecon/internal/model"
)

// Catalog errors.
var (
	// ErrEmptyName is returned when a factory is registered without a name.
	ErrEmptyName = errors.New("scanner name cannot be empty")
	// ErrNilFactory is returned when a nil factory is registered.
	ErrNilFactory = errors.New("scanner factory cannot be nil")
	// ErrAlreadyRegistered is returned when a name is registered twice.
	ErrAlreadyRegistered = errors.New("scanner already registered")
)

// Metadata describes one adapter for the catalog: its capabilities and the
// defaults the runtime registry starts from.
type Metadata struct {
	// Name is the unique scanner name.
	Name string

	// Description says what source the adapter consults.
	Description string

	// Capabilities are the query types the adapter serves.
	Capabilities []model.QueryType

	// Reliability is the default source reliability weight in [0,1].
	Reliability float64

	// AvgLatency is the expected call latency, used as an ordering
	// tiebreaker in the registry.
	AvgLatency time.Duration

	// Rate is the default per-scanner rate-limit policy.
	Rate model.RatePolicy
}

// Factory creates an adapter instance.
type Factory func() (Adapter, error)

// Catalog is the build-time factory registry. Adapters register themselves
// from init(); the catalog is resolved once at startup into adapters plus
// their descriptors.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
	metadata  map[string]Metadata
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		factories: make(map[string]Factory),
		metadata:  make(map[string]Metadata),
	}
}

// defaultCatalog receives init()-time registrations of builtin adapters.
var defaultCatalog = NewCatalog()

// Default returns the catalog builtin adapters register into.
func Default() *Catalog {
	return defaultCatalog
}

// Register adds a factory and its metadata to the catalog.
// Typically called from init() of each adapter file.
func (c *Catalog) Register(meta Metadata, factory Factory) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if meta.Name == "" {
		return ErrEmptyName
	}
	if factory == nil {
		return fmt.Errorf("%w: %s", ErrNilFactory, meta.Name)
	}
	if _, exists := c.factories[meta.Name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, meta.Name)
	}

	c.factories[meta.Name] = factory
	c.metadata[meta.Name] = meta
	return nil
}

// MustRegister is Register that panics on error. Builtin adapters use it
// from init(), where a registration failure is a programming mistake.
func (c *Catalog) MustRegister(meta Metadata, factory Factory) {
	if err := c.Register(meta, factory); err != nil {
		panic(err)
	}
}

// Build instantiates every registered adapter and produces its descriptor,
// applying any per-scanner overrides from the configuration file.
// Adapters disabled by override are still described (so reports can show
// them as disabled) but their Enabled flag is false.
//
// Results are sorted by name so startup is deterministic.
func (c *Catalog) Build(overrides map[string]config.ScannerOverride) ([]Adapter, []model.ScannerDescriptor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.factories))
	for name := range c.factories {
		names = append(names, name)
	}
	sort.Strings(names)

	adapters := make([]Adapter, 0, len(names))
	descriptors := make([]model.ScannerDescriptor, 0, len(names))

	for _, name := range names {
		meta := c.metadata[name]

		desc := model.ScannerDescriptor{
			Name:         meta.Name,
			Capabilities: meta.Capabilities,
			Reliability:  meta.Reliability,
			AvgLatency:   meta.AvgLatency,
			Rate:         meta.Rate,
			Enabled:      true,
		}

		if ov, ok := overrides[name]; ok {
			if ov.Enabled != nil {
				desc.Enabled = *ov.Enabled
			}
			if ov.Reliability > 0 {
				desc.Reliability = ov.Reliability
			}
			if ov.RequestsPerSecond > 0 {
				desc.Rate.RequestsPerSecond = ov.RequestsPerSecond
			}
			if ov.Burst > 0 {
				desc.Rate.Burst = ov.Burst
			}
		}

		adapter, err := c.factories[name]()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build scanner %s: %w", name, err)
		}

		adapters = append(adapters, adapter)
		descriptors = append(descriptors, desc)
	}

	return adapters, descriptors, nil
}
