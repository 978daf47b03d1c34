package model

import (
	"slices"

	"github.com/google/uuid"
)

// Alternate is a conflicting scalar value that lost the corroboration vote
// during merge. Alternates keep full provenance so no observation is ever
// silently discarded.
type Alternate struct {
	// Value is the conflicting scalar value.
	Value string `json:"value"`

	// Count is how many records carried this value.
	Count int `json:"count"`

	// Sources are the scanner names that reported this value.
	Sources []string `json:"sources"`
}

// FieldValue is one merged scalar field of an entity: the most-corroborated
// primary value plus any conflicting alternates.
type FieldValue struct {
	// Value is the primary (most-corroborated) value.
	Value string `json:"value"`

	// Count is how many records carried the primary value.
	Count int `json:"count"`

	// Sources are the scanner names that reported the primary value.
	Sources []string `json:"sources"`

	// Alternates lists conflicting values with their own provenance.
	Alternates []Alternate `json:"alternates,omitempty"`
}

// Conflicted reports whether the field carries unresolved alternates.
func (f FieldValue) Conflicted() bool {
	return len(f.Alternates) > 0
}

// Entity is a merged cluster of NormalizedRecords believed to describe the
// same real-world subject. The Fields map doubles as the entity's running
// representative for similarity comparison during incremental merge.
type Entity struct {
	// ID is the cluster identifier (UUID v4).
	ID string `json:"id"`

	// Records are the contributing records, by reference.
	// Every entity has at least one.
	Records []*NormalizedRecord `json:"records"`

	// Fields are the merged scalar values with alternates.
	Fields map[string]FieldValue `json:"fields"`

	// Sets are the unioned set-valued fields, sorted for stable output.
	Sets map[string][]string `json:"sets,omitempty"`

	// Sources are the distinct contributing scanner names, sorted.
	Sources []string `json:"sources"`

	// Confidence is the [0,1] trust score computed at finalization.
	Confidence float64 `json:"confidence"`
}

// NewEntity creates an entity with a fresh cluster id and no records.
// The merge layer attaches the first record immediately after creation.
func NewEntity() *Entity {
	return &Entity{
		ID:     uuid.NewString(),
		Fields: make(map[string]FieldValue),
		Sets:   make(map[string][]string),
	}
}

// HasSource reports whether the named scanner contributed to the entity.
func (e *Entity) HasSource(name string) bool {
	return slices.Contains(e.Sources, name)
}

// HasConflicts reports whether any of the named core fields carry
// unresolved alternates. The scoring layer applies a consistency penalty
// when this is true.
func (e *Entity) HasConflicts(coreFields []string) bool {
	for _, name := range coreFields {
		if f, ok := e.Fields[name]; ok && f.Conflicted() {
			return true
		}
	}
	return false
}

// Clone returns a copy of the entity that shares the immutable records but
// owns its own field, set, and source containers. Snapshots use Clone so
// later merges never mutate an already-published entity.
func (e *Entity) Clone() *Entity {
	c := &Entity{
		ID:         e.ID,
		Records:    slices.Clone(e.Records),
		Fields:     make(map[string]FieldValue, len(e.Fields)),
		Sets:       make(map[string][]string, len(e.Sets)),
		Sources:    slices.Clone(e.Sources),
		Confidence: e.Confidence,
	}
	for k, v := range e.Fields {
		v.Sources = slices.Clone(v.Sources)
		v.Alternates = slices.Clone(v.Alternates)
		// The alternates were cloned shallowly above; their source slices
		// still point into the original until cloned too.
		for i := range v.Alternates {
			v.Alternates[i].Sources = slices.Clone(v.Alternates[i].Sources)
		}
		c.Fields[k] = v
	}
	for k, v := range e.Sets {
		c.Sets[k] = slices.Clone(v)
	}
	return c
}

// ExcludedRecord is a record that was deliberately left out of every entity,
// with the reason stated. Provenance is never dropped: every normalized
// record appears in exactly one entity or exactly one ExcludedRecord.
type ExcludedRecord struct {
	// Record is the excluded record.
	Record *NormalizedRecord `json:"record"`

	// Reason states why the record was excluded (e.g. "parse_error",
	// "duplicate_of:<fingerprint>").
	Reason string `json:"reason"`
}

// EntitySet is one atomic snapshot of the merged state for a query.
// Consumers always receive a complete snapshot, never a half-merged view.
type EntitySet struct {
	// Entities are the current clusters.
	Entities []*Entity `json:"entities"`

	// Excluded are records left out of every cluster, with reasons.
	Excluded []ExcludedRecord `json:"excluded,omitempty"`
}
