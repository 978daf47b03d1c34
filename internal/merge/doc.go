// Package merge incrementally clusters normalized records into entities.
//
// Each entity keeps a running representative (its merged field map); an
// incoming record attaches to the best-matching entity at or above the
// merge threshold, otherwise it founds a new entity. Exactly equal
// canonical identifiers always merge; conflicting scalars keep the
// most-corroborated value as primary and park the rest as alternates with
// full provenance.
//
// The current entity set is published through an atomic snapshot pointer:
// readers always observe a complete, immutable view, never a half-merged
// one.
package merge
