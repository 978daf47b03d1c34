// Package score computes entity confidence from corroboration, source
// reliability, freshness, and internal consistency.
package score

import (
	"time"

	"github.com/idrecon/idrecon/internal/model"
)

// CoreFields are the identity-bearing fields whose unresolved conflicts
// trigger the consistency penalty. Secondary attributes (city, camera
// model) may disagree without making the entity itself doubtful.
var CoreFields = []string{
	model.FieldEmail,
	model.FieldPhone,
	model.FieldUsername,
	model.FieldImageHash,
	model.FieldFullName,
}

// defaultReliability is assumed for sources missing from the reliability
// map. Neutral rather than zero: an unknown source still corroborates.
const defaultReliability = 0.5

// minFreshness floors the staleness multiplier so old-but-corroborated
// entities are dampened, not erased.
const minFreshness = 0.5

// Score returns the [0,1] confidence for an entity.
//
// The base is the probability that at least one contributing source is
// right, 1-Π(1-r_i) over distinct sources. Unresolved conflicts on core
// fields multiply in the consistency penalty; age of the freshest
// contributing record applies a linear staleness ramp down to minFreshness.
//
// Score is a pure function of the entity's final record set: it reads only
// set-valued state, so permuting record arrival order cannot change it.
func Score(e *model.Entity, reliability map[string]float64, now time.Time, staleness time.Duration, penalty float64) float64 {
	if e == nil || len(e.Records) == 0 {
		return 0
	}

	miss := 1.0
	for _, source := range e.Sources {
		r, ok := reliability[source]
		if !ok {
			r = defaultReliability
		}
		miss *= 1 - clamp(r)
	}
	confidence := 1 - miss

	if e.HasConflicts(CoreFields) {
		confidence *= clamp(penalty)
	}

	confidence *= freshness(e, now, staleness)

	return clamp(confidence)
}

// freshness returns the linear staleness multiplier for the freshest
// contributing record: 1 when collected now, minFreshness at or past the
// staleness window.
func freshness(e *model.Entity, now time.Time, staleness time.Duration) float64 {
	if staleness <= 0 {
		return 1
	}

	var freshest time.Time
	for _, rec := range e.Records {
		if rec.CollectedAt.After(freshest) {
			freshest = rec.CollectedAt
		}
	}
	if freshest.IsZero() {
		return minFreshness
	}

	age := now.Sub(freshest)
	if age <= 0 {
		return 1
	}
	if age >= staleness {
		return minFreshness
	}
	return 1 - (1-minFreshness)*float64(age)/float64(staleness)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
