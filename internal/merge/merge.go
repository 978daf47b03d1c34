package merge

import (
	"slices"
	"sync"

	"github.com/idrecon/idrecon/internal/model"
)

// Exclusion reasons. Excluded records keep full provenance; the reason
// states why they joined no cluster.
const (
	// ReasonParseError marks records whose raw payload was malformed.
	ReasonParseError = "parse_error"

	// ReasonDuplicatePrefix prefixes the fingerprint of the record the
	// duplicate collapsed into.
	ReasonDuplicatePrefix = "duplicate_of:"
)

// Merger incrementally clusters records for one query. Safe for concurrent
// use: the engine's task callbacks feed it from many goroutines.
type Merger struct {
	threshold float64

	mu       sync.Mutex
	entities []*model.Entity
	byFP     map[string]struct{}
	excluded []model.ExcludedRecord

	snap snapshot
}

// New creates a Merger with the given attach threshold.
func New(threshold float64) *Merger {
	m := &Merger{
		threshold: threshold,
		byFP:      make(map[string]struct{}),
	}
	m.snap.publish(&model.EntitySet{})
	return m
}

// Add routes one record into the cluster set: parse errors and duplicates
// go to the excluded list, everything else attaches to the best entity at
// or above the threshold or founds a new one. A fresh snapshot is
// published before Add returns.
func (m *Merger) Add(rec *model.NormalizedRecord) {
	if rec == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case rec.ParseError:
		m.excluded = append(m.excluded, model.ExcludedRecord{
			Record: rec,
			Reason: ReasonParseError,
		})
	default:
		fp := rec.Fingerprint()
		if _, dup := m.byFP[fp]; dup {
			// Same source, same canonical content: a re-query, not new
			// evidence.
			m.excluded = append(m.excluded, model.ExcludedRecord{
				Record: rec,
				Reason: ReasonDuplicatePrefix + fp,
			})
			break
		}
		m.byFP[fp] = struct{}{}
		m.attach(rec)
	}

	m.snap.publish(m.buildSnapshotLocked())
}

// Snapshot returns the latest complete entity set. The returned value is
// immutable; later Adds publish new snapshots instead of mutating it.
func (m *Merger) Snapshot() *model.EntitySet {
	return m.snap.load()
}

// attach merges the record into the best-matching entity, creating one
// when nothing reaches the threshold. Caller holds m.mu.
func (m *Merger) attach(rec *model.NormalizedRecord) {
	var best *model.Entity
	bestScore := 0.0
	for _, ent := range m.entities {
		if s := similarity(rec, ent); s >= m.threshold && s > bestScore {
			best, bestScore = ent, s
		}
	}

	if best == nil {
		best = model.NewEntity()
		m.entities = append(m.entities, best)
	}

	best.Records = append(best.Records, rec)
	if !best.HasSource(rec.Source) {
		best.Sources = append(best.Sources, rec.Source)
		slices.Sort(best.Sources)
	}

	for name, value := range rec.Fields {
		mergeScalar(best, name, value, rec.Source)
	}
	for name, values := range rec.Sets {
		best.Sets[name] = unionSorted(best.Sets[name], values)
	}
}

// mergeScalar folds one observed scalar value into the entity's field,
// keeping the most-corroborated value primary and the rest as alternates.
func mergeScalar(ent *model.Entity, name, value, source string) {
	fv, ok := ent.Fields[name]
	if !ok {
		ent.Fields[name] = model.FieldValue{
			Value:   value,
			Count:   1,
			Sources: []string{source},
		}
		return
	}

	switch {
	case fv.Value == value:
		fv.Count++
		fv.Sources = appendSourceSorted(fv.Sources, source)
	default:
		idx := slices.IndexFunc(fv.Alternates, func(a model.Alternate) bool {
			return a.Value == value
		})
		if idx < 0 {
			fv.Alternates = append(fv.Alternates, model.Alternate{
				Value:   value,
				Count:   1,
				Sources: []string{source},
			})
			idx = len(fv.Alternates) - 1
		} else {
			fv.Alternates[idx].Count++
			fv.Alternates[idx].Sources = appendSourceSorted(fv.Alternates[idx].Sources, source)
		}

		// Promote the alternate when it out-corroborates the primary.
		if fv.Alternates[idx].Count > fv.Count {
			promoted := fv.Alternates[idx]
			fv.Alternates[idx] = model.Alternate{
				Value:   fv.Value,
				Count:   fv.Count,
				Sources: fv.Sources,
			}
			fv.Value = promoted.Value
			fv.Count = promoted.Count
			fv.Sources = promoted.Sources
		}
	}

	ent.Fields[name] = fv
}

// buildSnapshotLocked clones the working state into an immutable set.
// Caller holds m.mu.
func (m *Merger) buildSnapshotLocked() *model.EntitySet {
	set := &model.EntitySet{
		Entities: make([]*model.Entity, len(m.entities)),
		Excluded: slices.Clone(m.excluded),
	}
	for i, ent := range m.entities {
		set.Entities[i] = ent.Clone()
	}
	return set
}

// appendSourceSorted inserts a source name keeping the slice sorted and
// deduplicated.
func appendSourceSorted(sources []string, source string) []string {
	if slices.Contains(sources, source) {
		return sources
	}
	sources = append(sources, source)
	slices.Sort(sources)
	return sources
}

// unionSorted merges two string sets into a sorted deduplicated slice.
func unionSorted(a, b []string) []string {
	out := slices.Clone(a)
	for _, v := range b {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}
