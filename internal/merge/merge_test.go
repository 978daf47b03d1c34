package merge

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/idrecon/idrecon/internal/model"
	"github.com/idrecon/idrecon/internal/normalize"
)

const testThreshold = 0.82

func emailRecord(t *testing.T, source, addr string, extra map[string]any) *model.NormalizedRecord {
	t.Helper()
	payload := map[string]any{"email": addr}
	for k, v := range extra {
		payload[k] = v
	}
	n := normalize.New("+1")
	rec := n.Normalize(model.QueryTypeEmail, source, payload, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if rec.ParseError {
		t.Fatalf("record for %q unexpectedly has ParseError", addr)
	}
	return rec
}

func nameRecord(t *testing.T, source, name string) *model.NormalizedRecord {
	t.Helper()
	n := normalize.New("+1")
	rec := n.Normalize(model.QueryTypeName, source, map[string]any{"name": name}, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	if rec.ParseError {
		t.Fatalf("record for %q unexpectedly has ParseError", name)
	}
	return rec
}

func TestMergerAdd(t *testing.T) {
	t.Parallel()

	t.Run("equal identifiers always merge", func(t *testing.T) {
		t.Parallel()

		m := New(testThreshold)
		m.Add(emailRecord(t, "a", "johndoe@gmail.com", map[string]any{"breach": true}))
		m.Add(emailRecord(t, "b", "john.doe@gmail.com", nil))

		set := m.Snapshot()
		if len(set.Entities) != 1 {
			t.Fatalf("len(Entities) = %d, want 1 (aliased addresses must merge)", len(set.Entities))
		}
		ent := set.Entities[0]
		if got := ent.Fields[model.FieldEmail].Value; got != "johndoe@gmail.com" {
			t.Errorf("email = %q, want johndoe@gmail.com", got)
		}
		if got := ent.Fields[model.FieldBreachCount].Value; got != "1" {
			t.Errorf("breach_count = %q, want 1", got)
		}
		if len(ent.Sources) != 2 || ent.Sources[0] != "a" || ent.Sources[1] != "b" {
			t.Errorf("Sources = %v, want [a b]", ent.Sources)
		}
		if len(ent.Records) != 2 {
			t.Errorf("len(Records) = %d, want 2", len(ent.Records))
		}
	})

	t.Run("different identifiers never merge", func(t *testing.T) {
		t.Parallel()

		m := New(testThreshold)
		m.Add(emailRecord(t, "a", "alice@example.com", nil))
		m.Add(emailRecord(t, "b", "bob@example.com", nil))

		if got := len(m.Snapshot().Entities); got != 2 {
			t.Errorf("len(Entities) = %d, want 2", got)
		}
	})

	t.Run("dissimilar names stay separate", func(t *testing.T) {
		t.Parallel()

		m := New(testThreshold)
		m.Add(nameRecord(t, "a", "Jon Smith"))
		m.Add(nameRecord(t, "b", "Jonathan Smith III"))

		if got := len(m.Snapshot().Entities); got != 2 {
			t.Errorf("len(Entities) = %d, want 2 (below-threshold names must not merge)", got)
		}
	})

	t.Run("identical names merge", func(t *testing.T) {
		t.Parallel()

		m := New(testThreshold)
		m.Add(nameRecord(t, "a", "Jon Smith"))
		m.Add(nameRecord(t, "b", "jon   SMITH"))

		if got := len(m.Snapshot().Entities); got != 1 {
			t.Errorf("len(Entities) = %d, want 1", got)
		}
	})

	t.Run("conflicting scalars keep most corroborated primary", func(t *testing.T) {
		t.Parallel()

		m := New(testThreshold)
		m.Add(emailRecord(t, "a", "alice@example.com", map[string]any{"city": "Berlin"}))
		m.Add(emailRecord(t, "b", "alice@example.com", map[string]any{"city": "Munich"}))
		m.Add(emailRecord(t, "c", "alice@example.com", map[string]any{"city": "Munich"}))

		ent := m.Snapshot().Entities[0]
		city := ent.Fields[model.FieldCity]
		if city.Value != "munich" {
			t.Errorf("city primary = %q, want munich (2 votes beat 1)", city.Value)
		}
		if city.Count != 2 {
			t.Errorf("city count = %d, want 2", city.Count)
		}
		if len(city.Alternates) != 1 || city.Alternates[0].Value != "berlin" {
			t.Fatalf("Alternates = %+v, want one berlin alternate", city.Alternates)
		}
		if got := city.Alternates[0].Sources; len(got) != 1 || got[0] != "a" {
			t.Errorf("alternate sources = %v, want [a] (provenance must survive demotion)", got)
		}
	})

	t.Run("duplicate fingerprints collapse", func(t *testing.T) {
		t.Parallel()

		m := New(testThreshold)
		m.Add(emailRecord(t, "a", "alice@example.com", nil))
		m.Add(emailRecord(t, "a", "alice@example.com", nil))

		set := m.Snapshot()
		if len(set.Entities) != 1 {
			t.Fatalf("len(Entities) = %d, want 1", len(set.Entities))
		}
		if len(set.Entities[0].Records) != 1 {
			t.Errorf("len(Records) = %d, want 1 (duplicate must not attach)", len(set.Entities[0].Records))
		}
		if len(set.Excluded) != 1 {
			t.Fatalf("len(Excluded) = %d, want 1", len(set.Excluded))
		}
		if !strings.HasPrefix(set.Excluded[0].Reason, ReasonDuplicatePrefix) {
			t.Errorf("exclusion reason = %q, want %q prefix", set.Excluded[0].Reason, ReasonDuplicatePrefix)
		}
	})

	t.Run("parse errors are excluded with reason", func(t *testing.T) {
		t.Parallel()

		n := normalize.New("+1")
		rec := n.Normalize(model.QueryTypeEmail, "junk", map[string]any{"email": "garbage"}, time.Now())

		m := New(testThreshold)
		m.Add(rec)

		set := m.Snapshot()
		if len(set.Entities) != 0 {
			t.Errorf("len(Entities) = %d, want 0", len(set.Entities))
		}
		if len(set.Excluded) != 1 || set.Excluded[0].Reason != ReasonParseError {
			t.Fatalf("Excluded = %+v, want one parse_error entry", set.Excluded)
		}
		if set.Excluded[0].Record.Source != "junk" {
			t.Error("excluded record lost its provenance")
		}
	})

	t.Run("every record lands exactly once", func(t *testing.T) {
		t.Parallel()

		m := New(testThreshold)
		records := []*model.NormalizedRecord{
			emailRecord(t, "a", "alice@example.com", nil),
			emailRecord(t, "b", "alice@example.com", nil),
			emailRecord(t, "c", "bob@example.com", nil),
		}
		for _, rec := range records {
			m.Add(rec)
		}

		set := m.Snapshot()
		total := len(set.Excluded)
		for _, ent := range set.Entities {
			total += len(ent.Records)
		}
		if total != len(records) {
			t.Errorf("placed records = %d, want %d", total, len(records))
		}
	})
}

func TestMergerSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("empty merger yields empty set", func(t *testing.T) {
		t.Parallel()

		set := New(testThreshold).Snapshot()
		if set == nil {
			t.Fatal("Snapshot() = nil, want empty set")
		}
		if len(set.Entities) != 0 || len(set.Excluded) != 0 {
			t.Errorf("Snapshot() = %+v, want empty", set)
		}
	})

	t.Run("published snapshots are immutable", func(t *testing.T) {
		t.Parallel()

		m := New(testThreshold)
		m.Add(emailRecord(t, "a", "alice@example.com", nil))
		before := m.Snapshot()
		beforeSources := len(before.Entities[0].Sources)

		m.Add(emailRecord(t, "b", "alice@example.com", nil))

		if got := len(before.Entities[0].Sources); got != beforeSources {
			t.Errorf("earlier snapshot mutated: sources %d -> %d", beforeSources, got)
		}
		if got := len(m.Snapshot().Entities[0].Sources); got != 2 {
			t.Errorf("latest snapshot sources = %d, want 2", got)
		}
	})

	t.Run("alternate provenance is frozen in earlier snapshots", func(t *testing.T) {
		t.Parallel()

		m := New(testThreshold)
		for _, src := range []string{"p1", "p2", "p3", "p4"} {
			m.Add(emailRecord(t, src, "alice@example.com", map[string]any{"city": "Munich"}))
		}
		for _, src := range []string{"s2", "s3", "s4"} {
			m.Add(emailRecord(t, src, "alice@example.com", map[string]any{"city": "Berlin"}))
		}

		before := m.Snapshot()
		alt := before.Entities[0].Fields[model.FieldCity].Alternates
		if len(alt) != 1 || len(alt[0].Sources) != 3 {
			t.Fatalf("Alternates = %+v, want one berlin alternate with 3 sources", alt)
		}

		// Corroborate the alternate from a source that sorts before the
		// existing ones; the live slice is re-sorted in place.
		m.Add(emailRecord(t, "a1", "alice@example.com", map[string]any{"city": "Berlin"}))

		got := before.Entities[0].Fields[model.FieldCity].Alternates[0].Sources
		if !slices.Equal(got, []string{"s2", "s3", "s4"}) {
			t.Errorf("earlier snapshot alternate sources mutated: %v, want [s2 s3 s4]", got)
		}
	})
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	t.Run("conflicting identifiers score zero despite matching names", func(t *testing.T) {
		t.Parallel()

		ent := model.NewEntity()
		ent.Fields[model.FieldEmail] = model.FieldValue{Value: "alice@example.com", Count: 1, Sources: []string{"a"}}
		ent.Fields[model.FieldFullName] = model.FieldValue{Value: "alice jones", Count: 1, Sources: []string{"a"}}

		rec := &model.NormalizedRecord{
			QueryType: model.QueryTypeEmail,
			Fields: map[string]string{
				model.FieldEmail:    "bob@example.com",
				model.FieldFullName: "alice jones",
			},
		}
		if got := similarity(rec, ent); got != 0 {
			t.Errorf("similarity = %v, want 0", got)
		}
	})

	t.Run("nearby coordinates raise similarity", func(t *testing.T) {
		t.Parallel()

		ent := model.NewEntity()
		ent.Fields[model.FieldFullName] = model.FieldValue{Value: "jon smith", Count: 1, Sources: []string{"a"}}
		ent.Fields[model.FieldLatitude] = model.FieldValue{Value: "52.520000", Count: 1, Sources: []string{"a"}}
		ent.Fields[model.FieldLongitude] = model.FieldValue{Value: "13.405000", Count: 1, Sources: []string{"a"}}

		near := &model.NormalizedRecord{
			Fields: map[string]string{
				model.FieldFullName:  "jon smith",
				model.FieldLatitude:  "52.520100",
				model.FieldLongitude: "13.405100",
			},
		}
		far := &model.NormalizedRecord{
			Fields: map[string]string{
				model.FieldFullName:  "jon smith",
				model.FieldLatitude:  "40.712800",
				model.FieldLongitude: "-74.006000",
			},
		}
		if nearScore, farScore := similarity(near, ent), similarity(far, ent); nearScore <= farScore {
			t.Errorf("near = %v, far = %v; want near > far", nearScore, farScore)
		}
	})
}

func TestLevenshtein(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"jon", "jonathan", 5},
		{"same", "same", 0},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestJaccard(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"jon", "smith"}, []string{"jon", "smith"}, 1},
		{"disjoint", []string{"jon"}, []string{"smith"}, 0},
		{"partial", []string{"jon", "smith"}, []string{"jonathan", "smith", "iii"}, 0.25},
		{"empty side", nil, []string{"x"}, 0},
	}
	for _, tt := range tests {
		if got := jaccard(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: jaccard = %v, want %v", tt.name, got, tt.want)
		}
	}
}
