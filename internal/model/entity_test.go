package model

import (
	"slices"
	"sort"
	"testing"
)

// TestEntityClone tests that snapshots cannot be mutated through the original.
func TestEntityClone(t *testing.T) {
	t.Parallel()

	e := NewEntity()
	e.Records = append(e.Records, &NormalizedRecord{Source: "a"})
	e.Fields[FieldEmail] = FieldValue{Value: "x@example.com", Count: 1, Sources: []string{"a"}}
	e.Fields[FieldCity] = FieldValue{
		Value:      "berlin",
		Count:      2,
		Sources:    []string{"a", "b"},
		Alternates: []Alternate{{Value: "munich", Count: 1, Sources: append(make([]string, 0, 4), "c", "d", "e")}},
	}
	e.Sets[SetUsernames] = []string{"x"}
	e.Sources = []string{"a"}

	c := e.Clone()

	// Mutate the original after cloning, including the alternate's source
	// slice in place (it had spare capacity, so append reuses the array).
	e.Fields[FieldEmail] = FieldValue{Value: "y@example.com", Count: 2}
	city := e.Fields[FieldCity]
	city.Alternates[0].Sources = append(city.Alternates[0].Sources, "aa")
	sort.Strings(city.Alternates[0].Sources)
	e.Sets[SetUsernames] = append(e.Sets[SetUsernames], "y")
	e.Sources = append(e.Sources, "b")

	if c.Fields[FieldEmail].Value != "x@example.com" {
		t.Error("clone fields were mutated through the original")
	}
	if got := c.Fields[FieldCity].Alternates[0].Sources; !slices.Equal(got, []string{"c", "d", "e"}) {
		t.Errorf("clone alternate sources were mutated through the original: %v", got)
	}
	if len(c.Sets[SetUsernames]) != 1 {
		t.Error("clone sets were mutated through the original")
	}
	if len(c.Sources) != 1 {
		t.Error("clone sources were mutated through the original")
	}
	if c.ID != e.ID {
		t.Error("clone must keep the cluster id")
	}
}

// TestEntityHasConflicts tests conflict detection over core fields.
func TestEntityHasConflicts(t *testing.T) {
	t.Parallel()

	e := NewEntity()
	e.Fields[FieldEmail] = FieldValue{Value: "x@example.com", Count: 2}
	e.Fields[FieldFullName] = FieldValue{
		Value:      "john smith",
		Count:      2,
		Alternates: []Alternate{{Value: "jon smith", Count: 1, Sources: []string{"b"}}},
	}

	if e.HasConflicts([]string{FieldEmail}) {
		t.Error("email carries no alternates, expected no conflict")
	}
	if !e.HasConflicts([]string{FieldEmail, FieldFullName}) {
		t.Error("full_name carries alternates, expected a conflict")
	}
}
