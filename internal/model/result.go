package model

import "time"

// ScannerOutcome is the per-scanner status breakdown entry in a result.
// Partial success is a first-class, reportable outcome: a result always
// carries one outcome per task, whatever the entity yield was.
type ScannerOutcome struct {
	// Scanner is the scanner name.
	Scanner string `json:"scanner"`

	// Status is the final task status.
	Status TaskStatus `json:"status"`

	// ErrorKind classifies the failure, if any.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`

	// Attempts counts adapter invocations, including retries.
	Attempts int `json:"attempts"`

	// Latency is the successful attempt's duration, if any.
	Latency time.Duration `json:"latency"`
}

// Result is the externally visible outcome of one query: its status, the
// merged entities, and the per-scanner breakdown.
type Result struct {
	// QueryID is the query this result belongs to.
	QueryID string `json:"query_id"`

	// Type is the query type.
	Type QueryType `json:"type"`

	// Value is the raw query value.
	Value string `json:"value"`

	// Status is the query's current (possibly non-terminal) status.
	Status QueryStatus `json:"status"`

	// FailureReason is set when Status is StatusFailed.
	FailureReason string `json:"failure_reason,omitempty"`

	// Entities are the merged subject profiles, best confidence first.
	Entities []*Entity `json:"entities"`

	// Excluded are records left out of every entity, with reasons.
	Excluded []ExcludedRecord `json:"excluded,omitempty"`

	// Scanners is the per-scanner status breakdown.
	Scanners []ScannerOutcome `json:"per_scanner_status"`

	// CreatedAt is when the query was accepted.
	CreatedAt time.Time `json:"created_at"`

	// CompletedAt is when the query reached a terminal state, if it has.
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// OutcomeFromTask converts a settled task into its breakdown entry.
func OutcomeFromTask(t *ScannerTask) ScannerOutcome {
	return ScannerOutcome{
		Scanner:   t.Scanner,
		Status:    t.Status,
		ErrorKind: t.ErrorKind,
		Attempts:  t.Attempts,
		Latency:   t.Latency,
	}
}
