package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Query errors.
var (
	// ErrEmptyQueryValue is returned when the query value is empty.
	ErrEmptyQueryValue = errors.New("query value cannot be empty")
	// ErrUnknownQueryType is returned when the query type is not recognized.
	ErrUnknownQueryType = errors.New("unknown query type")
)

// QueryType identifies the kind of identifier a query carries.
// Scanners declare which query types they can serve via capability tags.
type QueryType string

const (
	// QueryTypeEmail is an email address query.
	QueryTypeEmail QueryType = "email"
	// QueryTypePhone is a phone number query.
	QueryTypePhone QueryType = "phone"
	// QueryTypeName is a person name query.
	QueryTypeName QueryType = "name"
	// QueryTypeUsername is a username/handle query.
	QueryTypeUsername QueryType = "username"
	// QueryTypeImage is an image reference query (path or URL).
	QueryTypeImage QueryType = "image"
)

// ParseQueryType converts a string into a QueryType.
// The comparison is case-insensitive. Returns ErrUnknownQueryType for
// anything that is not one of the defined types.
func ParseQueryType(s string) (QueryType, error) {
	switch QueryType(strings.ToLower(strings.TrimSpace(s))) {
	case QueryTypeEmail:
		return QueryTypeEmail, nil
	case QueryTypePhone:
		return QueryTypePhone, nil
	case QueryTypeName:
		return QueryTypeName, nil
	case QueryTypeUsername:
		return QueryTypeUsername, nil
	case QueryTypeImage:
		return QueryTypeImage, nil
	default:
		return "", ErrUnknownQueryType
	}
}

// Valid reports whether the query type is one of the defined types.
func (t QueryType) Valid() bool {
	_, err := ParseQueryType(string(t))
	return err == nil
}

// QueryStatus represents the lifecycle state of a query.
//
// The status graph only moves forward:
//
//	Submitted → Dispatching → Running → Finalizing → Complete
//	                             ├────→ PartialComplete
//	                             └────→ Failed
//
// Failed is reachable from every non-terminal state (internal faults,
// cancellation, no candidate scanners).
type QueryStatus int32

const (
	// StatusSubmitted means the query has been accepted but not dispatched.
	StatusSubmitted QueryStatus = iota
	// StatusDispatching means candidate scanners have been resolved and
	// tasks are being created.
	StatusDispatching
	// StatusRunning means at least one scanner task has started.
	StatusRunning
	// StatusFinalizing means all tasks settled and aggregation is running.
	StatusFinalizing
	// StatusPartialComplete means the deadline elapsed with tasks still
	// outstanding; a result was produced from whatever succeeded.
	StatusPartialComplete
	// StatusComplete means all tasks settled and aggregation finished.
	StatusComplete
	// StatusFailed means the query terminated without a usable result.
	// The failure reason distinguishes cancellation, internal faults,
	// and the no-sources-succeeded case.
	StatusFailed
)

// String returns a human-readable representation of the status.
func (s QueryStatus) String() string {
	switch s {
	case StatusSubmitted:
		return "submitted"
	case StatusDispatching:
		return "dispatching"
	case StatusRunning:
		return "running"
	case StatusFinalizing:
		return "finalizing"
	case StatusPartialComplete:
		return "partial_complete"
	case StatusComplete:
		return "complete"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its string form so results are
// readable in API responses and stored JSON.
func (s QueryStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes the status from its string form.
func (s *QueryStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, status := range []QueryStatus{
		StatusSubmitted, StatusDispatching, StatusRunning, StatusFinalizing,
		StatusPartialComplete, StatusComplete, StatusFailed,
	} {
		if status.String() == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown query status %q", name)
}

// Terminal reports whether the status is a terminal state.
func (s QueryStatus) Terminal() bool {
	return s == StatusComplete || s == StatusPartialComplete || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal
// forward transition in the status graph. Terminal states permit no
// further transitions.
func (s QueryStatus) CanTransition(next QueryStatus) bool {
	switch s {
	case StatusSubmitted:
		return next == StatusDispatching || next == StatusFailed
	case StatusDispatching:
		return next == StatusRunning || next == StatusFailed
	case StatusRunning:
		return next == StatusFinalizing || next == StatusPartialComplete || next == StatusFailed
	case StatusFinalizing:
		return next == StatusComplete || next == StatusFailed
	default:
		return false
	}
}

// Failure reasons recorded on Query.FailureReason when status is Failed.
const (
	// ReasonNoSourcesSucceeded means every scanner task failed or was
	// skipped; an empty success is never reported silently.
	ReasonNoSourcesSucceeded = "no_sources_succeeded"
	// ReasonNoCandidates means the registry resolved zero scanners for
	// the query type and allowlist.
	ReasonNoCandidates = "no_candidate_scanners"
	// ReasonCancelled means the caller cancelled the query explicitly.
	ReasonCancelled = "cancelled"
	// ReasonInternal means an unrecoverable internal fault occurred.
	ReasonInternal = "internal_error"
)

// Options carries the caller-supplied knobs for one query.
type Options struct {
	// Deadline is the overall wall-clock budget for the query.
	// Zero means use the configured default.
	Deadline time.Duration `json:"deadline,omitempty"`

	// DeepScan asks scanners that support it to do a more thorough
	// (and slower) lookup.
	DeepScan bool `json:"deep_scan,omitempty"`

	// Allowlist restricts execution to the named scanners.
	// Empty means all capable scanners run.
	Allowlist []string `json:"scanner_allowlist,omitempty"`
}

// Query is one submitted identifying value plus its processing lifecycle.
// The orchestrator owns the query; only status, failure reason, and
// timestamps mutate after creation.
type Query struct {
	// ID is the unique query identifier (UUID v4).
	ID string `json:"id"`

	// Type is the kind of identifier in Value.
	Type QueryType `json:"type"`

	// Value is the raw identifying value as submitted.
	Value string `json:"value"`

	// Status is the current lifecycle state.
	Status QueryStatus `json:"status"`

	// FailureReason is set when Status is StatusFailed.
	FailureReason string `json:"failure_reason,omitempty"`

	// Options are the caller-supplied processing options.
	Options Options `json:"options"`

	// CreatedAt is when the query was accepted.
	CreatedAt time.Time `json:"created_at"`

	// CompletedAt is when the query reached a terminal state.
	CompletedAt time.Time `json:"completed_at,omitzero"`
}

// NewQuery creates a Query in the Submitted state with a fresh UUID.
// Returns an error if the value is empty or the type is unknown.
func NewQuery(qt QueryType, value string, opts Options) (*Query, error) {
	if strings.TrimSpace(value) == "" {
		return nil, ErrEmptyQueryValue
	}
	if !qt.Valid() {
		return nil, ErrUnknownQueryType
	}
	return &Query{
		ID:        uuid.NewString(),
		Type:      qt,
		Value:     value,
		Status:    StatusSubmitted,
		Options:   opts,
		CreatedAt: time.Now(),
	}, nil
}
