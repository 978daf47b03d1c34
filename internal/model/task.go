package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of one scanner task.
type TaskStatus int32

const (
	// TaskPending means the task has been created but not started.
	TaskPending TaskStatus = iota
	// TaskRunning means the adapter call is in flight.
	TaskRunning
	// TaskSucceeded means the adapter returned a usable payload.
	TaskSucceeded
	// TaskFailed means the adapter failed after exhausting retries.
	TaskFailed
	// TaskTimeout means the per-task timeout fired.
	TaskTimeout
	// TaskSkipped means the task was suppressed before any network call,
	// typically because the scanner's circuit breaker was open. Skipped is
	// deliberately distinct from Failed: it records infrastructure-level
	// suppression rather than a genuine upstream failure.
	TaskSkipped
	// TaskAbandoned means the query deadline elapsed while the task was
	// still outstanding. Abandoned results are excluded from aggregation.
	TaskAbandoned
)

// String returns a human-readable representation of the task status.
func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskSucceeded:
		return "succeeded"
	case TaskFailed:
		return "failed"
	case TaskTimeout:
		return "timeout"
	case TaskSkipped:
		return "skipped"
	case TaskAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the status as its string form.
func (s TaskStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes the status from its string form.
func (s *TaskStatus) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	for _, status := range []TaskStatus{
		TaskPending, TaskRunning, TaskSucceeded, TaskFailed,
		TaskTimeout, TaskSkipped, TaskAbandoned,
	} {
		if status.String() == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown task status %q", name)
}

// Settled reports whether the task reached a state that will not change.
func (s TaskStatus) Settled() bool {
	return s != TaskPending && s != TaskRunning
}

// ErrorKind classifies an expected scanner failure. Adapters report these
// as values, never as Go errors; Go errors are reserved for contract
// violations.
type ErrorKind string

const (
	// ErrorKindNone means no failure occurred.
	ErrorKindNone ErrorKind = ""
	// ErrorKindTimeout means the upstream did not answer in time. Retryable.
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindRateLimited means the upstream throttled the request.
	// Retried once after a cooldown.
	ErrorKindRateLimited ErrorKind = "rate_limited"
	// ErrorKindTransient means a temporary upstream failure. Retryable.
	ErrorKindTransient ErrorKind = "transient_error"
	// ErrorKindPermanent means the request can never succeed for this
	// input (e.g. the query value is malformed for this scanner). Never
	// retried.
	ErrorKindPermanent ErrorKind = "permanent_error"
)

// Retryable reports whether a failure of this kind may be retried with
// exponential backoff. Rate limiting is handled separately (single retry
// after cooldown) and permanent failures are never retried.
func (k ErrorKind) Retryable() bool {
	return k == ErrorKindTimeout || k == ErrorKindTransient
}

// ScannerTask is one attempt (including retries) to run a scanner for a
// query. Exactly one scanner per task; one query owns many tasks.
type ScannerTask struct {
	// ID is the unique task identifier (UUID v4).
	ID string `json:"id"`

	// QueryID is the owning query.
	QueryID string `json:"query_id"`

	// Scanner is the name of the scanner this task runs.
	Scanner string `json:"scanner"`

	// Status is the current task state.
	Status TaskStatus `json:"status"`

	// Attempts counts adapter invocations, including retries.
	Attempts int `json:"attempts"`

	// Payload is the raw adapter payload on success.
	Payload map[string]any `json:"payload,omitempty"`

	// ErrorKind classifies the final failure, if any.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`

	// ErrorMessage carries the upstream failure detail, if any.
	ErrorMessage string `json:"error_message,omitempty"`

	// StartedAt is when the first attempt began.
	StartedAt time.Time `json:"started_at,omitzero"`

	// FinishedAt is when the task settled.
	FinishedAt time.Time `json:"finished_at,omitzero"`

	// Latency is the duration of the successful attempt, as reported by
	// the adapter.
	Latency time.Duration `json:"latency"`
}

// NewScannerTask creates a pending task binding one scanner to one query.
func NewScannerTask(queryID, scanner string) *ScannerTask {
	return &ScannerTask{
		ID:      uuid.NewString(),
		QueryID: queryID,
		Scanner: scanner,
		Status:  TaskPending,
	}
}
