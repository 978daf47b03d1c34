package engine

import (
	"sync"
	"time"

	"github.com/idrecon/idrecon/internal/model"
)

// Event is one task status transition published to the progress sink.
type Event struct {
	// QueryID is the owning query.
	QueryID string `json:"query_id"`

	// Scanner is the scanner whose task transitioned.
	Scanner string `json:"scanner"`

	// Status is the task status after the transition.
	Status model.TaskStatus `json:"status"`

	// Attempt is the attempt number at the time of the transition.
	Attempt int `json:"attempt"`

	// Timestamp is when the transition happened.
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives progress events. Publish must be safe for concurrent use.
// The engine treats the sink as fire-and-forget: implementations must not
// assume every event arrives.
type Sink interface {
	// Publish delivers one event. Implementations must return promptly;
	// the engine never waits on a sink.
	Publish(ev Event)
}

// NopSink discards all events.
type NopSink struct{}

// Publish implements Sink.
func (NopSink) Publish(Event) {}

// BufferedSink decouples event producers from a possibly slow consumer
// with a fixed-capacity ring: when the buffer is full the oldest event is
// dropped so Publish never blocks.
//
// Design decision: Dropping oldest (rather than newest) keeps the most
// recent state transitions, which is what a progress consumer actually
// wants when it falls behind.
type BufferedSink struct {
	mu  sync.Mutex
	buf []Event
	cap int

	// forward, when set, receives events synchronously under the lock.
	// It is intended for cheap consumers (UI channels); expensive
	// consumers should poll Drain instead.
	forward func(Event)
}

// NewBufferedSink creates a sink holding at most capacity events.
func NewBufferedSink(capacity int, forward func(Event)) *BufferedSink {
	if capacity <= 0 {
		capacity = 1
	}
	return &BufferedSink{
		buf:     make([]Event, 0, capacity),
		cap:     capacity,
		forward: forward,
	}
}

// Publish appends the event, evicting the oldest on overflow.
func (s *BufferedSink) Publish(ev Event) {
	s.mu.Lock()
	if len(s.buf) == s.cap {
		copy(s.buf, s.buf[1:])
		s.buf = s.buf[:len(s.buf)-1]
	}
	s.buf = append(s.buf, ev)
	fwd := s.forward
	s.mu.Unlock()

	if fwd != nil {
		fwd(ev)
	}
}

// Drain returns and clears all buffered events in arrival order.
func (s *BufferedSink) Drain() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Event, len(s.buf))
	copy(out, s.buf)
	s.buf = s.buf[:0]
	return out
}

// Len returns the number of buffered events.
func (s *BufferedSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}
