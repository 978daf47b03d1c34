package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/idrecon/idrecon/internal/config"
	"github.com/idrecon/idrecon/internal/engine"
	"github.com/idrecon/idrecon/internal/merge"
	"github.com/idrecon/idrecon/internal/model"
	"github.com/idrecon/idrecon/internal/normalize"
	"github.com/idrecon/idrecon/internal/registry"
	"github.com/idrecon/idrecon/internal/score"
)

// Orchestrator errors.
var (
	// ErrUnknownQuery is returned when the query id is not known.
	ErrUnknownQuery = errors.New("unknown query id")
	// ErrQueryTerminal is returned when cancelling a query that already
	// reached a terminal state.
	ErrQueryTerminal = errors.New("query already in a terminal state")
)

// run is the live state of one query while it executes.
type run struct {
	status atomic.Int32

	mu       sync.Mutex
	query    *model.Query
	outcomes []model.ScannerOutcome
	final    *model.EntitySet

	merger *merge.Merger
	cancel context.CancelFunc
	done   chan struct{}
}

// transition moves the run's status forward via CAS. Returns false when
// the status graph forbids the move (including any move out of a terminal
// state), which is how racing completion and cancellation settle who wins.
func (r *run) transition(next model.QueryStatus) bool {
	for {
		cur := model.QueryStatus(r.status.Load())
		if !cur.CanTransition(next) {
			return false
		}
		if r.status.CompareAndSwap(int32(cur), int32(next)) {
			r.mu.Lock()
			r.query.Status = next
			if next.Terminal() {
				r.query.CompletedAt = time.Now()
			}
			r.mu.Unlock()
			return true
		}
	}
}

// Orchestrator ties the registry, engine, merge, and scoring layers
// together and owns every query's lifecycle.
type Orchestrator struct {
	cfg        *config.Config
	registry   *registry.Registry
	engine     *engine.Engine
	normalizer *normalize.Normalizer
	store      Store
	logger     *slog.Logger

	mu   sync.Mutex
	runs map[string]*run
}

// New creates an Orchestrator. A nil store disables persistence; a nil
// logger uses slog.Default().
func New(cfg *config.Config, reg *registry.Registry, eng *engine.Engine, store Store, logger *slog.Logger) *Orchestrator {
	if store == nil {
		store = NopStore{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:        cfg,
		registry:   reg,
		engine:     eng,
		normalizer: normalize.New(cfg.CountryPrefix),
		store:      store,
		logger:     logger.With("component", "orchestrator"),
		runs:       make(map[string]*run),
	}
}

// Submit accepts a query and returns its id immediately; processing runs
// asynchronously under the query deadline.
func (o *Orchestrator) Submit(ctx context.Context, qt model.QueryType, value string, opts model.Options) (string, error) {
	q, err := model.NewQuery(qt, value, opts)
	if err != nil {
		return "", err
	}

	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = o.cfg.QueryDeadline
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deadline)
	r := &run{
		query:  q,
		merger: merge.New(o.cfg.MergeThreshold),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	r.status.Store(int32(model.StatusSubmitted))

	o.mu.Lock()
	o.runs[q.ID] = r
	o.mu.Unlock()

	o.persistState(r)
	o.logger.Info("query submitted", "query_id", q.ID, "type", q.Type, "deadline", deadline)

	go o.execute(runCtx, r)

	return q.ID, nil
}

// Cancel stops a query: its status becomes Failed with reason "cancelled",
// the engine stops dispatching, and late results are dropped.
func (o *Orchestrator) Cancel(id string) error {
	r, ok := o.lookup(id)
	if !ok {
		return ErrUnknownQuery
	}

	if !r.transition(model.StatusFailed) {
		return ErrQueryTerminal
	}
	r.mu.Lock()
	r.query.FailureReason = model.ReasonCancelled
	r.mu.Unlock()
	r.cancel()

	o.persistState(r)
	o.logger.Info("query cancelled", "query_id", id)
	return nil
}

// GetResult returns the current view of a query: terminal results carry
// the scored entity set, in-flight queries carry the latest merge snapshot.
func (o *Orchestrator) GetResult(id string) (*model.Result, error) {
	r, ok := o.lookup(id)
	if !ok {
		return nil, ErrUnknownQuery
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.final
	if set == nil {
		set = r.merger.Snapshot()
	}

	return &model.Result{
		QueryID:       r.query.ID,
		Type:          r.query.Type,
		Value:         r.query.Value,
		Status:        r.query.Status,
		FailureReason: r.query.FailureReason,
		Entities:      set.Entities,
		Excluded:      set.Excluded,
		Scanners:      slices.Clone(r.outcomes),
		CreatedAt:     r.query.CreatedAt,
		CompletedAt:   r.query.CompletedAt,
	}, nil
}

// Wait blocks until the query reaches a terminal state or ctx expires,
// then returns the result.
func (o *Orchestrator) Wait(ctx context.Context, id string) (*model.Result, error) {
	r, ok := o.lookup(id)
	if !ok {
		return nil, ErrUnknownQuery
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.done:
		return o.GetResult(id)
	}
}

// execute drives one query to a terminal state. It runs on its own
// goroutine; ctx carries the query deadline.
func (o *Orchestrator) execute(ctx context.Context, r *run) {
	defer close(r.done)
	defer r.cancel()

	if !r.transition(model.StatusDispatching) {
		// Cancelled before dispatch.
		return
	}
	o.persistState(r)

	r.mu.Lock()
	q := r.query
	r.mu.Unlock()

	candidates := o.registry.CandidatesFor(q.Type, q.Options)
	if len(candidates) == 0 {
		o.fail(r, model.ReasonNoCandidates)
		return
	}
	o.logger.Debug("candidates resolved", "query_id", q.ID, "count", len(candidates))

	// Running means the engine owns the query's tasks from here on; the
	// engine begins dispatching the moment it receives them.
	if !r.transition(model.StatusRunning) {
		return
	}
	o.persistState(r)

	tasks := o.engine.Run(ctx, q, candidates, func(task *model.ScannerTask) {
		if task.Status == model.TaskSucceeded {
			// CollectedAt pins to the task's own settle time so re-merging
			// the same task is deterministic.
			rec := o.normalizer.Normalize(q.Type, task.Scanner, task.Payload, task.FinishedAt)
			r.merger.Add(rec)
		}
		r.mu.Lock()
		r.outcomes = append(r.outcomes, model.OutcomeFromTask(task))
		r.mu.Unlock()
	})

	if err := o.store.SaveTasks(context.WithoutCancel(ctx), q.ID, tasks); err != nil {
		o.logger.Error("failed to persist tasks", "query_id", q.ID, "error", err)
	}

	cancelled := model.QueryStatus(r.status.Load()) == model.StatusFailed
	if cancelled {
		// Cancel already owns the terminal state; drop everything merged.
		return
	}

	succeeded := 0
	abandoned := 0
	for _, task := range tasks {
		switch task.Status {
		case model.TaskSucceeded:
			succeeded++
		case model.TaskAbandoned:
			abandoned++
		}
	}

	if succeeded == 0 {
		o.fail(r, model.ReasonNoSourcesSucceeded)
		return
	}

	set := o.finalize(r)

	var final model.QueryStatus
	if abandoned > 0 {
		// Deadline elapsed with tasks outstanding: report what succeeded.
		final = model.StatusPartialComplete
	} else {
		if !r.transition(model.StatusFinalizing) {
			return
		}
		final = model.StatusComplete
	}

	if !r.transition(final) {
		return
	}

	if err := o.store.SaveEntities(context.WithoutCancel(ctx), q.ID, set); err != nil {
		o.logger.Error("failed to persist entities", "query_id", q.ID, "error", err)
	}
	o.persistState(r)
	o.logger.Info("query finished",
		"query_id", q.ID, "status", final.String(),
		"entities", len(set.Entities), "succeeded", succeeded, "abandoned", abandoned)
}

// finalize scores the merged entities and freezes the result set, best
// confidence first.
func (o *Orchestrator) finalize(r *run) *model.EntitySet {
	set := r.merger.Snapshot()
	reliability := o.registry.Reliabilities()
	now := time.Now()

	for _, ent := range set.Entities {
		ent.Confidence = score.Score(ent, reliability, now, o.cfg.StalenessWindow, o.cfg.ConsistencyPenalty)
	}
	slices.SortStableFunc(set.Entities, func(a, b *model.Entity) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		default:
			return 0
		}
	})

	r.mu.Lock()
	r.final = set
	r.mu.Unlock()
	return set
}

// fail moves the run to Failed with the given reason.
func (o *Orchestrator) fail(r *run, reason string) {
	if !r.transition(model.StatusFailed) {
		return
	}
	r.mu.Lock()
	r.query.FailureReason = reason
	queryID := r.query.ID
	r.mu.Unlock()

	o.persistState(r)
	o.logger.Warn("query failed", "query_id", queryID, "reason", reason)
}

// persistState saves the query's lifecycle state, logging on error.
func (o *Orchestrator) persistState(r *run) {
	r.mu.Lock()
	q := *r.query
	r.mu.Unlock()

	if err := o.store.SaveQueryState(context.Background(), &q); err != nil {
		o.logger.Error("failed to persist query state", "query_id", q.ID, "error", err)
	}
}

func (o *Orchestrator) lookup(id string) (*run, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.runs[id]
	return r, ok
}
