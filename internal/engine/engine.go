package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/idrecon/idrecon/internal/config"
	"github.com/idrecon/idrecon/internal/model"
	"github.com/idrecon/idrecon/internal/registry"
	"github.com/idrecon/idrecon/internal/scanner"
)

// ErrNoAdapter is recorded on tasks whose scanner has a descriptor but no
// adapter instance. This is a wiring mistake, not an upstream failure.
var ErrNoAdapter = errors.New("no adapter registered for scanner")

// Engine runs scanner tasks. One Engine serves all queries in the process:
// its per-scanner limiters and semaphores are shared runtime state, exactly
// like the registry's breakers.
type Engine struct {
	cfg      *config.Config
	registry *registry.Registry
	adapters map[string]scanner.Adapter
	sink     Sink
	logger   *slog.Logger

	// Per-scanner shared state, created lazily on first use.
	mu       sync.Mutex
	limiters map[string]*limiter
	sems     map[string]*semaphore.Weighted
}

// New creates an Engine over the given adapters.
// A nil sink discards events; a nil logger uses slog.Default().
func New(cfg *config.Config, reg *registry.Registry, adapters []scanner.Adapter, sink Sink, logger *slog.Logger) *Engine {
	if sink == nil {
		sink = NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	byName := make(map[string]scanner.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}

	return &Engine{
		cfg:      cfg,
		registry: reg,
		adapters: byName,
		sink:     sink,
		logger:   logger.With("component", "engine"),
		limiters: make(map[string]*limiter),
		sems:     make(map[string]*semaphore.Weighted),
	}
}

// Run executes one task per candidate under the global concurrency cap and
// returns all tasks settled. onSettled, when non-nil, is called once per
// settled task from the task's own goroutine (callers must synchronize);
// the orchestrator uses it for incremental merging.
//
// Run never returns an error: per-task failures are absorbed into the
// tasks themselves, and context expiry surfaces as Abandoned tasks.
func (e *Engine) Run(ctx context.Context, q *model.Query, candidates []model.ScannerDescriptor, onSettled func(*model.ScannerTask)) []*model.ScannerTask {
	tasks := make([]*model.ScannerTask, len(candidates))
	for i, desc := range candidates {
		tasks[i] = model.NewScannerTask(q.ID, desc.Name)
		e.publish(tasks[i])
	}

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.GlobalConcurrency)

	for i, desc := range candidates {
		task := tasks[i]
		g.Go(func() error {
			e.runTask(ctx, q, desc, task)
			if onSettled != nil && task.Status.Settled() {
				onSettled(task)
			}
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // task goroutines never return errors

	return tasks
}

// runTask drives one task to a settled state.
func (e *Engine) runTask(ctx context.Context, q *model.Query, desc model.ScannerDescriptor, task *model.ScannerTask) {
	if ctx.Err() != nil {
		e.settle(task, model.TaskAbandoned, task.ErrorKind, "preempted before start")
		return
	}

	adapter, ok := e.adapters[desc.Name]
	if !ok {
		e.settle(task, model.TaskFailed, model.ErrorKindPermanent, ErrNoAdapter.Error())
		return
	}

	// Breaker admission: rejected tasks never touch the network and do not
	// feed back into the breaker counters.
	if !e.registry.Allow(desc.Name) {
		e.logger.Debug("task suppressed by open breaker", "scanner", desc.Name, "query_id", q.ID)
		e.settle(task, model.TaskSkipped, task.ErrorKind, "circuit breaker open")
		return
	}

	// Once admitted, every exit must either report an outcome or give the
	// admission back, or an abandoned task would hold the half-open probe
	// slot forever.
	abandon := func(message string) {
		e.registry.ReleaseProbe(desc.Name)
		e.settle(task, model.TaskAbandoned, task.ErrorKind, message)
	}

	// Per-scanner concurrency cap, shared across queries.
	sem := e.scannerSem(desc.Name)
	if err := sem.Acquire(ctx, 1); err != nil {
		abandon("preempted waiting for scanner slot")
		return
	}
	defer sem.Release(1)

	task.Status = model.TaskRunning
	task.StartedAt = time.Now()
	e.publish(task)

	target := scanner.Target{
		QueryType: q.Type,
		Value:     q.Value,
		DeepScan:  q.Options.DeepScan,
	}
	lim := e.scannerLimiter(desc.Name, desc.Rate)

	rateRetryUsed := false
	for {
		task.Attempts++

		if err := lim.wait(ctx); err != nil {
			abandon("preempted waiting for rate limit")
			return
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.TaskTimeout)
		res, err := adapter.Execute(attemptCtx, target)
		cancel()

		if ctx.Err() != nil {
			// The query deadline fired or the caller cancelled while the
			// attempt was in flight. Whatever arrived is discarded, never
			// merged.
			abandon("query ended while task in flight")
			return
		}

		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				// Adapter leaked the attempt timeout as an error; fold it
				// into the normal timeout path.
				res = scanner.Failure(model.ErrorKindTimeout, err.Error(), e.cfg.TaskTimeout)
			} else {
				// Contract violation. Not retryable; count it against the
				// breaker so a broken adapter gets suppressed too.
				e.logger.Error("adapter contract violation", "scanner", desc.Name, "error", err)
				e.registry.ReportOutcome(desc.Name, false)
				e.settle(task, model.TaskFailed, model.ErrorKindPermanent, err.Error())
				return
			}
		}
		if res == nil {
			e.registry.ReportOutcome(desc.Name, false)
			e.settle(task, model.TaskFailed, model.ErrorKindPermanent, "adapter returned no result")
			return
		}

		task.Latency = res.Latency

		if res.OK() {
			task.Payload = res.Payload
			e.registry.ReportOutcome(desc.Name, true)
			e.settle(task, model.TaskSucceeded, model.ErrorKindNone, "")
			return
		}

		task.ErrorKind = res.ErrorKind
		task.ErrorMessage = res.Message

		switch {
		case res.ErrorKind == model.ErrorKindRateLimited && !rateRetryUsed:
			// One retry after the provider-indicated (or default) cooldown.
			rateRetryUsed = true
			cooldown := res.RetryAfter
			if cooldown <= 0 {
				cooldown = e.cfg.RateLimitCooldown
			}
			e.logger.Debug("task rate limited, cooling down",
				"scanner", desc.Name, "cooldown", cooldown)
			if !sleep(ctx, cooldown) {
				abandon("preempted during rate-limit cooldown")
				return
			}
			continue

		case res.ErrorKind.Retryable() && task.Attempts < e.cfg.MaxAttempts:
			delay := backoffDelay(e.cfg.BackoffBase, task.Attempts)
			e.logger.Debug("task retrying",
				"scanner", desc.Name, "attempt", task.Attempts, "backoff", delay)
			if !sleep(ctx, delay) {
				abandon("preempted during backoff")
				return
			}
			continue
		}

		// Retries exhausted or failure not retryable.
		e.registry.ReportOutcome(desc.Name, false)
		final := model.TaskFailed
		if res.ErrorKind == model.ErrorKindTimeout {
			final = model.TaskTimeout
		}
		e.settle(task, final, res.ErrorKind, res.Message)
		return
	}
}

// settle moves the task to a terminal state and publishes the transition.
func (e *Engine) settle(task *model.ScannerTask, status model.TaskStatus, kind model.ErrorKind, message string) {
	task.Status = status
	task.FinishedAt = time.Now()
	if kind != model.ErrorKindNone {
		task.ErrorKind = kind
	}
	if message != "" && task.ErrorMessage == "" {
		task.ErrorMessage = message
	}
	e.publish(task)
}

// publish emits one fire-and-forget progress event for the task.
func (e *Engine) publish(task *model.ScannerTask) {
	e.sink.Publish(Event{
		QueryID:   task.QueryID,
		Scanner:   task.Scanner,
		Status:    task.Status,
		Attempt:   task.Attempts,
		Timestamp: time.Now(),
	})
}

// scannerSem returns the shared per-scanner concurrency semaphore.
func (e *Engine) scannerSem(name string) *semaphore.Weighted {
	e.mu.Lock()
	defer e.mu.Unlock()

	sem, ok := e.sems[name]
	if !ok {
		sem = semaphore.NewWeighted(int64(e.cfg.ScannerConcurrency))
		e.sems[name] = sem
	}
	return sem
}

// scannerLimiter returns the shared per-scanner token bucket, or nil when
// the scanner declares no rate limit.
func (e *Engine) scannerLimiter(name string, policy model.RatePolicy) *limiter {
	e.mu.Lock()
	defer e.mu.Unlock()

	lim, ok := e.limiters[name]
	if !ok {
		lim = newLimiter(policy)
		e.limiters[name] = lim
	}
	return lim
}
