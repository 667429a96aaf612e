package buildhost

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/openfroyo/resgen/pkg/telemetry"
	"go.opentelemetry.io/otel/trace"
)

// TaskStatus is the execution state of a task within a run.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusSucceeded TaskStatus = "succeeded"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusSkipped   TaskStatus = "skipped"
	TaskStatusCancelled TaskStatus = "cancelled"
)

// IsTerminal returns true if the status is final.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusSucceeded || s == TaskStatusFailed ||
		s == TaskStatusSkipped || s == TaskStatusCancelled
}

// TaskResult is the outcome of one task in a run.
type TaskResult struct {
	Task      string        `json:"task"`
	Status    TaskStatus    `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// RunSummary counts task outcomes of a run.
type RunSummary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Cancelled int `json:"cancelled"`
}

// Run is one execution of a task graph.
type Run struct {
	ID          string                 `json:"id"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt time.Time              `json:"completed_at"`
	Duration    time.Duration          `json:"duration"`
	Summary     RunSummary             `json:"summary"`
	Results     map[string]*TaskResult `json:"results"`
}

// Succeeded reports whether every task of the run succeeded.
func (r *Run) Succeeded() bool {
	return r.Summary.Succeeded == r.Summary.Total
}

// RunOptions tunes a single run.
type RunOptions struct {
	// MaxParallel caps concurrent tasks for this run; zero uses the executor default.
	MaxParallel int

	// FailFast stops scheduling further levels after the first failure.
	FailFast bool
}

// Executor runs task graphs level by level. Tasks on the same level run
// concurrently on a bounded worker pool; a task whose dependency did not
// succeed is skipped.
type Executor struct {
	maxParallel int
	logger      *telemetry.Logger
	metrics     *telemetry.Metrics
	tracer      *telemetry.Tracer
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMaxParallel sets the default worker count.
func WithMaxParallel(n int) ExecutorOption {
	return func(e *Executor) {
		if n > 0 {
			e.maxParallel = n
		}
	}
}

// WithTelemetry attaches logging, tracing and metrics to the executor.
func WithTelemetry(tel *telemetry.Telemetry) ExecutorOption {
	return func(e *Executor) {
		if tel == nil {
			return
		}
		e.logger = tel.Logger.NewComponentLogger("executor")
		e.metrics = tel.Metrics
		e.tracer = tel.Tracer
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		maxParallel: 4,
		logger:      telemetry.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// runState tracks task statuses of one run.
type runState struct {
	mu      sync.Mutex
	results map[string]*TaskResult
}

func (s *runState) status(name string) TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[name].Status
}

func (s *runState) set(name string, mutate func(r *TaskResult)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(s.results[name])
}

// Run executes every task of the graph. It returns the run record and, if any
// task failed, an error joining the task failures.
func (e *Executor) Run(ctx context.Context, graph *TaskGraph, opts RunOptions) (*Run, error) {
	if graph == nil {
		return nil, fmt.Errorf("task graph is nil")
	}

	run := &Run{
		ID:        uuid.New().String(),
		StartedAt: time.Now(),
		Results:   make(map[string]*TaskResult, graph.Len()),
	}
	state := &runState{results: run.Results}
	for _, level := range graph.levels {
		for _, name := range level {
			run.Results[name] = &TaskResult{Task: name, Status: TaskStatusPending}
		}
	}

	logger := e.logger.WithRunID(run.ID)
	logger.Debugf("Executing %d tasks in %d levels", graph.Len(), graph.Depth())

	var failures []error
	for level, names := range graph.levels {
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}

		failures = append(failures, e.runLevel(ctx, run.ID, graph, state, names, opts)...)

		if opts.FailFast && len(failures) > 0 {
			logger.Warnf("Stopping after level %d: %d task(s) failed", level, len(failures))
			break
		}
	}

	for _, result := range run.Results {
		if result.Status == TaskStatusPending {
			result.Status = TaskStatusCancelled
		}
	}

	run.CompletedAt = time.Now()
	run.Duration = run.CompletedAt.Sub(run.StartedAt)
	run.Summary = summarize(run.Results)

	logger.Infof("Run finished: %d succeeded, %d failed, %d skipped, %d cancelled",
		run.Summary.Succeeded, run.Summary.Failed, run.Summary.Skipped, run.Summary.Cancelled)

	return run, errors.Join(failures...)
}

// runLevel executes the named tasks concurrently and returns their failures.
func (e *Executor) runLevel(
	ctx context.Context,
	runID string,
	graph *TaskGraph,
	state *runState,
	names []string,
	opts RunOptions,
) []error {
	workerCount := e.maxParallel
	if opts.MaxParallel > 0 && opts.MaxParallel < workerCount {
		workerCount = opts.MaxParallel
	}
	workerCount = min(workerCount, len(names))

	queue := make(chan *GraphNode, len(names))
	for _, name := range names {
		queue <- graph.nodes[name]
	}
	close(queue)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error
	)

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for node := range queue {
				if ctx.Err() != nil {
					return
				}
				if !dependenciesSucceeded(state, node) {
					state.set(node.Task.Name, func(r *TaskResult) { r.Status = TaskStatusSkipped })
					e.logger.WithTask(node.Task.Name).Warn("Skipping task: a dependency did not succeed")
					continue
				}
				if err := e.runTask(ctx, runID, state, node.Task); err != nil {
					mu.Lock()
					failures = append(failures, fmt.Errorf("task %s: %w", node.Task.Name, err))
					mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()
	return failures
}

// runTask executes a single task and records its result.
func (e *Executor) runTask(ctx context.Context, runID string, state *runState, task *Task) (err error) {
	started := time.Now()
	state.set(task.Name, func(r *TaskResult) {
		r.Status = TaskStatusRunning
		r.StartedAt = started
	})

	if e.tracer != nil {
		var span trace.Span
		ctx, span = e.tracer.StartTaskSpan(ctx, runID, task.Name, task.Group)
		defer func() {
			if err != nil {
				telemetry.RecordError(span, err)
			} else {
				telemetry.RecordSuccess(span)
			}
			span.End()
		}()
	}

	logger := e.logger.WithRunID(runID).WithTask(task.Name)
	ctx = logger.WithContext(ctx)

	e.metrics.TaskStarted()
	logger.Debug("Task started")

	err = task.Action(ctx)

	duration := time.Since(started)
	status := TaskStatusSucceeded
	if err != nil {
		status = TaskStatusFailed
		logger.WithError(err).Error("Task failed")
	} else {
		logger.Debugf("Task succeeded in %s", duration)
	}

	state.set(task.Name, func(r *TaskResult) {
		r.Status = status
		r.Duration = duration
		r.Err = err
	})
	e.metrics.RecordTaskExecution(task.Group, string(status), duration)

	return err
}

func dependenciesSucceeded(state *runState, node *GraphNode) bool {
	for _, dep := range node.Dependencies {
		if state.status(dep) != TaskStatusSucceeded {
			return false
		}
	}
	return true
}

func summarize(results map[string]*TaskResult) RunSummary {
	summary := RunSummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case TaskStatusSucceeded:
			summary.Succeeded++
		case TaskStatusFailed:
			summary.Failed++
		case TaskStatusSkipped:
			summary.Skipped++
		case TaskStatusCancelled:
			summary.Cancelled++
		}
	}
	return summary
}
