package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultStageTimeout bounds each stage executor call. Exceeding it is
// treated identically to a stage failure.
const DefaultStageTimeout = 90 * time.Second

// eventBufferSize comfortably exceeds the maximum number of events one run
// can emit (two per stage plus one terminal event), so emitting never blocks
// even when nobody is listening.
const eventBufferSize = 16

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStageTimeout overrides the per-stage executor timeout.
func WithStageTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.stageTimeout = d }
}

// Orchestrator executes the four stages strictly in order for exactly one
// run. It exclusively owns all run state; external readers observe it only
// through Snapshot and the event stream. An instance is scoped to one run
// and cannot be reused.
type Orchestrator struct {
	runID        uuid.UUID
	executors    []Executor
	stageTimeout time.Duration
	tracer       trace.Tracer

	mu            sync.Mutex
	status        Status
	currentStage  *Role
	results       []StageResult
	runErr        error
	finalAnalysis *FinalAnalysis
	startedAt     time.Time
	totalDuration time.Duration
	cancelRun     context.CancelFunc
	cancelled     bool

	events      chan Event
	closeEvents sync.Once
}

// NewOrchestrator creates an orchestrator for one run. The executors must be
// supplied in stage order: researcher, analyst, strategist, drafter.
func NewOrchestrator(executors []Executor, opts ...Option) (*Orchestrator, error) {
	if len(executors) != len(StageOrder) {
		return nil, fmt.Errorf("expected %d stage executors, got %d", len(StageOrder), len(executors))
	}
	for i, exec := range executors {
		if exec.Role() != StageOrder[i] {
			return nil, fmt.Errorf("executor %d has role %s, want %s", i, exec.Role(), StageOrder[i])
		}
	}

	o := &Orchestrator{
		runID:        uuid.New(),
		executors:    executors,
		stageTimeout: DefaultStageTimeout,
		tracer:       otel.Tracer("analysis-pipeline"),
		status:       StatusIdle,
		events:       make(chan Event, eventBufferSize),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// RunID returns the unique identifier of this orchestrator's run.
func (o *Orchestrator) RunID() uuid.UUID {
	return o.runID
}

// Events returns the ordered progress event stream for this run. The channel
// is closed after the terminal event.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// Result is the terminal output of a successful run.
type Result struct {
	RunID           string         `json:"runId"`
	Agents          []StageResult  `json:"agents"`
	FinalAnalysis   *FinalAnalysis `json:"finalAnalysis"`
	TotalDurationMs int64          `json:"totalDurationMs"`
}

// Run validates the case context and executes the four stages in order,
// accumulating each StageResult before the next stage begins. It fails fast
// on the first stage error, assembles the final report only after all four
// stages completed, and never acts on a stage result that arrives after the
// run was cancelled.
func (o *Orchestrator) Run(ctx context.Context, cc CaseContext) (*Result, error) {
	if err := cc.Validate(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	switch {
	case o.status == StatusRunning:
		o.mu.Unlock()
		return nil, ErrRunActive
	case o.status.Terminal():
		o.mu.Unlock()
		return nil, ErrRunConsumed
	}
	runCtx, cancel := context.WithCancel(ctx)
	o.cancelRun = cancel
	o.status = StatusRunning
	o.startedAt = time.Now()
	o.mu.Unlock()
	defer cancel()

	runCtx, span := o.tracer.Start(runCtx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", o.runID.String()),
		attribute.String("case_type", cc.CaseType),
		attribute.String("jurisdiction", cc.Jurisdiction),
	)

	for _, exec := range o.executors {
		role := exec.Role()
		o.beginStage(role)

		stageCtx, stageCancel := context.WithTimeout(runCtx, o.stageTimeout)
		startedAt := time.Now()
		payload, err := exec.Execute(stageCtx, cc, o.resultsSnapshot())
		stageCancel()
		completedAt := time.Now()

		// Cancellation wins over whatever the executor returned: a late
		// stage result must never continue the pipeline.
		if o.wasCancelled() || runCtx.Err() != nil {
			span.SetAttributes(attribute.Bool("cancelled", true))
			return nil, o.finalizeCancelled()
		}

		if err != nil {
			stageErr := &StageError{Role: role, Err: err}
			span.RecordError(stageErr)
			return nil, o.finalizeFailed(stageErr)
		}
		if payload == nil || payload.StageRole() != role {
			stageErr := &StageError{Role: role, Err: fmt.Errorf("executor returned payload %T for role %s", payload, role)}
			span.RecordError(stageErr)
			return nil, o.finalizeFailed(stageErr)
		}

		result := StageResult{
			Role:        role,
			Payload:     payload,
			StartedAt:   startedAt,
			CompletedAt: completedAt,
			DurationMs:  completedAt.Sub(startedAt).Milliseconds(),
		}
		if cr, ok := payload.(confidenceReporter); ok {
			result.Confidence = cr.ConfidenceLevel()
		}
		o.completeStage(result)
	}

	analysis, err := Assemble(cc, o.resultsSnapshot())
	if o.wasCancelled() {
		return nil, o.finalizeCancelled()
	}
	if err != nil {
		span.RecordError(err)
		return nil, o.finalizeFailed(err)
	}

	return o.finalizeComplete(analysis), nil
}

// Cancel requests cancellation of the run. It is idempotent and a no-op once
// the run reached a terminal state. A run cancelled before it started goes
// straight to the cancelled terminal state.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	if o.status.Terminal() {
		o.mu.Unlock()
		return
	}
	o.cancelled = true
	cancel := o.cancelRun
	if o.status == StatusIdle {
		o.status = StatusCancelled
		o.emitLocked(Event{Type: EventRunCancelled})
		o.closeEventsLocked()
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// RunSnapshot is an immutable point-in-time view of a run for external
// readers such as progress displays.
type RunSnapshot struct {
	RunID           string         `json:"runId"`
	Status          Status         `json:"status"`
	CurrentStage    *Role          `json:"currentStage,omitempty"`
	Agents          []StageResult  `json:"agents"`
	FinalAnalysis   *FinalAnalysis `json:"finalAnalysis,omitempty"`
	Error           string         `json:"error,omitempty"`
	TotalDurationMs int64          `json:"totalDurationMs,omitempty"`
}

// Snapshot returns a copy of the current run state. The returned value is
// detached from the run; mutating it has no effect on the pipeline.
func (o *Orchestrator) Snapshot() RunSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := RunSnapshot{
		RunID:           o.runID.String(),
		Status:          o.status,
		Agents:          append([]StageResult(nil), o.results...),
		FinalAnalysis:   o.finalAnalysis,
		TotalDurationMs: o.totalDuration.Milliseconds(),
	}
	if o.currentStage != nil {
		stage := *o.currentStage
		snap.CurrentStage = &stage
	}
	if o.runErr != nil {
		snap.Error = o.runErr.Error()
	}
	return snap
}

func (o *Orchestrator) beginStage(role Role) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.currentStage = &role
	o.emitLocked(Event{Type: EventStageStarted, Stage: role})
}

func (o *Orchestrator) completeStage(result StageResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
	o.emitLocked(Event{Type: EventStageCompleted, Stage: result.Role, Result: &result})
}

func (o *Orchestrator) resultsSnapshot() []StageResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]StageResult(nil), o.results...)
}

func (o *Orchestrator) wasCancelled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled
}

func (o *Orchestrator) finalizeCancelled() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = StatusCancelled
	o.cancelled = true
	o.currentStage = nil
	o.totalDuration = time.Since(o.startedAt)
	o.emitLocked(Event{Type: EventRunCancelled})
	o.closeEventsLocked()
	return ErrRunCancelled
}

func (o *Orchestrator) finalizeFailed(err error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = StatusFailed
	o.runErr = err
	o.currentStage = nil
	o.totalDuration = time.Since(o.startedAt)
	event := Event{Type: EventRunFailed, Error: err.Error()}
	if stageErr, ok := err.(*StageError); ok {
		event.Stage = stageErr.Role
	}
	o.emitLocked(event)
	o.closeEventsLocked()
	return err
}

func (o *Orchestrator) finalizeComplete(analysis *FinalAnalysis) *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status = StatusComplete
	o.finalAnalysis = analysis
	o.currentStage = nil
	o.totalDuration = time.Since(o.startedAt)
	o.emitLocked(Event{Type: EventRunCompleted})
	o.closeEventsLocked()

	return &Result{
		RunID:           o.runID.String(),
		Agents:          append([]StageResult(nil), o.results...),
		FinalAnalysis:   analysis,
		TotalDurationMs: o.totalDuration.Milliseconds(),
	}
}

// emitLocked sends an event on the buffered stream. The buffer is sized so
// this never blocks; if it somehow would, the event is dropped rather than
// stalling the pipeline.
func (o *Orchestrator) emitLocked(event Event) {
	event.RunID = o.runID.String()
	event.At = time.Now()
	select {
	case o.events <- event:
	default:
	}
}

func (o *Orchestrator) closeEventsLocked() {
	o.closeEvents.Do(func() {
		close(o.events)
	})
}
