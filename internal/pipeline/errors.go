package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRunActive is returned when Run is called while another run is in
	// flight on the same orchestrator. Concurrent starts are rejected, never
	// implicitly cancelled.
	ErrRunActive = errors.New("analysis run already active")

	// ErrRunConsumed is returned when Run is called on an orchestrator whose
	// run already reached a terminal state. An orchestrator is scoped to
	// exactly one run; callers start a new run with a new instance.
	ErrRunConsumed = errors.New("orchestrator already consumed by a previous run")

	// ErrRunCancelled is returned from Run when the caller cancelled the run
	// before it completed. Cancellation is a distinct terminal state, not a
	// failure.
	ErrRunCancelled = errors.New("analysis run cancelled")
)

// ValidationError reports an incomplete case context.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid case context: missing %s", strings.Join(e.Missing, ", "))
}

// StageError wraps a stage executor failure with the role of the failing
// stage, so callers can surface which stage to retry.
type StageError struct {
	Role Role
	Err  error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Role, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// AssemblyError reports a defect detected while merging stage payloads into
// the final report. It fails the run: a silently wrong report is worse than a
// visible failure.
type AssemblyError struct {
	Field string
	Err   error
}

func (e *AssemblyError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("report assembly failed on %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("report assembly failed: %v", e.Err)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}
