package pipeline

import (
	"context"
	"strings"
	"time"
)

// Role identifies one of the four ordered pipeline stages.
type Role string

const (
	RoleResearcher Role = "researcher"
	RoleAnalyst    Role = "analyst"
	RoleStrategist Role = "strategist"
	RoleDrafter    Role = "drafter"
)

// StageOrder is the fixed execution order of the pipeline. Each stage
// consumes the outputs of every stage before it, so the order is not
// configurable.
var StageOrder = [4]Role{RoleResearcher, RoleAnalyst, RoleStrategist, RoleDrafter}

// Status represents the lifecycle state of a run.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further state transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed || s == StatusCancelled
}

// EvidenceSummary is a read-only summary of one piece of uploaded evidence,
// as supplied by the case store collaborator.
type EvidenceSummary struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	OCRPreview  string   `json:"ocrPreview,omitempty"`
}

// CaseContext is the immutable input bundle for one pipeline run.
type CaseContext struct {
	CaseID        string            `json:"caseId,omitempty"`
	Description   string            `json:"description"`
	CaseType      string            `json:"caseType"`
	Jurisdiction  string            `json:"jurisdiction"`
	Evidence      []EvidenceSummary `json:"evidence,omitempty"`
	PriorAnalysis string            `json:"priorAnalysis,omitempty"`
}

// Validate checks that the context carries everything the pipeline needs.
// A run must fail fast on an incomplete context before any stage executes.
func (cc CaseContext) Validate() error {
	var missing []string
	if strings.TrimSpace(cc.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(cc.CaseType) == "" {
		missing = append(missing, "caseType")
	}
	if strings.TrimSpace(cc.Jurisdiction) == "" {
		missing = append(missing, "jurisdiction")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// StagePayload is implemented by the structured output of each stage.
type StagePayload interface {
	StageRole() Role
}

// StageResult records one completed stage together with its timing metadata.
// Results are owned by the orchestrator until the run terminates, after which
// they are read-only history.
type StageResult struct {
	Role        Role         `json:"agent"`
	Payload     StagePayload `json:"output"`
	StartedAt   time.Time    `json:"startedAt"`
	CompletedAt time.Time    `json:"completedAt"`
	DurationMs  int64        `json:"duration"`
	Confidence  string       `json:"confidence,omitempty"`
}

// confidenceReporter is implemented by payloads that carry a confidence level.
type confidenceReporter interface {
	ConfidenceLevel() string
}

// Executor is the uniform stage capability. Execute receives the case context
// and the immutable list of all previously completed stage results, and either
// returns the stage's full structured payload or fails. Partial output is a
// failure, never a degraded success.
type Executor interface {
	Role() Role
	Execute(ctx context.Context, cc CaseContext, prior []StageResult) (StagePayload, error)
}
