package pipeline

import "time"

// EventType identifies one entry in the ordered progress event stream.
type EventType string

const (
	EventStageStarted   EventType = "stage_started"
	EventStageCompleted EventType = "stage_completed"
	EventRunCompleted   EventType = "run_completed"
	EventRunFailed      EventType = "run_failed"
	EventRunCancelled   EventType = "run_cancelled"
)

// Event is one progress notification. Events are emitted in pipeline order:
// stage_started and stage_completed alternate per stage, followed by exactly
// one terminal event, after which the stream closes. Observers only ever
// receive value copies; they cannot mutate the run.
type Event struct {
	Type   EventType    `json:"eventType"`
	RunID  string       `json:"runId"`
	Stage  Role         `json:"stage,omitempty"`
	Result *StageResult `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
	At     time.Time    `json:"at"`
}
