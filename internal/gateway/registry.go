package gateway

import (
	"sync"

	"github.com/Justice-Bot-Canada/justicebot-sub001/internal/pipeline"
)

// subscriberBuffer sizes each progress subscriber channel. A slow websocket
// client drops events rather than stalling the fan-out.
const subscriberBuffer = 32

// Run couples one orchestrator with its progress subscribers.
type Run struct {
	Orchestrator *pipeline.Orchestrator
	CaseType     string

	mu          sync.Mutex
	subscribers map[int]chan pipeline.Event
	nextID      int
	finished    bool
}

func newRun(orch *pipeline.Orchestrator, caseType string) *Run {
	return &Run{
		Orchestrator: orch,
		CaseType:     caseType,
		subscribers:  map[int]chan pipeline.Event{},
	}
}

// Subscribe registers a progress listener. The returned channel is closed
// when the run terminates; if the run already terminated it is returned
// closed so callers fall through to a snapshot read.
func (r *Run) Subscribe() (<-chan pipeline.Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan pipeline.Event, subscriberBuffer)
	if r.finished {
		close(ch)
		return ch, func() {}
	}

	id := r.nextID
	r.nextID++
	r.subscribers[id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.subscribers[id]; ok {
			delete(r.subscribers, id)
			close(ch)
		}
	}
}

// publish fans one event out to all subscribers without blocking.
func (r *Run) publish(event pipeline.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// finish closes all subscriber channels after the terminal event.
func (r *Run) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = true
	for id, ch := range r.subscribers {
		delete(r.subscribers, id)
		close(ch)
	}
}

// Registry tracks analysis runs by run ID for status reads, cancellation,
// and progress streaming.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewRegistry creates an empty run registry.
func NewRegistry() *Registry {
	return &Registry{runs: map[string]*Run{}}
}

// Add registers a run under its orchestrator's run ID.
func (reg *Registry) Add(orch *pipeline.Orchestrator, caseType string) *Run {
	run := newRun(orch, caseType)
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.runs[orch.RunID().String()] = run
	return run
}

// Get looks a run up by ID.
func (reg *Registry) Get(runID string) (*Run, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	run, ok := reg.runs[runID]
	return run, ok
}

// Len reports the number of tracked runs.
func (reg *Registry) Len() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.runs)
}
