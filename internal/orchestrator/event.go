package orchestrator

import (
	"time"

	"github.com/deixis/vigil/internal/history"
)

// EventType identifies a lifecycle event emitted during a run.
type EventType string

const (
	// EventScriptStarted is emitted once before a script launches.
	EventScriptStarted EventType = "script_started"
	// EventScriptOutput is emitted for every output line, in order.
	EventScriptOutput EventType = "script_output"
	// EventScriptCompleted is emitted once after the history record is
	// persisted.
	EventScriptCompleted EventType = "script_completed"
	// EventError is a terminal event for any failed run request.
	EventError EventType = "error"
	// EventAllStarted opens a batch run.
	EventAllStarted EventType = "all_started"
	// EventAllCompleted closes a batch run.
	EventAllCompleted EventType = "all_completed"
)

// Event is one lifecycle occurrence. Fields not meaningful for a given
// type are zero. Numeric completion fields are pointers so that a
// legitimate exit code of 0 survives JSON field dropping.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	ScriptID  string         `json:"script_id,omitempty"`
	Name      string         `json:"name,omitempty"`      // script_started
	Line      string         `json:"line,omitempty"`      // script_output
	Status    history.Status `json:"status,omitempty"`    // script_completed
	ExitCode  *int           `json:"exit_code,omitempty"` // script_completed
	Duration  *float64       `json:"duration,omitempty"`  // script_completed, seconds
	Total     *int           `json:"total,omitempty"`     // all_started
	Message   string         `json:"message,omitempty"`   // error
}

// Emitter receives orchestrator events. Delivery must not fail; a
// transport that can lose observers handles that on its own side.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event)

// Emit calls f(ev).
func (f EmitterFunc) Emit(ev Event) { f(ev) }

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
