// Package history provides the append-only run history log. Records are
// persisted as a single JSON document that is replaced atomically on
// every append; there is no incremental append beyond the whole-file
// rewrite, which is acceptable at this scale.
package history

import (
	"fmt"
	"time"
)

// Status is the terminal outcome of a run.
type Status string

const (
	// StatusPassed means the script exited 0.
	StatusPassed Status = "passed"
	// StatusFailed means the script exited non-zero.
	StatusFailed Status = "failed"
)

// StatusForExitCode maps a process exit code to a run status.
func StatusForExitCode(code int) Status {
	if code == 0 {
		return StatusPassed
	}
	return StatusFailed
}

// Record is the persisted outcome of one completed script run.
// Records are immutable once appended.
type Record struct {
	ScriptID  string    `json:"script_id"`
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"` // run start time
	Duration  float64   `json:"duration"`  // wall-clock seconds
	Status    Status    `json:"status"`
	ExitCode  int       `json:"exit_code"`
	Output    string    `json:"output"` // captured lines, newline-joined
}

// Store persists and retrieves the run history log.
// Append must be safe for concurrent use with LoadAll.
type Store interface {
	// LoadAll returns every record in completion order. A store that
	// has never been written returns an empty log, not an error.
	LoadAll() ([]Record, error)
	// Append adds a record to the end of the log and persists it.
	Append(record Record) error
}

// CorruptError reports a history log that exists but cannot be parsed.
// Callers must surface it rather than treating the log as empty: a
// corrupt log and a never-created one are different conditions.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("history log %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }
