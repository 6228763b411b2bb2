// Package orchestrator coordinates single and batch verification runs:
// it validates requests against the catalog, drives the process runner,
// relays output as events, and persists one history record per
// completed run.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/deixis/vigil/internal/catalog"
	"github.com/deixis/vigil/internal/history"
	"github.com/deixis/vigil/internal/runner"
)

// ScriptRunner launches one script and streams its output.
// Implemented by runner.Runner.
type ScriptRunner interface {
	Resolve(relPath string) (string, error)
	Run(ctx context.Context, relPath string, args []string, onLine func(string)) (*runner.Result, error)
}

// UnknownScriptError reports a run request for an ID that is not in the
// catalog. It is rejected before any side effect.
type UnknownScriptError struct {
	ID string
}

func (e *UnknownScriptError) Error() string {
	return fmt.Sprintf("unknown script id %q", e.ID)
}

// Orchestrator executes run requests. A mutex serializes them: batch
// runs are strictly sequential by contract, and the single-writer
// discipline keeps history appends from interleaving when requests
// arrive from multiple callers.
type Orchestrator struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	runner  ScriptRunner
	store   history.Store
	emitter Emitter
	now     func() time.Time
}

// New creates an orchestrator. emitter receives every lifecycle event;
// pass a Broadcaster to fan events out to observers.
func New(cat *catalog.Catalog, r ScriptRunner, store history.Store, emitter Emitter) *Orchestrator {
	return &Orchestrator{
		catalog: cat,
		runner:  r,
		store:   store,
		emitter: emitter,
		now:     time.Now,
	}
}

// RunOne executes a single script by catalog ID. rawArgs is split on
// whitespace and appended to the script invocation verbatim.
//
// Every outcome is reported as events: script_started, script_output
// per line, then script_completed — or a single terminal error event.
// The returned error mirrors the error event for programmatic callers;
// it is nil for any run that completed, including a failed one.
//
// Runs that never launched (unknown ID, missing script) and runs that
// broke mid-stream leave no history record. The latter means a partial
// run has no audit trail beyond its error event; this matches the
// system Vigil replaces.
func (o *Orchestrator) RunOne(ctx context.Context, scriptID, rawArgs string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runOne(ctx, scriptID, rawArgs)
}

// RunAll executes catalog scripts in insertion order, bracketed by
// all_started and all_completed events. When skipNonCritical is true
// only critical scripts run. Each script fully completes, including its
// history write, before the next starts, and a script's failure never
// stops the batch.
func (o *Orchestrator) RunAll(ctx context.Context, skipNonCritical bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	scripts := o.catalog.All()
	if skipNonCritical {
		scripts = o.catalog.Critical()
	}

	o.emitter.Emit(Event{
		Type:      EventAllStarted,
		Timestamp: o.now(),
		Total:     intp(len(scripts)),
	})

	for _, s := range scripts {
		// Failures are reported through events; the batch continues.
		_ = o.runOne(ctx, s.ID, "")
	}

	o.emitter.Emit(Event{
		Type:      EventAllCompleted,
		Timestamp: o.now(),
	})
	return nil
}

func (o *Orchestrator) runOne(ctx context.Context, scriptID, rawArgs string) error {
	sc, ok := o.catalog.Get(scriptID)
	if !ok {
		o.emitter.Emit(Event{
			Type:      EventError,
			Timestamp: o.now(),
			Message:   "Invalid script ID",
		})
		return &UnknownScriptError{ID: scriptID}
	}

	if _, err := o.runner.Resolve(sc.Path); err != nil {
		msg := err.Error()
		var nf *runner.NotFoundError
		if errors.As(err, &nf) {
			msg = "Script not found: " + nf.Path
		}
		o.emitter.Emit(Event{
			Type:      EventError,
			Timestamp: o.now(),
			ScriptID:  scriptID,
			Message:   msg,
		})
		return err
	}

	start := o.now()
	o.emitter.Emit(Event{
		Type:      EventScriptStarted,
		Timestamp: start,
		ScriptID:  scriptID,
		Name:      sc.Name,
	})

	res, err := o.runner.Run(ctx, sc.Path, strings.Fields(rawArgs), func(line string) {
		o.emitter.Emit(Event{
			Type:      EventScriptOutput,
			Timestamp: o.now(),
			ScriptID:  scriptID,
			Line:      line,
		})
	})
	if err != nil {
		o.emitter.Emit(Event{
			Type:      EventError,
			Timestamp: o.now(),
			ScriptID:  scriptID,
			Message:   err.Error(),
		})
		return err
	}

	record := history.Record{
		ScriptID:  scriptID,
		Name:      sc.Name,
		Timestamp: start,
		Duration:  res.Duration.Seconds(),
		Status:    history.StatusForExitCode(res.ExitCode),
		ExitCode:  res.ExitCode,
		Output:    strings.Join(res.Lines, "\n"),
	}
	if err := o.store.Append(record); err != nil {
		// The run happened but could not be recorded.
		o.emitter.Emit(Event{
			Type:      EventError,
			Timestamp: o.now(),
			ScriptID:  scriptID,
			Message:   fmt.Sprintf("recording run: %v", err),
		})
		return err
	}

	o.emitter.Emit(Event{
		Type:      EventScriptCompleted,
		Timestamp: o.now(),
		ScriptID:  scriptID,
		Status:    record.Status,
		ExitCode:  intp(record.ExitCode),
		Duration:  floatp(record.Duration),
	})
	return nil
}
