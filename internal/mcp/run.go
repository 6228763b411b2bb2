package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/vigil/internal/history"
	"github.com/deixis/vigil/internal/orchestrator"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type runParams struct {
	ScriptID string `json:"script_id" jsonschema:"catalog ID of the script to run (see vigil_scripts)"`
	Args     string `json:"args,omitempty" jsonschema:"raw argument string, split on whitespace and appended to the script invocation"`
}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, params runParams) (*mcp.CallToolResult, any, error) {
	if params.ScriptID == "" {
		return errorResult("script_id is required")
	}

	events, cancel := h.broadcast.Subscribe(eventBuffer)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- h.orc.RunOne(ctx, params.ScriptID, params.Args)
	}()

	runErr := h.relay(ctx, req.Session, events, done)
	if runErr != nil {
		return errorResult(fmt.Sprintf("run failed: %v", runErr))
	}

	latest, err := h.agg.Latest()
	if err != nil {
		return errorResult(fmt.Sprintf("loading history: %v", err))
	}
	rec, ok := latest[params.ScriptID]
	if !ok {
		return errorResult(fmt.Sprintf("no history record for %s after run", params.ScriptID))
	}
	return textResult(formatRecord(&rec))
}

type runAllParams struct {
	SkipNonCritical bool `json:"skip_non_critical,omitempty" jsonschema:"run only scripts marked critical"`
}

func (h *handler) runAllHandler(ctx context.Context, req *mcp.CallToolRequest, params runAllParams) (*mcp.CallToolResult, any, error) {
	events, cancel := h.broadcast.Subscribe(eventBuffer)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- h.orc.RunAll(ctx, params.SkipNonCritical)
	}()

	if err := h.relay(ctx, req.Session, events, done); err != nil {
		return errorResult(fmt.Sprintf("batch run failed: %v", err))
	}

	scripts, err := h.agg.Scripts()
	if err != nil {
		return errorResult(fmt.Sprintf("loading status: %v", err))
	}
	summary, err := h.agg.Summary()
	if err != nil {
		return errorResult(fmt.Sprintf("loading stats: %v", err))
	}

	var b strings.Builder
	fmt.Fprintln(&b, "Batch run finished.")
	fmt.Fprintln(&b)
	for _, s := range scripts {
		fmt.Fprintf(&b, "  %-20s %s\n", s.ID, s.LastStatus)
	}
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Current: %d passed, %d failed, %d never run (of %d checks)\n",
		summary.CurrentStatus.Passed, summary.CurrentStatus.Failed,
		summary.CurrentStatus.NeverRun, summary.CurrentStatus.TotalChecks)
	return textResult(b.String())
}

// relay forwards broadcast events to the session until the run
// finishes, then drains whatever the run buffered before returning its
// error. Orchestrator emits happen before the run call returns, so a
// non-blocking drain after done is complete.
func (h *handler) relay(ctx context.Context, session *mcp.ServerSession, events <-chan orchestrator.Event, done <-chan error) error {
	for {
		select {
		case ev := <-events:
			h.notify(ctx, session, ev)
		case err := <-done:
			for {
				select {
				case ev := <-events:
					h.notify(ctx, session, ev)
				default:
					return err
				}
			}
		}
	}
}

// notify sends one event as a logging notification. Delivery is best
// effort: a client that requested no logging simply does not see the
// stream.
func (h *handler) notify(ctx context.Context, session *mcp.ServerSession, ev orchestrator.Event) {
	if session == nil {
		return
	}
	level := "info"
	if ev.Type == orchestrator.EventError {
		level = "error"
	}
	_ = session.Log(ctx, &mcp.LoggingMessageParams{
		Logger: "vigil",
		Level:  mcp.LoggingLevel(level),
		Data:   ev,
	})
}

func formatRecord(rec *history.Record) string {
	var b strings.Builder

	if rec.Status == history.StatusPassed {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Script: %s (%s)\n", rec.ScriptID, rec.Name)
	fmt.Fprintf(&b, "Exit code: %d\n", rec.ExitCode)
	fmt.Fprintf(&b, "Duration: %.2fs\n", rec.Duration)

	if rec.Output != "" {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Output:")
		for _, line := range strings.Split(rec.Output, "\n") {
			fmt.Fprintf(&b, "    %s\n", line)
		}
	}
	return b.String()
}
