// Package mcp provides the Vigil MCP server, registering the query and
// command tools and publishing model instructions. Run lifecycle events
// are forwarded to the session as MCP logging notifications while a run
// executes.
package mcp

import (
	_ "embed"

	"github.com/deixis/vigil"
	"github.com/deixis/vigil/internal/orchestrator"
	"github.com/deixis/vigil/internal/status"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// eventBuffer is the per-observer channel buffer for forwarded events.
// A full buffer drops events for that observer only.
const eventBuffer = 1024

// handler holds shared dependencies for all tool handlers.
type handler struct {
	orc       *orchestrator.Orchestrator
	agg       *status.Aggregator
	broadcast *orchestrator.Broadcaster
}

// NewServer creates an MCP server with all Vigil tools registered.
// broadcast must be the emitter wired into orc, so that tool calls can
// observe the events of the runs they trigger.
func NewServer(orc *orchestrator.Orchestrator, agg *status.Aggregator, broadcast *orchestrator.Broadcaster) *mcp.Server {
	h := &handler{orc: orc, agg: agg, broadcast: broadcast}

	opts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools:   &mcp.ToolCapabilities{ListChanged: false},
			Logging: &mcp.LoggingCapabilities{},
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "vigil", Version: vigil.Version}, opts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "vigil_scripts",
		Description: "List all verification scripts with their latest run status.",
	}, h.scriptsHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "vigil_stats",
		Description: "Summarise verification status: run totals and the current pass/fail/never-run counts.",
	}, h.statsHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "vigil_history",
		Description: "List past verification runs, most recent last. Optionally filter to one script and limit the count.",
	}, h.historyHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "vigil_run",
		Description: `Run one verification script by catalog ID and wait for it to finish.

Output lines stream to the session as logging notifications while the script runs.
The run is recorded in the history log; use vigil_scripts or vigil_stats afterwards.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "vigil_run_all",
		Description: `Run every verification script sequentially, in catalog order.

One script completes, including its history write, before the next starts; a failing
script does not stop the batch. Set skip_non_critical to run only critical scripts.`,
	}, h.runAllHandler)

	return s
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
