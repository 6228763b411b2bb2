package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/vigil/internal/history"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type scriptsParams struct{}

func (h *handler) scriptsHandler(ctx context.Context, req *mcp.CallToolRequest, params scriptsParams) (*mcp.CallToolResult, any, error) {
	scripts, err := h.agg.Scripts()
	if err != nil {
		return errorResult(fmt.Sprintf("loading status: %v", err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Verification scripts (%d):\n\n", len(scripts))
	for _, s := range scripts {
		crit := ""
		if s.Critical {
			crit = " [critical]"
		}
		fmt.Fprintf(&b, "  %s — %s%s\n", s.ID, s.Name, crit)
		fmt.Fprintf(&b, "    %s\n", s.Description)
		if s.LastRun == nil {
			fmt.Fprintf(&b, "    status: %s\n", s.LastStatus)
		} else {
			fmt.Fprintf(&b, "    status: %s (exit %d, %.2fs, %s)\n",
				s.LastStatus, *s.ExitCode, *s.LastDuration,
				s.LastRun.Format("2006-01-02 15:04:05"))
		}
	}
	return textResult(b.String())
}

type statsParams struct{}

func (h *handler) statsHandler(ctx context.Context, req *mcp.CallToolRequest, params statsParams) (*mcp.CallToolResult, any, error) {
	s, err := h.agg.Summary()
	if err != nil {
		return errorResult(fmt.Sprintf("loading stats: %v", err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Total runs: %d (%d passed, %d failed)\n", s.TotalRuns, s.TotalPassed, s.TotalFailed)
	fmt.Fprintf(&b, "Current: %d passed, %d failed, %d never run (of %d checks)\n",
		s.CurrentStatus.Passed, s.CurrentStatus.Failed,
		s.CurrentStatus.NeverRun, s.CurrentStatus.TotalChecks)
	return textResult(b.String())
}

type historyParams struct {
	ScriptID string `json:"script_id,omitempty" jsonschema:"only show runs of this script"`
	Limit    int    `json:"limit,omitempty" jsonschema:"show at most this many of the most recent runs (default 50)"`
}

func (h *handler) historyHandler(ctx context.Context, req *mcp.CallToolRequest, params historyParams) (*mcp.CallToolResult, any, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	var records []history.Record
	var err error
	if params.ScriptID != "" {
		records, err = h.agg.ScriptHistory(params.ScriptID, limit)
	} else {
		records, err = h.agg.History(limit)
	}
	if err != nil {
		return errorResult(fmt.Sprintf("loading history: %v", err))
	}

	if len(records) == 0 {
		return textResult("No runs recorded.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Runs (%d, most recent last):\n\n", len(records))
	for _, r := range records {
		fmt.Fprintf(&b, "  %s  %-20s %-6s exit %d  %.2fs\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.ScriptID, r.Status, r.ExitCode, r.Duration)
	}
	return textResult(b.String())
}
