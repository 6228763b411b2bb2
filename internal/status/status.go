// Package status derives current per-script status and aggregate
// counters from the run history. Nothing here is cached: every query
// reflects the store at query time.
package status

import (
	"time"

	"github.com/deixis/vigil/internal/catalog"
	"github.com/deixis/vigil/internal/history"
)

// NeverRun is the reported status for a script with no history record.
const NeverRun = "never_run"

// Aggregator answers status queries over a catalog and its history.
type Aggregator struct {
	Catalog *catalog.Catalog
	Store   history.Store
}

// ScriptStatus is a catalog entry enriched with its most recent run.
// Pointer fields are nil for scripts that have never run.
type ScriptStatus struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Critical     bool       `json:"critical"`
	LastRun      *time.Time `json:"last_run"`
	LastStatus   string     `json:"last_status"`
	LastDuration *float64   `json:"last_duration"`
	ExitCode     *int       `json:"exit_code"`
}

// Summary holds aggregate counters over the whole history plus the
// latest-per-script view.
type Summary struct {
	TotalRuns     int           `json:"total_runs"`
	TotalPassed   int           `json:"total_passed"`
	TotalFailed   int           `json:"total_failed"`
	CurrentStatus CurrentStatus `json:"current_status"`
}

// CurrentStatus counts each catalog script once, by its latest run.
type CurrentStatus struct {
	Passed      int `json:"passed"`
	Failed      int `json:"failed"`
	NeverRun    int `json:"never_run"`
	TotalChecks int `json:"total_checks"`
}

// Latest returns the most recent record per script ID, scanning the
// history newest-first and keeping the first occurrence.
func (a *Aggregator) Latest() (map[string]history.Record, error) {
	records, err := a.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	latest := make(map[string]history.Record)
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		if _, ok := latest[r.ScriptID]; !ok {
			latest[r.ScriptID] = r
		}
	}
	return latest, nil
}

// Scripts returns every catalog entry enriched with its latest status,
// in catalog order.
func (a *Aggregator) Scripts() ([]ScriptStatus, error) {
	latest, err := a.Latest()
	if err != nil {
		return nil, err
	}

	scripts := a.Catalog.All()
	out := make([]ScriptStatus, 0, len(scripts))
	for _, s := range scripts {
		st := ScriptStatus{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Category:    s.Category,
			Critical:    s.Critical,
			LastStatus:  NeverRun,
		}
		if rec, ok := latest[s.ID]; ok {
			ts := rec.Timestamp
			dur := rec.Duration
			code := rec.ExitCode
			st.LastRun = &ts
			st.LastStatus = string(rec.Status)
			st.LastDuration = &dur
			st.ExitCode = &code
		}
		out = append(out, st)
	}
	return out, nil
}

// Summary computes run totals over the entire history and current
// counters over the latest-per-script view. neverRun counts catalog
// entries with no record; records for IDs outside the current catalog
// count toward totals but not toward current status.
func (a *Aggregator) Summary() (*Summary, error) {
	records, err := a.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	latest, err := a.Latest()
	if err != nil {
		return nil, err
	}

	s := &Summary{TotalRuns: len(records)}
	for _, r := range records {
		switch r.Status {
		case history.StatusPassed:
			s.TotalPassed++
		case history.StatusFailed:
			s.TotalFailed++
		}
	}

	s.CurrentStatus.TotalChecks = a.Catalog.Len()
	known := 0
	for _, sc := range a.Catalog.All() {
		rec, ok := latest[sc.ID]
		if !ok {
			continue
		}
		known++
		switch rec.Status {
		case history.StatusPassed:
			s.CurrentStatus.Passed++
		case history.StatusFailed:
			s.CurrentStatus.Failed++
		}
	}
	s.CurrentStatus.NeverRun = s.CurrentStatus.TotalChecks - known
	return s, nil
}

// History returns the most recent limit records in completion order.
// limit <= 0 returns the full log.
func (a *Aggregator) History(limit int) ([]history.Record, error) {
	records, err := a.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	return tail(records, limit), nil
}

// ScriptHistory returns the most recent limit records for one script,
// in completion order.
func (a *Aggregator) ScriptHistory(scriptID string, limit int) ([]history.Record, error) {
	records, err := a.Store.LoadAll()
	if err != nil {
		return nil, err
	}
	var filtered []history.Record
	for _, r := range records {
		if r.ScriptID == scriptID {
			filtered = append(filtered, r)
		}
	}
	return tail(filtered, limit), nil
}

func tail(records []history.Record, limit int) []history.Record {
	if limit <= 0 || limit >= len(records) {
		return records
	}
	return records[len(records)-limit:]
}
