package status

import (
	"reflect"
	"testing"
	"time"

	"github.com/deixis/vigil/internal/catalog"
	"github.com/deixis/vigil/internal/history"
)

func newAggregator(t *testing.T, records ...history.Record) *Aggregator {
	t.Helper()
	cat, err := catalog.New([]catalog.Script{
		{ID: "a", Name: "Alpha", Critical: true, Path: "a.sh"},
		{ID: "b", Name: "Beta", Critical: false, Path: "b.sh"},
		{ID: "c", Name: "Gamma", Critical: true, Path: "c.sh"},
	})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	store := history.NewMemStore()
	for _, r := range records {
		if err := store.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return &Aggregator{Catalog: cat, Store: store}
}

func record(id string, code int, at time.Time) history.Record {
	return history.Record{
		ScriptID:  id,
		Name:      id,
		Timestamp: at,
		Duration:  0.5,
		Status:    history.StatusForExitCode(code),
		ExitCode:  code,
	}
}

var t0 = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func TestLatest_MostRecentWins(t *testing.T) {
	a := newAggregator(t,
		record("a", 1, t0),
		record("b", 0, t0.Add(time.Minute)),
		record("a", 0, t0.Add(2*time.Minute)),
	)

	latest, err := a.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("len(latest) = %d, want 2", len(latest))
	}
	if latest["a"].Status != history.StatusPassed {
		t.Errorf("latest[a].Status = %q, want passed (newest record)", latest["a"].Status)
	}
	if latest["b"].Status != history.StatusPassed {
		t.Errorf("latest[b].Status = %q, want passed", latest["b"].Status)
	}
}

func TestLatest_Idempotent(t *testing.T) {
	a := newAggregator(t, record("a", 0, t0), record("b", 2, t0))
	first, err := a.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	second, err := a.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("Latest() differs between calls with no intervening writes")
	}
}

func TestSummary_Empty(t *testing.T) {
	a := newAggregator(t)
	s, err := a.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	want := &Summary{CurrentStatus: CurrentStatus{NeverRun: 3, TotalChecks: 3}}
	if !reflect.DeepEqual(s, want) {
		t.Errorf("Summary = %+v, want %+v", s, want)
	}
}

func TestSummary_Counts(t *testing.T) {
	a := newAggregator(t,
		record("a", 1, t0),                  // a failed...
		record("a", 0, t0.Add(time.Minute)), // ...then passed
		record("b", 2, t0.Add(2*time.Minute)),
	)

	s, err := a.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s.TotalRuns != 3 || s.TotalPassed != 1 || s.TotalFailed != 2 {
		t.Errorf("totals = %d/%d/%d, want 3/1/2", s.TotalRuns, s.TotalPassed, s.TotalFailed)
	}
	want := CurrentStatus{Passed: 1, Failed: 1, NeverRun: 1, TotalChecks: 3}
	if s.CurrentStatus != want {
		t.Errorf("CurrentStatus = %+v, want %+v", s.CurrentStatus, want)
	}
}

func TestSummary_NeverRunDecrementsOnFirstRecord(t *testing.T) {
	store := history.NewMemStore()
	cat, _ := catalog.New([]catalog.Script{
		{ID: "a", Name: "Alpha", Path: "a.sh"},
		{ID: "b", Name: "Beta", Path: "b.sh"},
	})
	a := &Aggregator{Catalog: cat, Store: store}

	s, _ := a.Summary()
	if s.CurrentStatus.NeverRun != 2 {
		t.Fatalf("NeverRun = %d, want 2", s.CurrentStatus.NeverRun)
	}

	_ = store.Append(record("a", 0, t0))
	s, _ = a.Summary()
	if s.CurrentStatus.NeverRun != 1 {
		t.Errorf("NeverRun after first a run = %d, want 1", s.CurrentStatus.NeverRun)
	}

	// A second run of the same script changes nothing.
	_ = store.Append(record("a", 1, t0.Add(time.Minute)))
	s, _ = a.Summary()
	if s.CurrentStatus.NeverRun != 1 {
		t.Errorf("NeverRun after second a run = %d, want 1", s.CurrentStatus.NeverRun)
	}
}

func TestScripts_EnrichedInCatalogOrder(t *testing.T) {
	a := newAggregator(t, record("b", 0, t0))

	scripts, err := a.Scripts()
	if err != nil {
		t.Fatalf("Scripts: %v", err)
	}
	if len(scripts) != 3 {
		t.Fatalf("len(scripts) = %d, want 3", len(scripts))
	}
	if scripts[0].ID != "a" || scripts[1].ID != "b" || scripts[2].ID != "c" {
		t.Errorf("order = %s,%s,%s, want a,b,c", scripts[0].ID, scripts[1].ID, scripts[2].ID)
	}

	if scripts[0].LastStatus != NeverRun || scripts[0].LastRun != nil || scripts[0].ExitCode != nil {
		t.Errorf("scripts[0] = %+v, want never_run with nil fields", scripts[0])
	}
	if scripts[1].LastStatus != string(history.StatusPassed) {
		t.Errorf("scripts[1].LastStatus = %q, want passed", scripts[1].LastStatus)
	}
	if scripts[1].ExitCode == nil || *scripts[1].ExitCode != 0 {
		t.Errorf("scripts[1].ExitCode = %v, want 0", scripts[1].ExitCode)
	}
	if scripts[1].LastRun == nil || !scripts[1].LastRun.Equal(t0) {
		t.Errorf("scripts[1].LastRun = %v, want %v", scripts[1].LastRun, t0)
	}
}

func TestHistory_Limit(t *testing.T) {
	a := newAggregator(t,
		record("a", 0, t0),
		record("b", 0, t0.Add(time.Minute)),
		record("c", 0, t0.Add(2*time.Minute)),
	)

	got, err := a.History(2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(got) != 2 || got[0].ScriptID != "b" || got[1].ScriptID != "c" {
		t.Errorf("History(2) = %+v, want most recent b, c", got)
	}

	all, err := a.History(0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("History(0) = %d records, want 3", len(all))
	}
}

func TestScriptHistory(t *testing.T) {
	a := newAggregator(t,
		record("a", 0, t0),
		record("b", 1, t0.Add(time.Minute)),
		record("a", 2, t0.Add(2*time.Minute)),
		record("a", 0, t0.Add(3*time.Minute)),
	)

	got, err := a.ScriptHistory("a", 2)
	if err != nil {
		t.Fatalf("ScriptHistory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ExitCode != 2 || got[1].ExitCode != 0 {
		t.Errorf("ScriptHistory(a, 2) exit codes = %d, %d, want 2, 0", got[0].ExitCode, got[1].ExitCode)
	}

	none, err := a.ScriptHistory("zzz", 10)
	if err != nil {
		t.Fatalf("ScriptHistory: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ScriptHistory(zzz) = %+v, want empty", none)
	}
}
