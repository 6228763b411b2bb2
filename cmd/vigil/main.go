// Command vigil runs verification scripts and reports their status.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/deixis/vigil"
	"github.com/deixis/vigil/internal/config"
	"github.com/deixis/vigil/internal/history"
	vigilmcp "github.com/deixis/vigil/internal/mcp"
	"github.com/deixis/vigil/internal/orchestrator"
	"github.com/deixis/vigil/internal/runner"
	"github.com/deixis/vigil/internal/status"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("vigil: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "mcp":
		err = mcpMain(args)
	case "run":
		err = runMain(args)
	case "run-all":
		err = runAllMain(args)
	case "status":
		err = statusMain(args)
	case "history":
		err = historyMain(args)
	case "version":
		fmt.Println(vigil.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "vigil: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: vigil <command> [flags]

Commands:
  run <script-id> [arg...]   Run one verification script
  run-all                    Run all verification scripts sequentially
  status                     Show each script's latest status and totals
  history [script-id]        Show past runs
  mcp                        Start the MCP server
  version                    Print the version
  help                       Show this help

Use "vigil <command> -h" for command-specific flags.`)
}

// system holds the wired-up core components.
type system struct {
	orc       *orchestrator.Orchestrator
	agg       *status.Aggregator
	broadcast *orchestrator.Broadcaster
}

// newSystem loads configuration from the current directory and wires
// the orchestrator, store, and aggregator.
func newSystem() (*system, error) {
	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}

	loaded, err := config.Load(workspace)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cat, err := loaded.Config.Catalog()
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	store := history.NewFileStore(loaded.HistoryFile())
	r := &runner.Runner{ScriptsRoot: loaded.ScriptsRoot()}
	broadcast := orchestrator.NewBroadcaster()

	return &system{
		orc:       orchestrator.New(cat, r, store, broadcast),
		agg:       &status.Aggregator{Catalog: cat, Store: store},
		broadcast: broadcast,
	}, nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(vigilmcp.Instructions)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sys, err := newSystem()
	if err != nil {
		return err
	}
	server := vigilmcp.NewServer(sys.orc, sys.agg, sys.broadcast)

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/", mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// --- run ---

func runMain(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		return errors.New("usage: vigil run <script-id> [arg...]")
	}
	scriptID := fs.Arg(0)
	rawArgs := strings.Join(fs.Args()[1:], " ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sys, err := newSystem()
	if err != nil {
		return err
	}

	events, cancel := sys.broadcast.Subscribe(1024)
	done := make(chan struct{})
	go func() {
		printEvents(events)
		close(done)
	}()

	runErr := sys.orc.RunOne(ctx, scriptID, rawArgs)
	cancel()
	<-done
	if runErr != nil {
		return runErr
	}

	latest, err := sys.agg.Latest()
	if err != nil {
		return err
	}
	if rec, ok := latest[scriptID]; ok && rec.Status == history.StatusFailed {
		os.Exit(1)
	}
	return nil
}

// --- run-all ---

func runAllMain(args []string) error {
	fs := flag.NewFlagSet("run-all", flag.ExitOnError)
	criticalOnly := fs.Bool("critical-only", false, "skip non-critical scripts")
	_ = fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sys, err := newSystem()
	if err != nil {
		return err
	}

	events, cancel := sys.broadcast.Subscribe(1024)
	done := make(chan struct{})
	go func() {
		printEvents(events)
		close(done)
	}()

	runErr := sys.orc.RunAll(ctx, *criticalOnly)
	cancel()
	<-done
	if runErr != nil {
		return runErr
	}

	summary, err := sys.agg.Summary()
	if err != nil {
		return err
	}
	fmt.Printf("\n%d passed, %d failed, %d never run (of %d checks)\n",
		summary.CurrentStatus.Passed, summary.CurrentStatus.Failed,
		summary.CurrentStatus.NeverRun, summary.CurrentStatus.TotalChecks)
	if summary.CurrentStatus.Failed > 0 {
		os.Exit(1)
	}
	return nil
}

// printEvents renders lifecycle events for the terminal.
func printEvents(events <-chan orchestrator.Event) {
	for ev := range events {
		switch ev.Type {
		case orchestrator.EventAllStarted:
			fmt.Printf("Running %d scripts\n", *ev.Total)
		case orchestrator.EventScriptStarted:
			fmt.Printf("=== %s (%s)\n", ev.Name, ev.ScriptID)
		case orchestrator.EventScriptOutput:
			fmt.Println(ev.Line)
		case orchestrator.EventScriptCompleted:
			fmt.Printf("--- %s (exit %d, %.2fs)\n", ev.Status, *ev.ExitCode, *ev.Duration)
		case orchestrator.EventError:
			log.Printf("error: %s", ev.Message)
		}
	}
}

// --- status ---

func statusMain(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	_ = fs.Parse(args)

	sys, err := newSystem()
	if err != nil {
		return err
	}

	scripts, err := sys.agg.Scripts()
	if err != nil {
		return err
	}
	for _, s := range scripts {
		if s.LastRun == nil {
			fmt.Printf("  %-20s %s\n", s.ID, s.LastStatus)
			continue
		}
		fmt.Printf("  %-20s %-9s exit %d  %.2fs  %s\n",
			s.ID, s.LastStatus, *s.ExitCode, *s.LastDuration,
			s.LastRun.Format("2006-01-02 15:04:05"))
	}

	summary, err := sys.agg.Summary()
	if err != nil {
		return err
	}
	fmt.Printf("\nTotal runs: %d (%d passed, %d failed)\n",
		summary.TotalRuns, summary.TotalPassed, summary.TotalFailed)
	return nil
}

// --- history ---

func historyMain(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	limit := fs.Int("n", 50, "show at most this many of the most recent runs")
	_ = fs.Parse(args)

	sys, err := newSystem()
	if err != nil {
		return err
	}

	var records []history.Record
	if fs.NArg() > 0 {
		records, err = sys.agg.ScriptHistory(fs.Arg(0), *limit)
	} else {
		records, err = sys.agg.History(*limit)
	}
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	for _, r := range records {
		fmt.Printf("  %s  %-20s %-6s exit %d  %.2fs\n",
			r.Timestamp.Format("2006-01-02 15:04:05"), r.ScriptID, r.Status, r.ExitCode, r.Duration)
	}
	return nil
}
