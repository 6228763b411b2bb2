// Package runner launches one verification script at a time and streams
// its merged stdout/stderr line by line while the process runs.
//
// There is deliberately no timeout and no output cap: a verification
// script runs until it exits, and a hung script blocks its caller. The
// ctx argument is plumbed through to exec.CommandContext for embedders,
// but Vigil itself never attaches a deadline.
package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Runner executes scripts relative to a fixed scripts root directory.
// Launched processes run with the scripts root as their working
// directory.
type Runner struct {
	ScriptsRoot string
}

// Result holds the outcome of a completed script run.
type Result struct {
	RunID    string        // unique identifier for this run
	ExitCode int           // process exit code
	Duration time.Duration // wall clock, launch to exit
	Lines    []string      // captured output lines, in order
}

// NotFoundError reports a script path that does not exist. It is
// returned before any process is spawned.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("script not found: %s", e.Path)
}

// ExecError reports a failure to launch the process or to read its
// output stream. Lines holds whatever output was captured before the
// failure.
type ExecError struct {
	Path  string
	Lines []string
	Err   error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("executing %s: %v", e.Path, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Resolve maps a catalog-relative script path to an absolute one and
// verifies the script exists. Paths escaping the scripts root are
// rejected.
func (r *Runner) Resolve(relPath string) (string, error) {
	path := filepath.Clean(filepath.Join(r.ScriptsRoot, relPath))

	rel, err := filepath.Rel(r.ScriptsRoot, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("script path %q is outside the scripts root", relPath)
	}

	if _, err := os.Stat(path); err != nil {
		return "", &NotFoundError{Path: path}
	}
	return path, nil
}

// Run launches the script at relPath with the given arguments and
// blocks until it exits. Stdout and stderr share a single pipe, so
// captured lines interleave exactly as the process wrote them. onLine
// is invoked synchronously for every line, while the process is still
// running; it may be nil.
func (r *Runner) Run(ctx context.Context, relPath string, args []string, onLine func(string)) (*Result, error) {
	path, err := r.Resolve(relPath)
	if err != nil {
		return nil, err
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, &ExecError{Path: path, Err: err}
	}
	defer pr.Close()

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = r.ScriptsRoot
	cmd.Stdout = pw
	cmd.Stderr = pw

	start := time.Now()
	if err := cmd.Start(); err != nil {
		pw.Close()
		return nil, &ExecError{Path: path, Err: err}
	}
	// Close the parent's write end so the pipe reaches EOF when the
	// child exits.
	pw.Close()

	var lines []string
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		lines = append(lines, line)
		if onLine != nil {
			onLine(line)
		}
	}
	scanErr := scanner.Err()

	runErr := cmd.Wait()
	duration := time.Since(start)

	if scanErr != nil {
		return nil, &ExecError{Path: path, Lines: lines, Err: scanErr}
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, &ExecError{Path: path, Lines: lines, Err: runErr}
		}
	}

	return &Result{
		RunID:    uuid.New().String(),
		ExitCode: exitCode,
		Duration: duration,
		Lines:    lines,
	}, nil
}
