// Package command runs external tools and captures their exit status and output.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// NoExitCode is reported when a process ended without an exit status,
// for example when it was killed by a signal.
const NoExitCode = -1

// Output is the captured result of one process run.
type Output struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Success reports whether the process exited with status zero.
func (o Output) Success() bool {
	return o.ExitCode == 0
}

// Runner starts a process and waits for it. A non-zero exit is reported in
// Output, not as an error; the error is reserved for failing to run at all.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Output, error)
}

// ExecRunner runs commands with os/exec. Cancelling ctx kills the process.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) (Output, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	out := Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if err == nil {
		return out, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// ExitCode is -1 when the process was signalled.
		out.ExitCode = exitErr.ExitCode()
		if out.ExitCode == 0 {
			out.ExitCode = NoExitCode
		}
		return out, nil
	}

	out.ExitCode = NoExitCode
	return out, fmt.Errorf("failed to exec %s: %w", name, err)
}

// LookPath resolves a binary on PATH. Tests replace it.
var LookPath = exec.LookPath
