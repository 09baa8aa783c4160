package scx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scx-power-sync/scx-power-sync/internal/command"
	"github.com/scx-power-sync/scx-power-sync/internal/logging"
)

const (
	// Binary is the sched_ext control tool.
	Binary = "scxctl"

	notRunningMarker = "no scx scheduler running"
)

var scxLog = logging.ForComponent(logging.CompSCX)

// Gateway invokes scxctl.
type Gateway struct {
	runner command.Runner
}

// NewGateway returns a Gateway that runs scxctl through runner.
func NewGateway(runner command.Runner) *Gateway {
	return &Gateway{runner: runner}
}

// QueryRunState runs "scxctl get" and reports whether a scheduler is
// running. The exit status of scxctl is not authoritative here: a non-zero
// exit is logged and the answer still comes from stdout, so empty output
// counts as running. Only failing to run scxctl is an error.
func (g *Gateway) QueryRunState(ctx context.Context) (bool, error) {
	out, err := g.runner.Run(ctx, Binary, "get")
	if err != nil {
		return false, err
	}
	if !out.Success() {
		scxLog.Warn("scxctl_get_nonzero_exit",
			slog.Int("exit", out.ExitCode),
			slog.String("stderr", strings.TrimSpace(string(out.Stderr))))
	}
	stdout := strings.ToLower(string(out.Stdout))
	return !strings.Contains(stdout, notRunningMarker), nil
}

// Invoke runs "scxctl <subcommand> --sched <scheduler> --args=<args>" and
// returns trimmed stdout. The argument payload is always one token.
// Failures are returned as *ToolError.
func (g *Gateway) Invoke(ctx context.Context, subcommand, scheduler, args string) (string, error) {
	out, err := g.runner.Run(ctx, Binary, subcommand, "--sched", scheduler, "--args="+args)
	if err != nil {
		return "", &ToolError{Subcommand: subcommand, ExitCode: command.NoExitCode, Err: err}
	}

	stdout := strings.TrimSpace(string(out.Stdout))
	if !out.Success() {
		return stdout, &ToolError{
			Subcommand: subcommand,
			ExitCode:   out.ExitCode,
			Stderr:     strings.TrimSpace(string(out.Stderr)),
		}
	}
	return stdout, nil
}

// EnsureBinaries checks that every name resolves on PATH.
func EnsureBinaries(names ...string) error {
	for _, name := range names {
		if _, err := command.LookPath(name); err != nil {
			return fmt.Errorf("%w: %s", ErrBinaryNotFound, name)
		}
	}
	return nil
}
