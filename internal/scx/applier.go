package scx

import (
	"context"
	"errors"
	"log/slog"

	"github.com/scx-power-sync/scx-power-sync/internal/command"
	"github.com/scx-power-sync/scx-power-sync/internal/config"
)

// Applier puts a Mode into effect: it starts a scheduler when none is
// running and switches the running one otherwise. One attempt per call.
type Applier struct {
	gateway *Gateway
}

// NewApplier returns an Applier driving gateway.
func NewApplier(gateway *Gateway) *Applier {
	return &Applier{gateway: gateway}
}

// Apply returns nil on success or an *ApplyError.
func (a *Applier) Apply(ctx context.Context, mode config.Mode) error {
	running, err := a.gateway.QueryRunState(ctx)
	if err != nil {
		return &ApplyError{Kind: ProbeFailed, ExitCode: command.NoExitCode, Err: err}
	}

	subcmd := "start"
	if running {
		subcmd = "switch"
	}
	scxLog.Info("apply_mode",
		slog.String("subcmd", subcmd),
		slog.String("sched", mode.Scheduler),
		slog.String("args", mode.Args))

	stdout, err := a.gateway.Invoke(ctx, subcmd, mode.Scheduler, mode.Args)
	if err != nil {
		applyErr := &ApplyError{Kind: ToolFailed, Subcommand: subcmd, ExitCode: command.NoExitCode, Err: err}
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			applyErr.ExitCode = toolErr.ExitCode
			applyErr.Stderr = toolErr.Stderr
		}
		return applyErr
	}

	if stdout != "" {
		scxLog.Info("scxctl_output", slog.String("subcmd", subcmd), slog.String("output", stdout))
	}
	return nil
}
