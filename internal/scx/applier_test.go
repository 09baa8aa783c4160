package scx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scx-power-sync/scx-power-sync/internal/command"
	"github.com/scx-power-sync/scx-power-sync/internal/config"
	"github.com/scx-power-sync/scx-power-sync/internal/logging"
)

var lavd = config.Mode{Scheduler: "scx_lavd", Args: "--performance"}

func TestApplyChoosesSubcommand(t *testing.T) {
	tests := []struct {
		name   string
		get    string
		subcmd string
	}{
		{"not running starts", "no scx scheduler running", "start"},
		{"not running any case starts", "No SCX Scheduler Running", "start"},
		{"running switches", "running scx_bpfland", "switch"},
		{"empty output switches", "", "switch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner()
			runner.outputs["get"] = command.Output{Stdout: []byte(tt.get)}

			err := NewApplier(NewGateway(runner)).Apply(context.Background(), lavd)
			require.NoError(t, err)

			calls := runner.Calls()
			require.Len(t, calls, 2)
			assert.Equal(t, []string{"scxctl", "get"}, calls[0])
			assert.Equal(t, []string{"scxctl", tt.subcmd, "--sched", "scx_lavd", "--args=--performance"}, calls[1])
		})
	}
}

func TestApplyToolFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.outputs["get"] = command.Output{Stdout: []byte("no scx scheduler running")}
	runner.outputs["start"] = command.Output{ExitCode: 17, Stderr: []byte("bpf load failed\n")}

	err := NewApplier(NewGateway(runner)).Apply(context.Background(), lavd)
	require.Error(t, err)

	var applyErr *ApplyError
	require.True(t, errors.As(err, &applyErr))
	assert.Equal(t, ToolFailed, applyErr.Kind)
	assert.Equal(t, "start", applyErr.Subcommand)
	assert.Equal(t, 17, applyErr.ExitCode)
	assert.Equal(t, "bpf load failed", applyErr.Stderr)
	assert.Equal(t, "scxctl start failed (exit=17): bpf load failed", err.Error())
}

func TestApplyProbeFailure(t *testing.T) {
	runner := newFakeRunner()
	runner.errs["get"] = errors.New("failed to exec scxctl: not found")

	err := NewApplier(NewGateway(runner)).Apply(context.Background(), lavd)

	var applyErr *ApplyError
	require.True(t, errors.As(err, &applyErr))
	assert.Equal(t, ProbeFailed, applyErr.Kind)
	assert.Contains(t, err.Error(), "probe scx running")
	assert.Len(t, runner.Calls(), 1, "no start or switch after a failed probe")
}

func TestApplyLogsToolOutput(t *testing.T) {
	t.Setenv(logging.LevelEnv, "")
	buf := captureLogs()
	defer logging.Shutdown()

	runner := newFakeRunner()
	runner.outputs["switch"] = command.Output{Stdout: []byte("switched to scx_lavd\n")}

	require.NoError(t, NewApplier(NewGateway(runner)).Apply(context.Background(), lavd))

	logLines := lines(buf)
	require.Len(t, logLines, 2)
	assert.Contains(t, logLines[0], `"msg":"apply_mode"`)
	assert.Contains(t, logLines[0], `"subcmd":"switch"`)
	assert.Contains(t, logLines[1], `"output":"switched to scx_lavd"`)
}

func TestApplyErrorKindString(t *testing.T) {
	assert.Equal(t, "probe_failed", ProbeFailed.String())
	assert.Equal(t, "tool_failed", ToolFailed.String())
	assert.Equal(t, "unknown", ApplyErrorKind(0).String())
}
