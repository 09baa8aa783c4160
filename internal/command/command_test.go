package command

import (
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	requireShell(t)

	out, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo out; echo err >&2")
	require.NoError(t, err)
	assert.True(t, out.Success())
	assert.Equal(t, "out\n", string(out.Stdout))
	assert.Equal(t, "err\n", string(out.Stderr))
}

func TestExecRunnerNonZeroExitIsNotAnError(t *testing.T) {
	requireShell(t)

	out, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "echo partial; echo boom >&2; exit 3")
	require.NoError(t, err)
	assert.False(t, out.Success())
	assert.Equal(t, 3, out.ExitCode)
	assert.Equal(t, "partial\n", string(out.Stdout))
	assert.Equal(t, "boom\n", string(out.Stderr))
}

func TestExecRunnerSignalledHasNoExitCode(t *testing.T) {
	requireShell(t)

	out, err := ExecRunner{}.Run(context.Background(), "sh", "-c", "kill -9 $$")
	require.NoError(t, err)
	assert.Equal(t, NoExitCode, out.ExitCode)
	assert.False(t, out.Success())
}

func TestExecRunnerMissingBinary(t *testing.T) {
	out, err := ExecRunner{}.Run(context.Background(), "scx-power-sync-definitely-missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to exec scx-power-sync-definitely-missing")
	assert.Equal(t, NoExitCode, out.ExitCode)
}
