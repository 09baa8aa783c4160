package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetDetection(t *testing.T) {
	t.Helper()
	detectionDone = false
	detectedPlatform = ""
	t.Cleanup(func() {
		detectionDone = false
		detectedPlatform = ""
	})
}

func withFile(t *testing.T, target *string, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	old := *target
	*target = path
	t.Cleanup(func() { *target = old })
}

func TestDetectIsCached(t *testing.T) {
	resetDetection(t)

	p := Detect()
	assert.NotEmpty(t, p)
	if runtime.GOOS == "darwin" {
		assert.Equal(t, PlatformMacOS, p)
	}
	assert.Equal(t, p, Detect())
}

func TestDetectLinuxOrWSL(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    Platform
	}{
		{"native", "Linux version 6.12.1-arch1-1 (linux@archlinux) #1 SMP PREEMPT_DYNAMIC", PlatformLinux},
		{"wsl2", "Linux version 5.15.153.1-microsoft-standard-WSL2 (root@1c602f52c2e4)", PlatformWSL2},
		{"wsl1", "Linux version 4.4.0-19041-Microsoft (Microsoft@Microsoft.com)", PlatformWSL1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WSL_DISTRO_NAME", "")
			withFile(t, &procVersionPath, tt.version)
			assert.Equal(t, tt.want, detectPlatform("linux"))
		})
	}
}

func TestDetectNonLinux(t *testing.T) {
	assert.Equal(t, PlatformMacOS, detectPlatform("darwin"))
	assert.Equal(t, PlatformWindows, detectPlatform("windows"))
	assert.Equal(t, PlatformUnknown, detectPlatform("plan9"))
}

func TestCheckSupported(t *testing.T) {
	tests := []struct {
		platform Platform
		ok       bool
	}{
		{PlatformLinux, true},
		{PlatformWSL2, true},
		{PlatformWSL1, false},
		{PlatformMacOS, false},
		{PlatformWindows, false},
		{PlatformUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.platform.String(), func(t *testing.T) {
			resetDetection(t)
			detectedPlatform = tt.platform
			detectionDone = true

			err := CheckSupported()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrUnsupportedPlatform)
			assert.Contains(t, err.Error(), string(tt.platform))
		})
	}
}

func TestPlatformString(t *testing.T) {
	assert.Equal(t, "Linux", PlatformLinux.String())
	assert.Equal(t, "WSL2", PlatformWSL2.String())
	assert.Equal(t, "Unknown", Platform("beos").String())
}

func TestReadSchedExtState(t *testing.T) {
	withFile(t, &schedExtStatePath, "enabled\n")

	state, err := ReadSchedExtState()
	require.NoError(t, err)
	assert.Equal(t, SchedExtEnabled, state)
	assert.True(t, state.Supported())
}

func TestReadSchedExtStateMissingFile(t *testing.T) {
	old := schedExtStatePath
	schedExtStatePath = filepath.Join(t.TempDir(), "absent")
	t.Cleanup(func() { schedExtStatePath = old })

	state, err := ReadSchedExtState()
	require.NoError(t, err)
	assert.Equal(t, SchedExtUnsupported, state)
	assert.False(t, state.Supported())
}

func TestReadSchedExtStateUnreadable(t *testing.T) {
	old := schedExtStatePath
	schedExtStatePath = t.TempDir()
	t.Cleanup(func() { schedExtStatePath = old })

	_, err := ReadSchedExtState()
	assert.Error(t, err)
}

func TestCheckFsnotifySupport(t *testing.T) {
	withFile(t, &mountsPath, `/dev/nvme0n1p2 / ext4 rw,relatime 0 0
server:/export /srv/nfs nfs4 rw 0 0
drvfs /mnt/c 9p rw 0 0
user@host:/ /mnt/remote fuse.sshfs rw 0 0
`)

	assert.Empty(t, CheckFsnotifySupport("/etc/scx-power-sync-dbus/config.toml"))
	assert.Contains(t, CheckFsnotifySupport("/srv/nfs/config.toml"), "NFS")
	assert.Contains(t, CheckFsnotifySupport("/mnt/c/Users/me/config.toml"), "9p")
	assert.Contains(t, CheckFsnotifySupport("/mnt/remote/config.toml"), "SSHFS")
	assert.Empty(t, CheckFsnotifySupport("/srv/nfsother/config.toml"))
}

func TestCheckFsnotifySupportWithoutMounts(t *testing.T) {
	old := mountsPath
	mountsPath = filepath.Join(t.TempDir(), "absent")
	t.Cleanup(func() { mountsPath = old })

	assert.Empty(t, CheckFsnotifySupport("/srv/nfs/config.toml"))
}

func TestSchedExtHint(t *testing.T) {
	tests := []struct {
		name     string
		platform Platform
		state    SchedExtState
		want     string
	}{
		{"enabled", PlatformLinux, SchedExtEnabled, ""},
		{"disabled", PlatformWSL2, SchedExtDisabled, ""},
		{"wsl2 without sched_ext", PlatformWSL2, SchedExtUnsupported, "WSL kernels are built without sched_ext"},
		{"native without sched_ext", PlatformLinux, SchedExtUnsupported, "kernel built without CONFIG_SCHED_CLASS_EXT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetDetection(t)
			detectedPlatform = tt.platform
			detectionDone = true

			assert.Equal(t, tt.want, SchedExtHint(tt.state))
		})
	}
}

func TestIsWSL(t *testing.T) {
	for _, p := range []Platform{PlatformWSL1, PlatformWSL2, PlatformLinux, PlatformMacOS} {
		t.Run(p.String(), func(t *testing.T) {
			resetDetection(t)
			detectedPlatform = p
			detectionDone = true

			assert.Equal(t, p == PlatformWSL1 || p == PlatformWSL2, IsWSL())
		})
	}
}
