// Package platform answers questions about the host the daemon runs on.
package platform

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Platform represents the detected platform
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformWSL1    Platform = "wsl1"
	PlatformWSL2    Platform = "wsl2"
	PlatformMacOS   Platform = "macos"
	PlatformWindows Platform = "windows"
	PlatformUnknown Platform = "unknown"
)

// ErrUnsupportedPlatform is returned by CheckSupported off native Linux.
var ErrUnsupportedPlatform = errors.New("sched_ext requires a native Linux kernel")

// cached detection result
var detectedPlatform Platform
var detectionDone bool

// procVersionPath is read to tell WSL from native Linux.
var procVersionPath = "/proc/version"

// Detect returns the current platform, caching the result
func Detect() Platform {
	if detectionDone {
		return detectedPlatform
	}

	detectedPlatform = detectPlatform(runtime.GOOS)
	detectionDone = true
	return detectedPlatform
}

func detectPlatform(goos string) Platform {
	switch goos {
	case "linux":
		return detectLinuxOrWSL()
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	default:
		return PlatformUnknown
	}
}

// detectLinuxOrWSL distinguishes between native Linux and WSL (1 or 2)
func detectLinuxOrWSL() Platform {
	procVersion, err := os.ReadFile(procVersionPath)
	if err != nil {
		if os.Getenv("WSL_DISTRO_NAME") != "" {
			return PlatformWSL2
		}
		return PlatformLinux
	}

	version := string(procVersion)
	switch {
	case strings.Contains(version, "microsoft-standard"):
		return PlatformWSL2
	case strings.Contains(version, "Microsoft"):
		return PlatformWSL1
	case os.Getenv("WSL_DISTRO_NAME") != "":
		return PlatformWSL2
	}
	return PlatformLinux
}

// IsWSL returns true if running in any WSL environment
func IsWSL() bool {
	p := Detect()
	return p == PlatformWSL1 || p == PlatformWSL2
}

// CheckSupported rejects hosts that cannot run sched_ext schedulers.
// WSL2 kernels are Linux but ship without sched_ext and are reported
// through SchedExtState instead.
func CheckSupported() error {
	switch p := Detect(); p {
	case PlatformLinux, PlatformWSL2:
		return nil
	default:
		return fmt.Errorf("%w (detected %s)", ErrUnsupportedPlatform, p)
	}
}

// String returns a human-readable platform name
func (p Platform) String() string {
	switch p {
	case PlatformLinux:
		return "Linux"
	case PlatformWSL1:
		return "WSL1"
	case PlatformWSL2:
		return "WSL2"
	case PlatformMacOS:
		return "macOS"
	case PlatformWindows:
		return "Windows"
	default:
		return "Unknown"
	}
}

// SchedExtState is the kernel's sched_ext state as exposed in sysfs.
type SchedExtState string

const (
	SchedExtEnabled     SchedExtState = "enabled"
	SchedExtDisabled    SchedExtState = "disabled"
	SchedExtEnabling    SchedExtState = "enabling"
	SchedExtDisabling   SchedExtState = "disabling"
	SchedExtUnsupported SchedExtState = "unsupported"
)

// schedExtStatePath is overridden in tests.
var schedExtStatePath = "/sys/kernel/sched_ext/state"

// ReadSchedExtState reports the sched_ext state. A kernel built without
// sched_ext has no state file and yields SchedExtUnsupported with a nil
// error; other read failures are returned.
func ReadSchedExtState() (SchedExtState, error) {
	data, err := os.ReadFile(schedExtStatePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return SchedExtUnsupported, nil
		}
		return "", fmt.Errorf("read sched_ext state: %w", err)
	}
	return SchedExtState(strings.TrimSpace(string(data))), nil
}

// Supported is false only when the kernel lacks sched_ext entirely.
func (s SchedExtState) Supported() bool {
	return s != SchedExtUnsupported
}

// SchedExtHint explains why schedulers cannot load for state, or returns ""
// when the kernel supports sched_ext.
func SchedExtHint(state SchedExtState) string {
	switch {
	case state.Supported():
		return ""
	case IsWSL():
		return "WSL kernels are built without sched_ext"
	default:
		return "kernel built without CONFIG_SCHED_CLASS_EXT"
	}
}

// mountsPath lists mounted filesystems for CheckFsnotifySupport.
var mountsPath = "/proc/mounts"

// CheckFsnotifySupport checks if a path's filesystem supports fsnotify events reliably.
// Returns a warning message if on a problematic filesystem (9p, nfs, cifs, sshfs),
// or an empty string if fsnotify should work normally.
func CheckFsnotifySupport(path string) string {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return ""
	}

	mounts, err := os.ReadFile(mountsPath)
	if err != nil {
		return ""
	}

	// Format: device mountpoint fstype options ...
	// The longest matching mountpoint wins.
	var matchedMount, matchedFsType string
	for _, line := range strings.Split(string(mounts), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		mountPoint := fields[1]
		fsType := fields[2]

		if !containsPath(mountPoint, absPath) {
			continue
		}
		if len(mountPoint) > len(matchedMount) {
			matchedMount = mountPoint
			matchedFsType = fsType
		}
	}

	switch {
	case matchedFsType == "9p":
		return "configuration on a 9p mount: change notifications are not delivered"
	case matchedFsType == "nfs" || matchedFsType == "nfs4":
		return "configuration on an NFS mount: change notifications may be missed"
	case matchedFsType == "cifs" || matchedFsType == "smbfs":
		return "configuration on a CIFS/SMB mount: change notifications may be missed"
	case strings.HasPrefix(matchedFsType, "fuse.sshfs"):
		return "configuration on an SSHFS mount: change notifications are not delivered"
	}
	return ""
}

// containsPath reports whether path lies at or below mountPoint.
func containsPath(mountPoint, path string) bool {
	if mountPoint == "/" {
		return true
	}
	return path == mountPoint || strings.HasPrefix(path, mountPoint+"/")
}
