package scx

import (
	"errors"
	"fmt"
)

// ErrBinaryNotFound is returned by EnsureBinaries for a tool missing from PATH.
var ErrBinaryNotFound = errors.New("required binary not found in PATH")

// ToolError is a failed scxctl invocation.
type ToolError struct {
	Subcommand string
	// ExitCode is command.NoExitCode when the process had no exit status.
	ExitCode int
	Stderr   string
	// Err is set when the process could not be run at all.
	Err error
}

func (e *ToolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scxctl %s failed: %v", e.Subcommand, e.Err)
	}
	return fmt.Sprintf("scxctl %s failed (exit=%d): %s", e.Subcommand, e.ExitCode, e.Stderr)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// ApplyErrorKind classifies an ApplyError.
type ApplyErrorKind int

const (
	// ProbeFailed means the run-state query could not be performed.
	ProbeFailed ApplyErrorKind = iota + 1
	// ToolFailed means scxctl start or switch did not succeed.
	ToolFailed
)

func (k ApplyErrorKind) String() string {
	switch k {
	case ProbeFailed:
		return "probe_failed"
	case ToolFailed:
		return "tool_failed"
	}
	return "unknown"
}

// ApplyError is returned by Applier.Apply.
type ApplyError struct {
	Kind       ApplyErrorKind
	Subcommand string
	ExitCode   int
	Stderr     string
	Err        error
}

func (e *ApplyError) Error() string {
	if e.Kind == ProbeFailed {
		return fmt.Sprintf("probe scx running: %v", e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("scxctl %s failed (exit=%d): %s", e.Subcommand, e.ExitCode, e.Stderr)
	}
	return e.Err.Error()
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}
