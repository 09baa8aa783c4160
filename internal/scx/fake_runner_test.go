package scx

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/scx-power-sync/scx-power-sync/internal/command"
	"github.com/scx-power-sync/scx-power-sync/internal/logging"
)

// fakeRunner answers scxctl invocations from a table keyed by the first
// argument and records every call.
type fakeRunner struct {
	mu      sync.Mutex
	calls   [][]string
	outputs map[string]command.Output
	errs    map[string]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: map[string]command.Output{},
		errs:    map[string]error{},
	}
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (command.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := append([]string{name}, args...)
	f.calls = append(f.calls, call)

	key := ""
	if len(args) > 0 {
		key = args[0]
	}
	if err := f.errs[key]; err != nil {
		return command.Output{ExitCode: command.NoExitCode}, err
	}
	return f.outputs[key], nil
}

func (f *fakeRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

func captureLogs() *bytes.Buffer {
	logging.Shutdown()
	var buf bytes.Buffer
	logging.Init(logging.Config{Output: &buf, Format: "json", Level: "debug"})
	return &buf
}

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimSpace(buf.String()), "\n")
}
