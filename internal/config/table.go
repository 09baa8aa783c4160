package config

import (
	"fmt"
	"strings"

	"github.com/scx-power-sync/scx-power-sync/internal/profile"
)

// Mode is the scxctl invocation associated with a power profile.
type Mode struct {
	// Scheduler is passed as --sched <Scheduler>.
	Scheduler string

	// Args is passed verbatim as the single token --args=<Args>.
	Args string
}

// Entry is one profile definition as it appeared in a configuration source.
type Entry struct {
	Key  string
	Mode Mode
}

// TableError describes why a mode table could not be built.
type TableError struct {
	Source  string
	Profile string
	Reason  string
}

func (e *TableError) Error() string {
	return fmt.Sprintf("%s profile '%s' in %s", e.Reason, e.Profile, e.Source)
}

// Table maps every supported profile to exactly one Mode. It is immutable
// after NewTable returns and safe for concurrent reads.
type Table struct {
	source string
	modes  map[profile.Profile]Mode
}

// NewTable validates entries read from source and builds the table.
// Every key must name a supported profile, appear once, and every
// supported profile must be present.
func NewTable(source string, entries []Entry) (*Table, error) {
	modes := make(map[profile.Profile]Mode, len(entries))
	for _, e := range entries {
		p, err := profile.Parse(e.Key)
		if err != nil {
			return nil, &TableError{Source: source, Profile: e.Key, Reason: "unknown"}
		}
		if _, dup := modes[p]; dup {
			return nil, &TableError{Source: source, Profile: e.Key, Reason: "duplicate configuration for"}
		}
		if strings.TrimSpace(e.Mode.Scheduler) == "" {
			return nil, &TableError{Source: source, Profile: e.Key, Reason: "missing sched for"}
		}
		modes[p] = e.Mode
	}

	for _, p := range profile.All() {
		if _, ok := modes[p]; !ok {
			return nil, &TableError{Source: source, Profile: p.String(), Reason: "missing"}
		}
	}

	return &Table{source: source, modes: modes}, nil
}

// Lookup returns the mode configured for p.
func (t *Table) Lookup(p profile.Profile) (Mode, bool) {
	if t == nil {
		return Mode{}, false
	}
	m, ok := t.modes[p]
	return m, ok
}

// Source returns where the table was loaded from.
func (t *Table) Source() string {
	return t.source
}
