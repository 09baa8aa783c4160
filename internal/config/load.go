package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DirName is the directory looked up under each configuration root.
const DirName = "scx-power-sync-dbus"

// FileNames are tried in order inside each candidate directory.
var FileNames = []string{"config.toml", "config.yaml"}

// ErrConfigNotFound is returned by Find when no candidate file exists.
var ErrConfigNotFound = errors.New("configuration file not found")

// LogSettings is the optional [log] section.
type LogSettings struct {
	// Level is debug, info, warn or error (default: info)
	Level string `toml:"level" yaml:"level"`

	// Format is text or json (default: text on a terminal, json otherwise)
	Format string `toml:"format" yaml:"format"`

	// Dir enables a rotating log file in this directory
	Dir string `toml:"dir" yaml:"dir"`

	// MaxSizeMB is the size in MB before rotation (default: 10)
	MaxSizeMB int `toml:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of rotated files to keep (default: 3)
	MaxBackups int `toml:"max_backups" yaml:"max_backups"`

	// MaxAgeDays is how long rotated files are kept (default: 14)
	MaxAgeDays int `toml:"max_age_days" yaml:"max_age_days"`

	// Compress gzips rotated files
	Compress bool `toml:"compress" yaml:"compress"`
}

// File is a loaded and validated configuration file.
type File struct {
	Path  string
	Modes *Table
	Log   LogSettings

	// Undecoded lists keys present in the file that nothing reads (TOML only).
	Undecoded []string
}

type fileConfig struct {
	Modes map[string]modeDef `toml:"modes" yaml:"modes"`
	Log   LogSettings        `toml:"log" yaml:"log"`
}

type modeDef struct {
	Sched string `toml:"sched" yaml:"sched"`
	Args  string `toml:"args" yaml:"args"`
}

// SearchPaths returns the candidate configuration files in lookup order:
// $HOME/.config, $XDG_CONFIG_HOME, $XDG_CONFIG_DIRS (or /etc/xdg when
// unset), then /etc. Duplicates are dropped.
func SearchPaths() []string {
	var dirs []string
	if home := os.Getenv("HOME"); home != "" {
		dirs = append(dirs, filepath.Join(home, ".config"))
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, xdg)
	}
	if raw, ok := os.LookupEnv("XDG_CONFIG_DIRS"); ok {
		for _, entry := range strings.Split(raw, ":") {
			if entry != "" {
				dirs = append(dirs, entry)
			}
		}
	} else {
		dirs = append(dirs, "/etc/xdg")
	}
	dirs = append(dirs, "/etc")

	seen := make(map[string]bool)
	var paths []string
	for _, dir := range dirs {
		for _, name := range FileNames {
			p := filepath.Join(dir, DirName, name)
			if seen[p] {
				continue
			}
			seen[p] = true
			paths = append(paths, p)
		}
	}
	return paths
}

// Find returns the first existing file from SearchPaths.
func Find() (string, error) {
	candidates := SearchPaths()
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	searched := "<none>"
	if len(candidates) > 0 {
		searched = strings.Join(candidates, ", ")
	}
	return "", fmt.Errorf("%w; looked in: %s", ErrConfigNotFound, searched)
}

// Load reads path, decodes it according to its extension and builds the
// mode table.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read configuration %s: %w", path, err)
	}

	var raw fileConfig
	var undecoded []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		md, err := toml.Decode(string(data), &raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		for _, key := range md.Undecoded() {
			undecoded = append(undecoded, key.String())
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("parse %s: unsupported configuration format %q", path, filepath.Ext(path))
	}

	keys := make([]string, 0, len(raw.Modes))
	for k := range raw.Modes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		def := raw.Modes[k]
		entries = append(entries, Entry{Key: k, Mode: Mode{Scheduler: def.Sched, Args: def.Args}})
	}

	table, err := NewTable(path, entries)
	if err != nil {
		return nil, err
	}

	return &File{
		Path:      path,
		Modes:     table,
		Log:       raw.Log,
		Undecoded: undecoded,
	}, nil
}
