// scx-power-sync keeps the sched_ext scheduler in step with the active
// power-profiles-daemon profile. It reads ActiveProfile once at startup,
// applies the configured scxctl mode, then follows PropertiesChanged
// signals on the system bus until it is stopped.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/scx-power-sync/scx-power-sync/internal/command"
	"github.com/scx-power-sync/scx-power-sync/internal/config"
	"github.com/scx-power-sync/scx-power-sync/internal/logging"
	"github.com/scx-power-sync/scx-power-sync/internal/platform"
	"github.com/scx-power-sync/scx-power-sync/internal/ppd"
	"github.com/scx-power-sync/scx-power-sync/internal/profile"
	"github.com/scx-power-sync/scx-power-sync/internal/reactor"
	"github.com/scx-power-sync/scx-power-sync/internal/scx"
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

const crashLogName = "crash.log"

// requiredBinaries must all be on PATH for the daemon to start.
var requiredBinaries = []string{scx.Binary, ppd.CLIBinary}

var daemonLog = logging.ForComponent(logging.CompDaemon)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	once       bool
	check      bool
	logLevel   string
	logFormat  string
	logDir     string
	version    bool
	help       bool
}

func parseFlags(args []string) (*options, *pflag.FlagSet, error) {
	var opts options
	fs := pflag.NewFlagSet("scx-power-sync", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.configPath, "config", "", "configuration file (default: first found in the XDG search path)")
	fs.BoolVar(&opts.once, "once", false, "apply the current profile's mode and exit")
	fs.BoolVar(&opts.check, "check", false, "validate configuration and required binaries, print the mode table and exit")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides [log] level)")
	fs.StringVar(&opts.logFormat, "log-format", "", "log format: text or json (overrides [log] format)")
	fs.StringVar(&opts.logDir, "log-dir", "", "directory for the rotating log file and crash dumps (overrides [log] dir)")
	fs.BoolVar(&opts.version, "version", false, "print version information and exit")
	fs.BoolVarP(&opts.help, "help", "h", false, "show help")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			opts.help = true
			return &opts, fs, nil
		}
		return nil, fs, err
	}
	if fs.NArg() > 0 {
		return nil, fs, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if opts.once && opts.check {
		return nil, fs, errors.New("--once and --check are mutually exclusive")
	}
	return &opts, fs, nil
}

func printHelp(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: scx-power-sync [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Switch the sched_ext scheduler whenever the power profile changes.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, fs.FlagUsages())
}

// logConfig merges the [log] section with command-line overrides.
func logConfig(opts *options, settings config.LogSettings) logging.Config {
	cfg := logging.Config{
		Level:      settings.Level,
		Format:     settings.Format,
		LogDir:     settings.Dir,
		MaxSizeMB:  settings.MaxSizeMB,
		MaxBackups: settings.MaxBackups,
		MaxAgeDays: settings.MaxAgeDays,
		Compress:   settings.Compress,
	}
	if opts.logLevel != "" {
		cfg.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Format = opts.logFormat
	}
	if opts.logDir != "" {
		cfg.LogDir = opts.logDir
	}
	return cfg
}

func run(args []string, stdout io.Writer) error {
	opts, fs, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.help {
		printHelp(stdout, fs)
		return nil
	}
	if opts.version {
		fmt.Fprintf(stdout, "scx-power-sync %s\n", Version)
		return nil
	}

	path := opts.configPath
	if path == "" {
		if path, err = config.Find(); err != nil {
			return err
		}
	}
	file, err := config.Load(path)
	if err != nil {
		return err
	}

	logCfg := logConfig(opts, file.Log)
	if logCfg.LogDir != "" {
		if err := os.MkdirAll(logCfg.LogDir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	logging.Init(logCfg)
	defer logging.Shutdown()
	log.SetOutput(logging.NewBridgeWriter(logging.CompDaemon))

	daemonLog.Info("config_loaded", slog.String("path", file.Path), slog.String("version", Version))
	if len(file.Undecoded) > 0 {
		daemonLog.Warn("config_unknown_keys", slog.Any("keys", file.Undecoded))
	}

	err = serve(opts, file, stdout)
	if err != nil && logCfg.LogDir != "" {
		crashPath := filepath.Join(logCfg.LogDir, crashLogName)
		daemonLog.Error("fatal", slog.String("error", err.Error()), slog.String("crash_log", crashPath))
		if dumpErr := logging.DumpRingBuffer(crashPath); dumpErr != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", crashPath, dumpErr)
		}
	}
	return err
}

func serve(opts *options, file *config.File, stdout io.Writer) error {
	if err := platform.CheckSupported(); err != nil {
		return err
	}
	state, err := platform.ReadSchedExtState()
	if err != nil {
		daemonLog.Warn("sched_ext_state_unreadable", slog.String("error", err.Error()))
	} else if !state.Supported() {
		daemonLog.Warn("sched_ext_unsupported",
			slog.String("platform", platform.Detect().String()),
			slog.String("hint", platform.SchedExtHint(state)))
	} else {
		daemonLog.Info("sched_ext_state", slog.String("state", string(state)))
	}

	if err := scx.EnsureBinaries(requiredBinaries...); err != nil {
		return err
	}

	if opts.check {
		return printTable(stdout, file)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	conn, err := ppd.Connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	runner := command.ExecRunner{}
	source := ppd.NewClient(conn, runner)
	applier := scx.NewApplier(scx.NewGateway(runner))
	r := reactor.New(file.Modes, applier, source)

	if opts.once {
		return r.Sync(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.Run(gctx)
	})
	g.Go(func() error {
		return config.Watch(gctx, file.Path)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	daemonLog.Info("shutdown")
	return nil
}

// printTable writes the resolved mode table, one profile per line.
func printTable(w io.Writer, file *config.File) error {
	fmt.Fprintf(w, "configuration: %s\n\n", file.Path)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROFILE\tSCHED\tARGS")
	for _, p := range profile.All() {
		mode, ok := file.Modes.Lookup(p)
		if !ok {
			return fmt.Errorf("no mode for profile %s", p)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p, mode.Scheduler, mode.Args)
	}
	return tw.Flush()
}
