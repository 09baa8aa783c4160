// Package reactor keeps the sched_ext scheduler in step with the active
// power profile.
//
// A Reactor performs one startup sync and then consumes PropertiesChanged
// notifications strictly one at a time. Each accepted change is applied
// through an Applier, which blocks the loop until scxctl returns, so at most
// one mode application is ever in flight. Per-event failures are logged and
// never end the loop; only the subscription closing does.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/scx-power-sync/scx-power-sync/internal/config"
	"github.com/scx-power-sync/scx-power-sync/internal/logging"
	"github.com/scx-power-sync/scx-power-sync/internal/ppd"
	"github.com/scx-power-sync/scx-power-sync/internal/profile"
	"github.com/scx-power-sync/scx-power-sync/internal/scx"
)

var reactorLog = logging.ForComponent(logging.CompReactor)

// Applier puts a mode into effect.
type Applier interface {
	Apply(ctx context.Context, mode config.Mode) error
}

// Source provides the current profile and its change notifications.
type Source interface {
	ActiveProfile(ctx context.Context) (string, error)
	Subscribe(ctx context.Context) (<-chan ppd.Notification, error)
}

// Reactor owns the last applied profile. It is not safe for concurrent use;
// Run drives it from a single goroutine.
type Reactor struct {
	modes   *config.Table
	applier Applier
	source  Source

	// lastApplied is the zero Profile until an application succeeds.
	lastApplied profile.Profile
}

// New returns a Reactor that resolves profiles through modes.
func New(modes *config.Table, applier Applier, source Source) *Reactor {
	return &Reactor{modes: modes, applier: applier, source: source}
}

// LastApplied returns the last successfully applied profile.
func (r *Reactor) LastApplied() (profile.Profile, bool) {
	return r.lastApplied, r.lastApplied.Valid()
}

// Run subscribes, performs the startup sync and then processes
// notifications until the subscription ends or ctx is cancelled.
// Cancellation returns nil. The subscription is opened before the startup
// read; notifications that arrive during the sync are handled after it.
func (r *Reactor) Run(ctx context.Context) error {
	events, err := r.source.Subscribe(ctx)
	if err != nil {
		return err
	}
	if err := r.Sync(ctx); err != nil {
		return err
	}
	reactorLog.Info("watching_profile_changes")
	return r.Loop(ctx, events)
}

// Sync reads the current profile once and applies its mode. An unknown
// profile, or one without a mode, leaves the reactor unsynced and returns
// nil. A failed read or a failed application is returned and is meant to
// end the process.
func (r *Reactor) Sync(ctx context.Context) error {
	raw, err := r.source.ActiveProfile(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", ppd.PropertyActiveProfile, err)
	}

	p, err := profile.Parse(raw)
	if err != nil {
		reactorLog.Warn("startup_profile_unknown", slog.String("error", err.Error()))
		return nil
	}
	reactorLog.Info("startup_profile", slog.String("profile", p.String()))

	mode, ok := r.modes.Lookup(p)
	if !ok {
		reactorLog.Warn("no_mode_configured", slog.String("profile", p.String()))
		return nil
	}

	if err := r.applier.Apply(ctx, mode); err != nil {
		return fmt.Errorf("apply startup profile %s: %w", p, err)
	}
	r.lastApplied = p
	return nil
}

// Loop processes events in arrival order until the channel closes or ctx
// is cancelled. A closed channel returns ErrSubscriptionClosed, so the
// daemon exits non-zero and the service manager restarts it.
func (r *Reactor) Loop(ctx context.Context, events <-chan ppd.Notification) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ppd.ErrSubscriptionClosed
			}
			r.Handle(ctx, n)
		}
	}
}

// Handle processes a single notification. Foreign interfaces, notifications
// without ActiveProfile and repeats of the last applied profile are
// ignored without logging.
func (r *Reactor) Handle(ctx context.Context, n ppd.Notification) {
	if n.Err != nil {
		reactorLog.Warn("signal_decode_failed", slog.String("error", n.Err.Error()))
		logging.Aggregate(logging.CompReactor, "event_rejected", slog.String("reason", "decode"))
		return
	}
	if n.Interface != ppd.Interface {
		return
	}

	raw, present, isString := n.StringProperty(ppd.PropertyActiveProfile)
	if !present {
		return
	}
	if !isString {
		reactorLog.Warn("unexpected_variant",
			slog.String("property", ppd.PropertyActiveProfile),
			slog.String("signature", n.Changed[ppd.PropertyActiveProfile].Signature().String()))
		logging.Aggregate(logging.CompReactor, "event_rejected", slog.String("reason", "type"))
		return
	}

	p, err := profile.Parse(raw)
	if err != nil {
		reactorLog.Warn("event_profile_unknown", slog.String("error", err.Error()))
		logging.Aggregate(logging.CompReactor, "event_rejected", slog.String("reason", "unknown_profile"))
		return
	}

	if p == r.lastApplied {
		return
	}

	reactorLog.Info("profile_changed",
		slog.String("from", r.lastApplied.String()),
		slog.String("to", p.String()))

	mode, ok := r.modes.Lookup(p)
	if !ok {
		reactorLog.Warn("no_mode_configured", slog.String("profile", p.String()))
		return
	}

	if err := r.applier.Apply(ctx, mode); err != nil {
		attrs := []any{
			slog.String("profile", p.String()),
			slog.String("error", err.Error()),
		}
		if kind := applyKind(err); kind != "" {
			attrs = append(attrs, slog.String("kind", kind))
		}
		reactorLog.Error("apply_mode_failed", attrs...)
		logging.Aggregate(logging.CompReactor, "apply_failed", slog.String("profile", p.String()))
		return
	}
	r.lastApplied = p
}

func applyKind(err error) string {
	var applyErr *scx.ApplyError
	if errors.As(err, &applyErr) {
		return applyErr.Kind.String()
	}
	return ""
}
