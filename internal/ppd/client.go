// Package ppd talks to power-profiles-daemon on the system bus.
package ppd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/scx-power-sync/scx-power-sync/internal/command"
	"github.com/scx-power-sync/scx-power-sync/internal/logging"
)

const (
	BusName    = "net.hadess.PowerProfiles"
	ObjectPath = dbus.ObjectPath("/net/hadess/PowerProfiles")
	Interface  = "net.hadess.PowerProfiles"

	// PropertyActiveProfile holds the selected profile token.
	PropertyActiveProfile = "ActiveProfile"

	propertiesInterface = "org.freedesktop.DBus.Properties"
	propertiesGet       = propertiesInterface + ".Get"
	propertiesChanged   = propertiesInterface + ".PropertiesChanged"

	// CLIBinary is the power-profiles-daemon command line client used as a
	// read fallback.
	CLIBinary = "powerprofilesctl"
)

// ErrSubscriptionClosed is returned when the bus stops delivering signals.
var ErrSubscriptionClosed = errors.New("PropertiesChanged subscription closed")

var ppdLog = logging.ForComponent(logging.CompPPD)

// busConn is the part of *dbus.Conn the client uses.
type busConn interface {
	Object(dest string, path dbus.ObjectPath) dbus.BusObject
	AddMatchSignalContext(ctx context.Context, options ...dbus.MatchOption) error
	Signal(ch chan<- *dbus.Signal)
	RemoveSignal(ch chan<- *dbus.Signal)
}

// Client reads and watches the ActiveProfile property.
type Client struct {
	conn   busConn
	runner command.Runner
}

// Connect opens a connection to the system bus. Signals are delivered
// through an unbounded per-channel FIFO so that Subscribe preserves bus order
// however long the consumer takes.
func Connect(ctx context.Context) (*dbus.Conn, error) {
	conn, err := dbus.ConnectSystemBus(dbus.WithContext(ctx), dbus.WithSignalHandler(newSignalQueue()))
	if err != nil {
		return nil, fmt.Errorf("connect system D-Bus: %w", err)
	}
	return conn, nil
}

// NewClient returns a client on conn. When runner is non-nil, ActiveProfile
// falls back to "powerprofilesctl get" if the bus read fails.
func NewClient(conn busConn, runner command.Runner) *Client {
	return &Client{conn: conn, runner: runner}
}

// ActiveProfile returns the raw ActiveProfile token. The value is not parsed.
func (c *Client) ActiveProfile(ctx context.Context) (string, error) {
	raw, busErr := c.readProperty(ctx)
	if busErr == nil {
		return raw, nil
	}
	if c.runner == nil {
		return "", busErr
	}

	ppdLog.Warn("active_profile_bus_read_failed",
		slog.String("error", busErr.Error()),
		slog.String("fallback", CLIBinary))

	out, err := c.runner.Run(ctx, CLIBinary, "get")
	if err != nil {
		return "", errors.Join(busErr, err)
	}
	if !out.Success() {
		return "", errors.Join(busErr, fmt.Errorf("%s get failed (exit=%d): %s",
			CLIBinary, out.ExitCode, strings.TrimSpace(string(out.Stderr))))
	}
	return strings.TrimSpace(string(out.Stdout)), nil
}

func (c *Client) readProperty(ctx context.Context) (string, error) {
	var v dbus.Variant
	obj := c.conn.Object(BusName, ObjectPath)
	if err := obj.CallWithContext(ctx, propertiesGet, 0, Interface, PropertyActiveProfile).Store(&v); err != nil {
		return "", fmt.Errorf("read %s: %w", PropertyActiveProfile, err)
	}
	s, ok := v.Value().(string)
	if !ok {
		return "", fmt.Errorf("read %s: unexpected type %s", PropertyActiveProfile, v.Signature())
	}
	return s, nil
}

// Subscribe registers a PropertiesChanged match for the power-profiles
// object and returns its notifications. They arrive in bus order when conn
// was opened by Connect. The channel is closed when ctx is done or the
// connection goes away.
func (c *Client) Subscribe(ctx context.Context) (<-chan Notification, error) {
	err := c.conn.AddMatchSignalContext(ctx,
		dbus.WithMatchSender(BusName),
		dbus.WithMatchObjectPath(ObjectPath),
		dbus.WithMatchInterface(propertiesInterface),
		dbus.WithMatchMember("PropertiesChanged"),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe PropertiesChanged: %w", err)
	}

	raw := make(chan *dbus.Signal, 16)
	c.conn.Signal(raw)

	out := make(chan Notification)
	go c.pump(ctx, raw, out)
	return out, nil
}

// pump is the single producer for out; it forwards signals one at a time
// so the consumer sees them in delivery order.
func (c *Client) pump(ctx context.Context, raw chan *dbus.Signal, out chan<- Notification) {
	defer close(out)
	defer c.conn.RemoveSignal(raw)

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-raw:
			if !ok {
				ppdLog.Warn("signal_channel_closed")
				return
			}
			if sig.Name != propertiesChanged || sig.Path != ObjectPath {
				// NameAcquired and other bus housekeeping.
				continue
			}
			select {
			case out <- decodeSignal(sig):
			case <-ctx.Done():
				return
			}
		}
	}
}
