package ppd

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

// Notification is one decoded PropertiesChanged signal.
type Notification struct {
	// Interface is the interface whose properties changed.
	Interface string

	// Changed maps property names to their new values.
	Changed map[string]dbus.Variant

	// Err is set when the signal body could not be decoded; the other
	// fields are then empty.
	Err error
}

// decodeSignal unpacks the (sa{sv}as) body of PropertiesChanged.
func decodeSignal(sig *dbus.Signal) Notification {
	if len(sig.Body) < 2 {
		return Notification{Err: fmt.Errorf("PropertiesChanged body has %d fields, want 3", len(sig.Body))}
	}
	iface, ok := sig.Body[0].(string)
	if !ok {
		return Notification{Err: fmt.Errorf("PropertiesChanged interface has type %T", sig.Body[0])}
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return Notification{Err: fmt.Errorf("PropertiesChanged changed_properties has type %T", sig.Body[1])}
	}
	return Notification{Interface: iface, Changed: changed}
}

// StringProperty looks up name in n.Changed. present is false when the
// property did not change; ok is false when it changed to a non-string value.
func (n Notification) StringProperty(name string) (value string, present, ok bool) {
	v, found := n.Changed[name]
	if !found {
		return "", false, false
	}
	value, ok = v.Value().(string)
	return value, true, ok
}
