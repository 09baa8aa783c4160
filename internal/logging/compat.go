package logging

import (
	"bytes"
	"log/slog"
	"strings"
)

// BridgeWriter is an io.Writer that forwards stdlib log output into slog,
// so libraries that call log.Printf end up in the same structured stream.
// A leading "[name] " prefix becomes the component attribute.
type BridgeWriter struct {
	component string
}

// NewBridgeWriter creates a writer that forwards writes to slog.
// defaultComponent is used when a line carries no prefix.
func NewBridgeWriter(defaultComponent string) *BridgeWriter {
	return &BridgeWriter{component: defaultComponent}
}

// Write implements io.Writer. Each write is treated as one log line.
func (bw *BridgeWriter) Write(p []byte) (int, error) {
	n := len(p)
	msg := string(bytes.TrimSpace(p))
	if msg == "" {
		return n, nil
	}
	msg = stripLogTimestamp(msg)

	component := bw.component
	if strings.HasPrefix(msg, "[") {
		if idx := strings.Index(msg, "] "); idx > 0 {
			component = canonicalComponent(strings.ToLower(msg[1:idx]))
			msg = msg[idx+2:]
		}
	}

	Logger().Info(msg, slog.String("component", component))
	return n, nil
}

// stripLogTimestamp removes the "2006/01/02 15:04:05 " prefix that the
// default stdlib logger adds, since slog records carry their own time.
func stripLogTimestamp(s string) string {
	if len(s) > 20 && s[4] == '/' && s[7] == '/' && s[10] == ' ' && s[13] == ':' && s[16] == ':' && s[19] == ' ' {
		return s[20:]
	}
	return s
}

func canonicalComponent(cat string) string {
	switch cat {
	case "dbus", "ppd", "power-profiles":
		return CompPPD
	case "scx", "scxctl":
		return CompSCX
	case "config", "fsnotify":
		return CompConfig
	case "reactor", "event":
		return CompReactor
	default:
		return cat
	}
}
