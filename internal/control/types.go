package control

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gridpal/gridpal/internal/engine"
	"github.com/gridpal/gridpal/internal/metrics"
)

const (
	// SocketFileName is the filename of the control socket within the runtime dir.
	SocketFileName = "control.sock"

	// Action names supported by the control protocol.
	ActionLayoutGet  = "layout.get"
	ActionItemMove   = "item.move"
	ActionItemResize = "item.resize"
	ActionItemAdd    = "item.add"
	ActionItemRemove = "item.remove"
	ActionHistoryGet = "history.get"
	ActionMetricsGet = "metrics.get"
	ActionReload     = "reload"

	// Response statuses.
	StatusOK    = "ok"
	StatusError = "error"
)

// Request represents a control API request.
type Request struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params,omitempty"`
}

// Response represents a control API response.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// LayoutStatus captures the grid geometry and every panel's current position.
type LayoutStatus struct {
	Geometry engine.Geometry      `json:"geometry"`
	Panels   []engine.PanelStatus `json:"panels"`
}

// HistoryResult carries the daemon's recent resolution passes, oldest first.
type HistoryResult struct {
	Passes []engine.PassRecord `json:"passes"`
}

// MetricsResult mirrors the daemon's pass counters.
type MetricsResult = metrics.Snapshot

// DefaultSocketPath returns the expected location of the gridpal control socket.
func DefaultSocketPath() (string, error) {
	if env := os.Getenv("GRIDPAL_CONTROL_SOCKET"); env != "" {
		return env, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	base := runtimeDir
	if base == "" {
		base = os.TempDir()
		if base == "" {
			return "", errors.New("no runtime directory available")
		}
	}
	return filepath.Join(base, "gridpal", SocketFileName), nil
}
