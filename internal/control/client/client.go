package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gridpal/gridpal/internal/control"
)

const (
	// defaultTimeout is used when the caller does not provide a context deadline.
	defaultTimeout = 3 * time.Second
)

// Client talks to the running gridpal daemon over its control socket.
type Client struct {
	socketPath string
}

type (
	// LayoutStatus captures the grid geometry and every panel's position.
	LayoutStatus = control.LayoutStatus
	// HistoryResult carries the daemon's recent resolution passes.
	HistoryResult = control.HistoryResult
	// MetricsResult mirrors the daemon's pass counters.
	MetricsResult = control.MetricsResult
)

// New creates a client that connects to the provided socket path. When path is
// empty, the default runtime path is used.
func New(path string) (*Client, error) {
	if path == "" {
		var err error
		path, err = control.DefaultSocketPath()
		if err != nil {
			return nil, err
		}
	}
	return &Client{socketPath: path}, nil
}

// Layout retrieves the daemon's grid geometry and panel positions.
func (c *Client) Layout(ctx context.Context) (LayoutStatus, error) {
	var status LayoutStatus
	if err := c.do(ctx, control.Request{Action: control.ActionLayoutGet}, &status); err != nil {
		return LayoutStatus{}, err
	}
	return status, nil
}

// MoveItem asks the daemon to move the named panel to a new cell origin.
func (c *Client) MoveItem(ctx context.Context, name string, left, top int) error {
	if name == "" {
		return errors.New("item name cannot be empty")
	}
	payload := control.Request{Action: control.ActionItemMove, Params: map[string]any{
		"name": name,
		"left": left,
		"top":  top,
	}}
	return c.do(ctx, payload, nil)
}

// ResizeItem asks the daemon to resize the named panel to a new cell span.
func (c *Client) ResizeItem(ctx context.Context, name string, width, height int) error {
	if name == "" {
		return errors.New("item name cannot be empty")
	}
	payload := control.Request{Action: control.ActionItemResize, Params: map[string]any{
		"name":   name,
		"width":  width,
		"height": height,
	}}
	return c.do(ctx, payload, nil)
}

// AddItem registers a new panel with the daemon at the requested cells.
func (c *Client) AddItem(ctx context.Context, name string, sticky bool, left, top, width, height int) error {
	if name == "" {
		return errors.New("item name cannot be empty")
	}
	payload := control.Request{Action: control.ActionItemAdd, Params: map[string]any{
		"name":   name,
		"sticky": sticky,
		"left":   left,
		"top":    top,
		"width":  width,
		"height": height,
	}}
	return c.do(ctx, payload, nil)
}

// RemoveItem unregisters the named panel from the daemon.
func (c *Client) RemoveItem(ctx context.Context, name string) error {
	if name == "" {
		return errors.New("item name cannot be empty")
	}
	payload := control.Request{Action: control.ActionItemRemove, Params: map[string]any{"name": name}}
	return c.do(ctx, payload, nil)
}

// History retrieves the daemon's recent resolution passes, oldest first.
func (c *Client) History(ctx context.Context) (HistoryResult, error) {
	var result HistoryResult
	if err := c.do(ctx, control.Request{Action: control.ActionHistoryGet}, &result); err != nil {
		return HistoryResult{}, err
	}
	return result, nil
}

// Metrics retrieves the daemon's pass counters.
func (c *Client) Metrics(ctx context.Context) (MetricsResult, error) {
	var result MetricsResult
	if err := c.do(ctx, control.Request{Action: control.ActionMetricsGet}, &result); err != nil {
		return MetricsResult{}, err
	}
	return result, nil
}

// Reload asks the daemon to reload its configuration.
func (c *Client) Reload(ctx context.Context) error {
	return c.do(ctx, control.Request{Action: control.ActionReload}, nil)
}

func (c *Client) do(ctx context.Context, req control.Request, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return fmt.Errorf("dial control socket: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	var resp control.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != control.StatusOK {
		if resp.Error == "" {
			resp.Error = "unknown control error"
		}
		return errors.New(resp.Error)
	}
	if out == nil || resp.Data == nil {
		return nil
	}
	data, err := json.Marshal(resp.Data)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
