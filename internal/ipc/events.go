package ipc

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// EventKind identifies a pointer notification type.
type EventKind string

const (
	// EventDown starts an interaction: payload is "panel,mode" where mode
	// is move or resize.
	EventDown EventKind = "down"
	// EventDelta carries a pointer movement: payload is "dx,dy" in pixels.
	EventDelta EventKind = "delta"
	// EventUp ends the active interaction.
	EventUp EventKind = "up"
	// EventLeave ends the active interaction because the pointer left the
	// surface.
	EventLeave EventKind = "leave"
)

// InteractionMode distinguishes moving a panel from resizing it.
type InteractionMode string

const (
	ModeMove   InteractionMode = "move"
	ModeResize InteractionMode = "resize"
)

// Event is one pointer notification from the input source.
type Event struct {
	Kind   EventKind
	Target string
	Mode   InteractionMode
	DX     float64
	DY     float64
}

// Subscribe connects to the pointer event socket and streams events until
// context cancellation. Lines the source emits look like
// "down>>chart,move", "delta>>12.5,-3", "up>>".
func Subscribe(ctx context.Context, logger *log.Logger) (<-chan Event, error) {
	socket, err := eventSocketPath()
	if err != nil {
		return nil, err
	}
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("connect pointer socket: %w", err)
	}
	events := make(chan Event)
	go func() {
		defer close(events)
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			ev, err := ParseEvent(scanner.Text())
			if err != nil {
				logger.Warnf("discarding pointer event: %v", err)
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			logger.Warnf("pointer stream error: %v", err)
		}
	}()
	return events, nil
}

// ParseEvent decodes one line of the pointer wire format.
func ParseEvent(line string) (Event, error) {
	parts := strings.SplitN(line, ">>", 2)
	payload := ""
	if len(parts) == 2 {
		payload = parts[1]
	}
	switch EventKind(parts[0]) {
	case EventDown:
		fields := strings.SplitN(payload, ",", 2)
		if len(fields) != 2 || fields[0] == "" {
			return Event{}, fmt.Errorf("malformed down payload %q", payload)
		}
		mode := InteractionMode(fields[1])
		if mode != ModeMove && mode != ModeResize {
			return Event{}, fmt.Errorf("unknown interaction mode %q", fields[1])
		}
		return Event{Kind: EventDown, Target: fields[0], Mode: mode}, nil
	case EventDelta:
		fields := strings.SplitN(payload, ",", 2)
		if len(fields) != 2 {
			return Event{}, fmt.Errorf("malformed delta payload %q", payload)
		}
		dx, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return Event{}, fmt.Errorf("delta dx: %w", err)
		}
		dy, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Event{}, fmt.Errorf("delta dy: %w", err)
		}
		return Event{Kind: EventDelta, DX: dx, DY: dy}, nil
	case EventUp:
		return Event{Kind: EventUp}, nil
	case EventLeave:
		return Event{Kind: EventLeave}, nil
	default:
		return Event{}, fmt.Errorf("unknown event kind %q", parts[0])
	}
}

func eventSocketPath() (string, error) {
	if env := os.Getenv("GRIDPAL_POINTER_SOCKET"); env != "" {
		return env, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", fmt.Errorf("XDG_RUNTIME_DIR not set")
	}
	return filepath.Join(runtimeDir, "gridpal", "pointer.sock"), nil
}
