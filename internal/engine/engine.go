package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gridpal/gridpal/internal/ipc"
	"github.com/gridpal/gridpal/internal/layout"
	"github.com/gridpal/gridpal/internal/metrics"
	"github.com/gridpal/gridpal/internal/state"
)

type subscribeFunc func(ctx context.Context, logger *log.Logger) (<-chan ipc.Event, error)

const defaultHistoryLimit = 256

// Geometry describes the dashboard grid and its cell size in pixels.
type Geometry struct {
	Columns    int     `json:"columns"`
	Rows       int     `json:"rows"`
	CellWidth  float64 `json:"cellWidth"`
	CellHeight float64 `json:"cellHeight"`
}

// Engine drives resolution passes from pointer events and control
// requests. Passes are serialized: pointer notifications arrive one at a
// time and control operations take the same pass lock.
type Engine struct {
	logger   *log.Logger
	registry *state.Registry
	metrics  *metrics.Collector

	// passMu serializes resolution passes; mu guards the fields below.
	passMu sync.Mutex
	mu     sync.Mutex

	geometry    Geometry
	interaction *interaction
	history     *passHistory
	listeners   []func()

	subscribe subscribeFunc
}

// interaction tracks the panel currently being dragged or resized. Pixel
// deltas accumulate against the rectangle captured at interaction start so
// rounding never drifts.
type interaction struct {
	token  uuid.UUID
	mode   ipc.InteractionMode
	id     layout.ItemID
	name   string
	origin layout.Rect
	accumX float64
	accumY float64
}

// PassRecord captures the outcome of one resolution pass.
type PassRecord struct {
	Timestamp time.Time     `json:"timestamp"`
	Token     string        `json:"token,omitempty"`
	Kind      string        `json:"kind"`
	Target    string        `json:"target,omitempty"`
	Resolved  bool          `json:"resolved"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// PanelStatus is the externally visible position of one panel.
type PanelStatus struct {
	Name   string           `json:"name"`
	Sticky bool             `json:"sticky"`
	Grid   layout.Rect      `json:"grid"`
	Pixel  layout.PixelRect `json:"pixel"`
}

// New creates an engine over the provided registry.
func New(logger *log.Logger, registry *state.Registry, collector *metrics.Collector, geometry Geometry) *Engine {
	return &Engine{
		logger:    logger,
		registry:  registry,
		metrics:   collector,
		geometry:  geometry,
		history:   newPassHistory(defaultHistoryLimit),
		subscribe: ipc.Subscribe,
	}
}

// Geometry returns the current grid geometry.
func (e *Engine) Geometry() Geometry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.geometry
}

// SetGeometry replaces the grid geometry, ending any active interaction.
// Callers should Reconcile afterwards so existing panels are re-fitted.
func (e *Engine) SetGeometry(geometry Geometry) {
	e.mu.Lock()
	e.geometry = geometry
	e.interaction = nil
	e.mu.Unlock()
}

// OnApply registers a callback invoked after every successful pass, once
// the new positions are installed. The render layer subscribes here.
func (e *Engine) OnApply(fn func()) {
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

// Run consumes pointer events until context cancellation.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Reconcile(); err != nil {
		return fmt.Errorf("initial reconcile: %w", err)
	}
	events, err := e.subscribeEvents(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("pointer stream closed")
			}
			e.ApplyEvent(ev)
		}
	}
}

func (e *Engine) subscribeEvents(ctx context.Context) (<-chan ipc.Event, error) {
	if e.subscribe != nil {
		return e.subscribe(ctx, e.logger)
	}
	return ipc.Subscribe(ctx, e.logger)
}

// ApplyEvent feeds a single pointer event through the interaction state
// machine, exactly as Run does for a live stream.
func (e *Engine) ApplyEvent(ev ipc.Event) {
	switch ev.Kind {
	case ipc.EventDown:
		if err := e.Begin(ev.Target, ev.Mode); err != nil {
			e.logger.Warnf("ignoring %s on %q: %v", ev.Mode, ev.Target, err)
		}
	case ipc.EventDelta:
		e.PointerDelta(ev.DX, ev.DY)
	case ipc.EventUp, ipc.EventLeave:
		e.End()
	}
}

// Begin starts a move or resize interaction for the named panel, ending
// any previous interaction first.
func (e *Engine) Begin(name string, mode ipc.InteractionMode) error {
	item, ok := e.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown panel %q", name)
	}
	if item.Sticky {
		return fmt.Errorf("panel %q is sticky", name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.interaction != nil {
		e.logger.Debugf("interaction %s superseded", e.interaction.token)
	}
	e.interaction = &interaction{
		token:  uuid.New(),
		mode:   mode,
		id:     item.ID,
		name:   name,
		origin: item.Rect,
	}
	e.logger.Debugf("interaction %s started: %s %q from %s", e.interaction.token, mode, name, item.Rect)
	return nil
}

// End finishes the active interaction, if any. The last applied
// arrangement stays in place.
func (e *Engine) End() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.interaction == nil {
		return
	}
	e.logger.Debugf("interaction %s ended", e.interaction.token)
	e.interaction = nil
}

// PointerDelta folds a pointer movement into the active interaction and
// runs one resolution pass. Failed passes leave positions untouched; a
// later movement simply retries with fresher input.
func (e *Engine) PointerDelta(dx, dy float64) {
	e.mu.Lock()
	in := e.interaction
	if in == nil {
		e.mu.Unlock()
		return
	}
	in.accumX += dx
	in.accumY += dy
	geometry := e.geometry
	cellsX := int(math.Round(in.accumX / geometry.CellWidth))
	cellsY := int(math.Round(in.accumY / geometry.CellHeight))
	target := in.origin
	switch in.mode {
	case ipc.ModeMove:
		target.Left += cellsX
		target.Top += cellsY
	case ipc.ModeResize:
		target.Width += cellsX
		target.Height += cellsY
	}
	target = clampToGrid(target, geometry)
	token := in.token
	mode := in.mode
	id := in.id
	name := in.name
	e.mu.Unlock()

	e.runPass(token.String(), string(mode), name, overrideFor(id, target))
}

// clampToGrid forces the rectangle inside the grid before resolution: the
// resolver treats out-of-bounds input as a caller bug, not an overlap.
func clampToGrid(r layout.Rect, geometry Geometry) layout.Rect {
	if r.Width < 1 {
		r.Width = 1
	}
	if r.Height < 1 {
		r.Height = 1
	}
	if r.Width > geometry.Columns {
		r.Width = geometry.Columns
	}
	if r.Height > geometry.Rows {
		r.Height = geometry.Rows
	}
	if r.Left < 0 {
		r.Left = 0
	}
	if r.Top < 0 {
		r.Top = 0
	}
	if r.Right() > geometry.Columns {
		r.Left = geometry.Columns - r.Width
	}
	if r.Bottom() > geometry.Rows {
		r.Top = geometry.Rows - r.Height
	}
	return r
}

func overrideFor(id layout.ItemID, rect layout.Rect) func(layout.ItemID, layout.Rect) layout.Rect {
	return func(candidate layout.ItemID, current layout.Rect) layout.Rect {
		if candidate == id {
			return rect
		}
		return current
	}
}

// Reconcile runs a pass without an override, re-fitting the current item
// set. Used at startup and after config reloads.
func (e *Engine) Reconcile() error {
	return e.runPass("", "reconcile", "", nil)
}

// MoveItem relocates a panel to an explicit cell position in one pass.
func (e *Engine) MoveItem(name string, left, top int) error {
	item, err := e.movableItem(name)
	if err != nil {
		return err
	}
	target := item.Rect
	target.Left = left
	target.Top = top
	if err := e.checkInGrid(target); err != nil {
		return err
	}
	return e.runPass("", "move", name, overrideFor(item.ID, target))
}

// ResizeItem resizes a panel to an explicit cell size in one pass.
func (e *Engine) ResizeItem(name string, width, height int) error {
	item, err := e.movableItem(name)
	if err != nil {
		return err
	}
	target := item.Rect
	target.Width = width
	target.Height = height
	if err := e.checkInGrid(target); err != nil {
		return err
	}
	return e.runPass("", "resize", name, overrideFor(item.ID, target))
}

// AddItem registers a panel and resolves it into the arrangement. When no
// arrangement exists the registration is rolled back, leaving the
// caller-visible state unchanged.
func (e *Engine) AddItem(name string, sticky bool, rect layout.Rect) error {
	if err := e.checkInGrid(rect); err != nil {
		return err
	}
	id, err := e.registry.Register(name, sticky, rect)
	if err != nil {
		return err
	}
	if err := e.runPass("", "add", name, overrideFor(id, rect)); err != nil {
		if unregErr := e.registry.Unregister(id); unregErr != nil {
			e.logger.Errorf("rollback of %q failed: %v", name, unregErr)
		}
		return err
	}
	return nil
}

// RemoveItem unregisters a panel. Remaining panels keep their positions
// until the next pass grows them into the vacated space.
func (e *Engine) RemoveItem(name string) error {
	item, ok := e.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown panel %q", name)
	}
	e.mu.Lock()
	if e.interaction != nil && e.interaction.id == item.ID {
		e.interaction = nil
	}
	e.mu.Unlock()
	if err := e.registry.Unregister(item.ID); err != nil {
		return err
	}
	e.notify()
	return nil
}

func (e *Engine) movableItem(name string) (state.Item, error) {
	item, ok := e.registry.Lookup(name)
	if !ok {
		return state.Item{}, fmt.Errorf("unknown panel %q", name)
	}
	if item.Sticky {
		return state.Item{}, fmt.Errorf("panel %q is sticky", name)
	}
	return item, nil
}

func (e *Engine) checkInGrid(r layout.Rect) error {
	geometry := e.Geometry()
	if r.Left < 0 || r.Top < 0 || r.Width < 1 || r.Height < 1 ||
		r.Right() > geometry.Columns || r.Bottom() > geometry.Rows {
		return fmt.Errorf("rect %s outside %dx%d grid", r, geometry.Columns, geometry.Rows)
	}
	return nil
}

// runPass executes one serialized resolution pass and, on success,
// installs the new positions and notifies listeners.
func (e *Engine) runPass(token, kind, target string, override func(layout.ItemID, layout.Rect) layout.Rect) error {
	e.passMu.Lock()
	defer e.passMu.Unlock()

	geometry := e.Geometry()
	sticky, movable := e.registry.Snapshot()
	req := layout.Request{
		Columns:    geometry.Columns,
		Rows:       geometry.Rows,
		CellWidth:  geometry.CellWidth,
		CellHeight: geometry.CellHeight,
		Sticky:     sticky,
		Movable:    movable,
		Override:   override,
	}
	start := time.Now()
	result, err := layout.Resolve(req)
	duration := time.Since(start)

	record := PassRecord{
		Timestamp: start,
		Token:     token,
		Kind:      kind,
		Target:    target,
		Resolved:  err == nil,
		Duration:  duration,
	}
	if err != nil {
		record.Error = err.Error()
	}
	e.mu.Lock()
	e.history.append(record)
	e.mu.Unlock()

	if err != nil {
		e.metrics.RecordFailed(kind, duration)
		if errors.Is(err, layout.ErrUnresolvable) {
			e.logger.Debugf("%s pass for %q unresolved: %v", kind, target, err)
		} else {
			e.logger.Errorf("%s pass for %q rejected: %v", kind, target, err)
		}
		return err
	}

	rects := make(map[layout.ItemID]layout.Rect, len(result.Items))
	for id, placed := range result.Items {
		rects[id] = placed.Grid
	}
	e.registry.Apply(rects)
	e.metrics.RecordResolved(kind, duration)
	e.logger.Debugf("%s pass resolved %d items in %s", kind, len(rects), duration)
	e.notify()
	return nil
}

func (e *Engine) notify() {
	e.mu.Lock()
	listeners := append([]func(){}, e.listeners...)
	e.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Layout returns the current arrangement in registration order.
func (e *Engine) Layout() []PanelStatus {
	geometry := e.Geometry()
	items := e.registry.Items()
	statuses := make([]PanelStatus, 0, len(items))
	for _, item := range items {
		statuses = append(statuses, PanelStatus{
			Name:   item.Name,
			Sticky: item.Sticky,
			Grid:   item.Rect,
			Pixel:  item.Rect.Scale(geometry.CellWidth, geometry.CellHeight),
		})
	}
	return statuses
}

// History returns the recorded passes, oldest first.
func (e *Engine) History() []PassRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.snapshot()
}

// Metrics returns the telemetry snapshot.
func (e *Engine) Metrics() metrics.Snapshot {
	return e.metrics.Snapshot()
}
