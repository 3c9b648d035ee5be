package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/gridpal/gridpal/internal/config"
	"github.com/gridpal/gridpal/internal/engine"
	"github.com/gridpal/gridpal/internal/layout"
	"github.com/gridpal/gridpal/internal/metrics"
	"github.com/gridpal/gridpal/internal/state"
)

type configReloader struct {
	path           string
	logger         *log.Logger
	engine         *engine.Engine
	registry       *state.Registry
	metrics        *metrics.Collector
	lastSerialized []byte
}

func newConfigReloader(path string, logger *log.Logger, eng *engine.Engine, registry *state.Registry, collector *metrics.Collector, serialized []byte) *configReloader {
	return &configReloader{
		path:           path,
		logger:         logger,
		engine:         eng,
		registry:       registry,
		metrics:        collector,
		lastSerialized: append([]byte(nil), serialized...),
	}
}

// Reload re-reads the config file and applies it to the running engine.
// Panels added at runtime through the control API survive a reload; only
// panels declared in the file are (re)registered.
func (r *configReloader) Reload(reason string) error {
	r.logger.Infof("%s, reloading config", reason)
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	cfg, err := config.Parse(raw)
	if err != nil {
		r.logDiff(raw)
		return err
	}

	r.engine.SetGeometry(engine.Geometry{
		Columns:    cfg.Grid.Columns,
		Rows:       cfg.Grid.Rows,
		CellWidth:  cfg.Grid.CellWidth,
		CellHeight: cfg.Grid.CellHeight,
	})
	if r.metrics != nil {
		r.metrics.SetEnabled(cfg.Telemetry.Enabled)
	}
	if err := seedPanels(r.registry, cfg); err != nil {
		return fmt.Errorf("register panels: %w", err)
	}
	if err := r.engine.Reconcile(); err != nil {
		if errors.Is(err, layout.ErrUnresolvable) {
			return fmt.Errorf("reconcile after reload: %w", err)
		}
		return err
	}

	r.lastSerialized = append([]byte(nil), raw...)
	return nil
}

func (r *configReloader) logDiff(current []byte) {
	diff := config.DiffSerialized(r.lastSerialized, current)
	if diff == "" {
		r.logger.Warnf("config change rejected; unable to compute diff vs last valid config")
		return
	}
	r.logger.Warnf("config change rejected; diff vs last valid config:\n%s", diff)
}

// seedPanels registers every configured panel that is not already present.
func seedPanels(registry *state.Registry, cfg *config.Config) error {
	for _, panel := range cfg.Panels {
		if _, ok := registry.Lookup(panel.Name); ok {
			continue
		}
		rect := layout.Rect{
			Left:   panel.Rect.Left,
			Top:    panel.Rect.Top,
			Width:  panel.Rect.Width,
			Height: panel.Rect.Height,
		}
		if _, err := registry.Register(panel.Name, panel.Sticky, rect); err != nil {
			return fmt.Errorf("panel %q: %w", panel.Name, err)
		}
	}
	return nil
}
