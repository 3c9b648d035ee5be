package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/gridpal/gridpal/internal/engine"
	"github.com/gridpal/gridpal/internal/metrics"
	"github.com/gridpal/gridpal/internal/state"
	"github.com/gridpal/gridpal/internal/util"
)

func TestReloadLogsDiffOnFailureAndKeepsPreviousConfig(t *testing.T) {
	initial := strings.TrimPrefix(`
grid:
  columns: 6
  rows: 4
panels:
  - name: chart
    rect: {left: 0, top: 0, width: 2, height: 2}
`, "\n")
	bad := strings.TrimPrefix(`
grid:
  columns: 0
  rows: 4
panels:
  - name: chart
    rect: {left: 0, top: 0, width: 2, height: 2}
`, "\n")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(initial), 0o600); err != nil {
		t.Fatalf("write initial config: %v", err)
	}

	var logs bytes.Buffer
	logger := util.NewLoggerWithWriter(log.InfoLevel, &logs)
	registry := state.NewRegistry()
	collector := metrics.NewCollector(false)
	eng := engine.New(logger, registry, collector, engine.Geometry{
		Columns:    6,
		Rows:       4,
		CellWidth:  96,
		CellHeight: 96,
	})

	reloader := newConfigReloader(path, logger, eng, registry, collector, []byte(initial))

	if err := os.WriteFile(path, []byte(bad), 0o600); err != nil {
		t.Fatalf("write bad config: %v", err)
	}

	err := reloader.Reload("test reason")
	if err == nil {
		t.Fatalf("expected reload error, got nil")
	}
	if !strings.Contains(err.Error(), "grid.columns") {
		t.Fatalf("expected grid.columns error, got %v", err)
	}

	logOutput := logs.String()
	if !strings.Contains(logOutput, "config change rejected; diff vs last valid config") {
		t.Fatalf("expected diff log, got %s", logOutput)
	}

	if got := eng.Geometry().Columns; got != 6 {
		t.Fatalf("geometry changed on failed reload: columns=%d", got)
	}
	if registry.Len() != 0 {
		t.Fatalf("panels registered on failed reload: %d", registry.Len())
	}
}

func TestReloadAppliesGeometryAndSeedsPanels(t *testing.T) {
	updated := strings.TrimPrefix(`
grid:
  columns: 8
  rows: 6
  cellWidth: 120
  cellHeight: 90
panels:
  - name: chart
    rect: {left: 0, top: 0, width: 2, height: 2}
  - name: feed
    rect: {left: 2, top: 0, width: 2, height: 2}
telemetry:
  enabled: true
`, "\n")

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	logger := util.NewLoggerWithWriter(log.FatalLevel, &bytes.Buffer{})
	registry := state.NewRegistry()
	collector := metrics.NewCollector(false)
	eng := engine.New(logger, registry, collector, engine.Geometry{
		Columns:    6,
		Rows:       4,
		CellWidth:  96,
		CellHeight: 96,
	})

	reloader := newConfigReloader(path, logger, eng, registry, collector, nil)
	if err := reloader.Reload("test reason"); err != nil {
		t.Fatalf("reload: %v", err)
	}

	geometry := eng.Geometry()
	if geometry.Columns != 8 || geometry.Rows != 6 || geometry.CellWidth != 120 {
		t.Fatalf("unexpected geometry after reload: %#v", geometry)
	}
	if registry.Len() != 2 {
		t.Fatalf("expected 2 panels after reload, got %d", registry.Len())
	}
	if !collector.Enabled() {
		t.Fatalf("telemetry should be enabled after reload")
	}
}
