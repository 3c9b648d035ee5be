package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gridpal/gridpal/internal/config"
	"github.com/gridpal/gridpal/internal/engine"
	"github.com/gridpal/gridpal/internal/ipc"
	"github.com/gridpal/gridpal/internal/layout"
	"github.com/gridpal/gridpal/internal/metrics"
	"github.com/gridpal/gridpal/internal/state"
	"github.com/gridpal/gridpal/internal/util"
)

// smoke loads a config, runs one reconcile plus a scripted drag against an
// in-process engine, and prints every intermediate layout. Useful for
// eyeballing resolver behavior without a live pointer source.
func main() {
	home, _ := os.UserHomeDir()
	defaultConfig := filepath.Join(home, ".config", "gridpal", "config.yaml")

	cfgPath := flag.String("config", defaultConfig, "path to YAML config")
	logLevel := flag.String("log-level", "info", "log level (debug|info|warn|error)")
	panel := flag.String("panel", "", "panel to drag (defaults to the first movable panel)")
	cells := flag.Int("cells", 2, "how many cells to drag the panel rightward")
	flag.Parse()

	logger := util.NewLogger(util.ParseLogLevel(*logLevel))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		exitErr(fmt.Errorf("load config: %w", err))
	}

	fmt.Printf("Loaded config from %s\n", *cfgPath)
	fmt.Println("\n=== Configuration ===")
	if err := marshalYAML(cfg); err != nil {
		logger.Warnf("failed to print config: %v", err)
	}

	registry := state.NewRegistry()
	target := *panel
	for _, p := range cfg.Panels {
		rect := layout.Rect{
			Left:   p.Rect.Left,
			Top:    p.Rect.Top,
			Width:  p.Rect.Width,
			Height: p.Rect.Height,
		}
		if _, err := registry.Register(p.Name, p.Sticky, rect); err != nil {
			exitErr(fmt.Errorf("register panel %q: %w", p.Name, err))
		}
		if target == "" && !p.Sticky {
			target = p.Name
		}
	}

	eng := engine.New(logger, registry, metrics.NewCollector(true), engine.Geometry{
		Columns:    cfg.Grid.Columns,
		Rows:       cfg.Grid.Rows,
		CellWidth:  cfg.Grid.CellWidth,
		CellHeight: cfg.Grid.CellHeight,
	})

	if err := eng.Reconcile(); err != nil {
		exitErr(fmt.Errorf("initial reconcile: %w", err))
	}
	fmt.Println("\n=== Layout After Reconcile ===")
	printLayout(eng)

	if target == "" {
		fmt.Println("\nNo movable panel to drag.")
		return
	}

	fmt.Printf("\nDragging %s %d cell(s) rightward\n", target, *cells)
	eng.ApplyEvent(ipc.Event{Kind: ipc.EventDown, Target: target, Mode: ipc.ModeMove})
	for i := 0; i < *cells; i++ {
		eng.ApplyEvent(ipc.Event{Kind: ipc.EventDelta, DX: cfg.Grid.CellWidth, DY: 0})
		fmt.Printf("\n=== Layout After Step %d ===\n", i+1)
		printLayout(eng)
	}
	eng.ApplyEvent(ipc.Event{Kind: ipc.EventUp})

	fmt.Println("\n=== Pass History ===")
	for _, pass := range eng.History() {
		status := "resolved"
		if !pass.Resolved {
			status = "failed"
		}
		fmt.Printf("[%s] %-9s %s (%s)", pass.Timestamp.Format(time.RFC3339), pass.Kind, status, pass.Duration)
		if pass.Target != "" {
			fmt.Printf(" target=%s", pass.Target)
		}
		if pass.Error != "" {
			fmt.Printf(" error=%s", pass.Error)
		}
		fmt.Println()
	}

	fmt.Println("\n=== Metrics ===")
	if err := marshalJSON(eng.Metrics()); err != nil {
		logger.Warnf("failed to print metrics: %v", err)
	}
}

func printLayout(eng *engine.Engine) {
	for _, panel := range eng.Layout() {
		marker := ""
		if panel.Sticky {
			marker = " (sticky)"
		}
		fmt.Printf("  %s%s: %s\n", panel.Name, marker, panel.Grid)
	}
}

func exitErr(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func marshalYAML(v any) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}

func marshalJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
