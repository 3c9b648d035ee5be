package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration document.
type Config struct {
	Grid      GridConfig    `yaml:"grid"`
	Panels    []PanelConfig `yaml:"panels"`
	LogLevel  string        `yaml:"logLevel"`
	Telemetry Telemetry     `yaml:"telemetry"`
}

// GridConfig describes the dashboard grid and its cell size in pixels.
type GridConfig struct {
	Columns    int     `yaml:"columns"`
	Rows       int     `yaml:"rows"`
	CellWidth  float64 `yaml:"cellWidth"`
	CellHeight float64 `yaml:"cellHeight"`
}

// PanelConfig declares one panel and its starting rectangle in grid cells.
type PanelConfig struct {
	Name   string     `yaml:"name"`
	Sticky bool       `yaml:"sticky"`
	Rect   RectConfig `yaml:"rect"`
}

// RectConfig is a rectangle in grid cells.
type RectConfig struct {
	Left   int `yaml:"left"`
	Top    int `yaml:"top"`
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Telemetry holds the opt-in metrics collection switch.
type Telemetry struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a serialized configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Grid.Columns == 0 {
		c.Grid.Columns = 12
	}
	if c.Grid.Rows == 0 {
		c.Grid.Rows = 8
	}
	if c.Grid.CellWidth == 0 {
		c.Grid.CellWidth = 96
	}
	if c.Grid.CellHeight == 0 {
		c.Grid.CellHeight = 96
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	for i := range c.Panels {
		rect := &c.Panels[i].Rect
		if rect.Width == 0 {
			rect.Width = 1
		}
		if rect.Height == 0 {
			rect.Height = 1
		}
	}
}

// Validate performs basic sanity checks.
func (c *Config) Validate() error {
	if c.Grid.Columns < 1 {
		return fmt.Errorf("grid.columns must be at least 1, got %d", c.Grid.Columns)
	}
	if c.Grid.Rows < 1 {
		return fmt.Errorf("grid.rows must be at least 1, got %d", c.Grid.Rows)
	}
	if c.Grid.CellWidth <= 0 {
		return fmt.Errorf("grid.cellWidth must be positive, got %v", c.Grid.CellWidth)
	}
	if c.Grid.CellHeight <= 0 {
		return fmt.Errorf("grid.cellHeight must be positive, got %v", c.Grid.CellHeight)
	}
	names := map[string]struct{}{}
	for i, panel := range c.Panels {
		if panel.Name == "" {
			return fmt.Errorf("panel %d: name cannot be empty", i)
		}
		if _, exists := names[panel.Name]; exists {
			return fmt.Errorf("duplicate panel %q", panel.Name)
		}
		names[panel.Name] = struct{}{}
		if err := c.validateRect(panel.Rect); err != nil {
			return fmt.Errorf("panel %q: %w", panel.Name, err)
		}
	}
	for i := 0; i < len(c.Panels); i++ {
		if !c.Panels[i].Sticky {
			continue
		}
		for j := i + 1; j < len(c.Panels); j++ {
			if !c.Panels[j].Sticky {
				continue
			}
			if rectsOverlap(c.Panels[i].Rect, c.Panels[j].Rect) {
				return fmt.Errorf("sticky panels %q and %q overlap", c.Panels[i].Name, c.Panels[j].Name)
			}
		}
	}
	return nil
}

func (c *Config) validateRect(r RectConfig) error {
	if r.Width < 1 || r.Height < 1 {
		return fmt.Errorf("rect must be at least 1x1, got %dx%d", r.Width, r.Height)
	}
	if r.Left < 0 || r.Top < 0 {
		return fmt.Errorf("rect origin (%d,%d) cannot be negative", r.Left, r.Top)
	}
	if r.Left+r.Width > c.Grid.Columns || r.Top+r.Height > c.Grid.Rows {
		return fmt.Errorf("rect %dx%d at (%d,%d) exceeds the %dx%d grid",
			r.Width, r.Height, r.Left, r.Top, c.Grid.Columns, c.Grid.Rows)
	}
	return nil
}

func rectsOverlap(a, b RectConfig) bool {
	return a.Left < b.Left+b.Width && b.Left < a.Left+a.Width &&
		a.Top < b.Top+b.Height && b.Top < a.Top+a.Height
}
