package config

import (
	"strings"
	"testing"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("panels:\n  - name: clock\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Grid.Columns != 12 || cfg.Grid.Rows != 8 {
		t.Fatalf("expected default 12x8 grid, got %dx%d", cfg.Grid.Columns, cfg.Grid.Rows)
	}
	if cfg.Grid.CellWidth != 96 || cfg.Grid.CellHeight != 96 {
		t.Fatalf("expected default 96px cells, got %vx%v", cfg.Grid.CellWidth, cfg.Grid.CellHeight)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %q", cfg.LogLevel)
	}
	if rect := cfg.Panels[0].Rect; rect.Width != 1 || rect.Height != 1 {
		t.Fatalf("expected panel rect to default to 1x1, got %dx%d", rect.Width, rect.Height)
	}
}

func TestParseFullDocument(t *testing.T) {
	doc := `
grid:
  columns: 6
  rows: 4
  cellWidth: 120
  cellHeight: 80
panels:
  - name: header
    sticky: true
    rect: {left: 0, top: 0, width: 6, height: 1}
  - name: chart
    rect: {left: 0, top: 1, width: 3, height: 3}
logLevel: debug
telemetry:
  enabled: true
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Panels) != 2 {
		t.Fatalf("expected 2 panels, got %d", len(cfg.Panels))
	}
	if !cfg.Panels[0].Sticky || cfg.Panels[1].Sticky {
		t.Fatalf("unexpected sticky flags: %+v", cfg.Panels)
	}
	if !cfg.Telemetry.Enabled {
		t.Fatalf("expected telemetry to be enabled")
	}
}

func TestValidateRejectsBadDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "duplicate panel",
			doc:  "panels:\n  - name: a\n  - name: a\n",
			want: "duplicate panel",
		},
		{
			name: "empty panel name",
			doc:  "panels:\n  - rect: {width: 1, height: 1}\n",
			want: "name cannot be empty",
		},
		{
			name: "rect outside grid",
			doc:  "grid: {columns: 4, rows: 4}\npanels:\n  - name: a\n    rect: {left: 3, top: 0, width: 2, height: 1}\n",
			want: "exceeds",
		},
		{
			name: "negative origin",
			doc:  "panels:\n  - name: a\n    rect: {left: -1, top: 0, width: 1, height: 1}\n",
			want: "negative",
		},
		{
			name: "overlapping sticky panels",
			doc: "panels:\n" +
				"  - name: a\n    sticky: true\n    rect: {left: 0, top: 0, width: 2, height: 2}\n" +
				"  - name: b\n    sticky: true\n    rect: {left: 1, top: 1, width: 2, height: 2}\n",
			want: "overlap",
		},
		{
			name: "negative columns",
			doc:  "grid: {columns: -3}\n",
			want: "grid.columns",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if err == nil {
				t.Fatalf("expected error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestDiffSerialized(t *testing.T) {
	prev := []byte("grid:\n  columns: 4\n")
	curr := []byte("grid:\n  columns: 6\n")
	if diff := DiffSerialized(prev, curr); diff == "" {
		t.Fatalf("expected non-empty diff for changed payloads")
	}
	if diff := DiffSerialized(prev, prev); diff != "" {
		t.Fatalf("expected empty diff for identical payloads, got %q", diff)
	}
}
