package layout

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFreeAreasEmptyGrid(t *testing.T) {
	grid := mustOccupancy(t, 5, 3)
	areas := FreeAreas(grid)
	want := []Rect{{Left: 0, Top: 0, Width: 5, Height: 3}}
	if diff := cmp.Diff(want, areas); diff != "" {
		t.Fatalf("unexpected areas (-want +got):\n%s", diff)
	}
}

func TestFreeAreasFullGrid(t *testing.T) {
	grid := mustOccupancy(t, 3, 3)
	grid.SetRegion(Rect{Left: 0, Top: 0, Width: 3, Height: 3}, true)
	if areas := FreeAreas(grid); len(areas) != 0 {
		t.Fatalf("expected no free areas, got %v", areas)
	}
}

func TestFreeAreasLShape(t *testing.T) {
	// Sticky blocks at (0,0,2,2) and (2,2,2,2) leave an L of two 2x2 areas.
	grid := mustOccupancy(t, 4, 4)
	grid.SetRegion(Rect{Left: 0, Top: 0, Width: 2, Height: 2}, true)
	grid.SetRegion(Rect{Left: 2, Top: 2, Width: 2, Height: 2}, true)
	areas := FreeAreas(grid)
	want := []Rect{
		{Left: 2, Top: 0, Width: 2, Height: 2},
		{Left: 0, Top: 2, Width: 2, Height: 2},
	}
	if diff := cmp.Diff(want, areas); diff != "" {
		t.Fatalf("unexpected areas (-want +got):\n%s", diff)
	}
}

func TestFreeAreasLargestFirst(t *testing.T) {
	// One occupied cell at (0,0) splits a 3x2 grid into a 2x2 column block
	// and the cell below the occupied one.
	grid := mustOccupancy(t, 3, 2)
	grid.SetRegion(Rect{Left: 0, Top: 0, Width: 1, Height: 1}, true)
	areas := FreeAreas(grid)
	if len(areas) == 0 {
		t.Fatalf("expected free areas")
	}
	first := areas[0]
	if first.Area() != 4 {
		t.Fatalf("expected largest area 4 first, got %s", first)
	}
	for i := 1; i < len(areas); i++ {
		if areas[i].Area() > first.Area() {
			t.Fatalf("area %s discovered after smaller %s", areas[i], first)
		}
	}
	total := 0
	for _, a := range areas {
		total += a.Area()
	}
	if total != 5 {
		t.Fatalf("expected areas to cover the 5 free cells, covered %d", total)
	}
}

func TestFreeAreasTieBreaksRowMajor(t *testing.T) {
	// Two disjoint single cells: the earlier one in row-major order wins.
	grid := mustOccupancy(t, 3, 1)
	grid.SetRegion(Rect{Left: 1, Top: 0, Width: 1, Height: 1}, true)
	areas := FreeAreas(grid)
	want := []Rect{
		{Left: 0, Top: 0, Width: 1, Height: 1},
		{Left: 2, Top: 0, Width: 1, Height: 1},
	}
	if diff := cmp.Diff(want, areas); diff != "" {
		t.Fatalf("unexpected areas (-want +got):\n%s", diff)
	}
}
