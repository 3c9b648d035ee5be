package layout

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testID(slot int) ItemID {
	return ItemID{Slot: slot, Gen: 1}
}

// checkArrangement verifies the invariants every successful resolution must
// hold: pairwise disjoint rectangles, all inside the grid, none degenerate.
func checkArrangement(t *testing.T, req Request, res *Result) {
	t.Helper()
	type placed struct {
		id   ItemID
		rect Rect
	}
	var all []placed
	for id, p := range res.Items {
		all = append(all, placed{id, p.Grid})
	}
	for _, p := range all {
		if p.rect.Width < 1 || p.rect.Height < 1 {
			t.Fatalf("item %s has degenerate rect %s", p.id, p.rect)
		}
		if p.rect.Left < 0 || p.rect.Top < 0 || p.rect.Right() > req.Columns || p.rect.Bottom() > req.Rows {
			t.Fatalf("item %s rect %s outside %dx%d grid", p.id, p.rect, req.Columns, req.Rows)
		}
	}
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if all[i].rect.Intersects(all[j].rect) {
				t.Fatalf("items %s and %s overlap: %s vs %s", all[i].id, all[j].id, all[i].rect, all[j].rect)
			}
		}
	}
}

func overrideFor(id ItemID, rect Rect) func(ItemID, Rect) Rect {
	return func(candidate ItemID, current Rect) Rect {
		if candidate == id {
			return rect
		}
		return current
	}
}

func TestResolveDragOntoStickyRelocates(t *testing.T) {
	// 4x4 grid, sticky blocks at (0,0,2,2) and (2,2,2,2); the dragged item
	// requests the first sticky block's exact position and must end up in
	// the free L-shaped region instead.
	active := testID(3)
	req := Request{
		Columns: 4, Rows: 4, CellWidth: 100, CellHeight: 50,
		Sticky: []Placement{
			{ID: testID(1), Rect: Rect{Left: 0, Top: 0, Width: 2, Height: 2}},
			{ID: testID(2), Rect: Rect{Left: 2, Top: 2, Width: 2, Height: 2}},
		},
		Movable:  []Placement{{ID: active, Rect: Rect{Left: 2, Top: 0, Width: 2, Height: 2}}},
		Override: overrideFor(active, Rect{Left: 0, Top: 0, Width: 2, Height: 2}),
	}
	res, err := Resolve(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkArrangement(t, req, res)
	got := res.Items[active].Grid
	if got.Intersects(Rect{Left: 0, Top: 0, Width: 2, Height: 2}) {
		t.Fatalf("active item still overlaps sticky block: %s", got)
	}
	if want := (Rect{Left: 2, Top: 0, Width: 2, Height: 2}); got != want {
		t.Fatalf("expected active item at %s, got %s", want, got)
	}
	if pixel := res.Items[active].Pixel; pixel.X != 200 || pixel.Width != 200 || pixel.Height != 100 {
		t.Fatalf("unexpected pixel rect %+v", pixel)
	}
}

func TestResolveThreeItemsContendForTinyGrid(t *testing.T) {
	// 2x2 grid, three movable items all requesting the full grid. The
	// balancer must carve the first item's area so all three fit.
	full := Rect{Left: 0, Top: 0, Width: 2, Height: 2}
	req := Request{
		Columns: 2, Rows: 2, CellWidth: 1, CellHeight: 1,
		Movable: []Placement{
			{ID: testID(1), Rect: full},
			{ID: testID(2), Rect: full},
			{ID: testID(3), Rect: full},
		},
	}
	res, err := Resolve(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkArrangement(t, req, res)
	total := 0
	for _, p := range res.Items {
		total += p.Grid.Area()
	}
	if total != 4 {
		t.Fatalf("expected the three items to cover all 4 cells, covered %d", total)
	}
}

func TestResolveFailsWhenGridTooSmall(t *testing.T) {
	cell := Rect{Left: 0, Top: 0, Width: 1, Height: 1}
	req := Request{
		Columns: 1, Rows: 1, CellWidth: 1, CellHeight: 1,
		Movable: []Placement{
			{ID: testID(1), Rect: cell},
			{ID: testID(2), Rect: cell},
		},
	}
	if _, err := Resolve(req); !errors.Is(err, ErrUnresolvable) {
		t.Fatalf("expected ErrUnresolvable, got %v", err)
	}
}

func TestResolveFailsWhenStickyFillsGrid(t *testing.T) {
	req := Request{
		Columns: 10, Rows: 10, CellWidth: 1, CellHeight: 1,
		Sticky:  []Placement{{ID: testID(1), Rect: Rect{Left: 0, Top: 0, Width: 10, Height: 10}}},
		Movable: []Placement{{ID: testID(2), Rect: Rect{Left: 3, Top: 3, Width: 2, Height: 2}}},
	}
	if _, err := Resolve(req); !errors.Is(err, ErrUnresolvable) {
		t.Fatalf("expected ErrUnresolvable, got %v", err)
	}
}

func TestResolveRejectsOutOfBoundsOverride(t *testing.T) {
	active := testID(1)
	req := Request{
		Columns: 4, Rows: 4, CellWidth: 1, CellHeight: 1,
		Movable:  []Placement{{ID: active, Rect: Rect{Left: 0, Top: 0, Width: 2, Height: 2}}},
		Override: overrideFor(active, Rect{Left: 3, Top: 3, Width: 2, Height: 2}),
	}
	if _, err := Resolve(req); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestResolveRejectsOverlappingStickyItems(t *testing.T) {
	req := Request{
		Columns: 4, Rows: 4, CellWidth: 1, CellHeight: 1,
		Sticky: []Placement{
			{ID: testID(1), Rect: Rect{Left: 0, Top: 0, Width: 2, Height: 2}},
			{ID: testID(2), Rect: Rect{Left: 1, Top: 1, Width: 2, Height: 2}},
		},
	}
	if _, err := Resolve(req); err == nil {
		t.Fatalf("expected overlapping sticky items to be rejected")
	}
}

func TestResolveGrowsIntoLeftoverSpace(t *testing.T) {
	req := Request{
		Columns: 3, Rows: 3, CellWidth: 1, CellHeight: 1,
		Movable: []Placement{{ID: testID(1), Rect: Rect{Left: 1, Top: 1, Width: 1, Height: 1}}},
	}
	res, err := Resolve(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkArrangement(t, req, res)
	got := res.Items[testID(1)].Grid
	if want := (Rect{Left: 0, Top: 0, Width: 3, Height: 3}); got != want {
		t.Fatalf("expected lone item to grow to the full grid, got %s", got)
	}
}

func TestResolveGrowthNeverShrinks(t *testing.T) {
	// Two items side by side with slack below: both should keep at least
	// their requested area after growth.
	req := Request{
		Columns: 4, Rows: 4, CellWidth: 1, CellHeight: 1,
		Movable: []Placement{
			{ID: testID(1), Rect: Rect{Left: 0, Top: 0, Width: 2, Height: 2}},
			{ID: testID(2), Rect: Rect{Left: 2, Top: 0, Width: 2, Height: 2}},
		},
	}
	res, err := Resolve(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkArrangement(t, req, res)
	for _, p := range req.Movable {
		if got := res.Items[p.ID].Grid.Area(); got < p.Rect.Area() {
			t.Fatalf("item %s shrank during growth: %d < %d", p.ID, got, p.Rect.Area())
		}
	}
}

func TestResolveIdempotentWithoutInputChange(t *testing.T) {
	req := Request{
		Columns: 6, Rows: 4, CellWidth: 10, CellHeight: 10,
		Sticky: []Placement{{ID: testID(1), Rect: Rect{Left: 0, Top: 0, Width: 2, Height: 4}}},
		Movable: []Placement{
			{ID: testID(2), Rect: Rect{Left: 2, Top: 0, Width: 2, Height: 2}},
			{ID: testID(3), Rect: Rect{Left: 4, Top: 2, Width: 2, Height: 2}},
		},
	}
	first, err := Resolve(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	checkArrangement(t, req, first)

	again := req
	again.Movable = nil
	for _, p := range req.Movable {
		again.Movable = append(again.Movable, Placement{ID: p.ID, Rect: first.Items[p.ID].Grid})
	}
	second, err := Resolve(again)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(first.Items, second.Items); diff != "" {
		t.Fatalf("arrangement changed without input change (-first +second):\n%s", diff)
	}
}

func TestResolveDeterministic(t *testing.T) {
	req := Request{
		Columns: 5, Rows: 5, CellWidth: 1, CellHeight: 1,
		Movable: []Placement{
			{ID: testID(1), Rect: Rect{Left: 0, Top: 0, Width: 3, Height: 3}},
			{ID: testID(2), Rect: Rect{Left: 1, Top: 1, Width: 3, Height: 3}},
			{ID: testID(3), Rect: Rect{Left: 2, Top: 2, Width: 3, Height: 3}},
		},
	}
	first, err := Resolve(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Resolve(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(first.Items, second.Items); diff != "" {
		t.Fatalf("identical requests resolved differently (-first +second):\n%s", diff)
	}
}

func TestShrinkToFitPrefersReductionOrder(t *testing.T) {
	// A single occupied cell at the candidate's top-left corner: the first
	// accepted reduction (left edge inward) already frees the rect.
	grid := mustOccupancy(t, 4, 2)
	grid.SetRegion(Rect{Left: 0, Top: 0, Width: 1, Height: 2}, true)
	fitted, ok := shrinkToFit(grid, Rect{Left: 0, Top: 0, Width: 3, Height: 2})
	if !ok {
		t.Fatalf("expected candidate to fit after reduction")
	}
	if want := (Rect{Left: 1, Top: 0, Width: 3, Height: 2}); fitted != want {
		t.Fatalf("expected %s, got %s", want, fitted)
	}
}

func TestShrinkToFitDegeneratesToUnplaced(t *testing.T) {
	grid := mustOccupancy(t, 2, 2)
	grid.SetRegion(Rect{Left: 0, Top: 0, Width: 2, Height: 2}, true)
	if _, ok := shrinkToFit(grid, Rect{Left: 0, Top: 0, Width: 2, Height: 2}); ok {
		t.Fatalf("expected fully blocked candidate to be unplaced")
	}
}

func TestSplitLongestFavorsWidthOnTies(t *testing.T) {
	first, second := splitLongest(Rect{Left: 0, Top: 0, Width: 3, Height: 3})
	if first.Width != 2 || second.Width != 1 {
		t.Fatalf("expected ceil/floor width split, got %s and %s", first, second)
	}
	if first.Height != 3 || second.Height != 3 {
		t.Fatalf("expected split along width only, got %s and %s", first, second)
	}
	if second.Left != 2 {
		t.Fatalf("expected second half to start after the first, got %s", second)
	}
}
