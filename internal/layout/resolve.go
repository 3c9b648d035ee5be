package layout

import (
	"errors"
	"fmt"
)

// ErrUnresolvable signals that no valid arrangement exists for the request.
// It is an expected, recoverable outcome: the caller keeps its previous
// arrangement and waits for the next input event.
var ErrUnresolvable = errors.New("no valid arrangement")

// Placement binds an item to its current grid rectangle.
type Placement struct {
	ID   ItemID
	Rect Rect
}

// Request carries everything one resolution pass consumes. Movable order is
// significant: it decides conflict resolution, placement, and growth
// priority, and must be stable across passes for determinism.
type Request struct {
	Columns    int
	Rows       int
	CellWidth  float64
	CellHeight float64
	Sticky     []Placement
	Movable    []Placement

	// Override substitutes the desired rectangle for the item currently
	// being dragged or resized and is the identity for every other item.
	// Nil means no item is being manipulated. The returned rectangle must
	// lie within grid bounds; the resolver treats violations as caller
	// errors, not resolvable overlap.
	Override func(id ItemID, current Rect) Rect
}

// Placed is the resolved position of one item.
type Placed struct {
	Grid  Rect      `json:"grid"`
	Pixel PixelRect `json:"pixel"`
}

// Result maps every item to its final position after a successful pass.
type Result struct {
	Items map[ItemID]Placed
}

// Resolve converts the proposed, possibly conflicting placement into a
// valid non-overlapping arrangement of all items, or fails without partial
// state. Sticky items contribute occupancy but never move; movable items
// may be shrunk, relocated, and finally grown into leftover free space.
func Resolve(req Request) (*Result, error) {
	grid, err := NewOccupancy(req.Columns, req.Rows)
	if err != nil {
		return nil, err
	}

	positions := make(map[ItemID]Rect, len(req.Sticky)+len(req.Movable))
	for _, p := range req.Sticky {
		if err := checkBounds(grid, p.Rect); err != nil {
			return nil, fmt.Errorf("sticky %s: %w", p.ID, err)
		}
		free, err := grid.RegionFree(p.Rect)
		if err != nil {
			return nil, fmt.Errorf("sticky %s: %w", p.ID, err)
		}
		if !free {
			return nil, fmt.Errorf("sticky %s at %s overlaps an earlier sticky item", p.ID, p.Rect)
		}
		grid.SetRegion(p.Rect, true)
		positions[p.ID] = p.Rect
	}

	var unplaced []ItemID
	for _, p := range req.Movable {
		target := p.Rect
		if req.Override != nil {
			target = req.Override(p.ID, target)
		}
		if err := checkBounds(grid, target); err != nil {
			return nil, fmt.Errorf("movable %s: %w", p.ID, err)
		}
		fitted, ok := shrinkToFit(grid, target)
		if !ok {
			// Placeholder until the balancer and placer find it a home.
			positions[p.ID] = Rect{Left: fitted.Left, Top: fitted.Top, Width: 1, Height: 1}
			unplaced = append(unplaced, p.ID)
			continue
		}
		grid.SetRegion(fitted, true)
		positions[p.ID] = fitted
	}

	free := FreeAreas(grid)
	free, err = balanceAreas(grid, free, positions, req.Movable, unplaced)
	if err != nil {
		return nil, err
	}
	if err := placeUnplaced(grid, free, positions, unplaced); err != nil {
		return nil, err
	}
	growItems(grid, positions, req.Movable)

	result := &Result{Items: make(map[ItemID]Placed, len(positions))}
	for id, rect := range positions {
		result.Items[id] = Placed{
			Grid:  rect,
			Pixel: rect.Scale(req.CellWidth, req.CellHeight),
		}
	}
	return result, nil
}

func checkBounds(grid *Occupancy, r Rect) error {
	if r.Left < 0 || r.Top < 0 || r.Width < 1 || r.Height < 1 ||
		r.Right() > grid.Columns() || r.Bottom() > grid.Rows() {
		return fmt.Errorf("rect %s in %dx%d grid: %w", r, grid.Columns(), grid.Rows(), ErrOutOfBounds)
	}
	return nil
}

// Reduction operations applied while shrinking a blocked candidate, in
// rotation order.
type reduction int

const (
	reduceLeftInward reduction = iota
	reduceTopInward
	reduceWidth
	reduceHeight
	reductionCount
)

// shrinkToFit reduces a blocked rectangle one step at a time, rotating
// through the four reduction operations and re-testing free-ness after
// each accepted step. Steps that would make the candidate invalid (edges
// past the grid, width or height below 1) are undone and the rotation
// moves on. ok=false means the candidate degenerated to a single blocked
// cell: the item is unplaced and the returned rect is only its placeholder
// position.
func shrinkToFit(grid *Occupancy, rect Rect) (Rect, bool) {
	if free, err := grid.RegionFree(rect); err == nil && free {
		return rect, true
	}
	cand := rect
	op := reduceLeftInward
	for {
		if cand.Width == 1 && cand.Height == 1 {
			return cand, false
		}
		next := cand
		switch op {
		case reduceLeftInward:
			next.Left++
		case reduceTopInward:
			next.Top++
		case reduceWidth:
			next.Width--
		case reduceHeight:
			next.Height--
		}
		op = (op + 1) % reductionCount
		if next.Width < 1 || next.Height < 1 ||
			next.Right() > grid.Columns() || next.Bottom() > grid.Rows() {
			continue
		}
		cand = next
		if free, err := grid.RegionFree(cand); err == nil && free {
			return cand, true
		}
	}
}
