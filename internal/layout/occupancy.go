package layout

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds reports a rectangle supplied on a read path that exceeds
// the grid. Reads validate and error; writes clamp instead.
var ErrOutOfBounds = errors.New("rectangle outside grid")

// Occupancy tracks which cells of a columns×rows grid are covered by an
// item. It is built fresh for every resolution pass.
type Occupancy struct {
	columns int
	rows    int
	cells   []bool
}

// NewOccupancy creates an empty occupancy grid.
func NewOccupancy(columns, rows int) (*Occupancy, error) {
	if columns < 1 || rows < 1 {
		return nil, fmt.Errorf("grid must be at least 1x1, got %dx%d", columns, rows)
	}
	return &Occupancy{
		columns: columns,
		rows:    rows,
		cells:   make([]bool, columns*rows),
	}, nil
}

// Columns returns the horizontal cell count.
func (o *Occupancy) Columns() int { return o.columns }

// Rows returns the vertical cell count.
func (o *Occupancy) Rows() int { return o.rows }

// Clone returns an independent copy of the grid.
func (o *Occupancy) Clone() *Occupancy {
	clone := &Occupancy{
		columns: o.columns,
		rows:    o.rows,
		cells:   make([]bool, len(o.cells)),
	}
	copy(clone.cells, o.cells)
	return clone
}

func (o *Occupancy) at(x, y int) bool {
	return o.cells[y*o.columns+x]
}

// SetRegion marks every cell covered by r, clamping r to the grid bounds.
func (o *Occupancy) SetRegion(r Rect, occupied bool) {
	left := max(r.Left, 0)
	top := max(r.Top, 0)
	right := min(r.Right(), o.columns)
	bottom := min(r.Bottom(), o.rows)
	for y := top; y < bottom; y++ {
		for x := left; x < right; x++ {
			o.cells[y*o.columns+x] = occupied
		}
	}
}

// RegionFree reports whether every cell covered by r is unoccupied. A
// rectangle extending outside the grid is a caller error.
func (o *Occupancy) RegionFree(r Rect) (bool, error) {
	if r.Left < 0 || r.Top < 0 || r.Width < 1 || r.Height < 1 ||
		r.Right() > o.columns || r.Bottom() > o.rows {
		return false, fmt.Errorf("region %s in %dx%d grid: %w", r, o.columns, o.rows, ErrOutOfBounds)
	}
	for y := r.Top; y < r.Bottom(); y++ {
		for x := r.Left; x < r.Right(); x++ {
			if o.cells[y*o.columns+x] {
				return false, nil
			}
		}
	}
	return true, nil
}
