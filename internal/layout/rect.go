package layout

import "fmt"

// Rect is an axis-aligned rectangle in integer grid cells.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.Left + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Top + r.Height }

// Area returns the number of cells covered by the rectangle.
func (r Rect) Area() int { return r.Width * r.Height }

// Intersects reports whether two rectangles share at least one cell.
func (r Rect) Intersects(other Rect) bool {
	return r.Left < other.Right() && other.Left < r.Right() &&
		r.Top < other.Bottom() && other.Top < r.Bottom()
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d@(%d,%d)", r.Width, r.Height, r.Left, r.Top)
}

// PixelRect is a rectangle in device pixels, derived from a cell rectangle
// and the grid's cell size.
type PixelRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Scale converts the cell rectangle into device pixels.
func (r Rect) Scale(cellWidth, cellHeight float64) PixelRect {
	return PixelRect{
		X:      float64(r.Left) * cellWidth,
		Y:      float64(r.Top) * cellHeight,
		Width:  float64(r.Width) * cellWidth,
		Height: float64(r.Height) * cellHeight,
	}
}

// ItemID identifies a registered item for the duration of its registration.
// The generation distinguishes a slot's current occupant from earlier,
// unregistered ones. The zero value is never a live handle.
type ItemID struct {
	Slot int    `json:"slot"`
	Gen  uint64 `json:"gen"`
}

func (id ItemID) String() string {
	return fmt.Sprintf("item#%d.%d", id.Slot, id.Gen)
}
