package layout

// Growth directions, in rotation order.
type growDirection int

const (
	growLeft growDirection = iota
	growTop
	growRight
	growBottom
	growDirectionCount
)

// growState tracks one item's rotation position and which directions are
// permanently exhausted for the rest of the pass.
type growState struct {
	next      growDirection
	exhausted [growDirectionCount]bool
}

func (s *growState) nextDirection() (growDirection, bool) {
	for i := growDirection(0); i < growDirectionCount; i++ {
		d := (s.next + i) % growDirectionCount
		if !s.exhausted[d] {
			s.next = (d + 1) % growDirectionCount
			return d, true
		}
	}
	return 0, false
}

// growItems expands every movable item outward one cell at a time until no
// item can grow in any direction. Each item advances one direction per
// round; accepted steps update the grid immediately, so growth is greedy
// and items earlier in the enumeration order win contested cells.
func growItems(grid *Occupancy, positions map[ItemID]Rect, movable []Placement) {
	states := make([]growState, len(movable))
	for {
		active := false
		for i, p := range movable {
			dir, ok := states[i].nextDirection()
			if !ok {
				continue
			}
			active = true
			rect := positions[p.ID]
			strip, grown := growStep(rect, dir)
			free, err := grid.RegionFree(strip)
			if err != nil || !free {
				states[i].exhausted[dir] = true
				continue
			}
			grid.SetRegion(strip, true)
			positions[p.ID] = grown
		}
		if !active {
			return
		}
	}
}

// growStep returns the one-cell strip a growth step would newly cover and
// the grown rectangle.
func growStep(r Rect, dir growDirection) (strip, grown Rect) {
	grown = r
	switch dir {
	case growLeft:
		strip = Rect{Left: r.Left - 1, Top: r.Top, Width: 1, Height: r.Height}
		grown.Left--
		grown.Width++
	case growTop:
		strip = Rect{Left: r.Left, Top: r.Top - 1, Width: r.Width, Height: 1}
		grown.Top--
		grown.Height++
	case growRight:
		strip = Rect{Left: r.Right(), Top: r.Top, Width: 1, Height: r.Height}
		grown.Width++
	case growBottom:
		strip = Rect{Left: r.Left, Top: r.Bottom(), Width: r.Width, Height: 1}
		grown.Height++
	}
	return strip, grown
}
