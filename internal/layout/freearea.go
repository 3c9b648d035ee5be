package layout

// FreeAreas enumerates the maximal free rectangles of the grid, largest
// first: the biggest free rectangle is extracted, marked occupied in a
// working copy, and the scan repeats until no free cell remains. Ties in
// area resolve to the rectangle discovered first in row-major order.
//
// The scan is deliberately exhaustive rather than an optimal decomposition;
// grids are tens of cells per axis at most.
func FreeAreas(o *Occupancy) []Rect {
	work := o.Clone()
	var areas []Rect
	for {
		area, ok := largestFreeRect(work)
		if !ok {
			return areas
		}
		work.SetRegion(area, true)
		areas = append(areas, area)
	}
}

// largestFreeRect scans every free cell as a candidate top-left corner and
// returns the largest entirely-free rectangle anchored anywhere.
func largestFreeRect(o *Occupancy) (Rect, bool) {
	var best Rect
	found := false
	for y := 0; y < o.rows; y++ {
		for x := 0; x < o.columns; x++ {
			if o.at(x, y) {
				continue
			}
			cand := bestAnchored(o, x, y)
			if !found || cand.Area() > best.Area() {
				best = cand
				found = true
			}
		}
	}
	return best, found
}

// bestAnchored expands from (x, y) width-first-then-height and
// height-first-then-width and returns the largest free rectangle anchored
// there.
func bestAnchored(o *Occupancy, x, y int) Rect {
	best := Rect{Left: x, Top: y, Width: 1, Height: 1}

	rowRun := 0
	for x+rowRun < o.columns && !o.at(x+rowRun, y) {
		rowRun++
	}
	width := rowRun
	for height := 1; y+height-1 < o.rows; height++ {
		if height > 1 {
			run := 0
			for run < width && !o.at(x+run, y+height-1) {
				run++
			}
			if run == 0 {
				break
			}
			if run < width {
				width = run
			}
		}
		if width*height > best.Area() {
			best = Rect{Left: x, Top: y, Width: width, Height: height}
		}
	}

	colRun := 0
	for y+colRun < o.rows && !o.at(x, y+colRun) {
		colRun++
	}
	height := colRun
	for width := 1; x+width-1 < o.columns; width++ {
		if width > 1 {
			run := 0
			for run < height && !o.at(x+width-1, y+run) {
				run++
			}
			if run == 0 {
				break
			}
			if run < height {
				height = run
			}
		}
		if width*height > best.Area() {
			best = Rect{Left: x, Top: y, Width: width, Height: height}
		}
	}

	return best
}
