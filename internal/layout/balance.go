package layout

import "fmt"

// balanceAreas grows the free-area supply until it covers every unplaced
// item. Splittable free areas are halved first; once only single-cell free
// areas remain, the largest placed movable item donates half of its region
// instead. The loop conserves total area and either raises the free-area
// count each iteration or terminates, so progress is monotonic.
//
// Running out of donor items is a hard failure. A donor that is already a
// single cell only stops the splitting; the shortage then surfaces in
// placeUnplaced.
func balanceAreas(grid *Occupancy, free []Rect, positions map[ItemID]Rect, movable []Placement, unplaced []ItemID) ([]Rect, error) {
	unplacedSet := make(map[ItemID]struct{}, len(unplaced))
	for _, id := range unplaced {
		unplacedSet[id] = struct{}{}
	}
	for len(free) < len(unplaced) {
		if idx, ok := largestAreaIndex(free); ok && (free[idx].Width > 1 || free[idx].Height > 1) {
			first, second := splitLongest(free[idx])
			free = append(free[:idx], free[idx+1:]...)
			free = append(free, first, second)
			continue
		}

		var donor ItemID
		donorArea := 0
		for _, p := range movable {
			if _, isUnplaced := unplacedSet[p.ID]; isUnplaced {
				continue
			}
			if rect := positions[p.ID]; rect.Area() > donorArea {
				donor = p.ID
				donorArea = rect.Area()
			}
		}
		if donorArea == 0 {
			return nil, fmt.Errorf("%d items unplaced with no splittable area: %w", len(unplaced)-len(free), ErrUnresolvable)
		}
		rect := positions[donor]
		if rect.Width == 1 && rect.Height == 1 {
			break
		}
		kept, freed := splitLongest(rect)
		grid.SetRegion(rect, false)
		grid.SetRegion(kept, true)
		positions[donor] = kept
		free = append(free, freed)
	}
	return free, nil
}

// splitLongest halves r along its longer axis, ties favoring width. The
// first half keeps r's origin and takes the ceil-sized share.
func splitLongest(r Rect) (first, second Rect) {
	if r.Width >= r.Height {
		share := r.Width - r.Width/2
		first, second = r, r
		first.Width = share
		second.Left += share
		second.Width = r.Width - share
		return first, second
	}
	share := r.Height - r.Height/2
	first, second = r, r
	first.Height = share
	second.Top += share
	second.Height = r.Height - share
	return first, second
}

func largestAreaIndex(areas []Rect) (int, bool) {
	best := -1
	bestArea := 0
	for i, r := range areas {
		if r.Area() > bestArea {
			best = i
			bestArea = r.Area()
		}
	}
	return best, best >= 0
}

// placeUnplaced assigns each unplaced item, in discovery order, the
// currently largest free area. The balancer should have ensured enough
// areas exist; the shortage check remains as a defensive failure.
func placeUnplaced(grid *Occupancy, free []Rect, positions map[ItemID]Rect, unplaced []ItemID) error {
	for _, id := range unplaced {
		idx, ok := largestAreaIndex(free)
		if !ok {
			return fmt.Errorf("no free area left for %s: %w", id, ErrUnresolvable)
		}
		area := free[idx]
		free = append(free[:idx], free[idx+1:]...)
		positions[id] = area
		grid.SetRegion(area, true)
	}
	return nil
}
