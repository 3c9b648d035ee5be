package state

import (
	"fmt"
	"sync"

	"github.com/gridpal/gridpal/internal/layout"
)

// Item describes a registered dashboard panel.
type Item struct {
	ID     layout.ItemID
	Name   string
	Sticky bool
	Rect   layout.Rect
}

// Registry owns the set of live items and their current grid positions.
// Handles are generation-checked: unregistering an item invalidates its
// handle even if the slot is later reused. Enumeration order is
// registration order, which the resolver relies on for determinism.
//
// Positions only change through Apply after a successful resolution pass;
// every read hands out copies.
type Registry struct {
	mu     sync.Mutex
	slots  []slot
	order  []layout.ItemID
	byName map[string]layout.ItemID
}

type slot struct {
	gen  uint64
	live bool
	item Item
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]layout.ItemID)}
}

// Register adds an item and returns its handle.
func (r *Registry) Register(name string, sticky bool, rect layout.Rect) (layout.ItemID, error) {
	if name == "" {
		return layout.ItemID{}, fmt.Errorf("item name cannot be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[name]; exists {
		return layout.ItemID{}, fmt.Errorf("duplicate item %q", name)
	}
	idx := -1
	for i := range r.slots {
		if !r.slots[i].live {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.slots = append(r.slots, slot{})
		idx = len(r.slots) - 1
	}
	s := &r.slots[idx]
	s.gen++
	s.live = true
	id := layout.ItemID{Slot: idx, Gen: s.gen}
	s.item = Item{ID: id, Name: name, Sticky: sticky, Rect: rect}
	r.order = append(r.order, id)
	r.byName[name] = id
	return id, nil
}

// Unregister removes the item behind the handle. Stale handles are an
// error, not a no-op: callers holding one have missed a removal.
func (r *Registry) Unregister(id layout.ItemID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.liveSlot(id)
	if err != nil {
		return err
	}
	delete(r.byName, s.item.Name)
	s.live = false
	s.item = Item{}
	for i, ordered := range r.order {
		if ordered == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *Registry) liveSlot(id layout.ItemID) (*slot, error) {
	if id.Slot < 0 || id.Slot >= len(r.slots) {
		return nil, fmt.Errorf("unknown item %s", id)
	}
	s := &r.slots[id.Slot]
	if !s.live || s.gen != id.Gen {
		return nil, fmt.Errorf("stale item handle %s", id)
	}
	return s, nil
}

// Get returns the item behind the handle.
func (r *Registry) Get(id layout.ItemID) (Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, err := r.liveSlot(id)
	if err != nil {
		return Item{}, false
	}
	return s.item, true
}

// Lookup finds an item by name.
func (r *Registry) Lookup(name string) (Item, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byName[name]
	if !ok {
		return Item{}, false
	}
	return r.slots[id.Slot].item, true
}

// Items returns all live items in enumeration order.
func (r *Registry) Items() []Item {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]Item, 0, len(r.order))
	for _, id := range r.order {
		items = append(items, r.slots[id.Slot].item)
	}
	return items
}

// Len returns the number of live items.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Snapshot partitions the live items into sticky and movable placements,
// both in enumeration order, for one resolution pass.
func (r *Registry) Snapshot() (sticky, movable []layout.Placement) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		item := r.slots[id.Slot].item
		p := layout.Placement{ID: item.ID, Rect: item.Rect}
		if item.Sticky {
			sticky = append(sticky, p)
		} else {
			movable = append(movable, p)
		}
	}
	return sticky, movable
}

// Apply installs the rectangles of a successful resolution pass. Handles
// unknown to the registry are skipped: the item was unregistered while the
// pass ran and its rectangle is no longer meaningful.
func (r *Registry) Apply(rects map[layout.ItemID]layout.Rect) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rect := range rects {
		s, err := r.liveSlot(id)
		if err != nil {
			continue
		}
		s.item.Rect = rect
	}
}
