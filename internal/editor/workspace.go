package editor

import (
	"sort"

	"pagebuilder/internal/domain"
)

// Workspace is the ordered element collection of the active page.
// Order is insertion order; stacking is decided by ZIndex.
type Workspace struct {
	elements []*domain.Element
	index    map[string]*domain.Element
}

func newWorkspace() *Workspace {
	return &Workspace{index: make(map[string]*domain.Element)}
}

// Len returns the number of placed elements.
func (w *Workspace) Len() int { return len(w.elements) }

// Empty reports whether the workspace holds no elements. An empty workspace
// shows the placeholder marker.
func (w *Workspace) Empty() bool { return len(w.elements) == 0 }

// Get returns a copy of the element with the given ID.
func (w *Workspace) Get(id string) (domain.Element, bool) {
	el, ok := w.index[id]
	if !ok {
		return domain.Element{}, false
	}
	return *el, true
}

// Elements returns copies of all elements in insertion order.
func (w *Workspace) Elements() []domain.Element {
	out := make([]domain.Element, len(w.elements))
	for i, el := range w.elements {
		out[i] = *el
	}
	return out
}

func (w *Workspace) lookup(id string) (*domain.Element, bool) {
	el, ok := w.index[id]
	return el, ok
}

func (w *Workspace) add(el *domain.Element) {
	w.elements = append(w.elements, el)
	w.index[el.ID] = el
}

func (w *Workspace) remove(id string) bool {
	if _, ok := w.index[id]; !ok {
		return false
	}
	delete(w.index, id)
	for i, el := range w.elements {
		if el.ID == id {
			w.elements = append(w.elements[:i], w.elements[i+1:]...)
			break
		}
	}
	return true
}

// replace swaps the content wholesale and rebuilds the index from the data.
// Every element in els becomes addressable; nothing from the previous
// content survives.
func (w *Workspace) replace(els []domain.Element) int {
	w.elements = make([]*domain.Element, 0, len(els))
	w.index = make(map[string]*domain.Element, len(els))
	for i := range els {
		el := els[i]
		w.add(&el)
	}
	return len(w.elements)
}

func (w *Workspace) maxZ() int {
	max := 0
	for _, el := range w.elements {
		if el.ZIndex > max {
			max = el.ZIndex
		}
	}
	return max
}

// stacked returns the elements topmost first. Ties keep the later-inserted
// element on top.
func (w *Workspace) stacked() []*domain.Element {
	out := make([]*domain.Element, len(w.elements))
	for i := range w.elements {
		out[len(w.elements)-1-i] = w.elements[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ZIndex > out[j].ZIndex
	})
	return out
}

// hitTest finds the topmost element under (x, y). A press inside the
// bottom-right handle square of size handle targets the resize handle.
func (w *Workspace) hitTest(x, y, handle float64) (Target, bool) {
	for _, el := range w.stacked() {
		if x < el.X || x > el.X+el.Width || y < el.Y || y > el.Y+el.Height {
			continue
		}
		if x >= el.X+el.Width-handle && y >= el.Y+el.Height-handle {
			return Target{ElementID: el.ID, Part: PartHandle, Corner: CornerSE}, true
		}
		return Target{ElementID: el.ID, Part: PartBody}, true
	}
	return Target{}, false
}
