package editor

import (
	"fmt"
	"math"

	"pagebuilder/internal/domain"
)

type PointerEventType string

const (
	PointerDown   PointerEventType = "down"
	PointerMove   PointerEventType = "move"
	PointerUp     PointerEventType = "up"
	PointerCancel PointerEventType = "cancel"
)

// Part is the region of an element a press landed on.
type Part string

const (
	PartBody   Part = "body"
	PartHandle Part = "handle"
)

type Corner string

const (
	CornerSE Corner = "se"
	CornerSW Corner = "sw"
	CornerNE Corner = "ne"
	CornerNW Corner = "nw"
)

// Target names what a pointer press hit. An empty ElementID means the
// workspace background.
type Target struct {
	ElementID string `json:"elementId"`
	Part      Part   `json:"part"`
	Corner    Corner `json:"corner,omitempty"`
}

// PointerEvent is one entry of the unified pointer stream. Mouse, touch and
// pen all arrive in this shape; Device is informational only.
type PointerEvent struct {
	PointerID int              `json:"pointerId"`
	Type      PointerEventType `json:"type"`
	X         float64          `json:"x"`
	Y         float64          `json:"y"`
	Device    string           `json:"device,omitempty"`
	Target    *Target          `json:"target,omitempty"` // nil: hit-test at (X, Y)
}

// InteractionState is the per-element manipulation state.
type InteractionState int

const (
	StateIdle InteractionState = iota
	StateDragging
	StateResizing
)

func (st InteractionState) String() string {
	switch st {
	case StateDragging:
		return "dragging"
	case StateResizing:
		return "resizing"
	default:
		return "idle"
	}
}

func (st InteractionState) MarshalText() ([]byte, error) {
	return []byte(st.String()), nil
}

// PointerResult reports what a pointer event did.
type PointerResult struct {
	PointerID  int              `json:"pointerId"`
	ElementID  string           `json:"elementId,omitempty"`
	State      InteractionState `json:"state"`
	Ignored    bool             `json:"ignored"`
	Deselected bool             `json:"deselected"`
	Element    *domain.Element  `json:"element,omitempty"`
}

type capture struct {
	pointerID int
	elementID string
	state     InteractionState

	startX, startY float64 // pointer position at press
	origX, origY   float64 // element offset at press
	origW, origH   float64 // element size at press
}

// pointerEngine tracks pointer captures. A pointer id maps to at most one
// element and an element is held by at most one pointer.
type pointerEngine struct {
	captures map[int]*capture
	owners   map[string]int
}

func newPointerEngine() *pointerEngine {
	return &pointerEngine{
		captures: make(map[int]*capture),
		owners:   make(map[string]int),
	}
}

func (p *pointerEngine) hold(c *capture) {
	p.captures[c.pointerID] = c
	p.owners[c.elementID] = c.pointerID
}

func (p *pointerEngine) release(pointerID int) *capture {
	c, ok := p.captures[pointerID]
	if !ok {
		return nil
	}
	delete(p.captures, pointerID)
	delete(p.owners, c.elementID)
	return c
}

func (p *pointerEngine) releaseElement(elementID string) {
	if pid, ok := p.owners[elementID]; ok {
		p.release(pid)
	}
}

func (p *pointerEngine) reset() {
	p.captures = make(map[int]*capture)
	p.owners = make(map[string]int)
}

// Capturing reports whether any pointer holds an element mid-gesture.
func (s *Session) Capturing() bool { return len(s.pointer.captures) > 0 }

// InteractionState returns the state of the given element.
func (s *Session) InteractionState(elementID string) InteractionState {
	pid, ok := s.pointer.owners[elementID]
	if !ok {
		return StateIdle
	}
	return s.pointer.captures[pid].state
}

// HandlePointer feeds one pointer event into the interaction engine.
func (s *Session) HandlePointer(ev PointerEvent) (PointerResult, error) {
	switch ev.Type {
	case PointerDown:
		return s.pointerDown(ev)
	case PointerMove:
		return s.pointerMove(ev)
	case PointerUp, PointerCancel:
		return s.pointerUp(ev), nil
	default:
		return PointerResult{PointerID: ev.PointerID}, fmt.Errorf("%q: %w", ev.Type, ErrUnknownEventType)
	}
}

func (s *Session) pointerDown(ev PointerEvent) (PointerResult, error) {
	res := PointerResult{PointerID: ev.PointerID}
	if _, busy := s.pointer.captures[ev.PointerID]; busy {
		return res, fmt.Errorf("pointer %d: %w", ev.PointerID, ErrAlreadyCaptured)
	}

	var target Target
	if ev.Target != nil {
		target = *ev.Target
	} else if hit, ok := s.ws.hitTest(ev.X, ev.Y, s.handleSize); ok {
		target = hit
	}

	if target.ElementID == "" {
		res.Deselected = s.DeselectAll()
		res.Ignored = !res.Deselected
		return res, nil
	}

	el, ok := s.ws.lookup(target.ElementID)
	if !ok {
		return res, fmt.Errorf("element %s: %w", target.ElementID, ErrUnknownElement)
	}
	res.ElementID = el.ID

	state := StateDragging
	if target.Part == PartHandle {
		// Only the bottom-right handle resizes.
		if target.Corner != "" && target.Corner != CornerSE {
			res.Ignored = true
			return res, nil
		}
		state = StateResizing
	}

	if owner, held := s.pointer.owners[el.ID]; held {
		return res, fmt.Errorf("element %s held by pointer %d: %w", el.ID, owner, ErrAlreadyCaptured)
	}

	s.selectElement(el)
	s.pointer.hold(&capture{
		pointerID: ev.PointerID,
		elementID: el.ID,
		state:     state,
		startX:    ev.X,
		startY:    ev.Y,
		origX:     el.X,
		origY:     el.Y,
		origW:     el.Width,
		origH:     el.Height,
	})

	res.State = state
	snapshot := *el
	res.Element = &snapshot
	return res, nil
}

func (s *Session) pointerMove(ev PointerEvent) (PointerResult, error) {
	res := PointerResult{PointerID: ev.PointerID}
	c, ok := s.pointer.captures[ev.PointerID]
	if !ok {
		res.Ignored = true
		return res, nil
	}
	el, ok := s.ws.lookup(c.elementID)
	if !ok {
		// Element vanished mid-gesture.
		s.pointer.release(ev.PointerID)
		res.Ignored = true
		return res, nil
	}

	dx := ev.X - c.startX
	dy := ev.Y - c.startY
	switch c.state {
	case StateDragging:
		el.X = c.origX + dx
		el.Y = c.origY + dy
	case StateResizing:
		el.Width = math.Max(s.minSize, c.origW+dx)
		el.Height = math.Max(s.minSize, c.origH+dy)
	}

	res.ElementID = el.ID
	res.State = c.state
	snapshot := *el
	res.Element = &snapshot
	return res, nil
}

func (s *Session) pointerUp(ev PointerEvent) PointerResult {
	res := PointerResult{PointerID: ev.PointerID, State: StateIdle}
	c := s.pointer.release(ev.PointerID)
	if c == nil {
		res.Ignored = true
		return res
	}
	res.ElementID = c.elementID
	if el, ok := s.ws.lookup(c.elementID); ok {
		snapshot := *el
		res.Element = &snapshot
	}
	return res
}
