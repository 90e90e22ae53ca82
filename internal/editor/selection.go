package editor

import (
	"fmt"

	"pagebuilder/internal/domain"
)

// PropertyPanel mirrors the side-panel form bound to the selection.
type PropertyPanel struct {
	Visible      bool               `json:"visible"`
	ElementID    string             `json:"elementId,omitempty"`
	Kind         domain.ElementKind `json:"kind,omitempty"`
	Text         string             `json:"text"`
	TextEditable bool               `json:"textEditable"`
	ZIndex       int                `json:"zIndex"`
	Background   string             `json:"background"`
	Padding      string             `json:"padding"`
}

// Select makes id the single selected element and raises it above every
// z-index handed out so far.
func (s *Session) Select(id string) (domain.Element, error) {
	el, ok := s.ws.lookup(id)
	if !ok {
		return domain.Element{}, fmt.Errorf("select %s: %w", id, ErrUnknownElement)
	}
	s.selectElement(el)
	return *el, nil
}

func (s *Session) selectElement(el *domain.Element) {
	s.selected = el.ID
	el.ZIndex = s.nextZ()
}

// DeselectAll returns to Idle. It reports whether anything was selected.
func (s *Session) DeselectAll() bool {
	had := s.selected != ""
	s.selected = ""
	return had
}

// Selected returns the selected element, if any.
func (s *Session) Selected() (domain.Element, bool) {
	el, ok := s.ws.lookup(s.selected)
	if !ok {
		return domain.Element{}, false
	}
	return *el, true
}

// Panel returns the property panel populated from the selection.
func (s *Session) Panel() PropertyPanel {
	el, ok := s.ws.lookup(s.selected)
	if !ok {
		return PropertyPanel{}
	}
	p := PropertyPanel{
		Visible:      true,
		ElementID:    el.ID,
		Kind:         el.Kind,
		TextEditable: !el.Kind.IsMedia(),
		ZIndex:       el.ZIndex,
		Background:   el.Style.Background,
		Padding:      el.Style.Padding,
	}
	if p.TextEditable {
		p.Text = el.Content
	}
	return p
}

func (s *Session) selectedElement() (*domain.Element, error) {
	el, ok := s.ws.lookup(s.selected)
	if !ok {
		return nil, ErrNoSelection
	}
	return el, nil
}

// SetText replaces the selected element's text. Elements hosting an image
// or video are left untouched and ErrNotTextual is returned.
func (s *Session) SetText(text string) error {
	el, err := s.selectedElement()
	if err != nil {
		return err
	}
	if el.Kind.IsMedia() {
		return fmt.Errorf("set text on %s %s: %w", el.Kind, el.ID, ErrNotTextual)
	}
	el.Content = text
	return nil
}

// SetBackground sets the selected element's background colour.
func (s *Session) SetBackground(color string) error {
	el, err := s.selectedElement()
	if err != nil {
		return err
	}
	el.Style.Background = color
	return nil
}

// SetPadding sets the selected element's padding.
func (s *Session) SetPadding(padding string) error {
	el, err := s.selectedElement()
	if err != nil {
		return err
	}
	el.Style.Padding = padding
	return nil
}

// SetZIndex assigns an explicit z-index. The counter is raised so later
// creations and selections still land on top.
func (s *Session) SetZIndex(z int) error {
	el, err := s.selectedElement()
	if err != nil {
		return err
	}
	el.ZIndex = z
	if z > s.zCounter {
		s.zCounter = z
	}
	return nil
}

// DeleteSelected removes the selected element and returns to Idle.
func (s *Session) DeleteSelected() (domain.Element, error) {
	el, err := s.selectedElement()
	if err != nil {
		return domain.Element{}, err
	}
	return s.Delete(el.ID)
}

// Delete removes an element by ID, releasing any pointer holding it.
// Deleting the selected element returns to Idle.
func (s *Session) Delete(id string) (domain.Element, error) {
	el, ok := s.ws.lookup(id)
	if !ok {
		return domain.Element{}, fmt.Errorf("delete %s: %w", id, ErrUnknownElement)
	}
	removed := *el
	s.pointer.releaseElement(id)
	s.ws.remove(id)
	if s.selected == id {
		s.selected = ""
	}
	return removed, nil
}
