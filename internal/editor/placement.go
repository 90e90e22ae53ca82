package editor

import (
	"fmt"

	"pagebuilder/internal/domain"
)

// Size is a default width/height pair.
type Size struct {
	Width  float64
	Height float64
}

// DefaultSizes are the sizes given to freshly created elements per kind.
var DefaultSizes = map[domain.ElementKind]Size{
	domain.ElementKindText:   {Width: 300, Height: 80},
	domain.ElementKindButton: {Width: 180, Height: 56},
	domain.ElementKindBox:    {Width: 200, Height: 200},
	domain.ElementKindImage:  {Width: 200, Height: 200},
	domain.ElementKindVideo:  {Width: 300, Height: 200},
}

var defaultPayloads = map[domain.ElementKind]string{
	domain.ElementKindText:   "Edit this text",
	domain.ElementKindButton: "CALL TO ACTION",
}

// CreateElement places a new element of the given kind at the viewport
// centre. An empty payload uses the kind's default content. Overlap with
// existing elements is expected; no other element is touched.
func (s *Session) CreateElement(kind domain.ElementKind, payload string) (domain.Element, error) {
	if !kind.Valid() {
		return domain.Element{}, fmt.Errorf("create %q: %w", kind, ErrUnknownKind)
	}
	if payload == "" {
		payload = defaultPayloads[kind]
	}
	el := s.place(kind, payload, DefaultSizes[kind], domain.Style{}, "")
	return *el, nil
}

// CreateFromTemplate instantiates a registered section template.
func (s *Session) CreateFromTemplate(name string) (domain.Element, error) {
	t, ok := s.templates.Lookup(name)
	if !ok {
		return domain.Element{}, fmt.Errorf("template %q: %w", name, ErrUnknownTemplate)
	}
	el := s.place(t.Kind, t.Content, Size{Width: t.Width, Height: t.Height}, t.Style, t.Name)
	return *el, nil
}

func (s *Session) place(kind domain.ElementKind, payload string, size Size, style domain.Style, template string) *domain.Element {
	x, y := s.centre(size)
	el := &domain.Element{
		ID:        s.newID(),
		Kind:      kind,
		X:         x,
		Y:         y,
		Width:     size.Width,
		Height:    size.Height,
		ZIndex:    s.nextZ(),
		Content:   payload,
		Template:  template,
		Style:     style,
		CreatedAt: s.now(),
	}
	s.ws.add(el)
	return el
}

// centre returns the top-left offset that centres size on the viewport.
func (s *Session) centre(size Size) (float64, float64) {
	return s.viewport.Width/2 - size.Width/2, s.viewport.Height/2 - size.Height/2
}

// Reposition moves an element to (x, y) without selecting or raising it.
// An element held by a pointer belongs to that gesture and is refused.
func (s *Session) Reposition(id string, x, y float64) (domain.Element, error) {
	el, ok := s.ws.lookup(id)
	if !ok {
		return domain.Element{}, fmt.Errorf("reposition %s: %w", id, ErrUnknownElement)
	}
	if owner, held := s.pointer.owners[id]; held {
		return domain.Element{}, fmt.Errorf("element %s held by pointer %d: %w", id, owner, ErrAlreadyCaptured)
	}
	el.X, el.Y = x, y
	return *el, nil
}
