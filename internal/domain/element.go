package domain

import "time"

type ElementKind string

const (
	ElementKindText   ElementKind = "text"
	ElementKindImage  ElementKind = "image"
	ElementKindVideo  ElementKind = "video"
	ElementKindButton ElementKind = "button"
	ElementKindBox    ElementKind = "box"
)

// Valid reports whether k is one of the known element kinds.
func (k ElementKind) Valid() bool {
	switch k {
	case ElementKindText, ElementKindImage, ElementKindVideo, ElementKindButton, ElementKindBox:
		return true
	}
	return false
}

// IsMedia reports whether the element hosts an image or video payload.
func (k ElementKind) IsMedia() bool {
	return k == ElementKindImage || k == ElementKindVideo
}

// Style holds the free-form overrides set from the property panel.
type Style struct {
	Background string `json:"background,omitempty"`
	Padding    string `json:"padding,omitempty"`
	Color      string `json:"color,omitempty"`
}

// Element is a placed visual block. X/Y are pixel offsets from the
// workspace origin.
type Element struct {
	ID        string      `json:"id"`
	Kind      ElementKind `json:"kind"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	Width     float64     `json:"width"`
	Height    float64     `json:"height"`
	ZIndex    int         `json:"zIndex"`
	Content   string      `json:"content"`  // text or data URI
	Template  string      `json:"template"` // preset name, empty for plain elements
	Style     Style       `json:"style"`
	CreatedAt time.Time   `json:"createdAt"`
}
