package editor

import (
	"fmt"
	"sort"
	"sync"

	"pagebuilder/internal/domain"
)

// Template is a named section preset from the block palette.
type Template struct {
	Name    string             `json:"name"`
	Kind    domain.ElementKind `json:"kind"`
	Content string             `json:"content"`
	Width   float64            `json:"width"`
	Height  float64            `json:"height"`
	Style   domain.Style       `json:"style"`
}

// TemplateRegistry holds the section templates offered by the palette.
type TemplateRegistry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewTemplateRegistry creates an empty registry.
func NewTemplateRegistry() *TemplateRegistry {
	return &TemplateRegistry{templates: make(map[string]Template)}
}

// DefaultTemplates returns a registry preloaded with the standard sections.
func DefaultTemplates() *TemplateRegistry {
	r := NewTemplateRegistry()
	r.Register(Template{Name: "header", Kind: domain.ElementKindBox, Content: "BRAND_LOGO",
		Width: 960, Height: 64, Style: domain.Style{Background: "#111111", Padding: "20px", Color: "#ffffff"}})
	r.Register(Template{Name: "hero", Kind: domain.ElementKindText, Content: "HERO_TITLE",
		Width: 960, Height: 320, Style: domain.Style{Background: "#000000", Padding: "80px 20px", Color: "#ffffff"}})
	r.Register(Template{Name: "text-block", Kind: domain.ElementKindText, Content: "SECTION TITLE",
		Width: 600, Height: 180, Style: domain.Style{Padding: "40px", Color: "#000000"}})
	r.Register(Template{Name: "image", Kind: domain.ElementKindImage,
		Width: 960, Height: 300, Style: domain.Style{Background: "#eeeeee"}})
	r.Register(Template{Name: "button", Kind: domain.ElementKindButton, Content: "CALL TO ACTION",
		Width: 220, Height: 64, Style: domain.Style{Background: "#00f3ff", Padding: "15px 40px", Color: "#000000"}})
	r.Register(Template{Name: "video", Kind: domain.ElementKindVideo,
		Width: 960, Height: 400, Style: domain.Style{Background: "#000000"}})
	return r
}

// Register adds a template. Panics on duplicate or invalid registration.
func (r *TemplateRegistry) Register(t Template) {
	if !t.Kind.Valid() {
		panic(fmt.Sprintf("template registry: %q has unknown kind %q", t.Name, t.Kind))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.templates[t.Name]; exists {
		panic(fmt.Sprintf("template registry: duplicate registration for %q", t.Name))
	}
	r.templates[t.Name] = t
}

// Lookup returns the template registered under name.
func (r *TemplateRegistry) Lookup(name string) (Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[name]
	return t, ok
}

// List returns all templates sorted by name.
func (r *TemplateRegistry) List() []Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
