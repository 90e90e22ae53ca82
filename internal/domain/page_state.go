package domain

// PageState represents the complete state of the active page for rendering.
// Returned to clients so they can draw the full workspace.
type PageState struct {
	Page        string    `json:"page"`
	Elements    []Element `json:"elements"`
	SelectedID  string    `json:"selectedId"`
	Placeholder bool      `json:"placeholder"`
}
