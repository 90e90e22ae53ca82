package domain

import "time"

// Page maps a name to the serialized snapshot of its workspace.
// Snapshot is a JSON array of Elements; empty means a blank page.
type Page struct {
	Name      string    `json:"name"`
	Snapshot  string    `json:"snapshot"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type PageStore interface {
	GetPage(name string) (*Page, error)
	SavePage(p *Page) error
	ListPages() ([]Page, error)
	DeletePage(name string) error
}
