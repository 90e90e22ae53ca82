package app

import (
	"pagebuilder/internal/domain"
	"pagebuilder/internal/storage"
)

// ============================================================
// Pages
// ============================================================

func (a *App) ListPages() ([]string, error) {
	return a.rt.Editor.Pages()
}

func (a *App) CurrentPage() string {
	return a.rt.Editor.CurrentPage()
}

// SwitchPage saves the active page and opens name, creating it empty
// when it was never saved.
func (a *App) SwitchPage(name string) (bool, error) {
	return a.rt.Editor.SwitchPage(a.ctx, name)
}

func (a *App) SavePage() error {
	return a.rt.Editor.Save(a.ctx)
}

func (a *App) DeletePage(name string) error {
	return a.rt.Editor.DeletePage(a.ctx, name)
}

// ============================================================
// History Tree
// ============================================================

func (a *App) LoadHistory() (*storage.HistoryTree, error) {
	return a.rt.Editor.History()
}

func (a *App) Undo() (domain.PageState, error) {
	return a.rt.Editor.Undo(a.ctx)
}

func (a *App) Redo() (domain.PageState, error) {
	return a.rt.Editor.Redo(a.ctx)
}

func (a *App) GoToHistory(nodeID string) (domain.PageState, error) {
	return a.rt.Editor.GoTo(a.ctx, nodeID)
}
