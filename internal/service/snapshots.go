package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/storage"
)

// pageSnapshots backs the session's page switching with SQLite. Every
// saved snapshot is also recorded in the page history unless it matches
// the current history node.
//
// persisted holds, per page, the last snapshot this process read or wrote.
// A stored snapshot equal to it is our own and never an external edit.
// Guarded by EditorService.mu.
type pageSnapshots struct {
	pages     *storage.PageStore
	history   *storage.HistoryStore
	persisted map[string]string
}

func (p *pageSnapshots) known(name, snapshot string) {
	if p.persisted == nil {
		p.persisted = make(map[string]string)
	}
	p.persisted[name] = snapshot
}

// own reports whether snapshot is the last one this process saw for name.
func (p *pageSnapshots) own(name, snapshot string) bool {
	last, ok := p.persisted[name]
	return ok && last == snapshot
}

func (p *pageSnapshots) LoadSnapshot(_ context.Context, name string) (string, error) {
	page, err := p.pages.GetPage(name)
	if err != nil {
		return "", err
	}
	if page == nil {
		return "", nil
	}
	p.known(name, page.Snapshot)
	return page.Snapshot, nil
}

func (p *pageSnapshots) SaveSnapshot(_ context.Context, name, snapshot string) error {
	_, err := p.record(name, "save", snapshot)
	return err
}

// record persists snapshot as the page content and, when it differs from
// the current history node, pushes it as a new child of that node.
// It reports whether a node was pushed.
func (p *pageSnapshots) record(name, label, snapshot string) (bool, error) {
	if err := p.pages.SavePage(&domain.Page{Name: name, Snapshot: snapshot}); err != nil {
		return false, err
	}
	p.known(name, snapshot)

	tree, err := p.history.LoadTree(name)
	if err != nil {
		return false, err
	}
	parentID := ""
	if tree != nil {
		if cur, ok := tree.Node(tree.CurrentID); ok {
			if cur.SnapshotJSON == snapshot {
				return false, nil
			}
			parentID = cur.ID
		}
	}
	if _, err := p.history.PushNode(name, uuid.New().String(), parentID, label, snapshot); err != nil {
		return false, fmt.Errorf("record history: %w", err)
	}
	return true, nil
}
