package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultHistoryNodes is the per-page node cap used when none is configured.
const DefaultHistoryNodes = 40

// HistoryNode is one saved snapshot in a page's history tree.
type HistoryNode struct {
	ID           string    `json:"id"`
	PageName     string    `json:"pageName"`
	ParentID     *string   `json:"parentId"`
	Label        string    `json:"label"`
	SnapshotJSON string    `json:"snapshotJson"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HistoryTree is the full tree of a page.
type HistoryTree struct {
	Nodes     []HistoryNode `json:"nodes"`
	CurrentID string        `json:"currentId"`
	RootID    string        `json:"rootId"`
}

// Node looks up a node in the tree.
func (t *HistoryTree) Node(id string) (HistoryNode, bool) {
	for _, n := range t.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return HistoryNode{}, false
}

// LatestChild returns the most recently created child of id.
func (t *HistoryTree) LatestChild(id string) (HistoryNode, bool) {
	var (
		child HistoryNode
		found bool
	)
	// Nodes are in creation order, so the last match wins.
	for _, n := range t.Nodes {
		if n.ParentID != nil && *n.ParentID == id {
			child, found = n, true
		}
	}
	return child, found
}

// HistoryStore manages page history in SQLite.
type HistoryStore struct {
	db       *DB
	maxNodes int
}

// NewHistoryStore creates a HistoryStore keeping at most maxNodes per page.
func NewHistoryStore(db *DB, maxNodes int) *HistoryStore {
	if maxNodes <= 0 {
		maxNodes = DefaultHistoryNodes
	}
	return &HistoryStore{db: db, maxNodes: maxNodes}
}

// LoadTree returns the full history tree for a page, or nil when there is none.
func (s *HistoryStore) LoadTree(pageName string) (*HistoryTree, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, page_name, parent_id, label, snapshot_json, created_at
		 FROM history_nodes WHERE page_name = ? ORDER BY created_at ASC, rowid ASC`, pageName,
	)
	if err != nil {
		return nil, fmt.Errorf("load history nodes: %w", err)
	}
	defer rows.Close()

	var nodes []HistoryNode
	var rootID string
	for rows.Next() {
		var n HistoryNode
		if err := rows.Scan(&n.ID, &n.PageName, &n.ParentID, &n.Label, &n.SnapshotJSON, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history node: %w", err)
		}
		if n.ParentID == nil && rootID == "" {
			rootID = n.ID
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(nodes) == 0 {
		return nil, nil
	}

	currentID, err := s.Current(pageName)
	if err != nil || currentID == "" {
		currentID = rootID
	}

	return &HistoryTree{
		Nodes:     nodes,
		CurrentID: currentID,
		RootID:    rootID,
	}, nil
}

// Current returns the page's current node ID, or "" without history.
func (s *HistoryStore) Current(pageName string) (string, error) {
	var currentID string
	err := s.db.Conn().QueryRow(
		`SELECT current_node_id FROM history_state WHERE page_name = ?`, pageName,
	).Scan(&currentID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load history state: %w", err)
	}
	return currentID, nil
}

// PushNode stores a snapshot under parentID and makes it current.
// An empty parentID starts a new root.
func (s *HistoryStore) PushNode(pageName, nodeID, parentID, label, snapshotJSON string) (*HistoryNode, error) {
	now := time.Now()

	var pID *string
	if parentID != "" {
		pID = &parentID
	}

	_, err := s.db.Conn().Exec(
		`INSERT INTO history_nodes (id, page_name, parent_id, label, snapshot_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		nodeID, pageName, pID, label, snapshotJSON, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert history node: %w", err)
	}

	if err := s.GoTo(pageName, nodeID); err != nil {
		return nil, fmt.Errorf("update history state: %w", err)
	}

	if err := s.prune(pageName); err != nil {
		return nil, fmt.Errorf("prune history: %w", err)
	}

	return &HistoryNode{
		ID:           nodeID,
		PageName:     pageName,
		ParentID:     pID,
		Label:        label,
		SnapshotJSON: snapshotJSON,
		CreatedAt:    now,
	}, nil
}

// GoTo moves the page's current position pointer.
func (s *HistoryStore) GoTo(pageName, nodeID string) error {
	_, err := s.db.Conn().Exec(
		`INSERT INTO history_state (page_name, current_node_id) VALUES (?, ?)
		 ON CONFLICT(page_name) DO UPDATE SET current_node_id = excluded.current_node_id`,
		pageName, nodeID,
	)
	return err
}

// ClearPage removes all history for a page.
func (s *HistoryStore) ClearPage(pageName string) error {
	if _, err := s.db.Conn().Exec(`DELETE FROM history_state WHERE page_name = ?`, pageName); err != nil {
		return err
	}
	_, err := s.db.Conn().Exec(`DELETE FROM history_nodes WHERE page_name = ?`, pageName)
	return err
}

// prune removes the oldest nodes once the page holds more than maxNodes,
// reattaching their children to the removed node's parent. The current
// node is never removed.
func (s *HistoryStore) prune(pageName string) error {
	var count int
	if err := s.db.Conn().QueryRow(
		`SELECT COUNT(*) FROM history_nodes WHERE page_name = ?`, pageName,
	).Scan(&count); err != nil {
		return err
	}
	if count <= s.maxNodes {
		return nil
	}

	currentID, err := s.Current(pageName)
	if err != nil {
		return err
	}

	// Collect IDs first; the single connection cannot write with a cursor open.
	rows, err := s.db.Conn().Query(
		`SELECT id FROM history_nodes WHERE page_name = ?
		 ORDER BY created_at ASC, rowid ASC LIMIT ?`, pageName, count-s.maxNodes,
	)
	if err != nil {
		return err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if id != currentID {
			ids = append(ids, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	tx, err := s.db.Conn().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, id := range ids {
		// Read the parent inside the tx: an earlier deletion may have reattached it.
		var parent sql.NullString
		if err := tx.QueryRow(`SELECT parent_id FROM history_nodes WHERE id = ?`, id).Scan(&parent); err != nil {
			return err
		}
		if _, err := tx.Exec(
			`UPDATE history_nodes SET parent_id = ? WHERE parent_id = ?`, parent, id,
		); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM history_nodes WHERE id = ?`, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
