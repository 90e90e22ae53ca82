package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"pagebuilder/internal/domain"
)

// PageStore implements domain.PageStore using SQLite.
type PageStore struct {
	db *DB
}

func NewPageStore(db *DB) *PageStore {
	return &PageStore{db: db}
}

// GetPage returns nil, nil for a page that was never saved.
func (s *PageStore) GetPage(name string) (*domain.Page, error) {
	p := &domain.Page{}
	err := s.db.Conn().QueryRow(
		`SELECT name, snapshot, updated_at FROM pages WHERE name = ?`, name,
	).Scan(&p.Name, &p.Snapshot, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return p, nil
}

// SavePage creates the page on first save and overwrites its snapshot after.
func (s *PageStore) SavePage(p *domain.Page) error {
	p.UpdatedAt = time.Now()
	_, err := s.db.Conn().Exec(
		`INSERT INTO pages (name, snapshot, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		p.Name, p.Snapshot, p.UpdatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save page: %w", err)
	}
	return nil
}

func (s *PageStore) ListPages() ([]domain.Page, error) {
	rows, err := s.db.Conn().Query(`SELECT name, snapshot, updated_at FROM pages ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []domain.Page
	for rows.Next() {
		var p domain.Page
		if err := rows.Scan(&p.Name, &p.Snapshot, &p.UpdatedAt); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// DeletePage removes the page together with its history.
func (s *PageStore) DeletePage(name string) error {
	tx, err := s.db.Conn().Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM history_state WHERE page_name = ?`,
		`DELETE FROM history_nodes WHERE page_name = ?`,
		`DELETE FROM pages WHERE name = ?`,
	} {
		if _, err := tx.Exec(q, name); err != nil {
			return fmt.Errorf("delete page: %w", err)
		}
	}
	return tx.Commit()
}
