package storage

import (
	"fmt"

	"pagebuilder/internal/domain"
)

// AssetStore implements domain.AssetStore using SQLite.
type AssetStore struct {
	db *DB
}

func NewAssetStore(db *DB) *AssetStore {
	return &AssetStore{db: db}
}

func (s *AssetStore) CreateAsset(a *domain.MediaAsset) error {
	_, err := s.db.Conn().Exec(
		`INSERT INTO media_assets (id, name, kind, mime_type, data_uri, size_bytes, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Kind, a.MIMEType, a.DataURI, a.SizeBytes, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	return nil
}

// ListAssets returns every asset, most recent first.
func (s *AssetStore) ListAssets() ([]domain.MediaAsset, error) {
	rows, err := s.db.Conn().Query(
		`SELECT id, name, kind, mime_type, data_uri, size_bytes, created_at FROM media_assets ORDER BY created_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []domain.MediaAsset
	for rows.Next() {
		var a domain.MediaAsset
		if err := rows.Scan(&a.ID, &a.Name, &a.Kind, &a.MIMEType, &a.DataURI, &a.SizeBytes, &a.CreatedAt); err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *AssetStore) DeleteAsset(id string) error {
	_, err := s.db.Conn().Exec(`DELETE FROM media_assets WHERE id = ?`, id)
	return err
}

// TrimAssets keeps only the keep most recent assets. keep <= 0 keeps all.
func (s *AssetStore) TrimAssets(keep int) error {
	if keep <= 0 {
		return nil
	}
	_, err := s.db.Conn().Exec(
		`DELETE FROM media_assets WHERE id NOT IN (
			SELECT id FROM media_assets ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, keep,
	)
	if err != nil {
		return fmt.Errorf("trim assets: %w", err)
	}
	return nil
}
