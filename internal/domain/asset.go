package domain

import "time"

type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindVideo AssetKind = "video"
)

// MediaAsset is an uploaded file converted to an inline data URI.
type MediaAsset struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      AssetKind `json:"kind"`
	MIMEType  string    `json:"mimeType"`
	DataURI   string    `json:"dataUri"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// AssetStore persists the media dock. ListAssets returns most recent first.
type AssetStore interface {
	CreateAsset(a *MediaAsset) error
	ListAssets() ([]MediaAsset, error)
	DeleteAsset(id string) error
	TrimAssets(keep int) error
}
