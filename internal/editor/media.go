package editor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pagebuilder/internal/domain"
)

const defaultDecodeWorkers = 4

// Upload is one file handed to the media dock.
type Upload struct {
	Name        string
	ContentType string // sniffed from the data when empty
	Data        io.Reader
}

// ClassifyMIME maps a MIME type to an asset kind. Only the video/ prefix
// is recognised; every other type, including non-media ones, is an image.
func ClassifyMIME(mimeType string) domain.AssetKind {
	if strings.HasPrefix(strings.ToLower(mimeType), "video/") {
		return domain.AssetKindVideo
	}
	return domain.AssetKindImage
}

// MediaDock keeps uploaded assets, most recent first.
type MediaDock struct {
	mu      sync.Mutex
	assets  []domain.MediaAsset
	max     int
	workers int
	log     *zap.Logger
	newID   func() string
	now     func() time.Time
}

func newMediaDock(max, workers int, log *zap.Logger, newID func() string, now func() time.Time) *MediaDock {
	if workers <= 0 {
		workers = defaultDecodeWorkers
	}
	return &MediaDock{max: max, workers: workers, log: log, newID: newID, now: now}
}

// Upload decodes every file to an inline data URI. Files are decoded
// independently and each asset is appended as soon as its own decode
// finishes, so the dock order need not match the input order. A failed
// file does not stop the others; failures come back joined.
func (d *MediaDock) Upload(ctx context.Context, files []Upload) ([]domain.MediaAsset, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)

	var (
		mu     sync.Mutex
		added  []domain.MediaAsset
		failed []error
	)
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			asset, err := d.decode(f)
			if err != nil {
				mu.Lock()
				failed = append(failed, fmt.Errorf("%s: %w", f.Name, err))
				mu.Unlock()
				return nil
			}
			d.Add(asset)
			mu.Lock()
			added = append(added, asset)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		failed = append(failed, err)
	}
	return added, errors.Join(failed...)
}

func (d *MediaDock) decode(f Upload) (domain.MediaAsset, error) {
	if f.Data == nil {
		return domain.MediaAsset{}, errors.New("no data")
	}
	data, err := io.ReadAll(f.Data)
	if err != nil {
		return domain.MediaAsset{}, fmt.Errorf("read: %w", err)
	}
	mimeType := f.ContentType
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	kind := ClassifyMIME(mimeType)
	if kind == domain.AssetKindImage && !strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		d.log.Warn("non-media upload classified as image",
			zap.String("file", f.Name), zap.String("mime", mimeType))
	}
	return domain.MediaAsset{
		ID:        d.newID(),
		Name:      f.Name,
		Kind:      kind,
		MIMEType:  mimeType,
		DataURI:   "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
		SizeBytes: int64(len(data)),
		CreatedAt: d.now(),
	}, nil
}

// Add puts an asset at the front of the dock, trimming the oldest when
// the dock is capped.
func (d *MediaDock) Add(a domain.MediaAsset) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.assets = append([]domain.MediaAsset{a}, d.assets...)
	if d.max > 0 && len(d.assets) > d.max {
		d.assets = d.assets[:d.max]
	}
}

// Load replaces the dock content, e.g. with assets read from storage.
// assets must already be most recent first.
func (d *MediaDock) Load(assets []domain.MediaAsset) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.assets = append([]domain.MediaAsset(nil), assets...)
	if d.max > 0 && len(d.assets) > d.max {
		d.assets = d.assets[:d.max]
	}
}

// Assets returns the dock content, most recent first.
func (d *MediaDock) Assets() []domain.MediaAsset {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]domain.MediaAsset(nil), d.assets...)
}

// Get looks up an asset by ID.
func (d *MediaDock) Get(id string) (domain.MediaAsset, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, a := range d.assets {
		if a.ID == id {
			return a, true
		}
	}
	return domain.MediaAsset{}, false
}

// Cap returns the maximum number of kept assets; 0 means unbounded.
func (d *MediaDock) Cap() int { return d.max }

// SpawnMedia places an element showing the given asset.
func (s *Session) SpawnMedia(assetID string) (domain.Element, error) {
	a, ok := s.media.Get(assetID)
	if !ok {
		return domain.Element{}, fmt.Errorf("spawn %s: %w", assetID, ErrUnknownAsset)
	}
	kind := domain.ElementKindImage
	if a.Kind == domain.AssetKindVideo {
		kind = domain.ElementKindVideo
	}
	el := s.place(kind, a.DataURI, DefaultSizes[kind], domain.Style{}, "")
	return *el, nil
}
