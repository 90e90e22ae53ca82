package app

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
)

// MediaFile is a file picked in the frontend. Data is either a data URL
// (as FileReader.readAsDataURL produces) or bare base64.
type MediaFile struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// ============================================================
// Media Dock
// ============================================================

// UploadMedia decodes the picked files into the media dock. Files that
// fail to decode are skipped; the rest are still added.
func (a *App) UploadMedia(files []MediaFile) ([]domain.MediaAsset, error) {
	uploads := make([]editor.Upload, 0, len(files))
	var errs []error
	for _, f := range files {
		u, err := decodeMediaFile(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		uploads = append(uploads, u)
	}
	added, err := a.rt.Editor.Upload(a.ctx, uploads)
	if err != nil {
		errs = append(errs, err)
	}
	return added, errors.Join(errs...)
}

func (a *App) ListMedia() []domain.MediaAsset {
	return a.rt.Editor.Assets()
}

func (a *App) SpawnMedia(assetID string) (domain.Element, error) {
	return a.rt.Editor.SpawnMedia(a.ctx, assetID)
}

// decodeMediaFile turns "data:<mime>;base64,<payload>" or bare base64
// into an upload. The MIME type of a data URL is kept; bare payloads are
// sniffed.
func decodeMediaFile(f MediaFile) (editor.Upload, error) {
	payload := f.Data
	contentType := ""
	if rest, ok := strings.CutPrefix(payload, "data:"); ok {
		meta, data, found := strings.Cut(rest, ",")
		if !found {
			return editor.Upload{}, fmt.Errorf("%s: malformed data URL", f.Name)
		}
		mime, isBase64 := strings.CutSuffix(meta, ";base64")
		if !isBase64 {
			return editor.Upload{}, fmt.Errorf("%s: data URL is not base64", f.Name)
		}
		contentType = mime
		payload = data
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return editor.Upload{}, fmt.Errorf("%s: %w", f.Name, err)
	}
	if len(raw) == 0 {
		return editor.Upload{}, fmt.Errorf("%s: empty file", f.Name)
	}
	return editor.Upload{Name: f.Name, ContentType: contentType, Data: bytes.NewReader(raw)}, nil
}
