package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
)

func (s *Server) registerMediaTools() {
	// ── upload_media ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("upload_media",
		mcp.WithDescription("Add a file to the media dock. The payload is base64; the MIME type is sniffed when omitted."),
		mcp.WithString("name", mcp.Description("File name"), mcp.Required()),
		mcp.WithString("data", mcp.Description("Base64 encoded file contents"), mcp.Required()),
		mcp.WithString("mimeType", mcp.Description("MIME type, e.g. image/png or video/mp4 (optional)")),
	), s.handleUploadMedia)

	// ── list_media ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_media",
		mcp.WithDescription("List the media dock, most recent first"),
	), s.handleListMedia)

	// ── spawn_media ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("spawn_media",
		mcp.WithDescription("Place an image or video element from a media dock asset"),
		mcp.WithString("assetId", mcp.Description("Media asset ID"), mcp.Required()),
		mcp.WithBoolean("autoLayout", mcp.Description("Place in the first free spot instead of the viewport centre")),
	), s.handleSpawnMedia)
}

func (s *Server) handleUploadMedia(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	raw, err := base64.StdEncoding.DecodeString(req.GetString("data", ""))
	if err != nil {
		return nil, fmt.Errorf("decode data: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("data is required")
	}

	added, err := s.editor.Upload(ctx, []editor.Upload{{
		Name:        name,
		ContentType: req.GetString("mimeType", ""),
		Data:        bytes.NewReader(raw),
	}})
	if err != nil {
		return nil, fmt.Errorf("upload media: %w", err)
	}
	return jsonResult(summarizeAssets(added))
}

func (s *Server) handleListMedia(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(summarizeAssets(s.editor.Assets()))
}

func (s *Server) handleSpawnMedia(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	el, err := s.editor.SpawnMedia(ctx, req.GetString("assetId", ""))
	if err != nil {
		return nil, fmt.Errorf("spawn media: %w", err)
	}
	el, err = s.position(ctx, req, el)
	if err != nil {
		return nil, err
	}
	return jsonResult(summarizeElement(el, ""))
}

// assetSummary leaves out the data URI, which can be megabytes long.
type assetSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	MIMEType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

func summarizeAssets(assets []domain.MediaAsset) []assetSummary {
	out := make([]assetSummary, len(assets))
	for i, a := range assets {
		out[i] = assetSummary{
			ID:        a.ID,
			Name:      a.Name,
			Kind:      string(a.Kind),
			MIMEType:  a.MIMEType,
			SizeBytes: a.SizeBytes,
		}
	}
	return out
}
