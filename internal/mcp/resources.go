package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const (
	resourcePages     = "pagebuilder://pages"
	resourceTemplates = "pagebuilder://templates"
	resourceActive    = "pagebuilder://page/active"
	resourceRendered  = "pagebuilder://page/active/html"
)

func (s *Server) registerResources() {
	// ── pagebuilder://pages ────────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		resourcePages,
		"All Pages",
		mcp.WithMIMEType("application/json"),
	), s.handlePagesResource)

	// ── pagebuilder://templates ────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		resourceTemplates,
		"Section Templates",
		mcp.WithMIMEType("application/json"),
	), s.handleTemplatesResource)

	// ── pagebuilder://page/active ──────────────────────
	s.mcp.AddResource(mcp.NewResource(
		resourceActive,
		"Active Page State",
		mcp.WithMIMEType("application/json"),
	), s.handleActivePageResource)

	s.mcp.AddResource(mcp.NewResource(
		resourceRendered,
		"Active Page HTML",
		mcp.WithMIMEType("text/html"),
	), s.handleRenderedResource)

	// ── pagebuilder://element/{elementId} ──────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"pagebuilder://element/{elementId}",
			"Element on the Active Page",
		),
		s.handleElementResource,
	)
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handlePagesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	pages, err := s.editor.Pages()
	if err != nil {
		return nil, err
	}
	return jsonContents(resourcePages, pages)
}

func (s *Server) handleTemplatesResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(resourceTemplates, s.editor.Templates())
}

func (s *Server) handleActivePageResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(resourceActive, s.editor.State())
}

func (s *Server) handleRenderedResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      resourceRendered,
			MIMEType: "text/html",
			Text:     s.editor.Document(),
		},
	}, nil
}

func (s *Server) handleElementResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := req.Params.URI
	id := extractElementIDFromURI(uri)
	if id == "" {
		return nil, fmt.Errorf("could not extract elementId from URI: %s", uri)
	}
	el, err := s.editor.Element(id)
	if err != nil {
		return nil, err
	}
	return jsonContents(uri, el)
}

// extractElementIDFromURI extracts the id from "pagebuilder://element/{id}".
func extractElementIDFromURI(uri string) string {
	const prefix = "pagebuilder://element/"
	id, ok := strings.CutPrefix(uri, prefix)
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}
