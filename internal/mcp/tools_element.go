package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
)

func (s *Server) registerElementTools() {
	// ── create_element ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_element",
		mcp.WithDescription("Create a new element on the active page. It appears centred in the viewport unless a position is given or autoLayout is set."),
		mcp.WithString("kind",
			mcp.Description("Element kind: text, image, video, button, box"),
			mcp.Required(),
		),
		mcp.WithString("content", mcp.Description("Text for text/button, data URI for image/video (optional)")),
		mcp.WithNumber("x", mcp.Description("X position (optional)")),
		mcp.WithNumber("y", mcp.Description("Y position (optional)")),
		mcp.WithBoolean("autoLayout", mcp.Description("Place in the first free spot instead of the viewport centre")),
	), s.handleCreateElement)

	// ── create_from_template ───────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_from_template",
		mcp.WithDescription("Create a section from a palette template (see list_templates)"),
		mcp.WithString("name", mcp.Description("Template name"), mcp.Required()),
		mcp.WithBoolean("autoLayout", mcp.Description("Place in the first free spot instead of the viewport centre")),
	), s.handleCreateFromTemplate)

	// ── list_templates ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_templates",
		mcp.WithDescription("List the section templates of the block palette"),
	), s.handleListTemplates)

	// ── list_elements ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_elements",
		mcp.WithDescription("List all elements on the active page, optionally filtered by kind"),
		mcp.WithString("kind", mcp.Description("Filter by element kind (optional)")),
	), s.handleListElements)

	// ── get_element ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_element",
		mcp.WithDescription("Get one element with its full content"),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
	), s.handleGetElement)

	// ── select_element / deselect ──────────────────────
	s.mcp.AddTool(mcp.NewTool("select_element",
		mcp.WithDescription("Select an element and return its property panel"),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
	), s.handleSelectElement)

	s.mcp.AddTool(mcp.NewTool("deselect",
		mcp.WithDescription("Clear the selection"),
	), s.handleDeselect)

	// ── update_element ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_element",
		mcp.WithDescription("Edit element properties. Selects the element first; omitted fields are left as they are."),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithString("text", mcp.Description("New text (text and button elements only)")),
		mcp.WithString("background", mcp.Description("CSS background colour")),
		mcp.WithString("padding", mcp.Description("CSS padding, e.g. 16px")),
		mcp.WithNumber("zIndex", mcp.Description("Stacking order")),
	), s.handleUpdateElement)

	// ── move_element / drag_element ────────────────────
	s.mcp.AddTool(mcp.NewTool("move_element",
		mcp.WithDescription("Move an element to an absolute position"),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("New X position"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New Y position"), mcp.Required()),
	), s.handleMoveElement)

	s.mcp.AddTool(mcp.NewTool("drag_element",
		mcp.WithDescription("Drag an element by a relative offset, like a pointer would"),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithNumber("dx", mcp.Description("Horizontal offset"), mcp.Required()),
		mcp.WithNumber("dy", mcp.Description("Vertical offset"), mcp.Required()),
	), s.handleDragElement)

	// ── resize_element ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("resize_element",
		mcp.WithDescription("Resize an element from its bottom-right handle. Sizes are clamped to the minimum."),
		mcp.WithString("elementId", mcp.Description("Element ID"), mcp.Required()),
		mcp.WithNumber("width", mcp.Description("New width"), mcp.Required()),
		mcp.WithNumber("height", mcp.Description("New height"), mcp.Required()),
	), s.handleResizeElement)

	// ── arrange_elements ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("arrange_elements",
		mcp.WithDescription("Auto-arrange all elements on the active page in rows"),
		mcp.WithNumber("startX", mcp.Description("Starting X position (default 0)")),
		mcp.WithNumber("startY", mcp.Description("Starting Y position (default 0)")),
	), s.handleArrangeElements)

	// ── delete_element (destructive) ───────────────────
	s.mcp.AddTool(mcp.NewTool("delete_element",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete an element. Requires user approval."),
		mcp.WithString("elementId", mcp.Description("Element ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteElement)

	// ── batch_delete_elements (destructive) ────────────
	s.mcp.AddTool(mcp.NewTool("batch_delete_elements",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete multiple elements with a single approval. Requires user approval."),
		mcp.WithString("elementIds",
			mcp.Description("Comma-separated element IDs to delete"),
			mcp.Required(),
		),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleBatchDeleteElements)

	// ── render_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("render_page",
		mcp.WithDescription("Render the active page as HTML"),
		mcp.WithBoolean("document", mcp.Description("Wrap the markup in a standalone HTML document")),
	), s.handleRenderPage)
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) handleCreateElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := domain.ElementKind(req.GetString("kind", ""))
	if kind == "" {
		return nil, fmt.Errorf("kind is required")
	}

	el, err := s.editor.CreateElement(ctx, kind, req.GetString("content", ""))
	if err != nil {
		return nil, fmt.Errorf("create element: %w", err)
	}
	el, err = s.position(ctx, req, el)
	if err != nil {
		return nil, err
	}
	return jsonResult(el)
}

func (s *Server) handleCreateFromTemplate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	el, err := s.editor.CreateFromTemplate(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create from template: %w", err)
	}
	el, err = s.position(ctx, req, el)
	if err != nil {
		return nil, err
	}
	return jsonResult(el)
}

// position moves a freshly created element to the requested x/y, or to the
// next free spot when autoLayout is set.
func (s *Server) position(ctx context.Context, req mcp.CallToolRequest, el domain.Element) (domain.Element, error) {
	x, hasX := numberArg(req, "x")
	y, hasY := numberArg(req, "y")
	switch {
	case hasX || hasY:
		if !hasX {
			x = el.X
		}
		if !hasY {
			y = el.Y
		}
	case req.GetBool("autoLayout", false):
		x, y = s.layout.NextPosition(s.editor.State().Elements, el.Width, el.Height, el.ID)
	default:
		return el, nil
	}
	moved, err := s.editor.DragElement(ctx, el.ID, x-el.X, y-el.Y)
	if err != nil {
		return el, fmt.Errorf("position element: %w", err)
	}
	return moved, nil
}

func (s *Server) handleListTemplates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.editor.Templates())
}

func (s *Server) handleListElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := req.GetString("kind", "")
	state := s.editor.State()

	summaries := make([]elementSummary, 0, len(state.Elements))
	for _, el := range state.Elements {
		if filter != "" && string(el.Kind) != filter {
			continue
		}
		summaries = append(summaries, summarizeElement(el, state.SelectedID))
	}
	return jsonResult(summaries)
}

func (s *Server) handleGetElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	el, err := s.elementForTool(req)
	if err != nil {
		return nil, err
	}
	return jsonResult(el)
}

func (s *Server) handleSelectElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	panel, err := s.editor.Select(ctx, req.GetString("elementId", ""))
	if err != nil {
		return nil, fmt.Errorf("select element: %w", err)
	}
	return jsonResult(panel)
}

func (s *Server) handleDeselect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if !s.editor.Deselect(ctx) {
		return textResult("Nothing was selected"), nil
	}
	return textResult("Selection cleared"), nil
}

func (s *Server) handleUpdateElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	el, err := s.elementForTool(req)
	if err != nil {
		return nil, err
	}

	args := req.GetArguments()
	var edit service.PropertyEdit
	if v, ok := args["text"].(string); ok {
		edit.Text = &v
	}
	if v, ok := args["background"].(string); ok {
		edit.Background = &v
	}
	if v, ok := args["padding"].(string); ok {
		edit.Padding = &v
	}
	if v, ok := numberArg(req, "zIndex"); ok {
		z := int(v)
		edit.ZIndex = &z
	}

	if _, err := s.editor.Select(ctx, el.ID); err != nil {
		return nil, fmt.Errorf("select element: %w", err)
	}
	updated, err := s.editor.ApplyEdit(ctx, edit)
	if err != nil {
		return nil, fmt.Errorf("update element: %w", err)
	}
	return jsonResult(updated)
}

func (s *Server) handleMoveElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	el, err := s.elementForTool(req)
	if err != nil {
		return nil, err
	}
	x, _ := numberArg(req, "x")
	y, _ := numberArg(req, "y")

	moved, err := s.editor.DragElement(ctx, el.ID, x-el.X, y-el.Y)
	if err != nil {
		return nil, fmt.Errorf("move element: %w", err)
	}
	return textResult(fmt.Sprintf("Element %s moved to (%.0f, %.0f)", moved.ID, moved.X, moved.Y)), nil
}

func (s *Server) handleDragElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	el, err := s.elementForTool(req)
	if err != nil {
		return nil, err
	}
	dx, _ := numberArg(req, "dx")
	dy, _ := numberArg(req, "dy")

	moved, err := s.editor.DragElement(ctx, el.ID, dx, dy)
	if err != nil {
		return nil, fmt.Errorf("drag element: %w", err)
	}
	return jsonResult(moved)
}

func (s *Server) handleResizeElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	el, err := s.elementForTool(req)
	if err != nil {
		return nil, err
	}
	w, _ := numberArg(req, "width")
	h, _ := numberArg(req, "height")

	resized, err := s.editor.ResizeElement(ctx, el.ID, w-el.Width, h-el.Height)
	if err != nil {
		return nil, fmt.Errorf("resize element: %w", err)
	}
	return textResult(fmt.Sprintf("Element %s resized to (%.0f × %.0f)", resized.ID, resized.Width, resized.Height)), nil
}

func (s *Server) handleArrangeElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	startX, _ := numberArg(req, "startX")
	startY, _ := numberArg(req, "startY")

	arranged := s.layout.ArrangeGroup(s.editor.State().Elements, startX, startY)
	moved, err := s.editor.Arrange(ctx, arranged)
	if err != nil {
		return nil, fmt.Errorf("arrange elements: %w", err)
	}
	return textResult(fmt.Sprintf("Arranged %d elements (%d moved)", len(arranged), len(moved))), nil
}

func (s *Server) handleDeleteElement(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	el, err := s.elementForTool(req)
	if err != nil {
		return nil, err
	}

	// Require approval (with metadata for frontend highlight)
	meta, _ := json.Marshal(map[string][]string{"elementIds": {el.ID}})
	if err := s.approval.Request(ctx, "delete_element",
		fmt.Sprintf("Delete %s element %s", el.Kind, el.ID), string(meta)); err != nil {
		s.log.Info("delete_element not approved", zap.String("element", el.ID), zap.Error(err))
		return textResult("Action rejected by user"), nil
	}

	if _, err := s.editor.Delete(ctx, el.ID); err != nil {
		return nil, fmt.Errorf("delete element: %w", err)
	}
	return textResult(fmt.Sprintf("Element %s deleted", el.ID)), nil
}

func (s *Server) handleBatchDeleteElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := splitIDs(req.GetString("elementIds", ""))
	if len(ids) == 0 {
		return nil, fmt.Errorf("elementIds is required")
	}
	for _, id := range ids {
		if _, err := s.editor.Element(id); err != nil {
			return nil, err
		}
	}

	meta, _ := json.Marshal(map[string][]string{"elementIds": ids})
	if err := s.approval.Request(ctx, "batch_delete_elements",
		fmt.Sprintf("Delete %d elements", len(ids)), string(meta)); err != nil {
		s.log.Info("batch_delete_elements not approved", zap.Int("count", len(ids)), zap.Error(err))
		return textResult("Action rejected by user"), nil
	}

	for _, id := range ids {
		if _, err := s.editor.Delete(ctx, id); err != nil {
			return nil, fmt.Errorf("delete element %s: %w", id, err)
		}
	}
	return textResult(fmt.Sprintf("Deleted %d elements", len(ids))), nil
}

func (s *Server) handleRenderPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if req.GetBool("document", false) {
		return textResult(s.editor.Document()), nil
	}
	return textResult(s.editor.Render()), nil
}

// ── Summaries ──────────────────────────────────────────────

type elementSummary struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	ZIndex   int     `json:"zIndex"`
	Selected bool    `json:"selected,omitempty"`
	Preview  string  `json:"preview"` // first 200 runes of content
}

func summarizeElement(el domain.Element, selectedID string) elementSummary {
	preview := el.Content
	if el.Kind.IsMedia() && strings.HasPrefix(preview, "data:") {
		if i := strings.IndexByte(preview, ','); i > 0 {
			preview = preview[:i] + ",..."
		}
	}
	preview = truncateRunes(preview, 200)
	return elementSummary{
		ID:       el.ID,
		Kind:     string(el.Kind),
		X:        el.X,
		Y:        el.Y,
		Width:    el.Width,
		Height:   el.Height,
		ZIndex:   el.ZIndex,
		Selected: el.ID == selectedID,
		Preview:  preview,
	}
}

func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

// truncateRunes cuts s after n runes and marks the cut with "...".
func truncateRunes(s string, n int) string {
	for i := range s {
		if n == 0 {
			return s[:i] + "..."
		}
		n--
	}
	return s
}
