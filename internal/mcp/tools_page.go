package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

func (s *Server) registerPageTools() {
	// ── list_pages ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List every saved page and the active one"),
	), s.handleListPages)

	// ── switch_page ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("switch_page",
		mcp.WithDescription("Save the active page and open another. Unknown names open a blank page."),
		mcp.WithString("name", mcp.Description("Page name"), mcp.Required()),
	), s.handleSwitchPage)

	// ── save_page ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("save_page",
		mcp.WithDescription("Save the active page and record it in history"),
	), s.handleSavePage)

	// ── delete_page (destructive) ──────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_page",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a saved page and its history. Requires user approval."),
		mcp.WithString("name", mcp.Description("Page name"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeletePage)

	// ── history ────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_history",
		mcp.WithDescription("Get the history tree of the active page"),
	), s.handleGetHistory)

	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Restore the previous state of the active page"),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Re-apply the most recent undone state"),
	), s.handleRedo)

	s.mcp.AddTool(mcp.NewTool("goto_history",
		mcp.WithDescription("Restore an arbitrary history node of the active page"),
		mcp.WithString("nodeId", mcp.Description("History node ID"), mcp.Required()),
	), s.handleGotoHistory)
}

func (s *Server) handleListPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := s.editor.Pages()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return jsonResult(map[string]any{
		"active": s.editor.CurrentPage(),
		"pages":  pages,
	})
}

func (s *Server) handleSwitchPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	switched, err := s.editor.SwitchPage(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("switch page: %w", err)
	}
	if !switched {
		return textResult(fmt.Sprintf("Page %s is already active", name)), nil
	}
	return jsonResult(s.editor.State())
}

func (s *Server) handleSavePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.editor.Save(ctx); err != nil {
		return nil, fmt.Errorf("save page: %w", err)
	}
	return textResult(fmt.Sprintf("Page %s saved", s.editor.CurrentPage())), nil
}

func (s *Server) handleDeletePage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.GetString("name", "")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if name == s.editor.CurrentPage() {
		return nil, fmt.Errorf("delete page %s: active page, switch away first", name)
	}

	if err := s.approval.Request(ctx, "delete_page", fmt.Sprintf("Delete page %s and its history", name)); err != nil {
		s.log.Info("delete_page not approved", zap.String("page", name), zap.Error(err))
		return textResult("Action rejected by user"), nil
	}
	if err := s.editor.DeletePage(ctx, name); err != nil {
		return nil, fmt.Errorf("delete page: %w", err)
	}
	return textResult(fmt.Sprintf("Page %s deleted", name)), nil
}

func (s *Server) handleGetHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tree, err := s.editor.History()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if tree == nil {
		return textResult("No history yet"), nil
	}
	return jsonResult(tree)
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := s.editor.Undo(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(state)
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := s.editor.Redo(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(state)
}

func (s *Server) handleGotoHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	state, err := s.editor.GoTo(ctx, req.GetString("nodeId", ""))
	if err != nil {
		return nil, err
	}
	return jsonResult(state)
}
