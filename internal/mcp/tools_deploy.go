package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerDeployTools() {
	// ── deploy ─────────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("deploy",
		mcp.WithDescription("Render the active page into the pending build and publish it to the configured sinks"),
	), s.handleDeploy)

	// ── checkout ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("checkout",
		mcp.WithDescription("Activate a license for the pending build and return the checkout URL"),
		mcp.WithString("productId", mcp.Description("Product ID"), mcp.Required()),
	), s.handleCheckout)

	// ── get_build_status ───────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_build_status",
		mcp.WithDescription("Report whether a build is pending and which license is active"),
	), s.handleBuildStatus)

	if s.visual != nil {
		s.mcp.AddTool(mcp.NewTool("get_visual_config",
			mcp.WithDescription("Get the visual configuration read by the decorative renderer"),
		), s.handleGetVisualConfig)
	}
}

func (s *Server) handleDeploy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	build, err := s.deploy.Deploy(ctx)
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{
		"id":         build.ID,
		"page":       build.Page,
		"deployedAt": build.DeployedAt,
		"bytes":      len(build.Markup),
	})
}

func (s *Server) handleCheckout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	redirect, err := s.deploy.Checkout(ctx, req.GetString("productId", ""))
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}
	return textResult(redirect), nil
}

func (s *Server) handleBuildStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markup, pending, err := s.deploy.PendingBuild()
	if err != nil {
		return nil, err
	}
	license, _, err := s.deploy.ActiveLicense()
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{
		"pending": pending,
		"bytes":   len(markup),
		"license": license,
	})
}

func (s *Server) handleGetVisualConfig(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.visual.Load())
}
