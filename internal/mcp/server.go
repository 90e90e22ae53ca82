package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

const (
	serverName    = "pagebuilder-mcp"
	serverVersion = "1.0.0"
)

// Server is the MCP server for the page builder.
// It exposes tools, resources, and prompts so AI agents can build pages.
type Server struct {
	mcp      *server.MCPServer
	emitter  service.EventEmitter
	approval *ApprovalQueue
	layout   *LayoutEngine
	log      *zap.Logger

	// Services (injected from app layer)
	editor *service.EditorService
	deploy *service.DeployService
	visual *service.VisualConfigService
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Emitter   service.EventEmitter
	Editor    *service.EditorService
	Deploy    *service.DeployService
	Visual    *service.VisualConfigService
	Logger    *zap.Logger
	Approvals *storage.ApprovalStore // When set, approvals go through the database (standalone mode)
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	emitter := deps.Emitter
	if emitter == nil {
		emitter = service.NopEmitter{}
	}

	approval := NewApprovalQueue(ctx, emitter, log.Named("approval"))
	if deps.Approvals != nil {
		approval.SetStore(deps.Approvals)
	}
	s := &Server{
		emitter:  emitter,
		approval: approval,
		layout:   NewLayoutEngine(deps.Editor.Viewport().Width),
		log:      log,
		editor:   deps.Editor,
		deploy:   deps.Deploy,
		visual:   deps.Visual,
	}

	s.mcp = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerPageTools()
	s.registerElementTools()
	s.registerMediaTools()
	if s.deploy != nil {
		s.registerDeployTools()
	}
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio serves on stdin/stdout until ctx ends or stdin closes.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.log.Info("starting MCP stdio server")
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer exposes the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Approvals returns the queue destructive tools wait on.
func (s *Server) Approvals() *ApprovalQueue {
	return s.approval
}

// Approve forwards a user approval to the approval queue.
func (s *Server) Approve(actionID string) bool {
	return s.approval.Approve(actionID)
}

// Reject forwards a user rejection to the approval queue.
func (s *Server) Reject(actionID string) bool {
	return s.approval.Reject(actionID)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// elementForTool retrieves an element of the active page by its "elementId" argument.
func (s *Server) elementForTool(req mcp.CallToolRequest) (domain.Element, error) {
	id := req.GetString("elementId", "")
	if id == "" {
		return domain.Element{}, fmt.Errorf("elementId is required")
	}
	return s.editor.Element(id)
}

// numberArg reports whether the optional number argument key was supplied.
func numberArg(req mcp.CallToolRequest, key string) (float64, bool) {
	v, ok := req.GetArguments()[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

func boolPtr(v bool) *bool { return &v }
