package api

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

// Deps holds the services the HTTP API delegates to.
type Deps struct {
	Editor *service.EditorService
	Deploy *service.DeployService
	Visual *service.VisualConfigService
	Hub    *Hub
	Logger *zap.Logger

	// Approvals written by a standalone MCP server; nil disables the routes.
	Approvals *storage.ApprovalStore

	// AllowedOrigins lists the CORS and websocket origins; empty allows any.
	AllowedOrigins []string
	// MaxUploadBytes caps a multipart media upload.
	MaxUploadBytes int64
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	editor    *service.EditorService
	deploy    *service.DeployService
	visual    *service.VisualConfigService
	hub       *Hub
	approvals *storage.ApprovalStore
	log       *zap.Logger

	origins   map[string]bool
	maxUpload int64

	pointerConns atomic.Int64 // pointer sockets opened, for id namespaces
}

const defaultMaxUpload = 64 << 20

// NewHandler creates a new HTTP handler
func NewHandler(deps Deps) *Handler {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handler{
		editor:    deps.Editor,
		deploy:    deps.Deploy,
		visual:    deps.Visual,
		hub:       deps.Hub,
		approvals: deps.Approvals,
		log:       log,
		maxUpload: deps.MaxUploadBytes,
	}
	if h.maxUpload <= 0 {
		h.maxUpload = defaultMaxUpload
	}
	if len(deps.AllowedOrigins) > 0 {
		h.origins = make(map[string]bool, len(deps.AllowedOrigins))
		for _, o := range deps.AllowedOrigins {
			h.origins[strings.TrimRight(o, "/")] = true
		}
	}
	return h
}

// SetupRoutes configures all HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	r := mux.NewRouter()

	// API v1 routes
	api := r.PathPrefix("/v1").Subrouter()

	// Workspace
	api.HandleFunc("/state", h.GetState).Methods("GET", "OPTIONS")
	api.HandleFunc("/viewport", h.SetViewport).Methods("PUT", "OPTIONS")
	api.HandleFunc("/templates", h.ListTemplates).Methods("GET", "OPTIONS")
	api.HandleFunc("/render", h.Render).Methods("GET", "OPTIONS")
	api.HandleFunc("/document", h.Document).Methods("GET", "OPTIONS")

	// Elements
	api.HandleFunc("/elements", h.ListElements).Methods("GET", "OPTIONS")
	api.HandleFunc("/elements", h.CreateElement).Methods("POST", "OPTIONS")
	api.HandleFunc("/elements/{id}", h.GetElement).Methods("GET", "OPTIONS")
	api.HandleFunc("/elements/{id}", h.DeleteElement).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/elements/{id}/drag", h.DragElement).Methods("POST", "OPTIONS")
	api.HandleFunc("/elements/{id}/resize", h.ResizeElement).Methods("POST", "OPTIONS")

	// Selection and property panel
	api.HandleFunc("/selection", h.GetSelection).Methods("GET", "OPTIONS")
	api.HandleFunc("/selection", h.Select).Methods("PUT", "OPTIONS")
	api.HandleFunc("/selection", h.Deselect).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/selection/properties", h.EditSelection).Methods("PATCH", "OPTIONS")
	api.HandleFunc("/selection/delete", h.DeleteSelection).Methods("POST", "OPTIONS")

	// Pages and history
	api.HandleFunc("/pages", h.ListPages).Methods("GET", "OPTIONS")
	api.HandleFunc("/pages/current", h.SwitchPage).Methods("PUT", "OPTIONS")
	api.HandleFunc("/pages/current/save", h.SavePage).Methods("POST", "OPTIONS")
	api.HandleFunc("/pages/{name}", h.DeletePage).Methods("DELETE", "OPTIONS")
	api.HandleFunc("/history", h.GetHistory).Methods("GET", "OPTIONS")
	api.HandleFunc("/history/undo", h.Undo).Methods("POST", "OPTIONS")
	api.HandleFunc("/history/redo", h.Redo).Methods("POST", "OPTIONS")
	api.HandleFunc("/history/{id}", h.GoToHistory).Methods("POST", "OPTIONS")

	// Media dock
	api.HandleFunc("/media", h.ListMedia).Methods("GET", "OPTIONS")
	api.HandleFunc("/media", h.UploadMedia).Methods("POST", "OPTIONS")
	api.HandleFunc("/media/{id}/spawn", h.SpawnMedia).Methods("POST", "OPTIONS")

	// Deploy and checkout
	api.HandleFunc("/deploy", h.GetBuild).Methods("GET", "OPTIONS")
	api.HandleFunc("/deploy", h.Deploy).Methods("POST", "OPTIONS")
	api.HandleFunc("/checkout", h.Checkout).Methods("POST", "OPTIONS")

	// Visual configuration
	api.HandleFunc("/config", h.GetVisualConfig).Methods("GET", "OPTIONS")
	api.HandleFunc("/config", h.PutVisualConfig).Methods("PUT", "OPTIONS")

	// MCP approvals
	if h.approvals != nil {
		api.HandleFunc("/approvals", h.ListApprovals).Methods("GET", "OPTIONS")
		api.HandleFunc("/approvals/{id}/{decision:approve|reject}", h.ResolveApproval).Methods("POST", "OPTIONS")
	}

	// Websockets
	api.HandleFunc("/pointer", h.PointerStream).Methods("GET", "OPTIONS")
	api.HandleFunc("/events", h.EventStream).Methods("GET", "OPTIONS")

	r.Use(h.loggingMiddleware)
	r.Use(h.corsMiddleware)
	return r
}

func (h *Handler) allowOrigin(origin string) bool {
	if h.origins == nil || origin == "" {
		return true
	}
	return h.origins[strings.TrimRight(origin, "/")]
}

// corsMiddleware adds CORS headers
func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case h.origins == nil:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && h.allowOrigin(origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets the websocket upgrader reach the underlying Hijacker.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Upgrade") != "" {
			// Hijacked connections outlive the request.
			h.log.Debug("websocket upgrade", zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)))
	})
}
