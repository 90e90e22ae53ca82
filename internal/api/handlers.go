package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

// ── Workspace ─────────────────────────────────────────────

// GetState handles GET /v1/state
func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.editor.State())
}

// SetViewport handles PUT /v1/viewport
func (h *Handler) SetViewport(w http.ResponseWriter, r *http.Request) {
	var v editor.Viewport
	if err := decodeBody(r, &v); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if v.Width <= 0 || v.Height <= 0 {
		badRequest(w, "viewport width and height must be positive")
		return
	}
	h.editor.SetViewport(v)
	writeJSON(w, http.StatusOK, h.editor.Viewport())
}

// ListTemplates handles GET /v1/templates
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.editor.Templates())
}

// Render handles GET /v1/render
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, h.editor.Render())
}

// Document handles GET /v1/document
func (h *Handler) Document(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, h.editor.Document())
}

// ── Elements ──────────────────────────────────────────────

type createElementRequest struct {
	Kind     domain.ElementKind `json:"kind"`
	Content  string             `json:"content"`
	Template string             `json:"template"`
}

// ListElements handles GET /v1/elements
func (h *Handler) ListElements(w http.ResponseWriter, r *http.Request) {
	els := h.editor.State().Elements
	if kind := r.URL.Query().Get("kind"); kind != "" {
		filtered := make([]domain.Element, 0, len(els))
		for _, el := range els {
			if string(el.Kind) == kind {
				filtered = append(filtered, el)
			}
		}
		els = filtered
	}
	writeJSON(w, http.StatusOK, els)
}

// CreateElement handles POST /v1/elements. A template name takes
// precedence over kind.
func (h *Handler) CreateElement(w http.ResponseWriter, r *http.Request) {
	var req createElementRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}

	var (
		el  domain.Element
		err error
	)
	switch {
	case req.Template != "":
		el, err = h.editor.CreateFromTemplate(r.Context(), req.Template)
	case req.Kind != "":
		el, err = h.editor.CreateElement(r.Context(), req.Kind, req.Content)
	default:
		badRequest(w, "kind or template is required")
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, el)
}

// GetElement handles GET /v1/elements/{id}
func (h *Handler) GetElement(w http.ResponseWriter, r *http.Request) {
	el, err := h.editor.Element(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

// DeleteElement handles DELETE /v1/elements/{id}
func (h *Handler) DeleteElement(w http.ResponseWriter, r *http.Request) {
	if _, err := h.editor.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deltaRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

// DragElement handles POST /v1/elements/{id}/drag
func (h *Handler) DragElement(w http.ResponseWriter, r *http.Request) {
	var req deltaRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}
	el, err := h.editor.DragElement(r.Context(), mux.Vars(r)["id"], req.DX, req.DY)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

// ResizeElement handles POST /v1/elements/{id}/resize
func (h *Handler) ResizeElement(w http.ResponseWriter, r *http.Request) {
	var req deltaRequest
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}
	el, err := h.editor.ResizeElement(r.Context(), mux.Vars(r)["id"], req.DX, req.DY)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

// ── Selection ─────────────────────────────────────────────

// GetSelection handles GET /v1/selection
func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.editor.Panel())
}

// Select handles PUT /v1/selection
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}
	panel, err := h.editor.Select(r.Context(), req.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, panel)
}

// Deselect handles DELETE /v1/selection
func (h *Handler) Deselect(w http.ResponseWriter, r *http.Request) {
	h.editor.Deselect(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// EditSelection handles PATCH /v1/selection/properties
func (h *Handler) EditSelection(w http.ResponseWriter, r *http.Request) {
	var edit service.PropertyEdit
	if err := decodeBody(r, &edit); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}
	el, err := h.editor.ApplyEdit(r.Context(), edit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

// DeleteSelection handles POST /v1/selection/delete
func (h *Handler) DeleteSelection(w http.ResponseWriter, r *http.Request) {
	el, err := h.editor.DeleteSelected(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, el)
}

// ── Pages & history ───────────────────────────────────────

// ListPages handles GET /v1/pages
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.editor.Pages()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"current": h.editor.CurrentPage(),
		"pages":   pages,
	})
}

// SwitchPage handles PUT /v1/pages/current
func (h *Handler) SwitchPage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}
	if _, err := h.editor.SwitchPage(r.Context(), req.Name); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.editor.State())
}

// SavePage handles POST /v1/pages/current/save
func (h *Handler) SavePage(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.Save(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeletePage handles DELETE /v1/pages/{name}
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	if err := h.editor.DeletePage(r.Context(), mux.Vars(r)["name"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHistory handles GET /v1/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	tree, err := h.editor.History()
	if err != nil {
		h.writeError(w, err)
		return
	}
	if tree == nil {
		writeJSON(w, http.StatusOK, map[string]any{"nodes": []any{}})
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// Undo handles POST /v1/history/undo
func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	state, err := h.editor.Undo(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Redo handles POST /v1/history/redo
func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	state, err := h.editor.Redo(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// GoToHistory handles POST /v1/history/{id}
func (h *Handler) GoToHistory(w http.ResponseWriter, r *http.Request) {
	state, err := h.editor.GoTo(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// ── Media ─────────────────────────────────────────────────

// ListMedia handles GET /v1/media
func (h *Handler) ListMedia(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.editor.Assets())
}

// UploadMedia handles POST /v1/media as multipart/form-data with one or
// more "files" parts. Files that decode are kept even when others fail.
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		badRequest(w, "Invalid multipart body: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		badRequest(w, `no "files" parts in upload`)
		return
	}

	uploads := make([]editor.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			badRequest(w, fmt.Sprintf("open %s: %v", fh.Filename, err))
			return
		}
		defer f.Close()
		contentType := fh.Header.Get("Content-Type")
		if contentType == "application/octet-stream" {
			contentType = ""
		}
		uploads = append(uploads, editor.Upload{Name: fh.Filename, ContentType: contentType, Data: f})
	}

	added, err := h.editor.Upload(r.Context(), uploads)
	resp := map[string]any{"added": added}
	if err != nil {
		resp["error"] = err.Error()
	}
	status := http.StatusCreated
	if len(added) == 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

// SpawnMedia handles POST /v1/media/{id}/spawn
func (h *Handler) SpawnMedia(w http.ResponseWriter, r *http.Request) {
	el, err := h.editor.SpawnMedia(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, el)
}

// ── Deploy ────────────────────────────────────────────────

// GetBuild handles GET /v1/deploy
func (h *Handler) GetBuild(w http.ResponseWriter, r *http.Request) {
	markup, pending, err := h.deploy.PendingBuild()
	if err != nil {
		h.writeError(w, err)
		return
	}
	license, _, err := h.deploy.ActiveLicense()
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": pending,
		"markup":  markup,
		"license": license,
	})
}

// Deploy handles POST /v1/deploy
func (h *Handler) Deploy(w http.ResponseWriter, r *http.Request) {
	build, err := h.deploy.Deploy(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, build)
}

// Checkout handles POST /v1/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"productId"`
	}
	if err := decodeBody(r, &req); err != nil {
		badRequest(w, "Invalid request body: "+err.Error())
		return
	}
	redirect, err := h.deploy.Checkout(r.Context(), req.ProductID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"redirect": redirect})
}

// ── Visual config ─────────────────────────────────────────

// GetVisualConfig handles GET /v1/config
func (h *Handler) GetVisualConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.visual.Load())
}

// PutVisualConfig handles PUT /v1/config
func (h *Handler) PutVisualConfig(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	if err := h.visual.Import(r.Context(), data); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.visual.Load())
}

// ── MCP approvals ─────────────────────────────────────────

// ListApprovals handles GET /v1/approvals
func (h *Handler) ListApprovals(w http.ResponseWriter, r *http.Request) {
	pending, err := h.approvals.ListPending()
	if err != nil {
		h.writeError(w, err)
		return
	}
	if pending == nil {
		pending = []storage.Approval{}
	}
	writeJSON(w, http.StatusOK, pending)
}

// ResolveApproval handles POST /v1/approvals/{id}/approve and /reject
func (h *Handler) ResolveApproval(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	approved := vars["decision"] == "approve"
	ok, err := h.approvals.ResolveApproval(vars["id"], approved)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no pending approval " + vars["id"]})
		return
	}
	h.log.Info("approval resolved", zap.String("id", vars["id"]), zap.Bool("approved", approved))
	w.WriteHeader(http.StatusNoContent)
}
