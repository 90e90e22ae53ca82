package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	mcpserver "pagebuilder/internal/mcp"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

// Events emitted by the watcher on top of the service events.
const (
	EventPagesChanged = "pages:changed"
	EventMCPActivity  = "mcp:activity"
)

const defaultPollInterval = 2 * time.Second

// pageWatcher polls the database for changes made by another process
// sharing it (the standalone MCP server, a second desktop window). A
// changed active page is reloaded into the editor; pending approvals are
// surfaced as events so the frontend can prompt for them.
type pageWatcher struct {
	db        *storage.DB
	editor    *service.EditorService
	approvals *storage.ApprovalStore // nil: approvals are not surfaced
	emitter   service.EventEmitter
	log       *zap.Logger
	interval  time.Duration

	mu           sync.Mutex
	page         string // page the fingerprint belongs to
	lastPage     string // active page updated_at
	lastPageList string // pages count + max updated_at
	reload       bool   // a reload waits for a gesture to finish
	// Approval ids already emitted, so each is announced once
	emittedApprovals map[string]bool

	stopCh chan struct{}
	done   chan struct{}
}

func newPageWatcher(rt *Runtime, approvals *storage.ApprovalStore, emitter service.EventEmitter) *pageWatcher {
	return &pageWatcher{
		db:               rt.DB,
		editor:           rt.Editor,
		approvals:        approvals,
		emitter:          emitter,
		log:              rt.Log.Named("watcher"),
		interval:         defaultPollInterval,
		emittedApprovals: map[string]bool{},
	}
}

// Start begins the polling loop. Call once.
func (w *pageWatcher) Start(ctx context.Context) {
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.pollLoop(ctx)
}

// Stop terminates the polling loop and waits for it to exit.
func (w *pageWatcher) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.done
	w.stopCh = nil
}

func (w *pageWatcher) pollLoop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.check(ctx)
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *pageWatcher) check(ctx context.Context) {
	page := w.editor.CurrentPage()
	conn := w.db.Conn()

	// ── Active page updated_at ──────────────────────────
	var pageUpdated string
	err := conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(updated_at), '') FROM pages WHERE name = ?`, page,
	).Scan(&pageUpdated)
	if err != nil {
		w.log.Debug("page fingerprint", zap.Error(err))
		return
	}

	// ── Page list ───────────────────────────────────────
	var pageCount int
	var pagesMaxUpdated string
	err = conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(MAX(updated_at), '') FROM pages`,
	).Scan(&pageCount, &pagesMaxUpdated)
	if err != nil {
		w.log.Debug("page list fingerprint", zap.Error(err))
		return
	}
	listFingerprint := fmt.Sprintf("%d:%s", pageCount, pagesMaxUpdated)

	w.mu.Lock()
	if w.page != page {
		// Switched locally; start a fresh baseline
		w.page = page
		w.lastPage = ""
		w.reload = false
	}
	pageChanged := w.reload || (w.lastPage != "" && w.lastPage != pageUpdated)
	listChanged := w.lastPageList != "" && w.lastPageList != listFingerprint
	w.lastPage = pageUpdated
	w.lastPageList = listFingerprint
	w.mu.Unlock()

	if pageChanged {
		// Our own saves bump updated_at too; Reload recognises and skips them.
		_, err := w.editor.Reload(ctx)
		deferred := errors.Is(err, service.ErrReloadDeferred)
		if err != nil && !deferred {
			w.log.Warn("reload page", zap.String("page", page), zap.Error(err))
		}
		w.mu.Lock()
		w.reload = deferred
		w.mu.Unlock()
	}
	if listChanged {
		w.emitter.Emit(ctx, EventPagesChanged, map[string]int{"count": pageCount})
	}

	if w.approvals != nil {
		w.checkApprovals(ctx, page)
	}
}

// checkApprovals announces new pending approvals and dismisses the ones
// resolved or withdrawn since the last poll.
func (w *pageWatcher) checkApprovals(ctx context.Context, page string) {
	pending, err := w.approvals.ListPending()
	if err != nil {
		w.log.Debug("list approvals", zap.Error(err))
		return
	}

	var fresh []storage.Approval
	var gone []string
	w.mu.Lock()
	still := make(map[string]bool, len(pending))
	for _, a := range pending {
		still[a.ID] = true
		if !w.emittedApprovals[a.ID] {
			w.emittedApprovals[a.ID] = true
			fresh = append(fresh, a)
		}
	}
	for id := range w.emittedApprovals {
		if !still[id] {
			delete(w.emittedApprovals, id)
			gone = append(gone, id)
		}
	}
	w.mu.Unlock()

	for _, a := range fresh {
		w.emitter.Emit(ctx, EventMCPActivity, map[string]any{"changes": 1, "page": page})
		w.emitter.Emit(ctx, mcpserver.EventApprovalRequired, mcpserver.PendingAction{
			ID:          a.ID,
			Tool:        a.Tool,
			Description: a.Description,
			CreatedAt:   a.CreatedAt.UTC().Format(time.RFC3339),
			Metadata:    a.Metadata,
		})
	}
	for _, id := range gone {
		w.emitter.Emit(ctx, mcpserver.EventApprovalDismissed, map[string]string{"id": id})
	}
}
