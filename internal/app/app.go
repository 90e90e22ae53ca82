package app

import (
	"context"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"pagebuilder/internal/config"
	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/service"
)

// App is the main Wails application struct.
// All exported methods are available as Wails bindings.
type App struct {
	ctx context.Context
	cfg *config.Config
	log *zap.Logger

	rt      *Runtime
	watcher *pageWatcher
}

// New creates a new App.
func New(cfg *config.Config, log *zap.Logger) *App {
	if log == nil {
		log = zap.NewNop()
	}
	return &App{cfg: cfg, log: log}
}

// wailsEmitter forwards service events to the frontend. Wails needs its
// own context, not the caller's.
type wailsEmitter struct {
	ctx context.Context
}

func (e wailsEmitter) Emit(_ context.Context, event string, data any) {
	wailsRuntime.EventsEmit(e.ctx, event, data)
}

// Startup is called when the app starts.
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	emitter := service.MultiEmitter{wailsEmitter{ctx: ctx}, service.LogEmitter{Log: a.log.Named("events")}}

	rt, err := NewRuntime(ctx, a.cfg, emitter, a.log)
	if err != nil {
		a.log.Error("startup failed", zap.Error(err))
		wailsRuntime.LogFatalf(ctx, "Failed to start: %v", err)
		return
	}
	a.rt = rt
	if err := rt.Start(ctx); err != nil {
		a.log.Warn("background jobs disabled", zap.Error(err))
	}

	// Picks up edits and approval requests from a standalone MCP server
	a.watcher = newPageWatcher(rt, rt.Approvals, emitter)
	a.watcher.Start(ctx)
}

// Shutdown is called when the app is closing.
func (a *App) Shutdown(ctx context.Context) {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.rt != nil {
		if err := a.rt.Close(ctx); err != nil {
			a.log.Warn("shutdown", zap.Error(err))
		}
	}
}

// ============================================================
// Workspace
// ============================================================

func (a *App) GetState() domain.PageState {
	return a.rt.Editor.State()
}

func (a *App) GetPanel() editor.PropertyPanel {
	return a.rt.Editor.Panel()
}

func (a *App) ListTemplates() []editor.Template {
	return a.rt.Editor.Templates()
}

// RenderPage returns the element markup the canvas shows.
func (a *App) RenderPage() string {
	return a.rt.Editor.Render()
}

// SetViewport tells the session where to centre new elements. Called on
// window resize.
func (a *App) SetViewport(width, height float64) {
	a.rt.Editor.SetViewport(editor.Viewport{Width: width, Height: height})
}

// ============================================================
// Elements
// ============================================================

func (a *App) CreateElement(kind, payload string) (domain.Element, error) {
	return a.rt.Editor.CreateElement(a.ctx, domain.ElementKind(kind), payload)
}

func (a *App) CreateFromTemplate(name string) (domain.Element, error) {
	return a.rt.Editor.CreateFromTemplate(a.ctx, name)
}

func (a *App) SelectElement(id string) (editor.PropertyPanel, error) {
	return a.rt.Editor.Select(a.ctx, id)
}

func (a *App) Deselect() bool {
	return a.rt.Editor.Deselect(a.ctx)
}

// ApplyEdit applies property panel changes to the selected element.
func (a *App) ApplyEdit(edit service.PropertyEdit) (domain.Element, error) {
	return a.rt.Editor.ApplyEdit(a.ctx, edit)
}

func (a *App) DeleteSelected() (domain.Element, error) {
	return a.rt.Editor.DeleteSelected(a.ctx)
}

func (a *App) DeleteElement(id string) (domain.Element, error) {
	return a.rt.Editor.Delete(a.ctx, id)
}

// HandlePointer feeds one pointer event from the canvas into the session.
func (a *App) HandlePointer(ev editor.PointerEvent) (editor.PointerResult, error) {
	return a.rt.Editor.HandlePointer(a.ctx, ev)
}
