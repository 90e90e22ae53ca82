package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/storage"
)

var (
	ErrNothingToUndo      = errors.New("nothing to undo")
	ErrNothingToRedo      = errors.New("nothing to redo")
	ErrUnknownHistoryNode = errors.New("unknown history node")
	ErrActivePage         = errors.New("cannot delete the active page")
	ErrReloadDeferred     = errors.New("reload deferred until pointers release")
)

// syntheticPointer is the pointer id used for programmatic drags and resizes.
const syntheticPointer = -1

// ─────────────────────────────────────────────────────────────
// Editor Service — the single entry point into the session
// ─────────────────────────────────────────────────────────────

// PropertyEdit is a batch of property panel changes; nil fields are untouched.
type PropertyEdit struct {
	Text       *string `json:"text,omitempty"`
	Background *string `json:"background,omitempty"`
	Padding    *string `json:"padding,omitempty"`
	ZIndex     *int    `json:"zIndex,omitempty"`
}

// EditorService serialises every call into the single-threaded session,
// persists pages, history and media, and emits change events.
type EditorService struct {
	mu      sync.Mutex
	session *editor.Session
	snaps   *pageSnapshots

	pages     *storage.PageStore
	history   *storage.HistoryStore
	assets    *storage.AssetStore
	maxAssets int

	emitter EventEmitter
	log     *zap.Logger

	cronMu    sync.Mutex
	cronSched *cron.Cron
}

// NewEditorService creates an EditorService. opts.Pages and opts.Logger
// are replaced with the service's own.
func NewEditorService(
	pages *storage.PageStore,
	history *storage.HistoryStore,
	assets *storage.AssetStore,
	opts editor.Options,
	emitter EventEmitter,
	log *zap.Logger,
) *EditorService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	snaps := &pageSnapshots{pages: pages, history: history}
	opts.Pages = snaps
	opts.Logger = log.Named("editor")

	return &EditorService{
		session:   editor.NewSession(opts),
		snaps:     snaps,
		pages:     pages,
		history:   history,
		assets:    assets,
		maxAssets: opts.MaxAssets,
		emitter:   emitter,
		log:       log,
	}
}

// Open performs the initial load of page and the persisted media dock.
func (s *EditorService) Open(ctx context.Context, page string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.session.Open(ctx, page); err != nil {
		return err
	}
	stored, err := s.assets.ListAssets()
	if err != nil {
		return fmt.Errorf("load media: %w", err)
	}
	s.session.Media().Load(stored)

	if err := s.checkpoint(ctx, "open"); err != nil {
		return err
	}
	s.log.Info("workspace opened",
		zap.String("page", page),
		zap.Int("elements", s.session.Workspace().Len()),
		zap.Int("assets", len(stored)))
	s.emitter.Emit(ctx, EventPageSwitched, s.session.State())
	return nil
}

// ── Read side ─────────────────────────────────────────────

// State returns the render state of the active page.
func (s *EditorService) State() domain.PageState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.State()
}

// Panel returns the property panel for the selection.
func (s *EditorService) Panel() editor.PropertyPanel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Panel()
}

// Element returns one element of the active page.
func (s *EditorService) Element(id string) (domain.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.session.Workspace().Get(id)
	if !ok {
		return domain.Element{}, fmt.Errorf("element %s: %w", id, editor.ErrUnknownElement)
	}
	return el, nil
}

// CurrentPage returns the active page name.
func (s *EditorService) CurrentPage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.CurrentPage()
}

// Templates lists the section presets.
func (s *EditorService) Templates() []editor.Template {
	return s.session.Templates().List()
}

// Render returns the workspace markup of the active page.
func (s *EditorService) Render() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return editor.Render(s.session.Workspace().Elements())
}

// Document returns the active page as a standalone HTML document.
func (s *EditorService) Document() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return editor.RenderDocument(s.session.CurrentPage(), s.session.Workspace().Elements())
}

// Viewport returns the area new elements are centred on.
func (s *EditorService) Viewport() editor.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Viewport()
}

// SetViewport changes the area new elements are centred on.
func (s *EditorService) SetViewport(v editor.Viewport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.SetViewport(v)
}

// ── Placement ─────────────────────────────────────────────

// CreateElement places a new element of kind at the viewport centre.
func (s *EditorService) CreateElement(ctx context.Context, kind domain.ElementKind, payload string) (domain.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, err := s.session.CreateElement(kind, payload)
	if err != nil {
		return domain.Element{}, err
	}
	return el, s.created(ctx, el)
}

// CreateFromTemplate places a section preset.
func (s *EditorService) CreateFromTemplate(ctx context.Context, name string) (domain.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, err := s.session.CreateFromTemplate(name)
	if err != nil {
		return domain.Element{}, err
	}
	return el, s.created(ctx, el)
}

// SpawnMedia places an element showing a docked asset.
func (s *EditorService) SpawnMedia(ctx context.Context, assetID string) (domain.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, err := s.session.SpawnMedia(assetID)
	if err != nil {
		return domain.Element{}, err
	}
	return el, s.created(ctx, el)
}

func (s *EditorService) created(ctx context.Context, el domain.Element) error {
	s.emitter.Emit(ctx, EventElementCreated, el)
	return s.checkpoint(ctx, "create "+string(el.Kind))
}

// ── Selection & properties ────────────────────────────────

// Select makes id the single selected element.
func (s *EditorService) Select(ctx context.Context, id string) (editor.PropertyPanel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.session.Select(id); err != nil {
		return editor.PropertyPanel{}, err
	}
	panel := s.session.Panel()
	s.emitter.Emit(ctx, EventSelectionChanged, panel)
	return panel, nil
}

// Deselect returns to Idle and reports whether anything was selected.
func (s *EditorService) Deselect(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	had := s.session.DeselectAll()
	if had {
		s.emitter.Emit(ctx, EventSelectionChanged, s.session.Panel())
	}
	return had
}

// ApplyEdit writes a batch of property changes to the selected element
// and records one history step. A text edit on media fails before any
// other field is touched.
func (s *EditorService) ApplyEdit(ctx context.Context, edit PropertyEdit) (domain.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if edit.Text != nil {
		if err := s.session.SetText(*edit.Text); err != nil {
			return domain.Element{}, err
		}
	}
	if edit.Background != nil {
		if err := s.session.SetBackground(*edit.Background); err != nil {
			return domain.Element{}, err
		}
	}
	if edit.Padding != nil {
		if err := s.session.SetPadding(*edit.Padding); err != nil {
			return domain.Element{}, err
		}
	}
	if edit.ZIndex != nil {
		if err := s.session.SetZIndex(*edit.ZIndex); err != nil {
			return domain.Element{}, err
		}
	}

	el, ok := s.session.Selected()
	if !ok {
		return domain.Element{}, editor.ErrNoSelection
	}
	s.emitter.Emit(ctx, EventElementUpdated, el)
	return el, s.checkpoint(ctx, "edit")
}

// DeleteSelected removes the selected element.
func (s *EditorService) DeleteSelected(ctx context.Context) (domain.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, err := s.session.DeleteSelected()
	if err != nil {
		return domain.Element{}, err
	}
	return el, s.deleted(ctx, el)
}

// Delete removes an element by ID.
func (s *EditorService) Delete(ctx context.Context, id string) (domain.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, err := s.session.Delete(id)
	if err != nil {
		return domain.Element{}, err
	}
	return el, s.deleted(ctx, el)
}

func (s *EditorService) deleted(ctx context.Context, el domain.Element) error {
	s.emitter.Emit(ctx, EventElementDeleted, el)
	return s.checkpoint(ctx, "delete "+string(el.Kind))
}

// ── Pointer interaction ───────────────────────────────────

// HandlePointer feeds one pointer event into the session. A completed
// gesture records one history step.
func (s *EditorService) HandlePointer(ctx context.Context, ev editor.PointerEvent) (editor.PointerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handlePointer(ctx, ev)
}

func (s *EditorService) handlePointer(ctx context.Context, ev editor.PointerEvent) (editor.PointerResult, error) {
	res, err := s.session.HandlePointer(ev)
	if err != nil {
		return res, err
	}
	if res.Ignored {
		return res, nil
	}

	switch ev.Type {
	case editor.PointerDown:
		s.emitter.Emit(ctx, EventSelectionChanged, s.session.Panel())
	case editor.PointerMove:
		if res.Element != nil {
			s.emitter.Emit(ctx, EventElementUpdated, *res.Element)
		}
	case editor.PointerUp, editor.PointerCancel:
		if res.Element != nil {
			if err := s.checkpoint(ctx, "transform"); err != nil {
				return res, err
			}
		}
	}
	return res, nil
}

// DragElement moves an element by (dx, dy) through a synthetic gesture on
// its body, exactly as a pointer would.
func (s *EditorService) DragElement(ctx context.Context, id string, dx, dy float64) (domain.Element, error) {
	return s.gesture(ctx, &editor.Target{ElementID: id, Part: editor.PartBody}, dx, dy)
}

// ResizeElement grows an element by (dw, dh) through a synthetic gesture
// on its bottom-right handle.
func (s *EditorService) ResizeElement(ctx context.Context, id string, dw, dh float64) (domain.Element, error) {
	return s.gesture(ctx, &editor.Target{ElementID: id, Part: editor.PartHandle, Corner: editor.CornerSE}, dw, dh)
}

func (s *EditorService) gesture(ctx context.Context, target *editor.Target, dx, dy float64) (domain.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := []editor.PointerEvent{
		{PointerID: syntheticPointer, Type: editor.PointerDown, Device: "api", Target: target},
		{PointerID: syntheticPointer, Type: editor.PointerMove, Device: "api", X: dx, Y: dy},
		{PointerID: syntheticPointer, Type: editor.PointerUp, Device: "api", X: dx, Y: dy},
	}
	var last editor.PointerResult
	for _, ev := range events {
		res, err := s.handlePointer(ctx, ev)
		if err != nil {
			return domain.Element{}, err
		}
		last = res
	}
	if last.Element == nil {
		return domain.Element{}, fmt.Errorf("element %s: %w", target.ElementID, editor.ErrUnknownElement)
	}
	return *last.Element, nil
}

// Arrange moves each element to the X/Y given for it in one history step.
// Selection and stacking are left alone. Elements whose offset is
// unchanged are skipped.
func (s *EditorService) Arrange(ctx context.Context, layout []domain.Element) ([]domain.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var moved []domain.Element
	for _, want := range layout {
		cur, ok := s.session.Workspace().Get(want.ID)
		if !ok {
			return moved, fmt.Errorf("element %s: %w", want.ID, editor.ErrUnknownElement)
		}
		if cur.X == want.X && cur.Y == want.Y {
			continue
		}
		el, err := s.session.Reposition(want.ID, want.X, want.Y)
		if err != nil {
			return moved, err
		}
		moved = append(moved, el)
		s.emitter.Emit(ctx, EventElementUpdated, el)
	}
	if len(moved) == 0 {
		return nil, nil
	}
	return moved, s.checkpoint(ctx, "arrange")
}

// ── Pages & history ───────────────────────────────────────

// SwitchPage saves the active page and loads name.
func (s *EditorService) SwitchPage(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switched, err := s.session.SwitchPage(ctx, name)
	if err != nil || !switched {
		return switched, err
	}
	if err := s.checkpoint(ctx, "open"); err != nil {
		return true, err
	}
	s.log.Debug("page switched", zap.String("page", name))
	s.emitter.Emit(ctx, EventPageSwitched, s.session.State())
	return true, nil
}

// Pages lists every saved page plus the active one, sorted by name.
func (s *EditorService) Pages() ([]string, error) {
	s.mu.Lock()
	current := s.session.CurrentPage()
	s.mu.Unlock()

	stored, err := s.pages.ListPages()
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{current: true}
	names := []string{current}
	for _, p := range stored {
		if !seen[p.Name] {
			seen[p.Name] = true
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// DeletePage removes a saved page and its history.
func (s *EditorService) DeletePage(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == s.session.CurrentPage() {
		return ErrActivePage
	}
	return s.pages.DeletePage(name)
}

// Save writes the active page and records it in history.
func (s *EditorService) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpoint(ctx, "save")
}

// Reload adopts the stored copy of the active page when another process
// wrote it. It reports whether the workspace was replaced. Our own writes
// are recognised and skipped. While a pointer holds an element the reload
// is refused with ErrReloadDeferred so the gesture survives; the caller
// retries later.
func (s *EditorService) Reload(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page := s.session.CurrentPage()
	stored, err := s.pages.GetPage(page)
	if err != nil || stored == nil {
		return false, err
	}
	if s.snaps.own(page, stored.Snapshot) {
		return false, nil
	}
	if s.session.Capturing() {
		return false, ErrReloadDeferred
	}
	current, err := s.session.Snapshot()
	if err != nil {
		return false, err
	}
	if stored.Snapshot == current {
		s.snaps.known(page, stored.Snapshot)
		return false, nil
	}
	if _, err := s.session.Restore(stored.Snapshot); err != nil {
		return false, fmt.Errorf("reload %s: %w", page, err)
	}
	s.snaps.known(page, stored.Snapshot)
	state := s.session.State()
	s.log.Info("page changed externally", zap.String("page", page), zap.Int("elements", len(state.Elements)))
	s.emitter.Emit(ctx, EventPageSwitched, state)
	return true, nil
}

// History returns the history tree of the active page.
func (s *EditorService) History() (*storage.HistoryTree, error) {
	s.mu.Lock()
	page := s.session.CurrentPage()
	s.mu.Unlock()
	return s.history.LoadTree(page)
}

// Undo restores the parent of the current history node.
func (s *EditorService) Undo(ctx context.Context) (domain.PageState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, cur, err := s.currentNode()
	if err != nil {
		return domain.PageState{}, err
	}
	if cur.ParentID == nil {
		return domain.PageState{}, ErrNothingToUndo
	}
	parent, ok := tree.Node(*cur.ParentID)
	if !ok {
		return domain.PageState{}, ErrNothingToUndo
	}
	return s.restore(ctx, parent)
}

// Redo restores the most recent child of the current history node.
func (s *EditorService) Redo(ctx context.Context) (domain.PageState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, cur, err := s.currentNode()
	if err != nil {
		return domain.PageState{}, err
	}
	child, ok := tree.LatestChild(cur.ID)
	if !ok {
		return domain.PageState{}, ErrNothingToRedo
	}
	return s.restore(ctx, child)
}

// GoTo restores an arbitrary node of the active page's history.
func (s *EditorService) GoTo(ctx context.Context, nodeID string) (domain.PageState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tree, err := s.history.LoadTree(s.session.CurrentPage())
	if err != nil {
		return domain.PageState{}, err
	}
	if tree == nil {
		return domain.PageState{}, fmt.Errorf("%s: %w", nodeID, ErrUnknownHistoryNode)
	}
	node, ok := tree.Node(nodeID)
	if !ok {
		return domain.PageState{}, fmt.Errorf("%s: %w", nodeID, ErrUnknownHistoryNode)
	}
	return s.restore(ctx, node)
}

func (s *EditorService) currentNode() (*storage.HistoryTree, storage.HistoryNode, error) {
	tree, err := s.history.LoadTree(s.session.CurrentPage())
	if err != nil {
		return nil, storage.HistoryNode{}, err
	}
	if tree == nil {
		return nil, storage.HistoryNode{}, ErrNothingToUndo
	}
	cur, ok := tree.Node(tree.CurrentID)
	if !ok {
		return nil, storage.HistoryNode{}, ErrNothingToUndo
	}
	return tree, cur, nil
}

func (s *EditorService) restore(ctx context.Context, node storage.HistoryNode) (domain.PageState, error) {
	page := s.session.CurrentPage()
	if _, err := s.session.Restore(node.SnapshotJSON); err != nil {
		return domain.PageState{}, err
	}
	if err := s.history.GoTo(page, node.ID); err != nil {
		return domain.PageState{}, fmt.Errorf("move history pointer: %w", err)
	}
	if err := s.pages.SavePage(&domain.Page{Name: page, Snapshot: node.SnapshotJSON}); err != nil {
		return domain.PageState{}, err
	}
	s.snaps.known(page, node.SnapshotJSON)
	state := s.session.State()
	s.emitter.Emit(ctx, EventHistoryChanged, state)
	return state, nil
}

// checkpoint persists the active page and records a history node when
// the workspace changed since the current one. Caller holds s.mu.
func (s *EditorService) checkpoint(ctx context.Context, label string) error {
	snap, err := s.session.Snapshot()
	if err != nil {
		return err
	}
	pushed, err := s.snaps.record(s.session.CurrentPage(), label, snap)
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", label, err)
	}
	if pushed {
		s.emitter.Emit(ctx, EventHistoryChanged, label)
	}
	return nil
}

// ── Media ─────────────────────────────────────────────────

// Upload decodes files into the media dock and persists them. Decoding
// runs outside the session lock; the dock has its own.
func (s *EditorService) Upload(ctx context.Context, files []editor.Upload) ([]domain.MediaAsset, error) {
	added, uploadErr := s.session.Media().Upload(ctx, files)

	var persistErrs []error
	for i := range added {
		if err := s.assets.CreateAsset(&added[i]); err != nil {
			persistErrs = append(persistErrs, err)
		}
	}
	if s.maxAssets > 0 {
		if err := s.assets.TrimAssets(s.maxAssets); err != nil {
			persistErrs = append(persistErrs, err)
		}
	}
	for _, a := range added {
		s.emitter.Emit(ctx, EventMediaAdded, a)
	}
	if uploadErr != nil {
		s.log.Warn("media upload failed for some files", zap.Error(uploadErr))
	}
	return added, errors.Join(append([]error{uploadErr}, persistErrs...)...)
}

// Assets returns the media dock, most recent first.
func (s *EditorService) Assets() []domain.MediaAsset {
	return s.session.Media().Assets()
}

// ── Autosave ──────────────────────────────────────────────

// StartAutosave snapshots the active page on a cron schedule. An empty
// schedule disables autosave.
func (s *EditorService) StartAutosave(ctx context.Context, schedule string) error {
	if schedule == "" {
		return nil
	}
	s.StopAutosave()

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { s.autosave(ctx) }); err != nil {
		return fmt.Errorf("autosave: invalid schedule %q: %w", schedule, err)
	}
	c.Start()

	s.cronMu.Lock()
	s.cronSched = c
	s.cronMu.Unlock()
	s.log.Info("autosave scheduled", zap.String("schedule", schedule))
	return nil
}

// StopAutosave stops the scheduler and waits for a running save.
func (s *EditorService) StopAutosave() {
	s.cronMu.Lock()
	c := s.cronSched
	s.cronSched = nil
	s.cronMu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *EditorService) autosave(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	page := s.session.CurrentPage()
	if err := s.checkpoint(ctx, "autosave"); err != nil {
		s.log.Warn("autosave failed", zap.String("page", page), zap.Error(err))
		return
	}
	s.emitter.Emit(ctx, EventPageAutosaved, page)
}

// Close stops autosave and writes the active page.
func (s *EditorService) Close(ctx context.Context) error {
	s.StopAutosave()
	return s.Save(ctx)
}
