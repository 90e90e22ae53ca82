package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/service"
)

func TestEditorService_OpenRecordsRoot(t *testing.T) {
	f := newFixture(t, 0)

	tree, err := f.editor.History()
	if err != nil {
		t.Fatal(err)
	}
	if tree == nil || len(tree.Nodes) != 1 || tree.Nodes[0].SnapshotJSON != "[]" {
		t.Fatalf("expected a single empty root, got %+v", tree)
	}
	if f.emitter.Count(service.EventPageSwitched) != 1 {
		t.Errorf("events %v", f.emitter.Names())
	}
	if p, _ := f.pages.GetPage(editor.DefaultPage); p == nil {
		t.Error("opening should persist the page")
	}
}

func TestEditorService_PointerGestureRecordsOneStep(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	el, err := f.editor.CreateElement(ctx, domain.ElementKindBox, "")
	if err != nil {
		t.Fatal(err)
	}

	for _, ev := range []editor.PointerEvent{
		{PointerID: 1, Type: editor.PointerDown, X: 450, Y: 250, Device: "mouse"},
		{PointerID: 1, Type: editor.PointerMove, X: 470, Y: 240, Device: "mouse"},
		{PointerID: 1, Type: editor.PointerMove, X: 500, Y: 230, Device: "mouse"},
		{PointerID: 1, Type: editor.PointerUp, X: 500, Y: 230, Device: "mouse"},
	} {
		if _, err := f.editor.HandlePointer(ctx, ev); err != nil {
			t.Fatalf("%s: %v", ev.Type, err)
		}
	}

	got, err := f.editor.Element(el.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.X != el.X+50 || got.Y != el.Y-20 {
		t.Errorf("expected (%.0f, %.0f), got (%.0f, %.0f)", el.X+50, el.Y-20, got.X, got.Y)
	}
	if f.emitter.Count(service.EventElementUpdated) != 2 {
		t.Errorf("expected one update per move, events %v", f.emitter.Names())
	}

	tree, _ := f.editor.History()
	if len(tree.Nodes) != 3 {
		t.Errorf("expected open, create and transform nodes, got %d", len(tree.Nodes))
	}
	if last := tree.Nodes[len(tree.Nodes)-1]; last.Label != "transform" || last.ID != tree.CurrentID {
		t.Errorf("unexpected last node %+v", last)
	}
}

func TestEditorService_UndoRedo(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	if _, err := f.editor.Undo(ctx); !errors.Is(err, service.ErrNothingToUndo) {
		t.Fatalf("expected ErrNothingToUndo at the root, got %v", err)
	}

	box, _ := f.editor.CreateElement(ctx, domain.ElementKindBox, "")
	withBox := f.editor.State().Elements

	state, err := f.editor.Undo(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Elements) != 0 || !state.Placeholder {
		t.Fatalf("undo should restore the empty page, got %+v", state)
	}
	p, _ := f.pages.GetPage(editor.DefaultPage)
	if p.Snapshot != "[]" {
		t.Errorf("stored page should follow undo, got %q", p.Snapshot)
	}

	state, err = f.editor.Redo(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(withBox, state.Elements); diff != "" {
		t.Errorf("redo mismatch (-want +got):\n%s", diff)
	}

	// The restored element is fully interactive again.
	if _, err := f.editor.Select(ctx, box.ID); err != nil {
		t.Fatalf("restored element not selectable: %v", err)
	}
	if _, err := f.editor.DragElement(ctx, box.ID, 5, 5); err != nil {
		t.Fatalf("restored element not draggable: %v", err)
	}

	if _, err := f.editor.Redo(ctx); !errors.Is(err, service.ErrNothingToRedo) {
		t.Errorf("expected ErrNothingToRedo, got %v", err)
	}
	if _, err := f.editor.GoTo(ctx, "missing"); !errors.Is(err, service.ErrUnknownHistoryNode) {
		t.Errorf("expected ErrUnknownHistoryNode, got %v", err)
	}
}

func TestEditorService_SwitchPage(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	box, _ := f.editor.CreateElement(ctx, domain.ElementKindBox, "")
	switched, err := f.editor.SwitchPage(ctx, "about")
	if err != nil || !switched {
		t.Fatalf("switch: %v %v", switched, err)
	}
	if st := f.editor.State(); st.Page != "about" || !st.Placeholder {
		t.Fatalf("about should open blank, got %+v", st)
	}

	pages, err := f.editor.Pages()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"about", "home"}, pages); diff != "" {
		t.Errorf("pages (-want +got):\n%s", diff)
	}

	if err := f.editor.DeletePage(ctx, "about"); !errors.Is(err, service.ErrActivePage) {
		t.Errorf("expected ErrActivePage, got %v", err)
	}

	if _, err := f.editor.SwitchPage(ctx, "home"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.editor.Select(ctx, box.ID); err != nil {
		t.Fatalf("home element not selectable after switching back: %v", err)
	}

	if switched, _ := f.editor.SwitchPage(ctx, "home"); switched {
		t.Error("switching to the active page should be a no-op")
	}
}

func TestEditorService_ApplyEdit(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	txt, _ := f.editor.CreateElement(ctx, domain.ElementKindText, "")
	if _, err := f.editor.ApplyEdit(ctx, service.PropertyEdit{Text: ptr("x")}); !errors.Is(err, editor.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}

	f.editor.Select(ctx, txt.ID)
	el, err := f.editor.ApplyEdit(ctx, service.PropertyEdit{Text: ptr("Hello"), Padding: ptr("8px"), ZIndex: ptr(50)})
	if err != nil {
		t.Fatal(err)
	}
	if el.Content != "Hello" || el.Style.Padding != "8px" || el.ZIndex != 50 {
		t.Errorf("edit not applied: %+v", el)
	}

	img, _ := f.editor.CreateElement(ctx, domain.ElementKindImage, "data:image/png;base64,AA==")
	if img.ZIndex <= 50 {
		t.Errorf("new element should stack above explicit z-index, got %d", img.ZIndex)
	}
	f.editor.Select(ctx, img.ID)
	_, err = f.editor.ApplyEdit(ctx, service.PropertyEdit{Text: ptr("caption"), Background: ptr("#f00")})
	if !errors.Is(err, editor.ErrNotTextual) {
		t.Fatalf("expected ErrNotTextual, got %v", err)
	}
	got, _ := f.editor.Element(img.ID)
	if got.Style.Background != "" || got.Content != img.Content {
		t.Errorf("rejected edit must not touch the element: %+v", got)
	}
}

func TestEditorService_DeleteAndPlaceholder(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	if _, err := f.editor.DeleteSelected(ctx); !errors.Is(err, editor.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
	btn, _ := f.editor.CreateElement(ctx, domain.ElementKindButton, "")
	f.editor.Select(ctx, btn.ID)
	if _, err := f.editor.DeleteSelected(ctx); err != nil {
		t.Fatal(err)
	}
	if !f.editor.State().Placeholder {
		t.Error("workspace should show the placeholder")
	}
	if f.editor.Render() != editor.PlaceholderMarkup {
		t.Error("render should be the placeholder")
	}
	if f.emitter.Count(service.EventElementDeleted) != 1 {
		t.Errorf("events %v", f.emitter.Names())
	}
}

func TestEditorService_SyntheticGestures(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	el, _ := f.editor.CreateElement(ctx, domain.ElementKindVideo, "")
	moved, err := f.editor.DragElement(ctx, el.ID, -30, 15)
	if err != nil {
		t.Fatal(err)
	}
	if moved.X != el.X-30 || moved.Y != el.Y+15 {
		t.Errorf("drag: %+v", moved)
	}
	resized, err := f.editor.ResizeElement(ctx, el.ID, -1000, 20)
	if err != nil {
		t.Fatal(err)
	}
	if resized.Width != 1 || resized.Height != el.Height+20 {
		t.Errorf("resize: %+v", resized)
	}
	if _, err := f.editor.DragElement(ctx, "ghost", 1, 1); !errors.Is(err, editor.ErrUnknownElement) {
		t.Errorf("expected ErrUnknownElement, got %v", err)
	}

	// A real pointer holding the element blocks the synthetic gesture.
	f.editor.HandlePointer(ctx, editor.PointerEvent{PointerID: 3, Type: editor.PointerDown, Target: &editor.Target{ElementID: el.ID, Part: editor.PartBody}})
	if _, err := f.editor.DragElement(ctx, el.ID, 1, 1); !errors.Is(err, editor.ErrAlreadyCaptured) {
		t.Errorf("expected ErrAlreadyCaptured, got %v", err)
	}
}

func TestEditorService_UploadPersistsAndTrims(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	added, err := f.editor.Upload(ctx, []editor.Upload{
		{Name: "a.png", ContentType: "image/png", Data: strings.NewReader("a")},
		{Name: "b.mp4", ContentType: "video/mp4", Data: strings.NewReader("b")},
		{Name: "c.png", ContentType: "image/png", Data: strings.NewReader("c")},
		{Name: "broken.png", ContentType: "image/png"},
	})
	if err == nil || !strings.Contains(err.Error(), "broken.png") {
		t.Fatalf("expected the broken file to be reported, got %v", err)
	}
	if len(added) != 3 {
		t.Fatalf("expected 3 decoded assets, got %d", len(added))
	}
	if n := len(f.editor.Assets()); n != 2 {
		t.Errorf("dock should be capped at 2, got %d", n)
	}
	stored, _ := f.assets.ListAssets()
	if len(stored) != 2 {
		t.Errorf("store should be trimmed to 2, got %d", len(stored))
	}
	if f.emitter.Count(service.EventMediaAdded) != 3 {
		t.Errorf("events %v", f.emitter.Names())
	}

	el, err := f.editor.SpawnMedia(ctx, f.editor.Assets()[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if !el.Kind.IsMedia() {
		t.Errorf("spawned %s", el.Kind)
	}
}

func TestEditorService_OpenLoadsStoredAssets(t *testing.T) {
	f := newFixture(t, 0)
	f.assets.CreateAsset(&domain.MediaAsset{ID: "stored", Kind: domain.AssetKindImage, DataURI: "data:image/png;base64,AA=="})

	if err := f.editor.Open(context.Background(), editor.DefaultPage); err != nil {
		t.Fatal(err)
	}
	if a := f.editor.Assets(); len(a) != 1 || a[0].ID != "stored" {
		t.Errorf("expected stored asset in the dock, got %+v", a)
	}
}

func TestEditorService_Autosave(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	if err := f.editor.StartAutosave(ctx, "not a schedule"); err == nil {
		t.Fatal("expected invalid schedule error")
	}
	if err := f.editor.StartAutosave(ctx, ""); err != nil {
		t.Fatal(err)
	}

	if err := f.editor.StartAutosave(ctx, "@every 1s"); err != nil {
		t.Fatal(err)
	}
	defer f.editor.StopAutosave()

	deadline := time.Now().Add(5 * time.Second)
	for f.emitter.Count(service.EventPageAutosaved) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("autosave never ran")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestEditorService_ReloadAdoptsExternalWrites(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	if changed, err := f.editor.Reload(ctx); err != nil || changed {
		t.Fatalf("unchanged page reloaded: %v %v", changed, err)
	}

	external := `[{"id":"ext","kind":"box","x":10,"y":20,"width":50,"height":60,"zIndex":1}]`
	if err := f.pages.SavePage(&domain.Page{Name: editor.DefaultPage, Snapshot: external}); err != nil {
		t.Fatal(err)
	}

	changed, err := f.editor.Reload(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("expected the external write to be adopted")
	}
	got, err := f.editor.Element("ext")
	if err != nil {
		t.Fatal(err)
	}
	if got.X != 10 || got.Width != 50 {
		t.Errorf("unexpected element %+v", got)
	}
	if f.emitter.Count(service.EventPageSwitched) != 2 {
		t.Errorf("events %v", f.emitter.Names())
	}
}

func TestEditorService_ReloadKeepsLocalGesture(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()

	el, err := f.editor.CreateElement(ctx, domain.ElementKindBox, "")
	if err != nil {
		t.Fatal(err)
	}
	down := editor.PointerEvent{PointerID: 1, Type: editor.PointerDown, X: 0, Y: 0, Target: &editor.Target{ElementID: el.ID, Part: editor.PartBody}}
	if _, err := f.editor.HandlePointer(ctx, down); err != nil {
		t.Fatal(err)
	}
	if _, err := f.editor.HandlePointer(ctx, editor.PointerEvent{PointerID: 1, Type: editor.PointerMove, X: 50, Y: -20}); err != nil {
		t.Fatal(err)
	}

	// The stored copy is our own save; the unsaved drag must survive.
	if changed, err := f.editor.Reload(ctx); err != nil || changed {
		t.Fatalf("own write treated as external: %v %v", changed, err)
	}

	// A foreign write during the drag waits for the release.
	external := `[{"id":"ext","kind":"box","x":1,"y":1,"width":10,"height":10,"zIndex":1}]`
	if err := f.pages.SavePage(&domain.Page{Name: editor.DefaultPage, Snapshot: external}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.editor.Reload(ctx); !errors.Is(err, service.ErrReloadDeferred) {
		t.Fatalf("expected ErrReloadDeferred, got %v", err)
	}

	res, err := f.editor.HandlePointer(ctx, editor.PointerEvent{PointerID: 1, Type: editor.PointerMove, X: 60, Y: -20})
	if err != nil {
		t.Fatal(err)
	}
	if res.Ignored || res.State != editor.StateDragging {
		t.Fatalf("drag lost: %+v", res)
	}
	if got := f.editor.State().SelectedID; got != el.ID {
		t.Errorf("selection lost, got %q", got)
	}
	got, _ := f.editor.Element(el.ID)
	if got.X != el.X+60 {
		t.Errorf("expected x %.0f, got %.0f", el.X+60, got.X)
	}
}

func ptr[T any](v T) *T { return &v }
