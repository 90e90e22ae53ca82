package editor_test

import (
	"errors"
	"testing"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
)

func TestSelection_IdleAndSelected(t *testing.T) {
	s := newTestSession(t)
	if s.Panel().Visible {
		t.Fatal("panel should be hidden while idle")
	}
	if s.DeselectAll() {
		t.Error("deselect while idle should report false")
	}

	el, _ := s.CreateElement(domain.ElementKindText, "hello")
	if _, err := s.Select(el.ID); err != nil {
		t.Fatal(err)
	}
	p := s.Panel()
	if !p.Visible || p.ElementID != el.ID || p.Text != "hello" || !p.TextEditable {
		t.Errorf("unexpected panel %+v", p)
	}
	if !s.DeselectAll() {
		t.Error("deselect while selected should report true")
	}
	if s.Panel().Visible {
		t.Error("panel should hide after deselect")
	}
}

func TestSelection_OnlyOneSelected(t *testing.T) {
	s := newTestSession(t)
	a, _ := s.CreateElement(domain.ElementKindBox, "")
	b, _ := s.CreateElement(domain.ElementKindBox, "")

	s.Select(a.ID)
	s.Select(b.ID)
	sel, ok := s.Selected()
	if !ok || sel.ID != b.ID {
		t.Fatalf("expected %s selected", b.ID)
	}
	if s.State().SelectedID != b.ID {
		t.Error("page state should report the selection")
	}
}

func TestSelection_UnknownElement(t *testing.T) {
	s := newTestSession(t)
	if _, err := s.Select("ghost"); !errors.Is(err, editor.ErrUnknownElement) {
		t.Fatalf("expected ErrUnknownElement, got %v", err)
	}
}

func TestPropertyEdits_WriteThroughToSelectionOnly(t *testing.T) {
	s := newTestSession(t)
	a, _ := s.CreateElement(domain.ElementKindText, "a")
	b, _ := s.CreateElement(domain.ElementKindText, "b")
	s.Select(a.ID)

	if err := s.SetText("changed"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetBackground("#ff0000"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPadding("12px"); err != nil {
		t.Fatal(err)
	}

	gotA, _ := s.Workspace().Get(a.ID)
	if gotA.Content != "changed" || gotA.Style.Background != "#ff0000" || gotA.Style.Padding != "12px" {
		t.Errorf("edits not applied: %+v", gotA)
	}
	gotB, _ := s.Workspace().Get(b.ID)
	if gotB != b {
		t.Errorf("other element changed: %+v", gotB)
	}
}

func TestPropertyEdits_RequireSelection(t *testing.T) {
	s := newTestSession(t)
	s.CreateElement(domain.ElementKindText, "")

	for name, fn := range map[string]func() error{
		"text":       func() error { return s.SetText("x") },
		"background": func() error { return s.SetBackground("#000") },
		"padding":    func() error { return s.SetPadding("1px") },
		"zindex":     func() error { return s.SetZIndex(3) },
	} {
		if err := fn(); !errors.Is(err, editor.ErrNoSelection) {
			t.Errorf("%s: expected ErrNoSelection, got %v", name, err)
		}
	}
}

func TestSetText_MediaGuard(t *testing.T) {
	s := newTestSession(t)
	img, _ := s.CreateElement(domain.ElementKindImage, "data:image/png;base64,AA==")
	s.Select(img.ID)

	if err := s.SetText("caption"); !errors.Is(err, editor.ErrNotTextual) {
		t.Fatalf("expected ErrNotTextual, got %v", err)
	}
	got, _ := s.Workspace().Get(img.ID)
	if got.Content != img.Content {
		t.Error("image payload must be untouched")
	}
	if s.Panel().TextEditable {
		t.Error("panel should mark media text as not editable")
	}
}

func TestSetZIndex_RaisesCounter(t *testing.T) {
	s := newTestSession(t)
	a, _ := s.CreateElement(domain.ElementKindBox, "")
	s.Select(a.ID)
	if err := s.SetZIndex(100); err != nil {
		t.Fatal(err)
	}
	b, _ := s.CreateElement(domain.ElementKindBox, "")
	if b.ZIndex <= 100 {
		t.Errorf("new element z=%d should exceed explicit 100", b.ZIndex)
	}

	// Lowering leaves the counter alone.
	if err := s.SetZIndex(1); err != nil {
		t.Fatal(err)
	}
	if s.ZCounter() != b.ZIndex {
		t.Errorf("counter moved to %d", s.ZCounter())
	}
}

func TestDeleteSelected(t *testing.T) {
	s := newTestSession(t)
	a, _ := s.CreateElement(domain.ElementKindBox, "")
	s.CreateElement(domain.ElementKindBox, "")

	if _, err := s.DeleteSelected(); !errors.Is(err, editor.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection while idle, got %v", err)
	}
	if s.Workspace().Len() != 2 {
		t.Fatal("idle delete must leave the workspace unchanged")
	}

	s.Select(a.ID)
	removed, err := s.DeleteSelected()
	if err != nil {
		t.Fatal(err)
	}
	if removed.ID != a.ID {
		t.Errorf("removed %s, want %s", removed.ID, a.ID)
	}
	if s.Workspace().Len() != 1 {
		t.Errorf("expected exactly one element removed, %d left", s.Workspace().Len())
	}
	if _, ok := s.Selected(); ok || s.Panel().Visible {
		t.Error("delete should return to idle")
	}
}

func TestDelete_NonSelectedKeepsSelection(t *testing.T) {
	s := newTestSession(t)
	a, _ := s.CreateElement(domain.ElementKindBox, "")
	b, _ := s.CreateElement(domain.ElementKindBox, "")
	s.Select(a.ID)

	if _, err := s.Delete(b.ID); err != nil {
		t.Fatal(err)
	}
	if sel, ok := s.Selected(); !ok || sel.ID != a.ID {
		t.Error("deleting another element should keep the selection")
	}
	if _, err := s.Delete(b.ID); !errors.Is(err, editor.ErrUnknownElement) {
		t.Errorf("second delete: expected ErrUnknownElement, got %v", err)
	}
}

// Create a box, select it, drag by (50, -20), delete it.
func TestScenario_CreateSelectDragDelete(t *testing.T) {
	s := newTestSession(t)

	el, err := s.CreateElement(domain.ElementKindBox, "")
	if err != nil {
		t.Fatal(err)
	}
	centreLeft, centreTop := 1000/2-100.0, 600/2-100.0
	if el.X != centreLeft || el.Y != centreTop {
		t.Fatalf("expected centre (%.0f, %.0f), got (%.0f, %.0f)", centreLeft, centreTop, el.X, el.Y)
	}
	if _, err := s.Select(el.ID); err != nil {
		t.Fatal(err)
	}

	drag(t, s, body(el.ID), 450, 250, 50, -20, 5)

	got, _ := s.Workspace().Get(el.ID)
	if got.X != centreLeft+50 || got.Y != centreTop-20 {
		t.Fatalf("expected (%.0f, %.0f), got (%.0f, %.0f)", centreLeft+50, centreTop-20, got.X, got.Y)
	}

	if _, err := s.DeleteSelected(); err != nil {
		t.Fatal(err)
	}
	if !s.Workspace().Empty() || !s.State().Placeholder {
		t.Error("workspace should be back to the placeholder state")
	}
}
