package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"pagebuilder/internal/domain"
)

// PageSnapshots persists serialized workspaces by page name.
// LoadSnapshot returns "" for a page that was never saved.
type PageSnapshots interface {
	LoadSnapshot(ctx context.Context, name string) (string, error)
	SaveSnapshot(ctx context.Context, name, snapshot string) error
}

// EncodeSnapshot serializes elements into the page snapshot format.
func EncodeSnapshot(els []domain.Element) (string, error) {
	if els == nil {
		els = []domain.Element{}
	}
	data, err := json.Marshal(els)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	return string(data), nil
}

// DecodeSnapshot parses a page snapshot. Blank snapshots decode to no elements.
func DecodeSnapshot(snapshot string) ([]domain.Element, error) {
	trimmed := strings.TrimSpace(snapshot)
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	var els []domain.Element
	if err := json.Unmarshal([]byte(trimmed), &els); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return els, nil
}

// Snapshot serializes the active workspace.
func (s *Session) Snapshot() (string, error) {
	return EncodeSnapshot(s.ws.Elements())
}

// Open loads name as the active page without saving the current one.
// Used for the initial load.
func (s *Session) Open(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidPageName
	}
	if err := s.loadPage(ctx, name); err != nil {
		return err
	}
	s.page = name
	return nil
}

// SwitchPage snapshots the active page and loads name in its place.
// It reports false when name is already active.
func (s *Session) SwitchPage(ctx context.Context, name string) (bool, error) {
	if strings.TrimSpace(name) == "" {
		return false, ErrInvalidPageName
	}
	if name == s.page {
		return false, nil
	}
	if err := s.SaveCurrent(ctx); err != nil {
		return false, err
	}
	if err := s.loadPage(ctx, name); err != nil {
		return false, err
	}
	s.page = name
	return true, nil
}

// SaveCurrent writes the active workspace under the active page name.
func (s *Session) SaveCurrent(ctx context.Context) error {
	snap, err := s.Snapshot()
	if err != nil {
		return err
	}
	if err := s.pages.SaveSnapshot(ctx, s.page, snap); err != nil {
		return fmt.Errorf("save page %s: %w", s.page, err)
	}
	return nil
}

// Restore replaces the active workspace with a snapshot (history
// navigation). Behaviour is rebound exactly as on page load.
func (s *Session) Restore(snapshot string) (int, error) {
	els, err := DecodeSnapshot(snapshot)
	if err != nil {
		return 0, err
	}
	return s.bind(els), nil
}

func (s *Session) loadPage(ctx context.Context, name string) error {
	snap, err := s.pages.LoadSnapshot(ctx, name)
	if err != nil {
		return fmt.Errorf("load page %s: %w", name, err)
	}
	els, err := DecodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("load page %s: %w", name, err)
	}
	n := s.bind(els)
	s.log.Debug("page loaded", zap.String("page", name), zap.Int("elements", n))
	return nil
}

// bind installs els as the workspace and re-establishes interaction for
// every element: the index is rebuilt from data, stale captures and the
// selection are dropped, and the z counter is raised past every loaded
// element so new work still lands on top. Elements with a blank or repeated
// ID get a fresh one so every element stays addressable.
func (s *Session) bind(els []domain.Element) int {
	seen := make(map[string]bool, len(els))
	for i := range els {
		if els[i].ID == "" || seen[els[i].ID] {
			old := els[i].ID
			els[i].ID = s.newID()
			s.log.Warn("reassigned element id", zap.String("old", old), zap.String("new", els[i].ID))
		}
		seen[els[i].ID] = true
	}
	s.pointer.reset()
	s.selected = ""
	n := s.ws.replace(els)
	if z := s.ws.maxZ(); z > s.zCounter {
		s.zCounter = z
	}
	return n
}

// MemorySnapshots is an in-process PageSnapshots.
type MemorySnapshots struct {
	mu    sync.Mutex
	pages map[string]string
}

func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{pages: make(map[string]string)}
}

func (m *MemorySnapshots) LoadSnapshot(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pages[name], nil
}

func (m *MemorySnapshots) SaveSnapshot(_ context.Context, name, snapshot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[name] = snapshot
	return nil
}
