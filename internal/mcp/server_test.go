package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/goleak"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// ─────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────

type testServer struct {
	*Server
	db       *storage.DB
	requests chan PendingAction
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := storage.New(filepath.Join(t.TempDir(), "pb.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	var n atomic.Int64
	ed := service.NewEditorService(
		storage.NewPageStore(db),
		storage.NewHistoryStore(db, 0),
		storage.NewAssetStore(db),
		editor.Options{
			Viewport: editor.Viewport{Width: 1000, Height: 600},
			NewID:    func() string { return fmt.Sprintf("el-%d", n.Add(1)) },
		},
		nil, nil,
	)
	if err := ed.Open(context.Background(), editor.DefaultPage); err != nil {
		t.Fatal(err)
	}
	settings := storage.NewSettingsStore(db)
	deploy := service.NewDeployService(ed, settings, nil,
		service.URLCatalog{BaseURL: "https://checkout.example.com/buy"}, nil, nil)

	requests := make(chan PendingAction, 4)
	emitter := service.EmitterFunc(func(_ context.Context, event string, data any) {
		if event == EventApprovalRequired {
			requests <- data.(PendingAction)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s := New(ctx, Deps{
		Emitter: emitter,
		Editor:  ed,
		Deploy:  deploy,
		Visual:  service.NewVisualConfigService(settings, nil, nil),
	})
	return &testServer{Server: s, db: db, requests: requests}
}

func callTool(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", res.Content[0])
	}
	return tc.Text
}

func decodeResult[T any](t *testing.T, res *mcp.CallToolResult) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(resultText(t, res)), &v); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return v
}

func (s *testServer) create(t *testing.T, args map[string]any) domain.Element {
	t.Helper()
	res, err := s.handleCreateElement(context.Background(), callTool("create_element", args))
	if err != nil {
		t.Fatalf("create_element: %v", err)
	}
	return decodeResult[domain.Element](t, res)
}

// ─────────────────────────────────────────────────────────────
// Element tools
// ─────────────────────────────────────────────────────────────

func TestCreateElement_Positions(t *testing.T) {
	s := newTestServer(t)

	centred := s.create(t, map[string]any{"kind": "text"})
	if centred.X != 350 || centred.Y != 260 {
		t.Errorf("default placement should centre in the viewport, got (%.0f, %.0f)", centred.X, centred.Y)
	}

	placed := s.create(t, map[string]any{"kind": "button", "content": "Buy", "x": 100.0, "y": 40.0})
	if placed.X != 100 || placed.Y != 40 || placed.Content != "Buy" {
		t.Errorf("explicit placement = %+v", placed)
	}

	auto := s.create(t, map[string]any{"kind": "box", "autoLayout": true})
	for _, other := range []domain.Element{centred, placed} {
		if elementRect(auto).intersects(elementRect(other)) {
			t.Errorf("auto-laid element %v overlaps %s", elementRect(auto), other.ID)
		}
	}
}

func TestCreateElement_UnknownKind(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleCreateElement(context.Background(), callTool("create_element", map[string]any{"kind": "carousel"}))
	if err == nil || !strings.Contains(err.Error(), "unknown element kind") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}

func TestUpdateElement(t *testing.T) {
	s := newTestServer(t)
	el := s.create(t, map[string]any{"kind": "text"})

	res, err := s.handleUpdateElement(context.Background(), callTool("update_element", map[string]any{
		"elementId":  el.ID,
		"text":       "Hello",
		"background": "#ff0000",
		"zIndex":     42.0,
	}))
	if err != nil {
		t.Fatal(err)
	}
	got := decodeResult[domain.Element](t, res)
	if got.Content != "Hello" || got.Style.Background != "#ff0000" || got.ZIndex != 42 {
		t.Errorf("updated element = %+v", got)
	}
	if s.editor.State().SelectedID != el.ID {
		t.Error("update_element should leave the element selected")
	}
}

func TestMoveAndResizeElement(t *testing.T) {
	s := newTestServer(t)
	el := s.create(t, map[string]any{"kind": "box"})
	ctx := context.Background()

	if _, err := s.handleMoveElement(ctx, callTool("move_element", map[string]any{
		"elementId": el.ID, "x": 10.0, "y": 20.0,
	})); err != nil {
		t.Fatal(err)
	}
	if _, err := s.handleResizeElement(ctx, callTool("resize_element", map[string]any{
		"elementId": el.ID, "width": 50.0, "height": -5.0,
	})); err != nil {
		t.Fatal(err)
	}

	got, err := s.editor.Element(el.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.X != 10 || got.Y != 20 {
		t.Errorf("position = (%.0f, %.0f), want (10, 20)", got.X, got.Y)
	}
	if got.Width != 50 || got.Height != 1 {
		t.Errorf("size = %.0f×%.0f, want 50×1 (height clamped)", got.Width, got.Height)
	}
}

func TestArrangeElements_RemovesOverlap(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 4; i++ {
		s.create(t, map[string]any{"kind": "box"})
	}

	if _, err := s.handleArrangeElements(context.Background(), callTool("arrange_elements", nil)); err != nil {
		t.Fatal(err)
	}

	els := s.editor.State().Elements
	for i := range els {
		for j := i + 1; j < len(els); j++ {
			if elementRect(els[i]).intersects(elementRect(els[j])) {
				t.Errorf("%s and %s still overlap", els[i].ID, els[j].ID)
			}
		}
	}
}

func TestArrangeElements_KeepsSelectionAndStacking(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		s.create(t, map[string]any{"kind": "box"})
	}
	ctx := context.Background()
	first := s.editor.State().Elements[0]
	if _, err := s.editor.Select(ctx, first.ID); err != nil {
		t.Fatal(err)
	}
	before := map[string]int{}
	for _, el := range s.editor.State().Elements {
		before[el.ID] = el.ZIndex
	}

	if _, err := s.handleArrangeElements(ctx, callTool("arrange_elements", nil)); err != nil {
		t.Fatal(err)
	}

	state := s.editor.State()
	if state.SelectedID != first.ID {
		t.Errorf("selection changed to %q", state.SelectedID)
	}
	for _, el := range state.Elements {
		if el.ZIndex != before[el.ID] {
			t.Errorf("%s z-index %d, was %d", el.ID, el.ZIndex, before[el.ID])
		}
	}
}

func TestSummarizeElement_PreviewKeepsRunesWhole(t *testing.T) {
	el := domain.Element{ID: "t", Kind: domain.ElementKindText, Content: "a" + strings.Repeat("é", 250)}
	got := summarizeElement(el, "").Preview
	if !utf8.ValidString(got) {
		t.Fatalf("preview split a rune: %q", got)
	}
	if n := utf8.RuneCountInString(got); n != 203 {
		t.Errorf("expected 200 runes plus ellipsis, got %d", n)
	}
	if short := summarizeElement(domain.Element{Kind: domain.ElementKindText, Content: "héllo"}, "").Preview; short != "héllo" {
		t.Errorf("short content changed: %q", short)
	}
}

func TestListElements_FilterAndPreview(t *testing.T) {
	s := newTestServer(t)
	s.create(t, map[string]any{"kind": "text", "content": strings.Repeat("a", 300)})
	s.create(t, map[string]any{"kind": "box"})

	res, err := s.handleListElements(context.Background(), callTool("list_elements", map[string]any{"kind": "text"}))
	if err != nil {
		t.Fatal(err)
	}
	got := decodeResult[[]elementSummary](t, res)
	if len(got) != 1 || got[0].Kind != "text" {
		t.Fatalf("filtered list = %+v", got)
	}
	if len(got[0].Preview) != 203 {
		t.Errorf("preview should be truncated to 200 chars plus ellipsis, got %d", len(got[0].Preview))
	}
}

// ─────────────────────────────────────────────────────────────
// Destructive tools
// ─────────────────────────────────────────────────────────────

func TestDeleteElement_Approved(t *testing.T) {
	s := newTestServer(t)
	el := s.create(t, map[string]any{"kind": "text"})

	go func() {
		action := <-s.requests
		s.Approve(action.ID)
	}()

	res, err := s.handleDeleteElement(context.Background(), callTool("delete_element", map[string]any{"elementId": el.ID}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resultText(t, res), "deleted") {
		t.Errorf("unexpected result %q", resultText(t, res))
	}
	if len(s.editor.State().Elements) != 0 {
		t.Error("element should be gone")
	}
}

func TestDeleteElement_Rejected(t *testing.T) {
	s := newTestServer(t)
	el := s.create(t, map[string]any{"kind": "text"})

	go func() {
		action := <-s.requests
		if !strings.Contains(action.Metadata, el.ID) {
			t.Errorf("metadata %q should name the element", action.Metadata)
		}
		s.Reject(action.ID)
	}()

	res, err := s.handleDeleteElement(context.Background(), callTool("delete_element", map[string]any{"elementId": el.ID}))
	if err != nil {
		t.Fatal(err)
	}
	if resultText(t, res) != "Action rejected by user" {
		t.Errorf("unexpected result %q", resultText(t, res))
	}
	if _, err := s.editor.Element(el.ID); err != nil {
		t.Error("rejected delete must keep the element")
	}
}

func TestBatchDeleteElements_SingleApproval(t *testing.T) {
	s := newTestServer(t)
	a := s.create(t, map[string]any{"kind": "text"})
	b := s.create(t, map[string]any{"kind": "box"})
	keep := s.create(t, map[string]any{"kind": "button"})

	go func() {
		action := <-s.requests
		s.Approve(action.ID)
	}()

	ids := a.ID + ", " + b.ID
	if _, err := s.handleBatchDeleteElements(context.Background(),
		callTool("batch_delete_elements", map[string]any{"elementIds": ids})); err != nil {
		t.Fatal(err)
	}
	els := s.editor.State().Elements
	if len(els) != 1 || els[0].ID != keep.ID {
		t.Errorf("remaining = %+v", els)
	}
}

func TestDeletePage_RefusesActivePage(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleDeletePage(context.Background(), callTool("delete_page", map[string]any{"name": editor.DefaultPage}))
	if err == nil {
		t.Fatal("deleting the active page must fail before asking for approval")
	}
	select {
	case <-s.requests:
		t.Error("no approval should be requested")
	default:
	}
}

// ─────────────────────────────────────────────────────────────
// Pages, history, media, deploy
// ─────────────────────────────────────────────────────────────

func TestSwitchPageAndUndo(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	s.create(t, map[string]any{"kind": "text"})

	if _, err := s.handleSwitchPage(ctx, callTool("switch_page", map[string]any{"name": "about"})); err != nil {
		t.Fatal(err)
	}
	res, err := s.handleListPages(ctx, callTool("list_pages", nil))
	if err != nil {
		t.Fatal(err)
	}
	pages := decodeResult[struct {
		Active string   `json:"active"`
		Pages  []string `json:"pages"`
	}](t, res)
	if pages.Active != "about" || len(pages.Pages) != 2 {
		t.Errorf("pages = %+v", pages)
	}

	if _, err := s.handleSwitchPage(ctx, callTool("switch_page", map[string]any{"name": editor.DefaultPage})); err != nil {
		t.Fatal(err)
	}
	if len(s.editor.State().Elements) != 1 {
		t.Fatal("home should come back with its element")
	}
	if _, err := s.handleUndo(ctx, callTool("undo", nil)); err != nil {
		t.Fatal(err)
	}
	if len(s.editor.State().Elements) != 0 {
		t.Error("undo should restore the empty page")
	}
}

func TestUploadAndSpawnMedia(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	res, err := s.handleUploadMedia(ctx, callTool("upload_media", map[string]any{
		"name": "logo.png",
		"data": base64.StdEncoding.EncodeToString(png),
	}))
	if err != nil {
		t.Fatal(err)
	}
	assets := decodeResult[[]assetSummary](t, res)
	if len(assets) != 1 || assets[0].Kind != "image" || assets[0].SizeBytes != int64(len(png)) {
		t.Fatalf("uploaded = %+v", assets)
	}

	res, err = s.handleSpawnMedia(ctx, callTool("spawn_media", map[string]any{"assetId": assets[0].ID}))
	if err != nil {
		t.Fatal(err)
	}
	el := decodeResult[elementSummary](t, res)
	if el.Kind != "image" || !strings.HasPrefix(el.Preview, "data:image/png;base64,") {
		t.Errorf("spawned = %+v", el)
	}
}

func TestUploadMedia_BadBase64(t *testing.T) {
	s := newTestServer(t)
	_, err := s.handleUploadMedia(context.Background(), callTool("upload_media", map[string]any{
		"name": "x", "data": "not base64!",
	}))
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDeployAndCheckout(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	if _, err := s.handleDeploy(ctx, callTool("deploy", nil)); err == nil {
		t.Fatal("deploying an empty page must fail")
	}

	s.create(t, map[string]any{"kind": "text", "content": "Launch"})
	if _, err := s.handleDeploy(ctx, callTool("deploy", nil)); err != nil {
		t.Fatal(err)
	}

	res, err := s.handleCheckout(ctx, callTool("checkout", map[string]any{"productId": "pro"}))
	if err != nil {
		t.Fatal(err)
	}
	if got := resultText(t, res); got != "https://checkout.example.com/buy?product=pro" {
		t.Errorf("checkout url = %q", got)
	}

	res, err = s.handleBuildStatus(ctx, callTool("get_build_status", nil))
	if err != nil {
		t.Fatal(err)
	}
	status := decodeResult[map[string]any](t, res)
	if status["pending"] != true || status["license"] != "pro" {
		t.Errorf("status = %v", status)
	}
}

func TestExtractElementIDFromURI(t *testing.T) {
	tests := map[string]string{
		"pagebuilder://element/el-1":      "el-1",
		"pagebuilder://element/":          "",
		"pagebuilder://element/el-1/more": "",
		"pagebuilder://page/active":       "",
	}
	for uri, want := range tests {
		if got := extractElementIDFromURI(uri); got != want {
			t.Errorf("extractElementIDFromURI(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestApprovalTimeout(t *testing.T) {
	s := newTestServer(t)
	s.approval.SetTimeout(20 * time.Millisecond)

	err := s.approval.Request(context.Background(), "delete_element", "nobody answers")
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("expected timeout, got %v", err)
	}
	<-s.requests
	if len(s.approval.Pending()) != 0 {
		t.Error("timed out request should be cleaned up")
	}
}
