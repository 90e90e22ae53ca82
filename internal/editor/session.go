package editor

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pagebuilder/internal/domain"
)

const (
	DefaultPage           = "home"
	DefaultViewportWidth  = 1280.0
	DefaultViewportHeight = 800.0
	DefaultMinSize        = 1.0
	DefaultHandleSize     = 12.0
)

// Viewport is the visible area new elements are centred on.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Options configures a Session. Zero values fall back to defaults.
type Options struct {
	Viewport   Viewport
	MinSize    float64 // smallest width/height a resize may produce
	HandleSize float64 // side of the bottom-right resize handle square

	MaxAssets     int // 0 keeps every uploaded asset
	DecodeWorkers int

	Pages     PageSnapshots
	Templates *TemplateRegistry
	Logger    *zap.Logger

	NewID func() string
	Now   func() time.Time
}

// Session owns all editor state for one open builder: the workspace of the
// active page, the selection, the z-order counter, pointer captures and the
// media dock. It is not safe for concurrent use; callers serialise access
// the way a UI event loop would.
type Session struct {
	viewport   Viewport
	minSize    float64
	handleSize float64

	ws       *Workspace
	selected string
	zCounter int
	page     string

	pointer   *pointerEngine
	media     *MediaDock
	pages     PageSnapshots
	templates *TemplateRegistry
	log       *zap.Logger

	newID func() string
	now   func() time.Time
}

// NewSession creates a Session on the default page with an empty workspace.
func NewSession(opts Options) *Session {
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		opts.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if opts.MinSize <= 0 {
		opts.MinSize = DefaultMinSize
	}
	if opts.HandleSize <= 0 {
		opts.HandleSize = DefaultHandleSize
	}
	if opts.Pages == nil {
		opts.Pages = NewMemorySnapshots()
	}
	if opts.Templates == nil {
		opts.Templates = DefaultTemplates()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Session{
		viewport:   opts.Viewport,
		minSize:    opts.MinSize,
		handleSize: opts.HandleSize,
		ws:         newWorkspace(),
		page:       DefaultPage,
		pointer:    newPointerEngine(),
		pages:      opts.Pages,
		templates:  opts.Templates,
		log:        opts.Logger,
		newID:      opts.NewID,
		now:        opts.Now,
	}
	s.media = newMediaDock(opts.MaxAssets, opts.DecodeWorkers, opts.Logger, opts.NewID, opts.Now)
	return s
}

// Workspace exposes the active page's elements for reading.
func (s *Session) Workspace() *Workspace { return s.ws }

// Media returns the session's media dock.
func (s *Session) Media() *MediaDock { return s.media }

// Templates returns the section template registry.
func (s *Session) Templates() *TemplateRegistry { return s.templates }

// CurrentPage returns the name of the active page.
func (s *Session) CurrentPage() string { return s.page }

// Viewport returns the current viewport size.
func (s *Session) Viewport() Viewport { return s.viewport }

// SetViewport changes the area new elements are centred on.
// Non-positive sizes are ignored.
func (s *Session) SetViewport(v Viewport) {
	if v.Width > 0 && v.Height > 0 {
		s.viewport = v
	}
}

// ZCounter returns the highest z-index handed out so far.
func (s *Session) ZCounter() int { return s.zCounter }

// State returns the render state of the active page.
func (s *Session) State() domain.PageState {
	return domain.PageState{
		Page:        s.page,
		Elements:    s.ws.Elements(),
		SelectedID:  s.selected,
		Placeholder: s.ws.Empty(),
	}
}

func (s *Session) nextZ() int {
	s.zCounter++
	return s.zCounter
}
