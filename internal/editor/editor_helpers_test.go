package editor_test

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"pagebuilder/internal/editor"
)

var testNow = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestSession(t *testing.T) *editor.Session {
	t.Helper()
	return newTestSessionWith(t, editor.Options{})
}

func newTestSessionWith(t *testing.T, opts editor.Options) *editor.Session {
	t.Helper()
	// Media decodes call NewID from worker goroutines.
	var n atomic.Int64
	opts.Viewport = editor.Viewport{Width: 1000, Height: 600}
	opts.NewID = func() string { return fmt.Sprintf("el-%d", n.Add(1)) }
	opts.Now = func() time.Time { return testNow }
	return editor.NewSession(opts)
}
