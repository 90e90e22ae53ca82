package service

import (
	"context"
	"sync"
)

// ExportedInFlightGuard is an exported alias so _test packages can test the guard.
type ExportedInFlightGuard = inFlightGuard

// ─────────────────────────────────────────────────────────────
// inFlightGuard — rejects overlapping runs of the same operation
// ─────────────────────────────────────────────────────────────

// inFlightGuard ensures only one run per key is active and lets shutdown
// wait for the active ones.
type inFlightGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// TryLock marks key as running. It returns false if key already runs.
func (g *inFlightGuard) TryLock(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running == nil {
		g.running = make(map[string]struct{})
	}
	if _, ok := g.running[key]; ok {
		return false
	}
	g.running[key] = struct{}{}
	g.wg.Add(1)
	return true
}

// Unlock releases key. Must follow a successful TryLock.
func (g *inFlightGuard) Unlock(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.running[key]; !ok {
		return
	}
	delete(g.running, key)
	g.wg.Done()
}

// Running reports whether key is active.
func (g *inFlightGuard) Running(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.running[key]
	return ok
}

// WaitAll blocks until every active run completes or ctx is cancelled.
func (g *inFlightGuard) WaitAll(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
