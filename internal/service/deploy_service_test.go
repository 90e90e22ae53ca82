package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/service"
)

type recordingPublisher struct {
	mu     sync.Mutex
	builds []domain.Build
	err    error

	// When set, Publish signals entered and waits for block.
	entered chan struct{}
	block   chan struct{}
}

func (p *recordingPublisher) Publish(_ context.Context, b domain.Build) error {
	if p.block != nil {
		p.entered <- struct{}{}
		<-p.block
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.builds = append(p.builds, b)
	return p.err
}

func newDeployService(f *fixture, pub service.BuildPublisher) *service.DeployService {
	d := service.NewDeployService(f.editor, f.settings, pub,
		service.URLCatalog{BaseURL: "https://shop.test/buy"}, f.emitter, nil)
	d.SetClock(func() string { return "build-1" }, func() time.Time {
		return time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	})
	return d
}

func TestDeploy_EmptyWorkspaceWritesNothing(t *testing.T) {
	f := newFixture(t, 0)
	pub := &recordingPublisher{}
	d := newDeployService(f, pub)

	if _, err := d.Deploy(context.Background()); !errors.Is(err, editor.ErrEmptyWorkspace) {
		t.Fatalf("expected ErrEmptyWorkspace, got %v", err)
	}
	if _, ok, _ := d.PendingBuild(); ok {
		t.Error("pending build must not be written")
	}
	if len(pub.builds) != 0 {
		t.Error("nothing should be published")
	}
}

func TestDeploy_WritesPendingBuildAndPublishes(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	f.editor.CreateElement(ctx, domain.ElementKindText, "Welcome")
	pub := &recordingPublisher{}
	d := newDeployService(f, pub)

	build, err := d.Deploy(ctx)
	if err != nil {
		t.Fatal(err)
	}
	pending, ok, err := d.PendingBuild()
	if err != nil || !ok {
		t.Fatalf("pending build missing: %v", err)
	}
	if pending != f.editor.Render() || build.Markup != pending {
		t.Errorf("pending build should be the rendered workspace, got %q", pending)
	}
	if build.ID != "build-1" || build.Page != editor.DefaultPage {
		t.Errorf("unexpected build %+v", build)
	}
	if len(pub.builds) != 1 || pub.builds[0].ID != "build-1" {
		t.Errorf("publisher got %+v", pub.builds)
	}
	if f.emitter.Count(service.EventBuildDeployed) != 1 {
		t.Errorf("events %v", f.emitter.Names())
	}
}

func TestDeploy_SinkFailureStillSucceeds(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	f.editor.CreateElement(ctx, domain.ElementKindBox, "")
	d := newDeployService(f, &recordingPublisher{err: errors.New("sink down")})

	if _, err := d.Deploy(ctx); err != nil {
		t.Fatalf("sink failure must not fail the deploy: %v", err)
	}
	if _, ok, _ := d.PendingBuild(); !ok {
		t.Error("pending build should be written")
	}
}

func TestDeploy_RejectsConcurrentDeploys(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	f.editor.CreateElement(ctx, domain.ElementKindBox, "")
	pub := &recordingPublisher{entered: make(chan struct{}, 1), block: make(chan struct{})}
	d := newDeployService(f, pub)

	first := make(chan error, 1)
	go func() {
		_, err := d.Deploy(ctx)
		first <- err
	}()

	select {
	case <-pub.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first deploy never reached the publisher")
	}
	if _, err := d.Deploy(ctx); !errors.Is(err, service.ErrDeployInProgress) {
		t.Fatalf("expected ErrDeployInProgress, got %v", err)
	}

	close(pub.block)
	if err := <-first; err != nil {
		t.Fatal(err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	d.Wait(waitCtx)
}

func TestCheckout(t *testing.T) {
	f := newFixture(t, 0)
	ctx := context.Background()
	d := newDeployService(f, nil)

	if _, err := d.Checkout(ctx, "pro"); !errors.Is(err, service.ErrNoPendingBuild) {
		t.Fatalf("expected ErrNoPendingBuild, got %v", err)
	}

	f.editor.CreateElement(ctx, domain.ElementKindButton, "")
	if _, err := d.Deploy(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Checkout(ctx, "  "); !errors.Is(err, service.ErrInvalidProduct) {
		t.Errorf("expected ErrInvalidProduct, got %v", err)
	}

	redirect, err := d.Checkout(ctx, "pro plan")
	if err != nil {
		t.Fatal(err)
	}
	if redirect != "https://shop.test/buy?product=pro+plan" {
		t.Errorf("unexpected redirect %q", redirect)
	}
	license, ok, _ := d.ActiveLicense()
	if !ok || license != "pro plan" {
		t.Errorf("license should be stored verbatim, got %q", license)
	}

	// The next deploy carries the license.
	build, _ := d.Deploy(ctx)
	if build.License != "pro plan" {
		t.Errorf("build license %q", build.License)
	}
}
