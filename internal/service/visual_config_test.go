package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/service"
)

func TestVisualConfig_Defaults(t *testing.T) {
	f := newFixture(t, 0)
	svc := service.NewVisualConfigService(f.settings, f.emitter, nil)

	if diff := cmp.Diff(domain.DefaultVisualConfig(), svc.Load()); diff != "" {
		t.Errorf("missing config should load defaults (-want +got):\n%s", diff)
	}

	f.settings.Set(domain.SettingConfig, "{not json")
	if diff := cmp.Diff(domain.DefaultVisualConfig(), svc.Load()); diff != "" {
		t.Errorf("malformed config should load defaults (-want +got):\n%s", diff)
	}

	f.settings.Set(domain.SettingConfig, `{"speed":9}`)
	cfg := svc.Load()
	if cfg.Speed != 9 || cfg.CoreColor != "#000000" {
		t.Errorf("partial config should merge over defaults, got %+v", cfg)
	}
}

func TestVisualConfig_SaveAndImport(t *testing.T) {
	f := newFixture(t, 0)
	svc := service.NewVisualConfigService(f.settings, f.emitter, nil)
	ctx := context.Background()

	want := domain.DefaultVisualConfig()
	want.MatrixColors = []string{"#123456"}
	want.RainOpacity = 0.25
	if err := svc.Save(ctx, want); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, svc.Load()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}

	if err := svc.Import(ctx, []byte("nope")); !errors.Is(err, service.ErrInvalidVisualConfig) {
		t.Error("expected import of invalid JSON to fail")
	}
	if svc.Load().RainOpacity != 0.25 {
		t.Error("failed import must keep the stored config")
	}
	if f.emitter.Count(service.EventConfigChanged) != 1 {
		t.Errorf("events %v", f.emitter.Names())
	}
}

func TestVisualConfig_WatchImportsFile(t *testing.T) {
	f := newFixture(t, 0)
	svc := service.NewVisualConfigService(f.settings, f.emitter, nil)
	defer svc.Close()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "visual.json")
	os.WriteFile(path, []byte(`{"wireColor":"#ff00ff"}`), 0644)

	if err := svc.Watch(ctx, path); err != nil {
		t.Fatal(err)
	}
	if svc.Load().WireColor != "#ff00ff" {
		t.Fatal("existing file should be imported on start")
	}

	os.WriteFile(path, []byte(`{"wireColor":"#00ff00"}`), 0644)
	deadline := time.Now().Add(5 * time.Second)
	for svc.Load().WireColor != "#00ff00" {
		if time.Now().After(deadline) {
			t.Fatal("file change was not imported")
		}
		time.Sleep(20 * time.Millisecond)
	}
}
