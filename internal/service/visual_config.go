package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"go.uber.org/zap"

	"pagebuilder/internal/domain"
	"pagebuilder/internal/watch"
)

// ─────────────────────────────────────────────────────────────
// Visual Config — decorative renderer settings
// ─────────────────────────────────────────────────────────────
//
// The builder only reads the config key. It is written by an external
// settings UI, through Save, or by importing a watched JSON file.

var ErrInvalidVisualConfig = errors.New("invalid visual config")

type VisualConfigService struct {
	settings domain.SettingsStore
	emitter  EventEmitter
	log      *zap.Logger

	mu      sync.Mutex
	watcher *watch.Watcher
}

func NewVisualConfigService(settings domain.SettingsStore, emitter EventEmitter, log *zap.Logger) *VisualConfigService {
	if emitter == nil {
		emitter = NopEmitter{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &VisualConfigService{settings: settings, emitter: emitter, log: log}
}

// Load returns the stored config. Missing or malformed values fall back
// to the defaults; fields absent from the stored JSON keep their default.
func (s *VisualConfigService) Load() domain.VisualConfig {
	cfg := domain.DefaultVisualConfig()
	raw, ok, err := s.settings.Get(domain.SettingConfig)
	if err != nil {
		s.log.Warn("read visual config", zap.Error(err))
		return cfg
	}
	if !ok || raw == "" {
		return cfg
	}
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		s.log.Warn("malformed visual config, using defaults", zap.Error(err))
		return domain.DefaultVisualConfig()
	}
	return cfg
}

// Save stores cfg under the config key.
func (s *VisualConfigService) Save(ctx context.Context, cfg domain.VisualConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode visual config: %w", err)
	}
	if err := s.settings.Set(domain.SettingConfig, string(data)); err != nil {
		return err
	}
	s.emitter.Emit(ctx, EventConfigChanged, cfg)
	return nil
}

// Import validates a JSON document and stores it merged over the defaults.
func (s *VisualConfigService) Import(ctx context.Context, data []byte) error {
	cfg := domain.DefaultVisualConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("import: %w: %v", ErrInvalidVisualConfig, err)
	}
	return s.Save(ctx, cfg)
}

// Watch imports path now, if it exists, and again on every write.
func (s *VisualConfigService) Watch(ctx context.Context, path string) error {
	if data, err := os.ReadFile(path); err == nil {
		if err := s.Import(ctx, data); err != nil {
			s.log.Warn("initial visual config import", zap.String("path", path), zap.Error(err))
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", path, err)
	}

	w, err := watch.New(func(p string, content []byte) {
		if err := s.Import(ctx, content); err != nil {
			s.log.Warn("visual config import", zap.String("path", p), zap.Error(err))
			return
		}
		s.log.Info("visual config imported", zap.String("path", p))
	}, 0, s.log.Named("watch"))
	if err != nil {
		return err
	}
	if err := w.WatchFile(path); err != nil {
		w.Close()
		return err
	}

	s.mu.Lock()
	old := s.watcher
	s.watcher = w
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// Close stops the file watcher, if any.
func (s *VisualConfigService) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w == nil {
		return nil
	}
	return w.Close()
}
