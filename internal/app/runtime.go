package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pagebuilder/internal/config"
	"pagebuilder/internal/editor"
	"pagebuilder/internal/publish"
	"pagebuilder/internal/service"
	"pagebuilder/internal/storage"
)

// Runtime is the storage and service graph shared by the desktop app, the
// HTTP server and the standalone MCP server.
type Runtime struct {
	Config *config.Config
	Log    *zap.Logger

	DB        *storage.DB
	Pages     *storage.PageStore
	Approvals *storage.ApprovalStore

	Editor *service.EditorService
	Deploy *service.DeployService
	Visual *service.VisualConfigService

	publisher *publish.Publisher
}

// NewRuntime opens the database, the publish sinks and the services, and
// loads the start page.
func NewRuntime(ctx context.Context, cfg *config.Config, emitter service.EventEmitter, log *zap.Logger) (*Runtime, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if emitter == nil {
		emitter = service.NopEmitter{}
	}

	db, err := storage.New(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	rt := &Runtime{
		Config:    cfg,
		Log:       log,
		DB:        db,
		Pages:     storage.NewPageStore(db),
		Approvals: storage.NewApprovalStore(db),
		publisher: publish.NewPublisher(cfg.Publish.Sinks, log.Named("publish")),
	}
	settings := storage.NewSettingsStore(db)

	rt.Editor = service.NewEditorService(
		rt.Pages,
		storage.NewHistoryStore(db, cfg.History.MaxNodes),
		storage.NewAssetStore(db),
		editor.Options{
			Viewport:      editor.Viewport{Width: cfg.Editor.ViewportWidth, Height: cfg.Editor.ViewportHeight},
			MinSize:       cfg.Editor.MinSize,
			HandleSize:    cfg.Editor.HandleSize,
			MaxAssets:     cfg.Media.MaxAssets,
			DecodeWorkers: cfg.Media.DecodeWorkers,
		},
		emitter,
		log.Named("editor"),
	)
	rt.Deploy = service.NewDeployService(
		rt.Editor,
		settings,
		rt.publisher,
		service.URLCatalog{BaseURL: cfg.Checkout.BaseURL},
		emitter,
		log.Named("deploy"),
	)
	rt.Visual = service.NewVisualConfigService(settings, emitter, log.Named("visual"))

	if err := rt.Editor.Open(ctx, cfg.Editor.StartPage); err != nil {
		rt.publisher.Close()
		db.Close()
		return nil, fmt.Errorf("open page %s: %w", cfg.Editor.StartPage, err)
	}
	log.Info("runtime ready",
		zap.String("db", db.Path()),
		zap.String("page", cfg.Editor.StartPage),
		zap.Strings("sinks", rt.publisher.Sinks()))
	return rt, nil
}

// Start launches the background jobs: autosave and the visual config
// file watch. Both are optional in config.
func (rt *Runtime) Start(ctx context.Context) error {
	if err := rt.Editor.StartAutosave(ctx, rt.Config.Autosave.Schedule); err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	if path := rt.Config.VisualConfigPath; path != "" {
		if err := rt.Visual.Watch(ctx, path); err != nil {
			rt.Editor.StopAutosave()
			return fmt.Errorf("watch visual config: %w", err)
		}
	}
	return nil
}

// Close saves the active page, waits for running deploys and releases
// everything in reverse order of creation.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	if err := rt.Editor.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("save page: %w", err))
	}
	rt.Deploy.Wait(ctx)
	if err := rt.Visual.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := rt.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := rt.DB.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
