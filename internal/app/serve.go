package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pagebuilder/internal/api"
	"pagebuilder/internal/config"
	"pagebuilder/internal/service"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP and websocket API until ctx is cancelled, then
// shuts down gracefully.
func Serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	hub := api.NewHub(log.Named("hub"))

	emitter := service.MultiEmitter{hub, service.LogEmitter{Log: log.Named("events")}}

	rt, err := NewRuntime(ctx, cfg, emitter, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := rt.Close(closeCtx); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()
	if err := rt.Start(ctx); err != nil {
		return err
	}

	// Surfaces approvals and edits from a standalone MCP server on the
	// same database to websocket clients.
	watcher := newPageWatcher(rt, rt.Approvals, emitter)
	watcher.Start(ctx)
	defer watcher.Stop()

	handler := api.NewHandler(api.Deps{
		Editor:         rt.Editor,
		Deploy:         rt.Deploy,
		Visual:         rt.Visual,
		Hub:            hub,
		Logger:         log.Named("http"),
		Approvals:      rt.Approvals,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler.SetupRoutes(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Websocket connections are hijacked; Shutdown does not wait for them.
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}
