package app

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"pagebuilder/internal/config"
	mcpserver "pagebuilder/internal/mcp"
	"pagebuilder/internal/service"
)

// ServeMCP runs the page builder as a standalone MCP server on
// stdin/stdout with no GUI. Destructive tools wait for approvals written
// to the shared database by whichever process shows the prompt. Edits
// made by that process are picked up by polling.
func ServeMCP(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// No frontend in this process; events only reach the debug log.
	emitter := service.LogEmitter{Log: log.Named("events")}

	rt, err := NewRuntime(ctx, cfg, emitter, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(context.Background()); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()
	if err := rt.Start(ctx); err != nil {
		return err
	}

	watcher := newPageWatcher(rt, nil, emitter)
	watcher.Start(ctx)
	defer watcher.Stop()

	mcpSrv := mcpserver.New(ctx, mcpserver.Deps{
		Emitter:   emitter,
		Editor:    rt.Editor,
		Deploy:    rt.Deploy,
		Visual:    rt.Visual,
		Logger:    log.Named("mcp"),
		Approvals: rt.Approvals,
	})

	err = mcpSrv.ServeStdio(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
