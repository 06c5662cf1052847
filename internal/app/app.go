// Package app opens a workspace and wires the engine, assistant and model
// shared by the CLI and the HTTP API.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"focusline/internal/assistant"
	"focusline/internal/config"
	"focusline/internal/db"
	"focusline/internal/engine"
	"focusline/internal/inference"
	"focusline/internal/logging"
	"focusline/internal/migrate"
)

type Options struct {
	Workspace string
	// InMemory opens a throwaway database; used by tests.
	InMemory bool
	// Config overrides the workspace's focusline.yml when set.
	Config *config.Config
	Logger *zap.Logger
	Now    func() time.Time
}

// App is an opened workspace.
type App struct {
	DB        *sql.DB
	Config    *config.Config
	Engine    engine.Engine
	Assistant *assistant.Assistant
	Sessions  *assistant.Sessions
	// Model is nil when inference.backend is "none".
	Model  *inference.Model
	Logger *zap.Logger
}

// Open migrates the workspace database and loads the inference model.
// A model that fails to load is logged and left unloaded.
func Open(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.LoadOptional(opts.Workspace); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		var err error
		if logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Development); err != nil {
			return nil, err
		}
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace, InMemory: opts.InMemory})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	e := engine.New(conn, cfg)
	if opts.Now != nil {
		e.Now = opts.Now
	}
	model, err := inference.New(ctx, cfg.Inference, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	aopts := assistant.Options{
		Store:          e,
		Now:            e.Now,
		ContextLimit:   cfg.Assistant.ContextLimit,
		MirrorGoalTask: cfg.Assistant.MirrorGoalTask,
		Timeout:        cfg.Inference.Timeout,
		MaxTokens:      cfg.Inference.MaxTokens,
		Logger:         logger,
	}
	if model != nil {
		if err := model.Load(ctx); err != nil {
			logger.Warn("inference model not loaded", zap.String("backend", model.Backend()), zap.Error(err))
		}
		aopts.Model = model
	}
	return &App{
		DB:        conn,
		Config:    cfg,
		Engine:    e,
		Assistant: assistant.New(aopts),
		Sessions:  &assistant.Sessions{Now: e.Now},
		Model:     model,
		Logger:    logger,
	}, nil
}

func (a *App) Close() error {
	if a.Model != nil {
		a.Model.Unload()
	}
	_ = a.Logger.Sync()
	return a.DB.Close()
}
