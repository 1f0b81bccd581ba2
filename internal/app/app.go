// Package app wires the store, the completion client and the study service
// together for both front-ends.
package app

import (
	"context"
	"fmt"

	"study-app/internal/backup"
	"study-app/internal/completion"
	"study-app/internal/config"
	"study-app/internal/logger"
	"study-app/internal/study"
	"study-app/internal/study/sqlite"
)

type App struct {
	Config     config.Config
	Log        *logger.Logger
	Store      *sqlite.SQLiteStore
	Completion *completion.Client
	Service    *study.Service
	Backups    *backup.Manager
}

func New(ctx context.Context, cfg config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}

	store, err := sqlite.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.DBPath, err)
	}

	client := completion.NewClient(completion.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		TopP:        cfg.LLM.TopP,
		Timeout:     cfg.LLM.Timeout,
	}, log)
	if !client.Configured() {
		log.Warn("llm credentials missing, question generation and chat are disabled")
	}

	broker := study.NewBroker()
	service := study.NewService(store, client,
		study.WithBroker(broker),
		study.WithLogger(log),
	)

	if cfg.SeedOnStart {
		catalog, err := study.DefaultCatalog()
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		seeded, err := service.SeedIfEmpty(ctx, catalog)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("seed store: %w", err)
		}
		if seeded {
			log.Info("seeded empty store", "subjects", len(catalog))
		}
	}

	backups := backup.NewManager(store,
		backup.WithBroker(broker),
		backup.WithLogger(log),
		backup.WithAfterRestore(service.ResetSessions),
	)

	return &App{
		Config:     cfg,
		Log:        log,
		Store:      store,
		Completion: client,
		Service:    service,
		Backups:    backups,
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}
