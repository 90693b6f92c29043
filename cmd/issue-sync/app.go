package main

import (
    "context"

    "github.com/HamedShams/issue-sync/internal/adapters/jira"
    "github.com/HamedShams/issue-sync/internal/adapters/s3"
    "github.com/HamedShams/issue-sync/internal/adapters/sheets"
    "github.com/HamedShams/issue-sync/internal/adapters/telegram"
    "github.com/HamedShams/issue-sync/internal/adapters/xlsx"
    "github.com/HamedShams/issue-sync/internal/config"
    "github.com/HamedShams/issue-sync/internal/logger"
    "github.com/HamedShams/issue-sync/internal/repo"
    "github.com/HamedShams/issue-sync/internal/services"
    "github.com/rs/zerolog"
)

type app struct {
    cfg  config.Config
    log  zerolog.Logger
    svc  *services.Service
    db   *repo.DB
    pg   *repo.Repository
}

func newApp(ctx context.Context, f *flags) (*app, error) {
    cfg, err := config.Load(f.configPath)
    if err != nil { return nil, err }
    if f.logLevel != "" { cfg.LogLevel = f.logLevel }
    log := logger.New(cfg)
    if err := cfg.Validate(); err != nil { return nil, err }

    a := &app{cfg: cfg, log: log}
    var store services.RunStore = repo.NewMemory(50)
    if cfg.DBDSN != "" {
        db, err := repo.Open(ctx, cfg.DBDSN, log)
        if err != nil { return nil, err }
        r := repo.NewRepository(db, log)
        if err := r.EnsureSchema(ctx); err != nil {
            db.Close()
            return nil, err
        }
        a.db, a.pg, store = db, r, r
    }

    a.svc = services.New(cfg, log, store,
        jira.NewClient(cfg, log),
        xlsx.NewWriter(cfg.OutputFile, log),
        sheets.NewSink(cfg, log),
        s3.NewArchiver(cfg, log),
        telegram.NewClient(cfg, log),
    )
    return a, nil
}

func (a *app) Close() {
    if a.db != nil { a.db.Close() }
}
