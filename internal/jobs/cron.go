/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/HamedShams/issue-sync/internal/config"
    "github.com/HamedShams/issue-sync/internal/services"
    "github.com/robfig/cron/v3"
    "github.com/rs/zerolog"
)

type runner interface {
    Run(ctx context.Context) (services.RunResult, error)
}

// locker serializes scheduled runs across replicas sharing one database.
type locker interface {
    TryAdvisoryLock(ctx context.Context, key int64) (bool, error)
    AdvisoryUnlock(ctx context.Context, key int64) error
}

const lockKey int64 = 727001

type Cron struct {
    cfg     config.Config
    log     zerolog.Logger
    svc     runner
    lock    locker
    c       *cron.Cron
    timeout time.Duration
}

// NewCron schedules svc on cfg.SyncCron. lock may be nil.
func NewCron(cfg config.Config, log zerolog.Logger, svc runner, lock locker) (*Cron, error) {
    clog := log.With().Str("component", "cron").Logger()
    c := cron.New(
        cron.WithLocation(cfg.Location()),
        cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
        cron.WithChain(cron.Recover(cron.PrintfLogger(&clog)), cron.SkipIfStillRunning(cron.PrintfLogger(&clog))),
    )
    cr := &Cron{cfg: cfg, log: clog, svc: svc, lock: lock, c: c, timeout: time.Hour}
    if _, err := c.AddFunc(cfg.SyncCron, cr.tick); err != nil {
        return nil, fmt.Errorf("invalid SYNC_CRON %q: %w", cfg.SyncCron, err)
    }
    return cr, nil
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop waits for a running sync to return.
func (cr *Cron) Stop() { <-cr.c.Stop().Done() }

func (cr *Cron) tick() {
    ctx, cancel := context.WithTimeout(context.Background(), cr.timeout)
    defer cancel()
    if cr.lock != nil {
        ok, err := cr.lock.TryAdvisoryLock(ctx, lockKey)
        if err != nil { cr.log.Error().Err(err).Msg("cron: lock error"); return }
        if !ok { cr.log.Info().Msg("cron: already running elsewhere"); return }
        defer func() { _ = cr.lock.AdvisoryUnlock(context.Background(), lockKey) }()
    }
    cr.log.Info().Msg("cron: scheduled sync")
    res, err := cr.svc.Run(ctx)
    if errors.Is(err, services.ErrRunInProgress) {
        cr.log.Info().Msg("cron: manual run in progress, skipping")
        return
    }
    if err != nil { cr.log.Error().Err(err).Str("run", res.ID).Msg("cron: sync failed") }
}
