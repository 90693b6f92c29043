package main

import (
    "context"
    "errors"
    "net/http"
    "time"

    apihttp "github.com/HamedShams/issue-sync/internal/http"
    "github.com/HamedShams/issue-sync/internal/jobs"
)

func serve(parent context.Context, f *flags) error {
    ctx, stop := signalContext(parent)
    defer stop()
    a, err := newApp(ctx, f)
    if err != nil { return err }
    defer a.Close()

    var cr *jobs.Cron
    if a.pg != nil {
        cr, err = jobs.NewCron(a.cfg, a.log, a.svc, a.pg)
    } else {
        cr, err = jobs.NewCron(a.cfg, a.log, a.svc, nil)
    }
    if err != nil { return err }
    cr.Start()
    defer cr.Stop()

    srv := &http.Server{Addr: a.cfg.HTTPAddr, Handler: apihttp.NewRouter(a.cfg, a.log, a.svc), ReadHeaderTimeout: 10 * time.Second}
    errCh := make(chan error, 1)
    go func() { errCh <- srv.ListenAndServe() }()
    a.log.Info().Str("addr", a.cfg.HTTPAddr).Str("cron", a.cfg.SyncCron).Msg("serving")

    select {
    case <-ctx.Done():
        a.log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil && !errors.Is(err, http.ErrServerClosed) {
            a.log.Error().Err(err).Msg("http server error")
            return err
        }
    }
    sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    return srv.Shutdown(sctx)
}
