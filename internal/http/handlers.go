/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "errors"
    "net/http"

    "github.com/HamedShams/issue-sync/internal/config"
    "github.com/HamedShams/issue-sync/internal/services"
    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"
)

type service interface {
    Run(ctx context.Context) (services.RunResult, error)
    GetLastRun(ctx context.Context) (*services.RunResult, error)
}

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc service) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) LastRun(c *gin.Context) {
    lr, err := h.svc.GetLastRun(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    if lr == nil {
        c.JSON(http.StatusNotFound, gin.H{"error": "no runs recorded"})
        return
    }
    c.JSON(http.StatusOK, lr)
}

func (h *Handlers) RunNow(c *gin.Context) {
    // detached from the request so the client can disconnect
    go func() {
        res, err := h.svc.Run(context.Background())
        switch {
        case errors.Is(err, services.ErrRunInProgress):
            h.log.Info().Msg("manual run skipped: already running")
        case err != nil:
            h.log.Error().Err(err).Str("run", res.ID).Msg("manual run failed")
        }
    }()
    c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
