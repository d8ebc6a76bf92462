/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "net/http"
    "strconv"

    "github.com/gin-gonic/gin"
    "github.com/rs/zerolog"

    "github.com/HamedShams/sprint-pulse/internal/config"
    "github.com/HamedShams/sprint-pulse/internal/domain"
)

type service interface {
    GetCurrentReport(ctx context.Context, sprintID int64) (*domain.SprintReport, error)
    RecentSprints(ctx context.Context) ([]domain.SprintRef, error)
    RefreshReport(ctx context.Context) error
    GetLastRun(ctx context.Context) (any, error)
}

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc any) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc.(service)}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

// CurrentReport serves the sprint report; ?sprintId=N pins a sprint
// and forces a live build instead of the cached snapshot.
func (h *Handlers) CurrentReport(c *gin.Context) {
    var sprintID int64
    if raw := c.Query("sprintId"); raw != "" {
        n, err := strconv.ParseInt(raw, 10, 64)
        if err != nil || n <= 0 {
            c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sprintId"})
            return
        }
        sprintID = n
    }
    report, err := h.svc.GetCurrentReport(c.Request.Context(), sprintID)
    if err != nil {
        c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, report)
}

func (h *Handlers) RecentSprints(c *gin.Context) {
    refs, err := h.svc.RecentSprints(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
        return
    }
    if refs == nil { refs = []domain.SprintRef{} }
    c.JSON(http.StatusOK, refs)
}

func (h *Handlers) LastRun(c *gin.Context) {
    lr, err := h.svc.GetLastRun(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, lr)
}

func (h *Handlers) RefreshNow(c *gin.Context) {
    // Run in background detached from the HTTP request to avoid context cancellation
    go func(){ _ = h.svc.RefreshReport(context.Background()) }()
    c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}
