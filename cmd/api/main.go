/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/HamedShams/sprint-pulse/internal/adapters/jira"
    "github.com/HamedShams/sprint-pulse/internal/config"
    apphttp "github.com/HamedShams/sprint-pulse/internal/http"
    "github.com/HamedShams/sprint-pulse/internal/jobs"
    "github.com/HamedShams/sprint-pulse/internal/logger"
    "github.com/HamedShams/sprint-pulse/internal/repo"
    "github.com/HamedShams/sprint-pulse/internal/services"
)

func main() {
    cfg := config.Load()
    log := logger.New(cfg)
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // DB
    db := repo.MustOpen(ctx, cfg, log)
    defer db.Close()
    repository := repo.NewRepository(db, log)
    {
        ctx2, cancel2 := context.WithTimeout(ctx, 15*time.Second); defer cancel2()
        if err := repository.EnsureSchema(ctx2); err != nil { log.Fatal().Err(err).Msg("schema init failed") }
    }

    // Adapters
    jc := jira.NewClient(cfg, log)

    // Services
    svc := services.New(cfg, log, repository, jc)

    // HTTP server (Gin)
    router := apphttp.NewRouter(cfg, log, svc)

    // Cron
    cr := jobs.NewCron(cfg, log, svc, repository)
    cr.Start()
    defer cr.Stop()

    // graceful shutdown
    errCh := make(chan error, 1)
    go func() { errCh <- router.Run(cfg.HTTPAddr) }()

    sigCh := make(chan os.Signal, 1)
    signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

    select {
    case <-sigCh:
        log.Info().Msg("shutting down...")
    case err := <-errCh:
        if err != nil { log.Error().Err(err).Msg("http server error") }
    }

    time.Sleep(500 * time.Millisecond)
}
