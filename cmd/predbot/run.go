package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/alejandrodnm/predbot/internal/application/engine"
	"github.com/alejandrodnm/predbot/internal/domain"
)

const stopFile = "STOP"

// runLoop ejecuta un ciclo inmediatamente y luego uno por tick, hasta señal o
// hasta que aparece el archivo STOP. Un ciclo fallido no detiene el loop.
func runLoop(ctx context.Context, eng *engine.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("paper trading started, press Ctrl+C or create STOP file to exit", "interval", interval)
	runCycle(ctx, eng)

	for {
		select {
		case <-ctx.Done():
			slog.Info("paper trading stopped (signal)")
			return
		case <-ticker.C:
			if _, err := os.Stat(stopFile); err == nil {
				slog.Info("STOP file detected, shutting down")
				_ = os.Remove(stopFile)
				return
			}
			runCycle(ctx, eng)
		}
	}
}

func runCycle(ctx context.Context, eng *engine.Engine) {
	start := time.Now()
	res, err := eng.RunOnce(ctx)
	switch {
	case errors.Is(err, domain.ErrNoMarkets):
		slog.Warn("no markets fetched, skipping cycle")
		return
	case err != nil:
		slog.Error("cycle failed", "err", err)
		return
	}
	slog.Debug("cycle done",
		"duration", time.Since(start).Round(time.Millisecond),
		"opened", len(res.Opened),
		"closed", len(res.Closed),
	)
}
