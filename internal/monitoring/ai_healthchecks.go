package monitoring

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

const HEALTHCHECK_TEXT = "Quarterly revenue was in line with expectations."

// Probe runs one end-to-end check of a dependency.
type Probe func(ctx context.Context) error

// MonitorModelHealth probes once immediately and then every interval until ctx
// ends, storing the outcome in healthy.
func MonitorModelHealth(ctx context.Context, probe Probe, interval time.Duration, healthy *atomic.Bool) {
	check := func() {
		probeCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()

		err := probe(probeCtx)
		wasHealthy := healthy.Swap(err == nil)
		switch {
		case err != nil:
			slog.Warn("[HealthCheck] Model is unhealthy",
				slog.String("error", err.Error()))
		case !wasHealthy:
			slog.Info("[HealthCheck] Model is healthy")
		}
	}

	check()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
