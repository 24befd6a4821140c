package core

// scheduler.go purges old import log entries in the background.
//
// The job runs once at start and then every interval until ctx is cancelled.
// A failed purge is logged and retried on the next tick.

import (
	"context"
	"log/slog"
	"time"
)

// RetentionConfig controls import log purging.
type RetentionConfig struct {
	Retention     time.Duration // entries older than this are deleted
	CheckInterval time.Duration // how often to run; <= 0 disables the scheduler
}

// StartRetentionScheduler blocks, purging expired import log entries until
// ctx is cancelled. Run it in its own goroutine.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	if cfg.CheckInterval <= 0 || cfg.Retention <= 0 {
		slog.Info("import log retention disabled")
		return
	}

	slog.Info("import log retention started",
		"retention", cfg.Retention.String(),
		"interval", cfg.CheckInterval.String(),
	)

	s.purgeImportLog(ctx, cfg.Retention)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("import log retention stopped")
			return
		case <-ticker.C:
			s.purgeImportLog(ctx, cfg.Retention)
		}
	}
}

// purgeImportLog runs one purge cycle and returns the number of deleted entries.
func (s *Service) purgeImportLog(ctx context.Context, retention time.Duration) int64 {
	start := time.Now()
	cutoff := start.Add(-retention).UTC()

	purged, err := s.store.PurgeImports(ctx, cutoff)
	if err != nil {
		slog.Error("import log purge failed", "error", err)
		return 0
	}

	slog.Info("purged import log entries",
		"entries_purged", purged,
		"cutoff", cutoff.Format(time.RFC3339),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return purged
}
