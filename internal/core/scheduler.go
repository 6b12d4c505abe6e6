package core

// scheduler.go runs background maintenance for long-lived services.
//
// The only job prunes the import history: entries older than the retention
// window are removed from import_logs. The rows an import stored stay in
// place. A failed run is logged and retried on the next tick.

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Retention defaults.
const (
	DefaultHistoryRetention     = 90 * 24 * time.Hour
	DefaultRetentionCheckPeriod = 24 * time.Hour
)

// RetentionConfig holds configuration for the history retention scheduler.
// Zero values select the defaults.
type RetentionConfig struct {
	KeepFor       time.Duration // Age after which log entries are pruned (default: 90 days)
	CheckInterval time.Duration // How often to run (default: 24h)
}

func (c RetentionConfig) withDefaults() RetentionConfig {
	if c.KeepFor <= 0 {
		c.KeepFor = DefaultHistoryRetention
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultRetentionCheckPeriod
	}
	return c
}

// PruneHistory deletes import log entries that started more than keepFor ago.
func (s *Service) PruneHistory(ctx context.Context, keepFor time.Duration) (int64, error) {
	if s.store == nil {
		return 0, ErrStoreUnavailable
	}
	if keepFor <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %s", keepFor)
	}
	n, err := s.store.PruneImports(ctx, time.Now().Add(-keepFor))
	if err != nil {
		return 0, fmt.Errorf("prune imports: %w", err)
	}
	return n, nil
}

// StartRetentionScheduler prunes the import history immediately, then every
// CheckInterval, until ctx is cancelled. Run it in its own goroutine.
func (s *Service) StartRetentionScheduler(ctx context.Context, cfg RetentionConfig) {
	cfg = cfg.withDefaults()
	slog.Info("retention scheduler started",
		"keep_for", cfg.KeepFor.String(),
		"check_interval", cfg.CheckInterval.String(),
	)

	s.runRetentionJob(ctx, cfg)

	ticker := time.NewTicker(cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention scheduler stopped")
			return
		case <-ticker.C:
			s.runRetentionJob(ctx, cfg)
		}
	}
}

func (s *Service) runRetentionJob(ctx context.Context, cfg RetentionConfig) {
	start := time.Now()
	pruned, err := s.PruneHistory(ctx, cfg.KeepFor)
	if err != nil {
		slog.Error("history prune failed", "error", err)
		return
	}
	slog.Info("pruned import history",
		"entries_pruned", pruned,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
