package store

import (
	"context"
	"log/slog"
	"time"
)

// RunPruner deletes device records idle longer than retention every
// interval until ctx is done. It returns nil on shutdown so it can run in
// an errgroup.
func RunPruner(ctx context.Context, repo Repository, retention, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("Device pruner started", "interval", interval, "retention", retention)

	for {
		select {
		case <-ticker.C:
			pruneOnce(ctx, repo, retention)
		case <-ctx.Done():
			slog.Info("Device pruner shutting down", "reason", ctx.Err())
			return nil
		}
	}
}

func pruneOnce(ctx context.Context, repo Repository, retention time.Duration) {
	deleted, err := repo.DeleteIdleUsers(ctx, retention)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("Device pruner failed", "error", err)
		}
		return
	}
	if deleted > 0 {
		slog.Info("Device pruner removed idle devices", "count", deleted)
	}
}
