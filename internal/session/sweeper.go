package session

import (
	"context"
	"log/slog"
	"time"
)

// RunSweeper periodically discards idle transcripts until ctx is done.
// It always returns nil so it can run inside an errgroup next to the server.
func RunSweeper(ctx context.Context, m *Manager, ttl, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	slog.Info("Session sweeper started", "interval", interval, "ttl", ttl)

	for {
		select {
		case <-ticker.C:
			if removed := m.Sweep(ttl); removed > 0 {
				slog.Info("Session sweeper expired idle sessions", "count", removed, "remaining", m.Count())
			}
		case <-ctx.Done():
			slog.Info("Session sweeper shutting down", "reason", ctx.Err())
			return nil
		}
	}
}
