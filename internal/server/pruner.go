package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const prunerLogPrefix = "server:pruner"

type journalPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// pruneInterval is a quarter of the retention, clamped to [1m, 1h].
func pruneInterval(retention time.Duration) time.Duration {
	iv := retention / 4
	if iv < time.Minute {
		return time.Minute
	}
	if iv > time.Hour {
		return time.Hour
	}
	return iv
}

// runPruner deletes journal rows older than retention until ctx is done.
func runPruner(ctx context.Context, p journalPruner, retention time.Duration) {
	ticker := time.NewTicker(pruneInterval(retention))
	defer ticker.Stop()

	slog.Info(fmt.Sprintf("%s - Journal retention %s", prunerLogPrefix, retention))
	for {
		if _, err := p.PruneBefore(ctx, time.Now().Add(-retention)); err != nil && ctx.Err() == nil {
			slog.Warn(fmt.Sprintf("%s - prune failed: %v", prunerLogPrefix, err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
