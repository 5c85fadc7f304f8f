package memory

import (
	"context"
	"log/slog"
	"time"
)

type Sweeper interface {
	Sweep(now time.Time) int
}

// RunJanitor sweeps the given stores every interval until ctx is done.
func RunJanitor(ctx context.Context, interval time.Duration, stores map[string]Sweeper) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for name, store := range stores {
				if removed := store.Sweep(now); removed > 0 {
					slog.Debug("memory_sweep", "store", name, "removed", removed)
				}
			}
		}
	}
}
