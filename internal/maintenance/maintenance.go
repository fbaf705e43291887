// Package maintenance runs periodic retention tasks as Go tickers.
//
// The pipeline is append-only, so old rows accumulate: slots whose start
// time is long past can never be re-published upstream and are safe to
// prune without weakening slot dedup; alerts age out on their own window.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the single pool capability the pruner needs. *pgxpool.Pool is
// the production implementation.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Config controls retention intervals and windows. Zero interval disables
// a task.
type Config struct {
	PruneInterval  time.Duration
	SlotRetention  time.Duration // how long past-dated slots are kept
	AlertRetention time.Duration // how long alerts are kept
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		PruneInterval:  6 * time.Hour,
		SlotRetention:  30 * 24 * time.Hour,
		AlertRetention: 90 * 24 * time.Hour,
	}
}

// Start launches the retention ticker. Blocks until ctx is cancelled.
// Intended to be called with `go`.
func Start(ctx context.Context, pool Execer, cfg Config, logger *slog.Logger) {
	if cfg.PruneInterval <= 0 {
		return
	}
	logger.Info("Maintenance ticker started",
		"interval", cfg.PruneInterval,
		"slot_retention", cfg.SlotRetention,
		"alert_retention", cfg.AlertRetention)

	ticker := time.NewTicker(cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			prune(ctx, pool, cfg, logger)
		case <-ctx.Done():
			logger.Info("Maintenance ticker stopped")
			return
		}
	}
}

// prune removes expired rows. A slot is only pruned once no alert still
// references it, so the alert feed keeps its history for the full alert
// retention window.
func prune(ctx context.Context, pool Execer, cfg Config, logger *slog.Logger) {
	tag, err := pool.Exec(ctx, `
		DELETE FROM alerts
		WHERE created_at < NOW() - make_interval(secs => $1)`,
		cfg.AlertRetention.Seconds())
	if err != nil {
		logger.Warn("Prune: failed to purge old alerts", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Prune: purged old alerts", "count", tag.RowsAffected())
	}

	tag, err = pool.Exec(ctx, `
		DELETE FROM slots
		WHERE slot_time_utc < NOW() - make_interval(secs => $1)
		  AND NOT EXISTS (SELECT 1 FROM alerts a WHERE a.slot_id = slots.id)`,
		cfg.SlotRetention.Seconds())
	if err != nil {
		logger.Warn("Prune: failed to purge expired slots", "error", err)
	} else if tag.RowsAffected() > 0 {
		logger.Info("Prune: purged expired slots", "count", tag.RowsAffected())
	}
}
