package availability

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/courtwatch/courtwatch-data/internal/rec"
)

// Fetcher fetches the raw upstream availability batch. *rec.Client is the
// production implementation.
type Fetcher interface {
	FetchAvailability(ctx context.Context) (rec.Batch, error)
}

// Store is the persistence surface the pipeline writes through. The pgx
// implementation lives in internal/store.
type Store interface {
	// UpsertLocations creates locations on first sighting and refreshes
	// their display metadata thereafter.
	UpsertLocations(ctx context.Context, locs []LocationRecord) error

	// SyncSlots diffs candidates against a consistent snapshot of existing
	// identity keys and persists the new ones, atomically: the next pass
	// either sees all of this pass's slots or none of them.
	SyncSlots(ctx context.Context, candidates []SlotRecord) ([]StoredSlot, error)

	// ActiveWatches returns the active watch set for this pass. Watches
	// deleted concurrently are simply absent.
	ActiveWatches(ctx context.Context) ([]Watch, error)

	// RecordAlert inserts an alert for the match, returning created=false
	// when the (watch, slot) pair was already recorded. A conflict is a
	// no-op, not an error.
	RecordAlert(ctx context.Context, m Match) (Alert, bool, error)

	// MarkSyncSuccess and MarkSyncError maintain the heartbeat record.
	MarkSyncSuccess(ctx context.Context, at time.Time) error
	MarkSyncError(ctx context.Context, msg string, at time.Time) error
}

// Notifier delivers a recorded alert. Delivery is best-effort: failures are
// logged by the pipeline and never roll back the alert.
type Notifier interface {
	Notify(ctx context.Context, alert Alert, watch Watch) error
}

// Pipeline wires the pass stages together.
type Pipeline struct {
	fetcher    Fetcher
	store      Store
	notifier   Notifier
	sportID    string
	fallbackTZ string
	logger     *slog.Logger
}

// NewPipeline creates a pipeline. notifier may be nil-valued internally
// (disabled channel); the pipeline only requires the interface.
func NewPipeline(fetcher Fetcher, store Store, notifier Notifier, sportID, fallbackTZ string, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:    fetcher,
		store:      store,
		notifier:   notifier,
		sportID:    sportID,
		fallbackTZ: fallbackTZ,
		logger:     logger,
	}
}

// Run executes one complete pass. Any stage error beyond the normalizer's
// per-record skips aborts the pass and is recorded on the heartbeat; the
// caller (the scheduler) logs it and tries again next tick.
func (p *Pipeline) Run(ctx context.Context) error {
	start := time.Now()

	batch, err := p.fetcher.FetchAvailability(ctx)
	if err != nil {
		p.fail(ctx, err)
		return fmt.Errorf("fetch availability: %w", err)
	}

	locations, candidates, report := Normalize(batch, p.sportID, p.fallbackTZ)

	if err := p.store.UpsertLocations(ctx, locations); err != nil {
		p.fail(ctx, err)
		return fmt.Errorf("upsert locations: %w", err)
	}

	newSlots, err := p.store.SyncSlots(ctx, candidates)
	if err != nil {
		p.fail(ctx, err)
		return fmt.Errorf("sync slots: %w", err)
	}

	recorded := 0
	notified := 0
	if len(newSlots) > 0 {
		watches, err := p.store.ActiveWatches(ctx)
		if err != nil {
			p.fail(ctx, err)
			return fmt.Errorf("load active watches: %w", err)
		}

		for _, m := range MatchSlots(newSlots, watches) {
			alert, created, err := p.store.RecordAlert(ctx, m)
			if err != nil {
				p.logger.Warn("record alert failed",
					"watch_id", m.Watch.ID, "slot_id", m.Slot.ID, "error", err)
				continue
			}
			if !created {
				continue
			}
			recorded++

			if err := p.notifier.Notify(ctx, alert, m.Watch); err != nil {
				p.logger.Warn("alert delivery failed",
					"alert_id", alert.ID, "watch_id", m.Watch.ID, "error", err)
			} else {
				notified++
			}
		}
	}

	if err := p.store.MarkSyncSuccess(ctx, time.Now().UTC()); err != nil {
		p.logger.Warn("update heartbeat failed", "error", err)
	}

	p.logger.Info("Pass complete",
		"normalize", report.Summary(),
		"new_slots", len(newSlots),
		"alerts_recorded", recorded,
		"alerts_notified", notified,
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func (p *Pipeline) fail(ctx context.Context, cause error) {
	if err := p.store.MarkSyncError(ctx, cause.Error(), time.Now().UTC()); err != nil {
		p.logger.Warn("record sync error failed", "error", err)
	}
}
