package availability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/courtwatch/courtwatch-data/internal/rec"
)

// Mock fetcher, store, and notifier for pipeline tests

type mockFetcher struct {
	fetchFunc func(ctx context.Context) (rec.Batch, error)
}

func (m *mockFetcher) FetchAvailability(ctx context.Context) (rec.Batch, error) {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx)
	}
	return nil, nil
}

type mockStore struct {
	upsertLocationsFunc func(ctx context.Context, locs []LocationRecord) error
	syncSlotsFunc       func(ctx context.Context, candidates []SlotRecord) ([]StoredSlot, error)
	activeWatchesFunc   func(ctx context.Context) ([]Watch, error)
	recordAlertFunc     func(ctx context.Context, m Match) (Alert, bool, error)

	syncSuccesses int
	syncErrors    []string
}

func (m *mockStore) UpsertLocations(ctx context.Context, locs []LocationRecord) error {
	if m.upsertLocationsFunc != nil {
		return m.upsertLocationsFunc(ctx, locs)
	}
	return nil
}

func (m *mockStore) SyncSlots(ctx context.Context, candidates []SlotRecord) ([]StoredSlot, error) {
	if m.syncSlotsFunc != nil {
		return m.syncSlotsFunc(ctx, candidates)
	}
	return nil, nil
}

func (m *mockStore) ActiveWatches(ctx context.Context) ([]Watch, error) {
	if m.activeWatchesFunc != nil {
		return m.activeWatchesFunc(ctx)
	}
	return nil, nil
}

func (m *mockStore) RecordAlert(ctx context.Context, match Match) (Alert, bool, error) {
	if m.recordAlertFunc != nil {
		return m.recordAlertFunc(ctx, match)
	}
	return Alert{}, false, nil
}

func (m *mockStore) MarkSyncSuccess(ctx context.Context, at time.Time) error {
	m.syncSuccesses++
	return nil
}

func (m *mockStore) MarkSyncError(ctx context.Context, msg string, at time.Time) error {
	m.syncErrors = append(m.syncErrors, msg)
	return nil
}

type mockNotifier struct {
	notifyFunc func(ctx context.Context, alert Alert, watch Watch) error
	sent       []Alert
}

func (m *mockNotifier) Notify(ctx context.Context, alert Alert, watch Watch) error {
	if m.notifyFunc != nil {
		if err := m.notifyFunc(ctx, alert, watch); err != nil {
			return err
		}
	}
	m.sent = append(m.sent, alert)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pipelineBatch() rec.Batch {
	return rec.Batch{
		{
			Location: rec.Location{
				ID:       "loc-1",
				Name:     "Riverside Courts",
				Timezone: "UTC",
				Courts: []rec.Court{
					{
						ID:             "court-1",
						Name:           "Court 1",
						Sports:         []rec.Sport{{SportID: testSportID}},
						AvailableSlots: []string{"2026-09-05 18:00:00"},
					},
				},
			},
		},
	}
}

func TestPipelineRunRecordsAndNotifies(t *testing.T) {
	store := &mockStore{
		syncSlotsFunc: func(ctx context.Context, candidates []SlotRecord) ([]StoredSlot, error) {
			stored := make([]StoredSlot, len(candidates))
			for i, c := range candidates {
				stored[i] = StoredSlot{ID: int64(i + 1), SlotRecord: c}
			}
			return stored, nil
		},
		activeWatchesFunc: func(ctx context.Context) ([]Watch, error) {
			return []Watch{{ID: 7, LocationID: "loc-1", Active: true, Contact: "a@example.com"}}, nil
		},
		recordAlertFunc: func(ctx context.Context, m Match) (Alert, bool, error) {
			return Alert{ID: 99, WatchID: m.Watch.ID, SlotID: m.Slot.ID}, true, nil
		},
	}
	notifier := &mockNotifier{}
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context) (rec.Batch, error) {
		return pipelineBatch(), nil
	}}

	p := NewPipeline(fetcher, store, notifier, testSportID, "UTC", discardLogger())
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(notifier.sent) != 1 || notifier.sent[0].ID != 99 {
		t.Errorf("expected 1 delivered alert, got %+v", notifier.sent)
	}
	if store.syncSuccesses != 1 {
		t.Errorf("expected 1 heartbeat update, got %d", store.syncSuccesses)
	}
	if len(store.syncErrors) != 0 {
		t.Errorf("unexpected sync errors: %v", store.syncErrors)
	}
}

func TestPipelineRunSecondPassIsQuiet(t *testing.T) {
	// Same upstream payload twice: the second pass sees no new slots, so no
	// watches are loaded and no alerts recorded.
	seen := map[SlotKey]struct{}{}
	watchLoads := 0
	alerts := 0

	store := &mockStore{
		syncSlotsFunc: func(ctx context.Context, candidates []SlotRecord) ([]StoredSlot, error) {
			fresh := Diff(candidates, seen)
			stored := make([]StoredSlot, len(fresh))
			for i, c := range fresh {
				seen[c.Key()] = struct{}{}
				stored[i] = StoredSlot{ID: int64(len(seen)), SlotRecord: c}
			}
			return stored, nil
		},
		activeWatchesFunc: func(ctx context.Context) ([]Watch, error) {
			watchLoads++
			return []Watch{{ID: 1, LocationID: "loc-1", Active: true}}, nil
		},
		recordAlertFunc: func(ctx context.Context, m Match) (Alert, bool, error) {
			alerts++
			return Alert{ID: int64(alerts)}, true, nil
		},
	}
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context) (rec.Batch, error) {
		return pipelineBatch(), nil
	}}

	p := NewPipeline(fetcher, store, &mockNotifier{}, testSportID, "UTC", discardLogger())
	for i := 0; i < 2; i++ {
		if err := p.Run(context.Background()); err != nil {
			t.Fatalf("pass %d: %v", i+1, err)
		}
	}

	if alerts != 1 {
		t.Errorf("expected exactly 1 alert across both passes, got %d", alerts)
	}
	if watchLoads != 1 {
		t.Errorf("expected watches loaded once (no new slots on pass 2), got %d", watchLoads)
	}
	if store.syncSuccesses != 2 {
		t.Errorf("expected 2 heartbeat updates, got %d", store.syncSuccesses)
	}
}

func TestPipelineRunFetchFailure(t *testing.T) {
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context) (rec.Batch, error) {
		return nil, &rec.TransportError{Status: 503, Err: errors.New("upstream down")}
	}}
	store := &mockStore{}

	p := NewPipeline(fetcher, store, &mockNotifier{}, testSportID, "UTC", discardLogger())
	err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected fetch failure to abort the pass")
	}

	var te *rec.TransportError
	if !errors.As(err, &te) || te.Status != 503 {
		t.Errorf("expected wrapped TransportError, got %v", err)
	}
	if len(store.syncErrors) != 1 {
		t.Fatalf("expected 1 recorded sync error, got %d", len(store.syncErrors))
	}
	if store.syncSuccesses != 0 {
		t.Errorf("heartbeat must not advance on failure, got %d successes", store.syncSuccesses)
	}
}

func TestPipelineRunConflictSkipsDelivery(t *testing.T) {
	// created=false is a replayed (watch, slot) pair: never re-notify.
	store := &mockStore{
		syncSlotsFunc: func(ctx context.Context, candidates []SlotRecord) ([]StoredSlot, error) {
			stored := make([]StoredSlot, len(candidates))
			for i, c := range candidates {
				stored[i] = StoredSlot{ID: int64(i + 1), SlotRecord: c}
			}
			return stored, nil
		},
		activeWatchesFunc: func(ctx context.Context) ([]Watch, error) {
			return []Watch{{ID: 1, LocationID: "loc-1", Active: true}}, nil
		},
		recordAlertFunc: func(ctx context.Context, m Match) (Alert, bool, error) {
			return Alert{}, false, nil
		},
	}
	notifier := &mockNotifier{}
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context) (rec.Batch, error) {
		return pipelineBatch(), nil
	}}

	p := NewPipeline(fetcher, store, notifier, testSportID, "UTC", discardLogger())
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Errorf("expected no deliveries for conflicting alerts, got %d", len(notifier.sent))
	}
}

func TestPipelineRunDeliveryFailureDoesNotAbort(t *testing.T) {
	recorded := 0
	store := &mockStore{
		syncSlotsFunc: func(ctx context.Context, candidates []SlotRecord) ([]StoredSlot, error) {
			stored := make([]StoredSlot, len(candidates))
			for i, c := range candidates {
				stored[i] = StoredSlot{ID: int64(i + 1), SlotRecord: c}
			}
			return stored, nil
		},
		activeWatchesFunc: func(ctx context.Context) ([]Watch, error) {
			return []Watch{{ID: 1, LocationID: "loc-1", Active: true}}, nil
		},
		recordAlertFunc: func(ctx context.Context, m Match) (Alert, bool, error) {
			recorded++
			return Alert{ID: int64(recorded)}, true, nil
		},
	}
	notifier := &mockNotifier{notifyFunc: func(ctx context.Context, alert Alert, watch Watch) error {
		return errors.New("smtp: connection refused")
	}}
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context) (rec.Batch, error) {
		return pipelineBatch(), nil
	}}

	p := NewPipeline(fetcher, store, notifier, testSportID, "UTC", discardLogger())
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("delivery failure must not fail the pass: %v", err)
	}
	if recorded != 1 {
		t.Errorf("alert must be recorded despite delivery failure, got %d", recorded)
	}
	if store.syncSuccesses != 1 {
		t.Errorf("heartbeat must advance despite delivery failure, got %d", store.syncSuccesses)
	}
}

func TestPipelineRunRecordErrorContinues(t *testing.T) {
	// A per-match record failure skips that match but keeps the pass alive.
	calls := 0
	store := &mockStore{
		syncSlotsFunc: func(ctx context.Context, candidates []SlotRecord) ([]StoredSlot, error) {
			stored := make([]StoredSlot, len(candidates))
			for i, c := range candidates {
				stored[i] = StoredSlot{ID: int64(i + 1), SlotRecord: c}
			}
			return stored, nil
		},
		activeWatchesFunc: func(ctx context.Context) ([]Watch, error) {
			return []Watch{
				{ID: 1, LocationID: "loc-1", Active: true},
				{ID: 2, LocationID: "loc-1", Active: true},
			}, nil
		},
		recordAlertFunc: func(ctx context.Context, m Match) (Alert, bool, error) {
			calls++
			if m.Watch.ID == 1 {
				return Alert{}, false, errors.New("insert failed")
			}
			return Alert{ID: 5}, true, nil
		},
	}
	notifier := &mockNotifier{}
	fetcher := &mockFetcher{fetchFunc: func(ctx context.Context) (rec.Batch, error) {
		return pipelineBatch(), nil
	}}

	p := NewPipeline(fetcher, store, notifier, testSportID, "UTC", discardLogger())
	if err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected both matches attempted, got %d", calls)
	}
	if len(notifier.sent) != 1 {
		t.Errorf("expected the surviving match delivered, got %d", len(notifier.sent))
	}
}
