package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/restoflow/orders-backend/models"
)

type mockFeedStore struct {
	mu      sync.Mutex
	batches [][]models.Order
	sinces  []time.Time
}

func (m *mockFeedStore) ListUpdatedSince(ctx context.Context, orgID string, since time.Time) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sinces = append(m.sinces, since)
	if len(m.batches) == 0 {
		return nil, nil
	}
	batch := m.batches[0]
	m.batches = m.batches[1:]
	return batch, nil
}

func newTestFeed(store FeedStore) *EventFeedService {
	return &EventFeedService{
		store:    store,
		interval: 5 * time.Millisecond,
		now:      time.Now,
	}
}

func collectEvents(t *testing.T, events <-chan OrderEvent, want int) []OrderEvent {
	t.Helper()
	var collected []OrderEvent
	deadline := time.After(2 * time.Second)
	for len(collected) < want {
		select {
		case event, ok := <-events:
			if !ok {
				t.Fatalf("channel closed after %d of %d events", len(collected), want)
			}
			collected = append(collected, event)
		case <-deadline:
			t.Fatalf("timed out after %d of %d events", len(collected), want)
		}
	}
	return collected
}

func TestSubscribe_EmitsConnectedFirst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := newTestFeed(&mockFeedStore{})
	events := feed.Subscribe(ctx, "org-1")

	got := collectEvents(t, events, 1)
	if got[0].Type != EventConnected {
		t.Errorf("first event = %s, want connected", got[0].Type)
	}
}

func TestSubscribe_ClassifiesChanges(t *testing.T) {
	now := time.Now()
	old := now.Add(-time.Hour)

	store := &mockFeedStore{batches: [][]models.Order{{
		{Order_id: "new-1", Status: models.StatusPending, Created_at: now.Add(time.Minute), Updated_at: now.Add(time.Minute)},
		{Order_id: "gone-1", Status: models.StatusCancelled, Created_at: old, Updated_at: now.Add(time.Minute)},
		{Order_id: "moved-1", Status: models.StatusPreparing, Created_at: old, Updated_at: now.Add(time.Minute)},
	}}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := newTestFeed(store)
	events := feed.Subscribe(ctx, "org-1")

	got := collectEvents(t, events, 4)
	wantTypes := map[string]string{
		"new-1":   EventOrderCreated,
		"gone-1":  EventOrderCancelled,
		"moved-1": EventStatusChanged,
	}
	for _, event := range got[1:] {
		if want := wantTypes[event.OrderID]; event.Type != want {
			t.Errorf("order %s classified as %s, want %s", event.OrderID, event.Type, want)
		}
		if event.Data == nil {
			t.Errorf("order %s event has no data payload", event.OrderID)
		}
	}
}

func TestSubscribe_WatermarkAdvances(t *testing.T) {
	store := &mockFeedStore{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := newTestFeed(store)
	events := feed.Subscribe(ctx, "org-1")
	collectEvents(t, events, 1)

	deadline := time.After(2 * time.Second)
	for {
		store.mu.Lock()
		ticks := len(store.sinces)
		store.mu.Unlock()
		if ticks >= 3 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("poll loop never ticked 3 times")
		case <-time.After(5 * time.Millisecond):
		}
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	for i := 1; i < 3; i++ {
		if store.sinces[i].Before(store.sinces[i-1]) {
			t.Errorf("watermark moved backwards: %v then %v", store.sinces[i-1], store.sinces[i])
		}
	}
}

func TestSubscribe_DisconnectStopsPollingAndClosesChannel(t *testing.T) {
	store := &mockFeedStore{}
	ctx, cancel := context.WithCancel(context.Background())

	feed := newTestFeed(store)
	events := feed.Subscribe(ctx, "org-1")
	collectEvents(t, events, 1)

	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				goto closed
			}
		case <-deadline:
			t.Fatal("channel not closed after disconnect")
		}
	}
closed:

	store.mu.Lock()
	ticksAtClose := len(store.sinces)
	store.mu.Unlock()

	time.Sleep(30 * time.Millisecond)

	store.mu.Lock()
	ticksLater := len(store.sinces)
	store.mu.Unlock()

	if ticksLater != ticksAtClose {
		t.Errorf("polling continued after disconnect: %d -> %d ticks", ticksAtClose, ticksLater)
	}
}
