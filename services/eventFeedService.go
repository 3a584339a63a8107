package services

import (
	"context"
	"log"
	"time"

	"github.com/restoflow/orders-backend/models"
)

// Event types emitted by the feed.
const (
	EventConnected      = "connected"
	EventOrderCreated   = "order_created"
	EventOrderCancelled = "order_cancelled"
	EventStatusChanged  = "status_changed"
)

// OrderEvent is one feed message. Data is a full order snapshot, not a delta:
// a row may be delivered more than once per change and clients must treat
// events as idempotent state.
type OrderEvent struct {
	Type      string      `json:"type"`
	OrderID   string      `json:"orderId"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

type FeedStore interface {
	ListUpdatedSince(ctx context.Context, orgID string, since time.Time) ([]models.Order, error)
}

const defaultPollInterval = 3 * time.Second

// EventFeedService runs one polling loop per subscriber. The storage layer
// has no push capability; a watermark on updated_at detects changes instead.
type EventFeedService struct {
	store    FeedStore
	interval time.Duration
	now      func() time.Time
}

func NewEventFeedService(store FeedStore) *EventFeedService {
	return &EventFeedService{
		store:    store,
		interval: defaultPollInterval,
		now:      time.Now,
	}
}

// Subscribe starts a poll loop for one client and returns its event channel.
// A synthetic connected event arrives first. The channel is closed and the
// loop torn down when ctx is cancelled (client disconnect).
func (s *EventFeedService) Subscribe(ctx context.Context, orgID string) <-chan OrderEvent {
	events := make(chan OrderEvent, 16)
	go s.poll(ctx, orgID, events)
	return events
}

func (s *EventFeedService) poll(ctx context.Context, orgID string, events chan<- OrderEvent) {
	defer close(events)

	select {
	case events <- OrderEvent{Type: EventConnected, Timestamp: s.now()}:
	case <-ctx.Done():
		return
	}

	watermark := s.now()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// The watermark advances before the query runs: a slow query widens
		// the next window instead of shifting it, so a change can be delivered
		// twice but never skipped.
		previous := watermark
		watermark = s.now()

		orders, err := s.store.ListUpdatedSince(ctx, orgID, previous)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[event-feed] org %s: polling orders: %v", orgID, err)
			continue
		}

		for i := range orders {
			event := s.classify(&orders[i], previous)
			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *EventFeedService) classify(order *models.Order, previous time.Time) OrderEvent {
	eventType := EventStatusChanged
	switch {
	case !order.Created_at.Before(previous):
		eventType = EventOrderCreated
	case order.Status == models.StatusCancelled:
		eventType = EventOrderCancelled
	}
	return OrderEvent{
		Type:      eventType,
		OrderID:   order.Order_id,
		Data:      order,
		Timestamp: s.now(),
	}
}
