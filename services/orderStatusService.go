package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/restoflow/orders-backend/models"
)

// OrderStore is what the state machine needs from storage. The status write is
// a compare-and-swap on the previously read status: a swap against a stale row
// fails with models.ErrStatusConflict instead of silently overwriting.
type OrderStore interface {
	GetOrder(ctx context.Context, orgID, orderID string) (*models.Order, error)
	CompareAndSwapStatus(ctx context.Context, orgID, orderID, current, next string, notes *string) (*models.Order, error)
	SetItemBumped(ctx context.Context, orgID, orderID, itemID string) (*models.Order, error)
}

// transitionRetryLimit bounds the optimistic-lock retries when a concurrent
// writer moves the status between our read and our swap.
const transitionRetryLimit = 3

// OrderStatusService is the only component allowed to write an order's status.
type OrderStatusService struct {
	store OrderStore
}

func NewOrderStatusService(store OrderStore) *OrderStatusService {
	return &OrderStatusService{store: store}
}

// Transition validates and applies a status change. On a CAS miss the order is
// re-read and the target re-validated against the fresh status, so a change
// validated against a stale row is never applied.
func (s *OrderStatusService) Transition(ctx context.Context, orgID, orderID, target string) (*models.Order, error) {
	return s.transition(ctx, orgID, orderID, target, nil)
}

func (s *OrderStatusService) transition(ctx context.Context, orgID, orderID, target string, notes *string) (*models.Order, error) {
	for attempt := 0; attempt < transitionRetryLimit; attempt++ {
		order, err := s.store.GetOrder(ctx, orgID, orderID)
		if err != nil {
			return nil, err
		}

		if err := models.CanTransition(order, target); err != nil {
			return nil, err
		}

		updated, err := s.store.CompareAndSwapStatus(ctx, orgID, orderID, order.Status, target, notes)
		if errors.Is(err, models.ErrStatusConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("transition to %s: %w", target, models.ErrStatusConflict)
}

// Cancel moves the order to cancelled and, when a reason is given, appends a
// timestamped annotation to the notes without touching what is already there.
func (s *OrderStatusService) Cancel(ctx context.Context, orgID, orderID, reason string) (*models.Order, error) {
	if reason == "" {
		return s.transition(ctx, orgID, orderID, models.StatusCancelled, nil)
	}

	// The annotation is built from the order's current notes, so it has to be
	// recomputed inside the retry loop in case notes moved underneath us.
	for attempt := 0; attempt < transitionRetryLimit; attempt++ {
		order, err := s.store.GetOrder(ctx, orgID, orderID)
		if err != nil {
			return nil, err
		}

		if err := models.CanTransition(order, models.StatusCancelled); err != nil {
			return nil, err
		}

		notes := appendCancelReason(order.Notes, reason)
		updated, err := s.store.CompareAndSwapStatus(ctx, orgID, orderID, order.Status, models.StatusCancelled, &notes)
		if errors.Is(err, models.ErrStatusConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return updated, nil
	}
	return nil, fmt.Errorf("cancel: %w", models.ErrStatusConflict)
}

func appendCancelReason(notes, reason string) string {
	annotation := fmt.Sprintf("[%s] cancelled: %s", time.Now().UTC().Format("2006-01-02 15:04:05"), reason)
	if notes == "" {
		return annotation
	}
	return notes + "\n" + annotation
}

// BumpItem marks one item as prepared. Re-bumping an already-bumped item is a
// no-op success. When the bump leaves every item bumped and the order is still
// in accepted or preparing, the order auto-advances to ready; the returned bool
// reports that advance so the caller can fire the delivery sync. If a
// concurrent cancel wins that race the bump itself still succeeds; only the
// auto-advance is skipped.
func (s *OrderStatusService) BumpItem(ctx context.Context, orgID, orderID, itemID string) (*models.Order, bool, error) {
	order, err := s.store.GetOrder(ctx, orgID, orderID)
	if err != nil {
		return nil, false, err
	}

	item := order.FindItem(itemID)
	if item == nil {
		return nil, false, fmt.Errorf("bump %s: %w", itemID, models.ErrItemNotFound)
	}

	if !item.Modifiers.Bumped {
		order, err = s.store.SetItemBumped(ctx, orgID, orderID, itemID)
		if err != nil {
			return nil, false, err
		}
	}

	if order.AllItemsBumped() &&
		(order.Status == models.StatusAccepted || order.Status == models.StatusPreparing) {
		updated, err := s.Transition(ctx, orgID, orderID, models.StatusReady)
		if err != nil {
			var invalid *models.InvalidTransitionError
			if errors.As(err, &invalid) || errors.Is(err, models.ErrStatusConflict) {
				log.Printf("[state-machine] order %s: auto-ready skipped: %v", orderID, err)
				return order, false, nil
			}
			return nil, false, err
		}
		return updated, true, nil
	}

	return order, false, nil
}
