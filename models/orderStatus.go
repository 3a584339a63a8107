package models

// Order statuses
const (
	StatusPending   = "pending"
	StatusAccepted  = "accepted"
	StatusPreparing = "preparing"
	StatusReady     = "ready"
	StatusServed    = "served"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// allowedTransitions is the single source of truth for legal status changes.
// The ready row is further narrowed by the order-type guard in CanTransition.
var allowedTransitions = map[string][]string{
	StatusPending:   {StatusAccepted, StatusCancelled},
	StatusAccepted:  {StatusPreparing, StatusReady, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusServed, StatusCompleted},
	StatusServed:    {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
}

// IsValidStatus reports whether the string is a known order status.
func IsValidStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

// AllowedNextStatuses returns the statuses the order may move to from its
// current status, with the leaving-ready guard applied: a dine-in order must
// pass through served, a non-dine-in order completes directly.
func AllowedNextStatuses(order *Order) []string {
	next, ok := allowedTransitions[order.Status]
	if !ok {
		return nil
	}
	allowed := make([]string, 0, len(next))
	for _, target := range next {
		if order.Status == StatusReady {
			if target == StatusServed && order.Type != TypeDineIn {
				continue
			}
			if target == StatusCompleted && order.Type == TypeDineIn {
				continue
			}
		}
		allowed = append(allowed, target)
	}
	return allowed
}

// CanTransition validates a requested status change against the transition
// table and the order-type guard. It returns nil when the change is legal and
// an *InvalidTransitionError otherwise.
func CanTransition(order *Order, target string) error {
	allowed := AllowedNextStatuses(order)
	for _, status := range allowed {
		if status == target {
			return nil
		}
	}
	return &InvalidTransitionError{
		Current:   order.Status,
		Requested: target,
		Allowed:   allowed,
	}
}
