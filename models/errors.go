package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrItemNotFound    = errors.New("order item not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrStatusConflict  = errors.New("order status changed concurrently")

	ErrConfigNotFound       = errors.New("gateway config not found")
	ErrCredentialDecryption = errors.New("credential decryption failed")
	ErrUpstreamPlatform     = errors.New("upstream platform error")
)

// InvalidTransitionError reports an illegal status change together with the
// set of statuses that would have been accepted.
type InvalidTransitionError struct {
	Current   string
	Requested string
	Allowed   []string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %q to %q (allowed: %s)",
		e.Current, e.Requested, strings.Join(e.Allowed, ", "))
}
