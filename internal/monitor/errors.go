// internal/monitor/errors.go
package monitor

import (
	"errors"
	"fmt"
)

// Non-fatal conditions. None of them stops a monitor loop.
var (
	// ErrPriceUnavailable: no usable price this cycle, the cycle is skipped.
	ErrPriceUnavailable = errors.New("price unavailable")
	// ErrSellRejected: the executor did not sell, state is unchanged and the rule retries next cycle.
	ErrSellRejected = errors.New("sell rejected")
	// ErrNotificationFailed: the alert channel failed, swallowed.
	ErrNotificationFailed = errors.New("notification failed")
)

var (
	ErrPositionNotOpen = errors.New("position is not open")
	ErrSessionExists   = errors.New("monitoring session already exists")
	ErrSessionNotFound = errors.New("monitoring session not found")
)

// recovered turns a collaborator panic into an error of the given class.
func recovered(class error, r any) error {
	return fmt.Errorf("%w: collaborator panic: %v", class, r)
}
