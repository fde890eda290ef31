package orders

import (
	"fmt"

	"github.com/denvolkov/playcart-backend/pkg/enums"
	pkgerrors "github.com/denvolkov/playcart-backend/pkg/errors"
)

// allowedPredecessors maps each staff-settable target status to the
// statuses it may be entered from. The return path (return_pending,
// returned) is driven by its own operations, never by a staff status
// update.
var allowedPredecessors = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusConfirmed:  {enums.OrderStatusPending},
	enums.OrderStatusProcessing: {enums.OrderStatusPending, enums.OrderStatusConfirmed},
	enums.OrderStatusShipped:    {enums.OrderStatusConfirmed, enums.OrderStatusProcessing},
	enums.OrderStatusDelivered:  {enums.OrderStatusShipped},
	enums.OrderStatusCancelled: {
		enums.OrderStatusPending,
		enums.OrderStatusConfirmed,
		enums.OrderStatusProcessing,
		enums.OrderStatusShipped,
	},
}

// defaultStatusNotes provides the history note when the actor supplies none.
var defaultStatusNotes = map[enums.OrderStatus]string{
	enums.OrderStatusPending:       "Order created",
	enums.OrderStatusConfirmed:     "Order confirmed",
	enums.OrderStatusProcessing:    "Order is being processed",
	enums.OrderStatusShipped:       "Order shipped",
	enums.OrderStatusDelivered:     "Order delivered",
	enums.OrderStatusCancelled:     "Order cancelled",
	enums.OrderStatusReturnPending: "Return requested",
	enums.OrderStatusReturned:      "Return approved, refund issued",
}

// CanTransition reports whether a staff update may move an order from one
// status to another.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, allowed := range allowedPredecessors[to] {
		if allowed == from {
			return true
		}
	}
	return false
}

func validateTransition(from, to enums.OrderStatus) error {
	if _, ok := allowedPredecessors[to]; !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("status %s cannot be set directly", to))
	}
	if !CanTransition(from, to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("cannot move order from %s to %s", from, to))
	}
	return nil
}

func statusNote(status enums.OrderStatus, note *string) string {
	if note != nil && *note != "" {
		return *note
	}
	return defaultStatusNotes[status]
}
