package enums

import "fmt"

// OrderStatus is the canonical lifecycle status persisted on an order. It is
// the single source of truth for the payment lifecycle; legacy flags such as
// `paid` are derived from it, never stored independently.
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPendingVerification marks a gateway-confirmed payment whose
	// server-side verification was indeterminate; resolved manually or by a
	// later webhook.
	OrderStatusPendingVerification OrderStatus = "payment_pending_verification"
	OrderStatusCompleted           OrderStatus = "completed"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPendingVerification,
	OrderStatusCompleted,
}

// IsValid reports whether the value matches the canonical order status enum.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Terminal reports whether the status permits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted
}

// CanTransition reports whether moving from s to target preserves the
// monotonic lifecycle: pending may advance, pending-verification may only
// complete, completed never moves.
func (s OrderStatus) CanTransition(target OrderStatus) bool {
	if s == target {
		return true
	}
	switch s {
	case OrderStatusPending:
		return target == OrderStatusPendingVerification || target == OrderStatusCompleted
	case OrderStatusPendingVerification:
		return target == OrderStatusCompleted
	default:
		return false
	}
}

// ParseOrderStatus converts the raw string to OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
