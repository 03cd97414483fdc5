package paystack

import (
	"fmt"
	"time"
)

// NewReference derives the unique reference for one payment attempt. The
// order id ties the attempt back to its order; the millisecond timestamp
// keeps retries against the same order distinct.
func NewReference(orderID string, now time.Time) string {
	return fmt.Sprintf("order_%s_%d", orderID, now.UnixMilli())
}
