package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Severity classifies a shopper-facing notice.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Notice is a transient message surfaced to the shopper. Duration is the
// auto-dismiss hint clients apply; zero means use the severity default.
type Notice struct {
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration_ms"`
	OrderID  *uuid.UUID    `json:"order_id,omitempty"`
}

// defaultDurations mirror the storefront toast timings; warnings linger
// longer because they carry follow-up instructions.
var defaultDurations = map[Severity]time.Duration{
	SeveritySuccess: 4 * time.Second,
	SeverityWarning: 5 * time.Second,
	SeverityError:   4 * time.Second,
	SeverityInfo:    4 * time.Second,
}

// New builds a notice with the default dismiss duration for its severity.
func New(severity Severity, message string) Notice {
	return Notice{
		Severity: severity,
		Message:  message,
		Duration: defaultDurations[severity],
	}
}

// WithDuration overrides the auto-dismiss hint.
func (n Notice) WithDuration(d time.Duration) Notice {
	n.Duration = d
	return n
}

// WithOrder attaches the order the notice refers to.
func (n Notice) WithOrder(orderID uuid.UUID) Notice {
	n.OrderID = &orderID
	return n
}
