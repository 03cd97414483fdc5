package enums

// PaymentStatus records the gateway-facing payment state on an order.
type PaymentStatus string

const (
	PaymentStatusPaid PaymentStatus = "paid"
)

// CheckoutOutcome labels the terminal result of one payment attempt. Used
// for metrics and the notification surface, not persisted on the order.
type CheckoutOutcome string

const (
	OutcomeAbandoned            CheckoutOutcome = "abandoned"
	OutcomeCompleted            CheckoutOutcome = "completed"
	OutcomeCompletedUnverified  CheckoutOutcome = "completed_unverified"
	OutcomePendingVerification  CheckoutOutcome = "pending_verification"
	OutcomeVerificationRejected CheckoutOutcome = "verification_rejected"
	OutcomeRecordUpdateFailed   CheckoutOutcome = "record_update_failed"
)
