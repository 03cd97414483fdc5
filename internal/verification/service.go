package verification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bookhaven/storefront-backend/internal/orders"
	"github.com/bookhaven/storefront-backend/pkg/db/models"
	"github.com/bookhaven/storefront-backend/pkg/enums"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	"github.com/bookhaven/storefront-backend/pkg/logger"
	"github.com/bookhaven/storefront-backend/pkg/metrics"
	"github.com/bookhaven/storefront-backend/pkg/paystack"
)

// gateway is the slice of the payment client this service needs.
type gateway interface {
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error)
}

// adminMailer notifies the shop operator about a confirmed payment.
type adminMailer interface {
	NotifyOrderPaid(ctx context.Context, order *models.Order)
	Enabled() bool
}

// Result is the service's verdict on one payment reference.
type Result struct {
	Verified    bool                  `json:"verified"`
	Transaction *paystack.Transaction `json:"data,omitempty"`
}

// Service confirms payments against the gateway's records and settles the
// order row accordingly.
type Service interface {
	Confirm(ctx context.Context, reference string, orderID uuid.UUID) (*Result, error)
}

type service struct {
	gateway gateway
	store   orders.Store
	mailer  adminMailer
	metrics *metrics.CheckoutMetrics
	logger  *logger.Logger
}

// NewService wires the verification dependencies. Mailer and metrics are
// optional.
func NewService(gw gateway, store orders.Store, mailer adminMailer, m *metrics.CheckoutMetrics, logg *logger.Logger) (Service, error) {
	if gw == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway required")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders store required")
	}
	return &service{
		gateway: gw,
		store:   store,
		mailer:  mailer,
		metrics: m,
		logger:  logg,
	}, nil
}

// Confirm asks the gateway for the transaction and, on a successful charge,
// marks the order completed and paid. A charge the gateway does not know as
// successful yields verified=false without touching the order.
func (s *service) Confirm(ctx context.Context, reference string, orderID uuid.UUID) (*Result, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	if s.logger != nil {
		ctx = s.logger.WithReference(s.logger.WithOrderID(ctx, orderID.String()), reference)
	}

	started := time.Now()
	tx, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		s.metrics.ObserveVerification("gateway_error", time.Since(started))
		return nil, err
	}

	if !tx.Success() {
		s.metrics.ObserveVerification("rejected", time.Since(started))
		if s.logger != nil {
			s.logger.Warn(s.logger.WithField(ctx, "gateway_status", tx.Status), "gateway did not confirm charge")
		}
		return &Result{Verified: false, Transaction: tx}, nil
	}
	s.metrics.ObserveVerification("verified", time.Since(started))

	paidAt := time.Now().UTC()
	if tx.PaidAt != nil {
		paidAt = *tx.PaidAt
	}

	status := enums.OrderStatusCompleted
	paid := enums.PaymentStatusPaid
	unread := true
	update := orders.Update{
		Status:           &status,
		PaymentStatus:    &paid,
		PaymentReference: &reference,
		PaidAt:           &paidAt,
		Unread:           &unread,
	}
	if tx.Channel != "" {
		channel := tx.Channel
		update.PaymentChannel = &channel
	}

	order, err := s.store.Update(ctx, orderID, update)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle verified order")
	}

	if s.mailer != nil && s.mailer.Enabled() {
		// mail failures are logged inside the mailer and never block settlement
		s.mailer.NotifyOrderPaid(ctx, order)
	}

	if s.logger != nil {
		s.logger.Info(ctx, "payment verified and order completed")
	}
	return &Result{Verified: true, Transaction: tx}, nil
}
