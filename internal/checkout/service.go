package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookhaven/storefront-backend/internal/cart"
	"github.com/bookhaven/storefront-backend/internal/notifications"
	"github.com/bookhaven/storefront-backend/internal/orders"
	"github.com/bookhaven/storefront-backend/pkg/config"
	"github.com/bookhaven/storefront-backend/pkg/db/models"
	"github.com/bookhaven/storefront-backend/pkg/enums"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	"github.com/bookhaven/storefront-backend/pkg/logger"
	"github.com/bookhaven/storefront-backend/pkg/metrics"
	"github.com/bookhaven/storefront-backend/pkg/money"
	"github.com/bookhaven/storefront-backend/pkg/paystack"
	"github.com/bookhaven/storefront-backend/pkg/redis"
	"github.com/bookhaven/storefront-backend/pkg/verify"
)

const currencySymbol = "₦"

// widgetGateway is the slice of the payment widget the flow needs.
type widgetGateway interface {
	Load(ctx context.Context) error
	Open(params paystack.Params) (*paystack.Session, error)
	Session(reference string) (*paystack.Session, bool)
	Release(reference string)
}

// verifier is the optional post-payment verification endpoint.
type verifier interface {
	Enabled() bool
	Verify(ctx context.Context, reference, orderID string) (verify.Result, error)
}

// Config carries the knobs the flow needs at runtime.
type Config struct {
	Currency       string
	PublicKey      string
	TransportFee   decimal.Decimal
	DeliverWithin  time.Duration
	AttemptTTL     time.Duration
	SubmitGuardTTL time.Duration
}

// NewConfig derives the flow configuration from the loaded app config.
func NewConfig(cfg *config.Config) Config {
	return Config{
		Currency:       cfg.Checkout.Currency,
		PublicKey:      cfg.Paystack.PublicKey,
		TransportFee:   money.ParsePrice(cfg.Checkout.TransportFee),
		DeliverWithin:  cfg.Checkout.DeliverWithin,
		AttemptTTL:     cfg.Checkout.AttemptTTL,
		SubmitGuardTTL: cfg.Checkout.SubmitGuardTTL,
	}
}

// BeginInput is the order form a shopper submits.
type BeginInput struct {
	CartID       string
	Name         string
	Email        string
	Location     string
	Phone        string
	DeliveryType enums.DeliveryType
}

// BeginResult hands back everything the client needs to open the payment
// widget for the freshly-created pending order.
type BeginResult struct {
	Order     *models.Order
	Reference string
	Widget    paystack.Params
}

// CompleteResult describes how a gateway-confirmed payment settled.
type CompleteResult struct {
	OrderID     uuid.UUID
	Order       *models.Order
	Outcome     enums.CheckoutOutcome
	Notices     []notifications.Notice
	CartCleared bool
}

// AbandonResult reports a closed payment window.
type AbandonResult struct {
	OrderID uuid.UUID
	Notices []notifications.Notice
}

// Service drives the order/payment reconciliation flow. The one rule it is
// built around: once the gateway confirms a charge, nothing downstream may
// surface that payment as failed. Storage and verification hiccups degrade
// to "we'll process it manually" warnings.
type Service interface {
	Begin(ctx context.Context, input BeginInput) (*BeginResult, error)
	CompletePayment(ctx context.Context, reference string) (*CompleteResult, error)
	AbandonPayment(ctx context.Context, reference string) (*AbandonResult, error)
}

type service struct {
	cfg      Config
	carts    cart.Service
	store    orders.Store
	widget   widgetGateway
	verifier verifier
	kv       redis.KV
	notices  notifications.Publisher
	metrics  *metrics.CheckoutMetrics
	logger   *logger.Logger
}

// NewService wires the reconciliation flow. The verifier may be nil or
// unconfigured; the flow then trusts the widget callback directly.
func NewService(
	cfg Config,
	carts cart.Service,
	store orders.Store,
	widget widgetGateway,
	vf verifier,
	kv redis.KV,
	notices notifications.Publisher,
	m *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (Service, error) {
	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "cart service required")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders store required")
	}
	if widget == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment widget required")
	}
	if kv == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "kv store required")
	}
	if notices == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notice publisher required")
	}
	if cfg.PublicKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment public key required")
	}
	return &service{
		cfg:      cfg,
		carts:    carts,
		store:    store,
		widget:   widget,
		verifier: vf,
		kv:       kv,
		notices:  notices,
		metrics:  m,
		logger:   logg,
	}, nil
}

// attempt is the redis-held record linking a payment reference back to the
// order and cart it belongs to.
type attempt struct {
	OrderID string `json:"order_id"`
	CartID  string `json:"cart_id"`
	Email   string `json:"email"`
	Total   string `json:"total"`
}

// Begin validates the order form, snapshots the cart into a pending order
// and opens a payment session for it.
func (s *service) Begin(ctx context.Context, input BeginInput) (*BeginResult, error) {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "please provide name and email")
	}
	if !input.DeliveryType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid delivery type %q", input.DeliveryType))
	}

	if s.logger != nil {
		ctx = s.logger.WithCartID(ctx, input.CartID)
	}

	items, err := s.carts.Items(ctx, input.CartID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	acquired, err := s.kv.SetNX(ctx, redis.SubmitGuardKey(input.CartID), "1", s.cfg.SubmitGuardTTL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire submit guard")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress for this cart")
	}

	subtotal := cart.SubtotalOf(items)
	fee := decimal.Zero
	if input.DeliveryType == enums.DeliveryTypePhysical {
		fee = s.cfg.TransportFee
	}
	total := subtotal.Add(fee)

	now := time.Now().UTC()
	order := &models.Order{
		Items:        items,
		Total:        money.Format(currencySymbol, total),
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.TrimSpace(input.Email),
		Location:     optional(input.Location),
		Phone:        optional(input.Phone),
		DeliveryType: input.DeliveryType,
		TransportFee: fee,
		Status:       enums.OrderStatusPending,
		Unread:       true,
		CreatedAt:    now,
		DeliverBy:    now.Add(s.cfg.DeliverWithin),
	}

	created, err := s.store.Create(ctx, order)
	if err != nil {
		s.releaseGuard(ctx, input.CartID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pending order")
	}
	if s.logger != nil {
		ctx = s.logger.WithOrderID(ctx, created.ID.String())
	}

	if err := s.widget.Load(ctx); err != nil {
		s.releaseGuard(ctx, input.CartID)
		return nil, err
	}

	reference := paystack.NewReference(created.ID.String(), now)
	record, err := json.Marshal(attempt{
		OrderID: created.ID.String(),
		CartID:  input.CartID,
		Email:   created.Email,
		Total:   created.Total,
	})
	if err != nil {
		s.releaseGuard(ctx, input.CartID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode payment attempt")
	}
	if err := s.kv.Set(ctx, redis.AttemptKey(reference), record, s.cfg.AttemptTTL); err != nil {
		s.releaseGuard(ctx, input.CartID)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "register payment attempt")
	}

	params := paystack.Params{
		Key:       s.cfg.PublicKey,
		Email:     created.Email,
		Amount:    money.MinorUnits(total),
		Currency:  s.cfg.Currency,
		Reference: reference,
		OrderID:   created.ID.String(),
	}
	if _, err := s.widget.Open(params); err != nil {
		s.kv.Del(ctx, redis.AttemptKey(reference))
		s.releaseGuard(ctx, input.CartID)
		return nil, err
	}

	s.metrics.IncAttempt()
	if s.logger != nil {
		s.logger.Info(s.logger.WithReference(ctx, reference), "payment session opened for pending order")
	}

	return &BeginResult{Order: created, Reference: reference, Widget: params}, nil
}

// CompletePayment settles a charge the gateway reported successful. It never
// returns a payment failure for reasons other than an explicit verifier
// rejection; everything else degrades to warnings.
func (s *service) CompletePayment(ctx context.Context, reference string) (*CompleteResult, error) {
	att, err := s.loadAttempt(ctx, reference)
	if err != nil {
		return nil, err
	}
	orderID, err := uuid.Parse(att.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt payment attempt record")
	}

	if s.logger != nil {
		ctx = s.logger.WithReference(s.logger.WithOrderID(ctx, orderID.String()), reference)
	}
	if session, ok := s.widget.Session(reference); ok {
		session.Complete(reference)
	}
	defer s.cleanupAttempt(ctx, reference, att.CartID)

	var result *CompleteResult
	if s.verifier != nil && s.verifier.Enabled() {
		result, err = s.settleVerified(ctx, reference, orderID, att)
	} else {
		result, err = s.settleTrusted(ctx, reference, orderID, att)
	}
	if err != nil {
		return nil, err
	}

	s.metrics.IncOutcome(string(result.Outcome))
	return result, nil
}

// settleTrusted handles the no-verifier mode: the widget callback is the
// source of truth and the order is completed directly.
func (s *service) settleTrusted(ctx context.Context, reference string, orderID uuid.UUID, att attempt) (*CompleteResult, error) {
	now := time.Now().UTC()
	status := enums.OrderStatusCompleted
	paid := enums.PaymentStatusPaid
	update := orders.Update{
		Status:           &status,
		PaymentStatus:    &paid,
		PaymentReference: &reference,
		PaidAt:           &now,
	}

	order, err := s.store.Update(ctx, orderID, update)
	if err != nil {
		// the customer paid; a storage failure must read as success with a
		// follow-up, never as a failed payment
		notice := s.notices.Publish(ctx, notifications.New(
			notifications.SeverityWarning,
			fmt.Sprintf("Payment successful but order update failed. Contact support with Order ID: %s", orderID),
		).WithOrder(orderID))
		s.clearCart(ctx, att.CartID)
		if s.logger != nil {
			s.logger.Error(ctx, "paid order could not be marked completed", err)
		}
		return &CompleteResult{
			OrderID:     orderID,
			Outcome:     enums.OutcomeRecordUpdateFailed,
			Notices:     []notifications.Notice{notice},
			CartCleared: true,
		}, nil
	}

	notice := s.notices.Publish(ctx, notifications.New(
		notifications.SeveritySuccess,
		"Payment successful — order completed!",
	).WithOrder(orderID))
	s.clearCart(ctx, att.CartID)
	return &CompleteResult{
		OrderID:     orderID,
		Order:       order,
		Outcome:     enums.OutcomeCompletedUnverified,
		Notices:     []notifications.Notice{notice},
		CartCleared: true,
	}, nil
}

// settleVerified consults the verification endpoint before completing the
// order. Only an explicit verified:false is a hard failure.
func (s *service) settleVerified(ctx context.Context, reference string, orderID uuid.UUID, att attempt) (*CompleteResult, error) {
	verdict, verifyErr := s.verifier.Verify(ctx, reference, orderID.String())
	if verifyErr != nil {
		return s.settleIndeterminate(ctx, reference, orderID, att, verifyErr)
	}

	if !verdict.Verified {
		// the verifier looked at the charge and said no: surface it, keep
		// the cart, leave the order pending for investigation
		s.notices.Publish(ctx, notifications.New(
			notifications.SeverityError,
			"Payment verification failed",
		).WithOrder(orderID))
		s.metrics.IncOutcome(string(enums.OutcomeVerificationRejected))
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment verification failed").
			WithDetails(map[string]string{"order_id": orderID.String(), "reference": reference})
	}

	status := enums.OrderStatusCompleted
	paid := enums.PaymentStatusPaid
	order, err := s.store.Update(ctx, orderID, orders.Update{
		Status:           &status,
		PaymentStatus:    &paid,
		PaymentReference: &reference,
	})
	if err != nil {
		notice := s.notices.Publish(ctx, notifications.New(
			notifications.SeverityWarning,
			fmt.Sprintf("Payment verified but order update failed. Contact support with Order ID: %s", orderID),
		).WithOrder(orderID))
		s.clearCart(ctx, att.CartID)
		if s.logger != nil {
			s.logger.Error(ctx, "verified order could not be marked completed", err)
		}
		return &CompleteResult{
			OrderID:     orderID,
			Outcome:     enums.OutcomeRecordUpdateFailed,
			Notices:     []notifications.Notice{notice},
			CartCleared: true,
		}, nil
	}

	notice := s.notices.Publish(ctx, notifications.New(
		notifications.SeveritySuccess,
		"Payment verified — order completed",
	).WithOrder(orderID))
	s.clearCart(ctx, att.CartID)
	return &CompleteResult{
		OrderID:     orderID,
		Order:       order,
		Outcome:     enums.OutcomeCompleted,
		Notices:     []notifications.Notice{notice},
		CartCleared: true,
	}, nil
}

// settleIndeterminate parks a confirmed payment whose verification produced
// no verdict. The money moved, so the shopper still sees a success-shaped
// message and the order waits for manual processing.
func (s *service) settleIndeterminate(ctx context.Context, reference string, orderID uuid.UUID, att attempt, cause error) (*CompleteResult, error) {
	status := enums.OrderStatusPendingVerification
	notes := fmt.Sprintf("Verification error: %v", cause)
	_, err := s.store.Update(ctx, orderID, orders.Update{
		Status:           &status,
		PaymentReference: &reference,
		PaymentNotes:     &notes,
	})
	if err != nil && s.logger != nil {
		s.logger.Error(ctx, "could not park order as pending verification", err)
	}

	notice := s.notices.Publish(ctx, notifications.New(
		notifications.SeverityWarning,
		fmt.Sprintf("Payment received but verification failed. We'll process your order manually. Order ID: %s", orderID),
	).WithOrder(orderID))
	s.clearCart(ctx, att.CartID)
	return &CompleteResult{
		OrderID:     orderID,
		Outcome:     enums.OutcomePendingVerification,
		Notices:     []notifications.Notice{notice},
		CartCleared: true,
	}, nil
}

// AbandonPayment records a closed payment window. The pending order stays
// untouched and the cart survives, so the shopper can try again.
func (s *service) AbandonPayment(ctx context.Context, reference string) (*AbandonResult, error) {
	att, err := s.loadAttempt(ctx, reference)
	if err != nil {
		return nil, err
	}
	orderID, err := uuid.Parse(att.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt payment attempt record")
	}

	if s.logger != nil {
		ctx = s.logger.WithReference(s.logger.WithOrderID(ctx, orderID.String()), reference)
	}
	if session, ok := s.widget.Session(reference); ok {
		session.Close()
	}
	s.cleanupAttempt(ctx, reference, att.CartID)

	notice := s.notices.Publish(ctx, notifications.New(
		notifications.SeverityInfo,
		"Payment window closed",
	).WithDuration(2500*time.Millisecond).WithOrder(orderID))
	s.metrics.IncOutcome(string(enums.OutcomeAbandoned))
	return &AbandonResult{OrderID: orderID, Notices: []notifications.Notice{notice}}, nil
}

func (s *service) loadAttempt(ctx context.Context, reference string) (attempt, error) {
	if strings.TrimSpace(reference) == "" {
		return attempt{}, pkgerrors.New(pkgerrors.CodeValidation, "payment reference is required")
	}
	raw, err := s.kv.Get(ctx, redis.AttemptKey(reference))
	if redis.IsNil(err) {
		return attempt{}, pkgerrors.New(pkgerrors.CodeNotFound, "unknown or expired payment reference")
	}
	if err != nil {
		return attempt{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment attempt")
	}
	var att attempt
	if err := json.Unmarshal([]byte(raw), &att); err != nil {
		return attempt{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode payment attempt")
	}
	return att, nil
}

func (s *service) cleanupAttempt(ctx context.Context, reference, cartID string) {
	s.widget.Release(reference)
	if err := s.kv.Del(ctx, redis.AttemptKey(reference), redis.SubmitGuardKey(cartID)); err != nil && s.logger != nil {
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "failed to clean up payment attempt keys")
	}
}

func (s *service) releaseGuard(ctx context.Context, cartID string) {
	if err := s.kv.Del(ctx, redis.SubmitGuardKey(cartID)); err != nil && s.logger != nil {
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "failed to release submit guard")
	}
}

func (s *service) clearCart(ctx context.Context, cartID string) {
	if cartID == "" {
		return
	}
	if err := s.carts.Clear(ctx, cartID); err != nil && s.logger != nil {
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "failed to clear cart after payment")
	}
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
