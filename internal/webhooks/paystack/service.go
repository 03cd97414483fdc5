package paystackwebhook

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/bookhaven/storefront-backend/internal/verification"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	"github.com/bookhaven/storefront-backend/pkg/logger"
)

// EventChargeSuccess is the only event type this storefront consumes. It
// settles orders whose client-side completion never arrived (tab closed
// between charge and callback).
const EventChargeSuccess = "charge.success"

// Event is the envelope Paystack posts to the webhook URL.
type Event struct {
	Type string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

type chargeData struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Metadata  struct {
		OrderID string `json:"orderId"`
	} `json:"metadata"`
}

type Service struct {
	verifier verification.Service
	guard    *IdempotencyGuard
	logger   *logger.Logger
}

func NewService(verifier verification.Service, guard *IdempotencyGuard, logg *logger.Logger) (*Service, error) {
	if verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "verification service required")
	}
	if guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "idempotency guard required")
	}
	return &Service{verifier: verifier, guard: guard, logger: logg}, nil
}

// HandleEvent processes one delivery. Unknown event types are acknowledged
// without action; duplicate charge events are dropped.
func (s *Service) HandleEvent(ctx context.Context, event *Event) error {
	if event == nil || len(event.Data) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "event data required")
	}
	if event.Type != EventChargeSuccess {
		return nil
	}

	var charge chargeData
	if err := json.Unmarshal(event.Data, &charge); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge event")
	}
	if charge.Reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge reference missing")
	}
	orderID, err := uuid.Parse(charge.Metadata.OrderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "charge metadata missing order id")
	}

	if s.logger != nil {
		ctx = s.logger.WithReference(s.logger.WithOrderID(ctx, orderID.String()), charge.Reference)
	}

	seen, err := s.guard.CheckAndMark(ctx, charge.Reference)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "webhook idempotency check")
	}
	if seen {
		if s.logger != nil {
			s.logger.Info(ctx, "duplicate charge event dropped")
		}
		return nil
	}

	if _, err := s.verifier.Confirm(ctx, charge.Reference, orderID); err != nil {
		// release the mark so Paystack's retry gets another shot
		if delErr := s.guard.Delete(ctx, charge.Reference); delErr != nil && s.logger != nil {
			s.logger.Warn(s.logger.WithField(ctx, "error", delErr.Error()), "failed to release idempotency mark")
		}
		return err
	}

	if s.logger != nil {
		s.logger.Info(ctx, "charge event settled order")
	}
	return nil
}
