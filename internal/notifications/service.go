package notifications

import (
	"context"

	"github.com/google/uuid"

	"github.com/bookhaven/storefront-backend/pkg/db/models"
	"github.com/bookhaven/storefront-backend/pkg/logger"
)

// Publisher records shopper notices. Every notice is logged; warnings and
// errors tied to an order also land in the back-office alert queue so an
// operator follows up on degraded payments.
type Publisher interface {
	Publish(ctx context.Context, notice Notice) Notice
}

type service struct {
	alerts AlertStore
	logger *logger.Logger
}

// NewService wires the notice publisher. The alert store may be nil when no
// relational database is attached; notices are then log-only.
func NewService(alerts AlertStore, logg *logger.Logger) Publisher {
	return &service{alerts: alerts, logger: logg}
}

func (s *service) Publish(ctx context.Context, notice Notice) Notice {
	if notice.Duration == 0 {
		notice.Duration = defaultDurations[notice.Severity]
	}

	s.log(ctx, notice)

	if s.alerts != nil && notice.needsFollowUp() {
		alert := &models.BackofficeAlert{
			ID:       uuid.New(),
			OrderID:  notice.OrderID,
			Severity: string(notice.Severity),
			Message:  notice.Message,
			Unread:   true,
		}
		if err := s.alerts.Create(ctx, alert); err != nil && s.logger != nil {
			// alert persistence must never escalate a soft warning
			s.logger.Error(ctx, "failed to persist backoffice alert", err)
		}
	}
	return notice
}

func (n Notice) needsFollowUp() bool {
	return n.OrderID != nil && (n.Severity == SeverityWarning || n.Severity == SeverityError)
}

func (s *service) log(ctx context.Context, notice Notice) {
	if s.logger == nil {
		return
	}
	if notice.OrderID != nil {
		ctx = s.logger.WithOrderID(ctx, notice.OrderID.String())
	}
	ctx = s.logger.WithField(ctx, "severity", string(notice.Severity))
	switch notice.Severity {
	case SeverityWarning, SeverityError:
		s.logger.Warn(ctx, notice.Message)
	default:
		s.logger.Info(ctx, notice.Message)
	}
}
