package mailer

import (
	"context"
	"testing"

	resend "github.com/resend/resend-go/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhaven/storefront-backend/pkg/config"
	"github.com/bookhaven/storefront-backend/pkg/db/models"
	"github.com/bookhaven/storefront-backend/pkg/types"
	"github.com/google/uuid"
)

type stubSender struct {
	sent []*resend.SendEmailRequest
	err  error
}

func (s *stubSender) SendWithContext(_ context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error) {
	s.sent = append(s.sent, params)
	return &resend.SendEmailResponse{Id: "email-id"}, s.err
}

func TestNotifyOrderPaidSendsAdminEmail(t *testing.T) {
	sender := &stubSender{}
	mailer := &Mailer{
		sender:     sender,
		fromEmail:  "shop@example.com",
		adminEmail: "admin@example.com",
	}

	order := &models.Order{
		ID:    uuid.New(),
		Name:  "Ada Obi",
		Email: "ada@example.com",
		Total: "₦8000.00",
		Items: types.OrderItems{{Title: "Purple Hibiscus", Price: "₦3500", Qty: 2}},
	}
	mailer.NotifyOrderPaid(context.Background(), order)

	require.Len(t, sender.sent, 1)
	sent := sender.sent[0]
	assert.Equal(t, []string{"admin@example.com"}, sent.To)
	assert.Contains(t, sent.Subject, order.ID.String())
	assert.Contains(t, sent.Html, "Purple Hibiscus")
	assert.Contains(t, sent.Html, "₦8000.00")
}

func TestDisabledMailerIsNoop(t *testing.T) {
	mailer := New(config.MailerConfig{}, nil)
	assert.False(t, mailer.Enabled())
	mailer.NotifyOrderPaid(context.Background(), &models.Order{ID: uuid.New()})
}

func TestValidateRequiresFromAddress(t *testing.T) {
	err := Validate(config.MailerConfig{APIKey: "re_123", AdminEmail: "admin@example.com"})
	require.Error(t, err)

	err = Validate(config.MailerConfig{})
	require.NoError(t, err)
}
