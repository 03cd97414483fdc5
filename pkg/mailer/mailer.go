package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"

	resend "github.com/resend/resend-go/v3"

	"github.com/bookhaven/storefront-backend/pkg/config"
	"github.com/bookhaven/storefront-backend/pkg/db/models"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	"github.com/bookhaven/storefront-backend/pkg/logger"
)

// emailSender is the slice of the Resend client we use.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Mailer sends back-office notification emails. Without an API key it is a
// no-op so local setups run without credentials.
type Mailer struct {
	sender     emailSender
	fromEmail  string
	adminEmail string
	logger     *logger.Logger
}

// New builds a mailer from config. Returns a disabled mailer when the API
// key is missing.
func New(cfg config.MailerConfig, logg *logger.Logger) *Mailer {
	m := &Mailer{
		fromEmail:  cfg.FromEmail,
		adminEmail: cfg.AdminEmail,
		logger:     logg,
	}
	if cfg.Configured() {
		m.sender = resend.NewClient(cfg.APIKey).Emails
	}
	return m
}

// Enabled reports whether the mailer can actually deliver.
func (m *Mailer) Enabled() bool {
	return m != nil && m.sender != nil && m.adminEmail != ""
}

// NotifyOrderPaid emails the shop admin about a confirmed payment. Failures
// are logged and swallowed; mail must never break the payment flow.
func (m *Mailer) NotifyOrderPaid(ctx context.Context, order *models.Order) {
	if !m.Enabled() || order == nil {
		return
	}

	params := &resend.SendEmailRequest{
		From:    m.fromEmail,
		To:      []string{m.adminEmail},
		Subject: fmt.Sprintf("New paid order %s", order.ID),
		Html:    orderPaidHTML(order),
	}
	if _, err := m.sender.SendWithContext(ctx, params); err != nil {
		if m.logger != nil {
			ctx = m.logger.WithOrderID(ctx, order.ID.String())
			m.logger.Error(ctx, "failed to send order notification email", err)
		}
	}
}

func orderPaidHTML(order *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>New paid order</h2>")
	fmt.Fprintf(&b, "<p><strong>Order:</strong> %s</p>", html.EscapeString(order.ID.String()))
	fmt.Fprintf(&b, "<p><strong>Customer:</strong> %s (%s)</p>",
		html.EscapeString(order.Name), html.EscapeString(order.Email))
	fmt.Fprintf(&b, "<p><strong>Total:</strong> %s</p>", html.EscapeString(order.Total))
	fmt.Fprintf(&b, "<p><strong>Delivery:</strong> %s</p>", html.EscapeString(string(order.DeliveryType)))
	b.WriteString("<ul>")
	for _, item := range order.Items {
		fmt.Fprintf(&b, "<li>%s x%d (%s)</li>",
			html.EscapeString(item.Title), item.Qty, html.EscapeString(item.Price))
	}
	b.WriteString("</ul>")
	return b.String()
}

// Validate checks a partially-set mailer config. An API key without sender
// and admin addresses is a deployment mistake, not a disabled mailer.
func Validate(cfg config.MailerConfig) error {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.FromEmail == "" || cfg.AdminEmail == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "mailer from and admin addresses are required when API key is set")
	}
	return nil
}
