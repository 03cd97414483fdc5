package orders

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bookhaven/storefront-backend/pkg/db/models"
	"github.com/bookhaven/storefront-backend/pkg/enums"
)

// Store persists orders. Two drivers exist: a gorm repository against
// Postgres and a hosted document-API client for deployments without a
// managed database.
type Store interface {
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	Update(ctx context.Context, id uuid.UUID, update Update) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
}

// Update carries the mutable fields of an order. Nil fields are untouched.
// The frozen total and line items are deliberately absent.
type Update struct {
	Status           *enums.OrderStatus
	PaymentReference *string
	PaymentStatus    *enums.PaymentStatus
	PaymentChannel   *string
	PaymentNotes     *string
	PaidAt           *time.Time
	Unread           *bool
}

// Empty reports whether the update would change nothing.
func (u Update) Empty() bool {
	return u.Status == nil &&
		u.PaymentReference == nil &&
		u.PaymentStatus == nil &&
		u.PaymentChannel == nil &&
		u.PaymentNotes == nil &&
		u.PaidAt == nil &&
		u.Unread == nil
}
