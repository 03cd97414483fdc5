package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/bookhaven/storefront-backend/pkg/db/models"
	"github.com/bookhaven/storefront-backend/pkg/enums"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders store bound to the provided DB.
func NewRepository(db *gorm.DB) Store {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.Status == "" {
		order.Status = enums.OrderStatusPending
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order")
	}
	return &order, nil
}

// Update applies the patch after checking the status transition is allowed.
// Status never moves backwards once a payment lands.
func (r *repository) Update(ctx context.Context, id uuid.UUID, update Update) (*models.Order, error) {
	if update.Empty() {
		return r.FindByID(ctx, id)
	}

	current, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Status != nil {
		if !update.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", *update.Status))
		}
		if !current.Status.CanTransition(*update.Status) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("order status cannot move from %s to %s", current.Status, *update.Status))
		}
	}

	values := updateValues(update)
	if len(values) > 0 {
		err = r.db.WithContext(ctx).
			Model(&models.Order{}).
			Where("id = ?", id).
			Updates(values).Error
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
	}
	return r.FindByID(ctx, id)
}

func updateValues(update Update) map[string]any {
	values := map[string]any{}
	if update.Status != nil {
		values["status"] = *update.Status
	}
	if update.PaymentReference != nil {
		values["payment_reference"] = *update.PaymentReference
	}
	if update.PaymentStatus != nil {
		values["payment_status"] = *update.PaymentStatus
	}
	if update.PaymentChannel != nil {
		values["payment_channel"] = *update.PaymentChannel
	}
	if update.PaymentNotes != nil {
		values["payment_notes"] = *update.PaymentNotes
	}
	if update.PaidAt != nil {
		values["paid_at"] = *update.PaidAt
	}
	if update.Unread != nil {
		values["unread"] = *update.Unread
	}
	return values
}
