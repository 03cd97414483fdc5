package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bookhaven/storefront-backend/pkg/enums"
	"github.com/bookhaven/storefront-backend/pkg/types"
)

// Order is one checkout attempt's persisted record. The total is frozen at
// creation; later price changes never touch placed orders.
type Order struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Items        types.OrderItems   `gorm:"column:items;type:jsonb;serializer:json" json:"items"`
	Total        string             `gorm:"column:total;not null" json:"total"`
	Name         string             `gorm:"column:name;not null" json:"name"`
	Email        string             `gorm:"column:email;not null" json:"email"`
	Location     *string            `gorm:"column:location" json:"location,omitempty"`
	Phone        *string            `gorm:"column:phone" json:"phone,omitempty"`
	DeliveryType enums.DeliveryType `gorm:"column:delivery_type;type:text;not null" json:"delivery_type"`
	TransportFee decimal.Decimal    `gorm:"column:transport_fee;type:numeric;not null" json:"transport_fee"`

	Status enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'" json:"status"`
	Unread bool              `gorm:"column:unread;not null;default:true" json:"unread"`

	PaymentReference *string              `gorm:"column:payment_reference" json:"payment_reference,omitempty"`
	PaymentStatus    *enums.PaymentStatus `gorm:"column:payment_status;type:text" json:"payment_status,omitempty"`
	PaymentChannel   *string              `gorm:"column:payment_channel" json:"payment_channel,omitempty"`
	PaymentNotes     *string              `gorm:"column:payment_notes" json:"payment_notes,omitempty"`
	PaidAt           *time.Time           `gorm:"column:paid_at" json:"paid_at,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	DeliverBy time.Time `gorm:"column:deliver_by;not null" json:"deliver_by"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// Paid derives the legacy boolean consumed by older dashboard clients.
func (o Order) Paid() bool {
	return o.PaymentStatus != nil && *o.PaymentStatus == enums.PaymentStatusPaid
}
