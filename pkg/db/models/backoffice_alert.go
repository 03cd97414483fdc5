package models

import (
	"time"

	"github.com/google/uuid"
)

// BackofficeAlert is a triage row for payments that need manual follow-up
// (gateway confirmed success but the record update or verification degraded).
type BackofficeAlert struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID   *uuid.UUID `gorm:"column:order_id;type:uuid" json:"order_id,omitempty"`
	Severity  string     `gorm:"column:severity;not null" json:"severity"`
	Message   string     `gorm:"column:message;not null" json:"message"`
	Unread    bool       `gorm:"column:unread;not null;default:true" json:"unread"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
