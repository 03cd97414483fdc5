package notifications

import (
	"context"

	"gorm.io/gorm"

	"github.com/bookhaven/storefront-backend/pkg/db/models"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
)

// AlertStore persists back-office alerts for operator follow-up.
type AlertStore interface {
	Create(ctx context.Context, alert *models.BackofficeAlert) error
	ListUnread(ctx context.Context, limit int) ([]models.BackofficeAlert, error)
	MarkRead(ctx context.Context, id string) error
}

type alertRepository struct {
	db *gorm.DB
}

// NewAlertRepository builds an alert store bound to the provided DB.
func NewAlertRepository(db *gorm.DB) AlertStore {
	return &alertRepository{db: db}
}

func (r *alertRepository) Create(ctx context.Context, alert *models.BackofficeAlert) error {
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create backoffice alert")
	}
	return nil
}

func (r *alertRepository) ListUnread(ctx context.Context, limit int) ([]models.BackofficeAlert, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var alerts []models.BackofficeAlert
	err := r.db.WithContext(ctx).
		Where("unread = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list backoffice alerts")
	}
	return alerts, nil
}

func (r *alertRepository) MarkRead(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&models.BackofficeAlert{}).
		Where("id = ?", id).
		Update("unread", false)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "mark alert read")
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "alert not found")
	}
	return nil
}
