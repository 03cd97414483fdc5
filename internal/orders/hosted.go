package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookhaven/storefront-backend/pkg/db/models"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
)

// docAPI is the slice of the hosted document client this store needs.
type docAPI interface {
	Insert(ctx context.Context, table string, record any, out any) error
	UpdateByID(ctx context.Context, table, id string, patch any, out any) error
	GetByID(ctx context.Context, table, id string, out any) error
}

type hostedStore struct {
	client docAPI
	table  string
}

// NewHostedStore builds an orders store backed by the hosted document API.
func NewHostedStore(client docAPI, table string) (Store, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "docstore client is required")
	}
	if table == "" {
		table = "orders"
	}
	return &hostedStore{client: client, table: table}, nil
}

func (s *hostedStore) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now

	var created models.Order
	if err := s.client.Insert(ctx, s.table, order, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *hostedStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := s.client.GetByID(ctx, s.table, id.String(), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Update enforces the monotonic status lifecycle on the client side; the
// hosted API itself accepts any patch.
func (s *hostedStore) Update(ctx context.Context, id uuid.UUID, update Update) (*models.Order, error) {
	if update.Empty() {
		return s.FindByID(ctx, id)
	}

	current, err := s.FindByID(ctx, id)
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

	patch := hostedPatch(update)
	patch["updated_at"] = time.Now().UTC()

	var updated models.Order
	if err := s.client.UpdateByID(ctx, s.table, id.String(), patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

func hostedPatch(update Update) map[string]any {
	patch := map[string]any{}
	if update.Status != nil {
		patch["status"] = *update.Status
	}
	if update.PaymentReference != nil {
		patch["payment_reference"] = *update.PaymentReference
	}
	if update.PaymentStatus != nil {
		patch["payment_status"] = *update.PaymentStatus
	}
	if update.PaymentChannel != nil {
		patch["payment_channel"] = *update.PaymentChannel
	}
	if update.PaymentNotes != nil {
		patch["payment_notes"] = *update.PaymentNotes
	}
	if update.PaidAt != nil {
		patch["paid_at"] = *update.PaidAt
	}
	if update.Unread != nil {
		patch["unread"] = *update.Unread
	}
	return patch
}
