package orders

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhaven/storefront-backend/pkg/db/models"
	"github.com/bookhaven/storefront-backend/pkg/enums"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
)

type fakeDocAPI struct {
	rows    map[string]*models.Order
	inserts int
	patches []map[string]any
}

func newFakeDocAPI() *fakeDocAPI {
	return &fakeDocAPI{rows: map[string]*models.Order{}}
}

func (f *fakeDocAPI) Insert(_ context.Context, _ string, record any, out any) error {
	order, ok := record.(*models.Order)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unexpected record type")
	}
	f.inserts++
	stored := *order
	f.rows[order.ID.String()] = &stored
	return copyRow(&stored, out)
}

func (f *fakeDocAPI) UpdateByID(_ context.Context, _ string, id string, patch any, out any) error {
	row, ok := f.rows[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "docstore row not found")
	}
	values, ok := patch.(map[string]any)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeValidation, "unexpected patch type")
	}
	f.patches = append(f.patches, values)
	if status, ok := values["status"].(enums.OrderStatus); ok {
		row.Status = status
	}
	if notes, ok := values["payment_notes"].(string); ok {
		row.PaymentNotes = &notes
	}
	return copyRow(row, out)
}

func (f *fakeDocAPI) GetByID(_ context.Context, _ string, id string, out any) error {
	row, ok := f.rows[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "docstore row not found")
	}
	return copyRow(row, out)
}

func copyRow(row *models.Order, out any) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func TestHostedStoreCreateAssignsID(t *testing.T) {
	api := newFakeDocAPI()
	store, err := NewHostedStore(api, "orders")
	require.NoError(t, err)

	order := testOrder()
	order.ID = uuid.Nil
	created, err := store.Create(context.Background(), order)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, 1, api.inserts)
}

func TestHostedStoreUpdateEnforcesLifecycle(t *testing.T) {
	api := newFakeDocAPI()
	store, err := NewHostedStore(api, "orders")
	require.NoError(t, err)
	ctx := context.Background()

	order := testOrder()
	order.Status = enums.OrderStatusCompleted
	_, err = store.Create(ctx, order)
	require.NoError(t, err)

	status := enums.OrderStatusPending
	_, err = store.Update(ctx, order.ID, Update{Status: &status})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
	assert.Empty(t, api.patches)
}

func TestHostedStoreUpdatePatchesRow(t *testing.T) {
	api := newFakeDocAPI()
	store, err := NewHostedStore(api, "orders")
	require.NoError(t, err)
	ctx := context.Background()

	order := testOrder()
	_, err = store.Create(ctx, order)
	require.NoError(t, err)

	status := enums.OrderStatusPendingVerification
	notes := "verifier timed out"
	updated, err := store.Update(ctx, order.ID, Update{Status: &status, PaymentNotes: &notes})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingVerification, updated.Status)
	require.NotNil(t, updated.PaymentNotes)
	assert.Equal(t, notes, *updated.PaymentNotes)

	require.Len(t, api.patches, 1)
	assert.Contains(t, api.patches[0], "updated_at")
}

func TestHostedStoreRequiresClient(t *testing.T) {
	_, err := NewHostedStore(nil, "orders")
	require.Error(t, err)
}
