package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookhaven/storefront-backend/internal/cart"
	"github.com/bookhaven/storefront-backend/internal/notifications"
	"github.com/bookhaven/storefront-backend/internal/orders"
	"github.com/bookhaven/storefront-backend/pkg/db/models"
	"github.com/bookhaven/storefront-backend/pkg/enums"
	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	"github.com/bookhaven/storefront-backend/pkg/paystack"
	"github.com/bookhaven/storefront-backend/pkg/types"
	"github.com/bookhaven/storefront-backend/pkg/verify"
)

type fakeKV struct {
	data map[string]string
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string]string{}} }

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	switch v := value.(type) {
	case string:
		f.data[key] = v
	case []byte:
		f.data[key] = string(v)
	}
	return nil
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	value, ok := f.data[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakeKV) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	return true, f.Set(ctx, key, value, ttl)
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

type memStore struct {
	rows      map[uuid.UUID]*models.Order
	createErr error
	updateErr error
	updates   []orders.Update
}

func newMemStore() *memStore { return &memStore{rows: map[uuid.UUID]*models.Order{}} }

func (m *memStore) Create(_ context.Context, order *models.Order) (*models.Order, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	stored := *order
	m.rows[order.ID] = &stored
	return &stored, nil
}

func (m *memStore) Update(_ context.Context, id uuid.UUID, update orders.Update) (*models.Order, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	row, ok := m.rows[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	m.updates = append(m.updates, update)
	if update.Status != nil {
		row.Status = *update.Status
	}
	if update.PaymentStatus != nil {
		row.PaymentStatus = update.PaymentStatus
	}
	if update.PaymentReference != nil {
		row.PaymentReference = update.PaymentReference
	}
	if update.PaymentNotes != nil {
		row.PaymentNotes = update.PaymentNotes
	}
	if update.PaidAt != nil {
		row.PaidAt = update.PaidAt
	}
	return row, nil
}

func (m *memStore) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return row, nil
}

type stubWidget struct {
	loadErr   error
	loadCalls int
	opened    []paystack.Params
	released  []string
}

func (w *stubWidget) Load(context.Context) error {
	w.loadCalls++
	return w.loadErr
}

func (w *stubWidget) Open(params paystack.Params) (*paystack.Session, error) {
	w.opened = append(w.opened, params)
	return nil, nil
}

func (w *stubWidget) Session(string) (*paystack.Session, bool) { return nil, false }

func (w *stubWidget) Release(reference string) {
	w.released = append(w.released, reference)
}

type stubVerifier struct {
	enabled bool
	result  verify.Result
	err     error
	calls   int
}

func (v *stubVerifier) Enabled() bool { return v.enabled }

func (v *stubVerifier) Verify(context.Context, string, string) (verify.Result, error) {
	v.calls++
	return v.result, v.err
}

type fixture struct {
	svc    Service
	carts  cart.Service
	store  *memStore
	widget *stubWidget
	kv     *fakeKV
}

func testConfig() Config {
	return Config{
		Currency:       "NGN",
		PublicKey:      "pk_test_123",
		TransportFee:   decimal.NewFromInt(1000),
		DeliverWithin:  48 * time.Hour,
		AttemptTTL:     30 * time.Minute,
		SubmitGuardTTL: 2 * time.Minute,
	}
}

func newFixture(t *testing.T, vf verifier) *fixture {
	t.Helper()
	kv := newFakeKV()
	repo, err := cart.NewRepository(kv)
	require.NoError(t, err)
	carts, err := cart.NewService(repo)
	require.NoError(t, err)

	store := newMemStore()
	widget := &stubWidget{}
	svc, err := NewService(testConfig(), carts, store, widget, vf, kv, notifications.NewService(nil, nil), nil, nil)
	require.NoError(t, err)
	return &fixture{svc: svc, carts: carts, store: store, widget: widget, kv: kv}
}

const cartID = "visitor-1"

func seedCart(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	_, err := f.carts.Add(ctx, cartID, types.OrderItem{Title: "Things Fall Apart", Price: "₦3500"})
	require.NoError(t, err)
	_, err = f.carts.Increase(ctx, cartID, "Things Fall Apart")
	require.NoError(t, err)
}

func begin(t *testing.T, f *fixture, delivery enums.DeliveryType) *BeginResult {
	t.Helper()
	result, err := f.svc.Begin(context.Background(), BeginInput{
		CartID:       cartID,
		Name:         "Ada Obi",
		Email:        "ada@example.com",
		DeliveryType: delivery,
	})
	require.NoError(t, err)
	return result
}

func TestBeginRequiresNameAndEmail(t *testing.T) {
	f := newFixture(t, nil)
	seedCart(t, f)

	_, err := f.svc.Begin(context.Background(), BeginInput{CartID: cartID, DeliveryType: enums.DeliveryTypePhysical})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
	assert.Empty(t, f.store.rows)
}

func TestBeginRejectsEmptyCart(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Begin(context.Background(), BeginInput{
		CartID: cartID, Name: "Ada", Email: "ada@example.com", DeliveryType: enums.DeliveryTypePDF,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestBeginCreatesPendingOrderWithFrozenTotal(t *testing.T) {
	f := newFixture(t, nil)
	seedCart(t, f)

	result := begin(t, f, enums.DeliveryTypePhysical)
	order := result.Order

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.True(t, order.Unread)
	// 2 x 3500 + 1000 transport
	assert.Equal(t, "₦8000.00", order.Total)
	assert.True(t, order.TransportFee.Equal(decimal.NewFromInt(1000)))
	assert.WithinDuration(t, order.CreatedAt.Add(48*time.Hour), order.DeliverBy, time.Second)

	assert.True(t, strings.HasPrefix(result.Reference, "order_"+order.ID.String()+"_"))
	assert.Equal(t, int64(800000), result.Widget.Amount)
	assert.Equal(t, "NGN", result.Widget.Currency)
	assert.Equal(t, "pk_test_123", result.Widget.Key)
	require.Len(t, f.widget.opened, 1)
	assert.Equal(t, 1, f.widget.loadCalls)
}

func TestBeginDigitalDeliveryHasNoTransportFee(t *testing.T) {
	f := newFixture(t, nil)
	seedCart(t, f)

	result := begin(t, f, enums.DeliveryTypePDF)
	assert.Equal(t, "₦7000.00", result.Order.Total)
	assert.True(t, result.Order.TransportFee.IsZero())
}

func TestBeginRejectsDoubleSubmit(t *testing.T) {
	f := newFixture(t, nil)
	seedCart(t, f)

	begin(t, f, enums.DeliveryTypePhysical)

	_, err := f.svc.Begin(context.Background(), BeginInput{
		CartID: cartID, Name: "Ada", Email: "ada@example.com", DeliveryType: enums.DeliveryTypePhysical,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
	assert.Len(t, f.store.rows, 1)
}

func TestBeginReleasesGuardWhenCreateFails(t *testing.T) {
	f := newFixture(t, nil)
	seedCart(t, f)
	f.store.createErr = errors.New("db down")

	_, err := f.svc.Begin(context.Background(), BeginInput{
		CartID: cartID, Name: "Ada", Email: "ada@example.com", DeliveryType: enums.DeliveryTypePhysical,
	})
	require.Error(t, err)

	// the guard must not stay stuck after a failed attempt
	f.store.createErr = nil
	begin(t, f, enums.DeliveryTypePhysical)
}

func TestBeginWidgetLoadFailureAborts(t *testing.T) {
	f := newFixture(t, nil)
	seedCart(t, f)
	f.widget.loadErr = pkgerrors.New(pkgerrors.CodeDependency, "script unreachable")

	_, err := f.svc.Begin(context.Background(), BeginInput{
		CartID: cartID, Name: "Ada", Email: "ada@example.com", DeliveryType: enums.DeliveryTypePhysical,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.As(err).Code())
	assert.Empty(t, f.widget.opened)
}

func TestCompleteTrustedModeCompletesOrder(t *testing.T) {
	f := newFixture(t, nil)
	seedCart(t, f)
	ref := begin(t, f, enums.DeliveryTypePhysical).Reference

	result, err := f.svc.CompletePayment(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeCompletedUnverified, result.Outcome)
	assert.True(t, result.CartCleared)
	require.Len(t, result.Notices, 1)
	assert.Equal(t, notifications.SeveritySuccess, result.Notices[0].Severity)

	order := result.Order
	assert.Equal(t, enums.OrderStatusCompleted, order.Status)
	assert.True(t, order.Paid())
	require.NotNil(t, order.PaymentReference)
	assert.Equal(t, ref, *order.PaymentReference)
	require.NotNil(t, order.PaidAt)

	items, err := f.carts.Items(context.Background(), cartID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCompleteTrustedModeUpdateFailureIsSoft(t *testing.T) {
	f := newFixture(t, nil)
	seedCart(t, f)
	ref := begin(t, f, enums.DeliveryTypePhysical).Reference
	f.store.updateErr = errors.New("db down")

	result, err := f.svc.CompletePayment(context.Background(), ref)
	require.NoError(t, err, "a confirmed payment must never surface as failure")
	assert.Equal(t, enums.OutcomeRecordUpdateFailed, result.Outcome)
	assert.True(t, result.CartCleared)
	require.Len(t, result.Notices, 1)
	assert.Equal(t, notifications.SeverityWarning, result.Notices[0].Severity)
	assert.Contains(t, result.Notices[0].Message, "Contact support with Order ID")
	assert.Contains(t, result.Notices[0].Message, result.OrderID.String())
}

func TestCompleteVerifiedPath(t *testing.T) {
	vf := &stubVerifier{enabled: true, result: verify.Result{Verified: true}}
	f := newFixture(t, vf)
	seedCart(t, f)
	ref := begin(t, f, enums.DeliveryTypePhysical).Reference

	result, err := f.svc.CompletePayment(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 1, vf.calls)
	assert.Equal(t, enums.OutcomeCompleted, result.Outcome)
	assert.Equal(t, enums.OrderStatusCompleted, result.Order.Status)
	assert.True(t, result.Order.Paid())
	require.Len(t, result.Notices, 1)
	assert.Contains(t, result.Notices[0].Message, "Payment verified")
}

func TestCompleteIndeterminateVerificationParksOrder(t *testing.T) {
	vf := &stubVerifier{enabled: true, err: verify.ErrIndeterminate}
	f := newFixture(t, vf)
	seedCart(t, f)
	ref := begin(t, f, enums.DeliveryTypePhysical).Reference

	result, err := f.svc.CompletePayment(context.Background(), ref)
	require.NoError(t, err, "indeterminate verification is a soft failure")
	assert.Equal(t, enums.OutcomePendingVerification, result.Outcome)
	assert.True(t, result.CartCleared)
	require.Len(t, result.Notices, 1)
	assert.Equal(t, notifications.SeverityWarning, result.Notices[0].Severity)
	assert.Contains(t, result.Notices[0].Message, "process your order manually")

	order := f.store.rows[result.OrderID]
	assert.Equal(t, enums.OrderStatusPendingVerification, order.Status)
	require.NotNil(t, order.PaymentNotes)
	assert.Contains(t, *order.PaymentNotes, "Verification error")
	require.NotNil(t, order.PaymentReference)
	assert.Equal(t, ref, *order.PaymentReference)
	assert.False(t, order.Paid())
}

func TestCompleteExplicitRejectionIsHardFailure(t *testing.T) {
	vf := &stubVerifier{enabled: true, result: verify.Result{Verified: false}}
	f := newFixture(t, vf)
	seedCart(t, f)
	ref := begin(t, f, enums.DeliveryTypePhysical).Reference

	_, err := f.svc.CompletePayment(context.Background(), ref)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())

	// order untouched, cart preserved for retry
	assert.Empty(t, f.store.updates)
	items, cartErr := f.carts.Items(context.Background(), cartID)
	require.NoError(t, cartErr)
	assert.NotEmpty(t, items)
}

func TestCompleteUnknownReference(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.CompletePayment(context.Background(), "order_missing_123")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestAbandonLeavesOrderAndCartAlone(t *testing.T) {
	f := newFixture(t, nil)
	seedCart(t, f)
	beginResult := begin(t, f, enums.DeliveryTypePhysical)

	result, err := f.svc.AbandonPayment(context.Background(), beginResult.Reference)
	require.NoError(t, err)
	assert.Equal(t, beginResult.Order.ID, result.OrderID)
	require.Len(t, result.Notices, 1)
	assert.Equal(t, notifications.SeverityInfo, result.Notices[0].Severity)
	assert.Equal(t, 2500*time.Millisecond, result.Notices[0].Duration)

	// no mutation, cart intact
	assert.Empty(t, f.store.updates)
	assert.Equal(t, enums.OrderStatusPending, f.store.rows[result.OrderID].Status)
	items, cartErr := f.carts.Items(context.Background(), cartID)
	require.NoError(t, cartErr)
	assert.NotEmpty(t, items)

	// attempt released: the same cart can check out again
	begin(t, f, enums.DeliveryTypePhysical)
}

func TestAbandonedReferenceCannotBeCompleted(t *testing.T) {
	f := newFixture(t, nil)
	seedCart(t, f)
	ref := begin(t, f, enums.DeliveryTypePhysical).Reference

	_, err := f.svc.AbandonPayment(context.Background(), ref)
	require.NoError(t, err)

	_, err = f.svc.CompletePayment(context.Background(), ref)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
