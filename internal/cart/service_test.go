package cart

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/bookhaven/storefront-backend/pkg/types"
)

type fakeKV struct {
	data map[string]string
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}}
}

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

func (f *fakeKV) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	return true, f.Set(context.Background(), key, value, ttl)
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func newTestService(t *testing.T) Service {
	t.Helper()
	repo, err := NewRepository(newFakeKV())
	require.NoError(t, err)
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc
}

const cartID = "visitor-1"

func TestAddMergesByTitle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	items, err := svc.Add(ctx, cartID, types.OrderItem{Title: "Half of a Yellow Sun", Price: "₦4500", Qty: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)

	items, err = svc.Add(ctx, cartID, types.OrderItem{Title: "Half of a Yellow Sun", Price: "₦4500", Qty: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Qty)

	items, err = svc.Add(ctx, cartID, types.OrderItem{Title: "Things Fall Apart", Price: "₦3000"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 1, items[1].Qty)
}

func TestIncreaseAndDecrease(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, cartID, types.OrderItem{Title: "Arrow of God", Price: "₦2500"})
	require.NoError(t, err)

	items, err := svc.Increase(ctx, cartID, "Arrow of God")
	require.NoError(t, err)
	assert.Equal(t, 2, items[0].Qty)

	items, err = svc.Decrease(ctx, cartID, "Arrow of God")
	require.NoError(t, err)
	assert.Equal(t, 1, items[0].Qty)
}

func TestDecreaseAtOneRemovesLine(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, cartID, types.OrderItem{Title: "Arrow of God", Price: "₦2500"})
	require.NoError(t, err)

	items, err := svc.Decrease(ctx, cartID, "Arrow of God")
	require.NoError(t, err)
	assert.Empty(t, items)

	count, err := svc.Count(ctx, cartID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAdjustMissingItem(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Increase(context.Background(), cartID, "No Such Book")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestRemoveDeletesWholeLine(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, cartID, types.OrderItem{Title: "Purple Hibiscus", Price: "₦3500", Qty: 3})
	require.NoError(t, err)

	items, err := svc.Remove(ctx, cartID, "Purple Hibiscus")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSubtotalParsesDisplayPrices(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, cartID, types.OrderItem{Title: "Purple Hibiscus", Price: "₦3,500.50"})
	require.NoError(t, err)
	_, err = svc.Increase(ctx, cartID, "Purple Hibiscus")
	require.NoError(t, err)
	_, err = svc.Add(ctx, cartID, types.OrderItem{Title: "Freebie Sampler", Price: "free"})
	require.NoError(t, err)

	subtotal, err := svc.Subtotal(ctx, cartID)
	require.NoError(t, err)
	assert.True(t, subtotal.Equal(decimal.RequireFromString("7001")), "got %s", subtotal)
}

func TestCartSurvivesReload(t *testing.T) {
	kv := newFakeKV()
	repo, err := NewRepository(kv)
	require.NoError(t, err)
	svc, err := NewService(repo)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Add(ctx, cartID, types.OrderItem{Title: "Purple Hibiscus", Price: "₦3500", Qty: 2})
	require.NoError(t, err)

	// a second service over the same store sees the same cart
	repo2, err := NewRepository(kv)
	require.NoError(t, err)
	svc2, err := NewService(repo2)
	require.NoError(t, err)

	items, err := svc2.Items(ctx, cartID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Purple Hibiscus", items[0].Title)
}

func TestClearEmptiesCart(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, cartID, types.OrderItem{Title: "Purple Hibiscus", Price: "₦3500"})
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, cartID))

	items, err := svc.Items(ctx, cartID)
	require.NoError(t, err)
	assert.Empty(t, items)
}
