package cart

import (
	"context"
	"encoding/json"
	"time"

	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	"github.com/bookhaven/storefront-backend/pkg/redis"
	"github.com/bookhaven/storefront-backend/pkg/types"
)

// cartTTL keeps abandoned carts around long enough for shoppers to return.
const cartTTL = 30 * 24 * time.Hour

// Repository persists cart contents between requests.
type Repository interface {
	Load(ctx context.Context, cartID string) (types.OrderItems, error)
	Save(ctx context.Context, cartID string, items types.OrderItems) error
	Clear(ctx context.Context, cartID string) error
}

type repository struct {
	kv redis.KV
}

// NewRepository builds a cart repository on the provided key/value store.
func NewRepository(kv redis.KV) (Repository, error) {
	if kv == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "kv store is required")
	}
	return &repository{kv: kv}, nil
}

// Load returns the stored cart; a missing key is an empty cart.
func (r *repository) Load(ctx context.Context, cartID string) (types.OrderItems, error) {
	raw, err := r.kv.Get(ctx, redis.CartKey(cartID))
	if redis.IsNil(err) {
		return types.OrderItems{}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	var items types.OrderItems
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart")
	}
	return items, nil
}

func (r *repository) Save(ctx context.Context, cartID string, items types.OrderItems) error {
	if len(items) == 0 {
		return r.Clear(ctx, cartID)
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := r.kv.Set(ctx, redis.CartKey(cartID), encoded, cartTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}

func (r *repository) Clear(ctx context.Context, cartID string) error {
	if err := r.kv.Del(ctx, redis.CartKey(cartID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}
