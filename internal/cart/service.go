package cart

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/bookhaven/storefront-backend/pkg/errors"
	"github.com/bookhaven/storefront-backend/pkg/money"
	"github.com/bookhaven/storefront-backend/pkg/types"
)

// Service owns the cart aggregate. Lines are keyed by book title; quantity
// moves in steps of one and a line at quantity one disappears on decrease.
type Service interface {
	Items(ctx context.Context, cartID string) (types.OrderItems, error)
	Add(ctx context.Context, cartID string, item types.OrderItem) (types.OrderItems, error)
	Increase(ctx context.Context, cartID, title string) (types.OrderItems, error)
	Decrease(ctx context.Context, cartID, title string) (types.OrderItems, error)
	Remove(ctx context.Context, cartID, title string) (types.OrderItems, error)
	Clear(ctx context.Context, cartID string) error
	Count(ctx context.Context, cartID string) (int, error)
	Subtotal(ctx context.Context, cartID string) (decimal.Decimal, error)
}

type service struct {
	repo Repository
}

// NewService builds the cart service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Items(ctx context.Context, cartID string) (types.OrderItems, error) {
	return s.repo.Load(ctx, cartID)
}

// Add appends a new line or bumps the quantity of an existing title by one.
func (s *service) Add(ctx context.Context, cartID string, item types.OrderItem) (types.OrderItems, error) {
	item.Title = strings.TrimSpace(item.Title)
	if item.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item title is required")
	}

	items, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	if idx := indexOf(items, item.Title); idx >= 0 {
		items[idx].Qty++
	} else {
		if item.Qty < 1 {
			item.Qty = 1
		}
		items = append(items, item)
	}

	if err := s.repo.Save(ctx, cartID, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *service) Increase(ctx context.Context, cartID, title string) (types.OrderItems, error) {
	return s.adjust(ctx, cartID, title, 1)
}

func (s *service) Decrease(ctx context.Context, cartID, title string) (types.OrderItems, error) {
	return s.adjust(ctx, cartID, title, -1)
}

func (s *service) adjust(ctx context.Context, cartID, title string, delta int) (types.OrderItems, error) {
	items, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	idx := indexOf(items, title)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}

	items[idx].Qty += delta
	if items[idx].Qty < 1 {
		items = append(items[:idx], items[idx+1:]...)
	}

	if err := s.repo.Save(ctx, cartID, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *service) Remove(ctx context.Context, cartID, title string) (types.OrderItems, error) {
	items, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return nil, err
	}

	idx := indexOf(items, title)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}
	items = append(items[:idx], items[idx+1:]...)

	if err := s.repo.Save(ctx, cartID, items); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *service) Clear(ctx context.Context, cartID string) error {
	return s.repo.Clear(ctx, cartID)
}

// Count sums line quantities, the number shown on the cart badge.
func (s *service) Count(ctx context.Context, cartID string) (int, error) {
	items, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, item := range items {
		total += item.Qty
	}
	return total, nil
}

// Subtotal prices the cart from the raw display prices; malformed prices
// count as zero rather than failing the whole cart.
func (s *service) Subtotal(ctx context.Context, cartID string) (decimal.Decimal, error) {
	items, err := s.repo.Load(ctx, cartID)
	if err != nil {
		return decimal.Zero, err
	}
	return SubtotalOf(items), nil
}

// SubtotalOf prices a line set without touching storage.
func SubtotalOf(items types.OrderItems) decimal.Decimal {
	subtotal := decimal.Zero
	for _, item := range items {
		price := money.ParsePrice(item.Price)
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	return subtotal
}

func indexOf(items types.OrderItems, title string) int {
	for i, item := range items {
		if item.Title == title {
			return i
		}
	}
	return -1
}
