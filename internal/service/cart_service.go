package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"market-backend/internal/domain"
	"market-backend/internal/repository"
)

var ErrCartItemNotFound = errors.New("item not in cart")

type CartService struct {
	items repository.CartRepository
	now   func() time.Time
}

func NewCartService(items repository.CartRepository) *CartService {
	return &CartService{
		items: items,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Get devuelve el carrito del usuario con subtotales y total.
func (s *CartService) Get(ctx context.Context, userID string) (domain.Cart, error) {
	items, err := s.items.ListItems(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	return domain.NewCart(items), nil
}

// Add suma quantity a la línea del producto, creándola si no existe.
func (s *CartService) Add(ctx context.Context, userID, productID string, quantity int) (domain.Cart, error) {
	if quantity <= 0 {
		return domain.Cart{}, ErrInvalidInput
	}
	productID, ok := parseID(productID)
	if !ok {
		return domain.Cart{}, ErrProductNotFound
	}
	if err := s.items.AddItem(ctx, uuid.NewString(), userID, productID, quantity, s.now()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Cart{}, ErrProductNotFound
		}
		return domain.Cart{}, err
	}
	return s.Get(ctx, userID)
}

func (s *CartService) Remove(ctx context.Context, userID, productID string) (domain.Cart, error) {
	productID, ok := parseID(productID)
	if !ok {
		return domain.Cart{}, ErrCartItemNotFound
	}
	if err := s.items.RemoveItem(ctx, userID, productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Cart{}, ErrCartItemNotFound
		}
		return domain.Cart{}, err
	}
	return s.Get(ctx, userID)
}

func (s *CartService) Clear(ctx context.Context, userID string) error {
	return s.items.Clear(ctx, userID)
}
