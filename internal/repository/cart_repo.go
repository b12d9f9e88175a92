package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"market-backend/internal/domain"
)

// CartRepository guarda las líneas del carrito de cada usuario. AddItem
// devuelve pgx.ErrNoRows si el producto no existe y RemoveItem si la línea
// no existe.
type CartRepository interface {
	ListItems(ctx context.Context, userID string) ([]domain.CartItem, error)
	AddItem(ctx context.Context, id, userID, productID string, quantity int, at time.Time) error
	RemoveItem(ctx context.Context, userID, productID string) error
	Clear(ctx context.Context, userID string) error
}

type PgCartRepository struct {
	db DB
}

func NewPgCartRepository(db DB) *PgCartRepository {
	return &PgCartRepository{db: db}
}

func (r *PgCartRepository) ListItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	const query = `
		SELECT c.id, c.product_id, p.name, c.quantity, p.price
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// AddItem suma quantity a la línea existente o la crea. El SELECT sobre
// products hace que un producto inexistente no inserte filas.
func (r *PgCartRepository) AddItem(ctx context.Context, id, userID, productID string, quantity int, at time.Time) error {
	const query = `
		INSERT INTO cart_items (id, user_id, product_id, quantity, created_at)
		SELECT $1, $2, p.id, $4, $5 FROM products p WHERE p.id = $3
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`
	tag, err := r.db.Exec(ctx, query, id, userID, productID, quantity, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgCartRepository) RemoveItem(ctx context.Context, userID, productID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`, userID, productID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgCartRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}
