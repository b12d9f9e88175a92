package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"market-backend/internal/domain"
)

var (
	// ErrEmptyCart se devuelve cuando se factura un carrito sin líneas.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrDuplicateInvoiceNumber indica colisión en invoices.invoice_number.
	ErrDuplicateInvoiceNumber = errors.New("duplicate invoice number")
)

// InvoiceRepository persiste facturas y sus líneas. Las búsquedas sin
// resultado devuelven pgx.ErrNoRows.
type InvoiceRepository interface {
	// CreateFromCart copia el carrito del usuario a una factura nueva y lo
	// vacía en la misma transacción.
	CreateFromCart(ctx context.Context, invoice domain.Invoice) (domain.Invoice, error)
	GetByID(ctx context.Context, id string) (domain.Invoice, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Invoice, error)
	ListAll(ctx context.Context) ([]domain.Invoice, error)
	UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) error
	// Stats devuelve la cantidad de facturas y la suma de las pagadas.
	Stats(ctx context.Context) (int, float64, error)
}

type PgInvoiceRepository struct {
	db DB
}

func NewPgInvoiceRepository(db DB) *PgInvoiceRepository {
	return &PgInvoiceRepository{db: db}
}

const invoiceColumns = `id, user_id, invoice_number, total_amount, status, created_at`

func (r *PgInvoiceRepository) CreateFromCart(ctx context.Context, inv domain.Invoice) (_ domain.Invoice, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Invoice{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// FOR UPDATE serializa dos facturaciones concurrentes del mismo carrito:
	// la segunda ve las líneas ya borradas.
	const cartQuery = `
		SELECT c.product_id, p.name, c.quantity, p.price
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY c.created_at ASC
		FOR UPDATE OF c
	`
	rows, err := tx.Query(ctx, cartQuery, inv.UserID)
	if err != nil {
		return domain.Invoice{}, err
	}
	items := []domain.InvoiceItem{}
	for rows.Next() {
		item := domain.InvoiceItem{ID: uuid.NewString()}
		if err = rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			rows.Close()
			return domain.Invoice{}, err
		}
		item.TotalPrice = domain.RoundMoney(item.UnitPrice * float64(item.Quantity))
		inv.TotalAmount += item.TotalPrice
		items = append(items, item)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return domain.Invoice{}, err
	}
	if len(items) == 0 {
		err = ErrEmptyCart
		return domain.Invoice{}, err
	}
	inv.TotalAmount = domain.RoundMoney(inv.TotalAmount)
	inv.Items = items

	const invoiceQuery = `
		INSERT INTO invoices (id, user_id, invoice_number, total_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.Exec(ctx, invoiceQuery, inv.ID, inv.UserID, inv.InvoiceNumber, inv.TotalAmount, string(inv.Status), inv.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			err = ErrDuplicateInvoiceNumber
		}
		return domain.Invoice{}, err
	}

	const itemQuery = `
		INSERT INTO invoice_items (id, invoice_id, position, product_id, product_name, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i, item := range items {
		_, err = tx.Exec(ctx, itemQuery, item.ID, inv.ID, i, item.ProductID, item.ProductName, item.Quantity, item.UnitPrice, item.TotalPrice)
		if err != nil {
			return domain.Invoice{}, err
		}
	}

	if _, err = tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, inv.UserID); err != nil {
		return domain.Invoice{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return domain.Invoice{}, err
	}
	return inv, nil
}

func (r *PgInvoiceRepository) GetByID(ctx context.Context, id string) (domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	inv, err := scanInvoice(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Invoice{}, err
	}
	invoices := []domain.Invoice{inv}
	if err := r.attachItems(ctx, invoices); err != nil {
		return domain.Invoice{}, err
	}
	return invoices[0], nil
}

// ListByUser devuelve las facturas del usuario, las más recientes primero.
func (r *PgInvoiceRepository) ListByUser(ctx context.Context, userID string) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

func (r *PgInvoiceRepository) ListAll(ctx context.Context) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices ORDER BY created_at DESC`
	return r.list(ctx, query)
}

func (r *PgInvoiceRepository) UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE invoices SET status = $2 WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *PgInvoiceRepository) Stats(ctx context.Context) (int, float64, error) {
	const query = `
		SELECT COUNT(*), COALESCE(SUM(total_amount) FILTER (WHERE status = 'paid'), 0)::float8
		FROM invoices
	`
	var (
		count int
		sales float64
	)
	if err := r.db.QueryRow(ctx, query).Scan(&count, &sales); err != nil {
		return 0, 0, err
	}
	return count, sales, nil
}

func (r *PgInvoiceRepository) list(ctx context.Context, query string, args ...any) ([]domain.Invoice, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	invoices := []domain.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

// attachItems carga las líneas de todas las facturas con una sola consulta.
func (r *PgInvoiceRepository) attachItems(ctx context.Context, invoices []domain.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	ids := make([]string, len(invoices))
	index := make(map[string]int, len(invoices))
	for i := range invoices {
		ids[i] = invoices[i].ID
		index[invoices[i].ID] = i
		invoices[i].Items = []domain.InvoiceItem{}
	}

	const query = `
		SELECT id, invoice_id, product_id, product_name, quantity, unit_price, total_price
		FROM invoice_items
		WHERE invoice_id = ANY($1::uuid[])
		ORDER BY invoice_id, position
	`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			item      domain.InvoiceItem
			invoiceID string
		)
		err := rows.Scan(&item.ID, &invoiceID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice, &item.TotalPrice)
		if err != nil {
			return err
		}
		if i, ok := index[invoiceID]; ok {
			invoices[i].Items = append(invoices[i].Items, item)
		}
	}
	return rows.Err()
}

func scanInvoice(row pgx.Row) (domain.Invoice, error) {
	var (
		inv    domain.Invoice
		status string
	)
	err := row.Scan(&inv.ID, &inv.UserID, &inv.InvoiceNumber, &inv.TotalAmount, &status, &inv.CreatedAt)
	if err != nil {
		return domain.Invoice{}, err
	}
	inv.Status = domain.InvoiceStatus(status)
	return inv, nil
}
