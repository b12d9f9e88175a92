package http

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"market-backend/internal/domain"
	"market-backend/internal/repository"
)

type mockProductRepo struct {
	mu       sync.Mutex
	products map[string]domain.Product
}

func newMockProductRepo() *mockProductRepo {
	return &mockProductRepo{products: make(map[string]domain.Product)}
}

func (m *mockProductRepo) Create(_ context.Context, p domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return domain.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockProductRepo) List(_ context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockProductRepo) Update(_ context.Context, p domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.products), nil
}

type mockCartRepo struct {
	mu       sync.Mutex
	products *mockProductRepo
	lines    map[string][]domain.CartItem
}

func newMockCartRepo(products *mockProductRepo) *mockCartRepo {
	return &mockCartRepo{products: products, lines: make(map[string][]domain.CartItem)}
}

func (m *mockCartRepo) ListItems(ctx context.Context, userID string) ([]domain.CartItem, error) {
	m.mu.Lock()
	lines := append([]domain.CartItem(nil), m.lines[userID]...)
	m.mu.Unlock()
	out := make([]domain.CartItem, 0, len(lines))
	for _, line := range lines {
		p, err := m.products.GetByID(ctx, line.ProductID)
		if err != nil {
			continue
		}
		line.ProductName = p.Name
		line.UnitPrice = p.Price
		out = append(out, line)
	}
	return out, nil
}

func (m *mockCartRepo) AddItem(ctx context.Context, id, userID, productID string, quantity int, _ time.Time) error {
	if _, err := m.products.GetByID(ctx, productID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, line := range m.lines[userID] {
		if line.ProductID == productID {
			m.lines[userID][i].Quantity += quantity
			return nil
		}
	}
	m.lines[userID] = append(m.lines[userID], domain.CartItem{ID: id, ProductID: productID, Quantity: quantity})
	return nil
}

func (m *mockCartRepo) RemoveItem(_ context.Context, userID, productID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, line := range m.lines[userID] {
		if line.ProductID == productID {
			m.lines[userID] = append(m.lines[userID][:i], m.lines[userID][i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *mockCartRepo) Clear(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lines, userID)
	return nil
}

type mockInvoiceRepo struct {
	mu       sync.Mutex
	cart     *mockCartRepo
	invoices []domain.Invoice
	numbers  map[string]bool
}

func newMockInvoiceRepo(cart *mockCartRepo) *mockInvoiceRepo {
	return &mockInvoiceRepo{cart: cart, numbers: make(map[string]bool)}
}

func (m *mockInvoiceRepo) CreateFromCart(ctx context.Context, inv domain.Invoice) (domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.numbers[inv.InvoiceNumber] {
		return domain.Invoice{}, repository.ErrDuplicateInvoiceNumber
	}
	lines, err := m.cart.ListItems(ctx, inv.UserID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if len(lines) == 0 {
		return domain.Invoice{}, repository.ErrEmptyCart
	}
	cart := domain.NewCart(lines)
	for _, line := range cart.Items {
		inv.Items = append(inv.Items, domain.InvoiceItem{
			ID:          uuid.NewString(),
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			TotalPrice:  line.TotalPrice,
		})
	}
	inv.TotalAmount = cart.Total
	if err := m.cart.Clear(ctx, inv.UserID); err != nil {
		return domain.Invoice{}, err
	}
	m.numbers[inv.InvoiceNumber] = true
	m.invoices = append(m.invoices, inv)
	return inv, nil
}

func (m *mockInvoiceRepo) GetByID(_ context.Context, id string) (domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.ID == id {
			return inv, nil
		}
	}
	return domain.Invoice{}, pgx.ErrNoRows
}

func (m *mockInvoiceRepo) ListByUser(_ context.Context, userID string) ([]domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Invoice{}
	for i := len(m.invoices) - 1; i >= 0; i-- {
		if m.invoices[i].UserID == userID {
			out = append(out, m.invoices[i])
		}
	}
	return out, nil
}

func (m *mockInvoiceRepo) ListAll(_ context.Context) ([]domain.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Invoice, 0, len(m.invoices))
	for i := len(m.invoices) - 1; i >= 0; i-- {
		out = append(out, m.invoices[i])
	}
	return out, nil
}

func (m *mockInvoiceRepo) UpdateStatus(_ context.Context, id string, status domain.InvoiceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.invoices {
		if m.invoices[i].ID == id {
			m.invoices[i].Status = status
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *mockInvoiceRepo) Stats(_ context.Context) (int, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var sales float64
	for _, inv := range m.invoices {
		if inv.Status == domain.InvoicePaid {
			sales += inv.TotalAmount
		}
	}
	return len(m.invoices), sales, nil
}

type shopFixture struct {
	products *mockProductRepo
	cart     *mockCartRepo
	invoices *mockInvoiceRepo
}

func newShopFixture() *shopFixture {
	products := newMockProductRepo()
	cart := newMockCartRepo(products)
	return &shopFixture{products: products, cart: cart, invoices: newMockInvoiceRepo(cart)}
}

func (f *shopFixture) seedProduct(name string, price float64, stock int) domain.Product {
	p := domain.Product{ID: uuid.NewString(), Name: name, Price: price, Stock: stock, CreatedAt: time.Now()}
	_ = f.products.Create(context.Background(), p)
	return p
}

func (f *shopFixture) now() time.Time { return time.Now().UTC() }
