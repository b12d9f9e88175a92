package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"market-backend/internal/domain"
	"market-backend/internal/metrics"
	"market-backend/internal/repository"
)

var (
	ErrCartEmpty         = errors.New("cart empty")
	ErrInvoiceNotFound   = errors.New("invoice not found")
	ErrForbidden         = errors.New("not enough permissions")
	ErrInvalidTransition = errors.New("invalid invoice status")
)

const invoiceNumberAttempts = 3

// Viewer identifica a quien consulta una factura.
type Viewer struct {
	UserID  string
	IsAdmin bool
}

// InvoiceService factura el carrito y expone las facturas a su dueño o a
// un administrador.
type InvoiceService struct {
	logger   *zap.Logger
	invoices repository.InvoiceRepository
	now      func() time.Time
	number   func() (string, error)
}

func NewInvoiceService(logger *zap.Logger, invoices repository.InvoiceRepository) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		logger:   logger,
		invoices: invoices,
		now:      func() time.Time { return time.Now().UTC() },
		number:   newInvoiceNumber,
	}
}

// CreateFromCart emite una factura pendiente con el contenido del carrito y
// lo vacía. El stock de los productos no se modifica.
func (s *InvoiceService) CreateFromCart(ctx context.Context, userID string) (domain.Invoice, error) {
	var lastErr error
	for attempt := 0; attempt < invoiceNumberAttempts; attempt++ {
		number, err := s.number()
		if err != nil {
			return domain.Invoice{}, err
		}
		invoice, err := s.invoices.CreateFromCart(ctx, domain.Invoice{
			ID:            uuid.NewString(),
			UserID:        userID,
			InvoiceNumber: number,
			Status:        domain.InvoicePending,
			CreatedAt:     s.now(),
		})
		switch {
		case err == nil:
			metrics.RecordInvoice("created")
			s.logger.Info("invoice created",
				zap.String("invoice_id", invoice.ID),
				zap.String("user_id", userID),
				zap.Float64("total", invoice.TotalAmount),
			)
			return invoice, nil
		case errors.Is(err, repository.ErrEmptyCart):
			return domain.Invoice{}, ErrCartEmpty
		case errors.Is(err, repository.ErrDuplicateInvoiceNumber):
			lastErr = err
			continue
		default:
			return domain.Invoice{}, err
		}
	}
	return domain.Invoice{}, lastErr
}

func (s *InvoiceService) ListMine(ctx context.Context, userID string) ([]domain.Invoice, error) {
	return s.invoices.ListByUser(ctx, userID)
}

func (s *InvoiceService) ListAll(ctx context.Context) ([]domain.Invoice, error) {
	return s.invoices.ListAll(ctx)
}

// Get devuelve la factura si viewer es su dueño o administrador.
func (s *InvoiceService) Get(ctx context.Context, id string, viewer Viewer) (domain.Invoice, error) {
	id, ok := parseID(id)
	if !ok {
		return domain.Invoice{}, ErrInvoiceNotFound
	}
	invoice, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Invoice{}, ErrInvoiceNotFound
		}
		return domain.Invoice{}, err
	}
	if !viewer.IsAdmin && invoice.UserID != viewer.UserID {
		return domain.Invoice{}, ErrForbidden
	}
	return invoice, nil
}

// UpdateStatus cambia el estado de una factura pendiente. Las facturas
// pagadas o canceladas son finales.
func (s *InvoiceService) UpdateStatus(ctx context.Context, id string, status domain.InvoiceStatus) (domain.Invoice, error) {
	if !status.Valid() {
		return domain.Invoice{}, ErrInvalidInput
	}
	invoice, err := s.Get(ctx, id, Viewer{IsAdmin: true})
	if err != nil {
		return domain.Invoice{}, err
	}
	if invoice.Status == status {
		return invoice, nil
	}
	if invoice.Status != domain.InvoicePending {
		return domain.Invoice{}, ErrInvalidTransition
	}
	if err := s.invoices.UpdateStatus(ctx, invoice.ID, status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Invoice{}, ErrInvoiceNotFound
		}
		return domain.Invoice{}, err
	}
	invoice.Status = status
	metrics.RecordInvoice(string(status))
	return invoice, nil
}

// newInvoiceNumber arma un número INV- seguido de 8 hex en mayúsculas.
func newInvoiceNumber() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "INV-" + strings.ToUpper(hex.EncodeToString(buf)), nil
}
