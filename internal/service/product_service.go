package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"market-backend/internal/domain"
	"market-backend/internal/repository"
)

var ErrProductNotFound = errors.New("product not found")

type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Stock       int
}

// ProductService administra el catálogo. Las escrituras quedan restringidas
// a administradores en la capa HTTP.
type ProductService struct {
	logger   *zap.Logger
	products repository.ProductRepository
	now      func() time.Time
}

func NewProductService(logger *zap.Logger, products repository.ProductRepository) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		logger:   logger,
		products: products,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}

func (s *ProductService) Get(ctx context.Context, id string) (domain.Product, error) {
	id, ok := parseID(id)
	if !ok {
		return domain.Product{}, ErrProductNotFound
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, ErrProductNotFound
		}
		return domain.Product{}, err
	}
	return product, nil
}

func (s *ProductService) Create(ctx context.Context, input ProductInput) (domain.Product, error) {
	now := s.now()
	product := domain.Product{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		Price:       domain.RoundMoney(input.Price),
		Stock:       input.Stock,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if !validProduct(product) {
		return domain.Product{}, ErrInvalidInput
	}
	if err := s.products.Create(ctx, product); err != nil {
		return domain.Product{}, err
	}
	s.logger.Info("product created", zap.String("product_id", product.ID))
	return product, nil
}

// Update aplica una actualización parcial sobre el producto existente.
func (s *ProductService) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	updated := patch.Apply(current)
	updated.Name = strings.TrimSpace(updated.Name)
	updated.Description = strings.TrimSpace(updated.Description)
	updated.Price = domain.RoundMoney(updated.Price)
	updated.UpdatedAt = s.now()
	if !validProduct(updated) {
		return domain.Product{}, ErrInvalidInput
	}
	if err := s.products.Update(ctx, updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, ErrProductNotFound
		}
		return domain.Product{}, err
	}
	return updated, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	id, ok := parseID(id)
	if !ok {
		return ErrProductNotFound
	}
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return err
	}
	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}

func validProduct(p domain.Product) bool {
	return p.Name != "" && p.Price >= 0 && p.Stock >= 0
}

// parseID normaliza un id de ruta; los que no son UUID no llegan a la base.
func parseID(id string) (string, bool) {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}
