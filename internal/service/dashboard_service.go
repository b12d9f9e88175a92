package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"market-backend/internal/domain"
	"market-backend/internal/repository"
)

// DashboardService agrega los contadores del panel de administración.
type DashboardService struct {
	users    repository.UserRepository
	products repository.ProductRepository
	invoices repository.InvoiceRepository
}

func NewDashboardService(users repository.UserRepository, products repository.ProductRepository, invoices repository.InvoiceRepository) *DashboardService {
	return &DashboardService{users: users, products: products, invoices: invoices}
}

// Stats consulta los tres contadores en paralelo. total_sales solo suma
// facturas pagadas.
func (s *DashboardService) Stats(ctx context.Context) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.users.Count(gctx)
		stats.TotalUsers = n
		return err
	})
	g.Go(func() error {
		n, err := s.products.Count(gctx)
		stats.TotalProducts = n
		return err
	})
	g.Go(func() error {
		n, sales, err := s.invoices.Stats(gctx)
		stats.TotalInvoices = n
		stats.TotalSales = domain.RoundMoney(sales)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.DashboardStats{}, err
	}
	return stats, nil
}

// UserStats no distingue usuarios inactivos: todas las cuentas cuentan como activas.
func (s *DashboardService) UserStats(ctx context.Context) (domain.UserStats, error) {
	n, err := s.users.Count(ctx)
	if err != nil {
		return domain.UserStats{}, err
	}
	return domain.UserStats{TotalUsers: n, ActiveUsers: n}, nil
}
