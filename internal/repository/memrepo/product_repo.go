package memrepo

import (
	"context"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/shopspring/decimal"
)

type ProductRepository struct {
	sess session
}

// GetByIDs возвращает найденные товары. Отсутствующие id пропускаются.
func (p *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	s := p.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()

	products := make([]domain.Product, 0, len(ids))
	for _, id := range ids {
		if product, ok := s.products[id]; ok {
			products = append(products, *product)
		}
	}
	return products, nil
}

// AdjustStock меняет остаток на delta под блокировкой хранилища. Проверка и изменение выполняются
// одним шагом, как условный UPDATE в postgres.
func (p *ProductRepository) AdjustStock(ctx context.Context, productID int64, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err //nolint:wrapcheck
	}
	s := p.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productID]
	if !ok {
		return 0, domain.ErrRecordNotFound
	}
	if product.Stock+delta < 0 {
		return 0, &domain.InsufficientStockError{
			ProductID: productID,
			Requested: -delta,
			Available: product.Stock,
		}
	}
	product.Stock += delta
	p.sess.journal.record(func() {
		product.Stock -= delta
	})
	return product.Stock, nil
}

func demoCatalog() []domain.Product {
	return []domain.Product{
		{
			ID:       1,
			Name:     "Espresso",
			Price:    decimal.RequireFromString("35.00"),
			UnitCost: decimal.RequireFromString("9.50"),
			Stock:    100,
		},
		{
			ID:       2,
			Name:     "Cappuccino",
			Price:    decimal.RequireFromString("48.00"),
			UnitCost: decimal.RequireFromString("14.20"),
			Stock:    100,
		},
		{
			ID:       3,
			Name:     "Croissant",
			Price:    decimal.RequireFromString("32.50"),
			UnitCost: decimal.RequireFromString("11.00"),
			Stock:    40,
		},
	}
}
