package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/fsdevblog/groph-pos/pkg/uow"
	"github.com/jackc/pgx/v5"
)

type ProductRepository struct {
	conn uow.DBTX
}

func NewProductRepository(conn uow.DBTX) *ProductRepository {
	return &ProductRepository{conn: conn}
}

const productsGetByIDs = `
SELECT id, name, price, unit_cost, stock
FROM products
WHERE id = ANY($1::bigint[])
ORDER BY id`

func (p *ProductRepository) GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error) {
	rows, err := p.conn.Query(ctx, productsGetByIDs, ids)
	if err != nil {
		return nil, convertErr(err, "getting products by ids `%v`", ids)
	}
	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Product, error) {
		var product domain.Product
		scanErr := row.Scan(&product.ID, &product.Name, &product.Price, &product.UnitCost, &product.Stock)
		return product, scanErr
	})
	if err != nil {
		return nil, convertErr(err, "scanning products")
	}
	return products, nil
}

// Списание проходит только при достаточном остатке: проверка и изменение выполняются одним UPDATE,
// поэтому параллельные транзакции не уводят остаток в минус.
const productsAdjustStock = `
UPDATE products
SET stock = stock + $2
WHERE id = $1 AND stock + $2 >= 0
RETURNING stock`

const productsGetStock = `SELECT stock FROM products WHERE id = $1`

func (p *ProductRepository) AdjustStock(ctx context.Context, productID int64, delta int64) (int64, error) {
	var stock int64
	err := p.conn.QueryRow(ctx, productsAdjustStock, productID, delta).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !isNoRows(err) {
		return 0, convertErr(err, "adjusting stock of product %d by %d", productID, delta)
	}

	// Условие не выполнилось: либо товара нет, либо не хватает остатка.
	if stockErr := p.conn.QueryRow(ctx, productsGetStock, productID).Scan(&stock); stockErr != nil {
		return 0, convertErr(stockErr, "reading stock of product %d", productID)
	}
	return 0, &domain.InsufficientStockError{
		ProductID: productID,
		Requested: -delta,
		Available: stock,
	}
}
