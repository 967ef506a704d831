package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/fsdevblog/groph-pos/internal/domain"
)

// InventoryAdjuster резервирует и возвращает остатки товаров. Проверка "хватает ли" и списание
// выполняются хранилищем одной условной операцией, поэтому параллельные продажи не уводят остаток в минус.
type InventoryAdjuster struct {
	metrics MetricsRecorder
}

func NewInventoryAdjuster(metrics MetricsRecorder) *InventoryAdjuster {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &InventoryAdjuster{metrics: metrics}
}

// Reserve списывает qty единиц товара. Возвращает новый остаток или *domain.InsufficientStockError.
func (a *InventoryAdjuster) Reserve(ctx context.Context, repo ProductRepository, productID, qty int64) (int64, error) {
	if qty <= 0 {
		return 0, domain.NewValidationError(domain.ReasonInvalidQuantity, "quantity of product %d must be positive", productID)
	}
	newQty, err := repo.AdjustStock(ctx, productID, -qty)
	if err != nil {
		var stockErr *domain.InsufficientStockError
		if errors.As(err, &stockErr) {
			a.metrics.StockRejected(productID)
			return 0, stockErr
		}
		return 0, lookupErr("reserve stock", err, domain.EntityProduct, productID)
	}
	return newQty, nil
}

// Release возвращает qty единиц товара на склад. Верхняя граница не проверяется.
func (a *InventoryAdjuster) Release(ctx context.Context, repo ProductRepository, productID, qty int64) error {
	if qty <= 0 {
		return domain.NewValidationError(domain.ReasonInvalidQuantity, "quantity of product %d must be positive", productID)
	}
	if _, err := repo.AdjustStock(ctx, productID, qty); err != nil {
		return lookupErr("release stock", err, domain.EntityProduct, productID)
	}
	return nil
}

// ReserveAll резервирует все строки как единое целое: при первой неудаче уже списанные в этом вызове
// строки возвращаются на склад, и только после этого возвращается ошибка.
// Товары резервируются по возрастанию id, повторы одного товара сливаются в одну операцию:
// параллельные продажи с теми же товарами берут блокировки строк в одном порядке.
func (a *InventoryAdjuster) ReserveAll(ctx context.Context, repo ProductRepository, lines []domain.SaleLine) error {
	moves := stockMoves(lines)
	reserved := make([]domain.SaleLine, 0, len(moves))
	for _, move := range moves {
		if _, err := a.Reserve(ctx, repo, move.ProductID, move.Quantity); err != nil {
			if rollbackErr := a.ReleaseAll(ctx, repo, reserved); rollbackErr != nil {
				return errors.Join(err, fmt.Errorf("rollback reserved stock: %w", rollbackErr))
			}
			return err
		}
		reserved = append(reserved, move)
	}
	return nil
}

// ReleaseAll возвращает на склад ровно зафиксированные в строках количества, в том же порядке товаров,
// что и ReserveAll.
func (a *InventoryAdjuster) ReleaseAll(ctx context.Context, repo ProductRepository, lines []domain.SaleLine) error {
	var errs []error
	for _, move := range stockMoves(lines) {
		if err := a.Release(ctx, repo, move.ProductID, move.Quantity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// stockMoves сливает строки одного товара и сортирует их по id товара.
func stockMoves(lines []domain.SaleLine) []domain.SaleLine {
	byProduct := make(map[int64]int, len(lines))
	moves := make([]domain.SaleLine, 0, len(lines))
	for _, line := range lines {
		if i, ok := byProduct[line.ProductID]; ok {
			moves[i].Quantity += line.Quantity
			continue
		}
		byProduct[line.ProductID] = len(moves)
		moves = append(moves, domain.SaleLine{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	slices.SortFunc(moves, func(a, b domain.SaleLine) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return moves
}
