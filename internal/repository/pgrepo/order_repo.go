package pgrepo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/fsdevblog/groph-pos/internal/repository/repoargs"
	"github.com/fsdevblog/groph-pos/pkg/uow"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type OrderRepository struct {
	conn uow.DBTX
}

func NewOrderRepository(conn uow.DBTX) *OrderRepository {
	return &OrderRepository{conn: conn}
}

const orderColumns = `id, created_at, updated_at, number, customer_id, delivery_type, items, total, status, sale_id`

const ordersCreate = `
INSERT INTO orders (id, number, customer_id, delivery_type, items, total, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + orderColumns

func (o *OrderRepository) CreateOrder(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error) {
	items, err := json.Marshal(args.Items)
	if err != nil {
		return nil, fmt.Errorf("encode order items: %w", err)
	}
	row := o.conn.QueryRow(ctx, ordersCreate,
		args.ID,
		args.Number,
		args.CustomerID,
		args.DeliveryType,
		items,
		args.Total,
		domain.OrderStatusPending,
	)
	order, err := scanOrder(row)
	if err != nil {
		return nil, convertErr(err, "creating order `%s`", args.Number)
	}
	return order, nil
}

func (o *OrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(o.conn.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, convertErr(err, "finding order %s", id)
	}
	return order, nil
}

// FindByIDForUpdate блокирует строку заказа до конца транзакции.
func (o *OrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	order, err := scanOrder(o.conn.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, convertErr(err, "locking order %s", id)
	}
	return order, nil
}

func (o *OrderRepository) GetByCustomerID(ctx context.Context, customerID int64) ([]domain.Order, error) {
	rows, err := o.conn.Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = $1 ORDER BY created_at DESC`,
		customerID,
	)
	if err != nil {
		return nil, convertErr(err, "getting orders of customer %d", customerID)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
		order, scanErr := scanOrder(row)
		if scanErr != nil {
			return domain.Order{}, scanErr
		}
		return *order, nil
	})
	if err != nil {
		return nil, convertErr(err, "scanning orders of customer %d", customerID)
	}
	return orders, nil
}

const ordersUpdateStatus = `
UPDATE orders
SET status = $2, sale_id = COALESCE($3, sale_id), updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (o *OrderRepository) UpdateStatus(ctx context.Context, args repoargs.UpdateOrderStatus) (*domain.Order, error) {
	order, err := scanOrder(o.conn.QueryRow(ctx, ordersUpdateStatus, args.ID, args.Status, args.SaleID))
	if err != nil {
		return nil, convertErr(err, "updating status of order %s", args.ID)
	}
	return order, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order domain.Order
		items []byte
	)
	err := row.Scan(
		&order.ID,
		&order.CreatedAt,
		&order.UpdatedAt,
		&order.Number,
		&order.CustomerID,
		&order.DeliveryType,
		&items,
		&order.Total,
		&order.Status,
		&order.SaleID,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if err = json.Unmarshal(items, &order.Items); err != nil {
		return nil, fmt.Errorf("decode order items: %w", err)
	}
	return &order, nil
}
