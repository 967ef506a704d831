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

type SaleRepository struct {
	conn uow.DBTX
}

func NewSaleRepository(conn uow.DBTX) *SaleRepository {
	return &SaleRepository{conn: conn}
}

const saleColumns = `id, created_at, updated_at, folio, customer_id, employee_id, lines, payments,
	points_used, gross_total, profit, subtotal, tax, total, status`

const salesCreate = `
INSERT INTO sales (id, folio, customer_id, employee_id, lines, payments,
	points_used, gross_total, profit, subtotal, tax, total, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING ` + saleColumns

func (r *SaleRepository) CreateSale(ctx context.Context, args repoargs.CreateSale) (*domain.Sale, error) {
	lines, err := json.Marshal(args.Lines)
	if err != nil {
		return nil, fmt.Errorf("encode sale lines: %w", err)
	}
	payments, err := json.Marshal(args.Payments)
	if err != nil {
		return nil, fmt.Errorf("encode payments: %w", err)
	}
	row := r.conn.QueryRow(ctx, salesCreate,
		args.ID,
		args.Folio,
		args.CustomerID,
		args.EmployeeID,
		lines,
		payments,
		args.PointsUsed,
		args.Totals.Gross,
		args.Totals.Profit,
		args.Totals.Subtotal,
		args.Totals.Tax,
		args.Totals.Total,
		args.Status,
	)
	sale, err := scanSale(row)
	if err != nil {
		return nil, convertErr(err, "creating sale `%s`", args.Folio)
	}
	return sale, nil
}

func (r *SaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	sale, err := scanSale(r.conn.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		return nil, convertErr(err, "finding sale %s", id)
	}
	return sale, nil
}

// FindByIDForUpdate блокирует строку продажи до конца транзакции.
func (r *SaleRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	sale, err := scanSale(r.conn.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, convertErr(err, "locking sale %s", id)
	}
	return sale, nil
}

const salesUpdatePayments = `
UPDATE sales
SET payments = $2, status = $3, updated_at = now()
WHERE id = $1
RETURNING ` + saleColumns

func (r *SaleRepository) UpdatePayments(ctx context.Context, args repoargs.UpdateSalePayments) (*domain.Sale, error) {
	payments, err := json.Marshal(args.Payments)
	if err != nil {
		return nil, fmt.Errorf("encode payments: %w", err)
	}
	sale, err := scanSale(r.conn.QueryRow(ctx, salesUpdatePayments, args.ID, payments, args.Status))
	if err != nil {
		return nil, convertErr(err, "updating payments of sale %s", args.ID)
	}
	return sale, nil
}

func (r *SaleRepository) List(ctx context.Context, args repoargs.ListSales) ([]domain.Sale, error) {
	limit, err := safeConvertUintToInt32(args.Limit)
	if err != nil {
		return nil, convertErr(err, "converting limit to int32")
	}
	offset, err := safeConvertUintToInt32(args.Offset)
	if err != nil {
		return nil, convertErr(err, "converting offset to int32")
	}

	rows, err := r.conn.Query(ctx,
		`SELECT `+saleColumns+` FROM sales ORDER BY created_at DESC, folio DESC LIMIT $1 OFFSET $2`,
		limit,
		offset,
	)
	if err != nil {
		return nil, convertErr(err, "listing sales")
	}
	sales, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Sale, error) {
		sale, scanErr := scanSale(row)
		if scanErr != nil {
			return domain.Sale{}, scanErr
		}
		return *sale, nil
	})
	if err != nil {
		return nil, convertErr(err, "scanning sales")
	}
	return sales, nil
}

func scanSale(row pgx.Row) (*domain.Sale, error) {
	var (
		sale     domain.Sale
		lines    []byte
		payments []byte
	)
	err := row.Scan(
		&sale.ID,
		&sale.CreatedAt,
		&sale.UpdatedAt,
		&sale.Folio,
		&sale.CustomerID,
		&sale.EmployeeID,
		&lines,
		&payments,
		&sale.PointsUsed,
		&sale.GrossTotal,
		&sale.Profit,
		&sale.Subtotal,
		&sale.Tax,
		&sale.Total,
		&sale.Status,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if err = json.Unmarshal(lines, &sale.Lines); err != nil {
		return nil, fmt.Errorf("decode sale lines: %w", err)
	}
	if err = json.Unmarshal(payments, &sale.Payments); err != nil {
		return nil, fmt.Errorf("decode payments: %w", err)
	}
	return &sale, nil
}
