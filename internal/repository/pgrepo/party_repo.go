package pgrepo

import (
	"context"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/fsdevblog/groph-pos/pkg/uow"
	"github.com/shopspring/decimal"
)

type PartyRepository struct {
	conn uow.DBTX
}

func NewPartyRepository(conn uow.DBTX) *PartyRepository {
	return &PartyRepository{conn: conn}
}

const customerColumns = `id, ref, name, points`

func (p *PartyRepository) FindCustomerByRef(ctx context.Context, ref string) (*domain.Customer, error) {
	var c domain.Customer
	err := p.conn.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE ref = $1`, ref).
		Scan(&c.ID, &c.Ref, &c.Name, &c.Points)
	if err != nil {
		return nil, convertErr(err, "finding customer by ref `%s`", ref)
	}
	return &c, nil
}

func (p *PartyRepository) FindCustomerByRefForUpdate(ctx context.Context, ref string) (*domain.Customer, error) {
	var c domain.Customer
	err := p.conn.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE ref = $1 FOR UPDATE`, ref).
		Scan(&c.ID, &c.Ref, &c.Name, &c.Points)
	if err != nil {
		return nil, convertErr(err, "finding customer by ref `%s` for update", ref)
	}
	return &c, nil
}

func (p *PartyRepository) FindCustomerByID(ctx context.Context, id int64) (*domain.Customer, error) {
	var c domain.Customer
	err := p.conn.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id).
		Scan(&c.ID, &c.Ref, &c.Name, &c.Points)
	if err != nil {
		return nil, convertErr(err, "finding customer by id %d", id)
	}
	return &c, nil
}

func (p *PartyRepository) FindEmployeeByID(ctx context.Context, id int64) (*domain.Employee, error) {
	var e domain.Employee
	err := p.conn.QueryRow(ctx, `SELECT id, ref, name FROM employees WHERE id = $1`, id).
		Scan(&e.ID, &e.Ref, &e.Name)
	if err != nil {
		return nil, convertErr(err, "finding employee by id %d", id)
	}
	return &e, nil
}

const customersDebitPoints = `
UPDATE customers
SET points = GREATEST(0, points - $2)
WHERE id = $1
RETURNING points`

func (p *PartyRepository) DebitPoints(ctx context.Context, customerID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	if err := p.conn.QueryRow(ctx, customersDebitPoints, customerID, amount).Scan(&balance); err != nil {
		return decimal.Zero, convertErr(err, "debiting %s points from customer %d", amount, customerID)
	}
	return balance, nil
}
