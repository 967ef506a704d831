package memrepo

import (
	"context"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/shopspring/decimal"
)

type PartyRepository struct {
	sess session
}

func (p *PartyRepository) FindCustomerByRef(ctx context.Context, ref string) (*domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	s := p.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.customers {
		if c.Ref == ref {
			customer := *c
			return &customer, nil
		}
	}
	return nil, domain.ErrRecordNotFound
}

// FindCustomerByRefForUpdate транзакции в памяти выполняются по одной, отдельная блокировка строки не нужна.
func (p *PartyRepository) FindCustomerByRefForUpdate(ctx context.Context, ref string) (*domain.Customer, error) {
	return p.FindCustomerByRef(ctx, ref)
}

func (p *PartyRepository) FindCustomerByID(ctx context.Context, id int64) (*domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	s := p.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	customer := *c
	return &customer, nil
}

func (p *PartyRepository) FindEmployeeByID(ctx context.Context, id int64) (*domain.Employee, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	s := p.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.employees[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	employee := *e
	return &employee, nil
}

// DebitPoints списывает баллы. Баланс не опускается ниже нуля.
func (p *PartyRepository) DebitPoints(ctx context.Context, customerID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err //nolint:wrapcheck
	}
	s := p.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[customerID]
	if !ok {
		return decimal.Zero, domain.ErrRecordNotFound
	}
	previous := c.Points
	c.Points = decimal.Max(decimal.Zero, c.Points.Sub(amount))
	p.sess.journal.record(func() {
		c.Points = previous
	})
	return c.Points, nil
}
