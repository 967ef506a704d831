package memrepo

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/fsdevblog/groph-pos/internal/repository/repoargs"
	"github.com/google/uuid"
)

type SaleRepository struct {
	sess session
}

func (r *SaleRepository) CreateSale(ctx context.Context, args repoargs.CreateSale) (*domain.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sales[args.ID]; exists {
		return nil, domain.ErrDuplicateKey
	}
	for _, existing := range s.sales {
		if existing.Folio == args.Folio {
			return nil, domain.ErrDuplicateKey
		}
	}

	now := time.Now().UTC()
	sale := &domain.Sale{
		ID:         args.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
		Folio:      args.Folio,
		CustomerID: args.CustomerID,
		EmployeeID: args.EmployeeID,
		Lines:      domain.SaleLines{Records: slices.Clone(args.Lines.Records)},
		Payments:   domain.PaymentLedger{Records: slices.Clone(args.Payments.Records)},
		PointsUsed: args.PointsUsed,
		GrossTotal: args.Totals.Gross,
		Profit:     args.Totals.Profit,
		Subtotal:   args.Totals.Subtotal,
		Tax:        args.Totals.Tax,
		Total:      args.Totals.Total,
		Status:     args.Status,
	}
	s.sales[sale.ID] = sale
	r.sess.journal.record(func() {
		delete(s.sales, sale.ID)
	})
	return copySale(sale), nil
}

func (r *SaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return copySale(sale), nil
}

func (r *SaleRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	return r.FindByID(ctx, id)
}

func (r *SaleRepository) UpdatePayments(ctx context.Context, args repoargs.UpdateSalePayments) (*domain.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, ok := s.sales[args.ID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	previous := *copySale(sale)
	sale.Payments = domain.PaymentLedger{Records: slices.Clone(args.Payments.Records)}
	sale.Status = args.Status
	sale.UpdatedAt = time.Now().UTC()
	r.sess.journal.record(func() {
		*sale = previous
	})
	return copySale(sale), nil
}

// List продажи от новых к старым.
func (r *SaleRepository) List(ctx context.Context, args repoargs.ListSales) ([]domain.Sale, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	s := r.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()

	sales := make([]domain.Sale, 0, len(s.sales))
	for _, sale := range s.sales {
		sales = append(sales, *copySale(sale))
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.Folio, a.Folio)
	})

	offset := min(int(args.Offset), len(sales))
	end := len(sales)
	if args.Limit > 0 {
		end = min(offset+int(args.Limit), len(sales))
	}
	return sales[offset:end], nil
}

func copySale(s *domain.Sale) *domain.Sale {
	sale := *s
	sale.Lines = domain.SaleLines{Records: slices.Clone(s.Lines.Records)}
	sale.Payments = domain.PaymentLedger{Records: slices.Clone(s.Payments.Records)}
	return &sale
}
