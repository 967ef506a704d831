package memrepo

import (
	"context"
	"slices"
	"time"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/fsdevblog/groph-pos/internal/repository/repoargs"
	"github.com/google/uuid"
)

type OrderRepository struct {
	sess session
}

func (o *OrderRepository) CreateOrder(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	s := o.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[args.ID]; exists {
		return nil, domain.ErrDuplicateKey
	}
	now := time.Now().UTC()
	order := &domain.Order{
		ID:           args.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
		Number:       args.Number,
		CustomerID:   args.CustomerID,
		DeliveryType: args.DeliveryType,
		Items:        slices.Clone(args.Items),
		Total:        args.Total,
		Status:       domain.OrderStatusPending,
	}
	s.orders[order.ID] = order
	o.sess.journal.record(func() {
		delete(s.orders, order.ID)
	})
	return copyOrder(order), nil
}

func (o *OrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	s := o.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	return copyOrder(order), nil
}

// FindByIDForUpdate транзакции в памяти выполняются по одной, отдельная блокировка строки не нужна.
func (o *OrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return o.FindByID(ctx, id)
}

func (o *OrderRepository) GetByCustomerID(ctx context.Context, customerID int64) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	s := o.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()

	orders := make([]domain.Order, 0)
	for _, order := range s.orders {
		if order.CustomerID == customerID {
			orders = append(orders, *copyOrder(order))
		}
	}
	slices.SortFunc(orders, func(a, b domain.Order) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return orders, nil
}

func (o *OrderRepository) UpdateStatus(ctx context.Context, args repoargs.UpdateOrderStatus) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	s := o.sess.store
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[args.ID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	previous := *order
	order.Status = args.Status
	if args.SaleID != nil {
		saleID := *args.SaleID
		order.SaleID = &saleID
	}
	order.UpdatedAt = time.Now().UTC()
	o.sess.journal.record(func() {
		*order = previous
	})
	return copyOrder(order), nil
}

func copyOrder(o *domain.Order) *domain.Order {
	order := *o
	order.Items = slices.Clone(o.Items)
	if o.SaleID != nil {
		saleID := *o.SaleID
		order.SaleID = &saleID
	}
	return &order
}
