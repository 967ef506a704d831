package api

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/fsdevblog/groph-pos/internal/service"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderServicer interface {
	Create(ctx context.Context, args service.CreateOrderArgs) (*domain.Order, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error)
	UpdateState(ctx context.Context, id uuid.UUID, target string) (*domain.Order, error)
}

type SaleServicer interface {
	Create(ctx context.Context, args service.CreateSaleArgs) (*service.CreatedSale, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	List(ctx context.Context, args service.ListSalesArgs) ([]domain.Sale, error)
	Cancel(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	AccruePayment(ctx context.Context, id uuid.UUID, method string, amount decimal.Decimal) (*domain.Sale, error)
	RemovePayment(ctx context.Context, id uuid.UUID, index int) (*domain.Sale, error)
}
