package service

import (
	"context"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/fsdevblog/groph-pos/internal/repository/repoargs"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

// ProductRepository шлюз каталога. Цена и себестоимость только читаются, меняется лишь остаток.
type ProductRepository interface {
	GetByIDs(ctx context.Context, ids []int64) ([]domain.Product, error)
	// AdjustStock атомарно меняет остаток на delta. Уменьшение проходит только если остаток не станет
	// отрицательным, иначе возвращается *domain.InsufficientStockError.
	AdjustStock(ctx context.Context, productID int64, delta int64) (int64, error)
}

// PartyRepository шлюз покупателей и сотрудников.
type PartyRepository interface {
	FindCustomerByRef(ctx context.Context, ref string) (*domain.Customer, error)
	// FindCustomerByRefForUpdate как FindCustomerByRef, но блокирует строку покупателя до конца транзакции.
	FindCustomerByRefForUpdate(ctx context.Context, ref string) (*domain.Customer, error)
	FindCustomerByID(ctx context.Context, id int64) (*domain.Customer, error)
	FindEmployeeByID(ctx context.Context, id int64) (*domain.Employee, error)
	// DebitPoints списывает баллы, не опуская баланс ниже нуля. Возвращает новый баланс.
	DebitPoints(ctx context.Context, customerID int64, amount decimal.Decimal) (decimal.Decimal, error)
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, args repoargs.CreateOrder) (*domain.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByCustomerID(ctx context.Context, customerID int64) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, args repoargs.UpdateOrderStatus) (*domain.Order, error)
}

type SaleRepository interface {
	CreateSale(ctx context.Context, args repoargs.CreateSale) (*domain.Sale, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	UpdatePayments(ctx context.Context, args repoargs.UpdateSalePayments) (*domain.Sale, error)
	List(ctx context.Context, args repoargs.ListSales) ([]domain.Sale, error)
}

// Notifier канал уведомлений о новых заказах (дашборды в реальном времени). Доставка не гарантируется.
type Notifier interface {
	Publish(ctx context.Context, event domain.OrderCreatedEvent) error
}

// IdempotencyStore хранит ключи дедупликации повторных запросов на создание продажи.
type IdempotencyStore interface {
	// Acquire помечает ключ как "в работе". Если ключ уже завершен, возвращает id продажи и acquired=false.
	// Если ключ в работе, возвращает пустой id и acquired=false.
	Acquire(ctx context.Context, key string) (saleID string, acquired bool, err error)
	Complete(ctx context.Context, key string, saleID uuid.UUID) error
	Release(ctx context.Context, key string) error
}

// MetricsRecorder метрики транзакционного ядра.
type MetricsRecorder interface {
	OrderCreated()
	SaleCreated(status domain.SaleStatusType)
	SaleCancelled()
	PaymentAccrued(method domain.PaymentMethodType)
	StockRejected(productID int64)
}
