package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/fsdevblog/groph-pos/internal/repository/repoargs"
	"github.com/fsdevblog/groph-pos/pkg/uow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type OrderService struct {
	uow            uow.UOW
	orderRepo      OrderRepository
	productRepo    ProductRepository
	notifier       Notifier
	metrics        MetricsRecorder
	l              *logrus.Entry
	numbers        *codeGenerator
	storageTimeout time.Duration
	notifyTimeout  time.Duration
	notifications  sync.WaitGroup
}

func NewOrderService(u uow.UOW, opts Options) (*OrderService, error) {
	opts = opts.withDefaults()

	orderRepo, err := uow.GetRepositoryAs[OrderRepository](u, uow.RepositoryName(repoargs.OrderRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	productRepo, err := uow.GetRepositoryAs[ProductRepository](u, uow.RepositoryName(repoargs.ProductRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &OrderService{
		uow:         u,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		notifier:    opts.Notifier,
		metrics:     opts.Metrics,
		l: opts.Logger.WithFields(logrus.Fields{
			"component": "service",
			"module":    "order",
		}),
		numbers:        newCodeGenerator("ORD"),
		storageTimeout: opts.StorageTimeout,
		notifyTimeout:  opts.NotifyTimeout,
	}, nil
}

type CreateOrderArgs struct {
	CustomerID   int64
	Items        []domain.OrderItem
	ClientTotal  decimal.Decimal
	DeliveryType domain.DeliveryType
}

// Create создает заказ в статусе PENDING.
//
// Алгоритм работы:
//  1. Проверяет корзину (непустая, количества > 0).
//  2. Получает актуальные цены из каталога; отсутствующий товар - NotFoundError.
//  3. Пересчитывает сумму и сравнивает с присланной клиентом после округления до копеек.
//     Несовпадение - ValidationError(ReasonTotalMismatch): защита от подмены цен на клиенте.
//  4. Сохраняет заказ и асинхронно уведомляет дашборды. Ошибка уведомления на результат не влияет.
func (o *OrderService) Create(ctx context.Context, args CreateOrderArgs) (*domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.Create")
	defer span.End()

	if len(args.Items) == 0 {
		return nil, domain.NewValidationError(domain.ReasonEmptyCart, "order has no items")
	}
	items := make([]domain.OrderItem, len(args.Items))
	for i, item := range args.Items {
		valid, err := domain.NewOrderItem(item.ProductID, item.Quantity)
		if err != nil {
			return nil, err //nolint:wrapcheck
		}
		items[i] = valid
	}

	storageCtx, cancel := context.WithTimeout(ctx, o.storageTimeout)
	defer cancel()

	products, err := o.productRepo.GetByIDs(storageCtx, orderProductIDs(items))
	if err != nil {
		return nil, storageErr("fetching products", err)
	}
	catalog := indexProducts(products)

	serverTotal := decimal.Zero
	for _, item := range items {
		product, ok := catalog[item.ProductID]
		if !ok {
			return nil, domain.NewNotFoundError(domain.EntityProduct, item.ProductID)
		}
		serverTotal = serverTotal.Add(product.Price.Mul(decimal.NewFromInt(item.Quantity)))
	}

	if !domain.MoneyEqual(serverTotal, args.ClientTotal) {
		return nil, domain.NewValidationError(
			domain.ReasonTotalMismatch,
			"client total %s does not match %s",
			args.ClientTotal.StringFixed(2), //nolint:mnd
			serverTotal.StringFixed(2),      //nolint:mnd
		)
	}

	deliveryType := args.DeliveryType
	if deliveryType == "" {
		deliveryType = domain.DeliveryPickup
	}

	order, err := o.orderRepo.CreateOrder(storageCtx, repoargs.CreateOrder{
		ID:           uuid.New(),
		Number:       o.numbers.Next(),
		CustomerID:   args.CustomerID,
		DeliveryType: deliveryType,
		Items:        items,
		Total:        serverTotal,
	})
	if err != nil {
		return nil, storageErr("creating order", err)
	}

	o.metrics.OrderCreated()
	o.notifyCreated(*order)

	return order, nil
}

// notifyCreated отправляет событие в фоне. Контекст запроса не используется: уведомление не должно
// обрываться вместе с ответом клиенту.
func (o *OrderService) notifyCreated(order domain.Order) {
	o.notifications.Add(1)
	go func() {
		defer o.notifications.Done()

		ctx, cancel := context.WithTimeout(context.Background(), o.notifyTimeout)
		defer cancel()

		event := domain.OrderCreatedEvent{Order: order, OccurredAt: time.Now().UTC()}
		if err := o.notifier.Publish(ctx, event); err != nil {
			o.l.WithError(err).
				WithField("order", order.Number).
				Warn("order created notification failed")
		}
	}()
}

// WaitNotifications ждет завершения отправленных в фоне уведомлений. Используется при остановке приложения.
func (o *OrderService) WaitNotifications() {
	o.notifications.Wait()
}

func (o *OrderService) Get(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, o.storageTimeout)
	defer cancel()

	order, err := o.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("finding order", err, domain.EntityOrder, id)
	}
	return order, nil
}

// ListByCustomer возвращает заказы покупателя, отсортированные по дате создания по убыванию.
func (o *OrderService) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, o.storageTimeout)
	defer cancel()

	orders, err := o.orderRepo.GetByCustomerID(ctx, customerID)
	if err != nil {
		return nil, storageErr("listing orders", err)
	}
	return orders, nil
}

// UpdateState административный перевод заказа в другой статус.
// Неизвестный статус - ValidationError, недопустимый переход - ConflictError.
// В CONVERTED заказ переводится только созданием продажи, так как конвертированный заказ обязан ссылаться на нее.
func (o *OrderService) UpdateState(ctx context.Context, id uuid.UUID, target string) (*domain.Order, error) {
	status, ok := domain.ParseOrderStatus(target)
	if !ok {
		return nil, domain.NewValidationError(domain.ReasonInvalidState, "unknown order state `%s`", target)
	}
	if status == domain.OrderStatusConverted {
		return nil, domain.NewConflictError(domain.EntityOrder, "order is converted only by registering a sale")
	}

	ctx, cancel := context.WithTimeout(ctx, o.storageTimeout)
	defer cancel()

	var updated *domain.Order
	txErr := o.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repo, repoErr := uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName))
		if repoErr != nil {
			return repoErr //nolint:wrapcheck
		}
		order, findErr := repo.FindByIDForUpdate(c, id)
		if findErr != nil {
			return lookupErr("finding order", findErr, domain.EntityOrder, id)
		}
		if !order.Status.CanTransitionTo(status) {
			return domain.NewConflictError(
				domain.EntityOrder,
				"transition %s -> %s is not allowed",
				order.Status,
				status,
			)
		}
		var updErr error
		updated, updErr = repo.UpdateStatus(c, repoargs.UpdateOrderStatus{ID: id, Status: status})
		return storageErr("updating order state", updErr)
	})
	if txErr != nil {
		return nil, fmt.Errorf("updating order state: %w", storageErr("updating order state", txErr))
	}

	o.l.WithFields(logrus.Fields{"order": updated.Number, "status": updated.Status}).Info("order state updated")
	return updated, nil
}

func orderProductIDs(items []domain.OrderItem) []int64 {
	seen := make(map[int64]struct{}, len(items))
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func indexProducts(products []domain.Product) map[int64]domain.Product {
	index := make(map[int64]domain.Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}
	return index
}
