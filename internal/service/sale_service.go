package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/fsdevblog/groph-pos/internal/repository/repoargs"
	"github.com/fsdevblog/groph-pos/pkg/uow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultSalesPageSize = 50
	maxSalesPageSize     = 200
)

type SaleService struct {
	uow            uow.UOW
	saleRepo       SaleRepository
	partyRepo      PartyRepository
	inventory      *InventoryAdjuster
	payments       *PaymentReconciler
	idempotency    IdempotencyStore
	metrics        MetricsRecorder
	locks          *keyedLocker
	folios         *codeGenerator
	l              *logrus.Entry
	taxRate        decimal.Decimal
	storeName      string
	storageTimeout time.Duration
}

func NewSaleService(u uow.UOW, opts Options) (*SaleService, error) {
	opts = opts.withDefaults()

	saleRepo, err := uow.GetRepositoryAs[SaleRepository](u, uow.RepositoryName(repoargs.SaleRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	partyRepo, err := uow.GetRepositoryAs[PartyRepository](u, uow.RepositoryName(repoargs.PartyRepoName))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return &SaleService{
		uow:         u,
		saleRepo:    saleRepo,
		partyRepo:   partyRepo,
		inventory:   NewInventoryAdjuster(opts.Metrics),
		payments:    NewPaymentReconciler(),
		idempotency: opts.Idempotency,
		metrics:     opts.Metrics,
		locks:       newKeyedLocker(),
		folios:      newCodeGenerator("VEN"),
		l: opts.Logger.WithFields(logrus.Fields{
			"component": "service",
			"module":    "sale",
		}),
		taxRate:        *opts.TaxRate,
		storeName:      opts.StoreName,
		storageTimeout: opts.StorageTimeout,
	}, nil
}

type CreateSaleArgs struct {
	// CustomerRef пустая строка означает покупателя "с улицы".
	CustomerRef    string
	EmployeeID     int64
	Items          []domain.OrderItem
	Method         string
	AmountPaid     decimal.Decimal
	PointsUsed     decimal.Decimal
	OrderID        *uuid.UUID
	IdempotencyKey string
}

// CreatedSale зарегистрированная продажа вместе с чеком.
type CreatedSale struct {
	Sale    *domain.Sale
	Receipt domain.Receipt
}

type ListSalesArgs struct {
	Limit  uint
	Offset uint
}

// Create регистрирует продажу.
//
// Вся работа идет в одной единице работы: резерв остатков, запись продажи, списание баллов
// и конвертация заказа. Любая ошибка откатывает все шаги, включая уже списанные остатки.
// Баллы и итог проверяются до изменения остатков.
//
// Повтор запроса с тем же IdempotencyKey возвращает уже созданную продажу. Пока первый запрос
// выполняется, повтор получает ConflictError.
func (s *SaleService) Create(ctx context.Context, args CreateSaleArgs) (_ *CreatedSale, err error) {
	ctx, span := tracer.Start(ctx, "SaleService.Create", trace.WithAttributes(
		attribute.String("sale.method", args.Method),
		attribute.Int("sale.items", len(args.Items)),
		attribute.Bool("sale.idempotent", args.IdempotencyKey != ""),
	))
	defer func() { endSpan(span, err) }()

	method, items, err := s.validateCreate(args)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	if args.IdempotencyKey != "" && s.idempotency != nil {
		replay, acquired, acqErr := s.acquireKey(ctx, args.IdempotencyKey)
		if acqErr != nil {
			return nil, acqErr
		}
		if !acquired {
			return replay, nil
		}
	}

	if args.OrderID != nil {
		unlock, lockErr := s.locks.Lock(ctx, "order:"+args.OrderID.String())
		if lockErr != nil {
			s.releaseKey(args.IdempotencyKey)
			return nil, storageErr("waiting for order lock", lockErr)
		}
		defer unlock()
	}

	var created *CreatedSale
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		var createErr error
		created, createErr = s.createInTx(c, tx, args, method, items)
		return createErr
	})
	if txErr != nil {
		s.releaseKey(args.IdempotencyKey)
		return nil, fmt.Errorf("create sale: %w", storageErr("creating sale", txErr))
	}

	s.completeKey(args.IdempotencyKey, created.Sale.ID)

	s.metrics.SaleCreated(created.Sale.Status)
	s.l.WithFields(logrus.Fields{
		"folio":  created.Sale.Folio,
		"status": created.Sale.Status,
		"total":  created.Sale.Total.String(),
	}).Info("sale registered")

	return created, nil
}

func (s *SaleService) validateCreate(args CreateSaleArgs) (domain.PaymentMethodType, []domain.OrderItem, error) {
	method, ok := domain.ParsePaymentMethod(args.Method)
	if !ok {
		return "", nil, domain.NewValidationError(domain.ReasonInvalidMethod, "unknown payment method `%s`", args.Method)
	}
	if args.AmountPaid.IsNegative() {
		return "", nil, domain.NewValidationError(domain.ReasonInvalidAmount, "amount paid must not be negative")
	}
	if args.PointsUsed.IsNegative() {
		return "", nil, domain.NewValidationError(domain.ReasonInvalidAmount, "points used must not be negative")
	}
	if len(args.Items) == 0 {
		return "", nil, domain.NewValidationError(domain.ReasonEmptyCart, "sale has no items")
	}
	items := make([]domain.OrderItem, len(args.Items))
	for i, item := range args.Items {
		valid, err := domain.NewOrderItem(item.ProductID, item.Quantity)
		if err != nil {
			return "", nil, err
		}
		items[i] = valid
	}
	return method, items, nil
}

type saleRepos struct {
	products ProductRepository
	parties  PartyRepository
	orders   OrderRepository
	sales    SaleRepository
}

// findSaleCustomer находит покупателя продажи. При списании баллов строка покупателя блокируется
// до конца транзакции: баланс проверяется и списывается без гонки с параллельными продажами.
func findSaleCustomer(ctx context.Context, parties PartyRepository, ref string, pointsUsed decimal.Decimal) (*domain.Customer, error) {
	if ref == "" {
		ref = domain.WalkInCustomerRef
	}
	find := parties.FindCustomerByRef
	if pointsUsed.IsPositive() {
		find = parties.FindCustomerByRefForUpdate
	}
	customer, err := find(ctx, ref)
	if err != nil {
		return nil, lookupErr("finding customer", err, domain.EntityCustomer, ref)
	}
	return customer, nil
}

func saleReposFromTX(tx uow.TX) (saleRepos, error) {
	var (
		r   saleRepos
		err error
	)
	if r.products, err = uow.GetAs[ProductRepository](tx, uow.RepositoryName(repoargs.ProductRepoName)); err != nil {
		return r, err //nolint:wrapcheck
	}
	if r.parties, err = uow.GetAs[PartyRepository](tx, uow.RepositoryName(repoargs.PartyRepoName)); err != nil {
		return r, err //nolint:wrapcheck
	}
	if r.orders, err = uow.GetAs[OrderRepository](tx, uow.RepositoryName(repoargs.OrderRepoName)); err != nil {
		return r, err //nolint:wrapcheck
	}
	if r.sales, err = uow.GetAs[SaleRepository](tx, uow.RepositoryName(repoargs.SaleRepoName)); err != nil {
		return r, err //nolint:wrapcheck
	}
	return r, nil
}

func (s *SaleService) createInTx(
	ctx context.Context,
	tx uow.TX,
	args CreateSaleArgs,
	method domain.PaymentMethodType,
	items []domain.OrderItem,
) (*CreatedSale, error) {
	repos, err := saleReposFromTX(tx)
	if err != nil {
		return nil, err
	}

	customer, err := findSaleCustomer(ctx, repos.parties, args.CustomerRef, args.PointsUsed)
	if err != nil {
		return nil, err
	}
	employee, err := repos.parties.FindEmployeeByID(ctx, args.EmployeeID)
	if err != nil {
		return nil, lookupErr("finding employee", err, domain.EntityEmployee, args.EmployeeID)
	}

	var order *domain.Order
	if args.OrderID != nil {
		order, err = repos.orders.FindByIDForUpdate(ctx, *args.OrderID)
		if err != nil {
			return nil, lookupErr("finding order", err, domain.EntityOrder, *args.OrderID)
		}
		if order.Status.IsTerminal() {
			return nil, domain.NewConflictError(domain.EntityOrder, "order %s is already %s", order.Number, order.Status)
		}
	}

	if args.PointsUsed.GreaterThan(customer.Points) {
		return nil, domain.NewValidationError(
			domain.ReasonPointsExceedBalance,
			"points %s exceed customer balance %s",
			args.PointsUsed.String(),
			customer.Points.String(),
		)
	}

	lines, err := s.snapshotLines(ctx, repos.products, items)
	if err != nil {
		return nil, err
	}
	totals, err := domain.ComputeTotals(lines, args.PointsUsed, s.taxRate)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	ledger, err := s.payments.InitialLedger(method, args.AmountPaid, args.PointsUsed)
	if err != nil {
		return nil, err
	}
	status := s.payments.InitialStatus(method, args.AmountPaid, args.PointsUsed, totals.Total)

	if err = s.inventory.ReserveAll(ctx, repos.products, lines.Records); err != nil {
		return nil, err
	}

	sale, err := repos.sales.CreateSale(ctx, repoargs.CreateSale{
		ID:         uuid.New(),
		Folio:      s.folios.Next(),
		CustomerID: customer.ID,
		EmployeeID: employee.ID,
		Lines:      lines,
		Payments:   ledger,
		PointsUsed: args.PointsUsed,
		Totals:     totals,
		Status:     status,
	})
	if err != nil {
		return nil, storageErr("persisting sale", err)
	}

	if args.PointsUsed.IsPositive() {
		if _, err = repos.parties.DebitPoints(ctx, customer.ID, args.PointsUsed); err != nil {
			return nil, lookupErr("debiting points", err, domain.EntityCustomer, customer.Ref)
		}
	}

	if order != nil {
		_, err = repos.orders.UpdateStatus(ctx, repoargs.UpdateOrderStatus{
			ID:     order.ID,
			Status: domain.OrderStatusConverted,
			SaleID: &sale.ID,
		})
		if err != nil {
			return nil, lookupErr("converting order", err, domain.EntityOrder, order.ID)
		}
	}

	return &CreatedSale{
		Sale:    sale,
		Receipt: buildReceipt(s.storeName, sale, receiptParty{Customer: customer.Name, Employee: employee.Name}),
	}, nil
}

// snapshotLines фиксирует название, цену и себестоимость товаров на момент продажи.
func (s *SaleService) snapshotLines(
	ctx context.Context,
	products ProductRepository,
	items []domain.OrderItem,
) (domain.SaleLines, error) {
	found, err := products.GetByIDs(ctx, orderProductIDs(items))
	if err != nil {
		return domain.SaleLines{}, storageErr("fetching products", err)
	}
	catalog := indexProducts(found)

	records := make([]domain.SaleLine, 0, len(items))
	for _, item := range items {
		product, ok := catalog[item.ProductID]
		if !ok {
			return domain.SaleLines{}, domain.NewNotFoundError(domain.EntityProduct, item.ProductID)
		}
		line, lineErr := domain.NewSaleLine(product, item.Quantity)
		if lineErr != nil {
			return domain.SaleLines{}, lineErr //nolint:wrapcheck
		}
		records = append(records, line)
	}
	return domain.SaleLines{Records: records}, nil
}

// acquireKey захватывает ключ идемпотентности. Если ключ уже завершен, возвращает сохраненную продажу.
func (s *SaleService) acquireKey(ctx context.Context, key string) (*CreatedSale, bool, error) {
	saleID, acquired, err := s.idempotency.Acquire(ctx, key)
	if err != nil {
		return nil, false, storageErr("acquiring idempotency key", err)
	}
	if acquired {
		return nil, true, nil
	}
	if saleID == "" {
		return nil, false, domain.NewConflictError(domain.EntitySale, "request `%s` is already in progress", key)
	}
	id, err := uuid.Parse(saleID)
	if err != nil {
		return nil, false, domain.NewPersistenceError("reading idempotency key", err)
	}
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, false, lookupErr("finding sale", err, domain.EntitySale, id)
	}
	return &CreatedSale{Sale: sale, Receipt: s.receiptFor(ctx, sale)}, false, nil
}

// completeKey привязывает ключ к созданной продаже. Продажа уже зафиксирована, поэтому запись идет
// в собственном контексте: отмена запроса не должна оставить ключ в работе до истечения TTL.
func (s *SaleService) completeKey(key string, saleID uuid.UUID) {
	if key == "" || s.idempotency == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.storageTimeout)
	defer cancel()
	if err := s.idempotency.Complete(ctx, key, saleID); err != nil {
		s.l.WithError(err).WithField("key", key).Warn("failed to complete idempotency key")
	}
}

// releaseKey освобождает ключ после неудачной попытки, чтобы клиент мог повторить запрос.
func (s *SaleService) releaseKey(key string) {
	if key == "" || s.idempotency == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.storageTimeout)
	defer cancel()
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.l.WithError(err).WithField("key", key).Warn("failed to release idempotency key")
	}
}

// receiptFor восстанавливает чек сохраненной продажи. Если участников найти не удалось, в чек идут их id.
func (s *SaleService) receiptFor(ctx context.Context, sale *domain.Sale) domain.Receipt {
	party := receiptParty{
		Customer: strconv.FormatInt(sale.CustomerID, 10),
		Employee: strconv.FormatInt(sale.EmployeeID, 10),
	}
	if customer, err := s.partyRepo.FindCustomerByID(ctx, sale.CustomerID); err == nil {
		party.Customer = customer.Name
	}
	if employee, err := s.partyRepo.FindEmployeeByID(ctx, sale.EmployeeID); err == nil {
		party.Employee = employee.Name
	}
	return buildReceipt(s.storeName, sale, party)
}

// Get возвращает продажу с платежами, отсортированными по дате.
func (s *SaleService) Get(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("finding sale", err, domain.EntitySale, id)
	}
	sale.Payments = domain.PaymentLedger{Records: sale.Payments.Sorted()}
	return sale, nil
}

func (s *SaleService) List(ctx context.Context, args ListSalesArgs) ([]domain.Sale, error) {
	limit := args.Limit
	if limit == 0 {
		limit = defaultSalesPageSize
	}
	limit = min(limit, maxSalesPageSize)

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	sales, err := s.saleRepo.List(ctx, repoargs.ListSales{Limit: limit, Offset: args.Offset})
	if err != nil {
		return nil, storageErr("listing sales", err)
	}
	return sales, nil
}

// Cancel отменяет продажу в ожидании: возвращает на склад зафиксированные количества и очищает платежи.
// Списанные баллы не возвращаются.
func (s *SaleService) Cancel(ctx context.Context, id uuid.UUID) (_ *domain.Sale, err error) {
	ctx, span := tracer.Start(ctx, "SaleService.Cancel", trace.WithAttributes(attribute.String("sale.id", id.String())))
	defer func() { endSpan(span, err) }()

	sale, err := s.mutateSale(ctx, id, func(c context.Context, repos saleRepos, sale *domain.Sale) (*domain.Sale, error) {
		if sale.Status != domain.SaleStatusPending {
			return nil, domain.NewConflictError(domain.EntitySale, "cannot cancel %s sale", sale.Status)
		}
		if err := s.inventory.ReleaseAll(c, repos.products, sale.Lines.Records); err != nil {
			return nil, err
		}
		return repos.sales.UpdatePayments(c, repoargs.UpdateSalePayments{
			ID:       sale.ID,
			Payments: domain.PaymentLedger{},
			Status:   domain.SaleStatusCancelled,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("cancel sale: %w", err)
	}

	s.metrics.SaleCancelled()
	s.l.WithField("folio", sale.Folio).Info("sale cancelled")
	return sale, nil
}

// AccruePayment добавляет частичный платеж и пересчитывает статус продажи.
func (s *SaleService) AccruePayment(
	ctx context.Context,
	id uuid.UUID,
	method string,
	amount decimal.Decimal,
) (*domain.Sale, error) {
	ctx, span := tracer.Start(ctx, "SaleService.AccruePayment")
	defer span.End()

	parsed, ok := domain.ParsePaymentMethod(method)
	if !ok {
		return nil, domain.NewValidationError(domain.ReasonInvalidMethod, "unknown payment method `%s`", method)
	}

	sale, err := s.mutateSale(ctx, id, func(c context.Context, repos saleRepos, sale *domain.Sale) (*domain.Sale, error) {
		ledger, status, accrueErr := s.payments.Accrue(sale, parsed, amount)
		if accrueErr != nil {
			return nil, accrueErr
		}
		return repos.sales.UpdatePayments(c, repoargs.UpdateSalePayments{
			ID:       sale.ID,
			Payments: ledger,
			Status:   status,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("accrue payment: %w", err)
	}

	s.metrics.PaymentAccrued(parsed)
	return sale, nil
}

// RemovePayment удаляет платеж по индексу в отсортированном по дате списке.
func (s *SaleService) RemovePayment(ctx context.Context, id uuid.UUID, index int) (*domain.Sale, error) {
	ctx, span := tracer.Start(ctx, "SaleService.RemovePayment")
	defer span.End()

	sale, err := s.mutateSale(ctx, id, func(c context.Context, repos saleRepos, sale *domain.Sale) (*domain.Sale, error) {
		ledger, status, removeErr := s.payments.Remove(sale, index)
		if removeErr != nil {
			return nil, removeErr
		}
		return repos.sales.UpdatePayments(c, repoargs.UpdateSalePayments{
			ID:       sale.ID,
			Payments: ledger,
			Status:   status,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("remove payment: %w", err)
	}
	return sale, nil
}

type saleMutation func(ctx context.Context, repos saleRepos, sale *domain.Sale) (*domain.Sale, error)

// mutateSale выполняет изменение продажи под блокировкой процесса и блокировкой строки в хранилище.
func (s *SaleService) mutateSale(ctx context.Context, id uuid.UUID, mutate saleMutation) (*domain.Sale, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	unlock, err := s.locks.Lock(ctx, "sale:"+id.String())
	if err != nil {
		return nil, storageErr("waiting for sale lock", err)
	}
	defer unlock()

	var updated *domain.Sale
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		repos, repoErr := saleReposFromTX(tx)
		if repoErr != nil {
			return repoErr
		}
		sale, findErr := repos.sales.FindByIDForUpdate(c, id)
		if findErr != nil {
			return lookupErr("finding sale", findErr, domain.EntitySale, id)
		}
		var mutateErr error
		updated, mutateErr = mutate(c, repos, sale)
		return storageErr("updating sale", mutateErr)
	})
	if txErr != nil {
		return nil, storageErr("updating sale", txErr)
	}
	updated.Payments = domain.PaymentLedger{Records: updated.Payments.Sorted()}
	return updated, nil
}
