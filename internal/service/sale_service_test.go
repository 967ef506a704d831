package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/fsdevblog/groph-pos/internal/repository/memrepo"
	"github.com/fsdevblog/groph-pos/internal/repository/repoargs"
	"github.com/fsdevblog/groph-pos/internal/service/mocks"
	"github.com/fsdevblog/groph-pos/pkg/uow"
	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// SaleServiceTestSuite проверяет продажи на хранилище в памяти: откаты и конкурентное списание
// остатков нельзя проверить на моках.
type SaleServiceTestSuite struct {
	suite.Suite
	store       *memrepo.Store
	uow         *memrepo.UnitOfWork
	saleService *SaleService
	customer    domain.Customer
	employee    domain.Employee
}

func TestSaleServiceSuite(t *testing.T) {
	suite.Run(t, new(SaleServiceTestSuite))
}

func (s *SaleServiceTestSuite) SetupTest() {
	s.store = memrepo.NewStore()
	s.uow = memrepo.NewUnitOfWork(s.store)

	s.store.PutProduct(domain.Product{
		ID:       1,
		Name:     gofakeit.ProductName(),
		Price:    decimal.RequireFromString("25.00"),
		UnitCost: decimal.RequireFromString("10.00"),
		Stock:    10,
	})
	s.store.PutProduct(domain.Product{
		ID:       2,
		Name:     gofakeit.ProductName(),
		Price:    decimal.RequireFromString("50.00"),
		UnitCost: decimal.RequireFromString("30.00"),
		Stock:    1,
	})
	s.store.AddCustomer(domain.Customer{Ref: domain.WalkInCustomerRef, Name: "Walk-in"})
	s.customer = s.store.AddCustomer(domain.Customer{
		Ref:    gofakeit.Username(),
		Name:   gofakeit.Name(),
		Points: decimal.NewFromInt(40),
	})
	s.employee = s.store.AddEmployee(domain.Employee{Ref: gofakeit.Username(), Name: gofakeit.Name()})

	saleService, err := NewSaleService(s.uow, Options{
		Idempotency: memrepo.NewIdempotencyStore(0),
		StoreName:   "Test Store",
	})
	s.Require().NoError(err)
	s.saleService = saleService
}

func (s *SaleServiceTestSuite) stock(productID int64) int64 {
	stock, ok := s.store.Stock(productID)
	s.Require().True(ok)
	return stock
}

func (s *SaleServiceTestSuite) customerPoints() decimal.Decimal {
	parties, err := uow.GetRepositoryAs[PartyRepository](s.uow, uow.RepositoryName(repoargs.PartyRepoName))
	s.Require().NoError(err)
	c, err := parties.FindCustomerByID(context.Background(), s.customer.ID)
	s.Require().NoError(err)
	return c.Points
}

func (s *SaleServiceTestSuite) cashSale(items ...domain.OrderItem) CreateSaleArgs {
	return CreateSaleArgs{
		CustomerRef: s.customer.Ref,
		EmployeeID:  s.employee.ID,
		Items:       items,
		Method:      "cash",
		AmountPaid:  decimal.NewFromInt(1000),
	}
}

func (s *SaleServiceTestSuite) TestCreateCompletedCashSale() {
	created, err := s.saleService.Create(context.Background(), s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 4}))
	s.Require().NoError(err)

	sale := created.Sale
	s.Equal(domain.SaleStatusCompleted, sale.Status)
	s.Regexp(`^VEN-\d+-\d{4}$`, sale.Folio)
	s.True(sale.GrossTotal.Equal(decimal.NewFromInt(100)))
	s.True(sale.Total.Equal(decimal.NewFromInt(100)))
	s.True(sale.Tax.Equal(decimal.RequireFromString("8.00")))
	s.True(sale.Subtotal.Equal(decimal.RequireFromString("92.00")))
	s.True(sale.Profit.Equal(decimal.NewFromInt(60)))
	s.Equal(int64(6), s.stock(1))

	s.Require().NotEmpty(created.Receipt.Lines)
	s.Equal(domain.ReceiptHeading, created.Receipt.Lines[0].Kind)
	s.Equal("Test Store", created.Receipt.Lines[0].Text)
	last := created.Receipt.Lines[len(created.Receipt.Lines)-1]
	s.Equal(domain.ReceiptStatus, last.Kind)
	s.Equal("Completed", last.Text)
}

func (s *SaleServiceTestSuite) TestZeroTaxRate() {
	zero := decimal.Zero
	taxFree, err := NewSaleService(s.uow, Options{TaxRate: &zero})
	s.Require().NoError(err)

	created, err := taxFree.Create(context.Background(), s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 4}))
	s.Require().NoError(err)
	s.True(created.Sale.Tax.IsZero())
	s.True(created.Sale.Subtotal.Equal(decimal.NewFromInt(100)))
	s.True(created.Sale.Total.Equal(decimal.NewFromInt(100)))
}

func (s *SaleServiceTestSuite) TestCreateWalkInCustomer() {
	args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 1})
	args.CustomerRef = ""

	created, err := s.saleService.Create(context.Background(), args)
	s.Require().NoError(err)
	s.NotEqual(s.customer.ID, created.Sale.CustomerID)
}

func (s *SaleServiceTestSuite) TestCreatePendingStates() {
	s.Run("transfer waits for confirmation", func() {
		args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 1})
		args.Method = "transfer"
		created, err := s.saleService.Create(context.Background(), args)
		s.Require().NoError(err)
		s.Equal(domain.SaleStatusPending, created.Sale.Status)
	})

	s.Run("cash short of total", func() {
		args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 1})
		args.AmountPaid = decimal.NewFromInt(10)
		created, err := s.saleService.Create(context.Background(), args)
		s.Require().NoError(err)
		s.Equal(domain.SaleStatusPending, created.Sale.Status)
		s.Equal(1, created.Sale.Payments.Len())
	})
}

func (s *SaleServiceTestSuite) TestCreateWithPoints() {
	args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 4})
	args.PointsUsed = decimal.NewFromInt(10)
	// деньги и баллы вместе ровно покрывают итог после баллов
	args.AmountPaid = decimal.NewFromInt(80)

	created, err := s.saleService.Create(context.Background(), args)
	s.Require().NoError(err)

	sale := created.Sale
	s.Equal(domain.SaleStatusCompleted, sale.Status)
	s.True(sale.Total.Equal(decimal.NewFromInt(90)))
	s.True(sale.Tax.Equal(decimal.RequireFromString("7.20")))
	s.True(sale.Subtotal.Equal(decimal.RequireFromString("82.80")))
	s.Equal(2, sale.Payments.Len())
	s.True(s.customerPoints().Equal(decimal.NewFromInt(30)))
}

func (s *SaleServiceTestSuite) TestPointsCountTowardsNetTotal() {
	ctx := context.Background()

	s.Run("at creation", func() {
		args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 4})
		args.PointsUsed = decimal.NewFromInt(20)
		args.AmountPaid = decimal.NewFromInt(60)

		created, err := s.saleService.Create(ctx, args)
		s.Require().NoError(err)
		s.True(created.Sale.Total.Equal(decimal.NewFromInt(80)))
		s.Equal(domain.SaleStatusCompleted, created.Sale.Status)
	})

	s.Run("after accrual", func() {
		args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 4})
		args.PointsUsed = decimal.NewFromInt(20)
		args.AmountPaid = decimal.NewFromInt(40)

		created, err := s.saleService.Create(ctx, args)
		s.Require().NoError(err)
		s.Require().Equal(domain.SaleStatusPending, created.Sale.Status)

		sale, err := s.saleService.AccruePayment(ctx, created.Sale.ID, "card", decimal.NewFromInt(20))
		s.Require().NoError(err)
		s.Equal(domain.SaleStatusCompleted, sale.Status)
	})
}

func (s *SaleServiceTestSuite) TestCreateRejectedLeavesStateUntouched() {
	tests := []struct {
		name    string
		args    func() CreateSaleArgs
		checkFn func(err error)
	}{
		{
			name: "insufficient stock on second line",
			args: func() CreateSaleArgs {
				return s.cashSale(
					domain.OrderItem{ProductID: 1, Quantity: 2},
					domain.OrderItem{ProductID: 2, Quantity: 2},
				)
			},
			checkFn: func(err error) {
				var stockErr *domain.InsufficientStockError
				s.Require().ErrorAs(err, &stockErr)
				s.Equal(int64(2), stockErr.ProductID)
				s.Equal(int64(2), stockErr.Requested)
				s.Equal(int64(1), stockErr.Available)
			},
		},
		{
			name: "points exceed balance",
			args: func() CreateSaleArgs {
				args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 2})
				args.PointsUsed = decimal.NewFromInt(41)
				return args
			},
			checkFn: func(err error) {
				var vErr *domain.ValidationError
				s.Require().ErrorAs(err, &vErr)
				s.Equal(domain.ReasonPointsExceedBalance, vErr.Reason)
			},
		},
		{
			name: "points exceed total",
			args: func() CreateSaleArgs {
				args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 1})
				args.PointsUsed = decimal.NewFromInt(30)
				return args
			},
			checkFn: func(err error) {
				var vErr *domain.ValidationError
				s.Require().ErrorAs(err, &vErr)
				s.Equal(domain.ReasonPointsExceedTotal, vErr.Reason)
			},
		},
		{
			name: "unknown employee",
			args: func() CreateSaleArgs {
				args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 1})
				args.EmployeeID = 999
				return args
			},
			checkFn: func(err error) {
				var nfErr *domain.NotFoundError
				s.Require().ErrorAs(err, &nfErr)
				s.Equal(domain.EntityEmployee, nfErr.Entity)
			},
		},
		{
			name: "unknown payment method",
			args: func() CreateSaleArgs {
				args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 1})
				args.Method = "cheque"
				return args
			},
			checkFn: func(err error) {
				var vErr *domain.ValidationError
				s.Require().ErrorAs(err, &vErr)
				s.Equal(domain.ReasonInvalidMethod, vErr.Reason)
			},
		},
		{
			name: "unknown order",
			args: func() CreateSaleArgs {
				args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 1})
				orderID := uuid.New()
				args.OrderID = &orderID
				return args
			},
			checkFn: func(err error) {
				var nfErr *domain.NotFoundError
				s.Require().ErrorAs(err, &nfErr)
				s.Equal(domain.EntityOrder, nfErr.Entity)
			},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			created, err := s.saleService.Create(context.Background(), tt.args())
			s.Nil(created)
			tt.checkFn(err)

			s.Equal(int64(10), s.stock(1))
			s.Equal(int64(1), s.stock(2))
			s.Zero(s.store.SaleCount())
			s.True(s.customerPoints().Equal(decimal.NewFromInt(40)))
		})
	}
}

func (s *SaleServiceTestSuite) TestConcurrentSalesNeverOversell() {
	const buyers = 12
	s.store.PutProduct(domain.Product{ID: 3, Name: "limited", Price: decimal.NewFromInt(5), Stock: 5})

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.saleService.Create(context.Background(), s.cashSale(domain.OrderItem{ProductID: 3, Quantity: 1}))
			mu.Lock()
			defer mu.Unlock()
			var stockErr *domain.InsufficientStockError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &stockErr):
				rejected++
			}
		}()
	}
	wg.Wait()

	s.Equal(5, succeeded)
	s.Equal(buyers-5, rejected)
	s.Equal(int64(0), s.stock(3))
}

func (s *SaleServiceTestSuite) TestConcurrentReserveWithoutTransaction() {
	const (
		workers = 16
		stock   = 6
	)
	s.store.PutProduct(domain.Product{ID: 4, Name: gofakeit.ProductName(), Price: decimal.NewFromInt(3), Stock: stock})
	products, err := uow.GetRepositoryAs[ProductRepository](s.uow, uow.RepositoryName(repoargs.ProductRepoName))
	s.Require().NoError(err)
	adjuster := NewInventoryAdjuster(nil)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, reserveErr := adjuster.Reserve(context.Background(), products, 4, 1)
			mu.Lock()
			defer mu.Unlock()
			var stockErr *domain.InsufficientStockError
			switch {
			case reserveErr == nil:
				succeeded++
			case errors.As(reserveErr, &stockErr):
				rejected++
			}
		}()
	}
	wg.Wait()

	s.Equal(stock, succeeded)
	s.Equal(workers-stock, rejected)
	s.Equal(int64(0), s.stock(4))
}

func (s *SaleServiceTestSuite) TestConcurrentSalesNeverOverspendPoints() {
	const buyers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 1})
			args.PointsUsed = decimal.NewFromInt(25)
			_, err := s.saleService.Create(context.Background(), args)
			mu.Lock()
			defer mu.Unlock()
			var vErr *domain.ValidationError
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &vErr) && vErr.Reason == domain.ReasonPointsExceedBalance:
				rejected++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, succeeded)
	s.Equal(buyers-1, rejected)
	s.True(s.customerPoints().Equal(decimal.NewFromInt(15)), s.customerPoints().String())
}

func (s *SaleServiceTestSuite) TestPaymentsLifecycle() {
	ctx := context.Background()
	args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 4})
	args.AmountPaid = decimal.NewFromInt(20)
	args.PointsUsed = decimal.NewFromInt(10)
	created, err := s.saleService.Create(ctx, args)
	s.Require().NoError(err)
	s.Require().Equal(domain.SaleStatusPending, created.Sale.Status)
	id := created.Sale.ID

	s.Run("invalid accrual", func() {
		_, accrueErr := s.saleService.AccruePayment(ctx, id, "points", decimal.NewFromInt(5))
		var vErr *domain.ValidationError
		s.Require().ErrorAs(accrueErr, &vErr)

		_, accrueErr = s.saleService.AccruePayment(ctx, id, "card", decimal.Zero)
		s.Require().ErrorAs(accrueErr, &vErr)
		s.Equal(domain.ReasonInvalidAmount, vErr.Reason)
	})

	s.Run("partial accrual keeps pending", func() {
		sale, accrueErr := s.saleService.AccruePayment(ctx, id, "card", decimal.NewFromInt(30))
		s.Require().NoError(accrueErr)
		s.Equal(domain.SaleStatusPending, sale.Status)
		s.Equal(3, sale.Payments.Len())
	})

	s.Run("out of range index leaves ledger", func() {
		_, removeErr := s.saleService.RemovePayment(ctx, id, 7)
		var vErr *domain.ValidationError
		s.Require().ErrorAs(removeErr, &vErr)
		s.Equal(domain.ReasonInvalidIndex, vErr.Reason)

		sale, getErr := s.saleService.Get(ctx, id)
		s.Require().NoError(getErr)
		s.Equal(3, sale.Payments.Len())
	})

	s.Run("points record cannot be removed", func() {
		sale, getErr := s.saleService.Get(ctx, id)
		s.Require().NoError(getErr)
		for i, record := range sale.Payments.Records {
			if record.Method == domain.PaymentMethodPoints {
				_, removeErr := s.saleService.RemovePayment(ctx, id, i)
				var cErr *domain.ConflictError
				s.Require().ErrorAs(removeErr, &cErr)
			}
		}
	})

	s.Run("remove then settle", func() {
		sale, removeErr := s.saleService.RemovePayment(ctx, id, 2)
		s.Require().NoError(removeErr)
		s.Equal(2, sale.Payments.Len())

		// 20 наличными + 10 баллами + 60: итог после баллов 90 закрыт без переплаты
		sale, accrueErr := s.saleService.AccruePayment(ctx, id, "cash", decimal.NewFromInt(49))
		s.Require().NoError(accrueErr)
		s.Equal(domain.SaleStatusPending, sale.Status)

		sale, accrueErr = s.saleService.AccruePayment(ctx, id, "cash", decimal.NewFromInt(11))
		s.Require().NoError(accrueErr)
		s.Equal(domain.SaleStatusCompleted, sale.Status)
		s.True(sale.Payments.Paid().Equal(sale.Total))
	})

	s.Run("completed sale rejects mutations", func() {
		_, accrueErr := s.saleService.AccruePayment(ctx, id, "cash", decimal.NewFromInt(1))
		var cErr *domain.ConflictError
		s.Require().ErrorAs(accrueErr, &cErr)

		_, cancelErr := s.saleService.Cancel(ctx, id)
		s.Require().ErrorAs(cancelErr, &cErr)
		s.Equal(int64(6), s.stock(1))
	})
}

func (s *SaleServiceTestSuite) TestCancelRestoresStock() {
	ctx := context.Background()
	args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 3}, domain.OrderItem{ProductID: 2, Quantity: 1})
	args.Method = "transfer"
	created, err := s.saleService.Create(ctx, args)
	s.Require().NoError(err)
	s.Equal(int64(7), s.stock(1))
	s.Equal(int64(0), s.stock(2))

	// смена цены в каталоге не влияет на возврат зафиксированных количеств
	s.store.PutProduct(domain.Product{ID: 2, Name: "repriced", Price: decimal.NewFromInt(99), Stock: 0})

	sale, err := s.saleService.Cancel(ctx, created.Sale.ID)
	s.Require().NoError(err)
	s.Equal(domain.SaleStatusCancelled, sale.Status)
	s.Zero(sale.Payments.Len())
	s.Equal(int64(10), s.stock(1))
	s.Equal(int64(1), s.stock(2))

	_, err = s.saleService.Cancel(ctx, created.Sale.ID)
	var cErr *domain.ConflictError
	s.Require().ErrorAs(err, &cErr)
	s.Equal(int64(10), s.stock(1))
}

func (s *SaleServiceTestSuite) TestOrderConversion() {
	ctx := context.Background()
	orders, err := uow.GetRepositoryAs[OrderRepository](s.uow, uow.RepositoryName(repoargs.OrderRepoName))
	s.Require().NoError(err)
	order, err := orders.CreateOrder(ctx, repoargs.CreateOrder{
		ID:         uuid.New(),
		Number:     "ORD-1-0001",
		CustomerID: s.customer.ID,
		Items:      []domain.OrderItem{{ProductID: 1, Quantity: 1}},
		Total:      decimal.NewFromInt(25),
	})
	s.Require().NoError(err)

	args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 1})
	args.OrderID = &order.ID
	created, err := s.saleService.Create(ctx, args)
	s.Require().NoError(err)

	converted, err := orders.FindByID(ctx, order.ID)
	s.Require().NoError(err)
	s.Equal(domain.OrderStatusConverted, converted.Status)
	s.Require().NotNil(converted.SaleID)
	s.Equal(created.Sale.ID, *converted.SaleID)

	_, err = s.saleService.Create(ctx, args)
	var cErr *domain.ConflictError
	s.Require().ErrorAs(err, &cErr)
	s.Equal(int64(9), s.stock(1))
	s.Equal(1, s.store.SaleCount())
}

func (s *SaleServiceTestSuite) TestIdempotentRetry() {
	ctx := context.Background()
	args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 2})
	args.IdempotencyKey = gofakeit.UUID()

	first, err := s.saleService.Create(ctx, args)
	s.Require().NoError(err)
	second, err := s.saleService.Create(ctx, args)
	s.Require().NoError(err)

	s.Equal(first.Sale.ID, second.Sale.ID)
	s.Equal(first.Receipt, second.Receipt)
	s.Equal(1, s.store.SaleCount())
	s.Equal(int64(8), s.stock(1))
}

func (s *SaleServiceTestSuite) TestIdempotencyKeyCompletedOutsideRequestContext() {
	type requestKey struct{}
	ctrl := gomock.NewController(s.T())
	defer ctrl.Finish()
	keys := mocks.NewMockIdempotencyStore(ctrl)
	saleService, err := NewSaleService(s.uow, Options{Idempotency: keys})
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), requestKey{}, "req"))
	defer cancel()
	key := gofakeit.UUID()

	keys.EXPECT().Acquire(gomock.Any(), key).Return("", true, nil)
	keys.EXPECT().Complete(gomock.Any(), key, gomock.Any()).DoAndReturn(
		func(completeCtx context.Context, _ string, _ uuid.UUID) error {
			// запрос отменен, но ключ все равно должен быть завершен
			cancel()
			s.Nil(completeCtx.Value(requestKey{}))
			s.NoError(completeCtx.Err())
			return nil
		})

	args := s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 1})
	args.IdempotencyKey = key
	created, err := saleService.Create(ctx, args)
	s.Require().NoError(err)
	s.Equal(domain.SaleStatusCompleted, created.Sale.Status)
}

func (s *SaleServiceTestSuite) TestIdempotencyKeyReleasedOnFailure() {
	ctx := context.Background()
	args := s.cashSale(domain.OrderItem{ProductID: 2, Quantity: 5})
	args.IdempotencyKey = gofakeit.UUID()

	_, err := s.saleService.Create(ctx, args)
	s.Require().ErrorIs(err, domain.ErrInsufficientStock)

	args.Items = []domain.OrderItem{{ProductID: 2, Quantity: 1}}
	created, err := s.saleService.Create(ctx, args)
	s.Require().NoError(err)
	s.Equal(domain.SaleStatusCompleted, created.Sale.Status)
}

func (s *SaleServiceTestSuite) TestList() {
	ctx := context.Background()
	for range 3 {
		_, err := s.saleService.Create(ctx, s.cashSale(domain.OrderItem{ProductID: 1, Quantity: 1}))
		s.Require().NoError(err)
	}

	page, err := s.saleService.List(ctx, ListSalesArgs{Limit: 2})
	s.Require().NoError(err)
	s.Len(page, 2)

	rest, err := s.saleService.List(ctx, ListSalesArgs{Limit: 2, Offset: 2})
	s.Require().NoError(err)
	s.Len(rest, 1)
}
