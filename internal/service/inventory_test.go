package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/fsdevblog/groph-pos/internal/service/mocks"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
)

type InventoryAdjusterTestSuite struct {
	suite.Suite
	mockCtrl        *gomock.Controller
	mockProductRepo *mocks.MockProductRepository
	mockMetrics     *mocks.MockMetricsRecorder
	adjuster        *InventoryAdjuster
}

func TestInventoryAdjusterSuite(t *testing.T) {
	suite.Run(t, new(InventoryAdjusterTestSuite))
}

func (s *InventoryAdjusterTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockProductRepo = mocks.NewMockProductRepository(s.mockCtrl)
	s.mockMetrics = mocks.NewMockMetricsRecorder(s.mockCtrl)
	s.adjuster = NewInventoryAdjuster(s.mockMetrics)
}

func (s *InventoryAdjusterTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *InventoryAdjusterTestSuite) TestReserve() {
	ctx := context.Background()

	s.mockProductRepo.EXPECT().AdjustStock(gomock.Any(), int64(1), int64(-3)).Return(int64(7), nil)
	newQty, err := s.adjuster.Reserve(ctx, s.mockProductRepo, 1, 3)
	s.Require().NoError(err)
	s.Equal(int64(7), newQty)

	s.mockProductRepo.EXPECT().AdjustStock(gomock.Any(), int64(1), int64(-9)).
		Return(int64(0), &domain.InsufficientStockError{ProductID: 1, Requested: 9, Available: 7})
	s.mockMetrics.EXPECT().StockRejected(int64(1))
	_, err = s.adjuster.Reserve(ctx, s.mockProductRepo, 1, 9)
	var stockErr *domain.InsufficientStockError
	s.Require().ErrorAs(err, &stockErr)
	s.Equal(int64(7), stockErr.Available)

	_, err = s.adjuster.Reserve(ctx, s.mockProductRepo, 1, 0)
	var vErr *domain.ValidationError
	s.Require().ErrorAs(err, &vErr)

	s.mockProductRepo.EXPECT().AdjustStock(gomock.Any(), int64(5), int64(-1)).Return(int64(0), domain.ErrRecordNotFound)
	_, err = s.adjuster.Reserve(ctx, s.mockProductRepo, 5, 1)
	var nfErr *domain.NotFoundError
	s.Require().ErrorAs(err, &nfErr)
}

func (s *InventoryAdjusterTestSuite) TestReserveAllReleasesOnFailure() {
	lines := []domain.SaleLine{
		{ProductID: 3, Quantity: 4},
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}

	gomock.InOrder(
		s.mockProductRepo.EXPECT().AdjustStock(gomock.Any(), int64(1), int64(-2)).Return(int64(8), nil),
		s.mockProductRepo.EXPECT().AdjustStock(gomock.Any(), int64(2), int64(-1)).Return(int64(0), nil),
		s.mockProductRepo.EXPECT().AdjustStock(gomock.Any(), int64(3), int64(-4)).
			Return(int64(0), &domain.InsufficientStockError{ProductID: 3, Requested: 4, Available: 1}),
		s.mockProductRepo.EXPECT().AdjustStock(gomock.Any(), int64(1), int64(2)).Return(int64(10), nil),
		s.mockProductRepo.EXPECT().AdjustStock(gomock.Any(), int64(2), int64(1)).Return(int64(1), nil),
	)
	s.mockMetrics.EXPECT().StockRejected(int64(3))

	err := s.adjuster.ReserveAll(context.Background(), s.mockProductRepo, lines)
	s.Require().ErrorIs(err, domain.ErrInsufficientStock)
}

func (s *InventoryAdjusterTestSuite) TestReserveAllLocksInProductOrder() {
	// две корзины с одними товарами в разном порядке резервируют их одинаково
	carts := [][]domain.SaleLine{
		{{ProductID: 7, Quantity: 1}, {ProductID: 2, Quantity: 1}, {ProductID: 7, Quantity: 2}},
		{{ProductID: 2, Quantity: 1}, {ProductID: 7, Quantity: 3}},
	}
	for _, cart := range carts {
		gomock.InOrder(
			s.mockProductRepo.EXPECT().AdjustStock(gomock.Any(), int64(2), int64(-1)).Return(int64(9), nil),
			s.mockProductRepo.EXPECT().AdjustStock(gomock.Any(), int64(7), int64(-3)).Return(int64(5), nil),
		)
		s.Require().NoError(s.adjuster.ReserveAll(context.Background(), s.mockProductRepo, cart))
	}
}

func (s *InventoryAdjusterTestSuite) TestReleaseAllCollectsErrors() {
	lines := []domain.SaleLine{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 1}}
	errConn := errors.New("connection reset")

	s.mockProductRepo.EXPECT().AdjustStock(gomock.Any(), int64(2), int64(1)).Return(int64(0), errConn)
	s.mockProductRepo.EXPECT().AdjustStock(gomock.Any(), int64(1), int64(1)).Return(int64(3), nil)

	err := s.adjuster.ReleaseAll(context.Background(), s.mockProductRepo, lines)
	var pErr *domain.PersistenceError
	s.Require().ErrorAs(err, &pErr)
	s.ErrorIs(err, errConn)
}
