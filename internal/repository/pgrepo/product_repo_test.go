package pgrepo

import (
	"context"
	"errors"
	"testing"

	"github.com/fsdevblog/groph-pos/internal/domain"
	uowmocks "github.com/fsdevblog/groph-pos/pkg/uow/mocks"
	"github.com/golang/mock/gomock"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/suite"
)

// stubRow строка результата с одним int64 значением или ошибкой.
type stubRow struct {
	value int64
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.value
	return nil
}

type ProductRepositoryTestSuite struct {
	suite.Suite
	mockCtrl *gomock.Controller
	mockDB   *uowmocks.MockDBTX
	repo     *ProductRepository
}

func TestProductRepositorySuite(t *testing.T) {
	suite.Run(t, new(ProductRepositoryTestSuite))
}

func (s *ProductRepositoryTestSuite) SetupTest() {
	s.mockCtrl = gomock.NewController(s.T())
	s.mockDB = uowmocks.NewMockDBTX(s.mockCtrl)
	s.repo = NewProductRepository(s.mockDB)
}

func (s *ProductRepositoryTestSuite) TearDownTest() {
	s.mockCtrl.Finish()
}

func (s *ProductRepositoryTestSuite) TestAdjustStock() {
	ctx := context.Background()

	s.Run("conditional update succeeds", func() {
		s.mockDB.EXPECT().QueryRow(gomock.Any(), productsAdjustStock, int64(1), int64(-2)).
			Return(stubRow{value: 3})
		stock, err := s.repo.AdjustStock(ctx, 1, -2)
		s.Require().NoError(err)
		s.Equal(int64(3), stock)
	})

	s.Run("not enough stock", func() {
		s.mockDB.EXPECT().QueryRow(gomock.Any(), productsAdjustStock, int64(1), int64(-5)).
			Return(stubRow{err: pgx.ErrNoRows})
		s.mockDB.EXPECT().QueryRow(gomock.Any(), productsGetStock, int64(1)).
			Return(stubRow{value: 3})

		_, err := s.repo.AdjustStock(ctx, 1, -5)
		var stockErr *domain.InsufficientStockError
		s.Require().ErrorAs(err, &stockErr)
		s.Equal(int64(5), stockErr.Requested)
		s.Equal(int64(3), stockErr.Available)
	})

	s.Run("missing product", func() {
		s.mockDB.EXPECT().QueryRow(gomock.Any(), productsAdjustStock, int64(9), int64(-1)).
			Return(stubRow{err: pgx.ErrNoRows})
		s.mockDB.EXPECT().QueryRow(gomock.Any(), productsGetStock, int64(9)).
			Return(stubRow{err: pgx.ErrNoRows})

		_, err := s.repo.AdjustStock(ctx, 9, -1)
		s.ErrorIs(err, domain.ErrRecordNotFound)
	})
}

func TestConvertErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: domain.ErrRecordNotFound},
		{name: "unique violation", err: &pgconn.PgError{Code: uniqueViolationCode}, want: domain.ErrDuplicateKey},
		{name: "query canceled", err: &pgconn.PgError{Code: queryCanceledCode}, want: domain.ErrStorageTimeout},
		{name: "deadline", err: context.DeadlineExceeded, want: domain.ErrStorageTimeout},
		{name: "other", err: errors.New("conn reset"), want: domain.ErrUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := convertErr(tt.err, "op %d", 1)
			if !errors.Is(err, tt.want) {
				t.Fatalf("convertErr(%v) = %v, want %v", tt.err, err, tt.want)
			}
		})
	}

	if convertErr(nil, "op") != nil {
		t.Fatal("nil error must stay nil")
	}
}
