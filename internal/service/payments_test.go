package service

import (
	"testing"
	"time"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PaymentReconcilerTestSuite struct {
	suite.Suite
	reconciler *PaymentReconciler
	clock      time.Time
}

func TestPaymentReconcilerSuite(t *testing.T) {
	suite.Run(t, new(PaymentReconcilerTestSuite))
}

func (s *PaymentReconcilerTestSuite) SetupTest() {
	s.clock = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.reconciler = &PaymentReconciler{now: func() time.Time {
		s.clock = s.clock.Add(time.Minute)
		return s.clock
	}}
}

func (s *PaymentReconcilerTestSuite) pendingSale(gross string, records ...domain.PaymentRecord) *domain.Sale {
	return &domain.Sale{
		GrossTotal: decimal.RequireFromString(gross),
		Total:      decimal.RequireFromString(gross),
		Payments:   domain.PaymentLedger{Records: records},
		Status:     domain.SaleStatusPending,
	}
}

func (s *PaymentReconcilerTestSuite) TestInitialLedger() {
	ledger, err := s.reconciler.InitialLedger(domain.PaymentMethodCard, decimal.NewFromInt(50), decimal.NewFromInt(5))
	s.Require().NoError(err)
	s.Require().Equal(2, ledger.Len())
	s.Equal(domain.PaymentMethodCard, ledger.Records[0].Method)
	s.Equal(domain.PaymentMethodPoints, ledger.Records[1].Method)

	ledger, err = s.reconciler.InitialLedger(domain.PaymentMethodTransfer, decimal.Zero, decimal.Zero)
	s.Require().NoError(err)
	s.Zero(ledger.Len())

	_, err = s.reconciler.InitialLedger(domain.PaymentMethodPoints, decimal.NewFromInt(1), decimal.Zero)
	var vErr *domain.ValidationError
	s.Require().ErrorAs(err, &vErr)
	s.Equal(domain.ReasonInvalidMethod, vErr.Reason)
}

func (s *PaymentReconcilerTestSuite) TestInitialStatus() {
	tests := []struct {
		name   string
		method domain.PaymentMethodType
		paid   string
		points string
		net    string
		want   domain.SaleStatusType
	}{
		{name: "cash covers net", method: domain.PaymentMethodCash, paid: "100", net: "100", want: domain.SaleStatusCompleted},
		{name: "card short", method: domain.PaymentMethodCard, paid: "99.99", net: "100", want: domain.SaleStatusPending},
		{name: "transfer always pending", method: domain.PaymentMethodTransfer, paid: "100", net: "100", want: domain.SaleStatusPending},
		{name: "nothing to pay", method: domain.PaymentMethodTransfer, paid: "0", net: "0", want: domain.SaleStatusCompleted},
		{
			name:   "cash and points cover net",
			method: domain.PaymentMethodCash,
			paid:   "60",
			points: "20",
			net:    "80",
			want:   domain.SaleStatusCompleted,
		},
		{
			name:   "cash and points short of net",
			method: domain.PaymentMethodCash,
			paid:   "59.99",
			points: "20",
			net:    "80",
			want:   domain.SaleStatusPending,
		},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			points := decimal.Zero
			if tt.points != "" {
				points = decimal.RequireFromString(tt.points)
			}
			got := s.reconciler.InitialStatus(
				tt.method,
				decimal.RequireFromString(tt.paid),
				points,
				decimal.RequireFromString(tt.net),
			)
			s.Equal(tt.want, got)
		})
	}
}

func (s *PaymentReconcilerTestSuite) TestAccrue() {
	sale := s.pendingSale("100")

	ledger, status, err := s.reconciler.Accrue(sale, domain.PaymentMethodCash, decimal.NewFromInt(60))
	s.Require().NoError(err)
	s.Equal(domain.SaleStatusPending, status)
	sale.Payments = ledger

	ledger, status, err = s.reconciler.Accrue(sale, domain.PaymentMethodTransfer, decimal.NewFromInt(40))
	s.Require().NoError(err)
	s.Equal(domain.SaleStatusCompleted, status)
	s.Equal(2, ledger.Len())

	sale.Status = domain.SaleStatusCompleted
	_, _, err = s.reconciler.Accrue(sale, domain.PaymentMethodCash, decimal.NewFromInt(1))
	var cErr *domain.ConflictError
	s.ErrorAs(err, &cErr)
}

func (s *PaymentReconcilerTestSuite) TestRemoveUsesChronologicalOrder() {
	early, _ := domain.NewPaymentRecord(s.clock.Add(-time.Hour), domain.PaymentMethodCash, decimal.NewFromInt(10))
	late, _ := domain.NewPaymentRecord(s.clock, domain.PaymentMethodCard, decimal.NewFromInt(20))
	sale := s.pendingSale("100", late, early)

	ledger, status, err := s.reconciler.Remove(sale, 0)
	s.Require().NoError(err)
	s.Equal(domain.SaleStatusPending, status)
	s.Require().Equal(1, ledger.Len())
	s.Equal(domain.PaymentMethodCard, ledger.Records[0].Method)

	_, _, err = s.reconciler.Remove(sale, -1)
	var vErr *domain.ValidationError
	s.Require().ErrorAs(err, &vErr)
	s.Equal(domain.ReasonInvalidIndex, vErr.Reason)
	s.Equal(2, sale.Payments.Len())
}

func (s *PaymentReconcilerTestSuite) TestSettleCountsPoints() {
	points, _ := domain.NewPaymentRecord(s.clock, domain.PaymentMethodPoints, decimal.NewFromInt(20))
	short, _ := domain.NewPaymentRecord(s.clock, domain.PaymentMethodCash, decimal.RequireFromString("59.99"))
	exact, _ := domain.NewPaymentRecord(s.clock, domain.PaymentMethodCash, decimal.NewFromInt(60))
	// gross 100, 20 баллов, итог после баллов 80
	sale := s.pendingSale("100")
	sale.PointsUsed = decimal.NewFromInt(20)
	sale.Total = decimal.NewFromInt(80)

	s.Equal(domain.SaleStatusPending, s.reconciler.Settle(sale, domain.PaymentLedger{Records: []domain.PaymentRecord{points}}))
	s.Equal(
		domain.SaleStatusPending,
		s.reconciler.Settle(sale, domain.PaymentLedger{Records: []domain.PaymentRecord{points, short}}),
	)
	s.Equal(
		domain.SaleStatusCompleted,
		s.reconciler.Settle(sale, domain.PaymentLedger{Records: []domain.PaymentRecord{points, exact}}),
	)
}
