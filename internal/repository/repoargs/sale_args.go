package repoargs

import (
	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateSale struct {
	ID         uuid.UUID
	Folio      string
	CustomerID int64
	EmployeeID int64
	Lines      domain.SaleLines
	Payments   domain.PaymentLedger
	PointsUsed decimal.Decimal
	Totals     domain.Totals
	Status     domain.SaleStatusType
}

type UpdateSalePayments struct {
	ID       uuid.UUID
	Payments domain.PaymentLedger
	Status   domain.SaleStatusType
}

type ListSales struct {
	Limit  uint
	Offset uint
}
