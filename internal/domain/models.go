package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID       int64
	Name     string
	Price    decimal.Decimal
	UnitCost decimal.Decimal
	Stock    int64
}

type Customer struct {
	ID     int64
	Ref    string
	Name   string
	Points decimal.Decimal
}

type Employee struct {
	ID   int64
	Ref  string
	Name string
}

type OrderItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

func NewOrderItem(productID, quantity int64) (OrderItem, error) {
	if productID <= 0 {
		return OrderItem{}, NewValidationError(ReasonMalformed, "product id is required")
	}
	if quantity <= 0 {
		return OrderItem{}, NewValidationError(ReasonInvalidQuantity, "quantity of product %d must be positive", productID)
	}
	return OrderItem{ProductID: productID, Quantity: quantity}, nil
}

type Order struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Number       string
	CustomerID   int64
	DeliveryType DeliveryType
	Items        []OrderItem
	Total        decimal.Decimal
	Status       OrderStatusType
	SaleID       *uuid.UUID
}

type Sale struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Folio      string
	CustomerID int64
	EmployeeID int64
	Lines      SaleLines
	Payments   PaymentLedger
	PointsUsed decimal.Decimal
	GrossTotal decimal.Decimal
	Profit     decimal.Decimal
	Subtotal   decimal.Decimal
	Tax        decimal.Decimal
	Total      decimal.Decimal
	Status     SaleStatusType
}

// Totals денежные итоги продажи.
type Totals struct {
	Gross    decimal.Decimal
	Profit   decimal.Decimal
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// ComputeTotals считает итоги по зафиксированным строкам продажи.
// Налог включен в цену: tax = rate * (gross - points), subtotal = net - tax, total = net.
// Возвращает ValidationError, если баллы превышают сумму.
func ComputeTotals(lines SaleLines, points, taxRate decimal.Decimal) (Totals, error) {
	var t Totals
	for _, line := range lines.Records {
		t.Gross = t.Gross.Add(line.LineTotal)
		t.Profit = t.Profit.Add(line.Profit())
	}
	net := t.Gross.Sub(points)
	if net.IsNegative() {
		return Totals{}, NewValidationError(
			ReasonPointsExceedTotal,
			"points %s exceed sale total %s",
			points.String(),
			t.Gross.String(),
		)
	}
	t.Tax = roundMoney(net.Mul(taxRate))
	t.Subtotal = net.Sub(t.Tax)
	t.Total = net
	return t, nil
}

// AmountDue сумма, которую покупатель должен внести деньгами.
func (s *Sale) AmountDue() decimal.Decimal {
	return s.Total
}
