package repoargs

import (
	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CreateOrder struct {
	ID           uuid.UUID
	Number       string
	CustomerID   int64
	DeliveryType domain.DeliveryType
	Items        []domain.OrderItem
	Total        decimal.Decimal
}

type UpdateOrderStatus struct {
	ID     uuid.UUID
	Status domain.OrderStatusType
	SaleID *uuid.UUID
}
