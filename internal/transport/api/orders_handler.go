package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/fsdevblog/groph-pos/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrdersHandler struct {
	orderSvs OrderServicer
}

func NewOrdersHandler(orderSvs OrderServicer) *OrdersHandler {
	return &OrdersHandler{
		orderSvs: orderSvs,
	}
}

type ItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type CreateOrderRequest struct {
	Items        []ItemRequest   `json:"items"`
	Total        decimal.Decimal `json:"total" binding:"gte=0"`
	DeliveryType string          `json:"delivery_type" binding:"max_bytes=32"`
}

type UpdateOrderStateRequest struct {
	State string `json:"state" binding:"required,max_bytes=32"`
}

type OrderResponse struct {
	ID           uuid.UUID              `json:"id"`
	Number       string                 `json:"number"`
	CustomerID   int64                  `json:"customer_id"`
	DeliveryType domain.DeliveryType    `json:"delivery_type"`
	Items        []domain.OrderItem     `json:"items"`
	Total        decimal.Decimal        `json:"total"`
	Status       domain.OrderStatusType `json:"status"`
	SaleID       *uuid.UUID             `json:"sale_id,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

func newOrderResponse(order *domain.Order) OrderResponse {
	return OrderResponse{
		ID:           order.ID,
		Number:       order.Number,
		CustomerID:   order.CustomerID,
		DeliveryType: order.DeliveryType,
		Items:        order.Items,
		Total:        order.Total,
		Status:       order.Status,
		SaleID:       order.SaleID,
		CreatedAt:    order.CreatedAt,
	}
}

func toOrderItems(items []ItemRequest) []domain.OrderItem {
	result := make([]domain.OrderItem, len(items))
	for i, item := range items {
		result[i] = domain.OrderItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return result
}

// Create POST RouteGroup + OrdersRoute. Покупатель заказа - владелец токена.
func (o *OrdersHandler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMalformed(c, err.Error())
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.Create(reqCtx, service.CreateOrderArgs{
		CustomerID:   getUserIDFromContext(c),
		Items:        toOrderItems(req.Items),
		ClientTotal:  req.Total,
		DeliveryType: domain.DeliveryType(req.DeliveryType),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newOrderResponse(order))
}

// Show GET RouteGroup + OrderRoute.
func (o *OrdersHandler) Show(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.Get(reqCtx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

// Index GET RouteGroup + OrdersRoute. Без параметра customer возвращает заказы владельца токена.
func (o *OrdersHandler) Index(c *gin.Context) {
	customerID := getUserIDFromContext(c)
	if raw := c.Query("customer"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			abortMalformed(c, "customer must be a positive integer")
			return
		}
		customerID = parsed
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	orders, err := o.orderSvs.ListByCustomer(reqCtx, customerID)
	if err != nil {
		respondError(c, err)
		return
	}

	var response = make([]OrderResponse, len(orders))
	for i := range orders {
		response[i] = newOrderResponse(&orders[i])
	}
	c.JSON(http.StatusOK, response)
}

// UpdateState PUT RouteGroup + OrderStateRoute.
func (o *OrdersHandler) UpdateState(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req UpdateOrderStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMalformed(c, err.Error())
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.UpdateState(reqCtx, id, req.State)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}
