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

const maxIdempotencyKeyBytes = 64

type SalesHandler struct {
	saleSvs SaleServicer
}

func NewSalesHandler(saleSvs SaleServicer) *SalesHandler {
	return &SalesHandler{saleSvs: saleSvs}
}

type CreateSaleRequest struct {
	CustomerRef   string          `json:"customer_ref" binding:"max_bytes=64"`
	Items         []ItemRequest   `json:"items"`
	PaymentMethod string          `json:"payment_method" binding:"required,max_bytes=32"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	PointsUsed    decimal.Decimal `json:"points_used"`
	OrderID       *uuid.UUID      `json:"order_id"`
}

type CreateSaleHeaders struct {
	IdempotencyKey string `header:"Idempotency-Key" binding:"max_bytes=64"`
}

type AccruePaymentRequest struct {
	Method string          `json:"method" binding:"required,max_bytes=32"`
	Amount decimal.Decimal `json:"amount"`
}

type SaleResponse struct {
	ID         uuid.UUID              `json:"id"`
	Folio      string                 `json:"folio"`
	CustomerID int64                  `json:"customer_id"`
	EmployeeID int64                  `json:"employee_id"`
	Lines      []domain.SaleLine      `json:"lines"`
	Payments   []domain.PaymentRecord `json:"payments"`
	PointsUsed decimal.Decimal        `json:"points_used"`
	GrossTotal decimal.Decimal        `json:"gross_total"`
	Profit     decimal.Decimal        `json:"profit"`
	Subtotal   decimal.Decimal        `json:"subtotal"`
	Tax        decimal.Decimal        `json:"tax"`
	Total      decimal.Decimal        `json:"total"`
	Paid       decimal.Decimal        `json:"paid"`
	Status     domain.SaleStatusType  `json:"status"`
	CreatedAt  time.Time              `json:"created_at"`
}

type CreateSaleResponse struct {
	Sale    SaleResponse   `json:"sale"`
	Receipt domain.Receipt `json:"receipt"`
}

func newSaleResponse(sale *domain.Sale) SaleResponse {
	lines := sale.Lines.Records
	if lines == nil {
		lines = []domain.SaleLine{}
	}
	return SaleResponse{
		ID:         sale.ID,
		Folio:      sale.Folio,
		CustomerID: sale.CustomerID,
		EmployeeID: sale.EmployeeID,
		Lines:      lines,
		Payments:   sale.Payments.Sorted(),
		PointsUsed: sale.PointsUsed,
		GrossTotal: sale.GrossTotal,
		Profit:     sale.Profit,
		Subtotal:   sale.Subtotal,
		Tax:        sale.Tax,
		Total:      sale.Total,
		Paid:       sale.Payments.Paid(),
		Status:     sale.Status,
		CreatedAt:  sale.CreatedAt,
	}
}

// Create POST RouteGroup + SalesRoute. Кассир продажи - владелец токена.
func (s *SalesHandler) Create(c *gin.Context) {
	var headers CreateSaleHeaders
	if err := c.ShouldBindHeader(&headers); err != nil {
		abortMalformed(c, "Idempotency-Key must not exceed "+strconv.Itoa(maxIdempotencyKeyBytes)+" bytes")
		return
	}
	var req CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMalformed(c, err.Error())
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	created, err := s.saleSvs.Create(reqCtx, service.CreateSaleArgs{
		CustomerRef:    req.CustomerRef,
		EmployeeID:     getUserIDFromContext(c),
		Items:          toOrderItems(req.Items),
		Method:         req.PaymentMethod,
		AmountPaid:     req.AmountPaid,
		PointsUsed:     req.PointsUsed,
		OrderID:        req.OrderID,
		IdempotencyKey: headers.IdempotencyKey,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateSaleResponse{
		Sale:    newSaleResponse(created.Sale),
		Receipt: created.Receipt,
	})
}

// Show GET RouteGroup + SaleRoute.
func (s *SalesHandler) Show(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	sale, err := s.saleSvs.Get(reqCtx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSaleResponse(sale))
}

// Index GET RouteGroup + SalesRoute.
func (s *SalesHandler) Index(c *gin.Context) {
	limit, ok := parseUintQuery(c, "limit")
	if !ok {
		return
	}
	offset, ok := parseUintQuery(c, "offset")
	if !ok {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	sales, err := s.saleSvs.List(reqCtx, service.ListSalesArgs{Limit: limit, Offset: offset})
	if err != nil {
		respondError(c, err)
		return
	}

	var response = make([]SaleResponse, len(sales))
	for i := range sales {
		response[i] = newSaleResponse(&sales[i])
	}
	c.JSON(http.StatusOK, response)
}

// AccruePayment POST RouteGroup + SalePaymentsRoute.
func (s *SalesHandler) AccruePayment(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req AccruePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortMalformed(c, err.Error())
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	sale, err := s.saleSvs.AccruePayment(reqCtx, id, req.Method, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSaleResponse(sale))
}

// RemovePayment DELETE RouteGroup + SalePaymentRoute. Индекс считается по платежам,
// отсортированным по дате.
func (s *SalesHandler) RemovePayment(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		abortMalformed(c, "index must be an integer")
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	sale, err := s.saleSvs.RemovePayment(reqCtx, id, index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSaleResponse(sale))
}

// Cancel PUT RouteGroup + SaleCancelRoute.
func (s *SalesHandler) Cancel(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	sale, err := s.saleSvs.Cancel(reqCtx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSaleResponse(sale))
}
