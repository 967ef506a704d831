package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/fsdevblog/groph-pos/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	DefaultServiceTimeout = 3 * time.Second
)

const (
	RouteGroup        = "/api"
	OrdersRoute       = "/orders"
	OrderRoute        = "/orders/:id"
	OrderStateRoute   = "/orders/:id/state"
	SalesRoute        = "/sales"
	SaleRoute         = "/sales/:id"
	SalePaymentsRoute = "/sales/:id/payments"
	SalePaymentRoute  = "/sales/:id/payments/:index"
	SaleCancelRoute   = "/sales/:id/cancel"
	MetricsRoute      = "/metrics"
)

type RouterArgs struct {
	Logger       *logrus.Logger
	OrderService OrderServicer
	SaleService  SaleServicer
	JWTSecretKey []byte
	// Metrics и MetricsHandler опциональны.
	Metrics        middlewares.HTTPObserver
	MetricsHandler http.Handler
}

func New(args RouterArgs) (*gin.Engine, error) {
	if err := registerValidators(); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if args.Logger != nil {
		r.Use(middlewares.Logger(args.Logger))
	}
	if args.Metrics != nil {
		r.Use(middlewares.Metrics(args.Metrics))
	}
	r.Use(middlewares.Errors())

	if args.MetricsHandler != nil {
		r.GET(MetricsRoute, gin.WrapH(args.MetricsHandler))
	}

	ordersHandler := NewOrdersHandler(args.OrderService)
	salesHandler := NewSalesHandler(args.SaleService)

	api := r.Group(RouteGroup)
	api.Use(middlewares.AuthRequired(args.JWTSecretKey))
	// ниже все роуты группы требуют авторизованного сотрудника.
	api.POST(OrdersRoute, ordersHandler.Create)
	api.GET(OrdersRoute, ordersHandler.Index)
	api.GET(OrderRoute, ordersHandler.Show)
	api.PUT(OrderStateRoute, ordersHandler.UpdateState)

	api.POST(SalesRoute, salesHandler.Create)
	api.GET(SalesRoute, salesHandler.Index)
	api.GET(SaleRoute, salesHandler.Show)
	api.POST(SalePaymentsRoute, salesHandler.AccruePayment)
	api.DELETE(SalePaymentRoute, salesHandler.RemovePayment)
	api.PUT(SaleCancelRoute, salesHandler.Cancel)
	return r, nil
}
