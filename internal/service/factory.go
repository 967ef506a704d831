package service

import (
	"fmt"
	"io"
	"time"

	"github.com/fsdevblog/groph-pos/pkg/uow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultStorageTimeout = 3 * time.Second
	defaultNotifyTimeout  = 5 * time.Second
	defaultStoreName      = "groph pos"
)

var defaultTaxRate = decimal.RequireFromString("0.08")

var tracer = otel.Tracer("github.com/fsdevblog/groph-pos/internal/service")

// endSpan закрывает span и помечает его ошибкой, если операция не удалась.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Options общие зависимости сервисов. Нулевые значения заменяются значениями по умолчанию.
type Options struct {
	Logger         *logrus.Logger
	Metrics        MetricsRecorder
	Notifier       Notifier
	Idempotency    IdempotencyStore
	// TaxRate ставка налога, включенного в цену. nil означает ставку по умолчанию, явный ноль сохраняется.
	TaxRate        *decimal.Decimal
	StoreName      string
	StorageTimeout time.Duration
	NotifyTimeout  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logrus.New()
		o.Logger.SetOutput(io.Discard)
	}
	if o.Metrics == nil {
		o.Metrics = nopMetrics{}
	}
	if o.Notifier == nil {
		o.Notifier = nopNotifier{}
	}
	if o.TaxRate == nil {
		rate := defaultTaxRate
		o.TaxRate = &rate
	}
	if o.StoreName == "" {
		o.StoreName = defaultStoreName
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = defaultStorageTimeout
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = defaultNotifyTimeout
	}
	return o
}

type AppServices struct {
	OrderService *OrderService
	SaleService  *SaleService
}

func Factory(unitOfWork uow.UOW, opts Options) (*AppServices, error) {
	orderService, orderServiceErr := NewOrderService(unitOfWork, opts)
	if orderServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", orderServiceErr.Error())
	}

	saleService, saleServiceErr := NewSaleService(unitOfWork, opts)
	if saleServiceErr != nil {
		return nil, fmt.Errorf("service factory: %s", saleServiceErr.Error())
	}

	return &AppServices{
		OrderService: orderService,
		SaleService:  saleService,
	}, nil
}
