// Package metrics prometheus метрики кассы.
package metrics

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "groph_pos"

type Recorder struct {
	ordersCreated   prometheus.Counter
	salesCreated    *prometheus.CounterVec
	salesCancelled  prometheus.Counter
	paymentsAccrued *prometheus.CounterVec
	stockRejections *prometheus.CounterVec
	httpDurations   *prometheus.HistogramVec
}

// New создает метрики и регистрирует их в reg. Отдельный registry позволяет создавать
// несколько экземпляров в тестах.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orders", Name: "created_total",
			Help: "Orders accepted by order intake.",
		}),
		salesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sales", Name: "created_total",
			Help: "Registered sales by initial status.",
		}, []string{"status"}),
		salesCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sales", Name: "cancelled_total",
			Help: "Cancelled sales.",
		}),
		paymentsAccrued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sales", Name: "payments_accrued_total",
			Help: "Partial payments added to pending sales.",
		}, []string{"method"}),
		stockRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "inventory", Name: "stock_rejections_total",
			Help: "Reservations rejected for insufficient stock.",
		}, []string{"product_id"}),
		httpDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	collectors := []prometheus.Collector{
		r.ordersCreated,
		r.salesCreated,
		r.salesCancelled,
		r.paymentsAccrued,
		r.stockRejections,
		r.httpDurations,
	}
	var errs []error
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("register metrics: %w", errors.Join(errs...))
	}
	return r, nil
}

func (r *Recorder) OrderCreated() {
	r.ordersCreated.Inc()
}

func (r *Recorder) SaleCreated(status domain.SaleStatusType) {
	r.salesCreated.WithLabelValues(string(status)).Inc()
}

func (r *Recorder) SaleCancelled() {
	r.salesCancelled.Inc()
}

func (r *Recorder) PaymentAccrued(method domain.PaymentMethodType) {
	r.paymentsAccrued.WithLabelValues(string(method)).Inc()
}

func (r *Recorder) StockRejected(productID int64) {
	r.stockRejections.WithLabelValues(strconv.FormatInt(productID, 10)).Inc()
}

// ObserveHTTP время обработки запроса. route шаблон маршрута gin, а не фактический путь.
func (r *Recorder) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	r.httpDurations.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
