package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsdevblog/groph-pos/internal/config"
	"github.com/fsdevblog/groph-pos/internal/metrics"
	"github.com/fsdevblog/groph-pos/internal/repository/memrepo"
	"github.com/fsdevblog/groph-pos/internal/repository/pgrepo"
	"github.com/fsdevblog/groph-pos/internal/repository/rdsrepo"
	"github.com/fsdevblog/groph-pos/internal/repository/repoargs"
	"github.com/fsdevblog/groph-pos/internal/service"
	"github.com/fsdevblog/groph-pos/internal/transport/api"
	"github.com/fsdevblog/groph-pos/internal/transport/notify"
	"github.com/fsdevblog/groph-pos/pkg/uow"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

const (
	shutdownTimeout = 10 * time.Second
	idempotencyTTL  = 24 * time.Hour
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
}

func New(conf *config.Config, l *logrus.Logger) *App {
	return &App{
		Config: conf,
		Logger: l,
	}
}

// closer освобождает ресурс при остановке приложения.
type closer func()

func (a *App) Run() error {
	notifyCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Logger.Infof("Starting app with config: %s", a.Config)

	unitOfWork, closeStorage, storageErr := a.initStorage(notifyCtx)
	if storageErr != nil {
		return fmt.Errorf("app run: %s", storageErr.Error())
	}
	defer closeStorage()

	notifier, closeNotifier := a.initNotifier()
	defer closeNotifier()

	idempotency, closeIdempotency, idempotencyErr := a.initIdempotency(notifyCtx)
	if idempotencyErr != nil {
		return fmt.Errorf("app run: %s", idempotencyErr.Error())
	}
	defer closeIdempotency()

	recorder, metricsErr := metrics.New(prometheus.DefaultRegisterer)
	if metricsErr != nil {
		return fmt.Errorf("app run: %s", metricsErr.Error())
	}

	taxRate := a.Config.ParsedTaxRate()
	services, sErr := service.Factory(unitOfWork, service.Options{
		Logger:         a.Logger,
		Metrics:        recorder,
		Notifier:       notifier,
		Idempotency:    idempotency,
		TaxRate:        &taxRate,
		StoreName:      a.Config.StoreName,
		StorageTimeout: a.Config.StorageTimeout,
	})
	if sErr != nil {
		return fmt.Errorf("app run: %s", sErr.Error())
	}
	// после остановки сервера дожидаемся отправки уведомлений о заказах.
	defer services.OrderService.WaitNotifications()

	router, routerErr := api.New(api.RouterArgs{
		Logger:         a.Logger,
		OrderService:   services.OrderService,
		SaleService:    services.SaleService,
		JWTSecretKey:   []byte(a.Config.JWTSecret),
		Metrics:        recorder,
		MetricsHandler: promhttp.Handler(),
	})
	if routerErr != nil {
		return fmt.Errorf("app run: %s", routerErr.Error())
	}

	server := &http.Server{
		Addr:              a.Config.RunAddress,
		Handler:           router,
		ReadHeaderTimeout: api.DefaultServiceTimeout,
	}

	errChan := make(chan error, 1)

	go func() {
		if runErr := server.ListenAndServe(); runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			errChan <- runErr
		}
	}()

	select {
	case <-notifyCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.Logger.WithError(err).Error("http server shutdown")
		}
		return notifyCtx.Err() //nolint:wrapcheck
	case err := <-errChan:
		return err
	}
}

// initStorage поднимает postgres с миграциями или in-memory хранилище с демонстрационным каталогом.
func (a *App) initStorage(ctx context.Context) (uow.UOW, closer, error) {
	if a.Config.Storage == config.StorageMemory {
		a.Logger.Warn("using in-memory storage, data is lost on restart")
		store := memrepo.NewStore()
		store.Seed()
		return memrepo.NewUnitOfWork(store), func() {}, nil
	}

	conn, connErr := pgrepo.Connect(ctx, a.Config.MigrationsDir, a.Config.DatabaseDSN, a.Logger)
	if connErr != nil {
		return nil, nil, fmt.Errorf("init storage: %s", connErr.Error())
	}

	unitOfWork, uowErr := initUOW(conn)
	if uowErr != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("init storage: %s", uowErr.Error())
	}
	return unitOfWork, conn.Close, nil
}

func (a *App) initNotifier() (service.Notifier, closer) {
	if len(a.Config.KafkaBrokers) == 0 {
		return notify.NewLogNotifier(a.Logger), func() {}
	}

	writer := notify.NewKafkaWriter(a.Config.KafkaBrokers, a.Config.KafkaOrdersTopic)
	notifier := notify.NewKafkaNotifier(writer, a.Logger)
	return notifier, func() {
		if err := notifier.Close(); err != nil {
			a.Logger.WithError(err).Error("closing kafka writer")
		}
	}
}

func (a *App) initIdempotency(ctx context.Context) (service.IdempotencyStore, closer, error) {
	if a.Config.RedisAddr == "" {
		return memrepo.NewIdempotencyStore(idempotencyTTL), func() {}, nil
	}

	rdb, err := rdsrepo.Connect(ctx, a.Config.RedisAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("init idempotency: %s", err.Error())
	}
	return rdsrepo.NewIdempotencyStore(rdb, idempotencyTTL), func() {
		if closeErr := rdb.Close(); closeErr != nil {
			a.Logger.WithError(closeErr).Error("closing redis client")
		}
	}, nil
}

func initUOW(conn *pgxpool.Pool) (*uow.UnitOfWork, error) {
	unitOfWork := uow.NewUnitOfWork(conn)

	factories := map[repoargs.RepositoryName]uow.RepositoryFactory{
		repoargs.ProductRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewProductRepository(dbtx)
		},
		repoargs.PartyRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewPartyRepository(dbtx)
		},
		repoargs.OrderRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewOrderRepository(dbtx)
		},
		repoargs.SaleRepoName: func(dbtx uow.DBTX) uow.Repository {
			return pgrepo.NewSaleRepository(dbtx)
		},
	}
	for name, factory := range factories {
		if regErr := unitOfWork.Register(uow.RepositoryName(name), factory); regErr != nil {
			return nil, fmt.Errorf("init UOW: %s", regErr.Error())
		}
	}

	return unitOfWork, nil
}
