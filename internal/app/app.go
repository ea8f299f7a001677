package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DRSN-tech/shop-backend/db"
	config "github.com/DRSN-tech/shop-backend/internal/cfg"
	v1Http "github.com/DRSN-tech/shop-backend/internal/delivery/v1/http"
	"github.com/DRSN-tech/shop-backend/internal/infrastructure/kafka"
	"github.com/DRSN-tech/shop-backend/internal/repository/pgdb"
	pgdbConv "github.com/DRSN-tech/shop-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/shop-backend/internal/repository/redis"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/clients"
	"github.com/DRSN-tech/shop-backend/pkg/closer"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/DRSN-tech/shop-backend/pkg/postgres"
	"github.com/DRSN-tech/shop-backend/pkg/tr"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

const (
	startupTimeout     = 10 * time.Second
	kafkaTopicTimeout  = 10 * time.Second
	outboxStaleTimeout = 5 * time.Minute
)

type App struct {
	cfg    *config.Config
	logger logger.Logger

	closer       *closer.Closer
	httpSrv      *v1Http.Server
	outboxWorker *kafka.OutboxWorker
}

// NewApp поднимает зависимости и собирает приложение. Ресурсы регистрируются
// в closer в порядке открытия, закрываются в обратном.
func NewApp(cfg *config.Config, logger logger.Logger) (*App, error) {
	// цены и суммы в JSON отдаются числами
	decimal.MarshalJSONWithoutQuotes = true

	a := &App{
		cfg:    cfg,
		logger: logger,
		closer: closer.NewCloser(cfg.ShutdownTimeout),
	}

	if err := a.init(); err != nil {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if cerr := a.closer.Close(ctx); cerr != nil {
			logger.Warnf("cleanup after failed init: %v", cerr)
		}
		return nil, err
	}

	return a, nil
}

func (a *App) init() error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	pg, err := initPGDB(ctx, a.logger, a.cfg)
	if err != nil {
		return err
	}
	a.closer.Add("postgres", func(context.Context) error {
		pg.Close()
		return nil
	})

	getter := tr.NewGetter(pg.Pool)
	trManager := tr.NewManager(pg.Pool)

	productRepo := pgdb.NewProductRepo(getter, pgdbConv.NewProductConverter())
	orderRepo := pgdb.NewOrderRepo(getter, trManager, pgdbConv.NewOrderConverter())
	outboxRepo := pgdb.NewOutboxEventRepo(getter, pgdbConv.NewOutboxEventConverter(), outboxStaleTimeout)

	idempotency, err := a.initIdempotency(ctx)
	if err != nil {
		return err
	}

	if err := a.initOutboxRelay(outboxRepo, pg.Dsn); err != nil {
		return err
	}

	validator := usecase.NewValidator()
	productUC := usecase.NewProductUC(productRepo, validator, a.logger)
	orderUC := usecase.NewOrderUC(
		orderRepo,
		productRepo,
		outboxRepo,
		trManager,
		idempotency,
		validator,
		a.logger,
	)

	r := chi.NewRouter()
	router := v1Http.NewRouter(r, a.logger)
	router.Init(productUC, orderUC, pg)

	a.httpSrv = v1Http.NewServer(router.Handler(), a.cfg.Http)
	a.closer.Add("http server", a.httpSrv.Stop)

	return nil
}

// initIdempotency подключает Redis. Без REDIS_ADDR заголовок Idempotency-Key игнорируется.
func (a *App) initIdempotency(ctx context.Context) (usecase.IdempotencyStore, error) {
	if !a.cfg.Redis.Enabled() {
		a.logger.Warnf("REDIS_ADDR is not set, idempotency keys are disabled")
		return nil, nil
	}

	redisClient := clients.NewRedisClient(a.cfg.Redis)
	a.closer.Add("redis", redisClient.Close)

	if err := redisClient.Ping(ctx); err != nil {
		a.logger.Errorf(err, "failed to connect to redis")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return redis.NewIdempotencyRepo(redisClient, a.cfg.Redis.IdempotencyTTL), nil
}

// initOutboxRelay запускает публикацию событий в Kafka. Без KAFKA_BROKERS события копятся в outbox.
func (a *App) initOutboxRelay(repo usecase.OutboxRepository, dsn string) error {
	if !a.cfg.Kafka.Enabled() {
		a.logger.Warnf("KAFKA_BROKERS is not set, outbox relay is disabled")
		return nil
	}

	producer := kafka.NewProducer(a.logger, a.cfg.Kafka)
	a.closer.Add("kafka producer", producer.Close)

	if err := producer.EnsureTopic(kafkaTopicTimeout); err != nil {
		a.logger.Errorf(err, "failed to ensure kafka topic")
		return e.Wrap(whereami.WhereAmI(), err)
	}

	a.outboxWorker = kafka.NewOutboxWorker(repo, a.logger, producer, a.cfg.Outbox, dsn)
	a.closer.Add("outbox worker", a.outboxWorker.Stop)

	return nil
}

// Run блокирует до сигнала остановки или падения HTTP-сервера.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.outboxWorker != nil {
		a.outboxWorker.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Infof("HTTP server started on %s", a.httpSrv.Addr())
		errCh <- a.httpSrv.Run()
	}()

	var appErr error
	select {
	case appErr = <-errCh:
		if appErr != nil {
			a.logger.Errorf(appErr, "HTTP server fatal error")
		}
	case <-ctx.Done():
		a.logger.Infof("Received shutdown signal, stopping gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.closer.Close(shutdownCtx); err != nil {
		a.logger.Errorf(err, "shutdown finished with errors")
		if appErr == nil {
			appErr = err
		}
	} else {
		a.logger.Infof("Application shutdown complete")
	}

	return appErr
}

func initPGDB(ctx context.Context, logger logger.Logger, cfg *config.Config) (*postgres.PgDatabase, error) {
	pg, err := postgres.Connect(ctx, cfg.Db)
	if err != nil {
		logger.Errorf(err, "failed to connect to database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := pg.RunMigrations(db.Migrations, db.MigrationsDir, logger); err != nil {
		pg.Close()
		logger.Errorf(err, "failed to run migrations")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	if err := pg.Ping(ctx); err != nil {
		pg.Close()
		logger.Errorf(err, "failed to ping database")
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return pg, nil
}
