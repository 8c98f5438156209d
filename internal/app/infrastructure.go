package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/prperemyshlev/slangdex/internal/config"
	"github.com/prperemyshlev/slangdex/pkg/blobstore"
	"github.com/prperemyshlev/slangdex/pkg/database"
	"github.com/prperemyshlev/slangdex/pkg/docstore"
	"github.com/prperemyshlev/slangdex/pkg/observability"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

type Infrastructure interface {
	Postgres() *database.Postgres
	Redis() *database.Redis
	Documents() docstore.Store
	Blobs() *blobstore.FileStore
	Clock() clockwork.Clock
	Logger() *zap.Logger
	MetricsHandler() http.Handler
	MeterProvider() *metric.MeterProvider

	Shutdown(ctx context.Context) error
}

type infrastructure struct {
	postgres       *database.Postgres
	redis          *database.Redis
	documents      docstore.Store
	blobs          *blobstore.FileStore
	clock          clockwork.Clock
	logger         *zap.Logger
	metricsHandler http.Handler
	meterProvider  *metric.MeterProvider
}

var _ Infrastructure = &infrastructure{}

func NewInfrastructure(ctx context.Context, cfg config.Config) (*infrastructure, error) {
	i := &infrastructure{clock: clockwork.NewRealClock()}

	logger, err := observability.InitLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	i.logger = logger

	postgres, err := database.NewPostgres(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	i.postgres = postgres

	redis, err := database.NewRedis(ctx, cfg.Redis.Address(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = i.postgres.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	i.redis = redis

	switch cfg.StoreBackend {
	case config.StoreBackendMemory:
		logger.Warn("profiles are kept in memory and are lost on restart")
		i.documents = docstore.NewMemoryStore(i.clock)
	default:
		i.documents = docstore.NewPostgresStore(postgres.DB, i.clock)
	}

	blobs, err := blobstore.NewFileStore(cfg.Blob.Root, cfg.Blob.BaseURL)
	if err != nil {
		_ = i.postgres.Close()
		_ = i.redis.Close()
		return nil, fmt.Errorf("failed to initialize blob store: %w", err)
	}
	i.blobs = blobs

	meterProvider, metricsHandler, err := observability.InitTelemetry("slangdex")
	if err != nil {
		_ = i.postgres.Close()
		_ = i.redis.Close()
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	i.meterProvider = meterProvider
	i.metricsHandler = metricsHandler

	return i, nil
}

func (i *infrastructure) Postgres() *database.Postgres {
	return i.postgres
}

func (i *infrastructure) Redis() *database.Redis {
	return i.redis
}

func (i *infrastructure) Documents() docstore.Store {
	return i.documents
}

func (i *infrastructure) Blobs() *blobstore.FileStore {
	return i.blobs
}

func (i *infrastructure) Clock() clockwork.Clock {
	return i.clock
}

func (i *infrastructure) Logger() *zap.Logger {
	return i.logger
}

func (i *infrastructure) MetricsHandler() http.Handler {
	return i.metricsHandler
}

func (i *infrastructure) MeterProvider() *metric.MeterProvider {
	return i.meterProvider
}

func (i *infrastructure) Shutdown(ctx context.Context) error {
	errs := make(chan error, 3)

	go func() { errs <- i.postgres.Close() }()
	go func() { errs <- i.redis.Close() }()
	go func() { errs <- observability.Shutdown(ctx, i.meterProvider, i.logger) }()

	return errors.Join(<-errs, <-errs, <-errs)
}
