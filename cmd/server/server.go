package main

import (
	"context"
	"time"

	"github.com/septivank/utility-metering-api/internal/anomaly"
	"github.com/septivank/utility-metering-api/internal/config"
	"github.com/septivank/utility-metering-api/internal/db"
	"github.com/septivank/utility-metering-api/internal/httpapi"
	"github.com/septivank/utility-metering-api/internal/imagestore"
	"github.com/septivank/utility-metering-api/internal/mq"
	"github.com/septivank/utility-metering-api/internal/repository"
	"github.com/septivank/utility-metering-api/internal/service"
	"github.com/septivank/utility-metering-api/internal/validator"
	"github.com/septivank/utility-metering-api/internal/vision"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func startServer(
	lc fx.Lifecycle,
	server *httpapi.Server,
	cfg *config.Config,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			logger.Info("starting http listener", zap.Int("port", cfg.ServicePort))
			go func() {
				if err := server.Start(); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			if err := server.Shutdown(stopCtx); err != nil {
				logger.Error("failed to shut down http server", zap.Error(err))
				return err
			}
			logger.Info("http server stopped gracefully")
			return nil
		},
	})
}

// ProvideDBPool creates a new database pool instance
func ProvideDBPool(lc fx.Lifecycle, logger *zap.Logger, cfg *config.Config) (*db.Pool, error) {
	return db.NewPool(lc, logger, cfg.Database.URL)
}

// ProvideRepository creates the measure repository and ensures the
// schema on startup
func ProvideRepository(lc fx.Lifecycle, pool *db.Pool, logger *zap.Logger) *repository.Repository {
	repo := repository.NewRepository(pool)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("ensuring database schema")
			return repo.EnsureSchema(ctx)
		},
	})

	return repo
}

// ProvideImageStore creates the local image store
func ProvideImageStore(cfg *config.Config) *imagestore.Store {
	return imagestore.NewStore(cfg.Storage.Dir, cfg.Storage.PublicPrefix)
}

// ProvideVisionClient creates the vision extraction client
func ProvideVisionClient(cfg *config.Config, logger *zap.Logger) vision.Extractor {
	return vision.NewClient(vision.ClientConfig{
		APIURL:  cfg.Vision.APIURL,
		APIKey:  cfg.Vision.APIKey,
		Model:   cfg.Vision.Model,
		Timeout: time.Duration(cfg.Vision.TimeoutSeconds) * time.Second,
		Logger:  logger,
	})
}

// ProvideEventPublisher creates the measure event publisher. Without a
// configured broker URL events are discarded.
func ProvideEventPublisher(lc fx.Lifecycle, cfg *config.Config, logger *zap.Logger) (mq.EventPublisher, error) {
	if cfg.RabbitMQ.URL == "" {
		logger.Info("RABBITMQ_URL not set, measure events disabled")
		return mq.NopPublisher{}, nil
	}

	conn, err := mq.NewConnection(lc, logger, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}
	return mq.NewPublisher(conn, cfg.RabbitMQ.EventsExchange, logger)
}

// ProvideAnomalyDetector creates the plausibility detector
func ProvideAnomalyDetector(cfg *config.Config) *anomaly.Detector {
	return anomaly.NewDetector(cfg.Anomaly.SpikeThreshold, cfg.Anomaly.MinDataPointsForDetection)
}

// ProvideValidator creates the request validator
func ProvideValidator() *validator.Validator {
	return validator.NewValidator()
}

// ProvideMeasureService creates the measure workflow service
func ProvideMeasureService(
	repo *repository.Repository,
	store *imagestore.Store,
	extractor vision.Extractor,
	publisher mq.EventPublisher,
	detector *anomaly.Detector,
	validator *validator.Validator,
	cfg *config.Config,
	logger *zap.Logger,
) *service.MeasureService {
	return service.NewMeasureService(repo, store, extractor, publisher, detector, validator, cfg, logger)
}

// ProvideHTTPServer creates the HTTP server
func ProvideHTTPServer(svc *service.MeasureService, cfg *config.Config, logger *zap.Logger) *httpapi.Server {
	return httpapi.NewServer(svc, cfg, logger)
}
