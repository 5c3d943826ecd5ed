package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/NadafAyan/BloodShare/internal/api/http"
	"github.com/NadafAyan/BloodShare/internal/api/http/handlers"
	"github.com/NadafAyan/BloodShare/internal/config"
	"github.com/NadafAyan/BloodShare/internal/events"
	"github.com/NadafAyan/BloodShare/internal/observability"
	"github.com/NadafAyan/BloodShare/internal/persistence"
	"github.com/NadafAyan/BloodShare/internal/repository"
	"github.com/NadafAyan/BloodShare/internal/service"
	"github.com/NadafAyan/BloodShare/internal/validation"
	"github.com/NadafAyan/BloodShare/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// storeHandle is the selected donor store plus what must be pinged and closed.
type storeHandle struct {
	store        repository.DonorRepository
	dependencies []handlers.Dependency
	close        func()
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handle, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer handle.close()

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	g, gctx := errgroup.WithContext(ctx)
	relayCtx, stopRelay := context.WithCancel(context.Background())
	defer stopRelay()

	if len(cfg.Events.KafkaBrokers) > 0 {
		writer := events.NewKafkaWriter(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic)
		publisher := events.NewKafkaPublisher(writer, cfg.Events.KafkaTopic, logger.Named("kafka"))
		defer publisher.Close() //nolint:errcheck

		relay := worker.NewEventRelay(publisher.Handle, 0, logger)
		relay.Register(dispatcher)
		g.Go(func() error { return relay.Run(relayCtx) })
		logger.Info("kafka event publishing enabled",
			zap.Strings("brokers", cfg.Events.KafkaBrokers),
			zap.String("topic", cfg.Events.KafkaTopic))
	}

	metrics := observability.NewMetrics()
	donorService := service.NewDonorService(service.DonorDependencies{
		Store:      handle.store,
		Validator:  validation.New(cfg.Registry.Cities),
		Dispatcher: dispatcher,
		Cache:      service.NewSearchCache(cfg.Registry.SearchCacheTTL()),
		Metrics:    metrics,
		Logger:     logger,
		Retry: service.RetryPolicy{
			Attempts: uint(max(cfg.Registry.RetryAttempts, 1)),
			Interval: cfg.Registry.RetryInterval(),
		},
		DefaultPageSize: cfg.Registry.DefaultPageSize,
		MaxPageSize:     cfg.Registry.MaxPageSize,
	})

	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	deps := append([]handlers.Dependency{{Name: "store", Pinger: donorService}}, handle.dependencies...)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:  handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps...),
		Donors:  handlers.NewDonorsHandler(donorService),
		Admin:   handlers.NewAdminHandler(donorService),
		Metrics: metrics,
	})

	g.Go(func() error {
		logger.Info("http server listening",
			zap.String("addr", cfg.App.Addr()),
			zap.String("store", cfg.Registry.Store))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		err := app.ShutdownWithTimeout(shutdownTimeout)
		stopRelay()
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storeHandle, error) {
	switch cfg.Registry.Store {
	case config.StoreMemory:
		logger.Warn("using in-memory donor store; data is lost on restart")
		return &storeHandle{store: repository.NewInMemoryDonorRepository(), close: func() {}}, nil

	case config.StoreRedis:
		rds := persistence.NewRedis(ctx, cfg.Redis, logger)
		return &storeHandle{
			store:        repository.NewRedisDonorRepository(rds.Client),
			dependencies: []handlers.Dependency{{Name: "redis", Pinger: rds}},
			close:        rds.Close,
		}, nil

	default:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &storeHandle{
			store:        repository.NewDonorRepository(pg.PoolHandle()),
			dependencies: []handlers.Dependency{{Name: "postgres", Pinger: pg}},
			close:        pg.Close,
		}, nil
	}
}
