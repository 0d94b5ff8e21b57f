package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog"
	"github.com/google/uuid"
	"github.com/marcelsud/webhook-router/config"
	"github.com/marcelsud/webhook-router/endpoints"
	"github.com/marcelsud/webhook-router/internal/http/chi"
	"github.com/marcelsud/webhook-router/internal/worker"
	"github.com/marcelsud/webhook-router/internal/ws"
	"github.com/marcelsud/webhook-router/metrics"
	"github.com/marcelsud/webhook-router/webhook"
	"github.com/marcelsud/webhook-router/webhook/dispatch"
	"github.com/marcelsud/webhook-router/webhook/postgres"
	"github.com/marcelsud/webhook-router/webhook/redis"
	"github.com/marcelsud/webhook-router/webhook/sqlite"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

const heartbeatInterval = 30 * time.Second

/* main.go is where every package gets wired together
 * Imports only go one way, down: the binary imports the business layer,
 * which imports the storage layer
 */

// store is what the binary needs from either event store
type store interface {
	webhook.Repository
	metrics.EventStats
	endpoints.Store
}

func main() {
	cfg, err := config.GetConfig()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	logger := httplog.NewLogger("webhook-router", httplog.Options{
		JSON: true,
	})

	if err := run(cfg, logger); err != nil {
		logger.Error().Err(err).Msg("webhook-router stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT,
	)
	defer stop()

	repo, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close(context.Background())

	if cfg.EndpointsFile != "" {
		loader := endpoints.NewLoader()
		if err := loader.Load(cfg.EndpointsFile); err != nil {
			return fmt.Errorf("loading endpoints: %w", err)
		}
		n, err := loader.Seed(ctx, repo)
		if err != nil {
			return fmt.Errorf("seeding endpoints: %w", err)
		}
		logger.Info().Int("endpoints", n).Str("file", cfg.EndpointsFile).Msg("endpoints seeded")
	}

	runner := worker.New(ctx, logger)
	hub := ws.NewHub(logger, cfg.GetCORSOrigins()...)
	g, gctx := errgroup.WithContext(ctx)

	// Without Redis the hub is the broadcaster. With it, every instance publishes
	// to Redis and relays the channel pattern back into its own hub.
	var broadcaster webhook.Broadcaster = hub
	var instances metrics.InstanceLister
	if cfg.RedisEnabled() {
		broker, err := redis.NewBroker(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer broker.Close()
		broadcaster = broker
		instances = broker

		instanceID := cfg.InstanceID
		if instanceID == "" {
			instanceID = uuid.New().String()
		}
		g.Go(func() error {
			if err := broker.Relay(gctx, hub.Broadcast); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("realtime relay: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			broker.RunHeartbeat(gctx, instanceID, heartbeatInterval, runner.InFlight)
			return nil
		})
		logger.Info().Str("instance_id", instanceID).Str("redis", cfg.RedisAddr).Msg("realtime relay enabled")
	}

	service := webhook.NewService(
		repo,
		dispatch.NewClient(cfg.GetOutboundTimeout()),
		webhook.NewNotifier(broadcaster, logger),
		runner,
		logger,
	)
	service.SecretCost = cfg.GetBcryptCost()

	collector := metrics.NewStoreCollector(repo, runner.InFlight, instances)
	exporter, err := metrics.NewOTelExporter(collector)
	if err != nil {
		return fmt.Errorf("creating metrics exporter: %w", err)
	}
	defer exporter.Shutdown(context.Background())

	r := chi.Handlers(logger, chi.Options{
		Service:     service,
		Realtime:    hub,
		Metrics:     exporter.Handler(),
		Stats:       collector,
		RateLimit:   cfg.GetRateLimitWebhook(),
		CORSOrigins: cfg.GetCORSOrigins(),
	})
	// No Read/WriteTimeout: websocket connections are long lived,
	// every other route is bounded by the router's timeout middleware
	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(r, "webhook-router"),
	}

	g.Go(func() error {
		logger.Info().Str("port", cfg.Port).Str("driver", cfg.DatabaseDriver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	// gctx is also canceled when the relay or the listener fail, which shuts the rest down
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(srv, runner, cfg.GetShutdownTimeout())
	})

	return g.Wait()
}

func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		if err := postgres.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
			return nil, err
		}
		return postgres.NewRepositoryWithPoolConfig(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxConns:        int32(cfg.PostgresMaxConns),
			MinConns:        int32(cfg.PostgresMinConns),
			MaxConnLifetime: cfg.GetPostgresConnMaxLifetime(),
		})
	default:
		return sqlite.NewRepository(ctx, cfg.SQLitePath)
	}
}

// shutdown stops accepting requests, then lets in-flight routing finish
func shutdown(server *http.Server, runner *worker.Runner, timeout time.Duration) error {
	ctxTimeout, stop := context.WithTimeout(context.Background(), timeout)
	defer stop()

	if err := server.Shutdown(ctxTimeout); err != nil {
		return fmt.Errorf("forcing closing the server: %w", err)
	}
	if err := runner.Wait(ctxTimeout); err != nil {
		return fmt.Errorf("abandoning %d in-flight events: %w", runner.InFlight(), err)
	}
	return nil
}
