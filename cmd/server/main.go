package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/centrifugal/centrifuge"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/adapter/httpserver"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/adapter/memory"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/adapter/metrics"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/adapter/postgres"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/adapter/redis"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/adapter/websocket"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/app"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/domain"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/platform/config"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/platform/logging"
	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/platform/retry"
)

var startupRetry = retry.Policy{
	MaxAttempts:    5,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
	OnRetry: func(attempt int, err error, backoff time.Duration) {
		slog.Warn("Dependency not ready, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	},
}

type observability struct {
	registry *prometheus.Registry
	http     *metrics.HTTPMetrics
	polls    *metrics.PollMetrics
	ws       *metrics.WebSocketMetrics
	breakers *metrics.BreakerMetrics
	db       *metrics.DatabaseMetrics
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupMetrics() observability {
	reg := metrics.NewRegistry()
	return observability{
		registry: reg,
		http:     metrics.NewHTTPMetrics(reg),
		polls:    metrics.NewPollMetrics(reg),
		ws:       metrics.NewWebSocketMetrics(reg),
		breakers: metrics.NewBreakerMetrics(reg),
		db:       metrics.NewDatabaseMetrics(reg),
	}
}

func setupRedis(cfg *config.Config, breakers *metrics.BreakerMetrics) *goredis.Client {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var client *goredis.Client
	err := retry.DoVoid(ctx, startupRetry, retry.Always, func() error {
		c, err := redis.NewClient(ctx, cfg.RedisURL, redis.NewCircuitBreakerHook(breakers))
		if err != nil {
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupDB(cfg *config.Config, dbMetrics *metrics.DatabaseMetrics) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.OpenArchive(ctx, cfg.DatabaseURL, postgres.NewMetricsTracer(dbMetrics))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.MigrateArchive(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func runGracefulShutdown(srv *httpserver.Server, node *centrifuge.Node, appSvc *app.Service) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := node.Shutdown(shutdownCtx); err != nil {
			slog.Error("Websocket node shutdown error", "error", err)
		}

		appSvc.Stop()
		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "store", cfg.StoreBackend)

	obs := setupMetrics()
	var healthChecks []httpserver.HealthCheck

	var polls domain.PollRepository
	var redisClient *goredis.Client
	switch cfg.StoreBackend {
	case config.StoreRedis:
		redisClient = setupRedis(cfg, obs.breakers)
		defer func() { _ = redisClient.Close() }()

		repo := redis.NewPollRepo(redisClient, cfg.PollTTL)
		polls = repo
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "redis", Check: repo.Ping})
	default:
		polls = memory.NewPollRepo(clock, cfg.PollTTL)
	}

	var archive domain.ResultsArchive
	if cfg.DatabaseURL != "" {
		pool := setupDB(cfg, obs.db)
		defer pool.Close()

		resultsArchive := postgres.NewResultsArchive(pool, obs.breakers)
		archive = resultsArchive
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "postgres", Check: resultsArchive.Ping})
	} else {
		slog.Info("DATABASE_URL not set, closed poll results will not be archived")
	}

	// The node needs the service to render views and the service needs the
	// node to publish, so the view source resolves appSvc lazily.
	var appSvc *app.Service
	views := websocket.ViewSourceFunc(func(ctx context.Context, sessionID, participant string) (*domain.PollView, error) {
		return appSvc.GetView(ctx, sessionID, participant)
	})

	node, err := websocket.NewNode(views, obs.ws, cfg.LogLevel)
	if err != nil {
		slog.Error("Failed to create websocket node", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		ep, err := redis.ParseEndpoint(cfg.RedisURL)
		if err == nil {
			err = websocket.SetupRedis(node, websocket.RedisConnection{
				Address:   ep.Addr,
				User:      ep.Username,
				Password:  ep.Password,
				DB:        ep.DB,
				TLSConfig: ep.TLSConfig,
			})
		}
		if err != nil {
			slog.Error("Failed to set up websocket broker", "error", err)
			os.Exit(1)
		}
	}

	appSvc = app.NewService(polls, archive, websocket.NewPublisher(node, obs.ws), obs.polls, clock)

	if err := node.Run(); err != nil {
		slog.Error("Failed to start websocket node", "error", err)
		os.Exit(1)
	}

	wsHandler := centrifuge.NewWebsocketHandler(node, centrifuge.WebsocketConfig{
		CheckOrigin: websocket.NewCheckOrigin(cfg.AllowedOrigins(), !cfg.IsProduction()),
	})

	srv := httpserver.NewServer(cfg, appSvc, httpserver.Deps{
		WebsocketHandler: wsHandler,
		MetricsHandler:   metrics.Handler(obs.registry),
		HTTPMetrics:      obs.http,
		HealthChecks:     healthChecks,
	})

	done := runGracefulShutdown(srv, node, appSvc)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
