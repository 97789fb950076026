package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"forexrates/internal/adapters"
	"forexrates/internal/adapters/httpclient"
	"forexrates/internal/adapters/postgres"
	redisstore "forexrates/internal/adapters/redis"
	"forexrates/internal/api"
	"forexrates/internal/config"
	"forexrates/internal/platform/db"
	httpserver "forexrates/internal/platform/http"
	"forexrates/internal/platform/metrics"
	"forexrates/internal/rate"
	"forexrates/internal/rate/handler"

	"github.com/go-redis/redis"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

const startupTimeout = 30 * time.Second

// Run wires the application components, starts HTTP server and scheduler
func Run(cfgPath string) error {
	appCfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	// Root context bound to OS signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Bounded context for startup operations (store connect, migrations)
	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	store, closeStore, err := openStore(startupCtx, appCfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Metrics registry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rateMetrics := metrics.NewRateMetrics(registry)

	// Provider
	provider := httpclient.NewAlphaVantageClient(
		&http.Client{Timeout: appCfg.HTTPClient.Timeout()},
		strings.TrimSuffix(appCfg.AlphaVantage.BaseURL, "/"),
		appCfg.AlphaVantage.APIKey,
		appCfg.AlphaVantage.Function,
	)

	// Services
	rateService := rate.NewService(store, provider, rateMetrics)
	scheduler := rate.NewScheduler(store, rateMetrics, time.Duration(appCfg.Scheduler.StatsIntervalSec)*time.Second)
	// Ensure scheduler stops before the store closes
	defer func() {
		if shutDownErr := scheduler.Shutdown(); shutDownErr != nil {
			logrus.Errorf("Scheduler shutdown error: %v", shutDownErr)
		}
	}()
	if startErr := scheduler.Start(ctx); startErr != nil {
		logrus.WithError(startErr).Error("Failed to start scheduler")
		return startErr
	}
	logrus.Info("✅ Scheduler activation successful")

	// Handlers and router
	deps := api.RouterDeps{
		RateHandler: handler.NewRateHandler(rateService, rate.NewRequestValidator()),
		Gatherer:    registry,
	}
	if appCfg.HTTPServer.RateLimit != "" {
		ipLimiter, limitErr := api.NewIPLimiter(appCfg.HTTPServer.RateLimit)
		if limitErr != nil {
			return fmt.Errorf("invalid http_server.rate_limit: %w", limitErr)
		}
		deps.Limiter = ipLimiter
		logrus.WithField("rate", appCfg.HTTPServer.RateLimit).Info("✅ Rate limiting enabled")
	}
	router := api.NewRouter(deps)

	logrus.Info("Starting http server")
	// Block until context is canceled, then perform graceful shutdown.
	if serverErr := httpserver.Start(ctx, appCfg.HTTPServer, router); serverErr != nil {
		// Cancel the root context to stop scheduler and other in-flight work
		stop()
		logrus.Errorf("HTTP server error: %v", serverErr)
		return serverErr
	}
	return nil
}

// Migrate applies pending Postgres migrations and exits.
func Migrate(cfgPath string) error {
	appCfg, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	pool, err := db.CreatePoolAndPing(ctx, appCfg.DbServer)
	if err != nil {
		logrus.WithError(err).Error("Error connecting to db")
		return err
	}
	defer pool.Close()

	if err = db.Migrate(ctx, pool); err != nil {
		return err
	}
	logrus.Info("✅ Migrations applied")
	return nil
}

func loadConfig(cfgPath string) (*config.AppConfig, error) {
	appCfg, err := config.Init(cfgPath)
	if err != nil {
		return nil, err
	}
	setupLogger(appCfg.Logging)
	if err = appCfg.Validate(); err != nil {
		logrus.WithError(err).Error("Invalid configuration")
		return nil, err
	}
	logrus.Info("✅ Config initialization successful")
	return appCfg, nil
}

func setupLogger(cfg config.Logging) {
	logrus.SetOutput(os.Stdout)
	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if parsedLvl, parseErr := logrus.ParseLevel(cfg.Level); parseErr != nil {
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(parsedLvl)
	}
}

// openStore connects the configured RateStore backend. Postgres is migrated
// on startup.
func openStore(ctx context.Context, appCfg *config.AppConfig) (adapters.RateStore, func(), error) {
	switch appCfg.Store.Driver {
	case config.StoreDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     appCfg.Redis.Addr,
			Password: appCfg.Redis.Password,
			DB:       appCfg.Redis.DB,
		})
		store := redisstore.NewRateStore(client)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			logrus.WithError(err).Error("Error connecting to redis")
			return nil, nil, err
		}
		logrus.Info("✅ Redis connection successful")
		return store, func() { _ = client.Close() }, nil
	default:
		pool, err := db.CreatePoolAndPing(ctx, appCfg.DbServer)
		if err != nil {
			logrus.WithError(err).Error("Error connecting to db")
			return nil, nil, err
		}
		logrus.Info("✅ Postgres connection successful")

		if err = db.Migrate(ctx, pool); err != nil {
			pool.Close()
			logrus.WithError(err).Error("Failed to apply migrations")
			return nil, nil, err
		}
		logrus.Info("✅ Migrations applied")
		return postgres.NewRateRepository(pool), pool.Close, nil
	}
}
