package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Cheertaboi/shipping-service/internal/api"
	"github.com/Cheertaboi/shipping-service/internal/cache"
	"github.com/Cheertaboi/shipping-service/internal/config"
	"github.com/Cheertaboi/shipping-service/internal/geo"
	"github.com/Cheertaboi/shipping-service/internal/logger"
	"github.com/Cheertaboi/shipping-service/internal/metrics"
	"github.com/Cheertaboi/shipping-service/internal/migration"
	"github.com/Cheertaboi/shipping-service/internal/repository"
	"github.com/Cheertaboi/shipping-service/internal/service"
	"github.com/Cheertaboi/shipping-service/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("shipping-service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	// checkout expects prices as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	conn, err := db.NewPostgresConnection(db.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer conn.Close()

	if cfg.Database.AutoMigrate {
		m, err := migration.New(conn, log.Named("migrate"))
		if err != nil {
			return err
		}
		if err := m.Up(); err != nil {
			return err
		}
	}

	rateCache, closeCache, err := newRateCache(cfg, log)
	if err != nil {
		return err
	}
	defer closeCache()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	table := cfg.Geo.Table()
	resolver := geo.NewResolver(table)
	repo := repository.NewRateRepo(conn)

	shipping := service.NewShippingService(repo, rateCache, resolver, log, m)
	shipping.SetSimulationWorkers(cfg.HTTP.SimulationWorkers)
	rates := service.NewRateService(repo, rateCache, table, log)

	handler := api.NewRouter(api.Dependencies{
		Shipping:       shipping,
		Rates:          rates,
		Logger:         log,
		Metrics:        m,
		Gatherer:       reg,
		RequestTimeout: cfg.HTTP.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("HTTP server Shutdown", zap.Error(err))
		}
		close(idleConnsClosed)
	}()

	log.Info("starting shipping-service",
		zap.String("addr", srv.Addr),
		zap.String("env", cfg.App.Env),
		zap.String("cache", cfg.Cache.Driver),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}

	<-idleConnsClosed
	log.Info("server stopped")
	return nil
}

func newRateCache(cfg *config.Config, log *zap.Logger) (cache.RateCache, func(), error) {
	switch cfg.Cache.Driver {
	case "redis":
		rc, err := cache.NewRedisRateCache(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using redis rate cache", zap.String("host", cfg.Redis.Host))
		return rc, func() { _ = rc.Close() }, nil
	case "none":
		return cache.NoopRateCache{}, func() {}, nil
	default:
		return cache.NewMemoryRateCache(cfg.Cache.TTL), func() {}, nil
	}
}
