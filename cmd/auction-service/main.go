package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	ahttp "github.com/radieske/auction-bidding-core/internal/auction-service/http"
	"github.com/radieske/auction-bidding-core/internal/shared/cache"
	"github.com/radieske/auction-bidding-core/internal/shared/config"
	"github.com/radieske/auction-bidding-core/internal/shared/db"
	"github.com/radieske/auction-bidding-core/internal/shared/db/migrations"
	"github.com/radieske/auction-bidding-core/internal/shared/logger"
	"github.com/radieske/auction-bidding-core/internal/shared/metrics"
	"github.com/radieske/auction-bidding-core/internal/store"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "auction-service"
	}

	log, err := logger.New(logger.Options{Service: cfg.ServiceName, Env: cfg.Env, Instance: cfg.InstanceID, Level: cfg.LogLevel})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	if cfg.RunMigrations {
		if err := migrations.Up(pg); err != nil {
			log.Fatal("migrations", zap.Error(err))
		}
	}

	// Redis guarda os snapshots lot:<id> lidos pelo GET /lots/{id}
	rdb, err := cache.ConnectRedis(cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	api := ahttp.NewServer(log, store.NewPostgres(pg), cache.New(rdb, cfg.CacheTTL))
	api.IncrementPercent = cfg.BidIncrementPercent

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8081
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, metrics.All(map[string]metrics.HealthFunc{
		"pg":    pg.PingContext,
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}), log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api srv", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
