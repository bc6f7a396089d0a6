package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/auction-bidding-core/internal/auction"
	"github.com/radieske/auction-bidding-core/internal/shared/cache"
	"github.com/radieske/auction-bidding-core/internal/shared/config"
	"github.com/radieske/auction-bidding-core/internal/shared/kafka"
	"github.com/radieske/auction-bidding-core/internal/shared/logger"
	"github.com/radieske/auction-bidding-core/internal/shared/metrics"
	"github.com/radieske/auction-bidding-core/internal/submitter"
	shttp "github.com/radieske/auction-bidding-core/internal/submitter/http"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "bid-submitter"
	}
	log, err := logger.New(logger.Options{Service: cfg.ServiceName, Env: cfg.Env, Instance: cfg.InstanceID, Level: cfg.LogLevel})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Redis: snapshots de lote e saldo
	rdb, err := cache.ConnectRedis(cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writer (topic auction.bids, chave = lot_id)
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBids)
	defer writer.Close()

	submitted := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bids_submitted_total", Help: "lances recebidos por resultado"}, []string{"outcome"})
	prometheus.MustRegister(submitted)

	policy := auction.Policy{ReservationPercent: cfg.ReservationPercent, AllowSelfRaise: cfg.AllowSelfRaise}
	svc := submitter.New(cache.New(rdb, cfg.CacheTTL), kafka.NewBidPublisher(writer), policy, log)
	svc.OnResult = func(outcome string) { submitted.WithLabelValues(outcome).Inc() }

	// HTTP público
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           shttp.NewServer(svc).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("bid-submitter listening", zap.String("addr", apiSrv.Addr), zap.String("topic", cfg.TopicBids))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
