package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/auction-bidding-core/internal/apigateway"
	"github.com/radieske/auction-bidding-core/internal/shared/config"
	"github.com/radieske/auction-bidding-core/internal/shared/logger"
	"github.com/radieske/auction-bidding-core/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "api-gateway"
	}
	log, err := logger.New(logger.Options{Service: cfg.ServiceName, Env: cfg.Env, Instance: cfg.InstanceID, Level: cfg.LogLevel})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	gw, err := apigateway.New(log, apigateway.Upstreams{
		Auction:     cfg.AuctionURL,
		Submitter:   cfg.SubmitterURL,
		Wallet:      cfg.WalletURL,
		Timer:       cfg.TimerURL,
		Broadcaster: cfg.BroadcasterURL,
	})
	if err != nil {
		log.Fatal("gateway upstreams", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           gw.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, nil, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("api-gateway listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("gateway failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
