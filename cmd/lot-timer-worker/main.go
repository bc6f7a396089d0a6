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

	"github.com/radieske/auction-bidding-core/internal/shared/cache"
	"github.com/radieske/auction-bidding-core/internal/shared/config"
	"github.com/radieske/auction-bidding-core/internal/shared/db"
	"github.com/radieske/auction-bidding-core/internal/shared/db/migrations"
	"github.com/radieske/auction-bidding-core/internal/shared/kafka"
	"github.com/radieske/auction-bidding-core/internal/shared/leader"
	"github.com/radieske/auction-bidding-core/internal/shared/logger"
	"github.com/radieske/auction-bidding-core/internal/shared/metrics"
	"github.com/radieske/auction-bidding-core/internal/store"
	"github.com/radieske/auction-bidding-core/internal/timer"
	thttp "github.com/radieske/auction-bidding-core/internal/timer/http"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "lot-timer-worker"
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

	rdb, err := cache.ConnectRedis(cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// Eventos de ciclo de vida e contagem em auction.updates
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicUpdates)
	defer writer.Close()

	// Métricas Prometheus
	trackedLots := prometheus.NewGauge(prometheus.GaugeOpts{Name: "timer_tracked_lots", Help: "lotes com contagem ativa nesta instância"})
	eventsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "timer_events_total", Help: "eventos do timer por tipo"}, []string{"event"})
	isLeader := prometheus.NewGauge(prometheus.GaugeOpts{Name: "timer_is_leader", Help: "1 quando esta instância detém o lease"})
	consumerErrors := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "timer_consumer_errors_total", Help: "falhas do consumidor de updates"}, []string{"stage"})
	prometheus.MustRegister(trackedLots, eventsTotal, isLeader, consumerErrors)

	elector := leader.NewElector(leader.Config{
		Role:          "lot-timer",
		Key:           cache.LeaderKey("lot-timer"),
		HolderID:      cfg.InstanceID,
		TTL:           cfg.LeaseTTL,
		RenewInterval: cfg.LeaseRenewInterval,
	}, leader.NewLease(rdb), log)
	elector.OnTransition = func(leading bool) {
		if leading {
			isLeader.Set(1)
		} else {
			isLeader.Set(0)
		}
	}

	tm := timer.New(store.NewPostgres(pg), kafka.NewUpdatePublisher(writer), cache.New(rdb, cfg.CacheTTL), log)
	tm.OnEvent = func(e string) { eventsTotal.WithLabelValues(e).Inc() }
	tm.OnTracked = func(n int) { trackedLots.Set(float64(n)) }

	// Consumidor de updates com grupo próprio por instância: todas veem os lances aceitos
	reader := kafka.NewReader(kafka.ReaderOptions{
		Brokers:    cfg.KafkaBrokers,
		Topic:      cfg.TopicUpdates,
		GroupID:    cfg.GroupID("lot-timer-" + cfg.InstanceID),
		FromLatest: true,
	})
	defer reader.Close()

	listener := &timer.BidListener{Timer: tm, Extend: cfg.ExtendOnBid, Log: log}
	consumer := &kafka.Consumer{
		Log:     log,
		Reader:  reader,
		Handle:  listener.Handle,
		OnError: func(s string) { consumerErrors.WithLabelValues(s).Inc() },
	}

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           thttp.NewServer(log, tm).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, metrics.All(map[string]metrics.HealthFunc{
		"pg":    pg.PingContext,
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}), log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	electorDone := make(chan struct{})
	go func() {
		defer close(electorDone)
		_ = elector.Run(ctx)
	}()

	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("updates consumer stopped", zap.Error(err))
		}
	}()

	go func() {
		log.Info("timer control listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api", zap.Error(err))
		}
	}()

	log.Info("lot-timer started", zap.Duration("tick", cfg.TimerTick), zap.Bool("extend_on_bid", cfg.ExtendOnBid))
	if err := tm.Run(ctx, elector, cfg.TimerTick); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("timer stopped", zap.Error(err))
	}

	<-electorDone
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
