package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/auction-bidding-core/internal/auction"
	"github.com/radieske/auction-bidding-core/internal/decider"
	"github.com/radieske/auction-bidding-core/internal/shared/cache"
	"github.com/radieske/auction-bidding-core/internal/shared/config"
	"github.com/radieske/auction-bidding-core/internal/shared/db"
	"github.com/radieske/auction-bidding-core/internal/shared/db/migrations"
	"github.com/radieske/auction-bidding-core/internal/shared/kafka"
	"github.com/radieske/auction-bidding-core/internal/shared/leader"
	"github.com/radieske/auction-bidding-core/internal/shared/logger"
	"github.com/radieske/auction-bidding-core/internal/shared/metrics"
	"github.com/radieske/auction-bidding-core/internal/store"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "bid-decider-worker"
	}
	log, err := logger.New(logger.Options{Service: cfg.ServiceName, Env: cfg.Env, Instance: cfg.InstanceID, Level: cfg.LogLevel})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres é a fonte da verdade para lotes, lances e carteiras
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == "local" {
		tctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := kafka.EnsureTopics(tctx, cfg.KafkaBrokers, cfg.KafkaPartitions, log, cfg.TopicBids, cfg.TopicUpdates); err != nil {
			log.Warn("ensure topics", zap.Error(err))
		}
		cancel()
	}

	// Decisões publicadas em auction.updates, chave = lot_id
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicUpdates)
	defer writer.Close()

	// Métricas Prometheus
	bidsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "decider_bids_total", Help: "lances decididos por resultado"}, []string{"outcome"})
	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "decider_errors_total", Help: "falhas por etapa"}, []string{"stage"})
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "decider_messages_consumed_total", Help: "mensagens lidas de auction.bids"})
	isLeader := prometheus.NewGauge(prometheus.GaugeOpts{Name: "decider_is_leader", Help: "1 quando esta instância detém o lease"})
	prometheus.MustRegister(bidsTotal, errorsTotal, consumed, isLeader)

	lease := leader.NewLease(rdb)
	elector := leader.NewElector(leader.Config{
		Role:          "bid-decider",
		Key:           cache.LeaderKey("bid-decider"),
		HolderID:      cfg.InstanceID,
		TTL:           cfg.LeaseTTL,
		RenewInterval: cfg.LeaseRenewInterval,
	}, lease, log)
	elector.OnTransition = func(leading bool) {
		if leading {
			isLeader.Set(1)
		} else {
			isLeader.Set(0)
		}
	}

	policy := auction.Policy{ReservationPercent: cfg.ReservationPercent, AllowSelfRaise: cfg.AllowSelfRaise}
	d := decider.New(store.NewPostgres(pg), kafka.NewUpdatePublisher(writer), cache.New(rdb, cfg.CacheTTL), policy, log)
	d.ProcessTimeout = cfg.ProcessTimeout
	d.OnOutcome = func(o string) { bidsTotal.WithLabelValues(o).Inc() }
	d.OnError = func(s string) { errorsTotal.WithLabelValues(s).Inc() }

	worker := &decider.Worker{
		Processor: d,
		Leader:    elector,
		Lanes:     cfg.DeciderLanes,
		Log:       log,
		NewReader: func() decider.Reader {
			// reader novo por mandato; o offset confirmado retoma de onde o líder anterior parou
			return kafka.NewReader(kafka.ReaderOptions{
				Brokers: cfg.KafkaBrokers,
				Topic:   cfg.TopicBids,
				GroupID: cfg.GroupID("bid-decider"),
			})
		},
		OnConsumed: consumed.Inc,
		OnError:    func(s string) { errorsTotal.WithLabelValues(s).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, metrics.All(map[string]metrics.HealthFunc{
		"pg":    pg.PingContext,
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}), log)

	electorDone := make(chan struct{})
	go func() {
		defer close(electorDone)
		_ = elector.Run(ctx)
	}()

	log.Info("bid-decider started",
		zap.String("topic", cfg.TopicBids),
		zap.Int("lanes", cfg.DeciderLanes),
		zap.Bool("allow_self_raise", cfg.AllowSelfRaise),
	)
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped", zap.Error(err))
	}

	// espera o elector liberar o lease antes de sair
	<-electorDone
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
}
