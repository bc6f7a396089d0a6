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

	"github.com/radieske/auction-bidding-core/internal/broadcaster"
	"github.com/radieske/auction-bidding-core/internal/gateway"
	"github.com/radieske/auction-bidding-core/internal/shared/config"
	"github.com/radieske/auction-bidding-core/internal/shared/kafka"
	"github.com/radieske/auction-bidding-core/internal/shared/logger"
	"github.com/radieske/auction-bidding-core/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	if cfg.ServiceName == "" {
		cfg.ServiceName = "update-broadcaster"
	}
	log, err := logger.New(logger.Options{Service: cfg.ServiceName, Env: cfg.Env, Instance: cfg.InstanceID, Level: cfg.LogLevel})
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Métricas Prometheus
	connections := prometheus.NewGauge(prometheus.GaugeOpts{Name: "ws_connections", Help: "conexões WebSocket abertas"})
	dropped := prometheus.NewCounter(prometheus.CounterOpts{Name: "ws_slow_clients_dropped_total", Help: "clientes lentos desconectados"})
	dispatched := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "broadcaster_updates_total", Help: "updates entregues por tipo"}, []string{"event_type"})
	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "broadcaster_errors_total", Help: "falhas por etapa"}, []string{"stage"})
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "broadcaster_messages_consumed_total", Help: "mensagens lidas de auction.updates"})
	prometheus.MustRegister(connections, dropped, dispatched, errorsTotal, consumed)

	hub := gateway.NewHub(log, gateway.AllowOrigins(cfg.WSAllowedOrigins))
	hub.OnClients = func(n int) { connections.Set(float64(n)) }
	hub.OnDropped = dropped.Inc

	b := broadcaster.New(hub, log)
	b.OnDispatched = func(t string) { dispatched.WithLabelValues(t).Inc() }
	b.OnError = func(s string) { errorsTotal.WithLabelValues(s).Inc() }

	// grupo único por instância: cada uma recebe todos os updates, a partir do último offset
	reader := kafka.NewReader(kafka.ReaderOptions{
		Brokers:    cfg.KafkaBrokers,
		Topic:      cfg.TopicUpdates,
		GroupID:    cfg.GroupID("updates-" + cfg.InstanceID),
		FromLatest: true,
	})
	defer reader.Close()

	consumer := &kafka.Consumer{
		Log:        log,
		Reader:     reader,
		Handle:     b.Handle,
		OnConsumed: consumed.Inc,
		OnError:    func(s string) { errorsTotal.WithLabelValues(s).Inc() },
	}

	wsSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           hub.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, nil, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("websocket gateway listening", zap.String("addr", wsSrv.Addr))
		if err := wsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("ws srv", zap.Error(err))
		}
	}()

	log.Info("update-broadcaster started", zap.String("topic", cfg.TopicUpdates))
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer stopped", zap.Error(err))
	}

	log.Info("shutting down")
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = wsSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
