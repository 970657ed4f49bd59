package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	oddscache "github.com/radieske/odds-engine/internal/odds/cache"
	"github.com/radieske/odds-engine/internal/odds/httpapi"
	"github.com/radieske/odds-engine/internal/odds/ingest"
	"github.com/radieske/odds-engine/internal/odds/orchestrator"
	"github.com/radieske/odds-engine/internal/odds/provider"
	"github.com/radieske/odds-engine/internal/odds/publisher"
	"github.com/radieske/odds-engine/internal/odds/repo"
	"github.com/radieske/odds-engine/internal/odds/scheduler"
	oddssync "github.com/radieske/odds-engine/internal/odds/sync"
	"github.com/radieske/odds-engine/internal/shared/cache"
	"github.com/radieske/odds-engine/internal/shared/config"
	"github.com/radieske/odds-engine/internal/shared/db"
	"github.com/radieske/odds-engine/internal/shared/kafka"
	"github.com/radieske/odds-engine/internal/shared/logger"
	"github.com/radieske/odds-engine/internal/shared/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres (auditoria de snapshots)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	log.Info("postgres connected")

	// Redis (cache de odds)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()
	log.Info("redis connected")

	// Kafka writer para o tópico de atualizações de odds
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicOddsUpdates)
	defer writer.Close()
	log.Info("kafka writer ready", zap.String("topic", cfg.TopicOddsUpdates))

	// contadores Prometheus ligados aos estágios do orquestrador
	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odds_cache_hits_total",
		Help: "Leituras servidas direto do cache",
	})
	providerFetches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odds_provider_fetches_total",
		Help: "Buscas no provedor externo",
	})
	auditWrites := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "odds_audit_writes_total",
		Help: "Snapshots persistidos na auditoria",
	})
	stageErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odds_stage_errors_total",
		Help: "Falhas por estágio do pipeline",
	}, []string{"stage"})
	prometheus.MustRegister(cacheHits, providerFetches, auditWrites, stageErrors)

	// montagem do pipeline de odds
	oc := oddscache.NewRedisCache(rdb, cfg.CacheRetention)
	prov := provider.New(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)
	syncSvc := oddssync.New(log, oc, prov,
		oddssync.Policy{PregameTTL: cfg.PregameTTL, LiveTTL: cfg.LiveTTL}, "odds-api")
	auditRepo := repo.NewPostgres(pg)
	pub := publisher.NewKafkaPublisher(writer, log)

	orch := orchestrator.New(log, syncSvc, auditRepo, oc, pub,
		orchestrator.Thresholds{Pregame: cfg.PregameTTL, Live: cfg.LiveTTL},
		cfg.FeaturedSports)
	orch.OnCacheHit = cacheHits.Inc
	orch.OnFetch = providerFetches.Inc
	orch.OnPersist = auditWrites.Inc
	orch.OnError = func(stage string) { stageErrors.WithLabelValues(stage).Inc() }

	// jobs agendados: destaque a cada minuto, ao vivo a cada 10s
	sched := scheduler.New(log, orch, oc)
	if err := sched.Start(); err != nil {
		log.Fatal("scheduler start failed", zap.Error(err))
	}
	defer sched.Stop()

	// feed de despacho: marca jogos ao vivo conforme o fornecedor avisa
	ws := &ingest.WSClient{URL: cfg.DispatchWSURL, Log: log, Odds: orch}
	go ws.Start(ctx)

	// metrics/health
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		return nil
	})
	log.Info("metrics/health server started", zap.String("port", cfg.MetricsPort))

	// HTTP público
	api := &httpapi.API{Log: log, Odds: orch}
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("odds-service listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("api server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
}
