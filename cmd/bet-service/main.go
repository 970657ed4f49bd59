package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/radieske/odds-engine/internal/bet/fraud"
	"github.com/radieske/odds-engine/internal/bet/httpapi"
	"github.com/radieske/odds-engine/internal/bet/notifier"
	"github.com/radieske/odds-engine/internal/bet/repo"
	"github.com/radieske/odds-engine/internal/bet/settlement"
	"github.com/radieske/odds-engine/internal/bet/validator"
	oddscache "github.com/radieske/odds-engine/internal/odds/cache"
	"github.com/radieske/odds-engine/internal/odds/orchestrator"
	"github.com/radieske/odds-engine/internal/odds/provider"
	oddsrepo "github.com/radieske/odds-engine/internal/odds/repo"
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

	// Postgres (contas, apostas, ledger)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	// Redis (leitura do cache de odds)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	// Kafka writer para notificação de apostas aceitas
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer writer.Close()

	// fonte de odds: mesmo pipeline do odds-service, sem publisher
	oc := oddscache.NewRedisCache(rdb, cfg.CacheRetention)
	prov := provider.New(cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.ProviderTimeout)
	syncSvc := oddssync.New(log, oc, prov,
		oddssync.Policy{PregameTTL: cfg.PregameTTL, LiveTTL: cfg.LiveTTL}, "odds-api")
	orch := orchestrator.New(log, syncSvc, oddsrepo.NewPostgres(pg), oc, nil,
		orchestrator.Thresholds{Pregame: cfg.PregameTTL, Live: cfg.LiveTTL},
		cfg.FeaturedSports)

	// fluxo de aceitação
	betRepo := repo.NewPostgres(pg)
	val := validator.New(log, orch)
	fraudCli := fraud.New(cfg.FraudCheckURL)
	notif := notifier.NewKafkaNotifier(writer, log)
	svc := settlement.New(log, val, fraudCli, betRepo, notif)

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
	api := httpapi.NewServer(log, svc, betRepo)
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("bet-service listening", zap.String("addr", apiSrv.Addr))
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
