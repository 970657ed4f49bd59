package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/radieske/odds-engine/internal/odds/orchestrator"
)

// Syncer é a fatia do orquestrador usada pelos jobs agendados.
type Syncer interface {
	SyncFeatured(ctx context.Context) ([]orchestrator.Result, error)
	GameOdds(ctx context.Context, gameID string) (orchestrator.Lookup, error)
}

// LiveSet lista os jogos marcados como ao vivo.
type LiveSet interface {
	LiveGames(ctx context.Context) ([]string, error)
}

// Scheduler mantém o cache quente: esportes em destaque a cada minuto,
// jogos ao vivo a cada 10 segundos.
type Scheduler struct {
	Log  *zap.Logger
	Odds Syncer
	Live LiveSet

	cron *cron.Cron
}

func New(log *zap.Logger, odds Syncer, live LiveSet) *Scheduler {
	return &Scheduler{Log: log, Odds: odds, Live: live}
}

// Start registra os jobs e inicia o cron.
func (s *Scheduler) Start() error {
	c := cron.New(cron.WithSeconds())

	if _, err := c.AddFunc("0 * * * * *", s.syncFeatured); err != nil {
		return err
	}
	if _, err := c.AddFunc("*/10 * * * * *", s.refreshLive); err != nil {
		return err
	}

	c.Start()
	s.cron = c
	s.Log.Info("scheduler started",
		zap.String("featured", "every 1m"),
		zap.String("live", "every 10s"))
	return nil
}

// Stop interrompe novos disparos e espera os jobs em andamento terminarem.
func (s *Scheduler) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

func (s *Scheduler) syncFeatured() {
	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	results, err := s.Odds.SyncFeatured(ctx)
	if err != nil {
		s.Log.Warn("featured sync pass finished with errors", zap.Error(err))
	}
	for _, res := range results {
		if res.FromCache {
			continue
		}
		s.Log.Debug("featured sport refreshed",
			zap.String("sport", res.SportID),
			zap.Int("games", len(res.Games)),
			zap.Bool("db_persisted", res.DBPersisted))
	}
}

// refreshLive revalida cada jogo ao vivo; a leitura dispara o re-sync do
// esporte quando o snapshot já passou do TTL de jogo ao vivo.
func (s *Scheduler) refreshLive() {
	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	games, err := s.Live.LiveGames(ctx)
	if err != nil {
		s.Log.Warn("live set read failed", zap.Error(err))
		return
	}

	for _, gameID := range games {
		if _, err := s.Odds.GameOdds(ctx, gameID); err != nil {
			s.Log.Warn("live game refresh failed",
				zap.String("game", gameID), zap.Error(err))
		}
	}
}
