package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/odds-engine/internal/odds/provider"
	"github.com/radieske/odds-engine/pkg/contracts/events"
)

// Store é o contrato de cache usado pelo sync. Implementado pelo Redis em
// produção e por um fake com relógio controlável nos testes.
type Store interface {
	GetSnapshot(ctx context.Context, gameID string) (*events.GameOdds, bool, error)
	PutSnapshot(ctx context.Context, g events.GameOdds) (bool, error)
	GetListing(ctx context.Context, sportID string) ([]events.GameOdds, time.Time, bool, error)
	PutListing(ctx context.Context, sportID string, games []events.GameOdds, fetchedAt time.Time) (bool, error)
}

// Fetcher é o contrato do fornecedor upstream
type Fetcher interface {
	FetchSportOdds(ctx context.Context, sportCode string) ([]provider.Game, error)
	FetchAvailableSports(ctx context.Context) ([]provider.Sport, error)
}

// Policy define as janelas de frescor do cache.
// Jogos ao vivo têm janela mais curta: o mercado se move mais rápido.
type Policy struct {
	PregameTTL time.Duration
	LiveTTL    time.Duration
}

// TTLFor resolve a janela de frescor de uma listagem: basta um jogo ao
// vivo para apertar a janela do esporte inteiro.
func (p Policy) TTLFor(games []events.GameOdds) time.Duration {
	for _, g := range games {
		if g.Status == events.GameLive {
			return p.LiveTTL
		}
	}
	return p.PregameTTL
}

// Result é o retorno de um sync: de onde vieram os dados e a idade deles
type Result struct {
	SportID    string            `json:"sport_id"`
	Games      []events.GameOdds `json:"games"`
	FromCache  bool              `json:"from_cache"`
	IsStale    bool              `json:"is_stale"`
	AgeSeconds int               `json:"age_seconds"`
}

// ErrNoUsableOdds indica que não há dado fresco nem cache aproveitável
var ErrNoUsableOdds = errors.New("no usable odds available")

// Service implementa o sync de odds: cache-first com write-through.
// Falha de upstream nunca modifica o cache.
type Service struct {
	Log      *zap.Logger
	Store    Store
	Provider Fetcher
	Policy   Policy
	Source   string // identificação do fornecedor gravada nos snapshots

	// Now é injetável para testes de frescor
	Now func() time.Time
}

func New(log *zap.Logger, store Store, fetcher Fetcher, policy Policy, source string) *Service {
	return &Service{
		Log:      log,
		Store:    store,
		Provider: fetcher,
		Policy:   policy,
		Source:   source,
		Now:      time.Now,
	}
}

// SyncSport consulta o cache primeiro; se a listagem está dentro da janela
// de frescor, retorna imediatamente com FromCache=true. No miss (ausência
// ou soft expiry) busca no fornecedor, normaliza e faz write-through.
func (s *Service) SyncSport(ctx context.Context, sportID string) (Result, error) {
	cached, fetchedAt, found, err := s.Store.GetListing(ctx, sportID)
	if err != nil {
		s.Log.Warn("listing read failed", zap.String("sport", sportID), zap.Error(err))
		found = false
	}

	now := s.Now()
	if found {
		age := now.Sub(fetchedAt)
		if age <= s.Policy.TTLFor(cached) {
			return Result{
				SportID:    sportID,
				Games:      cached,
				FromCache:  true,
				AgeSeconds: int(age.Seconds()),
			}, nil
		}
	}

	raw, err := s.fetchWithRetry(ctx, sportID)
	if err != nil {
		// Fallback: última listagem em cache, mesmo soft-expirada
		if found {
			s.Log.Warn("upstream fetch failed, serving stale cache",
				zap.String("sport", sportID), zap.Error(err))
			return Result{
				SportID:    sportID,
				Games:      cached,
				FromCache:  true,
				IsStale:    true,
				AgeSeconds: int(now.Sub(fetchedAt).Seconds()),
			}, nil
		}
		return Result{}, fmt.Errorf("sync sport %s: %w", sportID, err)
	}

	fetchTime := s.Now()
	games := make([]events.GameOdds, 0, len(raw))
	for _, pg := range raw {
		g, err := s.normalize(ctx, sportID, pg, fetchTime)
		if err != nil {
			s.Log.Warn("skipping unnormalizable game",
				zap.String("game", pg.ID), zap.Error(err))
			continue
		}
		if _, err := s.Store.PutSnapshot(ctx, g); err != nil {
			s.Log.Warn("snapshot write failed", zap.String("game", g.GameID), zap.Error(err))
		}
		games = append(games, g)
	}

	if _, err := s.Store.PutListing(ctx, sportID, games, fetchTime); err != nil {
		s.Log.Warn("listing write failed", zap.String("sport", sportID), zap.Error(err))
	}

	return Result{SportID: sportID, Games: games, FromCache: false, AgeSeconds: 0}, nil
}

// SyncFeatured roda o sync sobre o conjunto curado de esportes.
// Falha de um esporte não derruba os demais.
func (s *Service) SyncFeatured(ctx context.Context, sports []string) ([]Result, error) {
	results := make([]Result, 0, len(sports))
	var lastErr error
	for _, sp := range sports {
		res, err := s.SyncSport(ctx, sp)
		if err != nil {
			s.Log.Warn("featured sync failed for sport", zap.String("sport", sp), zap.Error(err))
			lastErr = err
			continue
		}
		results = append(results, res)
	}
	if len(results) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return results, nil
}

// AvailableSports lista os esportes ativos do fornecedor
func (s *Service) AvailableSports(ctx context.Context) ([]provider.Sport, error) {
	sports, err := s.Provider.FetchAvailableSports(ctx)
	if err != nil {
		return nil, err
	}
	active := sports[:0]
	for _, sp := range sports {
		if sp.Active {
			active = append(active, sp)
		}
	}
	return active, nil
}

// fetchWithRetry tenta uma vez de novo em erro de rede antes de desistir
func (s *Service) fetchWithRetry(ctx context.Context, sportID string) ([]provider.Game, error) {
	raw, err := s.Provider.FetchSportOdds(ctx, sportID)
	if err == nil {
		return raw, nil
	}
	if !errors.Is(err, provider.ErrNetwork) {
		return nil, err
	}
	s.Log.Warn("upstream fetch failed, retrying once", zap.String("sport", sportID), zap.Error(err))
	return s.Provider.FetchSportOdds(ctx, sportID)
}

// normalize converte o payload do fornecedor no snapshot interno
// (odds americanas inteiras) e deriva o movimento contra o snapshot
// anterior em cache. Snapshots são imutáveis: sempre cria um novo.
func (s *Service) normalize(ctx context.Context, sportID string, pg provider.Game, fetchedAt time.Time) (events.GameOdds, error) {
	if pg.ID == "" {
		return events.GameOdds{}, fmt.Errorf("game without id")
	}

	snap := events.OddsSnapshot{FetchedAt: fetchedAt, Movement: events.MovementStable}
	for _, m := range pg.Markets {
		switch m.Key {
		case "h2h":
			for _, o := range m.Outcomes {
				switch o.Name {
				case events.SelectionHome:
					snap.Moneyline.Home = o.Price
				case events.SelectionAway:
					snap.Moneyline.Away = o.Price
				}
			}
		case "spreads":
			for _, o := range m.Outcomes {
				switch o.Name {
				case events.SelectionHome:
					snap.Spread.HomeOdds = o.Price
					snap.Spread.Line = o.Point
				case events.SelectionAway:
					snap.Spread.AwayOdds = o.Price
				}
			}
		case "totals":
			for _, o := range m.Outcomes {
				switch o.Name {
				case events.SelectionOver:
					snap.Total.Over = o.Price
					snap.Total.Line = o.Point
				case events.SelectionUnder:
					snap.Total.Under = o.Price
				}
			}
		}
	}

	status := pg.Status
	if status == "" {
		status = events.GameScheduled
	}

	prev, hasPrev, err := s.Store.GetSnapshot(ctx, pg.ID)
	if err != nil {
		s.Log.Warn("previous snapshot read failed", zap.String("game", pg.ID), zap.Error(err))
	}
	if hasPrev {
		switch {
		case snap.Moneyline.Home > prev.Odds.Moneyline.Home:
			snap.Movement = events.MovementUp
		case snap.Moneyline.Home < prev.Odds.Moneyline.Home:
			snap.Movement = events.MovementDown
		}
		prevSnap := prev.Odds
		prevSnap.Previous = nil // guarda só um nível de histórico
		snap.Previous = &prevSnap

		// Status nunca regride a partir de finished
		if prev.Status == events.GameFinished {
			status = events.GameFinished
		}
	}

	return events.GameOdds{
		GameID:    pg.ID,
		SportID:   sportID,
		HomeTeam:  pg.HomeTeam,
		AwayTeam:  pg.AwayTeam,
		Status:    status,
		Completed: pg.Completed || status == events.GameFinished,
		Odds:      snap,
		Source:    s.Source,
	}, nil
}
