package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/odds-engine/internal/odds/provider"
	"github.com/radieske/odds-engine/internal/odds/sync"
	"github.com/radieske/odds-engine/pkg/contracts/events"
)

// Syncer é o sync de odds subjacente (cache-first, write-through)
type Syncer interface {
	SyncSport(ctx context.Context, sportID string) (sync.Result, error)
	AvailableSports(ctx context.Context) ([]provider.Sport, error)
}

// AuditRepo persiste snapshots confirmados no store transacional
type AuditRepo interface {
	InsertAudit(ctx context.Context, g events.GameOdds) error
	LatestSnapshot(ctx context.Context, gameID string) (*events.GameOdds, error)
}

// SnapshotStore é a visão de leitura do cache usada no caminho por jogo
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, gameID string) (*events.GameOdds, bool, error)
	AddLiveGame(ctx context.Context, gameID string) error
	IsLive(ctx context.Context, gameID string) (bool, error)
	Invalidate(ctx context.Context, sportID string) error
}

// Publisher propaga snapshots recém-buscados para consumidores downstream
type Publisher interface {
	PublishOddsUpdate(ctx context.Context, g events.GameOdds) error
}

// Thresholds define os limiares de staleness por regime de jogo.
// Staleness é informativa para exibição, nunca um gate duro.
type Thresholds struct {
	Pregame time.Duration
	Live    time.Duration
}

// Result estende o resultado do sync com o estado da persistência
type Result struct {
	sync.Result
	DBPersisted bool `json:"db_persisted"`
}

// Lookup é o retorno da leitura de odds de um jogo específico
type Lookup struct {
	Game  events.GameOdds `json:"game"`
	Live  bool            `json:"live"`
	Fresh bool            `json:"fresh"`
}

// ErrGameNotFound indica jogo desconhecido em cache, sync e auditoria
var ErrGameNotFound = errors.New("game not found")

// Orchestrator é o ponto de entrada único de sync para schedulers e
// endpoints de leitura. Espelha snapshots confirmados na auditoria
// durável sem depender da evicção do cache.
type Orchestrator struct {
	Log        *zap.Logger
	Sync       Syncer
	Repo       AuditRepo
	Store      SnapshotStore
	Publisher  Publisher
	Thresholds Thresholds
	Featured   []string

	// Callbacks de métricas, ligadas aos counters Prometheus no main
	OnCacheHit func()
	OnFetch    func()
	OnPersist  func()
	OnError    func(stage string)

	Now func() time.Time
}

func New(log *zap.Logger, s Syncer, r AuditRepo, store SnapshotStore, pub Publisher, th Thresholds, featured []string) *Orchestrator {
	return &Orchestrator{
		Log:        log,
		Sync:       s,
		Repo:       r,
		Store:      store,
		Publisher:  pub,
		Thresholds: th,
		Featured:   featured,
		Now:        time.Now,
	}
}

// SyncSport delega ao sync e espelha cada snapshot recém-buscado na
// auditoria. Falha de persistência não falha o sync: o cache segue
// sendo a fonte para servir tráfego; o ocorrido fica em DBPersisted.
func (o *Orchestrator) SyncSport(ctx context.Context, sportID string) (Result, error) {
	res, err := o.Sync.SyncSport(ctx, sportID)
	if err != nil {
		o.stageError("sync")
		return Result{}, err
	}

	out := Result{Result: res, DBPersisted: true}

	if res.FromCache {
		if o.OnCacheHit != nil {
			o.OnCacheHit()
		}
	} else {
		if o.OnFetch != nil {
			o.OnFetch()
		}
		out.DBPersisted = o.persistAndPublish(ctx, res.Games)
	}

	out.IsStale = out.IsStale || o.exceedsThreshold(res)
	return out, nil
}

// ForceSync invalida a listagem do esporte antes de sincronizar,
// garantindo uma ida ao fornecedor mesmo dentro da janela de frescor
func (o *Orchestrator) ForceSync(ctx context.Context, sportID string) (Result, error) {
	if err := o.Store.Invalidate(ctx, sportID); err != nil {
		o.Log.Warn("listing invalidation failed", zap.String("sport", sportID), zap.Error(err))
	}
	return o.SyncSport(ctx, sportID)
}

// SyncFeatured roda o conjunto curado de esportes pelo mesmo caminho
func (o *Orchestrator) SyncFeatured(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(o.Featured))
	var lastErr error
	for _, sp := range o.Featured {
		res, err := o.SyncSport(ctx, sp)
		if err != nil {
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

// SupportedSports retorna os esportes sincronizáveis. Se o fornecedor
// estiver fora, cai para o conjunto curado configurado.
func (o *Orchestrator) SupportedSports(ctx context.Context) []string {
	sports, err := o.Sync.AvailableSports(ctx)
	if err != nil {
		o.Log.Warn("available sports fetch failed, using featured set", zap.Error(err))
		return o.Featured
	}
	out := make([]string, 0, len(sports))
	for _, sp := range sports {
		out = append(out, sp.Key)
	}
	return out
}

// GameOdds resolve as odds correntes de um jogo: cache fresco primeiro,
// depois sync do esporte do jogo, por fim rederivação da auditoria.
func (o *Orchestrator) GameOdds(ctx context.Context, gameID string) (Lookup, error) {
	snap, found, err := o.Store.GetSnapshot(ctx, gameID)
	if err != nil {
		o.Log.Warn("snapshot read failed", zap.String("game", gameID), zap.Error(err))
		found = false
	}

	live := o.isLive(ctx, gameID, snap)
	if found && o.isFresh(snap, live) {
		return Lookup{Game: *snap, Live: live, Fresh: true}, nil
	}

	// Descobre o esporte para disparar o refetch
	sportID := ""
	if found {
		sportID = snap.SportID
	} else if audited, err := o.Repo.LatestSnapshot(ctx, gameID); err == nil {
		sportID = audited.SportID
	}

	if sportID != "" {
		if _, err := o.SyncSport(ctx, sportID); err == nil {
			if refreshed, ok, err := o.Store.GetSnapshot(ctx, gameID); err == nil && ok {
				live = o.isLive(ctx, gameID, refreshed)
				return Lookup{Game: *refreshed, Live: live, Fresh: o.isFresh(refreshed, live)}, nil
			}
		}
	}

	// Última linha: snapshot soft-expirado ou o que a auditoria tiver
	if found {
		return Lookup{Game: *snap, Live: live, Fresh: false}, nil
	}
	if audited, err := o.Repo.LatestSnapshot(ctx, gameID); err == nil {
		return Lookup{Game: *audited, Live: live, Fresh: false}, nil
	}

	return Lookup{}, fmt.Errorf("%w: %s", ErrGameNotFound, gameID)
}

// MarkLive adiciona o jogo ao conjunto ao vivo e aperta o polling do
// esporte dele. Chamado pelo ingest de eventos push.
func (o *Orchestrator) MarkLive(ctx context.Context, gameID, sportID string) error {
	if err := o.Store.AddLiveGame(ctx, gameID); err != nil {
		return fmt.Errorf("mark live %s: %w", gameID, err)
	}
	if sportID != "" {
		if _, err := o.SyncSport(ctx, sportID); err != nil {
			o.Log.Warn("live sync trigger failed", zap.String("sport", sportID), zap.Error(err))
		}
	}
	return nil
}

// persistAndPublish espelha snapshots na auditoria e publica no Kafka.
// Retorna false se qualquer persistência falhou (para reconciliação).
func (o *Orchestrator) persistAndPublish(ctx context.Context, games []events.GameOdds) bool {
	persisted := true
	for _, g := range games {
		if err := o.Repo.InsertAudit(ctx, g); err != nil {
			o.Log.Error("audit persist failed", zap.String("game", g.GameID), zap.Error(err))
			o.stageError("persist")
			persisted = false
			continue
		}
		if o.OnPersist != nil {
			o.OnPersist()
		}
		if o.Publisher != nil {
			if err := o.Publisher.PublishOddsUpdate(ctx, g); err != nil {
				o.Log.Warn("odds update publish failed", zap.String("game", g.GameID), zap.Error(err))
				o.stageError("publish")
			}
		}
	}
	return persisted
}

func (o *Orchestrator) exceedsThreshold(res sync.Result) bool {
	threshold := o.Thresholds.Pregame
	for _, g := range res.Games {
		if g.Status == events.GameLive {
			threshold = o.Thresholds.Live
			break
		}
	}
	return time.Duration(res.AgeSeconds)*time.Second > threshold
}

func (o *Orchestrator) isFresh(g *events.GameOdds, live bool) bool {
	threshold := o.Thresholds.Pregame
	if live {
		threshold = o.Thresholds.Live
	}
	return o.Now().Sub(g.Odds.FetchedAt) <= threshold
}

func (o *Orchestrator) isLive(ctx context.Context, gameID string, snap *events.GameOdds) bool {
	if snap != nil && snap.Status == events.GameLive {
		return true
	}
	live, err := o.Store.IsLive(ctx, gameID)
	if err != nil {
		return false
	}
	return live
}

func (o *Orchestrator) stageError(stage string) {
	if o.OnError != nil {
		o.OnError(stage)
	}
}
