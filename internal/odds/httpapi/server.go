package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/odds-engine/internal/odds/orchestrator"
)

// OddsSource é a fachada de sincronização e leitura exposta pela API.
type OddsSource interface {
	SyncSport(ctx context.Context, sportID string) (orchestrator.Result, error)
	ForceSync(ctx context.Context, sportID string) (orchestrator.Result, error)
	SupportedSports(ctx context.Context) []string
	GameOdds(ctx context.Context, gameID string) (orchestrator.Lookup, error)
}

// API expõe os endpoints REST de consulta e sincronização de odds
type API struct {
	Log  *zap.Logger
	Odds OddsSource
}

// Router retorna o roteador HTTP com os endpoints REST
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/sports", a.listSports)            // Lista esportes suportados
	r.Get("/v1/sports/{sport}/odds", a.getOdds)  // Odds correntes de um esporte
	r.Get("/v1/games/{id}/odds", a.getGameOdds)  // Odds de um jogo específico
	r.Post("/v1/sync/{sport}", a.triggerSync)    // Dispara sincronização manual
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) listSports(w http.ResponseWriter, r *http.Request) {
	sports := a.Odds.SupportedSports(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"sports": sports})
}

// getOdds retorna as odds de um esporte, preferencialmente do cache
func (a *API) getOdds(w http.ResponseWriter, r *http.Request) {
	sport := chi.URLParam(r, "sport")

	res, err := a.Odds.SyncSport(r.Context(), sport)
	if err != nil {
		a.writeSyncError(w, sport, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) getGameOdds(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lookup, err := a.Odds.GameOdds(r.Context(), id)
	if err != nil {
		if errors.Is(err, orchestrator.ErrGameNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "game not found"})
			return
		}
		a.Log.Error("game odds lookup failed", zap.String("game", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, lookup)
}

// triggerSync força uma ida ao fornecedor, invalidando a listagem antes
func (a *API) triggerSync(w http.ResponseWriter, r *http.Request) {
	sport := chi.URLParam(r, "sport")

	res, err := a.Odds.ForceSync(r.Context(), sport)
	if err != nil {
		a.writeSyncError(w, sport, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

func (a *API) writeSyncError(w http.ResponseWriter, sport string, err error) {
	a.Log.Error("sport sync failed", zap.String("sport", sport), zap.Error(err))
	writeJSON(w, http.StatusBadGateway, map[string]string{"error": "odds source unavailable"})
}
