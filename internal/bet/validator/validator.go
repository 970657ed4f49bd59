package validator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/radieske/odds-engine/internal/odds/orchestrator"
	"github.com/radieske/odds-engine/pkg/contracts/events"
	"github.com/radieske/odds-engine/pkg/oddsmath"
)

// Tolerância de drift em pontos americanos. Mercados ao vivo se movem
// mais rápido, então a tolerância é mais apertada.
const (
	DriftCeilingPregame = 15
	DriftCeilingLive    = 10
)

// OddsSource resolve o estado corrente de um jogo (cache, com fallback
// via sync). Implementado pelo orchestrator.
type OddsSource interface {
	GameOdds(ctx context.Context, gameID string) (orchestrator.Lookup, error)
}

// Selection é uma perna de aposta com a odd esperada capturada na
// montagem do bilhete (fornecida pelo cliente)
type Selection struct {
	GameID       string `json:"game_id"`
	Market       string `json:"market"`    // spread|moneyline|total
	Selection    string `json:"selection"` // home|away|over|under
	ExpectedOdds int    `json:"expected_odds"`
}

// Key identifica a perna no mapa de odds aceitas da aposta
func (s Selection) Key() string {
	return s.GameID + ":" + s.Market + ":" + s.Selection
}

// Result carrega o veredito por perna com dado suficiente para o
// cliente oferecer re-aceitação com um clique
type Result struct {
	Valid        bool   `json:"valid"`
	GameID       string `json:"game_id"`
	Market       string `json:"market"`
	Selection    string `json:"selection"`
	ExpectedOdds int    `json:"expected_odds"`
	CurrentOdds  *int   `json:"current_odds,omitempty"`
	Drift        *int   `json:"drift,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

// Validator re-precifica seleções contra as odds correntes do cache
type Validator struct {
	Log  *zap.Logger
	Odds OddsSource
}

func New(log *zap.Logger, source OddsSource) *Validator {
	return &Validator{Log: log, Odds: source}
}

// ValidateSelectionOdds decide se uma perna pode prosseguir: jogo
// existente e não encerrado, seleção disponível e drift dentro do teto.
func (v *Validator) ValidateSelectionOdds(ctx context.Context, sel Selection) Result {
	res := Result{
		GameID:       sel.GameID,
		Market:       sel.Market,
		Selection:    sel.Selection,
		ExpectedOdds: sel.ExpectedOdds,
	}

	lookup, err := v.Odds.GameOdds(ctx, sel.GameID)
	if err != nil {
		if errors.Is(err, orchestrator.ErrGameNotFound) {
			res.Reason = "game not found"
			return res
		}
		v.Log.Warn("odds lookup failed", zap.String("game", sel.GameID), zap.Error(err))
		res.Reason = "odds unavailable"
		return res
	}

	if lookup.Game.Status == events.GameFinished || lookup.Game.Completed {
		res.Reason = "game has already ended"
		return res
	}

	current, ok := lookup.Game.Odds.OddsFor(sel.Market, sel.Selection)
	if !ok {
		res.Reason = "selection not available"
		return res
	}
	res.CurrentOdds = &current

	drift := oddsmath.Drift(sel.ExpectedOdds, current)
	res.Drift = &drift

	ceiling := DriftCeilingPregame
	if lookup.Live {
		ceiling = DriftCeilingLive
	}
	if drift > ceiling {
		res.Reason = fmt.Sprintf("odds moved %d -> %d (drift %d exceeds max %d)",
			sel.ExpectedOdds, current, drift, ceiling)
		return res
	}

	res.Valid = true
	return res
}

// ValidateBetOdds valida todas as pernas concorrentemente. Só é válido
// se TODAS as pernas forem válidas; os resultados por perna saem na
// ordem de entrada para o cliente mostrar exatamente o que moveu.
func (v *Validator) ValidateBetOdds(ctx context.Context, sels []Selection) (bool, []Result) {
	results := make([]Result, len(sels))

	var wg sync.WaitGroup
	for i, sel := range sels {
		wg.Add(1)
		go func(i int, sel Selection) {
			defer wg.Done()
			results[i] = v.ValidateSelectionOdds(ctx, sel)
		}(i, sel)
	}
	wg.Wait()

	allValid := len(sels) > 0
	for _, r := range results {
		if !r.Valid {
			allValid = false
			break
		}
	}
	return allValid, results
}
