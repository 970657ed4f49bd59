package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/odds-engine/internal/bet/dto"
	"github.com/radieske/odds-engine/internal/bet/repo"
	"github.com/radieske/odds-engine/internal/bet/settlement"
	"github.com/radieske/odds-engine/internal/bet/validator"
)

// BetPlacer é o fluxo de aceitação ponta a ponta (validação, fraude, débito).
type BetPlacer interface {
	PlaceBet(ctx context.Context, userID, betType string, sels []validator.Selection, stakeCents int64) (*repo.Bet, error)
}

// BetReader consulta apostas aceitas e o saldo da conta.
type BetReader interface {
	GetBet(ctx context.Context, betID string) (*repo.Bet, error)
	GetAccount(ctx context.Context, userID string) (repo.Account, error)
}

type Server struct {
	log    *zap.Logger
	placer BetPlacer
	bets   BetReader
}

func NewServer(log *zap.Logger, placer BetPlacer, bets BetReader) *Server {
	return &Server{log: log, placer: placer, bets: bets}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bets", s.placeBet)      // POST
	mux.HandleFunc("/bets/", s.getBet)       // GET /bets/{id}
	mux.HandleFunc("/account", s.getAccount) // GET ?userId=...
	return mux
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	sels := make([]validator.Selection, len(req.Selections))
	for i, sel := range req.Selections {
		sels[i] = validator.Selection{
			GameID:       sel.GameID,
			Market:       sel.Market,
			Selection:    sel.Selection,
			ExpectedOdds: sel.Odds,
		}
	}

	bet, err := s.placer.PlaceBet(r.Context(), req.UserID, req.BetType, sels, req.StakeCents)
	if err != nil {
		s.writePlaceError(w, err)
		return
	}

	resp := dto.PlaceBetResponse{
		BetID:       bet.ID,
		Status:      bet.Status,
		BetType:     bet.Type,
		StakeCents:  bet.StakeCents,
		PayoutCents: bet.PayoutCents,
		Selections:  toSelectionResponses(bet.Selections),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	// path: /bets/{id}
	id := r.URL.Path[len("/bets/"):]
	if id == "" {
		writeError(w, http.StatusBadRequest, "betId required")
		return
	}

	bet, err := s.bets.GetBet(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrBetNotFound) {
			writeError(w, http.StatusNotFound, "bet not found")
			return
		}
		s.log.Error("get bet failed", zap.String("bet_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, dto.BetResponse{
		BetID:       bet.ID,
		UserID:      bet.UserID,
		Status:      bet.Status,
		BetType:     bet.Type,
		StakeCents:  bet.StakeCents,
		PayoutCents: bet.PayoutCents,
		Selections:  toSelectionResponses(bet.Selections),
	})
}

func (s *Server) getAccount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}

	acc, err := s.bets.GetAccount(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repo.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		s.log.Error("get account failed", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, dto.AccountResponse{
		UserID:         acc.UserID,
		BalanceCents:   acc.BalanceCents,
		LockedCents:    acc.LockedCents,
		AvailableCents: acc.AvailableCents,
		Currency:       acc.Currency,
	})
}

// writePlaceError mapeia os erros do fluxo de aceitação para HTTP.
func (s *Server) writePlaceError(w http.ResponseWriter, err error) {
	var oce *settlement.OddsChangedError
	switch {
	case errors.As(err, &oce):
		resp := dto.OddsChangedResponse{Error: "odds_changed"}
		for _, leg := range oce.Legs {
			resp.Legs = append(resp.Legs, dto.OddsChangedLeg{
				GameID:       leg.GameID,
				Market:       leg.Market,
				Selection:    leg.Selection,
				ExpectedOdds: leg.ExpectedOdds,
				CurrentOdds:  leg.CurrentOdds,
				Reason:       leg.Reason,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(resp)
	case errors.Is(err, settlement.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, settlement.ErrFraudBlocked):
		writeError(w, http.StatusForbidden, "bet blocked by risk check")
	case errors.Is(err, settlement.ErrInvalidBet):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repo.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, repo.ErrAccountNotFound):
		writeError(w, http.StatusBadRequest, "account not found")
	default:
		s.log.Error("place bet failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func toSelectionResponses(sels []repo.Selection) []dto.SelectionResponse {
	out := make([]dto.SelectionResponse, len(sels))
	for i, sel := range sels {
		out[i] = dto.SelectionResponse{
			GameID:    sel.GameID,
			Market:    sel.Market,
			Selection: sel.Selection,
			Odds:      sel.Odds,
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: msg})
}
