package settlement

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/radieske/odds-engine/internal/bet/fraud"
	"github.com/radieske/odds-engine/internal/bet/repo"
	"github.com/radieske/odds-engine/internal/bet/validator"
	"github.com/radieske/odds-engine/pkg/contracts/events"
	"github.com/radieske/odds-engine/pkg/oddsmath"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidBet   = errors.New("invalid bet payload")
	ErrFraudBlocked = errors.New("bet blocked by risk check")
)

// OddsChangedError carrega os resultados por perna para o cliente
// oferecer re-aceitação das odds novas com um clique
type OddsChangedError struct {
	Legs []validator.Result
}

func (e *OddsChangedError) Error() string {
	moved := 0
	for _, l := range e.Legs {
		if !l.Valid {
			moved++
		}
	}
	return fmt.Sprintf("odds changed on %d of %d legs", moved, len(e.Legs))
}

// LegValidator valida as pernas contra as odds correntes
type LegValidator interface {
	ValidateBetOdds(ctx context.Context, sels []validator.Selection) (bool, []validator.Result)
}

// FraudChecker é o colaborador externo de risco (pass/fail com tier)
type FraudChecker interface {
	Check(ctx context.Context, userID string, amountCents int64, checkContext string) (fraud.CheckResult, error)
}

// BetRepo executa a unidade atômica débito + aposta + ledger e expõe a
// leitura de saldo para o fail-fast pré-transação
type BetRepo interface {
	CreateBet(ctx context.Context, b *repo.Bet) error
	GetAccount(ctx context.Context, userID string) (repo.Account, error)
}

// Notifier despacha a notificação pós-commit (fire-and-forget)
type Notifier interface {
	NotifyBetPlaced(e events.BetPlaced)
}

// Service é a transação de liquidação de aposta: valida odds, consulta
// fraude, re-precifica contra as odds validadas e comete o débito
// atômico com o registro da aposta.
type Service struct {
	Log       *zap.Logger
	Validator LegValidator
	Fraud     FraudChecker
	Repo      BetRepo
	Notifier  Notifier
}

func New(log *zap.Logger, v LegValidator, f FraudChecker, r BetRepo, n Notifier) *Service {
	return &Service{Log: log, Validator: v, Fraud: f, Repo: r, Notifier: n}
}

// PlaceBet aceita uma aposta de ponta a ponta. Qualquer falha antes do
// commit deixa conta e tabela de apostas intactas; falha depois do
// commit (notificação) nunca desfaz a aposta.
func (s *Service) PlaceBet(ctx context.Context, userID, betType string, sels []validator.Selection, stakeCents int64) (*repo.Bet, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if err := validateInput(betType, sels, stakeCents); err != nil {
		return nil, err
	}

	// Fail-fast de saldo; a checagem que vale é a da transação, com a
	// conta travada via FOR UPDATE
	acc, err := s.Repo.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if acc.AvailableCents < stakeCents {
		return nil, repo.ErrInsufficientFunds
	}

	valid, legs := s.Validator.ValidateBetOdds(ctx, sels)
	if !valid {
		return nil, &OddsChangedError{Legs: legs}
	}

	check, err := s.Fraud.Check(ctx, userID, stakeCents, "bet_placement")
	if err != nil {
		return nil, fmt.Errorf("fraud check unavailable: %w", err)
	}
	if !check.Allowed {
		s.Log.Warn("bet blocked by fraud check",
			zap.String("user_id", userID),
			zap.String("risk_level", check.RiskLevel),
			zap.Float64("risk_score", check.RiskScore))
		return nil, ErrFraudBlocked
	}
	if check.RiskLevel == fraud.RiskHigh {
		// high-risk-but-allowed prossegue, mas fica registrado
		s.Log.Warn("high risk bet allowed",
			zap.String("user_id", userID),
			zap.Float64("risk_score", check.RiskScore),
			zap.Int64("stake_cents", stakeCents))
	}

	// Re-precifica contra as odds correntes validadas, não as esperadas
	current := make([]int, len(legs))
	for i, l := range legs {
		current[i] = *l.CurrentOdds
	}
	payout, err := ComputePayout(betType, current, stakeCents)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBet, err)
	}

	bet := &repo.Bet{
		UserID:       userID,
		Type:         betType,
		StakeCents:   stakeCents,
		PayoutCents:  payout,
		Selections:   make([]repo.Selection, len(sels)),
		AcceptedOdds: make(map[string]int, len(sels)),
	}
	for i, sel := range sels {
		bet.Selections[i] = repo.Selection{
			GameID:    sel.GameID,
			Market:    sel.Market,
			Selection: sel.Selection,
			Odds:      current[i],
		}
		bet.AcceptedOdds[sel.Key()] = current[i]
	}

	if err := s.Repo.CreateBet(ctx, bet); err != nil {
		return nil, err
	}

	if s.Notifier != nil {
		placed := events.BetPlaced{
			BetID:       bet.ID,
			UserID:      userID,
			BetType:     betType,
			StakeCents:  stakeCents,
			PayoutCents: payout,
			RiskLevel:   check.RiskLevel,
		}
		for _, sel := range bet.Selections {
			placed.Selections = append(placed.Selections, events.PlacedSelection{
				GameID:    sel.GameID,
				Market:    sel.Market,
				Selection: sel.Selection,
				Odds:      sel.Odds,
			})
		}
		go s.Notifier.NotifyBetPlaced(placed)
	}

	s.Log.Info("bet placed",
		zap.String("bet_id", bet.ID),
		zap.String("user_id", userID),
		zap.String("bet_type", betType),
		zap.Int64("stake_cents", stakeCents),
		zap.Int64("payout_cents", payout))
	return bet, nil
}

// ComputePayout calcula o retorno potencial em centavos.
// Parlay combina as odds decimais das pernas; single multi-perna divide
// o stake em partes iguais (resto vai para a primeira perna).
func ComputePayout(betType string, legOdds []int, stakeCents int64) (int64, error) {
	if betType == repo.BetParlay {
		combined, err := oddsmath.ParlayAmerican(legOdds)
		if err != nil {
			return 0, err
		}
		return oddsmath.PayoutCents(stakeCents, combined), nil
	}

	n := int64(len(legOdds))
	share := stakeCents / n
	remainder := stakeCents - share*n

	var total int64
	for i, odds := range legOdds {
		legStake := share
		if i == 0 {
			legStake += remainder
		}
		total += oddsmath.PayoutCents(legStake, odds)
	}
	return total, nil
}

func validateInput(betType string, sels []validator.Selection, stakeCents int64) error {
	if betType != repo.BetSingle && betType != repo.BetParlay {
		return fmt.Errorf("%w: unknown bet type %q", ErrInvalidBet, betType)
	}
	if len(sels) == 0 {
		return fmt.Errorf("%w: no selections", ErrInvalidBet)
	}
	if betType == repo.BetParlay && len(sels) < 2 {
		return fmt.Errorf("%w: parlay requires at least 2 legs", ErrInvalidBet)
	}
	if stakeCents <= 0 {
		return fmt.Errorf("%w: stake must be positive", ErrInvalidBet)
	}
	for _, sel := range sels {
		if sel.GameID == "" || sel.Market == "" || sel.Selection == "" || sel.ExpectedOdds == 0 {
			return fmt.Errorf("%w: incomplete selection", ErrInvalidBet)
		}
	}
	return nil
}
