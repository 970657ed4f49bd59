package settlement

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/odds-engine/internal/bet/fraud"
	"github.com/radieske/odds-engine/internal/bet/repo"
	"github.com/radieske/odds-engine/internal/bet/validator"
	"github.com/radieske/odds-engine/pkg/contracts/events"
)

type fakeValidator struct {
	valid   bool
	results []validator.Result
}

func (f *fakeValidator) ValidateBetOdds(_ context.Context, sels []validator.Selection) (bool, []validator.Result) {
	if f.results != nil {
		return f.valid, f.results
	}
	// Default: every leg valid at its expected odds.
	out := make([]validator.Result, len(sels))
	for i, s := range sels {
		odds := s.ExpectedOdds
		out[i] = validator.Result{
			Valid:        true,
			GameID:       s.GameID,
			Market:       s.Market,
			Selection:    s.Selection,
			ExpectedOdds: s.ExpectedOdds,
			CurrentOdds:  &odds,
		}
	}
	return true, out
}

type fakeFraud struct {
	result fraud.CheckResult
	err    error
}

func (f *fakeFraud) Check(_ context.Context, _ string, _ int64, _ string) (fraud.CheckResult, error) {
	return f.result, f.err
}

type fakeRepo struct {
	created *repo.Bet
	err     error
	acc     repo.Account
	accErr  error
}

func (f *fakeRepo) GetAccount(_ context.Context, userID string) (repo.Account, error) {
	if f.accErr != nil {
		return repo.Account{}, f.accErr
	}
	if f.acc.UserID == "" {
		return repo.Account{UserID: userID, BalanceCents: 100000, AvailableCents: 100000}, nil
	}
	return f.acc, nil
}

func (f *fakeRepo) CreateBet(_ context.Context, b *repo.Bet) error {
	if f.err != nil {
		return f.err
	}
	b.ID = "bet-1"
	b.Status = repo.StatusPending
	f.created = b
	return nil
}

type fakeNotifier struct{ events chan events.BetPlaced }

func (f *fakeNotifier) NotifyBetPlaced(e events.BetPlaced) { f.events <- e }

func allowedFraud() *fakeFraud {
	return &fakeFraud{result: fraud.CheckResult{Allowed: true, RiskLevel: fraud.RiskLow}}
}

func legs() []validator.Selection {
	return []validator.Selection{
		{GameID: "g1", Market: "moneyline", Selection: "home", ExpectedOdds: -110},
		{GameID: "g2", Market: "moneyline", Selection: "away", ExpectedOdds: 150},
	}
}

func newService(v LegValidator, f FraudChecker, r BetRepo, n Notifier) *Service {
	return New(zap.NewNop(), v, f, r, n)
}

func TestPlaceBetUnauthorized(t *testing.T) {
	s := newService(&fakeValidator{}, allowedFraud(), &fakeRepo{}, nil)
	if _, err := s.PlaceBet(context.Background(), "", repo.BetSingle, legs(), 5000); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestPlaceBetInputValidation(t *testing.T) {
	s := newService(&fakeValidator{}, allowedFraud(), &fakeRepo{}, nil)

	tests := []struct {
		name    string
		betType string
		sels    []validator.Selection
		stake   int64
	}{
		{"unknown type", "roundrobin", legs(), 5000},
		{"no selections", repo.BetSingle, nil, 5000},
		{"one-leg parlay", repo.BetParlay, legs()[:1], 5000},
		{"zero stake", repo.BetSingle, legs(), 0},
		{"negative stake", repo.BetSingle, legs(), -100},
		{"incomplete selection", repo.BetSingle, []validator.Selection{{GameID: "g1"}}, 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.PlaceBet(context.Background(), "user-1", tt.betType, tt.sels, tt.stake); !errors.Is(err, ErrInvalidBet) {
				t.Errorf("err = %v, want ErrInvalidBet", err)
			}
		})
	}
}

func TestPlaceBetOddsChangedCarriesLegs(t *testing.T) {
	moved := -130
	v := &fakeValidator{valid: false, results: []validator.Result{
		{Valid: true, GameID: "g1"},
		{Valid: false, GameID: "g2", ExpectedOdds: 150, CurrentOdds: &moved, Reason: "odds moved"},
	}}
	s := newService(v, allowedFraud(), &fakeRepo{}, nil)

	_, err := s.PlaceBet(context.Background(), "user-1", repo.BetSingle, legs(), 5000)
	var oce *OddsChangedError
	if !errors.As(err, &oce) {
		t.Fatalf("err = %v, want OddsChangedError", err)
	}
	if len(oce.Legs) != 2 || oce.Legs[1].Valid {
		t.Errorf("legs = %+v, want the moved leg flagged", oce.Legs)
	}
	if oce.Legs[1].CurrentOdds == nil || *oce.Legs[1].CurrentOdds != -130 {
		t.Error("moved leg must carry current odds for re-acceptance")
	}
}

func TestPlaceBetFraudBlocked(t *testing.T) {
	f := &fakeFraud{result: fraud.CheckResult{Allowed: false, RiskLevel: fraud.RiskHigh}}
	r := &fakeRepo{}
	s := newService(&fakeValidator{}, f, r, nil)

	if _, err := s.PlaceBet(context.Background(), "user-1", repo.BetSingle, legs(), 5000); !errors.Is(err, ErrFraudBlocked) {
		t.Errorf("err = %v, want ErrFraudBlocked", err)
	}
	if r.created != nil {
		t.Error("blocked bet must not reach the repository")
	}
}

func TestPlaceBetHighRiskAllowedProceeds(t *testing.T) {
	f := &fakeFraud{result: fraud.CheckResult{Allowed: true, RiskLevel: fraud.RiskHigh, RiskScore: 0.92}}
	r := &fakeRepo{}
	s := newService(&fakeValidator{}, f, r, nil)

	bet, err := s.PlaceBet(context.Background(), "user-1", repo.BetSingle, legs(), 5000)
	if err != nil {
		t.Fatalf("high-risk-but-allowed must proceed: %v", err)
	}
	if bet.ID == "" {
		t.Error("bet not committed")
	}
}

func TestPlaceBetInsufficientAvailableFailsFast(t *testing.T) {
	// balance 10000 but 8000 locked: 5000 stake must not reach the
	// repository at all.
	r := &fakeRepo{acc: repo.Account{UserID: "user-1", BalanceCents: 10000, LockedCents: 8000, AvailableCents: 2000}}
	s := newService(&fakeValidator{}, allowedFraud(), r, nil)

	if _, err := s.PlaceBet(context.Background(), "user-1", repo.BetSingle, legs(), 5000); !errors.Is(err, repo.ErrInsufficientFunds) {
		t.Errorf("err = %v, want ErrInsufficientFunds", err)
	}
	if r.created != nil {
		t.Error("underfunded bet must not reach CreateBet")
	}
}

func TestPlaceBetUnknownAccount(t *testing.T) {
	r := &fakeRepo{accErr: repo.ErrAccountNotFound}
	s := newService(&fakeValidator{}, allowedFraud(), r, nil)

	if _, err := s.PlaceBet(context.Background(), "ghost", repo.BetSingle, legs(), 5000); !errors.Is(err, repo.ErrAccountNotFound) {
		t.Errorf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestPlaceBetInsufficientFundsPropagates(t *testing.T) {
	r := &fakeRepo{err: repo.ErrInsufficientFunds}
	s := newService(&fakeValidator{}, allowedFraud(), r, nil)

	if _, err := s.PlaceBet(context.Background(), "user-1", repo.BetSingle, legs(), 5000); !errors.Is(err, repo.ErrInsufficientFunds) {
		t.Errorf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestPlaceBetFreezesRepricedOdds(t *testing.T) {
	// Client expected -108, book now at -110: within tolerance, but the
	// bet must freeze the validated current odds, not the expected ones.
	current := -110
	v := &fakeValidator{valid: true, results: []validator.Result{
		{Valid: true, GameID: "g1", Market: "moneyline", Selection: "home", ExpectedOdds: -108, CurrentOdds: &current},
	}}
	r := &fakeRepo{}
	s := newService(v, allowedFraud(), r, nil)

	sels := []validator.Selection{{GameID: "g1", Market: "moneyline", Selection: "home", ExpectedOdds: -108}}
	bet, err := s.PlaceBet(context.Background(), "user-1", repo.BetSingle, sels, 5000)
	if err != nil {
		t.Fatal(err)
	}
	if bet.AcceptedOdds["g1:moneyline:home"] != -110 {
		t.Errorf("accepted odds = %d, want repriced -110", bet.AcceptedOdds["g1:moneyline:home"])
	}
	if bet.Selections[0].Odds != -110 {
		t.Errorf("selection odds = %d, want -110", bet.Selections[0].Odds)
	}
}

func TestPlaceBetParlayPayout(t *testing.T) {
	r := &fakeRepo{}
	s := newService(&fakeValidator{}, allowedFraud(), r, nil)

	// -110 and +150 combine to +377; $50 returns $238.50.
	sels := []validator.Selection{
		{GameID: "g1", Market: "moneyline", Selection: "home", ExpectedOdds: -110},
		{GameID: "g2", Market: "moneyline", Selection: "away", ExpectedOdds: 150},
	}
	bet, err := s.PlaceBet(context.Background(), "user-1", repo.BetParlay, sels, 5000)
	if err != nil {
		t.Fatal(err)
	}
	if bet.PayoutCents != 23850 {
		t.Errorf("parlay payout = %d cents, want 23850", bet.PayoutCents)
	}
}

func TestPlaceBetNotifiesAfterCommit(t *testing.T) {
	n := &fakeNotifier{events: make(chan events.BetPlaced, 1)}
	s := newService(&fakeValidator{}, allowedFraud(), &fakeRepo{}, n)

	bet, err := s.PlaceBet(context.Background(), "user-1", repo.BetParlay, legs(), 5000)
	if err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-n.events:
		if e.BetID != bet.ID || len(e.Selections) != 2 {
			t.Errorf("notification = %+v, want bet %s with 2 selections", e, bet.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("notification never dispatched")
	}
}

func TestComputePayoutSingleMultiLegSplitsStake(t *testing.T) {
	// Two legs at +100 each, 101 cents total: shares 51 and 50, both
	// doubled at even odds.
	payout, err := ComputePayout(repo.BetSingle, []int{100, 100}, 101)
	if err != nil {
		t.Fatal(err)
	}
	if payout != 202 {
		t.Errorf("payout = %d, want 202", payout)
	}
}

func TestComputePayoutSingleSumsIndependentLegs(t *testing.T) {
	// 10000 cents over -110 and +150: 5000 each.
	// -110: 5000 + 4545 = 9545; +150: 5000 + 7500 = 12500.
	payout, err := ComputePayout(repo.BetSingle, []int{-110, 150}, 10000)
	if err != nil {
		t.Fatal(err)
	}
	if payout != 22045 {
		t.Errorf("payout = %d, want 22045", payout)
	}
}
