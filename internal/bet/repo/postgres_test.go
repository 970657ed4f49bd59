package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func pendingBet(stakeCents int64) *Bet {
	return &Bet{
		UserID:     "user-1",
		Type:       BetSingle,
		StakeCents: stakeCents,
		Selections: []Selection{
			{GameID: "g1", Market: "moneyline", Selection: "home", Odds: -110},
		},
		AcceptedOdds: map[string]int{"g1:moneyline:home": -110},
		PayoutCents:  9545,
	}
}

func TestCreateBetCommitsDebitBetAndLedger(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT balance_cents, locked_cents FROM accounts").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"balance_cents", "locked_cents"}).AddRow(10000, 0))
	mock.ExpectExec("UPDATE accounts SET balance_cents").
		WithArgs(int64(5000), "user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bets").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bet_selections").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO account_ledger").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	b := pendingBet(5000)
	if err := NewPostgres(db).CreateBet(context.Background(), b); err != nil {
		t.Fatalf("CreateBet: %v", err)
	}
	if b.ID == "" || b.Status != StatusPending {
		t.Errorf("bet not initialized: id=%q status=%q", b.ID, b.Status)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// Available balance is balance minus locked: a pending withdrawal lock
// must count against the stake even with a higher raw balance.
func TestCreateBetInsufficientAvailableBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT balance_cents, locked_cents FROM accounts").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"balance_cents", "locked_cents"}).AddRow(6000, 2000))
	mock.ExpectRollback()

	err = NewPostgres(db).CreateBet(context.Background(), pendingBet(5000))
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	// No debit, no bet row: the transaction rolls back untouched.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// Forced failure after the debit but before the bet row: the whole
// transaction rolls back, so no debit persists.
func TestCreateBetFailureAfterDebitRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT balance_cents, locked_cents FROM accounts").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"balance_cents", "locked_cents"}).AddRow(10000, 0))
	mock.ExpectExec("UPDATE accounts SET balance_cents").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO bets").
		WillReturnError(errors.New("constraint violation"))
	mock.ExpectRollback()

	err = NewPostgres(db).CreateBet(context.Background(), pendingBet(5000))
	if err == nil {
		t.Fatal("expected error from failed bet insert")
	}
	if errors.Is(err, ErrInsufficientFunds) {
		t.Fatal("persistence failure must not masquerade as insufficient funds")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateBetUnknownAccount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT balance_cents, locked_cents FROM accounts").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"balance_cents", "locked_cents"}))
	mock.ExpectRollback()

	err = NewPostgres(db).CreateBet(context.Background(), pendingBet(5000))
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("err = %v, want ErrAccountNotFound", err)
	}
}

func TestGetAccountComputesAvailable(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT balance_cents, locked_cents, currency").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"balance_cents", "locked_cents", "currency"}).
			AddRow(10000, 3000, "BRL"))

	acc, err := NewPostgres(db).GetAccount(context.Background(), "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if acc.AvailableCents != 7000 {
		t.Errorf("available = %d, want 7000", acc.AvailableCents)
	}
}
