package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAccountNotFound   = errors.New("account not found")
	ErrBetNotFound       = errors.New("bet not found")
)

// Postgres implementa a transação de liquidação de apostas.
// Débito de saldo, criação da aposta e lançamento no ledger acontecem
// numa única unidade atômica: falha parcial desfaz tudo.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna o repositório de apostas e contas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// GetAccount retorna a conta financeira do usuário (leitura simples)
func (p *Postgres) GetAccount(ctx context.Context, userID string) (Account, error) {
	var a Account
	a.UserID = userID
	err := p.db.QueryRowContext(ctx, `
		SELECT balance_cents, locked_cents, currency
		FROM accounts WHERE user_id=$1`, userID).
		Scan(&a.BalanceCents, &a.LockedCents, &a.Currency)
	if err == sql.ErrNoRows {
		return Account{}, ErrAccountNotFound
	}
	if err != nil {
		return Account{}, err
	}
	a.AvailableCents = a.BalanceCents - a.LockedCents
	return a, nil
}

// CreateBet executa a liquidação: lock pessimista na linha da conta
// serializa apostas concorrentes do mesmo usuário (contas distintas não
// contendem). Saldo disponível insuficiente aborta sem alterar estado.
func (p *Postgres) CreateBet(ctx context.Context, b *Bet) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bet tx: %w", err)
	}
	defer tx.Rollback()

	var balance, locked int64
	err = tx.QueryRowContext(ctx, `
		SELECT balance_cents, locked_cents FROM accounts
		WHERE user_id=$1 FOR UPDATE`, b.UserID).Scan(&balance, &locked)
	if err == sql.ErrNoRows {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}

	if balance-locked < b.StakeCents {
		return ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE accounts SET balance_cents = balance_cents - $1, version = version + 1
		WHERE user_id=$2`, b.StakeCents, b.UserID); err != nil {
		return fmt.Errorf("debit account: %w", err)
	}

	b.ID = uuid.NewString()
	b.Status = StatusPending

	acceptedOdds, err := json.Marshal(b.AcceptedOdds)
	if err != nil {
		return fmt.Errorf("marshal accepted odds: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO bets (id, user_id, bet_type, stake_cents, payout_cents, status, accepted_odds)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		b.ID, b.UserID, b.Type, b.StakeCents, b.PayoutCents, b.Status, acceptedOdds,
	); err != nil {
		return fmt.Errorf("insert bet: %w", err)
	}

	for _, sel := range b.Selections {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO bet_selections (id, bet_id, game_id, market, selection, odds)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			uuid.NewString(), b.ID, sel.GameID, sel.Market, sel.Selection, sel.Odds,
		); err != nil {
			return fmt.Errorf("insert bet selection: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO account_ledger (id, user_id, operation_type, amount_cents, related_bet_id)
		VALUES ($1,$2,'BET_DEBIT',$3,$4)`,
		uuid.NewString(), b.UserID, b.StakeCents, b.ID,
	); err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bet tx: %w", err)
	}
	return nil
}

// GetBet retorna uma aposta com suas pernas
func (p *Postgres) GetBet(ctx context.Context, betID string) (*Bet, error) {
	var b Bet
	var acceptedOdds []byte
	err := p.db.QueryRowContext(ctx, `
		SELECT id, user_id, bet_type, stake_cents, payout_cents, status, accepted_odds, created_at
		FROM bets WHERE id=$1`, betID).
		Scan(&b.ID, &b.UserID, &b.Type, &b.StakeCents, &b.PayoutCents, &b.Status, &acceptedOdds, &b.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrBetNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(acceptedOdds, &b.AcceptedOdds); err != nil {
		return nil, fmt.Errorf("unmarshal accepted odds: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT game_id, market, selection, odds
		FROM bet_selections WHERE bet_id=$1 ORDER BY id`, betID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s Selection
		if err := rows.Scan(&s.GameID, &s.Market, &s.Selection, &s.Odds); err != nil {
			return nil, err
		}
		b.Selections = append(b.Selections, s)
	}
	return &b, rows.Err()
}
