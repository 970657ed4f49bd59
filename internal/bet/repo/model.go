package repo

import "time"

// Tipos e status de aposta
const (
	BetSingle = "single"
	BetParlay = "parlay"

	StatusPending = "pending"
	StatusWon     = "won"
	StatusLost    = "lost"
	StatusCashout = "cashout"
)

// Selection é uma perna persistida com a odd aceita no momento da aposta
type Selection struct {
	GameID    string `json:"game_id"`
	Market    string `json:"market"`
	Selection string `json:"selection"`
	Odds      int    `json:"odds"`
}

// Bet é o modelo persistido no Postgres. AcceptedOdds é o snapshot de
// odds congelado na aceitação: imutável, único registro usado na
// liquidação, nunca rederivado das odds ao vivo.
type Bet struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	Type         string         `json:"type"` // single|parlay
	Selections   []Selection    `json:"selections"`
	StakeCents   int64          `json:"stake_cents"`
	PayoutCents  int64          `json:"payout_cents"`
	Status       string         `json:"status"`
	AcceptedOdds map[string]int `json:"accepted_odds"` // chave da perna -> odd aceita
	CreatedAt    time.Time      `json:"created_at"`
}

// Account é a visão financeira usada na liquidação
type Account struct {
	UserID         string `json:"user_id"`
	BalanceCents   int64  `json:"balance_cents"`
	LockedCents    int64  `json:"locked_cents"` // saques pendentes
	AvailableCents int64  `json:"available_cents"`
	Currency       string `json:"currency"`
}
