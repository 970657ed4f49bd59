package dto

type SelectionResponse struct {
	GameID    string `json:"gameId"`
	Market    string `json:"market"`
	Selection string `json:"selection"`
	Odds      int    `json:"odds"`
}

type PlaceBetResponse struct {
	BetID       string              `json:"betId"`
	Status      string              `json:"status"` // "pending"
	BetType     string              `json:"betType"`
	StakeCents  int64               `json:"stake_cents"`
	PayoutCents int64               `json:"payout_cents"`
	Selections  []SelectionResponse `json:"selections"`
}

type BetResponse struct {
	BetID       string              `json:"betId"`
	UserID      string              `json:"userId"`
	Status      string              `json:"status"`
	BetType     string              `json:"betType"`
	StakeCents  int64               `json:"stake_cents"`
	PayoutCents int64               `json:"payout_cents"`
	Selections  []SelectionResponse `json:"selections"`
}

type AccountResponse struct {
	UserID         string `json:"userId"`
	BalanceCents   int64  `json:"balance_cents"`
	LockedCents    int64  `json:"locked_cents"`
	AvailableCents int64  `json:"available_cents"`
	Currency       string `json:"currency"`
}

// OddsChangedLeg descreve uma perna rejeitada no 409, com a odd corrente
// para o cliente re-aceitar.
type OddsChangedLeg struct {
	GameID       string `json:"gameId"`
	Market       string `json:"market"`
	Selection    string `json:"selection"`
	ExpectedOdds int    `json:"expected_odds"`
	CurrentOdds  *int   `json:"current_odds,omitempty"`
	Reason       string `json:"reason"`
}

type OddsChangedResponse struct {
	Error string           `json:"error"` // "odds_changed"
	Legs  []OddsChangedLeg `json:"legs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
