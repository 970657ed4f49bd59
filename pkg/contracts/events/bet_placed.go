package events

// Seleção aceita no momento da aposta (odds congeladas para auditoria)
type PlacedSelection struct {
	GameID    string `json:"game_id"`
	Market    string `json:"market"`
	Selection string `json:"selection"`
	Odds      int    `json:"odds"`
}

// Evento publicado no tópico "bet_placed" após commit da aposta.
// Consumido por notificação e reconciliação; o envio é fire-and-forget.
type BetPlaced struct {
	BetID       string            `json:"bet_id"`
	UserID      string            `json:"user_id"`
	BetType     string            `json:"bet_type"` // single|parlay
	StakeCents  int64             `json:"stake_cents"`
	PayoutCents int64             `json:"payout_cents"`
	Selections  []PlacedSelection `json:"selections"`
	RiskLevel   string            `json:"risk_level"`
	TsUnixMs    int64             `json:"ts_unix_ms"`
}
