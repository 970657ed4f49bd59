package dto

// SelectionRequest é uma perna da aposta como o cliente a viu.
type SelectionRequest struct {
	GameID    string `json:"gameId"`
	Market    string `json:"market"`    // "moneyline" | "spread" | "total"
	Selection string `json:"selection"` // "home" | "away" | "over" | "under"
	Odds      int    `json:"odds"`      // odd americana que o cliente viu
}

type PlaceBetRequest struct {
	UserID     string             `json:"userId"`
	BetType    string             `json:"betType"` // "single" | "parlay"
	Selections []SelectionRequest `json:"selections"`
	StakeCents int64              `json:"stake_cents"`
}
