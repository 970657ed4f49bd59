package events

import "time"

// Status de um jogo conforme reportado pelo fornecedor.
// Transições são monotônicas: scheduled -> live -> finished.
const (
	GameScheduled = "scheduled"
	GameLive      = "live"
	GameFinished  = "finished"
)

// Mercados suportados para apostas
const (
	MarketMoneyline = "moneyline"
	MarketSpread    = "spread"
	MarketTotal     = "total"
)

// Seleções possíveis dentro de um mercado
const (
	SelectionHome  = "home"
	SelectionAway  = "away"
	SelectionOver  = "over"
	SelectionUnder = "under"
)

// Direção do movimento da odd em relação ao snapshot anterior
const (
	MovementUp     = "up"
	MovementDown   = "down"
	MovementStable = "stable"
)

// Odds em formato americano (inteiro com sinal; negativo = favorito)
type Moneyline struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

type Spread struct {
	HomeOdds int     `json:"home_odds"`
	AwayOdds int     `json:"away_odds"`
	Line     float64 `json:"line"`
}

type Total struct {
	Over  int     `json:"over"`
	Under int     `json:"under"`
	Line  float64 `json:"line"`
}

// OddsSnapshot é imutável: cada atualização gera um snapshot novo,
// nunca muta o anterior. Movement é derivado do diff com Previous.
type OddsSnapshot struct {
	Moneyline Moneyline     `json:"moneyline"`
	Spread    Spread        `json:"spread"`
	Total     Total         `json:"total"`
	FetchedAt time.Time     `json:"fetched_at"`
	Movement  string        `json:"movement"`
	Previous  *OddsSnapshot `json:"previous,omitempty"`
}

// OddsFor retorna a odd americana para um par mercado/seleção.
// Retorna false quando a combinação não existe no snapshot.
func (s OddsSnapshot) OddsFor(market, selection string) (int, bool) {
	switch market {
	case MarketMoneyline:
		switch selection {
		case SelectionHome:
			return s.Moneyline.Home, s.Moneyline.Home != 0
		case SelectionAway:
			return s.Moneyline.Away, s.Moneyline.Away != 0
		}
	case MarketSpread:
		switch selection {
		case SelectionHome:
			return s.Spread.HomeOdds, s.Spread.HomeOdds != 0
		case SelectionAway:
			return s.Spread.AwayOdds, s.Spread.AwayOdds != 0
		}
	case MarketTotal:
		switch selection {
		case SelectionOver:
			return s.Total.Over, s.Total.Over != 0
		case SelectionUnder:
			return s.Total.Under, s.Total.Under != 0
		}
	}
	return 0, false
}

// GameOdds é a unidade trafegada entre sync, cache, Kafka e auditoria
type GameOdds struct {
	GameID    string       `json:"game_id"`
	SportID   string       `json:"sport_id"`
	HomeTeam  string       `json:"home_team"`
	AwayTeam  string       `json:"away_team"`
	Status    string       `json:"status"` // scheduled|live|finished
	Completed bool         `json:"completed"`
	Odds      OddsSnapshot `json:"odds"`
	Source    string       `json:"source"` // ex: "the-odds-provider"
}
