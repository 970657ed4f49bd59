package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/radieske/odds-engine/pkg/contracts/events"
)

// Postgres persiste o histórico de snapshots de odds para auditoria.
// A tabela odds_audit é append-only: snapshots nunca são atualizados.
type Postgres struct{ db *sql.DB }

// NewPostgres retorna o repositório de auditoria de odds
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// InsertAudit grava um snapshot confirmado, etiquetado com o fetch
// timestamp. Independe da evicção por TTL do cache.
func (p *Postgres) InsertAudit(ctx context.Context, g events.GameOdds) error {
	payload, err := json.Marshal(g.Odds)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO odds_audit (id, game_id, sport_id, home_team, away_team, status, completed, snapshot, source, fetched_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		uuid.NewString(), g.GameID, g.SportID, g.HomeTeam, g.AwayTeam,
		g.Status, g.Completed, payload, g.Source, g.Odds.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("insert odds audit: %w", err)
	}
	return nil
}

// LatestSnapshot rederiva o último snapshot persistido de um jogo.
// Usado como fallback de leitura quando cache e upstream falham.
func (p *Postgres) LatestSnapshot(ctx context.Context, gameID string) (*events.GameOdds, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT game_id, sport_id, home_team, away_team, status, completed, snapshot, source
		FROM odds_audit
		WHERE game_id = $1
		ORDER BY fetched_at DESC
		LIMIT 1`, gameID)

	var g events.GameOdds
	var payload []byte
	if err := row.Scan(&g.GameID, &g.SportID, &g.HomeTeam, &g.AwayTeam,
		&g.Status, &g.Completed, &payload, &g.Source); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &g.Odds); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &g, nil
}
