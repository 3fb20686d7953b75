// internal/database/archive.go
package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skygrid/skygrid/internal/models"
)

// Archiver writes finished games into the game_archives tables.
type Archiver struct {
	pool *pgxpool.Pool
}

// NewArchiver wraps an open pool.
func NewArchiver(pool *pgxpool.Pool) *Archiver {
	return &Archiver{pool: pool}
}

// EnsureSchema creates the archive tables when they do not exist yet.
func (a *Archiver) EnsureSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS game_archives (
			id UUID PRIMARY KEY,
			code TEXT NOT NULL,
			status TEXT NOT NULL,
			rounds INT NOT NULL,
			settings JSONB NOT NULL,
			final_state JSONB NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS game_archive_results (
			game_id UUID NOT NULL REFERENCES game_archives (id) ON DELETE CASCADE,
			player_id UUID NOT NULL,
			name TEXT NOT NULL,
			score INT NOT NULL,
			did_win BOOLEAN NOT NULL,
			round_scores JSONB NOT NULL,
			PRIMARY KEY (game_id, player_id)
		);
	`
	if _, err := a.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensuring archive schema: %w", err)
	}
	return nil
}

// ArchiveFinishedGame records a finished or stopped game plus one result row
// per player. Re-archiving the same game id overwrites the previous rows.
func (a *Archiver) ArchiveFinishedGame(ctx context.Context, g *models.Game) error {
	settings, err := json.Marshal(g.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings for game %s: %w", g.Code, err)
	}
	finalState, err := json.Marshal(g.ToSnapshot())
	if err != nil {
		return fmt.Errorf("failed to marshal final state for game %s: %w", g.Code, err)
	}

	lowest := 0
	for i, p := range g.Players {
		if i == 0 || p.Score < lowest {
			lowest = p.Score
		}
	}

	err = pgx.BeginTxFunc(ctx, a.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertGame := `
			INSERT INTO game_archives (id, code, status, rounds, settings, final_state)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE
			SET status = $3, rounds = $4, settings = $5, final_state = $6, finished_at = NOW()
		`
		if _, e := tx.Exec(ctx, upsertGame, g.ID, g.Code, string(g.Status), g.RoundNumber, settings, finalState); e != nil {
			return e
		}

		for _, p := range g.Players {
			roundScores, e := json.Marshal(p.Scores)
			if e != nil {
				return e
			}
			q := `
				INSERT INTO game_archive_results (game_id, player_id, name, score, did_win, round_scores)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (game_id, player_id)
				DO UPDATE SET name = $3, score = $4, did_win = $5, round_scores = $6
			`
			didWin := g.Status == models.GameFinished && p.Score == lowest
			if _, e := tx.Exec(ctx, q, g.ID, p.ID, p.Name, p.Score, didWin, roundScores); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx archive game %s: %w", g.Code, err)
	}
	return nil
}
