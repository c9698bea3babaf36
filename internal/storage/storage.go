// Package storage is the SQLite progress store used by the terminal client.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"chess-coach/internal/engine"
	"chess-coach/internal/progress"
)

const schema = `
CREATE TABLE IF NOT EXISTS progress (
	player_id TEXT PRIMARY KEY,
	rating INTEGER NOT NULL,
	games_played INTEGER NOT NULL DEFAULT 0,
	data TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS games (
	game_id TEXT PRIMARY KEY,
	player_id TEXT NOT NULL,
	difficulty TEXT,
	result TEXT NOT NULL CHECK(result IN ('win', 'loss', 'draw')),
	moves TEXT NOT NULL,
	rating_change INTEGER NOT NULL,
	played_at DATETIME NOT NULL,
	FOREIGN KEY (player_id) REFERENCES progress(player_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_games_player ON games(player_id, played_at DESC);
`

// Store implements progress.Store on SQLite. Every game that ever reached the
// capped in-document history is also kept as a row in the games table.
type Store struct {
	db *sql.DB
}

var (
	_ progress.Store  = (*Store)(nil)
	_ progress.Ranker = (*Store)(nil)
)

// Open creates or opens the database at dataSourceName.
func Open(dataSourceName string) (*Store, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// One writer is enough for a single-user client.
	db.SetMaxOpenConns(1)

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, playerID string) (*progress.Progress, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM progress WHERE player_id = ?`, playerID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, progress.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query progress: %w", err)
	}

	var p progress.Progress
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("failed to decode progress: %w", err)
	}
	return &p, nil
}

func (s *Store) Save(ctx context.Context, p *progress.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode progress: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO progress (player_id, rating, games_played, data, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			rating = excluded.rating,
			games_played = excluded.games_played,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		p.PlayerID, p.Rating, p.GamesPlayed, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}

	for _, g := range p.History {
		moves, err := json.Marshal(g.Moves)
		if err != nil {
			return fmt.Errorf("failed to encode moves: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO games (game_id, player_id, difficulty, result, moves, rating_change, played_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			g.ID, p.PlayerID, string(g.Difficulty), g.Result, string(moves), g.RatingChange, g.Date.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to save game %s: %w", g.ID, err)
		}
	}

	return tx.Commit()
}

func (s *Store) Delete(ctx context.Context, playerID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM progress WHERE player_id = ?`, playerID)
	if err != nil {
		return fmt.Errorf("failed to delete progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return progress.ErrNotFound
	}
	return nil
}

func (s *Store) Top(ctx context.Context, limit int) ([]progress.Progress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT data FROM progress WHERE games_played > 0
		ORDER BY rating DESC, player_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var players []progress.Progress
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		var p progress.Progress
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("failed to decode progress: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// Games returns the player's full game archive, newest first. limit <= 0
// returns everything.
func (s *Store) Games(ctx context.Context, playerID string, limit int) ([]progress.GameRecord, error) {
	query := `SELECT game_id, difficulty, result, moves, rating_change, played_at
		FROM games WHERE player_id = ? ORDER BY played_at DESC, rowid DESC`
	args := []any{playerID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []progress.GameRecord
	for rows.Next() {
		var (
			g          progress.GameRecord
			difficulty sql.NullString
			moves      string
		)
		if err := rows.Scan(&g.ID, &difficulty, &g.Result, &moves, &g.RatingChange, &g.Date); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		g.Difficulty = engine.Difficulty(difficulty.String)
		g.Mode = "ai"
		if err := json.Unmarshal([]byte(moves), &g.Moves); err != nil {
			return nil, fmt.Errorf("failed to decode moves: %w", err)
		}
		games = append(games, g)
	}
	return games, rows.Err()
}
