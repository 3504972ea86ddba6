package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresKV stores each user's log as a single jsonb row. The upsert
// replaces the whole blob, which gives the documented last-write-wins
// behavior for concurrent writers.
type PostgresKV struct {
	db *sql.DB
}

// NewPostgresKV creates a PostgreSQL-backed KV.
func NewPostgresKV(db *sql.DB) *PostgresKV {
	return &PostgresKV{db: db}
}

// Compile-time interface check
var _ KV = (*PostgresKV)(nil)

// Migrate creates the history table
func (p *PostgresKV) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS user_history (
			user_key    TEXT PRIMARY KEY,
			log         JSONB NOT NULL DEFAULT '[]'::jsonb,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	return err
}

// Get loads the user's log; unknown keys yield an empty log.
func (p *PostgresKV) Get(ctx context.Context, userKey string) ([]Entry, error) {
	var blob []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT log FROM user_history WHERE user_key = $1`, userKey,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	var log []Entry
	if err := json.Unmarshal(blob, &log); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	if log == nil {
		log = []Entry{}
	}
	return log, nil
}

// Set replaces the user's log blob atomically.
func (p *PostgresKV) Set(ctx context.Context, userKey string, log []Entry) error {
	if log == nil {
		log = []Entry{}
	}
	blob, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO user_history (user_key, log, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_key) DO UPDATE SET log = EXCLUDED.log, updated_at = NOW()
	`, userKey, blob)
	if err != nil {
		return fmt.Errorf("store history: %w", err)
	}
	return nil
}

// Delete removes the user's log. Unknown keys are a no-op.
func (p *PostgresKV) Delete(ctx context.Context, userKey string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM user_history WHERE user_key = $1`, userKey)
	return err
}
