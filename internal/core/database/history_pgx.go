package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nadavlev/hebscribe/internal/config"
	"github.com/nadavlev/hebscribe/internal/core"
)

// HistoryClient stores the names of successfully processed files in Postgres.
// The table is a plain name log: no back-reference to queue records, entries
// are only removed by an explicit clear.
type HistoryClient struct {
	db *sql.DB
}

func NewHistoryClient(ctx context.Context, cfg *config.Config) (*HistoryClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("history client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	conn, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := ensureSchema(pingCtx, conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &HistoryClient{db: conn}, nil
}

func ensureSchema(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS processed_files (
			file_name    TEXT PRIMARY KEY,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("bootstrap processed_files: %w", err)
	}
	return nil
}

// Load returns all processed file names in insertion order.
func (c *HistoryClient) Load(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT file_name FROM processed_files ORDER BY processed_at, file_name`)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}
	return names, nil
}

// Add merges names into the store. Duplicates are absorbed by the primary key.
func (c *HistoryClient) Add(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	for _, name := range names {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO processed_files (file_name) VALUES ($1) ON CONFLICT (file_name) DO NOTHING`,
			name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert history %q: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit history: %w", err)
	}
	return nil
}

func (c *HistoryClient) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM processed_files`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (c *HistoryClient) Close() error {
	return c.db.Close()
}

var _ core.HistoryRepository = (*HistoryClient)(nil)
