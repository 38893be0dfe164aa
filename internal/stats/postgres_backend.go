package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"ocigenai-gateway/internal/migrations"
)

// PostgresBackend keeps counters in the usage_stats table, one row per model and field.
type PostgresBackend struct {
	db *sql.DB
}

// NewPostgresBackend connects, pings and migrates the schema.
func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := migrations.PostgresUp(dsn); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &PostgresBackend{db: db}, nil
}

const upsertUsage = `
        INSERT INTO usage_stats (model, field, value, updated_at)
        VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
        ON CONFLICT (model, field)
        DO UPDATE SET value = usage_stats.value + EXCLUDED.value, updated_at = CURRENT_TIMESTAMP
    `

func (p *PostgresBackend) Increment(ctx context.Context, model string, deltas map[string]int64) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for field, d := range deltas {
		if d == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, upsertUsage, model, field, d); err != nil {
			return fmt.Errorf("failed to increment usage: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Snapshot(ctx context.Context) (map[string]map[string]int64, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT model, field, value FROM usage_stats")
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]int64)
	for rows.Next() {
		var model, field string
		var value int64
		if err := rows.Scan(&model, &field, &value); err != nil {
			return nil, fmt.Errorf("failed to scan usage entry: %w", err)
		}
		row := out[model]
		if row == nil {
			row = make(map[string]int64)
			out[model] = row
		}
		row[field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("usage list iteration error: %w", err)
	}
	return out, nil
}

func (p *PostgresBackend) Reset(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, "DELETE FROM usage_stats"); err != nil {
		return fmt.Errorf("failed to reset usage: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
