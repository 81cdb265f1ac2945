package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/xela07ax/campusface-client/internal/audit"
	"github.com/xela07ax/campusface-client/internal/infra"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres
)

const schema = `
CREATE TABLE IF NOT EXISTS review_decisions (
	id          UUID PRIMARY KEY,
	action_id   UUID NOT NULL,
	request_id  TEXT NOT NULL,
	kind        TEXT NOT NULL,
	scope       TEXT NOT NULL,
	decision    TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	message     TEXT NOT NULL DEFAULT '',
	rolled_back BOOLEAN NOT NULL DEFAULT FALSE,
	duration_ms BIGINT NOT NULL,
	timestamp   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS review_decisions_scope_ts ON review_decisions (scope, timestamp DESC);
`

// Количество колонок в таблице review_decisions
const numFields = 11

type DecisionRepo struct {
	db *sql.DB
}

func NewDecisionRepo(cfg infra.DatabaseConfig) (*DecisionRepo, error) {
	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(int(cfg.MaxConns))
	}
	if cfg.MinConns > 0 {
		db.SetMaxIdleConns(int(cfg.MinConns))
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	return &DecisionRepo{db: db}, nil
}

func (r *DecisionRepo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

func (r *DecisionRepo) Close() error { return r.db.Close() }

// Migrate создает таблицу журнала, если ее нет.
func (r *DecisionRepo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

func (r *DecisionRepo) WriteBatch(ctx context.Context, events []audit.DecisionEvent) error {
	if len(events) == 0 {
		return nil
	}
	query, vals := buildInsert(events)
	if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: write decisions: %w", err)
	}
	return nil
}

// buildInsert динамически строит запрос для пакетной вставки.
func buildInsert(events []audit.DecisionEvent) (string, []any) {
	var sb strings.Builder
	vals := make([]any, 0, len(events)*numFields)

	for i, e := range events {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		for f := range numFields {
			if f > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, "$%d", i*numFields+f+1)
		}
		sb.WriteByte(')')

		vals = append(vals,
			e.ID, e.ActionID, e.RequestID, e.Kind, e.Scope, e.Decision,
			e.Outcome, e.Message, e.RolledBack, e.DurationMs, e.Timestamp,
		)
	}

	query := "INSERT INTO review_decisions (id, action_id, request_id, kind, scope, decision, outcome, message, rolled_back, duration_ms, timestamp) VALUES " +
		sb.String() + " ON CONFLICT (id) DO NOTHING"
	return query, vals
}

// Recent возвращает последние решения по scope (пусто - по всем), новые первыми.
func (r *DecisionRepo) Recent(ctx context.Context, scope string, limit int) ([]audit.DecisionEvent, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := `SELECT id, action_id, request_id, kind, scope, decision, outcome, message, rolled_back, duration_ms, timestamp
		FROM review_decisions
		WHERE ($1 = '' OR scope = $1)
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: query decisions: %w", err)
	}
	defer rows.Close()

	var out []audit.DecisionEvent
	for rows.Next() {
		var e audit.DecisionEvent
		if err := rows.Scan(&e.ID, &e.ActionID, &e.RequestID, &e.Kind, &e.Scope, &e.Decision,
			&e.Outcome, &e.Message, &e.RolledBack, &e.DurationMs, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: scan decision: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
