package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/community"
)

// pgxQuerier is the subset of *pgxpool.Pool the store uses.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements community.ReportStore and community.CounterStore.
type PostgresStore struct {
	db pgxQuerier
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS community_reports (
	seq        BIGSERIAL,
	id         UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	conditions TEXT[] NOT NULL,
	lat        DOUBLE PRECISION NOT NULL,
	lng        DOUBLE PRECISION NOT NULL,
	user_id    TEXT NOT NULL,
	temp       DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS community_reports_created_at_idx ON community_reports (created_at);
CREATE TABLE IF NOT EXISTS contributions (
	user_id TEXT PRIMARY KEY,
	count   BIGINT NOT NULL
);`

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("postgres: failed to migrate: %w", err)
	}
	return nil
}

// Append inserts a report; id and created_at are assigned by the database.
func (s *PostgresStore) Append(ctx context.Context, in community.ReportInput) (community.Report, error) {
	query := `
		INSERT INTO community_reports (conditions, lat, lng, user_id, temp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text, created_at
	`

	r := community.Report{
		Conditions: in.Conditions,
		Lat:        in.Lat,
		Lng:        in.Lng,
		UserID:     in.UserID,
		Temp:       in.Temp,
	}
	err := s.db.QueryRow(ctx, query, conditionStrings(in.Conditions), in.Lat, in.Lng, in.UserID, in.Temp).
		Scan(&r.ID, &r.Timestamp)
	if err != nil {
		return community.Report{}, fmt.Errorf("postgres: failed to insert report: %w", err)
	}
	return r, nil
}

// Query returns reports created at or after filter.Since in insertion order.
func (s *PostgresStore) Query(ctx context.Context, filter community.ReportFilter) ([]community.Report, error) {
	query := `
		SELECT id::text, created_at, conditions, lat, lng, user_id, temp
		FROM community_reports
		WHERE created_at >= $1
		ORDER BY seq
	`

	rows, err := s.db.Query(ctx, query, filter.Since)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query reports: %w", err)
	}
	defer rows.Close()

	var results []community.Report
	for rows.Next() {
		var (
			r     community.Report
			conds []string
		)
		if err := rows.Scan(&r.ID, &r.Timestamp, &conds, &r.Lat, &r.Lng, &r.UserID, &r.Temp); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan report row: %w", err)
		}
		r.Conditions = toConditions(conds)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to read reports: %w", err)
	}

	return results, nil
}

// Increment bumps the user's counter in a single upsert.
func (s *PostgresStore) Increment(ctx context.Context, userID string) (int64, error) {
	query := `
		INSERT INTO contributions (user_id, count) VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE SET count = contributions.count + 1
		RETURNING count
	`

	var count int64
	if err := s.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: failed to increment contribution: %w", err)
	}
	return count, nil
}

// Health checks database connectivity
func (s *PostgresStore) Health(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}

func conditionStrings(conds []community.Condition) []string {
	out := make([]string, len(conds))
	for i, c := range conds {
		out[i] = string(c)
	}
	return out
}

func toConditions(ss []string) []community.Condition {
	out := make([]community.Condition, len(ss))
	for i, s := range ss {
		out[i] = community.Condition(s)
	}
	return out
}
