package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/community"
)

// MySQLStore implements community.ReportStore and community.CounterStore on MySQL.
type MySQLStore struct {
	db *sql.DB
}

// OpenMySQL opens a connection pool, forcing parseTime and UTC.
func OpenMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql: invalid dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS community_reports (
		seq        BIGINT AUTO_INCREMENT PRIMARY KEY,
		id         CHAR(36) NOT NULL UNIQUE,
		created_at DATETIME(3) NOT NULL,
		conditions VARCHAR(64) NOT NULL,
		lat        DOUBLE NOT NULL,
		lng        DOUBLE NOT NULL,
		user_id    VARCHAR(128) NOT NULL,
		temp       DOUBLE NULL,
		INDEX created_at_idx (created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS contributions (
		user_id VARCHAR(128) PRIMARY KEY,
		count   BIGINT NOT NULL
	)`,
}

// Migrate creates the tables if they do not exist.
func (s *MySQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range mysqlSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("mysql: failed to migrate: %w", err)
		}
	}
	return nil
}

// Append inserts a report stamped with the database clock.
func (s *MySQLStore) Append(ctx context.Context, in community.ReportInput) (community.Report, error) {
	id := uuid.NewString()

	var temp sql.NullFloat64
	if in.Temp != nil {
		temp = sql.NullFloat64{Float64: *in.Temp, Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO community_reports (id, created_at, conditions, lat, lng, user_id, temp) VALUES (?, UTC_TIMESTAMP(3), ?, ?, ?, ?, ?)",
		id, community.JoinConditions(in.Conditions), in.Lat, in.Lng, in.UserID, temp)
	if err != nil {
		return community.Report{}, fmt.Errorf("mysql: failed to insert report: %w", err)
	}

	var createdAt time.Time
	err = s.db.QueryRowContext(ctx, "SELECT created_at FROM community_reports WHERE id = ?", id).Scan(&createdAt)
	if err != nil {
		return community.Report{}, fmt.Errorf("mysql: failed to read report timestamp: %w", err)
	}

	return community.Report{
		ID:         id,
		Timestamp:  createdAt,
		Conditions: in.Conditions,
		Lat:        in.Lat,
		Lng:        in.Lng,
		UserID:     in.UserID,
		Temp:       in.Temp,
	}, nil
}

// Query returns reports created at or after filter.Since in insertion order.
func (s *MySQLStore) Query(ctx context.Context, filter community.ReportFilter) ([]community.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, created_at, conditions, lat, lng, user_id, temp FROM community_reports WHERE created_at >= ? ORDER BY seq",
		filter.Since.UTC())
	if err != nil {
		return nil, fmt.Errorf("mysql: failed to query reports: %w", err)
	}
	defer rows.Close()

	var results []community.Report
	for rows.Next() {
		var (
			r     community.Report
			conds string
			temp  sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.Timestamp, &conds, &r.Lat, &r.Lng, &r.UserID, &temp); err != nil {
			return nil, fmt.Errorf("mysql: failed to scan report row: %w", err)
		}
		r.Conditions = community.SplitConditions(conds)
		if temp.Valid {
			v := temp.Float64
			r.Temp = &v
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mysql: failed to read reports: %w", err)
	}
	return results, nil
}

// Increment upserts and reads the counter inside one transaction; the upsert
// holds the row lock until commit.
func (s *MySQLStore) Increment(ctx context.Context, userID string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysql: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx,
		"INSERT INTO contributions (user_id, count) VALUES (?, 1) ON DUPLICATE KEY UPDATE count = count + 1",
		userID)
	if err != nil {
		return 0, fmt.Errorf("mysql: failed to increment contribution: %w", err)
	}

	var count int64
	if err := tx.QueryRowContext(ctx, "SELECT count FROM contributions WHERE user_id = ?", userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("mysql: failed to read contribution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql: commit: %w", err)
	}
	return count, nil
}

// Health checks database connectivity
func (s *MySQLStore) Health(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("mysql: health check failed: %w", err)
	}
	return nil
}
