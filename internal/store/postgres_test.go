package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/community"
)

// --- fake pgx ---

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.values, dest)
}

type fakeRows struct {
	rows [][]any
	i    int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.rows[r.i-1], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.i >= len(r.rows) {
		return false
	}
	r.i++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(r.rows[r.i-1], dest)
}

func assign(values []any, dest []any) error {
	if len(values) != len(dest) {
		return errors.New("column count mismatch")
	}
	for i, v := range values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int64:
			*d = v.(int64)
		case *float64:
			*d = v.(float64)
		case *time.Time:
			*d = v.(time.Time)
		case *[]string:
			*d = v.([]string)
		case **float64:
			if v == nil {
				*d = nil
			} else {
				f := v.(float64)
				*d = &f
			}
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

type fakePgx struct {
	lastSQL  string
	lastArgs []any
	row      fakeRow
	rows     *fakeRows
	queryErr error
	execErr  error
	pingErr  error
}

func (f *fakePgx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL, f.lastArgs = sql, args
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakePgx) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.lastSQL, f.lastArgs = sql, args
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakePgx) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL, f.lastArgs = sql, args
	return f.row
}

func (f *fakePgx) Ping(context.Context) error { return f.pingErr }

// --- tests ---

func TestPostgresStore_Append(t *testing.T) {
	created := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	db := &fakePgx{row: fakeRow{values: []any{"0b0c8a6e-0000-4000-8000-000000000001", created}}}
	s := &PostgresStore{db: db}

	r, err := s.Append(context.Background(), community.ReportInput{
		Conditions: []community.Condition{community.ConditionSnow},
		Lat:        45.9,
		Lng:        6.9,
		UserID:     "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, created, r.Timestamp)
	assert.Equal(t, "u1", r.UserID)
	assert.Contains(t, db.lastSQL, "RETURNING id::text, created_at")
	assert.Equal(t, []string{"Snow"}, db.lastArgs[0])
}

func TestPostgresStore_AppendError(t *testing.T) {
	s := &PostgresStore{db: &fakePgx{row: fakeRow{err: errors.New("conn reset")}}}
	_, err := s.Append(context.Background(), community.ReportInput{})
	assert.ErrorContains(t, err, "postgres: failed to insert report")
}

func TestPostgresStore_Query(t *testing.T) {
	ts := time.Date(2026, 7, 1, 9, 5, 0, 0, time.UTC)
	db := &fakePgx{rows: &fakeRows{rows: [][]any{
		{"a", ts, []string{"Rain", "Windy"}, 1.0, 2.0, "u1", nil},
		{"b", ts, []string{"Sunny"}, 1.0, 2.0, "u2", 21.0},
	}}}
	s := &PostgresStore{db: db}

	got, err := s.Query(context.Background(), community.ReportFilter{Since: ts.Add(-time.Hour)})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []community.Condition{community.ConditionRain, community.ConditionWindy}, got[0].Conditions)
	assert.Nil(t, got[0].Temp)
	assert.Equal(t, 21.0, *got[1].Temp)
	assert.Equal(t, ts.Add(-time.Hour), db.lastArgs[0])
}

func TestPostgresStore_QueryErrors(t *testing.T) {
	s := &PostgresStore{db: &fakePgx{queryErr: errors.New("timeout")}}
	_, err := s.Query(context.Background(), community.ReportFilter{})
	assert.Error(t, err)

	s = &PostgresStore{db: &fakePgx{rows: &fakeRows{err: errors.New("broken pipe")}}}
	_, err = s.Query(context.Background(), community.ReportFilter{})
	assert.ErrorContains(t, err, "broken pipe")
}

func TestPostgresStore_Increment(t *testing.T) {
	db := &fakePgx{row: fakeRow{values: []any{int64(3)}}}
	s := &PostgresStore{db: db}

	n, err := s.Increment(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.True(t, strings.Contains(db.lastSQL, "ON CONFLICT (user_id) DO UPDATE"))
}

func TestPostgresStore_MigrateAndHealth(t *testing.T) {
	db := &fakePgx{}
	s := &PostgresStore{db: db}

	require.NoError(t, s.Migrate(context.Background()))
	assert.Contains(t, db.lastSQL, "CREATE TABLE IF NOT EXISTS community_reports")
	assert.NoError(t, s.Health(context.Background()))

	db.pingErr = errors.New("down")
	assert.Error(t, s.Health(context.Background()))
}
