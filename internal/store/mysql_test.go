package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeousAxis/Wise-Weather-App-sub000/internal/community"
)

func newMock(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewMySQLStore(db), mock
}

func TestMySQLStore_Append(t *testing.T) {
	s, mock := newMock(t)
	created := time.Date(2026, 7, 1, 8, 30, 0, 0, time.UTC)
	temp := 17.5

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO community_reports (id, created_at, conditions, lat, lng, user_id, temp) VALUES (?, UTC_TIMESTAMP(3), ?, ?, ?, ?, ?)")).
		WithArgs(sqlmock.AnyArg(), "Rain,Windy", 46.2, 6.1, "u1", 17.5).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT created_at FROM community_reports WHERE id = ?")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	r, err := s.Append(context.Background(), community.ReportInput{
		Conditions: []community.Condition{community.ConditionRain, community.ConditionWindy},
		Lat:        46.2,
		Lng:        6.1,
		UserID:     "u1",
		Temp:       &temp,
	})
	require.NoError(t, err)
	assert.Len(t, r.ID, 36)
	assert.Equal(t, created, r.Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_AppendError(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("INSERT INTO community_reports").WillReturnError(errors.New("disk full"))

	_, err := s.Append(context.Background(), community.ReportInput{Conditions: []community.Condition{community.ConditionSunny}})
	assert.ErrorContains(t, err, "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Query(t *testing.T) {
	s, mock := newMock(t)
	since := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	ts := since.Add(10 * time.Minute)

	rows := sqlmock.NewRows([]string{"id", "created_at", "conditions", "lat", "lng", "user_id", "temp"}).
		AddRow("a", ts, "Sunny", 1.0, 2.0, "u1", nil).
		AddRow("b", ts, "Rain,Storm", 1.0, 2.0, "u2", 12.0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, created_at, conditions, lat, lng, user_id, temp FROM community_reports WHERE created_at >= ? ORDER BY seq")).
		WithArgs(since).
		WillReturnRows(rows)

	got, err := s.Query(context.Background(), community.ReportFilter{Since: since})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].Temp)
	assert.Equal(t, []community.Condition{community.ConditionRain, community.ConditionStorm}, got[1].Conditions)
	require.NotNil(t, got[1].Temp)
	assert.Equal(t, 12.0, *got[1].Temp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Increment(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO contributions (user_id, count) VALUES (?, 1) ON DUPLICATE KEY UPDATE count = count + 1")).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT count FROM contributions WHERE user_id = ?")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectCommit()

	n, err := s.Increment(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_IncrementRollsBack(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO contributions").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	_, err := s.Increment(context.Background(), "u1")
	assert.ErrorContains(t, err, "deadlock")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Migrate(t *testing.T) {
	s, mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS community_reports").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS contributions").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenMySQL_InvalidDSN(t *testing.T) {
	_, err := OpenMySQL("not a dsn")
	assert.Error(t, err)
}
