package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"floatchat/internal/logger"
	"floatchat/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAudit(id string, success bool, at time.Time) model.AuditRecord {
	rec := model.AuditRecord{
		ID:              id,
		UserQuery:       "Show me temperature profiles in the Indian Ocean",
		ProcessedIntent: `{"intent":"profile_analysis"}`,
		CompiledQuery:   "SELECT ap.float_id FROM argo_profiles ap ORDER BY ap.profile_time DESC LIMIT 100",
		Response:        "Found 3 records.",
		ExecutionTimeMs: 42,
		Success:         success,
		CreatedAt:       at,
	}
	if !success {
		rec.ErrorMessage = "execute: boom"
	}
	return rec
}

func TestPostgresAudit_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	rec := sampleAudit("4b1f0c1e-0000-4000-8000-000000000001", true, at)

	mock.ExpectExec(`INSERT INTO query_logs \(id, user_query, processed_query, sql_query, response, execution_time, success, error_message, created_at\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9\)`).
		WithArgs(rec.ID, rec.UserQuery, rec.ProcessedIntent, rec.CompiledQuery, rec.Response, rec.ExecutionTimeMs, true, "", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	audit := NewPostgresAudit(sqlx.NewDb(db, "postgres"), logger.NewTestLogger(t))
	audit.Record(context.Background(), rec)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAudit_FailureIsSwallowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO query_logs`).WillReturnError(errors.New("connection reset"))

	audit := NewPostgresAudit(sqlx.NewDb(db, "postgres"), logger.NewTestLogger(t))
	assert.NotPanics(t, func() {
		audit.Record(context.Background(), sampleAudit("x", false, time.Now()))
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteBindType(t *testing.T) {
	assert.Equal(t, sqlx.QUESTION, sqlx.BindType("sqlite"))
}

func TestSQLiteAudit_RoundTrip(t *testing.T) {
	audit, err := NewSQLiteAudit(":memory:", logger.NewTestLogger(t))
	require.NoError(t, err)
	defer audit.Close()

	ctx := context.Background()
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	audit.Record(ctx, sampleAudit("a", true, older))
	audit.Record(ctx, sampleAudit("b", false, newer))
	// duplicate ids are rejected by the primary key and only logged
	audit.Record(ctx, sampleAudit("a", true, newer))

	recs, err := audit.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b", recs[0].ID)
	assert.False(t, recs[0].Success)
	assert.Equal(t, "execute: boom", recs[0].ErrorMessage)
	assert.Equal(t, "a", recs[1].ID)
	assert.True(t, recs[1].Success)
	assert.Equal(t, int64(42), recs[1].ExecutionTimeMs)
	assert.Equal(t, "Show me temperature profiles in the Indian Ocean", recs[1].UserQuery)
}

func TestLogAudit_Record(t *testing.T) {
	audit := NewLogAudit(logger.NewTestLogger(t))
	assert.NotPanics(t, func() {
		audit.Record(context.Background(), sampleAudit("c", false, time.Now()))
	})
}
