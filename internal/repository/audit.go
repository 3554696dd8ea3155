package repository

import (
	"context"
	_ "embed"
	"fmt"

	"floatchat/internal/logger"
	"floatchat/internal/metrics"
	"floatchat/internal/model"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

const insertQueryLog = `
	INSERT INTO query_logs (id, user_query, processed_query, sql_query, response, execution_time, success, error_message, created_at)
	VALUES (:id, :user_query, :processed_query, :sql_query, :response, :execution_time, :success, :error_message, :created_at)
`

// sqlx only knows the cgo driver name "sqlite3"; register modernc's name so
// Rebind and named queries resolve to "?" explicitly.
func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// SQLAudit appends audit records to the query_logs table. Write failures
// are logged and counted, never returned.
type SQLAudit struct {
	db      *sqlx.DB
	backend string
	log     logger.Logger
}

// NewPostgresAudit writes audit records through an existing Postgres pool.
func NewPostgresAudit(db *sqlx.DB, log logger.Logger) *SQLAudit {
	return &SQLAudit{db: db, backend: "postgres", log: log.With(map[string]interface{}{"component": "audit"})}
}

// NewSQLiteAudit opens (or creates) a SQLite database at path and ensures
// the query_logs table exists. Use ":memory:" for a throwaway log.
func NewSQLiteAudit(path string, log logger.Logger) (*SQLAudit, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite audit log: %w", err)
	}
	// single writer keeps :memory: databases on one connection
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}
	return &SQLAudit{db: db, backend: "sqlite", log: log.With(map[string]interface{}{"component": "audit"})}, nil
}

// Record implements the pipeline audit sink.
func (a *SQLAudit) Record(ctx context.Context, rec model.AuditRecord) {
	if _, err := a.db.NamedExecContext(ctx, insertQueryLog, rec); err != nil {
		metrics.AuditFailures.WithLabelValues(a.backend).Inc()
		a.log.WithError(err).Warn("failed to write audit record", map[string]interface{}{
			"backend": a.backend,
			"id":      rec.ID,
		})
	}
}

// Recent returns the latest audit records, newest first.
func (a *SQLAudit) Recent(ctx context.Context, limit int) ([]model.AuditRecord, error) {
	query := a.db.Rebind(`
		SELECT id, user_query, processed_query, sql_query, response, execution_time, success, error_message, created_at
		FROM query_logs
		ORDER BY created_at DESC
		LIMIT ?
	`)
	var recs []model.AuditRecord
	if err := a.db.SelectContext(ctx, &recs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	return recs, nil
}

// Close releases the underlying database when the audit log owns it.
func (a *SQLAudit) Close() error {
	if a.backend == "sqlite" {
		return a.db.Close()
	}
	return nil
}

// LogAudit writes audit records to the structured log only.
type LogAudit struct {
	log logger.Logger
}

// NewLogAudit creates a log-only audit sink.
func NewLogAudit(log logger.Logger) *LogAudit {
	return &LogAudit{log: log.With(map[string]interface{}{"component": "audit"})}
}

// Record implements the pipeline audit sink.
func (a *LogAudit) Record(_ context.Context, rec model.AuditRecord) {
	fields := map[string]interface{}{
		"id":                rec.ID,
		"user_query":        rec.UserQuery,
		"sql_query":         rec.CompiledQuery,
		"execution_time_ms": rec.ExecutionTimeMs,
		"success":           rec.Success,
	}
	if rec.ErrorMessage != "" {
		fields["error_message"] = rec.ErrorMessage
	}
	a.log.Info("query audit", fields)
}
