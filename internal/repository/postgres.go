package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"floatchat/internal/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresRepository handles database operations
type PostgresRepository struct {
	db           *sqlx.DB
	queryTimeout time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryFromDB wraps an existing connection pool.
func NewPostgresRepositoryFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// SetQueryTimeout bounds each Execute call. Zero disables the bound.
func (r *PostgresRepository) SetQueryTimeout(d time.Duration) {
	r.queryTimeout = d
}

// DB exposes the pool so other adapters can share it.
func (r *PostgresRepository) DB() *sqlx.DB {
	return r.db
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// Execute runs a compiled query and returns its rows as column maps.
func (r *PostgresRepository) Execute(ctx context.Context, q model.CompiledQuery) ([]model.Row, error) {
	if r.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.queryTimeout)
		defer cancel()
	}

	query, args := q.SQL()
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	result := []model.Row{}
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		result = append(result, model.Row(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return result, nil
}

// DataSummary aggregates counts, bounds and the time span of stored data.
func (r *PostgresRepository) DataSummary(ctx context.Context) (*model.DataSummary, error) {
	summary := &model.DataSummary{}

	counts := []struct {
		table string
		dest  *int64
	}{
		{"argo_floats", &summary.TotalFloats},
		{"argo_profiles", &summary.TotalProfiles},
		{"argo_measurements", &summary.TotalMeasurements},
	}
	for _, c := range counts {
		if err := r.db.GetContext(ctx, c.dest, "SELECT COUNT(*) FROM "+c.table); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	var bounds struct {
		MinLat sql.NullFloat64 `db:"min_lat"`
		MaxLat sql.NullFloat64 `db:"max_lat"`
		MinLon sql.NullFloat64 `db:"min_lon"`
		MaxLon sql.NullFloat64 `db:"max_lon"`
	}
	err := r.db.GetContext(ctx, &bounds, `
		SELECT MIN(latitude) AS min_lat, MAX(latitude) AS max_lat,
		       MIN(longitude) AS min_lon, MAX(longitude) AS max_lon
		FROM argo_profiles
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get geographic bounds: %w", err)
	}
	if bounds.MinLat.Valid && bounds.MinLon.Valid {
		summary.GeographicBounds = &model.GeoBounds{
			MinLat: bounds.MinLat.Float64,
			MaxLat: bounds.MaxLat.Float64,
			MinLon: bounds.MinLon.Float64,
			MaxLon: bounds.MaxLon.Float64,
		}
	}

	var span struct {
		Start sql.NullTime `db:"start_date"`
		End   sql.NullTime `db:"end_date"`
	}
	err = r.db.GetContext(ctx, &span, `SELECT MIN(profile_time) AS start_date, MAX(profile_time) AS end_date FROM argo_profiles`)
	if err != nil {
		return nil, fmt.Errorf("failed to get date range: %w", err)
	}
	if span.Start.Valid && span.End.Valid {
		summary.DateRange = &model.DateRange{Start: span.Start.Time, End: span.End.Time}
	}

	return summary, nil
}

// ListProfiles returns stored profiles, newest first. limit <= 0 means all.
func (r *PostgresRepository) ListProfiles(ctx context.Context, limit int) ([]model.ProfileRecord, error) {
	query := `
		SELECT float_id, cycle_number, latitude, longitude, profile_time,
		       max_depth, num_levels, parameters, data_mode, quality_flag
		FROM argo_profiles
		ORDER BY profile_time DESC, float_id, cycle_number
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	var profiles []model.ProfileRecord
	if err := r.db.SelectContext(ctx, &profiles, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

// ListFloats returns stored floats with their latest position and profile
// count. limit <= 0 means all.
func (r *PostgresRepository) ListFloats(ctx context.Context, limit int) ([]model.FloatRecord, error) {
	query := `
		SELECT af.float_id, af.wmo_id, af.institution, af.status,
		       af.deployment_date, af.last_transmission,
		       lp.latitude AS last_latitude, lp.longitude AS last_longitude,
		       (SELECT COUNT(*) FROM argo_profiles p WHERE p.float_id = af.float_id) AS total_profiles
		FROM argo_floats af
		LEFT JOIN LATERAL (
			SELECT latitude, longitude FROM argo_profiles p
			WHERE p.float_id = af.float_id
			ORDER BY p.profile_time DESC
			LIMIT 1
		) lp ON true
		ORDER BY af.float_id
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	var floats []model.FloatRecord
	if err := r.db.SelectContext(ctx, &floats, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list floats: %w", err)
	}
	return floats, nil
}
