package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"floatchat/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepositoryFromDB(sqlx.NewDb(db, "postgres")), mock
}

func TestExecute_ReturnsColumnMaps(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)

	q := model.CompiledQuery{
		SelectColumns: []string{"ap.float_id", "ap.latitude", "ap.profile_time"},
		Source:        model.Relation{Name: "argo_profiles", Alias: "ap"},
		Predicates: []model.Predicate{
			{Op: model.OpBetween, Column: "ap.latitude", Args: []interface{}{-10.0, 30.0}},
		},
		OrderBy: model.OrderBy{Column: "ap.profile_time", Desc: true},
		Limit:   model.DefaultRowLimit,
	}

	mock.ExpectQuery(`SELECT ap.float_id, ap.latitude, ap.profile_time FROM argo_profiles ap WHERE ap.latitude BETWEEN \$1 AND \$2`).
		WithArgs(-10.0, 30.0).
		WillReturnRows(sqlmock.NewRows([]string{"float_id", "latitude", "profile_time"}).
			AddRow([]byte("2902746"), 12.5, ts).
			AddRow("6903240", 3.25, ts))

	rows, err := repo.Execute(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2902746", rows[0]["float_id"])
	assert.Equal(t, 12.5, rows[0]["latitude"])
	assert.Equal(t, ts, rows[1]["profile_time"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_EmptyResultIsNotNil(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT`).WillReturnRows(sqlmock.NewRows([]string{"float_id"}))

	rows, err := repo.Execute(context.Background(), model.CompiledQuery{
		SelectColumns: []string{"af.float_id"},
		Source:        model.Relation{Name: "argo_floats", Alias: "af"},
		OrderBy:       model.OrderBy{Column: "af.float_id"},
		Limit:         model.DefaultRowLimit,
	})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestExecute_Error(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New(`relation "argo_profiles" does not exist`))

	_, err := repo.Execute(context.Background(), model.CompiledQuery{
		SelectColumns: []string{"ap.float_id"},
		Source:        model.Relation{Name: "argo_profiles", Alias: "ap"},
		OrderBy:       model.OrderBy{Column: "ap.profile_time"},
		Limit:         model.DefaultRowLimit,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestDataSummary(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM argo_floats`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM argo_profiles`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(340))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM argo_measurements`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(51000))
	mock.ExpectQuery(`SELECT MIN\(latitude\) AS min_lat`).
		WillReturnRows(sqlmock.NewRows([]string{"min_lat", "max_lat", "min_lon", "max_lon"}).AddRow(-60.0, 45.5, -80.0, 120.0))
	mock.ExpectQuery(`SELECT MIN\(profile_time\) AS start_date`).
		WillReturnRows(sqlmock.NewRows([]string{"start_date", "end_date"}).AddRow(start, end))

	s, err := repo.DataSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), s.TotalFloats)
	assert.Equal(t, int64(340), s.TotalProfiles)
	assert.Equal(t, int64(51000), s.TotalMeasurements)
	require.NotNil(t, s.GeographicBounds)
	assert.Equal(t, 45.5, s.GeographicBounds.MaxLat)
	require.NotNil(t, s.DateRange)
	assert.Equal(t, end, s.DateRange.End)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDataSummary_EmptyTables(t *testing.T) {
	repo, mock := newMockRepo(t)

	for _, table := range []string{"argo_floats", "argo_profiles", "argo_measurements"} {
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM ` + table).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	}
	mock.ExpectQuery(`SELECT MIN\(latitude\)`).
		WillReturnRows(sqlmock.NewRows([]string{"min_lat", "max_lat", "min_lon", "max_lon"}).AddRow(nil, nil, nil, nil))
	mock.ExpectQuery(`SELECT MIN\(profile_time\)`).
		WillReturnRows(sqlmock.NewRows([]string{"start_date", "end_date"}).AddRow(nil, nil))

	s, err := repo.DataSummary(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s.GeographicBounds)
	assert.Nil(t, s.DateRange)
}

func TestListProfiles(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2023, 3, 15, 6, 30, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT float_id, cycle_number, latitude, longitude, profile_time.+FROM argo_profiles.+LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{
			"float_id", "cycle_number", "latitude", "longitude", "profile_time",
			"max_depth", "num_levels", "parameters", "data_mode", "quality_flag",
		}).AddRow("2902746", 42, 12.5, 75.25, ts, 2000.0, 120, []byte(`["temperature","salinity"]`), "R", nil))

	profiles, err := repo.ListProfiles(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	p := profiles[0]
	assert.Equal(t, "2902746", p.FloatID)
	assert.Equal(t, 42, p.CycleNumber)
	assert.Equal(t, 75.25, *p.Longitude)
	assert.Equal(t, model.JSONArray{"temperature", "salinity"}, p.Parameters)
	assert.Nil(t, p.QualityFlag)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFloats_NoLimit(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`FROM argo_floats af\s+LEFT JOIN LATERAL`).
		WithArgs().
		WillReturnRows(sqlmock.NewRows([]string{
			"float_id", "wmo_id", "institution", "status", "deployment_date",
			"last_transmission", "last_latitude", "last_longitude", "total_profiles",
		}).AddRow("6903240", "6903240", "IFREMER", "active", nil, nil, 44.1, -30.2, 17))

	floats, err := repo.ListFloats(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, floats, 1)
	assert.Equal(t, "IFREMER", *floats[0].Institution)
	assert.Equal(t, 44.1, *floats[0].Latitude)
	assert.Equal(t, 17, *floats[0].TotalProfiles)
	assert.Nil(t, floats[0].DeploymentDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
