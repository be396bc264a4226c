// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package migrate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myndy/locintel/warehouse"
)

func openWarehouse(t *testing.T) (*sql.DB, *warehouse.Repositories) {
	t.Helper()

	db, err := sql.Open("duckdb", "") // In-memory database
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repos, err := warehouse.NewRepositories(db)
	require.NoError(t, err)

	return db, repos
}

func seedSource(t *testing.T, repos *warehouse.Repositories) {
	t.Helper()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	points := make([]*warehouse.LocationPoint, 25)
	for i := range points {
		points[i] = &warehouse.LocationPoint{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Latitude:  -34.90,
			Longitude: -56.16,
		}
	}

	require.NoError(t, repos.Locations.BulkInsert(points))

	place := &warehouse.Place{
		Name:      "Café Brasilero",
		PlaceType: "cafe",
		Latitude:  -34.9071,
		Longitude: -56.2043,
		Address:   map[string]any{"city": "Montevideo"},
	}
	require.NoError(t, repos.Places.Save(place))

	departure := base.Add(time.Hour)
	require.NoError(t, repos.Visits.Create(&warehouse.Visit{
		PlaceID:       place.ID,
		ArrivalTime:   base,
		DepartureTime: &departure,
	}))

	require.NoError(t, repos.Movements.Create(&warehouse.Movement{
		StartTime: base,
		EndTime:   base.Add(10 * time.Minute),
		StartLat:  -34.90, StartLng: -56.16,
		EndLat: -34.91, EndLng: -56.16,
	}))

	require.NoError(t, repos.Checkins.Create(&warehouse.Checkin{
		PlaceName: "Mercado del Puerto",
		Latitude:  -34.905,
		Longitude: -56.211,
	}))
}

func TestCountsDryRun(t *testing.T) {
	source, sourceRepos := openWarehouse(t)
	target, _ := openWarehouse(t)

	seedSource(t, sourceRepos)

	report, err := New(source, target, 10).Counts()
	require.NoError(t, err)
	require.Len(t, report.Tables, len(Tables))

	byTable := map[string]TableCount{}
	for _, tc := range report.Tables {
		byTable[tc.Table] = tc
	}

	assert.Equal(t, int64(25), byTable["location_data"].Source)
	assert.Equal(t, int64(1), byTable["places"].Source)
	assert.Equal(t, int64(0), byTable["places"].Target)

	// Nothing was copied by a dry run
	assert.Len(t, report.Mismatches(), 5)
}

func TestRunCopiesAndVerifies(t *testing.T) {
	source, sourceRepos := openWarehouse(t)
	target, targetRepos := openWarehouse(t)

	seedSource(t, sourceRepos)

	// Small batch size to exercise multiple transactions per table.
	report, err := New(source, target, 10).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(29), report.Copied)
	assert.Empty(t, report.Mismatches())

	count, err := targetRepos.Locations.Count()
	require.NoError(t, err)
	assert.Equal(t, 25, count)

	places, err := targetRepos.Places.List("", 10, 0)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Café Brasilero", places[0].Name)
	assert.Equal(t, "Montevideo", places[0].Address["city"])

	visits, err := targetRepos.Visits.List(nil, nil, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "Café Brasilero", visits[0].PlaceName)
}

func TestRunIsIdempotent(t *testing.T) {
	source, sourceRepos := openWarehouse(t)
	target, _ := openWarehouse(t)

	seedSource(t, sourceRepos)

	migrator := New(source, target, 10)

	_, err := migrator.Run(context.Background())
	require.NoError(t, err)

	// A second pass replaces rows instead of duplicating them.
	report, err := migrator.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, report.Mismatches())
}
