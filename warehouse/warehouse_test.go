// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package warehouse

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupWarehouse(t *testing.T) *Repositories {
	t.Helper()

	db, err := sql.Open("duckdb", "") // In-memory database
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repos, err := NewRepositories(db)
	require.NoError(t, err)

	return repos
}

func TestSchemaCreation(t *testing.T) {
	repos := setupWarehouse(t)

	for _, table := range []string{"location_data", "places", "visits", "movements", "checkins"} {
		var count int
		err := repos.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, 0, count)
	}
}

func TestLocationBulkInsertAndList(t *testing.T) {
	repos := setupWarehouse(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	accuracy := 5.0

	points := []*LocationPoint{
		{Timestamp: base, Latitude: -34.90, Longitude: -56.16, Accuracy: &accuracy, Source: "phone"},
		{Timestamp: base.Add(time.Minute), Latitude: -34.91, Longitude: -56.17, Data: map[string]any{"battery": 0.9}},
		{Timestamp: base.Add(2 * time.Minute), Latitude: -34.92, Longitude: -56.18},
	}

	require.NoError(t, repos.Locations.BulkInsert(points))

	// IDs were generated
	for _, p := range points {
		assert.NotEmpty(t, p.ID)
	}

	count, err := repos.Locations.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// Newest first
	listed, err := repos.Locations.List(nil, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, -34.92, listed[0].Latitude)
	assert.Equal(t, -34.90, listed[2].Latitude)
	require.NotNil(t, listed[2].Accuracy)
	assert.Equal(t, 5.0, *listed[2].Accuracy)
	assert.Equal(t, "phone", listed[2].Source)
	assert.Equal(t, 0.9, listed[1].Data["battery"])

	// Time filter
	start := base.Add(30 * time.Second)
	listed, err = repos.Locations.List(&start, nil, 10, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	end := base.Add(90 * time.Second)
	listed, err = repos.Locations.List(&start, &end, 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, -34.91, listed[0].Latitude)
}

func TestLocationDeleteOlderThan(t *testing.T) {
	repos := setupWarehouse(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repos.Locations.BulkInsert([]*LocationPoint{
		{Timestamp: base, Latitude: 1, Longitude: 1},
		{Timestamp: base.Add(time.Hour), Latitude: 2, Longitude: 2},
		{Timestamp: base.Add(2 * time.Hour), Latitude: 3, Longitude: 3},
	}))

	deleted, err := repos.Locations.DeleteOlderThan(base.Add(90 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	count, err := repos.Locations.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLocationTimeRange(t *testing.T) {
	repos := setupWarehouse(t)

	earliest, latest, err := repos.Locations.TimeRange()
	require.NoError(t, err)
	assert.Nil(t, earliest)
	assert.Nil(t, latest)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repos.Locations.BulkInsert([]*LocationPoint{
		{Timestamp: base.Add(time.Hour), Latitude: 1, Longitude: 1},
		{Timestamp: base, Latitude: 2, Longitude: 2},
	}))

	earliest, latest, err = repos.Locations.TimeRange()
	require.NoError(t, err)
	require.NotNil(t, earliest)
	require.NotNil(t, latest)
	assert.True(t, earliest.Equal(base))
	assert.True(t, latest.Equal(base.Add(time.Hour)))
}

func TestVisitLifecycle(t *testing.T) {
	repos := setupWarehouse(t)

	place := &Place{Name: "Home", Latitude: -34.90, Longitude: -56.16, RadiusMeters: 50}
	require.NoError(t, repos.Places.Save(place))

	arrival := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	visit := &Visit{PlaceID: place.ID, ArrivalTime: arrival}
	require.NoError(t, repos.Visits.Create(visit))

	assert.NotEmpty(t, visit.ID)
	assert.True(t, visit.IsOngoing)
	assert.Equal(t, 0.8, visit.ConfidenceScore)

	current, err := repos.Visits.Current()
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, visit.ID, current.ID)
	assert.Equal(t, "Home", current.PlaceName)

	departure := arrival.Add(90 * time.Minute)
	ended, err := repos.Visits.End(visit.ID, departure)
	require.NoError(t, err)
	require.NotNil(t, ended)
	assert.False(t, ended.IsOngoing)
	require.NotNil(t, ended.DurationMinutes)
	assert.InDelta(t, 90, *ended.DurationMinutes, 0.001)

	// No ongoing visit anymore
	current, err = repos.Visits.Current()
	require.NoError(t, err)
	assert.Nil(t, current)

	// Ending again fails
	_, err = repos.Visits.End(visit.ID, departure)
	assert.ErrorIs(t, err, ErrVisitEnded)

	// Ending a missing visit returns nil, nil
	missing, err := repos.Visits.End("no-such-visit", departure)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestVisitListFilters(t *testing.T) {
	repos := setupWarehouse(t)

	home := &Place{Name: "Home", Latitude: -34.90, Longitude: -56.16}
	work := &Place{Name: "Work", Latitude: -34.91, Longitude: -56.17}
	require.NoError(t, repos.Places.Save(home))
	require.NoError(t, repos.Places.Save(work))

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	for i, placeID := range []string{home.ID, work.ID, home.ID} {
		arrival := base.Add(time.Duration(i) * time.Hour)
		departure := arrival.Add(30 * time.Minute)
		require.NoError(t, repos.Visits.Create(&Visit{
			PlaceID:       placeID,
			ArrivalTime:   arrival,
			DepartureTime: &departure,
		}))
	}

	all, err := repos.Visits.List(nil, nil, "", 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest arrival first
	assert.True(t, all[0].ArrivalTime.After(all[2].ArrivalTime))

	atHome, err := repos.Visits.List(nil, nil, home.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, atHome, 2)

	forWork, err := repos.Visits.ForPlace(work.ID, 10)
	require.NoError(t, err)
	require.Len(t, forWork, 1)
	assert.Equal(t, "Work", forWork[0].PlaceName)

	start := base.Add(90 * time.Minute)
	late, err := repos.Visits.List(&start, nil, "", 10, 0)
	require.NoError(t, err)
	assert.Len(t, late, 1)
}

func TestMovementCreateDerivesMetrics(t *testing.T) {
	repos := setupWarehouse(t)

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	movement := &Movement{
		StartTime: start,
		EndTime:   start.Add(10 * time.Minute),
		StartLat:  -34.90,
		StartLng:  -56.16,
		EndLat:    -34.91,
		EndLng:    -56.16,
		GPSTrack: []TrackFix{
			{Timestamp: start, Latitude: -34.90, Longitude: -56.16},
			{Timestamp: start.Add(5 * time.Minute), Latitude: -34.905, Longitude: -56.16},
		},
	}

	require.NoError(t, repos.Movements.Create(movement))
	assert.NotEmpty(t, movement.ID)

	// 0.01 degrees of latitude is ~1.1km
	assert.InDelta(t, 1112, movement.DistanceMeters, 5)
	assert.InDelta(t, 10, movement.DurationMinutes, 0.001)
	assert.InDelta(t, movement.DistanceMeters/600, movement.AvgSpeedMS, 0.001)

	saved, err := repos.Movements.Get(movement.ID)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, movement.ID, saved.ID)
	require.Len(t, saved.GPSTrack, 2)
	assert.Equal(t, -34.905, saved.GPSTrack[1].Latitude)

	missing, err := repos.Movements.Get("no-such-movement")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMovementList(t *testing.T) {
	repos := setupWarehouse(t)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, repos.Movements.Create(&Movement{
			StartTime: start,
			EndTime:   start.Add(15 * time.Minute),
			StartLat:  1, StartLng: 1, EndLat: 2, EndLng: 2,
		}))
	}

	all, err := repos.Movements.List(nil, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].StartTime.After(all[2].StartTime))

	start := base.Add(30 * time.Minute)
	end := base.Add(90 * time.Minute)
	window, err := repos.Movements.List(&start, &end, 10, 0)
	require.NoError(t, err)
	assert.Len(t, window, 1)
}

func TestCheckinCreateAndList(t *testing.T) {
	repos := setupWarehouse(t)

	first := &Checkin{
		PlaceName:     "Café Brasilero",
		PlaceCategory: "cafe",
		Latitude:      -34.907,
		Longitude:     -56.204,
		Notes:         "cortado",
		CheckedInAt:   time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC),
	}
	second := &Checkin{
		PlaceName:   "Mercado del Puerto",
		Latitude:    -34.905,
		Longitude:   -56.211,
		CheckedInAt: time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
	}

	require.NoError(t, repos.Checkins.Create(first))
	require.NoError(t, repos.Checkins.Create(second))

	listed, err := repos.Checkins.List(10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "Mercado del Puerto", listed[0].PlaceName)
	assert.Equal(t, "Café Brasilero", listed[1].PlaceName)
	assert.Equal(t, "cortado", listed[1].Notes)
	assert.Equal(t, "cafe", listed[1].PlaceCategory)

	count, err := repos.Checkins.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStats(t *testing.T) {
	repos := setupWarehouse(t)

	stats, err := repos.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalGPSPoints)
	assert.Nil(t, stats.EarliestPoint)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repos.Locations.BulkInsert([]*LocationPoint{
		{Timestamp: base, Latitude: 1, Longitude: 1},
		{Timestamp: base.Add(time.Hour), Latitude: 2, Longitude: 2},
	}))
	require.NoError(t, repos.Places.Save(&Place{Name: "Home", Latitude: 1, Longitude: 1}))
	require.NoError(t, repos.Checkins.Create(&Checkin{PlaceName: "Somewhere", Latitude: 1, Longitude: 1}))

	stats, err = repos.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalGPSPoints)
	assert.Equal(t, 1, stats.TotalPlaces)
	assert.Equal(t, 0, stats.TotalVisits)
	assert.Equal(t, 1, stats.TotalCheckins)
	require.NotNil(t, stats.EarliestPoint)
	assert.True(t, stats.EarliestPoint.Equal(base))
}
