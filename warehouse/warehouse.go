// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package warehouse

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Repositories bundles the per-table repositories over one warehouse
// database.
type Repositories struct {
	Locations LocationRepository
	Places    PlaceRepository
	Visits    VisitRepository
	Movements MovementRepository
	Checkins  CheckinRepository

	db *sql.DB
}

// NewRepositories wires all repositories over db and creates any missing
// schema.
func NewRepositories(db *sql.DB) (*Repositories, error) {
	r := &Repositories{
		Locations: NewLocationRepository(db),
		Places:    NewPlaceRepository(db),
		Visits:    NewVisitRepository(db),
		Movements: NewMovementRepository(db),
		Checkins:  NewCheckinRepository(db),
		db:        db,
	}

	for name, create := range map[string]func() error{
		"location_data": r.Locations.CreateSchema,
		"places":        r.Places.CreateSchema,
		"visits":        r.Visits.CreateSchema,
		"movements":     r.Movements.CreateSchema,
		"checkins":      r.Checkins.CreateSchema,
	} {
		if err := create(); err != nil {
			return nil, fmt.Errorf("creating %s schema: %w", name, err)
		}
	}

	return r, nil
}

// DB returns the underlying database connection.
func (r *Repositories) DB() *sql.DB {
	return r.db
}

// Stats aggregates warehouse counts and the GPS date range.
func (r *Repositories) Stats() (*Stats, error) {
	stats := &Stats{}

	for _, c := range []struct {
		dst   *int
		count func() (int, error)
	}{
		{&stats.TotalGPSPoints, r.Locations.Count},
		{&stats.TotalPlaces, r.Places.Count},
		{&stats.TotalVisits, r.Visits.Count},
		{&stats.TotalMovements, r.Movements.Count},
		{&stats.TotalCheckins, r.Checkins.Count},
	} {
		n, err := c.count()
		if err != nil {
			return nil, err
		}

		*c.dst = n
	}

	earliest, latest, err := r.Locations.TimeRange()
	if err != nil {
		return nil, err
	}

	stats.EarliestPoint = earliest
	stats.LatestPoint = latest

	return stats, nil
}

// marshalJSON encodes a map column, mapping empty to SQL NULL.
func marshalJSON(m map[string]any) (any, error) {
	if len(m) == 0 {
		return nil, nil
	}

	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}

	return string(data), nil
}

// unmarshalJSON decodes a nullable JSON column into a map.
func unmarshalJSON(raw sql.NullString) (map[string]any, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(raw.String), &m); err != nil {
		return nil, err
	}

	return m, nil
}

// nullTime maps a *time.Time to a nullable column value.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}

	return *t
}

// timePtr maps a nullable column back to a *time.Time.
func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}

	v := t.Time

	return &v
}

// nullFloat maps a *float64 to a nullable column value.
func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}

	return *f
}

// floatPtr maps a nullable column back to a *float64.
func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}

	v := f.Float64

	return &v
}

// nullString maps "" to SQL NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}

	return s
}
