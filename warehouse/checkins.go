// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package warehouse

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// CheckinRepository handles persistence of manual check-ins.
type CheckinRepository interface {
	// CreateSchema creates the checkins table.
	CreateSchema() error

	// Create stores a check-in.
	Create(checkin *Checkin) error

	// List returns check-ins newest first.
	List(limit, offset int) ([]*Checkin, error)

	// Count returns the total number of check-ins.
	Count() (int, error)
}

type sqlCheckinRepository struct {
	db *sql.DB
}

// NewCheckinRepository creates a check-in repository over db.
func NewCheckinRepository(db *sql.DB) CheckinRepository {
	return &sqlCheckinRepository{db: db}
}

func (r *sqlCheckinRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS checkins (
			id VARCHAR PRIMARY KEY,
			place_id VARCHAR,
			place_name VARCHAR NOT NULL,
			place_category VARCHAR,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			notes VARCHAR,
			checked_in_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);
	`)

	return err
}

func (r *sqlCheckinRepository) Create(checkin *Checkin) error {
	if checkin.ID == "" {
		checkin.ID = uuid.NewString()
	}

	if checkin.CheckedInAt.IsZero() {
		checkin.CheckedInAt = time.Now()
	}

	if checkin.CreatedAt.IsZero() {
		checkin.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(`
		INSERT INTO checkins(
			id, place_id, place_name, place_category, latitude, longitude,
			notes, checked_in_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		checkin.ID, nullString(checkin.PlaceID), checkin.PlaceName,
		nullString(checkin.PlaceCategory), checkin.Latitude, checkin.Longitude,
		nullString(checkin.Notes), checkin.CheckedInAt, checkin.CreatedAt,
	)

	return err
}

func (r *sqlCheckinRepository) List(limit, offset int) ([]*Checkin, error) {
	rows, err := r.db.Query(`
		SELECT id, place_id, place_name, place_category, latitude, longitude,
		       notes, checked_in_at, created_at
		  FROM checkins
		 ORDER BY checked_in_at DESC
		 LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkins []*Checkin

	for rows.Next() {
		var (
			checkin               Checkin
			placeID, category     sql.NullString
			notes                 sql.NullString
		)

		err := rows.Scan(
			&checkin.ID, &placeID, &checkin.PlaceName, &category,
			&checkin.Latitude, &checkin.Longitude, &notes,
			&checkin.CheckedInAt, &checkin.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		checkin.PlaceID = placeID.String
		checkin.PlaceCategory = category.String
		checkin.Notes = notes.String

		checkins = append(checkins, &checkin)
	}

	return checkins, rows.Err()
}

func (r *sqlCheckinRepository) Count() (int, error) {
	var count int

	err := r.db.QueryRow(`SELECT COUNT(*) FROM checkins`).Scan(&count)

	return count, err
}
