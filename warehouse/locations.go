// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package warehouse

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LocationRepository handles persistence of raw GPS points.
type LocationRepository interface {
	// CreateSchema creates the location_data table.
	CreateSchema() error

	// BulkInsert saves a batch of GPS points in one transaction.
	BulkInsert(points []*LocationPoint) error

	// List returns points in [start, end], newest first. Nil bounds are
	// open.
	List(start, end *time.Time, limit, offset int) ([]*LocationPoint, error)

	// DeleteOlderThan removes points older than the cutoff and reports how
	// many were deleted.
	DeleteOlderThan(cutoff time.Time) (int64, error)

	// Count returns the total number of points.
	Count() (int, error)

	// TimeRange returns the earliest and latest point timestamps, or nils
	// for an empty table.
	TimeRange() (earliest, latest *time.Time, err error)
}

type sqlLocationRepository struct {
	db *sql.DB
}

// NewLocationRepository creates a GPS point repository over db.
func NewLocationRepository(db *sql.DB) LocationRepository {
	return &sqlLocationRepository{db: db}
}

func (r *sqlLocationRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS location_data (
			id VARCHAR PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			accuracy DOUBLE,
			altitude DOUBLE,
			speed DOUBLE,
			course DOUBLE,
			source VARCHAR,
			data VARCHAR,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_location_data_timestamp
			ON location_data(timestamp);
	`)

	return err
}

func (r *sqlLocationRepository) BulkInsert(points []*LocationPoint) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO location_data(
			id, timestamp, latitude, longitude, accuracy, altitude,
			speed, course, source, data, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()

		return err
	}
	defer stmt.Close()

	now := time.Now()

	for _, point := range points {
		if point.ID == "" {
			point.ID = uuid.NewString()
		}

		if point.CreatedAt.IsZero() {
			point.CreatedAt = now
		}

		data, err := marshalJSON(point.Data)
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("encoding point data: %w", err)
		}

		if _, err := stmt.Exec(
			point.ID, point.Timestamp, point.Latitude, point.Longitude,
			nullFloat(point.Accuracy), nullFloat(point.Altitude),
			nullFloat(point.Speed), nullFloat(point.Course),
			nullString(point.Source), data, point.CreatedAt,
		); err != nil {
			_ = tx.Rollback()

			return err
		}
	}

	return tx.Commit()
}

func (r *sqlLocationRepository) List(start, end *time.Time, limit, offset int) ([]*LocationPoint, error) {
	query := `
		SELECT id, timestamp, latitude, longitude, accuracy, altitude,
		       speed, course, source, data, created_at
		FROM location_data`

	var (
		conditions string
		args       []any
	)

	if start != nil {
		conditions += ` WHERE timestamp >= ?`

		args = append(args, *start)
	}

	if end != nil {
		if conditions == "" {
			conditions += ` WHERE timestamp <= ?`
		} else {
			conditions += ` AND timestamp <= ?`
		}

		args = append(args, *end)
	}

	query += conditions + ` ORDER BY timestamp DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []*LocationPoint

	for rows.Next() {
		var (
			point                            LocationPoint
			accuracy, altitude, speed, crs   sql.NullFloat64
			source, data                     sql.NullString
		)

		if err := rows.Scan(
			&point.ID, &point.Timestamp, &point.Latitude, &point.Longitude,
			&accuracy, &altitude, &speed, &crs, &source, &data, &point.CreatedAt,
		); err != nil {
			return nil, err
		}

		point.Accuracy = floatPtr(accuracy)
		point.Altitude = floatPtr(altitude)
		point.Speed = floatPtr(speed)
		point.Course = floatPtr(crs)
		point.Source = source.String

		if point.Data, err = unmarshalJSON(data); err != nil {
			return nil, fmt.Errorf("decoding data for point %s: %w", point.ID, err)
		}

		points = append(points, &point)
	}

	return points, rows.Err()
}

func (r *sqlLocationRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM location_data WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *sqlLocationRepository) Count() (int, error) {
	var count int

	err := r.db.QueryRow(`SELECT COUNT(*) FROM location_data`).Scan(&count)

	return count, err
}

func (r *sqlLocationRepository) TimeRange() (*time.Time, *time.Time, error) {
	var earliest, latest sql.NullTime

	err := r.db.QueryRow(`SELECT MIN(timestamp), MAX(timestamp) FROM location_data`).
		Scan(&earliest, &latest)
	if err != nil {
		return nil, nil, err
	}

	return timePtr(earliest), timePtr(latest), nil
}
