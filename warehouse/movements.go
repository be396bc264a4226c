// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package warehouse

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/myndy/locintel/spatial"
)

// MovementRepository handles persistence of movements between visits.
type MovementRepository interface {
	// CreateSchema creates the movements table.
	CreateSchema() error

	// Create stores a movement, deriving distance, duration and average
	// speed from the endpoints when absent.
	Create(movement *Movement) error

	// Get returns the movement by ID including its GPS track, or nil.
	Get(id string) (*Movement, error)

	// List returns movements in [start, end], newest first.
	List(start, end *time.Time, limit, offset int) ([]*Movement, error)

	// Count returns the total number of movements.
	Count() (int, error)
}

type sqlMovementRepository struct {
	db *sql.DB
}

// NewMovementRepository creates a movement repository over db.
func NewMovementRepository(db *sql.DB) MovementRepository {
	return &sqlMovementRepository{db: db}
}

func (r *sqlMovementRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS movements (
			id VARCHAR PRIMARY KEY,
			start_visit_id VARCHAR,
			end_visit_id VARCHAR,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			start_lat DOUBLE NOT NULL,
			start_lng DOUBLE NOT NULL,
			end_lat DOUBLE NOT NULL,
			end_lng DOUBLE NOT NULL,
			distance_meters DOUBLE,
			duration_minutes DOUBLE,
			avg_speed_ms DOUBLE,
			movement_type VARCHAR,
			gps_track VARCHAR,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_movements_start_time
			ON movements(start_time);
	`)

	return err
}

func (r *sqlMovementRepository) Create(movement *Movement) error {
	if movement.ID == "" {
		movement.ID = uuid.NewString()
	}

	if movement.CreatedAt.IsZero() {
		movement.CreatedAt = time.Now()
	}

	// Straight-line distance between the endpoints. The GPS track, when
	// present, could give a tighter estimate, but endpoints are always
	// available.
	if movement.DistanceMeters == 0 {
		start := spatial.Point{Lat: movement.StartLat, Lng: movement.StartLng}
		end := spatial.Point{Lat: movement.EndLat, Lng: movement.EndLng}
		movement.DistanceMeters = start.HaversineDistance(&end)
	}

	if movement.DurationMinutes == 0 {
		movement.DurationMinutes = movement.EndTime.Sub(movement.StartTime).Minutes()
	}

	if movement.AvgSpeedMS == 0 && movement.DurationMinutes > 0 {
		movement.AvgSpeedMS = movement.DistanceMeters / (movement.DurationMinutes * 60)
	}

	var track any

	if len(movement.GPSTrack) > 0 {
		data, err := json.Marshal(movement.GPSTrack)
		if err != nil {
			return fmt.Errorf("encoding gps track: %w", err)
		}

		track = string(data)
	}

	_, err := r.db.Exec(`
		INSERT INTO movements(
			id, start_visit_id, end_visit_id, start_time, end_time,
			start_lat, start_lng, end_lat, end_lng, distance_meters,
			duration_minutes, avg_speed_ms, movement_type, gps_track,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		movement.ID, nullString(movement.StartVisitID), nullString(movement.EndVisitID),
		movement.StartTime, movement.EndTime,
		movement.StartLat, movement.StartLng, movement.EndLat, movement.EndLng,
		movement.DistanceMeters, movement.DurationMinutes, movement.AvgSpeedMS,
		nullString(movement.MovementType), track, movement.CreatedAt,
	)

	return err
}

const movementColumns = `
	id, start_visit_id, end_visit_id, start_time, end_time, start_lat,
	start_lng, end_lat, end_lng, distance_meters, duration_minutes,
	avg_speed_ms, movement_type, gps_track, created_at`

func scanMovement(row interface{ Scan(...any) error }) (*Movement, error) {
	var (
		movement                      Movement
		startVisit, endVisit          sql.NullString
		distance, duration, avgSpeed  sql.NullFloat64
		movementType, track           sql.NullString
	)

	err := row.Scan(
		&movement.ID, &startVisit, &endVisit,
		&movement.StartTime, &movement.EndTime,
		&movement.StartLat, &movement.StartLng,
		&movement.EndLat, &movement.EndLng,
		&distance, &duration, &avgSpeed, &movementType, &track,
		&movement.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	movement.StartVisitID = startVisit.String
	movement.EndVisitID = endVisit.String
	movement.DistanceMeters = distance.Float64
	movement.DurationMinutes = duration.Float64
	movement.AvgSpeedMS = avgSpeed.Float64
	movement.MovementType = movementType.String

	if track.Valid && track.String != "" {
		if err := json.Unmarshal([]byte(track.String), &movement.GPSTrack); err != nil {
			return nil, fmt.Errorf("decoding gps track for movement %s: %w", movement.ID, err)
		}
	}

	return &movement, nil
}

func (r *sqlMovementRepository) Get(id string) (*Movement, error) {
	row := r.db.QueryRow(`SELECT `+movementColumns+` FROM movements WHERE id = ?`, id)

	movement, err := scanMovement(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return movement, err
}

func (r *sqlMovementRepository) List(start, end *time.Time, limit, offset int) ([]*Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE 1=1`

	var args []any

	if start != nil {
		query += ` AND start_time >= ?`

		args = append(args, *start)
	}

	if end != nil {
		query += ` AND start_time <= ?`

		args = append(args, *end)
	}

	query += ` ORDER BY start_time DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []*Movement

	for rows.Next() {
		movement, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}

		movements = append(movements, movement)
	}

	return movements, rows.Err()
}

func (r *sqlMovementRepository) Count() (int, error) {
	var count int

	err := r.db.QueryRow(`SELECT COUNT(*) FROM movements`).Scan(&count)

	return count, err
}
