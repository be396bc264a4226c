// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package warehouse

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrVisitEnded is returned when ending a visit that is not ongoing.
var ErrVisitEnded = errors.New("visit is not ongoing")

// VisitRepository handles persistence of the visit timeline.
type VisitRepository interface {
	// CreateSchema creates the visits table.
	CreateSchema() error

	// Create stores a new visit. A missing ID is generated; a visit without
	// a departure time is marked ongoing.
	Create(visit *Visit) error

	// Get returns the visit by ID, or nil if it does not exist.
	Get(id string) (*Visit, error)

	// List returns visits in [start, end], optionally filtered by place,
	// newest arrival first.
	List(start, end *time.Time, placeID string, limit, offset int) ([]*Visit, error)

	// Current returns the ongoing visit, or nil if there is none.
	Current() (*Visit, error)

	// End closes an ongoing visit and derives its duration.
	End(id string, departure time.Time) (*Visit, error)

	// ForPlace returns visits at one place, newest first.
	ForPlace(placeID string, limit int) ([]*Visit, error)

	// Count returns the total number of visits.
	Count() (int, error)
}

type sqlVisitRepository struct {
	db *sql.DB
}

// NewVisitRepository creates a visit repository over db.
func NewVisitRepository(db *sql.DB) VisitRepository {
	return &sqlVisitRepository{db: db}
}

func (r *sqlVisitRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS visits (
			id VARCHAR PRIMARY KEY,
			place_id VARCHAR,
			arrival_time TIMESTAMPTZ NOT NULL,
			departure_time TIMESTAMPTZ,
			duration_minutes DOUBLE,
			is_ongoing BOOLEAN DEFAULT FALSE,
			confidence_score DOUBLE DEFAULT 0.8,
			avg_speed_ms DOUBLE,
			max_speed_ms DOUBLE,
			detected_transport_mode VARCHAR,
			metadata VARCHAR,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		);

		CREATE INDEX IF NOT EXISTS idx_visits_arrival_time
			ON visits(arrival_time);
	`)

	return err
}

func (r *sqlVisitRepository) Create(visit *Visit) error {
	if visit.ID == "" {
		visit.ID = uuid.NewString()
	}

	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = time.Now()
	}

	if visit.ConfidenceScore == 0 {
		visit.ConfidenceScore = 0.8
	}

	visit.IsOngoing = visit.DepartureTime == nil

	if visit.DepartureTime != nil && visit.DurationMinutes == nil {
		minutes := visit.DepartureTime.Sub(visit.ArrivalTime).Minutes()
		visit.DurationMinutes = &minutes
	}

	metadata, err := marshalJSON(visit.Metadata)
	if err != nil {
		return fmt.Errorf("encoding visit metadata: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO visits(
			id, place_id, arrival_time, departure_time, duration_minutes,
			is_ongoing, confidence_score, avg_speed_ms, max_speed_ms,
			detected_transport_mode, metadata, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		visit.ID, nullString(visit.PlaceID), visit.ArrivalTime,
		nullTime(visit.DepartureTime), nullFloat(visit.DurationMinutes),
		visit.IsOngoing, visit.ConfidenceScore,
		nullFloat(visit.AvgSpeedMS), nullFloat(visit.MaxSpeedMS),
		nullString(visit.TransportMode), metadata, visit.CreatedAt,
	)

	return err
}

const visitColumns = `
	v.id, v.place_id, p.name, v.arrival_time, v.departure_time,
	v.duration_minutes, v.is_ongoing, v.confidence_score, v.avg_speed_ms,
	v.max_speed_ms, v.detected_transport_mode, v.metadata, v.created_at`

const visitFrom = ` FROM visits v LEFT JOIN places p ON p.id = v.place_id`

func scanVisit(row interface{ Scan(...any) error }) (*Visit, error) {
	var (
		visit                         Visit
		placeID, placeName, transport sql.NullString
		departure                     sql.NullTime
		duration, avgSpeed, maxSpeed  sql.NullFloat64
		metadata                      sql.NullString
	)

	err := row.Scan(
		&visit.ID, &placeID, &placeName, &visit.ArrivalTime, &departure,
		&duration, &visit.IsOngoing, &visit.ConfidenceScore,
		&avgSpeed, &maxSpeed, &transport, &metadata, &visit.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	visit.PlaceID = placeID.String
	visit.PlaceName = placeName.String
	visit.DepartureTime = timePtr(departure)
	visit.DurationMinutes = floatPtr(duration)
	visit.AvgSpeedMS = floatPtr(avgSpeed)
	visit.MaxSpeedMS = floatPtr(maxSpeed)
	visit.TransportMode = transport.String

	if visit.Metadata, err = unmarshalJSON(metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata for visit %s: %w", visit.ID, err)
	}

	return &visit, nil
}

func (r *sqlVisitRepository) Get(id string) (*Visit, error) {
	row := r.db.QueryRow(`SELECT `+visitColumns+visitFrom+` WHERE v.id = ?`, id)

	visit, err := scanVisit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return visit, err
}

func (r *sqlVisitRepository) queryVisits(query string, args ...any) ([]*Visit, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []*Visit

	for rows.Next() {
		visit, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}

		visits = append(visits, visit)
	}

	return visits, rows.Err()
}

func (r *sqlVisitRepository) List(start, end *time.Time, placeID string, limit, offset int) ([]*Visit, error) {
	query := `SELECT ` + visitColumns + visitFrom + ` WHERE 1=1`

	var args []any

	if start != nil {
		query += ` AND v.arrival_time >= ?`

		args = append(args, *start)
	}

	if end != nil {
		query += ` AND v.arrival_time <= ?`

		args = append(args, *end)
	}

	if placeID != "" {
		query += ` AND v.place_id = ?`

		args = append(args, placeID)
	}

	query += ` ORDER BY v.arrival_time DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	return r.queryVisits(query, args...)
}

func (r *sqlVisitRepository) Current() (*Visit, error) {
	row := r.db.QueryRow(`
		SELECT ` + visitColumns + visitFrom + `
		WHERE v.is_ongoing
		ORDER BY v.arrival_time DESC
		LIMIT 1
	`)

	visit, err := scanVisit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return visit, err
}

func (r *sqlVisitRepository) End(id string, departure time.Time) (*Visit, error) {
	visit, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	if visit == nil {
		return nil, nil
	}

	if !visit.IsOngoing {
		return nil, ErrVisitEnded
	}

	minutes := departure.Sub(visit.ArrivalTime).Minutes()

	_, err = r.db.Exec(`
		UPDATE visits
		SET departure_time = ?, duration_minutes = ?, is_ongoing = FALSE
		WHERE id = ?
	`, departure, minutes, id)
	if err != nil {
		return nil, err
	}

	return r.Get(id)
}

func (r *sqlVisitRepository) ForPlace(placeID string, limit int) ([]*Visit, error) {
	return r.queryVisits(`
		SELECT `+visitColumns+visitFrom+`
		WHERE v.place_id = ?
		ORDER BY v.arrival_time DESC
		LIMIT ?
	`, placeID, limit)
}

func (r *sqlVisitRepository) Count() (int, error) {
	var count int

	err := r.db.QueryRow(`SELECT COUNT(*) FROM visits`).Scan(&count)

	return count, err
}
