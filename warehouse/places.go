// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package warehouse

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uber/h3-go/v4"

	"github.com/myndy/locintel/spatial"
	"github.com/myndy/locintel/utils"
)

// PlaceRepository handles persistence of semantic places.
type PlaceRepository interface {
	// CreateSchema creates the places table.
	CreateSchema() error

	// Save inserts or updates a place. A missing ID is generated.
	Save(place *Place) error

	// Get returns the place by ID, or nil if it does not exist.
	Get(id string) (*Place, error)

	// List returns places, optionally filtered by place type, ordered by
	// visit count.
	List(placeType string, limit, offset int) ([]*Place, error)

	// Search matches places by name or description, accent- and
	// case-insensitively.
	Search(query string, limit int) ([]*Place, error)

	// Nearby returns places within radiusMeters of the coordinate, closest
	// first.
	Nearby(lat, lng, radiusMeters float64, limit int) ([]*Place, error)

	// NeedingEnrichment returns places without a usable name, most-visited
	// first. When force is true every place qualifies.
	NeedingEnrichment(minVisits int, force bool) ([]*Place, error)

	// ApplyEnrichment replaces a place's name, address, type and enrichment
	// metadata in one update.
	ApplyEnrichment(id, name string, address map[string]any, placeType string, metadata map[string]any) error

	// UpdatePlaceType rewrites only the classification of a place.
	UpdatePlaceType(id, placeType string) error

	// RecordVisit bumps the visit counters for a place.
	RecordVisit(id string, at time.Time) error

	// Count returns the total number of places.
	Count() (int, error)
}

type sqlPlaceRepository struct {
	db *sql.DB
}

// NewPlaceRepository creates a place repository over db.
func NewPlaceRepository(db *sql.DB) PlaceRepository {
	return &sqlPlaceRepository{db: db}
}

func (r *sqlPlaceRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS places (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			description TEXT,
			place_type VARCHAR,
			latitude DOUBLE NOT NULL,
			longitude DOUBLE NOT NULL,
			radius_meters DOUBLE DEFAULT 50.0,
			address VARCHAR,
			metadata VARCHAR,
			visit_count INTEGER DEFAULT 0,
			first_visit_at TIMESTAMPTZ,
			last_visit_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			h3_res6 BIGINT,
			h3_res7 BIGINT,
			h3_res8 BIGINT,
			h3_res9 BIGINT
		);
	`)

	return err
}

// computeH3 fills the H3 cell columns from the place coordinate.
func computeH3(place *Place) error {
	latLng := h3.NewLatLng(place.Latitude, place.Longitude)

	for res, dst := range map[int]*int64{
		6: &place.H3Res6,
		7: &place.H3Res7,
		8: &place.H3Res8,
		9: &place.H3Res9,
	} {
		cell, err := h3.LatLngToCell(latLng, res)
		if err != nil {
			return fmt.Errorf("converting to h3 cell at res %d: %w", res, err)
		}

		*dst = int64(cell)
	}

	return nil
}

func (r *sqlPlaceRepository) Save(place *Place) error {
	if place.ID == "" {
		place.ID = uuid.NewString()
		place.CreatedAt = time.Now()
	}

	if err := computeH3(place); err != nil {
		return err
	}

	address, err := marshalJSON(place.Address)
	if err != nil {
		return fmt.Errorf("encoding address: %w", err)
	}

	metadata, err := marshalJSON(place.Metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	place.UpdatedAt = time.Now()
	if place.CreatedAt.IsZero() {
		place.CreatedAt = place.UpdatedAt
	}

	existing, err := r.Get(place.ID)
	if err != nil {
		return err
	}

	if existing != nil {
		_, err = r.db.Exec(`
			UPDATE places
			SET name = ?, description = ?, place_type = ?, latitude = ?,
			    longitude = ?, radius_meters = ?, address = ?, metadata = ?,
			    visit_count = ?, first_visit_at = ?, last_visit_at = ?,
			    updated_at = ?, h3_res6 = ?, h3_res7 = ?, h3_res8 = ?, h3_res9 = ?
			WHERE id = ?
		`,
			place.Name, nullString(place.Description), nullString(place.PlaceType),
			place.Latitude, place.Longitude, place.RadiusMeters,
			address, metadata, place.VisitCount,
			nullTime(place.FirstVisitAt), nullTime(place.LastVisitAt),
			place.UpdatedAt,
			place.H3Res6, place.H3Res7, place.H3Res8, place.H3Res9,
			place.ID,
		)

		return err
	}

	_, err = r.db.Exec(`
		INSERT INTO places(
			id, name, description, place_type, latitude, longitude,
			radius_meters, address, metadata, visit_count,
			first_visit_at, last_visit_at, created_at, updated_at,
			h3_res6, h3_res7, h3_res8, h3_res9
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		place.ID, place.Name, nullString(place.Description), nullString(place.PlaceType),
		place.Latitude, place.Longitude, place.RadiusMeters,
		address, metadata, place.VisitCount,
		nullTime(place.FirstVisitAt), nullTime(place.LastVisitAt),
		place.CreatedAt, place.UpdatedAt,
		place.H3Res6, place.H3Res7, place.H3Res8, place.H3Res9,
	)

	return err
}

const placeColumns = `
	id, name, description, place_type, latitude, longitude, radius_meters,
	address, metadata, visit_count, first_visit_at, last_visit_at,
	created_at, updated_at, h3_res6, h3_res7, h3_res8, h3_res9`

func scanPlace(row interface{ Scan(...any) error }) (*Place, error) {
	var (
		place                  Place
		description, placeType sql.NullString
		address, metadata      sql.NullString
		firstVisit, lastVisit  sql.NullTime
	)

	err := row.Scan(
		&place.ID, &place.Name, &description, &placeType,
		&place.Latitude, &place.Longitude, &place.RadiusMeters,
		&address, &metadata, &place.VisitCount,
		&firstVisit, &lastVisit, &place.CreatedAt, &place.UpdatedAt,
		&place.H3Res6, &place.H3Res7, &place.H3Res8, &place.H3Res9,
	)
	if err != nil {
		return nil, err
	}

	place.Description = description.String
	place.PlaceType = placeType.String
	place.FirstVisitAt = timePtr(firstVisit)
	place.LastVisitAt = timePtr(lastVisit)

	if place.Address, err = unmarshalJSON(address); err != nil {
		return nil, fmt.Errorf("decoding address for place %s: %w", place.ID, err)
	}

	if place.Metadata, err = unmarshalJSON(metadata); err != nil {
		return nil, fmt.Errorf("decoding metadata for place %s: %w", place.ID, err)
	}

	return &place, nil
}

func (r *sqlPlaceRepository) Get(id string) (*Place, error) {
	row := r.db.QueryRow(`SELECT `+placeColumns+` FROM places WHERE id = ?`, id)

	place, err := scanPlace(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	return place, err
}

func (r *sqlPlaceRepository) queryPlaces(query string, args ...any) ([]*Place, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var places []*Place

	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}

		places = append(places, place)
	}

	return places, rows.Err()
}

func (r *sqlPlaceRepository) List(placeType string, limit, offset int) ([]*Place, error) {
	if placeType != "" {
		return r.queryPlaces(`
			SELECT `+placeColumns+` FROM places
			WHERE place_type = ?
			ORDER BY visit_count DESC, name
			LIMIT ? OFFSET ?
		`, placeType, limit, offset)
	}

	return r.queryPlaces(`
		SELECT `+placeColumns+` FROM places
		ORDER BY visit_count DESC, name
		LIMIT ? OFFSET ?
	`, limit, offset)
}

func (r *sqlPlaceRepository) Search(query string, limit int) ([]*Place, error) {
	// Accent folding is done in Go; the catalog is small enough that
	// scanning it beats teaching the database about unicode normalization.
	candidates, err := r.queryPlaces(`SELECT ` + placeColumns + ` FROM places ORDER BY visit_count DESC`)
	if err != nil {
		return nil, err
	}

	needle := utils.LowerASCIIFolding(query)

	var matches []*Place

	for _, place := range candidates {
		if strings.Contains(utils.LowerASCIIFolding(place.Name), needle) ||
			strings.Contains(utils.LowerASCIIFolding(place.Description), needle) {
			matches = append(matches, place)
			if len(matches) == limit {
				break
			}
		}
	}

	return matches, nil
}

// nearbyRes is the H3 resolution driving the candidate pre-filter for
// nearby lookups. Res 8 cells have an edge length of ~460m.
const nearbyRes = 8

const nearbyResEdgeMeters = 461.0

func (r *sqlPlaceRepository) Nearby(lat, lng, radiusMeters float64, limit int) ([]*Place, error) {
	origin, err := h3.LatLngToCell(h3.NewLatLng(lat, lng), nearbyRes)
	if err != nil {
		return nil, fmt.Errorf("converting query point to h3 cell: %w", err)
	}

	// A grid disk wide enough to cover the radius: k rings of res-8 cells.
	k := int(radiusMeters/nearbyResEdgeMeters) + 1

	disk, err := h3.GridDisk(origin, k)
	if err != nil {
		return nil, fmt.Errorf("computing h3 grid disk: %w", err)
	}

	placeholders := make([]string, len(disk))
	args := make([]any, len(disk))

	for i, cell := range disk {
		placeholders[i] = "?"
		args[i] = int64(cell)
	}

	candidates, err := r.queryPlaces(`
		SELECT `+placeColumns+` FROM places
		WHERE h3_res8 IN (`+strings.Join(placeholders, ", ")+`)
	`, args...)
	if err != nil {
		return nil, err
	}

	type scored struct {
		place    *Place
		distance float64
	}

	var within []scored

	center := spatial.Point{Lat: lat, Lng: lng}

	for _, place := range candidates {
		d := center.HaversineDistance(&spatial.Point{Lat: place.Latitude, Lng: place.Longitude})
		if d <= radiusMeters {
			within = append(within, scored{place: place, distance: d})
		}
	}

	sort.Slice(within, func(i, j int) bool {
		return within[i].distance < within[j].distance
	})

	if limit > 0 && len(within) > limit {
		within = within[:limit]
	}

	places := make([]*Place, len(within))
	for i, s := range within {
		places[i] = s.place
	}

	return places, nil
}

func (r *sqlPlaceRepository) NeedingEnrichment(minVisits int, force bool) ([]*Place, error) {
	if force {
		return r.queryPlaces(`
			SELECT `+placeColumns+` FROM places
			WHERE visit_count >= ?
			ORDER BY visit_count DESC, last_visit_at DESC
		`, minVisits)
	}

	// Coordinate-derived placeholder names like "Place at 37.0,-122.0"
	// count as unnamed.
	return r.queryPlaces(`
		SELECT `+placeColumns+` FROM places
		WHERE (name IS NULL OR name = '' OR name LIKE 'Place at%')
		  AND visit_count >= ?
		ORDER BY visit_count DESC, last_visit_at DESC
	`, minVisits)
}

func (r *sqlPlaceRepository) ApplyEnrichment(id, name string, address map[string]any, placeType string, metadata map[string]any) error {
	addressJSON, err := marshalJSON(address)
	if err != nil {
		return fmt.Errorf("encoding address: %w", err)
	}

	metadataJSON, err := marshalJSON(metadata)
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}

	_, err = r.db.Exec(`
		UPDATE places
		SET name = ?, address = ?, place_type = ?, metadata = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, name, addressJSON, nullString(placeType), metadataJSON, id)

	return err
}

func (r *sqlPlaceRepository) UpdatePlaceType(id, placeType string) error {
	_, err := r.db.Exec(`
		UPDATE places SET place_type = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, placeType, id)

	return err
}

func (r *sqlPlaceRepository) RecordVisit(id string, at time.Time) error {
	_, err := r.db.Exec(`
		UPDATE places
		SET visit_count = visit_count + 1,
		    first_visit_at = COALESCE(first_visit_at, ?),
		    last_visit_at = ?,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, at, at, id)

	return err
}

func (r *sqlPlaceRepository) Count() (int, error) {
	var count int

	err := r.db.QueryRow(`SELECT COUNT(*) FROM places`).Scan(&count)

	return count, err
}
