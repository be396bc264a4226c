// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

// Package warehouse persists the location-intelligence relational model:
// raw GPS points, semantic places, the visit timeline, movements between
// visits and manual check-ins.
package warehouse

import (
	"time"
)

// LocationPoint is one raw GPS sample.
type LocationPoint struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Accuracy  *float64       `json:"accuracy,omitempty"`
	Altitude  *float64       `json:"altitude,omitempty"`
	Speed     *float64       `json:"speed,omitempty"`
	Course    *float64       `json:"course,omitempty"`
	Source    string         `json:"source,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Place is a semantic place discovered from GPS clustering or check-ins.
type Place struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Description  string         `json:"description,omitempty"`
	PlaceType    string         `json:"place_type,omitempty"`
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	RadiusMeters float64        `json:"radius_meters"`
	Address      map[string]any `json:"address,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	VisitCount   int            `json:"visit_count"`
	FirstVisitAt *time.Time     `json:"first_visit_at,omitempty"`
	LastVisitAt  *time.Time     `json:"last_visit_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	// H3 cells at a few resolutions, computed from the coordinate on save.
	// Res 8 cells are ~460m across and drive the nearby-place lookup.
	H3Res6 int64 `json:"-"`
	H3Res7 int64 `json:"-"`
	H3Res8 int64 `json:"-"`
	H3Res9 int64 `json:"-"`
}

// Visit is a period spent at a place.
type Visit struct {
	ID              string         `json:"id"`
	PlaceID         string         `json:"place_id"`
	PlaceName       string         `json:"place_name,omitempty"`
	ArrivalTime     time.Time      `json:"arrival_time"`
	DepartureTime   *time.Time     `json:"departure_time,omitempty"`
	DurationMinutes *float64       `json:"duration_minutes,omitempty"`
	IsOngoing       bool           `json:"is_ongoing"`
	ConfidenceScore float64        `json:"confidence_score"`
	AvgSpeedMS      *float64       `json:"avg_speed_ms,omitempty"`
	MaxSpeedMS      *float64       `json:"max_speed_ms,omitempty"`
	TransportMode   string         `json:"detected_transport_mode,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Movement is a track between two visits.
type Movement struct {
	ID              string     `json:"id"`
	StartVisitID    string     `json:"start_visit_id,omitempty"`
	EndVisitID      string     `json:"end_visit_id,omitempty"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         time.Time  `json:"end_time"`
	StartLat        float64    `json:"start_lat"`
	StartLng        float64    `json:"start_lng"`
	EndLat          float64    `json:"end_lat"`
	EndLng          float64    `json:"end_lng"`
	DistanceMeters  float64    `json:"distance_meters"`
	DurationMinutes float64    `json:"duration_minutes"`
	AvgSpeedMS      float64    `json:"avg_speed_ms"`
	MovementType    string     `json:"movement_type,omitempty"`
	GPSTrack        []TrackFix `json:"gps_track,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TrackFix is one sample of a movement's GPS track.
type TrackFix struct {
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// Checkin is a manual check-in from the mobile app.
type Checkin struct {
	ID            string    `json:"id"`
	PlaceID       string    `json:"place_id,omitempty"`
	PlaceName     string    `json:"place_name"`
	PlaceCategory string    `json:"place_category,omitempty"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Notes         string    `json:"notes,omitempty"`
	CheckedInAt   time.Time `json:"checked_in_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// Stats summarizes the warehouse for the status endpoint.
type Stats struct {
	TotalGPSPoints int        `json:"total_gps_points"`
	TotalPlaces    int        `json:"total_places"`
	TotalVisits    int        `json:"total_visits"`
	TotalMovements int        `json:"total_movements"`
	TotalCheckins  int        `json:"total_checkins"`
	EarliestPoint  *time.Time `json:"earliest,omitempty"`
	LatestPoint    *time.Time `json:"latest,omitempty"`
}
