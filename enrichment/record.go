// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

// Package enrichment implements cost-optimized reverse geocoding for place
// names and addresses. A local JSON cache, proximity reuse of nearby cached
// results, and rate limiting keep calls to the external provider to a
// minimum.
package enrichment

// RawPlace is the loosely structured payload returned by a reverse-geocoding
// provider. Field names follow the Nominatim jsonv2 response; other providers
// are mapped into this shape. The address sub-structure is free-form and must
// not be treated as a fixed schema.
type RawPlace struct {
	PlaceID     int64             `json:"place_id,omitempty"`
	OsmType     string            `json:"osm_type,omitempty"`
	OsmID       int64             `json:"osm_id,omitempty"`
	Lat         string            `json:"lat,omitempty"`
	Lon         string            `json:"lon,omitempty"`
	Category    string            `json:"category,omitempty"`
	Type        string            `json:"type,omitempty"`
	Name        string            `json:"name,omitempty"`
	DisplayName string            `json:"display_name,omitempty"`
	Address     map[string]string `json:"address,omitempty"`
}

// Record is the cached enrichment for one location. Records are replaced
// wholesale by a fresh enrichment, never patched field by field.
type Record struct {
	Name       string `json:"name,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`

	// PlaceType is a coarse classification label such as "residence",
	// "commercial" or "road". It is never empty on a stored record;
	// unclassifiable places get "unknown".
	PlaceType string `json:"place_type"`

	// RawData retains the provider response so classifications can be
	// recomputed later without a new external call.
	RawData *RawPlace `json:"raw_data"`
}

// Label returns the best human-readable label for the record.
func (r *Record) Label() string {
	if r.Name != "" {
		return r.Name
	}

	return r.Address
}
