// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package enrichment

import "strings"

// residentialBuildings are building values that classify as a residence.
var residentialBuildings = map[string]bool{
	"house":       true,
	"residential": true,
	"apartments":  true,
}

// ClassifyPlaceType derives a coarse place type from the free-form address
// components of a provider response. It is a pure function so it can be
// re-run over already-cached raw data to improve stored classifications
// without new external calls.
func ClassifyPlaceType(address map[string]string) string {
	// Key presence decides: an amenity tag wins verbatim even when its
	// value is empty.
	if amenity, ok := address["amenity"]; ok {
		return amenity
	}

	if _, ok := address["shop"]; ok {
		return "commercial"
	}

	if building, ok := address["building"]; ok {
		if residentialBuildings[building] {
			return "residence"
		}

		return "building"
	}

	if _, ok := address["highway"]; ok {
		return "road"
	}

	return "unknown"
}

// ExtractName picks the best display name from a raw response. The
// provider-supplied name wins unless it is empty or a bare house number;
// then point-of-interest address fields are tried, and finally the first
// comma-delimited segment of the formatted address.
func ExtractName(raw *RawPlace) string {
	name := raw.Name
	if name != "" && !isAllDigits(name) {
		return name
	}

	for _, field := range []string{"amenity", "shop", "building", "tourism"} {
		if v := raw.Address[field]; v != "" {
			return v
		}
	}

	segment, _, _ := strings.Cut(raw.DisplayName, ",")

	return segment
}

// ExtractCity picks the city from whichever of the city/town/village
// address fields is present, in that priority order.
func ExtractCity(address map[string]string) string {
	for _, field := range []string{"city", "town", "village"} {
		if v := address[field]; v != "" {
			return v
		}
	}

	return ""
}

// ParseRecord turns a raw provider response into an enrichment record.
func ParseRecord(raw *RawPlace) *Record {
	return &Record{
		Name:       ExtractName(raw),
		Address:    raw.DisplayName,
		City:       ExtractCity(raw.Address),
		State:      raw.Address["state"],
		Country:    raw.Address["country"],
		PostalCode: raw.Address["postcode"],
		PlaceType:  ClassifyPlaceType(raw.Address),
		RawData:    raw,
	}
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return s != ""
}
