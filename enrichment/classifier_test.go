// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package enrichment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyPlaceType(t *testing.T) {
	tests := []struct {
		name    string
		address map[string]string
		want    string
	}{
		{
			name:    "amenity is used verbatim",
			address: map[string]string{"amenity": "cafe"},
			want:    "cafe",
		},
		{
			name:    "amenity wins over everything else",
			address: map[string]string{"amenity": "restaurant", "shop": "bakery", "building": "house"},
			want:    "restaurant",
		},
		{
			name:    "empty amenity still wins on key presence",
			address: map[string]string{"amenity": "", "shop": "bakery"},
			want:    "",
		},
		{
			name:    "shop is commercial",
			address: map[string]string{"shop": "bakery"},
			want:    "commercial",
		},
		{
			name:    "apartments is a residence",
			address: map[string]string{"building": "apartments"},
			want:    "residence",
		},
		{
			name:    "house is a residence",
			address: map[string]string{"building": "house"},
			want:    "residence",
		},
		{
			name:    "other buildings stay generic",
			address: map[string]string{"building": "warehouse"},
			want:    "building",
		},
		{
			name:    "highway is a road",
			address: map[string]string{"highway": "residential"},
			want:    "road",
		},
		{
			name:    "empty components are unknown",
			address: map[string]string{},
			want:    "unknown",
		},
		{
			name:    "nil components are unknown",
			address: nil,
			want:    "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPlaceType(tt.address))
		})
	}
}

func TestExtractName(t *testing.T) {
	tests := []struct {
		name string
		raw  *RawPlace
		want string
	}{
		{
			name: "provider name wins",
			raw:  &RawPlace{Name: "Joe's Diner", DisplayName: "123, Main St, Springfield"},
			want: "Joe's Diner",
		},
		{
			name: "bare house number is not a usable name",
			raw: &RawPlace{
				Name:    "123",
				Address: map[string]string{"amenity": "Joe's Diner"},
			},
			want: "Joe's Diner",
		},
		{
			name: "empty name falls back to shop",
			raw: &RawPlace{
				Address:     map[string]string{"shop": "Corner Bakery"},
				DisplayName: "12 Baker St, Springfield",
			},
			want: "Corner Bakery",
		},
		{
			name: "amenity beats shop in the fallback chain",
			raw: &RawPlace{
				Address: map[string]string{"shop": "Corner Bakery", "amenity": "Central Cafe"},
			},
			want: "Central Cafe",
		},
		{
			name: "tourism is the last labeled fallback",
			raw: &RawPlace{
				Address:     map[string]string{"tourism": "Old Fort"},
				DisplayName: "Old Fort Road, Springfield",
			},
			want: "Old Fort",
		},
		{
			name: "final fallback is the first address segment",
			raw: &RawPlace{
				DisplayName: "42 Elm Street, Springfield, USA",
			},
			want: "42 Elm Street",
		},
		{
			name: "everything empty yields empty",
			raw:  &RawPlace{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractName(tt.raw))
		})
	}
}

func TestExtractCity(t *testing.T) {
	assert.Equal(t, "Springfield", ExtractCity(map[string]string{"city": "Springfield", "town": "Shelbyville"}))
	assert.Equal(t, "Shelbyville", ExtractCity(map[string]string{"town": "Shelbyville", "village": "North Haverbrook"}))
	assert.Equal(t, "North Haverbrook", ExtractCity(map[string]string{"village": "North Haverbrook"}))
	assert.Equal(t, "", ExtractCity(nil))
}

func TestParseRecord(t *testing.T) {
	raw := &RawPlace{
		Name:        "Central Cafe",
		DisplayName: "Central Cafe, 42 Elm Street, Springfield, USA",
		Address: map[string]string{
			"amenity":  "cafe",
			"city":     "Springfield",
			"state":    "Illinois",
			"country":  "USA",
			"postcode": "62704",
		},
	}

	record := ParseRecord(raw)

	assert.Equal(t, "Central Cafe", record.Name)
	assert.Equal(t, "Central Cafe, 42 Elm Street, Springfield, USA", record.Address)
	assert.Equal(t, "Springfield", record.City)
	assert.Equal(t, "Illinois", record.State)
	assert.Equal(t, "USA", record.Country)
	assert.Equal(t, "62704", record.PostalCode)
	assert.Equal(t, "cafe", record.PlaceType)
	assert.Same(t, raw, record.RawData)
}

func TestParseRecordAlwaysHasPlaceType(t *testing.T) {
	record := ParseRecord(&RawPlace{DisplayName: "Somewhere, Nowhere"})
	assert.Equal(t, "unknown", record.PlaceType)
}
