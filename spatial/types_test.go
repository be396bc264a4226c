// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"math"
	"testing"
)

func TestHaversineDistance(t *testing.T) {
	tests := []struct {
		name       string
		a, b       Point
		wantMeters float64
		tolerance  float64
	}{
		{
			name:       "same point",
			a:          Point{Lat: 37.0, Lng: -122.0},
			b:          Point{Lat: 37.0, Lng: -122.0},
			wantMeters: 0,
			tolerance:  0.001,
		},
		{
			name: "one degree of latitude",
			a:    Point{Lat: 0, Lng: 0},
			b:    Point{Lat: 1, Lng: 0},
			// One degree of latitude is ~111.19 km on a spherical Earth.
			wantMeters: 111195,
			tolerance:  100,
		},
		{
			name:       "three ten-thousandths of a degree of latitude",
			a:          Point{Lat: 37.0000, Lng: -122.0000},
			b:          Point{Lat: 37.0003, Lng: -122.0000},
			wantMeters: 33.4,
			tolerance:  0.5,
		},
		{
			name:       "across the antimeridian",
			a:          Point{Lat: 0, Lng: 179.9995},
			b:          Point{Lat: 0, Lng: -179.9995},
			wantMeters: 111.2,
			tolerance:  0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.HaversineDistance(&tt.b)
			if math.Abs(got-tt.wantMeters) > tt.tolerance {
				t.Errorf("HaversineDistance() = %f, want %f ± %f", got, tt.wantMeters, tt.tolerance)
			}

			// Distance is symmetric.
			rev := tt.b.HaversineDistance(&tt.a)
			if math.Abs(got-rev) > 1e-9 {
				t.Errorf("distance not symmetric: %f vs %f", got, rev)
			}
		})
	}
}
