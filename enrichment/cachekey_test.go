// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package enrichment

import "testing"

func TestCacheKey(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		want     string
	}{
		{"exact grid point", 37.0000, -122.0000, "37.0000,-122.0000"},
		{"rounds to nearest cell", 37.00006, -122.00005, "37.0001,-122.0001"},
		{"negative coordinates", -34.88224, -56.15296, "-34.8822,-56.1530"},
		{"zero", 0, 0, "0.0000,0.0000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CacheKey(tt.lat, tt.lng); got != tt.want {
				t.Errorf("CacheKey(%f, %f) = %q, want %q", tt.lat, tt.lng, got, tt.want)
			}
		})
	}
}

func TestCacheKeyCollision(t *testing.T) {
	// Coordinates differing only beyond the 4th decimal land in the same
	// ~11m grid cell.
	a := CacheKey(37.123411, -122.987654)
	b := CacheKey(37.123419, -122.987651)

	if a != b {
		t.Errorf("expected collision, got %q and %q", a, b)
	}
}

func TestParseCacheKey(t *testing.T) {
	cell, err := ParseCacheKey("37.0003,-122.0000")
	if err != nil {
		t.Fatalf("ParseCacheKey() error = %v", err)
	}

	if cell.Lat != 37.0003 || cell.Lng != -122.0 {
		t.Errorf("ParseCacheKey() = %+v", cell)
	}

	for _, malformed := range []string{"", "37.0", "a,b", "37.0;-122.0", "37.0,-x"} {
		if _, err := ParseCacheKey(malformed); err == nil {
			t.Errorf("ParseCacheKey(%q) should fail", malformed)
		}
	}
}

func TestCacheKeyRoundTrip(t *testing.T) {
	// A key quantizes to itself: parsing and re-quantizing is stable.
	key := CacheKey(37.00034, -121.99996)

	cell, err := ParseCacheKey(key)
	if err != nil {
		t.Fatalf("ParseCacheKey() error = %v", err)
	}

	if again := CacheKey(cell.Lat, cell.Lng); again != key {
		t.Errorf("round trip changed key: %q -> %q", key, again)
	}
}
