// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package enrichment

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/myndy/locintel/spatial"
)

// CacheKey quantizes a coordinate into a cache key by rounding latitude and
// longitude to 4 decimal places (~11m grid cells). Coordinates that differ
// only beyond the 4th decimal collide on purpose: that is the deduplication
// granularity of the cache.
func CacheKey(lat, lng float64) string {
	return fmt.Sprintf("%.4f,%.4f", lat, lng)
}

// ParseCacheKey decodes a cache key back into its grid-cell coordinate.
func ParseCacheKey(key string) (spatial.Point, error) {
	rawLat, rawLng, ok := strings.Cut(key, ",")
	if !ok {
		return spatial.Point{}, fmt.Errorf("malformed cache key %q", key)
	}

	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("malformed cache key %q: %w", key, err)
	}

	lng, err := strconv.ParseFloat(rawLng, 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("malformed cache key %q: %w", key, err)
	}

	return spatial.Point{Lat: lat, Lng: lng}, nil
}
