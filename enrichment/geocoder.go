// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package enrichment

import "context"

// ReverseGeocoder resolves a coordinate into a raw provider response.
//
// Implementations return (nil, nil) when the provider has no match for the
// coordinate: that is a valid terminal outcome, not an error. Transport and
// timeout failures are returned as *GeocodingError.
type ReverseGeocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (*RawPlace, error)
}
