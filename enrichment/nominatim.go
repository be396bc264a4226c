// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultNominatimURL = "https://nominatim.openstreetmap.org"
	nominatimUserAgent  = "myndy-location-intelligence/1.0"
)

// NominatimGeocoder uses the OpenStreetMap Nominatim reverse-geocoding API.
// Nominatim's usage policy requires an identifying User-Agent and at most
// one request per second; the per-request pacing is the Limiter's job.
type NominatimGeocoder struct {
	baseURL    string
	httpClient *http.Client
}

// NewNominatimGeocoder creates a geocoder against the public Nominatim
// endpoint.
func NewNominatimGeocoder() *NominatimGeocoder {
	return NewNominatimGeocoderURL(defaultNominatimURL)
}

// NewNominatimGeocoderURL creates a geocoder against a specific endpoint,
// for self-hosted instances and tests.
func NewNominatimGeocoderURL(baseURL string) *NominatimGeocoder {
	return &NominatimGeocoder{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (g *NominatimGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*RawPlace, error) {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	reqURL := g.baseURL + "/reverse?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &GeocodingError{
			Type:    ErrorTypeInvalidRequest,
			Message: "building reverse geocode request",
			Err:     err,
		}
	}

	req.Header.Set("User-Agent", nominatimUserAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &GeocodingError{
			Type:    ErrorTypeRateLimit,
			Message: "nominatim rate limit exceeded",
		}
	case resp.StatusCode != http.StatusOK:
		return nil, &GeocodingError{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("nominatim returned status %d", resp.StatusCode),
		}
	}

	var payload struct {
		Error string `json:"error"`
		RawPlace
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &GeocodingError{
			Type:    ErrorTypeUnknown,
			Message: "decoding nominatim response",
			Err:     err,
		}
	}

	// Nominatim reports "Unable to geocode" for coordinates with no match.
	// That is a valid empty result, not a failure.
	if payload.Error != "" {
		return nil, nil
	}

	if payload.DisplayName == "" && len(payload.Address) == 0 {
		return nil, nil
	}

	return &payload.RawPlace, nil
}

func classifyTransportError(err error) *GeocodingError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &GeocodingError{
			Type:    ErrorTypeTimeout,
			Message: "reverse geocode request timed out",
			Err:     err,
		}
	}

	return &GeocodingError{
		Type:    ErrorTypeNetwork,
		Message: "reverse geocode request failed",
		Err:     err,
	}
}
