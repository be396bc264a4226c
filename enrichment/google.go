// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	apikeys "cloud.google.com/go/apikeys/apiv2"
	"cloud.google.com/go/apikeys/apiv2/apikeyspb"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
)

// GoogleGeocoder uses the Google Maps Geocoding API in reverse mode. It is
// the paid alternative to Nominatim for deployments that already have a
// Maps key provisioned.
type GoogleGeocoder struct {
	apiKey     string
	httpClient *http.Client
}

// NewGoogleGeocoder creates a Google Maps reverse geocoder.
func NewGoogleGeocoder(apiKey string) *GoogleGeocoder {
	return &GoogleGeocoder{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type googleReverseResponse struct {
	Results []struct {
		AddressComponents []struct {
			LongName string   `json:"long_name"`
			Types    []string `json:"types"`
		} `json:"address_components"`
		FormattedAddress string   `json:"formatted_address"`
		Types            []string `json:"types"`
	} `json:"results"`
	Status string `json:"status"` // OK, ZERO_RESULTS, OVER_QUERY_LIMIT, etc.
}

// googleComponentMap translates Google address component types into the
// free-form address keys the parser and classifier operate on.
var googleComponentMap = map[string]string{
	"street_number":               "house_number",
	"route":                       "road",
	"neighborhood":                "suburb",
	"locality":                    "city",
	"administrative_area_level_1": "state",
	"country":                     "country",
	"postal_code":                 "postcode",
	"premise":                     "building",
	"establishment":               "amenity",
	"point_of_interest":           "tourism",
}

func (g *GoogleGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) (*RawPlace, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", lat, lng))
	params.Set("key", g.apiKey)

	reqURL := "https://maps.googleapis.com/maps/api/geocode/json?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &GeocodingError{
			Type:    ErrorTypeInvalidRequest,
			Message: "building reverse geocode request",
			Err:     err,
		}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &GeocodingError{
			Type:    ErrorTypeNetwork,
			Message: fmt.Sprintf("google maps returned status %d", resp.StatusCode),
		}
	}

	var gmResp googleReverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, &GeocodingError{
			Type:    ErrorTypeUnknown,
			Message: "decoding google maps response",
			Err:     err,
		}
	}

	switch gmResp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	case "OVER_QUERY_LIMIT":
		return nil, &GeocodingError{
			Type:    ErrorTypeQuotaExceeded,
			Message: "google maps quota exceeded",
		}
	default:
		return nil, &GeocodingError{
			Type:    ErrorTypeUnknown,
			Message: "google maps status: " + gmResp.Status,
		}
	}

	if len(gmResp.Results) == 0 {
		return nil, nil
	}

	result := gmResp.Results[0]

	address := make(map[string]string)

	for _, component := range result.AddressComponents {
		for _, componentType := range component.Types {
			if key, ok := googleComponentMap[componentType]; ok && address[key] == "" {
				address[key] = component.LongName
			}
		}
	}

	return &RawPlace{
		DisplayName: result.FormattedAddress,
		Address:     address,
	}, nil
}

// ResolveGoogleAPIKey finds the Maps API key via Application Default
// Credentials when it is not provided through the environment. It lists the
// project's API keys and retrieves the secret of the one provisioned for
// geocoding.
func ResolveGoogleAPIKey(ctx context.Context) (string, error) {
	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return "", fmt.Errorf("finding default credentials: %w", err)
	}

	projectID := creds.ProjectID
	if projectID == "" {
		return "", errors.New("no project ID in default credentials")
	}

	client, err := apikeys.NewClient(ctx)
	if err != nil {
		return "", fmt.Errorf("creating apikeys client: %w", err)
	}
	defer client.Close()

	const targetDisplayName = "Myndy Geocoding Key"

	req := &apikeyspb.ListKeysRequest{
		Parent: fmt.Sprintf("projects/%s/locations/global", projectID),
	}

	it := client.ListKeys(ctx, req)

	for {
		key, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}

		if err != nil {
			return "", fmt.Errorf("listing keys: %w", err)
		}

		if key.DisplayName != targetDisplayName {
			continue
		}

		// ListKeys redacts the KeyString; GetKeyString returns the secret.
		resp, err := client.GetKeyString(ctx, &apikeyspb.GetKeyStringRequest{Name: key.Name})
		if err != nil {
			return "", fmt.Errorf("getting key string: %w", err)
		}

		if resp.KeyString == "" {
			return "", fmt.Errorf("key %q found but its secret is empty", targetDisplayName)
		}

		return resp.KeyString, nil
	}

	return "", fmt.Errorf("key with display name %q not found in project %s", targetDisplayName, projectID)
}
