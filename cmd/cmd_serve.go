// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/myndy/locintel/api"
	"github.com/myndy/locintel/enrichment"
	"github.com/myndy/locintel/warehouse"
)

var (
	serveAddr     string
	serveProvider string
	serveRadius   float64
)

func openWarehouse(path string) (*sql.DB, *warehouse.Repositories, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}

	repos, err := warehouse.NewRepositories(db)
	if err != nil {
		_ = db.Close()

		return nil, nil, err
	}

	return db, repos, nil
}

// buildGeocoder selects the reverse-geocoding provider.
func buildGeocoder(provider string) (enrichment.ReverseGeocoder, error) {
	switch provider {
	case "nominatim":
		fmt.Println("📍 Geocoding: Nominatim")

		return enrichment.NewNominatimGeocoder(), nil
	case "google":
		apiKey := os.Getenv("GOOGLE_MAPS_API_KEY")
		if apiKey == "" {
			log.Println("GOOGLE_MAPS_API_KEY is not set. Attempting to retrieve via ADC...")

			var err error

			apiKey, err = enrichment.ResolveGoogleAPIKey(context.Background())
			if err != nil {
				return nil, fmt.Errorf("retrieving Google Maps API key: %w", err)
			}

			log.Println("✅ Successfully retrieved Google Maps API Key via ADC")
		}

		fmt.Println("📍 Geocoding: Google Maps")

		return enrichment.NewGoogleGeocoder(apiKey), nil
	default:
		return nil, fmt.Errorf("unknown geocoding provider %q (want nominatim or google)", provider)
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the location intelligence API server",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		db, repos, err := openWarehouse(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		geocoder, err := buildGeocoder(serveProvider)
		if err != nil {
			return err
		}

		enricher := enrichment.NewEnricher(
			cachePath,
			serveRadius,
			geocoder,
			enrichment.NewLimiter(enrichment.DefaultMinInterval),
		)

		fmt.Printf("🌍 Serving on http://%s\n", serveAddr)

		return api.NewServer(repos, enricher, serveAddr).Run()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost:8000", "listen address")
	serveCmd.Flags().StringVar(&serveProvider, "provider", "nominatim", "reverse-geocoding provider (nominatim or google)")
	serveCmd.Flags().Float64Var(&serveRadius, "radius", enrichment.DefaultCacheRadius, "cache reuse radius in meters")

	rootCmd.AddCommand(serveCmd)
}
