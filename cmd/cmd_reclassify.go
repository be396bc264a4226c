// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/myndy/locintel/enrichment"
)

var reclassifySkipPlaces bool

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Re-run the place type classifier over cached geocoding results",
	Long: `
reclassify recomputes place types from the raw provider responses retained in
the enrichment cache and propagates the improved types to the places table.
No external calls are made: this is how classifier improvements reach places
that were enriched under older rules.
`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cache := enrichment.NewCache(cachePath)

		fmt.Printf("🔍 %d cached enrichments loaded\n", cache.Len())

		changed := 0

		for key, record := range cache.Entries() {
			if record.RawData == nil {
				continue
			}

			placeType := enrichment.ClassifyPlaceType(record.RawData.Address)
			if placeType == record.PlaceType {
				continue
			}

			record.PlaceType = placeType
			cache.Put(key, record)

			changed++
		}

		if changed > 0 {
			if err := cache.Save(); err != nil {
				return fmt.Errorf("saving cache: %w", err)
			}
		}

		fmt.Printf("♻️  %d cache entries reclassified\n", changed)

		if reclassifySkipPlaces {
			return nil
		}

		db, repos, err := openWarehouse(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		count, err := repos.Places.Count()
		if err != nil {
			return err
		}

		places, err := repos.Places.List("", count, 0)
		if err != nil {
			return err
		}

		updated := 0

		for _, place := range places {
			record := cache.Get(enrichment.CacheKey(place.Latitude, place.Longitude))
			if record == nil || record.PlaceType == "" || record.PlaceType == place.PlaceType {
				continue
			}

			if err := repos.Places.UpdatePlaceType(place.ID, record.PlaceType); err != nil {
				return fmt.Errorf("updating %s: %w", place.ID, err)
			}

			updated++
		}

		fmt.Printf("✅ %d of %d places updated\n", updated, len(places))

		return nil
	},
}

func init() {
	reclassifyCmd.Flags().BoolVar(&reclassifySkipPlaces, "cache-only", false, "rewrite the cache without touching the places table")

	rootCmd.AddCommand(reclassifyCmd)
}
