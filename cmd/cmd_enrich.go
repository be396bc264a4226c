// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/myndy/locintel/api"
	"github.com/myndy/locintel/enrichment"
)

var (
	enrichMaxCalls  int
	enrichMinVisits int
	enrichForce     bool
	enrichRadius    float64
	enrichProvider  string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Resolve names and addresses for unnamed places",
	Long: `
enrich walks the places that still carry a coordinate-derived name, most
visited first, and resolves them through the reverse-geocoding cache. Only
cache misses spend external provider calls, capped by --max-calls.
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, repos, err := openWarehouse(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		geocoder, err := buildGeocoder(enrichProvider)
		if err != nil {
			return err
		}

		enricher := enrichment.NewEnricher(
			cachePath,
			enrichRadius,
			geocoder,
			enrichment.NewLimiter(enrichment.DefaultMinInterval),
		)

		pending, err := repos.Places.NeedingEnrichment(enrichMinVisits, enrichForce)
		if err != nil {
			return err
		}

		fmt.Printf("🔍 %d places need enrichment (min visits %d)\n", len(pending), enrichMinVisits)

		if len(pending) == 0 {
			return nil
		}

		opts := enrichment.BatchOptions{
			MaxCalls: enrichMaxCalls,
			Force:    enrichForce,
		}

		if isatty.IsTerminal(os.Stderr.Fd()) {
			bar := progressbar.NewOptions(len(pending),
				progressbar.OptionSetDescription("Enriching places"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
			opts.Progress = func() { _ = bar.Add(1) }
		}

		report, err := api.EnrichPlaces(cmd.Context(), repos.Places, enricher, opts, enrichMinVisits)
		if err != nil {
			return err
		}

		fmt.Println("📊 Enrichment summary:")
		fmt.Printf("   processed:      %d\n", report.Processed)
		fmt.Printf("   enriched:       %d (%d from cache)\n", report.Enriched, report.CacheHits)
		fmt.Printf("   provider calls: %d of %d allowed\n", report.ProviderCalls, enrichMaxCalls)
		fmt.Printf("   no data:        %d\n", report.NoData)
		fmt.Printf("   failures:       %d\n", report.Failed)

		if report.Skipped > 0 {
			fmt.Printf("⏭️  %d places deferred to the next run (call budget reached)\n", report.Skipped)
		}

		fmt.Printf("💾 Cache now holds %d entries\n", enricher.Cache().Len())

		return nil
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichMaxCalls, "max-calls", 10, "external provider call budget for this run")
	enrichCmd.Flags().IntVar(&enrichMinVisits, "min-visits", 1, "only enrich places visited at least this often")
	enrichCmd.Flags().BoolVar(&enrichForce, "force", false, "re-enrich places that already have a name, bypassing the cache")
	enrichCmd.Flags().Float64Var(&enrichRadius, "radius", enrichment.DefaultCacheRadius, "cache reuse radius in meters")
	enrichCmd.Flags().StringVar(&enrichProvider, "provider", "nominatim", "reverse-geocoding provider (nominatim or google)")

	rootCmd.AddCommand(enrichCmd)
}
