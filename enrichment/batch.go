// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package enrichment

import (
	"context"
	"log"
)

// Target is one catalog entry to enrich.
type Target struct {
	ID  string
	Lat float64
	Lng float64
}

// BatchOptions controls one enrichment run.
type BatchOptions struct {
	// MaxCalls is the external provider call budget. Zero means the run is
	// served from cache only.
	MaxCalls int

	// Force bypasses the cache, so every target costs a provider call.
	Force bool

	// Progress, when set, is called after each target.
	Progress func()
}

// BatchReport summarizes one enrichment run.
type BatchReport struct {
	Processed     int `json:"processed"`
	Enriched      int `json:"enriched"`
	CacheHits     int `json:"cache_hits"`
	ProviderCalls int `json:"provider_calls"`
	NoData        int `json:"no_data"`
	Failed        int `json:"failed"`
	Skipped       int `json:"skipped"`
}

// EnrichBatch resolves each target in order, spending at most opts.MaxCalls
// external calls. Targets beyond the budget are still served when the cache
// can answer them. Each resolved record is handed to apply; an apply failure
// is counted and does not stop the run.
func (e *Enricher) EnrichBatch(ctx context.Context, targets []Target, opts BatchOptions, apply func(Target, *Record) error) (*BatchReport, error) {
	report := &BatchReport{}

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		allowProvider := report.ProviderCalls < opts.MaxCalls

		record, src, err := e.resolve(ctx, target.Lat, target.Lng, opts.Force, allowProvider)

		report.Processed++

		switch {
		case src == srcProvider:
			report.ProviderCalls++
		case src == srcExact || src == srcNearby:
			report.CacheHits++
		}

		if opts.Progress != nil {
			opts.Progress()
		}

		switch {
		case err != nil:
			report.Failed++

			continue
		case src == srcSkipped:
			report.Skipped++

			continue
		case record == nil:
			report.NoData++

			continue
		}

		if err := apply(target, record); err != nil {
			report.Failed++

			log.Printf("applying enrichment for %s failed: %v", target.ID, err)

			continue
		}

		report.Enriched++
	}

	return report, nil
}
