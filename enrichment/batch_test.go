// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package enrichment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichBatchRespectsCallBudget(t *testing.T) {
	stub := &stubGeocoder{responses: []stubResponse{
		{raw: cafeResponse()},
		{raw: cafeResponse()},
	}}
	enricher := newTestEnricher(t, stub)

	targets := []Target{
		{ID: "a", Lat: 37.00, Lng: -122.00},
		{ID: "b", Lat: 38.00, Lng: -123.00},
		{ID: "c", Lat: 39.00, Lng: -124.00},
	}

	applied := map[string]*Record{}

	report, err := enricher.EnrichBatch(context.Background(), targets, BatchOptions{MaxCalls: 2},
		func(target Target, record *Record) error {
			applied[target.ID] = record

			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 2, report.Enriched)
	assert.Equal(t, 2, report.ProviderCalls)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 2, stub.calls)
	assert.Contains(t, applied, "a")
	assert.Contains(t, applied, "b")
	assert.NotContains(t, applied, "c")
}

func TestEnrichBatchServesCacheBeyondBudget(t *testing.T) {
	stub := &stubGeocoder{responses: []stubResponse{{raw: cafeResponse()}}}
	enricher := newTestEnricher(t, stub)

	// Pre-warm the cache for the second target.
	_, err := enricher.Enrich(context.Background(), 38.00, -123.00, false)
	require.NoError(t, err)
	require.Equal(t, 1, stub.calls)

	targets := []Target{
		{ID: "cold", Lat: 37.00, Lng: -122.00},
		{ID: "warm", Lat: 38.00, Lng: -123.00},
	}

	// Budget of zero: only the cached target resolves.
	report, err := enricher.EnrichBatch(context.Background(), targets, BatchOptions{MaxCalls: 0},
		func(Target, *Record) error { return nil })
	require.NoError(t, err)

	assert.Equal(t, 1, report.Enriched)
	assert.Equal(t, 1, report.CacheHits)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 0, report.ProviderCalls)
	assert.Equal(t, 1, stub.calls)
}

func TestEnrichBatchCountsFailuresAndNoData(t *testing.T) {
	stub := &stubGeocoder{responses: []stubResponse{
		{err: errors.New("connection reset")},
		{raw: nil}, // provider has no data
		{raw: cafeResponse()},
	}}
	enricher := newTestEnricher(t, stub)

	targets := []Target{
		{ID: "a", Lat: 37.00, Lng: -122.00},
		{ID: "b", Lat: 38.00, Lng: -123.00},
		{ID: "c", Lat: 39.00, Lng: -124.00},
	}

	report, err := enricher.EnrichBatch(context.Background(), targets, BatchOptions{MaxCalls: 10},
		func(Target, *Record) error { return nil })
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.NoData)
	assert.Equal(t, 1, report.Enriched)
	assert.Equal(t, 3, report.ProviderCalls)
}

func TestEnrichBatchApplyFailureDoesNotStopRun(t *testing.T) {
	stub := &stubGeocoder{responses: []stubResponse{
		{raw: cafeResponse()},
		{raw: cafeResponse()},
	}}
	enricher := newTestEnricher(t, stub)

	targets := []Target{
		{ID: "a", Lat: 37.00, Lng: -122.00},
		{ID: "b", Lat: 38.00, Lng: -123.00},
	}

	report, err := enricher.EnrichBatch(context.Background(), targets, BatchOptions{MaxCalls: 10},
		func(target Target, _ *Record) error {
			if target.ID == "a" {
				return errors.New("write failed")
			}

			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Enriched)
	assert.Equal(t, 2, report.ProviderCalls)
}

func TestEnrichBatchProgressCallback(t *testing.T) {
	stub := &stubGeocoder{responses: []stubResponse{{raw: cafeResponse()}}}
	enricher := newTestEnricher(t, stub)

	ticks := 0

	_, err := enricher.EnrichBatch(context.Background(),
		[]Target{{ID: "a", Lat: 37.00, Lng: -122.00}},
		BatchOptions{MaxCalls: 1, Progress: func() { ticks++ }},
		func(Target, *Record) error { return nil })
	require.NoError(t, err)

	assert.Equal(t, 1, ticks)
}

func TestEnrichBatchStopsOnCancelledContext(t *testing.T) {
	stub := &stubGeocoder{responses: []stubResponse{{raw: cafeResponse()}}}
	enricher := newTestEnricher(t, stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := enricher.EnrichBatch(ctx,
		[]Target{{ID: "a", Lat: 37.00, Lng: -122.00}},
		BatchOptions{MaxCalls: 1},
		func(Target, *Record) error { return nil })
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 0, report.Processed)
	assert.Equal(t, 0, stub.calls)
}
