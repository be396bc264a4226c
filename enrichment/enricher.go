// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package enrichment

import (
	"context"
	"log"
	"sync"

	"github.com/myndy/locintel/metrics"
)

// DefaultCacheRadius is the distance in meters within which two coordinates
// are considered the same location for cache reuse.
const DefaultCacheRadius = 50.0

// Enricher turns raw coordinates into place metadata while minimizing calls
// to the external geocoding provider. Lookup order: exact cache key, then
// any cached entry within the reuse radius, then a rate-limited external
// call whose result is parsed, classified and persisted.
type Enricher struct {
	mu       sync.Mutex
	cache    *Cache
	geocoder ReverseGeocoder
	limiter  *Limiter
	radius   float64
}

// NewEnricher creates an enricher over the cache file at cachePath.
// The limiter is injected so callers sharing a provider share its pacing.
func NewEnricher(cachePath string, radiusMeters float64, geocoder ReverseGeocoder, limiter *Limiter) *Enricher {
	cache := NewCache(cachePath)
	log.Printf("enrichment cache at %s contains %d entries", cachePath, cache.Len())

	return &Enricher{
		cache:    cache,
		geocoder: geocoder,
		limiter:  limiter,
		radius:   radiusMeters,
	}
}

// Cache exposes the backing cache for reclassification passes and reporting.
func (e *Enricher) Cache() *Cache {
	return e.cache
}

// Cached reports whether an exact cache entry exists for the coordinate.
func (e *Enricher) Cached(lat, lng float64) bool {
	return e.cache.Get(CacheKey(lat, lng)) != nil
}

// enrichSource tells where a resolved record came from.
type enrichSource int

const (
	srcExact enrichSource = iota
	srcNearby
	srcProvider

	// srcSkipped means no cache entry existed and provider calls were not
	// allowed, so the coordinate stays unresolved.
	srcSkipped
)

// Enrich resolves a coordinate to an enrichment record.
//
// A nil record with a nil error means the provider has no data for the
// coordinate; the caller decides whether to retry on a later run. A non-nil
// error is a provider failure (timeout, transport); failures are never
// cached, so a transient outage cannot poison the cache.
func (e *Enricher) Enrich(ctx context.Context, lat, lng float64, force bool) (*Record, error) {
	record, _, err := e.resolve(ctx, lat, lng, force, true)

	return record, err
}

func (e *Enricher) resolve(ctx context.Context, lat, lng float64, force, allowProvider bool) (*Record, enrichSource, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := CacheKey(lat, lng)

	if !force {
		if record := e.cache.Get(key); record != nil {
			metrics.EnrichCacheHitsTotal.WithLabelValues("exact").Inc()

			return record, srcExact, nil
		}

		if record := e.cache.FindNearby(lat, lng, e.radius); record != nil {
			metrics.EnrichCacheHitsTotal.WithLabelValues("nearby").Inc()

			// Densify: store the nearby record under this cell's own key so
			// future lookups for it hit exactly.
			e.cache.Put(key, record)
			e.persist()

			return record, srcNearby, nil
		}
	}

	if !allowProvider {
		return nil, srcSkipped, nil
	}

	var raw *RawPlace

	err := e.limiter.Do(ctx, func() error {
		log.Printf("reverse geocoding %.6f, %.6f", lat, lng)
		metrics.GeocodeRequestsTotal.Inc()

		var callErr error
		raw, callErr = e.geocoder.ReverseGeocode(ctx, lat, lng)

		return callErr
	})
	if err != nil {
		metrics.GeocodeFailuresTotal.Inc()
		log.Printf("reverse geocoding failed for %f, %f: %v", lat, lng, err)

		return nil, srcProvider, err
	}

	if raw == nil {
		metrics.GeocodeEmptyTotal.Inc()
		log.Printf("no reverse geocoding result for %f, %f", lat, lng)

		return nil, srcProvider, nil
	}

	record := ParseRecord(raw)
	e.cache.Put(key, record)
	e.persist()

	log.Printf("enriched %s as %s", key, record.Label())

	return record, srcProvider, nil
}

// persist writes the cache through to disk. A failed write is logged and
// counted but never fails the enrichment: the in-memory result is still
// correct, a lost cache entry only costs a future external call.
func (e *Enricher) persist() {
	if err := e.cache.Save(); err != nil {
		log.Printf("failed to save enrichment cache: %v", err)
	}
}
