// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes prometheus counters for the enrichment pipeline
// and the API server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EnrichCacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locintel_enrich_cache_hits_total",
		Help: "Enrichment cache hits by kind (exact or nearby)",
	}, []string{"kind"})
	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locintel_geocode_requests_total",
		Help: "Total reverse-geocoding calls issued to the external provider",
	})
	GeocodeFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locintel_geocode_failures_total",
		Help: "Total reverse-geocoding calls that failed (timeout, transport)",
	})
	GeocodeEmptyTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locintel_geocode_empty_total",
		Help: "Total reverse-geocoding calls that returned no result",
	})
	CacheSaveFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "locintel_cache_save_failures_total",
		Help: "Total failed enrichment cache writes (non-fatal, result still served)",
	})
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "locintel_api_requests_total",
		Help: "Total API requests by route group",
	}, []string{"group"})
)

func init() {
	prometheus.MustRegister(EnrichCacheHitsTotal)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeFailuresTotal)
	prometheus.MustRegister(GeocodeEmptyTotal)
	prometheus.MustRegister(CacheSaveFailuresTotal)
	prometheus.MustRegister(RequestsTotal)
}

// Handler returns the HTTP handler serving the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
