// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

// Package api exposes the location warehouse and the enrichment pipeline
// over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/myndy/locintel/enrichment"
	"github.com/myndy/locintel/metrics"
	"github.com/myndy/locintel/warehouse"
)

// Server serves the REST API over the warehouse repositories. The enricher
// is optional; without one the enrichment endpoint reports unavailable.
type Server struct {
	repos    *warehouse.Repositories
	enricher *enrichment.Enricher
	addr     string
}

func NewServer(repos *warehouse.Repositories, enricher *enrichment.Enricher, addr string) *Server {
	return &Server{
		repos:    repos,
		enricher: enricher,
		addr:     addr,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(countRequests())

	v1 := r.Group("/api/v1")

	v1.GET("/health", s.health)
	v1.GET("/status", s.status)

	v1.GET("/places", s.listPlaces)
	v1.GET("/places/search", s.searchPlaces)
	v1.GET("/places/nearby", s.nearbyPlaces)
	v1.GET("/places/:id", s.getPlace)

	v1.GET("/visits", s.listVisits)
	v1.POST("/visits", s.createVisit)
	v1.GET("/visits/current", s.currentVisit)
	v1.GET("/visits/:id", s.getVisit)
	v1.PATCH("/visits/:id/end", s.endVisit)
	v1.GET("/visits/place/:place_id", s.visitsForPlace)

	v1.GET("/movements", s.listMovements)
	v1.POST("/movements", s.createMovement)
	v1.GET("/movements/:id", s.getMovement)

	v1.GET("/checkins", s.listCheckins)
	v1.POST("/checkins", s.createCheckin)

	v1.GET("/location-data/points", s.listPoints)
	v1.POST("/location-data/ingest", s.ingestPoints)
	v1.DELETE("/location-data/cleanup", s.cleanupPoints)

	v1.POST("/analysis/enrich", s.enrichPlaces)
	v1.POST("/analysis/process", s.processAnalysis)
	v1.GET("/analysis/timeline", s.analysisTimeline)
	v1.GET("/analysis/patterns", s.analysisPatterns)
	v1.GET("/analysis/stats", s.analysisStats)

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	return r
}

func (s *Server) Run() error {
	return s.Router().Run(s.addr)
}

// countRequests feeds the per-endpoint-group request counter.
func countRequests() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		group := strings.TrimPrefix(ctx.FullPath(), "/api/v1/")
		if i := strings.IndexByte(group, '/'); i > 0 {
			group = group[:i]
		}

		if group == "" {
			group = "other"
		}

		metrics.RequestsTotal.WithLabelValues(group).Inc()
		ctx.Next()
	}
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) status(ctx *gin.Context) {
	stats, err := s.repos.Stats()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	resp := gin.H{"database": stats}

	if s.enricher != nil {
		resp["enrichment_cache_entries"] = s.enricher.Cache().Len()
	}

	ctx.JSON(http.StatusOK, resp)
}

// intQuery parses an integer query parameter with a default and a cap.
func intQuery(ctx *gin.Context, name string, def, max int) (int, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New("invalid " + name + " parameter")
	}

	if max > 0 && v > max {
		v = max
	}

	return v, nil
}

func floatQuery(ctx *gin.Context, name string) (float64, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return 0, errors.New(name + " query parameter is required")
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New("invalid " + name + " parameter")
	}

	return v, nil
}

// timeQuery parses an optional RFC 3339 query parameter.
func timeQuery(ctx *gin.Context, name string) (*time.Time, error) {
	raw := ctx.Query(name)
	if raw == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.New("invalid " + name + " parameter, expected RFC 3339")
	}

	return &t, nil
}

func pagination(ctx *gin.Context, defLimit, maxLimit int) (limit, offset int, err error) {
	if limit, err = intQuery(ctx, "limit", defLimit, maxLimit); err != nil {
		return 0, 0, err
	}

	if offset, err = intQuery(ctx, "offset", 0, 0); err != nil {
		return 0, 0, err
	}

	return limit, offset, nil
}

func (s *Server) listPlaces(ctx *gin.Context) {
	limit, offset, err := pagination(ctx, 50, 500)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	places, err := s.repos.Places.List(ctx.Query("type"), limit, offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"places": places, "count": len(places)})
}

func (s *Server) searchPlaces(ctx *gin.Context) {
	query := ctx.Query("q")
	if query == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "q query parameter is required"})

		return
	}

	limit, _, err := pagination(ctx, 20, 100)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	places, err := s.repos.Places.Search(query, limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"places": places, "count": len(places)})
}

func (s *Server) nearbyPlaces(ctx *gin.Context) {
	lat, err := floatQuery(ctx, "lat")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	lng, err := floatQuery(ctx, "lng")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "coordinate out of range"})

		return
	}

	radius := 500.0

	if raw := ctx.Query("radius"); raw != "" {
		if radius, err = strconv.ParseFloat(raw, 64); err != nil || radius <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius parameter"})

			return
		}
	}

	limit, _, err := pagination(ctx, 20, 100)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	places, err := s.repos.Places.Nearby(lat, lng, radius, limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"places": places, "count": len(places)})
}

func (s *Server) getPlace(ctx *gin.Context) {
	place, err := s.repos.Places.Get(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if place == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "place not found"})

		return
	}

	ctx.JSON(http.StatusOK, place)
}

func (s *Server) listVisits(ctx *gin.Context) {
	start, err := timeQuery(ctx, "start")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	end, err := timeQuery(ctx, "end")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	limit, offset, err := pagination(ctx, 50, 500)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	visits, err := s.repos.Visits.List(start, end, ctx.Query("place_id"), limit, offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"visits": visits, "count": len(visits)})
}

func (s *Server) createVisit(ctx *gin.Context) {
	var visit warehouse.Visit

	if err := ctx.ShouldBindJSON(&visit); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if visit.PlaceID == "" || visit.ArrivalTime.IsZero() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "place_id and arrival_time are required"})

		return
	}

	if err := s.repos.Visits.Create(&visit); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if err := s.repos.Places.RecordVisit(visit.PlaceID, visit.ArrivalTime); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusCreated, visit)
}

func (s *Server) currentVisit(ctx *gin.Context) {
	visit, err := s.repos.Visits.Current()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if visit == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no ongoing visit"})

		return
	}

	ctx.JSON(http.StatusOK, visit)
}

func (s *Server) getVisit(ctx *gin.Context) {
	visit, err := s.repos.Visits.Get(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if visit == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "visit not found"})

		return
	}

	ctx.JSON(http.StatusOK, visit)
}

func (s *Server) endVisit(ctx *gin.Context) {
	var body struct {
		DepartureTime *time.Time `json:"departure_time"`
	}

	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

			return
		}
	}

	departure := time.Now()
	if body.DepartureTime != nil {
		departure = *body.DepartureTime
	}

	visit, err := s.repos.Visits.End(ctx.Param("id"), departure)
	if errors.Is(err, warehouse.ErrVisitEnded) {
		ctx.JSON(http.StatusConflict, gin.H{"error": "visit already ended"})

		return
	}

	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if visit == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "visit not found"})

		return
	}

	ctx.JSON(http.StatusOK, visit)
}

func (s *Server) visitsForPlace(ctx *gin.Context) {
	limit, _, err := pagination(ctx, 50, 500)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	visits, err := s.repos.Visits.ForPlace(ctx.Param("place_id"), limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"visits": visits, "count": len(visits)})
}

func (s *Server) listMovements(ctx *gin.Context) {
	start, err := timeQuery(ctx, "start")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	end, err := timeQuery(ctx, "end")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	limit, offset, err := pagination(ctx, 50, 500)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	movements, err := s.repos.Movements.List(start, end, limit, offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"movements": movements, "count": len(movements)})
}

func (s *Server) createMovement(ctx *gin.Context) {
	var movement warehouse.Movement

	if err := ctx.ShouldBindJSON(&movement); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if movement.StartTime.IsZero() || movement.EndTime.IsZero() {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "start_time and end_time are required"})

		return
	}

	if movement.EndTime.Before(movement.StartTime) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "end_time precedes start_time"})

		return
	}

	if err := s.repos.Movements.Create(&movement); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusCreated, movement)
}

func (s *Server) getMovement(ctx *gin.Context) {
	movement, err := s.repos.Movements.Get(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	if movement == nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "movement not found"})

		return
	}

	ctx.JSON(http.StatusOK, movement)
}

func (s *Server) listCheckins(ctx *gin.Context) {
	limit, offset, err := pagination(ctx, 50, 500)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	checkins, err := s.repos.Checkins.List(limit, offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"checkins": checkins, "count": len(checkins)})
}

func (s *Server) createCheckin(ctx *gin.Context) {
	var checkin warehouse.Checkin

	if err := ctx.ShouldBindJSON(&checkin); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if checkin.PlaceName == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "place_name is required"})

		return
	}

	if err := s.repos.Checkins.Create(&checkin); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusCreated, checkin)
}

func (s *Server) listPoints(ctx *gin.Context) {
	start, err := timeQuery(ctx, "start")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	end, err := timeQuery(ctx, "end")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	limit, offset, err := pagination(ctx, 1000, 10000)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	points, err := s.repos.Locations.List(start, end, limit, offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"points": points, "count": len(points)})
}

func (s *Server) ingestPoints(ctx *gin.Context) {
	var body struct {
		Points []*warehouse.LocationPoint `json:"points"`
	}

	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	if len(body.Points) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "points array is required"})

		return
	}

	for _, point := range body.Points {
		if point.Timestamp.IsZero() {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "every point needs a timestamp"})

			return
		}
	}

	if err := s.repos.Locations.BulkInsert(body.Points); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"ingested": len(body.Points)})
}

func (s *Server) cleanupPoints(ctx *gin.Context) {
	days, err := intQuery(ctx, "days", 0, 0)
	if err != nil || days <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "days query parameter is required and must be positive"})

		return
	}

	cutoff := time.Now().AddDate(0, 0, -days)

	deleted, err := s.repos.Locations.DeleteOlderThan(cutoff)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"deleted": deleted,
		"cutoff":  cutoff.UTC().Format(time.RFC3339),
	})
}

func (s *Server) enrichPlaces(ctx *gin.Context) {
	if s.enricher == nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "enrichment is not configured"})

		return
	}

	body := struct {
		MaxCalls  int  `json:"max_calls"`
		MinVisits int  `json:"min_visits"`
		Force     bool `json:"force"`
	}{MaxCalls: 10, MinVisits: 1}

	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

			return
		}
	}

	report, err := EnrichPlaces(ctx.Request.Context(), s.repos.Places, s.enricher, enrichment.BatchOptions{
		MaxCalls: body.MaxCalls,
		Force:    body.Force,
	}, body.MinVisits)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, report)
}

// processAnalysis is the visit-detection pipeline trigger. Clustering is not
// implemented; the endpoint exists so clients have a stable surface.
func (s *Server) processAnalysis(ctx *gin.Context) {
	ctx.JSON(http.StatusNotImplemented, gin.H{"error": "analysis processing is not implemented"})
}

// analysisTimeline will merge visits, movements and check-ins into one
// chronological view once the processing pipeline lands. Until then it
// validates its input and returns an empty timeline.
func (s *Server) analysisTimeline(ctx *gin.Context) {
	raw := ctx.Query("date")
	if raw == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "date query parameter is required"})

		return
	}

	if _, err := time.Parse("2006-01-02", raw); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid date parameter, expected YYYY-MM-DD"})

		return
	}

	ctx.JSON(http.StatusOK, []gin.H{})
}

// analysisPatterns is the routine-detection surface of the processing
// pipeline. Detection is not implemented; the response reports no patterns.
func (s *Server) analysisPatterns(ctx *gin.Context) {
	daysBack, err := intQuery(ctx, "days_back", 30, 0)
	if err != nil || daysBack < 1 || daysBack > 365 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "days_back must be between 1 and 365"})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":  false,
		"message":  "pattern detection is not implemented",
		"patterns": []gin.H{},
	})
}

// analysisStats is the aggregate-statistics surface of the processing
// pipeline. The aggregation is not implemented; every figure reports zero.
// Live table counts are served by the status endpoint.
func (s *Server) analysisStats(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"total_places":        0,
		"total_visits":        0,
		"total_movements":     0,
		"total_distance_km":   0,
		"most_visited_places": []gin.H{},
	})
}

// EnrichPlaces runs the enricher over every place that still needs a proper
// name and writes the results back to the catalog.
func EnrichPlaces(ctx context.Context, places warehouse.PlaceRepository, enricher *enrichment.Enricher, opts enrichment.BatchOptions, minVisits int) (*enrichment.BatchReport, error) {
	pending, err := places.NeedingEnrichment(minVisits, opts.Force)
	if err != nil {
		return nil, err
	}

	targets := make([]enrichment.Target, len(pending))
	for i, place := range pending {
		targets[i] = enrichment.Target{ID: place.ID, Lat: place.Latitude, Lng: place.Longitude}
	}

	return enricher.EnrichBatch(ctx, targets, opts, func(target enrichment.Target, record *enrichment.Record) error {
		return places.ApplyEnrichment(
			target.ID,
			record.Label(),
			enrichmentAddress(record),
			record.PlaceType,
			enrichmentMetadata(record),
		)
	})
}

// enrichmentAddress flattens a record into the address column shape.
func enrichmentAddress(record *enrichment.Record) map[string]any {
	address := map[string]any{}

	if record.RawData != nil {
		for k, v := range record.RawData.Address {
			address[k] = v
		}
	}

	for k, v := range map[string]string{
		"formatted":   record.Address,
		"city":        record.City,
		"state":       record.State,
		"country":     record.Country,
		"postal_code": record.PostalCode,
	} {
		if v != "" {
			address[k] = v
		}
	}

	return address
}

func enrichmentMetadata(record *enrichment.Record) map[string]any {
	metadata := map[string]any{
		"enriched_at": time.Now().UTC().Format(time.RFC3339),
	}

	if record.RawData != nil {
		if record.RawData.OsmType != "" {
			metadata["osm_type"] = record.RawData.OsmType
			metadata["osm_id"] = record.RawData.OsmID
		}

		if record.RawData.Category != "" {
			metadata["osm_category"] = record.RawData.Category
			metadata["osm_value"] = record.RawData.Type
		}
	}

	return metadata
}
