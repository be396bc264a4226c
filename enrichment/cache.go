// Copyright 2026 The Myndy Authors
// SPDX-License-Identifier: Apache-2.0

package enrichment

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/myndy/locintel/metrics"
	"github.com/myndy/locintel/spatial"
)

// Cache is a durable map from quantized coordinate keys to enrichment
// records, backed by a human-inspectable JSON file. A corrupt or missing
// file degrades to an empty cache: that only costs extra external calls,
// never correctness.
//
// Cache is safe for concurrent use. Mutations are serialized; reads see a
// stable snapshot.
type Cache struct {
	mu      sync.RWMutex
	path    string
	entries map[string]*Record
}

// NewCache loads the cache at path. A missing file yields an empty cache;
// a malformed one is logged and also yields an empty cache.
func NewCache(path string) *Cache {
	c := &Cache{
		path:    path,
		entries: make(map[string]*Record),
	}
	c.load()

	return c
}

func (c *Cache) load() {
	data, err := os.ReadFile(c.path) // #nosec G304 - path is provided by operator
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("failed to read enrichment cache %s: %v", c.path, err)
		}

		return
	}

	var entries map[string]*Record
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("failed to parse enrichment cache %s, starting empty: %v", c.path, err)

		return
	}

	c.entries = entries
	if c.entries == nil {
		c.entries = make(map[string]*Record)
	}
}

// Save atomically persists the full cache, creating parent directories as
// needed. The returned error is informational: callers log it and move on,
// an enrichment that succeeded in memory is still valid.
func (c *Cache) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()

	if err != nil {
		metrics.CacheSaveFailuresTotal.Inc()

		return fmt.Errorf("encoding enrichment cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o750); err != nil {
		metrics.CacheSaveFailuresTotal.Inc()

		return fmt.Errorf("creating cache directory: %w", err)
	}

	// Write-then-rename so a failure mid-write never truncates the
	// previous cache file.
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		metrics.CacheSaveFailuresTotal.Inc()

		return fmt.Errorf("writing enrichment cache: %w", err)
	}

	if err := os.Rename(tmp, c.path); err != nil {
		metrics.CacheSaveFailuresTotal.Inc()

		return fmt.Errorf("replacing enrichment cache: %w", err)
	}

	return nil
}

// Get returns the record stored at key, or nil.
func (c *Cache) Get(key string) *Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.entries[key]
}

// Put inserts or overwrites the record at key.
func (c *Cache) Put(key string, record *Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = record
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Entries returns a snapshot of all cached entries.
func (c *Cache) Entries() map[string]*Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snapshot := make(map[string]*Record, len(c.entries))
	for k, v := range c.entries {
		snapshot[k] = v
	}

	return snapshot
}

// FindNearby scans the cache for an entry within radius meters of the given
// coordinate and returns the first one found, or nil. The scan decodes each
// stored key back into its grid-cell coordinate; malformed keys are skipped.
// Enumeration order is unspecified, so with several entries in radius any of
// them may be returned, not necessarily the closest.
//
// The scan is O(n) over the cache. Enrichment runs are small, manual and
// budget-capped, so a linear pass is not a bottleneck.
func (c *Cache) FindNearby(lat, lng, radiusMeters float64) *Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	origin := spatial.Point{Lat: lat, Lng: lng}

	for key, record := range c.entries {
		cell, err := ParseCacheKey(key)
		if err != nil {
			continue
		}

		if origin.HaversineDistance(&cell) <= radiusMeters {
			return record
		}
	}

	return nil
}
