package core

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/defectset/internal/contract"
)

// currentCacheVersion defines the version of the cached cold-start samples
const currentCacheVersion = 1

// coldStartTTL bounds how long reference samples are reused
const coldStartTTL = 7 * 24 * time.Hour

// cachedColdStartSamples returns the proportion samples of a reference project,
// reusing a fresh cached copy when the tracker store has one.
func cachedColdStartSamples(ctx context.Context, cfg *contract.Config, clients Clients, project string) ([]float64, error) {
	store := trackerStore(clients.Manager)
	if store == nil {
		return coldStartSamples(ctx, clients.Tracker, project)
	}

	key := coldStartCacheKey(cfg.TrackerURL, project)
	if samples := checkCacheHit(store, key); samples != nil {
		return samples, nil
	}
	return computeAndStore(ctx, clients.Tracker, store, key, project)
}

// checkCacheHit attempts to retrieve and validate cached samples
func checkCacheHit(store contract.CacheStore, key string) []float64 {
	data, version, ts, err := store.Get(key)
	if err != nil {
		return nil // Cache miss
	}
	if version != currentCacheVersion || time.Since(time.Unix(ts, 0)) > coldStartTTL {
		return nil // Stale or version mismatch
	}
	var samples []float64
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil
	}
	return samples
}

// computeAndStore resolves the samples and stores them in cache
func computeAndStore(ctx context.Context, tracker contract.TrackerClient, store contract.CacheStore, key, project string) ([]float64, error) {
	samples, err := coldStartSamples(ctx, tracker, project)
	if err != nil {
		return nil, err
	}
	if samples == nil {
		samples = []float64{}
	}
	if data, err := json.Marshal(samples); err == nil {
		if err := store.Set(key, data, currentCacheVersion, time.Now().Unix()); err != nil {
			contract.LogWarn("Error caching cold-start samples", err)
		}
	}
	return samples, nil
}

// coldStartCacheKey creates a unique key for the samples of a tracker project
func coldStartCacheKey(trackerURL, project string) string {
	return fmt.Sprintf("coldstart:%x", sha256.Sum256([]byte(trackerURL+"|"+project)))
}
