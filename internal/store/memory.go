package store

import (
	"context"
	"sort"
	"sync"

	"github.com/weatherboard/server/internal/weather"
)

// MemoryStore is a concurrency-safe in-memory observation store. It is
// the default when no database is configured and the store the tests
// run against.
type MemoryStore struct {
	mu           sync.RWMutex
	observations []weather.Observation
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert appends one observation. Duplicate timestamp+parameter pairs
// are permitted and accumulate; there is no uniqueness constraint.
func (s *MemoryStore) Insert(_ context.Context, obs weather.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observations = append(s.observations, obs)
	return nil
}

// DeleteAll removes every observation. Used when a new session starts
// and at process boot.
func (s *MemoryStore) DeleteAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observations = nil
	return nil
}

// AllGroupedByParameter returns every observation ordered by timestamp
// ascending, grouped into per-parameter series.
func (s *MemoryStore) AllGroupedByParameter(_ context.Context) ([]weather.ParameterSeries, error) {
	s.mu.RLock()
	sorted := make([]weather.Observation, len(s.observations))
	copy(sorted, s.observations)
	s.mu.RUnlock()

	// ISO-8601 timestamps in a uniform format order correctly as strings.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	return groupByParameter(sorted), nil
}

// groupByParameter buckets timestamp-ordered observations into series,
// emitting parameters in canonical order and skipping absent ones.
func groupByParameter(obs []weather.Observation) []weather.ParameterSeries {
	buckets := make(map[weather.Parameter][]weather.DataPoint)
	for _, o := range obs {
		buckets[o.Parameter] = append(buckets[o.Parameter], weather.DataPoint{
			Key:   o.Timestamp,
			Value: o.Value,
		})
	}

	series := make([]weather.ParameterSeries, 0, len(buckets))
	for _, p := range weather.AllowedParameters() {
		if points, ok := buckets[p]; ok {
			series = append(series, weather.ParameterSeries{Param: p, Dataset: points})
		}
	}
	return series
}
