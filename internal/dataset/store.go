package dataset

import (
	"context"
	"sync"
	"time"

	"example.com/cancerdash/internal/domain"
)

// Store keeps a decoded dataset snapshot in memory and implements
// domain.Repository over it. Reload swaps the snapshot atomically so the
// dashboard keeps serving while a new file is read.
type Store struct {
	source string

	mu       sync.RWMutex
	obs      []domain.Observation
	loadedAt time.Time
}

// NewStore constructs an empty Store bound to a dataset file path.
func NewStore(source string) *Store {
	return &Store{source: source}
}

// Reload re-reads the bound dataset file and swaps in the new snapshot.
func (s *Store) Reload(ctx context.Context) (domain.DatasetInfo, error) {
	obs, err := Load(s.source)
	if err != nil {
		return domain.DatasetInfo{}, err
	}
	s.Replace(obs)
	return s.Info(ctx)
}

// Replace installs a new snapshot.
func (s *Store) Replace(obs []domain.Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.obs = obs
	s.loadedAt = time.Now().UTC()
}

// Dimensions implements domain.Repository. Values are returned in order of
// first appearance, matching the source file's layout.
func (s *Store) Dimensions(ctx context.Context) (domain.Dimensions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dims := domain.Dimensions{}
	seenGeo := make(map[string]struct{})
	seenType := make(map[string]struct{})
	seenSex := make(map[string]struct{})
	for _, o := range s.obs {
		if _, ok := seenGeo[o.Geo]; !ok {
			seenGeo[o.Geo] = struct{}{}
			dims.Geos = append(dims.Geos, o.Geo)
		}
		if _, ok := seenType[o.CancerType]; !ok {
			seenType[o.CancerType] = struct{}{}
			dims.CancerTypes = append(dims.CancerTypes, o.CancerType)
		}
		if _, ok := seenSex[o.Sex]; !ok {
			seenSex[o.Sex] = struct{}{}
			dims.Sexes = append(dims.Sexes, o.Sex)
		}
	}
	return dims, nil
}

// Observations implements domain.Repository.
func (s *Store) Observations(ctx context.Context, f domain.Filter) ([]domain.Observation, error) {
	characteristic := f.Measure.Characteristic()
	sexes := make(map[string]struct{}, len(f.Sexes))
	for _, sex := range f.Sexes {
		sexes[sex] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Observation
	for _, o := range s.obs {
		if characteristic != "" && o.Characteristic != characteristic {
			continue
		}
		if f.Geo != "" && o.Geo != f.Geo {
			continue
		}
		if f.CancerType != "" && o.CancerType != f.CancerType {
			continue
		}
		if len(sexes) > 0 {
			if _, ok := sexes[o.Sex]; !ok {
				continue
			}
		}
		out = append(out, o)
	}
	return out, nil
}

// Info implements domain.Repository.
func (s *Store) Info(ctx context.Context) (domain.DatasetInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.DatasetInfo{
		Rows:     len(s.obs),
		Source:   s.source,
		LoadedAt: s.loadedAt,
	}, nil
}
