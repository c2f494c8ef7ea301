package matcher

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/TANKominator5/crowdmedics-api/internal/model"
	"github.com/TANKominator5/crowdmedics-api/internal/repository"
	"github.com/TANKominator5/crowdmedics-api/pkg/geo"
	"github.com/TANKominator5/crowdmedics-api/pkg/metrics"
)

// DefaultRadiusKm matches the radius the original dashboard queried with.
const DefaultRadiusKm = 2.0

const verifiedMedicsCacheKey = "verified_medics"

type Service interface {
	// FindEligibleMedics returns verified medics with a location within
	// radiusKm of the point, nearest first.
	FindEligibleMedics(ctx context.Context, point geo.Point, radiusKm float64) ([]*model.MedicMatch, error)
}

type Config struct {
	CacheTTL        time.Duration
	CleanupInterval time.Duration
}

type service struct {
	medicRepo repository.MedicRepository
	cache     *cache.Cache
	metrics   *metrics.Metrics
}

func NewService(medicRepo repository.MedicRepository, cfg Config, m *metrics.Metrics) Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	cleanup := cfg.CleanupInterval
	if cleanup <= 0 {
		cleanup = 5 * time.Minute
	}
	return &service{
		medicRepo: medicRepo,
		cache:     cache.New(ttl, cleanup),
		metrics:   m,
	}
}

func (s *service) FindEligibleMedics(ctx context.Context, point geo.Point, radiusKm float64) ([]*model.MedicMatch, error) {
	if err := geo.Validate(point); err != nil {
		return nil, fmt.Errorf("invalid query point: %w", err)
	}
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.MatcherLatency.Observe(time.Since(start).Seconds())
		}
	}()

	medics, err := s.verifiedMedics(ctx)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.MatcherCandidates.Observe(float64(len(medics)))
	}

	matches := Rank(medics, point, radiusKm)
	return matches, nil
}

// Rank is the pure matching function: filter eligible medics to the radius
// and sort ascending by great-circle distance. Kept free of I/O so the same
// ordering can be reproduced anywhere, the store included.
func Rank(medics []*model.Medic, point geo.Point, radiusKm float64) []*model.MedicMatch {
	matches := make([]*model.MedicMatch, 0, len(medics))
	for _, m := range medics {
		if !m.Eligible() {
			continue
		}
		d := geo.DistanceKm(point, geo.Point{Latitude: *m.Latitude, Longitude: *m.Longitude})
		if d > radiusKm {
			continue
		}
		matches = append(matches, &model.MedicMatch{Medic: m, DistanceKm: d})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].DistanceKm < matches[j].DistanceKm
	})
	return matches
}

func (s *service) verifiedMedics(ctx context.Context) ([]*model.Medic, error) {
	if cached, ok := s.cache.Get(verifiedMedicsCacheKey); ok {
		return cached.([]*model.Medic), nil
	}

	medics, err := s.medicRepo.ListVerifiedWithLocation(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load verified medics: %w", err)
	}

	s.cache.Set(verifiedMedicsCacheKey, medics, cache.DefaultExpiration)
	return medics, nil
}
