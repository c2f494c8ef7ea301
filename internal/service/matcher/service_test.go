package matcher

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TANKominator5/crowdmedics-api/internal/model"
	"github.com/TANKominator5/crowdmedics-api/pkg/geo"
)

// Query point in central Bengaluru; offsets below are in degrees of
// latitude, roughly 111 km per degree.
var queryPoint = geo.Point{Latitude: 12.97, Longitude: 77.59}

func medicAt(name string, status model.VerificationStatus, latOffset float64) *model.Medic {
	lat := queryPoint.Latitude + latOffset
	lon := queryPoint.Longitude
	return &model.Medic{
		Base:      model.Base{ID: uuid.New()},
		Name:      name,
		Status:    status,
		Latitude:  &lat,
		Longitude: &lon,
	}
}

func TestRankFiltersByRadius(t *testing.T) {
	near := medicAt("near", model.VerificationVerified, 0.011)  // ~1.2 km
	far := medicAt("far", model.VerificationVerified, 0.0315)   // ~3.5 km

	matches := Rank([]*model.Medic{far, near}, queryPoint, 2.0)

	require.Len(t, matches, 1)
	assert.Equal(t, "near", matches[0].Medic.Name)
	assert.InDelta(t, 1.2, matches[0].DistanceKm, 0.1)
}

func TestRankExcludesIneligibleMedics(t *testing.T) {
	pending := medicAt("pending", model.VerificationPending, 0.001)
	rejected := medicAt("rejected", model.VerificationRejected, 0.001)
	verified := medicAt("verified", model.VerificationVerified, 0.001)

	noLocation := &model.Medic{
		Base:   model.Base{ID: uuid.New()},
		Name:   "no-location",
		Status: model.VerificationVerified,
	}

	matches := Rank([]*model.Medic{pending, rejected, verified, noLocation}, queryPoint, 2.0)

	require.Len(t, matches, 1)
	assert.Equal(t, "verified", matches[0].Medic.Name)
}

func TestRankOrdersByDistanceAscending(t *testing.T) {
	medics := []*model.Medic{
		medicAt("c", model.VerificationVerified, 0.015),
		medicAt("a", model.VerificationVerified, 0.002),
		medicAt("b", model.VerificationVerified, 0.008),
	}

	matches := Rank(medics, queryPoint, 5.0)

	require.Len(t, matches, 3)
	assert.Equal(t, "a", matches[0].Medic.Name)
	assert.Equal(t, "b", matches[1].Medic.Name)
	assert.Equal(t, "c", matches[2].Medic.Name)
	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i-1].DistanceKm, matches[i].DistanceKm)
	}
}

func TestRankEmptyInput(t *testing.T) {
	matches := Rank(nil, queryPoint, 2.0)
	assert.Empty(t, matches)
}

type stubMedicRepo struct {
	medics []*model.Medic
	calls  int
}

func (r *stubMedicRepo) Upsert(context.Context, *model.Medic) error { return nil }
func (r *stubMedicRepo) Get(context.Context, uuid.UUID) (*model.Medic, error) {
	return nil, nil
}
func (r *stubMedicRepo) GetByUserID(context.Context, uuid.UUID) (*model.Medic, error) {
	return nil, nil
}
func (r *stubMedicRepo) List(context.Context) ([]*model.Medic, error) { return nil, nil }
func (r *stubMedicRepo) ListByStatus(context.Context, model.VerificationStatus) ([]*model.Medic, error) {
	return nil, nil
}
func (r *stubMedicRepo) ListVerifiedWithLocation(context.Context) ([]*model.Medic, error) {
	r.calls++
	return r.medics, nil
}
func (r *stubMedicRepo) UpdateStatus(context.Context, uuid.UUID, model.VerificationStatus, model.VerificationStatus) (int64, error) {
	return 0, nil
}

func TestFindEligibleMedicsDefaultsRadius(t *testing.T) {
	repo := &stubMedicRepo{medics: []*model.Medic{
		medicAt("inside", model.VerificationVerified, 0.011),  // ~1.2 km
		medicAt("outside", model.VerificationVerified, 0.0315), // ~3.5 km
	}}
	svc := NewService(repo, Config{}, nil)

	matches, err := svc.FindEligibleMedics(context.Background(), queryPoint, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "inside", matches[0].Medic.Name)
}

func TestFindEligibleMedicsUsesCache(t *testing.T) {
	repo := &stubMedicRepo{medics: []*model.Medic{
		medicAt("m", model.VerificationVerified, 0.001),
	}}
	svc := NewService(repo, Config{}, nil)

	_, err := svc.FindEligibleMedics(context.Background(), queryPoint, 2.0)
	require.NoError(t, err)
	_, err = svc.FindEligibleMedics(context.Background(), queryPoint, 2.0)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.calls)
}

func TestFindEligibleMedicsRejectsBadPoint(t *testing.T) {
	svc := NewService(&stubMedicRepo{}, Config{}, nil)

	_, err := svc.FindEligibleMedics(context.Background(), geo.Point{Latitude: 95}, 2.0)
	assert.Error(t, err)
}
