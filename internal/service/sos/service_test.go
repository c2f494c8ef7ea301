package sos

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TANKominator5/crowdmedics-api/internal/model"
	apperrors "github.com/TANKominator5/crowdmedics-api/pkg/errors"
	"github.com/TANKominator5/crowdmedics-api/pkg/geo"
)

// fakeSOSRepo is an in-memory SOSRepository with the same conditional-update
// contract as the SQL implementation: Accept and Resolve mutate under a lock
// and report rows affected.
type fakeSOSRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*model.SOSRequest
}

func newFakeSOSRepo() *fakeSOSRepo {
	return &fakeSOSRepo{requests: make(map[uuid.UUID]*model.SOSRequest)}
}

func (r *fakeSOSRepo) Create(_ context.Context, req *model.SOSRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req.ID = uuid.New()
	req.Status = model.SOSStatusPending
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	clone := *req
	r.requests[req.ID] = &clone
	return nil
}

func (r *fakeSOSRepo) Get(_ context.Context, id uuid.UUID) (*model.SOSRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *req
	return &clone, nil
}

func (r *fakeSOSRepo) Accept(_ context.Context, id, medicID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != model.SOSStatusPending {
		return 0, nil
	}
	req.Status = model.SOSStatusAccepted
	req.AcceptedBy = &medicID
	req.UpdatedAt = time.Now()
	return 1, nil
}

func (r *fakeSOSRepo) Resolve(_ context.Context, id uuid.UUID, requireAcceptor *uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != model.SOSStatusAccepted {
		return 0, nil
	}
	if requireAcceptor != nil && (req.AcceptedBy == nil || *req.AcceptedBy != *requireAcceptor) {
		return 0, nil
	}
	now := time.Now()
	req.Status = model.SOSStatusResolved
	req.ResolvedAt = &now
	req.UpdatedAt = now
	return 1, nil
}

func (r *fakeSOSRepo) HasOpenRequest(_ context.Context, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.requests {
		if req.UserID == userID && req.Status.Open() {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeSOSRepo) LatestForUser(_ context.Context, userID uuid.UUID) (*model.SOSRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var latest *model.SOSRequest
	for _, req := range r.requests {
		if req.UserID != userID {
			continue
		}
		if latest == nil || req.CreatedAt.After(latest.CreatedAt) {
			latest = req
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	clone := *latest
	return &clone, nil
}

func (r *fakeSOSRepo) ListRecent(_ context.Context, limit int) ([]*model.SOSRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.SOSRequest, 0, limit)
	for _, req := range r.requests {
		if len(out) == limit {
			break
		}
		clone := *req
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeSOSRepo) ListOpenWithinDistance(_ context.Context, lat, lon, radiusKm float64) ([]*model.SOSMatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	origin := geo.Point{Latitude: lat, Longitude: lon}
	var out []*model.SOSMatch
	for _, req := range r.requests {
		if req.Status != model.SOSStatusPending {
			continue
		}
		d := geo.DistanceKm(origin, geo.DecodePoint(geo.MicroPoint{
			Latitude:  req.LatMicro,
			Longitude: req.LonMicro,
		}))
		if d > radiusKm {
			continue
		}
		out = append(out, &model.SOSMatch{SOSRequest: *req, DistanceKm: d})
	}
	return out, nil
}

type fakeMedicRepo struct {
	mu     sync.Mutex
	byUser map[uuid.UUID]*model.Medic
}

func newFakeMedicRepo() *fakeMedicRepo {
	return &fakeMedicRepo{byUser: make(map[uuid.UUID]*model.Medic)}
}

func (r *fakeMedicRepo) add(m *model.Medic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[m.UserID] = m
}

func (r *fakeMedicRepo) Upsert(_ context.Context, m *model.Medic) error {
	r.add(m)
	return nil
}

func (r *fakeMedicRepo) Get(_ context.Context, id uuid.UUID) (*model.Medic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.byUser {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeMedicRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Medic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.byUser[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return m, nil
}

func (r *fakeMedicRepo) List(context.Context) ([]*model.Medic, error) { return nil, nil }
func (r *fakeMedicRepo) ListByStatus(context.Context, model.VerificationStatus) ([]*model.Medic, error) {
	return nil, nil
}
func (r *fakeMedicRepo) ListVerifiedWithLocation(context.Context) ([]*model.Medic, error) {
	return nil, nil
}
func (r *fakeMedicRepo) UpdateStatus(context.Context, uuid.UUID, model.VerificationStatus, model.VerificationStatus) (int64, error) {
	return 0, nil
}

func verifiedMedic(repo *fakeMedicRepo) (model.Session, *model.Medic) {
	lat, lon := 12.97, 77.59
	m := &model.Medic{
		Base:      model.Base{ID: uuid.New()},
		UserID:    uuid.New(),
		Email:     "medic@example.com",
		Status:    model.VerificationVerified,
		Latitude:  &lat,
		Longitude: &lon,
	}
	repo.add(m)
	return model.Session{UserID: m.UserID, Email: m.Email, Role: model.RoleMedic}, m
}

func clientSession() model.Session {
	return model.Session{UserID: uuid.New(), Email: "client@example.com", Role: model.RoleClient}
}

func TestCreateAndLatest(t *testing.T) {
	repo := newFakeSOSRepo()
	svc := NewService(repo, newFakeMedicRepo(), nil, nil)
	session := clientSession()

	created, err := svc.Create(context.Background(), session, geo.Point{Latitude: 12.97, Longitude: 77.59})
	require.NoError(t, err)
	assert.Equal(t, model.SOSStatusPending, created.Status)
	assert.Equal(t, int64(12970000), created.LatMicro)
	assert.Equal(t, int64(77590000), created.LonMicro)

	latest, err := svc.LatestForClient(context.Background(), session)
	require.NoError(t, err)
	assert.Equal(t, created.ID, latest.ID)
}

func TestCreateRejectsSecondOpenRequest(t *testing.T) {
	repo := newFakeSOSRepo()
	svc := NewService(repo, newFakeMedicRepo(), nil, nil)
	session := clientSession()

	_, err := svc.Create(context.Background(), session, geo.Point{Latitude: 12.97, Longitude: 77.59})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), session, geo.Point{Latitude: 12.98, Longitude: 77.60})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
}

func TestCreateRejectsBadCoordinates(t *testing.T) {
	svc := NewService(newFakeSOSRepo(), newFakeMedicRepo(), nil, nil)

	_, err := svc.Create(context.Background(), clientSession(), geo.Point{Latitude: 91, Longitude: 0})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestAcceptFirstWriterWins(t *testing.T) {
	repo := newFakeSOSRepo()
	medicRepo := newFakeMedicRepo()
	svc := NewService(repo, medicRepo, nil, nil)

	created, err := svc.Create(context.Background(), clientSession(), geo.Point{Latitude: 12.97, Longitude: 77.59})
	require.NoError(t, err)

	const racers = 8
	sessions := make([]model.Session, racers)
	for i := range sessions {
		sessions[i], _ = verifiedMedic(medicRepo)
	}

	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Accept(context.Background(), sessions[i], created.ID)
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case apperrors.IsCode(err, apperrors.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, racers-1, conflicts)

	// accepted implies a non-nil acceptor.
	final, err := repo.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SOSStatusAccepted, final.Status)
	require.NotNil(t, final.AcceptedBy)
}

func TestAcceptRequiresVerifiedMedic(t *testing.T) {
	repo := newFakeSOSRepo()
	medicRepo := newFakeMedicRepo()
	svc := NewService(repo, medicRepo, nil, nil)

	created, err := svc.Create(context.Background(), clientSession(), geo.Point{Latitude: 12.97, Longitude: 77.59})
	require.NoError(t, err)

	pending := &model.Medic{
		Base:   model.Base{ID: uuid.New()},
		UserID: uuid.New(),
		Status: model.VerificationPending,
	}
	medicRepo.add(pending)

	_, err = svc.Accept(context.Background(), model.Session{UserID: pending.UserID, Role: model.RoleMedic}, created.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrUnauthenticated))
}

func TestAcceptUnknownRequest(t *testing.T) {
	medicRepo := newFakeMedicRepo()
	svc := NewService(newFakeSOSRepo(), medicRepo, nil, nil)
	session, _ := verifiedMedic(medicRepo)

	_, err := svc.Accept(context.Background(), session, uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestResolveByAcceptingMedic(t *testing.T) {
	repo := newFakeSOSRepo()
	medicRepo := newFakeMedicRepo()
	svc := NewService(repo, medicRepo, nil, nil)

	created, err := svc.Create(context.Background(), clientSession(), geo.Point{Latitude: 12.97, Longitude: 77.59})
	require.NoError(t, err)

	session, _ := verifiedMedic(medicRepo)
	_, err = svc.Accept(context.Background(), session, created.ID)
	require.NoError(t, err)

	resolved, err := svc.Resolve(context.Background(), session, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SOSStatusResolved, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)
}

func TestResolveByOtherMedicForbidden(t *testing.T) {
	repo := newFakeSOSRepo()
	medicRepo := newFakeMedicRepo()
	svc := NewService(repo, medicRepo, nil, nil)

	created, err := svc.Create(context.Background(), clientSession(), geo.Point{Latitude: 12.97, Longitude: 77.59})
	require.NoError(t, err)

	acceptor, _ := verifiedMedic(medicRepo)
	_, err = svc.Accept(context.Background(), acceptor, created.ID)
	require.NoError(t, err)

	other, _ := verifiedMedic(medicRepo)
	_, err = svc.Resolve(context.Background(), other, created.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}

func TestResolveByAdmin(t *testing.T) {
	repo := newFakeSOSRepo()
	medicRepo := newFakeMedicRepo()
	svc := NewService(repo, medicRepo, nil, nil)

	created, err := svc.Create(context.Background(), clientSession(), geo.Point{Latitude: 12.97, Longitude: 77.59})
	require.NoError(t, err)

	session, _ := verifiedMedic(medicRepo)
	_, err = svc.Accept(context.Background(), session, created.ID)
	require.NoError(t, err)

	admin := model.Session{UserID: uuid.New(), Role: model.RoleAdmin}
	resolved, err := svc.Resolve(context.Background(), admin, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SOSStatusResolved, resolved.Status)
}

func TestResolvePendingConflicts(t *testing.T) {
	repo := newFakeSOSRepo()
	medicRepo := newFakeMedicRepo()
	svc := NewService(repo, medicRepo, nil, nil)

	created, err := svc.Create(context.Background(), clientSession(), geo.Point{Latitude: 12.97, Longitude: 77.59})
	require.NoError(t, err)

	admin := model.Session{UserID: uuid.New(), Role: model.RoleAdmin}
	_, err = svc.Resolve(context.Background(), admin, created.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
}

func TestRecentAcrossSystemAdminOnly(t *testing.T) {
	svc := NewService(newFakeSOSRepo(), newFakeMedicRepo(), nil, nil)

	_, err := svc.RecentAcrossSystem(context.Background(), clientSession(), 10)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))

	admin := model.Session{UserID: uuid.New(), Role: model.RoleAdmin}
	_, err = svc.RecentAcrossSystem(context.Background(), admin, 0)
	assert.NoError(t, err)
}

func TestNearbyForMedic(t *testing.T) {
	repo := newFakeSOSRepo()
	medicRepo := newFakeMedicRepo()
	svc := NewService(repo, medicRepo, nil, nil)

	// One request ~1.1 km from the medic, one ~3.3 km out.
	_, err := svc.Create(context.Background(), clientSession(), geo.Point{Latitude: 12.98, Longitude: 77.59})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), clientSession(), geo.Point{Latitude: 13.00, Longitude: 77.59})
	require.NoError(t, err)

	session, _ := verifiedMedic(medicRepo)
	matches, err := svc.NearbyForMedic(context.Background(), session, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.1, matches[0].DistanceKm, 0.1)
}

func TestLatestForClientNotFound(t *testing.T) {
	svc := NewService(newFakeSOSRepo(), newFakeMedicRepo(), nil, nil)

	_, err := svc.LatestForClient(context.Background(), clientSession())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}
