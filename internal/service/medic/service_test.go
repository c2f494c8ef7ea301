package medic

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TANKominator5/crowdmedics-api/internal/model"
	apperrors "github.com/TANKominator5/crowdmedics-api/pkg/errors"
)

type fakeRepo struct {
	mu     sync.Mutex
	medics map[uuid.UUID]*model.Medic
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{medics: make(map[uuid.UUID]*model.Medic)}
}

func (r *fakeRepo) Upsert(_ context.Context, m *model.Medic) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	clone := *m
	r.medics[m.ID] = &clone
	return nil
}

func (r *fakeRepo) Get(_ context.Context, id uuid.UUID) (*model.Medic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.medics[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *m
	return &clone, nil
}

func (r *fakeRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Medic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.medics {
		if m.UserID == userID {
			clone := *m
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakeRepo) List(_ context.Context) ([]*model.Medic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.Medic, 0, len(r.medics))
	for _, m := range r.medics {
		clone := *m
		out = append(out, &clone)
	}
	return out, nil
}

func (r *fakeRepo) ListByStatus(_ context.Context, status model.VerificationStatus) ([]*model.Medic, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Medic
	for _, m := range r.medics {
		if m.Status == status {
			clone := *m
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListVerifiedWithLocation(ctx context.Context) ([]*model.Medic, error) {
	return r.ListByStatus(ctx, model.VerificationVerified)
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.VerificationStatus) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.medics[id]
	if !ok || m.Status != from {
		return 0, nil
	}
	m.Status = to
	return 1, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *fakeNotifier) NotifyMedicSubmitted(context.Context, *model.Medic) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return nil
}

func adminSession() model.Session {
	return model.Session{UserID: uuid.New(), Email: "admin@example.com", Role: model.RoleAdmin}
}

func medicSession() model.Session {
	return model.Session{UserID: uuid.New(), Email: "medic@example.com", Role: model.RoleMedic}
}

func validInput() ProfileInput {
	return ProfileInput{
		Name:                       "A Medic",
		Phone:                      "+911234567890",
		Qualification:              "Paramedic",
		GovRegistrationType:        "state",
		GovRegistrationNumber:      "REG-42",
		GovRegistrationDocumentURL: "https://docs.example.com/reg-42.pdf",
		GovEmployer:                "City Hospital",
		GovIDCardNumber:            "ID-42",
		ServableRegion:             "Bengaluru",
		Latitude:                   12.97,
		Longitude:                  77.59,
	}
}

func TestSubmitProfileStoresPending(t *testing.T) {
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	svc := NewService(repo, notifier, nil)
	session := medicSession()

	medic, err := svc.SubmitProfile(context.Background(), session, validInput())
	require.NoError(t, err)
	assert.Equal(t, model.VerificationPending, medic.Status)
	assert.True(t, medic.HasLocation())
	assert.Equal(t, 1, notifier.calls)
}

func TestSubmitProfileRejectsBadCoordinates(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeNotifier{}, nil)

	input := validInput()
	input.Latitude = 123.4
	_, err := svc.SubmitProfile(context.Background(), medicSession(), input)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestSubmitProfilePreservesVerifiedStatus(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeNotifier{}, nil)
	session := medicSession()

	first, err := svc.SubmitProfile(context.Background(), session, validInput())
	require.NoError(t, err)

	admin := adminSession()
	_, err = svc.Approve(context.Background(), admin, first.ID)
	require.NoError(t, err)

	// Resubmitting the profile must not reset the verification flag.
	input := validInput()
	input.Phone = "+919999999999"
	second, err := svc.SubmitProfile(context.Background(), session, input)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, model.VerificationVerified, second.Status)
}

func TestApproveRequiresAdmin(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeNotifier{}, nil)

	medic, err := svc.SubmitProfile(context.Background(), medicSession(), validInput())
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), medicSession(), medic.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}

func TestApproveThenRejectConflicts(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeNotifier{}, nil)
	admin := adminSession()

	medic, err := svc.SubmitProfile(context.Background(), medicSession(), validInput())
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), admin, medic.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VerificationVerified, approved.Status)

	// Verified is terminal.
	_, err = svc.Reject(context.Background(), admin, medic.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))

	_, err = svc.Approve(context.Background(), admin, medic.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
}

func TestRejectIsTerminal(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeNotifier{}, nil)
	admin := adminSession()

	medic, err := svc.SubmitProfile(context.Background(), medicSession(), validInput())
	require.NoError(t, err)

	rejected, err := svc.Reject(context.Background(), admin, medic.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VerificationRejected, rejected.Status)

	_, err = svc.Approve(context.Background(), admin, medic.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
}

func TestApproveUnknownMedic(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeNotifier{}, nil)

	_, err := svc.Approve(context.Background(), adminSession(), uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestEnsureStubIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, &fakeNotifier{}, nil)
	session := medicSession()

	require.NoError(t, svc.EnsureStub(context.Background(), session))
	require.NoError(t, svc.EnsureStub(context.Background(), session))

	all, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, model.VerificationPending, all[0].Status)
}

func TestListByStatusRequiresAdmin(t *testing.T) {
	svc := NewService(newFakeRepo(), &fakeNotifier{}, nil)

	_, err := svc.ListByStatus(context.Background(), medicSession(), model.VerificationPending)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrForbidden))
}
