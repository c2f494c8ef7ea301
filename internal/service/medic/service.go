package medic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/TANKominator5/crowdmedics-api/internal/model"
	"github.com/TANKominator5/crowdmedics-api/internal/repository"
	"github.com/TANKominator5/crowdmedics-api/internal/service/notification"
	apperrors "github.com/TANKominator5/crowdmedics-api/pkg/errors"
	"github.com/TANKominator5/crowdmedics-api/pkg/geo"
	"github.com/TANKominator5/crowdmedics-api/pkg/metrics"
)

// ProfileInput is the profile-completion form. Every field is required;
// validation happens before any write.
type ProfileInput struct {
	Name                       string  `json:"name" binding:"required,notblank"`
	Phone                      string  `json:"phone" binding:"required,notblank"`
	Qualification              string  `json:"qualification" binding:"required,notblank"`
	GovRegistrationType        string  `json:"gov_registration_type" binding:"required"`
	GovRegistrationNumber      string  `json:"gov_registration_number" binding:"required"`
	GovRegistrationDocumentURL string  `json:"gov_registration_document_url" binding:"required,url"`
	GovEmployer                string  `json:"gov_employer" binding:"required"`
	GovIDCardNumber            string  `json:"gov_id_card_number" binding:"required"`
	ServableRegion             string  `json:"servable_region" binding:"required"`
	Latitude                   float64 `json:"latitude" binding:"required,latitude"`
	Longitude                  float64 `json:"longitude" binding:"required,longitude"`
}

type Service interface {
	// EnsureStub creates the minimal medic record on first sign-in.
	EnsureStub(ctx context.Context, session model.Session) error
	// SubmitProfile stores the completed profile and notifies admins that
	// a profile awaits verification (best-effort).
	SubmitProfile(ctx context.Context, session model.Session, input ProfileInput) (*model.Medic, error)
	GetProfile(ctx context.Context, session model.Session) (*model.Medic, error)

	// Moderation. Admin-only; pending is the only state either transition
	// accepts, verified and rejected are terminal.
	Approve(ctx context.Context, session model.Session, medicID uuid.UUID) (*model.Medic, error)
	Reject(ctx context.Context, session model.Session, medicID uuid.UUID) (*model.Medic, error)

	// Dashboard partitions, pure filters on the status flag.
	ListAll(ctx context.Context, session model.Session) ([]*model.Medic, error)
	ListByStatus(ctx context.Context, session model.Session, status model.VerificationStatus) ([]*model.Medic, error)
}

type service struct {
	repo     repository.MedicRepository
	notifier notification.Service
	metrics  *metrics.Metrics
}

func NewService(repo repository.MedicRepository, notifier notification.Service, m *metrics.Metrics) Service {
	return &service{
		repo:     repo,
		notifier: notifier,
		metrics:  m,
	}
}

func (s *service) EnsureStub(ctx context.Context, session model.Session) error {
	if session.UserID == uuid.Nil {
		return apperrors.Unauthenticated(nil)
	}

	existing, err := s.repo.GetByUserID(ctx, session.UserID)
	if err == nil && existing != nil {
		return nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return apperrors.UpstreamUnavailable("profile store", err)
	}

	stub := &model.Medic{
		UserID: session.UserID,
		Email:  session.Email,
		Status: model.VerificationPending,
	}
	if err := s.repo.Upsert(ctx, stub); err != nil {
		return apperrors.UpstreamUnavailable("profile store", err)
	}
	return nil
}

func (s *service) SubmitProfile(ctx context.Context, session model.Session, input ProfileInput) (*model.Medic, error) {
	if session.UserID == uuid.Nil {
		return nil, apperrors.Unauthenticated(nil)
	}

	point := geo.Point{Latitude: input.Latitude, Longitude: input.Longitude}
	if err := geo.Validate(point); err != nil {
		return nil, apperrors.Validation("malformed coordinates", err)
	}

	medic := &model.Medic{
		UserID:                     session.UserID,
		Email:                      session.Email,
		Name:                       input.Name,
		Phone:                      input.Phone,
		Qualification:              input.Qualification,
		GovRegistrationType:        input.GovRegistrationType,
		GovRegistrationNumber:      input.GovRegistrationNumber,
		GovRegistrationDocumentURL: input.GovRegistrationDocumentURL,
		GovEmployer:                input.GovEmployer,
		GovIDCardNumber:            input.GovIDCardNumber,
		ServableRegion:             input.ServableRegion,
		Latitude:                   &input.Latitude,
		Longitude:                  &input.Longitude,
		Status:                     model.VerificationPending,
	}

	// The upsert keeps the existing status: profile edits never touch the
	// verification flag, only an administrator does.
	if existing, err := s.repo.GetByUserID(ctx, session.UserID); err == nil {
		medic.ID = existing.ID
		medic.Status = existing.Status
		medic.CreatedAt = existing.CreatedAt
	}

	if err := s.repo.Upsert(ctx, medic); err != nil {
		return nil, apperrors.UpstreamUnavailable("profile store", err)
	}

	// Fire-and-forget: a failed admin notification never blocks submission.
	if err := s.notifier.NotifyMedicSubmitted(ctx, medic); err != nil {
		log.Warn().Err(err).Str("medic_id", medic.ID.String()).Msg("failed to queue admin notification")
	}

	return medic, nil
}

func (s *service) GetProfile(ctx context.Context, session model.Session) (*model.Medic, error) {
	if session.UserID == uuid.Nil {
		return nil, apperrors.Unauthenticated(nil)
	}
	medic, err := s.repo.GetByUserID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("medic profile", err)
		}
		return nil, apperrors.UpstreamUnavailable("profile store", err)
	}
	return medic, nil
}

func (s *service) Approve(ctx context.Context, session model.Session, medicID uuid.UUID) (*model.Medic, error) {
	return s.decide(ctx, session, medicID, model.VerificationVerified)
}

func (s *service) Reject(ctx context.Context, session model.Session, medicID uuid.UUID) (*model.Medic, error) {
	return s.decide(ctx, session, medicID, model.VerificationRejected)
}

func (s *service) decide(ctx context.Context, session model.Session, medicID uuid.UUID, to model.VerificationStatus) (*model.Medic, error) {
	if !session.IsAdmin() {
		return nil, apperrors.Forbidden("administrator role required", nil)
	}

	rows, err := s.repo.UpdateStatus(ctx, medicID, model.VerificationPending, to)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("profile store", err)
	}
	if rows == 0 {
		medic, getErr := s.repo.Get(ctx, medicID)
		if getErr != nil {
			return nil, apperrors.NotFound("medic", getErr)
		}
		return nil, apperrors.Conflict(
			fmt.Sprintf("medic is already %s", medic.Status), nil)
	}

	if s.metrics != nil {
		s.metrics.VerificationDecisions.WithLabelValues(string(to)).Inc()
	}
	log.Info().
		Str("medic_id", medicID.String()).
		Str("admin_id", session.UserID.String()).
		Str("decision", string(to)).
		Msg("verification decision recorded")

	return s.repo.Get(ctx, medicID)
}

func (s *service) ListAll(ctx context.Context, session model.Session) ([]*model.Medic, error) {
	if !session.IsAdmin() {
		return nil, apperrors.Forbidden("administrator role required", nil)
	}
	medics, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("profile store", err)
	}
	return medics, nil
}

func (s *service) ListByStatus(ctx context.Context, session model.Session, status model.VerificationStatus) ([]*model.Medic, error) {
	if !session.IsAdmin() {
		return nil, apperrors.Forbidden("administrator role required", nil)
	}
	medics, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("profile store", err)
	}
	return medics, nil
}
