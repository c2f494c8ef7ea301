package sos

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/TANKominator5/crowdmedics-api/internal/model"
	"github.com/TANKominator5/crowdmedics-api/internal/repository"
	apperrors "github.com/TANKominator5/crowdmedics-api/pkg/errors"
	"github.com/TANKominator5/crowdmedics-api/pkg/geo"
	"github.com/TANKominator5/crowdmedics-api/pkg/messaging"
	"github.com/TANKominator5/crowdmedics-api/pkg/metrics"
)

// DefaultRecentLimit matches the admin dashboard's recent-SOS view.
const DefaultRecentLimit = 10

type Service interface {
	// Create opens a new request in pending state. A client may hold at
	// most one open (pending or accepted) request at a time.
	Create(ctx context.Context, session model.Session, point geo.Point) (*model.SOSRequest, error)
	// Accept transitions pending -> accepted for exactly one of any number
	// of concurrent callers; the rest get Conflict. Caller must be a
	// verified medic.
	Accept(ctx context.Context, session model.Session, requestID uuid.UUID) (*model.SOSRequest, error)
	// Resolve closes out an accepted request. Allowed for the accepting
	// medic or an administrator.
	Resolve(ctx context.Context, session model.Session, requestID uuid.UUID) (*model.SOSRequest, error)

	// GetOwned fetches a request the caller is allowed to see: its owner,
	// the accepting medic, or an administrator.
	GetOwned(ctx context.Context, session model.Session, requestID uuid.UUID) (*model.SOSRequest, error)
	LatestForClient(ctx context.Context, session model.Session) (*model.SOSRequest, error)
	RecentAcrossSystem(ctx context.Context, session model.Session, limit int) ([]*model.SOSRequest, error)
	// NearbyForMedic lists open requests within radiusKm of the calling
	// medic's stored location, nearest first.
	NearbyForMedic(ctx context.Context, session model.Session, radiusKm float64) ([]*model.SOSMatch, error)
}

type service struct {
	repo      repository.SOSRepository
	medicRepo repository.MedicRepository
	broker    messaging.Broker
	metrics   *metrics.Metrics
}

func NewService(repo repository.SOSRepository, medicRepo repository.MedicRepository, broker messaging.Broker, m *metrics.Metrics) Service {
	return &service{
		repo:      repo,
		medicRepo: medicRepo,
		broker:    broker,
		metrics:   m,
	}
}

func (s *service) Create(ctx context.Context, session model.Session, point geo.Point) (*model.SOSRequest, error) {
	if session.UserID == uuid.Nil {
		return nil, apperrors.Unauthenticated(nil)
	}

	coords, err := geo.EncodePoint(point)
	if err != nil {
		return nil, apperrors.Validation("malformed coordinates", err)
	}

	open, err := s.repo.HasOpenRequest(ctx, session.UserID)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("sos store", err)
	}
	if open {
		return nil, apperrors.Conflict("an SOS request is already open for this client", nil)
	}

	req := &model.SOSRequest{
		UserID:   session.UserID,
		Email:    session.Email,
		LatMicro: coords.Latitude,
		LonMicro: coords.Longitude,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, apperrors.UpstreamUnavailable("sos store", err)
	}

	if s.metrics != nil {
		s.metrics.SOSCreated.Inc()
		s.metrics.SOSActiveGauge.Inc()
	}
	s.publish(ctx, messaging.ChannelSOSCreated, req)

	return req, nil
}

func (s *service) Accept(ctx context.Context, session model.Session, requestID uuid.UUID) (*model.SOSRequest, error) {
	medic, err := s.callerMedic(ctx, session)
	if err != nil {
		return nil, err
	}
	if medic.Status != model.VerificationVerified {
		return nil, apperrors.Unauthenticated(errors.New("medic is not verified"))
	}

	rows, err := s.repo.Accept(ctx, requestID, medic.ID)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("sos store", err)
	}
	if rows == 0 {
		req, getErr := s.repo.Get(ctx, requestID)
		if getErr != nil {
			return nil, apperrors.NotFound("sos request", getErr)
		}
		if s.metrics != nil {
			s.metrics.SOSConflicts.WithLabelValues("accept").Inc()
		}
		log.Info().
			Str("request_id", requestID.String()).
			Str("medic_id", medic.ID.String()).
			Str("status", string(req.Status)).
			Msg("sos accept lost the race")
		return nil, apperrors.Conflict("sos request was already accepted", nil)
	}

	if s.metrics != nil {
		s.metrics.SOSAccepted.Inc()
	}

	req, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("sos store", err)
	}
	s.publish(ctx, messaging.ChannelSOSAccepted, req)
	return req, nil
}

func (s *service) Resolve(ctx context.Context, session model.Session, requestID uuid.UUID) (*model.SOSRequest, error) {
	if session.UserID == uuid.Nil {
		return nil, apperrors.Unauthenticated(nil)
	}

	var requireAcceptor *uuid.UUID
	if !session.IsAdmin() {
		medic, err := s.callerMedic(ctx, session)
		if err != nil {
			return nil, err
		}
		requireAcceptor = &medic.ID
	}

	rows, err := s.repo.Resolve(ctx, requestID, requireAcceptor)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("sos store", err)
	}
	if rows == 0 {
		req, getErr := s.repo.Get(ctx, requestID)
		if getErr != nil {
			return nil, apperrors.NotFound("sos request", getErr)
		}
		if req.Status != model.SOSStatusAccepted {
			return nil, apperrors.Conflict("only accepted requests can be resolved", nil)
		}
		return nil, apperrors.Forbidden("only the accepting medic or an administrator may resolve", nil)
	}

	if s.metrics != nil {
		s.metrics.SOSResolved.Inc()
		s.metrics.SOSActiveGauge.Dec()
	}

	req, err := s.repo.Get(ctx, requestID)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("sos store", err)
	}
	s.publish(ctx, messaging.ChannelSOSResolved, req)
	return req, nil
}

func (s *service) GetOwned(ctx context.Context, session model.Session, requestID uuid.UUID) (*model.SOSRequest, error) {
	if session.UserID == uuid.Nil {
		return nil, apperrors.Unauthenticated(nil)
	}

	req, err := s.repo.Get(ctx, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("sos request", err)
		}
		return nil, apperrors.UpstreamUnavailable("sos store", err)
	}

	if session.IsAdmin() || req.UserID == session.UserID {
		return req, nil
	}
	if medic, err := s.callerMedic(ctx, session); err == nil {
		if req.AcceptedBy != nil && *req.AcceptedBy == medic.ID {
			return req, nil
		}
	}
	return nil, apperrors.Forbidden("not a party to this sos request", nil)
}

func (s *service) LatestForClient(ctx context.Context, session model.Session) (*model.SOSRequest, error) {
	if session.UserID == uuid.Nil {
		return nil, apperrors.Unauthenticated(nil)
	}
	req, err := s.repo.LatestForUser(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("sos request", err)
		}
		return nil, apperrors.UpstreamUnavailable("sos store", err)
	}
	return req, nil
}

func (s *service) RecentAcrossSystem(ctx context.Context, session model.Session, limit int) ([]*model.SOSRequest, error) {
	if !session.IsAdmin() {
		return nil, apperrors.Forbidden("administrator role required", nil)
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	reqs, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("sos store", err)
	}
	return reqs, nil
}

func (s *service) NearbyForMedic(ctx context.Context, session model.Session, radiusKm float64) ([]*model.SOSMatch, error) {
	medic, err := s.callerMedic(ctx, session)
	if err != nil {
		return nil, err
	}
	if medic.Status != model.VerificationVerified {
		return nil, apperrors.Forbidden("medic is not verified", nil)
	}
	if !medic.HasLocation() {
		return nil, apperrors.Validation("medic profile has no location", nil)
	}
	if radiusKm <= 0 {
		radiusKm = 2.0
	}

	matches, err := s.repo.ListOpenWithinDistance(ctx, *medic.Latitude, *medic.Longitude, radiusKm)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("sos store", err)
	}
	return matches, nil
}

func (s *service) callerMedic(ctx context.Context, session model.Session) (*model.Medic, error) {
	if session.UserID == uuid.Nil {
		return nil, apperrors.Unauthenticated(nil)
	}
	medic, err := s.medicRepo.GetByUserID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Unauthenticated(errors.New("caller has no medic profile"))
		}
		return nil, apperrors.UpstreamUnavailable("profile store", err)
	}
	return medic, nil
}

func (s *service) publish(ctx context.Context, channel string, req *model.SOSRequest) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, channel, messaging.Message{
		Type:    channel,
		Payload: req,
	}); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("failed to publish sos event")
	}
}
