package client

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/TANKominator5/crowdmedics-api/internal/model"
	"github.com/TANKominator5/crowdmedics-api/internal/repository"
	apperrors "github.com/TANKominator5/crowdmedics-api/pkg/errors"
)

// ProfileInput is the small slice of a client record the requester may
// change after sign-up.
type ProfileInput struct {
	Phone  string `json:"phone"`
	Region string `json:"region"`
}

type Service interface {
	// EnsureStub upserts the minimal client record on sign-in.
	EnsureStub(ctx context.Context, session model.Session) error
	UpdateContact(ctx context.Context, session model.Session, input ProfileInput) (*model.Client, error)
	GetProfile(ctx context.Context, session model.Session) (*model.Client, error)
	ListAll(ctx context.Context, session model.Session) ([]*model.Client, error)
}

type service struct {
	repo repository.ClientRepository
}

func NewService(repo repository.ClientRepository) Service {
	return &service{repo: repo}
}

func (s *service) EnsureStub(ctx context.Context, session model.Session) error {
	if session.UserID == uuid.Nil {
		return apperrors.Unauthenticated(nil)
	}

	stub := &model.Client{
		UserID: session.UserID,
		Email:  session.Email,
	}
	if existing, err := s.repo.GetByUserID(ctx, session.UserID); err == nil {
		stub.ID = existing.ID
		stub.Phone = existing.Phone
		stub.Region = existing.Region
		stub.CreatedAt = existing.CreatedAt
	}

	if err := s.repo.Upsert(ctx, stub); err != nil {
		return apperrors.UpstreamUnavailable("profile store", err)
	}
	return nil
}

func (s *service) UpdateContact(ctx context.Context, session model.Session, input ProfileInput) (*model.Client, error) {
	if session.UserID == uuid.Nil {
		return nil, apperrors.Unauthenticated(nil)
	}

	client, err := s.repo.GetByUserID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("client profile", err)
		}
		return nil, apperrors.UpstreamUnavailable("profile store", err)
	}

	client.Phone = input.Phone
	client.Region = input.Region
	if err := s.repo.Upsert(ctx, client); err != nil {
		return nil, apperrors.UpstreamUnavailable("profile store", err)
	}
	return client, nil
}

func (s *service) GetProfile(ctx context.Context, session model.Session) (*model.Client, error) {
	if session.UserID == uuid.Nil {
		return nil, apperrors.Unauthenticated(nil)
	}
	client, err := s.repo.GetByUserID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("client profile", err)
		}
		return nil, apperrors.UpstreamUnavailable("profile store", err)
	}
	return client, nil
}

func (s *service) ListAll(ctx context.Context, session model.Session) ([]*model.Client, error) {
	if !session.IsAdmin() {
		return nil, apperrors.Forbidden("administrator role required", nil)
	}
	clients, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.UpstreamUnavailable("profile store", err)
	}
	return clients, nil
}
