package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/TANKominator5/crowdmedics-api/internal/model"
	"github.com/TANKominator5/crowdmedics-api/internal/repository"
	clientService "github.com/TANKominator5/crowdmedics-api/internal/service/client"
	medicService "github.com/TANKominator5/crowdmedics-api/internal/service/medic"
	"github.com/TANKominator5/crowdmedics-api/pkg/auth"
	apperrors "github.com/TANKominator5/crowdmedics-api/pkg/errors"
)

const bcryptCost = 12

var errInvalidCredentials = errors.New("invalid credentials")

type Service interface {
	// Register creates an account and, from the role chosen at the sign-up
	// entry point, the matching stub profile. The role is consumed here and
	// afterwards lives only in the token.
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*model.TokenResponse, error)
	Logout(ctx context.Context, token string) error
	// ValidateToken returns the session for a presented access token,
	// rejecting revoked tokens.
	ValidateToken(ctx context.Context, token string) (model.Session, error)
}

type service struct {
	userRepo   repository.UserRepository
	tokenStore repository.TokenStore
	jwtSvc     auth.JWTService
	medicSvc   medicService.Service
	clientSvc  clientService.Service
}

func NewService(
	userRepo repository.UserRepository,
	tokenStore repository.TokenStore,
	jwtSvc auth.JWTService,
	medicSvc medicService.Service,
	clientSvc clientService.Service,
) Service {
	return &service{
		userRepo:   userRepo,
		tokenStore: tokenStore,
		jwtSvc:     jwtSvc,
		medicSvc:   medicSvc,
		clientSvc:  clientSvc,
	}
}

func (s *service) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if existing, _ := s.userRepo.GetByEmail(ctx, req.Email); existing != nil {
		return nil, apperrors.Conflict("email already registered", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	user := &model.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         req.Role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperrors.UpstreamUnavailable("identity store", err)
	}

	session := model.Session{UserID: user.ID, Email: user.Email, Role: user.Role}
	switch req.Role {
	case model.RoleMedic:
		err = s.medicSvc.EnsureStub(ctx, session)
	case model.RoleClient:
		err = s.clientSvc.EnsureStub(ctx, session)
	default:
		err = apperrors.Validation("role must be client or medic", nil)
	}
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Unauthenticated(errInvalidCredentials)
		}
		return nil, apperrors.UpstreamUnavailable("identity store", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthenticated(errInvalidCredentials)
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, time.Now()); err != nil {
		return nil, apperrors.UpstreamUnavailable("identity store", err)
	}

	return s.generateTokens(user)
}

func (s *service) RefreshToken(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwtSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthenticated(err)
	}

	user, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthenticated(err)
	}

	return s.generateTokens(user)
}

func (s *service) Logout(ctx context.Context, token string) error {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		// Already unusable, nothing to revoke.
		return nil
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.tokenStore.Revoke(ctx, claims.ID, ttl); err != nil {
		return apperrors.UpstreamUnavailable("token store", err)
	}
	return nil
}

func (s *service) ValidateToken(ctx context.Context, token string) (model.Session, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return model.Session{}, apperrors.Unauthenticated(err)
	}

	revoked, err := s.tokenStore.IsRevoked(ctx, claims.ID)
	if err != nil {
		return model.Session{}, apperrors.UpstreamUnavailable("token store", err)
	}
	if revoked {
		return model.Session{}, apperrors.Unauthenticated(errors.New("token revoked"))
	}

	return model.Session{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   model.Role(claims.Role),
	}, nil
}

func (s *service) generateTokens(user *model.User) (*model.TokenResponse, error) {
	accessToken, err := s.jwtSvc.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	refreshToken, err := s.jwtSvc.GenerateRefreshToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &model.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
