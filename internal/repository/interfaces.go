package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/TANKominator5/crowdmedics-api/internal/model"
)

// UserRepository persists authentication accounts.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// MedicRepository persists medic profiles. Status reads are normalized to
// the canonical tri-state before a Medic leaves this layer.
type MedicRepository interface {
	Upsert(ctx context.Context, medic *model.Medic) error
	Get(ctx context.Context, id uuid.UUID) (*model.Medic, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Medic, error)
	List(ctx context.Context) ([]*model.Medic, error)
	ListByStatus(ctx context.Context, status model.VerificationStatus) ([]*model.Medic, error)
	ListVerifiedWithLocation(ctx context.Context) ([]*model.Medic, error)
	// UpdateStatus performs a guarded transition: the row is only updated
	// when its current status matches from. Returns the number of rows
	// changed so callers can distinguish NotFound from Conflict.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.VerificationStatus) (int64, error)
}

// ClientRepository persists requester profiles.
type ClientRepository interface {
	Upsert(ctx context.Context, client *model.Client) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Client, error)
	List(ctx context.Context) ([]*model.Client, error)
}

// SOSRepository persists SOS requests. Accept is the single operation that
// needs a concurrency guarantee and is implemented as an atomic conditional
// update, never read-then-write.
type SOSRepository interface {
	Create(ctx context.Context, req *model.SOSRequest) error
	Get(ctx context.Context, id uuid.UUID) (*model.SOSRequest, error)
	// Accept sets status=accepted and accepted_by=medicID iff the request
	// is still pending. Exactly one concurrent caller observes 1 row.
	Accept(ctx context.Context, id, medicID uuid.UUID) (int64, error)
	// Resolve moves an accepted request to resolved. When requireAcceptor
	// is non-nil the transition additionally requires accepted_by to match.
	Resolve(ctx context.Context, id uuid.UUID, requireAcceptor *uuid.UUID) (int64, error)
	HasOpenRequest(ctx context.Context, userID uuid.UUID) (bool, error)
	LatestForUser(ctx context.Context, userID uuid.UUID) (*model.SOSRequest, error)
	ListRecent(ctx context.Context, limit int) ([]*model.SOSRequest, error)
	// ListOpenWithinDistance is the SQL twin of the in-process matcher:
	// pending requests within radiusKm of (lat, lon), nearest first.
	ListOpenWithinDistance(ctx context.Context, lat, lon, radiusKm float64) ([]*model.SOSMatch, error)
}

// NotificationRepository persists the best-effort admin notification queue.
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	Update(ctx context.Context, n *model.Notification) error
	ListDue(ctx context.Context, limit int) ([]*model.Notification, error)
}

// TokenStore tracks revoked tokens until their natural expiry.
type TokenStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
