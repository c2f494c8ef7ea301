package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TANKominator5/crowdmedics-api/internal/model"
	"github.com/TANKominator5/crowdmedics-api/internal/repository"
)

type sosRepository struct {
	*BaseRepository
}

func NewSOSRepository(base BaseRepository) repository.SOSRepository {
	return &sosRepository{
		BaseRepository: &base,
	}
}

const sosColumns = `
	id, user_id, email, latitude, longitude, status,
	accepted_by, created_at, updated_at, resolved_at
`

func (r *sosRepository) Create(ctx context.Context, req *model.SOSRequest) error {
	query := `
		INSERT INTO sos_requests (
			id, user_id, email, latitude, longitude, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	req.ID = uuid.New()
	req.Status = model.SOSStatusPending
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		req.ID,
		req.UserID,
		req.Email,
		req.LatMicro,
		req.LonMicro,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sos request: %w", err)
	}
	return nil
}

func (r *sosRepository) Get(ctx context.Context, id uuid.UUID) (*model.SOSRequest, error) {
	query := `SELECT ` + sosColumns + ` FROM sos_requests WHERE id = $1`
	var req model.SOSRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, fmt.Errorf("failed to get sos request: %w", err)
	}
	req.Status = model.NormalizeSOSStatus(string(req.Status))
	return &req, nil
}

// Accept is the one guarded write in the system: a compare-and-set on the
// status column. Two medics racing on the same request see exactly one row
// affected between them.
func (r *sosRepository) Accept(ctx context.Context, id, medicID uuid.UUID) (int64, error) {
	query := `
		UPDATE sos_requests
		SET status = $1, accepted_by = $2, updated_at = $3
		WHERE id = $4
		AND status IN ('pending', 'active')
	`
	result, err := r.db.ExecContext(ctx, query, model.SOSStatusAccepted, medicID, time.Now(), id)
	if err != nil {
		return 0, fmt.Errorf("failed to accept sos request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func (r *sosRepository) Resolve(ctx context.Context, id uuid.UUID, requireAcceptor *uuid.UUID) (int64, error) {
	query := `
		UPDATE sos_requests
		SET status = $1, resolved_at = $2, updated_at = $2
		WHERE id = $3
		AND status = 'accepted'
	`
	args := []interface{}{model.SOSStatusResolved, time.Now(), id}

	if requireAcceptor != nil {
		query += " AND accepted_by = $4"
		args = append(args, *requireAcceptor)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve sos request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func (r *sosRepository) HasOpenRequest(ctx context.Context, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM sos_requests
			WHERE user_id = $1
			AND status IN ('pending', 'active', 'accepted')
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID); err != nil {
		return false, fmt.Errorf("failed to check open requests: %w", err)
	}
	return exists, nil
}

func (r *sosRepository) LatestForUser(ctx context.Context, userID uuid.UUID) (*model.SOSRequest, error) {
	query := `
		SELECT ` + sosColumns + `
		FROM sos_requests
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var req model.SOSRequest
	if err := r.db.GetContext(ctx, &req, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get latest sos request: %w", err)
	}
	req.Status = model.NormalizeSOSStatus(string(req.Status))
	return &req, nil
}

func (r *sosRepository) ListRecent(ctx context.Context, limit int) ([]*model.SOSRequest, error) {
	query := `
		SELECT ` + sosColumns + `
		FROM sos_requests
		ORDER BY created_at DESC
		LIMIT $1
	`
	var reqs []*model.SOSRequest
	if err := r.db.SelectContext(ctx, &reqs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent sos requests: %w", err)
	}
	for _, req := range reqs {
		req.Status = model.NormalizeSOSStatus(string(req.Status))
	}
	return reqs, nil
}

// ListOpenWithinDistance runs the same haversine the in-process matcher
// computes, over micro-degree columns. Orderings must agree between the two.
func (r *sosRepository) ListOpenWithinDistance(ctx context.Context, lat, lon, radiusKm float64) ([]*model.SOSMatch, error) {
	query := `
		SELECT ` + sosColumns + `,
			6371 * 2 * asin(sqrt(
				power(sin(radians(latitude / 1e6 - $1) / 2), 2) +
				cos(radians($1)) * cos(radians(latitude / 1e6)) *
				power(sin(radians(longitude / 1e6 - $2) / 2), 2)
			)) AS distance_km
		FROM sos_requests
		WHERE status IN ('pending', 'active')
		AND 6371 * 2 * asin(sqrt(
			power(sin(radians(latitude / 1e6 - $1) / 2), 2) +
			cos(radians($1)) * cos(radians(latitude / 1e6)) *
			power(sin(radians(longitude / 1e6 - $2) / 2), 2)
		)) <= $3
		ORDER BY distance_km ASC, created_at ASC
	`
	var matches []*model.SOSMatch
	if err := r.db.SelectContext(ctx, &matches, query, lat, lon, radiusKm); err != nil {
		return nil, fmt.Errorf("failed to list nearby sos requests: %w", err)
	}
	for _, m := range matches {
		m.Status = model.NormalizeSOSStatus(string(m.Status))
	}
	return matches, nil
}
