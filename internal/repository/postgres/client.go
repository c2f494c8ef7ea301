package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TANKominator5/crowdmedics-api/internal/model"
	"github.com/TANKominator5/crowdmedics-api/internal/repository"
)

type clientRepository struct {
	*BaseRepository
}

func NewClientRepository(base BaseRepository) repository.ClientRepository {
	return &clientRepository{
		BaseRepository: &base,
	}
}

func (r *clientRepository) Upsert(ctx context.Context, client *model.Client) error {
	query := `
		INSERT INTO clients (id, user_id, email, phone, region, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			region = EXCLUDED.region,
			updated_at = EXCLUDED.updated_at
	`
	if client.ID == uuid.Nil {
		client.ID = uuid.New()
	}
	now := time.Now()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	client.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		client.ID,
		client.UserID,
		client.Email,
		client.Phone,
		client.Region,
		client.CreatedAt,
		client.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert client: %w", err)
	}
	return nil
}

func (r *clientRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Client, error) {
	query := `
		SELECT id, user_id, email, phone, region, created_at, updated_at
		FROM clients
		WHERE user_id = $1
	`
	var client model.Client
	if err := r.db.GetContext(ctx, &client, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}

func (r *clientRepository) List(ctx context.Context) ([]*model.Client, error) {
	query := `
		SELECT id, user_id, email, phone, region, created_at, updated_at
		FROM clients
		ORDER BY created_at DESC
	`
	var clients []*model.Client
	if err := r.db.SelectContext(ctx, &clients, query); err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}
