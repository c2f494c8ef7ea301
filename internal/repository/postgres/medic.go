package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/TANKominator5/crowdmedics-api/internal/model"
	"github.com/TANKominator5/crowdmedics-api/internal/repository"
)

type medicRepository struct {
	*BaseRepository
}

func NewMedicRepository(base BaseRepository) repository.MedicRepository {
	return &medicRepository{
		BaseRepository: &base,
	}
}

// COALESCE guards against pre-migration rows where pending was stored as NULL.
const medicColumns = `
	id, user_id, email, name, phone, qualification,
	gov_registration_type, gov_registration_number, gov_registration_document_url,
	gov_employer, gov_id_card_number, servable_region,
	latitude, longitude, COALESCE(status, '') AS status, created_at, updated_at
`

func (r *medicRepository) Upsert(ctx context.Context, medic *model.Medic) error {
	query := `
		INSERT INTO medics (
			id, user_id, email, name, phone, qualification,
			gov_registration_type, gov_registration_number, gov_registration_document_url,
			gov_employer, gov_id_card_number, servable_region,
			latitude, longitude, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			qualification = EXCLUDED.qualification,
			gov_registration_type = EXCLUDED.gov_registration_type,
			gov_registration_number = EXCLUDED.gov_registration_number,
			gov_registration_document_url = EXCLUDED.gov_registration_document_url,
			gov_employer = EXCLUDED.gov_employer,
			gov_id_card_number = EXCLUDED.gov_id_card_number,
			servable_region = EXCLUDED.servable_region,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			updated_at = EXCLUDED.updated_at
	`
	if medic.ID == uuid.Nil {
		medic.ID = uuid.New()
	}
	now := time.Now()
	if medic.CreatedAt.IsZero() {
		medic.CreatedAt = now
	}
	medic.UpdatedAt = now
	if medic.Status == "" {
		medic.Status = model.VerificationPending
	}

	_, err := r.db.ExecContext(ctx, query,
		medic.ID,
		medic.UserID,
		medic.Email,
		medic.Name,
		medic.Phone,
		medic.Qualification,
		medic.GovRegistrationType,
		medic.GovRegistrationNumber,
		medic.GovRegistrationDocumentURL,
		medic.GovEmployer,
		medic.GovIDCardNumber,
		medic.ServableRegion,
		medic.Latitude,
		medic.Longitude,
		medic.Status,
		medic.CreatedAt,
		medic.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert medic: %w", err)
	}
	return nil
}

func (r *medicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Medic, error) {
	query := `SELECT ` + medicColumns + ` FROM medics WHERE id = $1`
	var medic model.Medic
	if err := r.db.GetContext(ctx, &medic, query, id); err != nil {
		return nil, fmt.Errorf("failed to get medic: %w", err)
	}
	normalizeMedic(&medic)
	return &medic, nil
}

func (r *medicRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Medic, error) {
	query := `SELECT ` + medicColumns + ` FROM medics WHERE user_id = $1`
	var medic model.Medic
	if err := r.db.GetContext(ctx, &medic, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get medic by user: %w", err)
	}
	normalizeMedic(&medic)
	return &medic, nil
}

func (r *medicRepository) List(ctx context.Context) ([]*model.Medic, error) {
	query := `SELECT ` + medicColumns + ` FROM medics ORDER BY created_at DESC`
	var medics []*model.Medic
	if err := r.db.SelectContext(ctx, &medics, query); err != nil {
		return nil, fmt.Errorf("failed to list medics: %w", err)
	}
	normalizeMedics(medics)
	return medics, nil
}

func (r *medicRepository) ListByStatus(ctx context.Context, status model.VerificationStatus) ([]*model.Medic, error) {
	// Legacy encodings still present in old rows map onto the canonical
	// values, so the filter has to match both spellings.
	query := `SELECT ` + medicColumns + ` FROM medics WHERE `
	switch status {
	case model.VerificationVerified:
		query += `status IN ('verified', 'true')`
	case model.VerificationRejected:
		query += `status IN ('rejected', 'false')`
	default:
		query += `(status IS NULL OR status IN ('', 'pending'))`
	}
	query += ` ORDER BY created_at DESC`

	var medics []*model.Medic
	if err := r.db.SelectContext(ctx, &medics, query); err != nil {
		return nil, fmt.Errorf("failed to list medics by status: %w", err)
	}
	normalizeMedics(medics)
	return medics, nil
}

func (r *medicRepository) ListVerifiedWithLocation(ctx context.Context) ([]*model.Medic, error) {
	query := `
		SELECT ` + medicColumns + `
		FROM medics
		WHERE status IN ('verified', 'true')
		AND latitude IS NOT NULL
		AND longitude IS NOT NULL
	`
	var medics []*model.Medic
	if err := r.db.SelectContext(ctx, &medics, query); err != nil {
		return nil, fmt.Errorf("failed to list verified medics: %w", err)
	}
	normalizeMedics(medics)
	return medics, nil
}

func (r *medicRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.VerificationStatus) (int64, error) {
	query := `
		UPDATE medics
		SET status = $1, updated_at = $2
		WHERE id = $3
		AND (status IS NULL OR status IN ('', 'pending'))
	`
	if from != model.VerificationPending {
		// No transition out of a terminal state is defined.
		return 0, fmt.Errorf("unsupported transition from %s", from)
	}

	result, err := r.db.ExecContext(ctx, query, to, time.Now(), id)
	if err != nil {
		return 0, fmt.Errorf("failed to update medic status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func normalizeMedic(m *model.Medic) {
	m.Status = model.NormalizeVerificationStatus(string(m.Status))
}

func normalizeMedics(medics []*model.Medic) {
	for _, m := range medics {
		normalizeMedic(m)
	}
}
