package repository

import (
	"context"

	"chagok-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EvidenceRepository handles database operations for evidence records
type EvidenceRepository struct {
	db *pgxpool.Pool
}

// NewEvidenceRepository creates a new evidence repository
func NewEvidenceRepository(db *pgxpool.Pool) *EvidenceRepository {
	return &EvidenceRepository{db: db}
}

// Create creates a new evidence record
func (r *EvidenceRepository) Create(ctx context.Context, evidence *models.Evidence) error {
	query := `
		INSERT INTO evidence (
			id, case_id, type, status, filename, mime_type, size, storage_path
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING upload_date, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		evidence.ID,
		evidence.CaseID,
		evidence.Type,
		evidence.Status,
		evidence.Filename,
		evidence.MimeType,
		evidence.Size,
		evidence.StoragePath,
	).Scan(&evidence.UploadDate, &evidence.UpdatedAt)

	return err
}

// GetByID retrieves an evidence record by ID
func (r *EvidenceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Evidence, error) {
	evidence := &models.Evidence{}
	query := `
		SELECT id, case_id, type, status, filename, mime_type, size, storage_path,
			vector_ref, summary, labels, speaker, legal_tags, error_message,
			upload_date, updated_at
		FROM evidence
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&evidence.ID,
		&evidence.CaseID,
		&evidence.Type,
		&evidence.Status,
		&evidence.Filename,
		&evidence.MimeType,
		&evidence.Size,
		&evidence.StoragePath,
		&evidence.VectorRef,
		&evidence.Summary,
		&evidence.Labels,
		&evidence.Speaker,
		&evidence.LegalTags,
		&evidence.ErrorMessage,
		&evidence.UploadDate,
		&evidence.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return evidence, nil
}

// ListByCaseID retrieves all evidence records for a case, newest first
func (r *EvidenceRepository) ListByCaseID(ctx context.Context, caseID uuid.UUID) ([]*models.Evidence, error) {
	query := `
		SELECT id, case_id, type, status, filename, mime_type, size, storage_path,
			vector_ref, summary, labels, speaker, legal_tags, error_message,
			upload_date, updated_at
		FROM evidence
		WHERE case_id = $1
		ORDER BY upload_date DESC`

	rows, err := r.db.Query(ctx, query, caseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.Evidence
	for rows.Next() {
		evidence := &models.Evidence{}
		err := rows.Scan(
			&evidence.ID,
			&evidence.CaseID,
			&evidence.Type,
			&evidence.Status,
			&evidence.Filename,
			&evidence.MimeType,
			&evidence.Size,
			&evidence.StoragePath,
			&evidence.VectorRef,
			&evidence.Summary,
			&evidence.Labels,
			&evidence.Speaker,
			&evidence.LegalTags,
			&evidence.ErrorMessage,
			&evidence.UploadDate,
			&evidence.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, evidence)
	}

	return records, rows.Err()
}

// UpdateStatus moves an evidence record from one status to another.
// The update is conditional on the current status so a duplicated or
// out-of-order push cannot apply; it returns false when no row matched.
func (r *EvidenceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.EvidenceStatus) (bool, error) {
	query := `
		UPDATE evidence SET
			status = $3,
			updated_at = NOW()
		WHERE id = $1 AND status = $2`

	tag, err := r.db.Exec(ctx, query, id, from, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetAnalysis stores the analysis outcome for an evidence record as one
// atomic write: terminal status plus all AI-derived fields together.
func (r *EvidenceRepository) SetAnalysis(ctx context.Context, id uuid.UUID, to models.EvidenceStatus, summary *string, labels models.Labels, speaker *models.Speaker, legalTags models.LegalTags, vectorRef *string) (bool, error) {
	query := `
		UPDATE evidence SET
			status = $2,
			summary = $3,
			labels = $4,
			speaker = $5,
			legal_tags = $6,
			vector_ref = $7,
			error_message = NULL,
			updated_at = NOW()
		WHERE id = $1 AND status = $8`

	tag, err := r.db.Exec(ctx, query, id, to, summary, labels, speaker, legalTags, vectorRef, models.EvidenceStatusProcessing)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// SetFailure marks an evidence record as failed with an error message
func (r *EvidenceRepository) SetFailure(ctx context.Context, id uuid.UUID, errorMessage string) (bool, error) {
	query := `
		UPDATE evidence SET
			status = $2,
			error_message = $3,
			updated_at = NOW()
		WHERE id = $1 AND status = $4`

	tag, err := r.db.Exec(ctx, query, id, models.EvidenceStatusFailed, errorMessage, models.EvidenceStatusProcessing)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Delete deletes an evidence record
func (r *EvidenceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM evidence WHERE id = $1`
	_, err := r.db.Exec(ctx, query, id)
	return err
}
