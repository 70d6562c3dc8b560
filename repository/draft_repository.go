package repository

import (
	"context"

	"chagok-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DraftRepository handles database operations for generated drafts
type DraftRepository struct {
	db *pgxpool.Pool
}

// NewDraftRepository creates a new draft repository
func NewDraftRepository(db *pgxpool.Pool) *DraftRepository {
	return &DraftRepository{db: db}
}

// Replace stores a newly generated draft as the current draft for its
// case, removing any previous one. Text and citations are written in the
// same statement so a reader never sees a mismatched pair.
func (r *DraftRepository) Replace(ctx context.Context, draft *models.Draft) error {
	query := `
		INSERT INTO drafts (case_id, draft_text, citations)
		VALUES ($1, $2, $3)
		ON CONFLICT (case_id) DO UPDATE SET
			draft_text = EXCLUDED.draft_text,
			citations = EXCLUDED.citations,
			created_at = NOW()
		RETURNING id, created_at`

	err := r.db.QueryRow(
		ctx, query,
		draft.CaseID,
		draft.DraftText,
		draft.Citations,
	).Scan(&draft.ID, &draft.CreatedAt)

	return err
}

// GetByCaseID retrieves the current draft for a case
func (r *DraftRepository) GetByCaseID(ctx context.Context, caseID uuid.UUID) (*models.Draft, error) {
	draft := &models.Draft{}
	query := `
		SELECT id, case_id, draft_text, citations, created_at
		FROM drafts
		WHERE case_id = $1`

	err := r.db.QueryRow(ctx, query, caseID).Scan(
		&draft.ID,
		&draft.CaseID,
		&draft.DraftText,
		&draft.Citations,
		&draft.CreatedAt,
	)

	if err != nil {
		return nil, err
	}

	// Ensure Citations is never nil (safeguard in case Scan didn't handle NULL properly)
	if draft.Citations == nil {
		draft.Citations = make(models.Citations, 0)
	}

	return draft, nil
}
