package repository

import (
	"context"

	"chagok-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CaseRepository handles database operations for cases
type CaseRepository struct {
	db *pgxpool.Pool
}

// NewCaseRepository creates a new case repository
func NewCaseRepository(db *pgxpool.Pool) *CaseRepository {
	return &CaseRepository{db: db}
}

// Create creates a new case
func (r *CaseRepository) Create(ctx context.Context, legalCase *models.Case) error {
	query := `
		INSERT INTO cases (user_id, status, title, client_name)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		legalCase.UserID,
		legalCase.Status,
		legalCase.Title,
		legalCase.ClientName,
	).Scan(&legalCase.ID, &legalCase.CreatedAt, &legalCase.UpdatedAt)

	return err
}

// GetByID retrieves a case by ID
func (r *CaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	legalCase := &models.Case{}
	query := `
		SELECT id, user_id, status, title, client_name, created_at, updated_at
		FROM cases
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&legalCase.ID,
		&legalCase.UserID,
		&legalCase.Status,
		&legalCase.Title,
		&legalCase.ClientName,
		&legalCase.CreatedAt,
		&legalCase.UpdatedAt,
	)

	if err != nil {
		return nil, err
	}

	return legalCase, nil
}

// ListByUserID retrieves all cases for a user, newest first
func (r *CaseRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Case, error) {
	query := `
		SELECT id, user_id, status, title, client_name, created_at, updated_at
		FROM cases
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []*models.Case
	for rows.Next() {
		legalCase := &models.Case{}
		err := rows.Scan(
			&legalCase.ID,
			&legalCase.UserID,
			&legalCase.Status,
			&legalCase.Title,
			&legalCase.ClientName,
			&legalCase.CreatedAt,
			&legalCase.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		cases = append(cases, legalCase)
	}

	return cases, rows.Err()
}
