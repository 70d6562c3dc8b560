package models

import (
	"time"

	"github.com/google/uuid"
)

// CaseStatus represents the status of a legal case
type CaseStatus string

const (
	CaseStatusOpen     CaseStatus = "open"
	CaseStatusClosed   CaseStatus = "closed"
	CaseStatusArchived CaseStatus = "archived"
)

// Case represents a divorce case: the organizing unit that holds evidence
// and at most one current draft
type Case struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	Status     CaseStatus `json:"status"`
	Title      string     `json:"title"`
	ClientName string     `json:"client_name"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
