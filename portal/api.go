// Package portal implements the client-side evidence lifecycle for a
// case view: the in-memory evidence record store, the status
// synchronizer that polls the backend, the retry controller for failed
// items, the draft composer and the citation linker. The backend is
// reached only through the EvidenceAPI interface; client provides the
// HTTP implementation.
package portal

import (
	"context"

	"chagok-backend/models"

	"github.com/google/uuid"
)

// EvidenceAPI is the backend contract the portal consumes
type EvidenceAPI interface {
	// FetchEvidenceStates returns the authoritative state of every
	// evidence record in the case in one batch
	FetchEvidenceStates(ctx context.Context, caseID uuid.UUID) ([]*models.Evidence, error)

	// RetryEvidence re-queues a failed evidence item and reports the
	// resulting status
	RetryEvidence(ctx context.Context, evidenceID uuid.UUID) (models.EvidenceStatus, error)

	// GenerateDraft produces a draft citing the selected evidence
	GenerateDraft(ctx context.Context, caseID uuid.UUID, evidenceIDs []uuid.UUID) (*models.DraftState, error)

	// DeleteEvidence removes an evidence record and its artifact
	DeleteEvidence(ctx context.Context, evidenceID uuid.UUID) error
}
