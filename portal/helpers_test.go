package portal

import (
	"context"
	"sync"
	"time"

	"chagok-backend/models"

	"github.com/google/uuid"
)

// fakeAPI is a scriptable EvidenceAPI for tests. Each method delegates
// to the corresponding function field and counts its calls.
type fakeAPI struct {
	mu            sync.Mutex
	fetchCalls    int
	retryCalls    int
	generateCalls int
	deleteCalls   int

	fetchFn    func(ctx context.Context, caseID uuid.UUID) ([]*models.Evidence, error)
	retryFn    func(ctx context.Context, evidenceID uuid.UUID) (models.EvidenceStatus, error)
	generateFn func(ctx context.Context, caseID uuid.UUID, evidenceIDs []uuid.UUID) (*models.DraftState, error)
	deleteFn   func(ctx context.Context, evidenceID uuid.UUID) error
}

func (f *fakeAPI) FetchEvidenceStates(ctx context.Context, caseID uuid.UUID) ([]*models.Evidence, error) {
	f.mu.Lock()
	f.fetchCalls++
	fn := f.fetchFn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx, caseID)
}

func (f *fakeAPI) RetryEvidence(ctx context.Context, evidenceID uuid.UUID) (models.EvidenceStatus, error) {
	f.mu.Lock()
	f.retryCalls++
	fn := f.retryFn
	f.mu.Unlock()
	if fn == nil {
		return models.EvidenceStatusQueued, nil
	}
	return fn(ctx, evidenceID)
}

func (f *fakeAPI) GenerateDraft(ctx context.Context, caseID uuid.UUID, evidenceIDs []uuid.UUID) (*models.DraftState, error) {
	f.mu.Lock()
	f.generateCalls++
	fn := f.generateFn
	f.mu.Unlock()
	if fn == nil {
		return &models.DraftState{}, nil
	}
	return fn(ctx, caseID, evidenceIDs)
}

func (f *fakeAPI) DeleteEvidence(ctx context.Context, evidenceID uuid.UUID) error {
	f.mu.Lock()
	f.deleteCalls++
	fn := f.deleteFn
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(ctx, evidenceID)
}

func (f *fakeAPI) calls() (fetch, retry, generate, del int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.retryCalls, f.generateCalls, f.deleteCalls
}

func newEvidence(caseID uuid.UUID, status models.EvidenceStatus) *models.Evidence {
	now := time.Now()
	return &models.Evidence{
		ID:         uuid.New(),
		CaseID:     caseID,
		Type:       models.EvidenceTypeText,
		Status:     status,
		Filename:   "chat-export.txt",
		MimeType:   "text/plain",
		Size:       2048,
		UploadDate: now,
		UpdatedAt:  now,
	}
}

// withStatus returns a copy of the record reporting a new status, the
// shape of a backend state update
func withStatus(evidence *models.Evidence, status models.EvidenceStatus) *models.Evidence {
	update := *evidence
	update.Status = status
	return &update
}
