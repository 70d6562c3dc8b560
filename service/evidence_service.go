package service

import (
	"context"
	"errors"
	"io"
	"log"

	"chagok-backend/models"
	"chagok-backend/repository"
	"chagok-backend/storage"

	"github.com/google/uuid"
)

// EvidenceService handles business logic for evidence records
type EvidenceService struct {
	evidenceRepo *repository.EvidenceRepository
	caseRepo     *repository.CaseRepository
	storage      storage.Storage
}

// EvidenceServiceOption is a functional option for EvidenceService
type EvidenceServiceOption func(*EvidenceService)

// WithEvidenceRepository sets the evidence repository
func WithEvidenceRepository(repo *repository.EvidenceRepository) EvidenceServiceOption {
	return func(s *EvidenceService) {
		s.evidenceRepo = repo
	}
}

// WithCaseRepository sets the case repository
func WithCaseRepository(repo *repository.CaseRepository) EvidenceServiceOption {
	return func(s *EvidenceService) {
		s.caseRepo = repo
	}
}

// WithStorage sets the artifact storage backend
func WithStorage(store storage.Storage) EvidenceServiceOption {
	return func(s *EvidenceService) {
		s.storage = store
	}
}

// NewEvidenceService creates a new evidence service
func NewEvidenceService(opts ...EvidenceServiceOption) *EvidenceService {
	s := &EvidenceService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	ErrCaseNotFound       = errors.New("case not found")
	ErrEvidenceNotFound   = errors.New("evidence not found")
	ErrInvalidEvidence    = errors.New("invalid evidence type")
	ErrEvidenceNotFailed  = errors.New("evidence is not in failed status")
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrArtifactStoreError = errors.New("failed to store evidence artifact")
)

// CreateEvidenceRequest represents a request to ingest a new evidence item
type CreateEvidenceRequest struct {
	CaseID   uuid.UUID
	Type     models.EvidenceType
	Filename string
	MimeType string
	Size     int64
	Data     io.Reader
}

// CreateEvidenceResult represents the result of ingesting evidence
type CreateEvidenceResult struct {
	Evidence *models.Evidence
}

// CreateEvidence stores the artifact and creates the evidence record.
// The record is created in uploading status and advanced to queued once
// the artifact write succeeds, so pollers observe the same lifecycle the
// analysis pipeline drives afterwards.
func (s *EvidenceService) CreateEvidence(ctx context.Context, req CreateEvidenceRequest) (*CreateEvidenceResult, error) {
	if s.evidenceRepo == nil {
		return nil, errors.New("evidence repository not set")
	}
	if s.caseRepo == nil {
		return nil, errors.New("case repository not set")
	}
	if s.storage == nil {
		return nil, errors.New("storage not set")
	}

	if !req.Type.IsValid() {
		return nil, ErrInvalidEvidence
	}

	if _, err := s.caseRepo.GetByID(ctx, req.CaseID); err != nil {
		return nil, ErrCaseNotFound
	}

	evidenceID := uuid.New()

	storagePath, err := s.storage.Upload(ctx, evidenceID, req.Filename, req.Data)
	if err != nil {
		return nil, ErrArtifactStoreError
	}

	evidence := &models.Evidence{
		ID:          evidenceID,
		CaseID:      req.CaseID,
		Type:        req.Type,
		Status:      models.EvidenceStatusUploading,
		Filename:    req.Filename,
		MimeType:    req.MimeType,
		Size:        req.Size,
		StoragePath: storagePath,
	}

	if err := s.evidenceRepo.Create(ctx, evidence); err != nil {
		// Record creation failed; remove the orphaned artifact
		if delErr := s.storage.Delete(ctx, storagePath); delErr != nil {
			log.Printf("Warning: Failed to clean up artifact %s: %v", storagePath, delErr)
		}
		return nil, err
	}

	// The artifact is durable, hand the record to the analysis queue
	applied, err := s.evidenceRepo.UpdateStatus(ctx, evidence.ID, models.EvidenceStatusUploading, models.EvidenceStatusQueued)
	if err != nil {
		return nil, err
	}
	if applied {
		evidence.Status = models.EvidenceStatusQueued
	}

	return &CreateEvidenceResult{Evidence: evidence}, nil
}

// ListEvidenceStatesRequest represents a request for a case's evidence states
type ListEvidenceStatesRequest struct {
	CaseID uuid.UUID
}

// ListEvidenceStatesResult represents the consolidated state fetch result
type ListEvidenceStatesResult struct {
	Evidence []*models.Evidence
}

// ListEvidenceStates returns every evidence record of a case in one batch.
// This is the endpoint the portal synchronizer polls.
func (s *EvidenceService) ListEvidenceStates(ctx context.Context, req ListEvidenceStatesRequest) (*ListEvidenceStatesResult, error) {
	if s.evidenceRepo == nil {
		return nil, errors.New("evidence repository not set")
	}

	records, err := s.evidenceRepo.ListByCaseID(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}

	return &ListEvidenceStatesResult{Evidence: records}, nil
}

// GetEvidenceRequest represents a request to get one evidence record
type GetEvidenceRequest struct {
	ID uuid.UUID
}

// GetEvidenceResult represents the result of getting one evidence record
type GetEvidenceResult struct {
	Evidence *models.Evidence
}

// GetEvidence retrieves an evidence record by ID
func (s *EvidenceService) GetEvidence(ctx context.Context, req GetEvidenceRequest) (*GetEvidenceResult, error) {
	if s.evidenceRepo == nil {
		return nil, errors.New("evidence repository not set")
	}

	evidence, err := s.evidenceRepo.GetByID(ctx, req.ID)
	if err != nil {
		return nil, ErrEvidenceNotFound
	}

	return &GetEvidenceResult{Evidence: evidence}, nil
}

// RetryEvidenceRequest represents a request to re-queue a failed item
type RetryEvidenceRequest struct {
	EvidenceID uuid.UUID
}

// RetryEvidenceResult reports the status after the retry was accepted
type RetryEvidenceResult struct {
	Status models.EvidenceStatus
}

// RetryEvidence moves a failed evidence record back onto the analysis
// queue. Only the failed -> queued retry edge is accepted; anything else
// is rejected before touching the record.
func (s *EvidenceService) RetryEvidence(ctx context.Context, req RetryEvidenceRequest) (*RetryEvidenceResult, error) {
	if s.evidenceRepo == nil {
		return nil, errors.New("evidence repository not set")
	}

	evidence, err := s.evidenceRepo.GetByID(ctx, req.EvidenceID)
	if err != nil {
		return nil, ErrEvidenceNotFound
	}

	if evidence.Status != models.EvidenceStatusFailed {
		return nil, ErrEvidenceNotFailed
	}

	applied, err := s.evidenceRepo.UpdateStatus(ctx, req.EvidenceID, models.EvidenceStatusFailed, models.EvidenceStatusQueued)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Status changed between read and write; treat as precondition failure
		return nil, ErrEvidenceNotFailed
	}

	return &RetryEvidenceResult{Status: models.EvidenceStatusQueued}, nil
}

// ClaimEvidenceRequest represents the analysis worker claiming a queued item
type ClaimEvidenceRequest struct {
	EvidenceID uuid.UUID
}

// ClaimEvidenceResult reports the status after the claim
type ClaimEvidenceResult struct {
	Status models.EvidenceStatus
}

// ClaimEvidence moves a queued record to processing on behalf of the
// analysis worker
func (s *EvidenceService) ClaimEvidence(ctx context.Context, req ClaimEvidenceRequest) (*ClaimEvidenceResult, error) {
	if s.evidenceRepo == nil {
		return nil, errors.New("evidence repository not set")
	}

	applied, err := s.evidenceRepo.UpdateStatus(ctx, req.EvidenceID, models.EvidenceStatusQueued, models.EvidenceStatusProcessing)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrInvalidTransition
	}

	return &ClaimEvidenceResult{Status: models.EvidenceStatusProcessing}, nil
}

// ApplyAnalysisRequest carries the analysis outcome pushed by the AI worker
type ApplyAnalysisRequest struct {
	EvidenceID   uuid.UUID
	Status       models.EvidenceStatus
	Summary      *string
	Labels       models.Labels
	Speaker      *models.Speaker
	LegalTags    models.LegalTags
	VectorRef    *string
	ErrorMessage *string
}

// ApplyAnalysisResult represents the stored outcome
type ApplyAnalysisResult struct {
	Status models.EvidenceStatus
}

// ApplyAnalysis stores the result of an analysis run. The target status
// must be reachable from processing; a duplicated or out-of-order push is
// rejected with ErrInvalidTransition and leaves the record untouched.
func (s *EvidenceService) ApplyAnalysis(ctx context.Context, req ApplyAnalysisRequest) (*ApplyAnalysisResult, error) {
	if s.evidenceRepo == nil {
		return nil, errors.New("evidence repository not set")
	}

	if !models.EvidenceStatusProcessing.CanTransitionTo(req.Status) {
		return nil, ErrInvalidTransition
	}

	var applied bool
	var err error
	if req.Status == models.EvidenceStatusFailed {
		message := "analysis failed"
		if req.ErrorMessage != nil {
			message = *req.ErrorMessage
		}
		applied, err = s.evidenceRepo.SetFailure(ctx, req.EvidenceID, message)
	} else {
		applied, err = s.evidenceRepo.SetAnalysis(ctx, req.EvidenceID, req.Status, req.Summary, req.Labels, req.Speaker, req.LegalTags, req.VectorRef)
	}
	if err != nil {
		return nil, err
	}
	if !applied {
		log.Printf("Warning: Dropped analysis push for evidence %s: record not in processing", req.EvidenceID)
		return nil, ErrInvalidTransition
	}

	return &ApplyAnalysisResult{Status: req.Status}, nil
}

// DeleteEvidenceRequest represents a request to delete an evidence record
type DeleteEvidenceRequest struct {
	EvidenceID uuid.UUID
}

// DeleteEvidenceResult represents the result of deleting evidence
type DeleteEvidenceResult struct{}

// DeleteEvidence removes the record and its stored artifact. Citations in
// previously generated drafts are left as-is; the portal resolves them to
// an unavailable placeholder.
func (s *EvidenceService) DeleteEvidence(ctx context.Context, req DeleteEvidenceRequest) (*DeleteEvidenceResult, error) {
	if s.evidenceRepo == nil {
		return nil, errors.New("evidence repository not set")
	}
	if s.storage == nil {
		return nil, errors.New("storage not set")
	}

	evidence, err := s.evidenceRepo.GetByID(ctx, req.EvidenceID)
	if err != nil {
		return nil, ErrEvidenceNotFound
	}

	if err := s.storage.Delete(ctx, evidence.StoragePath); err != nil {
		log.Printf("Warning: Failed to delete artifact %s: %v", evidence.StoragePath, err)
	}

	if err := s.evidenceRepo.Delete(ctx, req.EvidenceID); err != nil {
		return nil, err
	}

	return &DeleteEvidenceResult{}, nil
}
