package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"chagok-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryRequeuesFailedEvidence(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)

	msg := "transcription timed out"
	evidence := newEvidence(caseID, models.EvidenceStatusFailed)
	evidence.ErrorMessage = &msg
	store.Put(evidence)

	api := &fakeAPI{
		fetchFn: func(ctx context.Context, _ uuid.UUID) ([]*models.Evidence, error) {
			current, _ := store.Get(evidence.ID)
			switch current.Status {
			case models.EvidenceStatusQueued:
				return []*models.Evidence{withStatus(current, models.EvidenceStatusProcessing)}, nil
			case models.EvidenceStatusProcessing:
				return []*models.Evidence{withStatus(current, models.EvidenceStatusCompleted)}, nil
			}
			return []*models.Evidence{current}, nil
		},
	}
	s := NewSynchronizer(api, store, WithInterval(5*time.Millisecond))
	controller := NewRetryController(api, store, s)

	require.NoError(t, controller.Retry(context.Background(), evidence.ID))

	got, ok := store.Get(evidence.ID)
	require.True(t, ok)
	assert.Equal(t, models.EvidenceStatusQueued, got.Status)
	assert.Nil(t, got.ErrorMessage, "a re-queued item carries no stale error")

	// The retry restarts polling and the item runs the pipeline again.
	require.Eventually(t, func() bool {
		got, ok := store.Get(evidence.ID)
		return ok && got.Status == models.EvidenceStatusCompleted
	}, time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestRetryPreconditions(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)

	processing := newEvidence(caseID, models.EvidenceStatusProcessing)
	completed := newEvidence(caseID, models.EvidenceStatusCompleted)
	store.Put(processing)
	store.Put(completed)

	api := &fakeAPI{}
	controller := NewRetryController(api, store, nil)

	tests := []struct {
		name    string
		id      uuid.UUID
		wantErr error
	}{
		{"unknown evidence", uuid.New(), ErrUnknownEvidence},
		{"processing evidence", processing.ID, ErrRetryNotFailed},
		{"completed evidence", completed.ID, ErrRetryNotFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := controller.Retry(context.Background(), tt.id)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, retries, _, _ := api.calls()
	assert.Zero(t, retries, "rejected retries must not reach the backend")
}

func TestRetryConcurrentCallsCollapseToOneRequest(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)
	evidence := newEvidence(caseID, models.EvidenceStatusFailed)
	store.Put(evidence)

	entered := make(chan struct{})
	release := make(chan struct{})
	api := &fakeAPI{
		retryFn: func(ctx context.Context, _ uuid.UUID) (models.EvidenceStatus, error) {
			close(entered)
			<-release
			return models.EvidenceStatusQueued, nil
		},
	}
	controller := NewRetryController(api, store, nil)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- controller.Retry(context.Background(), evidence.ID)
	}()
	<-entered

	assert.True(t, controller.InFlight(evidence.ID))
	assert.ErrorIs(t, controller.Retry(context.Background(), evidence.ID), ErrRetryInFlight)

	close(release)
	require.NoError(t, <-firstDone)
	assert.False(t, controller.InFlight(evidence.ID))

	_, retries, _, _ := api.calls()
	assert.Equal(t, 1, retries, "duplicate taps must produce exactly one request")
}

func TestRetryFailureLeavesEvidenceFailed(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)

	msg := "vision model rejected the image"
	evidence := newEvidence(caseID, models.EvidenceStatusFailed)
	evidence.ErrorMessage = &msg
	store.Put(evidence)

	api := &fakeAPI{
		retryFn: func(ctx context.Context, _ uuid.UUID) (models.EvidenceStatus, error) {
			return "", errors.New("backend unavailable")
		},
	}
	controller := NewRetryController(api, store, nil)

	err := controller.Retry(context.Background(), evidence.ID)
	require.Error(t, err)

	got, ok := store.Get(evidence.ID)
	require.True(t, ok)
	assert.Equal(t, models.EvidenceStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, msg, *got.ErrorMessage)
	assert.False(t, controller.InFlight(evidence.ID), "a failed retry must be retryable again")
}
