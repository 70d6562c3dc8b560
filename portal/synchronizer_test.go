package portal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chagok-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynchronizerAdvancesEvidenceToTerminal(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)
	evidence := newEvidence(caseID, models.EvidenceStatusUploading)
	store.Put(evidence)

	// The backend reports one step further on each poll.
	script := []models.EvidenceStatus{
		models.EvidenceStatusQueued,
		models.EvidenceStatusProcessing,
		models.EvidenceStatusCompleted,
	}
	var mu sync.Mutex
	step := 0
	api := &fakeAPI{
		fetchFn: func(ctx context.Context, gotCase uuid.UUID) ([]*models.Evidence, error) {
			assert.Equal(t, caseID, gotCase)
			mu.Lock()
			status := script[step]
			if step < len(script)-1 {
				step++
			}
			mu.Unlock()
			return []*models.Evidence{withStatus(evidence, status)}, nil
		},
	}

	s := NewSynchronizer(api, store, WithInterval(5*time.Millisecond))
	s.Start()

	require.Eventually(t, func() bool {
		return !s.Running()
	}, time.Second, 5*time.Millisecond, "synchronizer should stop once all records are terminal")

	got, ok := store.Get(evidence.ID)
	require.True(t, ok)
	assert.Equal(t, models.EvidenceStatusCompleted, got.Status)

	fetches, _, _, _ := api.calls()
	assert.GreaterOrEqual(t, fetches, 3)
}

func TestSynchronizerStartNoopWhenAllTerminal(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)
	store.Put(newEvidence(caseID, models.EvidenceStatusCompleted))

	api := &fakeAPI{}
	s := NewSynchronizer(api, store, WithInterval(5*time.Millisecond))
	s.Start()

	assert.False(t, s.Running())
	fetches, _, _, _ := api.calls()
	assert.Zero(t, fetches)
}

func TestSynchronizerStartIsIdempotent(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)
	store.Put(newEvidence(caseID, models.EvidenceStatusProcessing))

	blocked := make(chan struct{})
	api := &fakeAPI{
		fetchFn: func(ctx context.Context, _ uuid.UUID) ([]*models.Evidence, error) {
			select {
			case blocked <- struct{}{}:
			default:
			}
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}

	s := NewSynchronizer(api, store, WithInterval(5*time.Millisecond))
	s.Start()
	<-blocked
	s.Start()
	s.Start()
	defer s.Stop()

	fetches, _, _, _ := api.calls()
	assert.Equal(t, 1, fetches, "repeated Start must not spawn extra poll loops")
}

func TestSynchronizerStopDiscardsInFlightResponse(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)
	evidence := newEvidence(caseID, models.EvidenceStatusQueued)
	store.Put(evidence)

	started := make(chan struct{})
	api := &fakeAPI{
		fetchFn: func(ctx context.Context, _ uuid.UUID) ([]*models.Evidence, error) {
			close(started)
			// Simulate a response arriving after the view was left.
			<-ctx.Done()
			return []*models.Evidence{withStatus(evidence, models.EvidenceStatusProcessing)}, nil
		},
	}

	s := NewSynchronizer(api, store, WithInterval(time.Minute))
	s.Start()
	<-started
	s.Stop()

	got, ok := store.Get(evidence.ID)
	require.True(t, ok)
	assert.Equal(t, models.EvidenceStatusQueued, got.Status, "a response racing Stop must not be applied")
	assert.False(t, s.Running())
}

func TestSynchronizerTransientErrorKeepsPolling(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)
	evidence := newEvidence(caseID, models.EvidenceStatusProcessing)
	store.Put(evidence)

	var mu sync.Mutex
	failures := 0
	api := &fakeAPI{
		fetchFn: func(ctx context.Context, _ uuid.UUID) ([]*models.Evidence, error) {
			mu.Lock()
			defer mu.Unlock()
			if failures < 2 {
				failures++
				return nil, errors.New("backend unavailable")
			}
			return []*models.Evidence{withStatus(evidence, models.EvidenceStatusCompleted)}, nil
		},
	}

	var hookMu sync.Mutex
	var hookErrs []error
	s := NewSynchronizer(api, store,
		WithInterval(5*time.Millisecond),
		WithErrorHook(func(err error) {
			hookMu.Lock()
			hookErrs = append(hookErrs, err)
			hookMu.Unlock()
		}))
	s.Start()

	require.Eventually(t, func() bool {
		return !s.Running()
	}, time.Second, 5*time.Millisecond)

	got, ok := store.Get(evidence.ID)
	require.True(t, ok)
	assert.Equal(t, models.EvidenceStatusCompleted, got.Status)

	hookMu.Lock()
	defer hookMu.Unlock()
	assert.Len(t, hookErrs, 2, "each transient failure surfaces through the hook")
}

func TestSynchronizerRestartsAfterAutoStop(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)
	first := newEvidence(caseID, models.EvidenceStatusProcessing)
	store.Put(first)

	api := &fakeAPI{
		fetchFn: func(ctx context.Context, _ uuid.UUID) ([]*models.Evidence, error) {
			var out []*models.Evidence
			for _, evidence := range store.List() {
				switch evidence.Status {
				case models.EvidenceStatusProcessing:
					out = append(out, withStatus(evidence, models.EvidenceStatusCompleted))
				case models.EvidenceStatusQueued:
					out = append(out, withStatus(evidence, models.EvidenceStatusProcessing))
				default:
					out = append(out, evidence)
				}
			}
			return out, nil
		},
	}

	s := NewSynchronizer(api, store, WithInterval(5*time.Millisecond))
	s.Start()
	require.Eventually(t, func() bool { return !s.Running() }, time.Second, 5*time.Millisecond)

	// A fresh upload brings new non-terminal work; Start must spin the
	// loop back up.
	second := newEvidence(caseID, models.EvidenceStatusQueued)
	store.Put(second)
	s.Start()

	require.Eventually(t, func() bool {
		got, ok := store.Get(second.ID)
		return ok && got.Status == models.EvidenceStatusCompleted && !s.Running()
	}, time.Second, 5*time.Millisecond)
}
