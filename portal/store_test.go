package portal

import (
	"testing"
	"time"

	"chagok-backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreApplyTransitions(t *testing.T) {
	caseID := uuid.New()

	tests := []struct {
		name        string
		current     models.EvidenceStatus
		update      models.EvidenceStatus
		wantChanged bool
		wantStatus  models.EvidenceStatus
	}{
		{"uploading to queued", models.EvidenceStatusUploading, models.EvidenceStatusQueued, true, models.EvidenceStatusQueued},
		{"queued to processing", models.EvidenceStatusQueued, models.EvidenceStatusProcessing, true, models.EvidenceStatusProcessing},
		{"processing to completed", models.EvidenceStatusProcessing, models.EvidenceStatusCompleted, true, models.EvidenceStatusCompleted},
		{"processing to review_needed", models.EvidenceStatusProcessing, models.EvidenceStatusReviewNeeded, true, models.EvidenceStatusReviewNeeded},
		{"processing to failed", models.EvidenceStatusProcessing, models.EvidenceStatusFailed, true, models.EvidenceStatusFailed},
		{"failed to queued on retry", models.EvidenceStatusFailed, models.EvidenceStatusQueued, true, models.EvidenceStatusQueued},
		{"duplicate status is a no-op", models.EvidenceStatusProcessing, models.EvidenceStatusProcessing, false, models.EvidenceStatusProcessing},
		{"stale queued after processing dropped", models.EvidenceStatusProcessing, models.EvidenceStatusQueued, false, models.EvidenceStatusProcessing},
		{"completed cannot regress", models.EvidenceStatusCompleted, models.EvidenceStatusProcessing, false, models.EvidenceStatusCompleted},
		{"completed cannot fail", models.EvidenceStatusCompleted, models.EvidenceStatusFailed, false, models.EvidenceStatusCompleted},
		{"queued cannot skip to completed", models.EvidenceStatusQueued, models.EvidenceStatusCompleted, false, models.EvidenceStatusQueued},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(caseID)
			evidence := newEvidence(caseID, tt.current)
			store.Put(evidence)

			changed := store.Apply(withStatus(evidence, tt.update))
			assert.Equal(t, tt.wantChanged, changed)

			got, ok := store.Get(evidence.ID)
			require.True(t, ok)
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}
}

func TestStoreApplyAdoptsUnknownRecord(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)

	evidence := newEvidence(caseID, models.EvidenceStatusProcessing)
	require.True(t, store.Apply(evidence))

	got, ok := store.Get(evidence.ID)
	require.True(t, ok)
	assert.Equal(t, models.EvidenceStatusProcessing, got.Status)
}

func TestStoreApplyDropsWrongCase(t *testing.T) {
	store := NewStore(uuid.New())

	stray := newEvidence(uuid.New(), models.EvidenceStatusQueued)
	assert.False(t, store.Apply(stray))

	_, ok := store.Get(stray.ID)
	assert.False(t, ok)
}

func TestStoreApplyCarriesAnalysisWithTerminalTransition(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)

	evidence := newEvidence(caseID, models.EvidenceStatusProcessing)
	store.Put(evidence)

	summary := "Threatening messages sent on the night of the incident"
	speaker := models.SpeakerDefendant
	update := withStatus(evidence, models.EvidenceStatusCompleted)
	update.Summary = &summary
	update.Speaker = &speaker
	update.Labels = models.Labels{"threat", "late-night"}
	update.LegalTags = models.LegalTags{{Category: "verbal_abuse", Confidence: 0.91, Keywords: []string{"threat"}}}

	require.True(t, store.Apply(update))

	got, ok := store.Get(evidence.ID)
	require.True(t, ok)
	assert.Equal(t, models.EvidenceStatusCompleted, got.Status)
	require.NotNil(t, got.Summary)
	assert.Equal(t, summary, *got.Summary)
	require.NotNil(t, got.Speaker)
	assert.Equal(t, models.SpeakerDefendant, *got.Speaker)
	assert.Len(t, got.Labels, 2)
	assert.Len(t, got.LegalTags, 1)
}

func TestStoreApplyAllSkipsInvalidEntriesIndividually(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)

	a := newEvidence(caseID, models.EvidenceStatusQueued)
	b := newEvidence(caseID, models.EvidenceStatusCompleted)
	store.Put(a)
	store.Put(b)

	updates := []*models.Evidence{
		withStatus(a, models.EvidenceStatusProcessing),
		withStatus(b, models.EvidenceStatusQueued), // illegal, dropped
		newEvidence(uuid.New(), models.EvidenceStatusQueued), // wrong case, dropped
	}
	assert.Equal(t, 1, store.ApplyAll(updates))

	gotA, _ := store.Get(a.ID)
	gotB, _ := store.Get(b.ID)
	assert.Equal(t, models.EvidenceStatusProcessing, gotA.Status)
	assert.Equal(t, models.EvidenceStatusCompleted, gotB.Status)
}

func TestStoreListNewestFirst(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)

	old := newEvidence(caseID, models.EvidenceStatusCompleted)
	old.UploadDate = time.Now().Add(-time.Hour)
	recent := newEvidence(caseID, models.EvidenceStatusQueued)
	store.Put(old)
	store.Put(recent)

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, recent.ID, list[0].ID)
	assert.Equal(t, old.ID, list[1].ID)
}

func TestStoreHasNonTerminal(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)
	assert.False(t, store.HasNonTerminal())

	evidence := newEvidence(caseID, models.EvidenceStatusProcessing)
	store.Put(evidence)
	assert.True(t, store.HasNonTerminal())

	store.Apply(withStatus(evidence, models.EvidenceStatusCompleted))
	assert.False(t, store.HasNonTerminal())

	failed := newEvidence(caseID, models.EvidenceStatusFailed)
	store.Put(failed)
	assert.False(t, store.HasNonTerminal(), "failed is terminal until an explicit retry")
}

func TestStoreRemove(t *testing.T) {
	caseID := uuid.New()
	store := NewStore(caseID)

	evidence := newEvidence(caseID, models.EvidenceStatusCompleted)
	store.Put(evidence)
	store.Remove(evidence.ID)

	_, ok := store.Get(evidence.ID)
	assert.False(t, ok)
}
