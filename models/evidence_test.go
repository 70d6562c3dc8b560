package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvidenceStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    EvidenceStatus
		to      EvidenceStatus
		allowed bool
	}{
		{name: "uploading to queued", from: EvidenceStatusUploading, to: EvidenceStatusQueued, allowed: true},
		{name: "queued to processing", from: EvidenceStatusQueued, to: EvidenceStatusProcessing, allowed: true},
		{name: "processing to review_needed", from: EvidenceStatusProcessing, to: EvidenceStatusReviewNeeded, allowed: true},
		{name: "processing to completed", from: EvidenceStatusProcessing, to: EvidenceStatusCompleted, allowed: true},
		{name: "processing to failed", from: EvidenceStatusProcessing, to: EvidenceStatusFailed, allowed: true},
		{name: "retry edge failed to queued", from: EvidenceStatusFailed, to: EvidenceStatusQueued, allowed: true},
		{name: "no skipping upload to processing", from: EvidenceStatusUploading, to: EvidenceStatusProcessing, allowed: false},
		{name: "no backward completed to processing", from: EvidenceStatusCompleted, to: EvidenceStatusProcessing, allowed: false},
		{name: "no backward processing to queued", from: EvidenceStatusProcessing, to: EvidenceStatusQueued, allowed: false},
		{name: "completed is never reprocessed", from: EvidenceStatusCompleted, to: EvidenceStatusQueued, allowed: false},
		{name: "review_needed is never reprocessed", from: EvidenceStatusReviewNeeded, to: EvidenceStatusQueued, allowed: false},
		{name: "failed cannot jump to completed", from: EvidenceStatusFailed, to: EvidenceStatusCompleted, allowed: false},
		{name: "self transition is not an edge", from: EvidenceStatusProcessing, to: EvidenceStatusProcessing, allowed: false},
		{name: "unknown status has no edges", from: EvidenceStatus("deleted"), to: EvidenceStatusQueued, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestEvidenceStatusIsTerminal(t *testing.T) {
	terminal := []EvidenceStatus{EvidenceStatusReviewNeeded, EvidenceStatusCompleted, EvidenceStatusFailed}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "expected %s to be terminal", s)
	}

	nonTerminal := []EvidenceStatus{EvidenceStatusUploading, EvidenceStatusQueued, EvidenceStatusProcessing}
	for _, s := range nonTerminal {
		assert.False(t, s.IsTerminal(), "expected %s to be non-terminal", s)
	}
}

func TestEvidenceTypeMeta(t *testing.T) {
	// every declared type must have display metadata
	for _, typ := range []EvidenceType{EvidenceTypeText, EvidenceTypeImage, EvidenceTypeAudio, EvidenceTypeVideo, EvidenceTypePDF} {
		meta, ok := typ.Meta()
		assert.True(t, ok, "missing meta for %s", typ)
		assert.NotEmpty(t, meta.Icon)
		assert.NotEmpty(t, meta.Label)
	}

	_, ok := EvidenceType("spreadsheet").Meta()
	assert.False(t, ok)
	assert.False(t, EvidenceType("spreadsheet").IsValid())
	assert.True(t, EvidenceTypePDF.IsValid())
}
