package portal

import (
	"context"
	"errors"
	"sync"

	"chagok-backend/models"

	"github.com/google/uuid"
)

var (
	ErrEmptySelection     = errors.New("draft generation requires a non-empty selection")
	ErrGenerationInFlight = errors.New("a draft generation is already in flight for this case")
)

// DraftPhase is the tagged state of a case's draft slot
type DraftPhase string

const (
	DraftPhaseEmpty      DraftPhase = "empty"
	DraftPhaseGenerating DraftPhase = "generating"
	DraftPhaseReady      DraftPhase = "ready"
)

// Composer holds the single current draft of a case and requests new
// generations. At most one generation is in flight per case; while one
// is outstanding further generate calls are rejected. A held draft is
// deliberately kept (last good) while a regeneration runs and when a
// generation fails; text and citations are only ever swapped together.
type Composer struct {
	api    EvidenceAPI
	caseID uuid.UUID

	mu         sync.Mutex
	generating bool
	draft      *models.DraftState
}

// NewComposer creates a composer for one case
func NewComposer(api EvidenceAPI, caseID uuid.UUID) *Composer {
	return &Composer{
		api:    api,
		caseID: caseID,
	}
}

// Phase returns the current draft phase. Generating takes precedence so
// the UI reflects the busy state even when a previous draft is held.
func (c *Composer) Phase() DraftPhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phaseLocked()
}

func (c *Composer) phaseLocked() DraftPhase {
	if c.generating {
		return DraftPhaseGenerating
	}
	if c.draft == nil {
		return DraftPhaseEmpty
	}
	return DraftPhaseReady
}

// Current returns the phase together with the draft it refers to, read
// under one lock so a caller never observes a mismatched pair
func (c *Composer) Current() (DraftPhase, *models.DraftState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phaseLocked(), c.draft
}

// Generate requests a new draft from the selected evidence and replaces
// the current draft wholesale on success. An empty selection is rejected
// before any request; a second call while one is outstanding is rejected
// with ErrGenerationInFlight. On failure the previous draft is kept.
func (c *Composer) Generate(ctx context.Context, selection *Selection) (*models.DraftState, error) {
	if selection == nil || selection.Len() == 0 {
		return nil, ErrEmptySelection
	}

	c.mu.Lock()
	if c.generating {
		c.mu.Unlock()
		return nil, ErrGenerationInFlight
	}
	c.generating = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.generating = false
		c.mu.Unlock()
	}()

	draft, err := c.api.GenerateDraft(ctx, c.caseID, selection.IDs())
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.draft = draft
	c.mu.Unlock()

	return draft, nil
}
