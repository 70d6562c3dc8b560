package portal

import (
	"chagok-backend/models"

	"github.com/google/uuid"
)

// ResolvedCitation pairs a draft citation with the evidence record it
// points at. Evidence is nil and Available false when the record is no
// longer in the local store (deleted or never synchronized).
type ResolvedCitation struct {
	Citation  models.Citation
	Evidence  *models.Evidence
	Available bool
}

// Linker resolves draft citations against the local evidence store and
// answers reverse lookups from an evidence record to the citations that
// reference it.
type Linker struct {
	store *Store
}

func NewLinker(store *Store) *Linker {
	return &Linker{store: store}
}

// Resolve maps every citation of the draft to its evidence record.
// Dangling citations resolve to an unavailable entry instead of being
// dropped, so the draft text and its citation list stay in step.
func (l *Linker) Resolve(draft *models.DraftState) []ResolvedCitation {
	if draft == nil {
		return nil
	}
	resolved := make([]ResolvedCitation, 0, len(draft.Citations))
	for _, cit := range draft.Citations {
		ev, ok := l.store.Get(cit.EvidenceID)
		resolved = append(resolved, ResolvedCitation{
			Citation:  cit,
			Evidence:  ev,
			Available: ok,
		})
	}
	return resolved
}

// CitationsFor returns the citations of the draft that reference the
// given evidence record. It filters the draft's own citation list, so
// there is no second index to fall out of step with the draft.
func (l *Linker) CitationsFor(draft *models.DraftState, evidenceID uuid.UUID) []models.Citation {
	if draft == nil {
		return nil
	}
	var out []models.Citation
	for _, cit := range draft.Citations {
		if cit.EvidenceID == evidenceID {
			out = append(out, cit)
		}
	}
	return out
}

// Markers returns the exhibit markers embedded in the draft text in
// order of appearance.
func (l *Linker) Markers(draft *models.DraftState) []models.ExhibitMarker {
	if draft == nil {
		return nil
	}
	return models.ParseExhibitMarkers(draft.DraftText)
}
