package portal

import (
	"sort"

	"github.com/google/uuid"
)

// Selection is the set of evidence ids chosen for draft generation.
// Backing it with a set makes duplicates impossible by construction;
// selection order carries no meaning.
type Selection struct {
	ids map[uuid.UUID]struct{}
}

// NewSelection creates a selection containing the given ids
func NewSelection(ids ...uuid.UUID) *Selection {
	s := &Selection{ids: make(map[uuid.UUID]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Add includes an evidence id in the selection
func (s *Selection) Add(id uuid.UUID) {
	s.ids[id] = struct{}{}
}

// Remove drops an evidence id from the selection
func (s *Selection) Remove(id uuid.UUID) {
	delete(s.ids, id)
}

// Has reports whether an evidence id is selected
func (s *Selection) Has(id uuid.UUID) bool {
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of selected ids
func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs returns the selected ids in a stable order
func (s *Selection) IDs() []uuid.UUID {
	out := make([]uuid.UUID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	return out
}
