package portal

import (
	"log"
	"sort"
	"sync"

	"chagok-backend/models"

	"github.com/google/uuid"
)

// Store is the in-memory cache of a single case's evidence records and
// the single source of truth for rendering. It is mutated by the
// synchronizer (bulk status sync), the retry controller (single-id
// overwrite) and the upload path (record creation). Records are treated
// as immutable once inserted; every update replaces the record wholesale.
type Store struct {
	caseID uuid.UUID

	mu      sync.RWMutex
	records map[uuid.UUID]*models.Evidence
}

// NewStore creates an empty store scoped to one case
func NewStore(caseID uuid.UUID) *Store {
	return &Store{
		caseID:  caseID,
		records: make(map[uuid.UUID]*models.Evidence),
	}
}

// CaseID returns the case this store is scoped to
func (s *Store) CaseID() uuid.UUID {
	return s.caseID
}

// Put inserts or replaces a record unconditionally. Used when the upload
// collaborator hands over a freshly created record.
func (s *Store) Put(evidence *models.Evidence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[evidence.ID] = evidence
}

// Get returns the record for an evidence id
func (s *Store) Get(id uuid.UUID) (*models.Evidence, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evidence, ok := s.records[id]
	return evidence, ok
}

// List returns all records, newest upload first
func (s *Store) List() []*models.Evidence {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Evidence, 0, len(s.records))
	for _, evidence := range s.records {
		out = append(out, evidence)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UploadDate.Equal(out[j].UploadDate) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].UploadDate.After(out[j].UploadDate)
	})
	return out
}

// Apply merges one backend-reported record into the store. Unknown ids
// are adopted as-is; a record reporting the current status is an
// idempotent duplicate; a record reporting a status reachable from the
// current one replaces the cached record wholesale, which is how the
// AI-derived fields arrive together with their terminal transition. A
// disallowed transition is dropped for that id only and logged as a
// backend ordering anomaly.
//
// It returns true when the store changed.
func (s *Store) Apply(update *models.Evidence) bool {
	if update.CaseID != s.caseID {
		log.Printf("Warning: Dropped evidence %s belonging to case %s (store is case %s)", update.ID, update.CaseID, s.caseID)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[update.ID]
	if !ok {
		s.records[update.ID] = update
		return true
	}

	if current.Status == update.Status {
		return false
	}

	if !current.Status.CanTransitionTo(update.Status) {
		log.Printf("Warning: Dropped illegal status transition %s -> %s for evidence %s", current.Status, update.Status, update.ID)
		return false
	}

	s.records[update.ID] = update
	return true
}

// ApplyAll merges a batch of backend-reported records, skipping invalid
// entries individually, and returns how many records changed
func (s *Store) ApplyAll(updates []*models.Evidence) int {
	changed := 0
	for _, update := range updates {
		if s.Apply(update) {
			changed++
		}
	}
	return changed
}

// Remove deletes a record from the cache (evidence deleted upstream)
func (s *Store) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
}

// HasNonTerminal reports whether any record is still moving through the
// pipeline, i.e. whether the synchronizer has work to do
func (s *Store) HasNonTerminal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, evidence := range s.records {
		if !evidence.Status.IsTerminal() {
			return true
		}
	}
	return false
}
