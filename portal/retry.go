package portal

import (
	"context"
	"errors"
	"sync"

	"chagok-backend/models"

	"github.com/google/uuid"
)

var (
	ErrUnknownEvidence = errors.New("evidence not present in store")
	ErrRetryNotFailed  = errors.New("only failed evidence can be retried")
	ErrRetryInFlight   = errors.New("retry already in flight for evidence")
)

// RetryController re-submits failed evidence items for processing. It
// allows at most one in-flight retry per evidence id; a concurrent
// second call for the same id is rejected before any request is made.
// Retries are always explicit user actions; there is no background
// retry policy here.
type RetryController struct {
	api   EvidenceAPI
	store *Store
	sync  *Synchronizer

	mu       sync.Mutex
	inFlight map[uuid.UUID]bool
}

// NewRetryController creates a retry controller. The synchronizer is
// restarted after a successful retry so the re-queued item re-enters
// the active polling set; it may be nil in tests.
func NewRetryController(api EvidenceAPI, store *Store, synchronizer *Synchronizer) *RetryController {
	return &RetryController{
		api:      api,
		store:    store,
		sync:     synchronizer,
		inFlight: make(map[uuid.UUID]bool),
	}
}

// InFlight reports whether a retry for the evidence id is outstanding,
// so the UI can disable the action
func (c *RetryController) InFlight(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight[id]
}

// Retry re-queues one failed evidence item. Preconditions are checked
// before any network call: the record must exist and be exactly failed.
// On success the record moves failed -> queued in the store; on failure
// the record is left failed and the error is scoped to this item only.
func (c *RetryController) Retry(ctx context.Context, id uuid.UUID) error {
	evidence, ok := c.store.Get(id)
	if !ok {
		return ErrUnknownEvidence
	}
	if evidence.Status != models.EvidenceStatusFailed {
		return ErrRetryNotFailed
	}

	c.mu.Lock()
	if c.inFlight[id] {
		c.mu.Unlock()
		return ErrRetryInFlight
	}
	c.inFlight[id] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inFlight, id)
		c.mu.Unlock()
	}()

	status, err := c.api.RetryEvidence(ctx, id)
	if err != nil {
		return err
	}

	requeued := *evidence
	requeued.Status = status
	requeued.ErrorMessage = nil
	c.store.Apply(&requeued)

	if c.sync != nil {
		c.sync.Start()
	}
	return nil
}
