package portal

import (
	"context"
	"sync"
	"time"
)

// DefaultPollInterval is how often the synchronizer reconciles by default
const DefaultPollInterval = 3 * time.Second

// Synchronizer keeps non-terminal evidence records eventually consistent
// with the backend by polling one consolidated state fetch per tick. It
// is an explicit scheduler: the owning view calls Start on mount and
// Stop on unmount, so no timer outlives the view. It stops itself once
// every record is terminal; Start is idempotent and is called again
// whenever new non-terminal work appears (fresh upload, retry).
type Synchronizer struct {
	api      EvidenceAPI
	store    *Store
	interval time.Duration
	onError  func(error)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// SynchronizerOption is a functional option for Synchronizer
type SynchronizerOption func(*Synchronizer)

// WithInterval sets the polling interval
func WithInterval(interval time.Duration) SynchronizerOption {
	return func(s *Synchronizer) {
		s.interval = interval
	}
}

// WithErrorHook sets a callback invoked on transient fetch failures, for
// surfacing a non-blocking notification. Failures never alter cached
// state; the next tick is expected to recover.
func WithErrorHook(hook func(error)) SynchronizerOption {
	return func(s *Synchronizer) {
		s.onError = hook
	}
}

// NewSynchronizer creates a synchronizer for the store's case
func NewSynchronizer(api EvidenceAPI, store *Store, opts ...SynchronizerOption) *Synchronizer {
	s := &Synchronizer{
		api:      api,
		store:    store,
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins polling. It is a no-op when already running or when every
// record is already terminal.
func (s *Synchronizer) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return
	}
	if !s.store.HasNonTerminal() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(ctx, done)
}

// Stop tears the poller down and waits for the running tick, if any, to
// finish. A fetch already in flight runs to completion but its response
// is discarded, never applied to the store.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the poll loop is active
func (s *Synchronizer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

// run is the poll loop. Ticks are issued sequentially from this one
// goroutine, so at most one batch fetch is outstanding at a time; ticker
// fires during a slow fetch coalesce and are skipped, not queued.
func (s *Synchronizer) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer s.clear(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if !s.tick(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// tick performs one consolidated fetch-and-reconcile. It returns false
// when polling should stop: the context was cancelled, or every record
// reached a terminal state.
func (s *Synchronizer) tick(ctx context.Context) bool {
	states, err := s.api.FetchEvidenceStates(ctx, s.store.CaseID())
	if ctx.Err() != nil {
		// The view was left while the fetch was in flight; the
		// response must not touch the store.
		return false
	}
	if err != nil {
		if s.onError != nil {
			s.onError(err)
		}
		return true
	}

	s.store.ApplyAll(states)
	return s.store.HasNonTerminal()
}

// clear resets the running state when the loop exits on its own, so a
// later Start can spin it up again. The identity check keeps a stale
// goroutine from clobbering a newer run.
func (s *Synchronizer) clear(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == done {
		s.cancel = nil
		s.done = nil
	}
}
