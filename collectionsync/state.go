package collectionsync

import (
	"fmt"
	"sync"
	"time"

	"github.com/andrewpaige1/flashcardhero-api/models"
)

// Snapshot represents the latest view a subscription holds.
type Snapshot struct {
	Collections         []models.Collection
	Received            bool // at least one delivery has arrived
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
}

// Failing returns true when the last refreshes have all failed.
func (s Snapshot) Failing() bool {
	return s.ConsecutiveFailures > 0
}

// state coordinates concurrent updates to the snapshot.
type state struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// replace swaps in a new authoritative list.
func (s *state) replace(list []models.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Collections = list
	s.snapshot.Received = true
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// fail records err and keeps the previous list.
func (s *state) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastError = err
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures++
}

// get returns a copy of the current snapshot.
func (s *state) get() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Collections = models.CloneCollections(s.snapshot.Collections)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
