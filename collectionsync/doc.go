package collectionsync

import (
	"context"
	"log"
	"sync"

	"github.com/andrewpaige1/flashcardhero-api/models"
	"github.com/andrewpaige1/flashcardhero-api/store"
)

// DocWatch follows a single collection.
type DocWatch struct {
	id          string
	mu          sync.RWMutex
	latest      *models.Collection
	received    bool
	lastErr     error
	unsubscribe store.Unsubscribe
	once        sync.Once
	done        chan struct{}
}

// Watch opens a live read of one collection. onSnapshot receives nil once
// the collection no longer exists; cached state for it is dropped, not patched.
func (s *Syncer) Watch(id string, onSnapshot func(*models.Collection), onError func(error)) (*DocWatch, error) {
	w := &DocWatch{id: id, done: make(chan struct{})}

	unsubscribe, err := s.store.SubscribeDoc(id,
		func(c *models.Collection) {
			w.mu.Lock()
			if c == nil {
				w.latest = nil
			} else {
				dup := c.Clone()
				w.latest = &dup
			}
			w.received = true
			w.lastErr = nil
			w.mu.Unlock()
			if onSnapshot != nil {
				onSnapshot(c)
			}
		},
		func(err error) {
			log.Printf("Syncer.Watch: id=%s error: %v", id, err)
			w.mu.Lock()
			w.lastErr = err
			w.mu.Unlock()
			if onError != nil {
				onError(err)
			}
		},
	)
	if err != nil {
		return nil, err
	}
	w.unsubscribe = unsubscribe
	return w, nil
}

// WatchContext is Watch with cancellation bound to ctx.
func (s *Syncer) WatchContext(ctx context.Context, id string, onSnapshot func(*models.Collection), onError func(error)) (*DocWatch, error) {
	w, err := s.Watch(id, onSnapshot, onError)
	if err != nil {
		return nil, err
	}
	go func() {
		select {
		case <-ctx.Done():
			w.Cancel()
		case <-w.done:
		}
	}()
	return w, nil
}

// Latest returns a copy of the last delivered collection and whether any
// delivery has arrived yet.
func (w *DocWatch) Latest() (*models.Collection, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.latest == nil {
		return nil, w.received
	}
	dup := w.latest.Clone()
	return &dup, w.received
}

// Err returns the most recent asynchronous failure, cleared by the next delivery.
func (w *DocWatch) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastErr
}

// Done is closed once the watch has been canceled.
func (w *DocWatch) Done() <-chan struct{} {
	return w.done
}

// Cancel detaches the watch. Safe to call more than once.
func (w *DocWatch) Cancel() {
	w.once.Do(func() {
		if w.unsubscribe != nil {
			w.unsubscribe()
		}
		close(w.done)
	})
}
