package practice

import (
	"errors"
	"log"
	"sync"

	"github.com/andrewpaige1/flashcardhero-api/collectionsync"
	"github.com/andrewpaige1/flashcardhero-api/models"
	"github.com/andrewpaige1/flashcardhero-api/store"
)

var (
	ErrCollectionNotFound = errors.New("Collection not found")
	ErrPrivateCollection  = errors.New("This collection is private")
	ErrNotReady           = errors.New("collection has not loaded yet")
)

// Live keeps a session in step with one collection as it changes remotely.
// When the collection's cards change the session restarts front up on the
// new deck, keeping a shuffled order and staying on the current card when it
// still exists. Metadata-only changes leave it alone.
type Live struct {
	mu         sync.Mutex
	viewerID   string
	opts       []Option
	session    *Session
	collection *models.Collection
	err        error
	watch      *collectionsync.DocWatch
	updates    chan struct{}
}

// Follow starts watching collection id for viewerID. Private collections
// are only available to their owner; an empty viewerID is anonymous.
func Follow(syncer *collectionsync.Syncer, id, viewerID string, opts ...Option) (*Live, error) {
	l := &Live{viewerID: viewerID, opts: opts, updates: make(chan struct{}, 1)}
	w, err := syncer.Watch(id, l.onSnapshot, l.onError)
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.watch = w
	l.mu.Unlock()
	return l, nil
}

func (l *Live) onSnapshot(c *models.Collection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.signal()

	switch {
	case c == nil:
		l.reset(ErrCollectionNotFound)
		return
	case !c.IsPublic() && (l.viewerID == "" || c.OwnerID != l.viewerID):
		l.reset(ErrPrivateCollection)
		return
	}

	if l.session != nil && l.collection != nil && models.SameCards(l.collection.Cards, c.Cards) {
		dup := c.Clone()
		l.collection = &dup
		l.err = nil
		return
	}

	s, err := rebase(l.session, c.Cards, l.opts...)
	if err != nil {
		l.reset(err)
		return
	}
	dup := c.Clone()
	l.session, l.collection, l.err = s, &dup, nil
}

func (l *Live) onError(err error) {
	log.Printf("Live.onError: %v", err)
	l.mu.Lock()
	if errors.Is(err, store.ErrForbidden) {
		l.reset(ErrPrivateCollection)
	} else {
		l.err = err
	}
	l.mu.Unlock()
	l.signal()
}

func (l *Live) reset(err error) {
	l.session, l.collection, l.err = nil, nil, err
}

func (l *Live) signal() {
	select {
	case l.updates <- struct{}{}:
	default:
	}
}

// Updates receives a value after each delivery or failure. Bursts coalesce.
func (l *Live) Updates() <-chan struct{} {
	return l.updates
}

// Do runs fn against the session while holding the lock. It returns the
// current failure, or ErrNotReady before the first delivery.
func (l *Live) Do(fn func(*Session)) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.session == nil {
		if l.err != nil {
			return l.err
		}
		return ErrNotReady
	}
	fn(l.session)
	return nil
}

// Collection returns a copy of the collection being practiced, or nil.
func (l *Live) Collection() *models.Collection {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.collection == nil {
		return nil
	}
	dup := l.collection.Clone()
	return &dup
}

// Err returns the latest failure, if any.
func (l *Live) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Close stops following the collection.
func (l *Live) Close() {
	l.mu.Lock()
	w := l.watch
	l.mu.Unlock()
	if w != nil {
		w.Cancel()
	}
}
