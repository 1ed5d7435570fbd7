// Package collectionsync keeps a consumer's view of a user's collections, or
// of the public catalogue, consistent with the collection store.
//
// Every delivery is a complete replacement list, never a diff. Lists are
// deduplicated by id, restricted to the subscription's filter and ordered
// newest first with ties broken by id. Deliveries follow the order in which
// the store emits them; no reordering is attempted.
//
// A Subscription must be canceled exactly once by its owner. SubscribeContext
// ties cancellation to a context so every exit path releases it.
package collectionsync

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/andrewpaige1/flashcardhero-api/models"
	"github.com/andrewpaige1/flashcardhero-api/store"
)

// Syncer opens live subscriptions against a store.
type Syncer struct {
	store store.CollectionStore
}

// New returns a Syncer over s.
func New(s store.CollectionStore) *Syncer {
	return &Syncer{store: s}
}

// Subscription is one live query. Its latest list is available through
// Snapshot at any time.
type Subscription struct {
	filter      store.Filter
	state       state
	unsubscribe store.Unsubscribe
	once        sync.Once
	done        chan struct{}
}

// Subscribe opens a live query. onSnapshot receives every full list;
// onError receives each asynchronous failure once and does not end the
// subscription. Either callback may be nil.
func (s *Syncer) Subscribe(filter store.Filter, onSnapshot func([]models.Collection), onError func(error)) (*Subscription, error) {
	sub := &Subscription{filter: filter, done: make(chan struct{})}

	unsubscribe, err := s.store.SubscribeQuery(filter,
		func(list []models.Collection) {
			normalized := Normalize(filter, list)
			sub.state.replace(normalized)
			if onSnapshot != nil {
				onSnapshot(models.CloneCollections(normalized))
			}
		},
		func(err error) {
			log.Printf("Syncer.Subscribe: filter=%s error: %v", filter.Kind(), err)
			sub.state.fail(err)
			if onError != nil {
				onError(err)
			}
		},
	)
	if err != nil {
		return nil, err
	}
	sub.unsubscribe = unsubscribe
	return sub, nil
}

// SubscribeContext is Subscribe with cancellation bound to ctx.
func (s *Syncer) SubscribeContext(ctx context.Context, filter store.Filter, onSnapshot func([]models.Collection), onError func(error)) (*Subscription, error) {
	sub, err := s.Subscribe(filter, onSnapshot, onError)
	if err != nil {
		return nil, err
	}
	go func() {
		select {
		case <-ctx.Done():
			sub.Cancel()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Filter returns the subscription's filter.
func (sub *Subscription) Filter() store.Filter {
	return sub.filter
}

// Snapshot returns a copy of the latest state.
func (sub *Subscription) Snapshot() Snapshot {
	return sub.state.get()
}

// Done is closed once the subscription has been canceled.
func (sub *Subscription) Done() <-chan struct{} {
	return sub.done
}

// Cancel detaches the subscription. Safe to call more than once.
func (sub *Subscription) Cancel() {
	sub.once.Do(func() {
		if sub.unsubscribe != nil {
			sub.unsubscribe()
		}
		close(sub.done)
	})
}

// Normalize deduplicates list by id (first occurrence wins), drops entries
// outside filter and orders the rest newest first, ties by id.
func Normalize(filter store.Filter, list []models.Collection) []models.Collection {
	seen := make(map[string]struct{}, len(list))
	out := make([]models.Collection, 0, len(list))
	for _, c := range list {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		if !filter.Matches(c) {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
