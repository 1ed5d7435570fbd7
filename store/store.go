// Package store defines the remote collection store contract and a gorm
// implementation of it that pushes full snapshots to live subscribers.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrewpaige1/flashcardhero-api/models"
)

// DefaultPublicLimit caps the public catalogue query.
const DefaultPublicLimit = 50

var (
	// ErrNotFound is returned when the addressed collection does not exist.
	ErrNotFound = errors.New("collection not found")

	// ErrForbidden is returned when a remote store refuses the caller access
	// to a private collection.
	ErrForbidden = errors.New("This collection is private")

	// ErrInvalidFilter is returned for a filter that selects neither an owner
	// nor a visibility.
	ErrInvalidFilter = errors.New("filter must select an owner or a visibility")
)

// StoreError wraps a persistence or transport failure.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// wrap leaves sentinel errors untouched and wraps everything else.
func wrap(op string, err error) error {
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrForbidden) {
		return err
	}
	var serr *StoreError
	if errors.As(err, &serr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// subscribeError re-labels a refresh failure as a subscription error,
// keeping the underlying cause.
func subscribeError(err error) error {
	var serr *StoreError
	if errors.As(err, &serr) {
		err = serr.Err
	}
	return &StoreError{Op: "subscribe", Err: err}
}

// Filter selects the collections a query returns. OwnerID and Visibility
// may be combined; Limit zero means the store default for that filter.
type Filter struct {
	OwnerID    string
	Visibility models.Visibility
	Limit      int
}

// ByOwner selects every collection owned by ownerID.
func ByOwner(ownerID string) Filter {
	return Filter{OwnerID: ownerID}
}

// Public selects the public catalogue.
func Public() Filter {
	return Filter{Visibility: models.VisibilityPublic}
}

// Validate rejects filters that would select the entire table.
func (f Filter) Validate() error {
	if f.OwnerID == "" && f.Visibility == "" {
		return ErrInvalidFilter
	}
	return nil
}

// Kind is a short label for logs and metrics.
func (f Filter) Kind() string {
	switch {
	case f.OwnerID != "" && f.Visibility != "":
		return "owner_" + string(f.Visibility)
	case f.OwnerID != "":
		return "owner"
	default:
		return string(f.Visibility)
	}
}

// Key identifies equivalent filters.
func (f Filter) Key() string {
	return fmt.Sprintf("owner=%s;visibility=%s;limit=%d", f.OwnerID, f.Visibility, f.Limit)
}

// Matches reports whether c belongs to the filter's result set, ignoring Limit.
func (f Filter) Matches(c models.Collection) bool {
	if f.OwnerID != "" && c.OwnerID != f.OwnerID {
		return false
	}
	if f.Visibility != "" && c.Visibility != f.Visibility {
		return false
	}
	return true
}

// Unsubscribe detaches a live subscription. It is safe to call more than once.
type Unsubscribe func()

// CollectionStore is the persistence contract the rest of the application
// depends on. Implementations perform no validation; callers run the
// validation package first.
type CollectionStore interface {
	// Create assigns an id and timestamps and returns the id.
	Create(ctx context.Context, ownerID string, in models.CollectionInput) (string, error)
	// Update merges the non-nil fields of patch and bumps UpdatedAt.
	Update(ctx context.Context, id string, patch models.CollectionPatch) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.Collection, error)
	// List runs filter once, newest first.
	List(ctx context.Context, filter Filter) ([]models.Collection, error)

	// SubscribeQuery delivers the full result of filter, newest first,
	// immediately and again after every change. Failures go to onError and
	// do not end the subscription.
	SubscribeQuery(filter Filter, onSnapshot func([]models.Collection), onError func(error)) (Unsubscribe, error)
	// SubscribeDoc delivers one collection, or nil once it no longer exists.
	SubscribeDoc(id string, onSnapshot func(*models.Collection), onError func(error)) (Unsubscribe, error)
}
