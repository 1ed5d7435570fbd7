package store

import (
	"context"
	"errors"
	"log"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"

	"github.com/andrewpaige1/flashcardhero-api/metrics"
	"github.com/andrewpaige1/flashcardhero-api/models"
)

// GormStore persists collections through gorm and notifies live
// subscriptions after every committed mutation. Writes are last-write-wins.
type GormStore struct {
	db          *gorm.DB
	now         func() time.Time
	newID       func() (string, error)
	publicLimit int
	hub         *hub
}

// Option configures a GormStore.
type Option func(*GormStore)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *GormStore) { s.now = now }
}

// WithIDGenerator overrides collection id assignment.
func WithIDGenerator(newID func() (string, error)) Option {
	return func(s *GormStore) { s.newID = newID }
}

// WithPublicLimit overrides the public catalogue cap.
func WithPublicLimit(limit int) Option {
	return func(s *GormStore) {
		if limit > 0 {
			s.publicLimit = limit
		}
	}
}

// NewGormStore wraps an already migrated database handle.
func NewGormStore(db *gorm.DB, opts ...Option) *GormStore {
	s := &GormStore{
		db:          db,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       func() (string, error) { return gonanoid.New() },
		publicLimit: DefaultPublicLimit,
		hub:         newHub(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close cancels every live subscription.
func (s *GormStore) Close() {
	s.hub.close()
}

func (s *GormStore) Create(ctx context.Context, ownerID string, in models.CollectionInput) (string, error) {
	id, err := s.newID()
	if err != nil {
		metrics.StoreMutations.WithLabelValues("create", "error").Inc()
		return "", wrap("create", err)
	}

	visibility := in.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}
	now := s.now()
	collection := models.Collection{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Visibility:  visibility,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Cards").Create(&collection).Error; err != nil {
			return err
		}
		return insertCards(tx, id, in.Cards)
	})
	metrics.StoreMutations.WithLabelValues("create", metrics.Result(err)).Inc()
	if err != nil {
		log.Printf("GormStore.Create: failed for owner=%s: %v", ownerID, err)
		return "", wrap("create", err)
	}

	s.hub.notify()
	return id, nil
}

func (s *GormStore) Update(ctx context.Context, id string, patch models.CollectionPatch) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Collection
		if err := tx.Select("id").Where("id = ?", id).First(&existing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		updates := map[string]any{"updated_at": s.now()}
		if patch.Name != nil {
			updates["name"] = *patch.Name
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.Visibility != nil {
			updates["visibility"] = *patch.Visibility
		}
		if err := tx.Model(&models.Collection{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		if patch.Cards == nil {
			return nil
		}
		if err := tx.Where("collection_id = ?", id).Delete(&models.Card{}).Error; err != nil {
			return err
		}
		return insertCards(tx, id, *patch.Cards)
	})
	metrics.StoreMutations.WithLabelValues("update", metrics.Result(err)).Inc()
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("GormStore.Update: failed for id=%s: %v", id, err)
		}
		return wrap("update", err)
	}

	s.hub.notify()
	return nil
}

func (s *GormStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("collection_id = ?", id).Delete(&models.Card{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Collection{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	metrics.StoreMutations.WithLabelValues("delete", metrics.Result(err)).Inc()
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("GormStore.Delete: failed for id=%s: %v", id, err)
		}
		return wrap("delete", err)
	}

	s.hub.notify()
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.Collection, error) {
	var collection models.Collection
	err := s.db.WithContext(ctx).
		Preload("Cards", byPosition).
		Where("id = ?", id).
		First(&collection).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, wrap("get", err)
	}
	return &collection, nil
}

func (s *GormStore) List(ctx context.Context, filter Filter) ([]models.Collection, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).
		Preload("Cards", byPosition).
		Order("created_at desc").
		Order("id asc")
	if filter.OwnerID != "" {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.Visibility != "" {
		query = query.Where("visibility = ?", filter.Visibility)
	}
	if limit := s.limitFor(filter); limit > 0 {
		query = query.Limit(limit)
	}

	var collections []models.Collection
	if err := query.Find(&collections).Error; err != nil {
		return nil, wrap("list", err)
	}
	if collections == nil {
		collections = []models.Collection{}
	}
	return collections, nil
}

func (s *GormStore) SubscribeQuery(filter Filter, onSnapshot func([]models.Collection), onError func(error)) (Unsubscribe, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	kind := filter.Kind()

	sub := s.hub.add(kind, func(ctx context.Context, sub *subscription) {
		v, err := s.hub.shared("query:"+filter.Key(), func() (any, error) {
			return s.List(ctx, filter)
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("GormStore.SubscribeQuery: refresh failed filter=%s: %v", kind, err)
			metrics.SubscriptionErrors.WithLabelValues(kind).Inc()
			sub.deliver(func() { callError(onError, subscribeError(err)) })
			return
		}
		snapshot := models.CloneCollections(v.([]models.Collection))
		sub.deliver(func() {
			metrics.SnapshotsDelivered.WithLabelValues(kind).Inc()
			if onSnapshot != nil {
				onSnapshot(snapshot)
			}
		})
	})
	return sub.Cancel, nil
}

func (s *GormStore) SubscribeDoc(id string, onSnapshot func(*models.Collection), onError func(error)) (Unsubscribe, error) {
	if id == "" {
		return nil, ErrNotFound
	}

	sub := s.hub.add("doc", func(ctx context.Context, sub *subscription) {
		v, err := s.hub.shared("doc:"+id, func() (any, error) {
			c, err := s.Get(ctx, id)
			if errors.Is(err, ErrNotFound) {
				return (*models.Collection)(nil), nil
			}
			return c, err
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("GormStore.SubscribeDoc: refresh failed id=%s: %v", id, err)
			metrics.SubscriptionErrors.WithLabelValues("doc").Inc()
			sub.deliver(func() { callError(onError, subscribeError(err)) })
			return
		}
		var doc *models.Collection
		if c := v.(*models.Collection); c != nil {
			dup := c.Clone()
			doc = &dup
		}
		sub.deliver(func() {
			metrics.SnapshotsDelivered.WithLabelValues("doc").Inc()
			if onSnapshot != nil {
				onSnapshot(doc)
			}
		})
	})
	return sub.Cancel, nil
}

func (s *GormStore) limitFor(filter Filter) int {
	if filter.Limit > 0 {
		return filter.Limit
	}
	if filter.OwnerID == "" && filter.Visibility == models.VisibilityPublic {
		return s.publicLimit
	}
	return 0
}

func insertCards(tx *gorm.DB, collectionID string, cards []models.Card) error {
	if len(cards) == 0 {
		return nil
	}
	rows := make([]models.Card, len(cards))
	for i, c := range cards {
		rows[i] = models.Card{
			CollectionID: collectionID,
			Position:     i,
			Front:        c.Front,
			Back:         c.Back,
		}
	}
	return tx.Create(&rows).Error
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position asc")
}

func callError(onError func(error), err error) {
	if onError != nil {
		onError(err)
	}
}
