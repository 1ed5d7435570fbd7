package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/andrewpaige1/flashcardhero-api/models"
)

const waitTimeout = 2 * time.Second

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Collection{}, &models.Card{}))
	return db
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func sequentialIDs() func() (string, error) {
	var mu sync.Mutex
	n := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("c%d", n), nil
	}
}

func newTestStore(t *testing.T, opts ...Option) *GormStore {
	t.Helper()
	clock := &stepClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now), WithIDGenerator(sequentialIDs())}, opts...)
	s := NewGormStore(newTestDB(t), opts...)
	t.Cleanup(s.Close)
	return s
}

func spanish() models.CollectionInput {
	return models.CollectionInput{
		Name:       "Spanish",
		Visibility: models.VisibilityPrivate,
		Cards:      []models.Card{{Front: "hola", Back: "hello"}},
	}
}

type recorder struct {
	snapshots chan []models.Collection
	docs      chan *models.Collection
	errs      chan error
}

func newRecorder() *recorder {
	return &recorder{
		snapshots: make(chan []models.Collection, 64),
		docs:      make(chan *models.Collection, 64),
		errs:      make(chan error, 64),
	}
}

func (r *recorder) onSnapshot(list []models.Collection) { r.snapshots <- list }
func (r *recorder) onDoc(c *models.Collection)          { r.docs <- c }
func (r *recorder) onError(err error)                   { r.errs <- err }

func (r *recorder) nextSnapshot(t *testing.T) []models.Collection {
	t.Helper()
	select {
	case s := <-r.snapshots:
		return s
	case err := <-r.errs:
		t.Fatalf("unexpected subscription error: %v", err)
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}

func (r *recorder) waitSnapshot(t *testing.T, pred func([]models.Collection) bool) []models.Collection {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case s := <-r.snapshots:
			if pred(s) {
				return s
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching snapshot")
			return nil
		}
	}
}

func ids(list []models.Collection) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.ID
	}
	return out
}

func TestGormStoreCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := spanish()
	in.Cards = append(in.Cards, models.Card{Front: "adios", Back: "goodbye"})
	id, err := s.Create(ctx, "user-1", in)
	require.NoError(t, err)
	assert.Equal(t, "c1", id)

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Spanish", got.Name)
	assert.Equal(t, "user-1", got.OwnerID)
	assert.Equal(t, models.VisibilityPrivate, got.Visibility)
	require.Len(t, got.Cards, 2)
	assert.Equal(t, "hola", got.Cards[0].Front)
	assert.Equal(t, "adios", got.Cards[1].Front)
	assert.False(t, got.CreatedAt.IsZero())
	assert.True(t, got.CreatedAt.Equal(got.UpdatedAt))
}

func TestGormStoreCreateDefaultsToPrivate(t *testing.T) {
	s := newTestStore(t)
	in := spanish()
	in.Visibility = ""
	id, err := s.Create(context.Background(), "user-1", in)
	require.NoError(t, err)

	got, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPrivate, got.Visibility)
}

func TestGormStoreUpdateMergesFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.Create(ctx, "user-1", spanish())
	require.NoError(t, err)

	name := "Spanish 101"
	cards := []models.Card{{Front: "gato", Back: "cat"}, {Front: "perro", Back: "dog"}}
	require.NoError(t, s.Update(ctx, id, models.CollectionPatch{Name: &name, Cards: &cards}))

	got, err := s.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Spanish 101", got.Name)
	assert.Equal(t, models.VisibilityPrivate, got.Visibility, "untouched field changed")
	assert.Equal(t, "user-1", got.OwnerID)
	assert.True(t, models.SameCards(cards, got.Cards))
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestGormStoreMissingDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	name := "x"

	assert.ErrorIs(t, s.Update(ctx, "nope", models.CollectionPatch{Name: &name}), ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "nope"), ErrNotFound)
	_, err := s.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStoreListOrdersNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := s.Create(ctx, "user-1", spanish())
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, "user-2", spanish())
	require.NoError(t, err)

	list, err := s.List(ctx, ByOwner("user-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c2", "c1"}, ids(list))
}

func TestGormStorePublicQueryIsCapped(t *testing.T) {
	s := newTestStore(t, WithPublicLimit(2))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		in := spanish()
		in.Visibility = models.VisibilityPublic
		_, err := s.Create(ctx, "user-1", in)
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, "user-1", spanish())
	require.NoError(t, err)

	list, err := s.List(ctx, Public())
	require.NoError(t, err)
	assert.Equal(t, []string{"c3", "c2"}, ids(list))
}

func TestGormStoreListRejectsEmptyFilter(t *testing.T) {
	s := newTestStore(t)
	_, err := s.List(context.Background(), Filter{})
	assert.ErrorIs(t, err, ErrInvalidFilter)
	_, err = s.SubscribeQuery(Filter{}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestGormStoreSubscribeByOwnerCreateThenDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Create(ctx, "user-1", spanish())
	require.NoError(t, err)
	require.Equal(t, "c1", id)

	rec := newRecorder()
	unsubscribe, err := s.SubscribeQuery(ByOwner("user-1"), rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	defer unsubscribe()

	first := rec.nextSnapshot(t)
	require.Len(t, first, 1)
	assert.Equal(t, "c1", first[0].ID)
	assert.Equal(t, "Spanish", first[0].Name)

	require.NoError(t, s.Delete(ctx, "c1"))
	assert.Empty(t, rec.nextSnapshot(t))
}

func TestGormStoreCollectionLeavingPublicFilterDisappears(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := newRecorder()
	unsubscribe, err := s.SubscribeQuery(Public(), rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	defer unsubscribe()
	assert.Empty(t, rec.nextSnapshot(t))

	in := spanish()
	in.Visibility = models.VisibilityPublic
	id, err := s.Create(ctx, "user-1", in)
	require.NoError(t, err)
	rec.waitSnapshot(t, func(l []models.Collection) bool { return len(l) == 1 })

	private := models.VisibilityPrivate
	require.NoError(t, s.Update(ctx, id, models.CollectionPatch{Visibility: &private}))
	rec.waitSnapshot(t, func(l []models.Collection) bool { return len(l) == 0 })
}

func TestGormStoreSnapshotsAreIndependentCopies(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Create(context.Background(), "user-1", spanish())
	require.NoError(t, err)

	a, b := newRecorder(), newRecorder()
	ua, err := s.SubscribeQuery(ByOwner("user-1"), a.onSnapshot, a.onError)
	require.NoError(t, err)
	defer ua()
	ub, err := s.SubscribeQuery(ByOwner("user-1"), b.onSnapshot, b.onError)
	require.NoError(t, err)
	defer ub()

	sa := a.nextSnapshot(t)
	sb := b.nextSnapshot(t)
	sa[0].Cards[0].Front = "mutated"
	assert.Equal(t, "hola", sb[0].Cards[0].Front)
}

func TestGormStoreUnsubscribeIsIdempotentAndStopsDeliveries(t *testing.T) {
	s := newTestStore(t)
	rec := newRecorder()
	unsubscribe, err := s.SubscribeQuery(ByOwner("user-1"), rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	rec.nextSnapshot(t)

	unsubscribe()
	unsubscribe()

	_, err = s.Create(context.Background(), "user-1", spanish())
	require.NoError(t, err)

	select {
	case snap := <-rec.snapshots:
		t.Fatalf("delivery after unsubscribe: %v", ids(snap))
	case <-time.After(150 * time.Millisecond):
	}
}

func TestGormStoreSubscribeDocDeliversNilAfterDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.Create(ctx, "user-1", spanish())
	require.NoError(t, err)

	rec := newRecorder()
	unsubscribe, err := s.SubscribeDoc(id, rec.onDoc, rec.onError)
	require.NoError(t, err)
	defer unsubscribe()

	select {
	case doc := <-rec.docs:
		require.NotNil(t, doc)
		assert.Equal(t, "Spanish", doc.Name)
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for document")
	}

	require.NoError(t, s.Delete(ctx, id))
	deadline := time.After(waitTimeout)
	for {
		select {
		case doc := <-rec.docs:
			if doc == nil {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for nil document")
		}
	}
}

func TestGormStoreRefreshFailureGoesToErrorCallback(t *testing.T) {
	s := newTestStore(t)
	rec := newRecorder()
	unsubscribe, err := s.SubscribeQuery(ByOwner("user-1"), rec.onSnapshot, rec.onError)
	require.NoError(t, err)
	defer unsubscribe()
	rec.nextSnapshot(t)

	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	s.hub.notify()

	select {
	case err := <-rec.errs:
		var serr *StoreError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, "subscribe", serr.Op)
		var inner *StoreError
		assert.False(t, errors.As(serr.Err, &inner), "cause should not be wrapped twice")
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for error callback")
	}
}

func TestGormStoreDocRefreshFailureGoesToErrorCallback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id, err := s.Create(ctx, "user-1", spanish())
	require.NoError(t, err)

	rec := newRecorder()
	unsubscribe, err := s.SubscribeDoc(id, rec.onDoc, rec.onError)
	require.NoError(t, err)
	defer unsubscribe()

	select {
	case doc := <-rec.docs:
		require.NotNil(t, doc)
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for document")
	}

	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	s.hub.notify()

	select {
	case err := <-rec.errs:
		var serr *StoreError
		require.True(t, errors.As(err, &serr))
		assert.Equal(t, "subscribe", serr.Op)
		assert.NotErrorIs(t, err, ErrNotFound)
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for error callback")
	}
}

func TestFilterMatchesAndKind(t *testing.T) {
	pub := models.Collection{OwnerID: "u1", Visibility: models.VisibilityPublic}
	priv := models.Collection{OwnerID: "u1", Visibility: models.VisibilityPrivate}

	assert.True(t, Public().Matches(pub))
	assert.False(t, Public().Matches(priv))
	assert.True(t, ByOwner("u1").Matches(priv))
	assert.False(t, ByOwner("u2").Matches(priv))
	assert.Equal(t, "owner", ByOwner("u1").Kind())
	assert.Equal(t, "public", Public().Kind())
	assert.Equal(t, "owner_public", Filter{OwnerID: "u1", Visibility: models.VisibilityPublic}.Kind())
}
