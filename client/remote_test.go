package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/andrewpaige1/flashcardhero-api/auth"
	"github.com/andrewpaige1/flashcardhero-api/collectionsync"
	"github.com/andrewpaige1/flashcardhero-api/generation"
	"github.com/andrewpaige1/flashcardhero-api/handlers"
	"github.com/andrewpaige1/flashcardhero-api/middleware"
	"github.com/andrewpaige1/flashcardhero-api/models"
	"github.com/andrewpaige1/flashcardhero-api/practice"
	"github.com/andrewpaige1/flashcardhero-api/store"
)

const waitTimeout = 3 * time.Second

var issuer = auth.Issuer{Secret: []byte("secret"), Issuer: "flashcardhero", Audience: "flashcardhero-api"}

type echoGenerator struct{}

func (echoGenerator) Generate(ctx context.Context, topic string, count int) ([]models.Card, error) {
	cards := make([]models.Card, count)
	for i := range cards {
		cards[i] = models.Card{Front: fmt.Sprintf("%s %d", topic, i+1), Back: "answer"}
	}
	return cards, nil
}

func (echoGenerator) Improve(ctx context.Context, card models.Card) (models.Card, error) {
	return models.Card{Front: strings.ToUpper(card.Front), Back: card.Back}, nil
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Collection{}, &models.Card{}))

	collections := store.NewGormStore(db)
	t.Cleanup(collections.Close)

	h := handlers.NewDBHandler(db, collections, echoGenerator{}, 0)
	h.Issuer = &issuer
	mw, err := middleware.EnsureValidToken(middleware.TokenOptions{
		Secret:   issuer.Secret,
		Issuer:   issuer.Issuer,
		Audience: issuer.Audience,
	})
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Routes(mux, middleware.SyncUserMiddleware(db))
	srv := httptest.NewServer(mw(mux))
	t.Cleanup(srv.Close)
	return srv
}

func remoteFor(t *testing.T, srv *httptest.Server, subject, nickname string) *Remote {
	t.Helper()
	tok, err := issuer.CreateToken(subject, nickname)
	require.NoError(t, err)
	r, err := New(srv.URL, tok, WithReconnect(10*time.Millisecond))
	require.NoError(t, err)
	require.Equal(t, subject, r.Subject())
	return r
}

func input(name string, vis models.Visibility) models.CollectionInput {
	return models.CollectionInput{
		Name:       name,
		Visibility: vis,
		Cards:      []models.Card{{Front: "hola", Back: "hello"}, {Front: "adiós", Back: "goodbye"}},
	}
}

func TestNewRejectsMalformedToken(t *testing.T) {
	_, err := New("localhost:8080", "not-a-token")
	assert.Error(t, err)

	r, err := New("", "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", r.baseURL.String())
	assert.Empty(t, r.Subject())
}

func TestRemoteCRUD(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	ana := remoteFor(t, srv, "user-ana", "ana")

	id, err := ana.Create(ctx, ana.Subject(), input("Spanish", models.VisibilityPrivate))
	require.NoError(t, err)

	got, err := ana.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Spanish", got.Name)
	assert.Len(t, got.Cards, 2)

	name := "Español"
	require.NoError(t, ana.Update(ctx, id, models.CollectionPatch{Name: &name}))

	mine, err := ana.List(ctx, store.ByOwner(ana.Subject()))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Español", mine[0].Name)

	public, err := ana.List(ctx, store.Filter{OwnerID: ana.Subject(), Visibility: models.VisibilityPublic})
	require.NoError(t, err)
	assert.Empty(t, public)

	require.NoError(t, ana.Delete(ctx, id))
	_, err = ana.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRemoteMapsAccessErrors(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	ana := remoteFor(t, srv, "user-ana", "ana")
	bob := remoteFor(t, srv, "user-bob", "bob")

	id, err := ana.Create(ctx, ana.Subject(), input("Spanish", models.VisibilityPrivate))
	require.NoError(t, err)

	_, err = bob.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrForbidden)

	_, err = bob.Create(ctx, ana.Subject(), input("Spanish", models.VisibilityPrivate))
	assert.ErrorIs(t, err, ErrForeignOwner)

	_, err = bob.List(ctx, store.ByOwner(ana.Subject()))
	assert.ErrorIs(t, err, ErrForeignOwner)

	_, err = bob.List(ctx, store.Filter{})
	assert.ErrorIs(t, err, store.ErrInvalidFilter)

	_, err = ana.Create(ctx, ana.Subject(), models.CollectionInput{Name: "Empty", Visibility: "hidden"})
	var herr *HTTPError
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, http.StatusBadRequest, herr.Status)
}

func TestRemoteBrowse(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	ana := remoteFor(t, srv, "user-ana", "ana")
	for i := range 14 {
		_, err := ana.Create(ctx, ana.Subject(), input(fmt.Sprintf("Public %d", i), models.VisibilityPublic))
		require.NoError(t, err)
	}

	anon, err := New(srv.URL, "")
	require.NoError(t, err)

	sample, err := anon.Browse(ctx, "", collectionsync.DefaultSampleSize)
	require.NoError(t, err)
	assert.Len(t, sample, 12)

	found, err := anon.Browse(ctx, "public 13", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Public 13", found[0].Name)
}

func TestRemoteSubscriptionFollowsServer(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	ana := remoteFor(t, srv, "user-ana", "ana")

	snapshots := make(chan []models.Collection, 16)
	sub, err := collectionsync.New(ana).Subscribe(store.ByOwner(ana.Subject()),
		func(list []models.Collection) { snapshots <- list }, nil)
	require.NoError(t, err)
	defer sub.Cancel()

	select {
	case list := <-snapshots:
		assert.Empty(t, list)
	case <-time.After(waitTimeout):
		t.Fatal("no initial snapshot")
	}

	id, err := ana.Create(ctx, ana.Subject(), input("Spanish", models.VisibilityPrivate))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		snap := sub.Snapshot()
		return len(snap.Collections) == 1 && snap.Collections[0].ID == id
	}, waitTimeout, 10*time.Millisecond)
}

func TestRemotePracticePrivateCollection(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	ana := remoteFor(t, srv, "user-ana", "ana")
	bob := remoteFor(t, srv, "user-bob", "bob")

	id, err := ana.Create(ctx, ana.Subject(), input("Spanish", models.VisibilityPrivate))
	require.NoError(t, err)

	owner, err := practice.Follow(collectionsync.New(ana), id, ana.Subject())
	require.NoError(t, err)
	defer owner.Close()
	require.Eventually(t, func() bool {
		return owner.Do(func(*practice.Session) {}) == nil
	}, waitTimeout, 10*time.Millisecond)

	other, err := practice.Follow(collectionsync.New(bob), id, bob.Subject())
	require.NoError(t, err)
	defer other.Close()
	require.Eventually(t, func() bool {
		return errors.Is(other.Err(), practice.ErrPrivateCollection)
	}, waitTimeout, 10*time.Millisecond)
}

func TestRemoteGenerateAndLogin(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	anon, err := New(srv.URL, "")
	require.NoError(t, err)

	_, err = anon.Generate(ctx, "verbs", 2)
	assert.ErrorIs(t, err, generation.ErrGenerationFailed)

	ana, tok, err := anon.Login(ctx, "ana")
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.NotEmpty(t, ana.Subject())

	cards, err := ana.Generate(ctx, "verbs", 2)
	require.NoError(t, err)
	assert.Equal(t, []models.Card{{Front: "verbs 1", Back: "answer"}, {Front: "verbs 2", Back: "answer"}}, cards)

	card, err := ana.Improve(ctx, models.Card{Front: "hola", Back: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "HOLA", card.Front)
}

func TestCalculateBackoff(t *testing.T) {
	base := 2 * time.Second
	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second},
		{"many failures capped", 64, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateBackoff(tt.failures, base))
		})
	}
}
