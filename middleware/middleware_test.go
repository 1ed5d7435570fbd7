package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/andrewpaige1/flashcardhero-api/auth"
	"github.com/andrewpaige1/flashcardhero-api/models"
	"github.com/andrewpaige1/flashcardhero-api/utils"
)

var issuer = auth.Issuer{Secret: []byte("secret"), Issuer: "flashcardhero", Audience: "flashcardhero-api"}

func tokenOptions() TokenOptions {
	return TokenOptions{Secret: issuer.Secret, Issuer: issuer.Issuer, Audience: issuer.Audience}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}))
	return db
}

func subjectEcho(w http.ResponseWriter, r *http.Request) {
	subject, ok := utils.GetAuth0ID(r)
	if !ok {
		fmt.Fprint(w, "anonymous")
		return
	}
	fmt.Fprint(w, subject)
}

func TestEnsureValidToken(t *testing.T) {
	mw, err := EnsureValidToken(tokenOptions())
	require.NoError(t, err)
	h := mw(http.HandlerFunc(subjectEcho))

	token, err := issuer.CreateToken("user-1", "ana")
	require.NoError(t, err)

	tests := []struct {
		name       string
		req        func() *http.Request
		wantStatus int
		wantBody   string
	}{
		{
			name:       "no token is anonymous",
			req:        func() *http.Request { return httptest.NewRequest(http.MethodGet, "/", nil) },
			wantStatus: http.StatusOK,
			wantBody:   "anonymous",
		},
		{
			name: "bearer header",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/", nil)
				r.Header.Set("Authorization", "Bearer "+token)
				return r
			},
			wantStatus: http.StatusOK,
			wantBody:   "user-1",
		},
		{
			name:       "query parameter",
			req:        func() *http.Request { return httptest.NewRequest(http.MethodGet, "/?access_token="+token, nil) },
			wantStatus: http.StatusOK,
			wantBody:   "user-1",
		},
		{
			name: "cookie",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/", nil)
				r.AddCookie(&http.Cookie{Name: "auth_token", Value: token})
				return r
			},
			wantStatus: http.StatusOK,
			wantBody:   "user-1",
		},
		{
			name: "forged token",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/", nil)
				r.Header.Set("Authorization", "Bearer "+token+"x")
				return r
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.req())
			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestSyncUserMiddleware(t *testing.T) {
	db := newTestDB(t)
	mw, err := EnsureValidToken(tokenOptions())
	require.NoError(t, err)

	var seen *models.User
	h := mw(SyncUserMiddleware(db)(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
	}))

	call := func(subject, nickname string) int {
		token, err := issuer.CreateToken(subject, nickname)
		require.NoError(t, err)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("user-1", "ana"))
	require.NotNil(t, seen)
	assert.Equal(t, "ana", seen.Nickname)

	assert.Equal(t, http.StatusOK, call("user-1", "ana.b"))
	var user models.User
	require.NoError(t, db.Where("auth0_id = ?", "user-1").First(&user).Error)
	assert.Equal(t, "ana.b", user.Nickname)

	assert.Equal(t, http.StatusOK, call("user-2", ""))
	assert.Equal(t, "user-2", seen.Nickname)

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Equal(t, int64(2), count)
}

func TestSyncUserMiddlewareRequiresToken(t *testing.T) {
	h := SyncUserMiddleware(newTestDB(t))(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
