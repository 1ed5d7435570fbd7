package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"gorm.io/gorm"

	"github.com/andrewpaige1/flashcardhero-api/models"
)

type contextKey string

const userKey contextKey = "user"

// UserFromContext returns the user attached by SyncUserMiddleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userKey).(*models.User)
	return user, ok && user != nil
}

// SyncUserMiddleware ensures the token's subject exists as a user and
// attaches it to the request context. The nickname claim is kept current;
// subjects without one are stored under their subject.
func SyncUserMiddleware(db *gorm.DB) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			if !ok || claims.RegisteredClaims.Subject == "" {
				http.Error(w, "No subject found", http.StatusUnauthorized)
				return
			}

			subject := claims.RegisteredClaims.Subject
			nickname := ""
			if customClaims, ok := claims.CustomClaims.(*CustomClaims); ok && customClaims != nil {
				nickname = customClaims.Nickname
			}

			var user models.User
			err := db.Where("auth0_id = ?", subject).First(&user).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				if nickname == "" {
					nickname = subject
				}
				user = models.User{Auth0ID: subject, Nickname: nickname}
				if err := db.Create(&user).Error; err != nil {
					log.Printf("SyncUserMiddleware: failed to create user subject=%s: %v", subject, err)
					http.Error(w, "Failed to create user", http.StatusInternalServerError)
					return
				}
				log.Printf("SyncUserMiddleware: created user nickname=%s", user.Nickname)
			case err != nil:
				log.Printf("SyncUserMiddleware: lookup failed subject=%s: %v", subject, err)
				http.Error(w, "Failed to load user", http.StatusInternalServerError)
				return
			case nickname != "" && user.Nickname != nickname:
				user.Nickname = nickname
				if err := db.Save(&user).Error; err != nil {
					log.Printf("SyncUserMiddleware: failed to update nickname subject=%s: %v", subject, err)
					http.Error(w, "Failed to update user", http.StatusInternalServerError)
					return
				}
				log.Printf("SyncUserMiddleware: updated user nickname=%s", user.Nickname)
			}

			ctx := context.WithValue(r.Context(), userKey, &user)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}
