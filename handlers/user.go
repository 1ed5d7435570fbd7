package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andrewpaige1/flashcardhero-api/auth"
	"github.com/andrewpaige1/flashcardhero-api/models"
	"github.com/andrewpaige1/flashcardhero-api/utils"
)

type loginRequest struct {
	Nickname string `json:"nickname" validate:"required,max=100"`
}

// POST /api/dev/login
//
// Signs a token for a nickname without any credential check. Only routed
// when DEV_LOGIN is set.
func (db *DBHandler) DevLogin(w http.ResponseWriter, r *http.Request) {
	if db.Issuer == nil {
		http.NotFound(w, r)
		return
	}

	var req loginRequest
	if err := db.decode(r, &req); err != nil {
		log.Printf("DevLogin: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	status := http.StatusOK
	var user models.User
	err := db.Where("nickname = ?", req.Nickname).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{Auth0ID: "dev|" + uuid.NewString(), Nickname: req.Nickname}
		if err := db.Create(&user).Error; err != nil {
			log.Printf("DevLogin: failed to create user nickname=%s: %v", req.Nickname, err)
			http.Error(w, "Failed to create user", http.StatusInternalServerError)
			return
		}
		status = http.StatusCreated
		log.Printf("DevLogin: created user nickname=%s", user.Nickname)
	case err != nil:
		log.Printf("DevLogin: lookup failed nickname=%s: %v", req.Nickname, err)
		http.Error(w, "Failed to load user", http.StatusInternalServerError)
		return
	}

	token, err := db.Issuer.CreateToken(user.Auth0ID, user.Nickname)
	if err != nil {
		log.Printf("DevLogin: token generation error: %v", err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	ttl := db.Issuer.TTL
	if ttl <= 0 {
		ttl = auth.DefaultTTL
	}
	http.SetCookie(w, &http.Cookie{
		Name:     "auth_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
	utils.WriteJSON(w, status, map[string]string{
		"token":    token,
		"userId":   user.Auth0ID,
		"nickname": user.Nickname,
	})
}
