// Package auth issues and checks the HS256 tokens the API accepts.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL is how long issued tokens stay valid.
const DefaultTTL = 24 * time.Hour

// Claims are the claims carried by API tokens.
type Claims struct {
	Nickname string `json:"nickname,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs tokens for one issuer/audience pair.
type Issuer struct {
	Secret   []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// CreateToken signs a token for subject.
func (i Issuer) CreateToken(subject, nickname string) (string, error) {
	if len(i.Secret) == 0 {
		return "", fmt.Errorf("auth: JWT secret key not set")
	}
	if subject == "" {
		return "", fmt.Errorf("auth: subject is required")
	}
	ttl := i.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Nickname: nickname,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.Issuer,
			Audience:  jwt.ClaimStrings{i.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	tokenString, err := token.SignedString(i.Secret)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// VerifyToken parses tokenString and checks its signature, expiry, issuer
// and audience.
func (i Issuer) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return i.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.Issuer),
		jwt.WithAudience(i.Audience),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}
