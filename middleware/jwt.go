package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// CustomClaims carries the non-registered claims the API reads.
type CustomClaims struct {
	Nickname string `json:"nickname"`
}

// Validate does nothing; the nickname is optional.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// TokenOptions configures token validation.
type TokenOptions struct {
	Secret   []byte
	Issuer   string
	Audience string
}

// EnsureValidToken validates HS256 bearer tokens. Requests without a token
// pass through unauthenticated so public reads keep working; handlers that
// need a caller check for claims themselves. Tokens are read from the
// Authorization header, the access_token query parameter (WebSocket
// clients) or the auth_token cookie.
func EnsureValidToken(opts TokenOptions) (func(http.Handler) http.Handler, error) {
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return opts.Secret, nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		opts.Issuer,
		[]string{opts.Audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("EnsureValidToken: rejected token path=%s: %v", r.URL.Path, err)

		status := http.StatusUnauthorized
		message := "Failed to validate JWT."
		if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			message = "JWT is missing."
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"message": message})
	}

	mw := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
		jwtmiddleware.WithCredentialsOptional(true),
		jwtmiddleware.WithTokenExtractor(jwtmiddleware.MultiTokenExtractor(
			jwtmiddleware.AuthHeaderTokenExtractor,
			jwtmiddleware.ParameterTokenExtractor("access_token"),
			jwtmiddleware.CookieTokenExtractor("auth_token"),
		)),
	)

	return func(next http.Handler) http.Handler {
		return mw.CheckJWT(next)
	}, nil
}
