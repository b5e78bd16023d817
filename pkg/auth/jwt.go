package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"

	"github.com/vitrinhq/vitrin/config"
)

const JwtAlg = "HS256"

var ErrMissingSecret = errors.New(
	"auth secret not set. Ensure VITRIN_AUTH_SECRET is set in your environment",
)

func tokenAuth(cfg *config.Config) (*jwtauth.JWTAuth, error) {
	secret := []byte(cfg.Auth.Secret)
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	return jwtauth.New(JwtAlg, secret, nil), nil
}

// GenerateJWT generates a JWT signed with the configured secret. The token never
// expires when ttl is zero.
func GenerateJWT(cfg *config.Config, subject string, ttl time.Duration) (string, error) {
	ta, err := tokenAuth(cfg)
	if err != nil {
		return "", err
	}

	claims := map[string]interface{}{}
	jwtauth.SetIssuedNow(claims)
	if subject != "" {
		claims["sub"] = subject
	}
	if ttl > 0 {
		jwtauth.SetExpiryIn(claims, ttl)
	}

	_, tokenString, err := ta.Encode(claims)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func JWTVerifier(cfg *config.Config) (func(http.Handler) http.Handler, error) {
	ta, err := tokenAuth(cfg)
	if err != nil {
		return nil, err
	}
	return jwtauth.Verifier(ta), nil
}
