package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

func parseBearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < len("Bearer ") || !strings.EqualFold(h[:len("Bearer ")], "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[len("Bearer "):])
	return tok, tok != ""
}

// authJWT returns a middleware that enforces Authorization: Bearer JWT (HS256)
// when a secret is configured, or nil when auth is disabled. Issuer and
// audience are checked when set.
func (s *Server) authJWT() func(http.Handler) http.Handler {
	secret := strings.TrimSpace(s.opts.JWTSecret)
	if secret == "" {
		return nil
	}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if iss := strings.TrimSpace(s.opts.JWTIssuer); iss != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(iss))
	}
	if aud := strings.TrimSpace(s.opts.JWTAudience); aud != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(aud))
	}
	parser := jwt.NewParser(parserOpts...)
	keyFunc := func(*jwt.Token) (any, error) { return []byte(secret), nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := parseBearerToken(r)
			if !ok {
				writeErr(w, http.StatusUnauthorized, "missing bearer token", "unauthorized")
				return
			}
			claims := &jwt.RegisteredClaims{}
			if _, err := parser.ParseWithClaims(tok, claims, keyFunc); err != nil {
				msg := "invalid token"
				switch {
				case errors.Is(err, jwt.ErrTokenExpired):
					msg = "token expired"
				case errors.Is(err, jwt.ErrTokenNotValidYet):
					msg = "token not valid yet"
				}
				s.log.DebugContext(r.Context(), "jwt rejected", "err", err)
				writeErr(w, http.StatusUnauthorized, msg, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
