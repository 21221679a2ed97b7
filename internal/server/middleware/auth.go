package middleware

import (
	"net/http"
	"strings"
)

// TokenValidator checks whether a bearer token belongs to a live session.
type TokenValidator interface {
	Validate(token string) bool
}

// Auth returns middleware that requires a valid bearer token on every request
// except the exempt path prefixes (health, login, the WebSocket stream).
func Auth(validator TokenValidator, exempt []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range exempt {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			token := ExtractToken(r)
			if token == "" {
				writeUnauthorized(w, "missing authentication token")
				return
			}
			if !validator.Validate(token) {
				writeUnauthorized(w, "invalid or expired authentication token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ExtractToken looks for a token in the Authorization header (Bearer scheme)
// or in the X-API-Key header.
func ExtractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}
	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
