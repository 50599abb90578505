package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/json"
	"net/http"
	"strings"
)

// InputAuth guards the control endpoints (POST /api/input and the input
// channel of the WebSocket) behind a shared bearer token. An empty token
// leaves them open, which is the local-play default.
type InputAuth struct {
	digest [32]byte
	open   bool
}

// NewInputAuth creates an authenticator for the given token
func NewInputAuth(token string) *InputAuth {
	if token == "" {
		return &InputAuth{open: true}
	}
	return &InputAuth{digest: sha256.Sum256([]byte(token))}
}

// Open reports whether no token is configured
func (a *InputAuth) Open() bool {
	return a == nil || a.open
}

// Check validates a presented token in constant time
func (a *InputAuth) Check(token string) bool {
	if a.Open() {
		return true
	}
	got := sha256.Sum256([]byte(token))
	return hmac.Equal(got[:], a.digest[:])
}

// Authorized extracts the token from the request and checks it.
// Browsers cannot set headers on a WebSocket handshake, so the
// "token" query parameter is accepted as well.
func (a *InputAuth) Authorized(r *http.Request) bool {
	if a.Open() {
		return true
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return a.Check(strings.TrimPrefix(h, "Bearer "))
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return a.Check(t)
	}
	return false
}

// Middleware rejects requests without a valid token
func (a *InputAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Authorized(r) {
			RecordConnectionRejected("unauthorized")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":   "unauthorized",
				"message": "Input token required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
