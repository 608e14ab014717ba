// Package auth provides optional HTTP basic authentication backed by bcrypt
// hashes, and carries the authenticated identity through the request context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type contextKey string

const identityKey contextKey = "identity"

var ErrInvalidUsers = errors.New("invalid AUTH_USERS entry")

// Identity is the authenticated caller.
type Identity struct {
	Username string
}

// WithIdentity stores id in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity stored in ctx, if any.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// HashPassword hashes a plain text password using bcrypt
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Users maps usernames to bcrypt hashes.
type Users map[string]string

// ParseUsers reads "alice:$2a$...,bob:$2a$..." as produced by cashbookctl hash-password.
func ParseUsers(list string) (Users, error) {
	users := Users{}
	for _, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, hash, ok := strings.Cut(entry, ":")
		name, hash = strings.TrimSpace(name), strings.TrimSpace(hash)
		if !ok || name == "" || hash == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidUsers, entry)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("%w: user %q: %v", ErrInvalidUsers, name, err)
		}
		users[name] = hash
	}
	return users, nil
}

// dummyHash is compared for unknown users so both paths cost one bcrypt check.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3PWZKj8Ek1Z6bX5y3K3y6aS")

// Verify reports whether password matches the stored hash of username.
func (u Users) Verify(username, password string) bool {
	hash, ok := u[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BasicAuth rejects requests without valid credentials. With no users configured
// it is a pass-through. Paths in public skip the check.
func BasicAuth(users Users, realm string, public ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(users) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range public {
				if r.URL.Path == p {
					next.ServeHTTP(w, r)
					return
				}
			}
			name, password, ok := r.BasicAuth()
			if !ok || !users.Verify(name, password) {
				slog.WarnContext(r.Context(), "Authentication failed",
					"username", name,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr)
				w.Header().Set("WWW-Authenticate", fmt.Sprintf("Basic realm=%q, charset=\"UTF-8\"", realm))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), Identity{Username: name})))
		})
	}
}
