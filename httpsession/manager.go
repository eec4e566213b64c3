package httpsession

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	agingstore "github.com/karupanerura/aging-store"
)

// Session is a resolved session: its id and the stored value.
type Session[V agingstore.ValueConstraint] struct {
	ID    string
	Value V
}

// unexported, collision-proof context key
type sessionContextKeyType struct{}

var sessionContextKey = sessionContextKeyType{}

// FromContext extracts the session resolved by Manager.Middleware.
func FromContext[V agingstore.ValueConstraint](ctx context.Context) (Session[V], bool) {
	sess, ok := ctx.Value(sessionContextKey).(Session[V])
	return sess, ok
}

// Manager binds an aging store to cookie-carried session ids.
type Manager[V agingstore.ValueConstraint] struct {
	store  agingstore.Store[V]
	ttl    time.Duration
	cookie CookieOptions
	logger *slog.Logger
}

// NewManager creates a manager over the given store.
// ttl is the store's session time-to-live; it only bounds the lifetime of
// the issued cookie, the store itself stays authoritative for expiry.
// A nil logger falls back to slog.Default.
func NewManager[V agingstore.ValueConstraint](store agingstore.Store[V], ttl time.Duration, cookie CookieOptions, logger *slog.Logger) *Manager[V] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager[V]{
		store:  store,
		ttl:    ttl,
		cookie: cookie.normalize(),
		logger: logger,
	}
}

// Middleware resolves the session cookie and, when the store still holds a
// live session for it, attaches the session to the request context.
// An absent or expired session is not an error: the next handler simply sees
// no session, and access control stays the handler's decision.
func (m *Manager[V]) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(m.cookie.Name)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		value, ok := m.store.Get(cookie.Value)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, Session[V]{
			ID:    cookie.Value,
			Value: value,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Issue stores value as a new session and sets the session cookie.
// It returns the generated session id.
func (m *Manager[V]) Issue(w http.ResponseWriter, value V) string {
	id := m.store.Set("", value)
	SetCookie(w, id, time.Now().Add(m.ttl), m.cookie)
	m.logger.Debug("session issued", "session_id", id)
	return id
}

// Revoke deletes the request's session, if any, and clears the cookie.
func (m *Manager[V]) Revoke(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(m.cookie.Name); err == nil && cookie.Value != "" {
		m.store.Delete(cookie.Value)
		m.logger.Debug("session revoked", "session_id", cookie.Value)
	}
	ClearCookie(w, m.cookie)
}
