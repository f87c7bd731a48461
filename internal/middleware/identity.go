package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	userIDKey contextKey = "user_id"

	// SessionUserIDKey is the session value the auth service writes the user id under
	SessionUserIDKey = "user_id"
)

// IdentityMiddleware resolves the current user from the session cookie
type IdentityMiddleware struct {
	store       sessions.Store
	sessionName string
	logger      *zap.Logger
}

// NewIdentityMiddleware creates a new identity middleware
func NewIdentityMiddleware(store sessions.Store, sessionName string, logger *zap.Logger) *IdentityMiddleware {
	if sessionName == "" {
		sessionName = "session"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityMiddleware{
		store:       store,
		sessionName: sessionName,
		logger:      logger,
	}
}

// LoadUser adds the session's user id to the request context when present
func (m *IdentityMiddleware) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := m.store.Get(r, m.sessionName)
		if err != nil {
			// Continue without user if session is invalid
			m.logger.Debug("invalid session", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		userID, ok := sessionUserID(session.Values[SessionUserIDKey])
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// sessionUserID accepts the types session codecs are known to produce
func sessionUserID(value interface{}) (int64, bool) {
	var id int64
	switch v := value.(type) {
	case int:
		id = int64(v)
	case int64:
		id = v
	case float64:
		id = int64(v)
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		id = parsed
	default:
		return 0, false
	}
	return id, id > 0
}

// RequireUser rejects requests without a user with 401
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserIDFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUserID returns a context carrying userID
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the current user id, if any
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}
