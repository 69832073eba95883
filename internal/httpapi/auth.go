package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"qms/walkin-service/internal/store"
)

type authContextKey struct{}

type authInfo struct {
	Session store.Session
}

// AuthMiddleware resolves the operator session for protected paths.
// Ticket issuance and all read paths stay public so kiosks and the
// display board need no credentials.
func AuthMiddleware(queueStore store.QueueStore, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		sessionID := sessionIDFromRequest(r)
		if sessionID == "" {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing session")
			return
		}
		session, err := queueStore.GetSession(r.Context(), sessionID)
		if err != nil {
			if errors.Is(err, store.ErrSessionNotFound) {
				writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "invalid session")
				return
			}
			writeError(w, requestIDFromRequest(r), http.StatusInternalServerError, "internal_error", "internal server error")
			return
		}
		ctx := context.WithValue(r.Context(), authContextKey{}, authInfo{Session: session})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) (store.Session, bool) {
	value := ctx.Value(authContextKey{})
	if value == nil {
		return store.Session{}, false
	}
	info, ok := value.(authInfo)
	if !ok {
		return store.Session{}, false
	}
	return info.Session, true
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	session, ok := sessionFromContext(r.Context())
	if !ok {
		writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing session")
		return false
	}
	if session.Role != store.RoleAdmin {
		writeError(w, requestIDFromRequest(r), http.StatusForbidden, "access_denied", "admin role required")
		return false
	}
	return true
}

func sessionIDFromRequest(r *http.Request) string {
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		return token
	}
	return strings.TrimSpace(r.Header.Get("X-Session-ID"))
}

func requestIDFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Request-ID"))
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

func isPublicEndpoint(r *http.Request) bool {
	switch r.URL.Path {
	case "/healthz", "/metrics", "/api/auth/login":
		return true
	}
	if r.Method == http.MethodGet || r.Method == http.MethodOptions {
		return true
	}
	// Kiosk ticket issuance is the one unauthenticated command.
	if r.URL.Path == "/api/tickets" && r.Method == http.MethodPost {
		return true
	}
	return false
}
