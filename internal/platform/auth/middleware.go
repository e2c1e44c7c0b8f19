package auth

import (
	"net/http"
	"strings"

	"github.com/franchisehub/api/internal/platform/httpx"
)

// Header names populated by the identity gateway. The gateway terminates the
// session and is trusted to assert the caller's id, role, and store linkage.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// RequireIdentity extracts the gateway-asserted identity and rejects requests
// without one. Handlers downstream read the identity from the context.
func RequireIdentity() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid := strings.TrimSpace(r.Header.Get(HeaderUserID))
			role := strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole)))

			if uid == "" {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
				return
			}
			if role != RoleStore && role != RoleAdmin {
				httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "unknown caller role", http.StatusUnauthorized))
				return
			}

			identity := &Identity{UID: uid, Role: role}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}
