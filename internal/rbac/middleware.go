package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Middleware wires authorization helpers for HTTP handlers. It consumes the
// identity the auth middleware resolved for this request.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAny ensures the caller holds at least one of the required
// permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.Unauthorized(w)
				return
			}
			for _, p := range normalized {
				if id.HasPermission(p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		})
	}
}

// RequireAll ensures the caller holds every required permission.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.Unauthorized(w)
				return
			}
			for _, p := range normalized {
				if !id.HasPermission(p) {
					httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireLevel ensures the caller's resolved access rank meets the minimum.
func (m Middleware) RequireLevel(minRank int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.Unauthorized(w)
				return
			}
			if id.Rank < minRank && !id.IsSuperAdmin {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePlatformOperator restricts a route to tenant-less platform
// principals. Guards the cross-tenant surfaces.
func (m Middleware) RequirePlatformOperator() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := shared.IdentityFromContext(r.Context())
			if !ok {
				httpx.Unauthorized(w)
				return
			}
			if !id.IsPlatformOperator() {
				if m.Logger != nil {
					m.Logger.Warn("platform route denied", slog.Int64("principal_id", id.PrincipalID))
				}
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}
