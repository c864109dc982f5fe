package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// SessionChecker reports whether a session has been revoked. Implemented by
// token.Denylist.
type SessionChecker interface {
	Banned(ctx context.Context, sessionID string) (bool, error)
}

// Authenticator attaches the resolved caller identity to request context.
//
// Each request re-runs the full chain: token verification, denylist check,
// principal load and access resolution. Nothing is cached across requests
// because role assignments can change between them.
type Authenticator struct {
	Logger   *slog.Logger
	Minter   *Minter
	Service  *Service
	Sessions SessionChecker
	Resolver *rbac.Resolver
}

// Middleware returns the request authentication middleware.
func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httpx.Unauthorized(w)
				return
			}
			claims, err := a.Minter.Verify(raw)
			if err != nil {
				httpx.Unauthorized(w)
				return
			}
			banned, err := a.Sessions.Banned(r.Context(), claims.SessionID)
			if err != nil {
				a.Logger.Error("session denylist check", slog.Any("error", err))
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if banned {
				httpx.Unauthorized(w)
				return
			}
			principalID, err := claims.PrincipalID()
			if err != nil {
				httpx.Unauthorized(w)
				return
			}
			principal, err := a.Service.LoadPrincipal(r.Context(), principalID)
			if err != nil {
				httpx.Unauthorized(w)
				return
			}

			// Tenant-less principals without the super-admin flag have no
			// tenant to resolve grants in; they get the floor access level
			// rather than an error.
			access := rbac.Access{Rank: rbac.MinAccessLevel}
			if principal.TenantID != nil || principal.IsSuperAdmin {
				var tenantID int64
				if principal.TenantID != nil {
					tenantID = *principal.TenantID
				}
				access, err = a.Resolver.Resolve(r.Context(), principal.ID, tenantID, principal.IsSuperAdmin)
				if err != nil {
					a.Logger.Error("resolve access", slog.Int64("principal_id", principal.ID), slog.Any("error", err))
					httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
					return
				}
			}

			identity := shared.Identity{
				PrincipalID:     principal.ID,
				TenantID:        principal.TenantID,
				SessionID:       claims.SessionID,
				Rank:            access.Rank,
				PermissionCodes: access.PermissionCodes,
				IsSuperAdmin:    access.IsSuperAdmin,
			}
			next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), identity)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
