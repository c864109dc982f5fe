package shared

import "context"

// Identity is the resolved authenticated caller attached to request context
// by the auth middleware. Downstream modules treat it as immutable; it is
// re-resolved on every request, never cached across requests.
type Identity struct {
	PrincipalID     int64
	TenantID        *int64
	SessionID       string
	Rank            int
	PermissionCodes []string
	IsSuperAdmin    bool
}

// IsPlatformOperator reports whether the identity is a platform-level
// principal with no tenant boundary.
func (id Identity) IsPlatformOperator() bool {
	return id.TenantID == nil
}

// HasPermission reports whether the identity carries the permission code.
// Super-admins bypass per-permission checks.
func (id Identity) HasPermission(code string) bool {
	if id.IsSuperAdmin {
		return true
	}
	for _, c := range id.PermissionCodes {
		if c == code {
			return true
		}
	}
	return false
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
