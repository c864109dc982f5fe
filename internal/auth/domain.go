package auth

import "time"

// Principal represents an authenticated user identity. A nil TenantID marks
// a platform operator: tenant-less, allowed onto the cross-tenant surfaces.
// Super-admins bypass per-permission checks but remain tenant-scoped unless
// they are also platform operators.
type Principal struct {
	ID           int64
	TenantID     *int64
	Username     string
	PasswordHash string
	IsActive     bool
	IsSuperAdmin bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
