// Package projects is a thin business module demonstrating how CRUD services
// consume the auth core: identity from request context, every statement built
// through the tenant guard, permissions enforced by rbac middleware.
package projects

import "time"

// Project is a tenant-scoped business entity.
type Project struct {
	ID        int64
	TenantID  int64
	Code      string
	Name      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Project statuses.
const (
	StatusDraft    = "DRAFT"
	StatusActive   = "ACTIVE"
	StatusArchived = "ARCHIVED"
)
