package tenant

import (
	"fmt"
	"time"
)

// Tenant is an isolated customer boundary. Every business row except the
// global platform tables carries exactly one tenant id, immutable after
// creation.
type Tenant struct {
	ID        int64
	Name      string
	Slug      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ModuleActivation records which business module is enabled for a tenant.
// The table itself is global: platform views list activations across tenants.
type ModuleActivation struct {
	TenantID  int64
	Module    string
	IsActive  bool
	UpdatedAt time.Time
}

// Kind identifies an entity class for isolation purposes. The set is fixed
// at schema-design time.
type Kind string

// Entity kinds known to the guard.
const (
	KindTenant           Kind = "tenants"
	KindModuleActivation Kind = "tenant_modules"
	KindPlatformConfig   Kind = "platform_config"
	KindPermission       Kind = "permissions"
	KindAuditEvent       Kind = "audit_events"

	KindPrincipal      Kind = "principals"
	KindRole           Kind = "roles"
	KindRoleAssignment Kind = "role_assignments"
	KindRefreshToken   Kind = "refresh_tokens"
	KindProject        Kind = "projects"
)

// Class partitions entity kinds into tenant-scoped and global.
type Class int

const (
	// ClassTenantScoped rows require an equality filter on tenant_id.
	ClassTenantScoped Class = iota
	// ClassGlobal rows are visible across tenants and must never be
	// tenant-filtered.
	ClassGlobal
)

// Classification returns the fixed kind-to-class table. It is built once at
// startup and never mutated afterwards.
func Classification() map[Kind]Class {
	return map[Kind]Class{
		KindTenant:           ClassGlobal,
		KindModuleActivation: ClassGlobal,
		KindPlatformConfig:   ClassGlobal,
		KindPermission:       ClassGlobal,
		KindAuditEvent:       ClassGlobal,

		KindPrincipal:      ClassTenantScoped,
		KindRole:           ClassTenantScoped,
		KindRoleAssignment: ClassTenantScoped,
		KindRefreshToken:   ClassTenantScoped,
		KindProject:        ClassTenantScoped,
	}
}

// ScopeError reports a caller bug around tenant scoping. It always fails
// closed: the offending query never executes.
type ScopeError struct {
	Kind   Kind
	Reason string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("tenant: %s: %s", e.Kind, e.Reason)
}
