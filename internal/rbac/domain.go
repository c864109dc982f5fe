package rbac

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Access-level rank bounds. Low is least privileged.
const (
	MinAccessLevel = 1
	MaxAccessLevel = 5
)

// ValidationError reports a malformed domain entity. Entities failing
// construction are rejected before they ever reach persistence.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("rbac: invalid %s: %s", e.Field, e.Reason)
}

// Role groups permissions under an access-level rank. A role with a nil
// TenantID is a system role, usable across tenants as a read-only template.
// Roles are soft-deactivated, never deleted.
type Role struct {
	ID          int64
	TenantID    *int64
	Code        *string
	Name        string
	AccessLevel int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewRole validates and constructs a role snapshot. A code is only legal on
// system roles: a coded role owned by a tenant is rejected.
func NewRole(tenantID *int64, code *string, name string, accessLevel int) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if accessLevel < MinAccessLevel || accessLevel > MaxAccessLevel {
		return Role{}, &ValidationError{
			Field:  "access_level",
			Reason: fmt.Sprintf("must be within [%d,%d]", MinAccessLevel, MaxAccessLevel),
		}
	}
	if code != nil {
		trimmed := strings.TrimSpace(*code)
		if trimmed == "" {
			return Role{}, &ValidationError{Field: "code", Reason: "must not be blank when set"}
		}
		if tenantID != nil {
			return Role{}, &ValidationError{Field: "code", Reason: "only system roles may carry a code"}
		}
		code = &trimmed
	}
	return Role{
		TenantID:    tenantID,
		Code:        code,
		Name:        name,
		AccessLevel: accessLevel,
		IsActive:    true,
	}, nil
}

// IsSystem reports whether the role is a cross-tenant system template.
func (r Role) IsSystem() bool { return r.TenantID == nil }

// Deactivate returns a deactivated copy of the role.
func (r Role) Deactivate() Role {
	r.IsActive = false
	return r
}

// Activate returns a reactivated copy of the role.
func (r Role) Activate() Role {
	r.IsActive = true
	return r
}

// Permission is a named capability. Deactivating a permission removes it from
// every effective-permission computation even while still assigned to roles.
type Permission struct {
	ID       int64
	Code     string
	Name     string
	IsActive bool
}

// NewPermission validates and constructs a permission snapshot.
func NewPermission(code, name string) (Permission, error) {
	code = strings.TrimSpace(strings.ToLower(code))
	if code == "" {
		return Permission{}, &ValidationError{Field: "code", Reason: "must not be empty"}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Permission{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	return Permission{Code: code, Name: name, IsActive: true}, nil
}

// Deactivate returns a deactivated copy of the permission.
func (p Permission) Deactivate() Permission {
	p.IsActive = false
	return p
}

// Activate returns a reactivated copy of the permission.
func (p Permission) Activate() Permission {
	p.IsActive = true
	return p
}

// Assignment joins a principal to a role within a tenant. Its active flag is
// independent of the role's and the permission's.
type Assignment struct {
	PrincipalID int64
	RoleID      int64
	TenantID    int64
	IsActive    bool
	CreatedAt   time.Time
}

// RoleGrant is the fully joined shape the resolver consumes: one assignment,
// its role, and the role's permissions.
type RoleGrant struct {
	Role             Role
	Permissions      []Permission
	AssignmentActive bool
}

// Effective reports whether the grant contributes at all: both the
// assignment and the role must be active.
func (g RoleGrant) Effective() bool {
	return g.AssignmentActive && g.Role.IsActive
}

// EffectivePermissionCodes returns the deduplicated permission codes granted
// by the given grants. A code appears iff assignment, role and permission are
// all active simultaneously.
func EffectivePermissionCodes(grants []RoleGrant) []string {
	seen := make(map[string]struct{})
	for _, g := range grants {
		if !g.Effective() {
			continue
		}
		for _, p := range g.Permissions {
			if !p.IsActive {
				continue
			}
			seen[p.Code] = struct{}{}
		}
	}
	codes := make([]string, 0, len(seen))
	for c := range seen {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// HasRole reports whether an effective grant carries a role with the given
// code. Only system roles have codes.
func HasRole(grants []RoleGrant, code string) bool {
	for _, g := range grants {
		if !g.Effective() {
			continue
		}
		if g.Role.Code != nil && *g.Role.Code == code {
			return true
		}
	}
	return false
}

// Access is the resolver's output value object. Callers treat it as
// immutable and re-resolve on every request.
type Access struct {
	Rank            int
	PermissionCodes []string
	IsSuperAdmin    bool
}

// Has reports whether the access set grants the permission code.
// Super-admins bypass per-permission checks.
func (a Access) Has(code string) bool {
	if a.IsSuperAdmin {
		return true
	}
	for _, c := range a.PermissionCodes {
		if c == code {
			return true
		}
	}
	return false
}
