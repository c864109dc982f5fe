package rbac

import (
	"context"
	"log/slog"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Store defines persistence operations for role and permission
// administration.
type Store interface {
	ListRoles(ctx context.Context, tenantID int64) ([]Role, error)
	GetRole(ctx context.Context, tenantID, roleID int64) (Role, error)
	InsertRole(ctx context.Context, role Role) (Role, error)
	SetRoleActive(ctx context.Context, tenantID, roleID int64, active bool) error
	SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error

	ListPermissions(ctx context.Context) ([]Permission, error)
	EnsurePermission(ctx context.Context, perm Permission) (Permission, error)
	SetPermissionActive(ctx context.Context, code string, active bool) error

	UpsertAssignment(ctx context.Context, a Assignment) error
	SetAssignmentActive(ctx context.Context, tenantID, principalID, roleID int64, active bool) error
}

// Service orchestrates role and permission administration.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// CreateRole validates and persists a new role. Structural invariants are
// enforced at construction; an invalid role never reaches the store.
func (s *Service) CreateRole(ctx context.Context, tenantID *int64, code *string, name string, accessLevel int) (Role, error) {
	role, err := NewRole(tenantID, code, name, accessLevel)
	if err != nil {
		return Role{}, err
	}
	return s.store.InsertRole(ctx, role)
}

// ListRoles returns the roles visible to the tenant, system templates
// included.
func (s *Service) ListRoles(ctx context.Context, tenantID int64) ([]Role, error) {
	return s.store.ListRoles(ctx, tenantID)
}

// DeactivateRole soft-deactivates a tenant-owned role. System roles are
// shared templates and cannot be mutated through tenant administration.
func (s *Service) DeactivateRole(ctx context.Context, tenantID, roleID int64) error {
	return s.setRoleActive(ctx, tenantID, roleID, false)
}

// ReactivateRole restores a previously deactivated role.
func (s *Service) ReactivateRole(ctx context.Context, tenantID, roleID int64) error {
	return s.setRoleActive(ctx, tenantID, roleID, true)
}

func (s *Service) setRoleActive(ctx context.Context, tenantID, roleID int64, active bool) error {
	role, err := s.store.GetRole(ctx, tenantID, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem() {
		return shared.ErrForbidden
	}
	return s.store.SetRoleActive(ctx, tenantID, roleID, active)
}

// SetRolePermissions replaces the permission set of a tenant-owned role.
func (s *Service) SetRolePermissions(ctx context.Context, tenantID, roleID int64, permissionIDs []int64) error {
	role, err := s.store.GetRole(ctx, tenantID, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem() {
		return shared.ErrForbidden
	}
	return s.store.SetRolePermissions(ctx, roleID, permissionIDs)
}

// ListPermissions returns all permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.store.ListPermissions(ctx)
}

// EnsurePermission validates and upserts a permission by code.
func (s *Service) EnsurePermission(ctx context.Context, code, name string) (Permission, error) {
	perm, err := NewPermission(code, name)
	if err != nil {
		return Permission{}, err
	}
	return s.store.EnsurePermission(ctx, perm)
}

// DeactivatePermission removes a permission from every effective check while
// leaving its role assignments in place.
func (s *Service) DeactivatePermission(ctx context.Context, code string) error {
	return s.store.SetPermissionActive(ctx, code, false)
}

// ReactivatePermission restores a deactivated permission.
func (s *Service) ReactivatePermission(ctx context.Context, code string) error {
	return s.store.SetPermissionActive(ctx, code, true)
}

// AssignRole grants a role to a principal within the tenant. The role must be
// visible to the tenant (owned or system template).
func (s *Service) AssignRole(ctx context.Context, tenantID, principalID, roleID int64) error {
	if _, err := s.store.GetRole(ctx, tenantID, roleID); err != nil {
		return err
	}
	return s.store.UpsertAssignment(ctx, Assignment{
		PrincipalID: principalID,
		RoleID:      roleID,
		TenantID:    tenantID,
		IsActive:    true,
	})
}

// RevokeAssignment deactivates a principal's role assignment without
// deleting its history.
func (s *Service) RevokeAssignment(ctx context.Context, tenantID, principalID, roleID int64) error {
	return s.store.SetAssignmentActive(ctx, tenantID, principalID, roleID, false)
}
