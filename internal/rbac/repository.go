package rbac

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence for roles, permissions
// and assignments. Tenant-scoped reads go through the isolation guard.
type Repository struct {
	pool  *pgxpool.Pool
	guard *tenant.Guard
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, guard *tenant.Guard) *Repository {
	return &Repository{pool: pool, guard: guard}
}

// GrantsForPrincipal returns the principal's role grants within a tenant,
// including grants on system roles. Inactive assignments are returned with
// their flag so the resolver can exclude them.
func (r *Repository) GrantsForPrincipal(ctx context.Context, principalID, tenantID int64) ([]RoleGrant, error) {
	aq := tenant.NewQuery(tenant.KindRoleAssignment,
		`SELECT role_id, is_active FROM role_assignments`).
		Where("principal_id = ?", principalID)
	if err := r.guard.Scope(aq, &tenantID); err != nil {
		return nil, err
	}
	sql, args, err := aq.Build()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignmentActive := make(map[int64]bool)
	var roleIDs []int64
	for rows.Next() {
		var roleID int64
		var active bool
		if err := rows.Scan(&roleID, &active); err != nil {
			return nil, err
		}
		assignmentActive[roleID] = active
		roleIDs = append(roleIDs, roleID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(roleIDs) == 0 {
		return nil, nil
	}

	roles, err := r.rolesByID(ctx, tenantID, roleIDs)
	if err != nil {
		return nil, err
	}
	perms, err := r.permissionsByRole(ctx, roleIDs)
	if err != nil {
		return nil, err
	}

	grants := make([]RoleGrant, 0, len(roles))
	for _, role := range roles {
		grants = append(grants, RoleGrant{
			Role:             role,
			Permissions:      perms[role.ID],
			AssignmentActive: assignmentActive[role.ID],
		})
	}
	return grants, nil
}

// AllPermissionCodes returns every active permission code. Used only by the
// super-admin resolution branch.
func (r *Repository) AllPermissionCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT code FROM permissions WHERE is_active ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// ListRoles returns the roles visible to a tenant: its own plus the system
// templates.
func (r *Repository) ListRoles(ctx context.Context, tenantID int64) ([]Role, error) {
	q := tenant.NewQuery(tenant.KindRole, roleColumns+` FROM roles`).
		OrderBy("tenant_id NULLS FIRST, name")
	if err := r.guard.Scope(q, &tenantID); err != nil {
		return nil, err
	}
	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

// GetRole fetches a single role visible to the tenant.
func (r *Repository) GetRole(ctx context.Context, tenantID, roleID int64) (Role, error) {
	q := tenant.NewQuery(tenant.KindRole, roleColumns+` FROM roles`).
		Where("id = ?", roleID)
	if err := r.guard.Scope(q, &tenantID); err != nil {
		return Role{}, err
	}
	sql, args, err := q.Build()
	if err != nil {
		return Role{}, err
	}
	var role Role
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(
		&role.ID, &role.TenantID, &role.Code, &role.Name,
		&role.AccessLevel, &role.IsActive, &role.CreatedAt, &role.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, shared.ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// InsertRole persists a validated role snapshot.
func (r *Repository) InsertRole(ctx context.Context, role Role) (Role, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO roles (tenant_id, code, name, access_level, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now(), now())
		 RETURNING id, created_at, updated_at`,
		role.TenantID, role.Code, role.Name, role.AccessLevel, role.IsActive,
	).Scan(&role.ID, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return Role{}, mapPGError(err)
	}
	return role, nil
}

// SetRoleActive soft-deactivates or reactivates a tenant-owned role. The
// explicit NOT NULL predicate narrows the guard's template-visible scope so
// tenant administration never mutates shared system roles.
func (r *Repository) SetRoleActive(ctx context.Context, tenantID, roleID int64, active bool) error {
	q := tenant.NewQuery(tenant.KindRole,
		`UPDATE roles SET is_active = ?, updated_at = now()`, active).
		Where("id = ?", roleID).
		Where("tenant_id IS NOT NULL")
	if err := r.guard.Scope(q, &tenantID); err != nil {
		return err
	}
	sql, args, err := q.Build()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const roleColumns = `SELECT id, tenant_id, code, name, access_level, is_active, created_at, updated_at`

func (r *Repository) rolesByID(ctx context.Context, tenantID int64, ids []int64) ([]Role, error) {
	q := tenant.NewQuery(tenant.KindRole, roleColumns+` FROM roles`).
		Where("id = ANY(?)", ids)
	if err := r.guard.Scope(q, &tenantID); err != nil {
		return nil, err
	}
	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

func (r *Repository) permissionsByRole(ctx context.Context, roleIDs []int64) (map[int64][]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT rp.role_id, p.id, p.code, p.name, p.is_active
		 FROM role_permissions rp
		 JOIN permissions p ON p.id = rp.permission_id
		 WHERE rp.role_id = ANY($1)`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64][]Permission)
	for rows.Next() {
		var roleID int64
		var p Permission
		if err := rows.Scan(&roleID, &p.ID, &p.Code, &p.Name, &p.IsActive); err != nil {
			return nil, err
		}
		out[roleID] = append(out[roleID], p)
	}
	return out, rows.Err()
}

// EnsurePermission upserts a permission by code.
func (r *Repository) EnsurePermission(ctx context.Context, perm Permission) (Permission, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO permissions (code, name, is_active)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, is_active`,
		perm.Code, perm.Name, perm.IsActive,
	).Scan(&perm.ID, &perm.IsActive)
	if err != nil {
		return Permission{}, mapPGError(err)
	}
	return perm, nil
}

// SetPermissionActive toggles a permission's active flag. Deactivation
// propagates to effective checks immediately.
func (r *Repository) SetPermissionActive(ctx context.Context, code string, active bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE permissions SET is_active = $1 WHERE code = $2`, active, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListPermissions returns all permissions. The table is global.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, name, is_active FROM permissions ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.IsActive); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// UpsertAssignment creates or reactivates a role assignment.
func (r *Repository) UpsertAssignment(ctx context.Context, a Assignment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_assignments (principal_id, role_id, tenant_id, is_active, created_at)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (principal_id, role_id, tenant_id) DO UPDATE SET is_active = EXCLUDED.is_active`,
		a.PrincipalID, a.RoleID, a.TenantID, a.IsActive)
	return mapPGError(err)
}

// SetAssignmentActive toggles a single assignment's flag within the tenant.
func (r *Repository) SetAssignmentActive(ctx context.Context, tenantID, principalID, roleID int64, active bool) error {
	q := tenant.NewQuery(tenant.KindRoleAssignment,
		`UPDATE role_assignments SET is_active = ?`, active).
		Where("principal_id = ?", principalID).
		Where("role_id = ?", roleID)
	if err := r.guard.Scope(q, &tenantID); err != nil {
		return err
	}
	sql, args, err := q.Build()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetRolePermissions replaces a role's permission set inside one transaction.
func (r *Repository) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM role_permissions WHERE role_id = $1 AND permission_id != ALL($2)`,
			roleID, permissionIDs); err != nil {
			return err
		}
		for _, pid := range permissionIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO role_permissions (role_id, permission_id)
				 VALUES ($1, $2) ON CONFLICT DO NOTHING`, roleID, pid); err != nil {
				return err
			}
		}
		return nil
	})
}

func scanRoles(rows pgx.Rows) ([]Role, error) {
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(
			&role.ID, &role.TenantID, &role.Code, &role.Name,
			&role.AccessLevel, &role.IsActive, &role.CreatedAt, &role.UpdatedAt,
		); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func mapPGError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return shared.ErrDuplicate
	}
	return err
}

var _ GrantSource = (*Repository)(nil)
