package principal

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool  *pgxpool.Pool
	guard *tenant.Guard
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, guard *tenant.Guard) *Repository {
	return &Repository{pool: pool, guard: guard}
}

// List returns all principals within a tenant.
func (r *Repository) List(ctx context.Context, tenantID int64) ([]Principal, error) {
	q := tenant.NewQuery(tenant.KindPrincipal,
		`SELECT id, tenant_id, username, is_active, is_super_admin, created_at, updated_at FROM principals`).
		OrderBy("username")
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
	var principals []Principal
	for rows.Next() {
		var p Principal
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Username, &p.IsActive, &p.IsSuperAdmin, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		principals = append(principals, p)
	}
	return principals, rows.Err()
}

// Insert creates a principal. The username is unique per tenant.
func (r *Repository) Insert(ctx context.Context, tenantID *int64, username, passwordHash string, superAdmin bool) (Principal, error) {
	var p Principal
	err := r.pool.QueryRow(ctx,
		`INSERT INTO principals (tenant_id, username, password_hash, is_active, is_super_admin, created_at, updated_at)
		 VALUES ($1, $2, $3, true, $4, now(), now())
		 RETURNING id, tenant_id, username, is_active, is_super_admin, created_at, updated_at`,
		tenantID, username, passwordHash, superAdmin,
	).Scan(&p.ID, &p.TenantID, &p.Username, &p.IsActive, &p.IsSuperAdmin, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Principal{}, shared.ErrDuplicate
		}
		return Principal{}, err
	}
	return p, nil
}

// SetActive toggles a principal's active flag within the tenant.
func (r *Repository) SetActive(ctx context.Context, tenantID, principalID int64, active bool) error {
	q := tenant.NewQuery(tenant.KindPrincipal,
		`UPDATE principals SET is_active = ?, updated_at = now()`, active).
		Where("id = ?", principalID)
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
