package tenant

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository provides PostgreSQL backed persistence for the global tenant
// tables.
type Repository struct {
	pool  *pgxpool.Pool
	guard *Guard
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool, guard *Guard) *Repository {
	return &Repository{pool: pool, guard: guard}
}

// GetBySlug fetches a tenant by its slug. Tenants are a global entity, so no
// tenant filter is ever applied.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (Tenant, error) {
	q := NewQuery(KindTenant, `SELECT id, name, slug, is_active, created_at, updated_at FROM tenants`).
		Where("slug = ?", slug)
	if err := r.guard.Scope(q, nil); err != nil {
		return Tenant{}, err
	}
	return r.one(ctx, q)
}

// GetByID fetches a tenant by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (Tenant, error) {
	q := NewQuery(KindTenant, `SELECT id, name, slug, is_active, created_at, updated_at FROM tenants`).
		Where("id = ?", id)
	if err := r.guard.Scope(q, nil); err != nil {
		return Tenant{}, err
	}
	return r.one(ctx, q)
}

// ListModuleActivations returns activation records across all tenants.
// The table is global by design: platform views consume it unfiltered.
func (r *Repository) ListModuleActivations(ctx context.Context) ([]ModuleActivation, error) {
	q := NewQuery(KindModuleActivation, `SELECT tenant_id, module, is_active, updated_at FROM tenant_modules`).
		OrderBy("tenant_id, module")
	if err := r.guard.Scope(q, nil); err != nil {
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
	var activations []ModuleActivation
	for rows.Next() {
		var a ModuleActivation
		if err := rows.Scan(&a.TenantID, &a.Module, &a.IsActive, &a.UpdatedAt); err != nil {
			return nil, err
		}
		activations = append(activations, a)
	}
	return activations, rows.Err()
}

func (r *Repository) one(ctx context.Context, q *Query) (Tenant, error) {
	sql, args, err := q.Build()
	if err != nil {
		return Tenant{}, err
	}
	var t Tenant
	row := r.pool.QueryRow(ctx, sql, args...)
	if err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, shared.ErrNotFound
		}
		return Tenant{}, err
	}
	return t, nil
}
