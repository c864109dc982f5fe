package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByUsername(ctx context.Context, tenantID int64, username string) (*Principal, error)
	// FindPlatformOperator looks up a tenant-less principal. This is the
	// platform login path; it never matches tenant-owned rows.
	FindPlatformOperator(ctx context.Context, username string) (*Principal, error)
	// GetByID resolves a principal by primary key. Runs on every
	// authenticated request before a tenant context exists, keyed on the
	// globally unique id.
	GetByID(ctx context.Context, id int64) (*Principal, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool  *pgxpool.Pool
	guard *tenant.Guard
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool, guard *tenant.Guard) *PGRepository {
	return &PGRepository{pool: pool, guard: guard}
}

const principalColumns = `SELECT id, tenant_id, username, password_hash, is_active, is_super_admin, created_at, updated_at`

// FindByUsername fetches a principal by username within a tenant. Usernames
// are unique per tenant.
func (r *PGRepository) FindByUsername(ctx context.Context, tenantID int64, username string) (*Principal, error) {
	q := tenant.NewQuery(tenant.KindPrincipal, principalColumns+` FROM principals`).
		Where("username = ?", username)
	if err := r.guard.Scope(q, &tenantID); err != nil {
		return nil, err
	}
	sql, args, err := q.Build()
	if err != nil {
		return nil, err
	}
	return r.one(ctx, sql, args...)
}

// FindPlatformOperator fetches a tenant-less principal by username.
func (r *PGRepository) FindPlatformOperator(ctx context.Context, username string) (*Principal, error) {
	return r.one(ctx,
		principalColumns+` FROM principals WHERE tenant_id IS NULL AND username = $1`, username)
}

// GetByID fetches a principal by id.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Principal, error) {
	return r.one(ctx, principalColumns+` FROM principals WHERE id = $1`, id)
}

func (r *PGRepository) one(ctx context.Context, sql string, args ...any) (*Principal, error) {
	var p Principal
	err := r.pool.QueryRow(ctx, sql, args...).Scan(
		&p.ID, &p.TenantID, &p.Username, &p.PasswordHash,
		&p.IsActive, &p.IsSuperAdmin, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

var _ Repository = (*PGRepository)(nil)
