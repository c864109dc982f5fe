package projects

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
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

const projectColumns = `SELECT id, tenant_id, code, name, status, created_at, updated_at`

// List returns the tenant's projects.
func (r *Repository) List(ctx context.Context, tenantID int64) ([]Project, error) {
	q := tenant.NewQuery(tenant.KindProject, projectColumns+` FROM projects`).
		OrderBy("code")
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
	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Code, &p.Name, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Get fetches one project within the tenant.
func (r *Repository) Get(ctx context.Context, tenantID, projectID int64) (Project, error) {
	q := tenant.NewQuery(tenant.KindProject, projectColumns+` FROM projects`).
		Where("id = ?", projectID)
	if err := r.guard.Scope(q, &tenantID); err != nil {
		return Project{}, err
	}
	sql, args, err := q.Build()
	if err != nil {
		return Project{}, err
	}
	var p Project
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(
		&p.ID, &p.TenantID, &p.Code, &p.Name, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, shared.ErrNotFound
		}
		return Project{}, err
	}
	return p, nil
}

// Insert creates a project. The tenant id is written once at creation and is
// immutable afterwards.
func (r *Repository) Insert(ctx context.Context, p Project) (Project, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO projects (tenant_id, code, name, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now())
		 RETURNING id, created_at, updated_at`,
		p.TenantID, p.Code, p.Name, p.Status,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Project{}, shared.ErrDuplicate
		}
		return Project{}, err
	}
	return p, nil
}

// UpdateStatus moves a project between statuses within the tenant.
func (r *Repository) UpdateStatus(ctx context.Context, tenantID, projectID int64, status string) error {
	q := tenant.NewQuery(tenant.KindProject,
		`UPDATE projects SET status = ?, updated_at = now()`, status).
		Where("id = ?", projectID)
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
