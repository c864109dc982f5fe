package projects

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	projects map[int64]Project
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{projects: make(map[int64]Project)}
}

func (r *memoryRepo) List(_ context.Context, tenantID int64) ([]Project, error) {
	var out []Project
	for _, p := range r.projects {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, tenantID, projectID int64) (Project, error) {
	p, ok := r.projects[projectID]
	if !ok || p.TenantID != tenantID {
		return Project{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) Insert(_ context.Context, p Project) (Project, error) {
	r.nextID++
	p.ID = r.nextID
	r.projects[p.ID] = p
	return p, nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, tenantID, projectID int64, status string) error {
	p, ok := r.projects[projectID]
	if !ok || p.TenantID != tenantID {
		return shared.ErrNotFound
	}
	p.Status = status
	r.projects[projectID] = p
	return nil
}

func TestCreateNormalizesAndDrafts(t *testing.T) {
	svc := NewService(newMemoryRepo())

	p, err := svc.Create(context.Background(), 10, " mx-1 ", " Migration ")
	require.NoError(t, err)
	require.Equal(t, "MX-1", p.Code)
	require.Equal(t, "Migration", p.Name)
	require.Equal(t, StatusDraft, p.Status)
	require.Equal(t, int64(10), p.TenantID)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), 10, "", "Name")
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(context.Background(), 10, "CODE", "  ")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestGetIsTenantBound(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, 10, "A", "Alpha")
	require.NoError(t, err)

	got, err := svc.Get(ctx, 10, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	// A different tenant cannot see the row even with the right id.
	_, err = svc.Get(ctx, 11, created.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestArchive(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	created, err := svc.Create(ctx, 10, "A", "Alpha")
	require.NoError(t, err)
	require.NoError(t, svc.Archive(ctx, 10, created.ID))

	got, err := svc.Get(ctx, 10, created.ID)
	require.NoError(t, err)
	require.Equal(t, StatusArchived, got.Status)

	require.ErrorIs(t, svc.Archive(ctx, 11, created.ID), shared.ErrNotFound)
}
