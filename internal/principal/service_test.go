package principal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// memoryRepo keeps password hashes off the management view, like the real
// repository: the domain type never carries them.
type memoryRepo struct {
	principals map[int64]Principal
	hashes     map[int64]string
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		principals: make(map[int64]Principal),
		hashes:     make(map[int64]string),
	}
}

func (r *memoryRepo) List(_ context.Context, tenantID int64) ([]Principal, error) {
	var out []Principal
	for _, p := range r.principals {
		if p.TenantID != nil && *p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memoryRepo) Insert(_ context.Context, tenantID *int64, username, passwordHash string, superAdmin bool) (Principal, error) {
	for _, p := range r.principals {
		if p.Username == username {
			return Principal{}, shared.ErrDuplicate
		}
	}
	r.nextID++
	p := Principal{ID: r.nextID, TenantID: tenantID, Username: username, IsActive: true, IsSuperAdmin: superAdmin}
	r.principals[p.ID] = p
	r.hashes[p.ID] = passwordHash
	return p, nil
}

func (r *memoryRepo) SetActive(_ context.Context, tenantID, principalID int64, active bool) error {
	p, ok := r.principals[principalID]
	if !ok || p.TenantID == nil || *p.TenantID != tenantID {
		return shared.ErrNotFound
	}
	p.IsActive = active
	r.principals[principalID] = p
	return nil
}

type recordingRevoker struct {
	revoked []int64
}

func (r *recordingRevoker) RevokeAllForPrincipal(_ context.Context, principalID int64) error {
	r.revoked = append(r.revoked, principalID)
	return nil
}

func int64ptr(v int64) *int64 { return &v }

func TestCreateHashesPassword(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &recordingRevoker{}, nil)

	p, err := svc.Create(context.Background(), int64ptr(10), "alice", "correct horse", false)
	require.NoError(t, err)
	stored := repo.hashes[p.ID]
	require.NotEqual(t, "correct horse", stored)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte("correct horse")))
	require.True(t, p.IsActive)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), &recordingRevoker{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, int64ptr(10), "  ", "longenough", false)
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Create(ctx, int64ptr(10), "alice", "short", false)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateDuplicateUsername(t *testing.T) {
	svc := NewService(newMemoryRepo(), &recordingRevoker{}, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, int64ptr(10), "alice", "correct horse", false)
	require.NoError(t, err)
	_, err = svc.Create(ctx, int64ptr(10), "alice", "other password", false)
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestDeactivateRevokesSessions(t *testing.T) {
	repo := newMemoryRepo()
	revoker := &recordingRevoker{}
	svc := NewService(repo, revoker, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, int64ptr(10), "alice", "correct horse", false)
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, 10, p.ID))
	require.False(t, repo.principals[p.ID].IsActive)
	require.Equal(t, []int64{p.ID}, revoker.revoked)

	require.NoError(t, svc.Reactivate(ctx, 10, p.ID))
	require.True(t, repo.principals[p.ID].IsActive)
	// Reactivation does not touch sessions.
	require.Len(t, revoker.revoked, 1)
}

func TestDeactivateIsTenantBound(t *testing.T) {
	repo := newMemoryRepo()
	revoker := &recordingRevoker{}
	svc := NewService(repo, revoker, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, int64ptr(10), "alice", "correct horse", false)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Deactivate(ctx, 11, p.ID), shared.ErrNotFound)
	require.Empty(t, revoker.revoked)
}
