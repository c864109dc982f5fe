package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryGrantSource struct {
	grants   map[int64][]RoleGrant
	allCodes []string
	err      error
	calls    int
}

func (s *memoryGrantSource) GrantsForPrincipal(_ context.Context, principalID, _ int64) ([]RoleGrant, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.grants[principalID], nil
}

func (s *memoryGrantSource) AllPermissionCodes(context.Context) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.allCodes, nil
}

func TestResolveMaxRankWins(t *testing.T) {
	src := &memoryGrantSource{grants: map[int64][]RoleGrant{
		10: {
			{Role: Role{AccessLevel: 2, IsActive: true}, AssignmentActive: true},
			{Role: Role{AccessLevel: 4, IsActive: true}, AssignmentActive: true},
			{Role: Role{AccessLevel: 5, IsActive: false}, AssignmentActive: true},
		},
	}}
	r := NewResolver(src, nil)

	access, err := r.Resolve(context.Background(), 10, 1, false)
	require.NoError(t, err)
	require.Equal(t, 4, access.Rank)
	require.False(t, access.IsSuperAdmin)
}

func TestResolveNoGrantsIsMinimumRank(t *testing.T) {
	r := NewResolver(&memoryGrantSource{grants: map[int64][]RoleGrant{}}, nil)

	access, err := r.Resolve(context.Background(), 99, 1, false)
	require.NoError(t, err)
	require.Equal(t, MinAccessLevel, access.Rank)
	require.Empty(t, access.PermissionCodes)
}

func TestResolveInactiveGrantsDoNotRaiseRank(t *testing.T) {
	src := &memoryGrantSource{grants: map[int64][]RoleGrant{
		10: {
			{Role: Role{AccessLevel: 5, IsActive: true}, AssignmentActive: false},
			{Role: Role{AccessLevel: 5, IsActive: false}, AssignmentActive: true},
		},
	}}
	r := NewResolver(src, nil)

	access, err := r.Resolve(context.Background(), 10, 1, false)
	require.NoError(t, err)
	require.Equal(t, MinAccessLevel, access.Rank)
}

func TestResolvePermissionCodes(t *testing.T) {
	src := &memoryGrantSource{grants: map[int64][]RoleGrant{
		10: {
			{
				Role: Role{AccessLevel: 3, IsActive: true},
				Permissions: []Permission{
					{Code: "projects.view", IsActive: true},
					{Code: "projects.manage", IsActive: true},
					{Code: "rbac.manage", IsActive: false},
				},
				AssignmentActive: true,
			},
		},
	}}
	r := NewResolver(src, nil)

	access, err := r.Resolve(context.Background(), 10, 1, false)
	require.NoError(t, err)
	require.Equal(t, []string{"projects.manage", "projects.view"}, access.PermissionCodes)
	require.True(t, access.Has("projects.view"))
	require.False(t, access.Has("rbac.manage"))
}

func TestResolveSuperAdminBypassesGrants(t *testing.T) {
	src := &memoryGrantSource{allCodes: []string{"projects.view", "rbac.manage"}}
	r := NewResolver(src, nil)

	access, err := r.Resolve(context.Background(), 10, 1, true)
	require.NoError(t, err)
	require.True(t, access.IsSuperAdmin)
	require.Equal(t, MaxAccessLevel, access.Rank)
	require.Equal(t, []string{"projects.view", "rbac.manage"}, access.PermissionCodes)
	require.True(t, access.Has("something.unknown"))
}

func TestResolvePropagatesSourceError(t *testing.T) {
	boom := errors.New("db down")
	r := NewResolver(&memoryGrantSource{err: boom}, nil)

	_, err := r.Resolve(context.Background(), 10, 1, false)
	require.ErrorIs(t, err, boom)
}

func TestReadWithRetryDoesNotRetryUnsafeErrors(t *testing.T) {
	src := &memoryGrantSource{err: errors.New("constraint violation")}
	r := NewResolver(src, nil)

	_, err := r.Resolve(context.Background(), 10, 1, false)
	require.Error(t, err)
	require.Equal(t, 1, src.calls)
}
