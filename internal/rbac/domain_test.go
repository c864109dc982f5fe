package rbac

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func int64ptr(v int64) *int64 { return &v }

func TestNewRoleValidation(t *testing.T) {
	t.Run("valid tenant role", func(t *testing.T) {
		role, err := NewRole(int64ptr(1), nil, "Warehouse Lead", 3)
		require.NoError(t, err)
		require.Equal(t, "Warehouse Lead", role.Name)
		require.Equal(t, 3, role.AccessLevel)
		require.True(t, role.IsActive)
		require.False(t, role.IsSystem())
	})

	t.Run("valid system role", func(t *testing.T) {
		role, err := NewRole(nil, strptr("platform.admin"), "Platform Admin", 5)
		require.NoError(t, err)
		require.True(t, role.IsSystem())
		require.Equal(t, "platform.admin", *role.Code)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := NewRole(int64ptr(1), nil, "   ", 2)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "name", verr.Field)
	})

	t.Run("access level out of bounds", func(t *testing.T) {
		for _, lvl := range []int{0, -1, MaxAccessLevel + 1} {
			_, err := NewRole(int64ptr(1), nil, "X", lvl)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Equal(t, "access_level", verr.Field)
		}
	})

	t.Run("code on tenant role rejected", func(t *testing.T) {
		_, err := NewRole(int64ptr(1), strptr("ops"), "Ops", 2)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		require.Equal(t, "code", verr.Field)
	})

	t.Run("blank code rejected", func(t *testing.T) {
		_, err := NewRole(nil, strptr("  "), "Ops", 2)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestRoleActivationReturnsCopies(t *testing.T) {
	role, err := NewRole(int64ptr(1), nil, "Viewer", 1)
	require.NoError(t, err)

	off := role.Deactivate()
	require.False(t, off.IsActive)
	require.True(t, role.IsActive)

	on := off.Activate()
	require.True(t, on.IsActive)
	require.False(t, off.IsActive)
}

func TestNewPermissionNormalizesCode(t *testing.T) {
	p, err := NewPermission("  Projects.Manage ", "Manage projects")
	require.NoError(t, err)
	require.Equal(t, "projects.manage", p.Code)
	require.True(t, p.IsActive)

	_, err = NewPermission("", "x")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = NewPermission("a.b", " ")
	require.ErrorAs(t, err, &verr)
}

func TestEffectivePermissionCodesTripleFlag(t *testing.T) {
	active := Permission{Code: "projects.view", IsActive: true}
	inactive := Permission{Code: "projects.manage", IsActive: false}

	grants := []RoleGrant{
		{
			Role:             Role{Name: "Viewer", AccessLevel: 1, IsActive: true},
			Permissions:      []Permission{active, inactive},
			AssignmentActive: true,
		},
		{
			// Inactive role: nothing from here counts.
			Role:             Role{Name: "Admin", AccessLevel: 5, IsActive: false},
			Permissions:      []Permission{{Code: "rbac.manage", IsActive: true}},
			AssignmentActive: true,
		},
		{
			// Inactive assignment: nothing from here counts.
			Role:             Role{Name: "Ops", AccessLevel: 3, IsActive: true},
			Permissions:      []Permission{{Code: "principals.manage", IsActive: true}},
			AssignmentActive: false,
		},
	}

	require.Equal(t, []string{"projects.view"}, EffectivePermissionCodes(grants))
}

func TestEffectivePermissionCodesDeduplicates(t *testing.T) {
	p := Permission{Code: "projects.view", IsActive: true}
	grants := []RoleGrant{
		{Role: Role{IsActive: true}, Permissions: []Permission{p}, AssignmentActive: true},
		{Role: Role{IsActive: true}, Permissions: []Permission{p}, AssignmentActive: true},
	}
	require.Equal(t, []string{"projects.view"}, EffectivePermissionCodes(grants))
}

func TestHasRole(t *testing.T) {
	grants := []RoleGrant{
		{Role: Role{Code: strptr("platform.admin"), IsActive: true}, AssignmentActive: true},
		{Role: Role{Code: strptr("auditor"), IsActive: false}, AssignmentActive: true},
	}
	require.True(t, HasRole(grants, "platform.admin"))
	require.False(t, HasRole(grants, "auditor"))
	require.False(t, HasRole(grants, "nonexistent"))
}

func TestAccessHas(t *testing.T) {
	a := Access{Rank: 2, PermissionCodes: []string{"projects.view"}}
	require.True(t, a.Has("projects.view"))
	require.False(t, a.Has("projects.manage"))

	super := Access{Rank: MaxAccessLevel, IsSuperAdmin: true}
	require.True(t, super.Has("anything.at.all"))
}
