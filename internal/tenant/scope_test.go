package tenant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingAuditor struct {
	events []string
	metas  []map[string]any
}

func (a *recordingAuditor) SecurityEvent(_ context.Context, _ int64, action, _ string, meta map[string]any) {
	a.events = append(a.events, action)
	a.metas = append(a.metas, meta)
}

func testGuard(auditor SecurityAuditor) *Guard {
	return NewGuard(slog.New(slog.NewTextHandler(io.Discard, nil)), auditor)
}

func int64ptr(v int64) *int64 { return &v }

func TestScopeInjectsTenantPredicate(t *testing.T) {
	g := testGuard(nil)
	q := NewQuery(KindProject, "SELECT id FROM projects")

	require.NoError(t, g.Scope(q, int64ptr(7)))
	require.True(t, q.Scoped())

	sql, args, err := q.Build()
	require.NoError(t, err)
	require.Equal(t, "SELECT id FROM projects WHERE tenant_id = $1", sql)
	require.Equal(t, []any{int64(7)}, args)
}

func TestScopeTenantScopedRequiresTenant(t *testing.T) {
	g := testGuard(nil)

	for _, tid := range []*int64{nil, int64ptr(0)} {
		q := NewQuery(KindProject, "SELECT id FROM projects")
		err := g.Scope(q, tid)
		var scopeErr *ScopeError
		require.ErrorAs(t, err, &scopeErr)
		require.Equal(t, KindProject, scopeErr.Kind)
	}
}

func TestScopeGlobalRejectsTenantFilter(t *testing.T) {
	g := testGuard(nil)
	q := NewQuery(KindPermission, "SELECT id FROM permissions")

	err := g.Scope(q, int64ptr(3))
	var scopeErr *ScopeError
	require.ErrorAs(t, err, &scopeErr)

	// Global entities pass through clean without a tenant.
	require.NoError(t, g.Scope(NewQuery(KindPermission, "SELECT id FROM permissions"), nil))
}

func TestScopeUnknownKind(t *testing.T) {
	g := testGuard(nil)
	err := g.Scope(NewQuery(Kind("widgets"), "SELECT 1"), int64ptr(1))
	var scopeErr *ScopeError
	require.ErrorAs(t, err, &scopeErr)
}

func TestScopeRoleIncludesSystemTemplates(t *testing.T) {
	g := testGuard(nil)
	q := NewQuery(KindRole, "SELECT id FROM roles")
	require.NoError(t, g.Scope(q, int64ptr(4)))

	sql, args, err := q.Build()
	require.NoError(t, err)
	require.Equal(t, "SELECT id FROM roles WHERE (tenant_id = $1 OR tenant_id IS NULL)", sql)
	require.Equal(t, []any{int64(4)}, args)
}

func TestBuildFailsClosedWithoutScope(t *testing.T) {
	q := NewQuery(KindRefreshToken, "SELECT id FROM refresh_tokens").
		Where("session_id = ?", "abc")

	_, _, err := q.Build()
	var scopeErr *ScopeError
	require.ErrorAs(t, err, &scopeErr)
	require.Equal(t, KindRefreshToken, scopeErr.Kind)
}

func TestBuildGlobalWithoutScope(t *testing.T) {
	sql, args, err := NewQuery(KindTenant, "SELECT id FROM tenants").
		Where("slug = ?", "acme").
		Build()
	require.NoError(t, err)
	require.Equal(t, "SELECT id FROM tenants WHERE slug = $1", sql)
	require.Equal(t, []any{"acme"}, args)
}

func TestBuildPlaceholderOrdering(t *testing.T) {
	g := testGuard(nil)
	q := NewQuery(KindProject, "UPDATE projects SET status = ?", "archived").
		Where("id = ?", int64(12))
	require.NoError(t, g.Scope(q, int64ptr(9)))

	sql, args, err := q.Build()
	require.NoError(t, err)
	require.Equal(t, "UPDATE projects SET status = $1 WHERE id = $2 AND tenant_id = $3", sql)
	require.Equal(t, []any{"archived", int64(12), int64(9)}, args)
}

func TestBuildOrderAndLimit(t *testing.T) {
	g := testGuard(nil)
	q := NewQuery(KindProject, "SELECT id FROM projects").
		OrderBy("created_at DESC").
		Limit(10)
	require.NoError(t, g.Scope(q, int64ptr(2)))

	sql, _, err := q.Build()
	require.NoError(t, err)
	require.Equal(t, "SELECT id FROM projects WHERE tenant_id = $1 ORDER BY created_at DESC LIMIT 10", sql)
}

func TestScopeCrossTenantAudited(t *testing.T) {
	auditor := &recordingAuditor{}
	g := testGuard(auditor)
	q := NewQuery(KindProject, "SELECT id FROM projects")

	require.NoError(t, g.ScopeCrossTenant(context.Background(), q, 42, "support case 1187"))
	require.True(t, q.Exempt())

	sql, _, err := q.Build()
	require.NoError(t, err)
	require.Equal(t, "SELECT id FROM projects", sql)

	require.Equal(t, []string{"tenant.cross_tenant_query"}, auditor.events)
	require.Equal(t, "support case 1187", auditor.metas[0]["reason"])
}

func TestScopeCrossTenantRequiresReason(t *testing.T) {
	g := testGuard(&recordingAuditor{})
	err := g.ScopeCrossTenant(context.Background(), NewQuery(KindProject, "SELECT 1"), 42, "")
	var scopeErr *ScopeError
	require.ErrorAs(t, err, &scopeErr)
}

func TestScopeCrossTenantRejectsGlobal(t *testing.T) {
	g := testGuard(nil)
	err := g.ScopeCrossTenant(context.Background(), NewQuery(KindTenant, "SELECT 1"), 42, "why")
	require.Error(t, err)
	var scopeErr *ScopeError
	require.True(t, errors.As(err, &scopeErr))
}
