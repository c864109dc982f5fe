package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestWithIdentity(id shared.Identity) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(shared.ContextWithIdentity(req.Context(), id))
}

func TestRequireAny(t *testing.T) {
	mw := Middleware{}
	handler := mw.RequireAny("projects.view", "Projects.Manage")(okHandler())

	t.Run("holds one", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestWithIdentity(shared.Identity{
			PermissionCodes: []string{"projects.manage"},
		}))
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("holds none", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestWithIdentity(shared.Identity{
			PermissionCodes: []string{"rbac.manage"},
		}))
		require.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("super admin passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestWithIdentity(shared.Identity{IsSuperAdmin: true}))
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireAll(t *testing.T) {
	mw := Middleware{}
	handler := mw.RequireAll("projects.view", "projects.manage")(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithIdentity(shared.Identity{
		PermissionCodes: []string{"projects.view", "projects.manage"},
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithIdentity(shared.Identity{
		PermissionCodes: []string{"projects.view"},
	}))
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireLevel(t *testing.T) {
	mw := Middleware{}
	handler := mw.RequireLevel(3)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithIdentity(shared.Identity{Rank: 3}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithIdentity(shared.Identity{Rank: 2}))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithIdentity(shared.Identity{Rank: 1, IsSuperAdmin: true}))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRequirePlatformOperator(t *testing.T) {
	mw := Middleware{}
	handler := mw.RequirePlatformOperator()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithIdentity(shared.Identity{PrincipalID: 3}))
	require.Equal(t, http.StatusOK, rec.Code)

	tid := int64(10)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithIdentity(shared.Identity{PrincipalID: 1, TenantID: &tid}))
	require.Equal(t, http.StatusForbidden, rec.Code)
}
