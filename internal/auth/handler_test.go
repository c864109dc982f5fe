package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/token"
)

type fakeTokenManager struct {
	issued          int
	rotateErr       error
	revokedSessions []uuid.UUID
	revokedAll      []int64
}

func (f *fakeTokenManager) Issue(_ context.Context, principalID int64, tenantID *int64) (string, token.RefreshToken, error) {
	f.issued++
	return "raw-refresh-secret", token.RefreshToken{
		ID:          uuid.New(),
		PrincipalID: principalID,
		TenantID:    tenantID,
		SessionID:   uuid.New(),
	}, nil
}

func (f *fakeTokenManager) ValidateAndRotate(context.Context, string) (token.Rotation, error) {
	if f.rotateErr != nil {
		return token.Rotation{}, f.rotateErr
	}
	return token.Rotation{
		PrincipalID: 1,
		TenantID:    int64ptr(10),
		SessionID:   uuid.New(),
		RawSecret:   "next-refresh-secret",
	}, nil
}

func (f *fakeTokenManager) RevokeBySession(_ context.Context, sessionID uuid.UUID) error {
	f.revokedSessions = append(f.revokedSessions, sessionID)
	return nil
}

func (f *fakeTokenManager) RevokeAllForPrincipal(_ context.Context, principalID int64) error {
	f.revokedAll = append(f.revokedAll, principalID)
	return nil
}

func fixtureHandler(t *testing.T) (*Handler, *fakeTokenManager) {
	t.Helper()
	svc, _ := fixtureService(t)
	tokens := &fakeTokenManager{}
	return NewHandler(nil, svc, tokens, testMinter(t)), tokens
}

func postJSON(t *testing.T, router chi.Router, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginIssuesSessionPair(t *testing.T) {
	h, tokens := fixtureHandler(t)
	r := chi.NewRouter()
	h.MountPublicRoutes(r)

	rec := postJSON(t, r, "/login", map[string]string{
		"tenant": "acme", "username": "alice", "password": "correct horse",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "raw-refresh-secret", resp.RefreshToken)
	require.Equal(t, "Bearer", resp.TokenType)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, 1, tokens.issued)

	// The access token is verifiable and carries the session.
	claims, err := testMinter(t).Verify(resp.AccessToken)
	require.NoError(t, err)
	id, err := claims.PrincipalID()
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
}

func TestLoginFailureIsGeneric(t *testing.T) {
	h, tokens := fixtureHandler(t)
	r := chi.NewRouter()
	h.MountPublicRoutes(r)

	for name, body := range map[string]map[string]string{
		"bad password":   {"tenant": "acme", "username": "alice", "password": "wrong password"},
		"unknown tenant": {"tenant": "ghost", "username": "alice", "password": "correct horse"},
		"inactive user":  {"tenant": "acme", "username": "bob", "password": "hunter2hunter2"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := postJSON(t, r, "/login", body)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
			var problem map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			require.Equal(t, httpx.SessionProblem, problem["detail"])
		})
	}
	require.Zero(t, tokens.issued)
}

func TestLoginValidation(t *testing.T) {
	h, _ := fixtureHandler(t)
	r := chi.NewRouter()
	h.MountPublicRoutes(r)

	// Password below minimum length never reaches the authenticator.
	rec := postJSON(t, r, "/login", map[string]string{
		"tenant": "acme", "username": "alice", "password": "short",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshRotates(t *testing.T) {
	h, _ := fixtureHandler(t)
	r := chi.NewRouter()
	h.MountPublicRoutes(r)

	rec := postJSON(t, r, "/refresh", map[string]string{"refresh_token": "raw-refresh-secret"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "next-refresh-secret", resp.RefreshToken)
	require.NotEmpty(t, resp.AccessToken)
}

func TestRefreshFailureIsGeneric(t *testing.T) {
	h, tokens := fixtureHandler(t)
	r := chi.NewRouter()
	h.MountPublicRoutes(r)

	for _, cause := range []error{
		shared.ErrInvalidCredential,
		token.ErrExpired,
		token.ErrRevoked,
		token.ErrReplaySuspected,
	} {
		tokens.rotateErr = cause
		rec := postJSON(t, r, "/refresh", map[string]string{"refresh_token": "whatever"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		var problem map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		require.Equal(t, httpx.SessionProblem, problem["detail"])
	}
}

func identityContext(r *http.Request, id shared.Identity) *http.Request {
	return r.WithContext(shared.ContextWithIdentity(r.Context(), id))
}

func TestLogoutRevokesSession(t *testing.T) {
	h, tokens := fixtureHandler(t)
	sid := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req = identityContext(req, shared.Identity{PrincipalID: 1, SessionID: sid.String()})
	rec := httptest.NewRecorder()
	h.handleLogout(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []uuid.UUID{sid}, tokens.revokedSessions)
}

func TestLogoutAllRevokesPrincipal(t *testing.T) {
	h, tokens := fixtureHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/logout_all", nil)
	req = identityContext(req, shared.Identity{PrincipalID: 7, SessionID: uuid.NewString()})
	rec := httptest.NewRecorder()
	h.handleLogoutAll(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, []int64{7}, tokens.revokedAll)
}

func TestSessionRoutesRequireIdentity(t *testing.T) {
	h, _ := fixtureHandler(t)
	r := chi.NewRouter()
	h.MountSessionRoutes(r)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/me"},
		{http.MethodPost, "/logout"},
		{http.MethodPost, "/logout_all"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
}
