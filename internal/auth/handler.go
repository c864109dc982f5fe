package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/token"
)

// TokenManager is the refresh-token lifecycle surface the handler consumes.
type TokenManager interface {
	Issue(ctx context.Context, principalID int64, tenantID *int64) (string, token.RefreshToken, error)
	ValidateAndRotate(ctx context.Context, raw string) (token.Rotation, error)
	RevokeBySession(ctx context.Context, sessionID uuid.UUID) error
	RevokeAllForPrincipal(ctx context.Context, principalID int64) error
}

// Handler wires HTTP endpoints for authentication and session management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	tokens    TokenManager
	minter    *Minter
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, tokens TokenManager, minter *Minter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		tokens:    tokens,
		minter:    minter,
		validator: validator.New(),
	}
}

// MountPublicRoutes registers the unauthenticated auth endpoints.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/refresh", h.handleRefresh)
}

// MountSessionRoutes registers the authenticated session-management
// endpoints.
func (h *Handler) MountSessionRoutes(r chi.Router) {
	r.Get("/me", h.handleMe)
	r.Post("/logout", h.handleLogout)
	r.Post("/logout_all", h.handleLogoutAll)
}

type loginRequest struct {
	Tenant   string `json:"tenant"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	principal, err := h.service.Authenticate(r.Context(), req.Tenant, req.Username, req.Password)
	if err != nil {
		httpx.Unauthorized(w)
		return
	}

	raw, rec, err := h.tokens.Issue(r.Context(), principal.ID, principal.TenantID)
	if err != nil {
		h.logger.Error("issue refresh token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	access, err := h.minter.Mint(principal.ID, principal.TenantID, rec.SessionID.String())
	if err != nil {
		h.logger.Error("mint access token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		AccessToken:  access,
		RefreshToken: raw,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.minter.TTL().Seconds()),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	rotation, err := h.tokens.ValidateAndRotate(r.Context(), req.RefreshToken)
	if err != nil {
		// Replay already triggered session revocation inside the
		// lifecycle manager; the caller sees the same generic failure
		// as every other cause.
		httpx.Unauthorized(w)
		return
	}
	access, err := h.minter.Mint(rotation.PrincipalID, rotation.TenantID, rotation.SessionID.String())
	if err != nil {
		h.logger.Error("mint access token", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, sessionResponse{
		AccessToken:  access,
		RefreshToken: rotation.RawSecret,
		TokenType:    "Bearer",
		ExpiresIn:    int64(h.minter.TTL().Seconds()),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"principal_id":     id.PrincipalID,
		"tenant_id":        id.TenantID,
		"access_level":     id.Rank,
		"permission_codes": id.PermissionCodes,
		"is_super_admin":   id.IsSuperAdmin,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	sessionID, err := uuid.Parse(id.SessionID)
	if err != nil {
		httpx.Unauthorized(w)
		return
	}
	if err := h.tokens.RevokeBySession(r.Context(), sessionID); err != nil {
		h.logger.Error("revoke session", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	if err := h.tokens.RevokeAllForPrincipal(r.Context(), id.PrincipalID); err != nil {
		h.logger.Error("revoke all sessions", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
