package rbac

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler wires HTTP endpoints for role and permission administration.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers rbac administration routes on the provided router.
// Callers wrap the group in the auth middleware and permission checks.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/roles", h.listRoles)
	r.Post("/roles", h.createRole)
	r.Post("/roles/{roleID}/deactivate", h.deactivateRole)
	r.Post("/roles/{roleID}/activate", h.activateRole)
	r.Put("/roles/{roleID}/permissions", h.setRolePermissions)

	r.Get("/permissions", h.listPermissions)
	r.Post("/permissions", h.ensurePermission)
	r.Post("/permissions/{code}/deactivate", h.deactivatePermission)
	r.Post("/permissions/{code}/activate", h.activatePermission)

	r.Post("/assignments", h.assignRole)
	r.Post("/assignments/revoke", h.revokeAssignment)
}

type roleResponse struct {
	ID          int64   `json:"id"`
	TenantID    *int64  `json:"tenant_id,omitempty"`
	Code        *string `json:"code,omitempty"`
	Name        string  `json:"name"`
	AccessLevel int     `json:"access_level"`
	IsActive    bool    `json:"is_active"`
	IsSystem    bool    `json:"is_system"`
}

func toRoleResponse(role Role) roleResponse {
	return roleResponse{
		ID:          role.ID,
		TenantID:    role.TenantID,
		Code:        role.Code,
		Name:        role.Name,
		AccessLevel: role.AccessLevel,
		IsActive:    role.IsActive,
		IsSystem:    role.IsSystem(),
	}
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantIdentity(w, r)
	if !ok {
		return
	}
	roles, err := h.service.ListRoles(r.Context(), tenantID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, toRoleResponse(role))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createRoleRequest struct {
	Name        string  `json:"name" validate:"required"`
	AccessLevel int     `json:"access_level" validate:"required,min=1,max=5"`
	Code        *string `json:"code,omitempty"`
	System      bool    `json:"system,omitempty"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return
	}
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	var tenantID *int64
	if req.System {
		// Only platform operators may create cross-tenant templates.
		if !id.IsPlatformOperator() {
			httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
			return
		}
	} else {
		if id.TenantID == nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tenant role requires a tenant")
			return
		}
		tenantID = id.TenantID
	}

	role, err := h.service.CreateRole(r.Context(), tenantID, req.Code, req.Name, req.AccessLevel)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(role))
}

func (h *Handler) deactivateRole(w http.ResponseWriter, r *http.Request) {
	h.toggleRole(w, r, false)
}

func (h *Handler) activateRole(w http.ResponseWriter, r *http.Request) {
	h.toggleRole(w, r, true)
}

func (h *Handler) toggleRole(w http.ResponseWriter, r *http.Request, active bool) {
	_, tenantID, ok := h.tenantIdentity(w, r)
	if !ok {
		return
	}
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	if active {
		err = h.service.ReactivateRole(r.Context(), tenantID, roleID)
	} else {
		err = h.service.DeactivateRole(r.Context(), tenantID, roleID)
	}
	if err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setRolePermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids" validate:"required"`
}

func (h *Handler) setRolePermissions(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantIdentity(w, r)
	if !ok {
		return
	}
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid role id")
		return
	}
	var req setRolePermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.service.SetRolePermissions(r.Context(), tenantID, roleID, req.PermissionIDs); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

type ensurePermissionRequest struct {
	Code string `json:"code" validate:"required"`
	Name string `json:"name" validate:"required"`
}

func (h *Handler) ensurePermission(w http.ResponseWriter, r *http.Request) {
	var req ensurePermissionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	perm, err := h.service.EnsurePermission(r.Context(), req.Code, req.Name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, perm)
}

func (h *Handler) deactivatePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeactivatePermission(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activatePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ReactivatePermission(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignmentRequest struct {
	PrincipalID int64 `json:"principal_id" validate:"required"`
	RoleID      int64 `json:"role_id" validate:"required"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantIdentity(w, r)
	if !ok {
		return
	}
	var req assignmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AssignRole(r.Context(), tenantID, req.PrincipalID, req.RoleID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) revokeAssignment(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := h.tenantIdentity(w, r)
	if !ok {
		return
	}
	var req assignmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.service.RevokeAssignment(r.Context(), tenantID, req.PrincipalID, req.RoleID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) tenantIdentity(w http.ResponseWriter, r *http.Request) (shared.Identity, int64, bool) {
	id, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Unauthorized(w)
		return shared.Identity{}, 0, false
	}
	if id.TenantID == nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "route requires a tenant principal")
		return shared.Identity{}, 0, false
	}
	return id, *id.TenantID, true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", verr.Error())
		return
	}
	httpx.RespondError(w, err)
}
