package principal

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler wires HTTP endpoints for principal management.
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

// MountRoutes registers principal management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/{principalID}/deactivate", h.deactivate)
	r.Post("/{principalID}/activate", h.activate)
}

type principalResponse struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	IsActive     bool   `json:"is_active"`
	IsSuperAdmin bool   `json:"is_super_admin"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	_, tenantID, ok := tenantIdentity(w, r)
	if !ok {
		return
	}
	principals, err := h.service.List(r.Context(), tenantID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]principalResponse, 0, len(principals))
	for _, p := range principals {
		out = append(out, principalResponse{
			ID:           p.ID,
			Username:     p.Username,
			IsActive:     p.IsActive,
			IsSuperAdmin: p.IsSuperAdmin,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createRequest struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required,min=8"`
	SuperAdmin bool   `json:"super_admin"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	id, tenantID, ok := tenantIdentity(w, r)
	if !ok {
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	// Only super-admins may mint more super-admins.
	if req.SuperAdmin && !id.IsSuperAdmin {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	created, err := h.service.Create(r.Context(), &tenantID, req.Username, req.Password, req.SuperAdmin)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, principalResponse{
		ID:           created.ID,
		Username:     created.Username,
		IsActive:     created.IsActive,
		IsSuperAdmin: created.IsSuperAdmin,
	})
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, false)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, true)
}

func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, active bool) {
	_, tenantID, ok := tenantIdentity(w, r)
	if !ok {
		return
	}
	principalID, err := strconv.ParseInt(chi.URLParam(r, "principalID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid principal id")
		return
	}
	if active {
		err = h.service.Reactivate(r.Context(), tenantID, principalID)
	} else {
		err = h.service.Deactivate(r.Context(), tenantID, principalID)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func tenantIdentity(w http.ResponseWriter, r *http.Request) (shared.Identity, int64, bool) {
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
