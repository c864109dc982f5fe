package tenant

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler exposes the platform-operator views over the global tenant tables.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers platform routes. Callers must gate the group behind
// the platform-operator check.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/modules", h.listModuleActivations)
}

func (h *Handler) listModuleActivations(w http.ResponseWriter, r *http.Request) {
	activations, err := h.repo.ListModuleActivations(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, activations)
}
