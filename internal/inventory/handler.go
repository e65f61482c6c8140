package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// Handler exposes the inventory audit trail.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/changes", h.listChanges)
}

func (h *Handler) listChanges(w http.ResponseWriter, r *http.Request) {
	var (
		changes []Change
		err     error
	)
	if productID := r.URL.Query().Get("productId"); productID != "" {
		changes, err = h.repo.ListByProduct(r.Context(), productID)
	} else {
		changes, err = h.repo.GetAll(r.Context())
	}
	if err != nil {
		h.logger.Error("list inventory changes", slog.Any("error", err))
		shared.WriteError(w, http.StatusInternalServerError, "internal_error", "failed to list changes")
		return
	}
	if changes == nil {
		changes = []Change{}
	}
	shared.WriteJSON(w, http.StatusOK, changes)
}
