package sync

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// Handler exposes sync control and status endpoints.
type Handler struct {
	engine *Engine
}

// NewHandler builds Handler instance.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// MountRoutes registers sync routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.syncNow)
	r.Get("/status", h.status)
}

func (h *Handler) syncNow(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.SyncAll(r.Context())
	if errors.Is(err, ErrSyncInProgress) {
		shared.WriteError(w, http.StatusConflict, "sync_in_progress", err.Error())
		return
	}
	if err != nil {
		shared.WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	shared.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, h.engine.Status(r.Context()))
}
